package chipvm

type Hook func(cpu *Cpu)

// AddBeforeCycleHook adds a hook that will run before every cycle of the CPU
func (cs *Console) AddBeforeCycleHook(h Hook) int {
	cs.beforeCycleHooks = append(cs.beforeCycleHooks, h)

	return len(cs.beforeCycleHooks)
}

// AddAfterCycleHook adds a hook that will run after every successful cycle of the CPU
func (cs *Console) AddAfterCycleHook(h Hook) int {
	cs.afterCycleHooks = append(cs.afterCycleHooks, h)

	return len(cs.afterCycleHooks)
}

// AddAfterFrameHook adds a hook that will run after every frame
func (cs *Console) AddAfterFrameHook(h Hook) int {
	cs.afterFrameHooks = append(cs.afterFrameHooks, h)

	return len(cs.afterFrameHooks)
}

// AddErrorHook adds a hook that will run when the CPU halts. cpu.Err() holds the failure.
func (cs *Console) AddErrorHook(h Hook) int {
	cs.errorHooks = append(cs.errorHooks, h)

	return len(cs.errorHooks)
}

func (cs *Console) runHooks(hooks []Hook) {
	for _, h := range hooks {
		h(cs.Cpu)
	}
}
