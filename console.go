package chipvm

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrConsoleIsNotBooted = errors.New("the console has not been booted properly")

const (
	// One cycle per 60 Hz tick keeps the timers at their nominal rate
	DefaultSpeed          uint = 60
	MaxSpeed              uint = 700
	MinSpeed              uint = 5
	DefaultCyclesPerFrame uint = 1
)

type ConsoleConfig struct {
	// Speed in cycles per second
	Speed uint
	// CyclesPerFrame is how many cycles run between renders
	CyclesPerFrame uint
	// KeepAliveOnError keeps Loop running after the CPU halts instead of returning the error.
	// The console is paused and the error hooks are the only notification.
	KeepAliveOnError bool
	Random           RandomSource
	Logger           *slog.Logger
}
type ConsoleConfigCb func(config *ConsoleConfig)

// Console drives a Cpu on behalf of a host: it samples the keyboard, runs cycles at the
// configured speed, and forwards the screen and the sound timer to the display and the buzzer.
// Control methods may be called from other goroutines while Loop runs.
type Console struct {
	Cpu      *Cpu
	Display  Display
	Keyboard Keyboard
	Buzzer   Buzzer

	logger *slog.Logger

	mu               sync.Mutex
	speedInHz        uint
	step             time.Duration
	cyclesPerFrame   uint
	keepAliveOnError bool
	frames           uint
	program          []byte

	isBooted  bool
	isPaused  bool
	isBuzzing bool

	// Hooks that run before every cycle
	beforeCycleHooks []Hook
	// Hooks that run after every cycle
	afterCycleHooks []Hook
	// Hooks that run after every frame
	afterFrameHooks []Hook
	// Hooks that run after an error
	errorHooks []Hook
}

func NewConsole(display Display, keyboard Keyboard, buzzer Buzzer, configs ...ConsoleConfigCb) *Console {
	config := &ConsoleConfig{
		Speed:          DefaultSpeed,
		CyclesPerFrame: DefaultCyclesPerFrame,
		Random:         CryptoRandom{},
		Logger:         slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	cpu := NewCpu(NewMemory())
	cpu.Random = config.Random

	cs := &Console{
		Cpu:      cpu,
		Display:  display,
		Keyboard: keyboard,
		Buzzer:   buzzer,

		logger:           config.Logger,
		cyclesPerFrame:   max(config.CyclesPerFrame, 1),
		keepAliveOnError: config.KeepAliveOnError,
	}
	cs.SetSpeedInHz(config.Speed)

	return cs
}

func (cs *Console) IsRunning() bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return !cs.isPaused
}

func (cs *Console) SpeedInHz() uint {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return cs.speedInHz
}

// SetSpeedInHz sets the cycle rate, clamped to [MinSpeed, MaxSpeed]
func (cs *Console) SetSpeedInHz(inHz uint) {
	inHz = min(max(inHz, MinSpeed), MaxSpeed)

	cs.mu.Lock()
	cs.speedInHz = inHz
	cs.step = time.Second / time.Duration(inHz)
	cs.mu.Unlock()
}

func (cs *Console) Frames() uint {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return cs.frames
}

// Boot initializes all the components
// If the console was already booted, this method is a noop
func (cs *Console) Boot() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.isBooted {
		return nil
	}

	if err := cs.Display.Boot(); err != nil {
		return err
	}

	if err := cs.Keyboard.Boot(); err != nil {
		return err
	}

	if err := cs.Buzzer.Boot(); err != nil {
		return err
	}

	cs.isBooted = true

	return nil
}

// Load puts the program into a fresh memory and resets the CPU.
// On error the running program is left as it was.
func (cs *Console) Load(program []byte) error {
	mem := NewMemory()
	if err := mem.LoadProgram(program); err != nil {
		return err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.program = append(cs.program[:0], program...)
	cs.Cpu.Memory = mem
	cs.reset()

	return nil
}

// LoadFile reads the ROM at path and loads it
func (cs *Console) LoadFile(path string) error {
	program, err := ReadROMFile(path)
	if err != nil {
		return err
	}

	if err := cs.Load(program); err != nil {
		return err
	}

	cs.logger.Info("Program loaded", slog.String("path", path), slog.Int("size", len(program)))

	return nil
}

// Reset restarts the loaded program from a pristine memory
func (cs *Console) Reset() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	mem := NewMemory()
	// the program fitted when it was loaded
	_ = mem.LoadProgram(cs.program)
	cs.Cpu.Memory = mem
	cs.reset()
}

func (cs *Console) reset() {
	cs.Cpu.Reset()
	cs.frames = 0
	cs.stopBuzzer()

	if cs.isBooted {
		cs.render()
	}
}

// Start resumes the loop
func (cs *Console) Start() {
	cs.mu.Lock()
	cs.isPaused = false
	cs.mu.Unlock()
}

// Stop pauses the loop
func (cs *Console) Stop() {
	cs.mu.Lock()
	cs.isPaused = true
	cs.stopBuzzer()
	cs.mu.Unlock()
}

// Loop runs cycles at the current speed until ctx is done.
// It returns the CPU error when the CPU halts, unless the console keeps alive on errors.
func (cs *Console) Loop(ctx context.Context) error {
	cs.mu.Lock()
	booted := cs.isBooted
	cs.mu.Unlock()
	if !booted {
		return ErrConsoleIsNotBooted
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	var last time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := cs.runNextCycle(); err != nil && !cs.keepAliveOnError {
			return err
		}

		// Prevent the CPU from running faster than expected
		timer.Reset(max(cs.currentStep()-time.Since(last), 0))
		last = time.Now()
	}
}

// LoopOnce runs a single cycle bypassing the pause state
func (cs *Console) LoopOnce() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.isBooted {
		return ErrConsoleIsNotBooted
	}

	return cs.cycle()
}

func (cs *Console) currentStep() time.Duration {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	return cs.step
}

func (cs *Console) runNextCycle() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.isPaused {
		return nil
	}

	return cs.cycle()
}

func (cs *Console) cycle() error {
	if cs.Cpu.Halted() {
		// stays paused until reset or load
		cs.isPaused = true
		return cs.Cpu.Err()
	}

	cs.Cpu.Keypad = cs.Keyboard.State()

	cs.runHooks(cs.beforeCycleHooks)
	if err := cs.Cpu.Cycle(); err != nil {
		cs.logger.Error("CPU halted", slog.Any("error", err))
		cs.isPaused = true
		cs.stopBuzzer()
		cs.runHooks(cs.errorHooks)
		return err
	}
	cs.runHooks(cs.afterCycleHooks)

	if cs.Cpu.Cycles()%cs.cyclesPerFrame == 0 {
		return cs.frame()
	}

	return nil
}

func (cs *Console) frame() error {
	if cs.Cpu.ConsumeScreenChange() {
		if err := cs.Display.Render(cs.Cpu.Screen); err != nil {
			return err
		}
	}

	if cs.Cpu.IsSoundTimerActive() {
		if !cs.isBuzzing {
			cs.isBuzzing = true
			cs.Buzzer.Play()
		}
	} else {
		cs.stopBuzzer()
	}

	cs.frames++
	cs.runHooks(cs.afterFrameHooks)

	return nil
}

func (cs *Console) render() {
	cs.Cpu.ConsumeScreenChange()
	if err := cs.Display.Render(cs.Cpu.Screen); err != nil {
		cs.logger.Error("Error rendering the screen", slog.Any("error", err))
	}
}

func (cs *Console) stopBuzzer() {
	if cs.isBuzzing {
		cs.isBuzzing = false
		cs.Buzzer.Stop()
	}
}
