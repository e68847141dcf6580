package chipvm

import (
	"errors"
	"fmt"
)

var ErrOpCodeUnknown = errors.New("unknown opcode")
var ErrStackUnderflow = errors.New("stack underflow: try to pop an empty stack")
var ErrStackOverflow = errors.New("stack overflow: try to push to a full stack")

// ErrExecution reports the instruction that halted the CPU
type ErrExecution struct {
	OpCode OpCode
	// Pc is the address the opcode was fetched from
	Pc  uint16
	Err error
}

func (err ErrExecution) Error() string {
	return fmt.Sprintf("opcode=%s at PC=%#04x: %v", err.OpCode, err.Pc, err.Err)
}

func (err ErrExecution) Unwrap() error {
	return err.Err
}

// MachineRoutineInterpreter runs the 0nnn machine code routines
type MachineRoutineInterpreter func(opCode OpCode, cpu *Cpu) error

// Chip-8 CPU
type Cpu struct {
	Memory *Memory
	// V 8-bit registers
	V [16]byte
	// I 16-bit register (12-bit usable)
	I uint16
	// Delay timer register
	Dt byte
	// Sound timer register
	St byte
	// Program counter
	Pc uint16
	// Stack pointer
	Sp byte
	// Stack
	Stack [16]uint16

	// Keypad is written by the host between cycles
	Keypad KeyboardState
	Screen Screen

	Random                    RandomSource
	MachineRoutineInterpreter MachineRoutineInterpreter

	cycles        uint
	isScreenDirty bool
	lastError     error
}

// NewCpu creates a CPU ready to run from the start-of-program address.
// A nil memory gets a fresh one with the font loaded.
func NewCpu(memory *Memory) *Cpu {
	if memory == nil {
		memory = NewMemory()
	}

	return &Cpu{
		Memory: memory,
		Pc:     StartOfProgram,
		Random: CryptoRandom{},
	}
}

func (cpu *Cpu) IsSoundTimerActive() bool {
	return cpu.St > 0
}

func (cpu *Cpu) IsDelayTimerActive() bool {
	return cpu.Dt > 0
}

func (cpu *Cpu) Cycles() uint {
	return cpu.cycles
}

// Halted reports whether an instruction failed. A halted CPU does not advance until reset.
func (cpu *Cpu) Halted() bool {
	return cpu.lastError != nil
}

// Err returns the failure that halted the CPU
func (cpu *Cpu) Err() error {
	return cpu.lastError
}

// ConsumeScreenChange reports whether the screen changed since the last call
func (cpu *Cpu) ConsumeScreenChange() bool {
	dirty := cpu.isScreenDirty
	cpu.isScreenDirty = false

	return dirty
}

// Reset brings every register, the stack, the keypad and the screen back to power-on state.
// Memory is kept.
func (cpu *Cpu) Reset() {
	cpu.V = [16]byte{}
	cpu.I = 0
	cpu.Dt = 0
	cpu.St = 0
	cpu.Pc = StartOfProgram
	cpu.Sp = 0
	cpu.Stack = [16]uint16{}
	cpu.Keypad = KeyboardState{}
	cpu.Screen.Clear()

	cpu.cycles = 0
	cpu.isScreenDirty = true
	cpu.lastError = nil
}

// LoadProgram resets the CPU and loads the program at the start-of-program address
func (cpu *Cpu) LoadProgram(program []byte) error {
	if err := cpu.Memory.LoadProgram(program); err != nil {
		return err
	}
	cpu.Reset()

	return nil
}

// Cycle fetches, decodes and executes one instruction, then ticks both timers.
// Once an instruction fails the CPU is halted and every call returns the same error.
func (cpu *Cpu) Cycle() error {
	if cpu.lastError != nil {
		return cpu.lastError
	}

	pc := cpu.Pc
	opCode, err := cpu.Memory.OpCodeAt(pc)
	if err != nil {
		return cpu.halt(opCode, pc, err)
	}
	cpu.Pc += 2

	if err := cpu.executeInstruction(opCode); err != nil {
		return cpu.halt(opCode, pc, err)
	}

	if cpu.Dt > 0 {
		cpu.Dt--
	}
	if cpu.St > 0 {
		cpu.St--
	}
	cpu.cycles++

	return nil
}

func (cpu *Cpu) halt(opCode OpCode, pc uint16, err error) error {
	cpu.lastError = ErrExecution{
		OpCode: opCode,
		Pc:     pc,
		Err:    err,
	}

	return cpu.lastError
}

func bool2byte(b bool) byte {
	if b {
		return 1
	}

	return 0
}
