package chipvm_test

import (
	"errors"
	"testing"

	"github.com/guslan/chipvm"
	"github.com/retroenv/retrogolib/assert"
)

func newCpu(t *testing.T, program []byte) *chipvm.Cpu {
	t.Helper()

	cpu := chipvm.NewCpu(chipvm.NewMemory())
	cpu.Random = chipvm.FixedRandom(0xFF)
	assert.NoError(t, cpu.LoadProgram(program))

	return cpu
}

func runNCycles(t *testing.T, cpu *chipvm.Cpu, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		assert.NoError(t, cpu.Cycle())
	}
}

func assertVxEq(t *testing.T, msg string, cpu *chipvm.Cpu, x, kk byte) {
	t.Helper()

	if cpu.V[x] != kk {
		t.Fatalf(`%s: cpu.V[%x] = %x, expected %x`, msg, x, cpu.V[x], kk)
	}
}

func TestNewCpu(t *testing.T) {
	cpu := chipvm.NewCpu(nil)

	assert.Equal(t, uint16(0x200), cpu.Pc)
	assert.Equal(t, byte(0), cpu.Sp)
	assert.Equal(t, byte(0xF0), cpu.Memory[0])
	assert.Equal(t, byte(0x80), cpu.Memory[0x4F])
	assert.False(t, cpu.Halted())
}

// TestConstantSetInstructions
func TestConstantSetInstructions(t *testing.T) {
	program := []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 1
		0x62, 1,
		// add to v2 4
		0x72, 4,
	}
	cpu := newCpu(t, program)
	runNCycles(t, cpu, 4)

	assertVxEq(t, "LD V0", cpu, 0x0, 128)
	assertVxEq(t, "LD V1", cpu, 0x1, 16)
	assertVxEq(t, "ADD V2", cpu, 0x2, 5)
}

func TestLoadByteEveryRegister(t *testing.T) {
	for x := byte(0); x < 16; x++ {
		cpu := newCpu(t, []byte{0x60 | x, 0xA5})
		runNCycles(t, cpu, 1)

		assertVxEq(t, "LD Vx, byte", cpu, x, 0xA5)
	}
}

func TestAddByteWrapsWithoutFlag(t *testing.T) {
	for _, a := range []byte{0, 1, 100, 200, 255} {
		for _, b := range []byte{0, 1, 55, 56, 255} {
			cpu := newCpu(t, []byte{0x73, b})
			cpu.V[3] = a
			cpu.V[0xF] = 0x42
			runNCycles(t, cpu, 1)

			assert.Equal(t, a+b, cpu.V[3])
			assert.Equal(t, byte(0x42), cpu.V[0xF])
		}
	}
}

// TestSimpleSkips loads a program that skips instructions that would set registers
func TestSimpleSkips(t *testing.T) {
	program := []byte{
		// set v0 to 128
		0x60, 128,
		// set v1 to 16
		0x61, 16,
		// set v2 to 128
		0x62, 128,

		// if v0 == 128, do not set v3 to 1
		0x30, 128,
		0x63, 1,

		// if v0 == 16, do not set vA to 1
		0x30, 16,
		0x6A, 1,

		// if v0 != 128, do not set v4 to 1
		0x40, 128,
		0x64, 1,

		// if v0 != 16, do not set vB to 1
		0x40, 16,
		0x6B, 1,

		// if v0 == v1, do not set v5 to 1
		0x50, 0x10,
		0x65, 1,

		// if v0 == v2, do not set v6 to 1
		0x50, 0x20,
		0x66, 1,

		// if v0 != v1, do not set v7 to 1
		0x90, 0x10,
		0x67, 1,

		// if v0 != v2, do not set v8 to 1
		0x90, 0x20,
		0x68, 1,
	}
	cpu := newCpu(t, program)
	runNCycles(t, cpu, 15)

	assertVxEq(t, "SE Vx kk true", cpu, 0x3, 0x0)
	assertVxEq(t, "SE Vx kk false", cpu, 0xA, 0x1)
	assertVxEq(t, "SNE Vx kk true", cpu, 0xB, 0x0)
	assertVxEq(t, "SNE Vx kk false", cpu, 0x4, 0x1)
	assertVxEq(t, "SE Vx Vy true", cpu, 0x6, 0x0)
	assertVxEq(t, "SE Vx Vy false", cpu, 0x5, 0x1)
	assertVxEq(t, "SNE Vx Vy true", cpu, 0x7, 0x0)
	assertVxEq(t, "SNE Vx Vy false", cpu, 0x8, 0x1)
}

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name   string
		opCode chipvm.OpCode
		vx, vy byte
		wantVx byte
		wantVf byte
	}{
		{name: "LD", opCode: 0x8120, vx: 1, vy: 7, wantVx: 7, wantVf: 0x42},
		{name: "OR", opCode: 0x8121, vx: 0b1100, vy: 0b1010, wantVx: 0b1110, wantVf: 0x42},
		{name: "AND", opCode: 0x8122, vx: 0b1100, vy: 0b1010, wantVx: 0b1000, wantVf: 0x42},
		{name: "XOR", opCode: 0x8123, vx: 0b1100, vy: 0b1010, wantVx: 0b0110, wantVf: 0x42},
		{name: "ADD with carry", opCode: 0x8124, vx: 200, vy: 100, wantVx: 44, wantVf: 1},
		{name: "ADD without carry", opCode: 0x8124, vx: 200, vy: 55, wantVx: 255, wantVf: 0},
		{name: "SUB with borrow", opCode: 0x8125, vx: 5, vy: 10, wantVx: 251, wantVf: 0},
		{name: "SUB without borrow", opCode: 0x8125, vx: 10, vy: 5, wantVx: 5, wantVf: 1},
		{name: "SUB equal", opCode: 0x8125, vx: 7, vy: 7, wantVx: 0, wantVf: 0},
		{name: "SHR odd", opCode: 0x8126, vx: 0b101, vy: 0xFF, wantVx: 0b10, wantVf: 1},
		{name: "SHR even", opCode: 0x8126, vx: 0b100, vy: 0xFF, wantVx: 0b10, wantVf: 0},
		{name: "SUBN without borrow", opCode: 0x8127, vx: 5, vy: 10, wantVx: 5, wantVf: 1},
		{name: "SUBN with borrow", opCode: 0x8127, vx: 10, vy: 5, wantVx: 251, wantVf: 0},
		{name: "SUBN equal", opCode: 0x8127, vx: 7, vy: 7, wantVx: 0, wantVf: 0},
		{name: "SHL high bit", opCode: 0x812E, vx: 0b10000001, vy: 0, wantVx: 0b10, wantVf: 1},
		{name: "SHL no high bit", opCode: 0x812E, vx: 0b01000001, vy: 0, wantVx: 0b10000010, wantVf: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := newCpu(t, []byte{byte(tt.opCode >> 8), byte(tt.opCode)})
			cpu.V[1] = tt.vx
			cpu.V[2] = tt.vy
			cpu.V[0xF] = 0x42
			runNCycles(t, cpu, 1)

			assert.Equal(t, tt.wantVx, cpu.V[1])
			assert.Equal(t, tt.wantVf, cpu.V[0xF])
		})
	}
}

func TestFlagWinsOverResultInVF(t *testing.T) {
	// ADD VF, V1 with a carry leaves the flag, not the sum
	cpu := newCpu(t, []byte{0x8F, 0x14})
	cpu.V[0xF] = 200
	cpu.V[1] = 100
	runNCycles(t, cpu, 1)

	assert.Equal(t, byte(1), cpu.V[0xF])
}

func TestJumps(t *testing.T) {
	cpu := newCpu(t, []byte{0x13, 0x45})
	runNCycles(t, cpu, 1)
	assert.Equal(t, uint16(0x345), cpu.Pc)

	cpu = newCpu(t, []byte{0xB3, 0x00})
	cpu.V[0] = 0x21
	runNCycles(t, cpu, 1)
	assert.Equal(t, uint16(0x321), cpu.Pc)
}

func TestCallAndReturn(t *testing.T) {
	program := []byte{
		// 0x200: call 0x206
		0x22, 0x06,
		// 0x202: set v1 to 1
		0x61, 1,
		// 0x204: loop forever
		0x12, 0x04,
		// 0x206: set v0 to 9 and return
		0x60, 9,
		0x00, 0xEE,
	}
	cpu := newCpu(t, program)

	runNCycles(t, cpu, 1)
	assert.Equal(t, uint16(0x206), cpu.Pc)
	assert.Equal(t, byte(1), cpu.Sp)
	assert.Equal(t, uint16(0x202), cpu.Stack[0])

	runNCycles(t, cpu, 2)
	assert.Equal(t, uint16(0x202), cpu.Pc)
	assert.Equal(t, byte(0), cpu.Sp)

	runNCycles(t, cpu, 1)
	assertVxEq(t, "after return", cpu, 0x0, 9)
	assertVxEq(t, "after return", cpu, 0x1, 1)
}

func TestStackOverflow(t *testing.T) {
	// calls itself forever
	cpu := newCpu(t, []byte{0x22, 0x00})
	runNCycles(t, cpu, 16)
	assert.Equal(t, byte(16), cpu.Sp)

	err := cpu.Cycle()
	assert.True(t, errors.Is(err, chipvm.ErrStackOverflow))

	var execErr chipvm.ErrExecution
	assert.True(t, errors.As(err, &execErr))
	assert.Equal(t, chipvm.OpCode(0x2200), execErr.OpCode)
	assert.Equal(t, uint16(0x200), execErr.Pc)
	assert.Equal(t, byte(16), cpu.Sp)
}

func TestStackUnderflow(t *testing.T) {
	cpu := newCpu(t, []byte{0x00, 0xEE})

	err := cpu.Cycle()
	assert.True(t, errors.Is(err, chipvm.ErrStackUnderflow))
	assert.True(t, cpu.Halted())
}

func TestUnknownOpCodes(t *testing.T) {
	for _, opCode := range []chipvm.OpCode{0x0123, 0x01E0, 0x0AEE, 0x8128, 0x812F, 0xE19F, 0xF1FF, 0xF100} {
		t.Run(opCode.String(), func(t *testing.T) {
			cpu := newCpu(t, []byte{0x60, 1, byte(opCode >> 8), byte(opCode)})
			runNCycles(t, cpu, 1)

			err := cpu.Cycle()
			assert.True(t, errors.Is(err, chipvm.ErrOpCodeUnknown))

			var execErr chipvm.ErrExecution
			assert.True(t, errors.As(err, &execErr))
			assert.Equal(t, opCode, execErr.OpCode)
			assert.Equal(t, uint16(0x202), execErr.Pc)
		})
	}
}

func TestHaltedCpuDoesNotAdvance(t *testing.T) {
	cpu := newCpu(t, []byte{0xFF, 0xFF})
	cpu.Dt = 5

	first := cpu.Cycle()
	assert.Error(t, first, "opcode=FFFF at PC=0x200: unknown opcode")
	pc := cpu.Pc

	second := cpu.Cycle()
	assert.Equal(t, first, second)
	assert.Equal(t, pc, cpu.Pc)
	assert.Equal(t, byte(5), cpu.Dt)

	cpu.Reset()
	assert.False(t, cpu.Halted())
	assert.NoError(t, cpu.Err())
}

func TestMachineRoutineInterpreter(t *testing.T) {
	cpu := newCpu(t, []byte{0x01, 0x23})

	var got chipvm.OpCode
	cpu.MachineRoutineInterpreter = func(opCode chipvm.OpCode, cpu *chipvm.Cpu) error {
		got = opCode
		return nil
	}
	runNCycles(t, cpu, 1)

	assert.Equal(t, chipvm.OpCode(0x0123), got)
}

func TestFetchPastMemory(t *testing.T) {
	cpu := newCpu(t, []byte{0x1F, 0xFF})
	runNCycles(t, cpu, 1)

	err := cpu.Cycle()
	assert.True(t, errors.Is(err, chipvm.ErrAddressOutOfBounds))
}

func TestTimers(t *testing.T) {
	program := []byte{
		// v0 = 5, DT = v0, ST = v0
		0x60, 5,
		0xF0, 0x15,
		0xF0, 0x18,
		// v1 = DT
		0xF1, 0x07,
	}
	cpu := newCpu(t, program)
	runNCycles(t, cpu, 3)
	// the timers tick after the instruction that set them
	assert.Equal(t, byte(3), cpu.Dt)
	assert.Equal(t, byte(4), cpu.St)
	assert.True(t, cpu.IsSoundTimerActive())

	runNCycles(t, cpu, 1)
	assertVxEq(t, "LD Vx, DT", cpu, 0x1, 3)
	assert.Equal(t, byte(2), cpu.Dt)
}

func TestTimersDoNotUnderflow(t *testing.T) {
	cpu := newCpu(t, []byte{0x12, 0x00})
	runNCycles(t, cpu, 3)

	assert.Equal(t, byte(0), cpu.Dt)
	assert.Equal(t, byte(0), cpu.St)
	assert.False(t, cpu.IsDelayTimerActive())
}

func TestIndexOperations(t *testing.T) {
	program := []byte{
		// I = 0x300
		0xA3, 0x00,
		// v0 = 0x10, I += v0
		0x60, 0x10,
		0xF0, 0x1E,
	}
	cpu := newCpu(t, program)
	runNCycles(t, cpu, 3)
	assert.Equal(t, uint16(0x310), cpu.I)

	cpu = newCpu(t, []byte{0xF3, 0x29})
	cpu.V[3] = 0xA
	runNCycles(t, cpu, 1)
	assert.Equal(t, uint16(50), cpu.I)
}

func TestStoreBCD(t *testing.T) {
	tests := []struct {
		value byte
		want  [3]byte
	}{
		{value: 123, want: [3]byte{1, 2, 3}},
		{value: 255, want: [3]byte{2, 5, 5}},
		{value: 7, want: [3]byte{0, 0, 7}},
		{value: 40, want: [3]byte{0, 4, 0}},
	}

	for _, tt := range tests {
		cpu := newCpu(t, []byte{0xF4, 0x33})
		cpu.V[4] = tt.value
		cpu.I = 0x300
		runNCycles(t, cpu, 1)

		assert.Equal(t, tt.want[:], cpu.Memory[0x300:0x303])
		assert.Equal(t, uint16(0x300), cpu.I)
	}
}

func TestStoreAndLoadRegisters(t *testing.T) {
	cpu := newCpu(t, []byte{0xF3, 0x55, 0xF2, 0x65})
	cpu.I = 0x400
	cpu.V = [16]byte{1, 2, 3, 4, 5}
	runNCycles(t, cpu, 1)

	assert.Equal(t, []byte{1, 2, 3, 4, 0}, cpu.Memory[0x400:0x405])

	cpu.V = [16]byte{}
	cpu.V[3] = 99
	runNCycles(t, cpu, 1)
	assert.Equal(t, [16]byte{1, 2, 3, 99}, cpu.V)
	assert.Equal(t, uint16(0x400), cpu.I)
}

func TestMemoryBoundsAreChecked(t *testing.T) {
	tests := []struct {
		name   string
		opCode chipvm.OpCode
		i      uint16
	}{
		{name: "BCD", opCode: 0xF033, i: 0xFFE},
		{name: "store registers", opCode: 0xF355, i: 0xFFD},
		{name: "load registers", opCode: 0xF165, i: 0xFFF},
		{name: "draw", opCode: 0xD002, i: 0xFFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cpu := newCpu(t, []byte{byte(tt.opCode >> 8), byte(tt.opCode)})
			cpu.I = tt.i

			err := cpu.Cycle()
			assert.True(t, errors.Is(err, chipvm.ErrAddressOutOfBounds))
		})
	}
}

func TestRandom(t *testing.T) {
	cpu := newCpu(t, []byte{0xC5, 0x0F})
	cpu.Random = chipvm.FixedRandom(0xAB)
	runNCycles(t, cpu, 1)
	assertVxEq(t, "RND", cpu, 0x5, 0x0B)

	program := []byte{0xC0, 0xFF, 0xC1, 0xFF, 0xC2, 0xFF}
	a := newCpu(t, program)
	a.Random = chipvm.NewSeededRandom(42)
	b := newCpu(t, program)
	b.Random = chipvm.NewSeededRandom(42)
	runNCycles(t, a, 3)
	runNCycles(t, b, 3)
	assert.Equal(t, a.V, b.V)
}

type failingRandom struct{}

func (failingRandom) RandomByte() (byte, error) {
	return 0, chipvm.ErrRandomSourceExhausted
}

func TestRandomSourceFailureHalts(t *testing.T) {
	cpu := newCpu(t, []byte{0xC0, 0xFF})
	cpu.Random = failingRandom{}

	err := cpu.Cycle()
	assert.True(t, errors.Is(err, chipvm.ErrRandomSourceExhausted))
}

func TestClearScreen(t *testing.T) {
	cpu := newCpu(t, []byte{0x00, 0xE0})
	for i := range cpu.Screen {
		cpu.Screen[i] = byte(i % 2)
	}
	runNCycles(t, cpu, 1)

	assert.Equal(t, chipvm.Screen{}, cpu.Screen)
	assert.True(t, cpu.ConsumeScreenChange())
	assert.False(t, cpu.ConsumeScreenChange())
}

func TestDrawTwiceRestoresScreen(t *testing.T) {
	program := []byte{
		// v0 = 10, v1 = 5, I = font glyph 8
		0x60, 10,
		0x61, 5,
		0x62, 8,
		0xF2, 0x29,
		// draw twice
		0xD0, 0x15,
		0xD0, 0x15,
	}
	cpu := newCpu(t, program)
	runNCycles(t, cpu, 5)

	assert.Equal(t, byte(0), cpu.V[0xF])
	// glyph 8 top row is 0xF0
	assert.Equal(t, byte(1), cpu.Screen.Pixel(10, 5))
	assert.Equal(t, byte(1), cpu.Screen.Pixel(13, 5))
	assert.Equal(t, byte(0), cpu.Screen.Pixel(14, 5))

	runNCycles(t, cpu, 1)
	assert.Equal(t, byte(1), cpu.V[0xF])
	assert.Equal(t, chipvm.Screen{}, cpu.Screen)
}

func TestDrawWrapsAround(t *testing.T) {
	cpu := newCpu(t, []byte{0xD0, 0x12, 0x00, 0x00})
	cpu.Memory[0x300] = 0xFF
	cpu.Memory[0x301] = 0x81
	cpu.I = 0x300
	// coordinates are taken modulo the screen size first
	cpu.V[0] = 64 + 60
	cpu.V[1] = 31
	runNCycles(t, cpu, 1)

	for _, x := range []int{60, 61, 62, 63, 0, 1, 2, 3} {
		assert.Equal(t, byte(1), cpu.Screen.Pixel(x, 31))
	}
	assert.Equal(t, byte(1), cpu.Screen.Pixel(60, 0))
	assert.Equal(t, byte(0), cpu.Screen.Pixel(61, 0))
	assert.Equal(t, byte(1), cpu.Screen.Pixel(3, 0))
	assert.Equal(t, byte(0), cpu.V[0xF])
}

func TestKeySkips(t *testing.T) {
	program := []byte{
		// skip if key v0 pressed
		0xE0, 0x9E,
		0x63, 1,
		// skip if key v0 not pressed
		0xE0, 0xA1,
		0x64, 1,
		// skip if key v1 (out of range) pressed
		0xE1, 0x9E,
		0x65, 1,
	}
	cpu := newCpu(t, program)
	cpu.V[0] = 0xB
	cpu.V[1] = 0x1B
	cpu.Keypad[0xB] = true
	runNCycles(t, cpu, 5)

	assertVxEq(t, "SKP pressed", cpu, 0x3, 0)
	assertVxEq(t, "SKNP pressed", cpu, 0x4, 1)
	assertVxEq(t, "SKP out of range", cpu, 0x5, 1)
}

func TestWaitForKey(t *testing.T) {
	cpu := newCpu(t, []byte{0xF7, 0x0A, 0x61, 1})
	cpu.Dt = 3

	runNCycles(t, cpu, 2)
	assert.Equal(t, uint16(0x200), cpu.Pc)
	// timers keep running while waiting
	assert.Equal(t, byte(1), cpu.Dt)

	cpu.Keypad[0xC] = true
	cpu.Keypad[0x9] = true
	runNCycles(t, cpu, 1)
	assert.Equal(t, uint16(0x202), cpu.Pc)
	assertVxEq(t, "LD Vx, K", cpu, 0x7, 0x9)
}

func TestLoadProgramResets(t *testing.T) {
	cpu := newCpu(t, []byte{0x60, 1})
	runNCycles(t, cpu, 1)

	assert.NoError(t, cpu.LoadProgram([]byte{0x61, 2}))
	assert.Equal(t, uint16(0x200), cpu.Pc)
	assert.Equal(t, byte(0), cpu.V[0])

	err := cpu.LoadProgram(make([]byte, chipvm.MaxProgramSize+1))
	assert.True(t, errors.Is(err, chipvm.ErrProgramDoesNotFitIntoMemory))
	assert.Equal(t, byte(0x61), cpu.Memory[0x200])
}
