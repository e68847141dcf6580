package chipvm

// instruction executes a decoded opcode. Pc already points to the next instruction.
type instruction func(cpu *Cpu, op OpCode) error

// instructionTable dispatches on the top nibble. Families 0, 8, E and F dispatch again on a
// secondary field.
var instructionTable = [16]instruction{
	0x0: execSystem,
	0x1: execJump,
	0x2: execCall,
	0x3: execSkipEqualByte,
	0x4: execSkipNotEqualByte,
	0x5: execSkipEqualRegister,
	0x6: execLoadByte,
	0x7: execAddByte,
	0x8: execArithmetic,
	0x9: execSkipNotEqualRegister,
	0xA: execLoadIndex,
	0xB: execJumpOffset,
	0xC: execRandom,
	0xD: execDraw,
	0xE: execKeys,
	0xF: execMisc,
}

// keyed by the whole opcode, anything else in family 0 is a machine routine
var systemTable = map[OpCode]instruction{
	0x00E0: execClearScreen,
	0x00EE: execReturn,
}

// keyed by the bottom nibble
var arithmeticTable = [16]instruction{
	0x0: execMove,
	0x1: execOr,
	0x2: execAnd,
	0x3: execXor,
	0x4: execAdd,
	0x5: execSub,
	0x6: execShiftRight,
	0x7: execSubN,
	0xE: execShiftLeft,
}

// keyed by the bottom byte
var keysTable = map[byte]instruction{
	0x9E: execSkipPressed,
	0xA1: execSkipNotPressed,
}

// keyed by the bottom byte
var miscTable = map[byte]instruction{
	0x07: execLoadDelayTimer,
	0x0A: execWaitKey,
	0x15: execSetDelayTimer,
	0x18: execSetSoundTimer,
	0x1E: execAddIndex,
	0x29: execLoadFont,
	0x33: execStoreBCD,
	0x55: execStoreRegisters,
	0x65: execLoadRegisters,
}

func (cpu *Cpu) executeInstruction(op OpCode) error {
	return instructionTable[op.Category()](cpu, op)
}

func execSystem(cpu *Cpu, op OpCode) error {
	if exec, ok := systemTable[op]; ok {
		return exec(cpu, op)
	}

	// SYS addr :: Jump to a machine code routine at nnn.
	if cpu.MachineRoutineInterpreter != nil {
		return cpu.MachineRoutineInterpreter(op, cpu)
	}

	return ErrOpCodeUnknown
}

func execArithmetic(cpu *Cpu, op OpCode) error {
	if exec := arithmeticTable[op.N()]; exec != nil {
		return exec(cpu, op)
	}

	return ErrOpCodeUnknown
}

func execKeys(cpu *Cpu, op OpCode) error {
	if exec, ok := keysTable[op.KK()]; ok {
		return exec(cpu, op)
	}

	return ErrOpCodeUnknown
}

func execMisc(cpu *Cpu, op OpCode) error {
	if exec, ok := miscTable[op.KK()]; ok {
		return exec(cpu, op)
	}

	return ErrOpCodeUnknown
}

// CLS :: Clear the display.
func execClearScreen(cpu *Cpu, _ OpCode) error {
	cpu.Screen.Clear()
	cpu.isScreenDirty = true

	return nil
}

// RET :: Return from a subroutine.
func execReturn(cpu *Cpu, _ OpCode) error {
	if cpu.Sp == 0 {
		return ErrStackUnderflow
	}
	cpu.Sp--
	cpu.Pc = cpu.Stack[cpu.Sp]

	return nil
}

// JP addr :: Jump to location nnn.
func execJump(cpu *Cpu, op OpCode) error {
	cpu.Pc = op.NNN()

	return nil
}

// CALL addr :: Call subroutine at nnn.
func execCall(cpu *Cpu, op OpCode) error {
	if int(cpu.Sp) >= len(cpu.Stack) {
		return ErrStackOverflow
	}
	cpu.Stack[cpu.Sp] = cpu.Pc
	cpu.Sp++
	cpu.Pc = op.NNN()

	return nil
}

func (cpu *Cpu) skipIf(cond bool) {
	if cond {
		cpu.Pc += 2
	}
}

// SE Vx, byte :: Skip next instruction if Vx = kk.
func execSkipEqualByte(cpu *Cpu, op OpCode) error {
	cpu.skipIf(cpu.V[op.X()] == op.KK())

	return nil
}

// SNE Vx, byte :: Skip next instruction if Vx != kk.
func execSkipNotEqualByte(cpu *Cpu, op OpCode) error {
	cpu.skipIf(cpu.V[op.X()] != op.KK())

	return nil
}

// SE Vx, Vy :: Skip next instruction if Vx = Vy.
func execSkipEqualRegister(cpu *Cpu, op OpCode) error {
	cpu.skipIf(cpu.V[op.X()] == cpu.V[op.Y()])

	return nil
}

// LD Vx, byte :: Set Vx = kk.
func execLoadByte(cpu *Cpu, op OpCode) error {
	cpu.V[op.X()] = op.KK()

	return nil
}

// ADD Vx, byte :: Set Vx = Vx + kk. VF is left alone.
func execAddByte(cpu *Cpu, op OpCode) error {
	cpu.V[op.X()] += op.KK()

	return nil
}

// LD Vx, Vy :: Set Vx = Vy.
func execMove(cpu *Cpu, op OpCode) error {
	cpu.V[op.X()] = cpu.V[op.Y()]

	return nil
}

// OR Vx, Vy :: Set Vx = Vx OR Vy.
func execOr(cpu *Cpu, op OpCode) error {
	cpu.V[op.X()] |= cpu.V[op.Y()]

	return nil
}

// AND Vx, Vy :: Set Vx = Vx AND Vy.
func execAnd(cpu *Cpu, op OpCode) error {
	cpu.V[op.X()] &= cpu.V[op.Y()]

	return nil
}

// XOR Vx, Vy :: Set Vx = Vx XOR Vy.
func execXor(cpu *Cpu, op OpCode) error {
	cpu.V[op.X()] ^= cpu.V[op.Y()]

	return nil
}

// ADD Vx, Vy :: Set Vx = Vx + Vy, set VF = carry.
func execAdd(cpu *Cpu, op OpCode) error {
	x, y := op.X(), op.Y()
	r := uint16(cpu.V[x]) + uint16(cpu.V[y])
	cpu.V[x] = byte(r & 0x00FF)
	cpu.V[0xF] = bool2byte(r > 0xFF)

	return nil
}

// SUB Vx, Vy :: Set Vx = Vx - Vy, set VF = NOT borrow.
func execSub(cpu *Cpu, op OpCode) error {
	x, y := op.X(), op.Y()
	carry := cpu.V[x] > cpu.V[y]
	cpu.V[x] = cpu.V[x] - cpu.V[y]
	cpu.V[0xF] = bool2byte(carry)

	return nil
}

// SHR Vx :: Set Vx = Vx SHR 1, VF = the bit shifted out.
func execShiftRight(cpu *Cpu, op OpCode) error {
	x := op.X()
	carry := cpu.V[x] & 0b00000001
	cpu.V[x] = cpu.V[x] >> 1
	cpu.V[0xF] = carry

	return nil
}

// SUBN Vx, Vy :: Set Vx = Vy - Vx, set VF = NOT borrow.
func execSubN(cpu *Cpu, op OpCode) error {
	x, y := op.X(), op.Y()
	carry := cpu.V[y] > cpu.V[x]
	cpu.V[x] = cpu.V[y] - cpu.V[x]
	cpu.V[0xF] = bool2byte(carry)

	return nil
}

// SHL Vx :: Set Vx = Vx SHL 1, VF = the bit shifted out.
func execShiftLeft(cpu *Cpu, op OpCode) error {
	x := op.X()
	carry := (cpu.V[x] & 0b10000000) >> 7
	cpu.V[x] = cpu.V[x] << 1
	cpu.V[0xF] = carry

	return nil
}

// SNE Vx, Vy :: Skip next instruction if Vx != Vy.
func execSkipNotEqualRegister(cpu *Cpu, op OpCode) error {
	cpu.skipIf(cpu.V[op.X()] != cpu.V[op.Y()])

	return nil
}

// LD I, addr :: Set I = nnn.
func execLoadIndex(cpu *Cpu, op OpCode) error {
	cpu.I = op.NNN()

	return nil
}

// JP V0, addr :: Jump to location nnn + V0.
func execJumpOffset(cpu *Cpu, op OpCode) error {
	cpu.Pc = op.NNN() + uint16(cpu.V[0])

	return nil
}

// RND Vx, byte :: Set Vx = random byte AND kk.
func execRandom(cpu *Cpu, op OpCode) error {
	b, err := cpu.Random.RandomByte()
	if err != nil {
		return err
	}
	cpu.V[op.X()] = b & op.KK()

	return nil
}

// DRW Vx, Vy, nibble :: Display n-byte sprite starting at memory location I at (Vx, Vy), set VF = collision.
// Sprites are XORed onto the existing screen. If this causes any pixels to be erased, VF is set to 1,
// otherwise it is set to 0. Pixels falling outside the display wrap around to the opposite side.
func execDraw(cpu *Cpu, op OpCode) error {
	rows, err := cpu.Memory.Slice(cpu.I, int(op.N()))
	if err != nil {
		return err
	}

	collision := cpu.Screen.DrawSprite(cpu.V[op.X()], cpu.V[op.Y()], rows)
	cpu.V[0xF] = bool2byte(collision)
	cpu.isScreenDirty = true

	return nil
}

// SKP Vx :: Skip next instruction if key with the value of Vx is pressed.
func execSkipPressed(cpu *Cpu, op OpCode) error {
	cpu.skipIf(cpu.Keypad.IsPressed(cpu.V[op.X()]))

	return nil
}

// SKNP Vx :: Skip next instruction if key with the value of Vx is not pressed.
func execSkipNotPressed(cpu *Cpu, op OpCode) error {
	cpu.skipIf(!cpu.Keypad.IsPressed(cpu.V[op.X()]))

	return nil
}

// LD Vx, DT :: Set Vx = delay timer value.
func execLoadDelayTimer(cpu *Cpu, op OpCode) error {
	cpu.V[op.X()] = cpu.Dt

	return nil
}

// LD Vx, K :: Wait for a key press, store the value of the key in Vx.
// Waiting means running this same instruction again on the next cycle.
func execWaitKey(cpu *Cpu, op OpCode) error {
	k, pressed := cpu.Keypad.FirstPressed()
	if !pressed {
		cpu.Pc -= 2
		return nil
	}
	cpu.V[op.X()] = k

	return nil
}

// LD DT, Vx :: Set delay timer = Vx.
func execSetDelayTimer(cpu *Cpu, op OpCode) error {
	cpu.Dt = cpu.V[op.X()]

	return nil
}

// LD ST, Vx :: Set sound timer = Vx.
func execSetSoundTimer(cpu *Cpu, op OpCode) error {
	cpu.St = cpu.V[op.X()]

	return nil
}

// ADD I, Vx :: Set I = I + Vx.
func execAddIndex(cpu *Cpu, op OpCode) error {
	cpu.I += uint16(cpu.V[op.X()])

	return nil
}

// LD F, Vx :: Set I = location of sprite for digit Vx.
func execLoadFont(cpu *Cpu, op OpCode) error {
	cpu.I = uint16(cpu.V[op.X()]) * fontGlyphSize

	return nil
}

// LD B, Vx :: Store BCD representation of Vx in memory locations I, I+1, and I+2.
func execStoreBCD(cpu *Cpu, op OpCode) error {
	dst, err := cpu.Memory.Slice(cpu.I, 3)
	if err != nil {
		return err
	}

	v := cpu.V[op.X()]
	dst[0] = v / 100
	dst[1] = (v / 10) % 10
	dst[2] = v % 10

	return nil
}

// LD [I], Vx :: Store registers V0 through Vx in memory starting at location I.
func execStoreRegisters(cpu *Cpu, op OpCode) error {
	dst, err := cpu.Memory.Slice(cpu.I, int(op.X())+1)
	if err != nil {
		return err
	}
	copy(dst, cpu.V[:])

	return nil
}

// LD Vx, [I] :: Read registers V0 through Vx from memory starting at location I.
func execLoadRegisters(cpu *Cpu, op OpCode) error {
	src, err := cpu.Memory.Slice(cpu.I, int(op.X())+1)
	if err != nil {
		return err
	}
	copy(cpu.V[:], src)

	return nil
}
