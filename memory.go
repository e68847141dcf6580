package chipvm

import (
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrProgramDoesNotFitIntoMemory = errors.New("the program does not fit into memory")
var ErrAddressOutOfBounds = errors.New("address out of memory bounds")

const (
	StartOfProgram = 0x200
	MemorySize     = 4096
	MaxProgramSize = MemorySize - StartOfProgram

	// glyphs are 5 bytes tall and stored from address 0
	fontGlyphSize = 5
)

var fontSet = [16 * fontGlyphSize]byte{
	// 0
	0xF0, 0x90, 0x90, 0x90, 0xF0,
	// 1
	0x20, 0x60, 0x20, 0x20, 0x70,
	// 2
	0xF0, 0x10, 0xF0, 0x80, 0xF0,
	// 3
	0xF0, 0x10, 0xF0, 0x10, 0xF0,
	// 4
	0x90, 0x90, 0xF0, 0x10, 0x10,
	// 5
	0xF0, 0x80, 0xF0, 0x10, 0xF0,
	// 6
	0xF0, 0x80, 0xF0, 0x90, 0xF0,
	// 7
	0xF0, 0x10, 0x20, 0x40, 0x40,
	// 8
	0xF0, 0x90, 0xF0, 0x90, 0xF0,
	// 9
	0xF0, 0x90, 0xF0, 0x10, 0xF0,
	// A
	0xF0, 0x90, 0xF0, 0x90, 0x90,
	// B
	0xE0, 0x90, 0xE0, 0x90, 0xE0,
	// C
	0xF0, 0x80, 0x80, 0x80, 0xF0,
	// D
	0xE0, 0x90, 0x90, 0x90, 0xE0,
	// E
	0xF0, 0x80, 0xF0, 0x80, 0xF0,
	// F
	0xF0, 0x80, 0xF0, 0x80, 0x80,
}

type Memory [MemorySize]byte

// NewMemory creates a memory of 4096 bytes with the font table loaded at address 0
func NewMemory() *Memory {
	m := Memory{}
	copy(m[:], fontSet[:])

	return &m
}

func (mem Memory) Clone() *Memory {
	m := Memory{}
	copy(m[:], mem[:])

	return &m
}

// Read returns the byte stored at addr
func (mem *Memory) Read(addr uint16) (byte, error) {
	if int(addr) >= MemorySize {
		return 0, fmt.Errorf("%w: read at %#04x", ErrAddressOutOfBounds, addr)
	}

	return mem[addr], nil
}

// Write stores b at addr
func (mem *Memory) Write(addr uint16, b byte) error {
	if int(addr) >= MemorySize {
		return fmt.Errorf("%w: write at %#04x", ErrAddressOutOfBounds, addr)
	}

	mem[addr] = b

	return nil
}

// Slice returns the n bytes starting at addr. The returned slice aliases the memory.
func (mem *Memory) Slice(addr uint16, n int) ([]byte, error) {
	if int(addr)+n > MemorySize {
		return nil, fmt.Errorf("%w: %d bytes at %#04x", ErrAddressOutOfBounds, n, addr)
	}

	return mem[int(addr) : int(addr)+n], nil
}

// OpCodeAt combines the two bytes at addr and addr+1, high byte first
func (mem *Memory) OpCodeAt(addr uint16) (OpCode, error) {
	b, err := mem.Slice(addr, 2)
	if err != nil {
		return 0, err
	}

	return OpCode(b[0])<<8 | OpCode(b[1]), nil
}

// LoadProgram copies the program at the start-of-program address.
// Memory is left untouched when the program does not fit.
func (mem *Memory) LoadProgram(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, at most %d are available", ErrProgramDoesNotFitIntoMemory, len(program), MaxProgramSize)
	}

	copy(mem[StartOfProgram:], program)

	return nil
}

// LoadROM reads a whole ROM image from r.
// It fails without returning partial data when r errors or holds more than MaxProgramSize bytes.
func LoadROM(r io.Reader) ([]byte, error) {
	program, err := io.ReadAll(io.LimitReader(r, MaxProgramSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading rom: %w", err)
	}

	if len(program) > MaxProgramSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrProgramDoesNotFitIntoMemory, MaxProgramSize)
	}

	return program, nil
}

// ReadROMFile opens the file at path and reads it with LoadROM
func ReadROMFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rom: %w", err)
	}
	defer f.Close()

	return LoadROM(f)
}
