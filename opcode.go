package chipvm

import "fmt"

// OpCode is a single 16-bit instruction word
type OpCode uint16

// Category is the top nibble, selecting the instruction family
func (op OpCode) Category() byte {
	return byte((op & 0xF000) >> 12)
}

// X is the register index in bits 8-11
func (op OpCode) X() byte {
	return byte((op & 0x0F00) >> 8)
}

// Y is the register index in bits 4-7
func (op OpCode) Y() byte {
	return byte((op & 0x00F0) >> 4)
}

// KK is the bottom byte
func (op OpCode) KK() byte {
	return byte(op & 0x00FF)
}

// NNN is the bottom 12 bits, an address
func (op OpCode) NNN() uint16 {
	return uint16(op & 0x0FFF)
}

// N is the bottom nibble
func (op OpCode) N() byte {
	return byte(op & 0x000F)
}

func (op OpCode) String() string {
	return fmt.Sprintf("%04X", uint16(op))
}
