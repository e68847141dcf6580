package chipvm

import (
	"crypto/rand"
	"errors"
	mrand "math/rand/v2"
)

var ErrRandomSourceExhausted = errors.New("random source did not produce a byte")

// RandomSource provides the bytes used by RND
type RandomSource interface {
	RandomByte() (byte, error)
}

// CryptoRandom reads bytes from crypto/rand
type CryptoRandom struct{}

func (CryptoRandom) RandomByte() (byte, error) {
	buff := [1]byte{}
	n, err := rand.Read(buff[:])
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, ErrRandomSourceExhausted
	}

	return buff[0], nil
}

// SeededRandom is a deterministic source, useful for tests and replays
type SeededRandom struct {
	rng *mrand.Rand
}

func NewSeededRandom(seed uint64) *SeededRandom {
	return &SeededRandom{
		rng: mrand.New(mrand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
	}
}

func (r *SeededRandom) RandomByte() (byte, error) {
	return byte(r.rng.UintN(256)), nil
}

// FixedRandom always returns the same byte
type FixedRandom byte

func (r FixedRandom) RandomByte() (byte, error) {
	return byte(r), nil
}
