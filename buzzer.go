package chipvm

import (
	"io"
	"os"
)

// Buzzer plays a continuous tone between Play and Stop
type Buzzer interface {
	// Boot initializes the component
	Boot() error
	Play()
	Stop()
}

type DummyBuzzer struct {
	IsPlaying bool
}

// Boot implements Buzzer.
func (b *DummyBuzzer) Boot() error {
	return nil
}

func NewDummyBuzzer() *DummyBuzzer {
	return &DummyBuzzer{
		IsPlaying: false,
	}
}

// Play implements Buzzer.
func (b *DummyBuzzer) Play() {
	b.IsPlaying = true
}

// Stop implements Buzzer
func (b *DummyBuzzer) Stop() {
	b.IsPlaying = false
}

// TerminalBuzzer rings the terminal bell when the tone starts.
// Terminals cannot hold a tone, so Stop does nothing.
type TerminalBuzzer struct {
	terminal io.Writer
}

func NewTerminalBuzzer() *TerminalBuzzer {
	return NewTerminalBuzzerWithOutput(os.Stdout)
}

func NewTerminalBuzzerWithOutput(out io.Writer) *TerminalBuzzer {
	return &TerminalBuzzer{terminal: out}
}

// Boot implements Buzzer.
func (b *TerminalBuzzer) Boot() error {
	return nil
}

// Play implements Buzzer.
func (b *TerminalBuzzer) Play() {
	b.terminal.Write([]byte{'\a'})
}

// Stop implements Buzzer.
func (b *TerminalBuzzer) Stop() {
}

const (
	// Tone is the buzzer frequency in Hz
	Tone = 440
	// SampleRate is the rate of the samples produced by SquareWave
	SampleRate = 22050
)

// SquareWave returns n unsigned 8-bit mono samples of a 50% duty square wave.
// The samples swing volume above and below the 0x80 midpoint.
func SquareWave(n int, sampleRate, tone int, volume byte) []byte {
	samples := make([]byte, n)
	period := max(sampleRate/max(tone, 1), 2)
	for i := range samples {
		if i%period < period/2 {
			samples[i] = 0x80 + volume
		} else {
			samples[i] = 0x80 - volume
		}
	}

	return samples
}
