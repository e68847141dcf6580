package chipvm

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
)

func TestInMemoryKeyboard(t *testing.T) {
	kb := NewInMemoryKeyboard()
	assert.NoError(t, kb.Boot())

	kb.Press(0x3)
	kb.Press(0xA)
	kb.Press(0x10)
	state := kb.State()
	assert.True(t, state.IsPressed(0x3))
	assert.True(t, state.IsPressed(0xA))
	assert.False(t, state.IsPressed(0x10))

	k, ok := state.FirstPressed()
	assert.True(t, ok)
	assert.Equal(t, byte(0x3), k)

	kb.Release(0x3)
	kb.Release(0xA)
	_, ok = kb.State().FirstPressed()
	assert.False(t, ok)
}

func TestLookupMap(t *testing.T) {
	m := LookupMap(DefaultKeyboardLayout)

	assert.Equal(t, 16, len(m))
	assert.Equal(t, byte(0x1), m['1'])
	assert.Equal(t, byte(0xC), m['4'])
	assert.Equal(t, byte(0x0), m['x'])
	assert.Equal(t, byte(0xF), m['v'])
}

func TestTerminalKeyboardHoldsKeys(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	kb := NewTerminalKeyboard()
	kb.now = func() time.Time { return now }

	kb.Hit('W')
	kb.Hit('?')
	assert.True(t, kb.State().IsPressed(0x5))

	now = now.Add(kb.HoldFor - time.Millisecond)
	assert.True(t, kb.State().IsPressed(0x5))

	now = now.Add(time.Millisecond)
	assert.False(t, kb.State().IsPressed(0x5))
}

func TestTerminalKeyboardReadLoop(t *testing.T) {
	kb := NewTerminalKeyboard()
	interrupted := false
	kb.OnInterrupt = func() { interrupted = true }

	// returns on EOF
	kb.readLoop(strings.NewReader("1v\x03"))

	state := kb.State()
	assert.True(t, state.IsPressed(0x1))
	assert.True(t, state.IsPressed(0xF))
	assert.True(t, interrupted)
}

type failingReader struct {
	err error
}

func (r failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

func TestTerminalKeyboardReadErrors(t *testing.T) {
	out := &bytes.Buffer{}
	kb := NewTerminalKeyboard()
	kb.Logger = slog.New(slog.NewTextHandler(out, nil))

	// closing the tty under a blocked read is a normal exit
	kb.readLoop(failingReader{err: &os.PathError{Op: "read", Path: "/dev/tty", Err: os.ErrClosed}})
	assert.Equal(t, "", out.String())

	kb.closing.Store(true)
	kb.readLoop(failingReader{err: errors.New("bad file descriptor")})
	assert.Equal(t, "", out.String())

	kb.closing.Store(false)
	kb.readLoop(failingReader{err: errors.New("bad file descriptor")})
	assert.True(t, strings.Contains(out.String(), "Error reading the terminal"))
}

func TestTerminalKeyboardCloseWithoutBoot(t *testing.T) {
	kb := NewTerminalKeyboard()
	assert.NoError(t, kb.Close())
}

func TestTerminalDisplay(t *testing.T) {
	out := &bytes.Buffer{}
	disp := NewTerminalDisplayWithOutput(out)
	disp.OnChar, disp.OffChar = "#", "."

	assert.NoError(t, disp.Boot())
	out.Reset()

	s := Screen{}
	s.DrawSprite(1, 0, []byte{0x80})
	assert.NoError(t, disp.Render(s))

	lines := strings.Split(strings.TrimPrefix(out.String(), "\x1b[1H"), "\r\n")
	assert.Equal(t, ScreenHeight+1, len(lines))
	assert.Equal(t, "."+"#"+strings.Repeat(".", ScreenWidth-2)+"|", lines[0])
	assert.Equal(t, strings.Repeat(".", ScreenWidth)+"|", lines[1])
}

func TestTerminalBuzzer(t *testing.T) {
	out := &bytes.Buffer{}
	b := NewTerminalBuzzerWithOutput(out)

	b.Play()
	b.Stop()
	assert.Equal(t, "\a", out.String())
}
