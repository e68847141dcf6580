package chipvm

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/pkg/term"
)

const (
	DefaultTerminalPath = "/dev/tty"
	// Terminals only report key presses, so a key counts as held for this long after each press
	DefaultKeyHold = 150 * time.Millisecond

	ctrlC = 0x03
)

// TerminalKeyboard reads keys from a terminal in raw mode
type TerminalKeyboard struct {
	Path    string
	HoldFor time.Duration
	// OnInterrupt runs when Ctrl+C is read, since raw mode stops the terminal from sending SIGINT
	OnInterrupt func()
	Logger      *slog.Logger

	lookup  map[rune]byte
	closing atomic.Bool
	tty    *term.Term
	now    func() time.Time

	mu       sync.RWMutex
	lastSeen [16]time.Time
}

func NewTerminalKeyboard() *TerminalKeyboard {
	return NewTerminalKeyboardWithLayout(DefaultKeyboardLayout)
}

func NewTerminalKeyboardWithLayout(layout KeyboardLayout) *TerminalKeyboard {
	return &TerminalKeyboard{
		Path:    DefaultTerminalPath,
		HoldFor: DefaultKeyHold,
		Logger:  slog.Default(),
		lookup:  LookupMap(layout),
		now:     time.Now,
	}
}

// Boot implements Keyboard.
// It switches the terminal into raw mode and starts reading keys in the background.
func (kb *TerminalKeyboard) Boot() error {
	tty, err := term.Open(kb.Path, term.RawMode)
	if err != nil {
		return err
	}
	kb.tty = tty
	kb.closing.Store(false)

	go kb.readLoop(tty)

	return nil
}

// Close restores the terminal mode
func (kb *TerminalKeyboard) Close() error {
	if kb.tty == nil {
		return nil
	}

	kb.closing.Store(true)
	err := errors.Join(kb.tty.Restore(), kb.tty.Close())
	kb.tty = nil

	return err
}

func (kb *TerminalKeyboard) readLoop(r io.Reader) {
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		if err != nil {
			closed := kb.closing.Load() || errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed)
			if !closed {
				kb.Logger.Error("Error reading the terminal", slog.Any("error", err))
			}
			return
		}

		for _, b := range buf[:n] {
			if b == ctrlC && kb.OnInterrupt != nil {
				kb.OnInterrupt()
				continue
			}
			kb.Hit(rune(b))
		}
	}
}

// Hit registers a press of the host character r
func (kb *TerminalKeyboard) Hit(r rune) {
	k, ok := kb.lookup[unicode.ToLower(r)]
	if !ok {
		return
	}

	kb.mu.Lock()
	kb.lastSeen[k] = kb.now()
	kb.mu.Unlock()
}

// State implements Keyboard.
func (kb *TerminalKeyboard) State() KeyboardState {
	now := kb.now()
	state := KeyboardState{}

	kb.mu.RLock()
	defer kb.mu.RUnlock()
	for k, seen := range kb.lastSeen {
		state[k] = !seen.IsZero() && now.Sub(seen) < kb.HoldFor
	}

	return state
}
