package chipvm

import "sync"

// KeyboardState is the 16-key hexadecimal keypad, indexed by key value
type KeyboardState [16]bool

// IsPressed reports whether key k is down. Keys above 0xF are never pressed.
func (s KeyboardState) IsPressed(k byte) bool {
	if k > 0xF {
		return false
	}
	return s[k]
}

// FirstPressed returns the lowest pressed key
func (s KeyboardState) FirstPressed() (byte, bool) {
	for k, pressed := range s {
		if pressed {
			return byte(k), true
		}
	}

	return 0, false
}

// Keyboard is the host input, sampled before every cycle
type Keyboard interface {
	// Boot initializes the component
	Boot() error
	State() KeyboardState
}

// InMemoryKeyboard is a keyboard driven by Press and Release calls.
// It is safe to use from a goroutine other than the one running the console.
type InMemoryKeyboard struct {
	mu    sync.RWMutex
	state KeyboardState
}

func NewInMemoryKeyboard() *InMemoryKeyboard {
	return &InMemoryKeyboard{}
}

// Boot implements Keyboard.
func (kb *InMemoryKeyboard) Boot() error {
	return nil
}

// State implements Keyboard.
func (kb *InMemoryKeyboard) State() KeyboardState {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	return kb.state
}

func (kb *InMemoryKeyboard) Set(state KeyboardState) {
	kb.mu.Lock()
	kb.state = state
	kb.mu.Unlock()
}

func (kb *InMemoryKeyboard) Press(k byte) {
	kb.setKey(k, true)
}

func (kb *InMemoryKeyboard) Release(k byte) {
	kb.setKey(k, false)
}

func (kb *InMemoryKeyboard) setKey(k byte, down bool) {
	if k > 0xF {
		return
	}

	kb.mu.Lock()
	kb.state[k] = down
	kb.mu.Unlock()
}

// KeyboardLayout maps every keypad key to the host character that triggers it
type KeyboardLayout [16]rune

// DefaultKeyboardLayout puts the keypad on the left side of a QWERTY keyboard:
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
var DefaultKeyboardLayout = KeyboardLayout{
	0x0: 'x',
	0x1: '1', 0x2: '2', 0x3: '3',
	0x4: 'q', 0x5: 'w', 0x6: 'e',
	0x7: 'a', 0x8: 's', 0x9: 'd',
	0xA: 'z', 0xB: 'c',
	0xC: '4', 0xD: 'r', 0xE: 'f', 0xF: 'v',
}

// LookupMap inverts the layout, from host character to keypad key
func LookupMap(layout KeyboardLayout) map[rune]byte {
	m := make(map[rune]byte, len(layout))
	for k, r := range layout {
		m[r] = byte(k)
	}

	return m
}
