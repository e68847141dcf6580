package chipvm

import (
	"io"
	"os"
	"sync"
)

// Display abstraction for a display
type Display interface {
	// Boot initializes the component
	Boot() error
	// Render presents the screen. It is called from the console loop.
	Render(Screen) error
}

// DummyDisplay is a display that does nothing
type DummyDisplay struct {
}

func NewDummyDisplay() *DummyDisplay {
	return &DummyDisplay{}
}

func (d DummyDisplay) Boot() error {
	return nil
}

func (d DummyDisplay) Render(screen Screen) error {
	return nil
}

// InMemoryDisplay keeps the last rendered screen
type InMemoryDisplay struct {
	mu      sync.RWMutex
	screen  Screen
	renders int
}

func NewInMemoryDisplay() *InMemoryDisplay {
	return &InMemoryDisplay{}
}

// Boot implements Display.
func (d *InMemoryDisplay) Boot() error {
	return nil
}

// Render implements Display.
func (d *InMemoryDisplay) Render(screen Screen) error {
	d.mu.Lock()
	d.screen = screen
	d.renders++
	d.mu.Unlock()

	return nil
}

// Screen returns the last rendered screen
func (d *InMemoryDisplay) Screen() Screen {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.screen
}

// Renders returns how many times Render was called
func (d *InMemoryDisplay) Renders() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.renders
}

const ESC = 0x1B

type TerminalDisplay struct {
	terminal        io.Writer
	OnChar, OffChar string
}

func NewTerminalDisplay() *TerminalDisplay {
	return NewTerminalDisplayWithOutput(os.Stdout)
}

func NewTerminalDisplayWithOutput(out io.Writer) *TerminalDisplay {
	return &TerminalDisplay{
		terminal: out,
		OnChar:   "##",
		OffChar:  "  ",
	}
}

// Boot implements Display.
func (disp *TerminalDisplay) Boot() error {
	_, err := disp.terminal.Write([]byte{
		// Move cursor do start
		ESC, '[', '1', 'H',
		// clear the terminal
		ESC, '[', '0', 'J',
	})

	return err
}

// Render implements Display.
func (disp *TerminalDisplay) Render(screen Screen) error {
	buff := make([]byte, 0, ScreenWidth*ScreenHeight*len(disp.OnChar)+ScreenHeight*3+4)
	buff = append(buff, ESC, '[', '1', 'H')
	for i, c := range screen {
		if c > 0 {
			buff = append(buff, disp.OnChar...)
		} else {
			buff = append(buff, disp.OffChar...)
		}

		// raw mode terminals need the carriage return
		if (i+1)%ScreenWidth == 0 {
			buff = append(buff, '|', '\r', '\n')
		}
	}

	_, err := disp.terminal.Write(buff)
	return err
}
