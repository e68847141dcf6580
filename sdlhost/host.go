// Package sdlhost runs a console in an SDL window.
//
// SDL must be driven from the OS main thread, so Run has to be called from inside
// mainthread.Run. The console loop runs on its own goroutine and only hands frames
// and the buzzer state over; every SDL call goes through mainthread.Call.
package sdlhost

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/mainthread"
	"github.com/guslan/chipvm"
	"github.com/veandco/go-sdl2/sdl"
)

const (
	DefaultScale int32 = 10
	// RefreshRate is how often the window polls events and redraws, in Hz
	RefreshRate = 60

	// BuzzerVolume is the amplitude of the generated tone around the midpoint
	BuzzerVolume = 0x18
	audioSamples = 512
)

type HostConfig struct {
	// Scale is the side of a CHIP-8 pixel in window pixels
	Scale          int32
	Speed          uint
	CyclesPerFrame uint
	Layout         chipvm.KeyboardLayout
	Logger         *slog.Logger
}
type HostConfigCb func(config *HostConfig)

// Host is the display, the keyboard and the buzzer of its console
type Host struct {
	*chipvm.InMemoryKeyboard
	Console *chipvm.Console

	logger    *slog.Logger
	scale     int32
	scancodes map[sdl.Scancode]byte
	tone      []byte

	window   *sdl.Window
	renderer *sdl.Renderer
	audio    sdl.AudioDeviceID

	mu     sync.Mutex
	screen chipvm.Screen
	dirty  bool

	isBuzzing atomic.Bool
}

func NewHost(configs ...HostConfigCb) *Host {
	config := &HostConfig{
		Scale:          DefaultScale,
		Speed:          chipvm.DefaultSpeed,
		CyclesPerFrame: chipvm.DefaultCyclesPerFrame,
		Layout:         chipvm.DefaultKeyboardLayout,
		Logger:         slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	h := &Host{
		InMemoryKeyboard: chipvm.NewInMemoryKeyboard(),
		logger:           config.Logger,
		scale:            max(config.Scale, 1),
		scancodes:        scancodeMap(config.Layout, config.Logger),
		// half a second of tone, queued again whenever the device runs low
		tone: chipvm.SquareWave(chipvm.SampleRate/2, chipvm.SampleRate, chipvm.Tone, BuzzerVolume),
	}

	h.Console = chipvm.NewConsole(h, h, h, func(cc *chipvm.ConsoleConfig) {
		cc.Speed = config.Speed
		cc.CyclesPerFrame = config.CyclesPerFrame
		cc.Logger = config.Logger
	})

	return h
}

func scancodeMap(layout chipvm.KeyboardLayout, logger *slog.Logger) map[sdl.Scancode]byte {
	m := make(map[sdl.Scancode]byte, len(layout))
	for r, k := range chipvm.LookupMap(layout) {
		code, ok := runeToScancode[r]
		if !ok {
			logger.Warn("Layout character has no scancode", slog.String("char", string(r)))
			continue
		}
		m[code] = k
	}

	return m
}

// Run opens the window and runs the console until the window is closed,
// ctx is done or the CPU halts.
func (h *Host) Run(ctx context.Context) error {
	var err error
	mainthread.Call(func() {
		err = h.open()
	})
	if err != nil {
		return err
	}
	defer mainthread.Call(h.close)

	if err := h.Console.Boot(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- h.Console.Loop(ctx)
	}()

	ticker := time.NewTicker(time.Second / RefreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-loopErr:
			return err
		case <-ticker.C:
		}

		var quit bool
		mainthread.Call(func() {
			quit = h.poll()
			h.draw()
			h.updateSound()
		})
		if quit {
			h.logger.Info("Window closed")
			return nil
		}
	}
}

func (h *Host) open() error {
	if err := sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO); err != nil {
		return err
	}

	window, err := sdl.CreateWindow("chipvm", sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED,
		chipvm.ScreenWidth*h.scale, chipvm.ScreenHeight*h.scale, sdl.WINDOW_SHOWN)
	if err != nil {
		sdl.Quit()
		return err
	}

	renderer, err := sdl.CreateRenderer(window, -1, sdl.RENDERER_ACCELERATED)
	if err != nil {
		window.Destroy()
		sdl.Quit()
		return err
	}
	h.window, h.renderer = window, renderer

	spec := &sdl.AudioSpec{
		Freq:     chipvm.SampleRate,
		Format:   sdl.AUDIO_U8,
		Channels: 1,
		Samples:  audioSamples,
	}
	audio, err := sdl.OpenAudioDevice("", false, spec, nil, 0)
	if err != nil {
		// the console still runs without sound
		h.logger.Warn("Error opening the audio device", slog.Any("error", err))
	} else {
		h.audio = audio
		sdl.PauseAudioDevice(h.audio, false)
	}

	h.mu.Lock()
	h.dirty = true
	h.mu.Unlock()

	return nil
}

func (h *Host) close() {
	if h.audio != 0 {
		sdl.CloseAudioDevice(h.audio)
	}
	h.renderer.Destroy()
	h.window.Destroy()
	sdl.Quit()
}

// poll drains the event queue and samples the keypad. It reports whether the user asked to quit.
func (h *Host) poll() bool {
	quit := false
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			quit = true
		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Keysym.Sym == sdl.K_ESCAPE {
				quit = true
			}
		}
	}

	h.Set(keypadState(sdl.GetKeyboardState(), h.scancodes))

	return quit
}

func keypadState(keys []uint8, scancodes map[sdl.Scancode]byte) chipvm.KeyboardState {
	var state chipvm.KeyboardState
	for code, k := range scancodes {
		if int(code) < len(keys) {
			state[k] = keys[code] != 0
		}
	}

	return state
}

func (h *Host) draw() {
	h.mu.Lock()
	if !h.dirty {
		h.mu.Unlock()
		return
	}
	screen := h.screen
	h.dirty = false
	h.mu.Unlock()

	h.renderer.SetDrawColor(0x00, 0x00, 0x00, 0xFF)
	h.renderer.Clear()

	h.renderer.SetDrawColor(0xFF, 0xFF, 0xFF, 0xFF)
	for _, rect := range pixelRects(screen, h.scale) {
		h.renderer.FillRect(&rect)
	}

	h.renderer.Present()
}

func pixelRects(screen chipvm.Screen, scale int32) []sdl.Rect {
	var rects []sdl.Rect
	for y := 0; y < chipvm.ScreenHeight; y++ {
		for x := 0; x < chipvm.ScreenWidth; x++ {
			if screen.Pixel(x, y) == 0 {
				continue
			}
			rects = append(rects, sdl.Rect{X: int32(x) * scale, Y: int32(y) * scale, W: scale, H: scale})
		}
	}

	return rects
}

func (h *Host) updateSound() {
	if h.audio == 0 {
		return
	}

	if !h.isBuzzing.Load() {
		sdl.ClearQueuedAudio(h.audio)
		return
	}

	if sdl.GetQueuedAudioSize(h.audio) < uint32(len(h.tone)/2) {
		if err := sdl.QueueAudio(h.audio, h.tone); err != nil {
			h.logger.Warn("Error queueing audio", slog.Any("error", err))
		}
	}
}

// Boot implements chipvm.Display, chipvm.Keyboard and chipvm.Buzzer.
func (h *Host) Boot() error {
	return nil
}

// Render implements chipvm.Display.
func (h *Host) Render(screen chipvm.Screen) error {
	h.mu.Lock()
	h.screen = screen
	h.dirty = true
	h.mu.Unlock()

	return nil
}

// Play implements chipvm.Buzzer.
func (h *Host) Play() {
	h.isBuzzing.Store(true)
}

// Stop implements chipvm.Buzzer.
func (h *Host) Stop() {
	h.isBuzzing.Store(false)
}
