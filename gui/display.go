package gui

import (
	"github.com/guslan/chipvm"

	rl "github.com/gen2brain/raylib-go/raylib"
)

var ScreenBgColor = rl.Gold
var ScreenPixelColor = rl.Yellow

// BuzzerVolume is the amplitude of the generated tone around the midpoint
const BuzzerVolume = 0x18

// Boot implements chipvm.Display, chipvm.Keyboard and chipvm.Buzzer.
func (app *App) Boot() error {
	return nil
}

// Render implements chipvm.Display.
// The screen is drawn by the UI loop.
func (app *App) Render(screen chipvm.Screen) error {
	app.mu.Lock()
	app.screen = screen
	app.mu.Unlock()

	return nil
}

// Play implements chipvm.Buzzer.
func (app *App) Play() {
	app.isBuzzing.Store(true)
}

// Stop implements chipvm.Buzzer.
func (app *App) Stop() {
	app.isBuzzing.Store(false)
}

// loadSound builds a one second tone that the UI loop replays while the buzzer is on
func (app *App) loadSound() {
	samples := chipvm.SquareWave(chipvm.SampleRate, chipvm.SampleRate, chipvm.Tone, BuzzerVolume)
	wave := rl.NewWave(uint32(len(samples)), chipvm.SampleRate, 8, 1, samples)
	app.sound = rl.LoadSoundFromWave(wave)
}

func (app *App) updateSound() {
	playing := rl.IsSoundPlaying(app.sound)
	switch {
	case app.isBuzzing.Load() && !playing:
		rl.PlaySound(app.sound)
	case !app.isBuzzing.Load() && playing:
		rl.StopSound(app.sound)
	}
}
