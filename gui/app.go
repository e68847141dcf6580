package gui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/guslan/chipvm"
)

const (
	ToolbarGap       = 5
	ToolbarBtnWidth  = 80
	ToolbarBtnHeight = 40
	ToolbarHeight    = 50
	ToolbarBtnOffset = ToolbarBtnWidth + ToolbarGap

	ScreenPixelSize = 15
	ScreenPositionX = 0
	ScreenPositionY = ToolbarHeight + 1

	MessageBarGap   = 5
	MessageBarHeigh = 30
)

var MessageBarBgColor = rl.DarkGray
var MessageBarInfoColor = rl.SkyBlue
var MessageBarSuccessColor = rl.Lime
var MessageBarWarningColor = rl.Gold
var MessageBarErrorColor = rl.Red

type MessageType byte

const (
	MessageInfo MessageType = iota
	MessageSuccess
	MessageWarning
	MessageError
)

type AppConfig struct {
	Speed          uint
	CyclesPerFrame uint
	// UseDebugger logs the CPU state after every cycle
	UseDebugger bool
	Layout      chipvm.KeyboardLayout
	Logger      *slog.Logger
}
type AppConfigCb func(config *AppConfig)

// App is a desktop window around a console: it is the display, the keyboard and the buzzer.
type App struct {
	*chipvm.InMemoryKeyboard
	// The underlying console
	Console *chipvm.Console

	logger *slog.Logger
	// Speed factor
	// Speed in Hz is speedFactor+1 * 5
	speedFactor float32

	// guards screen and the message bar, which the console goroutine writes
	mu     sync.Mutex
	screen chipvm.Screen

	keyboardLayout    chipvm.KeyboardLayout
	keyboardLookupMap map[int32]byte

	// Window width and height
	winW, winH int

	// Toolbar
	startBtn, stopBtn, stepBtn, restBtn bool

	loadedProgramPath string

	lastMessage      string
	lastMessageColor rl.Color

	isBuzzing atomic.Bool
	sound     rl.Sound
}

func speedFactorToHz(s float32) uint {
	return uint((s + 1) * 5)
}

func hzToSpeedFactor(hz uint) float32 {
	return float32(hz)/5 - 1
}

func NewApp(configs ...AppConfigCb) *App {
	config := &AppConfig{
		Speed:          chipvm.DefaultSpeed,
		CyclesPerFrame: chipvm.DefaultCyclesPerFrame,
		Layout:         chipvm.DefaultKeyboardLayout,
		Logger:         slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	app := &App{
		InMemoryKeyboard:  chipvm.NewInMemoryKeyboard(),
		logger:            config.Logger,
		keyboardLayout:    config.Layout,
		keyboardLookupMap: map[int32]byte{},
		lastMessageColor:  MessageBarInfoColor,
	}

	app.Console = chipvm.NewConsole(app, app, app, func(cc *chipvm.ConsoleConfig) {
		cc.Speed = config.Speed
		cc.CyclesPerFrame = config.CyclesPerFrame
		cc.KeepAliveOnError = true
		cc.Logger = config.Logger
	})
	app.speedFactor = hzToSpeedFactor(app.Console.SpeedInHz())

	app.Console.AddErrorHook(func(cpu *chipvm.Cpu) {
		app.showMessage(cpu.Err().Error(), MessageError)
	})
	if config.UseDebugger {
		app.Console.AddAfterCycleHook(app.logCycle)
	}

	app.updateKeyboardLookupMap()
	app.updateWindowSize()

	return app
}

// Run initializes the console and the UI loop until the window is closed or ctx is done.
// The console starts paused unless autostart is set and a program is loaded.
func (app *App) Run(ctx context.Context, autostart bool) error {
	if err := app.Console.Boot(); err != nil {
		return err
	}
	if !autostart || !app.hasProgramLoaded() {
		app.Console.Stop()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		app.logger.Info("Starting CPU loop")
		if err := app.Console.Loop(ctx); err != nil {
			app.showMessage(err.Error(), MessageError)
			app.logger.Error("CPU loop stopped", slog.Any("error", err))
		}
	}()

	rl.InitWindow(int32(app.winW), int32(app.winH), "chipvm")
	defer rl.CloseWindow()

	rl.InitAudioDevice()
	defer rl.CloseAudioDevice()
	app.loadSound()
	defer rl.UnloadSound(app.sound)

	rl.SetTargetFPS(60)
	for !rl.WindowShouldClose() && ctx.Err() == nil {
		rl.BeginDrawing()

		rl.ClearBackground(rl.Black)

		app.handleFileLoad()
		app.handleActions()
		app.handleKeyPress()
		app.updateCpuSpeed()
		app.updateSound()

		app.drawMessageBar()
		app.drawScreen()
		app.drawToolbar()

		rl.EndDrawing()
	}

	return nil
}

func (app *App) Load(path string) {
	if err := app.Console.LoadFile(path); err != nil {
		app.logger.Error("Error loading program", slog.String("path", path), slog.Any("error", err))
		app.showMessage(err.Error(), MessageError)
		return
	}

	app.loadedProgramPath = path
	app.showMessage(fmt.Sprintf("Program '%s' loaded", app.loadedProgramPath), MessageInfo)
}

func (app *App) updateWindowSize() {
	app.winW = chipvm.ScreenWidth * ScreenPixelSize
	app.winH = chipvm.ScreenHeight*ScreenPixelSize + ToolbarHeight + MessageBarHeigh
	app.logger.Info("Updating window size", slog.Int("width", app.winW), slog.Int("height", app.winH))
}

func (app *App) updateKeyboardLookupMap() {
	clear(app.keyboardLookupMap)
	for r, k := range chipvm.LookupMap(app.keyboardLayout) {
		code, ok := runeToKey[r]
		if !ok {
			app.logger.Warn("Layout character has no key", slog.String("char", string(r)))
			continue
		}
		app.keyboardLookupMap[code] = k
	}
}

func (app *App) logCycle(cpu *chipvm.Cpu) {
	app.logger.Debug("Cycle ran",
		slog.Uint64("cycle", uint64(cpu.Cycles())),
		slog.String("pc", fmt.Sprintf("%#04x", cpu.Pc)),
		slog.String("i", fmt.Sprintf("%#04x", cpu.I)),
		slog.String("v", fmt.Sprintf("% X", cpu.V[:])),
	)
}

func (app *App) handleFileLoad() {
	if rl.IsFileDropped() {
		files := rl.LoadDroppedFiles()
		defer rl.UnloadDroppedFiles()

		app.logger.Info("Files were dropped", "files", strings.Join(files, ","))

		if len(files) > 0 {
			app.Load(files[0])
			app.Console.Start()
		}
	}
}

func (app *App) hasProgramLoaded() bool {
	return len(app.loadedProgramPath) > 0
}

func (app *App) handleActions() {
	if app.startBtn {
		if app.hasProgramLoaded() {
			app.Console.Start()
			app.logger.Info("Starting the console")
		} else {
			app.showMessage("There is no program loaded", MessageError)
		}
	}
	if app.stopBtn {
		app.Console.Stop()
		app.logger.Info("Stopping the console")
	}
	if app.restBtn {
		app.Console.Reset()
		app.showMessage("Program reset", MessageInfo)
		app.logger.Info("Resetting the program to the beginning")
	}
	if app.stepBtn {
		if err := app.Console.LoopOnce(); err != nil {
			app.showMessage(err.Error(), MessageError)
		}
		app.logger.Info("Running a single cycle")
	}
}

func (app *App) handleKeyPress() {
	var state chipvm.KeyboardState
	for code, key := range app.keyboardLookupMap {
		state[key] = rl.IsKeyDown(code)
	}
	app.Set(state)
}

func (app *App) updateCpuSpeed() {
	app.Console.SetSpeedInHz(speedFactorToHz(app.speedFactor))
}

const (
	MinSpeed = float32(chipvm.MinSpeed/5) - 1
	MaxSpeed = float32(chipvm.MaxSpeed/5) - 1
)

func (app *App) drawToolbar() {
	rl.DrawRectangle(0, 0, int32(rl.GetScreenWidth()), ToolbarHeight, rl.Gray)

	app.startBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*0, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_PLAY, "Start"),
	)
	app.stopBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*1, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_STOP, "Stop"),
	)
	app.stepBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*2, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_PLAYER_NEXT, "Step"),
	)
	app.restBtn = gui.Button(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*3, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		gui.IconText(gui.ICON_ROTATE, "Reset"),
	)

	status := "Stopped"
	if app.Console.IsRunning() {
		status = "Running"
	}
	gui.Label(
		rl.NewRectangle(ToolbarGap+ToolbarBtnOffset*4, ToolbarGap, ToolbarBtnWidth, ToolbarBtnHeight),
		status,
	)

	gui.Label(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150, 26, 50, 20),
		fmt.Sprintf("%d Hz", speedFactorToHz(app.speedFactor)),
	)

	if gui.Button(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150+50, 26, 50, 20),
		gui.IconText(gui.ICON_ROTATE, ""),
	) {
		app.speedFactor = hzToSpeedFactor(chipvm.DefaultSpeed)
	}

	app.speedFactor = gui.Slider(
		rl.NewRectangle(float32(app.winW)-ToolbarGap-150, ToolbarGap, 100, 20),
		fmt.Sprintf("%d Hz", chipvm.MinSpeed), fmt.Sprintf("%d Hz", chipvm.MaxSpeed),
		app.speedFactor,
		MinSpeed,
		MaxSpeed,
	)
}

func (app *App) drawScreen() {
	app.mu.Lock()
	screen := app.screen
	app.mu.Unlock()

	for y := 0; y < chipvm.ScreenHeight; y++ {
		for x := 0; x < chipvm.ScreenWidth; x++ {
			color := ScreenBgColor
			if screen.Pixel(x, y) > 0 {
				color = ScreenPixelColor
			}

			rl.DrawRectangle(
				ScreenPositionX+ScreenPixelSize*int32(x),
				ScreenPositionY+ScreenPixelSize*int32(y),
				ScreenPixelSize,
				ScreenPixelSize,
				color)
		}
	}
}

func (app *App) showMessage(msg string, mType MessageType) {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.lastMessage = msg
	switch mType {
	case MessageInfo:
		app.lastMessageColor = MessageBarInfoColor

	case MessageSuccess:
		app.lastMessageColor = MessageBarSuccessColor

	case MessageWarning:
		app.lastMessageColor = MessageBarWarningColor

	case MessageError:
		app.lastMessageColor = MessageBarErrorColor
	}
}

func (app *App) drawMessageBar() {
	app.mu.Lock()
	msg, color := app.lastMessage, app.lastMessageColor
	app.mu.Unlock()

	rl.DrawRectangle(
		0,
		int32(app.winH)-MessageBarHeigh,
		int32(app.winW),
		MessageBarHeigh,
		MessageBarBgColor,
	)

	rl.DrawText(
		msg,
		MessageBarGap,
		int32(app.winH)-MessageBarHeigh+MessageBarGap,
		16,
		color,
	)
}
