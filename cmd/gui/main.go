/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/guslan/chipvm"
	"github.com/guslan/chipvm/gui"
)

func init() {
	// raylib must be called from the main thread
	runtime.LockOSThread()
}

func main() {
	autostart := flag.Bool("start", false, "Starts the console automatically if there is a program loaded (defaults = false).")
	debug := flag.Bool("debug", false, "Show debug information for the console (defaults = false).")
	initialSpeed := flag.Uint("speed", chipvm.DefaultSpeed, fmt.Sprintf("The starting speed of the CPU in Hz. It has to be in the range [%d, %d] (defaults = %d).", chipvm.MinSpeed, chipvm.MaxSpeed, chipvm.DefaultSpeed))
	cyclesPerFrame := flag.Uint("xframes", chipvm.DefaultCyclesPerFrame, fmt.Sprintf("The number of cycles that run between each frame (defaults = %d).", chipvm.DefaultCyclesPerFrame))

	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	app := gui.NewApp(func(config *gui.AppConfig) {
		config.Speed = *initialSpeed
		config.UseDebugger = *debug
		config.CyclesPerFrame = *cyclesPerFrame
	})

	if flag.NArg() > 0 {
		app.Load(flag.Arg(0))
	}

	if err := app.Run(context.Background(), *autostart); err != nil {
		slog.Error("Error running the console", slog.Any("error", err))
		os.Exit(1)
	}
}
