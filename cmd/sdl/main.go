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
	"os/signal"
	"syscall"

	"github.com/faiface/mainthread"
	"github.com/guslan/chipvm"
	"github.com/guslan/chipvm/sdlhost"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
}

func main() {
	speed := flag.Uint("speed", chipvm.DefaultSpeed, fmt.Sprintf("Speed in cycles per second (default = %d)", chipvm.DefaultSpeed))
	scale := flag.Int("scale", int(sdlhost.DefaultScale), fmt.Sprintf("Size of a pixel in the window (default = %d)", sdlhost.DefaultScale))
	cyclesPerFrame := flag.Uint("xframes", chipvm.DefaultCyclesPerFrame, fmt.Sprintf("The number of cycles that run between each frame (defaults = %d).", chipvm.DefaultCyclesPerFrame))
	flag.Parse()

	if flag.NArg() < 1 {
		slog.Error("must provide the path to a rom as an argument")
		os.Exit(2)
	}

	var err error
	mainthread.Run(func() {
		err = run(flag.Arg(0), *speed, int32(*scale), *cyclesPerFrame)
	})
	if err != nil {
		slog.Error("Console stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(path string, speed uint, scale int32, cyclesPerFrame uint) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host := sdlhost.NewHost(func(config *sdlhost.HostConfig) {
		config.Speed = speed
		config.Scale = scale
		config.CyclesPerFrame = cyclesPerFrame
	})
	if err := host.Console.LoadFile(path); err != nil {
		return err
	}

	return host.Run(ctx)
}
