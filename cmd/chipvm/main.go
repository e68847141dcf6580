/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/guslan/chipvm"
)

const defaultROM = "1-chip8-logo.ch8"

func init() {
	// stdout belongs to the display
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{})))
}

func main() {
	path := defaultROM
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	if err := run(path); err != nil {
		slog.Error("Console stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kb := chipvm.NewTerminalKeyboard()
	kb.OnInterrupt = stop

	console := chipvm.NewConsole(chipvm.NewTerminalDisplay(), kb, chipvm.NewTerminalBuzzer())
	if err := console.LoadFile(path); err != nil {
		return err
	}

	if err := console.Boot(); err != nil {
		return err
	}
	defer kb.Close()

	return console.Loop(ctx)
}
