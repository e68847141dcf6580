/*
 *   Copyright (c) 2024 Gustavo Lopez <git.gustavolopez.xyz@gmail.com>
 *   All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/guslan/chipvm"
	"github.com/guslan/chipvm/web"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{})))
}

func main() {
	port := flag.Int("port", 9999, "The port of the server (default = 9999)")
	speed := flag.Uint("speed", chipvm.DefaultSpeed, fmt.Sprintf("Speed in cycles per second (default = %d)", chipvm.DefaultSpeed))
	debug := flag.Bool("debug", false, "Stream the CPU state on /debugger and start paused (default = false)")
	static := flag.String("static", "", "Directory served on / (default = none)")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatalln("must provide the path to a rom as an argument")
	}

	program, err := chipvm.ReadROMFile(flag.Arg(0))
	if err != nil {
		log.Fatalln(err)
	}

	server := web.NewServer(func(config *web.ServerConfig) {
		config.UseDebugger = *debug
		config.StaticDir = *static
		config.Speed = *speed
	})
	if err := server.LoadProgram(program); err != nil {
		log.Fatalln(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Listen(ctx, *port); err != nil {
		log.Fatalln(err)
	}
}
