package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/guslan/chipvm"
)

const (
	// DisplayMessageSize is the packed screen followed by the sound flag
	DisplayMessageSize = chipvm.PackedScreenSize + 1

	writeTimeout = time.Second
)

var upgrader = websocket.Upgrader{} // use default options

type ServerConfig struct {
	UseDebugger bool
	// StaticDir is served on / when set
	StaticDir string
	Speed     uint
	Logger    *slog.Logger
}
type ServerConfigCb func(config *ServerConfig)

// Server exposes a console over HTTP. The screen and the sound flag are pushed through a
// websocket and keys come back through another one.
// It is the display, the keyboard and the buzzer of its console.
type Server struct {
	*chipvm.InMemoryKeyboard

	console  *chipvm.Console
	debugger *Debugger
	logger   *slog.Logger
	mux      *http.ServeMux

	wsMutex   sync.Mutex
	socket    *websocket.Conn
	screen    chipvm.Screen
	isBuzzing bool
}

func NewServer(configs ...ServerConfigCb) *Server {
	config := &ServerConfig{
		UseDebugger: false,
		Speed:       chipvm.DefaultSpeed,
		Logger:      slog.Default(),
	}
	for _, cb := range configs {
		cb(config)
	}

	s := &Server{
		InMemoryKeyboard: chipvm.NewInMemoryKeyboard(),
		logger:           config.Logger,
		mux:              http.NewServeMux(),
	}

	s.console = chipvm.NewConsole(s, s, s, func(cc *chipvm.ConsoleConfig) {
		cc.Speed = config.Speed
		cc.KeepAliveOnError = true
		cc.Logger = config.Logger
	})
	if config.UseDebugger {
		s.debugger = NewDebugger(s.console, config.Logger)
		s.mux.HandleFunc("/debugger", s.debugger.handle)
	}

	if config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(config.StaticDir)))
	}
	s.mux.HandleFunc("/start", s.control("Starting", s.console.Start))
	s.mux.HandleFunc("/stop", s.control("Stopping", s.console.Stop))
	s.mux.HandleFunc("/reset", s.control("Stopping and resetting", func() {
		s.console.Stop()
		s.console.Reset()
	}))
	s.mux.HandleFunc("/step", s.handleStep)
	s.mux.HandleFunc("/display", s.handleDisplay)
	s.mux.HandleFunc("/keys", s.handleKeys)

	return s
}

// Console returns the console driven by the server
func (server *Server) Console() *chipvm.Console {
	return server.console
}

// LoadProgram loads the program into memory and sets the PC to the start-of-program address
func (server *Server) LoadProgram(program []byte) error {
	return server.console.Load(program)
}

// Handler returns the HTTP routes of the server
func (server *Server) Handler() http.Handler {
	return server.mux
}

// Listen boots the console, runs it and serves HTTP until ctx is done
func (server *Server) Listen(ctx context.Context, port int) error {
	if err := server.console.Boot(); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           server.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.console.Loop(ctx); err != nil {
			server.logger.Error("Console loop stopped", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	server.logger.Info("Listening on port", slog.Int("port", port))
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func setHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Type")

	w.Header().Set("Cache-Control", "no-cache")
}

func (server *Server) control(msg string, action func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		setHeaders(w)

		server.logger.Info(msg)
		action()
	}
}

func (server *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	setHeaders(w)

	server.logger.Info("Single Frame")
	if err := server.console.LoopOnce(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (server *Server) handleDisplay(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.logger.Error("Error upgrading the display connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	server.logger.Info("Connecting to display")
	if err := server.setWs(conn); err != nil {
		server.logger.Error("Error sending the first frame", slog.Any("error", err))
		return
	}
	defer server.unsetWs(conn)

	// the client never sends anything, reading only detects the disconnection
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			server.logger.Info("Disconnecting from display")
			return
		}
	}
}

func (server *Server) handleKeys(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		server.logger.Error("Error upgrading the keys connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	for {
		kind, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if kind != websocket.BinaryMessage || len(msg) != 2 {
			server.logger.Warn("Ignoring malformed key message", slog.Int("length", len(msg)))
			continue
		}
		// [key, down]
		if msg[1] > 0 {
			server.Press(msg[0])
		} else {
			server.Release(msg[0])
		}
	}
}
