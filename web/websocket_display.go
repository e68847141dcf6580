package web

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/guslan/chipvm"
)

// Boot implements chipvm.Display, chipvm.Keyboard and chipvm.Buzzer.
func (server *Server) Boot() error {
	return nil
}

func (server *Server) setWs(conn *websocket.Conn) error {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	server.socket = conn

	return server.send()
}

func (server *Server) unsetWs(conn *websocket.Conn) {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	if server.socket == conn {
		server.socket = nil
	}
}

// Render implements chipvm.Display.
func (server *Server) Render(screen chipvm.Screen) error {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	server.screen = screen

	return server.send()
}

// Play implements chipvm.Buzzer.
func (server *Server) Play() {
	server.setBuzzing(true)
}

// Stop implements chipvm.Buzzer.
func (server *Server) Stop() {
	server.setBuzzing(false)
}

func (server *Server) setBuzzing(on bool) {
	server.wsMutex.Lock()
	defer server.wsMutex.Unlock()

	server.isBuzzing = on
	_ = server.send()
}

// send must be called with wsMutex held
func (server *Server) send() error {
	if server.socket == nil {
		return nil
	}

	msg := make([]byte, 0, DisplayMessageSize)
	msg = append(msg, server.screen.Packed()...)
	if server.isBuzzing {
		msg = append(msg, 1)
	} else {
		msg = append(msg, 0)
	}

	server.socket.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := server.socket.WriteMessage(websocket.BinaryMessage, msg)
	if err != nil {
		// a dead socket must not stop the console
		server.socket = nil
		server.logger.Info("Dropping display connection")
	}

	return nil
}
