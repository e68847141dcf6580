package web

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/guslan/chipvm"
)

// snapshotBuffer is how many snapshots wait for a slow client before new ones are dropped
const snapshotBuffer = 64

// Snapshot is the CPU state sent to the debugger after a cycle
type Snapshot struct {
	OpCode chipvm.OpCode
	Pc     uint16
	V      [16]byte
	I      uint16
	Sp     byte
	Stack  [16]uint16
	Dt     byte
	St     byte
}

type Debugger struct {
	CurrentOpCode chipvm.OpCode

	SendEvery uint
	send      chan Snapshot
	logger    *slog.Logger
}

// NewDebugger creates a new debugger
// This method will pause the console and register the hooks
func NewDebugger(console *chipvm.Console, logger *slog.Logger) *Debugger {
	deb := &Debugger{
		SendEvery: 1,
		send:      make(chan Snapshot, snapshotBuffer),
		logger:    logger,
	}

	console.AddBeforeCycleHook(deb.beforeCycle)
	console.AddAfterCycleHook(deb.afterCycle)
	console.AddErrorHook(deb.afterCycle)

	console.Stop()

	return deb
}

func (d *Debugger) handle(w http.ResponseWriter, r *http.Request) {
	d.logger.Info("Connecting to debugger")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.logger.Error("Error upgrading the debugger connection", slog.Any("error", err))
		return
	}
	defer conn.Close()

	// closes done once the client goes away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap := <-d.send:
			if err := conn.WriteMessage(websocket.BinaryMessage, formatAsEvent(snap)); err != nil {
				d.logger.Error("Error writing debugger message", slog.Any("error", err))
				return
			}

		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (d *Debugger) beforeCycle(cpu *chipvm.Cpu) {
	op, err := cpu.Memory.OpCodeAt(cpu.Pc)
	if err != nil {
		op = 0
	}
	d.CurrentOpCode = op
}

func (d *Debugger) afterCycle(cpu *chipvm.Cpu) {
	if cpu.Cycles()%max(d.SendEvery, 1) != 0 && !cpu.Halted() {
		return
	}

	snap := Snapshot{
		OpCode: d.CurrentOpCode,
		Pc:     cpu.Pc,
		V:      cpu.V,
		I:      cpu.I,
		Sp:     cpu.Sp,
		Stack:  cpu.Stack,
		Dt:     cpu.Dt,
		St:     cpu.St,
	}

	// Never block the console on a slow client
	select {
	case d.send <- snap:
	default:
		d.logger.Debug("Dropping debugger snapshot", slog.Uint64("cycle", uint64(cpu.Cycles())))
	}
}

// formatAsEvent encodes a snapshot as big endian words and raw bytes:
// opcode, pc, V0..VF, I, sp, stack, dt, st
func formatAsEvent(snap Snapshot) []byte {
	buf := make([]byte, 0, 57)

	buf = append(buf, byte((snap.OpCode&0xFF00)>>8))
	buf = append(buf, byte((snap.OpCode&0x00FF)>>0))

	buf = append(buf, byte((snap.Pc&0xFF00)>>8))
	buf = append(buf, byte((snap.Pc&0x00FF)>>0))
	buf = append(buf, snap.V[:]...)
	buf = append(buf, byte((snap.I&0xFF00)>>8))
	buf = append(buf, byte((snap.I&0x00FF)>>0))
	buf = append(buf, snap.Sp)
	for _, b := range snap.Stack {
		buf = append(buf, byte((b&0xFF00)>>8))
		buf = append(buf, byte((b&0x00FF)>>0))
	}
	buf = append(buf, snap.Dt)
	buf = append(buf, snap.St)

	return buf
}
