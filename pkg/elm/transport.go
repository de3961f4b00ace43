// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package elm drives an ELM327-compatible interface over a byte stream
package elm

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Thermoquad/obdstat/pkg/obd"
)

// CommandTerminator ends every command sent to the interface
const CommandTerminator = "\r"

// ErrNotOpen is returned when no connection is attached
var ErrNotOpen = errors.New("port is not open")

// Transport implements obd.Transport. A reader goroutine buffers everything
// the interface sends; Poll hands it to the engine without blocking.
type Transport struct {
	mu     sync.Mutex
	conn   io.ReadWriteCloser
	gen    int // bumped on every Attach and Detach so stale readers stop
	status obd.PortStatus
	buf    strings.Builder
	log    zerolog.Logger
}

// NewTransport creates a transport with no connection attached
func NewTransport(logger zerolog.Logger) *Transport {
	return &Transport{
		status: obd.PortNotOpen,
		log:    logger.With().Str("component", "elm").Logger(),
	}
}

// Attach replaces the current connection with conn and starts reading it.
// A nil conn detaches.
func (t *Transport) Attach(conn io.ReadWriteCloser) {
	t.mu.Lock()
	old := t.conn
	t.gen++
	gen := t.gen
	t.conn = conn
	t.buf.Reset()
	if conn == nil {
		if t.status != obd.PortUserIgnored {
			t.status = obd.PortNotOpen
		}
	} else {
		t.status = obd.PortReady
	}
	t.mu.Unlock()

	if old != nil && old != conn {
		if err := old.Close(); err != nil {
			t.log.Debug().Err(err).Msg("failed to close previous connection")
		}
	}

	if conn != nil {
		go t.readLoop(conn, gen)
	}
}

// Close detaches and closes the current connection
func (t *Transport) Close() error {
	t.mu.Lock()
	conn := t.conn
	t.conn = nil
	t.gen++
	t.status = obd.PortNotOpen
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (t *Transport) readLoop(conn io.Reader, gen int) {
	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)

		t.mu.Lock()
		if gen != t.gen {
			t.mu.Unlock()
			return
		}
		if n > 0 {
			t.buf.Write(buf[:n])
		}
		if err != nil {
			t.lost(err)
			t.mu.Unlock()
			return
		}
		t.mu.Unlock()
	}
}

// lost marks the port closed after an I/O error; t.mu must be held
func (t *Transport) lost(err error) {
	t.log.Warn().Err(err).Msg("connection lost")
	t.gen++
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	if t.status != obd.PortUserIgnored {
		t.status = obd.PortNotOpen
	}
}

// Send writes cmd followed by the command terminator
func (t *Transport) Send(cmd string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return ErrNotOpen
	}
	if _, err := io.WriteString(t.conn, cmd+CommandTerminator); err != nil {
		t.lost(err)
		return fmt.Errorf("failed to send %s: %w", cmd, err)
	}

	t.log.Trace().Str("command", cmd).Msg("sent")
	return nil
}

// Poll returns buffered text. When a prompt is buffered, the text up to it
// is returned with ReadPrompt and the rest stays buffered.
func (t *Transport) Poll() (obd.ReadKind, string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.buf.Len() == 0 {
		return obd.ReadEmpty, ""
	}

	data := t.buf.String()
	t.buf.Reset()

	if i := strings.IndexByte(data, obd.PromptChar); i >= 0 {
		t.buf.WriteString(data[i+1:])
		return obd.ReadPrompt, data[:i]
	}
	return obd.ReadData, data
}

// Status returns the port status
func (t *Transport) Status() obd.PortStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// SetStatus overrides the port status. Setting PortReady without a
// connection is ignored.
func (t *Transport) SetStatus(status obd.PortStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if status == obd.PortReady && t.conn == nil {
		return
	}
	t.status = status
}

// Reset drops buffered input and sends the interface reset command
func (t *Transport) Reset() error {
	t.mu.Lock()
	t.buf.Reset()
	t.mu.Unlock()

	return t.Send(obd.ResetCommand)
}
