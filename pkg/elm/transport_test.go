// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package elm

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/obdstat/pkg/obd"
)

// pipeConn reads what the test writes to device and records what the
// transport writes
type pipeConn struct {
	*io.PipeReader
	device *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer
	failW   bool
	closed  bool
}

func newPipeConn() *pipeConn {
	r, w := io.Pipe()
	return &pipeConn{PipeReader: r, device: w}
}

func (c *pipeConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failW {
		return 0, errors.New("write failed")
	}
	return c.written.Write(p)
}

func (c *pipeConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return c.PipeReader.Close()
}

func (c *pipeConn) Written() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written.String()
}

func (c *pipeConn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// pollUntil polls until a result of kind arrives, collecting data chunks
func pollUntil(t *testing.T, tr *Transport, want obd.ReadKind) string {
	t.Helper()
	var text string
	require.Eventually(t, func() bool {
		kind, chunk := tr.Poll()
		text += chunk
		return kind == want
	}, time.Second, time.Millisecond)
	return text
}

func TestTransport_NotAttached(t *testing.T) {
	tr := NewTransport(zerolog.Nop())

	assert.Equal(t, obd.PortNotOpen, tr.Status())
	assert.ErrorIs(t, tr.Send("010C"), ErrNotOpen)

	kind, text := tr.Poll()
	assert.Equal(t, obd.ReadEmpty, kind)
	assert.Empty(t, text)

	tr.SetStatus(obd.PortReady)
	assert.Equal(t, obd.PortNotOpen, tr.Status(), "ready needs a connection")

	tr.SetStatus(obd.PortUserIgnored)
	assert.Equal(t, obd.PortUserIgnored, tr.Status())
}

func TestTransport_SendAppendsTerminator(t *testing.T) {
	conn := newPipeConn()
	tr := NewTransport(zerolog.Nop())
	tr.Attach(conn)
	defer tr.Close()

	assert.Equal(t, obd.PortReady, tr.Status())
	require.NoError(t, tr.Send("010C"))
	assert.Equal(t, "010C\r", conn.Written())
}

func TestTransport_PollSplitsAtPrompt(t *testing.T) {
	conn := newPipeConn()
	tr := NewTransport(zerolog.Nop())
	tr.Attach(conn)
	defer tr.Close()

	go func() {
		_, _ = conn.device.Write([]byte("010C\r41 0C 1A F8\r\r>ATZ"))
	}()

	text := pollUntil(t, tr, obd.ReadPrompt)
	assert.Equal(t, "010C\r41 0C 1A F8\r\r", text)

	kind, rest := tr.Poll()
	assert.Equal(t, obd.ReadData, kind)
	assert.Equal(t, "ATZ", rest)
}

func TestTransport_ReadErrorClosesPort(t *testing.T) {
	conn := newPipeConn()
	tr := NewTransport(zerolog.Nop())
	tr.Attach(conn)

	require.NoError(t, conn.device.CloseWithError(errors.New("unplugged")))

	require.Eventually(t, func() bool {
		return tr.Status() == obd.PortNotOpen
	}, time.Second, time.Millisecond)
	assert.True(t, conn.IsClosed())
	assert.ErrorIs(t, tr.Send("0100"), ErrNotOpen)
}

func TestTransport_WriteErrorClosesPort(t *testing.T) {
	conn := newPipeConn()
	conn.failW = true
	tr := NewTransport(zerolog.Nop())
	tr.Attach(conn)

	assert.Error(t, tr.Send("0100"))
	assert.Equal(t, obd.PortNotOpen, tr.Status())
}

func TestTransport_UserIgnoredSurvivesLoss(t *testing.T) {
	conn := newPipeConn()
	tr := NewTransport(zerolog.Nop())
	tr.Attach(conn)
	tr.SetStatus(obd.PortUserIgnored)

	require.NoError(t, conn.device.Close())
	require.Eventually(t, conn.IsClosed, time.Second, time.Millisecond)
	assert.Equal(t, obd.PortUserIgnored, tr.Status())
}

func TestTransport_ResetDropsBuffer(t *testing.T) {
	conn := newPipeConn()
	tr := NewTransport(zerolog.Nop())
	tr.Attach(conn)
	defer tr.Close()

	go func() {
		_, _ = conn.device.Write([]byte("stale"))
	}()
	require.Eventually(t, func() bool {
		tr.mu.Lock()
		defer tr.mu.Unlock()
		return tr.buf.Len() > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, tr.Reset())
	assert.Equal(t, "ATZ\r", conn.Written())

	kind, _ := tr.Poll()
	assert.Equal(t, obd.ReadEmpty, kind)
}

func TestTransport_AttachReplacesConnection(t *testing.T) {
	first := newPipeConn()
	second := newPipeConn()
	tr := NewTransport(zerolog.Nop())

	tr.Attach(first)
	tr.Attach(second)
	defer tr.Close()

	assert.True(t, first.IsClosed())
	require.NoError(t, tr.Send("0100"))
	assert.Empty(t, first.Written())
	assert.Equal(t, "0100\r", second.Written())
}
