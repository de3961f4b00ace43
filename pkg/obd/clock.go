// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import (
	"context"
	"sync/atomic"
	"time"
)

// QuantumClock counts elapsed quanta. It is advanced by its own ticker
// goroutine (or by tests) and read from the polling goroutine.
type QuantumClock struct {
	quanta  atomic.Int64
	quantum time.Duration
}

// NewQuantumClock returns a stopped clock with the given quantum
func NewQuantumClock(quantum time.Duration) *QuantumClock {
	if quantum <= 0 {
		quantum = Quantum
	}
	return &QuantumClock{quantum: quantum}
}

// Run advances the clock once per quantum until ctx is done
func (c *QuantumClock) Run(ctx context.Context) {
	ticker := time.NewTicker(c.quantum)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.quanta.Add(1)
		}
	}
}

// Advance adds n quanta
func (c *QuantumClock) Advance(n int64) {
	c.quanta.Add(n)
}

// Now returns the current quantum count
func (c *QuantumClock) Now() int64 {
	return c.quanta.Load()
}

// Quantum returns the duration of one quantum
func (c *QuantumClock) Quantum() time.Duration {
	return c.quantum
}

// Since returns the quanta elapsed since mark
func (c *QuantumClock) Since(mark int64) int64 {
	return c.Now() - mark
}

// RequestTimer measures the per-request timeout against a QuantumClock
type RequestTimer struct {
	clock   *QuantumClock
	timeout int64 // in quanta
	started int64
	running bool
}

// NewRequestTimer returns a stopped timer expiring after timeout
func NewRequestTimer(clock *QuantumClock, timeout time.Duration) RequestTimer {
	q := int64(timeout / clock.Quantum())
	if q < 1 {
		q = 1
	}
	return RequestTimer{clock: clock, timeout: q}
}

// Start (re)starts the timer
func (t *RequestTimer) Start() {
	t.started = t.clock.Now()
	t.running = true
}

// Stop stops the timer
func (t *RequestTimer) Stop() {
	t.running = false
}

// Running reports whether the timer is started
func (t *RequestTimer) Running() bool {
	return t.running
}

// Expired reports whether a running timer has reached its timeout
func (t *RequestTimer) Expired() bool {
	return t.running && t.clock.Since(t.started) >= t.timeout
}
