// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Rate Estimator Tests
// ============================================================

func TestRateEstimator_ArmsOnFirstActive(t *testing.T) {
	c := NewQuantumClock(Quantum)
	r := NewRateEstimator(c)

	assert.False(t, r.Sample(SampleNotAvailable, 9, 0))
	assert.False(t, r.Initialized())

	assert.False(t, r.Sample(SampleActive, 9, 0))
	assert.True(t, r.Initialized())
	assert.Zero(t, r.Instantaneous())
}

func TestRateEstimator_Instantaneous(t *testing.T) {
	c := NewQuantumClock(Quantum)
	r := NewRateEstimator(c)
	r.Sample(SampleActive, 9, 0)

	c.Advance(10)
	assert.True(t, r.Sample(SampleNotAvailable, 9, 0))
	assert.InDelta(t, 10.0, r.Instantaneous(), 1e-9)

	// NotAvailable does not restart the measurement
	c.Advance(10)
	assert.True(t, r.Sample(SampleActive, 9, 0))
	assert.InDelta(t, 5.0, r.Instantaneous(), 1e-9)

	c.Advance(4)
	r.Sample(SampleActive, 9, 0)
	assert.InDelta(t, 25.0, r.Instantaneous(), 1e-9)
}

func TestRateEstimator_Average(t *testing.T) {
	c := NewQuantumClock(Quantum)
	r := NewRateEstimator(c)
	r.Sample(SampleActive, 2, 0)

	c.Advance(10)
	r.Sample(SampleActive, 2, 0) // 10 Hz
	c.Advance(20)
	r.Sample(SampleActive, 2, 0) // 5 Hz
	assert.Zero(t, r.Average(), "window not complete")

	c.Advance(10)
	r.Sample(SampleActive, 2, 0)
	assert.InDelta(t, 7.5, r.Average(), 1e-9)
}

func TestRateEstimator_ZeroElapsed(t *testing.T) {
	c := NewQuantumClock(Quantum)
	r := NewRateEstimator(c)
	r.Sample(SampleActive, 9, 0)

	r.Sample(SampleActive, 9, 0)
	assert.InDelta(t, 100.0, r.Instantaneous(), 1e-9)
}

func TestRateEstimator_AllOffLatch(t *testing.T) {
	c := NewQuantumClock(Quantum)
	r := NewRateEstimator(c)
	r.Sample(SampleActive, 3, 0)
	c.Advance(10)
	r.Sample(SampleActive, 3, 0)
	require.NotZero(t, r.Instantaneous())

	assert.True(t, r.Sample(SampleOff, 3, 3))
	assert.Zero(t, r.Instantaneous())
	assert.Zero(t, r.Average())
	assert.False(t, r.Sample(SampleOff, 3, 3), "latched")
	assert.False(t, r.Sample(SampleOff, 3, 3), "latched")

	// one channel back on; Off samples do not unlatch
	assert.False(t, r.Sample(SampleOff, 3, 2))

	c.Advance(2)
	assert.True(t, r.Sample(SampleActive, 3, 2))
	assert.InDelta(t, 50.0, r.Instantaneous(), 1e-9)
}

func TestRateEstimator_Reset(t *testing.T) {
	c := NewQuantumClock(Quantum)
	r := NewRateEstimator(c)
	r.Sample(SampleActive, 9, 0)
	c.Advance(1)
	r.Sample(SampleActive, 9, 0)

	r.Reset()
	assert.False(t, r.Initialized())
	assert.Zero(t, r.Instantaneous())
}
