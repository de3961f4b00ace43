// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

// SampleState is the outcome of one channel visit as seen by the rate estimator
type SampleState int

const (
	SampleOff          SampleState = iota // channel disabled
	SampleActive                          // device replied with a value
	SampleNotAvailable                    // no value this time
)

// RateEstimator tracks the instantaneous and average response rate of the
// channels on one page
type RateEstimator struct {
	clock *QuantumClock

	mark        int64 // clock value at the last Active sample
	initialized bool
	allOff      bool // zero rates already reported for an all-off page

	inst float64
	avg  float64

	sum   float64
	count int
}

// NewRateEstimator returns an estimator measuring against clock
func NewRateEstimator(clock *QuantumClock) *RateEstimator {
	return &RateEstimator{clock: clock}
}

// Reset returns the estimator to its uninitialized state
func (r *RateEstimator) Reset() {
	*r = RateEstimator{clock: r.clock}
}

// Instantaneous returns the last instantaneous rate in Hz
func (r *RateEstimator) Instantaneous() float64 {
	return r.inst
}

// Average returns the last completed average rate in Hz
func (r *RateEstimator) Average() float64 {
	return r.avg
}

// Initialized reports whether the first Active sample has been seen
func (r *RateEstimator) Initialized() bool {
	return r.initialized
}

// Sample records one channel visit on a page of onPage channels of which
// disabled are off. It reports whether the rates changed and should be shown.
func (r *RateEstimator) Sample(state SampleState, onPage, disabled int) bool {
	if !r.initialized {
		if state == SampleActive {
			r.mark = r.clock.Now()
			r.initialized = true
		}
		return false
	}

	if disabled >= onPage {
		if r.allOff {
			return false
		}
		r.inst = 0
		r.avg = 0
		r.allOff = true
		return true
	}

	if state == SampleOff {
		return false
	}

	r.allOff = false

	elapsed := r.clock.Since(r.mark)
	if elapsed < 1 {
		elapsed = 1
	}
	r.inst = 1 / (float64(elapsed) * r.clock.Quantum().Seconds())

	if r.count < onPage-disabled {
		r.count++
		r.sum += r.inst
	} else {
		if r.count > 0 {
			r.avg = r.sum / float64(r.count)
		}
		r.sum = 0
		r.count = 0
	}

	if state == SampleActive {
		r.mark = r.clock.Now()
	}
	return true
}
