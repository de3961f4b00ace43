// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

// RetryBudget is the retry counter shared by every channel on a page
type RetryBudget struct {
	size      int
	remaining int
}

// NewRetryBudget returns a full budget of size retries
func NewRetryBudget(size int) RetryBudget {
	if size < 0 {
		size = 0
	}
	return RetryBudget{size: size, remaining: size}
}

// Reset restores the full budget
func (b *RetryBudget) Reset() {
	b.remaining = b.size
}

// Consume charges one failure against the budget and reports whether the
// request may be retried. The failure that spends the last unit is not retried.
func (b *RetryBudget) Consume() bool {
	if b.remaining > 0 {
		b.remaining--
	}
	return b.remaining > 0
}

// Remaining returns the retries left
func (b *RetryBudget) Remaining() int {
	return b.remaining
}

// Size returns the full budget
func (b *RetryBudget) Size() int {
	return b.size
}
