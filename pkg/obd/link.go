// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

// LinkVerdict is the coarse connectivity state shown to the user
type LinkVerdict int

const (
	LinkNotResponding LinkVerdict = iota
	LinkConnected
	LinkPortUnavailable
)

// String returns the status line text for the verdict
func (v LinkVerdict) String() string {
	switch v {
	case LinkConnected:
		return "ready (device connected)"
	case LinkNotResponding:
		return "ready (device not responding)"
	case LinkPortUnavailable:
		return "could not be opened"
	default:
		return "unknown"
	}
}

// LinkMonitor turns prompts, timeouts and port status into a LinkVerdict
type LinkMonitor struct {
	threshold int
	timeouts  int
	verdict   LinkVerdict
}

// NewLinkMonitor returns a monitor that reports the device lost after
// threshold consecutive timeouts
func NewLinkMonitor(threshold int) LinkMonitor {
	if threshold < 1 {
		threshold = 1
	}
	return LinkMonitor{threshold: threshold, verdict: LinkNotResponding}
}

// Verdict returns the current verdict
func (m *LinkMonitor) Verdict() LinkVerdict {
	return m.verdict
}

// ConsecutiveTimeouts returns the timeouts seen since the last prompt
func (m *LinkMonitor) ConsecutiveTimeouts() int {
	return m.timeouts
}

// ResetTimeouts clears the consecutive timeout counter
func (m *LinkMonitor) ResetTimeouts() {
	m.timeouts = 0
}

// PromptSeen records a device prompt. It reports whether the verdict changed.
func (m *LinkMonitor) PromptSeen() bool {
	m.timeouts = 0
	return m.set(LinkConnected)
}

// Timeout records a request timeout. It reports whether the threshold was
// reached, in which case the counter restarts and the device is not responding.
func (m *LinkMonitor) Timeout() bool {
	m.timeouts++
	if m.timeouts < m.threshold {
		return false
	}
	m.timeouts = 0
	m.set(LinkNotResponding)
	return true
}

// ObservePort folds the transport status into the verdict and reports
// whether it changed
func (m *LinkMonitor) ObservePort(status PortStatus) bool {
	switch status {
	case PortNotOpen, PortUserIgnored:
		return m.set(LinkPortUnavailable)
	default:
		if m.verdict == LinkPortUnavailable {
			return m.set(LinkNotResponding)
		}
		return false
	}
}

func (m *LinkMonitor) set(v LinkVerdict) bool {
	if m.verdict == v {
		return false
	}
	m.verdict = v
	return true
}
