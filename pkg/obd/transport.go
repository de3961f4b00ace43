// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

// ReadKind is the result of one non-blocking transport poll
type ReadKind int

const (
	ReadEmpty  ReadKind = iota // nothing buffered
	ReadData                   // a chunk of response text
	ReadPrompt                 // the device prompt; any text before it is returned too
)

// PortStatus is the state of the underlying port
type PortStatus int

const (
	PortReady PortStatus = iota
	PortNotOpen
	PortUserIgnored // user chose to keep going without a port
)

// String returns the port status name
func (s PortStatus) String() string {
	switch s {
	case PortReady:
		return "READY"
	case PortNotOpen:
		return "NOT_OPEN"
	case PortUserIgnored:
		return "USER_IGNORED"
	default:
		return "UNKNOWN"
	}
}

// Transport is the device link consumed by the engine. Implementations must
// never block in Send or Poll.
type Transport interface {
	// Send writes one command; the implementation appends the line terminator
	Send(cmd string) error
	// Poll returns buffered response text without waiting
	Poll() (ReadKind, string)
	Status() PortStatus
	SetStatus(PortStatus)
	// Reset drops any buffered input and sends the interface reset command
	Reset() error
}
