// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

// AlertKind identifies a user-facing alert
type AlertKind int

const (
	AlertBusError AlertKind = iota
	AlertBusBusy
	AlertDataError
	AlertSerialError
	AlertPortUnavailable
	AlertDeviceNotResponding
)

// String returns the alert kind name
func (k AlertKind) String() string {
	switch k {
	case AlertBusError:
		return "BUS_ERROR"
	case AlertBusBusy:
		return "BUS_BUSY"
	case AlertDataError:
		return "DATA_ERROR"
	case AlertSerialError:
		return "SERIAL_ERROR"
	case AlertPortUnavailable:
		return "PORT_UNAVAILABLE"
	case AlertDeviceNotResponding:
		return "DEVICE_NOT_RESPONDING"
	default:
		return "UNKNOWN"
	}
}

// Choice is a user answer to an alert
type Choice int

const (
	ChoiceOK        Choice = iota // acknowledge
	ChoiceConfigure               // open the port configuration
	ChoiceSuppress                // stop reporting lost devices this session
	ChoiceIgnore                  // keep going without a port
)

// String returns the button caption for the choice
func (c Choice) String() string {
	switch c {
	case ChoiceOK:
		return "OK"
	case ChoiceConfigure:
		return "Configure Port"
	case ChoiceSuppress:
		return "Ignore"
	case ChoiceIgnore:
		return "Ignore"
	default:
		return "?"
	}
}

// choices offered for each alert kind
func choicesFor(kind AlertKind) []Choice {
	switch kind {
	case AlertDeviceNotResponding:
		return []Choice{ChoiceOK, ChoiceConfigure, ChoiceSuppress}
	case AlertPortUnavailable:
		return []Choice{ChoiceConfigure, ChoiceIgnore}
	default:
		return []Choice{ChoiceOK}
	}
}

// Event is produced by the engine for the host
type Event interface {
	isEvent()
}

// ValueUpdated reports a new display value for a channel
type ValueUpdated struct {
	Index int
	Value string
	Raw   int64
}

// RateUpdated reports new response rates in Hz
type RateUpdated struct {
	Instantaneous float64
	Average       float64
}

// AlertRaised asks the user to pick one of Choices. The engine is paused
// until Engine.Resolve is called.
type AlertRaised struct {
	Kind    AlertKind
	Choices []Choice
}

// DisconnectDetected reports that the device stopped answering
type DisconnectDetected struct{}

// LinkChanged reports a new link verdict
type LinkChanged struct {
	Verdict LinkVerdict
}

// RedrawRequested asks the host to refresh the page
type RedrawRequested struct{}

// ConfigurationRequested asks the host to reconfigure the port
type ConfigurationRequested struct{}

// ResetIssued reports that the interface reset command was sent
type ResetIssued struct {
	Err error
}

func (ValueUpdated) isEvent()           {}
func (RateUpdated) isEvent()            {}
func (AlertRaised) isEvent()            {}
func (DisconnectDetected) isEvent()     {}
func (LinkChanged) isEvent()            {}
func (RedrawRequested) isEvent()        {}
func (ConfigurationRequested) isEvent() {}
func (ResetIssued) isEvent()            {}
