// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import "strings"

// ResponseKind is the classification of one completed device response
type ResponseKind int

const (
	ResponsePositive ResponseKind = iota // hex data, may contain a positive frame
	ResponseNoData
	ResponseBusError
	ResponseBusBusy
	ResponseDataError  // "DATA ERROR"
	ResponseDataError2 // "<DATA ERROR"
	ResponseSerialError
	ResponseRubbish
)

// String returns the response kind name
func (k ResponseKind) String() string {
	switch k {
	case ResponsePositive:
		return "POSITIVE"
	case ResponseNoData:
		return "NO_DATA"
	case ResponseBusError:
		return "BUS_ERROR"
	case ResponseBusBusy:
		return "BUS_BUSY"
	case ResponseDataError:
		return "DATA_ERROR"
	case ResponseDataError2:
		return "DATA_ERROR2"
	case ResponseSerialError:
		return "SERIAL_ERROR"
	case ResponseRubbish:
		return "RUBBISH"
	default:
		return "UNKNOWN"
	}
}

// Retryable reports whether the kind is transient link noise handled by the
// shared retry budget
func (k ResponseKind) Retryable() bool {
	switch k {
	case ResponseBusBusy, ResponseDataError, ResponseDataError2, ResponseSerialError, ResponseRubbish:
		return true
	default:
		return false
	}
}

// Alert returns the alert raised when a retryable kind exhausts the budget
func (k ResponseKind) Alert() AlertKind {
	switch k {
	case ResponseBusError:
		return AlertBusError
	case ResponseBusBusy:
		return AlertBusBusy
	case ResponseDataError, ResponseDataError2:
		return AlertDataError
	default:
		return AlertSerialError
	}
}

// error strings reported by the interface, checked in order
var responseMarkers = []struct {
	text string
	kind ResponseKind
}{
	{"BUS ERROR", ResponseBusError},
	{"BUS INIT: ...ERROR", ResponseBusError},
	{"BUS BUSY", ResponseBusBusy},
	{"<DATA ERROR", ResponseDataError2},
	{"DATA ERROR", ResponseDataError},
	{"NO DATA", ResponseNoData},
	{"UNABLE TO CONNECT", ResponseNoData},
}

// Classify lexically classifies a completed response to command. The echoed
// command, "SEARCHING..." progress text and the prompt are ignored. A
// response made only of hex digits is ResponsePositive; whether it actually
// holds a positive frame is decided by ExtractFrame.
func Classify(command, raw string) ResponseKind {
	upper := strings.ToUpper(raw)

	for _, m := range responseMarkers {
		if strings.Contains(upper, m.text) {
			return m.kind
		}
	}

	body := Normalize(upper)
	body = strings.ReplaceAll(body, "SEARCHING...", "")

	frames := strings.Split(body, string(FrameDelimiter))
	hex := 0
	for i, f := range frames {
		if f == "" {
			continue
		}
		if i == 0 && command != "" && f == strings.ToUpper(command) {
			continue
		}
		if f == "?" {
			return ResponseSerialError
		}
		if !isHex(f) {
			return ResponseRubbish
		}
		hex++
	}

	if hex == 0 {
		return ResponseNoData
	}
	return ResponsePositive
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
