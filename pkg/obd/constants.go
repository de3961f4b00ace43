// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package obd implements the polling engine for ELM327-style OBD-II interfaces.
//
// The engine cycles through the enabled channels of one catalog page, sends one
// mode 01 request at a time, accumulates the textual response until the device
// prompt arrives, classifies it and decodes positive frames into unit-aware
// display strings. It is driven cooperatively: the host calls Engine.Tick once
// per event loop iteration and the engine never blocks.
package obd

import "time"

// Paging
const (
	ChannelsPerPage = 9
)

// Link policy
const (
	RetryBudgetSize          = 3 // shared by all channels on a page
	TimeoutsBeforeDisconnect = 3 // consecutive request timeouts before the device is reported lost
)

// Timing
const (
	Quantum               = 10 * time.Millisecond
	DefaultRequestTimeout = 1000 * time.Millisecond
)

// Wire format
const (
	PositiveMarker = "41" // positive response to a mode 01 request
	FrameDelimiter = '\t' // frames are separated by this after Normalize
	PromptChar     = '>'
	ResetCommand   = "ATZ"
)

// Display values
const (
	ValueNotAvailable  = "N/A"
	ValueNotMonitoring = "not monitoring"
)

// degree sign used by temperature and angle formulas
const degree = "°"
