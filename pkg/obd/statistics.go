// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import (
	"fmt"
	"time"
)

// Statistics tracks request outcomes and error rates for a polling session
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	Requests     uint64
	Responses    uint64 // positive frames decoded
	NoData       uint64
	BusErrors    uint64
	BusBusy      uint64
	DataErrors   uint64
	SerialErrors uint64 // includes rubbish
	Timeouts     uint64
	Retries      uint64
	Alerts       uint64
	Disconnects  uint64
	Resets       uint64

	// Rates (calculated)
	ResponseRate float64 // responses/sec
	ErrorRate    float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordResponse counts one classified response
func (s *Statistics) RecordResponse(kind ResponseKind) {
	switch kind {
	case ResponsePositive:
		s.Responses++
	case ResponseNoData:
		s.NoData++
	case ResponseBusError:
		s.BusErrors++
	case ResponseBusBusy:
		s.BusBusy++
	case ResponseDataError, ResponseDataError2:
		s.DataErrors++
	case ResponseSerialError, ResponseRubbish:
		s.SerialErrors++
	}
	s.LastUpdateTime = time.Now()
}

// Errors returns the number of failed exchanges
func (s *Statistics) Errors() uint64 {
	return s.BusErrors + s.BusBusy + s.DataErrors + s.SerialErrors + s.Timeouts
}

// CalculateRates calculates response and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.ResponseRate = float64(s.Responses) / elapsed
		s.ErrorRate = float64(s.Errors()) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	percent := func(n uint64) float64 {
		if s.Requests == 0 {
			return 0
		}
		return float64(n) * 100.0 / float64(s.Requests)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Requests:        %8d\n", s.Requests)
	result += fmt.Sprintf("Responses:       %8d (%.1f%%)\n", s.Responses, percent(s.Responses))
	result += fmt.Sprintf("No Data:         %8d (%.1f%%)\n", s.NoData, percent(s.NoData))

	if s.Timeouts > 0 {
		result += fmt.Sprintf("Timeouts:        %8d (%.1f%%)\n", s.Timeouts, percent(s.Timeouts))
	}
	if s.BusErrors > 0 {
		result += fmt.Sprintf("Bus Errors:      %8d (%.1f%%)\n", s.BusErrors, percent(s.BusErrors))
	}
	if s.BusBusy > 0 {
		result += fmt.Sprintf("Bus Busy:        %8d (%.1f%%)\n", s.BusBusy, percent(s.BusBusy))
	}
	if s.DataErrors > 0 {
		result += fmt.Sprintf("Data Errors:     %8d (%.1f%%)\n", s.DataErrors, percent(s.DataErrors))
	}
	if s.SerialErrors > 0 {
		result += fmt.Sprintf("Serial Errors:   %8d (%.1f%%)\n", s.SerialErrors, percent(s.SerialErrors))
	}
	if s.Retries > 0 {
		result += fmt.Sprintf("  Retries:          %5d\n", s.Retries)
	}
	if s.Alerts > 0 {
		result += fmt.Sprintf("  Alerts:           %5d\n", s.Alerts)
	}
	if s.Disconnects > 0 {
		result += fmt.Sprintf("  Disconnects:      %5d\n", s.Disconnects)
	}
	if s.Resets > 0 {
		result += fmt.Sprintf("  Chip Resets:      %5d\n", s.Resets)
	}

	result += fmt.Sprintf("Response Rate:   %8.1f resp/sec\n", s.ResponseRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
