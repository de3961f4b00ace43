// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import (
	"fmt"
	"strings"
)

// UnitSystem selects metric or imperial output for dual-unit formulas
type UnitSystem int

const (
	Metric UnitSystem = iota
	Imperial
)

// String returns the lower-case name used in config files and flags
func (u UnitSystem) String() string {
	switch u {
	case Metric:
		return "metric"
	case Imperial:
		return "imperial"
	default:
		return fmt.Sprintf("units(%d)", int(u))
	}
}

// ParseUnitSystem parses "metric" or "imperial" (case-insensitive)
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "metric", "si":
		return Metric, nil
	case "imperial", "us":
		return Imperial, nil
	default:
		return Metric, fmt.Errorf("unknown unit system %q (use metric or imperial)", s)
	}
}
