// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import "fmt"

// IssueType represents different kinds of channel table problems
type IssueType int

const (
	ISSUE_EMPTY_LABEL IssueType = iota
	ISSUE_BAD_COMMAND
	ISSUE_BAD_BYTES
	ISSUE_UNKNOWN_FORMULA
	ISSUE_DUPLICATE_CHANNEL
)

// ValidationError represents one channel table problem
type ValidationError struct {
	Type    IssueType
	Index   int
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateCatalog checks a channel table for entries the engine cannot poll.
// Returns a slice of validation errors (empty if the table is valid).
func ValidateCatalog(specs []ChannelSpec) []ValidationError {
	errors := []ValidationError{}
	seen := make(map[string]int)

	for i, spec := range specs {
		errors = append(errors, validateChannel(i, spec)...)

		// the same command may feed several channels, but only with different formulas
		key := fmt.Sprintf("%s/%d", spec.Command, spec.Formula)
		if prev, ok := seen[key]; ok {
			errors = append(errors, ValidationError{
				Type:    ISSUE_DUPLICATE_CHANNEL,
				Index:   i,
				Message: fmt.Sprintf("Channel %d duplicates channel %d (%s, %s)", i, prev, spec.Command, spec.Formula),
				Details: map[string]interface{}{"first": prev, "command": spec.Command},
			})
		} else {
			seen[key] = i
		}
	}

	return errors
}

// validateChannel validates a single channel entry
func validateChannel(i int, spec ChannelSpec) []ValidationError {
	errors := []ValidationError{}

	if spec.Label == "" {
		errors = append(errors, ValidationError{
			Type:    ISSUE_EMPTY_LABEL,
			Index:   i,
			Message: fmt.Sprintf("Channel %d has no label", i),
		})
	}

	if len(spec.Command) != 4 || !isHex(spec.Command) || spec.Command[:2] != "01" {
		errors = append(errors, ValidationError{
			Type:    ISSUE_BAD_COMMAND,
			Index:   i,
			Message: fmt.Sprintf("Channel %d command %q is not a mode 01 request", i, spec.Command),
			Details: map[string]interface{}{"command": spec.Command},
		})
	}

	if spec.Bytes < 1 || spec.Bytes > 4 {
		errors = append(errors, ValidationError{
			Type:    ISSUE_BAD_BYTES,
			Index:   i,
			Message: fmt.Sprintf("Channel %d expects %d bytes (1-4)", i, spec.Bytes),
			Details: map[string]interface{}{"bytes": spec.Bytes, "min": 1, "max": 4},
		})
	}

	if _, ok := formulaNames[spec.Formula]; !ok {
		errors = append(errors, ValidationError{
			Type:    ISSUE_UNKNOWN_FORMULA,
			Index:   i,
			Message: fmt.Sprintf("Channel %d uses unknown %s", i, spec.Formula),
		})
	}

	return errors
}
