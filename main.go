// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// obdstat - OBD-II Live Data Monitor
//
// A CLI tool for polling live OBD-II sensor data through an ELM327-compatible
// interface and displaying it in human-readable form.

package main

import (
	"os"

	"github.com/Thermoquad/obdstat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
