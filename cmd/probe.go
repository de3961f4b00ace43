// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/obdstat/pkg/elm"
	"github.com/Thermoquad/obdstat/pkg/obd"
)

// supported PIDs 01-20; every compliant vehicle answers it
const probeCommand = "0100"

var probeTimeout int

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Test the interface and vehicle connection",
	Long: `Reset the interface, then request the supported PIDs and wait for the answer.

Exit codes:
  0 - The vehicle answered
  1 - Timeout, or the interface answered with an error
  2 - Connection error`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().IntVar(&probeTimeout, "timeout", 10, "Timeout in seconds to wait for each answer")
}

func runProbe(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}

	t := elm.NewTransport(logger)
	t.Attach(conn)
	defer t.Close()

	fmt.Printf("obdstat - Probe\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Timeout: %d seconds\n\n", probeTimeout)

	timeout := time.Duration(probeTimeout) * time.Second

	fmt.Printf("Sending %s...\n", obd.ResetCommand)
	if err := t.Reset(); err != nil {
		fmt.Fprintf(os.Stderr, "SEND FAILED: %v\n", err)
		os.Exit(2)
	}
	banner, err := awaitPrompt(cmd.Context(), t, timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "TIMEOUT: interface did not answer %s: %v\n", obd.ResetCommand, err)
		os.Exit(1)
	}
	fmt.Printf("  Interface: %s\n", firstLine(banner, obd.ResetCommand))

	fmt.Printf("Sending %s...\n", probeCommand)
	if err := t.Send(probeCommand); err != nil {
		fmt.Fprintf(os.Stderr, "SEND FAILED: %v\n", err)
		os.Exit(2)
	}
	raw, err := awaitPrompt(cmd.Context(), t, timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "TIMEOUT: no answer to %s: %v\n", probeCommand, err)
		os.Exit(1)
	}

	kind := obd.Classify(probeCommand, raw)
	if kind != obd.ResponsePositive {
		fmt.Fprintf(os.Stderr, "FAILED: %s (%q)\n", kind, strings.TrimSpace(raw))
		os.Exit(1)
	}

	frame, _ := obd.ExtractFrame(obd.Normalize(raw))
	fmt.Printf("SUCCESS: Vehicle answered\n")
	fmt.Printf("  Frame: %s\n", frame)
	os.Exit(0)
	return nil
}

// awaitPrompt collects text until the interface prompt
func awaitPrompt(ctx context.Context, t *elm.Transport, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(obd.Quantum)
	defer ticker.Stop()

	var b strings.Builder
	for {
		kind, text := t.Poll()
		b.WriteString(text)
		if kind == obd.ReadPrompt {
			return b.String(), nil
		}
		if t.Status() != obd.PortReady {
			return b.String(), elm.ErrNotOpen
		}

		select {
		case <-ctx.Done():
			return b.String(), ctx.Err()
		case <-ticker.C:
		}
	}
}

// firstLine returns the first non-empty line that is not the command echo
func firstLine(text, echo string) string {
	for _, line := range strings.FieldsFunc(text, func(r rune) bool { return r == '\r' || r == '\n' }) {
		line = strings.TrimSpace(line)
		if line != "" && line != echo {
			return line
		}
	}
	return "(no banner)"
}
