// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/obdstat/pkg/recorder"
)

var replayKind string

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Print a session recorded with poll --record",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().StringVar(&replayKind, "kind", "", "Only print records of this kind (VALUE, RATE, ALERT, LINK, RESET, DISCONNECT)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open recording: %w", err)
	}
	defer f.Close()

	n, err := replay(os.Stdout, f, replayKind)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d records\n", n)
	return nil
}

// replay prints every record of kind (all when empty) and returns the count
func replay(w io.Writer, r io.Reader, kind string) (int, error) {
	reader := recorder.NewReader(r)
	count := 0

	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if kind != "" && rec.Kind.String() != kind {
			continue
		}
		fmt.Fprintln(w, recorder.Format(rec))
		count++
	}
}
