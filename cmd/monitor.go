// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var (
	monitorPage  int
	monitorReset bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Live sensor display in a terminal UI",
	Long: `Poll the enabled channels of one page and display their values live.

Keys:
  pgup/pgdn   previous/next page
  1-9         toggle a channel on the page
  a           all channels on the page on/off
  u           switch metric/imperial units
  r           reset the interface (ATZ)
  c           choose another port
  s           show request statistics
  q           quit

Alerts pause polling until a choice is made with its number key.
Enabled channels and the last page are saved to the config file on exit.`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().IntVar(&monitorPage, "page", -1, "Start on this page (1-based, default last used)")
	monitorCmd.Flags().BoolVar(&monitorReset, "reset", true, "Reset the interface before polling")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	s := newPollSession(cmd.Context(), monitorReset)
	defer s.close()

	page := config.Page
	if monitorPage > 0 {
		page = monitorPage - 1
	}
	s.engine.Start(page)

	p := tea.NewProgram(initialMonitorModel(s), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	s.save()
	return nil
}
