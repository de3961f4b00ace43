// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/obdstat/pkg/obd"
	"github.com/Thermoquad/obdstat/pkg/recorder"
)

var (
	pollPage          int
	pollDuration      time.Duration
	pollRecord        string
	pollReset         bool
	pollShowAll       bool
	pollStatsInterval int
	pollRetryInterval time.Duration
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Poll one page and print readings as text",
	Long: `Poll the enabled channels of one page and print each event as a line.

By default only changed values, alerts and link changes are printed. Use
--show-all to print every reading and rate update.

Alerts are answered automatically: the first choice is taken, and a port that
cannot be opened is retried every --retry-interval.

With --record, every event is also written to a file as a CBOR sequence that
can be printed later with the replay command.`,
	RunE: runPoll,
}

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().IntVar(&pollPage, "page", 1, "Page to poll (1-based)")
	pollCmd.Flags().DurationVar(&pollDuration, "duration", 0, "Stop after this long (0 runs until interrupted)")
	pollCmd.Flags().StringVar(&pollRecord, "record", "", "Record events to this file")
	pollCmd.Flags().BoolVar(&pollReset, "reset", true, "Reset the interface before polling")
	pollCmd.Flags().BoolVar(&pollShowAll, "show-all", false, "Print every reading, not just changes")
	pollCmd.Flags().IntVar(&pollStatsInterval, "stats-interval", 10, "Statistics summary interval in seconds (0 disables)")
	pollCmd.Flags().DurationVar(&pollRetryInterval, "retry-interval", 2*time.Second, "Delay between attempts to open the port")
}

func runPoll(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if pollDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pollDuration)
		defer cancel()
	}

	s := newPollSession(ctx, pollReset)
	defer s.close()

	var rec *recorder.Writer
	if pollRecord != "" {
		f, err := os.Create(pollRecord)
		if err != nil {
			return fmt.Errorf("failed to create recording: %w", err)
		}
		defer f.Close()
		rec = recorder.NewWriter(f)
	}

	fmt.Printf("obdstat - Poll\n")
	if s.connInfo != "" {
		fmt.Printf("Connection: %s\n", s.connInfo)
	}
	fmt.Printf("Units: %s\n", units)
	if rec != nil {
		fmt.Printf("Recording: %s\n", pollRecord)
	}
	fmt.Printf("Press Ctrl+C to exit\n\n")

	s.engine.Start(pollPage - 1)
	fmt.Print(obd.FormatPage(s.engine.Page(), s.catalog.PageCount()))
	fmt.Println()

	p := &textPoller{
		session:  s,
		recorder: rec,
		showAll:  pollShowAll,
		last:     make(map[int]string),

		lastAttempt: time.Now(),
	}

	ticker := time.NewTicker(config.TickInterval)
	defer ticker.Stop()

	var statsTicker <-chan time.Time
	if pollStatsInterval > 0 {
		t := time.NewTicker(time.Duration(pollStatsInterval) * time.Second)
		defer t.Stop()
		statsTicker = t.C
	}

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Print(s.engine.Stats().String())
			if rec != nil {
				fmt.Printf("Recorded %d events to %s\n", rec.Count(), pollRecord)
			}
			return nil

		case <-statsTicker:
			fmt.Print(s.engine.Stats().String())

		case now := <-ticker.C:
			// a reconnect asked for by the answer happens before the tick
			p.answerAlert(now)
			if err := p.flush(now); err != nil {
				return err
			}
			s.engine.Tick()
			if err := p.flush(now); err != nil {
				return err
			}
		}
	}
}

// textPoller prints and records engine events
type textPoller struct {
	session  *pollSession
	recorder *recorder.Writer
	showAll  bool
	last     map[int]string

	lastAttempt time.Time
}

// answerAlert takes the first choice of a pending alert. A closed port is
// reopened at most once per retry interval.
func (p *textPoller) answerAlert(now time.Time) {
	alert, pending := p.session.engine.Pending()
	if !pending {
		return
	}
	if alert.Kind == obd.AlertPortUnavailable && now.Sub(p.lastAttempt) < pollRetryInterval {
		return
	}
	if err := p.session.engine.Resolve(alert.Choices[0]); err != nil {
		logger.Warn().Err(err).Msg("failed to answer alert")
	}
}

func (p *textPoller) flush(now time.Time) error {
	for _, ev := range p.session.drain() {
		switch ev.(type) {
		case obd.ConfigurationRequested:
			p.lastAttempt = now
			if p.session.reconnect() {
				fmt.Printf("Connection: %s\n", p.session.connInfo)
				p.session.engine.RequestReset()
			}
			continue
		case obd.RedrawRequested:
			continue
		}

		if p.recorder != nil {
			if rec, ok := recorder.FromEvent(ev, p.session.catalog, now); ok {
				if err := p.recorder.Write(rec); err != nil {
					return err
				}
			}
		}

		if p.shouldPrint(ev) {
			fmt.Println(obd.FormatEvent(ev, p.session.catalog))
		}
	}
	return nil
}

func (p *textPoller) shouldPrint(ev obd.Event) bool {
	switch ev := ev.(type) {
	case obd.ValueUpdated:
		changed := p.last[ev.Index] != ev.Value
		p.last[ev.Index] = ev.Value
		return changed || p.showAll
	case obd.RateUpdated:
		return p.showAll
	default:
		return true
	}
}
