// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"

	"github.com/Thermoquad/obdstat/pkg/elm"
	"github.com/Thermoquad/obdstat/pkg/obd"
)

// pollSession wires the catalog, transport, clock and engine shared by the
// monitor and poll commands
type pollSession struct {
	catalog   *obd.Catalog
	transport *elm.Transport
	clock     *obd.QuantumClock
	engine    *obd.Engine
	metrics   *pollMetrics // nil unless --metrics-addr is set
	connInfo  string
	connErr   error

	events []obd.Event
	cancel context.CancelFunc
}

func newPollSession(ctx context.Context, resetOnStart bool) *pollSession {
	ctx, cancel := context.WithCancel(ctx)

	s := &pollSession{
		catalog:   obd.DefaultCatalog(),
		transport: elm.NewTransport(logger),
		clock:     obd.NewQuantumClock(obd.Quantum),
		cancel:    cancel,
	}
	store.LoadSensorStates(s.catalog)

	if metricsAddr != "" {
		s.metrics = newPollMetrics(s.catalog)
		s.metrics.Serve(ctx, metricsAddr, logger)
	}

	s.engine = obd.NewEngine(obd.Config{
		Catalog:        s.catalog,
		Transport:      s.transport,
		Clock:          s.clock,
		Units:          units,
		RequestTimeout: config.RequestTimeout,
		ResetOnStart:   resetOnStart,
		Logger:         logger,
		OnEvent:        s.push,
	})

	go s.clock.Run(ctx)

	// a failed open leaves the port closed; the engine asks what to do
	s.reconnect()
	return s
}

func (s *pollSession) push(ev obd.Event) {
	if s.metrics != nil {
		s.metrics.Observe(ev)
	}
	s.events = append(s.events, ev)
}

// drain returns and clears the events produced since the last call
func (s *pollSession) drain() []obd.Event {
	events := s.events
	s.events = nil
	if s.metrics != nil {
		s.metrics.Sync(s.engine.Stats())
	}
	return events
}

// reconnect opens the configured connection and attaches it
func (s *pollSession) reconnect() bool {
	conn, info, err := OpenConnection()
	if err != nil {
		s.connErr = err
		logger.Warn().Err(err).Str("port", portLabel()).Msg("connection failed")
		return false
	}

	s.connInfo = info
	s.connErr = nil
	s.transport.Attach(conn)
	logger.Info().Str("connection", info).Msg("connected")
	return true
}

// save stores the enabled flags and the active page
func (s *pollSession) save() {
	store.Set("page", s.engine.Page().Number)
	if err := store.SaveSensorStates(s.catalog); err != nil {
		logger.Warn().Err(err).Str("config", store.Path()).Msg("failed to save settings")
	}
}

func (s *pollSession) close() {
	s.cancel()
	if err := s.transport.Close(); err != nil {
		logger.Debug().Err(err).Msg("failed to close connection")
	}
}
