// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Thermoquad/obdstat/pkg/obd"
)

// pollMetrics exports engine events and statistics to Prometheus
type pollMetrics struct {
	registry *prometheus.Registry
	catalog  *obd.Catalog

	channelRaw  *prometheus.GaugeVec
	available   *prometheus.GaugeVec
	rate        *prometheus.GaugeVec
	link        prometheus.Gauge
	alerts      *prometheus.CounterVec
	disconnects prometheus.Counter
	resets      prometheus.Counter
	engine      *prometheus.CounterVec

	last map[string]uint64
}

func newPollMetrics(c *obd.Catalog) *pollMetrics {
	m := &pollMetrics{
		registry: prometheus.NewRegistry(),
		catalog:  c,
		last:     make(map[string]uint64),
	}

	m.channelRaw = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "obd_channel_raw",
		Help: "Last raw payload value of a channel",
	}, []string{"idx", "command", "label"})
	m.available = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "obd_channel_available",
		Help: "1 when the channel returned a value on its last request",
	}, []string{"idx", "command", "label"})
	m.rate = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "obd_response_rate_hz",
		Help: "Response rate of the active page (Hz)",
	}, []string{"kind"})
	m.link = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "obd_link_verdict",
		Help: "Link verdict (0 not responding, 1 connected, 2 port unavailable)",
	})
	m.alerts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "obd_alerts_total",
		Help: "Alerts raised by kind",
	}, []string{"kind"})
	m.disconnects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obd_disconnects_total",
		Help: "Times the device stopped responding",
	})
	m.resets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obd_resets_total",
		Help: "Interface reset commands sent",
	})
	m.engine = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "obd_engine_events_total",
		Help: "Request outcomes counted by the polling engine",
	}, []string{"event"})

	m.registry.MustRegister(
		m.channelRaw, m.available, m.rate, m.link,
		m.alerts, m.disconnects, m.resets, m.engine,
	)
	return m
}

func (m *pollMetrics) channelLabels(index int) prometheus.Labels {
	labels := prometheus.Labels{"idx": strconv.Itoa(index), "command": "", "label": ""}
	if index >= 0 && index < m.catalog.Len() {
		ch := m.catalog.Channel(index)
		labels["command"] = ch.Command
		labels["label"] = ch.Label
	}
	return labels
}

// Observe updates metrics from one engine event
func (m *pollMetrics) Observe(ev obd.Event) {
	switch ev := ev.(type) {
	case obd.ValueUpdated:
		labels := m.channelLabels(ev.Index)
		if ev.Value == obd.ValueNotAvailable {
			m.available.With(labels).Set(0)
			return
		}
		m.available.With(labels).Set(1)
		m.channelRaw.With(labels).Set(float64(ev.Raw))
	case obd.RateUpdated:
		m.rate.WithLabelValues("instantaneous").Set(ev.Instantaneous)
		m.rate.WithLabelValues("average").Set(ev.Average)
	case obd.LinkChanged:
		m.link.Set(float64(ev.Verdict))
	case obd.AlertRaised:
		m.alerts.WithLabelValues(ev.Kind.String()).Inc()
	case obd.DisconnectDetected:
		m.disconnects.Inc()
	case obd.ResetIssued:
		m.resets.Inc()
	}
}

// Sync adds the statistics counted since the previous call
func (m *pollMetrics) Sync(s *obd.Statistics) {
	for name, value := range map[string]uint64{
		"request":      s.Requests,
		"response":     s.Responses,
		"no_data":      s.NoData,
		"bus_error":    s.BusErrors,
		"bus_busy":     s.BusBusy,
		"data_error":   s.DataErrors,
		"serial_error": s.SerialErrors,
		"timeout":      s.Timeouts,
		"retry":        s.Retries,
	} {
		delta := value - m.last[name]
		if value < m.last[name] {
			// statistics restarted with a new session
			delta = value
		}
		if delta > 0 {
			m.engine.WithLabelValues(name).Add(float64(delta))
		}
		m.last[name] = value
	}
}

// Serve exposes the registry on addr until ctx is cancelled
func (m *pollMetrics) Serve(ctx context.Context, addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info().Str("addr", addr).Msg("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server failed")
		}
	}()
}
