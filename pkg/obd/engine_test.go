// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Test Helpers
// ============================================================

type fakeRead struct {
	kind ReadKind
	text string
}

// fakeTransport records commands and plays back queued reads
type fakeTransport struct {
	status  PortStatus
	sent    []string
	reads   []fakeRead
	resets  int
	sendErr error
}

func (f *fakeTransport) Send(cmd string) error {
	f.sent = append(f.sent, cmd)
	return f.sendErr
}

func (f *fakeTransport) Poll() (ReadKind, string) {
	if len(f.reads) == 0 {
		return ReadEmpty, ""
	}
	r := f.reads[0]
	f.reads = f.reads[1:]
	return r.kind, r.text
}

func (f *fakeTransport) Status() PortStatus     { return f.status }
func (f *fakeTransport) SetStatus(s PortStatus) { f.status = s }

func (f *fakeTransport) Reset() error {
	f.resets++
	f.reads = nil
	return nil
}

func (f *fakeTransport) data(text string) {
	f.reads = append(f.reads, fakeRead{ReadData, text})
}

func (f *fakeTransport) reply(text string) {
	f.reads = append(f.reads, fakeRead{ReadPrompt, text})
}

type harness struct {
	engine    *Engine
	transport *fakeTransport
	clock     *QuantumClock
	catalog   *Catalog
	events    []Event
}

func newHarness(t *testing.T, specs []ChannelSpec) *harness {
	t.Helper()

	h := &harness{
		transport: &fakeTransport{},
		clock:     NewQuantumClock(Quantum),
		catalog:   NewCatalog(specs),
	}
	h.engine = NewEngine(Config{
		Catalog:        h.catalog,
		Transport:      h.transport,
		Clock:          h.clock,
		RequestTimeout: time.Second,
		Logger:         zerolog.Nop(),
		OnEvent:        func(ev Event) { h.events = append(h.events, ev) },
	})
	h.engine.Start(0)
	h.events = nil
	return h
}

// handshake sends the first request and answers it with the stale prompt
func (h *harness) handshake(t *testing.T) {
	t.Helper()
	h.engine.Tick()
	require.Equal(t, AwaitingResponse, h.engine.State())
	h.transport.reply("")
	h.engine.Tick()
	require.Equal(t, ReadyToSend, h.engine.State())
	require.False(t, h.engine.sess.firstPrompt)
}

// exchange sends the current request and answers it with response
func (h *harness) exchange(t *testing.T, response string) {
	t.Helper()
	h.engine.Tick()
	require.Equal(t, AwaitingResponse, h.engine.State())
	h.transport.reply(response)
	h.engine.Tick()
}

// timeout sends the current request and lets it expire
func (h *harness) timeout(t *testing.T) {
	t.Helper()
	h.engine.Tick()
	require.Equal(t, AwaitingResponse, h.engine.State())
	h.clock.Advance(100)
	h.engine.Tick()
}

func count[T Event](events []Event) int {
	n := 0
	for _, ev := range events {
		if _, ok := ev.(T); ok {
			n++
		}
	}
	return n
}

func alerts(events []Event) []AlertRaised {
	var out []AlertRaised
	for _, ev := range events {
		if a, ok := ev.(AlertRaised); ok {
			out = append(out, a)
		}
	}
	return out
}

func rpmSpecs() []ChannelSpec {
	return []ChannelSpec{
		{"Engine RPM:", "010C", 2, FormulaEngineRPM},
		{"Vehicle Speed:", "010D", 1, FormulaVehicleSpeed},
	}
}

// ============================================================
// Positive / No Data
// ============================================================

func TestEngine_DecodesPaddedFrame(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)

	h.exchange(t, "010C\r41 0C 1A F8 00 00\r\r")

	assert.Equal(t, "1726 r/min", h.catalog.Channel(0).Value)
	assert.Equal(t, []string{"010C", "010C"}, h.transport.sent, "handshake resends the same request")
	assert.Equal(t, 1, h.engine.Current(), "advanced to next channel")
	assert.Equal(t, 3, h.engine.sess.retry.Remaining())
	assert.Contains(t, h.events, Event(ValueUpdated{Index: 0, Value: "1726 r/min", Raw: 6904}))
	assert.Equal(t, LinkConnected, h.engine.Verdict())
}

func TestEngine_UsesUnitSystem(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.engine.SetUnits(Imperial)
	h.handshake(t)

	h.exchange(t, "41 0C 1A F8\r")
	h.exchange(t, "41 0D 64\r")

	assert.Equal(t, "1726 rpm", h.catalog.Channel(0).Value)
	assert.Equal(t, "62 mph", h.catalog.Channel(1).Value)
	assert.Equal(t, 0, h.engine.Current(), "wraps to start of page")
}

func TestEngine_NoDataAdvances(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)
	h.engine.sess.retry.Consume()

	h.exchange(t, "NO DATA\r\r")

	assert.Equal(t, ValueNotAvailable, h.catalog.Channel(0).Value)
	assert.Equal(t, 1, h.engine.Current())
	assert.Equal(t, 3, h.engine.sess.retry.Remaining())
	assert.Empty(t, alerts(h.events))
}

func TestEngine_ShortFrameIsNoData(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)

	h.exchange(t, "41 0C 1A\r")

	assert.Equal(t, ValueNotAvailable, h.catalog.Channel(0).Value)
	assert.Equal(t, 1, h.engine.Current())
	assert.Equal(t, uint64(1), h.engine.Stats().NoData)
}

func TestEngine_AccumulatesChunks(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)

	h.engine.Tick()
	h.transport.data("41 0C ")
	h.engine.Tick()
	h.transport.data("1A ")
	h.engine.Tick()
	assert.Equal(t, AwaitingResponse, h.engine.State())
	h.transport.reply("F8\r")
	h.engine.Tick()

	assert.Equal(t, "1726 r/min", h.catalog.Channel(0).Value)
}

// ============================================================
// Errors and Retries
// ============================================================

func TestEngine_BusErrorAlertsImmediately(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)
	h.engine.sess.retry.Consume()

	h.exchange(t, "BUS ERROR\r\r")

	got := alerts(h.events)
	require.Len(t, got, 1)
	assert.Equal(t, AlertBusError, got[0].Kind)
	assert.Equal(t, []Choice{ChoiceOK}, got[0].Choices)
	assert.Equal(t, 0, h.engine.Current(), "not advanced")
	assert.Equal(t, 3, h.engine.sess.retry.Remaining())
	assert.Equal(t, ValueNotAvailable, h.catalog.Channel(0).Value)

	// paused until answered
	sent := len(h.transport.sent)
	h.engine.Tick()
	assert.Len(t, h.transport.sent, sent)

	require.NoError(t, h.engine.Resolve(ChoiceOK))
	h.engine.Tick()
	assert.Equal(t, "010C", h.transport.sent[len(h.transport.sent)-1])
}

func TestEngine_BusBusyRetriesThenAlertsOnce(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)

	h.exchange(t, "BUS BUSY\r\r")
	h.exchange(t, "BUS BUSY\r\r")
	assert.Empty(t, alerts(h.events), "silent retries")
	assert.Equal(t, 0, h.engine.Current())

	h.exchange(t, "BUS BUSY\r\r")

	got := alerts(h.events)
	require.Len(t, got, 1)
	assert.Equal(t, AlertBusBusy, got[0].Kind)
	assert.Equal(t, 3, h.engine.sess.retry.Remaining())
	assert.Equal(t, 0, h.engine.Current(), "not advanced after alert")
	assert.Equal(t, []string{"010C", "010C", "010C", "010C"}, h.transport.sent)
	assert.Equal(t, uint64(2), h.engine.Stats().Retries)
}

func TestEngine_RetryBudgetShared(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)

	h.exchange(t, "DATA ERROR\r\r")
	assert.Equal(t, 2, h.engine.sess.retry.Remaining())
	h.exchange(t, "41 0C 00 00\r")
	assert.Equal(t, 3, h.engine.sess.retry.Remaining(), "restored after success")

	h.exchange(t, "?\r\r")
	h.exchange(t, "?\r\r")
	assert.Empty(t, alerts(h.events))
	h.exchange(t, "ELM327 v1.5\r\r")

	got := alerts(h.events)
	require.Len(t, got, 1)
	assert.Equal(t, AlertSerialError, got[0].Kind)
	assert.GreaterOrEqual(t, h.engine.sess.retry.Remaining(), 0)
}

// ============================================================
// Timeouts and Link Loss
// ============================================================

func TestEngine_ThreeTimeoutsOneDisconnect(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.transport.status = PortReady

	h.timeout(t)
	h.timeout(t)
	assert.Equal(t, 2, h.engine.link.ConsecutiveTimeouts())
	assert.Zero(t, count[DisconnectDetected](h.events))

	h.timeout(t)

	assert.Equal(t, 1, count[DisconnectDetected](h.events))
	got := alerts(h.events)
	require.Len(t, got, 1)
	assert.Equal(t, AlertDeviceNotResponding, got[0].Kind)
	assert.Equal(t, []Choice{ChoiceOK, ChoiceConfigure, ChoiceSuppress}, got[0].Choices)
	assert.Equal(t, 0, h.engine.link.ConsecutiveTimeouts())
	assert.Equal(t, LinkNotResponding, h.engine.Verdict())
	assert.Equal(t, ValueNotAvailable, h.catalog.Channel(0).Value)
}

func TestEngine_TimeoutAdvances(t *testing.T) {
	h := newHarness(t, rpmSpecs())

	h.timeout(t)

	assert.Equal(t, 1, h.engine.Current())
	assert.Equal(t, ReadyToSend, h.engine.State())
	assert.Equal(t, 1, count[RedrawRequested](h.events))
}

func TestEngine_SuppressDisconnectAlerts(t *testing.T) {
	h := newHarness(t, rpmSpecs())

	for i := 0; i < 3; i++ {
		h.timeout(t)
	}
	require.NoError(t, h.engine.Resolve(ChoiceSuppress))

	// survives a page change
	h.engine.SetPage(0)
	h.events = nil
	for i := 0; i < 3; i++ {
		h.timeout(t)
	}

	assert.Equal(t, 1, count[DisconnectDetected](h.events))
	assert.Empty(t, alerts(h.events))

	// but not a new session
	h.engine.Start(0)
	h.events = nil
	for i := 0; i < 3; i++ {
		h.timeout(t)
	}
	assert.Len(t, alerts(h.events), 1)
}

func TestEngine_ConfigureRequestsConfiguration(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	for i := 0; i < 3; i++ {
		h.timeout(t)
	}

	require.NoError(t, h.engine.Resolve(ChoiceConfigure))
	assert.Equal(t, 1, count[ConfigurationRequested](h.events))
	_, pending := h.engine.Pending()
	assert.False(t, pending)
}

func TestEngine_PromptResetsTimeouts(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.timeout(t)
	h.timeout(t)

	h.exchange(t, "")
	assert.Equal(t, 0, h.engine.link.ConsecutiveTimeouts())
	assert.Equal(t, LinkConnected, h.engine.Verdict())
}

func TestEngine_AllDisabledResetsTimeouts(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.timeout(t)
	h.timeout(t)

	h.engine.SetAllOnPage(false)
	assert.Equal(t, 0, h.engine.link.ConsecutiveTimeouts())
	assert.Equal(t, ValueNotMonitoring, h.catalog.Channel(0).Value)
}

func TestEngine_SendFailureTimesOut(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.transport.sendErr = errors.New("write failed")

	h.timeout(t)

	assert.Equal(t, uint64(1), h.engine.Stats().Timeouts)
	assert.Equal(t, 1, h.engine.Current())
}

// ============================================================
// Port Status
// ============================================================

func TestEngine_PortUnavailablePrompt(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.transport.status = PortNotOpen

	h.engine.Tick()
	got := alerts(h.events)
	require.Len(t, got, 1)
	assert.Equal(t, AlertPortUnavailable, got[0].Kind)
	assert.Equal(t, LinkPortUnavailable, h.engine.Verdict())
	assert.Empty(t, h.transport.sent)

	require.NoError(t, h.engine.Resolve(ChoiceConfigure))
	assert.Equal(t, 1, count[ConfigurationRequested](h.events))
	_, ok := h.engine.Pending()
	assert.False(t, ok)

	// still not open after configuring: asked again
	h.engine.Tick()
	pending, ok := h.engine.Pending()
	require.True(t, ok)
	assert.Equal(t, AlertPortUnavailable, pending.Kind)

	require.NoError(t, h.engine.Resolve(ChoiceIgnore))
	assert.Equal(t, PortUserIgnored, h.transport.status)

	h.engine.Tick()
	h.engine.Tick()
	assert.Empty(t, h.transport.sent, "ignored port is never written")
	assert.Len(t, alerts(h.events), 2)
}

func TestEngine_PortOpenedByConfiguration(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.transport.status = PortNotOpen
	h.engine.onEvent = func(ev Event) {
		if _, ok := ev.(ConfigurationRequested); ok {
			h.transport.status = PortReady
		}
	}

	h.engine.Tick()
	require.NoError(t, h.engine.Resolve(ChoiceConfigure))
	_, pending := h.engine.Pending()
	assert.False(t, pending)

	h.engine.Tick()
	assert.Equal(t, []string{"010C"}, h.transport.sent)
}

func TestEngine_ResolveErrors(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	assert.ErrorIs(t, h.engine.Resolve(ChoiceOK), ErrNoPrompt)

	h.transport.status = PortNotOpen
	h.engine.Tick()
	assert.ErrorIs(t, h.engine.Resolve(ChoiceSuppress), ErrInvalidChoice)
}

// ============================================================
// Enable / Disable
// ============================================================

func TestEngine_SkipsDisabledChannels(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.engine.SetEnabled(0, false)

	h.engine.Tick()
	assert.Empty(t, h.transport.sent)
	assert.Equal(t, 1, h.engine.Current())

	h.engine.Tick()
	assert.Equal(t, []string{"010D"}, h.transport.sent)
}

func TestEngine_DisabledWhileAwaiting(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.engine.Tick()
	require.Equal(t, AwaitingResponse, h.engine.State())

	h.engine.SetEnabled(0, false)
	h.clock.Advance(1000) // would have timed out
	h.engine.Tick()

	assert.Equal(t, ReadyToSend, h.engine.State())
	assert.Equal(t, 1, h.engine.Current())
	assert.Equal(t, uint64(0), h.engine.Stats().Timeouts)
	assert.Equal(t, ValueNotMonitoring, h.catalog.Channel(0).Value)
}

func TestEngine_AbandonedReplyDiscarded(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)

	h.engine.Tick()
	require.Equal(t, AwaitingResponse, h.engine.State())
	h.engine.SetEnabled(0, false)
	h.engine.Tick()
	require.Equal(t, 1, h.engine.Current())

	// speed is requested before the RPM reply arrives
	h.engine.Tick()
	h.transport.reply("010C\r41 0C 1A F8\r\r")
	h.engine.Tick()

	assert.Equal(t, ValueNotAvailable, h.catalog.Channel(1).Value)
	assert.Equal(t, 1, h.engine.Current())
	assert.Equal(t, ReadyToSend, h.engine.State())

	h.exchange(t, "41 0D 28\r")
	assert.Equal(t, "40 km/h", h.catalog.Channel(1).Value)
	assert.Equal(t, []string{"010C", "010C", "010D", "010D"}, h.transport.sent)
	assert.Equal(t, 0, count[AlertRaised](h.events))
}

func TestEngine_StaleReplyAsksAgain(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)
	h.exchange(t, "41 0C 1A F8\r")

	h.exchange(t, "41 0C 0B B8\r")
	assert.Equal(t, ValueNotAvailable, h.catalog.Channel(1).Value)
	assert.Equal(t, 1, h.engine.Current(), "stays on the channel")
	assert.Equal(t, 2, h.engine.sess.retry.Remaining())

	h.exchange(t, "41 0D 28\r")
	assert.Equal(t, "40 km/h", h.catalog.Channel(1).Value)
	assert.Equal(t, 3, h.engine.sess.retry.Remaining())
}

func TestEngine_StaleRepliesExhaustAsNoData(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)
	h.exchange(t, "41 0C 1A F8\r")

	for i := 0; i < 3; i++ {
		h.exchange(t, "41 0C 0B B8\r")
	}

	assert.Equal(t, ValueNotAvailable, h.catalog.Channel(1).Value)
	assert.Equal(t, 0, h.engine.Current(), "moved on without decoding")
	assert.Empty(t, alerts(h.events))
}

func TestEngine_AllOffRateLatch(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)
	h.exchange(t, "41 0C 1A F8\r")
	require.True(t, h.engine.rate.Initialized())

	h.engine.SetAllOnPage(false)
	h.events = nil
	for i := 0; i < 6; i++ {
		h.engine.Tick()
	}

	require.Equal(t, 1, count[RateUpdated](h.events))
	inst, avg := h.engine.Rates()
	assert.Zero(t, inst)
	assert.Zero(t, avg)

	h.engine.SetEnabled(0, true)
	h.events = nil
	for h.engine.Current() != 0 || h.engine.State() != ReadyToSend {
		h.engine.Tick()
	}
	h.engine.Tick()
	h.clock.Advance(5)
	h.transport.reply("41 0C 1A F8\r")
	h.engine.Tick()

	inst, _ = h.engine.Rates()
	assert.InDelta(t, 20.0, inst, 1e-9)
	assert.Equal(t, 1, count[RateUpdated](h.events))
}

// ============================================================
// Paging and Reset
// ============================================================

func TestEngine_PageChangeDiscardsResponse(t *testing.T) {
	h := newHarness(t, DefaultChannels)
	h.handshake(t)

	h.engine.Tick()
	h.transport.data("41 0C 1A")
	h.engine.Tick()
	require.NotZero(t, h.engine.sess.response.Len())

	h.engine.SetPage(1)

	assert.Equal(t, 1, h.engine.Page().Number)
	assert.Equal(t, ReadyToSend, h.engine.State())
	assert.Zero(t, h.engine.sess.response.Len())
	assert.Equal(t, 0, h.engine.sess.current)
	assert.True(t, h.engine.sess.firstPrompt)
	assert.False(t, h.engine.rate.Initialized())
	assert.Equal(t, 9, h.engine.Current())

	h.engine.Tick()
	assert.Equal(t, "0106", h.transport.sent[len(h.transport.sent)-1])
}

func TestEngine_SetPageClamps(t *testing.T) {
	h := newHarness(t, DefaultChannels)
	h.engine.SetPage(100)
	assert.Equal(t, 7, h.engine.Page().Number)
}

func TestEngine_EmptyCatalogIdles(t *testing.T) {
	h := newHarness(t, nil)
	h.transport.status = PortReady

	for i := 0; i < 3; i++ {
		h.engine.Tick()
	}

	assert.Equal(t, 0, h.engine.Page().Len())
	assert.Equal(t, -1, h.engine.Current())
	assert.Equal(t, ReadyToSend, h.engine.State())
	assert.Empty(t, h.transport.sent)
}

func TestEngine_HardwareReset(t *testing.T) {
	h := newHarness(t, rpmSpecs())
	h.handshake(t)
	h.engine.Tick()
	h.transport.data("41 0C")
	h.engine.Tick()

	h.engine.RequestReset()
	sent := len(h.transport.sent)
	h.engine.Tick()

	assert.Equal(t, 1, h.transport.resets)
	assert.Len(t, h.transport.sent, sent, "no request on the reset tick")
	assert.Equal(t, ReadyToSend, h.engine.State())
	assert.Zero(t, h.engine.sess.response.Len())
	assert.True(t, h.engine.sess.firstPrompt)
	assert.Equal(t, 0, h.engine.Current())
	assert.Equal(t, 1, count[ResetIssued](h.events))
}

func TestEngine_ResetOnStart(t *testing.T) {
	ft := &fakeTransport{}
	e := NewEngine(Config{
		Catalog:      NewCatalog(rpmSpecs()),
		Transport:    ft,
		ResetOnStart: true,
		Logger:       zerolog.Nop(),
	})
	e.Start(0)

	e.Tick()
	assert.Equal(t, 1, ft.resets)
	assert.Empty(t, ft.sent)

	e.Tick()
	assert.Equal(t, []string{"010C"}, ft.sent)
}
