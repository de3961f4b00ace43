// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// Alert resolution errors
var (
	ErrNoPrompt      = errors.New("no alert is waiting for an answer")
	ErrInvalidChoice = errors.New("choice not offered by alert")
)

// Config configures an Engine
type Config struct {
	Catalog   *Catalog
	Transport Transport
	Clock     *QuantumClock // shared with the host's ticker goroutine
	Units     UnitSystem

	RequestTimeout  time.Duration // default DefaultRequestTimeout
	Retries         int           // default RetryBudgetSize
	DisconnectAfter int           // default TimeoutsBeforeDisconnect

	// ResetOnStart sends the interface reset command on the first tick
	ResetOnStart bool

	Logger  zerolog.Logger
	OnEvent func(Event)
}

// Engine polls the enabled channels of one catalog page, one request at a time.
// All methods must be called from the same goroutine.
type Engine struct {
	catalog   *Catalog
	transport Transport
	clock     *QuantumClock
	units     UnitSystem
	timeout   time.Duration
	retries   int
	log       zerolog.Logger
	onEvent   func(Event)

	page  Page
	sess  *session
	rate  *RateEstimator
	link  LinkMonitor
	stats *Statistics

	ignoreDisconnect bool // user suppressed lost-device alerts until the next Start
	resetPending     bool
	resetOnStart     bool
	alerts           []AlertRaised
}

// NewEngine creates an engine on page 0. Call Start before the first Tick.
func NewEngine(cfg Config) *Engine {
	if cfg.Clock == nil {
		cfg.Clock = NewQuantumClock(Quantum)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Retries <= 0 {
		cfg.Retries = RetryBudgetSize
	}
	if cfg.DisconnectAfter <= 0 {
		cfg.DisconnectAfter = TimeoutsBeforeDisconnect
	}

	e := &Engine{
		catalog:      cfg.Catalog,
		transport:    cfg.Transport,
		clock:        cfg.Clock,
		units:        cfg.Units,
		timeout:      cfg.RequestTimeout,
		retries:      cfg.Retries,
		log:          cfg.Logger.With().Str("component", "engine").Logger(),
		onEvent:      cfg.OnEvent,
		rate:         NewRateEstimator(cfg.Clock),
		link:         NewLinkMonitor(cfg.DisconnectAfter),
		stats:        NewStatistics(),
		resetOnStart: cfg.ResetOnStart,
	}
	e.SetPage(0)
	return e
}

// Start begins a monitoring session on page
func (e *Engine) Start(page int) {
	e.ignoreDisconnect = false
	e.alerts = nil
	e.resetPending = e.resetOnStart
	e.link = NewLinkMonitor(e.link.threshold)
	e.stats.Reset()
	e.SetPage(page)

	e.log.Info().
		Int("page", e.page.Number).
		Int("channels", e.page.Len()).
		Bool("reset", e.resetPending).
		Msg("polling started")
}

// SetPage switches to page n (clamped to the catalog). The in-flight request,
// the response buffer and the rate state are discarded. An empty catalog
// leaves the engine idle.
func (e *Engine) SetPage(n int) {
	if e.sess != nil {
		e.sess.timer.Stop()
	}

	if e.catalog.PageCount() == 0 {
		e.page = Page{}
	} else {
		e.page = e.catalog.Page(e.catalog.ClampPage(n))
	}
	e.sess = newSession(e.retries, NewRequestTimer(e.clock, e.timeout))
	e.rate.Reset()
	e.link.ResetTimeouts()

	e.log.Debug().Int("page", e.page.Number).Msg("page activated")
	e.emit(RateUpdated{})
	e.emit(RedrawRequested{})
}

// Page returns the active page
func (e *Engine) Page() Page {
	return e.page
}

// State returns the state machine state
func (e *Engine) State() State {
	return e.sess.state
}

// Current returns the catalog index of the channel being polled
func (e *Engine) Current() int {
	if e.page.Len() == 0 {
		return -1
	}
	return e.page.At(e.sess.current).Index
}

// Verdict returns the link verdict
func (e *Engine) Verdict() LinkVerdict {
	return e.link.Verdict()
}

// Rates returns the instantaneous and average response rates in Hz
func (e *Engine) Rates() (float64, float64) {
	return e.rate.Instantaneous(), e.rate.Average()
}

// Stats returns the outcome counters of the current session
func (e *Engine) Stats() *Statistics {
	return e.stats
}

// Units returns the unit system used for new values
func (e *Engine) Units() UnitSystem {
	return e.units
}

// SetUnits changes the unit system used for new values
func (e *Engine) SetUnits(u UnitSystem) {
	e.units = u
}

// Pending returns the alert waiting for an answer, if any
func (e *Engine) Pending() (AlertRaised, bool) {
	if len(e.alerts) == 0 {
		return AlertRaised{}, false
	}
	return e.alerts[0], true
}

// RequestReset asks for the interface reset command to be sent on the next tick
func (e *Engine) RequestReset() {
	e.resetPending = true
}

// SetEnabled enables or disables a channel
func (e *Engine) SetEnabled(index int, on bool) {
	e.catalog.SetEnabled(index, on)
	e.afterToggle()
	e.emit(ValueUpdated{Index: index, Value: e.catalog.Channel(index).Value})
	e.emit(RedrawRequested{})
}

// SetAllOnPage enables or disables every channel on the active page
func (e *Engine) SetAllOnPage(on bool) {
	for _, ch := range e.page.Channels {
		if ch.Enabled != on {
			e.catalog.SetEnabled(ch.Index, on)
			e.emit(ValueUpdated{Index: ch.Index, Value: ch.Value})
		}
	}
	e.afterToggle()
	e.emit(RedrawRequested{})
}

func (e *Engine) afterToggle() {
	// nothing on the page can time out any more
	if e.page.AllDisabled() {
		e.link.ResetTimeouts()
	}
}

// Resolve answers the pending alert and resumes polling. A port that is still
// closed after ChoiceConfigure is reported again on the next Tick.
func (e *Engine) Resolve(choice Choice) error {
	if len(e.alerts) == 0 {
		return ErrNoPrompt
	}

	alert := e.alerts[0]
	if !slices.Contains(alert.Choices, choice) {
		return fmt.Errorf("%w: %s for %s", ErrInvalidChoice, choice, alert.Kind)
	}
	e.alerts = e.alerts[1:]

	e.log.Debug().Str("alert", alert.Kind.String()).Str("choice", choice.String()).Msg("alert resolved")

	switch choice {
	case ChoiceConfigure:
		e.emit(ConfigurationRequested{})
	case ChoiceSuppress:
		e.ignoreDisconnect = true
	case ChoiceIgnore:
		e.transport.SetStatus(PortUserIgnored)
		e.observePort(PortUserIgnored)
	}

	return nil
}

// Tick advances the state machine by at most one step
func (e *Engine) Tick() {
	if len(e.alerts) > 0 {
		return
	}

	if e.resetPending {
		e.hardwareReset()
		return
	}

	status := e.transport.Status()
	e.observePort(status)

	switch e.sess.state {
	case ReadyToSend:
		switch status {
		case PortNotOpen:
			e.raise(AlertPortUnavailable)
		case PortReady:
			e.send()
		}
	case AwaitingResponse:
		e.receive(status)
	}
}

func (e *Engine) current() *Channel {
	return e.page.At(e.sess.current)
}

func (e *Engine) send() {
	if e.page.Len() == 0 {
		return
	}

	ch := e.current()
	if !ch.Enabled {
		e.sampleRate(SampleOff)
		e.sess.advance(e.page.Len())
		return
	}

	e.sess.response.Reset()
	if err := e.transport.Send(ch.Command); err != nil {
		// left to the request timeout
		e.log.Warn().Err(err).Str("command", ch.Command).Msg("send failed")
	}
	e.stats.Requests++
	e.sess.timer.Start()
	e.sess.state = AwaitingResponse

	e.log.Trace().Int("channel", ch.Index).Str("command", ch.Command).Msg("request sent")
}

func (e *Engine) receive(status PortStatus) {
	ch := e.current()
	if !ch.Enabled {
		// the abandoned reply is still on its way; drop its prompt
		e.sess.abort()
		e.sess.firstPrompt = true
		e.sampleRate(SampleOff)
		e.sess.advance(e.page.Len())
		return
	}

	if status == PortReady {
		kind, text := e.transport.Poll()
		switch kind {
		case ReadData:
			e.sess.response.WriteString(text)
		case ReadPrompt:
			e.sess.response.WriteString(text)
			e.handlePrompt(ch)
			return
		}
	}

	if e.sess.timer.Expired() {
		e.handleTimeout(ch)
	}
}

func (e *Engine) handlePrompt(ch *Channel) {
	e.sess.timer.Stop()
	e.sess.state = ReadyToSend
	if e.link.PromptSeen() {
		e.emit(LinkChanged{Verdict: e.link.Verdict()})
	}

	raw := e.sess.response.String()
	e.sess.response.Reset()

	if e.sess.firstPrompt {
		// handshake prompt left over from before this page; ask again
		e.sess.firstPrompt = false
		e.log.Debug().Str("response", raw).Msg("discarded handshake prompt")
		return
	}

	kind := Classify(ch.Command, raw)
	if kind == ResponsePositive {
		value, v, err := DecodeResponse(raw, ch.ChannelSpec, e.units)
		if errors.Is(err, ErrStaleFrame) && e.sess.retry.Consume() {
			e.stats.Retries++
			e.log.Debug().Err(err).Str("command", ch.Command).Msg("stale reply, asking again")
			return
		}
		if err == nil {
			e.stats.RecordResponse(kind)
			e.catalog.SetValue(ch.Index, value)
			e.sampleRate(SampleActive)
			e.sess.advance(e.page.Len())
			e.sess.retry.Reset()

			e.log.Trace().Int("channel", ch.Index).Int64("raw", v).Str("value", value).Msg("value decoded")
			e.emit(ValueUpdated{Index: ch.Index, Value: value, Raw: v})
			e.emit(RedrawRequested{})
			return
		}
		e.log.Debug().Err(err).Str("response", raw).Msg("no usable frame")
		kind = ResponseNoData
	}

	e.stats.RecordResponse(kind)
	e.catalog.SetValue(ch.Index, ValueNotAvailable)
	e.emit(ValueUpdated{Index: ch.Index, Value: ValueNotAvailable})
	e.sampleRate(SampleNotAvailable)

	switch {
	case kind == ResponseNoData:
		e.sess.advance(e.page.Len())
		e.sess.retry.Reset()

	case kind == ResponseBusError:
		e.log.Warn().Str("command", ch.Command).Msg("bus error")
		e.raise(AlertBusError)
		e.sess.retry.Reset()

	default:
		if e.sess.retry.Consume() {
			e.stats.Retries++
			e.log.Debug().
				Str("command", ch.Command).
				Str("kind", kind.String()).
				Int("remaining", e.sess.retry.Remaining()).
				Msg("retrying")
			return
		}
		e.log.Warn().Str("command", ch.Command).Str("kind", kind.String()).Msg("retries exhausted")
		e.raise(kind.Alert())
		e.sess.retry.Reset()
	}

	e.emit(RedrawRequested{})
}

func (e *Engine) handleTimeout(ch *Channel) {
	e.sess.timer.Stop()
	e.sess.state = ReadyToSend
	e.sess.response.Reset()
	e.stats.Timeouts++

	e.catalog.SetValue(ch.Index, ValueNotAvailable)
	e.emit(ValueUpdated{Index: ch.Index, Value: ValueNotAvailable})

	before := e.link.Verdict()
	if e.link.Timeout() {
		e.stats.Disconnects++
		e.log.Warn().Int("after", e.link.threshold).Msg("device not responding")
		if before != e.link.Verdict() {
			e.emit(LinkChanged{Verdict: e.link.Verdict()})
		}
		e.emit(DisconnectDetected{})
		if !e.ignoreDisconnect {
			e.raise(AlertDeviceNotResponding)
		}
	}

	if e.transport.Status() == PortNotOpen {
		e.raise(AlertPortUnavailable)
	}

	e.sess.advance(e.page.Len())
	e.emit(RedrawRequested{})
}

func (e *Engine) hardwareReset() {
	e.resetPending = false
	e.sess.abort()
	e.sess.firstPrompt = true
	e.stats.Resets++

	err := e.transport.Reset()
	if err != nil {
		e.log.Warn().Err(err).Msg("interface reset failed")
	} else {
		e.log.Info().Msg("interface reset")
	}
	e.emit(ResetIssued{Err: err})
}

func (e *Engine) sampleRate(state SampleState) {
	if e.rate.Sample(state, e.page.Len(), e.page.DisabledCount()) {
		e.emit(RateUpdated{Instantaneous: e.rate.Instantaneous(), Average: e.rate.Average()})
	}
}

func (e *Engine) observePort(status PortStatus) {
	if e.link.ObservePort(status) {
		e.emit(LinkChanged{Verdict: e.link.Verdict()})
	}
}

func (e *Engine) raise(kind AlertKind) {
	alert := AlertRaised{Kind: kind, Choices: choicesFor(kind)}
	e.alerts = append(e.alerts, alert)
	e.stats.Alerts++
	e.emit(alert)
}

func (e *Engine) emit(ev Event) {
	if e.onEvent != nil {
		e.onEvent(ev)
	}
}
