// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import "strings"

// State is the polling state machine state
type State int

const (
	ReadyToSend State = iota
	AwaitingResponse
)

// String returns the state name
func (s State) String() string {
	if s == AwaitingResponse {
		return "AWAITING_RESPONSE"
	}
	return "READY_TO_SEND"
}

// session is the polling state for one page activation
type session struct {
	state       State
	current     int // position within the page
	firstPrompt bool
	response    strings.Builder
	retry       RetryBudget
	timer       RequestTimer
}

func newSession(retries int, timer RequestTimer) *session {
	return &session{
		state:       ReadyToSend,
		firstPrompt: true,
		retry:       NewRetryBudget(retries),
		timer:       timer,
	}
}

// advance moves to the next channel on a page of n channels
func (s *session) advance(n int) {
	s.state = ReadyToSend
	if n <= 0 {
		s.current = 0
		return
	}
	s.current = (s.current + 1) % n
}

// abort drops the in-flight request without moving on
func (s *session) abort() {
	s.state = ReadyToSend
	s.timer.Stop()
	s.response.Reset()
}
