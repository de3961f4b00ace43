// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Frame errors
var (
	ErrNoFrame    = errors.New("no positive response frame")
	ErrShortFrame = errors.New("frame shorter than expected payload")
	ErrStaleFrame = errors.New("frame answers a different PID")
)

// Normalize converts a raw device response into delimiter-separated frames:
// spaces and the prompt are dropped, line breaks become FrameDelimiter and
// hex digits are upper-cased.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case ' ', PromptChar, 0:
		case '\r', '\n':
			b.WriteRune(FrameDelimiter)
		default:
			if r >= 'a' && r <= 'f' {
				r -= 'a' - 'A'
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ExtractFrame returns the first frame that starts with the positive response
// marker, up to but excluding the next FrameDelimiter. When no frame starts
// with the marker, the first occurrence of the marker anywhere in a frame is
// used instead so that noise glued to the front of a frame is skipped.
func ExtractFrame(text string) (string, bool) {
	frames := strings.Split(text, string(FrameDelimiter))

	for _, f := range frames {
		if strings.HasPrefix(f, PositiveMarker) {
			return f, true
		}
	}

	for _, f := range frames {
		if i := strings.Index(f, PositiveMarker); i >= 0 {
			return f[i:], true
		}
	}

	return "", false
}

// ParsePayload truncates frame to the marker, the echoed PID and bytes
// payload bytes, then parses the payload. Padding beyond the expected length
// is discarded.
func ParsePayload(frame string, bytes int) (int64, error) {
	want := 4 + 2*bytes
	if len(frame) < want {
		return 0, fmt.Errorf("%w: have %d digits, want %d", ErrShortFrame, len(frame), want)
	}

	payload := frame[4:want]
	v, err := strconv.ParseUint(payload, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("parse payload %q: %w", payload, err)
	}
	return int64(v), nil
}

// DecodeResponse runs the full positive-response path for one channel:
// normalize, extract, truncate, parse and decode. A frame whose echoed PID is
// not the one spec requests fails with ErrStaleFrame.
func DecodeResponse(raw string, spec ChannelSpec, units UnitSystem) (string, int64, error) {
	frame, ok := ExtractFrame(Normalize(raw))
	if !ok {
		return "", 0, ErrNoFrame
	}

	if len(frame) >= 4 && len(spec.Command) >= 4 && frame[2:4] != strings.ToUpper(spec.Command[2:4]) {
		return "", 0, fmt.Errorf("%w: got %s, want %s", ErrStaleFrame, frame[2:4], spec.Command[2:4])
	}

	v, err := ParsePayload(frame, spec.Bytes)
	if err != nil {
		return "", 0, err
	}

	return Decode(spec.Formula, v, units), v, nil
}
