// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package recorder stores polling sessions as a CBOR sequence of records
package recorder

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/Thermoquad/obdstat/pkg/obd"
)

// Kind identifies the record type
type Kind uint8

const (
	KindValue Kind = iota + 1
	KindRate
	KindAlert
	KindLink
	KindReset
	KindDisconnect
)

// String returns the record kind name
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "VALUE"
	case KindRate:
		return "RATE"
	case KindAlert:
		return "ALERT"
	case KindLink:
		return "LINK"
	case KindReset:
		return "RESET"
	case KindDisconnect:
		return "DISCONNECT"
	default:
		return "UNKNOWN"
	}
}

// Record is one recorded engine event
type Record struct {
	Time    int64   `cbor:"0,keyasint"` // unix milliseconds
	Kind    Kind    `cbor:"1,keyasint"`
	Index   int     `cbor:"2,keyasint,omitempty"`
	Command string  `cbor:"3,keyasint,omitempty"`
	Value   string  `cbor:"4,keyasint,omitempty"`
	Raw     int64   `cbor:"5,keyasint,omitempty"`
	Inst    float64 `cbor:"6,keyasint,omitempty"`
	Avg     float64 `cbor:"7,keyasint,omitempty"`
	Text    string  `cbor:"8,keyasint,omitempty"` // alert kind, link verdict or error
}

// Timestamp returns the record time
func (r Record) Timestamp() time.Time {
	return time.UnixMilli(r.Time)
}

// FromEvent converts an engine event into a record. Events that carry no
// data (redraw, configuration) report false.
func FromEvent(ev obd.Event, c *obd.Catalog, now time.Time) (Record, bool) {
	rec := Record{Time: now.UnixMilli()}

	switch ev := ev.(type) {
	case obd.ValueUpdated:
		rec.Kind = KindValue
		rec.Index = ev.Index
		rec.Value = ev.Value
		rec.Raw = ev.Raw
		if c != nil && ev.Index >= 0 && ev.Index < c.Len() {
			rec.Command = c.Channel(ev.Index).Command
		}
	case obd.RateUpdated:
		rec.Kind = KindRate
		rec.Inst = ev.Instantaneous
		rec.Avg = ev.Average
	case obd.AlertRaised:
		rec.Kind = KindAlert
		rec.Text = ev.Kind.String()
	case obd.LinkChanged:
		rec.Kind = KindLink
		rec.Text = ev.Verdict.String()
	case obd.ResetIssued:
		rec.Kind = KindReset
		if ev.Err != nil {
			rec.Text = ev.Err.Error()
		}
	case obd.DisconnectDetected:
		rec.Kind = KindDisconnect
	default:
		return Record{}, false
	}

	return rec, true
}

// Writer appends records to a CBOR sequence
type Writer struct {
	enc   *cbor.Encoder
	count int
}

// NewWriter creates a writer on w
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: cbor.NewEncoder(w)}
}

// Write appends one record
func (w *Writer) Write(rec Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Reader reads records from a CBOR sequence
type Reader struct {
	dec *cbor.Decoder
}

// NewReader creates a reader on r
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the sequence
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("failed to decode record: %w", err)
	}
	return rec, nil
}

// Format returns a one-line description of a record
func Format(rec Record) string {
	timestamp := rec.Timestamp().Format("15:04:05.000")

	switch rec.Kind {
	case KindValue:
		return fmt.Sprintf("[%s] %s #%d %s = %s", timestamp, rec.Kind, rec.Index, rec.Command, rec.Value)
	case KindRate:
		inst, avg := obd.FormatRates(rec.Inst, rec.Avg)
		return fmt.Sprintf("[%s] %s %s, %s", timestamp, rec.Kind, inst, avg)
	case KindDisconnect:
		return fmt.Sprintf("[%s] %s", timestamp, rec.Kind)
	default:
		return fmt.Sprintf("[%s] %s %s", timestamp, rec.Kind, rec.Text)
	}
}
