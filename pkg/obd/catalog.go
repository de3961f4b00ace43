// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import "fmt"

// Channel is one monitored telemetry item
type Channel struct {
	ChannelSpec
	Index   int
	Enabled bool
	Value   string
}

// Catalog is the ordered channel table shared by the engine and the host.
// It is built once and never reallocated; only enabled flags and values change.
type Catalog struct {
	channels []*Channel
}

// NewCatalog builds a catalog from specs with every channel enabled
func NewCatalog(specs []ChannelSpec) *Catalog {
	c := &Catalog{channels: make([]*Channel, len(specs))}
	for i, spec := range specs {
		c.channels[i] = &Channel{
			ChannelSpec: spec,
			Index:       i,
			Enabled:     true,
			Value:       ValueNotAvailable,
		}
	}
	return c
}

// DefaultCatalog builds a catalog over DefaultChannels
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultChannels)
}

// Len returns the number of channels
func (c *Catalog) Len() int {
	return len(c.channels)
}

// Channel returns the channel at index i. Out of range indexes panic.
func (c *Catalog) Channel(i int) *Channel {
	return c.channels[i]
}

// Channels returns every channel in index order
func (c *Catalog) Channels() []*Channel {
	out := make([]*Channel, len(c.channels))
	copy(out, c.channels)
	return out
}

// PageCount returns the number of pages
func (c *Catalog) PageCount() int {
	return (len(c.channels) + ChannelsPerPage - 1) / ChannelsPerPage
}

// ClampPage limits n to the valid page range
func (c *Catalog) ClampPage(n int) int {
	if n >= c.PageCount() {
		n = c.PageCount() - 1
	}
	if n < 0 {
		n = 0
	}
	return n
}

// Page returns the window of channels for page n
func (c *Catalog) Page(n int) Page {
	if n < 0 || n >= c.PageCount() {
		panic(fmt.Sprintf("obd: page %d out of range [0,%d)", n, c.PageCount()))
	}
	start := n * ChannelsPerPage
	end := min(start+ChannelsPerPage, len(c.channels))
	return Page{Number: n, Channels: c.channels[start:end]}
}

// SetEnabled enables or disables a channel. Enabling resets the value to
// "N/A" so a stale reading never reappears; disabling shows "not monitoring".
func (c *Catalog) SetEnabled(i int, on bool) {
	ch := c.channels[i]
	ch.Enabled = on
	if on {
		ch.Value = ValueNotAvailable
	} else {
		ch.Value = ValueNotMonitoring
	}
}

// SetValue stores a formatted display value
func (c *Catalog) SetValue(i int, value string) {
	c.channels[i].Value = value
}

// EnabledFlags returns the enabled flag of every channel keyed by index
func (c *Catalog) EnabledFlags() map[int]bool {
	flags := make(map[int]bool, len(c.channels))
	for _, ch := range c.channels {
		flags[ch.Index] = ch.Enabled
	}
	return flags
}

// ApplyEnabledFlags sets enabled flags from a persisted map.
// Indexes missing from flags are enabled; unknown indexes are ignored.
func (c *Catalog) ApplyEnabledFlags(flags map[int]bool) {
	for _, ch := range c.channels {
		on, ok := flags[ch.Index]
		if !ok {
			on = true
		}
		c.SetEnabled(ch.Index, on)
	}
}

// Page is a contiguous window of at most ChannelsPerPage channels
type Page struct {
	Number   int
	Channels []*Channel
}

// Len returns the number of channels on the page
func (p Page) Len() int {
	return len(p.Channels)
}

// At returns the channel at position i within the page
func (p Page) At(i int) *Channel {
	return p.Channels[i]
}

// DisabledCount returns the number of disabled channels on the page
func (p Page) DisabledCount() int {
	n := 0
	for _, ch := range p.Channels {
		if !ch.Enabled {
			n++
		}
	}
	return n
}

// AllDisabled reports whether no channel on the page is enabled
func (p Page) AllDisabled() bool {
	return p.DisabledCount() >= p.Len()
}
