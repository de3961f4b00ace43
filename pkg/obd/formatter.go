// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import (
	"fmt"
	"strings"
	"time"
)

// AlertMessage returns the lines shown to the user for an alert
func AlertMessage(kind AlertKind) []string {
	switch kind {
	case AlertBusError:
		return []string{"Bus Error: OBDII bus is shorted to Vbatt or Ground."}
	case AlertBusBusy:
		return []string{"OBD Bus Busy: could not read sensor"}
	case AlertDataError:
		return []string{
			"Data Error: there has been a loss of data.",
			"You may have a bad connection to the vehicle,",
			"check the cable.",
		}
	case AlertSerialError:
		return []string{
			"Serial Link Error: please check connection",
			"between computer and OBD interface.",
		}
	case AlertPortUnavailable:
		return []string{
			"Port is not ready.",
			"Please check that you specified the correct port",
			"and that no other application is using it",
		}
	case AlertDeviceNotResponding:
		return []string{
			"Device is not responding.",
			"Please check that it is connected",
			"and the port settings are correct",
		}
	default:
		return []string{kind.String()}
	}
}

// FormatPageNumber returns the "n of m" page caption
func FormatPageNumber(page, count int) string {
	return fmt.Sprintf("%d of %d", page+1, count)
}

// FormatRates returns the refresh rate lines
func FormatRates(inst, avg float64) (string, string) {
	return fmt.Sprintf("Instantaneous: %.2fHz", inst), fmt.Sprintf("Average: %.2fHz", avg)
}

// FormatStatus returns the status line for a port name and link verdict
func FormatStatus(port string, verdict LinkVerdict) string {
	if port == "" {
		return verdict.String()
	}
	return fmt.Sprintf("%s is %s", port, verdict)
}

// FormatChannel formats one channel as a fixed-width text line
func FormatChannel(ch *Channel) string {
	state := "ON "
	if !ch.Enabled {
		state = "OFF"
	}
	return fmt.Sprintf("[%s] %-32s %s", state, ch.Label, ch.Value)
}

// FormatPage formats every channel on a page
func FormatPage(p Page, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- Page %s ---\n", FormatPageNumber(p.Number, count))
	for _, ch := range p.Channels {
		b.WriteString(FormatChannel(ch))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatEvent formats an engine event as a timestamped log line
func FormatEvent(ev Event, c *Catalog) string {
	timestamp := time.Now().Format("15:04:05.000")

	switch ev := ev.(type) {
	case ValueUpdated:
		label := fmt.Sprintf("#%d", ev.Index)
		if c != nil && ev.Index >= 0 && ev.Index < c.Len() {
			label = strings.TrimSuffix(c.Channel(ev.Index).Label, ":")
		}
		return fmt.Sprintf("[%s] VALUE %s = %s", timestamp, label, ev.Value)
	case RateUpdated:
		inst, avg := FormatRates(ev.Instantaneous, ev.Average)
		return fmt.Sprintf("[%s] RATE %s, %s", timestamp, inst, avg)
	case AlertRaised:
		return fmt.Sprintf("[%s] ALERT %s: %s", timestamp, ev.Kind, strings.Join(AlertMessage(ev.Kind), " "))
	case DisconnectDetected:
		return fmt.Sprintf("[%s] DISCONNECT device not responding", timestamp)
	case LinkChanged:
		return fmt.Sprintf("[%s] LINK %s", timestamp, ev.Verdict)
	case ResetIssued:
		if ev.Err != nil {
			return fmt.Sprintf("[%s] RESET failed: %v", timestamp, ev.Err)
		}
		return fmt.Sprintf("[%s] RESET %s sent", timestamp, ResetCommand)
	case ConfigurationRequested:
		return fmt.Sprintf("[%s] CONFIGURE requested", timestamp)
	case RedrawRequested:
		return ""
	default:
		return fmt.Sprintf("[%s] %T", timestamp, ev)
	}
}
