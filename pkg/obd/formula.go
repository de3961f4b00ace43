// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

import "fmt"

// FormulaKind selects the decode transform applied to a channel's raw payload
type FormulaKind int

// Formula kinds, one per distinct transform in the channel table
const (
	FormulaPercent           FormulaKind = iota // raw*100/255, one decimal
	FormulaEngineRPM                            // raw/4
	FormulaVehicleSpeed                         // km/h or mph
	FormulaTimingAdvance                        // (raw-128)/2 degrees
	FormulaManifoldPressure                     // kPa or in.hg.
	FormulaAirFlowRate                          // g/s or lb/min
	FormulaFuelSystem1                          // status byte A
	FormulaFuelSystem2                          // status byte B
	FormulaFuelTrim                             // (raw-128)*100/128 %
	FormulaTemperature                          // raw-40
	FormulaFuelPressure                         // raw*3 kPa gauge
	FormulaSecondaryAir                         // commanded secondary air status
	FormulaO2Sensor                             // narrow band voltage + trim
	FormulaPTOStatus                            // power take-off
	FormulaOBDStandard                          // OBD requirements the vehicle conforms to
	FormulaRunTime                              // seconds -> h:m:s
	FormulaDistance                             // km or miles
	FormulaFuelRailRelative                     // raw*0.079 kPa
	FormulaFuelRailWideRange                    // raw*10 kPa
	FormulaO2WideRangeVoltage                   // AB ratio, CD voltage
	FormulaO2WideRangeCurrent                   // AB ratio, CD current
	FormulaCommandedEGR                         // integer percent
	FormulaEGRError                             // signed percent with direction
	FormulaPercentOfFull                        // raw/255*100, one decimal
	FormulaCount                                // plain integer
	FormulaEvapVaporPressure                    // signed raw*0.25 Pa
	FormulaCatalystTemp                         // raw*0.1-40
	FormulaModuleVoltage                        // raw*0.001 V
	FormulaEquivalenceRatio                     // raw*0.0000305
	FormulaMinutes                              // minutes -> hrs/min
)

var formulaNames = map[FormulaKind]string{
	FormulaPercent:            "percent",
	FormulaEngineRPM:          "engine_rpm",
	FormulaVehicleSpeed:       "vehicle_speed",
	FormulaTimingAdvance:      "timing_advance",
	FormulaManifoldPressure:   "manifold_pressure",
	FormulaAirFlowRate:        "air_flow_rate",
	FormulaFuelSystem1:        "fuel_system_1",
	FormulaFuelSystem2:        "fuel_system_2",
	FormulaFuelTrim:           "fuel_trim",
	FormulaTemperature:        "temperature",
	FormulaFuelPressure:       "fuel_pressure",
	FormulaSecondaryAir:       "secondary_air",
	FormulaO2Sensor:           "o2_sensor",
	FormulaPTOStatus:          "pto_status",
	FormulaOBDStandard:        "obd_standard",
	FormulaRunTime:            "run_time",
	FormulaDistance:           "distance",
	FormulaFuelRailRelative:   "fuel_rail_relative",
	FormulaFuelRailWideRange:  "fuel_rail_wide_range",
	FormulaO2WideRangeVoltage: "o2_wide_range_voltage",
	FormulaO2WideRangeCurrent: "o2_wide_range_current",
	FormulaCommandedEGR:       "commanded_egr",
	FormulaEGRError:           "egr_error",
	FormulaPercentOfFull:      "percent_of_full",
	FormulaCount:              "count",
	FormulaEvapVaporPressure:  "evap_vapor_pressure",
	FormulaCatalystTemp:       "catalyst_temp",
	FormulaModuleVoltage:      "module_voltage",
	FormulaEquivalenceRatio:   "equivalence_ratio",
	FormulaMinutes:            "minutes",
}

// String returns the formula's short name
func (k FormulaKind) String() string {
	if name, ok := formulaNames[k]; ok {
		return name
	}
	return fmt.Sprintf("formula(%d)", int(k))
}

// Decode converts a raw payload value into a display string.
// It never fails: unknown categorical codes and unknown kinds still produce text.
func Decode(kind FormulaKind, raw int64, units UnitSystem) string {
	imperial := units == Imperial

	switch kind {
	case FormulaPercent:
		return fmt.Sprintf("%.1f%%", float64(raw)*100/255)

	case FormulaEngineRPM:
		if imperial {
			return fmt.Sprintf("%d rpm", raw/4)
		}
		return fmt.Sprintf("%d r/min", raw/4)

	case FormulaVehicleSpeed:
		if imperial {
			return fmt.Sprintf("%d mph", int64(float64(raw)/1.609))
		}
		return fmt.Sprintf("%d km/h", raw)

	case FormulaTimingAdvance:
		return fmt.Sprintf("%.1f%s", float64(raw-128)/2, degree)

	case FormulaManifoldPressure:
		if imperial {
			return fmt.Sprintf("%.1f in.hg.", float64(raw)*0.2953)
		}
		return fmt.Sprintf("%d kPa", raw)

	case FormulaAirFlowRate:
		if imperial {
			return fmt.Sprintf("%.1f lb/min", float64(raw)*0.00132276)
		}
		return fmt.Sprintf("%.1f g/s", float64(raw)*0.01)

	case FormulaFuelSystem1:
		return fuelSystemStatus(raw&0xFF00>>8, raw&0xFF00, false)

	case FormulaFuelSystem2:
		return fuelSystemStatus(raw&0x00FF, raw&0x00FF, true)

	case FormulaFuelTrim:
		return fmt.Sprintf("%.2f%%", float64(raw-128)*100/128)

	case FormulaTemperature:
		c := raw - 40
		if imperial {
			return fmt.Sprintf("%d%sF", int64(float64(c)*9/5+32), degree)
		}
		return fmt.Sprintf("%d%sC", c, degree)

	case FormulaFuelPressure:
		if imperial {
			return fmt.Sprintf("%.3f psi", float64(raw*3)*0.145)
		}
		return fmt.Sprintf("%d kPaG", raw*3)

	case FormulaSecondaryAir:
		switch raw & 0x07 {
		case 0x01:
			return "upstream of 1st cat. conv."
		case 0x02:
			return "downstream of 1st cat. conv."
		case 0x04:
			return "atmosphere/off"
		}
		return unknown(raw)

	case FormulaO2Sensor:
		volts := float64(raw>>8&0xFF) * 0.005
		trim := raw & 0xFF
		if trim == 0xFF {
			// sensor not used in trim calculation
			return fmt.Sprintf("%.3f V", volts)
		}
		return fmt.Sprintf("%.3f V @ %.2f%% s.t. fuel trim", volts, float64(trim-128)*100/128)

	case FormulaPTOStatus:
		if raw&0x01 == 0x01 {
			return "active"
		}
		return "not active"

	case FormulaOBDStandard:
		if name, ok := obdStandards[raw]; ok {
			return name
		}
		return fmt.Sprintf("Unknown: %d", raw)

	case FormulaRunTime:
		hrs := raw / 3600
		min := (raw - hrs*3600) / 60
		sec := raw - hrs*3600 - min*60
		return fmt.Sprintf("%d:%d:%d", hrs, min, sec)

	case FormulaDistance:
		if imperial {
			return fmt.Sprintf("%d miles", int64(float64(raw)/1.609))
		}
		return fmt.Sprintf("%d km", raw)

	case FormulaFuelRailRelative:
		kpa := float64(raw) * 0.079
		if imperial {
			return fmt.Sprintf("%.1f PSI", kpa*0.1450377)
		}
		return fmt.Sprintf("%.2f kPa", kpa)

	case FormulaFuelRailWideRange:
		kpa := raw * 10
		if imperial {
			return fmt.Sprintf("%.1f PSI", float64(kpa)*0.1450377)
		}
		return fmt.Sprintf("%d kPa", kpa)

	case FormulaO2WideRangeVoltage:
		ratio := float64(raw>>16&0xFFFF) * 0.0000305
		volts := float64(raw&0xFFFF) * 0.000122
		return fmt.Sprintf("%.3f V, Eq. ratio: %.3f", volts, ratio)

	case FormulaO2WideRangeCurrent:
		ratio := float64(raw>>16&0xFFFF) * 0.0000305
		ma := float64(raw&0xFFFF-0x8000) * 0.00390625
		return fmt.Sprintf("%.3f mA, Eq. ratio: %.3f", ma, ratio)

	case FormulaCommandedEGR:
		return fmt.Sprintf("%d%%", raw*100/255)

	case FormulaEGRError:
		modifier := "no error"
		if raw < 128 {
			modifier = "less than commanded"
		} else if raw > 128 {
			modifier = "more than commanded"
		}
		return fmt.Sprintf("%.2f%% (%s)", float64(raw-128)/255*100, modifier)

	case FormulaPercentOfFull:
		return fmt.Sprintf("%.1f%%", float64(raw)/255*100)

	case FormulaCount:
		return fmt.Sprintf("%d", raw)

	case FormulaEvapVaporPressure:
		pa := float64(int16(uint16(raw))) * 0.25
		if imperial {
			return fmt.Sprintf("%2.3f in. H2O", pa/249.089)
		}
		return fmt.Sprintf("%4.2f Pa", pa)

	case FormulaCatalystTemp:
		c := float64(raw)*0.1 - 40
		if imperial {
			return fmt.Sprintf("%4.1f%sF", c*9/5+32, degree)
		}
		return fmt.Sprintf("%4.1f%sC", c, degree)

	case FormulaModuleVoltage:
		return fmt.Sprintf("%2.3f V", float64(raw)*0.001)

	case FormulaEquivalenceRatio:
		return fmt.Sprintf("%1.3f", float64(raw)*0.0000305)

	case FormulaMinutes:
		return fmt.Sprintf("%d hrs %d min", raw/60, raw%60)
	}

	return fmt.Sprintf("raw: %d", raw)
}

// fuelSystemStatus decodes one fuel system status byte. Unknown states show
// masked, the status bits in their payload position.
// System 2 reports 0 when the vehicle has a single fuel system.
func fuelSystemStatus(b, masked int64, second bool) string {
	switch b {
	case 0x00:
		if second {
			return "unused"
		}
	case 0x01:
		return "open loop"
	case 0x02:
		return "closed loop"
	case 0x04:
		return "open loop, driving"
	case 0x08:
		return "open loop, system fault"
	case 0x10:
		return "closed loop, O2 sensor fault"
	}
	return unknown(masked)
}

func unknown(raw int64) string {
	return fmt.Sprintf("unknown: %d", raw)
}

var obdStandards = map[int64]string{
	0x01: "OBD II (California ARB)",
	0x02: "OBD (Federal EPA)",
	0x03: "OBD and OBD II",
	0x04: "OBD I",
	0x05: "Non-compliant",
	0x06: "EOBD (Europe)",
	0x07: "EOBD and OBD II",
	0x08: "EOBD and OBD",
	0x09: "EOBD, OBD and OBD II",
	0x0A: "JOBD (Japan)",
	0x0B: "JOBD and OBD II",
	0x0C: "JOBD and EOBD",
	0x0D: "JOBD, EOBD, and OBD II",
}
