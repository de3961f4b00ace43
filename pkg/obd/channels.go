// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package obd

// ChannelSpec is the immutable description of one telemetry channel
type ChannelSpec struct {
	Label   string      `yaml:"label"`
	Command string      `yaml:"command"`
	Bytes   int         `yaml:"bytes"`
	Formula FormulaKind `yaml:"-"`
}

// DefaultChannels is the built-in mode 01 channel table, nine channels per page
var DefaultChannels = []ChannelSpec{
	// Page 1
	{"Absolute Throttle Position:", "0111", 1, FormulaPercent},
	{"Engine RPM:", "010C", 2, FormulaEngineRPM},
	{"Vehicle Speed:", "010D", 1, FormulaVehicleSpeed},
	{"Calculated Load Value:", "0104", 1, FormulaPercent},
	{"Timing Advance:", "010E", 1, FormulaTimingAdvance},
	{"Intake Manifold Pressure:", "010B", 1, FormulaManifoldPressure},
	{"Air Flow Rate (MAF sensor):", "0110", 2, FormulaAirFlowRate},
	{"Fuel System 1 Status:", "0103", 2, FormulaFuelSystem1},
	{"Fuel System 2 Status:", "0103", 2, FormulaFuelSystem2},

	// Page 2
	{"Short Term Fuel Trim (Bank 1):", "0106", 1, FormulaFuelTrim},
	{"Long Term Fuel Trim (Bank 1):", "0107", 1, FormulaFuelTrim},
	{"Short Term Fuel Trim (Bank 2):", "0108", 1, FormulaFuelTrim},
	{"Long Term Fuel Trim (Bank 2):", "0109", 1, FormulaFuelTrim},
	{"Intake Air Temperature:", "010F", 1, FormulaTemperature},
	{"Coolant Temperature:", "0105", 1, FormulaTemperature},
	{"Fuel Pressure (gauge):", "010A", 1, FormulaFuelPressure},
	{"Secondary air status:", "0112", 1, FormulaSecondaryAir},
	{"Power Take-Off Status:", "011E", 1, FormulaPTOStatus},

	// Page 3
	{"O2 Sensor 1, Bank 1:", "0114", 2, FormulaO2Sensor},
	{"O2 Sensor 2, Bank 1:", "0115", 2, FormulaO2Sensor},
	{"O2 Sensor 3, Bank 1:", "0116", 2, FormulaO2Sensor},
	{"O2 Sensor 4, Bank 1:", "0117", 2, FormulaO2Sensor},
	{"O2 Sensor 1, Bank 2:", "0118", 2, FormulaO2Sensor},
	{"O2 Sensor 2, Bank 2:", "0119", 2, FormulaO2Sensor},
	{"O2 Sensor 3, Bank 2:", "011A", 2, FormulaO2Sensor},
	{"O2 Sensor 4, Bank 2:", "011B", 2, FormulaO2Sensor},
	{"OBD conforms to:", "011C", 1, FormulaOBDStandard},

	// Page 4: wide range O2 sensors, voltage
	{"O2 Sensor 1, Bank 1 (WR):", "0124", 4, FormulaO2WideRangeVoltage},
	{"O2 Sensor 2, Bank 1 (WR):", "0125", 4, FormulaO2WideRangeVoltage},
	{"O2 Sensor 3, Bank 1 (WR):", "0126", 4, FormulaO2WideRangeVoltage},
	{"O2 Sensor 4, Bank 1 (WR):", "0127", 4, FormulaO2WideRangeVoltage},
	{"O2 Sensor 1, Bank 2 (WR):", "0128", 4, FormulaO2WideRangeVoltage},
	{"O2 Sensor 2, Bank 2 (WR):", "0129", 4, FormulaO2WideRangeVoltage},
	{"O2 Sensor 3, Bank 2 (WR):", "012A", 4, FormulaO2WideRangeVoltage},
	{"O2 Sensor 4, Bank 2 (WR):", "012B", 4, FormulaO2WideRangeVoltage},
	{"Time Since Engine Start:", "011F", 2, FormulaRunTime},

	// Page 5
	{"FRP rel. to manifold vacuum:", "0122", 2, FormulaFuelRailRelative},
	{"Fuel Pressure (gauge):", "0123", 2, FormulaFuelRailWideRange},
	{"Commanded EGR:", "012C", 1, FormulaCommandedEGR},
	{"EGR Error:", "012D", 1, FormulaEGRError},
	{"Commanded Evaporative Purge:", "012E", 1, FormulaPercentOfFull},
	{"Fuel Level Input:", "012F", 1, FormulaPercentOfFull},
	{"Warm-ups since ECU reset:", "0130", 1, FormulaCount},
	{"Distance since ECU reset:", "0131", 2, FormulaDistance},
	{"Evap System Vapor Pressure:", "0132", 2, FormulaEvapVaporPressure},

	// Page 6: wide range O2 sensors, current
	{"O2 Sensor 1, Bank 1 (WR):", "0134", 4, FormulaO2WideRangeCurrent},
	{"O2 Sensor 2, Bank 1 (WR):", "0135", 4, FormulaO2WideRangeCurrent},
	{"O2 Sensor 3, Bank 1 (WR):", "0136", 4, FormulaO2WideRangeCurrent},
	{"O2 Sensor 4, Bank 1 (WR):", "0137", 4, FormulaO2WideRangeCurrent},
	{"O2 Sensor 1, Bank 2 (WR):", "0138", 4, FormulaO2WideRangeCurrent},
	{"O2 Sensor 2, Bank 2 (WR):", "0139", 4, FormulaO2WideRangeCurrent},
	{"O2 Sensor 3, Bank 2 (WR):", "013A", 4, FormulaO2WideRangeCurrent},
	{"O2 Sensor 4, Bank 2 (WR):", "013B", 4, FormulaO2WideRangeCurrent},
	{"Distance since MIL activated:", "0121", 2, FormulaDistance},

	// Page 7
	{"Barometric Pressure:", "0133", 1, FormulaManifoldPressure},
	{"CAT Temperature, B1S1:", "013C", 2, FormulaCatalystTemp},
	{"CAT Temperature, B2S1:", "013D", 2, FormulaCatalystTemp},
	{"CAT Temperature, B1S2:", "013E", 2, FormulaCatalystTemp},
	{"CAT Temperature, B2S2:", "013F", 2, FormulaCatalystTemp},
	{"ECU voltage:", "0142", 2, FormulaModuleVoltage},
	{"Absolute Engine Load:", "0143", 2, FormulaPercent},
	{"Commanded Equivalence Ratio:", "0144", 2, FormulaEquivalenceRatio},
	{"Ambient Air Temperature:", "0146", 1, FormulaTemperature},

	// Page 8
	{"Relative Throttle Position:", "0145", 1, FormulaPercent},
	{"Absolute Throttle Position B:", "0147", 1, FormulaPercent},
	{"Absolute Throttle Position C:", "0148", 1, FormulaPercent},
	{"Accelerator Pedal Position D:", "0149", 1, FormulaPercent},
	{"Accelerator Pedal Position E:", "014A", 1, FormulaPercent},
	{"Accelerator Pedal Position F:", "014B", 1, FormulaPercent},
	{"Comm. Throttle Actuator Cntrl:", "014C", 1, FormulaPercent},
	{"Engine running while MIL on:", "014D", 2, FormulaMinutes},
	{"Time since ECU reset:", "014E", 2, FormulaMinutes},
}
