// Package unitconv holds the multiplicative unit-conversion tables used by
// the measurement core: two tables for loadcell weight units (true and
// display-capacity), one for temperature, and a typed representation for
// voltage-monitor readings.
package unitconv

import (
	"github.com/scalehouse/scalecore/countby"
	"periph.io/x/periph/conn/physic"
)

// Loadcell weight units, in the fixed order used to index the conversion
// tables below.
const (
	UnitLb countby.UnitCode = iota
	UnitKg
	UnitTon
	UnitMTon
	UnitOz
	UnitG
	UnitKN
	loadcellUnitCount
)

const LoadcellUnitCount = int(loadcellUnitCount)

// trueLoadcellTable holds exact multiplicative conversion factors:
// value_in[to] = value_in[from] * trueLoadcellTable[from][to].
var trueLoadcellTable = [LoadcellUnitCount][LoadcellUnitCount]float64{}

// displayLoadcellTable honors the industry convention that capacity
// readouts use approximate round-number conversions (e.g. 1 lb ~= 0.5 kg)
// rather than the exact SI factor, so that a capacity entered in one unit
// produces a "clean" countby when redisplayed in another. This is why this
// table cannot be expressed through periph's physic.Mass: physic performs
// exact SI conversions and has no notion of a display approximation.
var displayLoadcellTable = [LoadcellUnitCount][LoadcellUnitCount]float64{}

// toLbExact and toLbDisplay give each unit's "how many pounds is 1 of me"
// factor in the exact and display-approximation systems respectively;
// every pairwise factor is derived from these via UnitLb as a pivot.
var toLbExact = [LoadcellUnitCount]float64{
	UnitLb:   1,
	UnitKg:   1 / 0.45359237,
	UnitTon:  2000,
	UnitMTon: 1 / 0.45359237 * 1000,
	UnitOz:   1.0 / 16,
	UnitG:    1 / 0.45359237 / 1000,
	UnitKN:   1 / 0.0044482216,
}

var toLbDisplay = [LoadcellUnitCount]float64{
	UnitLb:   1,
	UnitKg:   2, // industry convention: 1 lb ~= 0.5 kg
	UnitTon:  2000,
	UnitMTon: 2000,
	UnitOz:   1.0 / 16,
	UnitG:    2.0 / 1000,
	UnitKN:   toLbExactKN,
}

const toLbExactKN = 1 / 0.0044482216

func init() {
	buildTable(&trueLoadcellTable, toLbExact)
	buildTable(&displayLoadcellTable, toLbDisplay)
}

// buildTable fills a [N][N] conversion table from each unit's "pounds per
// unit" factor: value_in[to] = value_in[from] * (toLb[from] / toLb[to]).
func buildTable(tbl *[LoadcellUnitCount][LoadcellUnitCount]float64, toLb [LoadcellUnitCount]float64) {
	for from := 0; from < LoadcellUnitCount; from++ {
		for to := 0; to < LoadcellUnitCount; to++ {
			tbl[from][to] = toLb[from] / toLb[to]
		}
	}
}

// LoadcellConvFactor returns the multiplicative factor to go from "from"
// to "to" in the true (exact) unit system.
func LoadcellConvFactor(from, to countby.UnitCode) float64 {
	return trueLoadcellTable[from][to]
}

// LoadcellDisplayConvFactor returns the multiplicative factor used for
// capacity/countby redisplay, honoring the industry-convention
// approximations where one is defined.
func LoadcellDisplayConvFactor(from, to countby.UnitCode) float64 {
	return displayLoadcellTable[from][to]
}

// Temperature units.
const (
	UnitC countby.UnitCode = iota
	UnitF
	UnitK
)

// TemperatureConvert converts a temperature value between C, F, and K.
func TemperatureConvert(value float64, from, to countby.UnitCode) float64 {
	if from == to {
		return value
	}
	var celsius float64
	switch from {
	case UnitC:
		celsius = value
	case UnitF:
		celsius = (value - 32) * 5 / 9
	case UnitK:
		celsius = value - 273.15
	}
	switch to {
	case UnitC:
		return celsius
	case UnitF:
		return celsius*9/5 + 32
	case UnitK:
		return celsius + 273.15
	}
	return value
}

// Voltage is the value type for a voltage-monitor sensor. Unlike loadcell
// and temperature, there is no "display approximation" convention for
// voltage, so it is represented with periph's precise SI-scaled type
// instead of a hand-rolled table.
type Voltage = physic.ElectricPotential

// VoltageFromVolts builds a Voltage from a plain float64 volts reading.
func VoltageFromVolts(v float64) Voltage {
	return Voltage(v * float64(physic.Volt))
}

// Volts returns the plain float64 volts value of v.
func Volts(v Voltage) float64 {
	return float64(v) / float64(physic.Volt)
}
