// Package setpoint implements the setpoint evaluator: up to 8
// configurable comparisons of a chosen loadcell value against a threshold,
// with one-sided hysteresis and a logic-op bitmask registry.
package setpoint

import "github.com/scalehouse/scalecore/countby"

// MaxSetpoints is the number of configurable setpoints.
const MaxSetpoints = 8

// Logic selects the comparison operator.
type Logic uint8

const (
	LogicNone Logic = iota
	LogicLess
	LogicGreater
)

// ValueMode selects which derived value a setpoint compares.
type ValueMode uint8

const (
	ValueNetGross ValueMode = iota
	ValueGross
	ValueTotal
	ValueTotalCount
	ValueLiftCount
)

// Setpoint is one persistent setpoint configuration. RefCmpValue is
// stored in the sensor's reference (cal) unit; ViewCmpValue is recomputed
// into the current view unit whenever the unit changes.
type Setpoint struct {
	Enabled      bool
	SensorID     uint8
	Logic        Logic
	ValueMode    ValueMode
	HysteresisCB uint8
	RefCmpValue  float32
	ViewCmpValue float32
}

// RecomputeViewValue reconverts RefCmpValue into the view unit using the
// supplied conversion factor (refUnit -> viewUnit). Call on every unit
// change.
func (sp *Setpoint) RecomputeViewValue(convFactor float64) {
	sp.ViewCmpValue = float32(float64(sp.RefCmpValue) * convFactor)
}

// Input is the resolved value to compare a setpoint against for one tick,
// along with whether the input sensor is a loadcell; for a loadcell, the
// TotalCount/LiftCount value modes compare raw integer counters instead
// of a rounded weight.
type Input struct {
	Gross, Net, Total float64
	TotalCount        uint32
	LiftCount         uint32
	IsLoadcell        bool
}

// Registry is the tripped-state bitmask across all setpoints.
type Registry uint16

// ProcessAll evaluates every enabled setpoint against its resolved input
// and returns the updated registry bitmask. viewCB is used both to round
// the comparison value and to scale the hysteresis band.
func ProcessAll(sps []Setpoint, inputs []Input, viewCB []countby.CB, registry Registry) Registry {
	for i := range sps {
		sp := &sps[i]
		if !sp.Enabled || sp.Logic == LogicNone {
			registry &^= 1 << uint(i)
			continue
		}
		in := inputs[i]
		bit := Registry(1) << uint(i)
		tripped := registry&bit != 0

		if in.IsLoadcell && (sp.ValueMode == ValueTotalCount || sp.ValueMode == ValueLiftCount) {
			var counterVal uint32
			if sp.ValueMode == ValueTotalCount {
				counterVal = in.TotalCount
			} else {
				counterVal = in.LiftCount
			}
			threshold := uint32(sp.ViewCmpValue)
			tripped = evalLogic(sp.Logic, float64(counterVal), float64(threshold))
			registry = setBit(registry, bit, tripped)
			continue
		}

		var v float64
		switch sp.ValueMode {
		case ValueGross:
			v = in.Gross
		case ValueTotal:
			v = in.Total
		default:
			v = in.Net
		}
		v = countby.Round(v, viewCB[i])

		threshold := float64(sp.ViewCmpValue)
		if tripped {
			hyst := float64(sp.HysteresisCB) * float64(viewCB[i].FValue)
			if sp.Logic == LogicGreater {
				threshold -= hyst
			} else {
				threshold += hyst
			}
		}
		tripped = evalLogic(sp.Logic, v, threshold)
		registry = setBit(registry, bit, tripped)
	}
	return registry
}

func evalLogic(l Logic, v, threshold float64) bool {
	switch l {
	case LogicGreater:
		return v > threshold
	case LogicLess:
		return v < threshold
	}
	return false
}

func setBit(registry, bit Registry, set bool) Registry {
	if set {
		return registry | bit
	}
	return registry &^ bit
}
