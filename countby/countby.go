// Package countby implements the displayable-resolution value used
// throughout the measurement core: a countby is always of the form
// {1,2,5}*10^k.
package countby

import "math"

// UnitCode identifies the unit a countby, weight, or threshold is expressed
// in. The concrete unit tables live in package unitconv; countby only needs
// an opaque comparable code to carry alongside iValue/decPt/fValue.
type UnitCode uint8

// CB is the displayable resolution: iValue is one of {1,2,5}, decPt is the
// number of digits after the decimal point, and fValue is the float form
// iValue*10^(-decPt), kept in sync by Normalize.
type CB struct {
	IValue uint16
	DecPt  int8
	FValue float32
	Unit   UnitCode
}

// New builds a normalized CB for the given raw integer value and decimal
// point location.
func New(iValue uint16, decPt int8, unit UnitCode) CB {
	cb := CB{IValue: iValue, DecPt: decPt, Unit: unit}
	cb.Normalize()
	return cb
}

// Normalize snaps IValue to the nearest member of {1,2,5} and recomputes
// FValue from IValue and DecPt. Mirrors cal_normalize_countby.
func (cb *CB) Normalize() {
	cb.IValue = nearestCountbyDigit(cb.IValue)
	cb.FValue = float32(float64(cb.IValue) * math.Pow(10, -float64(cb.DecPt)))
}

// nearestCountbyDigit rounds v to the nearest of {1, 2, 5}; values outside
// [1,5] are reduced to that range by the caller via decPt adjustment in
// NormalizeInput, so here we only need to pick among the three digits.
func nearestCountbyDigit(v uint16) uint16 {
	switch {
	case v == 0:
		return 1
	case v <= 1:
		return 1
	case v <= 3:
		return 2
	default:
		return 5
	}
}

// NormalizeInput takes an arbitrary user-entered fValue (e.g. 0.037) and
// produces the nearest {1,2,5}*10^k countby, choosing decPt and iValue so
// that iValue*10^(-decPt) is the closest representable countby to fValue.
// Mirrors cal_normalize_input_countby.
func NormalizeInput(fValue float32, unit UnitCode) CB {
	if fValue <= 0 {
		return New(1, 0, unit)
	}
	v := float64(fValue)
	exp := math.Floor(math.Log10(v))
	best := CB{}
	bestDelta := math.MaxFloat64
	for _, digit := range []uint16{1, 2, 5} {
		for _, e := range []float64{exp - 1, exp, exp + 1} {
			candidate := float64(digit) * math.Pow(10, e)
			delta := math.Abs(candidate - v)
			if delta < bestDelta {
				bestDelta = delta
				decPt := int8(-e)
				best = CB{IValue: digit, DecPt: decPt, Unit: unit}
			}
		}
	}
	best.Normalize()
	return best
}

// Round rounds value to the nearest multiple of the countby. The step is
// IValue*10^(-DecPt) computed in float64 (so multiples of 0.2 land on exact
// decimal values rather than carrying float32 error); a CB with IValue 0
// falls back to FValue.
func Round(value float64, cb CB) float64 {
	step := float64(cb.FValue)
	if cb.IValue != 0 {
		step = float64(cb.IValue) * math.Pow(10, -float64(cb.DecPt))
	}
	if step <= 0 {
		return value
	}
	return math.Round(value/step) * step
}

// ScaleFloat recomputes iValue*10^(-decPt) without renormalizing iValue;
// used internally when decPt alone changes (e.g. unit conversion shifts the
// decimal point but the displayable digit stays the same). Mirrors
// cal_scale_float_type_countby.
func ScaleFloat(iValue uint16, decPt int8) float32 {
	return float32(float64(iValue) * math.Pow(10, -float64(decPt)))
}
