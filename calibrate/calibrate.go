// Package calibrate implements the calibration point table and the
// piecewise-linear transfer function it produces: the state machine that
// walks an operator through entering zero and up to four span points, and
// adc_to_value, the interpolation routine every sensor type calls on every
// tick.
package calibrate

import (
	logger "github.com/d2r2/go-logger"

	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/scaleerr"
)

var lg = logger.NewPackageLogger("calibrate", logger.InfoLevel)

// MaxCalPoints is the table size: one zero point plus four span points.
const MaxCalPoints = 5

// CalStatus is the calibration state machine. Only UNCAL, COMPLETED, and
// the GOT_* landmarks are named; point counts while building a table are
// small non-negative integers (0..MaxCalPoints-1) stored directly, the way
// the source does, since they are genuinely a count, not a named state.
type CalStatus uint8

const (
	StatusGotZero    CalStatus = 0
	StatusGotCountby CalStatus = 0xDD
	StatusGotUnitCap CalStatus = 0xDF
	StatusGotUnit    CalStatus = 0xE0
	StatusCompleted  CalStatus = 254
	StatusUncal      CalStatus = 255
)

// SensorCal is one cal-table slot: up to MaxCalPoints (adcCnt, value) pairs
// plus the state-machine status and the countby/capacity/unit it was built
// against.
type SensorCal struct {
	Capacity     float32
	Countby      countby.CB
	Status       CalStatus
	TemperatureK float32
	AdcCnt       [MaxCalPoints]int32
	Value        [MaxCalPoints]float32
}

// NewCal returns an uncalibrated cal table.
func NewCal() *SensorCal {
	return &SensorCal{Status: StatusUncal}
}

// calAdcDelta is the ADC-count window within which two points are
// considered "the same load" for the purposes of DifferentValueOnSameLoad
// rejection.
const calAdcDelta = 500

// capacityOverrunFactor is the fraction over nominal capacity a span point
// may read before it is rejected as implausible.
const capacityOverrunFactor = 1.1

// NewCalSequence begins a fresh calibration: allowed only from COMPLETED
// or UNCAL. Clears the table and records unit + capacity, transitioning to
// GOT_UNIT_CAP.
func (c *SensorCal) NewCalSequence(unit countby.UnitCode, capacity float32) error {
	if c.Status != StatusCompleted && c.Status != StatusUncal {
		return scaleerr.ErrWrongCalSequence
	}
	if capacity <= 0 {
		return scaleerr.ErrInvalidCapacity
	}
	for i := range c.AdcCnt {
		c.AdcCnt[i] = 0
		c.Value[i] = 0
	}
	c.Capacity = capacity
	c.Countby = countby.CB{Unit: unit}
	c.Status = StatusGotUnitCap
	return nil
}

// NormalizeCountby normalizes the user-entered countby and transitions to
// GOT_COUNTBY. Allowed only from GOT_UNIT_CAP.
func (c *SensorCal) NormalizeCountby(rawFValue float32) error {
	if c.Status != StatusGotUnitCap {
		return scaleerr.ErrWrongCalSequence
	}
	c.Countby = countby.NormalizeInput(rawFValue, c.Countby.Unit)
	c.Status = StatusGotCountby
	return nil
}

// ZeroPoint inserts the zero reference point (curADCcount, 0.0). Allowed
// only from GOT_COUNTBY. Transitions to point-count 0 (one point, the
// zero, has been entered; zero more span points so far).
func (c *SensorCal) ZeroPoint(curADCcount int32) error {
	if c.Status != StatusGotCountby {
		return scaleerr.ErrWrongCalSequence
	}
	c.AdcCnt[0] = curADCcount
	c.Value[0] = 0
	for i := 1; i < MaxCalPoints; i++ {
		c.AdcCnt[i] = curADCcount
		c.Value[i] = 0
	}
	c.Status = StatusGotZero
	return nil
}

// BuildTable inserts a span point (adcCnt, value). Must be called after
// ZeroPoint and before SaveExit; status tracks the number of unique points
// entered so far.
func (c *SensorCal) BuildTable(adcCnt int32, value float32) error {
	if c.Status > CalStatus(MaxCalPoints-1) {
		// anything other than GOT_ZERO or a building count is out of sequence
		// (GOT_COUNTBY, GOT_UNIT_CAP, GOT_UNIT, COMPLETED, UNCAL all sort
		// above MaxCalPoints-1 as unsigned bytes).
		return scaleerr.ErrWrongCalSequence
	}
	if float64(value) > float64(c.Capacity)*capacityOverrunFactor {
		return scaleerr.ErrTestLoadGtCapacity
	}

	numPoints := int(c.Status) + 1 // zero point plus c.Status span points so far
	for i := 0; i < numPoints; i++ {
		delta := adcCnt - c.AdcCnt[i]
		if delta < 0 {
			delta = -delta
		}
		if delta <= calAdcDelta && c.Value[i] != value {
			return scaleerr.ErrDifferentValueOnSameLoad
		}
	}

	prevIdx := numPoints - 1
	deltaAdc := adcCnt - c.AdcCnt[prevIdx]
	deltaVal := float64(value) - float64(c.Value[prevIdx])
	if deltaVal != 0 {
		countsPerCB := float64(deltaAdc) / (deltaVal / float64(c.Countby.FValue))
		if countsPerCB < 4 {
			return scaleerr.ErrLessThan4CntPerD
		}
	}

	insertAt := numPoints
	if insertAt >= MaxCalPoints {
		// table full: replace the nearest existing point
		best := int64(-1)
		for i := 0; i < MaxCalPoints; i++ {
			d := int64(adcCnt) - int64(c.AdcCnt[i])
			if d < 0 {
				d = -d
			}
			if best < 0 || d < best {
				best, insertAt = d, i
			}
		}
		c.AdcCnt[insertAt] = adcCnt
		c.Value[insertAt] = value
	} else {
		c.AdcCnt[insertAt] = adcCnt
		c.Value[insertAt] = value
		for i := insertAt + 1; i < MaxCalPoints; i++ {
			c.AdcCnt[i] = adcCnt
			c.Value[i] = value
		}
	}

	if int(c.Status) < MaxCalPoints-1 {
		c.Status++
	}
	lg.Debugf("cal build point %d: adc=%d value=%v status=%d", insertAt, adcCnt, value, c.Status)
	return nil
}

// SaveExit promotes the table to COMPLETED. Caller is responsible for
// persisting the table and resetting loadcell dynamic data.
func (c *SensorCal) SaveExit() error {
	if c.Status > CalStatus(MaxCalPoints-1) {
		return scaleerr.ErrWrongCalSequence
	}
	c.Status = StatusCompleted
	return nil
}

// HasUsablePoints reports whether the table has at least two valid points
// (so adc_to_value can interpolate) or is fully COMPLETED.
func (c *SensorCal) HasUsablePoints() bool {
	if c.Status == StatusCompleted {
		return true
	}
	return c.Status > 0 && int(c.Status) <= MaxCalPoints-1
}

// ADCToValue performs piecewise-linear interpolation of adcCnt over the
// cal table. It handles the duplicate end-marker convention (trailing
// points repeat the last real value) and right-extrapolates past the last
// real segment using that segment's slope.
func ADCToValue(adcCnt int32, tbl *SensorCal) float64 {
	return adcToValue(adcCnt, &tbl.AdcCnt, &tbl.Value)
}

func adcToValue(adcCnt int32, adcTable *[MaxCalPoints]int32, valueTable *[MaxCalPoints]float32) float64 {
	i := 0
	for i < MaxCalPoints-1 && adcCnt > adcTable[i] {
		i++
	}
	if i == 0 {
		return interpolateSegment(adcCnt, adcTable, valueTable, 0, 1)
	}
	if adcCnt <= adcTable[i] {
		// find the real (non-duplicate) segment ending at or before i.
		lo := i - 1
		for lo > 0 && adcTable[lo] == adcTable[lo-1] {
			lo--
		}
		hi := i
		for hi < MaxCalPoints-1 && adcTable[hi] == adcTable[hi+1] {
			hi++
		}
		return interpolateSegment(adcCnt, adcTable, valueTable, lo, hi)
	}
	// adcCnt is beyond every stored point: right-extrapolate using the last
	// non-degenerate segment.
	hi := MaxCalPoints - 1
	lo := hi - 1
	for lo > 0 && adcTable[lo] == adcTable[hi] {
		lo--
	}
	return interpolateSegment(adcCnt, adcTable, valueTable, lo, hi)
}

func interpolateSegment(adcCnt int32, adcTable *[MaxCalPoints]int32, valueTable *[MaxCalPoints]float32, lo, hi int) float64 {
	adcLo, adcHi := adcTable[lo], adcTable[hi]
	valLo, valHi := float64(valueTable[lo]), float64(valueTable[hi])
	span := adcHi - adcLo
	if span == 0 {
		return valLo + float64(adcCnt-adcLo) // zero-span segments have slope 1.0
	}
	slope := (valHi - valLo) / float64(span)
	return valLo + slope*float64(adcCnt-adcLo)
}

// RcalCountsAt10PctCapacity derives the "ADC counts at 10% of capacity"
// diagnostic figure (Rcal variant B) from the first two cal points. The
// result is an absolute ADC reading: it includes the zero point's ADC count.
func RcalCountsAt10PctCapacity(tbl *SensorCal) int32 {
	if tbl.Status == StatusUncal {
		return 0
	}
	adcSpan := tbl.AdcCnt[1] - tbl.AdcCnt[0]
	valSpan := float64(tbl.Value[1]) - float64(tbl.Value[0])
	if valSpan == 0 {
		return tbl.AdcCnt[0]
	}
	tenPct := float64(tbl.Capacity) * 0.10
	return tbl.AdcCnt[0] + int32(float64(adcSpan)*(tenPct/valSpan))
}

// RcalWeight maps an Rcal-resistor ADC reading through the cal table
// (variant A).
func RcalWeight(rcalAdcCnt int32, tbl *SensorCal) float64 {
	return ADCToValue(rcalAdcCnt, tbl)
}
