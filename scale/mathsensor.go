package scale

import (
	"time"

	"github.com/scalehouse/scalecore/counters"
	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/lctare"
	"github.com/scalehouse/scalecore/lctotal"
	"github.com/scalehouse/scalecore/loadcell"
	"github.com/scalehouse/scalecore/motion"
	"github.com/scalehouse/scalecore/persist"
	"github.com/scalehouse/scalecore/vsmath"
)

// MathSensor is the virtual (math) loadcell: its gross weight comes from
// evaluating a compiled vsmath expression over a set of input sensors
// rather than from an ADC/cal conversion. It runs tare tracking, motion
// detection, totaling and overload/underload checks; it has no
// center-of-zero, lift counting, peak hold or raw-ADC range check of its
// own. Zero is refused on the math sensor itself — see ZeroByCommand.
type MathSensor struct {
	SensorID uint8
	Code     vsmath.Code
	Inputs   []uint8 // sensor ids this expression references

	// Store is the NV-record layer TareSet/ToggleNetGross write back
	// through, wired by Scale.WireStore alongside every physical
	// loadcell's Store. Nil makes persistence a no-op.
	Store *persist.Store

	ViewUnit          countby.UnitCode
	ViewCB            countby.CB
	Capacity          float64
	PcentCapUnderload float64

	Motion  motion.Detector
	Total   lctotal.Engine
	Stats   lctotal.Stats
	Tare    lctare.Engine
	Counter counters.Counters

	GrossWt           float64
	GrossWtUnFiltered float64
	NetWt             float64
	TareWt            float64
	NetMode           bool

	OverloadThresholdWt float64
	Status              loadcell.Status
}

func (m *MathSensor) setStatus(bit loadcell.Status, set bool) {
	if set {
		m.Status |= bit
	} else {
		m.Status &^= bit
	}
}

func (m *MathSensor) activeWeight() float64 {
	if m.NetMode {
		return m.NetWt
	}
	return m.GrossWt
}

// propagateInputStatus ORs the input fault bits vsmath.Evaluate collected
// into the math sensor's own status, per the spec's "inherits faults from
// its inputs" rule.
func propagateInputStatus(dst *loadcell.Status, in vsmath.InputStatus) {
	if in&vsmath.StatusOverload != 0 {
		*dst |= loadcell.StatusOverload
	}
	if in&vsmath.StatusUnderload != 0 {
		*dst |= loadcell.StatusUnderload
	}
	if in&vsmath.StatusOverRange != 0 {
		*dst |= loadcell.StatusOverRange
	}
	if in&vsmath.StatusUnderRange != 0 {
		*dst |= loadcell.StatusUnderRange
	}
	if in&vsmath.StatusUncal != 0 {
		*dst |= loadcell.StatusUnCal
	}
	if in&vsmath.StatusInCal != 0 {
		*dst |= loadcell.StatusInCal
	}
}

// Tick evaluates the math expression in both filtered (CUR_MODE) and
// unfiltered (NON_FILTERED) modes, then runs tare tracking, the overload
// counter and underload check, motion, and totaling. Unlike
// loadcell.LC.Tick it does no zero maintenance (AZM/COZ), lift counting,
// peak hold or range check.
func (m *MathSensor) Tick(now time.Time, lookup func(sensorID uint8, mode vsmath.EvalMode) vsmath.InputValue) error {
	m.Status &^= loadcell.StatusOverload | loadcell.StatusUnderload |
		loadcell.StatusOverRange | loadcell.StatusUnderRange |
		loadcell.StatusUnCal | loadcell.StatusInCal

	sumUnfiltered, statusUnfiltered, err := vsmath.Evaluate(m.Code, lookup, vsmath.ModeNonFiltered)
	if err != nil {
		return err
	}
	sumFiltered, statusFiltered, err := vsmath.Evaluate(m.Code, lookup, vsmath.ModeCurMode)
	if err != nil {
		return err
	}
	propagateInputStatus(&m.Status, statusUnfiltered)
	propagateInputStatus(&m.Status, statusFiltered)

	m.GrossWtUnFiltered = countby.Round(sumUnfiltered, m.ViewCB)
	m.GrossWt = countby.Round(sumFiltered, m.ViewCB)

	m.NetWt = m.GrossWt - m.TareWt
	if m.TareWt == 0 {
		m.NetMode = false
	}
	if newTare, netMode, cleared := m.Tare.AutoClearIfCrossedZero(m.NetWt, m.TareWt); cleared {
		m.TareWt = newTare
		m.NetMode = netMode
		m.Total.SkipTotal()
	}

	m.OverloadThresholdWt = m.Capacity + 8*float64(m.ViewCB.FValue)
	overloaded, _ := m.Counter.CheckOverload(m.GrossWt, m.OverloadThresholdWt, m.GrossWt, m.Capacity)
	m.setStatus(loadcell.StatusOverload, overloaded || m.Status&loadcell.StatusOverload != 0)
	m.setStatus(loadcell.StatusUnderload, m.Status&loadcell.StatusUnderload != 0 ||
		counters.Underload(m.GrossWt, m.Capacity, m.PcentCapUnderload))

	m.setStatus(loadcell.StatusGotValidWeight, true)

	m.Motion.Detect(now, m.GrossWt)
	m.Total.Tick(now, m.activeWeight(), m.Motion.Stable(), &m.Stats)
	return nil
}

// ZeroByCommand on a math sensor is refused for the sensor itself; it
// instead zeros every input sensor it references, per the spec's v_s
// math-sensor zero-fanout rule.
func (m *MathSensor) ZeroByCommand(now time.Time, lookup func(sensorID uint8) *loadcell.LC) {
	for _, id := range m.Inputs {
		if lc := lookup(id); lc != nil {
			lc.ZeroByCommand(now)
		}
	}
}

// TareSet and ToggleNetGross behave identically to a physical loadcell.
func (m *MathSensor) TareSet(v float64) error {
	tareWt, netMode, err := lctare.TareSet(v, m.OverloadThresholdWt, m.ViewCB)
	if err != nil {
		return err
	}
	m.TareWt = tareWt
	m.NetMode = netMode
	m.Total.SkipTotal()
	m.persistDynamic()
	return nil
}

func (m *MathSensor) ToggleNetGross() {
	m.NetMode = lctare.ToggleNetGross(m.NetMode)
	m.Total.SkipTotal()
	m.persistDynamic()
}

// persistDynamic writes the math sensor's tare/net-mode state back to NV,
// keyed by its own fixed sensor id so it never collides with a physical
// loadcell's slot.
func (m *MathSensor) persistDynamic() {
	if m.Store == nil {
		return
	}
	var opMode byte
	if m.NetMode {
		opMode |= 1
	}
	rec := persist.LoadcellDynamic{TareWt: m.TareWt, ZeroWt: 0, OpMode: opMode}
	if err := m.Store.SaveLoadcellDynamic(int(m.SensorID), rec); err != nil {
		lg.Infof("math sensor: persist dynamic data failed: %v", err)
	}
}
