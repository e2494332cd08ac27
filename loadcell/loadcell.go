// Package loadcell orchestrates one physical loadcell's per-tick
// pipeline: ADC-to-weight conversion, net/gross/tare tracking, service
// counters, motion detection, totaling, and zero maintenance, in the
// fixed order the measurement core requires: compute -> motion -> total
// -> zero/AZM -> COZ -> pending-zero -> pending-tare.
package loadcell

import (
	"time"

	logger "github.com/d2r2/go-logger"

	"github.com/scalehouse/scalecore/calibrate"
	"github.com/scalehouse/scalecore/counters"
	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/lctare"
	"github.com/scalehouse/scalecore/lctotal"
	"github.com/scalehouse/scalecore/lczero"
	"github.com/scalehouse/scalecore/motion"
	"github.com/scalehouse/scalecore/persist"
	"github.com/scalehouse/scalecore/scaleerr"
	"github.com/scalehouse/scalecore/sensor"
	"github.com/scalehouse/scalecore/unitconv"
)

var lg = logger.NewPackageLogger("loadcell", logger.InfoLevel)

// Status bits on LC.Status, the per-tick derived condition of the
// loadcell exposed to the command layer.
type Status uint32

const (
	StatusGotValidWeight Status = 1 << iota
	StatusGotPrevValidValue
	StatusUnCal
	StatusNormalActive
	StatusGotCalWeight
	StatusNewPeakValue
	StatusOverload
	StatusUnderload
	StatusUnderRange
	StatusOverRange
	StatusInCal
)

// Config is the loadcell's slow-changing configuration, loaded wholesale
// from the persisted sensor-feature / totaling-motion-opmode / AZM
// records. Distinct from runtime state so it round-trips through persist
// without dragging the whole LC along.
type Config struct {
	CalUnit           countby.UnitCode
	ViewUnit          countby.UnitCode
	ViewCB            countby.CB
	ViewCapacity      float64
	PcentCapUnderload float64
	LiftWtThreshold   float64
	DropWtThreshold   float64
	FilterInterval    time.Duration
	UserPendingTime   time.Duration
	AutoClearTare     bool
	PeakHoldEnabled   bool
	Enabled           bool

	// MotionThresholdWeight/MotionDetectPeriodTime are motionThresholdWeight/
	// motionDetectPeriodTime from spec.md's Lc data model: the delta and
	// settling period the motion detector gates on. MotionEnabled mirrors
	// the scale-standard-mode motion-detect bit (spec.md's "scale standard
	// mode" byte); Scale.ApplyStandardMode keeps it in sync with that bit
	// across every loadcell.
	MotionThresholdWeight  float64
	MotionDetectPeriodTime time.Duration
	MotionEnabled          bool

	// AZMEnabled mirrors the scale-standard-mode AZM-enable bit.
	AZMEnabled bool
	// LegalMode selects which of the four parallel AZM/zero-band
	// parameter sets (Industry/NTEP/OIML/1-unit) is active.
	LegalMode lczero.LegalMode
}

// LC is one physical loadcell.
type LC struct {
	SensorID uint8
	Cal      *calibrate.SensorCal
	Config   Config

	// Store is the NV-record layer Tare/Zero/ToggleNetGross/ChangeUnit/
	// CalSaveExit and a changed service counter write back through, per
	// spec.md's "the Lc writes back through a 'save dynamic data' call
	// after every mutation". Nil (the default) makes every persist call a
	// no-op, the same opt-in shape as lc.Zero.Params.
	Store *persist.Store

	Zero    lczero.Engine
	Tare    lctare.Engine
	Motion  motion.Detector
	Total   lctotal.Engine
	Stats   lctotal.Stats
	Counter counters.Counters

	ZeroOffset float64
	ZeroWt     float64
	PrevZeroWt float64
	TareWt     float64
	NetMode    bool
	COZ        bool

	RawWt               float64
	GrossWt             float64
	GrossWtUnFiltered   float64
	NetWt               float64
	PeakHoldWt          float64
	OverloadThresholdWt float64

	Status Status

	gotPrevValidGrace bool
}

// New returns an LC wired to the given cal table and configuration. The
// zero engine starts with a wide-open band and an effectively disabled
// AZM interval; callers with legal-for-trade requirements should
// overwrite lc.Zero.Params and call lc.Zero.Init() before first Tick.
func New(sensorID uint8, cal *calibrate.SensorCal, cfg Config) *LC {
	lc := &LC{SensorID: sensorID, Cal: cal, Config: cfg}
	lc.Tare.AutoClear = cfg.AutoClearTare

	wideBand := lczero.BandParams{
		AZMIntervalTime:    time.Hour,
		PcentCapZeroBandLo: -1e9,
		PcentCapZeroBandHi: 1e9,
		PwupZeroBandLo:     -1e9,
		PwupZeroBandHi:     1e9,
	}
	lc.Zero.Params = [4]lczero.BandParams{wideBand, wideBand, wideBand, wideBand}
	lc.Zero.QuarterCBWt = 0.25 * float64(cfg.ViewCB.FValue)
	lc.Zero.Mode = cfg.LegalMode
	lc.Zero.AZMEnabled = cfg.AZMEnabled
	lc.Zero.Init()

	lc.Motion.Enabled = cfg.MotionEnabled
	lc.Motion.ThresholdWeight = cfg.MotionThresholdWeight
	lc.Motion.DetectPeriod = cfg.MotionDetectPeriodTime
	lc.Motion.PeakHoldEnabled = cfg.PeakHoldEnabled
	lc.Motion.CountbyFValue = float64(cfg.ViewCB.FValue)

	lc.recomputeOverloadThreshold(false)
	return lc
}

func (lc *LC) setStatus(bit Status, set bool) {
	if set {
		lc.Status |= bit
	} else {
		lc.Status &^= bit
	}
}

func (lc *LC) activeWeight() float64 {
	if lc.NetMode {
		return lc.NetWt
	}
	return lc.GrossWt
}

// recomputeOverloadThreshold derives overloadThresholdWt from view
// capacity and countby; the zero-dependent adjustment is skipped while
// the power-up zero band is active, per the spec's overload-threshold
// formula.
func (lc *LC) recomputeOverloadThreshold(zeroOnPowerUp bool) {
	base := lc.Config.ViewCapacity + 8*float64(lc.Config.ViewCB.FValue)
	if zeroOnPowerUp {
		lc.OverloadThresholdWt = base
		return
	}
	adj := lc.ZeroWt - 0.05*lc.Config.ViewCapacity
	if adj < 0 {
		adj = 0
	}
	lc.OverloadThresholdWt = base - adj
}

// Tick runs one pass of the pipeline for a new ADC sample.
func (lc *LC) Tick(now time.Time, desc *sensor.Descriptor) error {
	defer desc.ConsumeADCEvent()

	if !lc.Config.Enabled || !desc.Enabled() {
		lc.Status &^= StatusGotValidWeight | StatusNewPeakValue | StatusGotCalWeight
		return nil
	}

	if lc.Cal == nil || lc.Cal.Status == calibrate.StatusUncal {
		lc.setStatus(StatusUnCal, true)
		return nil
	}

	if lc.Cal.Status != calibrate.StatusCompleted {
		lc.setStatus(StatusInCal, true)
		lc.setStatus(StatusNormalActive, false)
		if lc.Cal.HasUsablePoints() {
			lc.RawWt = calibrate.ADCToValue(desc.CurADCcount, lc.Cal)
			lc.setStatus(StatusGotCalWeight, true)
		}
		return nil
	}
	lc.setStatus(StatusInCal, false)

	conv := unitconv.LoadcellConvFactor(lc.Config.CalUnit, lc.Config.ViewUnit)

	lc.GrossWtUnFiltered = countby.Round(
		calibrate.ADCToValue(desc.CurRawADCcount, lc.Cal)*conv+lc.ZeroOffset-lc.ZeroWt,
		lc.Config.ViewCB,
	)

	gotNewFiltered := desc.Status&sensor.StatusGotADCCount != 0
	if gotNewFiltered {
		lc.RawWt = calibrate.ADCToValue(desc.CurADCcount, lc.Cal)*conv + lc.ZeroOffset
		lc.GrossWt = countby.Round(lc.RawWt-lc.ZeroWt, lc.Config.ViewCB)
		lc.trackNetGrossTare()
	}

	if desc.Status&sensor.StatusGotNewADCPeak != 0 {
		tareAdj := 0.0
		if lc.NetMode {
			tareAdj = lc.TareWt
		}
		peak := calibrate.ADCToValue(desc.MaxRawADCcount, lc.Cal)*conv + lc.ZeroOffset - lc.ZeroWt - tareAdj
		lc.PeakHoldWt = countby.Round(peak, lc.Config.ViewCB)
		lc.setStatus(StatusNewPeakValue, true)
	} else {
		lc.setStatus(StatusNewPeakValue, false)
	}

	lc.recomputeOverloadThreshold(false)
	lc.runServiceCounters(desc)

	lc.setStatus(StatusGotValidWeight, true)
	lc.setStatus(StatusUnCal, false)
	lc.setStatus(StatusNormalActive, true)

	if gotNewFiltered {
		lc.setStatus(StatusGotPrevValidValue, true)
		lc.gotPrevValidGrace = true
	} else if lc.gotPrevValidGrace {
		lc.gotPrevValidGrace = false
	} else {
		lc.setStatus(StatusGotPrevValidValue, false)
	}

	lc.Motion.Detect(now, lc.RawWt)
	w := lc.activeWeight()
	if accepted, acceptedWt := lc.Total.Tick(now, w, lc.Motion.Stable(), &lc.Stats); accepted {
		lg.Debugf("sensor %d totaled %.4f", lc.SensorID, acceptedWt)
	}

	lc.runZeroMaintenance(now)
	return nil
}

// trackNetGrossTare mirrors tracks_net_gross_tare: derives net from gross
// and tare, forces gross mode when tare is zero, and auto-clears tare
// once net has crossed back to zero.
func (lc *LC) trackNetGrossTare() {
	lc.NetWt = lc.GrossWt - lc.TareWt
	if lc.TareWt == 0 {
		lc.NetMode = false
	}
	if newTare, netMode, cleared := lc.Tare.AutoClearIfCrossedZero(lc.NetWt, lc.TareWt); cleared {
		lc.TareWt = newTare
		lc.NetMode = netMode
		lc.Total.SkipTotal()
	}
}

func (lc *LC) runServiceCounters(desc *sensor.Descriptor) {
	w := lc.activeWeight()
	liftPersist := lc.Counter.CheckLift(w, lc.Config.LiftWtThreshold, lc.Config.DropWtThreshold)

	overloaded, overloadPersist := lc.Counter.CheckOverload(lc.GrossWt, lc.OverloadThresholdWt, lc.RawWt, lc.Config.ViewCapacity)
	lc.setStatus(StatusOverload, overloaded)
	if liftPersist || overloadPersist {
		lc.persistServiceCounters()
	}

	lc.setStatus(StatusUnderload, counters.Underload(lc.RawWt, lc.Config.ViewCapacity, lc.Config.PcentCapUnderload))

	rng := counters.CheckRange(desc.CurRawADCcount)
	lc.setStatus(StatusUnderRange, rng.UnderRange)
	lc.setStatus(StatusOverRange, rng.OverRange)
}

// runZeroMaintenance runs AZM, COZ, and the pending-zero/pending-tare
// checks, in that fixed order.
func (lc *LC) runZeroMaintenance(now time.Time) {
	valid := lc.Status&StatusGotValidWeight != 0
	inMotion := lc.Motion.Motion

	if newZero, changed := lc.Zero.AZM(now, lc.RawWt, lc.ZeroWt, valid, inMotion); changed {
		lc.ZeroWt = newZero
		lc.recomputeOverloadThreshold(false)
	}

	lc.COZ = lc.Zero.COZ(lc.Motion.Stable(), lc.activeWeight(), lc.Config.PeakHoldEnabled)

	if lc.Zero.PendingZero {
		if newZero, prevZero, fired := lc.Zero.CheckPending(now, lc.RawWt, lc.ZeroWt, valid, inMotion); fired {
			lc.PrevZeroWt = prevZero
			lc.ZeroWt = newZero
			lc.recomputeOverloadThreshold(false)
			lc.Total.SkipTotal()
			lc.persistDynamic()
		}
	}

	if lc.Tare.PendingTare {
		if tareWt, netMode, fired := lc.Tare.CheckPending(now, lc.GrossWt, lc.OverloadThresholdWt, lc.Config.ViewCB, lc.Motion.Stable()); fired {
			lc.TareWt = tareWt
			lc.NetMode = netMode
			lc.Total.SkipTotal()
			lc.persistDynamic()
		}
	}
}

// ZeroByCommand attempts a user-commanded zero.
func (lc *LC) ZeroByCommand(now time.Time) {
	valid := lc.Status&StatusGotValidWeight != 0
	newZero, prevZero, changed := lc.Zero.ZeroByCommand(now, lc.RawWt, lc.ZeroWt, valid, lc.Motion.Motion, lc.Config.FilterInterval, lc.Config.UserPendingTime)
	if !changed {
		return
	}
	lc.PrevZeroWt = prevZero
	lc.ZeroWt = newZero
	lc.recomputeOverloadThreshold(false)
	lc.Total.SkipTotal()
	lc.persistDynamic()
}

// ZeroUndo restores the zero offset to the last user-commanded value.
func (lc *LC) ZeroUndo() {
	lc.ZeroWt = lczero.Undo(lc.PrevZeroWt)
	lc.recomputeOverloadThreshold(false)
	lc.Total.SkipTotal()
	lc.persistDynamic()
}

// SetupZeroPowerup arms the power-up zero band at boot.
func (lc *LC) SetupZeroPowerup(now time.Time) {
	lc.Zero.SetupZeroPowerup(now)
	lc.recomputeOverloadThreshold(true)
}

// TareGross attempts tare-from-gross.
func (lc *LC) TareGross(now time.Time) error {
	tareWt, netMode, fired, err := lc.Tare.TareGross(now, lc.GrossWt, lc.OverloadThresholdWt, lc.Config.ViewCB, lc.Motion.Stable(), lc.Config.FilterInterval, lc.Config.UserPendingTime)
	if err != nil {
		return err
	}
	if fired {
		lc.TareWt = tareWt
		lc.NetMode = netMode
		lc.Total.SkipTotal()
		lc.persistDynamic()
	}
	return nil
}

// TareSet stores an explicit tare weight.
func (lc *LC) TareSet(v float64) error {
	tareWt, netMode, err := lctare.TareSet(v, lc.OverloadThresholdWt, lc.Config.ViewCB)
	if err != nil {
		return err
	}
	lc.TareWt = tareWt
	lc.NetMode = netMode
	lc.Total.SkipTotal()
	lc.persistDynamic()
	return nil
}

// ToggleNetGross flips NET/GROSS mode.
func (lc *LC) ToggleNetGross() {
	lc.NetMode = lctare.ToggleNetGross(lc.NetMode)
	lc.Total.SkipTotal()
	lc.persistDynamic()
}

// ChangeUnit reconverts the zero offset, zero and previous-zero weights,
// tare weight, view capacity and view countby from the current view unit
// to newUnit. Totaling statistics, the peak-hold weight and the
// lift/drop/motion thresholds are not converted. Refused unless the cal
// table is COMPLETED.
func (lc *LC) ChangeUnit(newUnit countby.UnitCode) error {
	if lc.Cal.Status != calibrate.StatusCompleted {
		return scaleerr.ErrCannotChangeUnit
	}
	factor := unitconv.LoadcellConvFactor(lc.Config.ViewUnit, newUnit)
	lc.ZeroOffset *= factor
	lc.ZeroWt *= factor
	lc.PrevZeroWt *= factor
	lc.TareWt *= factor
	lc.Config.ViewCapacity *= factor
	lc.Config.ViewCB = countby.New(lc.Config.ViewCB.IValue, lc.Config.ViewCB.DecPt, newUnit)
	lc.Config.ViewUnit = newUnit
	lc.Zero.ZeroOffset = lc.ZeroOffset
	lc.recomputeOverloadThreshold(false)
	lc.persistDynamic()
	return nil
}

// TotalClear resets the accumulated totaling statistics.
func (lc *LC) TotalClear() { lc.Stats.Clear() }

// TotalRemoveLast undoes the most recently accumulated weight.
func (lc *LC) TotalRemoveLast(w float64) { lc.Stats.RemoveLast(w) }

// TotalCommand commits the currently-qualified weight for
// lctotal.ModeOnCommand loadcells.
func (lc *LC) TotalCommand() (bool, float64) { return lc.Total.Commit(&lc.Stats) }

// CalBegin starts a fresh calibration sequence.
func (lc *LC) CalBegin(unit countby.UnitCode, capacity float32) error {
	return lc.Cal.NewCalSequence(unit, capacity)
}

// CalSetCountby normalizes and stores the user-entered countby.
func (lc *LC) CalSetCountby(raw float32) error { return lc.Cal.NormalizeCountby(raw) }

// CalZeroPoint enters the zero reference point. Refused with ErrNotAllow
// while the loadcell is disabled.
func (lc *LC) CalZeroPoint(curADCcount int32) error {
	if !lc.Config.Enabled {
		return scaleerr.ErrNotAllow
	}
	return lc.Cal.ZeroPoint(curADCcount)
}

// CalBuildPoint enters a span point.
func (lc *LC) CalBuildPoint(adcCnt int32, value float32) error {
	return lc.Cal.BuildTable(adcCnt, value)
}

// CalSaveExit completes calibration and resets dynamic data, matching
// save_exit's reset-on-completion contract.
func (lc *LC) CalSaveExit() error {
	if err := lc.Cal.SaveExit(); err != nil {
		return err
	}
	lc.ZeroWt = 0
	lc.PrevZeroWt = 0
	lc.TareWt = 0
	lc.NetMode = false
	lc.Stats.Clear()
	lc.persistCalTable()
	lc.persistDynamic()
	return nil
}

// opModeByte packs the op-mode bits persist.LoadcellDynamic carries
// alongside zero/tare: NET mode and center-of-zero, the two pieces of
// dynamic state a power cycle must restore.
func (lc *LC) opModeByte() byte {
	var b byte
	if lc.NetMode {
		b |= 1
	}
	if lc.COZ {
		b |= 2
	}
	return b
}

// persistDynamic writes the current zero/tare/op-mode state back to NV,
// the "save dynamic data" call every tare/zero/unit mutation makes. A nil
// Store makes this a no-op.
func (lc *LC) persistDynamic() {
	if lc.Store == nil {
		return
	}
	rec := persist.LoadcellDynamic{TareWt: lc.TareWt, ZeroWt: lc.ZeroWt, OpMode: lc.opModeByte()}
	if err := lc.Store.SaveLoadcellDynamic(int(lc.SensorID), rec); err != nil {
		lg.Infof("sensor %d: persist dynamic data failed: %v", lc.SensorID, err)
	}
}

// persistServiceCounters writes the service-counter state back to NV.
// Called only when CheckLift/CheckOverload report a counter actually
// crossed, not every tick, to keep NV write volume down.
func (lc *LC) persistServiceCounters() {
	if lc.Store == nil {
		return
	}
	rec := persist.ServiceCountersRecord{
		UserLiftCnt:         lc.Counter.UserLiftCnt,
		LiftCnt:             lc.Counter.LiftCnt,
		OverloadCnt:         lc.Counter.OverloadCnt,
		LiftThresholdPctCap: float32(lc.Counter.LiftThresholdPctCap),
		DropThresholdPctCap: float32(lc.Counter.DropThresholdPctCap),
		ServiceStatus:       byte(lc.Counter.ServiceStatus),
	}
	if err := lc.Store.SaveServiceCounters(int(lc.SensorID), rec); err != nil {
		lg.Infof("sensor %d: persist service counters failed: %v", lc.SensorID, err)
	}
}

// persistCalTable writes the just-completed calibration table back to NV.
func (lc *LC) persistCalTable() {
	if lc.Store == nil {
		return
	}
	if err := lc.Store.SaveCalTableForSensor(int(lc.SensorID), lc.Cal); err != nil {
		lg.Infof("sensor %d: persist cal table failed: %v", lc.SensorID, err)
	}
}
