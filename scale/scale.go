// Package scale is the top-level multi-sensor orchestrator: it owns
// every configured loadcell and the optional math sensor, runs one pass
// of Tasks per main-loop iteration, evaluates setpoints, and exposes the
// command surface (zero, tare, unit change, totaling, calibration) the
// command layer calls into.
package scale

import (
	"time"

	logger "github.com/d2r2/go-logger"

	"github.com/scalehouse/scalecore/calibrate"
	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/lczero"
	"github.com/scalehouse/scalecore/loadcell"
	"github.com/scalehouse/scalecore/persist"
	"github.com/scalehouse/scalecore/scaleerr"
	"github.com/scalehouse/scalecore/sensor"
	"github.com/scalehouse/scalecore/setpoint"
	"github.com/scalehouse/scalecore/vsmath"
)

var lg = logger.NewPackageLogger("scale", logger.InfoLevel)

// StandardMode bits, packed into a single byte per the scale
// standard-mode record.
type StandardMode byte

const (
	StandardModeMotionDetect StandardMode = 1 << iota
	StandardModeAZM
	StandardModeZeroOnPowerup
	StandardModePowerSaveEnabled
	StandardModeSafety
)

// LegalModeBits extracts the 2-bit legal-for-trade mode packed in bits
// 6:5 of the standard-mode byte.
func (m StandardMode) LegalModeBits() uint8 {
	return uint8(m>>5) & 0x3
}

// LegalMode converts the packed legal-for-trade bits to an lczero.LegalMode,
// the form loadcell.Config and lczero.Engine consume.
func (m StandardMode) LegalMode() lczero.LegalMode {
	return lczero.LegalMode(m.LegalModeBits())
}

// PowerSaveState is the scale's power-management state, derived from the
// standard-mode power-save and safety bits. It is read-only from this
// package's perspective: the actual power-management logic (dimming the
// display, sleeping the ADC) lives outside scalecore's scope, the same
// way it lived in a separate system-monitor module in the original
// firmware. Scale only ever surfaces the bits so that consumer can act on
// them.
type PowerSaveState uint8

const (
	// PowerSaveOff: power-saving is not enabled for this scale.
	PowerSaveOff PowerSaveState = iota
	// PowerSaveEnabled: power-saving may engage when the scale is idle.
	PowerSaveEnabled
	// PowerSaveSafetyOverride: safety mode is set, which overrides any
	// power-saving the enable bit would otherwise permit.
	PowerSaveSafetyOverride
)

// PowerSaveState derives the effective power-save state from the
// standard-mode bits. Safety always overrides power-saving, matching the
// original firmware's "SAFETY MODE override power saving" precedence.
func (m StandardMode) PowerSaveState() PowerSaveState {
	if m&StandardModeSafety != 0 {
		return PowerSaveSafetyOverride
	}
	if m&StandardModePowerSaveEnabled != 0 {
		return PowerSaveEnabled
	}
	return PowerSaveOff
}

// Scale owns every configured sensor and the cross-sensor machinery
// (setpoints) that runs after every sensor's Tick.
type Scale struct {
	Loadcells    [sensor.MaxNumLoadcell]*loadcell.LC
	Math         *MathSensor
	Setpoints    [setpoint.MaxSetpoints]setpoint.Setpoint
	Registry     setpoint.Registry
	StandardMode StandardMode

	// Store is the NV-record layer every loadcell's mutating operations
	// write back through. Setting the field alone does not reach any
	// loadcell; WireStore propagates it to every loadcell already
	// configured (and the math sensor).
	Store *persist.Store
}

// WireStore attaches store to the scale and every already-configured
// loadcell, so Tare/Zero/ChangeUnit/CalSaveExit persist through it.
func (s *Scale) WireStore(store *persist.Store) {
	s.Store = store
	for _, lc := range s.Loadcells {
		if lc != nil {
			lc.Store = store
		}
	}
	if s.Math != nil {
		s.Math.Store = store
	}
}

// ApplyStandardMode installs a new scale-standard-mode byte and propagates
// its motion-detect/AZM/legal-mode bits into every configured loadcell's
// Config and live Motion/Zero engines, matching lc_zero_init's behavior of
// re-selecting the legal-mode band parameters whenever the global
// standard-mode byte changes. If the zero-on-powerup bit is set, each
// loadcell's power-up zero window is (re)armed.
func (s *Scale) ApplyStandardMode(now time.Time, mode StandardMode) {
	s.StandardMode = mode
	legalMode := mode.LegalMode()
	motionEnabled := mode&StandardModeMotionDetect != 0
	azmEnabled := mode&StandardModeAZM != 0
	zeroOnPowerup := mode&StandardModeZeroOnPowerup != 0

	for _, lc := range s.Loadcells {
		if lc == nil {
			continue
		}
		lc.Config.MotionEnabled = motionEnabled
		lc.Config.AZMEnabled = azmEnabled
		lc.Config.LegalMode = legalMode

		lc.Motion.Enabled = motionEnabled
		lc.Zero.Mode = legalMode
		lc.Zero.AZMEnabled = azmEnabled
		lc.Zero.Init()

		if zeroOnPowerup {
			lc.SetupZeroPowerup(now)
		}
	}
}

// mathSensorID is the fixed sensor id the math sensor occupies, the slot
// immediately after the physical loadcells.
const mathSensorID = sensor.MaxNumLoadcell

// lookupLoadcell resolves a sensor id to its LC, or nil for the math
// sensor id / an out-of-range id.
func (s *Scale) lookupLoadcell(id uint8) *loadcell.LC {
	if int(id) >= sensor.MaxNumLoadcell {
		return nil
	}
	return s.Loadcells[id]
}

// Tasks runs one pass of sensor_compute_all_values: Tick every configured
// loadcell, Tick the math sensor if present, then evaluate setpoints.
// mathLookup resolves a physical sensor id to its current value for the
// math sensor's expression evaluator.
func (s *Scale) Tasks(now time.Time, descs [sensor.MaxNumLoadcell]*sensor.Descriptor, mathLookup func(sensorID uint8, mode vsmath.EvalMode) vsmath.InputValue) {
	for i, lc := range s.Loadcells {
		if lc == nil || descs[i] == nil {
			continue
		}
		if err := lc.Tick(now, descs[i]); err != nil {
			lg.Infof("loadcell %d tick error: %v", i, err)
		}
	}
	if s.Math != nil && mathLookup != nil {
		if err := s.Math.Tick(now, mathLookup); err != nil {
			lg.Infof("math sensor tick error: %v", err)
		}
	}
	s.Registry = setpoint.ProcessAll(s.Setpoints[:], s.setpointInputs(), s.setpointViewCBs(), s.Registry)
}

func (s *Scale) setpointInputs() []setpoint.Input {
	inputs := make([]setpoint.Input, len(s.Setpoints))
	for i := range s.Setpoints {
		sp := &s.Setpoints[i]
		if sp.SensorID == mathSensorID && s.Math != nil {
			inputs[i] = setpoint.Input{
				Gross: s.Math.GrossWt, Net: s.Math.NetWt,
				Total: s.Math.Stats.TotalWt, TotalCount: s.Math.Stats.NumTotal,
				IsLoadcell: true,
			}
			continue
		}
		if lc := s.lookupLoadcell(sp.SensorID); lc != nil {
			inputs[i] = setpoint.Input{
				Gross: lc.GrossWt, Net: lc.NetWt, Total: lc.Stats.TotalWt,
				TotalCount: lc.Stats.NumTotal, LiftCount: lc.Counter.LiftCnt,
				IsLoadcell: true,
			}
		}
	}
	return inputs
}

func (s *Scale) setpointViewCBs() []countby.CB {
	cbs := make([]countby.CB, len(s.Setpoints))
	for i := range s.Setpoints {
		sp := &s.Setpoints[i]
		if sp.SensorID == mathSensorID && s.Math != nil {
			cbs[i] = s.Math.ViewCB
			continue
		}
		if lc := s.lookupLoadcell(sp.SensorID); lc != nil {
			cbs[i] = lc.Config.ViewCB
		}
	}
	return cbs
}

// Zero issues a command zero against sensorID. On the math sensor it
// fans out to every input sensor instead of zeroing the math sensor
// itself.
func (s *Scale) Zero(now time.Time, sensorID uint8) error {
	if sensorID == mathSensorID && s.Math != nil {
		s.Math.ZeroByCommand(now, s.lookupLoadcell)
		return nil
	}
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return scaleerr.ErrInvalidSensorNumber
	}
	lc.ZeroByCommand(now)
	return nil
}

// ZeroUndo restores sensorID's zero offset to the last user-commanded
// value.
func (s *Scale) ZeroUndo(sensorID uint8) error {
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return scaleerr.ErrInvalidSensorNumber
	}
	lc.ZeroUndo()
	return nil
}

// TareGross attempts tare-from-gross on sensorID.
func (s *Scale) TareGross(now time.Time, sensorID uint8) error {
	if lc := s.lookupLoadcell(sensorID); lc != nil {
		return lc.TareGross(now)
	}
	return scaleerr.ErrInvalidSensorNumber
}

// TareSet stores an explicit tare weight on sensorID.
func (s *Scale) TareSet(sensorID uint8, v float64) error {
	if sensorID == mathSensorID && s.Math != nil {
		return s.Math.TareSet(v)
	}
	if lc := s.lookupLoadcell(sensorID); lc != nil {
		return lc.TareSet(v)
	}
	return scaleerr.ErrInvalidSensorNumber
}

// ToggleNetGross flips NET/GROSS mode on sensorID.
func (s *Scale) ToggleNetGross(sensorID uint8) error {
	if sensorID == mathSensorID && s.Math != nil {
		s.Math.ToggleNetGross()
		return nil
	}
	if lc := s.lookupLoadcell(sensorID); lc != nil {
		lc.ToggleNetGross()
		return nil
	}
	return scaleerr.ErrInvalidSensorNumber
}

// ChangeUnit reconverts sensorID's stored weights into newUnit.
func (s *Scale) ChangeUnit(sensorID uint8, newUnit countby.UnitCode) error {
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return scaleerr.ErrInvalidSensorNumber
	}
	return lc.ChangeUnit(newUnit)
}

// SetpointSet overwrites setpoint i's configuration and recomputes its
// view-unit comparison value from the given unit-conversion factor.
func (s *Scale) SetpointSet(i int, sp setpoint.Setpoint, convFactor float64) error {
	if i < 0 || i >= len(s.Setpoints) {
		return scaleerr.ErrIndexError
	}
	sp.RecomputeViewValue(convFactor)
	s.Setpoints[i] = sp
	return nil
}

// TotalClear resets sensorID's accumulated totaling statistics.
func (s *Scale) TotalClear(sensorID uint8) error {
	if sensorID == mathSensorID && s.Math != nil {
		s.Math.Stats.Clear()
		return nil
	}
	if lc := s.lookupLoadcell(sensorID); lc != nil {
		lc.TotalClear()
		return nil
	}
	return scaleerr.ErrInvalidSensorNumber
}

// TotalRemoveLast undoes the last accumulated weight w on sensorID.
func (s *Scale) TotalRemoveLast(sensorID uint8, w float64) error {
	if sensorID == mathSensorID && s.Math != nil {
		s.Math.Stats.RemoveLast(w)
		return nil
	}
	if lc := s.lookupLoadcell(sensorID); lc != nil {
		lc.TotalRemoveLast(w)
		return nil
	}
	return scaleerr.ErrInvalidSensorNumber
}

// TotalCommandTotal commits sensorID's qualified weight for an
// on-command totaling mode.
func (s *Scale) TotalCommandTotal(sensorID uint8) (bool, float64, error) {
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return false, 0, scaleerr.ErrInvalidSensorNumber
	}
	accepted, w := lc.TotalCommand()
	return accepted, w, nil
}

// CalBegin starts a fresh calibration sequence on sensorID.
func (s *Scale) CalBegin(sensorID uint8, unit countby.UnitCode, capacity float32) error {
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return scaleerr.ErrInvalidSensorNumber
	}
	return lc.CalBegin(unit, capacity)
}

// CalSetCountby normalizes and stores sensorID's user-entered countby.
func (s *Scale) CalSetCountby(sensorID uint8, raw float32) error {
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return scaleerr.ErrInvalidSensorNumber
	}
	return lc.CalSetCountby(raw)
}

func (s *Scale) CalZeroPoint(sensorID uint8, curADCcount int32) error {
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return scaleerr.ErrInvalidSensorNumber
	}
	return lc.CalZeroPoint(curADCcount)
}

func (s *Scale) CalBuildPoint(sensorID uint8, adcCnt int32, value float32) error {
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return scaleerr.ErrInvalidSensorNumber
	}
	return lc.CalBuildPoint(adcCnt, value)
}

// CalAbort discards an in-progress calibration sequence by reverting the
// cal table to UNCAL; the operator must restart from new_cal.
func (s *Scale) CalAbort(sensorID uint8) error {
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return scaleerr.ErrInvalidSensorNumber
	}
	lc.Cal.Status = calibrate.StatusUncal
	return nil
}

// CalSaveExit completes sensorID's calibration and resets its dynamic
// data.
func (s *Scale) CalSaveExit(sensorID uint8) error {
	lc := s.lookupLoadcell(sensorID)
	if lc == nil {
		return scaleerr.ErrInvalidSensorNumber
	}
	return lc.CalSaveExit()
}
