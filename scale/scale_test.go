package scale

import (
	"testing"
	"time"

	"github.com/scalehouse/scalecore/calibrate"
	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/loadcell"
	"github.com/scalehouse/scalecore/persist"
	"github.com/scalehouse/scalecore/sensor"
	"github.com/scalehouse/scalecore/setpoint"
	"github.com/scalehouse/scalecore/vsmath"
)

func completedCalForTest(t *testing.T) *calibrate.SensorCal {
	t.Helper()
	c := calibrate.NewCal()
	if err := c.NewCalSequence(0, 200); err != nil {
		t.Fatalf("NewCalSequence: %v", err)
	}
	if err := c.NormalizeCountby(1); err != nil {
		t.Fatalf("NormalizeCountby: %v", err)
	}
	if err := c.ZeroPoint(0); err != nil {
		t.Fatalf("ZeroPoint: %v", err)
	}
	if err := c.BuildTable(10000, 100); err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	if err := c.SaveExit(); err != nil {
		t.Fatalf("SaveExit: %v", err)
	}
	return c
}

func testLCConfig() loadcell.Config {
	return loadcell.Config{
		CalUnit:         0,
		ViewUnit:        0,
		ViewCB:          countby.New(1, 0, 0),
		ViewCapacity:    200,
		LiftWtThreshold: 5,
		DropWtThreshold: 2,
		FilterInterval:  100 * time.Millisecond,
		Enabled:         true,
	}
}

func testDescriptor(sensorID uint8, adc int32) *sensor.Descriptor {
	return &sensor.Descriptor{
		SensorID:       sensorID,
		Type:           sensor.TypeLoadcell,
		CurADCcount:    adc,
		CurRawADCcount: adc,
		Status:         sensor.StatusEnabled | sensor.StatusGotADCCount,
	}
}

func newTestScale(t *testing.T) *Scale {
	t.Helper()
	s := &Scale{}
	s.Loadcells[0] = loadcell.New(0, completedCalForTest(t), testLCConfig())
	s.Loadcells[1] = loadcell.New(1, completedCalForTest(t), testLCConfig())
	return s
}

func TestScaleTasksTicksEveryLoadcell(t *testing.T) {
	s := newTestScale(t)
	var descs [sensor.MaxNumLoadcell]*sensor.Descriptor
	descs[0] = testDescriptor(0, 5000)
	descs[1] = testDescriptor(1, 3000)
	s.Tasks(time.Now(), descs, nil)

	if s.Loadcells[0].GrossWt != 50 {
		t.Fatalf("lc0.GrossWt = %v, want 50", s.Loadcells[0].GrossWt)
	}
	if s.Loadcells[1].GrossWt != 30 {
		t.Fatalf("lc1.GrossWt = %v, want 30", s.Loadcells[1].GrossWt)
	}
}

func TestScaleZeroFansOutOnMathSensor(t *testing.T) {
	s := newTestScale(t)
	code, err := vsmath.Compile("0+1")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	s.Math = &MathSensor{SensorID: mathSensorID, Code: code, Inputs: []uint8{0, 1}, ViewCB: countby.New(1, 0, 0), Capacity: 400}

	now := time.Now()
	var descs [sensor.MaxNumLoadcell]*sensor.Descriptor
	descs[0] = testDescriptor(0, 5000)
	descs[1] = testDescriptor(1, 3000)
	s.Tasks(now, descs, nil)

	if err := s.Zero(now, mathSensorID); err != nil {
		t.Fatalf("Zero: %v", err)
	}
	if s.Loadcells[0].ZeroWt != 50 {
		t.Fatalf("lc0.ZeroWt = %v, want 50", s.Loadcells[0].ZeroWt)
	}
	if s.Loadcells[1].ZeroWt != 30 {
		t.Fatalf("lc1.ZeroWt = %v, want 30", s.Loadcells[1].ZeroWt)
	}
}

func TestScaleSetpointTripsOnGross(t *testing.T) {
	s := newTestScale(t)
	now := time.Now()
	var descs [sensor.MaxNumLoadcell]*sensor.Descriptor
	descs[0] = testDescriptor(0, 5000)
	s.Tasks(now, descs, nil)

	s.Setpoints[0] = setpoint.Setpoint{
		Enabled: true, SensorID: 0, Logic: setpoint.LogicGreater,
		ValueMode: setpoint.ValueGross, RefCmpValue: 40, ViewCmpValue: 40,
	}
	s.Tasks(now, descs, nil)
	if s.Registry&1 == 0 {
		t.Fatalf("expected setpoint 0 tripped at gross=50 > 40")
	}
}

func TestScaleChangeUnitRejectsUnknownSensor(t *testing.T) {
	s := newTestScale(t)
	if err := s.ChangeUnit(9, 1); err == nil {
		t.Fatalf("expected error for out-of-range sensor id")
	}
}

func TestScaleCalRoundTripThroughCommandSurface(t *testing.T) {
	s := &Scale{}
	cal := calibrate.NewCal()
	s.Loadcells[2] = loadcell.New(2, cal, testLCConfig())

	if err := s.CalBegin(2, 0, 200); err != nil {
		t.Fatalf("CalBegin: %v", err)
	}
	if err := s.CalSetCountby(2, 1); err != nil {
		t.Fatalf("CalSetCountby: %v", err)
	}
	if err := s.CalZeroPoint(2, 0); err != nil {
		t.Fatalf("CalZeroPoint: %v", err)
	}
	if err := s.CalBuildPoint(2, 10000, 100); err != nil {
		t.Fatalf("CalBuildPoint: %v", err)
	}
	if err := s.CalSaveExit(2); err != nil {
		t.Fatalf("CalSaveExit: %v", err)
	}
	if cal.Status != calibrate.StatusCompleted {
		t.Fatalf("cal.Status = %v, want StatusCompleted", cal.Status)
	}
}

func TestApplyStandardModePropagatesMotionAndAZM(t *testing.T) {
	s := newTestScale(t)
	s.ApplyStandardMode(time.Now(), StandardModeMotionDetect|StandardModeAZM)

	for i, lc := range s.Loadcells[:2] {
		if !lc.Config.MotionEnabled || !lc.Motion.Enabled {
			t.Fatalf("loadcell %d: motion detect not enabled after ApplyStandardMode", i)
		}
		if !lc.Config.AZMEnabled || !lc.Zero.AZMEnabled {
			t.Fatalf("loadcell %d: AZM not enabled after ApplyStandardMode", i)
		}
	}
}

func TestApplyStandardModeZeroOnPowerupArmsPendingZero(t *testing.T) {
	s := newTestScale(t)
	s.ApplyStandardMode(time.Now(), StandardModeZeroOnPowerup)

	for i, lc := range s.Loadcells[:2] {
		if !lc.Zero.PendingZero {
			t.Fatalf("loadcell %d: expected pending zero armed by zero-on-powerup", i)
		}
	}
}

func TestPowerSaveStateSafetyOverridesEnabled(t *testing.T) {
	mode := StandardModePowerSaveEnabled | StandardModeSafety
	if got := mode.PowerSaveState(); got != PowerSaveSafetyOverride {
		t.Fatalf("PowerSaveState = %v, want PowerSaveSafetyOverride", got)
	}
}

func TestPowerSaveStateEnabledWithoutSafety(t *testing.T) {
	if got := StandardModePowerSaveEnabled.PowerSaveState(); got != PowerSaveEnabled {
		t.Fatalf("PowerSaveState = %v, want PowerSaveEnabled", got)
	}
}

func TestWireStorePropagatesToEveryLoadcell(t *testing.T) {
	s := newTestScale(t)
	store := persist.NewStore(nil)
	s.WireStore(store)

	for i, lc := range s.Loadcells[:2] {
		if lc.Store != store {
			t.Fatalf("loadcell %d: Store not wired by WireStore", i)
		}
	}
}
