package scale

import (
	"testing"
	"time"

	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/loadcell"
	"github.com/scalehouse/scalecore/vsmath"
)

func newMathSensor(t *testing.T, expr string) *MathSensor {
	t.Helper()
	code, err := vsmath.Compile(expr)
	if err != nil {
		t.Fatalf("Compile(%q): %v", expr, err)
	}
	return &MathSensor{
		SensorID: mathSensorID,
		Code:     code,
		Inputs:   []uint8{0, 1},
		ViewCB:   countby.New(1, 0, 0),
		Capacity: 400,
	}
}

func TestMathSensorSumsInputs(t *testing.T) {
	m := newMathSensor(t, "0+1")
	lookup := func(sensorID uint8, mode vsmath.EvalMode) vsmath.InputValue {
		switch sensorID {
		case 0:
			return vsmath.InputValue{Value: 30}
		case 1:
			return vsmath.InputValue{Value: 70}
		}
		t.Fatalf("unexpected sensor id %d", sensorID)
		return vsmath.InputValue{}
	}
	if err := m.Tick(time.Now(), lookup); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if m.GrossWt != 100 {
		t.Fatalf("GrossWt = %v, want 100", m.GrossWt)
	}
	if m.Status&loadcell.StatusGotValidWeight == 0 {
		t.Fatalf("expected StatusGotValidWeight set")
	}
}

func TestMathSensorPropagatesInputFaults(t *testing.T) {
	m := newMathSensor(t, "0+1")
	lookup := func(sensorID uint8, mode vsmath.EvalMode) vsmath.InputValue {
		if sensorID == 0 {
			return vsmath.InputValue{Value: 30, Status: vsmath.StatusOverload}
		}
		return vsmath.InputValue{Value: 70}
	}
	if err := m.Tick(time.Now(), lookup); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if m.Status&loadcell.StatusOverload == 0 {
		t.Fatalf("expected an overloaded input to mark the math sensor overloaded too")
	}
}

func TestMathSensorTareEntersNetMode(t *testing.T) {
	m := newMathSensor(t, "0+1")
	lookup := func(sensorID uint8, mode vsmath.EvalMode) vsmath.InputValue {
		if sensorID == 0 {
			return vsmath.InputValue{Value: 30}
		}
		return vsmath.InputValue{Value: 70}
	}
	if err := m.Tick(time.Now(), lookup); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if err := m.TareSet(40); err != nil {
		t.Fatalf("TareSet: %v", err)
	}
	if !m.NetMode {
		t.Fatalf("expected NET mode after nonzero tare")
	}
	if err := m.Tick(time.Now(), lookup); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if m.NetWt != 60 {
		t.Fatalf("NetWt = %v, want 60", m.NetWt)
	}
}

func TestMathSensorZeroFansOutToInputs(t *testing.T) {
	m := newMathSensor(t, "0+1")
	cal0 := completedCalForTest(t)
	cal1 := completedCalForTest(t)
	lc0 := loadcell.New(0, cal0, testLCConfig())
	lc1 := loadcell.New(1, cal1, testLCConfig())

	now := time.Now()
	if err := lc0.Tick(now, testDescriptor(0, 5000)); err != nil {
		t.Fatalf("lc0 Tick: %v", err)
	}
	if err := lc1.Tick(now, testDescriptor(1, 3000)); err != nil {
		t.Fatalf("lc1 Tick: %v", err)
	}

	lookup := func(id uint8) *loadcell.LC {
		switch id {
		case 0:
			return lc0
		case 1:
			return lc1
		}
		return nil
	}
	m.ZeroByCommand(now, lookup)

	if lc0.ZeroWt != 50 {
		t.Fatalf("lc0.ZeroWt = %v, want 50", lc0.ZeroWt)
	}
	if lc1.ZeroWt != 30 {
		t.Fatalf("lc1.ZeroWt = %v, want 30", lc1.ZeroWt)
	}
}
