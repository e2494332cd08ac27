package setpoint

import (
	"testing"

	"github.com/scalehouse/scalecore/countby"
)

func TestHysteresisScenario(t *testing.T) {
	cb := countby.New(1, 0, 0) // 1 lb countby
	sps := []Setpoint{{
		Enabled: true, SensorID: 0, Logic: LogicGreater, ValueMode: ValueGross,
		HysteresisCB: 5, RefCmpValue: 100, ViewCmpValue: 100,
	}}
	viewCBs := []countby.CB{cb}
	var registry Registry

	registry = ProcessAll(sps, []Input{{Gross: 102, IsLoadcell: true}}, viewCBs, registry)
	if registry&1 == 0 {
		t.Fatalf("expected trip at 102 > 100")
	}

	registry = ProcessAll(sps, []Input{{Gross: 97, IsLoadcell: true}}, viewCBs, registry)
	if registry&1 == 0 {
		t.Fatalf("expected still tripped at 97 (threshold 95 with hysteresis)")
	}

	registry = ProcessAll(sps, []Input{{Gross: 94, IsLoadcell: true}}, viewCBs, registry)
	if registry&1 != 0 {
		t.Fatalf("expected untrip at 94 < 95")
	}
}

func TestUnitChangeRecomputesViewValue(t *testing.T) {
	sp := &Setpoint{RefCmpValue: 100}
	sp.RecomputeViewValue(0.45359237) // lb -> kg
	want := float32(100 * 0.45359237)
	if sp.ViewCmpValue != want {
		t.Fatalf("ViewCmpValue = %v, want %v", sp.ViewCmpValue, want)
	}
}

func TestDisabledSetpointNeverTrips(t *testing.T) {
	cb := countby.New(1, 0, 0)
	sps := []Setpoint{{Enabled: false, Logic: LogicGreater, ValueMode: ValueGross, ViewCmpValue: 1}}
	registry := ProcessAll(sps, []Input{{Gross: 1000, IsLoadcell: true}}, []countby.CB{cb}, 0)
	if registry != 0 {
		t.Fatalf("disabled setpoint must never set its bit")
	}
}
