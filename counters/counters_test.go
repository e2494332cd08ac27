package counters

import "testing"

func TestOverloadHysteresis(t *testing.T) {
	c := &Counters{Arm: OKCountOverload}
	capacity := 100.0
	sequence := []float64{40, 110, 40, 115, 40}
	for _, w := range sequence {
		c.CheckOverload(w, 100, w, capacity)
	}
	if c.OverloadCnt != 2 {
		t.Fatalf("overloadCnt = %d, want 2", c.OverloadCnt)
	}
}

func TestLiftCounterRearm(t *testing.T) {
	c := &Counters{Arm: OKCountLift}
	c.CheckLift(50, 10, 5)
	if c.LiftCnt != 1 || c.UserLiftCnt != 1 {
		t.Fatalf("expected one lift counted, got liftCnt=%d userLiftCnt=%d", c.LiftCnt, c.UserLiftCnt)
	}
	if c.Arm&OKCountLift != 0 {
		t.Fatalf("lift counter must disarm after counting")
	}
	c.CheckLift(50, 10, 5) // still loaded, must not double count
	if c.LiftCnt != 1 {
		t.Fatalf("must not double count while still loaded, got %d", c.LiftCnt)
	}
	c.CheckLift(0, 10, 5) // dropped below threshold, re-arms
	if c.Arm&OKCountLift == 0 {
		t.Fatalf("expected lift counter re-armed after drop")
	}
}

func TestRangeDetection(t *testing.T) {
	if !CheckRange(ADCUnderRangeThreshold - 1).UnderRange {
		t.Fatalf("expected under-range detected")
	}
	if !CheckRange(ADCOverRangeThreshold + 1).OverRange {
		t.Fatalf("expected over-range detected")
	}
	if r := CheckRange(0); r.UnderRange || r.OverRange {
		t.Fatalf("0 should be in range, got %+v", r)
	}
}

func TestUnreachableUnderloadAndOverloadSimultaneously(t *testing.T) {
	// A weight cannot simultaneously be below an underload threshold and
	// at/above an overload threshold provided underload% < 100% of
	// capacity < overload threshold, which always holds in practice.
	capacity := 100.0
	under := Underload(10, capacity, 10) // 10% of cap = 10, w=10 not < 10
	if under {
		t.Fatalf("10 at exactly 10%% of capacity should not be underload")
	}
	threshold := capacity + 8 // capacity plus 8 countby of 1
	for w := -20.0; w <= 150; w++ {
		c := &Counters{}
		overloaded, _ := c.CheckOverload(w, threshold, w, capacity)
		if overloaded && Underload(w, capacity, 10) {
			t.Fatalf("w=%v reported as both underload and overload", w)
		}
	}
}
