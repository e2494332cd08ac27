package calibrate

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/scalehouse/scalecore/scaleerr"
)

func buildCompletedTable(t *testing.T) *SensorCal {
	t.Helper()
	c := NewCal()
	if err := c.NewCalSequence(0, 200); err != nil {
		t.Fatalf("NewCalSequence: %v", err)
	}
	if err := c.NormalizeCountby(1); err != nil {
		t.Fatalf("NormalizeCountby: %v", err)
	}
	if err := c.ZeroPoint(0); err != nil {
		t.Fatalf("ZeroPoint: %v", err)
	}
	if err := c.BuildTable(10000, 100.0); err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	if err := c.BuildTable(20000, 200.0); err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	if err := c.SaveExit(); err != nil {
		t.Fatalf("SaveExit: %v", err)
	}
	return c
}

func TestPiecewiseInterpolation(t *testing.T) {
	c := buildCompletedTable(t)
	if got := ADCToValue(15000, c); math.Abs(got-150.0) > 1e-9 {
		t.Fatalf("ADCToValue(15000) = %v, want 150.0", got)
	}
	if got := ADCToValue(25000, c); math.Abs(got-250.0) > 1e-9 {
		t.Fatalf("ADCToValue(25000) = %v, want 250.0 (right-extrapolation)", got)
	}
	if got := ADCToValue(0, c); math.Abs(got-0.0) > 1e-9 {
		t.Fatalf("ADCToValue(0) = %v, want 0.0", got)
	}
}

func TestBuildTableRejectsOutOfSequence(t *testing.T) {
	c := NewCal()
	if err := c.BuildTable(10000, 100); err != scaleerr.ErrWrongCalSequence {
		t.Fatalf("BuildTable before countby normalization: got %v, want ErrWrongCalSequence", err)
	}
}

func TestBuildTableRejectsDifferentValueOnSameLoad(t *testing.T) {
	c := NewCal()
	c.NewCalSequence(0, 200)
	c.NormalizeCountby(1)
	c.ZeroPoint(0)
	if err := c.BuildTable(10000, 100); err != nil {
		t.Fatalf("first span point: %v", err)
	}
	if err := c.BuildTable(10100, 150); err != scaleerr.ErrDifferentValueOnSameLoad {
		t.Fatalf("close ADC, different value: got %v, want ErrDifferentValueOnSameLoad", err)
	}
}

func TestBuildTableRejectsLowSlope(t *testing.T) {
	c := NewCal()
	c.NewCalSequence(0, 200)
	c.NormalizeCountby(1)
	c.ZeroPoint(0)
	if err := c.BuildTable(600, 200); err != scaleerr.ErrLessThan4CntPerD {
		t.Fatalf("low ADC-counts-per-countby slope: got %v, want ErrLessThan4CntPerD", err)
	}
}

func TestBuildTableRejectsOverCapacity(t *testing.T) {
	c := NewCal()
	c.NewCalSequence(0, 200)
	c.NormalizeCountby(1)
	c.ZeroPoint(0)
	if err := c.BuildTable(100000, 300); err != scaleerr.ErrTestLoadGtCapacity {
		t.Fatalf("300 against 200 capacity: got %v, want ErrTestLoadGtCapacity", err)
	}
}

func TestEndMarkerInvariant(t *testing.T) {
	c := buildCompletedTable(t)
	for i := 0; i < MaxCalPoints-1; i++ {
		if c.AdcCnt[i] > c.AdcCnt[i+1] {
			t.Fatalf("adcCnt not non-decreasing at %d: %d > %d", i, c.AdcCnt[i], c.AdcCnt[i+1])
		}
		if c.AdcCnt[i] == c.AdcCnt[i+1] && c.Value[i] != c.Value[i+1] {
			t.Fatalf("end marker broken at %d: adc equal but value differs", i)
		}
	}
}

func TestCalTableBuildIsDeterministic(t *testing.T) {
	// Two identically-sequenced builds must produce the exact same
	// AdcCnt/Value arrays and status, not merely equal field-by-field --
	// cmp.Diff walks the full [MaxCalPoints]int32/float32 arrays and
	// reports exactly which point diverges, instead of a flat bool.
	a := buildCompletedTable(t)
	b := buildCompletedTable(t)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("identical cal sequences produced different tables (-a +b):\n%s", diff)
	}
}

func TestRcalCountsAt10PctCapacity(t *testing.T) {
	c := buildCompletedTable(t)
	got := RcalCountsAt10PctCapacity(c)
	want := int32(2000) // 10% of 200 capacity units => 10000*20/100
	if got != want {
		t.Fatalf("RcalCountsAt10PctCapacity = %d, want %d", got, want)
	}
}
