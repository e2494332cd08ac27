package countby

import (
	"math"
	"testing"
)

func TestNormalizeInputCountby(t *testing.T) {
	cb := NormalizeInput(0.037, 0)
	if cb.IValue != 5 || cb.DecPt != 2 {
		t.Fatalf("got iValue=%d decPt=%d, want iValue=5 decPt=2", cb.IValue, cb.DecPt)
	}
	if math.Abs(float64(cb.FValue)-0.05) > 1e-9 {
		t.Fatalf("got fValue=%v, want 0.05", cb.FValue)
	}
}

func TestNormalizeRoundTrip(t *testing.T) {
	cb := NormalizeInput(0.037, 0)
	rescaled := New(cb.IValue, cb.DecPt, cb.Unit)
	again := NormalizeInput(rescaled.FValue, cb.Unit)
	if again.IValue != cb.IValue || again.DecPt != cb.DecPt {
		t.Fatalf("round trip changed countby: got %+v, want %+v", again, cb)
	}
}

func TestRound(t *testing.T) {
	cb := New(2, 1, 0) // 0.2
	got := Round(1.05, cb)
	if math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("Round(1.05, 0.2) = %v, want 1.0", got)
	}
}
