package lctare

import (
	"testing"
	"time"

	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/scaleerr"
)

func TestTareSetRejectsNegative(t *testing.T) {
	cb := countby.New(1, 0, 0)
	if _, _, err := TareSet(-1, 1000, cb); err != scaleerr.ErrOutRangeInput {
		t.Fatalf("got %v, want ErrOutRangeInput", err)
	}
}

func TestTareSetRejectsOverload(t *testing.T) {
	cb := countby.New(1, 0, 0)
	if _, _, err := TareSet(1000, 1000, cb); err != scaleerr.ErrOutRangeInput {
		t.Fatalf("got %v, want ErrOutRangeInput", err)
	}
}

func TestTareSetEntersNetMode(t *testing.T) {
	cb := countby.New(1, 0, 0)
	tareWt, netMode, err := TareSet(10, 1000, cb)
	if err != nil || tareWt != 10 || !netMode {
		t.Fatalf("got tareWt=%v netMode=%v err=%v, want 10 true nil", tareWt, netMode, err)
	}
}

func TestAutoClearAtZeroCrossing(t *testing.T) {
	e := &Engine{AutoClear: true}
	newTareWt, netMode, cleared := e.AutoClearIfCrossedZero(-5.0, 10.0)
	if !cleared || newTareWt != 0 || netMode {
		t.Fatalf("got newTareWt=%v netMode=%v cleared=%v, want 0 false true", newTareWt, netMode, cleared)
	}
}

func TestTareGrossArmsPendingDuringMotion(t *testing.T) {
	e := &Engine{}
	cb := countby.New(1, 0, 0)
	_, _, fired, err := e.TareGross(time.Now(), 50, 1000, cb, false, 100*time.Millisecond, 0)
	if err != nil || fired {
		t.Fatalf("expected pending arm, not immediate fire")
	}
	if !e.PendingTare {
		t.Fatalf("expected PendingTare armed")
	}
}

func TestTareGrossImmediateWhenStable(t *testing.T) {
	e := &Engine{}
	cb := countby.New(1, 0, 0)
	tareWt, netMode, fired, err := e.TareGross(time.Now(), 50, 1000, cb, true, 0, 0)
	if err != nil || !fired || tareWt != 50 || !netMode {
		t.Fatalf("got tareWt=%v netMode=%v fired=%v err=%v", tareWt, netMode, fired, err)
	}
}
