package lctotal

import (
	"testing"
	"time"
)

func TestAutoLoadAcceptsAfterStability(t *testing.T) {
	e := &Engine{Mode: ModeAutoLoad, RiseWtThreshold: 10, DropWtThreshold: 5, MinStableTime: 200 * time.Millisecond}
	stats := &Stats{}
	now := time.Now()

	accepted, _ := e.Tick(now, 50, true, stats)
	if accepted {
		t.Fatalf("must not accept before minStableTime elapses")
	}
	accepted, w := e.Tick(now.Add(300*time.Millisecond), 50, true, stats)
	if !accepted || w != 50 {
		t.Fatalf("expected accept of 50 after stability window, got accepted=%v w=%v", accepted, w)
	}
	if stats.NumTotal != 1 || stats.TotalWt != 50 {
		t.Fatalf("stats not updated: %+v", stats)
	}

	// must not accept again until weight drops below dropWtThreshold
	accepted, _ = e.Tick(now.Add(400*time.Millisecond), 50, true, stats)
	if accepted {
		t.Fatalf("must not double-total while still loaded")
	}
	e.Tick(now.Add(500*time.Millisecond), 0, true, stats)
	if e.Status&StatusNotAllow != 0 {
		t.Fatalf("expected re-arm after dropping below threshold")
	}
}

func TestSkipTotalMasksDiscontinuity(t *testing.T) {
	e := &Engine{Mode: ModeAutoLoad, RiseWtThreshold: 10, DropWtThreshold: 5, MinStableTime: 0}
	stats := &Stats{}
	now := time.Now()
	e.SkipTotal()
	e.Tick(now, 50, true, stats) // arms stability timer
	accepted, _ := e.Tick(now.Add(time.Millisecond), 50, true, stats)
	if accepted || stats.NumTotal != 0 {
		t.Fatalf("SkipTotal must mask the first qualifying tick")
	}
}

func TestOnAcceptRange(t *testing.T) {
	e := &Engine{Mode: ModeOnAccept, OnAcceptLowerWt: 10, OnAcceptUpperWt: 20, MinStableTime: 0}
	stats := &Stats{}
	now := time.Now()
	e.Tick(now, 15, true, stats)
	accepted, w := e.Tick(now, 15, true, stats)
	if !accepted || w != 15 {
		t.Fatalf("expected accept within range, got accepted=%v w=%v", accepted, w)
	}
}

func TestStatsRemoveLast(t *testing.T) {
	s := &Stats{}
	s.Accumulate(10)
	s.Accumulate(20)
	s.RemoveLast(20)
	if s.NumTotal != 1 || s.TotalWt != 10 {
		t.Fatalf("RemoveLast left stats %+v, want NumTotal=1 TotalWt=10", s)
	}
}
