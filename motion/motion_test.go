package motion

import (
	"testing"
	"time"
)

func TestDetectSetsMotionOnLargeDelta(t *testing.T) {
	d := &Detector{Enabled: true, ThresholdWeight: 1.0, DetectPeriod: 500 * time.Millisecond}
	base := time.Now()
	d.Detect(base, 0)
	d.Detect(base, 5)
	if !d.Motion {
		t.Fatalf("expected motion after large delta")
	}
}

func TestDetectClearsMotionOnTimerExpiry(t *testing.T) {
	d := &Detector{Enabled: true, ThresholdWeight: 1.0, DetectPeriod: 500 * time.Millisecond}
	base := time.Now()
	d.Detect(base, 0)
	d.Detect(base, 5) // trips motion
	d.Detect(base.Add(600*time.Millisecond), 5)
	if d.Motion {
		t.Fatalf("expected motion cleared after timer expiry")
	}
}

func TestDetectDisabledNeverMotion(t *testing.T) {
	d := &Detector{Enabled: false, ThresholdWeight: 1.0, DetectPeriod: 500 * time.Millisecond}
	d.Detect(time.Now(), 0)
	d.Detect(time.Now(), 1000)
	if d.Motion {
		t.Fatalf("motion detection disabled must never report motion")
	}
}
