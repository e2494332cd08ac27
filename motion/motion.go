// Package motion implements the loadcell motion/stability detector:
// motion is declared as soon as the weight moves by more than a
// configurable band, and clears once a configurable period has passed
// without such a move, uniformly across every legal-for-trade mode (the final, rewritten
// behavior; see DESIGN.md for the earlier per-mode variant this
// supersedes).
package motion

import "time"

// smallMotionThresholdCB is the delta, as a multiple of the view
// countby, above which the "small motion" power-save flag is raised.
const smallMotionThresholdCB = 4.5

// Detector holds the motion-detection state for one loadcell.
type Detector struct {
	ThresholdWeight float64
	DetectPeriod    time.Duration
	Enabled         bool
	PeakHoldEnabled bool
	CountbyFValue   float64 // view countby's fValue, for the small-motion band

	prvMotionWt float64
	timerStart  time.Time
	timerArmed  bool

	Motion      bool
	SmallMotion bool
}

// Detect runs once per tick when the loadcell has a new valid weight. now
// is the current monotonic time; rawWt is the current raw weight.
func (d *Detector) Detect(now time.Time, rawWt float64) {
	if !d.Enabled {
		d.Motion = false
		d.SmallMotion = false
		d.prvMotionWt = rawWt
		return
	}

	delta := rawWt - d.prvMotionWt
	if delta < 0 {
		delta = -delta
	}

	if delta > d.ThresholdWeight {
		d.Motion = true
		d.timerStart = now
		d.timerArmed = true
		d.prvMotionWt = rawWt
	} else if d.timerArmed && now.Sub(d.timerStart) >= d.DetectPeriod {
		d.Motion = false
		d.timerArmed = false
		d.prvMotionWt = rawWt
	}

	cb := d.CountbyFValue
	if cb <= 0 {
		cb = 1
	}
	d.SmallMotion = !d.PeakHoldEnabled && delta > smallMotionThresholdCB*cb
}

// Stable reports whether the loadcell is currently settled (not in
// motion); tare, zero, and total entry points gate on this.
func (d *Detector) Stable() bool { return !d.Motion }
