// Package lczero implements the zero engine: command zero, auto-zero
// maintenance (AZM), center-of-zero (COZ), zero undo, and zero-on-power-up.
package lczero

import (
	"time"

	logger "github.com/d2r2/go-logger"
)

var lg = logger.NewPackageLogger("lczero", logger.InfoLevel)

// LegalMode selects which of the parallel AZM/zero-band parameter sets
// (one per LegalMode) is active.
type LegalMode uint8

const (
	ModeIndustry LegalMode = iota
	ModeNTEP
	ModeOIML
	ModeOneUnit
)

// BandParams is one legal-for-trade mode's AZM/zero-band parameter set.
// Four of these exist in parallel (Industry/NTEP/OIML/1-unit, indexed by
// LegalMode); the active one is selected by Engine.Init whenever the
// scale-standard mode changes.
type BandParams struct {
	AZMIntervalTime time.Duration
	AZMCBRange      float64 // AZM threshold, as a weight in view units
	PcentCapZeroBandHi float64
	PcentCapZeroBandLo float64
	PwupZeroBandHi     float64
	PwupZeroBandLo     float64
}

// powerUpZeroWindow is how long the wider power-up zero band stays active
// before the engine switches back to the normal band.
const powerUpZeroWindow = 10 * time.Second

// Engine holds zero-engine state for one loadcell.
type Engine struct {
	Mode   LegalMode
	Params [4]BandParams // indexed by LegalMode

	// AZMEnabled gates AZM per the scale-standard-mode AZM bit. AZM() is a
	// permanent no-op while this is false, matching the original firmware
	// skipping the whole auto-zero-maintenance routine when the bit is clear.
	AZMEnabled bool

	ZeroOffset float64 // fixed mechanical offset, outside the zero band
	QuarterCBWt float64

	azmTimerStart time.Time
	azmArmed      bool

	PendingZero   bool
	pendingTimerStart time.Time
	pendingDuration   time.Duration

	powerUpActive     bool
	powerUpTimerStart time.Time

	active BandParams
}

// Init selects the active parameter set for the current legal-for-trade
// mode. Must be called whenever the scale-standard mode changes.
func (e *Engine) Init() {
	e.active = e.Params[e.Mode]
}

// SetupZeroPowerup installs the wider power-up zero band and arms a
// ~10-second pending-zero window. Called once at boot if the
// zero-on-powerup bit is set in scale-standard mode.
func (e *Engine) SetupZeroPowerup(now time.Time) {
	e.powerUpActive = true
	e.powerUpTimerStart = now
	e.PendingZero = true
	e.pendingTimerStart = now
	e.pendingDuration = powerUpZeroWindow
}

// zeroBand returns the currently active (lo, hi) zero band, honoring the
// wider power-up band while it is still active.
func (e *Engine) zeroBand(now time.Time) (lo, hi float64) {
	if e.powerUpActive {
		if now.Sub(e.powerUpTimerStart) >= powerUpZeroWindow {
			e.powerUpActive = false
			e.Init()
		} else {
			return e.active.PwupZeroBandLo, e.active.PwupZeroBandHi
		}
	}
	return e.active.PcentCapZeroBandLo, e.active.PcentCapZeroBandHi
}

// ZeroByCommand attempts a user-commanded zero. rawWt is the current raw
// weight (pre-zero-offset-subtracted cal reading), curZeroWt is the
// current zero offset, valid reports whether the loadcell has a valid
// weight, inMotion reports current motion state, and filterInterval/
// userPendingTime feed the pending-zero timer formula. Returns the new
// zero offset and whether it changed (false+unchanged means either the
// value was invalid and the call was silently refused, or pending-zero
// was armed instead).
func (e *Engine) ZeroByCommand(now time.Time, rawWt, curZeroWt float64, valid, inMotion bool, filterInterval, userPendingTime time.Duration) (newZeroWt, prevZeroWt float64, changed bool) {
	if !valid {
		return curZeroWt, curZeroWt, false
	}

	delta := rawWt - e.ZeroOffset
	lo, hi := e.zeroBand(now)

	if inMotion {
		e.PendingZero = true
		e.pendingTimerStart = now
		e.pendingDuration = pendingTime(filterInterval, userPendingTime)
		return curZeroWt, curZeroWt, false
	}

	if delta < lo || delta > hi {
		return curZeroWt, curZeroWt, false
	}

	e.PendingZero = false
	return delta, curZeroWt, true
}

// CheckPending re-attempts a zero whose pending-time window has not yet
// expired, or clears the pending state once it has. Call once per tick
// while PendingZero is set.
func (e *Engine) CheckPending(now time.Time, rawWt, curZeroWt float64, valid, inMotion bool) (newZeroWt, prevZeroWt float64, fired bool) {
	if !e.PendingZero {
		return curZeroWt, curZeroWt, false
	}
	if now.Sub(e.pendingTimerStart) >= e.pendingDuration {
		e.PendingZero = false
		return curZeroWt, curZeroWt, false
	}
	if !inMotion && valid {
		delta := rawWt - e.ZeroOffset
		lo, hi := e.zeroBand(now)
		if delta >= lo && delta <= hi {
			e.PendingZero = false
			return delta, curZeroWt, true
		}
	}
	return curZeroWt, curZeroWt, false
}

// pendingTime resolves the Open Question: the larger of the user-configured
// pending time and 3x the filter settling interval plus half a second.
func pendingTime(filterInterval, userPendingTime time.Duration) time.Duration {
	filterSettling := 3*filterInterval + 500*time.Millisecond
	if userPendingTime > filterSettling {
		return userPendingTime
	}
	return filterSettling
}

// AZM runs auto-zero-maintenance: every AZMIntervalTime, if not in motion
// and the current weight is within both the AZM threshold of the prior
// zero and the zero band, nudge the zero offset. Unlike ZeroByCommand, AZM
// never updates prevZeroWt, so Undo always returns to the last
// user-commanded zero, never to an AZM-drifted value.
//
// AZM requires no motion (the later-rewritten, safer variant; an earlier
// revision ignored motion entirely).
func (e *Engine) AZM(now time.Time, rawWt, curZeroWt float64, valid, inMotion bool) (newZeroWt float64, changed bool) {
	if !e.AZMEnabled {
		return curZeroWt, false
	}
	if !valid || inMotion {
		e.azmArmed = false
		return curZeroWt, false
	}
	if !e.azmArmed {
		e.azmArmed = true
		e.azmTimerStart = now
		return curZeroWt, false
	}
	if now.Sub(e.azmTimerStart) < e.active.AZMIntervalTime {
		return curZeroWt, false
	}
	e.azmTimerStart = now

	grossSinceZero := rawWt - e.ZeroOffset - curZeroWt
	if grossSinceZero < -e.active.AZMCBRange || grossSinceZero > e.active.AZMCBRange {
		return curZeroWt, false
	}
	delta := rawWt - e.ZeroOffset
	lo, hi := e.zeroBand(now)
	if delta < lo || delta > hi {
		return curZeroWt, false
	}
	return delta, true
}

// COZ reports center-of-zero: stable and the effective weight is within a
// quarter countby of zero. In peak-hold mode the band widens to 4
// countby.
func (e *Engine) COZ(stable bool, effectiveWt float64, peakHoldMode bool) bool {
	if !stable {
		return false
	}
	band := e.QuarterCBWt
	if peakHoldMode {
		band = 16 * e.QuarterCBWt // widened to 4 countby (quarter-cb * 16)
	}
	if effectiveWt < 0 {
		effectiveWt = -effectiveWt
	}
	return effectiveWt < band
}

// Undo restores the zero offset to the last user-commanded value.
func Undo(prevZeroWt float64) float64 {
	return prevZeroWt
}
