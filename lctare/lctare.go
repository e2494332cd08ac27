// Package lctare implements the tare engine: tare-from-gross, explicit
// tare-set, net/gross toggle, and the pending-tare state machine that
// arms when a tare is requested while the loadcell is in motion.
package lctare

import (
	"time"

	logger "github.com/d2r2/go-logger"

	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/scaleerr"
)

var lg = logger.NewPackageLogger("lctare", logger.InfoLevel)

// Engine holds tare-engine state for one loadcell.
type Engine struct {
	AutoClear bool // clear tare automatically when net crosses to <= 0

	PendingTare       bool
	pendingTimerStart time.Time
	pendingDuration   time.Duration
	pendingTargetWt   float64
}

// pendingTime is the same max(user, 3*filterInterval+0.5s) rule the zero
// engine uses.
func pendingTime(filterInterval, userPendingTime time.Duration) time.Duration {
	filterSettling := 3*filterInterval + 500*time.Millisecond
	if userPendingTime > filterSettling {
		return userPendingTime
	}
	return filterSettling
}

// TareSet stores v as the tare weight after validating it and rounding to
// the view countby. Rejects v<0 or v>=overloadThresholdWt. Sets NET mode
// when v>0, clears it when v==0.
func TareSet(v, overloadThresholdWt float64, viewCB countby.CB) (tareWt float64, netMode bool, err error) {
	if v < 0 || v >= overloadThresholdWt {
		return 0, false, scaleerr.ErrOutRangeInput
	}
	rounded := countby.Round(v, viewCB)
	return rounded, rounded > 0, nil
}

// ToggleNetGross flips NET/GROSS mode. The caller must mark "skip total"
// on the tick this fires, to avoid spuriously totaling the discontinuity.
func ToggleNetGross(netMode bool) bool { return !netMode }

// TareGross attempts to tare-from-gross: if the loadcell is stable, call
// TareSet(grossWt) directly. If in motion, arm PendingTare with the same
// pending-time rule as zero.
func (e *Engine) TareGross(now time.Time, grossWt, overloadThresholdWt float64, viewCB countby.CB, stable bool, filterInterval, userPendingTime time.Duration) (tareWt float64, netMode bool, fired bool, err error) {
	if stable {
		tareWt, netMode, err = TareSet(grossWt, overloadThresholdWt, viewCB)
		if err != nil {
			return 0, false, false, err
		}
		e.PendingTare = false
		return tareWt, netMode, true, nil
	}
	e.PendingTare = true
	e.pendingTimerStart = now
	e.pendingDuration = pendingTime(filterInterval, userPendingTime)
	e.pendingTargetWt = grossWt
	return 0, false, false, nil
}

// CheckPending retries a pending tare-from-gross once the loadcell
// stabilizes, or clears the pending state once the window expires.
func (e *Engine) CheckPending(now time.Time, grossWt, overloadThresholdWt float64, viewCB countby.CB, stable bool) (tareWt float64, netMode bool, fired bool) {
	if !e.PendingTare {
		return 0, false, false
	}
	if now.Sub(e.pendingTimerStart) >= e.pendingDuration {
		e.PendingTare = false
		return 0, false, false
	}
	if stable {
		tareWt, netMode, err := TareSet(grossWt, overloadThresholdWt, viewCB)
		if err == nil {
			e.PendingTare = false
			return tareWt, netMode, true
		}
	}
	return 0, false, false
}

// AutoClearIfCrossedZero clears the tare and exits NET mode once netWt has
// crossed to <= 0, when AutoClear is enabled. Mirrors
// loadcell_tracks_net_gross_tare's tare auto-clear behavior.
func (e *Engine) AutoClearIfCrossedZero(netWt, tareWt float64) (newTareWt float64, netMode, cleared bool) {
	if e.AutoClear && tareWt > 0 && netWt <= 0 {
		return 0, false, true
	}
	return tareWt, tareWt > 0, false
}
