// Package lctotal implements the totaling engine: seven accumulation
// modes over a stream of stabilized weights, maintaining running total,
// count, min, max, and sum-of-squares.
package lctotal

import (
	"time"

	logger "github.com/d2r2/go-logger"
)

var lg = logger.NewPackageLogger("lctotal", logger.InfoLevel)

// Mode selects how a total is accepted.
type Mode uint8

const (
	ModeDisabled Mode = iota
	ModeAutoLoad
	ModeAutoNormal
	ModeAutoPeak
	ModeLoadDrop
	ModeOnAccept
	ModeOnCommand
)

// Status bits on Totals.Status.
type Status uint16

const (
	StatusNotAllow Status = 1 << iota
	StatusStartLoadDrop
	StatusDisabledAutoModes
	StatusSkipTotal
	StatusNewBlinkEvent
	StatusNotAllowBlinkLamp
)

// Stats is the persistent accumulated-total record for one loadcell.
type Stats struct {
	TotalWt    float64
	SumSqTotal float64
	MaxTotal   float64
	MinTotal   float64
	NumTotal   uint32
}

// Accumulate folds a newly-accepted weight w into Stats.
func (s *Stats) Accumulate(w float64) {
	s.TotalWt += w
	s.SumSqTotal += w * w
	if s.NumTotal == 0 || w > s.MaxTotal {
		s.MaxTotal = w
	}
	if s.NumTotal == 0 || w < s.MinTotal {
		s.MinTotal = w
	}
	s.NumTotal++
}

// Clear resets the accumulated statistics.
func (s *Stats) Clear() { *s = Stats{} }

// RemoveLast undoes the effect of the most recently accumulated weight.
// Min/max cannot be recovered exactly once other entries exist, so
// RemoveLast only adjusts sum/sumSq/count and leaves min/max as a
// conservative (possibly stale) bound, mirroring firmware's own behavior
// of not reconstructing historical min/max on remove-last.
func (s *Stats) RemoveLast(w float64) {
	if s.NumTotal == 0 {
		return
	}
	s.TotalWt -= w
	s.SumSqTotal -= w * w
	s.NumTotal--
}

// Engine holds the runtime (non-persistent) totaling state for one
// loadcell.
type Engine struct {
	Mode Mode
	Status Status

	DropWtThreshold  float64
	RiseWtThreshold  float64
	OnAcceptUpperWt  float64
	OnAcceptLowerWt  float64
	MinStableTime    time.Duration

	qualifiedWt float64
	lastWt      float64
	peakSeen    float64

	stableTimerStart time.Time
	stableArmed      bool

	ldmAccWtUp    float64
	ldmAccWtDown  float64
	ldmCountUp    int
	ldmCountDown  int
	ldmAvgQWt90pct float64
	loaded        bool
}

// SkipTotal marks the current tick's weight change as a discontinuity
// (from zero, tare, or net/gross toggle) that must not be totaled.
func (e *Engine) SkipTotal() { e.Status |= StatusSkipTotal }

func (e *Engine) clearSkipTotal() { e.Status &^= StatusSkipTotal }

// Tick processes one weight sample. now is the current time, w is the
// weight to total against (net if NET mode else gross), stable reports
// motion-free status. accepted is true exactly on the tick a total is
// committed into stats.
func (e *Engine) Tick(now time.Time, w float64, stable bool, stats *Stats) (accepted bool, acceptedWt float64) {
	skip := e.Status&StatusSkipTotal != 0
	e.clearSkipTotal()
	e.lastWt = w

	switch e.Mode {
	case ModeDisabled:
		return false, 0
	case ModeAutoLoad, ModeAutoNormal:
		return e.tickAutoLoad(now, w, stable, skip, stats, false)
	case ModeAutoPeak:
		return e.tickAutoLoad(now, w, stable, skip, stats, true)
	case ModeLoadDrop:
		return e.tickLoadDrop(now, w, skip, stats)
	case ModeOnAccept:
		return e.tickOnAccept(now, w, stable, skip, stats)
	case ModeOnCommand:
		e.tickOnAccept(now, w, stable, skip, stats) // track stability/qualification only
		return false, 0
	}
	return false, 0
}

// Commit finalizes an on-command total using whatever value last
// qualified under the stability rule.
func (e *Engine) Commit(stats *Stats) (accepted bool, acceptedWt float64) {
	if e.Mode != ModeOnCommand || e.Status&StatusNotAllow != 0 {
		return false, 0
	}
	stats.Accumulate(e.qualifiedWt)
	e.Status |= StatusNotAllow
	return true, e.qualifiedWt
}

func (e *Engine) tickAutoLoad(now time.Time, w float64, stable, skip bool, stats *Stats, peak bool) (bool, float64) {
	if e.Status&StatusNotAllow != 0 {
		if w <= e.DropWtThreshold {
			e.Status &^= StatusNotAllow
			e.stableArmed = false
			e.peakSeen = 0
		}
		return false, 0
	}
	if w > e.peakSeen {
		e.peakSeen = w
	}
	if w <= e.RiseWtThreshold {
		e.stableArmed = false
		e.peakSeen = 0
		return false, 0
	}
	if skip {
		e.Status |= StatusNotAllow
		return false, 0
	}
	if !stable {
		e.stableArmed = false
		return false, 0
	}
	if !e.stableArmed {
		e.stableArmed = true
		e.stableTimerStart = now
		return false, 0
	}
	if now.Sub(e.stableTimerStart) < e.MinStableTime {
		return false, 0
	}
	accept := w
	if peak {
		accept = e.peakSeen
	}
	stats.Accumulate(accept)
	e.Status |= StatusNotAllow
	return true, accept
}

func (e *Engine) tickOnAccept(now time.Time, w float64, stable, skip bool, stats *Stats) (bool, float64) {
	inRange := w >= e.OnAcceptLowerWt && w <= e.OnAcceptUpperWt
	if !inRange || !stable {
		e.stableArmed = false
		return false, 0
	}
	if !e.stableArmed {
		e.stableArmed = true
		e.stableTimerStart = now
		e.qualifiedWt = w
		return false, 0
	}
	e.qualifiedWt = w
	if now.Sub(e.stableTimerStart) < e.MinStableTime {
		return false, 0
	}
	if skip || e.Mode == ModeOnCommand {
		return false, 0
	}
	stats.Accumulate(w)
	e.stableArmed = false
	return true, w
}

// tickLoadDrop accumulates while loaded and commits the last loaded weight
// once the weight falls to DropWtThreshold or below. The running average
// of the loaded samples (and 90% of it, ldmAvgQWt90pct) is tracked, but the
// commit decision does not use it.
func (e *Engine) tickLoadDrop(now time.Time, w float64, skip bool, stats *Stats) (bool, float64) {
	if w > e.RiseWtThreshold {
		e.ldmAccWtUp += w
		e.ldmCountUp++
		if e.ldmCountUp > 0 {
			avg := e.ldmAccWtUp / float64(e.ldmCountUp)
			e.ldmAvgQWt90pct = avg * 0.9
		}
		e.loaded = true
		e.qualifiedWt = w
		return false, 0
	}
	if e.loaded && w <= e.DropWtThreshold {
		e.loaded = false
		e.ldmAccWtUp = 0
		e.ldmCountUp = 0
		if skip {
			return false, 0
		}
		stats.Accumulate(e.qualifiedWt)
		return true, e.qualifiedWt
	}
	return false, 0
}
