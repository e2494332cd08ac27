// Package haladapter exposes a scale.Scale as a reef-pi hal.Driver: one
// hal.AnalogInputPin per configured loadcell plus one for the math
// sensor (if configured), each reporting its active (net-or-gross)
// weight. The scale's command surface (zero, tare, calibration,
// totaling) has no hal.Capability of its own — reef-pi's generic
// Calibrate hook is a deliberate no-op here, as with reef-pi's pH
// drivers — so callers reach it through Driver.Core().
package haladapter

import (
	"fmt"
	"sync"
	"time"

	"github.com/reef-pi/hal"

	"github.com/scalehouse/scalecore/scale"
	"github.com/scalehouse/scalecore/sensor"
)

const driverName = "ScaleCore Measurement Core"

// mathPinNumber is the hal pin number the math sensor channel is
// published under, one past the highest physical loadcell channel.
const mathPinNumber = sensor.MaxNumLoadcell

// Driver publishes a scale.Scale's sensors as AnalogInput pins.
type Driver struct {
	core *scale.Scale
	mu   sync.Mutex

	pins []hal.AnalogInputPin
	meta hal.Metadata
}

// Core returns the underlying scale.Scale for callers that need the full
// command surface (zero, tare, calibration, totaling) hal.AnalogInput
// cannot express.
func (d *Driver) Core() *scale.Scale { return d.core }

func (d *Driver) Name() string           { return driverName }
func (d *Driver) Close() error           { return nil }
func (d *Driver) Metadata() hal.Metadata { return d.meta }

func (d *Driver) Pins(cap hal.Capability) ([]hal.Pin, error) {
	switch cap {
	case hal.AnalogInput:
		pins := make([]hal.Pin, 0, len(d.pins))
		for _, p := range d.pins {
			pins = append(pins, p)
		}
		return pins, nil
	default:
		return nil, fmt.Errorf("unsupported capability: %s", cap.String())
	}
}

func (d *Driver) AnalogInputPins() []hal.AnalogInputPin { return d.pins }

// AnalogInputPin looks up by pin Number(), the usual multi-channel-driver
// pattern, rather than assuming slice position == channel.
func (d *Driver) AnalogInputPin(n int) (hal.AnalogInputPin, error) {
	for _, p := range d.pins {
		if p.Number() == n {
			return p, nil
		}
	}
	return nil, fmt.Errorf("haladapter: no channel %d", n)
}

// sensorPin is one loadcell or math-sensor channel.
type sensorPin struct {
	d        *Driver
	sensorID uint8
	isMath   bool
	unit     string
	meta     hal.Metadata
}

func (p *sensorPin) Name() string           { return fmt.Sprintf("sensor %d", p.sensorID) }
func (p *sensorPin) Number() int            { return int(p.sensorID) }
func (p *sensorPin) Close() error           { return nil }
func (p *sensorPin) Metadata() hal.Metadata { return p.meta }

// Calibrate is intentionally a no-op: this driver's notion of
// calibration (cal-table span points) is reached through Driver.Core(),
// not reef-pi's generic per-point hook.
func (p *sensorPin) Calibrate(_ []hal.Measurement) error { return nil }

func (p *sensorPin) Measure() (float64, error) { return p.Value() }

func (p *sensorPin) Value() (float64, error) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	if p.isMath {
		if p.d.core.Math == nil {
			return 0, fmt.Errorf("haladapter: no math sensor configured")
		}
		m := p.d.core.Math
		if m.NetMode {
			return m.NetWt, nil
		}
		return m.GrossWt, nil
	}

	lc := p.d.core.Loadcells[p.sensorID]
	if lc == nil {
		return 0, fmt.Errorf("haladapter: sensor %d not configured", p.sensorID)
	}
	if lc.NetMode {
		return lc.NetWt, nil
	}
	return lc.GrossWt, nil
}

// Snapshot implements hal.SnapshotCapable, the hook reef-pi probe
// drivers use to surface raw/derived signals to the calibration wizard UI.
func (p *sensorPin) Snapshot() (hal.Snapshot, error) {
	p.d.mu.Lock()
	defer p.d.mu.Unlock()

	signals := map[string]hal.Signal{}
	meta := map[string]interface{}{}
	var value float64
	var status uint32

	if p.isMath {
		m := p.d.core.Math
		if m == nil {
			return hal.Snapshot{}, fmt.Errorf("haladapter: no math sensor configured")
		}
		signals["gross"] = hal.Signal{Now: m.GrossWt, Unit: p.unit}
		signals["net"] = hal.Signal{Now: m.NetWt, Unit: p.unit}
		signals["tare"] = hal.Signal{Now: m.TareWt, Unit: p.unit}
		signals["total"] = hal.Signal{Now: m.Stats.TotalWt, Unit: p.unit}
		value = m.GrossWt
		status = uint32(m.Status)
	} else {
		lc := p.d.core.Loadcells[p.sensorID]
		if lc == nil {
			return hal.Snapshot{}, fmt.Errorf("haladapter: sensor %d not configured", p.sensorID)
		}
		signals["gross"] = hal.Signal{Now: lc.GrossWt, Unit: p.unit}
		signals["net"] = hal.Signal{Now: lc.NetWt, Unit: p.unit}
		signals["tare"] = hal.Signal{Now: lc.TareWt, Unit: p.unit}
		signals["peak"] = hal.Signal{Now: lc.PeakHoldWt, Unit: p.unit}
		signals["total"] = hal.Signal{Now: lc.Stats.TotalWt, Unit: p.unit}
		value = lc.GrossWt
		status = uint32(lc.Status)
	}

	meta["primary_signal_key"] = "gross"
	meta["raw_signal_key"] = "gross"
	meta["secondary_signal_keys"] = []string{"net", "tare", "peak", "total"}
	meta["status_bits"] = status

	return hal.Snapshot{
		Value:   value,
		Unit:    p.unit,
		Signals: signals,
		Meta:    meta,
	}, nil
}

// pollInterval is how often a caller wiring this driver into reef-pi's
// generic polling loop should invoke Core().Tasks(); the measurement
// core itself is tick-driven, not interval-driven, but reef-pi's cron
// layer needs a fixed period.
const pollInterval = 100 * time.Millisecond
