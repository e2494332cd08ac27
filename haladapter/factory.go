package haladapter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/reef-pi/hal"

	"github.com/scalehouse/scalecore/calibrate"
	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/loadcell"
	"github.com/scalehouse/scalecore/scale"
	"github.com/scalehouse/scalecore/sensor"
	"github.com/scalehouse/scalecore/unitconv"
	"github.com/scalehouse/scalecore/vsmath"
)

// Parameter names. Per-loadcell parameters are suffixed 0..3, the
// per-channel suffix convention reef-pi analog-input drivers use to
// collapse a ChannelN-shaped config into a single driver instance.
const (
	paramNumSensors = "NumSensors"

	paramCapacityPrefix   = "Capacity"
	paramCountbyIVal      = "CountbyIVal"
	paramCountbyDecPt     = "CountbyDecPt"
	paramUnitPrefix       = "Unit"
	paramLiftThreshold    = "LiftThreshold"
	paramDropThreshold    = "DropThreshold"
	paramPcentUnderload   = "PcentCapUnderload"
	paramPeakHoldPrefix   = "PeakHold"
	paramAutoClearPrefix  = "AutoClearTare"
	paramFilterIntervalMs = "FilterIntervalMs"

	paramMathExpr = "MathExpr"
	paramDebug    = "Debug"
)

func suffixed(prefix string, i int) string { return fmt.Sprintf("%s%d", prefix, i) }

type factory struct {
	meta       hal.Metadata
	parameters []hal.ConfigParameter
}

var f *factory
var once sync.Once

// Factory returns the haladapter hal.DriverFactory singleton.
func Factory() hal.DriverFactory {
	once.Do(func() {
		params := []hal.ConfigParameter{
			{Name: paramNumSensors, Type: hal.Integer, Order: 0, Default: 1},
			{Name: paramFilterIntervalMs, Type: hal.Integer, Order: 1, Default: 100},
			{Name: paramPcentUnderload, Type: hal.Decimal, Order: 2, Default: 0.0},
			{Name: paramMathExpr, Type: hal.String, Order: 3, Default: ""},
			{Name: paramDebug, Type: hal.Boolean, Order: 4, Default: false},
		}
		order := 5
		for i := 0; i < sensor.MaxNumLoadcell; i++ {
			params = append(params,
				hal.ConfigParameter{Name: suffixed(paramCapacityPrefix, i), Type: hal.Decimal, Order: order, Default: 0.0},
				hal.ConfigParameter{Name: suffixed(paramCountbyIVal, i), Type: hal.Integer, Order: order + 1, Default: 1},
				hal.ConfigParameter{Name: suffixed(paramCountbyDecPt, i), Type: hal.Integer, Order: order + 2, Default: 0},
				hal.ConfigParameter{Name: suffixed(paramUnitPrefix, i), Type: hal.Integer, Order: order + 3, Default: 0},
				hal.ConfigParameter{Name: suffixed(paramLiftThreshold, i), Type: hal.Decimal, Order: order + 4, Default: 0.0},
				hal.ConfigParameter{Name: suffixed(paramDropThreshold, i), Type: hal.Decimal, Order: order + 5, Default: 0.0},
				hal.ConfigParameter{Name: suffixed(paramPeakHoldPrefix, i), Type: hal.Boolean, Order: order + 6, Default: false},
				hal.ConfigParameter{Name: suffixed(paramAutoClearPrefix, i), Type: hal.Boolean, Order: order + 7, Default: true},
			)
			order += 8
		}
		f = &factory{
			meta: hal.Metadata{
				Name:         driverName,
				Description:  "Industrial scale measurement core: up to 4 loadcells plus an optional summed math sensor.",
				Capabilities: []hal.Capability{hal.AnalogInput},
			},
			parameters: params,
		}
	})
	return f
}

func (f *factory) Metadata() hal.Metadata               { return f.meta }
func (f *factory) GetParameters() []hal.ConfigParameter { return f.parameters }

func (f *factory) ValidateParameters(parameters map[string]interface{}) (bool, map[string][]string) {
	failures := make(map[string][]string)

	n := getIntAny(parameters, 1, paramNumSensors)
	if n < 1 || n > sensor.MaxNumLoadcell {
		failures[paramNumSensors] = append(failures[paramNumSensors],
			fmt.Sprintf("NumSensors must be 1..%d", sensor.MaxNumLoadcell))
	}

	for i := 0; i < n && i <= sensor.MaxNumLoadcell; i++ {
		key := suffixed(paramCapacityPrefix, i)
		capacityVal := getFloatAny(parameters, 0, key)
		if capacityVal <= 0 {
			failures[key] = append(failures[key], "capacity must be > 0")
		}
	}

	if expr := getStringAny(parameters, "", paramMathExpr); expr != "" {
		if _, err := vsmath.Compile(expr); err != nil {
			failures[paramMathExpr] = append(failures[paramMathExpr], err.Error())
		}
	}

	return len(failures) == 0, failures
}

// NewDriver builds a scale.Scale with one loadcell.LC per configured
// sensor (each starting uncalibrated; the cal sequence is run afterward
// through Driver.Core().CalBegin/.../.CalSaveExit) plus an optional math
// sensor summing every configured loadcell.
func (f *factory) NewDriver(parameters map[string]interface{}, hardwareResources interface{}) (hal.Driver, error) {
	if valid, failures := f.ValidateParameters(parameters); !valid {
		return nil, errors.New(hal.ToErrorString(failures))
	}

	debug := getBoolAny(parameters, false, paramDebug)
	n := getIntAny(parameters, 1, paramNumSensors)
	filterInterval := time.Duration(getIntAny(parameters, 100, paramFilterIntervalMs)) * time.Millisecond
	pcentUnderload := getFloatAny(parameters, 0.0, paramPcentUnderload)

	core := &scale.Scale{}
	pins := make([]hal.AnalogInputPin, 0, n+1)

	for i := 0; i < n; i++ {
		capacity := getFloatAny(parameters, 0, suffixed(paramCapacityPrefix, i))
		iVal := getIntAny(parameters, 1, suffixed(paramCountbyIVal, i))
		decPt := getIntAny(parameters, 0, suffixed(paramCountbyDecPt, i))
		unit := countby.UnitCode(getIntAny(parameters, 0, suffixed(paramUnitPrefix, i)))
		lift := getFloatAny(parameters, 0, suffixed(paramLiftThreshold, i))
		drop := getFloatAny(parameters, 0, suffixed(paramDropThreshold, i))
		peakHold := getBoolAny(parameters, false, suffixed(paramPeakHoldPrefix, i))
		autoClear := getBoolAny(parameters, true, suffixed(paramAutoClearPrefix, i))

		cb := countby.New(uint16(iVal), int8(decPt), unit)
		cfg := loadcell.Config{
			CalUnit:           unit,
			ViewUnit:          unit,
			ViewCB:            cb,
			ViewCapacity:      capacity,
			PcentCapUnderload: pcentUnderload,
			LiftWtThreshold:   lift,
			DropWtThreshold:   drop,
			FilterInterval:    filterInterval,
			PeakHoldEnabled:   peakHold,
			AutoClearTare:     autoClear,
			Enabled:           true,
		}

		lc := loadcell.New(uint8(i), calibrate.NewCal(), cfg)
		core.Loadcells[i] = lc

		unitName := unitConvName(unit)
		pins = append(pins, &sensorPin{d: nil, sensorID: uint8(i), unit: unitName, meta: hal.Metadata{
			Name:         fmt.Sprintf("%s channel %d", driverName, i),
			Description:  "physical loadcell channel",
			Capabilities: []hal.Capability{hal.AnalogInput},
		}})

		if debug {
			lg.Debugf("configured sensor %d: capacity=%v countby=%v unit=%v", i, capacity, cb, unit)
		}
	}

	if expr := getStringAny(parameters, "", paramMathExpr); expr != "" {
		code, err := vsmath.Compile(expr)
		if err != nil {
			return nil, err
		}
		inputs := make([]uint8, n)
		for i := 0; i < n; i++ {
			inputs[i] = uint8(i)
		}
		core.Math = &scale.MathSensor{
			SensorID: sensor.MaxNumLoadcell,
			Code:     code,
			Inputs:   inputs,
			ViewCB:   countby.New(1, 0, 0),
		}
		pins = append(pins, &sensorPin{d: nil, sensorID: sensor.MaxNumLoadcell, isMath: true, unit: "", meta: hal.Metadata{
			Name:         driverName + " math channel",
			Description:  "virtual (summed) math sensor",
			Capabilities: []hal.Capability{hal.AnalogInput},
		}})
	}

	d := &Driver{
		core: core,
		pins: pins,
		meta: hal.Metadata{
			Name:         driverName,
			Description:  f.meta.Description,
			Capabilities: []hal.Capability{hal.AnalogInput},
		},
	}
	for _, p := range pins {
		p.(*sensorPin).d = d
	}
	return d, nil
}

func unitConvName(u countby.UnitCode) string {
	switch u {
	case unitconv.UnitLb:
		return "lb"
	case unitconv.UnitKg:
		return "kg"
	case unitconv.UnitTon:
		return "ton"
	case unitconv.UnitMTon:
		return "mton"
	case unitconv.UnitOz:
		return "oz"
	case unitconv.UnitG:
		return "g"
	case unitconv.UnitKN:
		return "kN"
	default:
		return "unit"
	}
}
