// Command scalecoresim drives a scale.Scale against a synthetic ADC
// source and prints each tick's derived weights, the way
// google-periph/experimental/cmd/hx711 drives a real HX711 and prints
// raw reads — here the "device" is a signal generator instead of a GPIO
// bus, since the measurement core under test has no hardware dependency
// of its own.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/scalehouse/scalecore/calibrate"
	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/loadcell"
	"github.com/scalehouse/scalecore/persist"
	"github.com/scalehouse/scalecore/scale"
	"github.com/scalehouse/scalecore/sensor"
)

// bootstrapSensor is one loadcell's configuration as read from the JSON
// config file.
type bootstrapSensor struct {
	Capacity        float64 `json:"capacity"`
	CountbyIVal     uint16  `json:"countby_ival"`
	CountbyDecPt    int8    `json:"countby_decpt"`
	Unit            uint8   `json:"unit"`
	LiftThreshold   float64 `json:"lift_threshold"`
	DropThreshold   float64 `json:"drop_threshold"`
	PeakHoldEnabled bool    `json:"peak_hold_enabled"`
	AutoClearTare   bool    `json:"auto_clear_tare"`

	// SpanADCCount/SpanValue define the single calibration span point
	// the simulator builds on startup; ZeroADCCount is the zero
	// reference point.
	ZeroADCCount int32   `json:"zero_adc_count"`
	SpanADCCount int32   `json:"span_adc_count"`
	SpanValue    float32 `json:"span_value"`

	// AmplitudeWt/PeriodS describe the synthetic sine-wave load this
	// sensor reports, in view units.
	AmplitudeWt float64 `json:"amplitude_wt"`
	PeriodS     float64 `json:"period_s"`
}

type bootstrapConfig struct {
	FilterIntervalMs int               `json:"filter_interval_ms"`
	Sensors          []bootstrapSensor `json:"sensors"`
}

func loadBootstrap(path string) (*bootstrapConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg bootstrapConfig
	if err := json.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("scalecoresim: decode %s: %w", path, err)
	}
	if len(cfg.Sensors) == 0 || len(cfg.Sensors) > sensor.MaxNumLoadcell {
		return nil, fmt.Errorf("scalecoresim: %s must configure 1..%d sensors", path, sensor.MaxNumLoadcell)
	}
	return &cfg, nil
}

// buildScale constructs a scale.Scale with one calibrated LC per
// bootstrap sensor entry.
func buildScale(cfg *bootstrapConfig) (*scale.Scale, time.Duration, error) {
	filterInterval := time.Duration(cfg.FilterIntervalMs) * time.Millisecond
	if filterInterval <= 0 {
		filterInterval = 100 * time.Millisecond
	}

	s := &scale.Scale{}
	for i, sc := range cfg.Sensors {
		cb := countby.New(sc.CountbyIVal, sc.CountbyDecPt, countby.UnitCode(sc.Unit))
		lcCfg := loadcell.Config{
			CalUnit:         countby.UnitCode(sc.Unit),
			ViewUnit:        countby.UnitCode(sc.Unit),
			ViewCB:          cb,
			ViewCapacity:    sc.Capacity,
			LiftWtThreshold: sc.LiftThreshold,
			DropWtThreshold: sc.DropThreshold,
			FilterInterval:  filterInterval,
			PeakHoldEnabled: sc.PeakHoldEnabled,
			AutoClearTare:   sc.AutoClearTare,
			Enabled:         true,
		}

		cal := calibrate.NewCal()
		if err := cal.NewCalSequence(countby.UnitCode(sc.Unit), float32(sc.Capacity)); err != nil {
			return nil, 0, fmt.Errorf("scalecoresim: sensor %d: %w", i, err)
		}
		if err := cal.NormalizeCountby(float32(sc.CountbyIVal)); err != nil {
			return nil, 0, fmt.Errorf("scalecoresim: sensor %d: %w", i, err)
		}
		if err := cal.ZeroPoint(sc.ZeroADCCount); err != nil {
			return nil, 0, fmt.Errorf("scalecoresim: sensor %d: %w", i, err)
		}
		if err := cal.BuildTable(sc.SpanADCCount, sc.SpanValue); err != nil {
			return nil, 0, fmt.Errorf("scalecoresim: sensor %d: %w", i, err)
		}
		if err := cal.SaveExit(); err != nil {
			return nil, 0, fmt.Errorf("scalecoresim: sensor %d: %w", i, err)
		}

		s.Loadcells[i] = loadcell.New(uint8(i), cal, lcCfg)
	}
	// RAM-only store: the simulator has no real NV device, but wiring it
	// through exercises the same save-dynamic-data path a real deployment
	// would use.
	s.WireStore(persist.NewStore(nil))
	return s, filterInterval, nil
}

// syntheticDescriptor converts sc's configured sine wave at elapsed time t
// into an ADC count, inverting the same zero/span linear mapping
// calibrate.ADCToValue would apply, so the simulator drives Tick with
// plausible raw samples instead of pre-converted weights.
func syntheticDescriptor(sensorID uint8, sc bootstrapSensor, t time.Duration) *sensor.Descriptor {
	period := sc.PeriodS
	if period <= 0 {
		period = 1
	}
	wt := sc.AmplitudeWt * (0.5 + 0.5*math.Sin(2*math.Pi*t.Seconds()/period))

	span := float64(sc.SpanADCCount - sc.ZeroADCCount)
	adc := sc.ZeroADCCount
	if sc.SpanValue != 0 {
		adc = sc.ZeroADCCount + int32(wt/float64(sc.SpanValue)*span)
	}
	return &sensor.Descriptor{
		SensorID:       sensorID,
		Type:           sensor.TypeLoadcell,
		CurADCcount:    adc,
		CurRawADCcount: adc,
		Status:         sensor.StatusEnabled | sensor.StatusGotADCCount,
	}
}

func run() error {
	cfgPath := flag.String("config", "", "path to a scalecoresim JSON bootstrap file")
	ticks := flag.Int("ticks", 20, "number of simulated ticks to run")
	flag.Parse()

	if *cfgPath == "" {
		return fmt.Errorf("-config is required")
	}

	cfg, err := loadBootstrap(*cfgPath)
	if err != nil {
		return err
	}
	s, filterInterval, err := buildScale(cfg)
	if err != nil {
		return err
	}

	now := time.Now()
	for tick := 0; tick < *ticks; tick++ {
		var descs [sensor.MaxNumLoadcell]*sensor.Descriptor
		for i, sc := range cfg.Sensors {
			descs[i] = syntheticDescriptor(uint8(i), sc, time.Duration(tick)*filterInterval)
		}
		s.Tasks(now, descs, nil)

		for i := range cfg.Sensors {
			lc := s.Loadcells[i]
			fmt.Printf("tick=%d sensor=%d gross=%.3f net=%.3f status=%#x\n",
				tick, i, lc.GrossWt, lc.NetWt, uint32(lc.Status))
		}
		now = now.Add(filterInterval)
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "scalecoresim: %s.\n", err)
		os.Exit(1)
	}
}
