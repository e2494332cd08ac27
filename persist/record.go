package persist

import (
	"encoding/binary"
	"math"

	"github.com/scalehouse/scalecore/calibrate"
	"github.com/scalehouse/scalecore/countby"
)

// CalTableRecord mirrors calibrate.SensorCal for NV storage, one per
// calibration slot (sensor.MaxNumCalSlots of them), with a 16-bit CRC.
type CalTableRecord struct {
	Capacity     float32
	CountbyIVal  uint16
	CountbyDecPt int8
	Status       calibrate.CalStatus
	Temperature  float32
	AdcCnt       [calibrate.MaxCalPoints]int32
	Value        [calibrate.MaxCalPoints]float32
}

func calTableFromSensorCal(c *calibrate.SensorCal) CalTableRecord {
	return CalTableRecord{
		Capacity:     c.Capacity,
		CountbyIVal:  c.Countby.IValue,
		CountbyDecPt: c.Countby.DecPt,
		Status:       c.Status,
		Temperature:  c.TemperatureK,
		AdcCnt:       c.AdcCnt,
		Value:        c.Value,
	}
}

func (r CalTableRecord) toSensorCal(unit countby.UnitCode) *calibrate.SensorCal {
	return &calibrate.SensorCal{
		Capacity:     r.Capacity,
		Countby:      countby.New(r.CountbyIVal, r.CountbyDecPt, unit),
		Status:       r.Status,
		TemperatureK: r.Temperature,
		AdcCnt:       r.AdcCnt,
		Value:        r.Value,
	}
}

func (r CalTableRecord) marshal() []byte {
	buf := make([]byte, 0, 64)
	buf = appendFloat32(buf, r.Capacity)
	buf = appendUint16(buf, r.CountbyIVal)
	buf = append(buf, byte(r.CountbyDecPt))
	buf = append(buf, byte(r.Status))
	buf = appendFloat32(buf, r.Temperature)
	for _, v := range r.AdcCnt {
		buf = appendInt32(buf, v)
	}
	for _, v := range r.Value {
		buf = appendFloat32(buf, v)
	}
	return buf
}

func appendUint16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendInt32(buf []byte, v int32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], uint32(v))
	return append(buf, tmp[:]...)
}

func appendFloat32(buf []byte, v float32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	return append(buf, tmp[:]...)
}

// ScaleStandardMode is the single-byte global operating mode record.
type ScaleStandardMode struct {
	Mode byte
}

// SensorFeature is the per-sensor cal/feature record.
type SensorFeature struct {
	Capacity         float32
	FCountby         float32
	ICountby         uint16
	DecPt            int8
	RefUnit          countby.UnitCode
	Type             byte
	ConvSpeed        byte
	FeatureFlags     uint16
	PctCapUnderload  float32
	ViewUnit         countby.UnitCode
}

func (r SensorFeature) marshal() []byte {
	buf := make([]byte, 0, 32)
	buf = appendFloat32(buf, r.Capacity)
	buf = appendFloat32(buf, r.FCountby)
	buf = appendUint16(buf, r.ICountby)
	buf = append(buf, byte(r.DecPt))
	buf = append(buf, byte(r.RefUnit))
	buf = append(buf, r.Type)
	buf = append(buf, r.ConvSpeed)
	buf = appendUint16(buf, r.FeatureFlags)
	buf = appendFloat32(buf, r.PctCapUnderload)
	buf = append(buf, byte(r.ViewUnit))
	return buf
}

// TotalingStatistics is the per-loadcell totaling-engine state record.
type TotalingStatistics struct {
	TotalWt    float64
	SumSqTotal float64
	MaxTotal   float64
	MinTotal   float64
	NumTotal   uint32
	TotalMode  byte
}

func (r TotalingStatistics) marshal() []byte {
	buf := make([]byte, 0, 40)
	buf = appendFloat64(buf, r.TotalWt)
	buf = appendFloat64(buf, r.SumSqTotal)
	buf = appendFloat64(buf, r.MaxTotal)
	buf = appendFloat64(buf, r.MinTotal)
	buf = appendUint32(buf, r.NumTotal)
	buf = append(buf, r.TotalMode)
	return buf
}

func appendFloat64(buf []byte, v float64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(v))
	return append(buf, tmp[:]...)
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// LoadcellDynamic is the per-loadcell tare/zero/mode state record.
type LoadcellDynamic struct {
	TareWt float64
	ZeroWt float64
	OpMode byte
}

func (r LoadcellDynamic) marshal() []byte {
	buf := make([]byte, 0, 17)
	buf = appendFloat64(buf, r.TareWt)
	buf = appendFloat64(buf, r.ZeroWt)
	buf = append(buf, r.OpMode)
	return buf
}

// ServiceCountersRecord is the per-loadcell service-counter state.
type ServiceCountersRecord struct {
	UserLiftCnt         uint32
	LiftCnt             uint32
	OverloadCnt         uint32
	LiftThresholdPctCap float32
	DropThresholdPctCap float32
	ServiceStatus       byte
}

func (r ServiceCountersRecord) marshal() []byte {
	buf := make([]byte, 0, 21)
	buf = appendUint32(buf, r.UserLiftCnt)
	buf = appendUint32(buf, r.LiftCnt)
	buf = appendUint32(buf, r.OverloadCnt)
	buf = appendFloat32(buf, r.LiftThresholdPctCap)
	buf = appendFloat32(buf, r.DropThresholdPctCap)
	buf = append(buf, r.ServiceStatus)
	return buf
}

// ListenerSettings is N listeners' worth of 5 parallel configuration bytes.
type ListenerSettings struct {
	Bytes [][5]byte
}

func (r ListenerSettings) marshal() []byte {
	buf := make([]byte, 0, 5*len(r.Bytes))
	for _, l := range r.Bytes {
		buf = append(buf, l[:]...)
	}
	return buf
}

// SetpointBlock is the full persisted setpoint configuration array.
type SetpointBlock struct {
	SensorID []byte
	Logic    []byte
	Hyst     []byte
	Value    []float32
}

func (r SetpointBlock) marshal() []byte {
	buf := make([]byte, 0, len(r.SensorID)+len(r.Logic)+len(r.Hyst)+4*len(r.Value))
	buf = append(buf, r.SensorID...)
	buf = append(buf, r.Logic...)
	buf = append(buf, r.Hyst...)
	for _, v := range r.Value {
		buf = appendFloat32(buf, v)
	}
	return buf
}

// LCTotalMotionOpmode is the 10-field per-loadcell totaling/motion/opmode
// configuration block.
type LCTotalMotionOpmode struct {
	TotalMode                                          byte
	DropWtThreshold, RiseWtThreshold                   float32
	OnAcceptUpperWt, OnAcceptLowerWt                    float32
	MotionThresholdWt                                  float32
	MotionDetectPeriodMs                               uint16
	PeakHoldEnabled                                    bool
	OpMode                                             byte
	AutoClearTare                                      bool
}

func (r LCTotalMotionOpmode) marshal() []byte {
	buf := make([]byte, 0, 26)
	buf = append(buf, r.TotalMode)
	buf = appendFloat32(buf, r.DropWtThreshold)
	buf = appendFloat32(buf, r.RiseWtThreshold)
	buf = appendFloat32(buf, r.OnAcceptUpperWt)
	buf = appendFloat32(buf, r.OnAcceptLowerWt)
	buf = appendFloat32(buf, r.MotionThresholdWt)
	buf = appendUint16(buf, r.MotionDetectPeriodMs)
	buf = append(buf, boolByte(r.PeakHoldEnabled))
	buf = append(buf, r.OpMode)
	buf = append(buf, boolByte(r.AutoClearTare))
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// LCStandardModeAZM is the 17-field AZM/zero-band block, with the zero and
// power-up bands held as STD/NTEP/OIML triples.
type LCStandardModeAZM struct {
	AZMIntervalTimeMs                   uint16
	AZMCBRange                          float32
	StdZeroBandHi, StdZeroBandLo        float32
	NtepZeroBandHi, NtepZeroBandLo      float32
	OimlZeroBandHi, OimlZeroBandLo      float32
	StdPwupBandHi, StdPwupBandLo        float32
	NtepPwupBandHi, NtepPwupBandLo      float32
	OimlPwupBandHi, OimlPwupBandLo      float32
	LegalMode                           byte
	QuarterCBWt                         float32
	UserPendingTimeMs                   uint16
}

func (r LCStandardModeAZM) marshal() []byte {
	buf := make([]byte, 0, 56)
	buf = appendUint16(buf, r.AZMIntervalTimeMs)
	buf = appendFloat32(buf, r.AZMCBRange)
	buf = appendFloat32(buf, r.StdZeroBandHi)
	buf = appendFloat32(buf, r.StdZeroBandLo)
	buf = appendFloat32(buf, r.NtepZeroBandHi)
	buf = appendFloat32(buf, r.NtepZeroBandLo)
	buf = appendFloat32(buf, r.OimlZeroBandHi)
	buf = appendFloat32(buf, r.OimlZeroBandLo)
	buf = appendFloat32(buf, r.StdPwupBandHi)
	buf = appendFloat32(buf, r.StdPwupBandLo)
	buf = appendFloat32(buf, r.NtepPwupBandHi)
	buf = appendFloat32(buf, r.NtepPwupBandLo)
	buf = appendFloat32(buf, r.OimlPwupBandHi)
	buf = appendFloat32(buf, r.OimlPwupBandLo)
	buf = append(buf, r.LegalMode)
	buf = appendFloat32(buf, r.QuarterCBWt)
	buf = appendUint16(buf, r.UserPendingTimeMs)
	return buf
}
