package persist

import "github.com/scalehouse/scalecore/countby"

// Fixed payload sizes (bytes, CRC trailer excluded) for every 8-bit-CRC
// record type, used to size reads back from the backend.
const (
	scaleStandardModeSize = 1
	sensorFeatureSize     = 4 + 4 + 2 + 1 + 1 + 1 + 1 + 2 + 4 + 1
	totalingStatisticsSize = 8 + 8 + 8 + 8 + 4 + 1
	loadcellDynamicSize    = 8 + 8 + 1
	serviceCountersSize    = 4 + 4 + 4 + 4 + 4 + 1
	lcTotalMotionOpmodeSize = 1 + 4*5 + 2 + 1 + 1 + 1
	lcStandardModeAZMSize   = 2 + 4 + 4*12 + 1 + 4 + 2
)

// SaveScaleStandardMode persists the single global-mode byte.
func (s *Store) SaveScaleStandardMode(r ScaleStandardMode) error {
	return s.save("scalestdmode", crc8Width, []byte{r.Mode})
}

// LoadScaleStandardMode recalls the single global-mode byte.
func (s *Store) LoadScaleStandardMode() (ScaleStandardMode, error) {
	payload, err := s.load("scalestdmode", crc8Width, scaleStandardModeSize)
	if err != nil {
		return ScaleStandardMode{}, err
	}
	return ScaleStandardMode{Mode: payload[0]}, nil
}

// SaveSensorFeature persists sensor idx's cal/feature configuration.
func (s *Store) SaveSensorFeature(idx int, r SensorFeature) error {
	return s.save(keyWithIndex("sensorfeature", idx), crc8Width, r.marshal())
}

// LoadSensorFeature recalls sensor idx's cal/feature configuration.
func (s *Store) LoadSensorFeature(idx int) (SensorFeature, error) {
	payload, err := s.load(keyWithIndex("sensorfeature", idx), crc8Width, sensorFeatureSize)
	if err != nil {
		return SensorFeature{}, err
	}
	var r SensorFeature
	var off int
	r.Capacity, off = readFloat32(payload, off)
	r.FCountby, off = readFloat32(payload, off)
	r.ICountby, off = readUint16(payload, off)
	r.DecPt = int8(payload[off])
	off++
	r.RefUnit = countby.UnitCode(payload[off])
	off++
	r.Type = payload[off]
	off++
	r.ConvSpeed = payload[off]
	off++
	r.FeatureFlags, off = readUint16(payload, off)
	r.PctCapUnderload, off = readFloat32(payload, off)
	r.ViewUnit = countby.UnitCode(payload[off])
	return r, nil
}

// SaveTotalingStatistics persists loadcell idx's totaling-engine state.
func (s *Store) SaveTotalingStatistics(idx int, r TotalingStatistics) error {
	return s.save(keyWithIndex("totalstats", idx), crc8Width, r.marshal())
}

// LoadTotalingStatistics recalls loadcell idx's totaling-engine state.
func (s *Store) LoadTotalingStatistics(idx int) (TotalingStatistics, error) {
	payload, err := s.load(keyWithIndex("totalstats", idx), crc8Width, totalingStatisticsSize)
	if err != nil {
		return TotalingStatistics{}, err
	}
	var r TotalingStatistics
	var off int
	r.TotalWt, off = readFloat64(payload, off)
	r.SumSqTotal, off = readFloat64(payload, off)
	r.MaxTotal, off = readFloat64(payload, off)
	r.MinTotal, off = readFloat64(payload, off)
	r.NumTotal, off = readUint32(payload, off)
	r.TotalMode = payload[off]
	return r, nil
}

// SaveLoadcellDynamic persists loadcell idx's tare/zero/mode state.
func (s *Store) SaveLoadcellDynamic(idx int, r LoadcellDynamic) error {
	return s.save(keyWithIndex("lcdynamic", idx), crc8Width, r.marshal())
}

// LoadLoadcellDynamic recalls loadcell idx's tare/zero/mode state.
func (s *Store) LoadLoadcellDynamic(idx int) (LoadcellDynamic, error) {
	payload, err := s.load(keyWithIndex("lcdynamic", idx), crc8Width, loadcellDynamicSize)
	if err != nil {
		return LoadcellDynamic{}, err
	}
	var r LoadcellDynamic
	var off int
	r.TareWt, off = readFloat64(payload, off)
	r.ZeroWt, off = readFloat64(payload, off)
	r.OpMode = payload[off]
	return r, nil
}

// SaveServiceCounters persists loadcell idx's service counters.
func (s *Store) SaveServiceCounters(idx int, r ServiceCountersRecord) error {
	return s.save(keyWithIndex("svccounters", idx), crc8Width, r.marshal())
}

// LoadServiceCounters recalls loadcell idx's service counters.
func (s *Store) LoadServiceCounters(idx int) (ServiceCountersRecord, error) {
	payload, err := s.load(keyWithIndex("svccounters", idx), crc8Width, serviceCountersSize)
	if err != nil {
		return ServiceCountersRecord{}, err
	}
	var r ServiceCountersRecord
	var off int
	r.UserLiftCnt, off = readUint32(payload, off)
	r.LiftCnt, off = readUint32(payload, off)
	r.OverloadCnt, off = readUint32(payload, off)
	r.LiftThresholdPctCap, off = readFloat32(payload, off)
	r.DropThresholdPctCap, off = readFloat32(payload, off)
	r.ServiceStatus = payload[off]
	return r, nil
}

// SaveLCTotalMotionOpmode persists loadcell idx's totaling/motion/opmode block.
func (s *Store) SaveLCTotalMotionOpmode(idx int, r LCTotalMotionOpmode) error {
	return s.save(keyWithIndex("lctmom", idx), crc8Width, r.marshal())
}

// LoadLCTotalMotionOpmode recalls loadcell idx's totaling/motion/opmode block.
func (s *Store) LoadLCTotalMotionOpmode(idx int) (LCTotalMotionOpmode, error) {
	payload, err := s.load(keyWithIndex("lctmom", idx), crc8Width, lcTotalMotionOpmodeSize)
	if err != nil {
		return LCTotalMotionOpmode{}, err
	}
	var r LCTotalMotionOpmode
	var off int
	r.TotalMode = payload[off]
	off++
	r.DropWtThreshold, off = readFloat32(payload, off)
	r.RiseWtThreshold, off = readFloat32(payload, off)
	r.OnAcceptUpperWt, off = readFloat32(payload, off)
	r.OnAcceptLowerWt, off = readFloat32(payload, off)
	r.MotionThresholdWt, off = readFloat32(payload, off)
	r.MotionDetectPeriodMs, off = readUint16(payload, off)
	r.PeakHoldEnabled = payload[off] != 0
	off++
	r.OpMode = payload[off]
	off++
	r.AutoClearTare = payload[off] != 0
	return r, nil
}

// SaveLCStandardModeAZM persists loadcell idx's STD/NTEP/OIML zero-band triples.
func (s *Store) SaveLCStandardModeAZM(idx int, r LCStandardModeAZM) error {
	return s.save(keyWithIndex("lcazm", idx), crc8Width, r.marshal())
}

// LoadLCStandardModeAZM recalls loadcell idx's STD/NTEP/OIML zero-band triples.
func (s *Store) LoadLCStandardModeAZM(idx int) (LCStandardModeAZM, error) {
	payload, err := s.load(keyWithIndex("lcazm", idx), crc8Width, lcStandardModeAZMSize)
	if err != nil {
		return LCStandardModeAZM{}, err
	}
	var r LCStandardModeAZM
	var off int
	r.AZMIntervalTimeMs, off = readUint16(payload, off)
	r.AZMCBRange, off = readFloat32(payload, off)
	r.StdZeroBandHi, off = readFloat32(payload, off)
	r.StdZeroBandLo, off = readFloat32(payload, off)
	r.NtepZeroBandHi, off = readFloat32(payload, off)
	r.NtepZeroBandLo, off = readFloat32(payload, off)
	r.OimlZeroBandHi, off = readFloat32(payload, off)
	r.OimlZeroBandLo, off = readFloat32(payload, off)
	r.StdPwupBandHi, off = readFloat32(payload, off)
	r.StdPwupBandLo, off = readFloat32(payload, off)
	r.NtepPwupBandHi, off = readFloat32(payload, off)
	r.NtepPwupBandLo, off = readFloat32(payload, off)
	r.OimlPwupBandHi, off = readFloat32(payload, off)
	r.OimlPwupBandLo, off = readFloat32(payload, off)
	r.LegalMode = payload[off]
	off++
	r.QuarterCBWt, off = readFloat32(payload, off)
	r.UserPendingTimeMs, off = readUint16(payload, off)
	return r, nil
}

// SaveListenerSettings persists the listener configuration block.
func (s *Store) SaveListenerSettings(r ListenerSettings) error {
	return s.save("listeners", crc8Width, r.marshal())
}

// LoadListenerSettings recalls the listener configuration block. n is the
// number of listeners the caller expects (this record's size is
// configuration-dependent, unlike the other fixed-width record types).
func (s *Store) LoadListenerSettings(n int) (ListenerSettings, error) {
	payload, err := s.load("listeners", crc8Width, 5*n)
	if err != nil {
		return ListenerSettings{}, err
	}
	r := ListenerSettings{Bytes: make([][5]byte, n)}
	for i := 0; i < n; i++ {
		copy(r.Bytes[i][:], payload[i*5:i*5+5])
	}
	return r, nil
}

// SaveSetpointBlock persists the full setpoint configuration array.
func (s *Store) SaveSetpointBlock(r SetpointBlock) error {
	return s.save("setpoints", crc8Width, r.marshal())
}

// LoadSetpointBlock recalls the full setpoint configuration array. n is
// the number of setpoints the caller expects.
func (s *Store) LoadSetpointBlock(n int) (SetpointBlock, error) {
	size := n + n + n + 4*n
	payload, err := s.load("setpoints", crc8Width, size)
	if err != nil {
		return SetpointBlock{}, err
	}
	r := SetpointBlock{
		SensorID: append([]byte(nil), payload[0:n]...),
		Logic:    append([]byte(nil), payload[n:2*n]...),
		Hyst:     append([]byte(nil), payload[2*n:3*n]...),
		Value:    make([]float32, n),
	}
	off := 3 * n
	for i := 0; i < n; i++ {
		r.Value[i], off = readFloat32(payload, off)
	}
	return r, nil
}
