package persist

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"

	"github.com/scalehouse/scalecore/calibrate"
	"github.com/scalehouse/scalecore/scaleerr"
)

func TestCRC8DallasMaximVector(t *testing.T) {
	// Same Dallas/Maxim iButton test vector used across the 1-Wire family.
	got := CRC8([]byte{1, 2, 3, 4, 5, 6, 7}, 0)
	if got != 15 {
		t.Fatalf("CRC8 = %d, want 15", got)
	}
}

func TestCRC16XmodemNonZeroForEmpty(t *testing.T) {
	// With init=0xFFFF, an empty buffer's CRC is the init value itself,
	// never 0 -- distinguishing it from an all-zero corrupted record.
	if got := CRC16(nil); got != 0xFFFF {
		t.Fatalf("CRC16(nil) = 0x%04X, want 0xFFFF", got)
	}
}

// memBackend is a trivial in-RAM Backend for round-trip tests.
type memBackend struct {
	data map[int][]byte
}

func newMemBackend() *memBackend { return &memBackend{data: make(map[int][]byte)} }

func (m *memBackend) Write(offset int, buf []byte) error {
	cp := append([]byte(nil), buf...)
	m.data[offset] = cp
	return nil
}

func (m *memBackend) Read(offset int, n int) ([]byte, error) {
	buf, ok := m.data[offset]
	if !ok || len(buf) < n {
		return make([]byte, n), nil
	}
	return buf[:n], nil
}

func TestLoadcellDynamicRoundTrip(t *testing.T) {
	be := newMemBackend()
	s := NewStore(be)

	want := LoadcellDynamic{TareWt: 12.5, ZeroWt: -3.25, OpMode: 2}
	if err := s.SaveLoadcellDynamic(0, want); err != nil {
		t.Fatalf("SaveLoadcellDynamic: %v", err)
	}
	got, err := s.LoadLoadcellDynamic(0)
	if err != nil {
		t.Fatalf("LoadLoadcellDynamic: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadcellDynamicCorruptionDetected(t *testing.T) {
	be := newMemBackend()
	s := NewStore(be)

	rec := LoadcellDynamic{TareWt: 1, ZeroWt: 2, OpMode: 1}
	if err := s.SaveLoadcellDynamic(0, rec); err != nil {
		t.Fatalf("SaveLoadcellDynamic: %v", err)
	}

	sl := s.slots[keyWithIndex("lcdynamic", 0)]
	buf := be.data[sl.offset]
	buf[0] ^= 0xFF // flip one byte of the stored payload

	if _, err := s.LoadLoadcellDynamic(0); err != scaleerr.ErrFramFail {
		t.Fatalf("expected ErrFramFail after corruption, got %v\nstore state: %s", err, spew.Sdump(s))
	}
}

func TestServiceCountersRoundTrip(t *testing.T) {
	be := newMemBackend()
	s := NewStore(be)

	want := ServiceCountersRecord{
		UserLiftCnt: 100, LiftCnt: 250, OverloadCnt: 3,
		LiftThresholdPctCap: 10, DropThresholdPctCap: 5, ServiceStatus: 1,
	}
	if err := s.SaveServiceCounters(1, want); err != nil {
		t.Fatalf("SaveServiceCounters: %v", err)
	}
	got, err := s.LoadServiceCounters(1)
	if err != nil {
		t.Fatalf("LoadServiceCounters: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSensorCalRoundTripsThroughCalTable(t *testing.T) {
	be := newMemBackend()
	s := NewStore(be)

	want := calibrate.NewCal()
	if err := want.NewCalSequence(0, 200); err != nil {
		t.Fatalf("NewCalSequence: %v", err)
	}
	if err := want.NormalizeCountby(1); err != nil {
		t.Fatalf("NormalizeCountby: %v", err)
	}
	if err := want.ZeroPoint(0); err != nil {
		t.Fatalf("ZeroPoint: %v", err)
	}
	if err := want.BuildTable(10000, 100); err != nil {
		t.Fatalf("BuildTable: %v", err)
	}
	if err := want.SaveExit(); err != nil {
		t.Fatalf("SaveExit: %v", err)
	}

	if err := s.SaveCalTableForSensor(0, want); err != nil {
		t.Fatalf("SaveCalTableForSensor: %v", err)
	}
	got, err := s.LoadCalTableForSensor(0, want.Countby.Unit)
	if err != nil {
		t.Fatalf("LoadCalTableForSensor: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("cal-table round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestNoBackendStillRoundTrips(t *testing.T) {
	s := NewStore(nil)
	want := LoadcellDynamic{TareWt: 7, ZeroWt: 0, OpMode: 0}
	if err := s.SaveLoadcellDynamic(0, want); err != nil {
		t.Fatalf("SaveLoadcellDynamic: %v", err)
	}
	got, err := s.LoadLoadcellDynamic(0)
	if err != nil {
		t.Fatalf("LoadLoadcellDynamic: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}
