// Package persist implements the non-volatile record layer: CRC-8
// (Dallas/Maxim) and CRC-16 (XMODEM) checksummed records, an in-memory
// Store that is the session's source of truth, and a Backend interface
// abstracting whatever NV device (EEPROM, FRAM, ...) actually holds the
// bytes. No concrete NV device driver lives here; that is out of scope.
package persist

import (
	logger "github.com/d2r2/go-logger"

	"github.com/scalehouse/scalecore/calibrate"
	"github.com/scalehouse/scalecore/countby"
	"github.com/scalehouse/scalecore/scaleerr"
)

var lg = logger.NewPackageLogger("persist", logger.InfoLevel)

// Backend abstracts the physical NV device a Store saves records to and
// recalls them from. Implementations own device-specific addressing;
// persist only ever deals in opaque byte offsets it assigns itself.
type Backend interface {
	// Write performs a single contiguous write of buf at offset. The
	// caller has already appended the CRC to buf, so the write is
	// atomic with respect to its own checksum: a reset mid-write can
	// only ever be caught by the CRC check on the next Read, never
	// leave a record whose payload and CRC were written separately.
	Write(offset int, buf []byte) error
	// Read returns exactly n bytes starting at offset.
	Read(offset int, n int) ([]byte, error)
}

// crcWidth identifies which CRC trailer a record type carries.
type crcWidth int

const (
	crc8Width  crcWidth = 1
	crc16Width crcWidth = 2
)

// crc8Init is the initial value this reimplementation uses consistently
// for every 8-bit-CRC record type (spec allows either 0 or 0xFF; 0xFF is
// chosen here and applied uniformly).
const crc8Init byte = 0xFF

// encodeRecord appends the record type's CRC trailer to payload and
// returns the full buffer ready for a single Backend.Write.
func encodeRecord(payload []byte, width crcWidth) []byte {
	switch width {
	case crc16Width:
		c := CRC16(payload)
		return append(payload, byte(c>>8), byte(c))
	default:
		c := CRC8(payload, crc8Init)
		return append(payload, c)
	}
}

// decodeRecord validates buf's trailing CRC against its payload and
// returns the payload with the trailer stripped, or ErrFramFail if the
// CRC does not match.
func decodeRecord(buf []byte, width crcWidth) ([]byte, error) {
	n := len(buf) - int(width)
	if n < 0 {
		return nil, scaleerr.ErrFramFail
	}
	payload, trailer := buf[:n], buf[n:]
	switch width {
	case crc16Width:
		want := CRC16(payload)
		got := uint16(trailer[0])<<8 | uint16(trailer[1])
		if want != got {
			return nil, scaleerr.ErrFramFail
		}
	default:
		want := CRC8(payload, crc8Init)
		if trailer[0] != want {
			return nil, scaleerr.ErrFramFail
		}
	}
	return payload, nil
}

// slot is one fixed-offset, fixed-width region of the backend reserved
// for a single record instance.
type slot struct {
	offset int
	width  crcWidth
	size   int // payload size, excluding CRC trailer
}

// Store is the in-memory, authoritative copy of every persisted record
// for one scale session. A Store never loses a validation error to a
// partially-applied update: callers build a new record value and pass it
// to Save, which replaces the in-RAM copy wholesale and then attempts the
// backend write (if any).
type Store struct {
	backend    Backend
	slots      map[string]slot
	nextOff    int
	ramBacking map[string][]byte
}

// NewStore returns a Store backed by the given device. backend may be
// nil, in which case every record lives in RAM only for the session
// (useful for simulation/tests): each Load* call returns the copy saved
// earlier in the session, or ErrNvMemoryFail if nothing was saved under
// that record.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend, slots: make(map[string]slot)}
}

func (s *Store) reserve(key string, width crcWidth, size int) slot {
	if sl, ok := s.slots[key]; ok {
		return sl
	}
	sl := slot{offset: s.nextOff, width: width, size: size}
	s.slots[key] = sl
	s.nextOff += size + int(width)
	return sl
}

// SaveCalTable persists calibration slot idx.
func (s *Store) SaveCalTable(idx int, r CalTableRecord) error {
	return s.save(calTableKey(idx), crc16Width, r.marshal())
}

// LoadCalTable recalls calibration slot idx.
func (s *Store) LoadCalTable(idx int) (CalTableRecord, error) {
	var r CalTableRecord
	payload, err := s.load(calTableKey(idx), crc16Width, calTableRecordSize)
	if err != nil {
		return r, err
	}
	return unmarshalCalTable(payload), nil
}

// SaveCalTableForSensor converts c to its NV record shape and persists it
// under calibration slot idx, so loadcell.CalSaveExit need not hand-build
// a CalTableRecord.
func (s *Store) SaveCalTableForSensor(idx int, c *calibrate.SensorCal) error {
	return s.SaveCalTable(idx, calTableFromSensorCal(c))
}

// LoadCalTableForSensor recalls calibration slot idx and rebuilds it as a
// calibrate.SensorCal in the given unit, the inverse of
// SaveCalTableForSensor.
func (s *Store) LoadCalTableForSensor(idx int, unit countby.UnitCode) (*calibrate.SensorCal, error) {
	r, err := s.LoadCalTable(idx)
	if err != nil {
		return nil, err
	}
	return r.toSensorCal(unit), nil
}

func calTableKey(idx int) string { return keyWithIndex("caltable", idx) }

const calTableRecordSize = 4 + 2 + 1 + 1 + 4 + 4*5 + 4*5

func unmarshalCalTable(buf []byte) CalTableRecord {
	var r CalTableRecord
	var off int
	r.Capacity, off = readFloat32(buf, off)
	r.CountbyIVal, off = readUint16(buf, off)
	r.CountbyDecPt = int8(buf[off])
	off++
	r.Status = calibrateStatus(buf[off])
	off++
	r.Temperature, off = readFloat32(buf, off)
	for i := range r.AdcCnt {
		r.AdcCnt[i], off = readInt32(buf, off)
	}
	for i := range r.Value {
		r.Value[i], off = readFloat32(buf, off)
	}
	return r
}

// save is the generic persist path: marshal already happened by the
// caller, this just appends the CRC, writes it (if a backend is
// attached), and keeps the in-RAM copy regardless of write outcome so
// the session stays authoritative per the propagation policy.
func (s *Store) save(key string, width crcWidth, payload []byte) error {
	sl := s.reserve(key, width, len(payload))
	buf := encodeRecord(append([]byte(nil), payload...), width)
	s.ram(key, buf)
	if s.backend == nil {
		return nil
	}
	if err := s.backend.Write(sl.offset, buf); err != nil {
		lg.Infof("persist: write failed for %s: %v", key, err)
		return scaleerr.ErrNvMemoryFail
	}
	return nil
}

func (s *Store) load(key string, width crcWidth, size int) ([]byte, error) {
	sl := s.reserve(key, width, size)
	var raw []byte
	if s.backend != nil {
		buf, err := s.backend.Read(sl.offset, size+int(width))
		if err != nil {
			return nil, scaleerr.ErrNvMemoryFail
		}
		raw = buf
	} else {
		raw = s.ramGet(key)
		if raw == nil {
			return nil, scaleerr.ErrNvMemoryFail
		}
	}
	return decodeRecord(raw, width)
}

// ram is the no-backend fallback store, keyed the same as slots.
func (s *Store) ram(key string, buf []byte) {
	if s.ramBacking == nil {
		s.ramBacking = make(map[string][]byte)
	}
	s.ramBacking[key] = buf
}

func (s *Store) ramGet(key string) []byte {
	if s.ramBacking == nil {
		return nil
	}
	return s.ramBacking[key]
}
