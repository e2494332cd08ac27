// Package scaleerr defines the sentinel error taxonomy returned by the
// measurement core's public operations. There is no exception path:
// calibration, command and persistence entry points return one of these
// values (or nil), and a validation error leaves state unchanged. A
// persistence write failure is the exception: the in-RAM copy is already
// updated when ErrNvMemoryFail is returned. vsmath expression errors are
// plain errors, not sentinels from this package.
package scaleerr

import "errors"

// Calibration errors.
var (
	ErrNotAllow                 = errors.New("scaleerr: operation not allowed")
	ErrWrongCalSequence         = errors.New("scaleerr: wrong calibration sequence")
	ErrInvalidCalInfo           = errors.New("scaleerr: invalid calibration info")
	ErrWrongSensorId            = errors.New("scaleerr: wrong sensor id")
	ErrLessThan4CntPerD         = errors.New("scaleerr: less than 4 ADC counts per countby")
	ErrDifferentValueOnSameLoad = errors.New("scaleerr: different value supplied for same load")
	ErrCannotChangeUnit         = errors.New("scaleerr: cannot change unit")
	ErrNeedUnit                 = errors.New("scaleerr: unit must be set first")
	ErrNeedUnitCap              = errors.New("scaleerr: capacity must be set first")
	ErrNeedCountby              = errors.New("scaleerr: countby must be set first")
	ErrFailedCal                = errors.New("scaleerr: calibration failed")
	ErrTestLoadGtCapacity       = errors.New("scaleerr: test load exceeds capacity")
	ErrTestLoadTooSmall         = errors.New("scaleerr: test load too small")
	ErrInvalidCapacity          = errors.New("scaleerr: invalid capacity")
	ErrCannotChangeCapacity     = errors.New("scaleerr: cannot change capacity")
	ErrCannotChangeCountby      = errors.New("scaleerr: cannot change countby")
)

// Command/input errors.
var (
	ErrIndexError           = errors.New("scaleerr: index out of range")
	ErrOutRangeInput         = errors.New("scaleerr: input out of range")
	ErrReadOnly              = errors.New("scaleerr: field is read only")
	ErrMinGtMaxSwapped       = errors.New("scaleerr: min greater than max, swapped")
	ErrCannotUpdate          = errors.New("scaleerr: cannot update")
	ErrUncalSensor           = errors.New("scaleerr: sensor is not calibrated")
	ErrInvalidCountby        = errors.New("scaleerr: invalid countby")
	ErrSensorNotSupported    = errors.New("scaleerr: sensor type not supported")
	ErrInvalidSensorNumber   = errors.New("scaleerr: invalid sensor number")
	ErrInvalidValueType      = errors.New("scaleerr: invalid value type")
	ErrFeatureNotSupport     = errors.New("scaleerr: feature not supported")
	ErrNotAllowInState       = errors.New("scaleerr: not allowed in current state")
)

// System errors.
var (
	ErrCmdLocked        = errors.New("scaleerr: command locked")
	ErrWrongPassword    = errors.New("scaleerr: wrong password")
	ErrOperationTimeout = errors.New("scaleerr: operation timed out")
)

// Persistence errors.
var (
	ErrNvMemoryFail = errors.New("scaleerr: non-volatile memory failure")
	ErrEememFail    = errors.New("scaleerr: EEPROM memory failure")
	ErrFramFail     = errors.New("scaleerr: FRAM memory failure, CRC mismatch")
)
