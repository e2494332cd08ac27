// Package counters implements the service counters: lift events,
// user-lift events, and overload events against percent-of-capacity
// thresholds, each with hysteresis re-arm rules, plus the raw-ADC
// under/over-range detectors.
package counters

// Service-acknowledgement interval masks: every 2^14 lifts and every 2^10
// overloads, a "needs user acknowledgement" bit is raised.
const (
	LiftServiceInterval     = 0x3FFF
	OverloadServiceInterval = 0x3FF
)

// ServiceStatus holds the "needs acknowledgement" bits a service
// technician must clear.
type ServiceStatus uint8

const (
	ServiceLiftNeedAck ServiceStatus = 1 << iota
	ServiceLiftMetCount
	ServiceOverloadNeedAck
	ServiceOverloadMetCount
)

// ArmStatus tracks whether each counter is currently eligible to fire
// again (the hysteresis re-arm gate).
type ArmStatus uint8

const (
	OKCountLift ArmStatus = 1 << iota
	OKCount25PctCap
	OKCountOverload
)

// Counters is the persistent service-counter record for one loadcell.
type Counters struct {
	LiftCnt             uint32
	UserLiftCnt         uint32
	OverloadCnt         uint32
	LiftThresholdPctCap float64
	DropThresholdPctCap float64
	ServiceStatus       ServiceStatus
	Arm                 ArmStatus
}

// saturatingInc increments a uint32 counter without wrapping past its max
// value.
func saturatingInc(v uint32) uint32 {
	if v == 0xFFFFFFFF {
		return v
	}
	return v + 1
}

// CheckLift increments the lift/user-lift counters when w crosses the
// lift threshold while the lift counter is armed, and re-arms it once w
// drops back to or below the drop threshold. persistNeeded reports
// whether the caller must flush the record.
func (c *Counters) CheckLift(w, liftWtThreshold, dropWtThreshold float64) (persistNeeded bool) {
	if c.Arm&OKCountLift != 0 && w >= liftWtThreshold {
		c.LiftCnt = saturatingInc(c.LiftCnt)
		if c.LiftCnt&LiftServiceInterval == 0 {
			c.ServiceStatus |= ServiceLiftNeedAck | ServiceLiftMetCount
		}
		c.UserLiftCnt = saturatingInc(c.UserLiftCnt)
		c.Arm &^= OKCountLift
		return true
	}
	if w <= dropWtThreshold {
		c.Arm |= OKCountLift
	}
	return false
}

// CheckOverload increments the overload counter when grossWt crosses the
// overload threshold while armed, and re-arms it once rawWt falls to or
// below 75% of view capacity.
func (c *Counters) CheckOverload(grossWt, overloadThresholdWt, rawWt, viewCapacity float64) (overloaded, persistNeeded bool) {
	overloaded = grossWt >= overloadThresholdWt
	if overloaded {
		if c.Arm&OKCountOverload != 0 {
			c.OverloadCnt = saturatingInc(c.OverloadCnt)
			if c.OverloadCnt&OverloadServiceInterval == 0 {
				c.ServiceStatus |= ServiceOverloadNeedAck | ServiceOverloadMetCount
			}
			c.Arm &^= OKCountOverload
			persistNeeded = true
		}
	}
	if rawWt <= viewCapacity*0.75 {
		c.Arm |= OKCountOverload
	}
	return overloaded, persistNeeded
}

// RangeStatus is the raw-ADC under/over-range flag pair.
type RangeStatus struct {
	UnderRange bool
	OverRange  bool
}

// ADC counts beyond this magnitude indicate a hardware range fault, not a
// legitimate overload reading.
const (
	ADCUnderRangeThreshold = -8_388_600
	ADCOverRangeThreshold  = 8_388_600
)

// CheckRange reports whether the raw ADC count is outside the valid
// hardware range.
func CheckRange(curRawADCcount int32) RangeStatus {
	return RangeStatus{
		UnderRange: curRawADCcount <= ADCUnderRangeThreshold,
		OverRange:  curRawADCcount > ADCOverRangeThreshold,
	}
}

// Underload reports whether rawWt is below the configured
// percent-of-capacity underload threshold.
func Underload(rawWt, viewCapacity, pcentCapUnderload float64) bool {
	return rawWt < viewCapacity*(pcentCapUnderload/100.0)
}
