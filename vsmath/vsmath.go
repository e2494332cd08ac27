// Package vsmath implements the virtual (math) sensor: a compiler from a
// raw "S[+S...]" expression string to a compact byte-code buffer, and the
// evaluator that sums the named sensors' values. Only "+" exists in v1;
// the byte-code shape (operand byte / op byte / terminator) is kept
// exactly as the compiler would need to extend it to more operators.
package vsmath

import (
	"fmt"

	"github.com/scalehouse/scalecore/sensor"
)

// Opcodes packed into a byte-code buffer. bit7 clear => operand (sensor
// id in the low 7 bits). bit7 set => operator, identified by the low
// bits; 0x80 with no further bits set is the terminator.
const (
	opBit   = 0x80
	opAdd   = 0x81
	opEnd   = 0x80
)

// MaxExprs is the number of compiled expressions a math sensor may hold.
const MaxExprs = 16

// Code is a compiled byte-code buffer.
type Code []byte

// Compile parses a raw expression of the form "S[+S...]" (decimal sensor
// ids separated by '+') into a byte-code buffer. Fails on a trailing
// operator, a non-digit where a sensor id is expected, or a sensor id
// that is out of range.
func Compile(expr string) (Code, error) {
	if expr == "" {
		return nil, fmt.Errorf("vsmath: empty expression")
	}
	code := make(Code, 0, len(expr)+1)
	i := 0
	expectOperand := true
	for i < len(expr) {
		c := expr[i]
		if expectOperand {
			if c < '0' || c > '9' {
				return nil, fmt.Errorf("vsmath: expected sensor id at offset %d", i)
			}
			start := i
			for i < len(expr) && expr[i] >= '0' && expr[i] <= '9' {
				i++
			}
			id := parseUint(expr[start:i])
			if id >= sensor.MaxNumPVLoadcell {
				return nil, fmt.Errorf("vsmath: sensor id %d out of range", id)
			}
			code = append(code, byte(id))
			expectOperand = false
			continue
		}
		switch c {
		case '+':
			code = append(code, opAdd)
			expectOperand = true
			i++
		default:
			return nil, fmt.Errorf("vsmath: unexpected character %q at offset %d", c, i)
		}
	}
	if expectOperand {
		return nil, fmt.Errorf("vsmath: trailing operator")
	}
	code = append(code, opEnd)
	return code, nil
}

func parseUint(s string) int {
	v := 0
	for _, c := range s {
		v = v*10 + int(c-'0')
	}
	return v
}

// EvalMode selects whether Evaluate should sum the inputs' filtered or
// unfiltered gross values.
type EvalMode uint8

const (
	ModeNonFiltered EvalMode = iota
	ModeCurMode
)

// InputValue is one sensor's contribution: its value already converted
// into the math sensor's configured unit, and its status bits for
// propagation.
type InputValue struct {
	Value  float64
	Status InputStatus
}

// InputStatus carries the per-input fault bits the math sensor propagates
// to its own result when any input reports them.
type InputStatus uint16

const (
	StatusDisabled InputStatus = 1 << iota
	StatusUncal
	StatusOverload
	StatusUnderload
	StatusOverRange
	StatusUnderRange
	StatusInCal
)

// Evaluate sums the operands named in code, using lookup to resolve each
// sensor id to its InputValue for the requested mode. Status bits from
// every input are OR'd into the result.
func Evaluate(code Code, lookup func(sensorID uint8, mode EvalMode) InputValue, mode EvalMode) (sum float64, status InputStatus, err error) {
	i := 0
	haveOperand := false
	for i < len(code) {
		b := code[i]
		if b == opEnd {
			break
		}
		if b&opBit == 0 {
			v := lookup(b, mode)
			if !haveOperand {
				sum = v.Value
				haveOperand = true
			} else {
				// reached only for two operands with no operator between
				// them (an operator consumes its own operand below);
				// defensive, since a well-formed buffer always alternates.
				sum += v.Value
			}
			status |= v.Status
			i++
			continue
		}
		switch b {
		case opAdd:
			i++
			if i >= len(code) || code[i] == opEnd {
				return 0, 0, fmt.Errorf("vsmath: trailing operator in byte code")
			}
			operand := code[i]
			v := lookup(operand, mode)
			sum += v.Value
			status |= v.Status
			i++
		default:
			return 0, 0, fmt.Errorf("vsmath: unknown opcode 0x%02X", b)
		}
	}
	return sum, status, nil
}
