package vsmath

import "testing"

func TestCompileAndEvaluateSum(t *testing.T) {
	code, err := Compile("0+1")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	lookup := func(id uint8, mode EvalMode) InputValue {
		return InputValue{Value: 50}
	}
	sum, _, err := Evaluate(code, lookup, ModeCurMode)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if sum != 100 {
		t.Fatalf("sum = %v, want 100", sum)
	}
}

func TestStatusPropagation(t *testing.T) {
	code, _ := Compile("0+1")
	lookup := func(id uint8, mode EvalMode) InputValue {
		if id == 1 {
			return InputValue{Value: 50, Status: StatusOverload}
		}
		return InputValue{Value: 50}
	}
	_, status, err := Evaluate(code, lookup, ModeCurMode)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if status&StatusOverload == 0 {
		t.Fatalf("expected overload status propagated from input 1")
	}
}

func TestCompileRejectsTrailingOperator(t *testing.T) {
	if _, err := Compile("0+"); err == nil {
		t.Fatalf("expected error on trailing operator")
	}
}

func TestCompileRejectsOutOfRangeSensor(t *testing.T) {
	if _, err := Compile("99"); err == nil {
		t.Fatalf("expected error on out-of-range sensor id")
	}
}

func TestCompileRejectsLeadingOperator(t *testing.T) {
	if _, err := Compile("+1"); err == nil {
		t.Fatalf("expected error on leading operator")
	}
}
