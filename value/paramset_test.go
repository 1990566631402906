package value_test

import (
	"testing"

	"github.com/mickamy/voltgo/value"
)

func TestParameterSetAcceptsMatchingScalarsAndArrays(t *testing.T) {
	t.Parallel()

	ps := value.NewParameterSet(value.Bigint, value.String, value.Integer)
	if err := ps.Set(0, int64(42)); err != nil {
		t.Fatalf("set bigint: %v", err)
	}
	if err := ps.Set(1, "hello"); err != nil {
		t.Fatalf("set string: %v", err)
	}
	if err := ps.Set(2, []int32{1, 2, 3}); err != nil {
		t.Fatalf("set int array: %v", err)
	}

	v, isArray, err := ps.ValueAt(2)
	if err != nil {
		t.Fatalf("value at 2: %v", err)
	}
	if !isArray {
		t.Fatal("expected array parameter")
	}
	arr, ok := v.([]int32)
	if !ok || len(arr) != 3 {
		t.Fatalf("got %#v", v)
	}
}

func TestParameterSetRejectsTypeMismatch(t *testing.T) {
	t.Parallel()

	ps := value.NewParameterSet(value.Bigint)
	if err := ps.Set(0, "not a bigint"); err == nil {
		t.Fatal("expected ParamMismatch error")
	}
}

func TestParameterSetRejectsArrayElementTypeMismatch(t *testing.T) {
	t.Parallel()

	ps := value.NewParameterSet(value.Bigint)
	if err := ps.Set(0, []int32{1, 2}); err == nil {
		t.Fatal("expected ParamMismatch for array of wrong element type")
	}
}

func TestParameterSetAcceptsSQLNullForAnyDeclaredType(t *testing.T) {
	t.Parallel()

	ps := value.NewParameterSet(value.String)
	if err := ps.Set(0, value.SQLNull); err != nil {
		t.Fatalf("set SQLNull: %v", err)
	}
}

func TestParameterSetValidateCatchesUnsetParameters(t *testing.T) {
	t.Parallel()

	ps := value.NewParameterSet(value.Bigint, value.String)
	if err := ps.Set(0, int64(1)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := ps.Validate(); err == nil {
		t.Fatal("expected UninitializedParams error")
	}
}

func TestProcedureSetParametersInOrder(t *testing.T) {
	t.Parallel()

	proc := value.NewProcedure("Insert", value.Bigint, value.String)
	if err := proc.SetParameters(int64(7), "row"); err != nil {
		t.Fatalf("set parameters: %v", err)
	}
	v, _, err := proc.Params.ValueAt(0)
	if err != nil {
		t.Fatalf("value at 0: %v", err)
	}
	if v.(int64) != 7 {
		t.Fatalf("got %v, want 7", v)
	}
}
