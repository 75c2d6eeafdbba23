package lang

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
)

func TestSlotsLayout(t *testing.T) {
	slots := mustSlots(t, "x", "y")
	if slots.Params() != 2 {
		t.Fatalf("expected 2 params, got %d", slots.Params())
	}
	if idx, ok := slots.Lookup("y"); !ok || idx != 1 || slots.Kind(idx) != SlotParam {
		t.Fatalf("expected y in slot 1 as parameter, got %d %v", idx, ok)
	}
	if idx, ok := slots.Lookup("pi"); !ok || slots.Kind(idx) != SlotConstant {
		t.Fatalf("expected pi to be a constant slot")
	}
	a := slots.Define("a")
	if again := slots.Define("a"); again != a {
		t.Fatalf("expected Define to be idempotent, got %d and %d", a, again)
	}
	if slots.Kind(a) != SlotVariable || slots.Name(a) != "a" {
		t.Fatalf("unexpected slot %d: %v %s", a, slots.Kind(a), slots.Name(a))
	}
	if got := strings.Join(slots.Names(), ","); got != "x,y,a" {
		t.Fatalf("expected names x,y,a, got %s", got)
	}
	if slots.Len() != 7 {
		t.Fatalf("expected 7 slots, got %d", slots.Len())
	}

	if _, err := NewSlots("x", "x"); err == nil {
		t.Fatalf("expected duplicate parameter error")
	}
}

func TestSlotsValues(t *testing.T) {
	slots := mustSlots(t, "x")
	slots.Define("a")
	if err := slots.Bind([]float64{1, 2}); err == nil {
		t.Fatalf("expected parameter count mismatch")
	}
	if err := slots.Bind([]float64{3}); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := slots.Set("a", 4); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := slots.Set("e", 1); err == nil {
		t.Fatalf("expected constant assignment to fail")
	}
	if err := slots.Set("nope", 1); err == nil {
		t.Fatalf("expected unknown variable error")
	}
	if _, err := slots.Get("nope"); err == nil {
		t.Fatalf("expected unknown variable error")
	}

	clone := slots.Clone()
	if err := clone.Set("a", 9); err != nil {
		t.Fatalf("Set on clone: %v", err)
	}
	clone.Define("b")
	if v, _ := slots.Get("a"); v != 4 {
		t.Fatalf("expected original a=4 after clone write, got %v", v)
	}
	if _, ok := slots.Lookup("b"); ok {
		t.Fatalf("expected clone definitions to stay private")
	}

	slots.Reset()
	if v, _ := slots.Get("x"); v != 0 {
		t.Fatalf("expected reset parameter, got %v", v)
	}
	if v, _ := slots.Get("a"); v != 0 {
		t.Fatalf("expected reset variable, got %v", v)
	}
	if v, _ := slots.Get("e"); v != math.E {
		t.Fatalf("expected constant to survive reset, got %v", v)
	}
}

func TestMegabuf(t *testing.T) {
	var buf Megabuf
	if buf.Get(5) != 0 {
		t.Fatalf("expected unwritten cell to read 0")
	}
	buf.Set(5, 1.5)
	buf.Set(-3, 2)
	buf.Set(1<<30, 3)
	if buf.Get(5) != 1.5 || buf.Get(-3) != 2 || buf.Get(1<<30) != 3 {
		t.Fatalf("unexpected megabuf contents")
	}
	if buf.Get(-1027) != 0 {
		t.Fatalf("expected neighbouring block cell to read 0")
	}

	clone := buf.clone()
	clone.Set(5, 9)
	if buf.Get(5) != 1.5 {
		t.Fatalf("expected clone to be independent")
	}

	// Points (0,0,0) at 100, (5,5,5) at 103, (1,1,1) at 106.
	var pts Megabuf
	for i, v := range []float64{0, 0, 0, 5, 5, 5, 1, 1, 1} {
		pts.Set(int32(100+i), v)
	}
	if got, _ := pts.Closest(4, 4, 4, 100, 3, 3, nil); got != 103 {
		t.Fatalf("expected closest index 103, got %v", got)
	}
	if got, _ := pts.Closest(0.9, 1, 1.2, 100, 3, 3, nil); got != 106 {
		t.Fatalf("expected closest index 106, got %v", got)
	}
	if got, _ := pts.Closest(0, 0, 0, 100, 0, 3, nil); got != -1 {
		t.Fatalf("expected -1 for empty scan, got %v", got)
	}
	stop := errors.New("stop")
	steps := 0
	_, err := pts.Closest(0, 0, 0, 100, 3, 3, func() error {
		steps++
		if steps == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) || steps != 2 {
		t.Fatalf("expected the scan to stop at the second point, got %v after %d", err, steps)
	}

	buf.Reset()
	if buf.Get(5) != 0 {
		t.Fatalf("expected reset buffer")
	}
}

func TestMegabufFunctions(t *testing.T) {
	slots := mustSlots(t)
	ResetGlobalMegabuf()
	defer ResetGlobalMegabuf()

	local := mustCall(t, "megabuf", num(3))
	if _, ok := local.(LValue); !ok {
		t.Fatalf("expected megabuf call to be assignable, got %T", local)
	}
	root := seq(mustBinary(t, OpAssign, local, num(7)), mustCall(t, "megabuf", num(3)))
	st := NewState(slots)
	v, err := Run(context.Background(), root, st, nil, DefaultLimits())
	if err != nil || v != 7 {
		t.Fatalf("expected megabuf(3)=7, got %v %v", v, err)
	}
	if st.Megabuf().Get(3) != 7 {
		t.Fatalf("expected state buffer to hold the write")
	}

	// A cloned state does not see later writes and vice versa.
	other := st.Clone()
	other.Megabuf().Set(3, 1)
	if st.Megabuf().Get(3) != 7 {
		t.Fatalf("expected cloned state buffer to be independent")
	}

	global := mustCall(t, "gmegabuf", num(3))
	if _, err := Run(context.Background(), mustBinary(t, OpAddAssign, global, num(2)), NewState(slots), nil, DefaultLimits()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, err = Run(context.Background(), mustCall(t, "gmegabuf", num(3)), NewState(slots), nil, DefaultLimits())
	if err != nil || v != 2 {
		t.Fatalf("expected gmegabuf shared across states, got %v %v", v, err)
	}
}

func TestLookupFunction(t *testing.T) {
	never := func(int) bool { return false }
	always := func(int) bool { return true }

	if _, err := LookupFunction("nope", 0, never); err == nil || err.Error() != "function 'nope' not found" {
		t.Fatalf("unexpected error %v", err)
	}
	_, err := LookupFunction("atan2", 1, never)
	cerr, ok := err.(*CallError)
	if !ok || cerr.Arg != -1 || !strings.Contains(cerr.Msg, "does not take 1 arguments") {
		t.Fatalf("unexpected arity error %v", err)
	}
	_, err = LookupFunction("rotate", 3, func(i int) bool { return i != 1 })
	cerr, ok = err.(*CallError)
	if !ok || cerr.Arg != 1 {
		t.Fatalf("expected argument 1 to be flagged, got %v", err)
	}
	fn, err := LookupFunction("rotate", 3, always)
	if err != nil || fn.ParamKind(0, 3) != ParamRef || fn.ParamKind(2, 3) != ParamValue {
		t.Fatalf("unexpected rotate overload %+v %v", fn, err)
	}
	fn, err = LookupFunction("max", 5, never)
	if err != nil || !fn.Variadic {
		t.Fatalf("expected variadic max, got %+v %v", fn, err)
	}
	if _, err := LookupFunction("max", 1, never); err == nil {
		t.Fatalf("expected max to need two arguments")
	}
	if !IsFunction("perlin") || !IsFunction("voronoi") || IsFunction("simplex") {
		t.Fatalf("unexpected function registry contents")
	}
	names := FunctionNames()
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("expected sorted names, got %v", names)
		}
	}
}
