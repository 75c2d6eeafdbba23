package lang

import (
	"context"
	"math"
	"math/rand"
	"testing"
)

var foldableBinary = []Op{OpAdd, OpSub, OpMul, OpDiv, OpMod, OpPow, OpShl, OpShr, OpLt, OpGe, OpEq, OpNe, OpNear, OpAnd, OpOr}
var foldableUnary = []Op{OpNeg, OpPlus, OpNot, OpInv, OpFactorial}
var foldableCalls = []struct {
	name string
	argc int
}{
	{"sin", 1}, {"sqrt", 1}, {"floor", 1}, {"round", 1}, {"atan2", 2}, {"min", 3}, {"max", 2},
}

// treeGen builds random arithmetic trees over two parameters.
type treeGen struct {
	t    *testing.T
	rng  *rand.Rand
	x, y *Variable
}

func (g *treeGen) constant() Node {
	switch g.rng.Intn(4) {
	case 0:
		return NewConstant(g.rng.Intn(50), float64(g.rng.Intn(7)-3))
	case 1:
		return NewConstant(g.rng.Intn(50), g.rng.NormFloat64()*10)
	default:
		return NewConstant(g.rng.Intn(50), float64(g.rng.Intn(20)))
	}
}

func (g *treeGen) node(depth int) Node {
	if depth <= 0 {
		switch g.rng.Intn(3) {
		case 0:
			return g.x
		case 1:
			return g.y
		default:
			return g.constant()
		}
	}
	switch g.rng.Intn(6) {
	case 0:
		return g.constant()
	case 1:
		op := foldableUnary[g.rng.Intn(len(foldableUnary))]
		n, err := NewUnary(g.rng.Intn(50), op, g.node(depth-1))
		if err != nil {
			g.t.Fatalf("NewUnary: %v", err)
		}
		return n
	case 2:
		c := foldableCalls[g.rng.Intn(len(foldableCalls))]
		args := make([]Node, c.argc)
		for i := range args {
			args[i] = g.node(depth - 1)
		}
		return mustCall(g.t, c.name, args...)
	case 3:
		return NewConditional(g.rng.Intn(50), g.node(depth-1), g.node(depth-1), g.node(depth-1))
	default:
		op := foldableBinary[g.rng.Intn(len(foldableBinary))]
		n, err := NewBinary(g.rng.Intn(50), op, g.node(depth-1), g.node(depth-1))
		if err != nil {
			g.t.Fatalf("NewBinary: %v", err)
		}
		return n
	}
}

func sameFloat(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return math.Float64bits(a) == math.Float64bits(b)
}

func TestOptimizePreservesResults(t *testing.T) {
	slots := mustSlots(t, "x", "y")
	g := &treeGen{
		t:   t,
		rng: rand.New(rand.NewSource(1)),
		x:   NewVariable(0, 0, "x"),
		y:   NewVariable(0, 1, "y"),
	}
	st := NewState(slots)
	for i := 0; i < 500; i++ {
		tree := g.node(1 + g.rng.Intn(5))
		opt := Optimize(tree)
		for j := 0; j < 8; j++ {
			values := []float64{g.rng.NormFloat64() * 5, float64(g.rng.Intn(11) - 5)}
			if err := slots.Bind(values); err != nil {
				t.Fatalf("Bind: %v", err)
			}
			want, err := Run(context.Background(), tree, st, nil, DefaultLimits())
			if err != nil {
				t.Fatalf("Run(%v): %v", tree, err)
			}
			got, err := Run(context.Background(), opt, st, nil, DefaultLimits())
			if err != nil {
				t.Fatalf("Run(%v): %v", opt, err)
			}
			if !sameFloat(want, got) {
				t.Fatalf("tree %v with %v: unoptimized %v, optimized %v (%v)", tree, values, want, got, opt)
			}
		}
	}
}

func TestOptimizeFoldsConstants(t *testing.T) {
	tree := mustBinary(t, OpAdd, NewConstant(4, 1), mustBinary(t, OpMul, NewConstant(9, 2), NewConstant(2, 3)))
	c, ok := Optimize(tree).(*Constant)
	if !ok {
		t.Fatalf("expected constant, got %T", Optimize(tree))
	}
	if c.Value() != 7 || c.Pos() != 0 {
		t.Fatalf("expected 7 at earliest position 0, got %v at %d", c.Value(), c.Pos())
	}

	sqrt := mustCall(t, "sqrt", NewConstant(5, 16))
	if c, ok := Optimize(sqrt).(*Constant); !ok || c.Value() != 4 {
		t.Fatalf("expected sqrt(16) to fold to 4, got %v", Optimize(sqrt))
	}
}

func TestOptimizeKeepsVolatileAndAssignments(t *testing.T) {
	slots := mustSlots(t)
	a := variable(slots, "a")
	for _, n := range []Node{
		mustCall(t, "random"),
		mustCall(t, "randint", num(5)),
		mustCall(t, "megabuf", num(1)),
		mustBinary(t, OpAssign, a, num(1)),
		mustUnary(t, OpPreInc, a),
	} {
		if _, ok := Optimize(n).(*Constant); ok {
			t.Fatalf("expected %v to stay unfolded", n)
		}
	}

	// A failing call keeps its runtime error instead of folding.
	bad := mustCall(t, "perlin", num(0), num(0), num(0), num(0), num(1), num(0), num(0.5))
	if _, ok := Optimize(bad).(*Constant); ok {
		t.Fatalf("expected perlin with zero octaves to stay unfolded")
	}
}

func TestOptimizeDropsUntakenBranch(t *testing.T) {
	slots := mustSlots(t)
	a := variable(slots, "a")
	cond := NewConditional(3, mustBinary(t, OpLt, num(1), num(2)), mustBinary(t, OpAssign, a, num(5)), mustBinary(t, OpAssign, a, num(6)))
	opt := Optimize(cond)
	bin, ok := opt.(*Binary)
	if !ok {
		t.Fatalf("expected taken branch, got %T", opt)
	}
	if run(t, bin, slots) != 5 {
		t.Fatalf("expected then-branch to be kept")
	}

	noElse := NewConditional(3, num(0), mustBinary(t, OpAssign, a, num(5)), nil)
	if c, ok := Optimize(noElse).(*Constant); !ok || c.Value() != 0 {
		t.Fatalf("expected false conditional without else to fold to 0, got %v", Optimize(noElse))
	}
}

func TestOptimizeRebuildsStatements(t *testing.T) {
	slots := mustSlots(t)
	i, y := variable(slots, "i"), variable(slots, "y")
	sw, err := NewSwitch(0, mustBinary(t, OpAdd, num(1), num(1)), []float64{2}, []Node{mustBinary(t, OpAssign, y, mustBinary(t, OpMul, num(3), num(4)))}, nil)
	if err != nil {
		t.Fatalf("NewSwitch: %v", err)
	}
	root := seq(
		mustBinary(t, OpAssign, y, num(0)),
		NewRangeFor(0, i, num(1), mustBinary(t, OpAdd, num(1), num(2)), mustBinary(t, OpAddAssign, y, i)),
		NewWhile(0, num(0), num(1), true),
		NewFor(0, num(0), mustBinary(t, OpLt, i, num(0)), num(0), num(0)),
		sw,
		NewReturn(0, mustBinary(t, OpMul, y, mustBinary(t, OpSub, num(3), num(1)))),
	)
	opt := Optimize(root)
	s, ok := opt.(*Sequence)
	if !ok || s.Len() != 6 {
		t.Fatalf("expected sequence of 6, got %v", opt)
	}
	if got := run(t, opt, slots); got != 24 {
		t.Fatalf("expected 24, got %v", got)
	}
}
