package expression

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/EngineHub/WorldEdit-sub015/lang"
	"github.com/EngineHub/WorldEdit-sub015/parser"
)

// testEnv reports x as the block type and y as the block data. The absolute
// variants multiply by 10, the relative ones by 100.
type testEnv struct{}

func (testEnv) BlockType(x, y, z float64) int    { return int(x) }
func (testEnv) BlockData(x, y, z float64) int    { return int(y) }
func (testEnv) BlockTypeAbs(x, y, z float64) int { return int(x) * 10 }
func (testEnv) BlockDataAbs(x, y, z float64) int { return int(y) * 10 }
func (testEnv) BlockTypeRel(x, y, z float64) int { return int(x) * 100 }
func (testEnv) BlockDataRel(x, y, z float64) int { return int(y) * 100 }

func mustCompile(t *testing.T, src string, params ...string) *Expression {
	t.Helper()
	e, err := Compile(src, params...)
	if err != nil {
		t.Fatalf("Compile(%q): %v", src, err)
	}
	return e
}

func eval(t *testing.T, src string) float64 {
	t.Helper()
	e := mustCompile(t, src)
	e.SetEnvironment(testEnv{})
	v, err := e.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate(%q): %v", src, err)
	}
	return v
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		src  string
		want float64
	}{
		{"1 - 2 + 3", 2},
		{"2 + +4", 6},
		{"2 * -4", -8},
		{"2 ^ 3 ^ 2", 64},
		{"2 ** 3", 8},
		{"-2 ^ 2", 4},
		{"7 % 3 + 1 << 2", 8},
		{"1 ~= 0.999999999", 1},
		{"1 ~= 0.9", 0},
		{"1.1 << 4.1", 16},
		{"5!", 120},
		{"2000!", math.Inf(1)},
		{"(-1)!", 0},
		{"~0", -1},
		{"!3", 0},
		{"true ? false ? 1 : 2 : 3", 2},
		{"0 || 5", 5},
		{"2 && 5", 5},
		{"a = b = 4; a + b", 8},
		{"a = 2; a ^= 3; a", 8},
		{"a=0; b=a++; a+b", 1},
		{"a=0; b=++a; a+b", 2},
		{"c=5; a=0; while (c > 0) { ++a; --c; } a", 5},
		{"c=5; a=0; do { ++a; --c; } while (c > 0); a", 5},
		{"a=0; for (i=0; i<5; ++i) { ++a; } a", 5},
		{"y=0; for (i=1,5) { y*=10; y+=i; } y", 12345},
		{"y=0; for (i=5,1) { y*=10; y+=i; } y", 54321},
		{"x=1;y=2;z=3;switch(1){case 1: x=5; case 2: y=6; default: z=7} x*100+y*10+z", 567},
		{"x=1;y=2;z=3;switch(1){case 1: x=5; break; case 2: y=6; break; default: z=7} x*100+y*10+z", 523},
		{"x=1; switch(-2){case -2: x=9;} x", 9},
		{"y=0; if (1) x=4; else y=5; x*10+y", 40},
		{"a=0; if (0) if (1) a=1; else a=2; a", 0},
		{"a=0; if (1) if (0) a=1; else a=2; a", 2},
		{"s=0; for (i=0; i<10; ++i) { if (i == 5) break; s+=i; } s", 10},
		{"s=0; for (i=1,6) { if (i % 2) continue; s+=i; } s", 12},
		{"s=0; for (i=0; i<4; ++i) { switch (i) { case 1: continue; default: s+=i; } } s", 5},
		{"return 3; 4", 3},
		{"for (i=0; i<10; ++i) { if (i == 3) return i * 10; } 1", 30},
		{"megabuf(3)=7; megabuf(3)", 7},
		{"megabuf(1)=1; megabuf(2)=2; megabuf(1) + megabuf(2)", 3},
		{"a=1;b=2;query(3,4,5,a,b); a==3 && b==4", 1},
		{"queryAbs(3,4,5,30,40)", 1},
		{"queryRel(3,4,5,300,-1)", 1},
		{"query(3,4,5,1,4)", 0},
		{"x=1; y=0; rotate(x, y, pi); round(x)", -1},
		{"a=1; b=2; swap(a, b); a*10+b", 21},
		{"min(3, 1, 2) + max(4, 5)", 6},
		{"a=0; while (a < 5) { if (a >= 2) break; else ++a; } a", 2},
		{"s=0; for (i=1,6) { if (i % 2) continue; else s += i; } s", 12},
		{"/* head */ 1 + // tail\n 2", 3},
		{"", 0},
		{"{}", 0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := eval(t, tt.src); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestCompileErrorPositions(t *testing.T) {
	tests := []struct {
		src    string
		kind   error
		offset int
	}{
		{"1 + #", parser.ErrLex, 4},
		{"rotate(1, 2, 3)", parser.ErrParse, 7},
		{"e++", parser.ErrBind, 0},
		{"break", parser.ErrParse, 0},
		{"x = 1; continue", parser.ErrParse, 7},
		{"switch (1) { default: x=1; case 2: x=2; }", parser.ErrParse, 27},
		{"switch (1) { case 1: x=1; case 1: x=2; }", parser.ErrParse, 26},
		{"nosuch(1)", parser.ErrParse, 0},
		{"1 + y", parser.ErrBind, 4},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Compile(tt.src)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %v, got %v", tt.kind, err)
			}
			var perr *parser.Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *parser.Error, got %T", err)
			}
			if perr.Position() != tt.offset {
				t.Fatalf("expected position %d, got %d (%v)", tt.offset, perr.Position(), err)
			}
		})
	}

	if _, err := Compile("(1 + 2"); !parser.IsIncomplete(err) {
		t.Fatalf("expected incomplete error, got %v", err)
	}
	if _, err := Compile("x", "x", "x"); err == nil {
		t.Fatalf("expected duplicate parameter error")
	}
}

func TestParametersAndSlots(t *testing.T) {
	e := mustCompile(t, "data = x + y * 2; type = 3; data > 4", "x", "y")
	if got := strings.Join(e.Params(), ","); got != "x,y" {
		t.Fatalf("unexpected params %s", got)
	}
	v, err := e.Evaluate(1, 2)
	if err != nil || v != 1 {
		t.Fatalf("expected 1, got %v %v", v, err)
	}
	if data, _ := e.Variable("data"); data != 5 {
		t.Fatalf("expected data=5, got %v", data)
	}
	if got := strings.Join(e.Names(), ","); got != "x,y,data,type" {
		t.Fatalf("unexpected names %s", got)
	}
	if _, err := e.Evaluate(1); err == nil {
		t.Fatalf("expected parameter count error")
	}
	if _, err := e.Variable("nope"); err == nil {
		t.Fatalf("expected unknown variable error")
	}
	if e.Source() != "data = x + y * 2; type = 3; data > 4" {
		t.Fatalf("unexpected source %q", e.Source())
	}
}

func TestVariablesPersistAcrossEvaluations(t *testing.T) {
	e := mustCompile(t, "n += 1")
	for i := 1; i <= 3; i++ {
		v, err := e.Evaluate()
		if err != nil || v != float64(i) {
			t.Fatalf("evaluation %d: expected %d, got %v %v", i, i, v, err)
		}
	}
	if err := e.SetVariable("n", 10); err != nil {
		t.Fatalf("SetVariable: %v", err)
	}
	if v, _ := e.Evaluate(); v != 11 {
		t.Fatalf("expected 11 after SetVariable, got %v", v)
	}
	if err := e.SetVariable("pi", 3); err == nil {
		t.Fatalf("expected constant write to fail")
	}
	e.Reset()
	if v, _ := e.Evaluate(); v != 1 {
		t.Fatalf("expected 1 after reset, got %v", v)
	}
}

func TestRuntimeErrors(t *testing.T) {
	e := mustCompile(t, "for (i=0; i<1000; ++i) {} 1")
	_, err := e.Evaluate()
	var eerr *lang.EvalError
	if !errors.As(err, &eerr) || !strings.Contains(eerr.Msg, "loop exceeded 256 iterations") {
		t.Fatalf("expected iteration cap error, got %v", err)
	}
	if eerr.Pos != 0 {
		t.Fatalf("expected error at the loop, got %d", eerr.Pos)
	}

	opts := DefaultOptions()
	opts.LoopLimit = 0
	e, err = CompileWith("s=0; for (i=0; i<1000; ++i) { s+=1 } s", opts)
	if err != nil {
		t.Fatalf("CompileWith: %v", err)
	}
	if v, err := e.Evaluate(); err != nil || v != 1000 {
		t.Fatalf("expected uncapped loop to finish with 1000, got %v %v", v, err)
	}

	e = mustCompile(t, "1 + query(0, 0, 0, -1, -1)")
	if _, err := e.Evaluate(); !errors.As(err, &eerr) || eerr.Pos != 4 {
		t.Fatalf("expected query error at 4, got %v", err)
	}

	e = mustCompile(t, "x = 2; randint(x - 2)")
	if _, err := e.Evaluate(); !errors.As(err, &eerr) {
		t.Fatalf("expected randint error, got %v", err)
	}
}

const nestedLoops = "s = 0; for (a=0,255) { for (b=0,255) { for (c=0,255) { for (d=0,255) { s += sin(a+b+c+d); } } } } s"

func TestTimeout(t *testing.T) {
	e := mustCompile(t, nestedLoops)
	start := time.Now()
	_, err := e.EvaluateTimeout(nil, nil, 20*time.Millisecond)
	elapsed := time.Since(start)
	if !lang.IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
	var terr *lang.TimeoutError
	if !errors.As(err, &terr) || terr.Limit != 20*time.Millisecond {
		t.Fatalf("expected *lang.TimeoutError with the budget, got %v", err)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}
}

func TestClosestScanHonoursTimeout(t *testing.T) {
	for _, src := range []string{
		"1 + closest(0, 0, 0, 0, 2147483647, 3)",
		"1 + gclosest(0, 0, 0, 0, 2147483647, 3)",
	} {
		e := mustCompile(t, src)
		start := time.Now()
		_, err := e.EvaluateTimeout(nil, nil, 20*time.Millisecond)
		var terr *lang.TimeoutError
		if !errors.As(err, &terr) {
			t.Fatalf("%s: expected timeout, got %v", src, err)
		}
		if terr.Pos != 4 {
			t.Fatalf("%s: expected the timeout at the call, got position %d", src, terr.Pos)
		}
		if elapsed := time.Since(start); elapsed > 2*time.Second {
			t.Fatalf("%s: timeout took %v", src, elapsed)
		}
	}
}

func TestEvaluateContext(t *testing.T) {
	e := mustCompile(t, nestedLoops)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.EvaluateContext(ctx, nil, nil)
	if !lang.IsTimeout(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}

	e = mustCompile(t, "x * 2", "x")
	if v, err := e.EvaluateContext(context.Background(), []float64{4}, nil); err != nil || v != 8 {
		t.Fatalf("expected 8, got %v %v", v, err)
	}
}

func TestCompileWithoutOptimizing(t *testing.T) {
	opts := DefaultOptions()
	opts.Optimize = false
	e, err := CompileWith("1 + 2", opts)
	if err != nil {
		t.Fatalf("CompileWith: %v", err)
	}
	if _, ok := e.Root().(*lang.Binary); !ok {
		t.Fatalf("expected unfolded tree, got %T", e.Root())
	}
	if v, _ := e.Evaluate(); v != 3 {
		t.Fatalf("expected 3, got %v", v)
	}
	if c, ok := mustCompile(t, "1 + 2").Root().(*lang.Constant); !ok || c.Value() != 3 {
		t.Fatalf("expected folded tree")
	}
}

func TestCompileReader(t *testing.T) {
	e, err := CompileReader(strings.NewReader("x + 1"), "x")
	if err != nil {
		t.Fatalf("CompileReader: %v", err)
	}
	if v, _ := e.Evaluate(2); v != 3 {
		t.Fatalf("expected 3, got %v", v)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	e := mustCompile(t, "n += x; megabuf(0) += 1; n", "x")
	e.SetEnvironment(testEnv{})
	if _, err := e.Evaluate(5); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	c := e.Clone()
	if c.Environment() == nil {
		t.Fatalf("expected clone to keep the environment")
	}
	if v, _ := c.Evaluate(1); v != 6 {
		t.Fatalf("expected clone to start from n=5, got %v", v)
	}
	if n, _ := e.Variable("n"); n != 5 {
		t.Fatalf("expected original n=5, got %v", n)
	}
	if e.Megabuf().Get(0) != 1 || c.Megabuf().Get(0) != 2 {
		t.Fatalf("expected separate buffers, got %v and %v", e.Megabuf().Get(0), c.Megabuf().Get(0))
	}

	var wg sync.WaitGroup
	results := make([]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int, ex *Expression) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v, err := ex.Evaluate(float64(i))
				if err != nil {
					t.Errorf("Evaluate: %v", err)
					return
				}
				results[i] = v
			}
		}(i, e.Clone())
	}
	wg.Wait()
	for i, v := range results {
		if want := 5 + float64(i)*100; v != want {
			t.Fatalf("worker %d: expected %v, got %v", i, want, v)
		}
	}
}
