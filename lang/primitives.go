package lang

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"
)

var (
	randomMu   sync.Mutex
	randomRand = rand.New(rand.NewSource(time.Now().UnixNano()))
)

var errNoEnvironment = errors.New("no environment to query")

func init() {
	installPrimitives()
}

func installPrimitives() {
	define := func(name string, params []ParamKind, eval func(*Evaluator, []Node) (float64, error)) *Function {
		fn := &Function{Name: name, Params: params, Eval: eval}
		register(fn)
		return fn
	}
	value1 := []ParamKind{ParamValue}
	value2 := []ParamKind{ParamValue, ParamValue}

	for name, f := range map[string]func(float64) float64{
		"sin":   math.Sin,
		"cos":   math.Cos,
		"tan":   math.Tan,
		"asin":  math.Asin,
		"acos":  math.Acos,
		"atan":  math.Atan,
		"sinh":  math.Sinh,
		"cosh":  math.Cosh,
		"tanh":  math.Tanh,
		"sqrt":  math.Sqrt,
		"cbrt":  math.Cbrt,
		"abs":   math.Abs,
		"ceil":  math.Ceil,
		"floor": math.Floor,
		"rint":  math.RoundToEven,
		"round": roundHalfUp,
		"exp":   math.Exp,
		"ln":    math.Log,
		"log":   math.Log,
		"log10": math.Log10,
	} {
		define(name, value1, unary(f))
	}
	define("atan2", value2, binary(math.Atan2))

	define("min", value2, reduce(math.Min)).Variadic = true
	define("max", value2, reduce(math.Max)).Variadic = true

	define("rotate", []ParamKind{ParamRef, ParamRef, ParamValue}, primRotate)
	define("swap", []ParamKind{ParamRef, ParamRef}, primSwap)

	megabuf := define("megabuf", value1, primMegabuf)
	megabuf.Volatile = true
	megabuf.Set = primSetMegabuf
	gmegabuf := define("gmegabuf", value1, primGlobalMegabuf)
	gmegabuf.Volatile = true
	gmegabuf.Set = primSetGlobalMegabuf

	closestParams := []ParamKind{ParamValue, ParamValue, ParamValue, ParamValue, ParamValue, ParamValue}
	define("closest", closestParams, primClosest).Volatile = true
	define("gclosest", closestParams, primGlobalClosest).Volatile = true

	define("random", nil, primRandom).Volatile = true
	define("randint", value1, primRandint).Volatile = true

	define("perlin", []ParamKind{ParamValue, ParamValue, ParamValue, ParamValue, ParamValue, ParamValue, ParamValue}, primPerlin)
	define("voronoi", []ParamKind{ParamValue, ParamValue, ParamValue, ParamValue, ParamValue}, primVoronoi)
	define("ridgedmulti", []ParamKind{ParamValue, ParamValue, ParamValue, ParamValue, ParamValue, ParamValue}, primRidgedMulti)

	queryParams := []ParamKind{ParamValue, ParamValue, ParamValue, ParamValue, ParamValue}
	define("query", queryParams, query(Environment.BlockType, Environment.BlockData)).Volatile = true
	define("queryAbs", queryParams, query(Environment.BlockTypeAbs, Environment.BlockDataAbs)).Volatile = true
	define("queryRel", queryParams, query(Environment.BlockTypeRel, Environment.BlockDataRel)).Volatile = true
}

func unary(f func(float64) float64) func(*Evaluator, []Node) (float64, error) {
	return func(ev *Evaluator, args []Node) (float64, error) {
		a, err := ev.num(args[0])
		if err != nil {
			return 0, err
		}
		return f(a), nil
	}
}

func binary(f func(a, b float64) float64) func(*Evaluator, []Node) (float64, error) {
	return func(ev *Evaluator, args []Node) (float64, error) {
		a, err := ev.num(args[0])
		if err != nil {
			return 0, err
		}
		b, err := ev.num(args[1])
		if err != nil {
			return 0, err
		}
		return f(a, b), nil
	}
}

func reduce(f func(a, b float64) float64) func(*Evaluator, []Node) (float64, error) {
	return func(ev *Evaluator, args []Node) (float64, error) {
		acc, err := ev.num(args[0])
		if err != nil {
			return 0, err
		}
		for _, arg := range args[1:] {
			v, err := ev.num(arg)
			if err != nil {
				return 0, err
			}
			acc = f(acc, v)
		}
		return acc, nil
	}
}

func nums(ev *Evaluator, args []Node) ([8]float64, error) {
	var out [8]float64
	for i, arg := range args {
		v, err := ev.num(arg)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

// roundHalfUp rounds to the nearest integer with ties toward positive
// infinity, saturating at the int64 range.
func roundHalfUp(x float64) float64 {
	return float64(toInt64(math.Floor(x + 0.5)))
}

func primRotate(ev *Evaluator, args []Node) (float64, error) {
	x, err := ev.num(args[0])
	if err != nil {
		return 0, err
	}
	y, err := ev.num(args[1])
	if err != nil {
		return 0, err
	}
	angle, err := ev.num(args[2])
	if err != nil {
		return 0, err
	}
	sin, cos := math.Sincos(angle)
	if _, err := args[0].(LValue).assign(ev, x*cos-y*sin); err != nil {
		return 0, err
	}
	if _, err := args[1].(LValue).assign(ev, x*sin+y*cos); err != nil {
		return 0, err
	}
	return 0, nil
}

func primSwap(ev *Evaluator, args []Node) (float64, error) {
	a, err := ev.num(args[0])
	if err != nil {
		return 0, err
	}
	b, err := ev.num(args[1])
	if err != nil {
		return 0, err
	}
	if _, err := args[0].(LValue).assign(ev, b); err != nil {
		return 0, err
	}
	if _, err := args[1].(LValue).assign(ev, a); err != nil {
		return 0, err
	}
	return 0, nil
}

func megabufIndex(ev *Evaluator, args []Node) (int32, error) {
	v, err := ev.num(args[0])
	if err != nil {
		return 0, err
	}
	return toInt32(v), nil
}

func primMegabuf(ev *Evaluator, args []Node) (float64, error) {
	idx, err := megabufIndex(ev, args)
	if err != nil {
		return 0, err
	}
	return ev.st.buf.Get(idx), nil
}

func primSetMegabuf(ev *Evaluator, args []Node, v float64) (float64, error) {
	idx, err := megabufIndex(ev, args)
	if err != nil {
		return 0, err
	}
	return ev.st.buf.Set(idx, v), nil
}

func primGlobalMegabuf(ev *Evaluator, args []Node) (float64, error) {
	idx, err := megabufIndex(ev, args)
	if err != nil {
		return 0, err
	}
	globalMegabuf.mu.Lock()
	defer globalMegabuf.mu.Unlock()
	return globalMegabuf.buf.Get(idx), nil
}

func primSetGlobalMegabuf(ev *Evaluator, args []Node, v float64) (float64, error) {
	idx, err := megabufIndex(ev, args)
	if err != nil {
		return 0, err
	}
	globalMegabuf.mu.Lock()
	defer globalMegabuf.mu.Unlock()
	return globalMegabuf.buf.Set(idx, v), nil
}

func primClosest(ev *Evaluator, args []Node) (float64, error) {
	a, err := nums(ev, args)
	if err != nil {
		return 0, err
	}
	return ev.st.buf.Closest(a[0], a[1], a[2], toInt32(a[3]), toInt32(a[4]), toInt32(a[5]), ev.tick)
}

func primGlobalClosest(ev *Evaluator, args []Node) (float64, error) {
	a, err := nums(ev, args)
	if err != nil {
		return 0, err
	}
	globalMegabuf.mu.Lock()
	defer globalMegabuf.mu.Unlock()
	return globalMegabuf.buf.Closest(a[0], a[1], a[2], toInt32(a[3]), toInt32(a[4]), toInt32(a[5]), ev.tick)
}

func primRandom(*Evaluator, []Node) (float64, error) {
	randomMu.Lock()
	defer randomMu.Unlock()
	return randomRand.Float64(), nil
}

func primRandint(ev *Evaluator, args []Node) (float64, error) {
	limit, err := ev.num(args[0])
	if err != nil {
		return 0, err
	}
	bound := toInt32(math.Floor(limit))
	if bound <= 0 {
		return 0, fmt.Errorf("bound must be positive, got %d", bound)
	}
	randomMu.Lock()
	defer randomMu.Unlock()
	return float64(randomRand.Int31n(bound)), nil
}

// query compares the block at (x, y, z) with the wanted type and data, where
// -1 matches anything, and stores the actual values into assignable
// arguments.
func query(typeOf, dataOf func(Environment, float64, float64, float64) int) func(*Evaluator, []Node) (float64, error) {
	return func(ev *Evaluator, args []Node) (float64, error) {
		a, err := nums(ev, args)
		if err != nil {
			return 0, err
		}
		if ev.env == nil {
			return 0, errNoEnvironment
		}
		typeID := float64(typeOf(ev.env, a[0], a[1], a[2]))
		data := float64(dataOf(ev.env, a[0], a[1], a[2]))
		wantType, wantData := a[3], a[4]
		matched := (wantType == -1 || wantType == typeID) && (wantData == -1 || wantData == data)
		if lv, ok := args[3].(LValue); ok {
			if _, err := lv.assign(ev, typeID); err != nil {
				return 0, err
			}
		}
		if lv, ok := args[4].(LValue); ok {
			if _, err := lv.assign(ev, data); err != nil {
				return 0, err
			}
		}
		return boolValue(matched), nil
	}
}
