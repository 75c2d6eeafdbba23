package lang

import (
	"fmt"
	"math"
)

// Op identifies a unary or binary operator.
type Op uint8

const (
	OpInvalid Op = iota

	OpAdd  // +
	OpSub  // -
	OpMul  // *
	OpDiv  // /
	OpMod  // %
	OpPow  // ^ **
	OpShl  // <<
	OpShr  // >>
	OpLt   // <
	OpGt   // >
	OpLe   // <=
	OpGe   // >=
	OpEq   // ==
	OpNe   // !=
	OpNear // ~=
	OpAnd  // &&
	OpOr   // ||

	OpAssign    // =
	OpAddAssign // +=
	OpSubAssign // -=
	OpMulAssign // *=
	OpDivAssign // /=
	OpModAssign // %=
	OpPowAssign // ^=

	OpNeg       // -x
	OpPlus      // +x
	OpNot       // !x
	OpInv       // ~x
	OpPreInc    // ++x
	OpPreDec    // --x
	OpPostInc   // x++
	OpPostDec   // x--
	OpFactorial // x!
)

type opInfo struct {
	symbol  string
	unary   bool
	assigns bool
	base    Op
}

var opTable = [...]opInfo{
	OpInvalid: {symbol: "?"},

	OpAdd:  {symbol: "+"},
	OpSub:  {symbol: "-"},
	OpMul:  {symbol: "*"},
	OpDiv:  {symbol: "/"},
	OpMod:  {symbol: "%"},
	OpPow:  {symbol: "^"},
	OpShl:  {symbol: "<<"},
	OpShr:  {symbol: ">>"},
	OpLt:   {symbol: "<"},
	OpGt:   {symbol: ">"},
	OpLe:   {symbol: "<="},
	OpGe:   {symbol: ">="},
	OpEq:   {symbol: "=="},
	OpNe:   {symbol: "!="},
	OpNear: {symbol: "~="},
	OpAnd:  {symbol: "&&"},
	OpOr:   {symbol: "||"},

	OpAssign:    {symbol: "=", assigns: true},
	OpAddAssign: {symbol: "+=", assigns: true, base: OpAdd},
	OpSubAssign: {symbol: "-=", assigns: true, base: OpSub},
	OpMulAssign: {symbol: "*=", assigns: true, base: OpMul},
	OpDivAssign: {symbol: "/=", assigns: true, base: OpDiv},
	OpModAssign: {symbol: "%=", assigns: true, base: OpMod},
	OpPowAssign: {symbol: "^=", assigns: true, base: OpPow},

	OpNeg:       {symbol: "-", unary: true},
	OpPlus:      {symbol: "+", unary: true},
	OpNot:       {symbol: "!", unary: true},
	OpInv:       {symbol: "~", unary: true},
	OpPreInc:    {symbol: "++", unary: true, assigns: true},
	OpPreDec:    {symbol: "--", unary: true, assigns: true},
	OpPostInc:   {symbol: "++", unary: true, assigns: true},
	OpPostDec:   {symbol: "--", unary: true, assigns: true},
	OpFactorial: {symbol: "!", unary: true},
}

func (op Op) info() opInfo {
	if int(op) >= len(opTable) {
		return opTable[OpInvalid]
	}
	return opTable[op]
}

func (op Op) String() string {
	if int(op) >= len(opTable) {
		return fmt.Sprintf("Op(%d)", int(op))
	}
	return opTable[op].symbol
}

// Unary reports whether op takes a single operand.
func (op Op) Unary() bool { return op.info().unary }

// Assigns reports whether op writes to its (first) operand, which must then
// be an LValue.
func (op Op) Assigns() bool { return op.info().assigns }

func applyBinary(op Op, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpMod:
		return math.Mod(a, b)
	case OpPow:
		return math.Pow(a, b)
	case OpShl:
		return float64(toInt64(a) << shiftCount(b))
	case OpShr:
		return float64(toInt64(a) >> shiftCount(b))
	case OpLt:
		return boolValue(a < b)
	case OpGt:
		return boolValue(a > b)
	case OpLe:
		return boolValue(a <= b)
	case OpGe:
		return boolValue(a >= b)
	case OpEq:
		return boolValue(a == b)
	case OpNe:
		return boolValue(a != b)
	case OpNear:
		return boolValue(near(a, b))
	case OpAnd:
		if a > 0 {
			return b
		}
		return a
	case OpOr:
		if a > 0 {
			return a
		}
		return b
	}
	panic(fmt.Sprintf("lang: %v is not a binary operator", op))
}

func applyUnary(op Op, a float64) float64 {
	switch op {
	case OpNeg:
		return -a
	case OpPlus:
		return a
	case OpNot:
		return boolValue(!(a > 0))
	case OpInv:
		return float64(^toInt64(a))
	case OpFactorial:
		return factorial(a)
	}
	panic(fmt.Sprintf("lang: %v is not a pure unary operator", op))
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func truthy(v float64) bool { return v > 0 }

// toInt64 truncates toward zero, saturating at the int64 range; NaN is 0.
func toInt64(v float64) int64 {
	switch {
	case v != v:
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}

// toInt32 truncates toward zero, saturating at the int32 range; NaN is 0.
func toInt32(v float64) int32 {
	switch {
	case v != v:
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}

// shiftCount uses the low six bits of the truncated count.
func shiftCount(v float64) uint {
	return uint(toInt64(v) & 63)
}

const nearMaxULPs = 450359963

// near compares a and b by the distance between their bit patterns mapped
// onto a monotonic integer line.
func near(a, b float64) bool {
	ai := int64(math.Float64bits(a))
	if ai < 0 {
		ai = math.MinInt64 - ai
	}
	bi := int64(math.Float64bits(b))
	if bi < 0 {
		bi = math.MinInt64 - bi
	}
	var diff uint64
	if ai > bi {
		diff = uint64(ai) - uint64(bi)
	} else {
		diff = uint64(bi) - uint64(ai)
	}
	return diff <= nearMaxULPs
}

const factorialTableSize = 171

var factorials = func() [factorialTableSize]float64 {
	var table [factorialTableSize]float64
	table[0] = 1
	for i := 1; i < factorialTableSize; i++ {
		table[i] = table[i-1] * float64(i)
	}
	return table
}()

func factorial(v float64) float64 {
	n := toInt32(v)
	switch {
	case n < 0:
		return 0
	case n >= factorialTableSize:
		return math.Inf(1)
	}
	return factorials[n]
}
