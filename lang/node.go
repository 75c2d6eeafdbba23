package lang

import "fmt"

// Node is a bound runtime node. Every node carries the byte offset of the
// token that defined it.
type Node interface {
	Pos() int
	eval(ev *Evaluator) (result, error)
	optimize() Node
}

// LValue is a node that can also be assigned.
type LValue interface {
	Node
	assign(ev *Evaluator, v float64) (float64, error)
}

type flow uint8

const (
	flowNext flow = iota
	flowBreak
	flowContinue
	flowReturn
)

func (f flow) String() string {
	switch f {
	case flowNext:
		return "value"
	case flowBreak:
		return "break"
	case flowContinue:
		return "continue"
	case flowReturn:
		return "return"
	default:
		return fmt.Sprintf("flow(%d)", int(f))
	}
}

// result is what every node evaluation produces: a value, or a control-flow
// signal that enclosing constructs consume or pass upward.
type result struct {
	val  float64
	flow flow
	at   int
}

func value(v float64) result { return result{val: v} }

// Constant is a literal or folded value.
type Constant struct {
	pos int
	v   float64
}

// NewConstant returns a constant node.
func NewConstant(pos int, v float64) *Constant {
	return &Constant{pos: pos, v: v}
}

func (n *Constant) Pos() int       { return n.pos }
func (n *Constant) Value() float64 { return n.v }
func (n *Constant) String() string { return FormatNumber(n.v) }

func (n *Constant) eval(*Evaluator) (result, error) { return value(n.v), nil }

// Variable reads and writes one slot.
type Variable struct {
	pos  int
	slot int
	name string
}

// NewVariable returns a reference to slot.
func NewVariable(pos, slot int, name string) *Variable {
	return &Variable{pos: pos, slot: slot, name: name}
}

func (n *Variable) Pos() int       { return n.pos }
func (n *Variable) Slot() int      { return n.slot }
func (n *Variable) String() string { return n.name }

func (n *Variable) eval(ev *Evaluator) (result, error) {
	return value(ev.values[n.slot]), nil
}

func (n *Variable) assign(ev *Evaluator, v float64) (float64, error) {
	ev.values[n.slot] = v
	return v, nil
}

// Unary applies a prefix or postfix operator.
type Unary struct {
	pos    int
	op     Op
	x      Node
	target LValue
}

// NewUnary builds a unary node. Increment and decrement require an LValue
// operand.
func NewUnary(pos int, op Op, x Node) (*Unary, error) {
	if !op.Unary() {
		return nil, fmt.Errorf("%v is not a unary operator", op)
	}
	n := &Unary{pos: pos, op: op, x: x}
	if op.Assigns() {
		lv, ok := x.(LValue)
		if !ok {
			return nil, fmt.Errorf("operand of %v is not assignable", op)
		}
		n.target = lv
	}
	return n, nil
}

func (n *Unary) Pos() int { return n.pos }
func (n *Unary) Op() Op   { return n.op }

func (n *Unary) String() string {
	switch n.op {
	case OpPostInc, OpPostDec, OpFactorial:
		return fmt.Sprintf("(%v%v)", n.x, n.op)
	}
	return fmt.Sprintf("(%v%v)", n.op, n.x)
}

func (n *Unary) eval(ev *Evaluator) (result, error) {
	x, err := ev.num(n.x)
	if err != nil {
		return result{}, err
	}
	if n.target == nil {
		return value(applyUnary(n.op, x)), nil
	}
	next := x + 1
	if n.op == OpPreDec || n.op == OpPostDec {
		next = x - 1
	}
	if _, err := n.target.assign(ev, next); err != nil {
		return result{}, err
	}
	if n.op == OpPostInc || n.op == OpPostDec {
		return value(x), nil
	}
	return value(next), nil
}

// Binary applies an infix operator. Assignment operators write to lhs.
type Binary struct {
	pos      int
	op       Op
	lhs, rhs Node
	target   LValue
}

// NewBinary builds a binary node. Assignment operators require an LValue
// left operand.
func NewBinary(pos int, op Op, lhs, rhs Node) (*Binary, error) {
	if op == OpInvalid || op.Unary() {
		return nil, fmt.Errorf("%v is not a binary operator", op)
	}
	n := &Binary{pos: pos, op: op, lhs: lhs, rhs: rhs}
	if op.Assigns() {
		lv, ok := lhs.(LValue)
		if !ok {
			return nil, fmt.Errorf("left operand of %v is not assignable", op)
		}
		n.target = lv
	}
	return n, nil
}

func (n *Binary) Pos() int       { return n.pos }
func (n *Binary) Op() Op         { return n.op }
func (n *Binary) String() string { return fmt.Sprintf("(%v %v %v)", n.lhs, n.op, n.rhs) }

func (n *Binary) eval(ev *Evaluator) (result, error) {
	if n.target != nil {
		return n.evalAssign(ev)
	}
	lhs, err := ev.num(n.lhs)
	if err != nil {
		return result{}, err
	}
	rhs, err := ev.num(n.rhs)
	if err != nil {
		return result{}, err
	}
	return value(applyBinary(n.op, lhs, rhs)), nil
}

func (n *Binary) evalAssign(ev *Evaluator) (result, error) {
	var cur float64
	if n.op != OpAssign {
		v, err := ev.num(n.target)
		if err != nil {
			return result{}, err
		}
		cur = v
	}
	rhs, err := ev.num(n.rhs)
	if err != nil {
		return result{}, err
	}
	if n.op != OpAssign {
		rhs = applyBinary(n.op.info().base, cur, rhs)
	}
	v, err := n.target.assign(ev, rhs)
	if err != nil {
		return result{}, err
	}
	return value(v), nil
}

// Call invokes a built-in function.
type Call struct {
	pos  int
	fn   *Function
	args []Node
}

// AssignableCall is a call to a function that also supports assignment,
// such as megabuf.
type AssignableCall struct {
	Call
}

// NewCall builds a call node. Calls to functions with a setter are
// assignable.
func NewCall(pos int, fn *Function, args []Node) (Node, error) {
	if !fn.accepts(len(args)) {
		return nil, fmt.Errorf("function %s does not take %d arguments", fn.Name, len(args))
	}
	for i, kind := range fn.paramKinds(len(args)) {
		if kind != ParamRef {
			continue
		}
		if _, ok := args[i].(LValue); !ok {
			return nil, fmt.Errorf("argument %d of %s is not assignable", i+1, fn.Name)
		}
	}
	call := Call{pos: pos, fn: fn, args: args}
	if fn.Set != nil {
		return &AssignableCall{Call: call}, nil
	}
	return &call, nil
}

func (n *Call) Pos() int            { return n.pos }
func (n *Call) Function() *Function { return n.fn }

func (n *Call) String() string {
	s := n.fn.Name + "("
	for i, arg := range n.args {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprint(arg)
	}
	return s + ")"
}

func (n *Call) eval(ev *Evaluator) (result, error) {
	v, err := n.fn.Eval(ev, n.args)
	if err != nil {
		return result{}, wrapCallError(n.pos, n.fn, err)
	}
	return value(v), nil
}

func (n *AssignableCall) assign(ev *Evaluator, v float64) (float64, error) {
	out, err := n.fn.Set(ev, n.args, v)
	if err != nil {
		return 0, wrapCallError(n.pos, n.fn, err)
	}
	return out, nil
}

func wrapCallError(pos int, fn *Function, err error) error {
	switch e := err.(type) {
	case *EvalError:
		return err
	case *TimeoutError:
		if e.Pos < 0 {
			e.Pos = pos
		}
		return err
	}
	return &EvalError{Pos: pos, Msg: fmt.Sprintf("%s: %v", fn.Name, err)}
}

// Conditional is an if statement or a ternary expression.
type Conditional struct {
	pos  int
	cond Node
	then Node
	els  Node
}

// NewConditional builds a conditional; els may be nil.
func NewConditional(pos int, cond, then, els Node) *Conditional {
	return &Conditional{pos: pos, cond: cond, then: then, els: els}
}

func (n *Conditional) Pos() int { return n.pos }

func (n *Conditional) String() string {
	if n.els == nil {
		return fmt.Sprintf("if (%v) %v", n.cond, n.then)
	}
	return fmt.Sprintf("if (%v) %v else %v", n.cond, n.then, n.els)
}

func (n *Conditional) eval(ev *Evaluator) (result, error) {
	c, err := ev.num(n.cond)
	if err != nil {
		return result{}, err
	}
	if truthy(c) {
		return n.then.eval(ev)
	}
	if n.els != nil {
		return n.els.eval(ev)
	}
	return value(0), nil
}

// While is a while or do-while loop.
type While struct {
	pos     int
	cond    Node
	body    Node
	doWhile bool
}

// NewWhile builds a while loop, or a do-while loop when doWhile is set.
func NewWhile(pos int, cond, body Node, doWhile bool) *While {
	return &While{pos: pos, cond: cond, body: body, doWhile: doWhile}
}

func (n *While) Pos() int { return n.pos }

func (n *While) String() string {
	if n.doWhile {
		return fmt.Sprintf("do %v while (%v)", n.body, n.cond)
	}
	return fmt.Sprintf("while (%v) %v", n.cond, n.body)
}

func (n *While) eval(ev *Evaluator) (result, error) {
	var last float64
	iterations := 0
	for first := true; ; first = false {
		if !first || !n.doWhile {
			c, err := ev.num(n.cond)
			if err != nil {
				return result{}, err
			}
			if !truthy(c) {
				break
			}
		}
		if err := ev.iterate(n.pos, &iterations); err != nil {
			return result{}, err
		}
		r, err := n.body.eval(ev)
		if err != nil {
			return result{}, err
		}
		switch r.flow {
		case flowBreak:
			return value(0), nil
		case flowContinue:
			continue
		case flowReturn:
			return r, nil
		}
		last = r.val
	}
	return value(last), nil
}

// For is a C-style three-clause loop.
type For struct {
	pos  int
	init Node
	cond Node
	step Node
	body Node
}

// NewFor builds a C-style for loop.
func NewFor(pos int, init, cond, step, body Node) *For {
	return &For{pos: pos, init: init, cond: cond, step: step, body: body}
}

func (n *For) Pos() int { return n.pos }

func (n *For) String() string {
	return fmt.Sprintf("for (%v; %v; %v) %v", n.init, n.cond, n.step, n.body)
}

func (n *For) eval(ev *Evaluator) (result, error) {
	if _, err := ev.num(n.init); err != nil {
		return result{}, err
	}
	var last float64
	iterations := 0
	for {
		c, err := ev.num(n.cond)
		if err != nil {
			return result{}, err
		}
		if !truthy(c) {
			break
		}
		if err := ev.iterate(n.pos, &iterations); err != nil {
			return result{}, err
		}
		r, err := n.body.eval(ev)
		if err != nil {
			return result{}, err
		}
		switch r.flow {
		case flowBreak:
			return value(0), nil
		case flowReturn:
			return r, nil
		case flowNext:
			last = r.val
		}
		if _, err := ev.num(n.step); err != nil {
			return result{}, err
		}
	}
	return value(last), nil
}

// RangeFor assigns counter every value of the inclusive interval
// [first, last], stepping by one toward last.
type RangeFor struct {
	pos     int
	counter LValue
	first   Node
	last    Node
	body    Node
}

// NewRangeFor builds a two-argument for loop.
func NewRangeFor(pos int, counter LValue, first, last, body Node) *RangeFor {
	return &RangeFor{pos: pos, counter: counter, first: first, last: last, body: body}
}

func (n *RangeFor) Pos() int { return n.pos }

func (n *RangeFor) String() string {
	return fmt.Sprintf("for (%v = %v, %v) %v", n.counter, n.first, n.last, n.body)
}

func (n *RangeFor) eval(ev *Evaluator) (result, error) {
	first, err := ev.num(n.first)
	if err != nil {
		return result{}, err
	}
	last, err := ev.num(n.last)
	if err != nil {
		return result{}, err
	}
	step := 1.0
	if last < first {
		step = -1
	}
	var out float64
	iterations := 0
	for v := first; (step > 0 && v <= last) || (step < 0 && v >= last); v += step {
		if err := ev.iterate(n.pos, &iterations); err != nil {
			return result{}, err
		}
		if _, err := n.counter.assign(ev, v); err != nil {
			return result{}, err
		}
		r, err := n.body.eval(ev)
		if err != nil {
			return result{}, err
		}
		switch r.flow {
		case flowBreak:
			return value(0), nil
		case flowReturn:
			return r, nil
		case flowNext:
			out = r.val
		}
	}
	return value(out), nil
}

// Switch runs the case matching the selector and falls through the cases
// that follow it until a break.
type Switch struct {
	pos      int
	selector Node
	values   []float64
	index    map[float64]int
	bodies   []Node
	deflt    Node
}

// NewSwitch builds a switch. values and bodies are parallel; deflt may be
// nil. Case values must be distinct.
func NewSwitch(pos int, selector Node, values []float64, bodies []Node, deflt Node) (*Switch, error) {
	if len(values) != len(bodies) {
		return nil, fmt.Errorf("switch has %d case values but %d bodies", len(values), len(bodies))
	}
	index := make(map[float64]int, len(values))
	for i, v := range values {
		if _, dup := index[v]; dup {
			return nil, fmt.Errorf("duplicate case %s", FormatNumber(v))
		}
		index[v] = i
	}
	return &Switch{
		pos:      pos,
		selector: selector,
		values:   values,
		index:    index,
		bodies:   bodies,
		deflt:    deflt,
	}, nil
}

func (n *Switch) Pos() int { return n.pos }

func (n *Switch) String() string {
	s := fmt.Sprintf("switch (%v) {", n.selector)
	for i, v := range n.values {
		s += fmt.Sprintf(" case %s: %v", FormatNumber(v), n.bodies[i])
	}
	if n.deflt != nil {
		s += fmt.Sprintf(" default: %v", n.deflt)
	}
	return s + " }"
}

func (n *Switch) eval(ev *Evaluator) (result, error) {
	sel, err := ev.num(n.selector)
	if err != nil {
		return result{}, err
	}
	start, ok := n.index[sel]
	if !ok {
		start = len(n.bodies)
	}
	var last float64
	for _, body := range n.bodies[start:] {
		r, err := body.eval(ev)
		if err != nil {
			return result{}, err
		}
		switch r.flow {
		case flowBreak:
			return value(0), nil
		case flowContinue, flowReturn:
			return r, nil
		}
		last = r.val
	}
	if n.deflt != nil {
		r, err := n.deflt.eval(ev)
		if err != nil {
			return result{}, err
		}
		switch r.flow {
		case flowBreak:
			return value(0), nil
		case flowContinue, flowReturn:
			return r, nil
		}
		last = r.val
	}
	return value(last), nil
}

// Break is a break or, when Continue is set, a continue statement.
type Break struct {
	pos  int
	cont bool
}

// NewBreak builds a break or continue signal.
func NewBreak(pos int, cont bool) *Break {
	return &Break{pos: pos, cont: cont}
}

func (n *Break) Pos() int       { return n.pos }
func (n *Break) Continue() bool { return n.cont }

func (n *Break) String() string {
	if n.cont {
		return "continue"
	}
	return "break"
}

func (n *Break) eval(*Evaluator) (result, error) {
	if n.cont {
		return result{flow: flowContinue, at: n.pos}, nil
	}
	return result{flow: flowBreak, at: n.pos}, nil
}

// Return ends the whole evaluation with a value.
type Return struct {
	pos int
	x   Node
}

// NewReturn builds a return statement.
func NewReturn(pos int, x Node) *Return {
	return &Return{pos: pos, x: x}
}

func (n *Return) Pos() int       { return n.pos }
func (n *Return) String() string { return fmt.Sprintf("return %v", n.x) }

func (n *Return) eval(ev *Evaluator) (result, error) {
	v, err := ev.num(n.x)
	if err != nil {
		return result{}, err
	}
	return result{val: v, flow: flowReturn, at: n.pos}, nil
}

// Sequence evaluates statements in order; its value is the last one's.
type Sequence struct {
	pos   int
	stmts []Node
}

// NewSequence builds a statement list.
func NewSequence(pos int, stmts []Node) *Sequence {
	return &Sequence{pos: pos, stmts: stmts}
}

func (n *Sequence) Pos() int       { return n.pos }
func (n *Sequence) Len() int       { return len(n.stmts) }
func (n *Sequence) Stmts() []Node  { return n.stmts }

func (n *Sequence) String() string {
	s := "{"
	for i, stmt := range n.stmts {
		if i > 0 {
			s += ";"
		}
		s += fmt.Sprintf(" %v", stmt)
	}
	return s + " }"
}

func (n *Sequence) eval(ev *Evaluator) (result, error) {
	var last float64
	for _, stmt := range n.stmts {
		r, err := stmt.eval(ev)
		if err != nil {
			return result{}, err
		}
		if r.flow != flowNext {
			return r, nil
		}
		last = r.val
	}
	return value(last), nil
}
