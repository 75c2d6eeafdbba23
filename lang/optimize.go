package lang

// Optimize returns a tree with constant sub-trees folded. The input tree is
// not modified.
func Optimize(n Node) Node {
	return n.optimize()
}

func minPos(pos int, nodes ...Node) int {
	for _, n := range nodes {
		if p := n.Pos(); p < pos {
			pos = p
		}
	}
	return pos
}

func (n *Constant) optimize() Node { return n }

func (n *Variable) optimize() Node { return n }

func (n *Unary) optimize() Node {
	x := n.x.optimize()
	if c, ok := x.(*Constant); ok && n.target == nil {
		return NewConstant(minPos(n.pos, c), applyUnary(n.op, c.v))
	}
	out, err := NewUnary(n.pos, n.op, x)
	if err != nil {
		return n
	}
	return out
}

func (n *Binary) optimize() Node {
	lhs := n.lhs.optimize()
	rhs := n.rhs.optimize()
	if n.target == nil {
		l, lok := lhs.(*Constant)
		r, rok := rhs.(*Constant)
		if lok && rok {
			return NewConstant(minPos(n.pos, l, r), applyBinary(n.op, l.v, r.v))
		}
	}
	out, err := NewBinary(n.pos, n.op, lhs, rhs)
	if err != nil {
		return n
	}
	return out
}

func (n *Call) optimize() Node {
	args := make([]Node, len(n.args))
	constant := !n.fn.Volatile && n.fn.Set == nil
	for i, arg := range n.args {
		args[i] = arg.optimize()
		if n.fn.ParamKind(i, len(n.args)) == ParamRef {
			constant = false
		}
		if _, ok := args[i].(*Constant); !ok {
			constant = false
		}
	}
	if constant {
		if v, err := n.fn.Eval(scratch(), args); err == nil {
			return NewConstant(minPos(n.pos, args...), v)
		}
	}
	out, err := NewCall(n.pos, n.fn, args)
	if err != nil {
		return n
	}
	return out
}

func (n *Conditional) optimize() Node {
	cond := n.cond.optimize()
	if c, ok := cond.(*Constant); ok {
		switch {
		case truthy(c.v):
			return n.then.optimize()
		case n.els != nil:
			return n.els.optimize()
		default:
			return NewConstant(n.pos, 0)
		}
	}
	var els Node
	if n.els != nil {
		els = n.els.optimize()
	}
	return NewConditional(n.pos, cond, n.then.optimize(), els)
}

func (n *While) optimize() Node {
	return NewWhile(n.pos, n.cond.optimize(), n.body.optimize(), n.doWhile)
}

func (n *For) optimize() Node {
	return NewFor(n.pos, n.init.optimize(), n.cond.optimize(), n.step.optimize(), n.body.optimize())
}

func (n *RangeFor) optimize() Node {
	counter, ok := n.counter.optimize().(LValue)
	if !ok {
		counter = n.counter
	}
	return NewRangeFor(n.pos, counter, n.first.optimize(), n.last.optimize(), n.body.optimize())
}

func (n *Switch) optimize() Node {
	bodies := make([]Node, len(n.bodies))
	for i, body := range n.bodies {
		bodies[i] = body.optimize()
	}
	var deflt Node
	if n.deflt != nil {
		deflt = n.deflt.optimize()
	}
	return &Switch{
		pos:      n.pos,
		selector: n.selector.optimize(),
		values:   n.values,
		index:    n.index,
		bodies:   bodies,
		deflt:    deflt,
	}
}

func (n *Break) optimize() Node { return n }

func (n *Return) optimize() Node {
	return NewReturn(n.pos, n.x.optimize())
}

func (n *Sequence) optimize() Node {
	stmts := make([]Node, len(n.stmts))
	for i, stmt := range n.stmts {
		stmts[i] = stmt.optimize()
	}
	return NewSequence(n.pos, stmts)
}
