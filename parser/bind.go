package parser

import (
	"fmt"

	"github.com/EngineHub/WorldEdit-sub015/lang"
)

// Bind resolves every identifier of prog against slots and returns the
// runtime tree. Names in assignable positions that are not yet in the table
// become new free variables; reading an unknown name is an error.
func Bind(prog *Program, slots *lang.Slots) (lang.Node, error) {
	if prog == nil || prog.Body == nil {
		return lang.NewSequence(0, nil), nil
	}
	b := &binder{slots: slots}
	return b.block(prog.Body)
}

type binder struct {
	slots *lang.Slots
}

func (b *binder) errorf(pos Position, format string, args ...interface{}) error {
	return newError(ErrBind, pos, format, args...)
}

// block binds a statement list. A single statement is returned unwrapped.
func (b *binder) block(s *BlockStmt) (lang.Node, error) {
	if len(s.Stmts) == 1 {
		return b.stmt(s.Stmts[0])
	}
	nodes := make([]lang.Node, 0, len(s.Stmts))
	for _, stmt := range s.Stmts {
		n, err := b.stmt(stmt)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return lang.NewSequence(s.Posn.Offset, nodes), nil
}

func (b *binder) stmt(stmt Stmt) (lang.Node, error) {
	switch s := stmt.(type) {
	case *BlockStmt:
		return b.block(s)
	case *ExprStmt:
		return b.expr(s.Expr, false)
	case *IfStmt:
		cond, err := b.expr(s.Cond, false)
		if err != nil {
			return nil, err
		}
		then, err := b.stmt(s.Then)
		if err != nil {
			return nil, err
		}
		var els lang.Node
		if s.Else != nil {
			if els, err = b.stmt(s.Else); err != nil {
				return nil, err
			}
		}
		return lang.NewConditional(s.Posn.Offset, cond, then, els), nil
	case *WhileStmt:
		cond, err := b.expr(s.Cond, false)
		if err != nil {
			return nil, err
		}
		body, err := b.stmt(s.Body)
		if err != nil {
			return nil, err
		}
		return lang.NewWhile(s.Posn.Offset, cond, body, s.DoWhile), nil
	case *ForStmt:
		return b.forStmt(s)
	case *RangeForStmt:
		return b.rangeForStmt(s)
	case *SwitchStmt:
		return b.switchStmt(s)
	case *BranchStmt:
		return lang.NewBreak(s.Posn.Offset, s.Continue), nil
	case *ReturnStmt:
		x, err := b.expr(s.Result, false)
		if err != nil {
			return nil, err
		}
		return lang.NewReturn(s.Posn.Offset, x), nil
	default:
		return nil, fmt.Errorf("unsupported statement %T", stmt)
	}
}

// optional binds a clause that may be empty, substituting fallback.
func (b *binder) optional(x Expr, fallback lang.Node) (lang.Node, error) {
	if x == nil {
		return fallback, nil
	}
	return b.expr(x, false)
}

func (b *binder) forStmt(s *ForStmt) (lang.Node, error) {
	pos := s.Posn.Offset
	init, err := b.optional(s.Init, lang.NewSequence(pos, nil))
	if err != nil {
		return nil, err
	}
	cond, err := b.optional(s.Cond, lang.NewConstant(pos, 1))
	if err != nil {
		return nil, err
	}
	step, err := b.optional(s.Step, lang.NewSequence(pos, nil))
	if err != nil {
		return nil, err
	}
	body, err := b.stmt(s.Body)
	if err != nil {
		return nil, err
	}
	return lang.NewFor(pos, init, cond, step, body), nil
}

func (b *binder) rangeForStmt(s *RangeForStmt) (lang.Node, error) {
	counter, err := b.expr(s.Counter, true)
	if err != nil {
		return nil, err
	}
	lv, ok := counter.(lang.LValue)
	if !ok {
		return nil, b.errorf(s.Counter.Posn, "'%s' is not a variable", s.Counter.Name)
	}
	first, err := b.expr(s.First, false)
	if err != nil {
		return nil, err
	}
	last, err := b.expr(s.Last, false)
	if err != nil {
		return nil, err
	}
	body, err := b.stmt(s.Body)
	if err != nil {
		return nil, err
	}
	return lang.NewRangeFor(s.Posn.Offset, lv, first, last, body), nil
}

func (b *binder) switchStmt(s *SwitchStmt) (lang.Node, error) {
	selector, err := b.expr(s.Selector, false)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(s.Cases))
	bodies := make([]lang.Node, len(s.Cases))
	for i, c := range s.Cases {
		values[i] = c.Value
		if bodies[i], err = b.block(c.Body); err != nil {
			return nil, err
		}
	}
	var deflt lang.Node
	if s.Default != nil {
		if deflt, err = b.block(s.Default); err != nil {
			return nil, err
		}
	}
	n, err := lang.NewSwitch(s.Posn.Offset, selector, values, bodies, deflt)
	if err != nil {
		return nil, b.errorf(s.Posn, "%v", err)
	}
	return n, nil
}

// expr binds an expression. wantLValue is set where the surrounding syntax
// writes to the result.
func (b *binder) expr(expr Expr, wantLValue bool) (lang.Node, error) {
	switch x := expr.(type) {
	case *NumberExpr:
		return lang.NewConstant(x.Posn.Offset, x.Value), nil
	case *IdentifierExpr:
		return b.identifier(x, wantLValue)
	case *UnaryExpr:
		operand, err := b.expr(x.X, x.Op.Assigns())
		if err != nil {
			return nil, err
		}
		n, err := lang.NewUnary(x.Posn.Offset, x.Op, operand)
		if err != nil {
			return nil, b.errorf(x.Posn, "%v", err)
		}
		return n, nil
	case *BinaryExpr:
		lhs, err := b.expr(x.Lhs, x.Op.Assigns())
		if err != nil {
			return nil, err
		}
		rhs, err := b.expr(x.Rhs, false)
		if err != nil {
			return nil, err
		}
		n, err := lang.NewBinary(x.Posn.Offset, x.Op, lhs, rhs)
		if err != nil {
			return nil, b.errorf(x.Posn, "%v", err)
		}
		return n, nil
	case *TernaryExpr:
		cond, err := b.expr(x.Cond, false)
		if err != nil {
			return nil, err
		}
		then, err := b.expr(x.Then, false)
		if err != nil {
			return nil, err
		}
		els, err := b.expr(x.Else, false)
		if err != nil {
			return nil, err
		}
		return lang.NewConditional(x.Posn.Offset, cond, then, els), nil
	case *CallExpr:
		return b.call(x)
	default:
		return nil, fmt.Errorf("unsupported expression %T", expr)
	}
}

func (b *binder) identifier(x *IdentifierExpr, wantLValue bool) (lang.Node, error) {
	idx, ok := b.slots.Lookup(x.Name)
	if !ok {
		if !wantLValue {
			return nil, b.errorf(x.Posn, "variable '%s' not found", x.Name)
		}
		idx = b.slots.Define(x.Name)
	}
	if b.slots.Kind(idx) == lang.SlotConstant {
		if wantLValue {
			return nil, b.errorf(x.Posn, "'%s' is not a variable", x.Name)
		}
		v, _ := b.slots.Get(x.Name)
		return lang.NewConstant(x.Posn.Offset, v), nil
	}
	return lang.NewVariable(x.Posn.Offset, idx, x.Name), nil
}

func (b *binder) call(x *CallExpr) (lang.Node, error) {
	args := make([]lang.Node, len(x.Args))
	for i, arg := range x.Args {
		ref := x.Func.ParamKind(i, len(x.Args)) == lang.ParamRef
		n, err := b.expr(arg, ref)
		if err != nil {
			return nil, err
		}
		args[i] = n
	}
	n, err := lang.NewCall(x.Posn.Offset, x.Func, args)
	if err != nil {
		return nil, b.errorf(x.Posn, "%v", err)
	}
	return n, nil
}
