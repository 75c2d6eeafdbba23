package lang

import (
	"context"
	"time"

	perlin "github.com/aquilax/go-perlin"
)

// DefaultLoopIterations caps the iterations of a single loop execution.
const DefaultLoopIterations = 256

// pollInterval is the number of loop iterations between clock checks.
const pollInterval = 1024

// Limits bounds one evaluation.
type Limits struct {
	// Timeout is the wall-clock budget; zero or negative disables it.
	Timeout time.Duration
	// MaxLoopIterations caps each loop execution; zero disables it.
	MaxLoopIterations int
}

// DefaultLimits returns the loop cap and no timeout.
func DefaultLimits() Limits {
	return Limits{MaxLoopIterations: DefaultLoopIterations}
}

// State is the mutable storage behind one compiled expression: its slot
// values, its megabuf and cached noise generators. A State must not be used
// by two evaluations at once.
type State struct {
	Slots *Slots

	buf   Megabuf
	noise map[noiseKey]*perlin.Perlin
	ev    Evaluator
}

// NewState wraps a slot table.
func NewState(slots *Slots) *State {
	return &State{Slots: slots}
}

// Megabuf returns the expression-local buffer.
func (st *State) Megabuf() *Megabuf { return &st.buf }

// Clone returns an independent copy of st.
func (st *State) Clone() *State {
	return &State{
		Slots: st.Slots.Clone(),
		buf:   st.buf.clone(),
	}
}

// Evaluator carries the per-call context of a running evaluation.
type Evaluator struct {
	st       *State
	values   []float64
	env      Environment
	ctx      context.Context
	lim      Limits
	deadline time.Time
	ticks    uint32
}

// Run evaluates root against st. A break or continue reaching the top is an
// EvalError; a return ends the evaluation with its value.
func Run(ctx context.Context, root Node, st *State, env Environment, lim Limits) (float64, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ev := &st.ev
	*ev = Evaluator{
		st:     st,
		values: st.Slots.values,
		env:    env,
		ctx:    ctx,
		lim:    lim,
	}
	if lim.Timeout > 0 {
		ev.deadline = time.Now().Add(lim.Timeout)
	}
	defer func() { *ev = Evaluator{} }()

	if err := ev.poll(root.Pos()); err != nil {
		return 0, err
	}
	r, err := root.eval(ev)
	if err != nil {
		return 0, err
	}
	switch r.flow {
	case flowBreak:
		return 0, evalErrorf(r.at, "break outside of a loop or switch")
	case flowContinue:
		return 0, evalErrorf(r.at, "continue outside of a loop")
	}
	return r.val, nil
}

// Environment returns the environment of the running evaluation.
func (ev *Evaluator) Environment() Environment { return ev.env }

func (ev *Evaluator) num(n Node) (float64, error) {
	r, err := n.eval(ev)
	if err != nil {
		return 0, err
	}
	if r.flow != flowNext {
		return 0, evalErrorf(r.at, "%v is not allowed in an expression", r.flow)
	}
	return r.val, nil
}

// iterate is called before each loop iteration. It enforces the per-loop
// cap and checks the budget every pollInterval iterations.
func (ev *Evaluator) iterate(pos int, iterations *int) error {
	*iterations++
	if limit := ev.lim.MaxLoopIterations; limit > 0 && *iterations > limit {
		return evalErrorf(pos, "loop exceeded %d iterations", limit)
	}
	ev.ticks++
	if ev.ticks%pollInterval != 0 {
		return nil
	}
	return ev.poll(pos)
}

// tick counts one step of work done inside a function call. A timeout it
// reports takes the position of the call.
func (ev *Evaluator) tick() error {
	ev.ticks++
	if ev.ticks%pollInterval != 0 {
		return nil
	}
	return ev.poll(-1)
}

func (ev *Evaluator) poll(pos int) error {
	select {
	case <-ev.ctx.Done():
		return &TimeoutError{Pos: pos, Limit: ev.lim.Timeout, Err: ev.ctx.Err()}
	default:
	}
	if !ev.deadline.IsZero() && !time.Now().Before(ev.deadline) {
		return &TimeoutError{Pos: pos, Limit: ev.lim.Timeout}
	}
	return nil
}

// scratch returns an evaluator for folding constant calls at compile time.
func scratch() *Evaluator {
	st := NewState(&Slots{index: map[string]int{}})
	return &Evaluator{
		st:  st,
		ctx: context.Background(),
	}
}
