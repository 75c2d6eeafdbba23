// Package expression compiles and evaluates shape expressions.
//
// An Expression owns its slot table: free variables keep their values across
// evaluations and can be read back afterwards. An Expression must not be
// evaluated from two goroutines at once; use Clone to give each goroutine its
// own copy.
package expression

import (
	"context"
	"io"
	"time"

	"github.com/EngineHub/WorldEdit-sub015/lang"
	"github.com/EngineHub/WorldEdit-sub015/parser"
)

// DefaultTimeout is the evaluation budget used by Evaluate.
const DefaultTimeout = 50 * time.Millisecond

// Options tune compilation and evaluation.
type Options struct {
	// Timeout is the budget used by Evaluate; zero or negative disables it.
	Timeout time.Duration
	// LoopLimit caps the iterations of each loop execution; zero disables it.
	LoopLimit int
	// Optimize folds constant sub-expressions after binding.
	Optimize bool
	// Environment answers block queries; it may be nil.
	Environment lang.Environment
}

// DefaultOptions returns the options used by Compile.
func DefaultOptions() Options {
	return Options{
		Timeout:   DefaultTimeout,
		LoopLimit: lang.DefaultLoopIterations,
		Optimize:  true,
	}
}

// Expression is a compiled expression together with its variables.
type Expression struct {
	src    string
	params []string
	root   lang.Node
	state  *lang.State
	opts   Options
}

// Compile compiles src with the default options. params name the values
// passed positionally to Evaluate.
func Compile(src string, params ...string) (*Expression, error) {
	return CompileWith(src, DefaultOptions(), params...)
}

// CompileWith compiles src with explicit options.
func CompileWith(src string, opts Options, params ...string) (*Expression, error) {
	slots, err := lang.NewSlots(params...)
	if err != nil {
		return nil, err
	}
	root, err := parser.Compile(src, slots, opts.Optimize)
	if err != nil {
		return nil, err
	}
	return &Expression{
		src:    src,
		params: append([]string(nil), params...),
		root:   root,
		state:  lang.NewState(slots),
		opts:   opts,
	}, nil
}

// CompileReader reads the whole of r and compiles it with the default
// options.
func CompileReader(r io.Reader, params ...string) (*Expression, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Compile(string(data), params...)
}

// Evaluate runs the expression with the configured environment and timeout.
func (e *Expression) Evaluate(values ...float64) (float64, error) {
	return e.run(context.Background(), values, e.opts.Environment, e.opts.Timeout)
}

// EvaluateTimeout runs the expression against env with an explicit budget.
func (e *Expression) EvaluateTimeout(values []float64, env lang.Environment, timeout time.Duration) (float64, error) {
	return e.run(context.Background(), values, env, timeout)
}

// EvaluateContext runs the expression until it finishes or ctx is done. No
// timeout applies besides the context deadline.
func (e *Expression) EvaluateContext(ctx context.Context, values []float64, env lang.Environment) (float64, error) {
	return e.run(ctx, values, env, 0)
}

// EvaluateWithin applies both ctx and a budget to one evaluation.
func (e *Expression) EvaluateWithin(ctx context.Context, values []float64, env lang.Environment, timeout time.Duration) (float64, error) {
	return e.run(ctx, values, env, timeout)
}

func (e *Expression) run(ctx context.Context, values []float64, env lang.Environment, timeout time.Duration) (float64, error) {
	if err := e.state.Slots.Bind(values); err != nil {
		return 0, err
	}
	return lang.Run(ctx, e.root, e.state, env, lang.Limits{
		Timeout:           timeout,
		MaxLoopIterations: e.opts.LoopLimit,
	})
}

// Variable returns the current value of a parameter or free variable.
func (e *Expression) Variable(name string) (float64, error) {
	return e.state.Slots.Get(name)
}

// SetVariable stores a value into a parameter or free variable.
func (e *Expression) SetVariable(name string, v float64) error {
	return e.state.Slots.Set(name, v)
}

// Names lists the parameters followed by the free variables.
func (e *Expression) Names() []string { return e.state.Slots.Names() }

// Source returns the compiled text.
func (e *Expression) Source() string { return e.src }

// Params returns the parameter names.
func (e *Expression) Params() []string { return append([]string(nil), e.params...) }

// Root returns the compiled tree.
func (e *Expression) Root() lang.Node { return e.root }

// Environment returns the environment used by Evaluate.
func (e *Expression) Environment() lang.Environment { return e.opts.Environment }

// SetEnvironment replaces the environment used by Evaluate.
func (e *Expression) SetEnvironment(env lang.Environment) { e.opts.Environment = env }

// Megabuf returns the expression-local buffer.
func (e *Expression) Megabuf() *lang.Megabuf { return e.state.Megabuf() }

// Reset zeroes every variable and clears the local buffer.
func (e *Expression) Reset() {
	e.state.Slots.Reset()
	e.state.Megabuf().Reset()
}

// Clone returns a copy sharing the compiled tree but with its own variables
// and buffer.
func (e *Expression) Clone() *Expression {
	c := *e
	c.state = e.state.Clone()
	return &c
}
