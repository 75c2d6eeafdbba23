package expression

import (
	"context"

	"github.com/EngineHub/WorldEdit-sub015/lang"
	"github.com/EngineHub/WorldEdit-sub015/parser"
)

// Session compiles and runs successive inputs against one variable table,
// so that a variable assigned by one input can be read by the next.
type Session struct {
	opts  Options
	state *lang.State
}

// NewSession returns a session with no variables.
func NewSession(opts Options) *Session {
	s := &Session{opts: opts}
	s.Reset()
	return s
}

// Reset drops every variable and clears the local buffer.
func (s *Session) Reset() {
	slots, _ := lang.NewSlots()
	s.state = lang.NewState(slots)
}

// Compile binds src against the session variables. Assignments in src
// define new variables even when binding fails later on.
func (s *Session) Compile(src string) (lang.Node, error) {
	return parser.Compile(src, s.state.Slots, s.opts.Optimize)
}

// Eval compiles and runs src with the session limits and environment.
func (s *Session) Eval(ctx context.Context, src string) (float64, error) {
	root, err := s.Compile(src)
	if err != nil {
		return 0, err
	}
	return lang.Run(ctx, root, s.state, s.opts.Environment, lang.Limits{
		Timeout:           s.opts.Timeout,
		MaxLoopIterations: s.opts.LoopLimit,
	})
}

// Names lists the session variables in order of definition.
func (s *Session) Names() []string { return s.state.Slots.Names() }

// Variable returns the value of a session variable.
func (s *Session) Variable(name string) (float64, error) {
	return s.state.Slots.Get(name)
}

// SetVariable stores v, defining name when it does not exist yet.
func (s *Session) SetVariable(name string, v float64) error {
	s.state.Slots.Define(name)
	return s.state.Slots.Set(name, v)
}
