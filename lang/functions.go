package lang

import (
	"fmt"
	"sort"
)

// ParamKind says whether a parameter takes a value or an assignable node.
type ParamKind uint8

const (
	ParamValue ParamKind = iota
	ParamRef
)

// Function is one overload of a built-in function. Eval receives the
// unevaluated argument nodes and evaluates them left to right.
type Function struct {
	Name   string
	Params []ParamKind
	// Variadic repeats the last parameter kind for any further arguments.
	Variadic bool
	// Volatile functions are never folded at compile time.
	Volatile bool
	Eval     func(ev *Evaluator, args []Node) (float64, error)
	// Set makes calls to the function assignable.
	Set func(ev *Evaluator, args []Node, v float64) (float64, error)
}

func (f *Function) accepts(n int) bool {
	if f.Variadic {
		return n >= len(f.Params)
	}
	return n == len(f.Params)
}

func (f *Function) paramKinds(n int) []ParamKind {
	if n <= len(f.Params) {
		return f.Params[:n]
	}
	kinds := make([]ParamKind, n)
	copy(kinds, f.Params)
	for i := len(f.Params); i < n; i++ {
		kinds[i] = f.Params[len(f.Params)-1]
	}
	return kinds
}

func (f *Function) refs() int {
	count := 0
	for _, kind := range f.Params {
		if kind == ParamRef {
			count++
		}
	}
	return count
}

// ParamKind returns the kind of argument i of an n-argument call.
func (f *Function) ParamKind(i, n int) ParamKind {
	return f.paramKinds(n)[i]
}

// CallError explains why no overload accepts a call. Arg is the index of the
// offending argument, or -1 when the call itself is at fault.
type CallError struct {
	Name string
	Arg  int
	Msg  string
}

func (e *CallError) Error() string { return e.Msg }

var functions = map[string][]*Function{}

func register(fn *Function) {
	overloads := append(functions[fn.Name], fn)
	sort.SliceStable(overloads, func(i, j int) bool {
		return overloads[i].refs() > overloads[j].refs()
	})
	functions[fn.Name] = overloads
}

// LookupFunction resolves an overload by arity and argument assignability.
// Overloads taking assignable parameters are preferred.
func LookupFunction(name string, argc int, assignable func(i int) bool) (*Function, error) {
	overloads, ok := functions[name]
	if !ok {
		return nil, &CallError{Name: name, Arg: -1, Msg: fmt.Sprintf("function '%s' not found", name)}
	}
	var refMismatch *CallError
	for _, fn := range overloads {
		if !fn.accepts(argc) {
			continue
		}
		bad := -1
		for i, kind := range fn.paramKinds(argc) {
			if kind == ParamRef && !assignable(i) {
				bad = i
				break
			}
		}
		if bad < 0 {
			return fn, nil
		}
		if refMismatch == nil {
			refMismatch = &CallError{
				Name: name,
				Arg:  bad,
				Msg:  fmt.Sprintf("argument %d of '%s' must be assignable", bad+1, name),
			}
		}
	}
	if refMismatch != nil {
		return nil, refMismatch
	}
	return nil, &CallError{
		Name: name,
		Arg:  -1,
		Msg:  fmt.Sprintf("function '%s' does not take %d arguments", name, argc),
	}
}

// IsFunction reports whether name is a built-in function.
func IsFunction(name string) bool {
	_, ok := functions[name]
	return ok
}

// FunctionNames lists the built-in function names in order.
func FunctionNames() []string {
	names := make([]string, 0, len(functions))
	for name := range functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
