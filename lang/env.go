package lang

import (
	"fmt"
	"math"
)

// SlotKind distinguishes parameters, free variables and built-in constants.
type SlotKind uint8

const (
	SlotParam SlotKind = iota
	SlotVariable
	SlotConstant
)

func (k SlotKind) String() string {
	switch k {
	case SlotParam:
		return "parameter"
	case SlotVariable:
		return "variable"
	case SlotConstant:
		return "constant"
	default:
		return fmt.Sprintf("SlotKind(%d)", int(k))
	}
}

var builtinConstants = []struct {
	name  string
	value float64
}{
	{"e", math.E},
	{"pi", math.Pi},
	{"true", 1},
	{"false", 0},
}

// Slots is the variable table of one compiled expression. Parameters occupy
// the first indices in declaration order, followed by the built-in constants
// and then free variables in order of first assignment.
type Slots struct {
	index  map[string]int
	names  []string
	kinds  []SlotKind
	values []float64
	params int
}

// NewSlots creates a table holding the given parameters and the built-in
// constants. A parameter may shadow a constant name.
func NewSlots(params ...string) (*Slots, error) {
	s := &Slots{
		index: make(map[string]int, len(params)+len(builtinConstants)),
	}
	for _, name := range params {
		if _, dup := s.index[name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", name)
		}
		s.add(name, SlotParam, 0)
	}
	s.params = len(params)
	for _, c := range builtinConstants {
		if _, shadowed := s.index[c.name]; shadowed {
			continue
		}
		s.add(c.name, SlotConstant, c.value)
	}
	return s, nil
}

func (s *Slots) add(name string, kind SlotKind, value float64) int {
	idx := len(s.names)
	s.index[name] = idx
	s.names = append(s.names, name)
	s.kinds = append(s.kinds, kind)
	s.values = append(s.values, value)
	return idx
}

// Lookup returns the slot index bound to name.
func (s *Slots) Lookup(name string) (int, bool) {
	idx, ok := s.index[name]
	return idx, ok
}

// Define returns the slot for name, creating a free variable when absent.
func (s *Slots) Define(name string) int {
	if idx, ok := s.index[name]; ok {
		return idx
	}
	return s.add(name, SlotVariable, 0)
}

// Len returns the number of slots.
func (s *Slots) Len() int { return len(s.names) }

// Params returns the number of parameter slots.
func (s *Slots) Params() int { return s.params }

// Name returns the name of slot idx.
func (s *Slots) Name(idx int) string { return s.names[idx] }

// Kind returns the kind of slot idx.
func (s *Slots) Kind(idx int) SlotKind { return s.kinds[idx] }

// Names lists parameters and free variables in slot order.
func (s *Slots) Names() []string {
	out := make([]string, 0, len(s.names))
	for i, name := range s.names {
		if s.kinds[i] != SlotConstant {
			out = append(out, name)
		}
	}
	return out
}

// Get reads a named slot.
func (s *Slots) Get(name string) (float64, error) {
	idx, ok := s.index[name]
	if !ok {
		return 0, fmt.Errorf("unbound variable: %s", name)
	}
	return s.values[idx], nil
}

// Set writes a named parameter or variable.
func (s *Slots) Set(name string, v float64) error {
	idx, ok := s.index[name]
	if !ok {
		return fmt.Errorf("unbound variable: %s", name)
	}
	if s.kinds[idx] == SlotConstant {
		return fmt.Errorf("cannot assign to constant %s", name)
	}
	s.values[idx] = v
	return nil
}

// Bind stores positional parameter values.
func (s *Slots) Bind(values []float64) error {
	if len(values) != s.params {
		return fmt.Errorf("expected %d parameter values, got %d", s.params, len(values))
	}
	copy(s.values, values)
	return nil
}

// Reset zeroes every parameter and free variable.
func (s *Slots) Reset() {
	for i := range s.values {
		if s.kinds[i] != SlotConstant {
			s.values[i] = 0
		}
	}
}

// Clone copies the table. The copy shares no storage with s.
func (s *Slots) Clone() *Slots {
	c := &Slots{
		index:  make(map[string]int, len(s.index)),
		names:  append([]string(nil), s.names...),
		kinds:  append([]SlotKind(nil), s.kinds...),
		values: append([]float64(nil), s.values...),
		params: s.params,
	}
	for name, idx := range s.index {
		c.index[name] = idx
	}
	return c
}
