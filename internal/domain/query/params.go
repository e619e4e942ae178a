package query

import (
	"sort"
	"strings"
)

// ParamType is the declared value type of an accepted parameter.
type ParamType string

// Supported parameter types.
const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
	TypeBool   ParamType = "bool"
	TypeAny    ParamType = "any"
)

// Param describes one parameter the retrieval collaborator accepts.
type Param struct {
	Name string    `json:"name" yaml:"name"`
	Type ParamType `json:"type" yaml:"type"`
}

// ParameterSet is the capability descriptor of a retrieval collaborator:
// the parameter names it currently accepts, in declaration order.
type ParameterSet struct {
	params []Param
	index  map[string]struct{}
}

// NewParameterSet builds a set from params. Empty names are skipped, duplicates keep the first entry.
func NewParameterSet(params ...Param) ParameterSet {
	s := ParameterSet{index: make(map[string]struct{}, len(params))}
	for _, p := range params {
		if p.Name == "" {
			continue
		}
		if _, dup := s.index[p.Name]; dup {
			continue
		}
		if p.Type == "" {
			p.Type = TypeAny
		}
		s.index[p.Name] = struct{}{}
		s.params = append(s.params, p)
	}
	return s
}

// DefaultParameterSet is the descriptor of the reference retrieval collaborator.
func DefaultParameterSet() ParameterSet {
	return NewParameterSet(
		Param{Name: FieldQuestion, Type: TypeString},
		Param{Name: FieldBookID, Type: TypeString},
		Param{Name: FieldK, Type: TypeInt},
		Param{Name: FieldTargetChars, Type: TypeInt},
		Param{Name: FieldDryRun, Type: TypeBool},
	)
}

// Has reports whether name is accepted.
func (s ParameterSet) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of accepted parameters.
func (s ParameterSet) Len() int { return len(s.params) }

// Params returns a copy of the declared parameters in declaration order.
func (s ParameterSet) Params() []Param {
	out := make([]Param, len(s.params))
	copy(out, s.params)
	return out
}

// Names returns the accepted names sorted.
func (s ParameterSet) Names() []string {
	out := make([]string, 0, len(s.params))
	for _, p := range s.params {
		out = append(out, p.Name)
	}
	sort.Strings(out)
	return out
}

// Signature renders the descriptor as "(question: string, k: int)".
func (s ParameterSet) Signature() string {
	parts := make([]string, len(s.params))
	for i, p := range s.params {
		parts[i] = p.Name + ": " + string(p.Type)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
