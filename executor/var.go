package executor

import "github.com/wkalt/treeq/value"

/*
Variables are addressed by a numeric identity that is unique within a
compilation. Copying an expression allocates fresh variables and records the
mapping from old to new identities in a VarMap, which is threaded through the
whole copy so that a copy never aliases a variable of the original tree.

Each variable lives in a VarScope, which assigns it a slot in the evaluation
frame of that scope.
*/

////////////////////////////////////////////////////////////////////////////////

// Var is a variable.
type Var struct {
	ID       int
	Name     string
	Declared *value.SeqType
	Slot     int

	refined value.SeqType
	ordered bool
}

func newVar(id int, name string, declared *value.SeqType) *Var {
	refined := value.ItemZM
	if declared != nil {
		refined = *declared
	}
	return &Var{ID: id, Name: name, Declared: declared, refined: refined}
}

// SeqType returns the static type of the variable.
func (v *Var) SeqType() value.SeqType {
	return v.refined
}

// Refine narrows the static type of the variable with the type of its bound
// expression. A refinement never widens the type.
func (v *Var) Refine(st value.SeqType) {
	v.refined = v.refined.Narrow(st)
}

func (v *Var) String() string {
	return "$" + v.Name
}

// VarMap maps old variable identities to their copies.
type VarMap map[int]*Var

func (vm VarMap) lookup(v *Var) *Var {
	if nv, ok := vm[v.ID]; ok {
		return nv
	}
	return v
}

// VarScope owns the variables of a function body or the main module.
type VarScope struct {
	vars []*Var
}

// NewVarScope returns an empty scope.
func NewVarScope() *VarScope {
	return &VarScope{}
}

func (s *VarScope) add(v *Var) {
	v.Slot = len(s.vars)
	s.vars = append(s.vars, v)
}

// StackSize returns the frame size required to evaluate the scope.
func (s *VarScope) StackSize() int {
	return len(s.vars)
}

// Vars returns the variables of the scope in slot order.
func (s *VarScope) Vars() []*Var {
	return s.vars
}
