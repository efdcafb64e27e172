package executor

import (
	"context"
	"fmt"

	"github.com/wkalt/treeq/value"
)

// ArithOp is an arithmetic operator.
type ArithOp int

const (
	OpAdd ArithOp = iota
	OpSub
	OpMul
)

func (op ArithOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	default:
		return "*"
	}
}

// Arith is a binary arithmetic expression. The empty sequence propagates.
type Arith struct {
	node
	op       ArithOp
	operands []Expr
}

// NewArith returns an arithmetic expression.
func NewArith(pos Pos, op ArithOp, a, b Expr) *Arith {
	return &Arith{node: node{pos: pos}, op: op, operands: []Expr{a, b}}
}

func (a *Arith) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	if err := compileAll(ctx, cc, a.operands); err != nil {
		return nil, err
	}
	return a.Optimize(ctx, cc)
}

func (a *Arith) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	if allConst(a.operands) {
		return cc.PreEval(ctx, a)
	}
	for _, e := range a.operands {
		if e.SeqType().Zero() {
			return Empty(a.pos), nil
		}
	}
	return a, nil
}

func (a *Arith) Item(ctx context.Context, qc *QueryContext) (value.Item, error) {
	var nums [2]value.Item
	for i, e := range a.operands {
		item, err := EvalItem(ctx, qc, e)
		if err != nil || item == nil {
			return nil, err
		}
		atom, err := value.Atomize(item)
		if err != nil {
			return nil, withPos(a.pos, err)
		}
		if atom.Type() == value.TypeUntyped {
			if atom, err = value.Cast(atom, value.TypeDouble); err != nil {
				return nil, withPos(a.pos, err)
			}
		}
		if !atom.Type().InstanceOf(value.TypeNumeric) {
			return nil, typeErrorf(a.pos, "%s is not numeric in %s", item, a)
		}
		nums[i] = atom
	}
	if x, ok := nums[0].(value.Int); ok {
		if y, ok := nums[1].(value.Int); ok {
			switch a.op {
			case OpAdd:
				return x + y, nil
			case OpSub:
				return x - y, nil
			default:
				return x * y, nil
			}
		}
	}
	x, y := toDouble(nums[0]), toDouble(nums[1])
	switch a.op {
	case OpAdd:
		return x + y, nil
	case OpSub:
		return x - y, nil
	default:
		return x * y, nil
	}
}

func toDouble(it value.Item) value.Dbl {
	if i, ok := it.(value.Int); ok {
		return value.Dbl(i)
	}
	return it.(value.Dbl)
}

func (a *Arith) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	return iterOf(ctx, qc, a)
}

func (a *Arith) Copy(cc *CompileContext, vm VarMap) Expr {
	return &Arith{node: a.node, op: a.op, operands: copyAll(cc, vm, a.operands)}
}

func (a *Arith) SeqType() value.SeqType {
	t := value.TypeDouble
	occ := value.ExactlyOne
	x, y := a.operands[0].SeqType(), a.operands[1].SeqType()
	if x.Type == value.TypeInteger && y.Type == value.TypeInteger {
		t = value.TypeInteger
	} else if !x.Type.InstanceOf(value.TypeDouble) && !y.Type.InstanceOf(value.TypeDouble) {
		t = value.TypeNumeric
	}
	if !x.One() || !y.One() {
		occ = value.ZeroOrOne
	}
	return value.NewSeqType(t, occ)
}

func (a *Arith) Has(flag Flag) bool {
	return hasAny(a.operands, flag)
}

func (a *Arith) Count(v *Var) VarUsage {
	return countAll(a.operands, v)
}

func (a *Arith) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	changed, err := inlineAll(ctx, cc, a.operands, v, e)
	if err != nil || !changed {
		return nil, err
	}
	return a.Optimize(ctx, cc)
}

func (a *Arith) Size() int {
	return 1 + sizeAll(a.operands)
}

func (a *Arith) String() string {
	return fmt.Sprintf("%s %s %s", a.operands[0], a.op, a.operands[1])
}
