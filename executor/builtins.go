package executor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wkalt/treeq/index"
	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

/*
Builtin functions are called through the Call expression. Each builtin
declares its arity bounds, the flags it adds to its arguments' flags, its
static result type and its evaluation. Builtins may also rewrite the call
during optimization; the range lookup functions become RangeAccess nodes
when their bounds are constant.
*/

////////////////////////////////////////////////////////////////////////////////

// builtin describes a builtin function. Calls of ndt functions are never
// pre-evaluated; calls of external functions read data sources and are not
// evaluated at compile time either.
type builtin struct {
	name     string
	minArgs  int
	maxArgs  int
	ndt      bool
	external bool
	seqType  func(args []Expr) value.SeqType
	optimize func(ctx context.Context, cc *CompileContext, c *Call) (Expr, error)
	iter     func(ctx context.Context, qc *QueryContext, c *Call) (Iter, error)
}

var builtins = map[string]*builtin{} // nolint:gochecknoglobals

func register(b *builtin) {
	builtins[b.name] = b
}

// Builtins returns the names of the builtin functions in sorted order.
func Builtins() []string {
	return util.Okeys(builtins)
}

// Call is a call of a builtin function.
type Call struct {
	node
	fn   *builtin
	args []Expr
}

// NewCall returns a call of the named builtin.
func NewCall(pos Pos, name string, args ...Expr) (*Call, error) {
	fn, ok := builtins[name]
	if !ok {
		return nil, withPos(pos, UndefinedError{Kind: "function", Name: name + "#" + fmt.Sprint(len(args))})
	}
	if len(args) < fn.minArgs || len(args) > fn.maxArgs {
		expected := fmt.Sprintf("%d to %d arguments", fn.minArgs, fn.maxArgs)
		if fn.minArgs == fn.maxArgs {
			expected = pluralize(fn.minArgs, "argument")
		}
		return nil, withPos(pos, newArityError(name, expected, len(args)))
	}
	return &Call{node: node{pos: pos}, fn: fn, args: args}, nil
}

// Name returns the function name.
func (c *Call) Name() string {
	return c.fn.name
}

// Args returns the arguments.
func (c *Call) Args() []Expr {
	return c.args
}

func (c *Call) Compile(ctx context.Context, cc *CompileContext) (Expr, error) {
	if err := compileAll(ctx, cc, c.args); err != nil {
		return nil, err
	}
	return c.Optimize(ctx, cc)
}

func (c *Call) Optimize(ctx context.Context, cc *CompileContext) (Expr, error) {
	if c.fn.optimize != nil {
		e, err := c.fn.optimize(ctx, cc, c)
		if err != nil || e != c {
			return e, err
		}
	}
	if allConst(c.args) && !c.fn.external && !c.Has(FlagNDT) {
		return cc.PreEval(ctx, c)
	}
	return c, nil
}

func (c *Call) Iter(ctx context.Context, qc *QueryContext) (Iter, error) {
	it, err := c.fn.iter(ctx, qc, c)
	if err != nil {
		return nil, withPos(c.pos, err)
	}
	return it, nil
}

func (c *Call) Copy(cc *CompileContext, vm VarMap) Expr {
	return &Call{node: c.node, fn: c.fn, args: copyAll(cc, vm, c.args)}
}

func (c *Call) SeqType() value.SeqType {
	return c.fn.seqType(c.args)
}

func (c *Call) Has(flag Flag) bool {
	if flag == FlagNDT && c.fn.ndt {
		return true
	}
	return hasAny(c.args, flag)
}

func (c *Call) Count(v *Var) VarUsage {
	return countAll(c.args, v)
}

func (c *Call) Inline(ctx context.Context, cc *CompileContext, v *Var, e Expr) (Expr, error) {
	changed, err := inlineAll(ctx, cc, c.args, v, e)
	if err != nil || !changed {
		return nil, err
	}
	return c.Optimize(ctx, cc)
}

func (c *Call) Size() int {
	return 1 + sizeAll(c.args)
}

// Vacuous reports whether the call never returns normally, as for error().
func (c *Call) Vacuous() bool {
	return c.fn.name == "error"
}

// DocOrdered reports whether the call produces nodes in document order.
func (c *Call) DocOrdered() bool {
	return c.fn.name == "db:open"
}

func (c *Call) String() string {
	return c.fn.name + "(" + joinExprs(c.args, ", ") + ")"
}

func fixed(st value.SeqType) func([]Expr) value.SeqType {
	return func([]Expr) value.SeqType {
		return st
	}
}

func constant(item value.Item) func(context.Context, *QueryContext, *Call) (Iter, error) {
	return func(context.Context, *QueryContext, *Call) (Iter, error) {
		return itemIter(item), nil
	}
}

// argItem evaluates an argument that must produce at most one atomic item.
func argItem(ctx context.Context, qc *QueryContext, c *Call, i int) (value.Item, error) {
	item, err := EvalItem(ctx, qc, c.args[i])
	if err != nil || item == nil {
		return nil, err
	}
	return value.Atomize(item)
}

func argInt(ctx context.Context, qc *QueryContext, c *Call, i int) (int64, error) {
	item, err := argItem(ctx, qc, c, i)
	if err != nil {
		return 0, err
	}
	seq, err := value.Promote(value.Seq{item}, value.NewSeqType(value.TypeInteger, value.ExactlyOne))
	if err != nil {
		return 0, err
	}
	return int64(seq[0].(value.Int)), nil
}

func argString(ctx context.Context, qc *QueryContext, c *Call, i int) (string, error) {
	item, err := argItem(ctx, qc, c, i)
	if err != nil || item == nil {
		return "", err
	}
	switch v := item.(type) {
	case value.Str:
		return string(v), nil
	case value.Untyped:
		return string(v), nil
	}
	return "", value.NewTypeError("string expected, found %s", item)
}

func argDouble(ctx context.Context, qc *QueryContext, c *Call, i int) (float64, error) {
	item, err := argItem(ctx, qc, c, i)
	if err != nil {
		return 0, err
	}
	seq, err := value.Promote(value.Seq{item}, value.NewSeqType(value.TypeDouble, value.ExactlyOne))
	if err != nil {
		return 0, err
	}
	return float64(seq[0].(value.Dbl)), nil
}

func init() {
	register(&builtin{
		name: "true", seqType: fixed(value.BooleanOne), iter: constant(value.Bool(true)),
	})
	register(&builtin{
		name: "false", seqType: fixed(value.BooleanOne), iter: constant(value.Bool(false)),
	})
	register(&builtin{
		name: "count", minArgs: 1, maxArgs: 1,
		seqType: fixed(value.NewSeqType(value.TypeInteger, value.ExactlyOne)),
		iter: func(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
			seq, err := Eval(ctx, qc, c.args[0])
			if err != nil {
				return nil, err
			}
			return itemIter(value.Int(len(seq))), nil
		},
	})
	register(&builtin{
		name: "empty", minArgs: 1, maxArgs: 1, seqType: fixed(value.BooleanOne),
		iter: func(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
			ok, err := exists(ctx, qc, c.args[0])
			return itemIter(value.Bool(!ok)), err
		},
	})
	register(&builtin{
		name: "exists", minArgs: 1, maxArgs: 1, seqType: fixed(value.BooleanOne),
		iter: func(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
			ok, err := exists(ctx, qc, c.args[0])
			return itemIter(value.Bool(ok)), err
		},
	})
	register(&builtin{
		name: "not", minArgs: 1, maxArgs: 1, seqType: fixed(value.BooleanOne),
		iter: func(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
			seq, err := Eval(ctx, qc, c.args[0])
			if err != nil {
				return nil, err
			}
			ebv, err := value.EffectiveBoolean(seq)
			if err != nil {
				return nil, err
			}
			return itemIter(value.Bool(!ebv)), nil
		},
	})
	register(&builtin{
		name: "index-of", minArgs: 2, maxArgs: 3,
		seqType: func(args []Expr) value.SeqType {
			occ := value.ZeroOrMore
			if args[0].SeqType().ZeroOrOne() {
				occ = value.ZeroOrOne
			}
			return value.NewSeqType(value.TypeInteger, occ)
		},
		optimize: func(ctx context.Context, cc *CompileContext, c *Call) (Expr, error) {
			if c.args[0].SeqType().Zero() && !c.args[0].Has(FlagNDT) && !c.args[0].Has(FlagUPD) {
				cc.Info(ctx, "remove index-of on empty input", "call", c.String())
				return Empty(c.pos), nil
			}
			return c, nil
		},
		iter: indexOf,
	})
	register(&builtin{
		name: "error", maxArgs: 3, ndt: true, seqType: fixed(value.EmptySeq),
		iter: raise,
	})
	register(&builtin{
		name: "subsequence", minArgs: 2, maxArgs: 3,
		seqType: func(args []Expr) value.SeqType {
			st := args[0].SeqType()
			return st.WithOcc(value.Occ{Min: 0, Max: st.Occ.Max})
		},
		iter: subsequence,
	})
	for _, kind := range []index.Kind{index.Text, index.Attribute} {
		register(&builtin{
			name: "db:" + kind.String() + "-range", minArgs: 3, maxArgs: 3,
			seqType:  fixed(value.NewSeqType(kindType(kind), value.ZeroOrMore)),
			external: true,
			optimize: rangeRewrite(kind),
			iter:     rangeLookup(kind),
		})
	}
	register(&builtin{
		name: "db:open", minArgs: 1, maxArgs: 1,
		seqType:  fixed(value.NodeZM),
		external: true,
		iter:     openSource,
	})
	register(&builtin{
		name: "xs:dateTime", minArgs: 1, maxArgs: 1,
		seqType: fixed(value.NewSeqType(value.TypeDateTime, value.ZeroOrOne)),
		iter: func(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
			item, err := argItem(ctx, qc, c, 0)
			if err != nil || item == nil {
				return itemIter(nil), err
			}
			if s, ok := item.(value.Str); ok {
				item = value.Untyped(s)
			}
			dt, err := value.Cast(item, value.TypeDateTime)
			if err != nil {
				return nil, err
			}
			return itemIter(dt), nil
		},
	})
	register(&builtin{
		name: "random", ndt: true,
		seqType: fixed(value.NewSeqType(value.TypeDouble, value.ExactlyOne)),
		iter: func(_ context.Context, qc *QueryContext, _ *Call) (Iter, error) {
			return itemIter(value.Dbl(qc.rand.Float64())), nil
		},
	})
}

func exists(ctx context.Context, qc *QueryContext, e Expr) (bool, error) {
	it, err := e.Iter(ctx, qc)
	if err != nil {
		return false, err
	}
	_, err = it.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// indexOf returns the positions of the items equal to the search item.
func indexOf(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
	search, err := argItem(ctx, qc, c, 1)
	if err != nil {
		return nil, err
	}
	if search == nil {
		return nil, value.NewTypeError("index-of: search item expected, found ()")
	}
	var coll *value.Collation
	if len(c.args) == 3 {
		uri, err := argString(ctx, qc, c, 2)
		if err != nil {
			return nil, err
		}
		if coll, err = value.NewCollation(uri); err != nil {
			return nil, err
		}
	}
	input, err := c.args[0].Iter(ctx, qc)
	if err != nil {
		return nil, err
	}
	pos := int64(0)
	return newFilterIter(func(item value.Item) (value.Item, error) {
		pos++
		atom, err := value.Atomize(item)
		if err != nil {
			return nil, err
		}
		if !value.Comparable(atom.Type(), search.Type()) {
			return nil, nil
		}
		equal, err := value.Compare(value.OpEq, atom, search, coll)
		if err != nil || !equal {
			return nil, err
		}
		return value.Int(pos), nil
	}, input), nil
}

// raise implements error($code, $message, $value).
func raise(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
	ue := UserError{Code: "FOER0000", Message: "error raised"}
	if len(c.args) > 0 {
		code, err := argString(ctx, qc, c, 0)
		if err != nil {
			return nil, err
		}
		if code != "" {
			ue.Code = code
		}
	}
	if len(c.args) > 1 {
		msg, err := argString(ctx, qc, c, 1)
		if err != nil {
			return nil, err
		}
		ue.Message = msg
	}
	if len(c.args) > 2 {
		seq, err := Eval(ctx, qc, c.args[2])
		if err != nil {
			return nil, err
		}
		ue.Value = seq
	}
	return nil, ue
}

// subsequence implements subsequence($seq, $from, $len). Positions are
// one-based; a start below one or a negative length is out of bounds.
func subsequence(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
	from, err := argInt(ctx, qc, c, 1)
	if err != nil {
		return nil, err
	}
	if from < 1 {
		return nil, newBoundsError("subsequence", "start", from)
	}
	input, err := c.args[0].Iter(ctx, qc)
	if err != nil {
		return nil, err
	}
	var it Iter = newOffsetIter(from-1, input)
	if len(c.args) == 3 {
		length, err := argInt(ctx, qc, c, 2)
		if err != nil {
			return nil, err
		}
		if length < 0 {
			return nil, newBoundsError("subsequence", "length", length)
		}
		it = newLimitIter(length, it)
	}
	return it, nil
}

// rangeRewrite turns a range lookup with constant bounds into a RangeAccess.
func rangeRewrite(kind index.Kind) func(context.Context, *CompileContext, *Call) (Expr, error) {
	return func(ctx context.Context, cc *CompileContext, c *Call) (Expr, error) {
		lo, ok1 := constDouble(c.args[1])
		hi, ok2 := constDouble(c.args[2])
		if !ok1 || !ok2 {
			return c, nil
		}
		token, err := index.NewRangeToken(kind, lo, hi)
		if err != nil {
			return nil, withPos(c.pos, err)
		}
		cc.Info(ctx, "use range index", "call", c.String(), "token", token.String())
		return NewRangeAccess(c.pos, token, c.args[0]), nil
	}
}

func constDouble(e Expr) (float64, bool) {
	k, ok := e.(*Const)
	if !ok || len(k.seq) != 1 {
		return 0, false
	}
	seq, err := value.Promote(k.seq, value.NewSeqType(value.TypeDouble, value.ExactlyOne))
	if err != nil {
		return 0, false
	}
	return float64(seq[0].(value.Dbl)), true
}

// rangeLookup evaluates a range lookup whose bounds are only known at runtime.
func rangeLookup(kind index.Kind) func(context.Context, *QueryContext, *Call) (Iter, error) {
	return func(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
		lo, err := argDouble(ctx, qc, c, 1)
		if err != nil {
			return nil, err
		}
		hi, err := argDouble(ctx, qc, c, 2)
		if err != nil {
			return nil, err
		}
		token, err := index.NewRangeToken(kind, lo, hi)
		if err != nil {
			return nil, err
		}
		return NewRangeAccess(c.pos, token, c.args[0]).Iter(ctx, qc)
	}
}

// openSource returns all nodes of a data source in document order.
func openSource(ctx context.Context, qc *QueryContext, c *Call) (Iter, error) {
	ds, err := resolveSource(ctx, qc, c.args[0])
	if err != nil {
		return nil, err
	}
	return &sourceIter{source: ds}, nil
}

type sourceIter struct {
	source DataSource
	pre    int
}

func (it *sourceIter) Next(ctx context.Context) (value.Item, error) {
	if err := checkStop(ctx); err != nil {
		return nil, err
	}
	if it.pre >= it.source.Size() {
		return nil, io.EOF
	}
	n, err := it.source.NodeAt(it.pre)
	if err != nil {
		return nil, fmt.Errorf("failed to read node %d of %s: %w", it.pre, it.source.Name(), err)
	}
	it.pre++
	return n, nil
}
