package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/wkalt/treeq/executor"
	"github.com/wkalt/treeq/plan"
	"github.com/wkalt/treeq/ql"
	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/util/log"
	"github.com/wkalt/treeq/value"
)

/*
The engine ties the query pipeline together: a query is parsed, planned into
an expression tree, compiled with a fresh compile context and evaluated
against a query context carrying the external variables, the context item
and the data-source resolver.

Every query gets an id that tags its log records. If the caller attaches an
exec context with util.WithContext, compile and evaluate statistics are
recorded under it as "compile" and "evaluate" children.
*/

////////////////////////////////////////////////////////////////////////////////

// Engine compiles and evaluates queries.
type Engine struct {
	opts   Options
	coll   *value.Collation
	parser *participle.Parser[ql.Query]
}

// New returns a new engine.
func New(opts ...Option) (*Engine, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	coll, err := value.NewCollation(options.Collation)
	if err != nil {
		return nil, err
	}
	return &Engine{opts: options, coll: coll, parser: ql.NewParser()}, nil
}

// Query is a compiled query.
type Query struct {
	ID   string
	Text string

	expr        executor.Expr
	bindings    map[*executor.Var]value.Seq
	diagnostics []string
}

// Expr returns the compiled expression.
func (q *Query) Expr() executor.Expr {
	return q.expr
}

// Diagnostics returns the rewrites applied during compilation.
func (q *Query) Diagnostics() []string {
	return q.diagnostics
}

// Explain renders the compiled expression followed by the compile
// diagnostics.
func (q *Query) Explain() string {
	sb := &strings.Builder{}
	fmt.Fprintf(sb, "%s\n", q.expr)
	fmt.Fprintf(sb, "type: %s\n", q.expr.SeqType())
	for _, d := range q.diagnostics {
		fmt.Fprintf(sb, "-- %s\n", d)
	}
	return sb.String()
}

// Compile parses, plans and compiles a query.
func (e *Engine) Compile(ctx context.Context, text string) (*Query, error) {
	ctx, id := log.WithQueryID(ctx)
	ctx, _ = util.WithChildContext(ctx, "compile")
	start := time.Now()
	ast, err := e.parser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse query: %w", err)
	}
	cc := executor.NewCompileContext(
		executor.WithInlineLimit(e.opts.InlineLimit),
		executor.WithMaxInlineCaptures(e.opts.MaxInlineCaptures),
	)
	planner := plan.New(cc, plan.WithCollation(e.coll))
	bindings := make(map[*executor.Var]value.Seq, len(e.opts.Variables))
	for _, name := range util.Okeys(e.opts.Variables) {
		bindings[planner.Declare(name, nil)] = e.opts.Variables[name]
	}
	expr, err := planner.Plan(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to plan query: %w", err)
	}
	compiled, err := expr.Compile(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to compile query: %w", err)
	}
	util.SetContextValue(ctx, "expr_size", float64(compiled.Size()))
	log.Debugw(ctx, "compiled query",
		"size", compiled.Size(),
		"rewrites", len(cc.Diagnostics()),
		"elapsed", time.Since(start),
	)
	return &Query{
		ID:          id,
		Text:        text,
		expr:        compiled,
		bindings:    bindings,
		diagnostics: cc.Diagnostics(),
	}, nil
}

func (e *Engine) queryContext(q *Query) *executor.QueryContext {
	opts := []executor.QueryOption{}
	if e.opts.Resolver != nil {
		opts = append(opts, executor.WithResolver(e.opts.Resolver))
	}
	if e.opts.ContextItem != nil {
		opts = append(opts, executor.WithContextItem(e.opts.ContextItem))
	}
	if e.opts.Seed != nil {
		opts = append(opts, executor.WithSeed(*e.opts.Seed))
	}
	qc := executor.NewQueryContext(opts...)
	for v, seq := range q.bindings {
		qc.Bind(v, seq)
	}
	return qc
}

// Stream evaluates a compiled query, calling f for each item of the result.
// It returns the number of items produced.
func (e *Engine) Stream(ctx context.Context, q *Query, f func(value.Item) error) (int, error) {
	ctx = log.AddTags(ctx, "query", q.ID)
	ctx, _ = util.WithChildContext(ctx, "evaluate")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	start := time.Now()
	it, err := q.expr.Iter(ctx, e.queryContext(q))
	if err != nil {
		return 0, err
	}
	it = executor.NewStatsIter(it, "result")
	count := 0
	for {
		item, err := it.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return count, err
		}
		if err := f(item); err != nil {
			return count, err
		}
		count++
	}
	log.Debugw(ctx, "evaluated query", "items", count, "elapsed", time.Since(start))
	return count, nil
}

// Eval compiles and evaluates a query.
func (e *Engine) Eval(ctx context.Context, text string) (value.Seq, error) {
	q, err := e.Compile(ctx, text)
	if err != nil {
		return nil, err
	}
	seq := value.Seq{}
	if _, err := e.Stream(ctx, q, func(item value.Item) error {
		seq = append(seq, item)
		return nil
	}); err != nil {
		return nil, err
	}
	return seq, nil
}

// Run compiles and evaluates a query, writing one serialized item per line.
func (e *Engine) Run(ctx context.Context, w io.Writer, text string) (int, error) {
	q, err := e.Compile(ctx, text)
	if err != nil {
		return 0, err
	}
	return e.Stream(ctx, q, func(item value.Item) error {
		if _, err := fmt.Fprintln(w, item.String()); err != nil {
			return fmt.Errorf("failed to write item: %w", err)
		}
		return nil
	})
}

// Explain compiles a query and renders the result.
func (e *Engine) Explain(ctx context.Context, text string) (string, error) {
	q, err := e.Compile(ctx, text)
	if err != nil {
		return "", err
	}
	return q.Explain(), nil
}
