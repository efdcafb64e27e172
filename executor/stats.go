package executor

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/wkalt/treeq/util"
	"github.com/wkalt/treeq/value"
)

/*
statsIter wraps an iterator and records the number of items it produced and
the elapsed time to its first and last item. The figures are written to a
child of the execution context when the wrapped iterator is exhausted.
*/

////////////////////////////////////////////////////////////////////////////////

type statsIter struct {
	itemsOut int

	startTime          time.Time
	elapsedToFirstItem time.Duration
	elapsedToLastItem  time.Duration

	initialized bool
	recorded    bool

	child Iter
	label string
}

// NewStatsIter returns an iterator that records statistics about child under
// label in the execution context.
func NewStatsIter(child Iter, label string) Iter {
	return &statsIter{
		child: child,
		label: label,
	}
}

func (it *statsIter) Next(ctx context.Context) (value.Item, error) {
	if !it.initialized {
		it.startTimer()
		it.initialized = true
	}
	item, err := it.child.Next(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			it.recordLastItem(ctx)
		}
		return nil, err
	}
	if it.itemsOut == 0 {
		it.recordFirstItem()
	}
	it.itemsOut++
	return item, nil
}

func (it *statsIter) startTimer() {
	it.startTime = time.Now()
}

func (it *statsIter) recordFirstItem() {
	it.elapsedToFirstItem = time.Since(it.startTime)
}

func (it *statsIter) recordLastItem(ctx context.Context) {
	if it.recorded {
		return
	}
	it.recorded = true
	it.elapsedToLastItem = time.Since(it.startTime)
	ctx, _ = util.WithChildContext(ctx, it.label)
	util.SetContextValue(ctx, "items_out", float64(it.itemsOut))
	util.SetContextValue(ctx, "elapsed_to_first_item", float64(it.elapsedToFirstItem.Milliseconds()))
	util.SetContextValue(ctx, "elapsed_to_last_item", float64(it.elapsedToLastItem.Milliseconds()))
}
