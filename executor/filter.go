package executor

import (
	"context"

	"github.com/wkalt/treeq/value"
)

/*
filterIter maps the items of its child through a function that either keeps
an item, replaces it or drops it by returning nil.
*/

////////////////////////////////////////////////////////////////////////////////

type filterIter struct {
	child  Iter
	filter func(value.Item) (value.Item, error)
}

func newFilterIter(filter func(value.Item) (value.Item, error), child Iter) *filterIter {
	return &filterIter{child: child, filter: filter}
}

func (it *filterIter) Next(ctx context.Context) (value.Item, error) {
	for {
		if err := checkStop(ctx); err != nil {
			return nil, err
		}
		item, err := it.child.Next(ctx)
		if err != nil {
			return nil, err
		}
		out, err := it.filter(item)
		if err != nil {
			return nil, err
		}
		if out != nil {
			return out, nil
		}
	}
}
