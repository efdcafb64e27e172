package executor

import (
	"context"

	"github.com/wkalt/treeq/value"
)

/*
offsetIter implements the usual offset operator: it discards the first items
of its child.
*/

////////////////////////////////////////////////////////////////////////////////

type offsetIter struct {
	child  Iter
	offset int64
}

func newOffsetIter(offset int64, child Iter) *offsetIter {
	return &offsetIter{offset: offset, child: child}
}

func (it *offsetIter) Next(ctx context.Context) (value.Item, error) {
	for it.offset > 0 {
		if err := checkStop(ctx); err != nil {
			return nil, err
		}
		if _, err := it.child.Next(ctx); err != nil {
			return nil, err
		}
		it.offset--
	}
	return it.child.Next(ctx)
}
