package executor

import (
	"context"
	"io"

	"github.com/wkalt/treeq/value"
)

/*
limitIter implements the usual limit operator. Once the limit is reached the
child is not pulled again.
*/

////////////////////////////////////////////////////////////////////////////////

type limitIter struct {
	limit int64
	child Iter
}

func newLimitIter(limit int64, child Iter) *limitIter {
	return &limitIter{limit: limit, child: child}
}

func (it *limitIter) Next(ctx context.Context) (value.Item, error) {
	if it.limit <= 0 {
		return nil, io.EOF
	}
	it.limit--
	return it.child.Next(ctx)
}
