package executor

import (
	"github.com/wkalt/treeq/index"
)

/*
Data sources may keep summary statistics of the values they index. A stat
filter uses them to skip the index entirely when a range lookup cannot match:
the source has no values of the token's kind, or their range does not overlap
the token's bounds. Sources without statistics always pass.
*/

////////////////////////////////////////////////////////////////////////////////

// Statistics summarize the indexed values of one kind.
type Statistics struct {
	Count int
	Min   float64
	Max   float64
}

// StatsSource is implemented by data sources that keep statistics.
type StatsSource interface {
	Stats(kind index.Kind) (Statistics, bool)
}

type statfilterfn func(DataSource) bool

func newStatFilter(token index.RangeToken) statfilterfn {
	return func(ds DataSource) bool {
		ss, ok := ds.(StatsSource)
		if !ok {
			return true
		}
		stats, ok := ss.Stats(token.Kind)
		if !ok {
			return true
		}
		if stats.Count == 0 {
			return false
		}
		return stats.Max >= token.Min && stats.Min <= token.Max
	}
}
