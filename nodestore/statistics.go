package nodestore

import (
	"fmt"
	"math"

	"github.com/wkalt/treeq/index"
)

/*
Statistics summarize the numeric text and attribute values of a document.
Range lookups consult them to skip documents whose values cannot fall in the
requested range.

We are limited to "associative" statistics, meaning statistics that we can
compute from the old statistic + new data, so the summaries of several
documents merge with Add.
*/

////////////////////////////////////////////////////////////////////////////////

// NumericalSummary is a statistical summary of the values of one kind.
type NumericalSummary struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Sum   float64 `json:"sum"`
}

// Statistics holds one summary per index kind.
type Statistics struct {
	NumStats  map[index.Kind]*NumericalSummary `json:"numeric"`
	Documents int                              `json:"documents"`
}

// NewStatistics returns statistics for a single, empty document.
func NewStatistics() *Statistics {
	return &Statistics{
		NumStats:  make(map[index.Kind]*NumericalSummary),
		Documents: 1,
	}
}

func (s *Statistics) observeNumeric(kind index.Kind, v float64) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	summary, ok := s.NumStats[kind]
	if !ok {
		s.NumStats[kind] = &NumericalSummary{Count: 1, Min: v, Max: v, Mean: v, Sum: v}
		return
	}
	summary.Count++
	summary.Min = min(summary.Min, v)
	summary.Max = max(summary.Max, v)
	summary.Sum += v
	summary.Mean = summary.Sum / float64(summary.Count)
}

// Add adds the statistics from another Statistics object to this one.
func (s *Statistics) Add(other *Statistics) {
	if other == nil {
		return
	}
	s.Documents += other.Documents
	for kind, o := range other.NumStats {
		summary, ok := s.NumStats[kind]
		if !ok {
			cp := *o
			s.NumStats[kind] = &cp
			continue
		}
		summary.Count += o.Count
		summary.Min = min(summary.Min, o.Min)
		summary.Max = max(summary.Max, o.Max)
		summary.Sum += o.Sum
		summary.Mean = summary.Sum / float64(summary.Count)
	}
}

// String returns a string representation of the statistics.
func (s *Statistics) String() string {
	text, attr := s.NumStats[index.Text], s.NumStats[index.Attribute]
	return fmt.Sprintf("(documents=%d text=%s attribute=%s)", s.Documents, text, attr)
}

func (n *NumericalSummary) String() string {
	if n == nil {
		return "none"
	}
	return fmt.Sprintf("[count=%d min=%g max=%g mean=%g]", n.Count, n.Min, n.Max, n.Mean)
}
