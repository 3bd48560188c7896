package stats

import (
	"sort"

	"github.com/verte-zerg/tuicw/internal/model"
)

// TopCharsByFrequency returns the top N characters by how often they were sent.
func TopCharsByFrequency(aggs []model.CharAggregate, n int) []string {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	sorted := make([]model.CharAggregate, len(aggs))
	copy(sorted, aggs)
	total := func(a model.CharAggregate) int { return a.Correct + a.Incorrect + a.Pending }
	sort.Slice(sorted, func(i, j int) bool {
		ti, tj := total(sorted[i]), total(sorted[j])
		if ti == tj {
			return sorted[i].Char < sorted[j].Char
		}
		return ti > tj
	})
	n = min(n, len(sorted))
	out := make([]string, 0, n)
	for _, agg := range sorted[:n] {
		out = append(out, agg.Char)
	}
	return out
}
