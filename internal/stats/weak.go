package stats

import (
	"sort"
	"unicode"

	"github.com/verte-zerg/tuicw/internal/model"
)

// SelectWeakChars selects the lowest-accuracy characters from aggregates.
// Characters never missed are not weak, however few times they were sent.
func SelectWeakChars(aggs []model.CharAggregate, top int) map[rune]struct{} {
	weakSet := map[rune]struct{}{}
	candidates := make([]model.CharAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.Incorrect+agg.Pending > 0 {
			candidates = append(candidates, agg)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		ai, aj := Accuracy(candidates[i]), Accuracy(candidates[j])
		if ai == aj {
			return candidates[i].Char < candidates[j].Char
		}
		return ai < aj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for _, c := range candidates[:top] {
		runes := []rune(c.Char)
		if len(runes) > 0 {
			weakSet[unicode.ToUpper(runes[0])] = struct{}{}
		}
	}
	return weakSet
}
