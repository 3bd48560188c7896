package stats

import (
	"testing"

	"github.com/verte-zerg/tuicw/internal/model"
)

func TestTopCharsByFrequency(t *testing.T) {
	aggs := []model.CharAggregate{
		{Char: "B", Correct: 3, Incorrect: 1},
		{Char: "A", Correct: 2, Incorrect: 1, Pending: 1},
		{Char: "C", Correct: 1},
	}
	top := TopCharsByFrequency(aggs, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 chars, got %d", len(top))
	}
	if top[0] != "A" || top[1] != "B" {
		t.Fatalf("unexpected order: %v", top)
	}
}

func TestSelectWeakChars(t *testing.T) {
	aggs := []model.CharAggregate{
		{Char: "K", Correct: 9, Incorrect: 1},
		{Char: "m", Correct: 1, Pending: 3},
		{Char: "R", Correct: 5, Incorrect: 5},
		{Char: "S", Correct: 40},
	}
	weak := SelectWeakChars(aggs, 2)
	if len(weak) != 2 {
		t.Fatalf("expected 2 weak chars, got %v", weak)
	}
	if _, ok := weak['M']; !ok {
		t.Fatalf("expected M to be weak: %v", weak)
	}
	if _, ok := weak['R']; !ok {
		t.Fatalf("expected R to be weak: %v", weak)
	}

	all := SelectWeakChars(aggs, 0)
	if _, ok := all['S']; ok {
		t.Fatalf("never-missed char selected: %v", all)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 weak chars, got %v", all)
	}
}
