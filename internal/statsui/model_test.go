package statsui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuicw/internal/model"
)

type fakeSource struct {
	stats    model.Stats
	sessions []model.SessionSummary
	aggs     []model.CharAggregate
	err      error
	lastCfg  model.StatsConfig
	charReqs [][]string
}

func (f *fakeSource) LoadStats(context.Context) (model.Stats, error) {
	return f.stats, f.err
}

func (f *fakeSource) ListSessions(_ context.Context, cfg model.StatsConfig) ([]model.SessionSummary, error) {
	f.lastCfg = cfg
	return f.sessions, f.err
}

func (f *fakeSource) ListCharAggregatesForSessions(context.Context, []string) ([]model.CharAggregate, error) {
	return f.aggs, f.err
}

func (f *fakeSource) ListCharStatsForSessions(_ context.Context, ids []string, chars []string) (map[string]map[string]model.CharAggregate, error) {
	f.charReqs = append(f.charReqs, chars)
	out := map[string]map[string]model.CharAggregate{}
	for _, id := range ids {
		out[id] = map[string]model.CharAggregate{}
		for _, agg := range f.aggs {
			out[id][agg.Char] = agg
		}
	}
	return out, f.err
}

func sampleSource() *fakeSource {
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)
	return &fakeSource{
		stats: model.Stats{Score: model.StatBucket{LastSession: 12, Total: 40}},
		sessions: []model.SessionSummary{
			{ID: "a", FinishedAt: base, Elapsed: 60, CopiedCharacters: 30, Score: 12, EndReason: model.EndTimeout},
			{ID: "b", FinishedAt: base.Add(time.Hour), Elapsed: 120, CopiedCharacters: 90, Score: 28,
				EndReason: model.EndMistake, Mistake: &model.Mistake{Expected: "M", Mistaken: "k"}},
		},
		aggs: []model.CharAggregate{
			{Char: "K", Correct: 40, Incorrect: 2},
			{Char: "M", Correct: 10, Incorrect: 5, Pending: 1},
		},
	}
}

func sized(m *Model) *Model {
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

func TestOverviewShowsCardsAndBuckets(t *testing.T) {
	m := sized(NewModel(sampleSource(), model.StatsConfig{CurveWindow: 5}))
	view := m.View()
	for _, want := range []string{"Overview", "Sessions", "Best Score", "28", "Statistics"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in overview:\n%s", want, view)
		}
	}
}

func TestHistoryTabListsEndings(t *testing.T) {
	m := sized(NewModel(sampleSource(), model.StatsConfig{CurveWindow: 5}))
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabHistory {
		t.Fatalf("expected history tab, got %d", m.activeTab)
	}
	view := m.View()
	if !strings.Contains(view, "K→M") || !strings.Contains(view, "too slow") {
		t.Fatalf("expected session endings in history:\n%s", view)
	}
}

func TestCharSelectionDefaultsToMostFrequent(t *testing.T) {
	src := sampleSource()
	m := NewModel(src, model.StatsConfig{CurveWindow: 5})
	if got := strings.Join(m.charSelection, ""); got != "KM" {
		t.Fatalf("expected KM selection, got %q", got)
	}
	custom := NewModel(src, model.StatsConfig{CurveWindow: 5, Chars: "m, r"})
	if got := strings.Join(custom.charSelection, ""); got != "MR" {
		t.Fatalf("expected MR selection, got %q", got)
	}
	if len(src.charReqs) == 0 {
		t.Fatalf("expected per-session char stats to be loaded")
	}
}

func TestFilterAppliesAndValidates(t *testing.T) {
	src := sampleSource()
	m := sized(NewModel(src, model.StatsConfig{CurveWindow: 5}))

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if !m.filterMode {
		t.Fatalf("expected filter mode")
	}
	m.filterInputs[1].SetValue("x")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterError == "" {
		t.Fatalf("expected validation error for last")
	}

	m.filterInputs[0].SetValue("2026-10-01")
	m.filterInputs[1].SetValue("10")
	m.filterInputs[2].SetValue("3")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.filterMode {
		t.Fatalf("expected filter applied, error %q", m.filterError)
	}
	if src.lastCfg.Last != 10 || src.lastCfg.CurveWindow != 3 || src.lastCfg.Since == nil {
		t.Fatalf("unexpected applied config %+v", src.lastCfg)
	}
}

func TestLoadFailureShowsError(t *testing.T) {
	src := sampleSource()
	src.err = errors.New("disk gone")
	m := sized(NewModel(src, model.StatsConfig{CurveWindow: 5}))
	if !strings.Contains(m.View(), "disk gone") {
		t.Fatalf("expected error in footer")
	}
}

func TestCurveWindowSteps(t *testing.T) {
	cases := []struct{ in, next, prev int }{
		{1, 5, 1},
		{5, 10, 1},
		{7, 10, 5},
		{10, 15, 5},
	}
	for _, c := range cases {
		if got := nextCurveWindow(c.in); got != c.next {
			t.Fatalf("next(%d) = %d, want %d", c.in, got, c.next)
		}
		if got := prevCurveWindow(c.in); got != c.prev {
			t.Fatalf("prev(%d) = %d, want %d", c.in, got, c.prev)
		}
	}
}
