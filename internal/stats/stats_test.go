package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tuicw/internal/model"
)

func TestCharsPerMinute(t *testing.T) {
	if got := CharsPerMinute(30, 60); got != 30 {
		t.Fatalf("expected 30 chars/min, got %v", got)
	}
	if got := CharsPerMinute(30, 0); got != 0 {
		t.Fatalf("expected 0 for empty session, got %v", got)
	}
}

func TestRenderSummaryShowsTrend(t *testing.T) {
	var buf bytes.Buffer
	sessions := []model.SessionSummary{
		{CopiedCharacters: 10, Elapsed: 60, Score: 4, EndReason: model.EndMistake},
		{CopiedCharacters: 40, Elapsed: 60, Score: 9, EndReason: model.EndTimeout},
	}
	if err := RenderSummary(&buf, sessions); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Best score: 9") || !strings.Contains(out, "Trend: [ @]") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if !strings.Contains(out, "1 mistake, 1 too slow") {
		t.Fatalf("unexpected endings:\n%s", out)
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := map[int64]string{0: "0:00", 65: "1:05", 3725: "1:02:05", -3: "0:00"}
	for in, want := range cases {
		if got := FormatElapsed(in); got != want {
			t.Fatalf("FormatElapsed(%d)=%q, want %q", in, got, want)
		}
	}
}

func TestEndingLabel(t *testing.T) {
	mistake := model.SessionSummary{Mistake: &model.Mistake{Expected: " ", Mistaken: "e"}, EndReason: model.EndMistake}
	if got := EndingLabel(mistake); got != "E→⎵" {
		t.Fatalf("unexpected mistake label %q", got)
	}
	if got := EndingLabel(model.SessionSummary{EndReason: model.EndTimeout}); got != "too slow" {
		t.Fatalf("unexpected timeout label %q", got)
	}
}

func TestRenderBuckets(t *testing.T) {
	var buf bytes.Buffer
	err := RenderBuckets(&buf, model.Stats{
		Elapsed: model.StatBucket{LastSession: 75, Total: 3600},
		Score:   model.StatBucket{LastSession: 12, BestSession: 40, CurrentDay: 30, BestDay: 90, Total: 500},
	})
	if err != nil {
		t.Fatalf("render buckets: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Best session", "1:15", "1:00:00", "500"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderHistoryNewestFirst(t *testing.T) {
	base := time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)
	sessions := []model.SessionSummary{
		{ID: "a", FinishedAt: base, CopiedText: "KMKM", EndReason: model.EndStopped},
		{ID: "b", FinishedAt: base.Add(time.Hour), CopiedText: "MKMK", EndReason: model.EndTimeout},
	}
	var buf bytes.Buffer
	if err := RenderHistory(&buf, sessions, 1); err != nil {
		t.Fatalf("render history: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "10:00") || strings.Contains(out, "09:00") {
		t.Fatalf("expected only the newest session:\n%s", out)
	}
}

func TestRenderCharTableWeakestFirst(t *testing.T) {
	var buf bytes.Buffer
	err := RenderCharTable(&buf, []model.CharAggregate{
		{Char: "K", Correct: 10, DelaySumMs: 5000, DelayCount: 10},
		{Char: "M", Correct: 1, Incorrect: 1, Pending: 2},
	})
	if err != nil {
		t.Fatalf("render char table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[2], "M") || !strings.Contains(lines[3], "500.0") {
		t.Fatalf("unexpected rows:\n%s", buf.String())
	}
}
