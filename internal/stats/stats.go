// Package stats keeps the rolling practice statistics and renders reports.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/tuicw/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SpaceLabel is shown in place of the group separator.
const SpaceLabel = "⎵"

// CharsPerMinute returns the copy rate of a session.
func CharsPerMinute(chars, elapsedSeconds int64) float64 {
	if elapsedSeconds <= 0 {
		return 0
	}
	return float64(chars) / (float64(elapsedSeconds) / 60.0)
}

// Accuracy returns the share of judged sent characters copied correctly.
// Characters left pending count as misses.
func Accuracy(agg model.CharAggregate) float64 {
	total := agg.Correct + agg.Incorrect + agg.Pending
	if total == 0 {
		return 1.0
	}
	return float64(agg.Correct) / float64(total)
}

// AvgDelayMs returns the mean time from a character being played to it
// being typed.
func AvgDelayMs(agg model.CharAggregate) float64 {
	if agg.DelayCount == 0 {
		return 0
	}
	return float64(agg.DelaySumMs) / float64(agg.DelayCount)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := minMax(values)
	if math.Abs(hi-lo) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		idx := int(math.Round((v - lo) / (hi - lo) * float64(len(sparkChars)-1)))
		b.WriteByte(sparkChars[max(0, min(len(sparkChars)-1, idx))])
	}
	return b.String()
}

// FormatElapsed renders seconds as h:mm:ss, or m:ss under an hour.
func FormatElapsed(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, seconds/60%60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// CharLabel makes a sent or typed character printable.
func CharLabel(ch string) string {
	if ch == " " {
		return SpaceLabel
	}
	return strings.ToUpper(ch)
}

// RenderBuckets prints the rolling statistics as a table.
func RenderBuckets(w io.Writer, s model.Stats) error {
	headers := []string{"", "Session", "Best session", "Today", "Best day", "Total"}
	row := func(name string, b model.StatBucket, format func(int64) string) []string {
		return []string{name, format(b.LastSession), format(b.BestSession), format(b.CurrentDay), format(b.BestDay), format(b.Total)}
	}
	count := func(v int64) string { return fmt.Sprintf("%d", v) }
	rows := [][]string{
		row("Time", s.Elapsed, FormatElapsed),
		row("Characters", s.CopiedCharacters, count),
		row("Groups", s.CopiedGroups, count),
		row("Score", s.Score, count),
	}
	if _, err := fmt.Fprintln(w, "Statistics"); err != nil {
		return err
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderSummary prints a summary of the listed sessions.
func RenderSummary(w io.Writer, sessions []model.SessionSummary) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalRate float64
	var bestScore, elapsed int64
	reasons := map[model.EndReason]int{}
	rates := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		rate := CharsPerMinute(s.CopiedCharacters, s.Elapsed)
		rates = append(rates, rate)
		totalRate += rate
		elapsed += s.Elapsed
		if s.Score > bestScore {
			bestScore = s.Score
		}
		reasons[s.EndReason]++
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Practice time: %s", FormatElapsed(elapsed)),
		fmt.Sprintf("Avg chars/min: %.2f", totalRate/float64(len(sessions))),
		fmt.Sprintf("Best score: %d", bestScore),
		fmt.Sprintf("Endings: %d mistake, %d too slow, %d stopped",
			reasons[model.EndMistake], reasons[model.EndTimeout], reasons[model.EndStopped]+reasons[model.EndLostFocus]),
		fmt.Sprintf("Trend: [%s]", Sparkline(rates)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderHistory prints the most recent sessions, newest first.
func RenderHistory(w io.Writer, sessions []model.SessionSummary, limit int) error {
	if len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	headers := []string{"Finished", "Time", "Chars", "Score", "Ending", "Copied"}
	var rows [][]string
	for i := len(sessions) - 1; i >= 0; i-- {
		if limit > 0 && len(rows) >= limit {
			break
		}
		s := sessions[i]
		rows = append(rows, []string{
			s.FinishedAt.Format("2006-01-02 15:04"),
			FormatElapsed(s.Elapsed),
			fmt.Sprintf("%d", s.CopiedCharacters),
			fmt.Sprintf("%d", s.Score),
			EndingLabel(s),
			truncate(s.CopiedText, 24),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// EndingLabel describes how a session ended, showing a mistake as
// "typed→expected".
func EndingLabel(s model.SessionSummary) string {
	if s.Mistake != nil {
		return CharLabel(s.Mistake.Mistaken) + "→" + CharLabel(s.Mistake.Expected)
	}
	switch s.EndReason {
	case model.EndTimeout:
		return "too slow"
	case model.EndLostFocus:
		return "lost focus"
	case model.EndStopped:
		return "stopped"
	default:
		return string(s.EndReason)
	}
}

// RenderCurvesWithSize prints learning curves sized to a given total width.
func RenderCurvesWithSize(w io.Writer, sessions []model.SessionSummary, window, totalWidth, height int, useColor bool) error {
	if len(sessions) == 0 {
		return nil
	}
	rates := make([]float64, len(sessions))
	scores := make([]float64, len(sessions))
	for i, s := range sessions {
		rates[i] = CharsPerMinute(s.CopiedCharacters, s.Elapsed)
		scores[i] = float64(s.Score)
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotSeriesWithColor(w, "Learning Curves", []Series{
		{Name: "Chars/min", Values: MovingAverage(rates, window)},
		{Name: "Score", Values: MovingAverage(scores, window)},
	}, width, height, useColor)
}

// RenderCharTable prints per-character aggregates, weakest first.
func RenderCharTable(w io.Writer, aggs []model.CharAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No character stats found.")
		return err
	}
	sorted := make([]model.CharAggregate, len(aggs))
	copy(sorted, aggs)
	sort.Slice(sorted, func(i, j int) bool {
		ai, aj := Accuracy(sorted[i]), Accuracy(sorted[j])
		if ai == aj {
			return sorted[i].Char < sorted[j].Char
		}
		return ai < aj
	})

	if _, err := fmt.Fprintln(w, "Per-Character (Windowed)"); err != nil {
		return err
	}
	headers := []string{"Char", "Accuracy", "Avg Delay (ms)", "Correct", "Incorrect", "Missed"}
	rows := make([][]string, 0, len(sorted))
	for _, agg := range sorted {
		rows = append(rows, []string{
			CharLabel(agg.Char),
			fmt.Sprintf("%.2f%%", Accuracy(agg)*100),
			fmt.Sprintf("%.1f", AvgDelayMs(agg)),
			fmt.Sprintf("%d", agg.Correct),
			fmt.Sprintf("%d", agg.Incorrect),
			fmt.Sprintf("%d", agg.Pending),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderCharCurvesWithSize prints per-character learning curves.
func RenderCharCurvesWithSize(w io.Writer, sessions []model.SessionSummary, perSession map[string]map[string]model.CharAggregate, chars []string, window, totalWidth, height int, useColor bool) error {
	if len(chars) == 0 || len(sessions) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Per-Character Curves"); err != nil {
		return err
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	for _, ch := range chars {
		accSeries := make([]float64, len(sessions))
		delaySeries := make([]float64, len(sessions))
		for i, s := range sessions {
			agg, ok := perSession[s.ID][strings.ToUpper(ch)]
			if !ok {
				continue
			}
			accSeries[i] = Accuracy(agg) * 100
			delaySeries[i] = AvgDelayMs(agg)
		}
		if err := PlotSeriesWithColor(w, "Char "+CharLabel(ch), []Series{
			{Name: "Accuracy", Values: MovingAverage(accSeries, window)},
			{Name: "Delay", Values: MovingAverage(delaySeries, window)},
		}, width, height, useColor); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
