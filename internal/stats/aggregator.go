package stats

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/verte-zerg/tuicw/internal/model"
)

// Saver persists the rolling buckets.
type Saver interface {
	SaveStats(ctx context.Context, stats model.Stats) error
}

// Increase adds amount to every horizon of b and raises the bests.
func Increase(b *model.StatBucket, amount int64) {
	b.Total += amount
	b.LastSession += amount
	b.CurrentDay += amount
	if b.LastSession > b.BestSession {
		b.BestSession = b.LastSession
	}
	if b.CurrentDay > b.BestDay {
		b.BestDay = b.CurrentDay
	}
}

// Aggregator owns the rolling statistics. It is not safe for concurrent use;
// the session controller calls it from its event loop.
type Aggregator struct {
	stats  model.Stats
	saver  Saver
	logger zerolog.Logger
}

// NewAggregator starts from previously stored stats. saver may be nil.
func NewAggregator(initial model.Stats, saver Saver, logger zerolog.Logger) *Aggregator {
	return &Aggregator{stats: initial, saver: saver, logger: logger}
}

// Snapshot returns a copy of the current stats.
func (a *Aggregator) Snapshot() model.Stats {
	return a.stats
}

// BeginSession zeroes the per-session horizon of every bucket.
func (a *Aggregator) BeginSession() {
	for _, b := range a.buckets() {
		b.LastSession = 0
	}
}

// RecordCopied accounts for one correctly copied character.
func (a *Aggregator) RecordCopied(char string, start, now time.Time) {
	a.creditElapsed(start, now)
	Increase(&a.stats.CopiedCharacters, 1)
	if char == " " {
		Increase(&a.stats.CopiedGroups, 1)
	}
	Increase(&a.stats.Score, a.stats.CopiedGroups.LastSession+1)
	a.Refresh(now, true)
}

// AdvanceElapsed credits the time spent in the session since the last
// update, so elapsed time moves even without keystrokes.
func (a *Aggregator) AdvanceElapsed(start, now time.Time) {
	a.Refresh(now, a.creditElapsed(start, now))
}

// Refresh resets the day horizon after midnight and saves when anything changed.
func (a *Aggregator) Refresh(now time.Time, modified bool) {
	if a.stats.Updated.Before(startOfDay(now)) {
		for _, b := range a.buckets() {
			b.CurrentDay = 0
		}
		modified = true
	}
	if !modified {
		return
	}
	a.stats.Updated = now
	if a.saver == nil {
		return
	}
	if err := a.saver.SaveStats(context.Background(), a.stats); err != nil {
		a.logger.Warn().Err(err).Msg("failed to save stats")
	}
}

func (a *Aggregator) creditElapsed(start, now time.Time) bool {
	sinceStart := int64(math.Round(now.Sub(start).Seconds()))
	delta := sinceStart - a.stats.Elapsed.LastSession
	if delta <= 0 {
		return false
	}
	Increase(&a.stats.Elapsed, delta)
	return true
}

func (a *Aggregator) buckets() []*model.StatBucket {
	return []*model.StatBucket{
		&a.stats.Elapsed,
		&a.stats.CopiedCharacters,
		&a.stats.CopiedGroups,
		&a.stats.Score,
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
