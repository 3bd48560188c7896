package stats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/tuicw/internal/model"
)

type memorySaver struct {
	saved []model.Stats
	err   error
}

func (m *memorySaver) SaveStats(_ context.Context, s model.Stats) error {
	m.saved = append(m.saved, s)
	return m.err
}

func TestIncreaseRaisesBests(t *testing.T) {
	b := model.StatBucket{BestSession: 5, BestDay: 2, Total: 10}
	Increase(&b, 3)
	assert.Equal(t, model.StatBucket{LastSession: 3, BestSession: 5, CurrentDay: 3, BestDay: 3, Total: 13}, b)
}

func TestRecordCopiedScoresGroups(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)
	saver := &memorySaver{}
	agg := NewAggregator(model.Stats{Updated: now}, saver, zerolog.Nop())
	agg.BeginSession()

	for i, c := range []string{"K", "M", " ", "K"} {
		agg.RecordCopied(c, now, now.Add(time.Duration(i+1)*time.Second))
	}

	s := agg.Snapshot()
	assert.Equal(t, int64(4), s.CopiedCharacters.LastSession)
	assert.Equal(t, int64(1), s.CopiedGroups.Total)
	assert.Equal(t, int64(6), s.Score.CurrentDay)
	assert.Equal(t, int64(4), s.Elapsed.LastSession)
	require.Len(t, saver.saved, 4)
	assert.Equal(t, now.Add(4*time.Second), s.Updated)
}

func TestRefreshRollsOverAtMidnight(t *testing.T) {
	yesterday := time.Date(2026, 10, 18, 23, 59, 0, 0, time.Local)
	initial := model.Stats{
		Updated: yesterday,
		Score:   model.StatBucket{LastSession: 7, BestSession: 9, CurrentDay: 7, BestDay: 12, Total: 40},
	}
	saver := &memorySaver{}
	agg := NewAggregator(initial, saver, zerolog.Nop())

	today := time.Date(2026, 10, 19, 0, 1, 0, 0, time.Local)
	agg.Refresh(today, false)

	s := agg.Snapshot()
	assert.Equal(t, int64(0), s.Score.CurrentDay)
	assert.Equal(t, int64(12), s.Score.BestDay)
	assert.Equal(t, int64(7), s.Score.LastSession)
	assert.Equal(t, today, s.Updated)
	assert.Len(t, saver.saved, 1)

	agg.Refresh(today.Add(time.Minute), false)
	assert.Len(t, saver.saved, 1, "unchanged stats must not be saved again")
}

func TestAdvanceElapsedOnlyMovesForward(t *testing.T) {
	start := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)
	agg := NewAggregator(model.Stats{Updated: start}, nil, zerolog.Nop())

	agg.AdvanceElapsed(start, start.Add(2400*time.Millisecond))
	agg.AdvanceElapsed(start, start.Add(2*time.Second))
	agg.AdvanceElapsed(start, start.Add(5*time.Second))

	s := agg.Snapshot()
	assert.Equal(t, int64(5), s.Elapsed.LastSession)
	assert.Equal(t, int64(5), s.Elapsed.Total)
}

func TestSaveFailureIsNotFatal(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local)
	saver := &memorySaver{err: errors.New("disk full")}
	agg := NewAggregator(model.Stats{Updated: now}, saver, zerolog.Nop())

	agg.RecordCopied("A", now, now.Add(time.Second))
	assert.Equal(t, int64(1), agg.Snapshot().CopiedCharacters.Total)
}
