package stats

import (
	"context"

	"github.com/verte-zerg/tuicw/internal/model"
)

// ReportSource is the store side of a report.
type ReportSource interface {
	LoadStats(ctx context.Context) (model.Stats, error)
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionSummary, error)
	ListCharAggregatesForSessions(ctx context.Context, sessionIDs []string) ([]model.CharAggregate, error)
}

// Report contains precomputed data for stats rendering.
type Report struct {
	Stats            model.Stats
	Sessions         []model.SessionSummary
	WindowSessionIDs []string
	CharAggsAll      []model.CharAggregate
	CharAggsWindow   []model.CharAggregate
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, src ReportSource, cfg model.StatsConfig) (Report, error) {
	current, err := src.LoadStats(ctx)
	if err != nil {
		return Report{}, err
	}
	sessions, err := src.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	charAggsAll, err := src.ListCharAggregatesForSessions(ctx, SessionIDs(sessions))
	if err != nil {
		return Report{}, err
	}
	charAggsWindow, err := src.ListCharAggregatesForSessions(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Stats:            current,
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		CharAggsAll:      charAggsAll,
		CharAggsWindow:   charAggsWindow,
	}, nil
}

// SessionIDs returns the IDs of sessions in order.
func SessionIDs(sessions []model.SessionSummary) []string {
	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.ID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionSummary, window int) []string {
	if window <= 0 || len(sessions) <= window {
		return SessionIDs(sessions)
	}
	return SessionIDs(sessions[len(sessions)-window:])
}
