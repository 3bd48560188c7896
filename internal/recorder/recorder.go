// Package recorder hands finished session data to the store.
package recorder

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/tuicw/internal/model"
)

// Sink is the persistence side of the recorder.
type Sink interface {
	SaveOutcome(ctx context.Context, outcome model.CharacterOutcome) error
	SaveSession(ctx context.Context, session model.Session, outcomes []model.CharacterOutcome) error
}

// Recorder writes outcomes and sessions without retrying. Failures are
// logged and dropped so practice never stops on a storage error.
type Recorder struct {
	sink   Sink
	logger zerolog.Logger
	newID  func() string
}

// New returns a recorder. sink may be nil when no store is available.
func New(sink Sink, logger zerolog.Logger) *Recorder {
	return &Recorder{sink: sink, logger: logger, newID: uuid.NewString}
}

// RecordOutcome stores one outcome judged during the session.
func (r *Recorder) RecordOutcome(ctx context.Context, outcome model.CharacterOutcome) {
	if r.sink == nil {
		return
	}
	outcome = r.withID(outcome)
	if err := r.sink.SaveOutcome(ctx, outcome); err != nil {
		r.logger.Error().Err(err).
			Str("session", outcome.SessionID).
			Str("result", string(outcome.Result)).
			Msg("failed to save outcome")
	}
}

// Finish stores the finished session together with its closing outcomes.
func (r *Recorder) Finish(ctx context.Context, session model.Session, outcomes []model.CharacterOutcome) {
	if r.sink == nil {
		return
	}
	withIDs := make([]model.CharacterOutcome, len(outcomes))
	for i, o := range outcomes {
		withIDs[i] = r.withID(o)
	}
	if err := r.sink.SaveSession(ctx, session, withIDs); err != nil {
		r.logger.Error().Err(err).
			Str("session", session.ID).
			Int("outcomes", len(withIDs)).
			Msg("failed to save session")
		return
	}
	r.logger.Debug().Str("session", session.ID).Int("outcomes", len(withIDs)).Msg("session saved")
}

func (r *Recorder) withID(o model.CharacterOutcome) model.CharacterOutcome {
	if o.ID == "" {
		o.ID = r.newID()
	}
	return o
}
