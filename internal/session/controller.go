// Package session runs live copy sessions: it feeds groups to the playback
// engine, judges keystrokes against what was played and ends the session on
// the first mistake or when the user falls too far behind.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verte-zerg/tuicw/internal/generator"
	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/stats"
)

// DefaultLagThreshold is how many played characters may wait unjudged before
// the session times out.
const DefaultLagThreshold = 5

// TickInterval is the period of the statistics refresh.
const TickInterval = time.Second

// buzzer is sent with the error tone after a mistake.
const buzzer = "T"

var (
	// ErrSessionActive is returned when starting while a session runs.
	ErrSessionActive = errors.New("session already active")
	// ErrCoolingDown is returned when starting right after a session ended.
	ErrCoolingDown = errors.New("session cooldown in progress")
)

// State is the lifecycle state of the controller.
type State string

const (
	StateIdle            State = "idle"
	StateActive          State = "active"
	StateMistakeRecovery State = "mistake-recovery"
)

// Notice is a short user-facing message about the last transition.
type Notice string

const (
	NoticeNone         Notice = ""
	NoticeTooSlow      Notice = "too-slow"
	NoticeLostFocus    Notice = "lost-focus"
	NoticeEmptyCharset Notice = "empty-charset"
)

// Player is the playback side driven by the controller.
type Player interface {
	Begin()
	Play(text string)
	Stop()
	SetSpeed(wpm float64)
	SetTone(hz float64)
	Epoch() uint64
}

// Ticker emits Tick events while started.
type Ticker interface {
	Start(interval time.Duration)
	Stop()
}

// Groups supplies practice groups.
type Groups interface {
	Group(settings model.Settings) string
}

// Recorder hands session data to the store.
type Recorder interface {
	RecordOutcome(ctx context.Context, outcome model.CharacterOutcome)
	Finish(ctx context.Context, session model.Session, outcomes []model.CharacterOutcome)
}

// Status is a read-only view of the controller for rendering.
type Status struct {
	State       State
	Notice      Notice
	CopiedText  string
	Lamp        bool
	Lag         int
	StartedAt   time.Time
	LastSession *model.Session
	Stats       model.Stats
}

type activeSession struct {
	id        string
	startedAt time.Time
	log       Log
	copied    strings.Builder
}

type recovery struct {
	missed    string
	replaying bool
}

// Controller is the session state machine. It is driven through Handle from
// a single goroutine and needs no locking.
type Controller struct {
	ctx      context.Context
	settings model.Settings
	player   Player
	ticker   Ticker
	groups   Groups
	recorder Recorder
	stats    *stats.Aggregator
	logger   zerolog.Logger
	newID    func() string

	state    State
	current  *activeSession
	recovery recovery
	notice   Notice
	lamp     bool
	last     *model.Session
	endedAt  time.Time
}

// NewController wires a controller. recorder may be nil when no store is
// available.
func NewController(settings model.Settings, player Player, ticker Ticker, groups Groups, recorder Recorder, agg *stats.Aggregator, logger zerolog.Logger) *Controller {
	if settings.LagThreshold <= 0 {
		settings.LagThreshold = DefaultLagThreshold
	}
	return &Controller{
		ctx:      context.Background(),
		settings: settings,
		player:   player,
		ticker:   ticker,
		groups:   groups,
		recorder: recorder,
		stats:    agg,
		logger:   logger,
		newID:    uuid.NewString,
		state:    StateIdle,
	}
}

// Handle processes one event to completion. Only StartRequested can fail.
func (c *Controller) Handle(ev Event) error {
	switch ev := ev.(type) {
	case StartRequested:
		return c.start(ev.At)
	case StopRequested:
		c.stop(ev.Reason, ev.At)
	case KeyPressed:
		c.key(ev)
	case CharacterPlayed:
		c.characterPlayed(ev)
	case GroupFinished:
		c.groupFinished(ev)
	case LampChanged:
		if ev.Epoch == c.player.Epoch() {
			c.lamp = ev.On
		}
	case Tick:
		c.tick(ev.At)
	}
	return nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Settings returns the settings used for the next session.
func (c *Controller) Settings() model.Settings {
	return c.settings
}

// ApplySettings replaces the settings. A running session is stopped first.
func (c *Controller) ApplySettings(settings model.Settings, at time.Time) {
	if settings.LagThreshold <= 0 {
		settings.LagThreshold = DefaultLagThreshold
	}
	if c.state == StateActive {
		c.stop(model.EndStopped, at)
	}
	c.settings = settings
}

// Status returns a snapshot for rendering.
func (c *Controller) Status() Status {
	st := Status{
		State:       c.state,
		Notice:      c.notice,
		Lamp:        c.lamp,
		LastSession: c.last,
	}
	if c.stats != nil {
		st.Stats = c.stats.Snapshot()
	}
	if c.current != nil {
		st.CopiedText = c.current.copied.String()
		st.Lag = c.current.log.Lag()
		st.StartedAt = c.current.startedAt
	} else if c.last != nil {
		st.CopiedText = c.last.CopiedText
	}
	return st
}

// CooldownUntil returns when the next session may start.
func (c *Controller) CooldownUntil() time.Time {
	if c.endedAt.IsZero() {
		return time.Time{}
	}
	return c.endedAt.Add(c.settings.Cooldown)
}

func (c *Controller) start(at time.Time) error {
	if c.state != StateIdle {
		return ErrSessionActive
	}
	if err := generator.Validate(c.settings); err != nil {
		if errors.Is(err, generator.ErrEmptyCharset) {
			c.notice = NoticeEmptyCharset
		}
		return err
	}
	if until := c.CooldownUntil(); !until.IsZero() && at.Before(until) {
		return ErrCoolingDown
	}

	c.current = &activeSession{id: c.newID(), startedAt: at}
	c.notice = NoticeNone
	c.lamp = false
	c.state = StateActive
	if c.stats != nil {
		c.stats.BeginSession()
	}

	c.player.Begin()
	c.player.SetSpeed(c.settings.WPM)
	c.player.SetTone(c.settings.Tone)
	c.player.Play(generator.Separated(c.groups.Group(c.settings)))
	c.ticker.Start(TickInterval)

	c.logger.Debug().Str("session", c.current.id).Msg("session started")
	return nil
}

func (c *Controller) stop(reason model.EndReason, at time.Time) {
	if c.state != StateActive {
		return
	}
	if reason == model.EndLostFocus {
		c.notice = NoticeLostFocus
	}
	c.end(reason, at, nil, nil)
	c.state = StateIdle
}

func (c *Controller) key(ev KeyPressed) {
	if c.state != StateActive {
		return
	}
	if !Qualifies(ev.Char, ev.Modified, c.settings.Charset) {
		return
	}
	cur := c.current
	verdict := Judge(&cur.log, ev.Char)
	received := model.ReceivedCharacter{At: ev.At, Char: string(ev.Char)}
	if verdict.Result != model.ResultCorrect {
		c.fail(model.EndMistake, ev.At, &verdict, &received)
		return
	}

	cur.log.Advance()
	cur.copied.WriteString(verdict.Sent.Char)
	if c.stats != nil {
		c.stats.RecordCopied(verdict.Sent.Char, cur.startedAt, ev.At)
	}
	if c.recorder != nil {
		c.recorder.RecordOutcome(c.ctx, model.CharacterOutcome{
			SessionID: cur.id,
			Result:    model.ResultCorrect,
			Sent:      verdict.Sent,
			Received:  &received,
		})
	}
}

func (c *Controller) characterPlayed(ev CharacterPlayed) {
	if c.state != StateActive || ev.Epoch != c.player.Epoch() {
		return
	}
	cur := c.current
	cur.log.Append(ev.Sent)
	if cur.log.Lag() > c.settings.LagThreshold {
		c.notice = NoticeTooSlow
		c.fail(model.EndTimeout, ev.Sent.At, nil, nil)
	}
}

func (c *Controller) groupFinished(ev GroupFinished) {
	if ev.Epoch != c.player.Epoch() {
		return
	}
	switch c.state {
	case StateActive:
		c.player.Play(generator.Separated(c.groups.Group(c.settings)))
	case StateMistakeRecovery:
		if !c.recovery.replaying {
			c.player.SetTone(c.settings.Tone)
			if c.recovery.missed != "" {
				c.recovery.replaying = true
				c.player.Play(generator.Separated(c.recovery.missed))
				return
			}
		}
		c.recovery = recovery{}
		c.lamp = false
		c.state = StateIdle
	}
}

func (c *Controller) tick(at time.Time) {
	if c.stats == nil {
		return
	}
	if c.state == StateActive {
		c.stats.AdvanceElapsed(c.current.startedAt, at)
		return
	}
	c.stats.Refresh(at, false)
}

// fail ends the session and plays the buzzer followed by the missed character.
func (c *Controller) fail(reason model.EndReason, at time.Time, verdict *Verdict, received *model.ReceivedCharacter) {
	c.end(reason, at, verdict, received)
	c.state = StateMistakeRecovery
	c.recovery = recovery{}
	if verdict != nil && verdict.Sent != nil {
		c.recovery.missed = verdict.Sent.Char
	}
	c.player.SetTone(c.settings.ErrorTone)
	c.player.Play(buzzer)
}

// end halts playback, records every outcome not yet stored and hands the
// finished session to the recorder.
func (c *Controller) end(reason model.EndReason, at time.Time, verdict *Verdict, received *model.ReceivedCharacter) {
	c.player.Stop()
	c.ticker.Stop()
	c.lamp = false

	cur := c.current
	var outcomes []model.CharacterOutcome
	pendingFrom := cur.log.Cursor()
	var mistake *model.Mistake
	if verdict != nil && received != nil {
		outcomes = append(outcomes, model.CharacterOutcome{
			SessionID: cur.id,
			Result:    verdict.Result,
			Sent:      verdict.Sent,
			Received:  received,
		})
		if verdict.Sent != nil {
			mistake = &model.Mistake{Expected: verdict.Sent.Char, Mistaken: received.Char}
			pendingFrom++
		}
	}
	for _, sent := range cur.log.From(pendingFrom) {
		outcomes = append(outcomes, model.CharacterOutcome{
			SessionID: cur.id,
			Result:    model.ResultPending,
			Sent:      &sent,
		})
	}

	sess := model.Session{
		ID:         cur.id,
		StartedAt:  cur.startedAt,
		FinishedAt: at,
		CopiedText: cur.copied.String(),
		Mistake:    mistake,
		EndReason:  reason,
		Settings:   c.settings,
	}
	if c.stats != nil {
		c.stats.Refresh(at, false)
		snap := c.stats.Snapshot()
		sess.Elapsed = snap.Elapsed.LastSession
		sess.CopiedCharacters = snap.CopiedCharacters.LastSession
		sess.CopiedGroups = snap.CopiedGroups.LastSession
		sess.Score = snap.Score.LastSession
	}
	if c.recorder != nil {
		c.recorder.Finish(c.ctx, sess, outcomes)
	}

	c.logger.Info().
		Str("session", sess.ID).
		Str("reason", string(reason)).
		Int64("characters", sess.CopiedCharacters).
		Int64("score", sess.Score).
		Msg("session finished")

	c.last = &sess
	c.current = nil
	c.endedAt = at
}
