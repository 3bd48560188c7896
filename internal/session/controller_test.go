package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/verte-zerg/tuicw/internal/generator"
	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/stats"
)

type fakePlayer struct {
	epoch  uint64
	begun  int
	played []string
	tones  []float64
	wpm    float64
	stops  int
}

func (p *fakePlayer) Begin()               { p.begun++ }
func (p *fakePlayer) Play(text string)     { p.epoch++; p.played = append(p.played, text) }
func (p *fakePlayer) Stop()                { p.epoch++; p.stops++ }
func (p *fakePlayer) SetSpeed(wpm float64) { p.wpm = wpm }
func (p *fakePlayer) SetTone(hz float64)   { p.tones = append(p.tones, hz) }
func (p *fakePlayer) Epoch() uint64        { return p.epoch }

func (p *fakePlayer) lastPlayed() string {
	if len(p.played) == 0 {
		return ""
	}
	return p.played[len(p.played)-1]
}

func (p *fakePlayer) lastTone() float64 {
	if len(p.tones) == 0 {
		return 0
	}
	return p.tones[len(p.tones)-1]
}

type fakeTicker struct {
	running bool
	starts  int
}

func (t *fakeTicker) Start(time.Duration) { t.running = true; t.starts++ }
func (t *fakeTicker) Stop()               { t.running = false }

type fixedGroups struct {
	group string
}

func (g fixedGroups) Group(model.Settings) string { return g.group }

type fakeRecorder struct {
	outcomes []model.CharacterOutcome
	sessions []model.Session
}

func (r *fakeRecorder) RecordOutcome(_ context.Context, o model.CharacterOutcome) {
	r.outcomes = append(r.outcomes, o)
}

func (r *fakeRecorder) Finish(_ context.Context, s model.Session, outcomes []model.CharacterOutcome) {
	r.sessions = append(r.sessions, s)
	r.outcomes = append(r.outcomes, outcomes...)
}

func (r *fakeRecorder) byResult(result model.Result) []model.CharacterOutcome {
	var out []model.CharacterOutcome
	for _, o := range r.outcomes {
		if o.Result == result {
			out = append(out, o)
		}
	}
	return out
}

// ControllerSuite drives the state machine the way the event loop would.
type ControllerSuite struct {
	suite.Suite
	player   *fakePlayer
	ticker   *fakeTicker
	recorder *fakeRecorder
	agg      *stats.Aggregator
	ctrl     *Controller
	now      time.Time
	settings model.Settings
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.player = &fakePlayer{}
	s.ticker = &fakeTicker{}
	s.recorder = &fakeRecorder{}
	s.now = time.Date(2026, 10, 19, 10, 0, 0, 0, time.Local)
	s.agg = stats.NewAggregator(model.Stats{Updated: s.now}, nil, zerolog.Nop())
	s.settings = model.Settings{
		WPM:          20,
		Tone:         600,
		ErrorTone:    200,
		MinGroupSize: 3,
		MaxGroupSize: 3,
		Charset:      "AB",
		Cooldown:     time.Second,
	}
	s.newController()
}

func (s *ControllerSuite) newController() {
	s.ctrl = NewController(s.settings, s.player, s.ticker, fixedGroups{group: "BAB"}, s.recorder, s.agg, zerolog.Nop())
	n := 0
	s.ctrl.newID = func() string {
		n++
		return "session-" + string(rune('0'+n))
	}
}

func (s *ControllerSuite) advance(d time.Duration) time.Time {
	s.now = s.now.Add(d)
	return s.now
}

func (s *ControllerSuite) start() {
	s.Require().NoError(s.ctrl.Handle(StartRequested{At: s.advance(0)}))
}

func (s *ControllerSuite) play(chars string) {
	for _, r := range chars {
		s.Require().NoError(s.ctrl.Handle(CharacterPlayed{
			Sent:  model.SentCharacter{At: s.advance(100 * time.Millisecond), Char: string(r)},
			Epoch: s.player.Epoch(),
		}))
	}
}

func (s *ControllerSuite) typeKeys(keys string) {
	for _, r := range keys {
		s.Require().NoError(s.ctrl.Handle(KeyPressed{Char: r, At: s.advance(200 * time.Millisecond)}))
	}
}

func (s *ControllerSuite) finish() {
	s.Require().NoError(s.ctrl.Handle(GroupFinished{Epoch: s.player.Epoch()}))
}

func (s *ControllerSuite) TestStartDrivesPlayback() {
	s.start()

	s.Equal(StateActive, s.ctrl.State())
	s.Equal(1, s.player.begun)
	s.Equal(" BAB", s.player.lastPlayed())
	s.Equal(20.0, s.player.wpm)
	s.Equal(600.0, s.player.lastTone())
	s.True(s.ticker.running)
}

func (s *ControllerSuite) TestCorrectCopyKeepsSessionActive() {
	s.start()
	s.play("BAB")
	s.typeKeys("bab")

	s.Equal(StateActive, s.ctrl.State())
	snap := s.agg.Snapshot()
	s.Equal(int64(3), snap.CopiedCharacters.LastSession)
	s.Equal(int64(0), snap.CopiedGroups.LastSession)
	s.Equal(int64(3), snap.Score.LastSession)
	s.Equal("BAB", s.ctrl.Status().CopiedText)
	s.Len(s.recorder.byResult(model.ResultCorrect), 3)
	s.Empty(s.recorder.sessions)
}

func (s *ControllerSuite) TestScoreGrowsWithCompletedGroups() {
	s.start()
	s.play("AB A")
	s.typeKeys("ab a")

	snap := s.agg.Snapshot()
	s.Equal(int64(4), snap.CopiedCharacters.LastSession)
	s.Equal(int64(1), snap.CopiedGroups.LastSession)
	// 1 + 1 + (1+1) + (1+1)
	s.Equal(int64(6), snap.Score.LastSession)
}

func (s *ControllerSuite) TestMismatchPlaysBuzzerThenReplay() {
	s.start()
	s.play("A")
	s.typeKeys("b")

	s.Equal(StateMistakeRecovery, s.ctrl.State())
	s.False(s.ticker.running)
	s.GreaterOrEqual(s.player.stops, 1)
	s.Equal(buzzer, s.player.lastPlayed())
	s.Equal(200.0, s.player.lastTone())

	incorrect := s.recorder.byResult(model.ResultIncorrect)
	s.Require().Len(incorrect, 1)
	s.Equal("A", incorrect[0].Sent.Char)
	s.Equal("b", incorrect[0].Received.Char)

	s.Require().Len(s.recorder.sessions, 1)
	sess := s.recorder.sessions[0]
	s.Equal(model.EndMistake, sess.EndReason)
	s.Require().NotNil(sess.Mistake)
	s.Equal("A", sess.Mistake.Expected)
	s.Equal("b", sess.Mistake.Mistaken)

	s.finish()
	s.Equal(600.0, s.player.lastTone())
	s.Equal(" A", s.player.lastPlayed())
	s.Equal(StateMistakeRecovery, s.ctrl.State())

	s.finish()
	s.Equal(StateIdle, s.ctrl.State())
}

func (s *ControllerSuite) TestMismatchMarksUnjudgedAsPending() {
	s.start()
	s.play("ABAB")
	s.typeKeys("a")
	s.typeKeys("a")

	s.Len(s.recorder.byResult(model.ResultCorrect), 1)
	s.Len(s.recorder.byResult(model.ResultIncorrect), 1)
	pending := s.recorder.byResult(model.ResultPending)
	s.Require().Len(pending, 2)
	s.Equal("A", pending[0].Sent.Char)
	s.Equal("B", pending[1].Sent.Char)
	for _, o := range s.recorder.outcomes {
		s.Equal("session-1", o.SessionID)
	}
}

func (s *ControllerSuite) TestExtraneousKeyEndsSession() {
	s.start()
	s.typeKeys("a")

	s.Equal(StateMistakeRecovery, s.ctrl.State())
	extraneous := s.recorder.byResult(model.ResultExtraneous)
	s.Require().Len(extraneous, 1)
	s.Nil(extraneous[0].Sent)
	s.Nil(s.recorder.sessions[0].Mistake)

	// nothing to replay: the buzzer finishing ends recovery
	s.finish()
	s.Equal(StateIdle, s.ctrl.State())
	s.Equal(buzzer, s.player.lastPlayed())
}

func (s *ControllerSuite) TestLagTimeout() {
	s.start()
	s.play("ABABA")
	s.Equal(StateActive, s.ctrl.State())

	s.play("B")
	s.Equal(StateMistakeRecovery, s.ctrl.State())
	s.Equal(NoticeTooSlow, s.ctrl.Status().Notice)
	s.Len(s.recorder.byResult(model.ResultPending), 6)
	s.Require().Len(s.recorder.sessions, 1)
	s.Equal(model.EndTimeout, s.recorder.sessions[0].EndReason)
	s.Nil(s.recorder.sessions[0].Mistake)
	s.Equal(buzzer, s.player.lastPlayed())
}

func (s *ControllerSuite) TestLagThresholdIsConfigurable() {
	s.settings.LagThreshold = 2
	s.newController()
	s.start()
	s.play("AB")
	s.Equal(StateActive, s.ctrl.State())
	s.play("A")
	s.Equal(StateMistakeRecovery, s.ctrl.State())
}

func (s *ControllerSuite) TestCopyingKeepsLagDown() {
	s.start()
	for i := 0; i < 20; i++ {
		s.play("A")
		s.typeKeys("a")
	}
	s.Equal(StateActive, s.ctrl.State())
	s.Equal(0, s.ctrl.Status().Lag)
}

func (s *ControllerSuite) TestGroupFinishedQueuesNextGroup() {
	s.start()
	s.finish()
	s.Equal(StateActive, s.ctrl.State())
	s.Len(s.player.played, 2)
	s.Equal(" BAB", s.player.lastPlayed())
}

func (s *ControllerSuite) TestStopWithoutMistakeGoesIdle() {
	s.start()
	s.play("AB")
	s.typeKeys("a")
	s.Require().NoError(s.ctrl.Handle(StopRequested{Reason: model.EndStopped, At: s.advance(time.Second)}))

	s.Equal(StateIdle, s.ctrl.State())
	s.False(s.ticker.running)
	played := len(s.player.played)
	s.Len(s.recorder.byResult(model.ResultPending), 1)
	s.Require().Len(s.recorder.sessions, 1)
	s.Equal("A", s.recorder.sessions[0].CopiedText)
	s.Equal(int64(1), s.recorder.sessions[0].CopiedCharacters)

	// idle stop is a no-op
	s.Require().NoError(s.ctrl.Handle(StopRequested{Reason: model.EndStopped, At: s.advance(time.Second)}))
	s.Len(s.recorder.sessions, 1)
	s.Len(s.player.played, played)
}

func (s *ControllerSuite) TestLostFocusSetsNotice() {
	s.start()
	s.Require().NoError(s.ctrl.Handle(StopRequested{Reason: model.EndLostFocus, At: s.advance(time.Second)}))
	s.Equal(StateIdle, s.ctrl.State())
	s.Equal(NoticeLostFocus, s.ctrl.Status().Notice)
	s.Equal(model.EndLostFocus, s.recorder.sessions[0].EndReason)
}

func (s *ControllerSuite) TestStopDuringRecoveryIsIgnored() {
	s.start()
	s.play("A")
	s.typeKeys("b")
	s.Require().NoError(s.ctrl.Handle(StopRequested{Reason: model.EndStopped, At: s.advance(time.Second)}))

	s.Equal(StateMistakeRecovery, s.ctrl.State())
	s.Len(s.recorder.sessions, 1)
}

func (s *ControllerSuite) TestStaleEventsAreDropped() {
	s.start()
	stale := s.player.Epoch()
	s.play("A")
	s.typeKeys("b")

	// finish of the interrupted group must not be taken for the buzzer
	s.Require().NoError(s.ctrl.Handle(GroupFinished{Epoch: stale}))
	s.Equal(StateMistakeRecovery, s.ctrl.State())
	s.Equal(buzzer, s.player.lastPlayed())
}

func (s *ControllerSuite) TestEmptyCharsetRefusesToStart() {
	s.settings.Charset = "   "
	s.newController()
	err := s.ctrl.Handle(StartRequested{At: s.now})

	s.ErrorIs(err, generator.ErrEmptyCharset)
	s.Equal(StateIdle, s.ctrl.State())
	s.Equal(NoticeEmptyCharset, s.ctrl.Status().Notice)
	s.Empty(s.player.played)
	s.False(s.ticker.running)
}

func (s *ControllerSuite) TestStartRejectedWhileActiveOrCoolingDown() {
	s.start()
	s.ErrorIs(s.ctrl.Handle(StartRequested{At: s.advance(time.Second)}), ErrSessionActive)

	s.Require().NoError(s.ctrl.Handle(StopRequested{Reason: model.EndStopped, At: s.advance(time.Second)}))
	s.ErrorIs(s.ctrl.Handle(StartRequested{At: s.advance(500 * time.Millisecond)}), ErrCoolingDown)
	s.NoError(s.ctrl.Handle(StartRequested{At: s.advance(time.Second)}))
	s.Equal(StateActive, s.ctrl.State())
}

func (s *ControllerSuite) TestNewSessionResetsLastSessionOnly() {
	s.start()
	s.play("AB")
	s.typeKeys("ab")
	s.Require().NoError(s.ctrl.Handle(StopRequested{Reason: model.EndStopped, At: s.advance(time.Second)}))
	before := s.agg.Snapshot()

	s.advance(2 * time.Second)
	s.start()
	after := s.agg.Snapshot()

	s.Equal(int64(0), after.CopiedCharacters.LastSession)
	s.Equal(int64(0), after.Score.LastSession)
	s.Equal(before.CopiedCharacters.Total, after.CopiedCharacters.Total)
	s.Equal(before.CopiedCharacters.BestSession, after.CopiedCharacters.BestSession)
	s.Equal(before.Score.BestDay, after.Score.BestDay)
}

func (s *ControllerSuite) TestTickAdvancesElapsed() {
	s.start()
	s.Require().NoError(s.ctrl.Handle(Tick{At: s.advance(3 * time.Second)}))
	s.Equal(int64(3), s.agg.Snapshot().Elapsed.LastSession)
}

func (s *ControllerSuite) TestKeysIgnoredOutsideSessionOrCharset() {
	s.typeKeys("a")
	s.Equal(StateIdle, s.ctrl.State())

	s.start()
	s.play("A")
	s.typeKeys("z")
	s.Require().NoError(s.ctrl.Handle(KeyPressed{Char: 'a', Modified: true, At: s.advance(time.Second)}))
	s.Equal(StateActive, s.ctrl.State())
	s.Empty(s.recorder.outcomes)
}

func (s *ControllerSuite) TestApplySettingsStopsActiveSession() {
	s.start()
	updated := s.settings
	updated.WPM = 25
	s.ctrl.ApplySettings(updated, s.advance(time.Second))

	s.Equal(StateIdle, s.ctrl.State())
	s.Equal(25.0, s.ctrl.Settings().WPM)
	s.Equal(DefaultLagThreshold, s.ctrl.Settings().LagThreshold)
	s.Len(s.recorder.sessions, 1)
}
