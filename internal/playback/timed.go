package playback

import (
	"context"
	"sync"
	"time"

	"github.com/verte-zerg/tuicw/internal/morse"
)

// interCharUnits is the gap after every character, in dot units.
const interCharUnits = 3

// TimedEngine is a silent engine: it keys a lamp and reports characters with
// real Morse timing but produces no audio. It stands in for an audio engine
// and keeps the same callback contract.
type TimedEngine struct {
	mu     sync.Mutex
	wpm    float64
	tone   float64
	cancel context.CancelFunc
	done   chan struct{}

	// sleep waits for d or until ctx is done; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewTimedEngine returns an engine at 20 wpm.
func NewTimedEngine() *TimedEngine {
	return &TimedEngine{wpm: 20, sleep: sleepCtx}
}

// Play starts sending text, replacing whatever was playing.
func (e *TimedEngine) Play(text string, l Listener) {
	e.Stop()

	e.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	e.cancel = cancel
	e.done = done
	unit := morse.Unit(e.wpm)
	e.mu.Unlock()

	go func() {
		defer close(done)
		e.run(ctx, text, unit, l)
	}()
}

// Stop halts playback and waits for the sender goroutine to exit. No callback
// is issued after Stop returns.
func (e *TimedEngine) Stop() {
	e.mu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// SetSpeed sets the speed used by the next Play.
func (e *TimedEngine) SetSpeed(wpm float64) {
	if wpm <= 0 {
		return
	}
	e.mu.Lock()
	e.wpm = wpm
	e.mu.Unlock()
}

// SetTone records the tone; the engine is silent.
func (e *TimedEngine) SetTone(hz float64) {
	e.mu.Lock()
	e.tone = hz
	e.mu.Unlock()
}

// Tone returns the last tone set.
func (e *TimedEngine) Tone() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tone
}

func (e *TimedEngine) run(ctx context.Context, text string, unit time.Duration, l Listener) {
	for _, r := range text {
		if !e.key(ctx, r, unit, l) {
			return
		}
		if ctx.Err() != nil {
			return
		}
		l.CharacterPlayed(r)
		if !e.sleep(ctx, interCharUnits*unit) {
			return
		}
	}
	if ctx.Err() == nil {
		l.Finished()
	}
}

func (e *TimedEngine) key(ctx context.Context, r rune, unit time.Duration, l Listener) bool {
	elements, ok := morse.Pattern(r)
	if !ok || r == morse.Separator {
		return e.sleep(ctx, unit)
	}
	for i, el := range elements {
		if i > 0 && !e.sleep(ctx, unit) {
			return false
		}
		length := unit
		if el == '-' {
			length = 3 * unit
		}
		l.Lamp(true)
		ok := e.sleep(ctx, length)
		l.Lamp(false)
		if !ok {
			return false
		}
	}
	return true
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
