// Package playback connects a Morse playback engine to the session
// controller.
package playback

import (
	"time"

	"github.com/verte-zerg/tuicw/internal/model"
	"github.com/verte-zerg/tuicw/internal/morse"
	"github.com/verte-zerg/tuicw/internal/session"
)

// Listener receives engine callbacks for one Play call.
type Listener interface {
	CharacterPlayed(r rune)
	Finished()
	Lamp(on bool)
}

// Engine plays Morse text. Callbacks may arrive on any goroutine.
type Engine interface {
	Play(text string, l Listener)
	Stop()
	SetSpeed(wpm float64)
	SetTone(hz float64)
}

// Sink receives the translated events, in engine order.
type Sink func(session.Event)

// Adapter turns engine callbacks into session events. Every Play and Stop
// opens a new epoch; events carry the epoch they were produced in so the
// controller can drop the ones that outlived a Stop.
//
// Begin, Play, Stop, SetSpeed, SetTone and Epoch are called from the
// controller's goroutine only.
type Adapter struct {
	engine Engine
	sink   Sink
	now    func() time.Time

	epoch uint64
	wpm   float64
	skip  *skipFlag
}

// NewAdapter wraps engine and forwards its events to sink.
func NewAdapter(engine Engine, sink Sink) *Adapter {
	return &Adapter{engine: engine, sink: sink, now: time.Now, skip: &skipFlag{}}
}

// Begin marks the start of a session: the first separator played afterward
// carries no information and is dropped.
func (a *Adapter) Begin() {
	a.skip = &skipFlag{armed: true}
}

// Play queues text on the engine.
func (a *Adapter) Play(text string) {
	a.epoch++
	a.engine.Play(text, &listener{
		adapter: a,
		epoch:   a.epoch,
		wpm:     a.wpm,
		skip:    a.skip,
	})
}

// Stop halts the engine; callbacks still in flight become stale.
func (a *Adapter) Stop() {
	a.epoch++
	a.engine.Stop()
}

// SetSpeed sets the speed in words per minute.
func (a *Adapter) SetSpeed(wpm float64) {
	a.wpm = wpm
	a.engine.SetSpeed(wpm)
}

// SetTone sets the tone frequency in Hz.
func (a *Adapter) SetTone(hz float64) {
	a.engine.SetTone(hz)
}

// Epoch returns the current epoch.
func (a *Adapter) Epoch() uint64 {
	return a.epoch
}

type skipFlag struct {
	armed bool
}

type listener struct {
	adapter *Adapter
	epoch   uint64
	wpm     float64
	skip    *skipFlag
}

func (l *listener) CharacterPlayed(r rune) {
	// Engines call back sequentially for one Play, so skip needs no lock.
	if l.skip.armed {
		if r == morse.Separator {
			return
		}
		l.skip.armed = false
	}
	l.adapter.sink(session.CharacterPlayed{
		Sent: model.SentCharacter{
			At:       l.adapter.now(),
			Char:     string(r),
			Duration: morse.CharacterDuration(r, l.wpm),
		},
		Epoch: l.epoch,
	})
}

func (l *listener) Finished() {
	l.adapter.sink(session.GroupFinished{Epoch: l.epoch})
}

func (l *listener) Lamp(on bool) {
	l.adapter.sink(session.LampChanged{On: on, Epoch: l.epoch})
}
