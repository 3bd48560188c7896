package session

import (
	"time"

	"github.com/verte-zerg/tuicw/internal/model"
)

// Event is anything the controller reacts to. Events from the keyboard, the
// playback engine and the ticker are delivered one at a time, in order.
type Event interface {
	event()
}

// StartRequested asks for a new session.
type StartRequested struct {
	At time.Time
}

// StopRequested asks to end the current session without a mistake.
type StopRequested struct {
	Reason model.EndReason
	At     time.Time
}

// KeyPressed is a keystroke from the user.
type KeyPressed struct {
	Char     rune
	Modified bool
	At       time.Time
}

// CharacterPlayed is emitted once per sounded character.
type CharacterPlayed struct {
	Sent  model.SentCharacter
	Epoch uint64
}

// GroupFinished is emitted when the queued text has finished playing.
type GroupFinished struct {
	Epoch uint64
}

// LampChanged mirrors the key-down/key-up state of the playback engine.
type LampChanged struct {
	On    bool
	Epoch uint64
}

// Tick is the periodic statistics refresh.
type Tick struct {
	At time.Time
}

func (StartRequested) event()  {}
func (StopRequested) event()   {}
func (KeyPressed) event()      {}
func (CharacterPlayed) event() {}
func (GroupFinished) event()   {}
func (LampChanged) event()     {}
func (Tick) event()            {}
