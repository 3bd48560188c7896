package tui

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/tuicw/internal/session"
)

// EventMsg carries a session event into the Bubble Tea loop.
type EventMsg struct {
	Event session.Event
}

// Bridge forwards session events to the program without ever blocking the
// caller. The playback engine stops synchronously from inside Update, so
// its callbacks must not wait on the loop that is waiting on them.
type Bridge struct {
	send func(tea.Msg)

	mu     sync.Mutex
	queue  []session.Event
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

// NewBridge starts a forwarder delivering events through send.
func NewBridge(send func(tea.Msg)) *Bridge {
	b := &Bridge{
		send: send,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go b.run()
	return b
}

// Send queues ev. It is safe from any goroutine and drops events after Close.
func (b *Bridge) Send(ev session.Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.queue = append(b.queue, ev)
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Close stops the forwarder. Queued events are discarded.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.queue = nil
	close(b.done)
}

func (b *Bridge) run() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}
		for {
			b.mu.Lock()
			batch := b.queue
			b.queue = nil
			closed := b.closed
			b.mu.Unlock()
			if closed || len(batch) == 0 {
				break
			}
			for _, ev := range batch {
				b.send(EventMsg{Event: ev})
			}
		}
	}
}

// Ticker emits session.Tick events on its own goroutine.
type Ticker struct {
	sink func(session.Event)
	now  func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
}

// NewTicker returns a stopped ticker delivering to sink.
func NewTicker(sink func(session.Event)) *Ticker {
	return &Ticker{sink: sink, now: time.Now}
}

// Start (re)starts ticking every interval.
func (t *Ticker) Start(interval time.Duration) {
	t.Stop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	t.cancel, t.done = cancel, done
	go func() {
		defer close(done)
		tick := time.NewTicker(interval)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				t.sink(session.Tick{At: t.now()})
			}
		}
	}()
}

// Stop halts ticking and waits for the goroutine to exit.
func (t *Ticker) Stop() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel, t.done = nil, nil
}
