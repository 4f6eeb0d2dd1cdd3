package server

import (
	"sync"

	"github.com/jonathan/resume-evaluator/internal/fetch"
	"github.com/jonathan/resume-evaluator/internal/pipeline"
	"github.com/jonathan/resume-evaluator/internal/types"
)

// Event types streamed on GET /events.
const (
	EventStatus   = "status"
	EventNotice   = "notice"
	EventLinks    = "links"
	EventComplete = "complete"
	EventError    = "error"
)

// subscriberBuffer is how many events a slow subscriber may fall behind before
// further events are dropped for it.
const subscriberBuffer = 32

// Event is one message on the event stream. Page is the applications page the
// run belongs to.
type Event struct {
	Type string `json:"type"`
	Page string `json:"page,omitempty"`
	Data any    `json:"data"`
}

// Broadcaster fans pipeline events out to every subscriber.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
}

// NewBroadcaster creates a Broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber. The cancel func unregisters it and closes
// the channel; it is safe to call more than once.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber without blocking. Subscribers whose
// buffer is full miss the event.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// StatusFunc returns a fetch status callback that publishes to page's stream.
func (b *Broadcaster) StatusFunc(page string) fetch.StatusFunc {
	return func(ev types.StatusEvent) {
		b.Publish(Event{Type: EventStatus, Page: page, Data: ev})
	}
}

// NoticeFunc returns a pipeline notice callback that publishes to page's stream.
func (b *Broadcaster) NoticeFunc(page string) func(pipeline.Notice) {
	return func(n pipeline.Notice) {
		b.Publish(Event{Type: EventNotice, Page: page, Data: n})
	}
}

// LinksFunc returns a callback that publishes the collected link set.
func (b *Broadcaster) LinksFunc(page string) func([]types.LinkRecord) {
	return func(links []types.LinkRecord) {
		b.Publish(Event{Type: EventLinks, Page: page, Data: links})
	}
}
