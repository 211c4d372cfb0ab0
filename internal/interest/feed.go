// internal/interest/feed.go
package interest

import (
	"context"
	"sync"

	"ghost-vault/internal/model"
)

// Key identifies the interest request slot of one requester on one project.
type Key struct {
	ProjectID   string
	RequesterID string
}

// Handler receives status changes. Returning false ends the subscription.
type Handler func(change model.StatusChange) bool

// Feed fans status changes out to subscribers of the same Key.
// Publishers for a Key are serialized, so subscribers see changes in publish order.
type Feed struct {
	mu   sync.Mutex
	subs map[Key]map[*Subscription]struct{}
}

// NewFeed creates an empty Feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[Key]map[*Subscription]struct{})}
}

// Publish queues change for every subscriber of its Key. It never blocks on handlers.
func (f *Feed) Publish(change model.StatusChange) {
	key := Key{ProjectID: change.ProjectID, RequesterID: change.RequesterID}

	f.mu.Lock()
	defer f.mu.Unlock()
	for sub := range f.subs[key] {
		sub.enqueue(change)
	}
}

// Subscribers returns the number of live subscriptions for key.
func (f *Feed) Subscribers(key Key) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[key])
}

// subscribe registers a paused subscription. Changes published from now on are
// queued but not delivered until start is called.
func (f *Feed) subscribe(key Key, handler Handler) *Subscription {
	sub := &Subscription{
		feed:    f,
		key:     key,
		handler: handler,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[key] == nil {
		f.subs[key] = make(map[*Subscription]struct{})
	}
	f.subs[key][sub] = struct{}{}
	return sub
}

func (f *Feed) remove(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[sub.key], sub)
	if len(f.subs[sub.key]) == 0 {
		delete(f.subs, sub.key)
	}
}

// Subscription is a live view of one Key's status.
// Only forward transitions are delivered, so the same change published twice
// (locally and through the database listener) reaches the handler once.
type Subscription struct {
	feed    *Feed
	key     Key
	handler Handler

	mu    sync.Mutex
	queue []model.StatusChange
	wake  chan struct{}

	done     chan struct{}
	stopOnce sync.Once

	// deliverMu is held for the duration of each handler call.
	deliverMu sync.Mutex
	stopped   bool
	started   bool
	last      model.InterestStatus
}

// Done is closed once the subscription has ended.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Cancel ends the subscription. It is idempotent, and once it returns the
// handler will not be called again. It must not be called from inside the
// handler; return false there instead.
func (s *Subscription) Cancel() {
	s.stop()
	s.deliverMu.Lock()
	s.stopped = true
	s.deliverMu.Unlock()
}

// start delivers initial ahead of anything already queued and begins the pump.
// The subscription also ends when ctx is done.
func (s *Subscription) start(ctx context.Context, initial model.StatusChange) {
	s.mu.Lock()
	s.queue = append([]model.StatusChange{initial}, s.queue...)
	s.mu.Unlock()

	go s.pump()
	go func() {
		select {
		case <-ctx.Done():
			s.Cancel()
		case <-s.done:
		}
	}()
	s.signal()
}

func (s *Subscription) stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.feed.remove(s)
	})
}

func (s *Subscription) enqueue(change model.StatusChange) {
	s.mu.Lock()
	s.queue = append(s.queue, change)
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Subscription) pump() {
	for {
		select {
		case <-s.done:
			return
		case <-s.wake:
		}
		for {
			s.mu.Lock()
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			change := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			if !s.deliver(change) {
				return
			}
		}
	}
}

func (s *Subscription) deliver(change model.StatusChange) bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if s.stopped {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
	}
	if s.started && change.To.Rank() <= s.last.Rank() {
		return true
	}
	s.started = true
	s.last = change.To

	if !s.handler(change) {
		s.stopped = true
		s.stop()
		return false
	}
	return true
}
