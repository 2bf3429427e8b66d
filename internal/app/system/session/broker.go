// internal/app/system/session/broker.go
package session

import (
	"sync"
	"sync/atomic"
)

// Broker fans authentication changes out to subscribers keyed by uid.
// It keeps only the latest state per uid, and a signed-out uid is kept only
// while something still subscribes to it, so the table is bounded by the
// signed-in users plus the open subscriptions.
type Broker struct {
	mu      sync.Mutex
	seq     int64
	nextID  uint64
	current map[string]versioned
	subs    map[string]map[uint64]*subscriber
}

type versioned struct {
	state State
	seq   int64
}

type subscriber struct {
	id     Identity
	fn     func(State)
	mu     sync.Mutex
	last   int64
	closed atomic.Bool
}

// deliver runs fn unless the subscriber is closed or st is older than what
// it has already seen.
func (s *subscriber) deliver(st State, seq int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() || seq <= s.last {
		return
	}
	s.last = seq
	s.fn(st)
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{
		current: make(map[string]versioned),
		subs:    make(map[string]map[uint64]*subscriber),
	}
}

// Source returns a Source for id. Its initial state is the latest state
// published for id.UID, or signed in as id when nothing was published yet.
func (b *Broker) Source(id Identity) Source {
	return brokerSource{b: b, id: id}
}

type brokerSource struct {
	b  *Broker
	id Identity
}

func (s brokerSource) Subscribe(fn func(State)) func() {
	return s.b.subscribe(s.id, fn)
}

func (b *Broker) subscribe(id Identity, fn func(State)) func() {
	sub := &subscriber{id: id, fn: fn, last: -1}

	b.mu.Lock()
	b.nextID++
	key := b.nextID
	if b.subs[id.UID] == nil {
		b.subs[id.UID] = make(map[uint64]*subscriber)
	}
	b.subs[id.UID][key] = sub
	cur, ok := b.current[id.UID]
	b.mu.Unlock()

	if !ok {
		cur = versioned{state: SignedIn(id), seq: 0}
	}
	sub.deliver(cur.state, cur.seq)

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.closed.Store(true)
			b.mu.Lock()
			if m := b.subs[id.UID]; m != nil {
				delete(m, key)
				if len(m) == 0 {
					delete(b.subs, id.UID)
					if cur, ok := b.current[id.UID]; ok && !cur.state.Authenticated {
						delete(b.current, id.UID)
					}
				}
			}
			b.mu.Unlock()
		})
	}
}

// Publish records st as the latest state for uid and delivers it to that
// uid's subscribers. Callbacks run outside the broker lock. A signed-out
// state with nobody listening is not recorded.
func (b *Broker) Publish(uid string, st State) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	if !st.Authenticated && len(b.subs[uid]) == 0 {
		delete(b.current, uid)
	} else {
		b.current[uid] = versioned{state: st, seq: seq}
	}
	targets := make([]*subscriber, 0, len(b.subs[uid]))
	for _, s := range b.subs[uid] {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		s.deliver(st, seq)
	}
}

// SignIn publishes an authenticated state for id.
func (b *Broker) SignIn(id Identity) {
	b.Publish(id.UID, SignedIn(id))
}

// SignOut publishes the unauthenticated state for id.
func (b *Broker) SignOut(id Identity) {
	b.Publish(id.UID, SignedOut())
}

// Touch re-publishes the latest state for uid so live subscribers
// re-evaluate anything derived from it, such as the role. It does nothing
// when the uid has no subscribers.
func (b *Broker) Touch(uid string) {
	b.mu.Lock()
	m := b.subs[uid]
	if len(m) == 0 {
		b.mu.Unlock()
		return
	}
	b.seq++
	seq := b.seq
	cur, published := b.current[uid]
	targets := make([]*subscriber, 0, len(m))
	for _, s := range m {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		st := cur.state
		if !published {
			st = SignedIn(s.id)
		}
		s.deliver(st, seq)
	}
}

// Latest returns the most recently published state for uid.
func (b *Broker) Latest(uid string) (State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.current[uid]
	return v.state, ok
}
