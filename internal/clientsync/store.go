package clientsync

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"expertdesk/internal/request/models"
)

// ErrClosed is returned by commands issued after Close.
var ErrClosed = errors.New("clientsync: store closed")

// Store owns the cache. A single goroutine applies every command, and each
// change is pushed to subscribers as a fresh snapshot.
type Store struct {
	cmds      chan func(*state)
	done      chan struct{}
	closeOnce sync.Once
	stopped   chan struct{}
}

type state struct {
	entries []Entry
	subs    map[int]chan []Entry
	nextSub int
}

func NewStore() *Store {
	s := &Store{
		cmds:    make(chan func(*state)),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.loop()
	return s
}

func (s *Store) loop() {
	st := &state{subs: make(map[int]chan []Entry)}
	defer close(s.stopped)
	for {
		select {
		case cmd := <-s.cmds:
			cmd(st)
		case <-s.done:
			for id, ch := range st.subs {
				close(ch)
				delete(st.subs, id)
			}
			return
		}
	}
}

// do runs fn on the owning goroutine and waits for it.
func (s *Store) do(fn func(*state)) error {
	finished := make(chan struct{})
	cmd := func(st *state) {
		fn(st)
		close(finished)
	}
	select {
	case s.cmds <- cmd:
	case <-s.done:
		return ErrClosed
	}
	<-finished
	return nil
}

// Create adds an optimistic entry for r and returns it.
func (s *Store) Create(r models.Request) (Entry, error) {
	e := Entry{Request: *r.Clone(), Pending: true}
	err := s.do(func(st *state) {
		st.entries = append(st.entries, e)
		st.publish()
	})
	return e, err
}

// Update replaces the entry with r's id, keeping its pending flag. Unknown
// ids are ignored.
func (s *Store) Update(r models.Request) error {
	return s.do(func(st *state) {
		for i := range st.entries {
			if st.entries[i].ID() == r.ID {
				st.entries[i].Request = *r.Clone()
				st.publish()
				return
			}
		}
	})
}

// Acknowledge swaps the optimistic entry localID for the server's version.
// When the server version is already cached the optimistic entry is removed.
func (s *Store) Acknowledge(localID uuid.UUID, server models.Request) error {
	return s.do(func(st *state) {
		acked := Entry{Request: *server.Clone()}
		out := st.entries[:0]
		placed := false
		for _, e := range st.entries {
			switch e.ID() {
			case server.ID, localID:
				if !placed {
					out = append(out, acked)
					placed = true
				}
			default:
				out = append(out, e)
			}
		}
		if !placed {
			out = append(out, acked)
		}
		st.entries = out
		st.publish()
	})
}

// Discard drops an optimistic entry whose persistence failed.
func (s *Store) Discard(localID uuid.UUID) error {
	return s.do(func(st *state) {
		out := st.entries[:0]
		for _, e := range st.entries {
			if e.ID() == localID && e.Pending {
				continue
			}
			out = append(out, e)
		}
		st.entries = out
		st.publish()
	})
}

// Merge folds an authoritative fetch into the cache.
func (s *Store) Merge(server []models.Request) error {
	return s.do(func(st *state) {
		st.entries = Merge(server, st.entries)
		st.publish()
	})
}

// Snapshot returns a copy of the cached entries.
func (s *Store) Snapshot() ([]Entry, error) {
	var out []Entry
	err := s.do(func(st *state) {
		out = st.snapshot()
	})
	return out, err
}

// Subscribe returns a channel that receives the latest snapshot after every
// change, starting with the current one. Slow subscribers only see the most
// recent snapshot and must not modify it. The returned func unsubscribes.
func (s *Store) Subscribe() (<-chan []Entry, func(), error) {
	ch := make(chan []Entry, 1)
	var id int
	err := s.do(func(st *state) {
		id = st.nextSub
		st.nextSub++
		st.subs[id] = ch
		ch <- st.snapshot()
	})
	if err != nil {
		return nil, func() {}, err
	}
	cancel := func() {
		_ = s.do(func(st *state) {
			if sub, ok := st.subs[id]; ok {
				close(sub)
				delete(st.subs, id)
			}
		})
	}
	return ch, cancel, nil
}

// Close stops the owning goroutine and closes every subscription.
func (s *Store) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	<-s.stopped
}

func (st *state) snapshot() []Entry {
	out := make([]Entry, len(st.entries))
	for i, e := range st.entries {
		out[i] = Entry{Request: *e.Request.Clone(), Pending: e.Pending}
	}
	return out
}

func (st *state) publish() {
	if len(st.subs) == 0 {
		return
	}
	snap := st.snapshot()
	for _, ch := range st.subs {
		select {
		case ch <- snap:
		default:
			// replace the stale snapshot nobody has read yet
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
