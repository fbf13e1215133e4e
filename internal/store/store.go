// Package store holds the latest analysis result for every line.
//
// Writers copy the current map, modify the copy and publish it atomically,
// so readers never lock and a Snapshot never changes after it is taken.
package store

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/dshills/cadence/internal/syllable"
)

// ChangeType identifies what modified the store.
type ChangeType int

const (
	// ChangeApply indicates one line's result was set.
	ChangeApply ChangeType = iota

	// ChangePrune indicates lines past the end of the document were removed.
	ChangePrune

	// ChangeClear indicates every line was removed.
	ChangeClear
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeApply:
		return "apply"
	case ChangePrune:
		return "prune"
	case ChangeClear:
		return "clear"
	default:
		return "unknown"
	}
}

// Change describes one published update.
type Change struct {
	Type ChangeType

	// Line is the applied line for ChangeApply.
	Line int

	// Removed lists the dropped lines for ChangePrune and ChangeClear.
	Removed []int

	// Snapshot is the state after the change.
	Snapshot Snapshot
}

// Observer is called after each published update.
type Observer func(Change)

// Subscription is an active observer registration.
type Subscription struct {
	id    uint64
	store *Store
}

// Unsubscribe removes the observer. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.store == nil {
		return
	}
	s.store.subMu.Lock()
	delete(s.store.observers, s.id)
	s.store.subMu.Unlock()
}

// Store is a copy-on-write map from line number to LineResult.
type Store struct {
	writeMu sync.Mutex
	current atomic.Pointer[map[int]syllable.LineResult]

	subMu     sync.RWMutex
	observers map[uint64]Observer
	nextID    uint64
}

// New creates an empty store.
func New() *Store {
	s := &Store{observers: make(map[uint64]Observer)}
	empty := map[int]syllable.LineResult{}
	s.current.Store(&empty)
	return s
}

// Apply sets the result for r.LineNumber.
func (s *Store) Apply(r syllable.LineResult) {
	s.writeMu.Lock()
	old := *s.current.Load()
	next := make(map[int]syllable.LineResult, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[r.LineNumber] = r
	s.current.Store(&next)
	s.writeMu.Unlock()

	s.notify(Change{Type: ChangeApply, Line: r.LineNumber, Snapshot: Snapshot{lines: next}})
}

// Prune removes every line numbered lineCount or higher and returns the
// removed line numbers in ascending order. Nothing is published when no
// line is removed.
func (s *Store) Prune(lineCount int) []int {
	s.writeMu.Lock()
	old := *s.current.Load()

	var removed []int
	for k := range old {
		if k >= lineCount {
			removed = append(removed, k)
		}
	}
	if len(removed) == 0 {
		s.writeMu.Unlock()
		return nil
	}

	next := make(map[int]syllable.LineResult, len(old)-len(removed))
	for k, v := range old {
		if k < lineCount {
			next[k] = v
		}
	}
	s.current.Store(&next)
	s.writeMu.Unlock()

	sort.Ints(removed)
	s.notify(Change{Type: ChangePrune, Removed: removed, Snapshot: Snapshot{lines: next}})
	return removed
}

// Clear removes every line.
func (s *Store) Clear() {
	s.writeMu.Lock()
	old := *s.current.Load()
	if len(old) == 0 {
		s.writeMu.Unlock()
		return
	}
	removed := make([]int, 0, len(old))
	for k := range old {
		removed = append(removed, k)
	}
	next := map[int]syllable.LineResult{}
	s.current.Store(&next)
	s.writeMu.Unlock()

	sort.Ints(removed)
	s.notify(Change{Type: ChangeClear, Removed: removed, Snapshot: Snapshot{lines: next}})
}

// Get returns the result for a line.
func (s *Store) Get(line int) (syllable.LineResult, bool) {
	r, ok := (*s.current.Load())[line]
	return r, ok
}

// Len returns the number of lines with a result.
func (s *Store) Len() int {
	return len(*s.current.Load())
}

// Snapshot returns the current immutable state.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{lines: *s.current.Load()}
}

// Stats summarizes the current state.
func (s *Store) Stats() Stats {
	return s.Snapshot().Stats()
}

// Subscribe registers an observer. Observers run synchronously on the
// writer's goroutine after the update is visible to readers.
func (s *Store) Subscribe(fn Observer) *Subscription {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return &Subscription{id: id, store: s}
}

func (s *Store) notify(c Change) {
	s.subMu.RLock()
	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range observers {
		fn(c)
	}
}
