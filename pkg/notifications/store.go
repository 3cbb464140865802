package notifications

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifysync/pkg/broadcast"
)

// ChangeKind identifies the mutation a Change describes.
type ChangeKind string

const (
	ChangeInserted ChangeKind = "inserted"
	ChangeRead     ChangeKind = "read"
	ChangeAllRead  ChangeKind = "all_read"
	ChangeCleared  ChangeKind = "cleared"
	ChangeCount    ChangeKind = "count"
	// ChangeSession is emitted by the client when the bound user changes and
	// the whole collection was replaced.
	ChangeSession ChangeKind = "session"
)

// Change is emitted to subscribers after every effective mutation.
type Change struct {
	Kind   ChangeKind
	ID     string
	Unread int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source used for records without CreatedAt.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how locally inserted records without an ID get one.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithChangeBuffer sets the per-subscriber buffer of the change feed.
func WithChangeBuffer(size int) StoreOption {
	return func(s *Store) {
		s.changeBuffer = size
	}
}

// Store is the in-memory notification inbox of one session.
//
// Records are kept newest first by CreatedAt; among equal timestamps the
// later arrival comes first. IDs are unique. The unread counter is tracked
// separately from the records: pushes and local reads adjust it, a server
// count replaces it. It never goes below zero. All methods are safe for
// concurrent use and each mutation is atomic.
type Store struct {
	mu      sync.RWMutex
	records []Record
	ids     map[string]struct{}
	unread  int

	now          func() time.Time
	newID        func() string
	changeBuffer int
	changes      *broadcast.MemoryBroadcaster[Change]
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		ids:          make(map[string]struct{}),
		now:          time.Now,
		newID:        func() string { return uuid.New().String() },
		changeBuffer: 64,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.changes = broadcast.NewMemoryBroadcaster[Change](s.changeBuffer)
	return s
}

// ApplyServerPush inserts a pushed record unless its ID is already present.
// A duplicate push is a no-op. Unread records increment the counter.
// It reports whether the record was inserted.
func (s *Store) ApplyServerPush(rec Record) (bool, error) {
	return s.insert(rec)
}

// InsertLocal inserts a record created by the application with the same
// rules as ApplyServerPush. A missing ID or CreatedAt is filled in. The
// stored record is returned.
func (s *Store) InsertLocal(rec Record) (Record, bool, error) {
	if rec.ID == "" {
		rec.ID = s.newID()
	}
	if rec.Category == "" {
		rec.Category = CategoryGeneral
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	inserted, err := s.insert(rec)
	return rec, inserted, err
}

func (s *Store) insert(rec Record) (bool, error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	if _, exists := s.ids[rec.ID]; exists {
		s.mu.Unlock()
		return false, nil
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}

	// Records are sorted descending; insert before the first record that is
	// not newer, so equal timestamps keep arrival order newest first.
	idx := sort.Search(len(s.records), func(i int) bool {
		return !s.records[i].CreatedAt.After(rec.CreatedAt)
	})
	s.records = slices.Insert(s.records, idx, rec)
	s.ids[rec.ID] = struct{}{}
	if !rec.Read {
		s.unread++
	}
	s.emit(Change{Kind: ChangeInserted, ID: rec.ID, Unread: s.unread})
	s.mu.Unlock()
	return true, nil
}

// ApplyServerCount replaces the unread counter with the authoritative value n.
func (s *Store) ApplyServerCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeCount, n)
	}

	s.mu.Lock()
	s.unread = n
	s.emit(Change{Kind: ChangeCount, Unread: n})
	s.mu.Unlock()
	return nil
}

// ApplyServerMarkAllRead marks every record read and zeroes the counter.
func (s *Store) ApplyServerMarkAllRead() {
	s.markAll()
}

// MarkAllRead marks every record read and zeroes the counter.
func (s *Store) MarkAllRead() {
	s.markAll()
}

func (s *Store) markAll() {
	s.mu.Lock()
	for i := range s.records {
		s.records[i].Read = true
	}
	s.unread = 0
	s.emit(Change{Kind: ChangeAllRead})
	s.mu.Unlock()
}

// MarkOneRead marks the record read and decrements the counter, floored at
// zero. Unknown or already read IDs are a silent no-op. It reports whether a
// record changed.
func (s *Store) MarkOneRead(id string) bool {
	s.mu.Lock()
	if _, ok := s.ids[id]; !ok {
		s.mu.Unlock()
		return false
	}
	idx := slices.IndexFunc(s.records, func(r Record) bool { return r.ID == id })
	if idx < 0 || s.records[idx].Read {
		s.mu.Unlock()
		return false
	}
	s.records[idx].Read = true
	s.unread = max(s.unread-1, 0)
	s.emit(Change{Kind: ChangeRead, ID: id, Unread: s.unread})
	s.mu.Unlock()
	return true
}

// ClearAll drops every record and zeroes the counter.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.records = nil
	clear(s.ids)
	s.unread = 0
	s.emit(Change{Kind: ChangeCleared})
	s.mu.Unlock()
}

// List returns a snapshot of the records, newest first.
func (s *Store) List() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Get returns a copy of the record with the given ID.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ids[id]; !ok {
		return Record{}, false
	}
	idx := slices.IndexFunc(s.records, func(r Record) bool { return r.ID == id })
	if idx < 0 {
		return Record{}, false
	}
	return s.records[idx], true
}

// UnreadCount returns the current unread counter.
func (s *Store) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unread
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Subscribe returns a feed of changes applied after the call.
// The feed ends when ctx is cancelled or the store is closed.
func (s *Store) Subscribe(ctx context.Context) broadcast.Subscriber[Change] {
	return s.changes.Subscribe(ctx)
}

// Close ends every change subscription. The store stays readable.
func (s *Store) Close() error {
	return s.changes.Close()
}

// emit must be called with s.mu held so the feed follows mutation order.
// Broadcast never blocks.
func (s *Store) emit(c Change) {
	_ = s.changes.Broadcast(context.Background(), broadcast.Message[Change]{Data: c})
}
