package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/uidkeeper/uidkeeper/internal/expiry"
)

// Records maps a UID to its expiration descriptor.
type Records map[string]expiry.Expiration

// Backend persists the full record set. Implementations report errors; the
// Store decides how to recover from them.
type Backend interface {
	Name() string
	Load(ctx context.Context) (Records, error)
	Save(ctx context.Context, recs Records) error
}

// Observer is notified of storage outcomes. It is optional.
type Observer interface {
	StoreLoadFailed()
	StoreSaveFailed()
	Tracked(n int)
}

// Store serializes every access to a Backend behind one mutex. The lock is
// held for the whole load-mutate-save sequence of each operation.
type Store struct {
	mu       sync.Mutex
	backend  Backend
	observer Observer
}

// New creates a Store over b. obs may be nil.
func New(b Backend, obs Observer) *Store {
	return &Store{backend: b, observer: obs}
}

// Backend returns the name of the underlying backend.
func (s *Store) Backend() string {
	return s.backend.Name()
}

// Update loads the current records, passes them to fn for mutation, and saves
// the result, all under the store lock. Load failures are replaced by an
// empty set and save failures are logged; neither reaches the caller.
func (s *Store) Update(ctx context.Context, fn func(Records)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs := s.load(ctx)
	fn(recs)
	s.save(ctx, recs)
}

// View loads the current records and passes them to fn under the store lock.
// Nothing is written back; fn must not retain recs.
func (s *Store) View(ctx context.Context, fn func(Records)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(s.load(ctx))
}

func (s *Store) load(ctx context.Context) Records {
	recs, err := s.backend.Load(ctx)
	if err != nil {
		slog.Warn("store: load failed — continuing with empty set",
			"backend", s.backend.Name(), "err", err)
		if s.observer != nil {
			s.observer.StoreLoadFailed()
		}
		return Records{}
	}
	if recs == nil {
		recs = Records{}
	}
	return recs
}

func (s *Store) save(ctx context.Context, recs Records) {
	if err := s.backend.Save(ctx, recs); err != nil {
		slog.Error("store: save failed", "backend", s.backend.Name(), "err", err)
		if s.observer != nil {
			s.observer.StoreSaveFailed()
		}
		return
	}
	if s.observer != nil {
		s.observer.Tracked(len(recs))
	}
}
