package reconciler

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/uidkeeper/uidkeeper/internal/registrar"
	"github.com/uidkeeper/uidkeeper/internal/store"
)

// DefaultInterval is the pause between reconciliation cycles.
const DefaultInterval = time.Second

// Listener is told which UIDs each cycle removed. removed may be empty.
type Listener interface {
	Reconciled(removed []string)
}

// Reconciler deletes expired UIDs from the store and from the remote
// registrar.
type Reconciler struct {
	store     *store.Store
	registrar registrar.Registrar
	interval  time.Duration
	listeners []Listener
	now       func() time.Time // injectable for deterministic tests
}

// New creates a Reconciler. A non-positive interval falls back to DefaultInterval.
func New(st *store.Store, reg registrar.Registrar, interval time.Duration, listeners ...Listener) *Reconciler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reconciler{
		store:     st,
		registrar: reg,
		interval:  interval,
		listeners: listeners,
		now:       time.Now,
	}
}

// Run performs a cycle, sleeps for the interval, and repeats until ctx is
// cancelled. A cycle in progress always runs to completion.
func (r *Reconciler) Run(ctx context.Context) {
	slog.Info("reconciler: started", "interval", r.interval)

	for {
		r.Cycle(ctx, r.now())

		t := time.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			slog.Info("reconciler: stopped")
			return
		case <-t.C:
		}
	}
}

// Cycle runs one reconciliation against now and returns the removed UIDs in
// sorted order. Each due UID is removed from the registrar first; a failed
// remote call does not keep the local record. Cancelling ctx does not abort a
// cycle that has started.
func (r *Reconciler) Cycle(ctx context.Context, now time.Time) []string {
	// Once a UID is deleted locally its remote removal must not be cut short
	// by shutdown, or the allow-list keeps it.
	ctx = context.WithoutCancel(ctx)

	var removed []string

	r.store.Update(ctx, func(recs store.Records) {
		for uid, exp := range recs {
			if exp.DueAt(now) {
				removed = append(removed, uid)
			}
		}
		sort.Strings(removed)

		for _, uid := range removed {
			r.registrar.Remove(ctx, uid)
			delete(recs, uid)
			slog.Info("reconciler: deleted expired uid", "uid", uid)
		}
	})

	for _, l := range r.listeners {
		l.Reconciled(removed)
	}
	return removed
}
