package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/uidkeeper/uidkeeper/internal/expiry"
)

// Metric names exposed on /metrics.
const (
	UIDsAdded         = "uidkeeper_uids_added_total"
	UIDsExpired       = "uidkeeper_uids_expired_total"
	UIDsTracked       = "uidkeeper_uids_tracked"
	ReconcileCycles   = "uidkeeper_reconcile_cycles_total"
	RegistrarFailures = "uidkeeper_registrar_failures_total"
	StoreLoadFailures = "uidkeeper_store_load_failures_total"
	StoreSaveFailures = "uidkeeper_store_save_failures_total"
)

// Registry holds the process counters. It satisfies the observer and listener
// interfaces of the store, registrar, reconciler and api packages, so one
// value can be handed to all of them.
type Registry struct {
	added     atomic.Int64
	expired   atomic.Int64
	tracked   atomic.Int64
	cycles    atomic.Int64
	loadFails atomic.Int64
	saveFails atomic.Int64

	mu             sync.Mutex
	registrarFails map[string]int64 // keyed by op
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{registrarFails: make(map[string]int64)}
}

// UIDAdded counts a successful add.
func (r *Registry) UIDAdded(string, expiry.Expiration) { r.added.Add(1) }

// Reconciled counts one cycle and the UIDs it removed.
func (r *Registry) Reconciled(removed []string) {
	r.cycles.Add(1)
	r.expired.Add(int64(len(removed)))
}

func (r *Registry) StoreLoadFailed() { r.loadFails.Add(1) }
func (r *Registry) StoreSaveFailed() { r.saveFails.Add(1) }
func (r *Registry) Tracked(n int)    { r.tracked.Store(int64(n)) }

// RegistrarFailed counts a failed registrar call for op.
func (r *Registry) RegistrarFailed(op string) {
	r.mu.Lock()
	r.registrarFails[op]++
	r.mu.Unlock()
}

// Families returns the current values as Prometheus metric families, sorted
// by name.
func (r *Registry) Families() []*dto.MetricFamily {
	fams := []*dto.MetricFamily{
		counter(UIDsAdded, "UIDs added through the API.", r.added.Load()),
		counter(UIDsExpired, "UIDs deleted by the reconciler.", r.expired.Load()),
		counter(ReconcileCycles, "Completed reconciliation cycles.", r.cycles.Load()),
		counter(StoreLoadFailures, "Store loads that fell back to an empty set.", r.loadFails.Load()),
		counter(StoreSaveFailures, "Store saves that failed.", r.saveFails.Load()),
		gauge(UIDsTracked, "UIDs held in the store after the last save.", r.tracked.Load()),
		r.registrarFamily(),
	}
	sort.Slice(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

// Write encodes all families to w in the Prometheus text format.
func (r *Registry) Write(w io.Writer) error {
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range r.Families() {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// ServeHTTP serves the text exposition.
func (r *Registry) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	if err := r.Write(w); err != nil {
		slog.Error("metrics: write failed", "err", err)
	}
}

func (r *Registry) registrarFamily() *dto.MetricFamily {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Always expose both ops so dashboards see zeros instead of gaps.
	ops := map[string]int64{"add": 0, "remove": 0}
	for op, n := range r.registrarFails {
		ops[op] = n
	}
	names := make([]string, 0, len(ops))
	for op := range ops {
		names = append(names, op)
	}
	sort.Strings(names)

	mf := &dto.MetricFamily{
		Name: ptr(RegistrarFailures),
		Help: ptr("Registrar calls that failed, by operation."),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, op := range names {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label:   []*dto.LabelPair{{Name: ptr("op"), Value: ptr(op)}},
			Counter: &dto.Counter{Value: ptr(float64(ops[op]))},
		})
	}
	return mf
}

func counter(name, help string, v int64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{Counter: &dto.Counter{Value: ptr(float64(v))}}},
	}
}

func gauge(name, help string, v int64) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name:   ptr(name),
		Help:   ptr(help),
		Type:   dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{{Gauge: &dto.Gauge{Value: ptr(float64(v))}}},
	}
}

func ptr[T any](v T) *T { return &v }
