package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uidkeeper/uidkeeper/internal/expiry"
)

// memBackend is an in-memory Backend with switchable failures.
type memBackend struct {
	mu      sync.Mutex
	recs    Records
	loadErr error
	saveErr error
	loads   int
	saves   int
}

func (m *memBackend) Name() string { return "mem" }

func (m *memBackend) Load(context.Context) (Records, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := Records{}
	for k, v := range m.recs {
		out[k] = v
	}
	return out, nil
}

func (m *memBackend) Save(_ context.Context, recs Records) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.recs = Records{}
	for k, v := range recs {
		m.recs[k] = v
	}
	return nil
}

type countingObserver struct {
	loadFailed, saveFailed, tracked int
}

func (c *countingObserver) StoreLoadFailed() { c.loadFailed++ }
func (c *countingObserver) StoreSaveFailed() { c.saveFailed++ }
func (c *countingObserver) Tracked(n int)     { c.tracked = n }

func TestUpdate_PersistsMutation(t *testing.T) {
	b := &memBackend{}
	st := New(b, nil)

	st.Update(context.Background(), func(r Records) { r["abc"] = expiry.Never() })

	require.Contains(t, b.recs, "abc")
	assert.True(t, b.recs["abc"].Permanent)
	assert.Equal(t, 1, b.loads)
	assert.Equal(t, 1, b.saves)
}

func TestUpdate_Overwrites(t *testing.T) {
	b := &memBackend{}
	st := New(b, nil)
	ctx := context.Background()
	at := expiry.At(time.Date(2030, 1, 1, 0, 0, 0, 0, time.Local))

	st.Update(ctx, func(r Records) { r["abc"] = expiry.Never() })
	st.Update(ctx, func(r Records) { r["abc"] = at })

	assert.False(t, b.recs["abc"].Permanent)
	assert.Equal(t, "2030-01-01 00:00:00", b.recs["abc"].String())
}

func TestView_DoesNotSave(t *testing.T) {
	b := &memBackend{recs: Records{"abc": expiry.Never()}}
	st := New(b, nil)

	var seen bool
	st.View(context.Background(), func(r Records) { _, seen = r["abc"] })

	assert.True(t, seen)
	assert.Equal(t, 0, b.saves)
}

func TestLoadFailure_EmptySet(t *testing.T) {
	b := &memBackend{recs: Records{"abc": expiry.Never()}, loadErr: errors.New("boom")}
	obs := &countingObserver{}
	st := New(b, obs)

	var n = -1
	st.View(context.Background(), func(r Records) { n = len(r) })

	assert.Equal(t, 0, n)
	assert.Equal(t, 1, obs.loadFailed)
}

func TestSaveFailure_Swallowed(t *testing.T) {
	b := &memBackend{saveErr: errors.New("disk full")}
	obs := &countingObserver{}
	st := New(b, obs)

	st.Update(context.Background(), func(r Records) { r["abc"] = expiry.Never() })

	assert.Equal(t, 1, obs.saveFailed)
	assert.Empty(t, b.recs)
}

func TestObserver_Tracked(t *testing.T) {
	obs := &countingObserver{}
	st := New(&memBackend{}, obs)

	st.Update(context.Background(), func(r Records) {
		r["a"] = expiry.Never()
		r["b"] = expiry.Never()
	})
	assert.Equal(t, 2, obs.tracked)
}

func TestConcurrentUpdates_Serialized(t *testing.T) {
	b := &memBackend{}
	st := New(b, nil)
	ctx := context.Background()

	var active, maxActive int32
	enter := func() {
		n := atomic.AddInt32(&active, 1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt32(&active, -1)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			st.Update(ctx, func(r Records) {
				enter()
				r[string(rune('a'+n%26))+"-uid"] = expiry.Never()
			})
		}(i)
		go func() {
			defer wg.Done()
			st.View(ctx, func(Records) { enter() })
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive), "operations must not overlap")
	assert.Len(t, b.recs, 26)
}
