// Package registrartest provides a recording Registrar for tests.
package registrartest

import (
	"context"
	"sync"
)

// Call is one recorded registrar invocation.
type Call struct {
	Op  string // "add" or "remove"
	UID string
}

// Recorder records every call it receives. The zero value is ready to use.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) Add(_ context.Context, uid string)    { r.record("add", uid) }
func (r *Recorder) Remove(_ context.Context, uid string) { r.record("remove", uid) }

func (r *Recorder) record(op, uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: op, UID: uid})
}

// Calls returns a copy of the recorded calls in order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Reset clears the recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
