package remotetest

import (
	"context"
	"sync"

	"github.com/recon/recon/remote"
)

// A Recorder wraps a remote.API and records every call made through it, for
// asserting on exactly which remote calls an operation issued.
type Recorder struct {
	API remote.API

	mu    sync.Mutex
	Calls []Call
}

// A Call is a recorded API call.
type Call struct {
	Method string // Create / Read / Update / Delete
	ID     string // Resource id, empty for Create.
	Attrs  map[string]interface{}
	Err    error // Error returned from the underlying API.
}

// Count returns the number of recorded calls with the given method.
func (r *Recorder) Count(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Mutations returns the number of recorded mutating calls (everything except
// Read).
func (r *Recorder) Mutations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.Calls {
		if c.Method != "Read" {
			n++
		}
	}
	return n
}

// Reset discards recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.Calls = nil
	r.mu.Unlock()
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.Calls = append(r.Calls, c)
	r.mu.Unlock()
}

// Create implements remote.API.
func (r *Recorder) Create(ctx context.Context, req *remote.CreateRequest) (*remote.Resource, error) {
	res, err := r.API.Create(ctx, req)
	r.record(Call{Method: "Create", Attrs: req.Attrs, Err: err})
	return res, err
}

// Read implements remote.API.
func (r *Recorder) Read(ctx context.Context, id string) (*remote.Resource, error) {
	res, err := r.API.Read(ctx, id)
	r.record(Call{Method: "Read", ID: id, Err: err})
	return res, err
}

// Update implements remote.API.
func (r *Recorder) Update(ctx context.Context, id string, attrs map[string]interface{}) (*remote.Resource, error) {
	res, err := r.API.Update(ctx, id, attrs)
	r.record(Call{Method: "Update", ID: id, Attrs: attrs, Err: err})
	return res, err
}

// Delete implements remote.API.
func (r *Recorder) Delete(ctx context.Context, id string) error {
	err := r.API.Delete(ctx, id)
	r.record(Call{Method: "Delete", ID: id, Err: err})
	return err
}

var _ remote.API = (*Recorder)(nil)
