// Package remotetest provides an in-memory resource server and a call
// recorder for testing code that talks to a remote resource API.
package remotetest

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/recon/recon/remote"
)

// A Server is an in-memory implementation of remote.API for tests.
//
// By default, created resources report ready immediately. The exported
// fields script other behaviors; they must be set before the server is used
// and not changed while calls are in flight.
type Server struct {
	// PendingReads is the number of reads a freshly created or updated
	// resource reports pending before becoming ready. Zero means resources
	// are ready as soon as they are created.
	PendingReads int

	// NeverTerminal keeps every resource pending forever, for exercising
	// timeout handling.
	NeverTerminal bool

	// FailStatus makes every created or updated resource settle in the
	// error status instead of ready.
	FailStatus bool

	// Latency is an artificial delay applied to every call.
	Latency time.Duration

	// Reject, when non-nil, is returned from every mutating call. Reads are
	// unaffected.
	Reject error

	mu      sync.Mutex
	nextID  int
	data    map[string]*entry
	deleted map[string]bool
}

type entry struct {
	res     *remote.Resource
	pending int // remaining reads before the resource settles
}

// Seed inserts a ready resource with the given id and attributes, as if it
// had been created earlier.
func (s *Server) Seed(id string, attrs map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*entry)
	}
	s.data[id] = &entry{res: &remote.Resource{ID: id, Status: "ready", Attrs: attrs}}
}

// Create implements remote.API.
func (s *Server) Create(ctx context.Context, req *remote.CreateRequest) (*remote.Resource, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.Reject != nil {
		return nil, s.Reject
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]*entry)
	}
	s.nextID++
	id := fmt.Sprintf("r-%d", s.nextID)

	attrs := make(map[string]interface{}, len(req.Attrs))
	for k, v := range req.Attrs {
		attrs[k] = v
	}
	e := &entry{
		res:     &remote.Resource{ID: id, Attrs: attrs},
		pending: s.PendingReads,
	}
	s.settle(e)
	s.data[id] = e

	return s.view(e), nil
}

// view returns a copy of the entry's resource so callers never alias the
// server's internal state.
func (s *Server) view(e *entry) *remote.Resource {
	out := *e.res
	out.Attrs = make(map[string]interface{}, len(e.res.Attrs))
	for k, v := range e.res.Attrs {
		out.Attrs[k] = v
	}
	if e.pending > 0 || s.NeverTerminal {
		out.Status = "pending"
	}
	return &out
}

// Read implements remote.API.
func (s *Server) Read(ctx context.Context, id string) (*remote.Resource, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[id]
	if !ok {
		return nil, s.notFound(http.MethodGet, id)
	}
	if e.pending > 0 {
		e.pending--
	}
	return s.view(e), nil
}

// Update implements remote.API.
func (s *Server) Update(ctx context.Context, id string, attrs map[string]interface{}) (*remote.Resource, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.Reject != nil {
		return nil, s.Reject
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.data[id]
	if !ok {
		return nil, s.notFound(http.MethodPatch, id)
	}
	for k, v := range attrs {
		e.res.Attrs[k] = v
	}
	e.pending = s.PendingReads
	s.settle(e)

	return s.view(e), nil
}

// Delete implements remote.API. Deleting a resource that does not exist
// returns a 404 error, matching the REST contract; the adapter is expected
// to treat it as success.
func (s *Server) Delete(ctx context.Context, id string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.Reject != nil {
		return s.Reject
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; !ok {
		return s.notFound(http.MethodDelete, id)
	}
	if s.NeverTerminal {
		// Deletion was accepted but never confirms; the resource stays
		// visible in a deleting state.
		s.data[id].res.Status = "deleting"
		return nil
	}
	delete(s.data, id)
	if s.deleted == nil {
		s.deleted = make(map[string]bool)
	}
	s.deleted[id] = true
	return nil
}

// Forget drops a resource without going through Delete, simulating
// out-of-band removal.
func (s *Server) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
}

// Exists reports whether the server currently holds a resource with the id.
func (s *Server) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[id]
	return ok
}

func (s *Server) settle(e *entry) {
	if s.FailStatus {
		e.res.Status = "error"
		return
	}
	e.res.Status = "ready"
}

func (s *Server) notFound(method, id string) error {
	return &remote.Error{
		Method:     method,
		URL:        "/resources/" + id,
		StatusCode: http.StatusNotFound,
		Body:       []byte(`{"error": "resource not found"}`),
	}
}

func (s *Server) wait(ctx context.Context) error {
	if s.Latency == 0 {
		return ctx.Err()
	}
	select {
	case <-time.After(s.Latency):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ remote.API = (*Server)(nil)
