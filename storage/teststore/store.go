// Package teststore provides an in-memory handle store that records every
// call made against it, for asserting on reconciler behavior in tests.
package teststore

import (
	"context"
	"fmt"
	"sync"

	"github.com/recon/recon/storage"
)

// A Store keeps stored handles in memory and records events.
type Store struct {
	mu     sync.Mutex
	data   map[string]storage.Stored
	Events Events
}

// Events is a collection of recorded events.
type Events []Event

// An Event is a recorded store call.
type Event struct {
	Method  string // Put / Delete / List
	Project string
	Addr    string // Logical address, empty for List.
}

func (ev Event) String() string {
	if ev.Addr == "" {
		return fmt.Sprintf("%s(%s)", ev.Method, ev.Project)
	}
	return fmt.Sprintf("%s(%s, %s)", ev.Method, ev.Project, ev.Addr)
}

func key(ns, project, addr string) string {
	return fmt.Sprintf("%s/%s/%s", ns, project, addr)
}

// Seed inserts stored handles without recording events. Seed can be run
// multiple times for adding handles to multiple namespaces or projects.
func (s *Store) Seed(ns, project string, stored []storage.Stored) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]storage.Stored)
	}
	for _, st := range stored {
		s.data[key(ns, project, st.Handle.Addr())] = st
	}
}

// Put creates or updates a stored handle.
func (s *Store) Put(ctx context.Context, ns, project string, st storage.Stored) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string]storage.Stored)
	}
	s.data[key(ns, project, st.Handle.Addr())] = st
	s.Events = append(s.Events, Event{Method: "Put", Project: project, Addr: st.Handle.Addr()})
	return nil
}

// Delete removes a stored handle. No-op if the handle does not exist.
func (s *Store) Delete(ctx context.Context, ns, project, addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key(ns, project, addr))
	s.Events = append(s.Events, Event{Method: "Delete", Project: project, Addr: addr})
	return nil
}

// List returns all stored handles for a namespace-project, in no particular
// order.
func (s *Store) List(ctx context.Context, ns, project string) ([]storage.Stored, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prefix := key(ns, project, "")
	var out []storage.Stored
	for k, st := range s.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			out = append(out, st)
		}
	}
	s.Events = append(s.Events, Event{Method: "List", Project: project})
	return out, nil
}

// Handle returns the stored handle for an address, if present.
func (s *Store) Handle(ns, project, addr string) (storage.Stored, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data[key(ns, project, addr)]
	return st, ok
}
