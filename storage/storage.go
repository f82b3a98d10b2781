// Package storage persists remote resource handles between runs, so a later
// reconciliation can find the remote identifiers an earlier run obtained.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/recon/recon/resource"
)

// ErrNotFound is returned when attempting to get or delete an item that does
// not exist.
var ErrNotFound = errors.New("not found")

// The KVBackend is used for persisting key-value data.
type KVBackend interface {
	// Put creates or updates a key.
	Put(ctx context.Context, key string, value []byte) error

	// Get returns the given key. Returns ErrNotFound if the given key does
	// not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete deletes a key. Returns ErrNotFound if the given key does not
	// exist.
	Delete(ctx context.Context, key string) error

	// Scan returns a key-value map of all keys matching the given prefix.
	Scan(ctx context.Context, prefix string) (map[string][]byte, error)
}

// KV stores handles in a key-value backend.
type KV struct {
	Backend KVBackend
}

// an envelope wraps the handle data when marshalling to json.
type envelope struct {
	Name  string                 `json:"name"`
	Type  string                 `json:"type"`
	ID    string                 `json:"id"`
	Token string                 `json:"token,omitempty"`
	State string                 `json:"state"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
	Hash  string                 `json:"hash,omitempty"`
}

// A Stored is a persisted handle together with the hash of the record that
// produced it. The hash lets the reconciler skip records whose desired state
// has not changed since the last run.
type Stored struct {
	Handle resource.Handle
	Hash   string
}

// key computes the storage key for a handle address within a
// namespace-project.
func key(ns, project, addr string) string {
	return fmt.Sprintf("%s/%s/%s", ns, project, addr)
}

// Put creates or updates a stored handle for a namespace-project.
func (kv *KV) Put(ctx context.Context, ns, project string, s Stored) error {
	env := envelope{
		Name:  s.Handle.Name,
		Type:  s.Handle.Type,
		ID:    s.Handle.ID,
		Token: s.Handle.Token,
		State: string(s.Handle.State),
		Attrs: s.Handle.Attrs,
		Hash:  s.Hash,
	}
	j, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}

	if err := kv.Backend.Put(ctx, key(ns, project, s.Handle.Addr()), j); err != nil {
		return errors.Wrap(err, "store")
	}
	return nil
}

// Delete deletes a single stored handle.
func (kv *KV) Delete(ctx context.Context, ns, project, addr string) error {
	if err := kv.Backend.Delete(ctx, key(ns, project, addr)); err != nil {
		return errors.Wrap(err, "delete")
	}
	return nil
}

// List lists all stored handles for a given namespace-project. Handles may
// be returned in any order.
func (kv *KV) List(ctx context.Context, ns, project string) ([]Stored, error) {
	prefix := fmt.Sprintf("%s/%s/", ns, project)
	values, err := kv.Backend.Scan(ctx, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "scan")
	}

	ret := make([]Stored, 0, len(values))
	for _, v := range values {
		var env envelope
		if err := json.Unmarshal(v, &env); err != nil {
			return nil, errors.Wrap(err, "unmarshal stored handle")
		}
		ret = append(ret, Stored{
			Handle: resource.Handle{
				Name:  env.Name,
				Type:  env.Type,
				ID:    env.ID,
				Token: env.Token,
				State: resource.Status(env.State),
				Attrs: env.Attrs,
			},
			Hash: env.Hash,
		})
	}
	return ret, nil
}
