// Package remote defines the capability interface for a remote
// resource-management API and an HTTP implementation of it.
//
// Any resource kind that exposes create/read/update/delete semantics over an
// addressable API can be managed through this interface; the adapter on top
// of it is written once, not per resource shape.
package remote

import "context"

// A Resource is the remote system's representation of a managed resource.
type Resource struct {
	ID     string                 `json:"id"`
	Status string                 `json:"status"`
	Attrs  map[string]interface{} `json:"attributes,omitempty"`
}

// A CreateRequest contains the attributes for a new resource.
type CreateRequest struct {
	// Attrs are the declared attribute values, sent as the request body.
	Attrs map[string]interface{}

	// Name is the caller's logical name and Token a per-mutation token.
	// Together they form the idempotency key for the create, so the remote
	// system can detect a retried request after an ambiguous failure.
	Name  string
	Token string
}

// API is the minimal contract a remote resource-management service must
// expose.
//
// Implementations must be safe for concurrent use; the reconciler calls them
// from one worker per logical name.
type API interface {
	// Create provisions a new resource and returns its identifier and
	// initial status.
	Create(ctx context.Context, req *CreateRequest) (*Resource, error)

	// Read returns the current state of a resource. A resource that does not
	// exist yields an error for which IsNotFound returns true; out-of-band
	// deletion is an expected outcome, not a transport failure.
	Read(ctx context.Context, id string) (*Resource, error)

	// Update applies the given attribute changes in place. Only changed
	// attributes are sent.
	Update(ctx context.Context, id string, attrs map[string]interface{}) (*Resource, error)

	// Delete removes a resource. Deleting a resource that is already gone is
	// not an error.
	Delete(ctx context.Context, id string) error
}
