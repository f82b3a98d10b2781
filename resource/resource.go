package resource

import (
	"fmt"
	"strings"
)

// A Record is the desired state for a single remote resource, as declared by
// the user in configuration.
type Record struct {
	// Name is a unique name (within the same type) for the resource. The
	// name is assigned by the user and is distinct from the identifier the
	// remote system assigns on creation.
	Name string

	// Type specifies what type of resource this is.
	//
	// The type selects the schema that is used for validating attributes
	// and deciding which changes force a replacement.
	Type string

	// Attrs are the desired attribute values. Values are plain
	// JSON-compatible types (string, float64, bool, []interface{},
	// map[string]interface{}).
	Attrs map[string]interface{}

	// DependsOn lists logical names ("type.name") that must converge before
	// this record is reconciled.
	DependsOn []string
}

// Addr returns the logical address of the record, used as the key for state
// storage and per-name serialization.
func (r Record) Addr() string { return r.Type + "." + r.Name }

// A Handle is the remote system's view of a resource: the identifier it
// assigned plus the attribute values it last reported.
//
// Handles are owned by the adapter layer. Callers receive them from Create
// and pass them back to Read, Update and Delete; they never construct one.
type Handle struct {
	Name  string                 // Logical name the handle belongs to.
	Type  string                 // Resource type.
	ID    string                 // Remote identifier, assigned on create.
	Token string                 // Mutation token sent as idempotency key.
	State Status                 // Last reported status.
	Attrs map[string]interface{} // Last observed attribute values.
}

// Addr returns the logical address of the handle.
func (h Handle) Addr() string { return h.Type + "." + h.Name }

// Status is the remote resource's lifecycle state.
type Status string

const (
	// StatusPending is set while a mutating call has been accepted but the
	// remote system has not reached a terminal state.
	StatusPending Status = "pending"

	// StatusReady indicates the remote system confirmed provisioning and the
	// observed attributes satisfy the most recently applied record.
	StatusReady Status = "ready"

	// StatusError is terminal; the caller must intervene before the resource
	// is touched again.
	StatusError Status = "error"

	// StatusDeleting is set after a delete was issued but before the remote
	// system confirmed the resource is gone. A retried delete resumes from
	// here instead of blindly re-issuing.
	StatusDeleting Status = "deleting"

	// StatusDeleted indicates the remote system confirmed deletion.
	StatusDeleted Status = "deleted"
)

// Terminal returns true if the status will not change without another
// mutating call.
func (s Status) Terminal() bool {
	switch s {
	case StatusReady, StatusError, StatusDeleted:
		return true
	}
	return false
}

// ParseStatus converts a status string reported by the remote API. Matching
// is case-insensitive as remote systems are not consistent about casing.
func ParseStatus(str string) (Status, error) {
	switch strings.ToLower(str) {
	case "pending":
		return StatusPending, nil
	case "ready":
		return StatusReady, nil
	case "error":
		return StatusError, nil
	case "deleting":
		return StatusDeleting, nil
	case "deleted":
		return StatusDeleted, nil
	}
	return "", fmt.Errorf("unknown status %q", str)
}
