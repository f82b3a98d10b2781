package adapter

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/recon/recon/resource"
)

// A ValidationError reports a record whose attributes failed local checks.
// The record was never sent to the remote API.
type ValidationError struct {
	Addr string // Logical address of the record.
	Err  error  // Per-field failures, combined.
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate %s: %v", e.Addr, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// IsValidation returns true if the error is a local validation failure.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// A NotFoundError is returned from Read when the remote system reports the
// resource does not exist. This is an expected outcome (the resource was
// deleted out-of-band), distinguishable from a transient failure.
type NotFoundError struct {
	Addr string
	ID   string
	Err  error // The underlying 404 from the remote API.
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("read %s: remote resource %s not found", e.Addr, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// IsNotFound returns true if the error reports a resource that no longer
// exists remotely.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// A ReplacementError signals that a diff touches attributes the schema marks
// immutable: the change cannot be applied in place and the resource must be
// destroyed and recreated. No update call was issued.
//
// It is a signal requiring caller-level orchestration, not a remote failure.
type ReplacementError struct {
	Addr string
	// Fields are the immutable attributes the diff touches, sorted.
	Fields []string
	// CreateBeforeDestroy carries the schema's replacement ordering so the
	// orchestrating caller does not need a second schema lookup.
	CreateBeforeDestroy bool
}

func (e *ReplacementError) Error() string {
	return fmt.Sprintf("update %s: change to %s requires replacement", e.Addr, strings.Join(e.Fields, ", "))
}

// IsRequiresReplacement returns true if the error signals a required
// replacement. The typed error is available via errors.As.
func IsRequiresReplacement(err error) bool {
	var e *ReplacementError
	return errors.As(err, &e)
}

// A ProvisioningError reports a resource the remote system settled in the
// error status after a create or update. The handle carries the last
// observed state; the resource exists remotely and is surfaced, never
// silently discarded.
type ProvisioningError struct {
	Addr   string
	Op     string // create / update
	Handle resource.Handle
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s %s: remote resource %s reported status %s", e.Op, e.Addr, e.Handle.ID, e.Handle.State)
}

// IsProvisioningFailed returns true if the remote system settled the
// resource in the error status.
func IsProvisioningFailed(err error) bool {
	var e *ProvisioningError
	return errors.As(err, &e)
}

// A TimeoutError reports a resource that never reached a terminal state
// within the configured wait budget. The remote call itself was accepted;
// the handle carries the last known status so the caller can decide to keep
// polling manually.
type TimeoutError struct {
	Addr   string
	Op     string // create / update / delete
	Handle resource.Handle
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: timed out waiting for remote resource %s (last status %s)",
		e.Op, e.Addr, e.Handle.ID, e.Handle.State)
}

// IsTimeout returns true if the operation exceeded its wait budget.
func IsTimeout(err error) bool {
	var e *TimeoutError
	return errors.As(err, &e)
}
