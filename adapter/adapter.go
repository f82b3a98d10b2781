// Package adapter keeps a single remote resource aligned with a declared
// record.
//
// The adapter is written once against the remote.API capability interface
// and is polymorphic over the resource type: create, read, update and delete
// follow the same protocol for every kind of resource the remote system can
// address.
//
// All four operations perform network I/O and may block while waiting for
// the remote API. Create, Update and Delete additionally poll for a
// terminal state on a bounded exponential backoff. Cancelling the context
// stops polling but never issues a compensating call; the remote resource is
// left in whatever state the last completed call produced.
package adapter

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/recon/recon/remote"
	"github.com/recon/recon/resource"
	"github.com/recon/recon/resource/schema"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// Default option values, used when the caller does not supply one.
var (
	DefaultTimeout      = 5 * time.Minute
	DefaultMaxRetries   = 5
	DefaultPollInterval = 2 * time.Second
)

// Options configure wait and retry behavior. The zero value uses defaults;
// values are supplied by the caller, never hard-coded per resource.
type Options struct {
	// Timeout is the maximum time to wait for a resource to reach a
	// terminal state after a mutating call.
	Timeout time.Duration

	// MaxRetries is the retry budget for retryable remote failures (5xx,
	// connection errors). Client errors are never retried.
	MaxRetries int

	// PollInterval is the initial interval between polls. The interval
	// grows exponentially with jitter, capped at ten times the initial.
	PollInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.PollInterval == 0 {
		o.PollInterval = DefaultPollInterval
	}
	return o
}

// An Adapter manages remote resources through a remote.API.
//
// The adapter itself holds no per-resource mutable state and is safe for
// concurrent use; serializing operations per logical name is the
// responsibility of the caller (see the reconciler package).
type Adapter struct {
	// API is the remote resource-management service.
	API remote.API

	// Schemas validates records and decides which changes force a
	// replacement. If nil, validation is skipped.
	Schemas *schema.Registry

	// Options configure waiting and retries.
	Options Options

	// Logger logs lifecycle progress. If not set, logs are discarded.
	Logger *zap.Logger

	// Backoff is the backoff algorithm used for retrying remote calls. If
	// not set, exponential backoff is used.
	Backoff func() backoff.BackOff
}

// Create provisions a new remote resource for the record and waits for it to
// reach a terminal state.
//
// On failure the returned handle still carries whatever the remote system
// assigned: a create that was accepted but timed out or settled in error has
// produced a partial resource, and it is surfaced rather than discarded. The
// caller decides whether to retry or issue a compensating Delete; nothing is
// rolled back automatically.
func (a *Adapter) Create(ctx context.Context, record resource.Record) (resource.Handle, error) {
	handle := resource.Handle{
		Name:  record.Name,
		Type:  record.Type,
		Token: ksuid.New().String(),
		State: resource.StatusPending,
	}

	if err := a.validate(record); err != nil {
		return handle, err
	}

	logger := a.logger().With(zap.String("resource", record.Addr()))
	logger.Info("Creating resource")

	var res *remote.Resource
	err := a.retry(ctx, logger, func() error {
		r, err := a.API.Create(ctx, &remote.CreateRequest{
			Attrs: record.Attrs,
			Name:  record.Addr(),
			Token: handle.Token,
		})
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return handle, errors.Wrapf(err, "create %s", record.Addr())
	}

	handle.ID = res.ID
	handle.State = parseStatus(logger, res.Status)
	handle.Attrs = res.Attrs
	if handle.Attrs == nil {
		// The create response carries only {id, status}; until a read
		// observes the remote state, the declared attributes are the best
		// available view.
		handle.Attrs = record.Attrs
	}

	logger.Debug("Create accepted", zap.String("id", handle.ID), zap.String("status", string(handle.State)))

	return a.awaitProvisioned(ctx, logger, handle, "create")
}

// Read refreshes the handle with the attributes and status the remote system
// currently reports.
//
// If the remote system reports the resource does not exist, the returned
// error satisfies IsNotFound: the resource was deleted out-of-band, which is
// an expected outcome and distinct from a transient failure.
func (a *Adapter) Read(ctx context.Context, handle resource.Handle) (resource.Handle, error) {
	logger := a.logger().With(zap.String("resource", handle.Addr()))

	res, err := a.read(ctx, logger, handle.ID)
	if err != nil {
		if remote.IsNotFound(err) {
			handle.State = resource.StatusDeleted
			return handle, &NotFoundError{Addr: handle.Addr(), ID: handle.ID, Err: err}
		}
		return handle, errors.Wrapf(err, "read %s", handle.Addr())
	}

	handle.State = parseStatus(logger, res.Status)
	if res.Attrs != nil {
		handle.Attrs = res.Attrs
	}
	return handle, nil
}

// Update reconciles the handle's observed attributes with the record.
//
// If the diff is empty, Update is a no-op: the handle is returned unchanged
// and no remote call is made. If the diff touches an attribute the schema
// marks immutable, a ReplacementError is returned before any call is issued;
// replacement is an explicit delete/create sequence orchestrated by the
// caller, never implicit. Otherwise only the changed attributes are sent.
func (a *Adapter) Update(ctx context.Context, handle resource.Handle, record resource.Record) (resource.Handle, error) {
	if err := a.validate(record); err != nil {
		return handle, err
	}

	diff := resource.Compute(record, handle.Attrs)
	if diff.Empty() {
		return handle, nil
	}

	logger := a.logger().With(zap.String("resource", record.Addr()))

	if s, ok := a.schemaFor(record.Type); ok {
		var immutable []string
		for _, f := range diff.Fields() {
			if s.Immutable(f) {
				immutable = append(immutable, f)
			}
		}
		if len(immutable) > 0 {
			logger.Debug("Change requires replacement", zap.Strings("fields", immutable))
			return handle, &ReplacementError{
				Addr:                record.Addr(),
				Fields:              immutable,
				CreateBeforeDestroy: s.CreateBeforeDestroy,
			}
		}
	}

	logger.Info("Updating resource", zap.Strings("fields", diff.Fields()))

	var res *remote.Resource
	err := a.retry(ctx, logger, func() error {
		r, err := a.API.Update(ctx, handle.ID, diff.Changed)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return handle, errors.Wrapf(err, "update %s", record.Addr())
	}

	handle.State = parseStatus(logger, res.Status)
	if res.Attrs != nil {
		handle.Attrs = res.Attrs
	}

	return a.awaitProvisioned(ctx, logger, handle, "update")
}

// Delete removes the remote resource and waits for the remote system to
// confirm it is gone.
//
// Deletion is idempotent: the remote system reporting the resource already
// absent is success. On timeout the returned handle is left in the deleting
// state, so a retried Delete resumes waiting instead of blindly re-issuing
// the call.
func (a *Adapter) Delete(ctx context.Context, handle resource.Handle) (resource.Handle, error) {
	logger := a.logger().With(zap.String("resource", handle.Addr()))

	if handle.State != resource.StatusDeleting {
		logger.Info("Deleting resource", zap.String("id", handle.ID))

		err := a.retry(ctx, logger, func() error {
			return a.API.Delete(ctx, handle.ID)
		})
		if err != nil {
			if remote.IsNotFound(err) {
				// Already gone, out-of-band or by an earlier attempt.
				handle.State = resource.StatusDeleted
				return handle, nil
			}
			return handle, errors.Wrapf(err, "delete %s", handle.Addr())
		}
		handle.State = resource.StatusDeleting
	} else {
		logger.Debug("Resuming delete", zap.String("id", handle.ID))
	}

	return a.awaitDeleted(ctx, logger, handle)
}

// awaitProvisioned polls the resource until it reports a terminal state.
func (a *Adapter) awaitProvisioned(ctx context.Context, logger *zap.Logger, handle resource.Handle, op string) (resource.Handle, error) {
	bo := a.pollBackoff()
	for {
		switch handle.State {
		case resource.StatusReady:
			logger.Info("Resource ready", zap.String("id", handle.ID))
			return handle, nil
		case resource.StatusError:
			return handle, &ProvisioningError{Addr: handle.Addr(), Op: op, Handle: handle}
		}

		if err := a.sleep(ctx, bo); err != nil {
			if err == errWaitExhausted {
				return handle, &TimeoutError{Addr: handle.Addr(), Op: op, Handle: handle}
			}
			return handle, err
		}

		res, err := a.read(ctx, logger, handle.ID)
		if err != nil {
			if remote.IsNotFound(err) {
				// Vanished while provisioning; surface it rather than guess.
				handle.State = resource.StatusDeleted
				return handle, &NotFoundError{Addr: handle.Addr(), ID: handle.ID, Err: err}
			}
			return handle, errors.Wrapf(err, "%s %s: poll", op, handle.Addr())
		}
		handle.State = parseStatus(logger, res.Status)
		if res.Attrs != nil {
			handle.Attrs = res.Attrs
		}
		logger.Debug("Polled", zap.String("status", string(handle.State)))
	}
}

// awaitDeleted polls until the remote system reports the resource gone.
func (a *Adapter) awaitDeleted(ctx context.Context, logger *zap.Logger, handle resource.Handle) (resource.Handle, error) {
	bo := a.pollBackoff()
	for {
		res, err := a.read(ctx, logger, handle.ID)
		if err != nil {
			if remote.IsNotFound(err) {
				logger.Info("Resource deleted", zap.String("id", handle.ID))
				handle.State = resource.StatusDeleted
				return handle, nil
			}
			return handle, errors.Wrapf(err, "delete %s: poll", handle.Addr())
		}
		if st := parseStatus(logger, res.Status); st == resource.StatusDeleted {
			handle.State = resource.StatusDeleted
			return handle, nil
		}

		if err := a.sleep(ctx, bo); err != nil {
			if err == errWaitExhausted {
				return handle, &TimeoutError{Addr: handle.Addr(), Op: "delete", Handle: handle}
			}
			return handle, err
		}
	}
}

var errWaitExhausted = errors.New("wait budget exhausted")

// sleep waits for the next poll. Returns errWaitExhausted when the wait
// budget is spent and the context error when the caller aborts.
func (a *Adapter) sleep(ctx context.Context, bo backoff.BackOff) error {
	next := bo.NextBackOff()
	if next == backoff.Stop {
		return errWaitExhausted
	}
	select {
	case <-time.After(next):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// read fetches the resource, retrying transient failures.
func (a *Adapter) read(ctx context.Context, logger *zap.Logger, id string) (*remote.Resource, error) {
	var res *remote.Resource
	err := a.retry(ctx, logger, func() error {
		r, err := a.API.Read(ctx, id)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	return res, err
}

// retry runs op, retrying failures the remote API may recover from. Client
// errors (a definitionally invalid request) are returned immediately.
func (a *Adapter) retry(ctx context.Context, logger *zap.Logger, op func() error) error {
	algo := backoff.WithContext(backoff.WithMaxRetries(a.newBackoff(), uint64(a.opts().MaxRetries)), ctx)
	notify := func(err error, dur time.Duration) {
		logger.Info("Retrying", zap.Error(err), zap.Duration("duration", dur))
	}
	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if !remote.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, algo, notify)
}

func (a *Adapter) validate(record resource.Record) error {
	if a.Schemas == nil {
		return nil
	}
	s, ok := a.Schemas.Lookup(record.Type)
	if !ok {
		return &ValidationError{Addr: record.Addr(), Err: errors.Errorf("unknown resource type %q", record.Type)}
	}
	if err := s.Validate(record.Attrs); err != nil {
		return &ValidationError{Addr: record.Addr(), Err: err}
	}
	return nil
}

func (a *Adapter) schemaFor(typename string) (schema.Schema, bool) {
	if a.Schemas == nil {
		return schema.Schema{}, false
	}
	return a.Schemas.Lookup(typename)
}

func (a *Adapter) opts() Options { return a.Options.withDefaults() }

func (a *Adapter) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *Adapter) newBackoff() backoff.BackOff {
	if a.Backoff != nil {
		return a.Backoff()
	}
	return backoff.NewExponentialBackOff()
}

// pollBackoff returns the wait schedule for terminal-state polling: bounded
// exponential growth with jitter, stopping once the configured timeout has
// elapsed.
func (a *Adapter) pollBackoff() backoff.BackOff {
	o := a.opts()
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.PollInterval
	b.MaxInterval = 10 * o.PollInterval
	b.MaxElapsedTime = o.Timeout
	return b
}

// parseStatus maps a remote status string. Unknown statuses are treated as
// pending, the safe non-terminal default, and logged.
func parseStatus(logger *zap.Logger, str string) resource.Status {
	st, err := resource.ParseStatus(str)
	if err != nil {
		logger.Debug("Unknown remote status", zap.String("status", str))
		return resource.StatusPending
	}
	return st
}
