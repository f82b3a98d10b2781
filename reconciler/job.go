package reconciler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/recon/recon/adapter"
	"github.com/recon/recon/graph"
	"github.com/recon/recon/resource"
	"github.com/recon/recon/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// job is a single reconciliation run for one namespace-project.
type job struct {
	ns      string
	project string
	graph   *graph.Graph
	adapter *adapter.Adapter
	state   StateStorage
	drift   DriftPolicy
	logger  *zap.Logger
	sem     *semaphore.Weighted

	mu       sync.Mutex
	existing map[string]storage.Stored // Stored handles from previous runs.
	kept     map[string]bool           // Addresses matched to declared records.
	process  map[*graph.Node]*task

	created, updated, deleted, unchanged uint32
}

func (j *job) createUpdate(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, leaf := range j.graph.Leaves() {
		leaf := leaf
		g.Go(func() error {
			return j.processNode(ctx, leaf)
		})
	}
	return g.Wait()
}

// stored returns the previous run's handle for an address and marks it kept
// so pruning leaves it alone.
func (j *job) stored(addr string) (storage.Stored, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	ex, ok := j.existing[addr]
	if ok {
		j.kept[addr] = true
	}
	return ex, ok
}

func (j *job) reconcileRecord(ctx context.Context, record resource.Record) error {
	addr := record.Addr()
	logger := j.logger.With(zap.String("resource", addr))

	ex, ok := j.stored(addr)
	if !ok {
		logger.Info("Creating resource")
		return j.create(ctx, record)
	}

	handle, err := j.adapter.Read(ctx, ex.Handle)
	if err != nil {
		if !adapter.IsNotFound(err) {
			return err
		}
		// Drifted: deleted outside this tool.
		switch j.drift {
		case DriftRecreate:
			logger.Info("Resource drifted, recreating")
			if err := j.state.Delete(ctx, j.ns, j.project, addr); err != nil {
				return errors.Wrapf(err, "delete drifted handle %s", addr)
			}
			return j.create(ctx, record)
		default:
			return errors.Wrapf(err, "resource %s drifted", addr)
		}
	}

	updated, err := j.adapter.Update(ctx, handle, record)
	if err != nil {
		var replace *adapter.ReplacementError
		if errors.As(err, &replace) {
			logger.Info("Replacing resource", zap.Strings("fields", replace.Fields))
			return j.replace(ctx, record, handle, replace.CreateBeforeDestroy)
		}
		return err
	}

	if err := j.put(ctx, record, updated); err != nil {
		return err
	}

	hash := resource.Hash(record)
	if hash == ex.Hash && len(resource.Compute(record, handle.Attrs).Changed) == 0 {
		logger.Debug("No changes required")
		atomic.AddUint32(&j.unchanged, 1)
	} else {
		logger.Info("Resource updated")
		atomic.AddUint32(&j.updated, 1)
	}
	return nil
}

// create provisions a record and persists the resulting handle. A handle
// that was assigned a remote id is persisted even when provisioning fails,
// so the partial resource is never lost track of.
func (j *job) create(ctx context.Context, record resource.Record) error {
	handle, err := j.adapter.Create(ctx, record)
	if err != nil {
		if handle.ID != "" {
			if perr := j.put(ctx, record, handle); perr != nil {
				j.logger.Error("Store partial handle", zap.Error(perr))
			}
		}
		return err
	}
	if err := j.put(ctx, record, handle); err != nil {
		return err
	}
	atomic.AddUint32(&j.created, 1)
	return nil
}

// replace destroys and recreates a resource whose diff cannot be applied in
// place. The sequence is explicit: with createFirst, the replacement is
// provisioned before the old resource is removed (the remote API tolerates
// both existing briefly); otherwise the old resource is removed first, with
// an availability gap until the replacement is ready.
func (j *job) replace(ctx context.Context, record resource.Record, old resource.Handle, createFirst bool) error {
	addr := record.Addr()

	if createFirst {
		next, err := j.adapter.Create(ctx, record)
		if err != nil {
			// The old resource is untouched; surface the failed create.
			return errors.Wrapf(err, "replace %s", addr)
		}
		// Track the replacement before touching the old resource. If the
		// delete below fails, the new resource must not be orphaned.
		if err := j.put(ctx, record, next); err != nil {
			return err
		}
		if _, err := j.adapter.Delete(ctx, old); err != nil {
			return errors.Wrapf(err, "replace %s: remove previous resource %s", addr, old.ID)
		}
		atomic.AddUint32(&j.updated, 1)
		return nil
	}

	if _, err := j.adapter.Delete(ctx, old); err != nil {
		return errors.Wrapf(err, "replace %s", addr)
	}
	if err := j.state.Delete(ctx, j.ns, j.project, addr); err != nil {
		return errors.Wrapf(err, "replace %s: delete stored handle", addr)
	}
	next, err := j.adapter.Create(ctx, record)
	if err != nil {
		if next.ID != "" {
			if perr := j.put(ctx, record, next); perr != nil {
				j.logger.Error("Store partial handle", zap.Error(perr))
			}
		}
		return errors.Wrapf(err, "replace %s", addr)
	}
	if err := j.put(ctx, record, next); err != nil {
		return err
	}
	atomic.AddUint32(&j.updated, 1)
	return nil
}

func (j *job) put(ctx context.Context, record resource.Record, handle resource.Handle) error {
	s := storage.Stored{Handle: handle, Hash: resource.Hash(record)}
	if err := j.state.Put(ctx, j.ns, j.project, s); err != nil {
		return errors.Wrapf(err, "store handle %s", handle.Addr())
	}
	return nil
}

// prune removes resources from previous runs that are no longer declared.
func (j *job) prune(ctx context.Context) error {
	j.mu.Lock()
	var remove []storage.Stored
	for addr, ex := range j.existing {
		if !j.kept[addr] {
			remove = append(remove, ex)
		}
	}
	j.mu.Unlock()

	if len(remove) == 0 {
		j.logger.Debug("No previous resources to remove")
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, ex := range remove {
		ex := ex
		g.Go(func() error {
			if err := j.sem.Acquire(ctx, 1); err != nil {
				return errors.Wrap(err, "acquire semaphore")
			}
			defer j.sem.Release(1)

			logger := j.logger.With(zap.String("resource", ex.Handle.Addr()))
			logger.Info("Deleting resource", zap.String("id", ex.Handle.ID))

			handle, err := j.adapter.Delete(ctx, ex.Handle)
			if err != nil {
				if adapter.IsTimeout(err) {
					// Keep the deleting-state handle so the next run resumes
					// waiting instead of re-issuing the delete.
					if perr := j.state.Put(ctx, j.ns, j.project, storage.Stored{Handle: handle, Hash: ex.Hash}); perr != nil {
						logger.Error("Store deleting handle", zap.Error(perr))
					}
				}
				return errors.Wrapf(err, "delete %s", ex.Handle.Addr())
			}
			if err := j.state.Delete(ctx, j.ns, j.project, ex.Handle.Addr()); err != nil {
				return errors.Wrapf(err, "delete stored handle %s", ex.Handle.Addr())
			}
			atomic.AddUint32(&j.deleted, 1)
			return nil
		})
	}
	return g.Wait()
}
