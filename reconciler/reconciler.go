package reconciler

import (
	"context"

	"github.com/pkg/errors"
	"github.com/recon/recon/adapter"
	"github.com/recon/recon/graph"
	"github.com/recon/recon/storage"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the default maximum concurrency to use.
//
// In practice, reconciliation is bound by network i/o.
var DefaultConcurrency = 10

// StateStorage persists handles between runs.
type StateStorage interface {
	// Put creates or updates a stored handle.
	Put(ctx context.Context, ns, project string, s storage.Stored) error

	// Delete removes a stored handle.
	Delete(ctx context.Context, ns, project, addr string) error

	// List returns all stored handles for a given namespace-project.
	// Handles may be returned in any order.
	List(ctx context.Context, ns, project string) ([]storage.Stored, error)
}

// DriftPolicy decides what to do when a stored handle's remote resource no
// longer exists.
type DriftPolicy int

const (
	// DriftRecreate recreates the resource under the same logical name. The
	// remote id will differ from the one the deleted resource had.
	DriftRecreate DriftPolicy = iota

	// DriftError stops and surfaces the drift to the caller.
	DriftError
)

// A Reconciler converges declared records against the remote system.
//
// See package doc for details.
type Reconciler struct {
	// Adapter performs the per-resource lifecycle operations.
	Adapter *adapter.Adapter

	// State persists handles between runs.
	State StateStorage

	// Concurrency sets the maximum number of records reconciled at once.
	// If not set, DefaultConcurrency is used.
	Concurrency int

	// Drift selects the drift policy. The zero value recreates.
	Drift DriftPolicy

	// Logger logs reconciliation updates. If not set, logs are discarded.
	Logger *zap.Logger
}

// Apply reconciles the declared records in the graph and prunes stored
// handles that are no longer declared.
func (r *Reconciler) Apply(ctx context.Context, ns, project string, g *graph.Graph) error {
	j, err := r.newJob(ctx, ns, project, g)
	if err != nil {
		return err
	}

	j.logger.Info("Apply", zap.Int("declared", g.Len()), zap.Int("existing", len(j.existing)))

	if err := j.createUpdate(ctx); err != nil {
		return err
	}
	if err := j.prune(ctx); err != nil {
		return errors.Wrap(err, "prune")
	}

	j.logger.Info("Done",
		zap.Uint32("create", j.created),
		zap.Uint32("update", j.updated),
		zap.Uint32("delete", j.deleted),
		zap.Uint32("unchanged", j.unchanged),
	)
	return nil
}

// Destroy deletes every stored resource for the namespace-project.
func (r *Reconciler) Destroy(ctx context.Context, ns, project string) error {
	j, err := r.newJob(ctx, ns, project, graph.New())
	if err != nil {
		return err
	}

	j.logger.Info("Destroy", zap.Int("existing", len(j.existing)))

	if err := j.prune(ctx); err != nil {
		return err
	}

	j.logger.Info("Done", zap.Uint32("delete", j.deleted))
	return nil
}

func (r *Reconciler) newJob(ctx context.Context, ns, project string, g *graph.Graph) (*job, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("ns", ns),
		zap.String("project", project),
		zap.String("run_id", ksuid.New().String()),
	)

	c := r.Concurrency
	if c == 0 {
		c = DefaultConcurrency
	}

	stored, err := r.State.List(ctx, ns, project)
	if err != nil {
		return nil, errors.Wrap(err, "list stored handles")
	}
	existing := make(map[string]storage.Stored, len(stored))
	for _, s := range stored {
		existing[s.Handle.Addr()] = s
	}

	return &job{
		ns:       ns,
		project:  project,
		graph:    g,
		adapter:  r.Adapter,
		state:    r.State,
		drift:    r.Drift,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(c)),
		existing: existing,
		kept:     make(map[string]bool),
		process:  make(map[*graph.Node]*task),
	}, nil
}

// A task tracks a record being processed, so each logical name is handled by
// exactly one worker per run and dependents can wait for its outcome.
type task struct {
	done chan struct{}
	err  error
}

// waitForDeps processes all dependencies of the node concurrently and waits
// for them to converge.
func (j *job) waitForDeps(ctx context.Context, n *graph.Node) error {
	deps := n.Dependencies()
	if len(deps) == 0 {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	for _, dep := range deps {
		dep := dep
		g.Go(func() error {
			return j.processNode(ctx, dep)
		})
	}
	return g.Wait()
}

// processNode reconciles a node exactly once per run; concurrent callers for
// the same node wait for the single in-flight reconciliation.
func (j *job) processNode(ctx context.Context, n *graph.Node) error {
	j.mu.Lock()
	if t, ok := j.process[n]; ok {
		j.mu.Unlock()
		select {
		case <-t.done:
			return t.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t := &task{done: make(chan struct{})}
	j.process[n] = t
	j.mu.Unlock()

	t.err = j.reconcileNode(ctx, n)
	close(t.done)
	return t.err
}

func (j *job) reconcileNode(ctx context.Context, n *graph.Node) error {
	// Resolve dependencies before acquiring the semaphore, as otherwise we
	// can needlessly block on low concurrency limits and end up in a
	// deadlock with concurrency=1.
	if err := j.waitForDeps(ctx, n); err != nil {
		return errors.Wrap(err, "process dependencies")
	}

	if err := j.sem.Acquire(ctx, 1); err != nil {
		return errors.Wrap(err, "acquire semaphore")
	}
	defer j.sem.Release(1)

	return j.reconcileRecord(ctx, n.Record)
}
