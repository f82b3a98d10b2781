package reconciler

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"github.com/recon/recon/adapter"
	"github.com/recon/recon/graph"
	"github.com/recon/recon/resource"
	"github.com/recon/recon/storage"
)

// Action describes how a resource would change if the graph were applied.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionReplace Action = "replace"
	ActionDelete  Action = "delete"
	ActionNone    Action = "no changes"

	// ActionDrifted marks a resource that was deleted out-of-band while the
	// drift policy is to stop: applying will fail until the drift is
	// resolved.
	ActionDrifted Action = "drifted"
)

// A Change is a single entry of a plan.
type Change struct {
	// Addr is the resource address, type.name.
	Addr string

	// Action is what applying would do to the resource.
	Action Action

	// Fields are the attribute names that differ. Set for update and
	// replace.
	Fields []string
}

// A Plan is a read-only preview of what Apply would do, ordered by address.
type Plan struct {
	Changes []Change
}

// Empty returns true if applying the plan would not touch any resource.
func (p *Plan) Empty() bool {
	for _, c := range p.Changes {
		if c.Action != ActionNone {
			return false
		}
	}
	return true
}

// Plan compares the declared graph against stored handles and the remote
// system without mutating either. Every record is read back from the remote
// API so the preview reflects actual remote state, not just the stored copy.
func (r *Reconciler) Plan(ctx context.Context, ns, project string, g *graph.Graph) (*Plan, error) {
	stored, err := r.State.List(ctx, ns, project)
	if err != nil {
		return nil, errors.Wrap(err, "list stored handles")
	}
	existing := make(map[string]storage.Stored, len(stored))
	for _, s := range stored {
		existing[s.Handle.Addr()] = s
	}

	plan := &Plan{}
	declared := make(map[string]bool)

	for _, n := range g.All() {
		record := n.Record
		addr := record.Addr()
		declared[addr] = true

		ex, ok := existing[addr]
		if !ok {
			plan.Changes = append(plan.Changes, Change{Addr: addr, Action: ActionCreate})
			continue
		}

		handle, err := r.Adapter.Read(ctx, ex.Handle)
		if err != nil {
			if !adapter.IsNotFound(err) {
				return nil, err
			}
			// Deleted out-of-band; the policy decides whether applying
			// recreates it or stops.
			action := ActionCreate
			if r.Drift == DriftError {
				action = ActionDrifted
			}
			plan.Changes = append(plan.Changes, Change{Addr: addr, Action: action})
			continue
		}

		diff := resource.Compute(record, handle.Attrs)
		if diff.Empty() {
			plan.Changes = append(plan.Changes, Change{Addr: addr, Action: ActionNone})
			continue
		}

		action := ActionUpdate
		if r.Adapter.Schemas != nil {
			if s, ok := r.Adapter.Schemas.Lookup(record.Type); ok {
				for _, f := range diff.Fields() {
					if s.Immutable(f) {
						action = ActionReplace
						break
					}
				}
			}
		}
		plan.Changes = append(plan.Changes, Change{Addr: addr, Action: action, Fields: diff.Fields()})
	}

	for addr := range existing {
		if !declared[addr] {
			plan.Changes = append(plan.Changes, Change{Addr: addr, Action: ActionDelete})
		}
	}

	sort.Slice(plan.Changes, func(i, j int) bool {
		return plan.Changes[i].Addr < plan.Changes[j].Addr
	})
	return plan, nil
}
