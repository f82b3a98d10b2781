// Package reconciler converges a project's declared records against the
// remote system.
//
// Steps
//
// A reconciliation pass consists at a high level of 3 steps:
//
//   1. List stored handles
//
//      Handles persisted by earlier runs for the namespace-project are
//      listed. Any previously created remote resources are returned.
//
//   2. Create or Update resources
//
//      The declared records are walked in the order given by depends_on.
//      Each record is compared to its stored handle.
//
//        - When no handle exists for the logical address, the resource is
//          created.
//
//        - When a handle exists, the remote state is refreshed and the
//          record is applied; an empty diff makes this a no-op, and a diff
//          touching an immutable attribute triggers an explicit
//          delete/create replacement sequence.
//
//   3. Prune resources
//
//      Handles whose logical address is no longer declared are deleted.
//      Resources are always brought to the desired state before anything
//      gets removed.
//
// Concurrency
//
// Records are reconciled by one worker per logical name: operations on the
// same name are strictly serialized, while unrelated names proceed
// independently, bounded only by the concurrency limit.
//
//   A and B reconcile concurrently.
//   When both are done (without error), C follows.
//
//       A --> C
//       B -/
//
// Drift
//
// A stored handle whose remote resource no longer exists has drifted: the
// resource was deleted outside this tool. Whether the record is recreated
// under the same logical name (with a new remote id) or surfaced as an
// error is a policy choice the caller makes; see DriftPolicy.
package reconciler
