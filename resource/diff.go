package resource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// A Diff is the set of attribute changes required to make observed state
// match a desired record.
//
// Diffs are computed fresh on every reconciliation pass and never persisted.
type Diff struct {
	// Changed maps attribute names to their desired values, for attributes
	// where the observed value differs or the attribute is not observed at
	// all. Only these fields are sent in an update.
	Changed map[string]interface{}
}

// Compute returns the diff between the desired record and the observed
// attribute values.
//
// Attributes present remotely but not declared are ignored; the remote
// system may report server-assigned values the user never set.
func Compute(desired Record, observed map[string]interface{}) Diff {
	opts := []cmp.Option{cmpopts.EquateEmpty()}

	var changed map[string]interface{}
	for k, want := range desired.Attrs {
		got, ok := observed[k]
		if ok && cmp.Equal(want, got, opts...) {
			continue
		}
		if changed == nil {
			changed = make(map[string]interface{})
		}
		changed[k] = want
	}
	return Diff{Changed: changed}
}

// Empty returns true if no changes are required.
func (d Diff) Empty() bool { return len(d.Changed) == 0 }

// Fields returns the names of changed attributes in a stable order.
func (d Diff) Fields() []string {
	if len(d.Changed) == 0 {
		return nil
	}
	ff := make([]string, 0, len(d.Changed))
	for k := range d.Changed {
		ff = append(ff, k)
	}
	sort.Strings(ff)
	return ff
}

// String returns a short human readable summary, for logs and plan output.
func (d Diff) String() string {
	if d.Empty() {
		return "<no changes>"
	}
	ff := d.Fields()
	parts := make([]string, len(ff))
	for i, f := range ff {
		parts[i] = fmt.Sprintf("%s=%v", f, d.Changed[f])
	}
	return strings.Join(parts, ", ")
}
