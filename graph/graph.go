// Package graph maintains declared records and their dependency order.
//
// Records that do not depend on each other address independent remote
// resources and may be reconciled concurrently; the graph exists to hold the
// edges the configuration declares with depends_on.
package graph

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/recon/recon/resource"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

// A Graph maintains the records and their dependency order.
//
// The Graph should be created with New().
type Graph struct {
	*multi.DirectedGraph
	nodes map[string]*Node
}

// New creates a new empty graph.
func New() *Graph {
	return &Graph{
		DirectedGraph: multi.NewDirectedGraph(),
		nodes:         make(map[string]*Node),
	}
}

// A Node is a record added to the graph.
type Node struct {
	id     int64
	graph  *Graph
	Record resource.Record
}

// ID returns the unique identifier for a node.
func (n *Node) ID() int64 { return n.id }

// Dependencies returns the nodes this node depends on.
//
//   A -> B
//
//   A is a dependency of B.
func (n *Node) Dependencies() []*Node {
	var list []*Node
	it := n.graph.To(n.id)
	for it.Next() {
		if x, ok := it.Node().(*Node); ok {
			list = append(list, x)
		}
	}
	return list
}

// Dependents returns the nodes that depend on this node.
func (n *Node) Dependents() []*Node {
	var list []*Node
	it := n.graph.From(n.id)
	for it.Next() {
		if x, ok := it.Node().(*Node); ok {
			list = append(list, x)
		}
	}
	return list
}

// Add adds a record to the graph. Records must have a unique address.
func (g *Graph) Add(record resource.Record) (*Node, error) {
	addr := record.Addr()
	if _, ok := g.nodes[addr]; ok {
		return nil, errors.Errorf("duplicate resource %s", addr)
	}
	n := &Node{
		id:     g.NewNode().ID(),
		graph:  g,
		Record: record,
	}
	g.AddNode(n)
	g.nodes[addr] = n
	return n, nil
}

// Connect adds a dependency edge from parent to child. Both records must
// have been added to the graph.
func (g *Graph) Connect(parent, child string) error {
	from, ok := g.nodes[parent]
	if !ok {
		return errors.Errorf("dependency on unknown resource %q", parent)
	}
	to, ok := g.nodes[child]
	if !ok {
		return errors.Errorf("unknown resource %q", child)
	}
	g.SetLine(g.NewLine(from, to))
	return nil
}

// Lookup returns the node for a logical address. Returns nil if no record
// with the address was added.
func (g *Graph) Lookup(addr string) *Node {
	return g.nodes[addr]
}

// Leaves returns the nodes no other record depends on. Walking the graph
// from the leaves and resolving each node's dependencies first visits every
// record in dependency order.
func (g *Graph) Leaves() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if len(n.Dependents()) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of records in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// All returns every node, sorted by address.
func (g *Graph) All() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Record.Addr() < out[j].Record.Addr()
	})
	return out
}

// FromRecords builds a graph from declared records, wiring up depends_on
// edges. Returns an error for duplicate addresses, references to unknown
// records, or dependency cycles.
func FromRecords(records []resource.Record) (*Graph, error) {
	g := New()
	for _, r := range records {
		if _, err := g.Add(r); err != nil {
			return nil, err
		}
	}
	for _, r := range records {
		for _, dep := range r.DependsOn {
			if err := g.Connect(dep, r.Addr()); err != nil {
				return nil, errors.Wrapf(err, "resolve depends_on for %s", r.Addr())
			}
		}
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// validate returns an error if the dependency graph contains a cycle.
func (g *Graph) validate() error {
	if _, err := topo.Sort(g); err != nil {
		if unorderable, ok := err.(topo.Unorderable); ok {
			var cycles []string
			for _, cycle := range unorderable {
				var names []string
				for _, n := range cycle {
					if x, ok := n.(*Node); ok {
						names = append(names, x.Record.Addr())
					}
				}
				cycles = append(cycles, strings.Join(names, " -> "))
			}
			return errors.Errorf("dependency cycle: %s", strings.Join(cycles, "; "))
		}
		return err
	}
	return nil
}
