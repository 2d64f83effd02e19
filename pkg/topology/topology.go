package topology

import (
	"slices"

	"github.com/samber/oops"

	"conf-compose/pkg/model"
)

// Topology is the read-only set of nodes and tunnels a compile runs against,
// indexed by node name. Build it once with New and share it between workers.
type Topology struct {
	nodes   []model.Node
	tunnels []model.Tunnel
	byName  map[string]int
	ids     map[string]int
}

// New indexes nodes and tunnels. Order of both slices is kept.
// Every node must carry a unique name and a unique service.node_id.
func New(nodes []model.Node, tunnels []model.Tunnel) (*Topology, error) {
	t := &Topology{
		nodes:   slices.Clone(nodes),
		tunnels: slices.Clone(tunnels),
		byName:  make(map[string]int, len(nodes)),
		ids:     make(map[string]int, len(nodes)),
	}
	owner := make(map[int]string, len(nodes))
	for i, n := range t.nodes {
		if _, dup := t.byName[n.Name]; dup {
			return nil, oops.Code(CodeSchema).With("node", n.Name).
				Wrapf(ErrSchema, "node %q is defined twice", n.Name)
		}
		id, ok := n.ID()
		if !ok {
			return nil, oops.Code(CodeSchema).With("node", n.Name).
				Wrapf(ErrSchema, "node %q has no service.node_id", n.Name)
		}
		if prev, dup := owner[id]; dup {
			return nil, oops.Code(CodeSchema).With("node", n.Name, "node_id", id).
				Wrapf(ErrSchema, "node %q reuses node_id %d of node %q", n.Name, id, prev)
		}
		owner[id] = n.Name
		t.byName[n.Name] = i
		t.ids[n.Name] = id
	}
	return t, nil
}

// Nodes returns the nodes in input order.
func (t *Topology) Nodes() []model.Node {
	return slices.Clone(t.nodes)
}

// Tunnels returns the tunnels in input order.
func (t *Topology) Tunnels() []model.Tunnel {
	return slices.Clone(t.tunnels)
}

// Len is the number of nodes.
func (t *Topology) Len() int { return len(t.nodes) }

// Node looks a node up by name.
func (t *Topology) Node(name string) (model.Node, bool) {
	i, ok := t.byName[name]
	if !ok {
		return model.Node{}, false
	}
	return t.nodes[i], true
}

// NodeID resolves a node name to its id.
func (t *Topology) NodeID(name string) (int, error) {
	id, ok := t.ids[name]
	if !ok {
		return 0, oops.Code(CodeReference).With("node", name).
			Wrapf(ErrReference, "unknown node %q", name)
	}
	return id, nil
}
