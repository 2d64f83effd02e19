// Package validate checks node and tunnel documents for schema and reference
// problems before anything is compiled. Every problem is reported, not just
// the first.
package validate

import (
	"fmt"

	"go.uber.org/multierr"

	"conf-compose/pkg/model"
	"conf-compose/pkg/topology"
)

// Issue is one problem found in the input. Kind is one of the topology error
// kinds, so errors.Is(issue, topology.ErrSchema) works.
type Issue struct {
	Kind    error
	Path    string
	Message string
}

func (i *Issue) Error() string {
	return fmt.Sprintf("%s: %s: %s", topology.KindOf(i.Kind), i.Path, i.Message)
}

func (i *Issue) Unwrap() error { return i.Kind }

// Issues splits a Validate error back into its issues.
func Issues(err error) []*Issue {
	var out []*Issue
	for _, e := range multierr.Errors(err) {
		if is, ok := e.(*Issue); ok {
			out = append(out, is)
		}
	}
	return out
}

type checker struct {
	err error
}

func (c *checker) add(kind error, path, format string, args ...any) {
	c.err = multierr.Append(c.err, &Issue{Kind: kind, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *checker) endpoint(path, value string) {
	if value == "" {
		c.add(topology.ErrSchema, path, "missing")
		return
	}
	if _, err := topology.ParseEndpoint(value); err != nil {
		c.add(topology.ErrFormat, path, "%q is not address:port", value)
	}
}

// Validate runs every node and tunnel check and returns all issues combined
// into one error, or nil.
func Validate(nodes []model.Node, tunnels []model.Tunnel) error {
	c := &checker{}
	names := checkNodes(c, nodes)
	checkTunnels(c, tunnels, names)
	return c.err
}

// Nodes checks a node document on its own.
func Nodes(nodes []model.Node) error {
	c := &checker{}
	checkNodes(c, nodes)
	return c.err
}

func checkNodes(c *checker, nodes []model.Node) map[string]bool {
	names := make(map[string]bool, len(nodes))
	if len(nodes) == 0 {
		c.add(topology.ErrSchema, "nodes", "no nodes defined")
		return names
	}
	for _, n := range nodes {
		if names[n.Name] {
			c.add(topology.ErrSchema, n.Name, "node is defined twice")
		}
		names[n.Name] = true
	}

	owner := make(map[int]string, len(nodes))
	for _, n := range nodes {
		base := n.Name + ".service"
		if isEmptyService(n.Service) {
			c.add(topology.ErrSchema, base, "missing")
			continue
		}
		if id, ok := n.ID(); !ok {
			c.add(topology.ErrSchema, base+".node_id", "missing")
		} else if prev, dup := owner[id]; dup {
			c.add(topology.ErrSchema, base+".node_id", "%d already used by node %q", id, prev)
		} else {
			owner[id] = n.Name
		}
		c.endpoint(base+".listen_endpoint", n.Service.ListenEndpoint)
		for i, peer := range n.Service.ConnectPeers {
			path := fmt.Sprintf("%s.connect_peers[%d]", base, i)
			switch {
			case peer == n.Name:
				c.add(topology.ErrReference, path, "node lists itself as a peer")
			case !names[peer]:
				c.add(topology.ErrReference, path, "unknown node %q", peer)
			}
		}
	}
	return names
}

func isEmptyService(s model.Service) bool {
	return s.NodeID == nil && s.ListenEndpoint == "" && s.ConnectPeers == nil && len(s.Extra) == 0
}

func checkTunnels(c *checker, tunnels []model.Tunnel, nodes map[string]bool) {
	if len(tunnels) == 0 {
		return
	}
	tcpOwner := map[int]string{}
	udpOwner := map[int]string{}
	claim := func(owners map[int]string, path string, id *int, tunnel string) {
		if id == nil {
			return
		}
		if *id < 0 {
			c.add(topology.ErrSchema, path, "must not be negative, got %d", *id)
			return
		}
		if prev, dup := owners[*id]; dup {
			c.add(topology.ErrSchema, path, "%d already used by tunnel %q", *id, prev)
			return
		}
		owners[*id] = tunnel
	}
	ref := func(path, name string) {
		switch {
		case name == "":
			c.add(topology.ErrSchema, path, "missing")
		case !nodes[name]:
			c.add(topology.ErrReference, path, "unknown node %q", name)
		}
	}

	for _, t := range tunnels {
		if t.TCPTunnelID == nil && t.UDPTunnelID == nil {
			c.add(topology.ErrSchema, t.Name, "neither tcp_tunnel_id nor udp_tunnel_id is set")
		}
		claim(tcpOwner, t.Name+".tcp_tunnel_id", t.TCPTunnelID, t.Name)
		claim(udpOwner, t.Name+".udp_tunnel_id", t.UDPTunnelID, t.Name)

		if len(t.Entrances) == 0 {
			c.add(topology.ErrSchema, t.Name+".entrances", "at least one entrance is required")
		}
		for i, e := range t.Entrances {
			path := fmt.Sprintf("%s.entrances[%d]", t.Name, i)
			ref(path+".node", e.Node)
			c.endpoint(path+".listen_endpoint", e.ListenEndpoint)
		}
		if len(t.Forwards) == 0 {
			c.add(topology.ErrSchema, t.Name+".forwards", "at least one forward is required")
		}
		for i, f := range t.Forwards {
			path := fmt.Sprintf("%s.forwards[%d]", t.Name, i)
			ref(path+".node", f.Node)
			c.endpoint(path+".destination_endpoint", f.DestinationEndpoint)
		}
	}
}
