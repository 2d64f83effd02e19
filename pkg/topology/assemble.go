package topology

import (
	"maps"

	"conf-compose/pkg/model"
)

// Assemble packages one node's settings and rules into its artifact.
// Transport settings pass through untouched.
func Assemble(node model.Node, service model.NormalizedService, rules Rules) model.Artifact {
	transport := maps.Clone(node.Transport)
	if transport == nil {
		transport = map[string]any{}
	}
	entrance := rules.Entrance
	if entrance == nil {
		entrance = []model.EntranceRule{}
	}
	forward := rules.Forward
	if forward == nil {
		forward = []model.ForwardRule{}
	}
	return model.Artifact{
		Node:          node.Name,
		Service:       service,
		Transport:     transport,
		EntranceRules: entrance,
		ForwardRules:  forward,
	}
}

// Build normalizes and derives rules for one node, then assembles its artifact.
func Build(topo *Topology, name string) (model.Artifact, error) {
	node, ok := topo.Node(name)
	if !ok {
		_, err := topo.NodeID(name)
		return model.Artifact{}, err
	}
	svc, err := NormalizeService(topo, node)
	if err != nil {
		return model.Artifact{}, err
	}
	rules, err := BuildRules(topo, name)
	if err != nil {
		return model.Artifact{}, err
	}
	return Assemble(node, svc, rules), nil
}
