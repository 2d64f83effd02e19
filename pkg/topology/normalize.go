package topology

import (
	"maps"

	"github.com/samber/oops"

	"conf-compose/pkg/model"
)

// NormalizeService splits the node's listen endpoint into address and port and
// rewrites connect_peers from node names into domain:port strings, using each
// peer's own listen port. An empty peer list is dropped.
func NormalizeService(topo *Topology, node model.Node) (model.NormalizedService, error) {
	svc := model.NormalizedService{
		NodeID: node.Service.NodeID,
		Extra:  maps.Clone(node.Service.Extra),
	}
	if node.Service.ListenEndpoint != "" {
		ep, err := ParseEndpoint(node.Service.ListenEndpoint)
		if err != nil {
			return model.NormalizedService{}, oops.With("node", node.Name).
				Wrapf(err, "node %q listen_endpoint", node.Name)
		}
		svc.Listen = &ep
	}
	if len(node.Service.ConnectPeers) == 0 {
		return svc, nil
	}
	peers := make([]string, 0, len(node.Service.ConnectPeers))
	for _, name := range node.Service.ConnectPeers {
		peer, ok := topo.Node(name)
		if !ok {
			return model.NormalizedService{}, oops.Code(CodeReference).With("node", node.Name, "peer", name).
				Wrapf(ErrReference, "node %q connects to unknown peer %q", node.Name, name)
		}
		if peer.Service.ListenEndpoint == "" {
			return model.NormalizedService{}, oops.Code(CodeFormat).With("node", node.Name, "peer", name).
				Wrapf(ErrFormat, "peer %q of node %q has no listen_endpoint", name, node.Name)
		}
		ep, err := ParseEndpoint(peer.Service.ListenEndpoint)
		if err != nil {
			return model.NormalizedService{}, oops.With("node", node.Name, "peer", name).
				Wrapf(err, "peer %q of node %q", name, node.Name)
		}
		peers = append(peers, FormatEndpoint(peer.Host(), ep.Port))
	}
	if len(peers) > 0 {
		svc.ConnectPeers = peers
	}
	return svc, nil
}
