package topology

import (
	"sort"

	"github.com/samber/oops"

	"conf-compose/pkg/model"
)

// Rules holds the entrance and forward rules a single node enforces.
type Rules struct {
	Entrance []model.EntranceRule
	Forward  []model.ForwardRule
}

// BuildRules derives the rules for the target node across every tunnel.
// Each tunnel yields its own batch; batches are concatenated in tunnel order
// and sorted once by tunnel id, so ties keep generation order.
// Every tunnel is resolved even when the target is not a member of it, so a
// broken tunnel fails the build on every node alike.
func BuildRules(topo *Topology, target string) (Rules, error) {
	targetID, err := topo.NodeID(target)
	if err != nil {
		return Rules{}, err
	}
	out := Rules{
		Entrance: []model.EntranceRule{},
		Forward:  []model.ForwardRule{},
	}
	for _, tun := range topo.tunnels {
		batch, err := deriveTunnel(topo, tun, targetID)
		if err != nil {
			return Rules{}, err
		}
		out.Entrance = append(out.Entrance, batch.Entrance...)
		out.Forward = append(out.Forward, batch.Forward...)
	}
	sort.SliceStable(out.Entrance, func(i, j int) bool {
		return out.Entrance[i].TunnelID < out.Entrance[j].TunnelID
	})
	sort.SliceStable(out.Forward, func(i, j int) bool {
		return out.Forward[i].TunnelID < out.Forward[j].TunnelID
	})
	return out, nil
}

type resolvedEntrance struct {
	nodeID   int
	listen   model.Endpoint
	explicit bool
}

type resolvedForward struct {
	nodeID   int
	dest     model.Endpoint
	explicit bool
}

func deriveTunnel(topo *Topology, tun model.Tunnel, targetID int) (Rules, error) {
	channels := tun.Channels()
	if len(channels) == 0 {
		return Rules{}, oops.Code(CodeSchema).With("tunnel", tun.Name).
			Wrapf(ErrSchema, "tunnel %q declares neither tcp_tunnel_id nor udp_tunnel_id", tun.Name)
	}

	entrances := make([]resolvedEntrance, 0, len(tun.Entrances))
	for i, e := range tun.Entrances {
		id, err := topo.NodeID(e.Node)
		if err != nil {
			return Rules{}, oops.With("tunnel", tun.Name, "entrance", i).
				Wrapf(err, "tunnel %q entrance %d", tun.Name, i)
		}
		ep, err := ParseEndpoint(e.ListenEndpoint)
		if err != nil {
			return Rules{}, oops.With("tunnel", tun.Name, "entrance", i).
				Wrapf(err, "tunnel %q entrance %d", tun.Name, i)
		}
		entrances = append(entrances, resolvedEntrance{nodeID: id, listen: ep, explicit: e.IsExplicit()})
	}
	forwards := make([]resolvedForward, 0, len(tun.Forwards))
	for i, f := range tun.Forwards {
		id, err := topo.NodeID(f.Node)
		if err != nil {
			return Rules{}, oops.With("tunnel", tun.Name, "forward", i).
				Wrapf(err, "tunnel %q forward %d", tun.Name, i)
		}
		ep, err := ParseEndpoint(f.DestinationEndpoint)
		if err != nil {
			return Rules{}, oops.With("tunnel", tun.Name, "forward", i).
				Wrapf(err, "tunnel %q forward %d", tun.Name, i)
		}
		forwards = append(forwards, resolvedForward{nodeID: id, dest: ep, explicit: f.IsExplicit()})
	}

	multiForward := len(forwards) > 1
	multiEntrance := len(entrances) > 1
	var batch Rules

	for _, e := range entrances {
		if e.nodeID != targetID {
			continue
		}
		for _, f := range forwards {
			for _, ch := range channels {
				rule := model.EntranceRule{
					TunnelID:   ch.ID,
					ListenAddr: e.listen.Addr,
					ListenPort: e.listen.Port,
					Protocol:   ch.Protocol,
				}
				if e.explicit {
					rule.NodeID = intPtr(f.nodeID)
				}
				batch.Entrance = append(batch.Entrance, rule)
			}
			if multiForward {
				break
			}
		}
	}

	for _, f := range forwards {
		if f.nodeID != targetID {
			continue
		}
		for _, e := range entrances {
			for _, ch := range channels {
				rule := model.ForwardRule{
					TunnelID:        ch.ID,
					DestinationAddr: f.dest.Addr,
					DestinationPort: f.dest.Port,
					Protocol:        ch.Protocol,
				}
				if f.explicit {
					rule.NodeID = intPtr(e.nodeID)
				}
				batch.Forward = append(batch.Forward, rule)
			}
			if multiEntrance {
				break
			}
		}
	}
	return batch, nil
}

func intPtr(v int) *int { return &v }
