package model

// Node is one entry of the node topology, keyed by name.
type Node struct {
	Name      string         `yaml:"-" json:"name"`
	Domain    string         `yaml:"domain,omitempty" json:"domain,omitempty"`
	Service   Service        `yaml:"service" json:"service"`
	Transport map[string]any `yaml:"transport,omitempty" json:"transport,omitempty"`
}

// ID returns the externally assigned node id, or false when the node does not carry one.
func (n Node) ID() (int, bool) {
	if n.Service.NodeID == nil {
		return 0, false
	}
	return *n.Service.NodeID, true
}

// Host is the externally routable name peers use to reach the node.
func (n Node) Host() string {
	if n.Domain != "" {
		return n.Domain
	}
	return n.Name
}

// Service holds the raw service settings of a node. Keys without a dedicated
// field are kept in Extra and copied to the output unchanged.
type Service struct {
	NodeID         *int           `yaml:"node_id,omitempty" json:"nodeId,omitempty"`
	ListenEndpoint string         `yaml:"listen_endpoint,omitempty" json:"listenEndpoint,omitempty"`
	ConnectPeers   []string       `yaml:"connect_peers,omitempty" json:"connectPeers,omitempty"`
	Extra          map[string]any `yaml:",inline" json:"extra,omitempty"`
}

// Endpoint is a split address:port pair.
type Endpoint struct {
	Addr string `json:"addr"`
	Port int    `json:"port"`
}
