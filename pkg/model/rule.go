package model

// EntranceRule tells a node to listen for traffic entering a tunnel.
// NodeID, when set, restricts the rule to one forward node.
type EntranceRule struct {
	TunnelID   int      `json:"tunnel_id" yaml:"tunnel_id"`
	ListenAddr string   `json:"listen_addr" yaml:"listen_addr"`
	ListenPort int      `json:"listen_port" yaml:"listen_port"`
	Protocol   Protocol `json:"protocol" yaml:"protocol"`
	NodeID     *int     `json:"node_id,omitempty" yaml:"node_id,omitempty"`
}

// ForwardRule tells a node where to deliver traffic leaving a tunnel.
// NodeID, when set, restricts the rule to one entrance node.
type ForwardRule struct {
	TunnelID        int      `json:"tunnel_id" yaml:"tunnel_id"`
	DestinationAddr string   `json:"destination_addr" yaml:"destination_addr"`
	DestinationPort int      `json:"destination_port" yaml:"destination_port"`
	Protocol        Protocol `json:"protocol" yaml:"protocol"`
	NodeID          *int     `json:"node_id,omitempty" yaml:"node_id,omitempty"`
}
