package model

import "encoding/json"

// Artifact is the runtime configuration of one node.
type Artifact struct {
	Node          string            `json:"-" yaml:"-"`
	Service       NormalizedService `json:"service" yaml:"service"`
	Transport     map[string]any    `json:"transport" yaml:"transport"`
	EntranceRules []EntranceRule    `json:"entrance_rules" yaml:"entrance_rules"`
	ForwardRules  []ForwardRule     `json:"forward_rules" yaml:"forward_rules"`
}

// NormalizedService is a node's service settings with the listen endpoint
// split and peer names resolved to domain:port.
type NormalizedService struct {
	NodeID       *int
	Listen       *Endpoint
	ConnectPeers []string
	Extra        map[string]any
}

// Fields flattens the settings into the key set written to the artifact.
// Unset fields are absent rather than null or empty.
func (s NormalizedService) Fields() map[string]any {
	out := make(map[string]any, len(s.Extra)+4)
	for k, v := range s.Extra {
		out[k] = v
	}
	if s.NodeID != nil {
		out["node_id"] = *s.NodeID
	}
	if s.Listen != nil {
		out["listen_addr"] = s.Listen.Addr
		out["listen_port"] = s.Listen.Port
	}
	if len(s.ConnectPeers) > 0 {
		out["connect_peers"] = s.ConnectPeers
	}
	return out
}

func (s NormalizedService) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Fields())
}

func (s NormalizedService) MarshalYAML() (any, error) {
	return s.Fields(), nil
}

// Document is a rendered artifact ready to be written, recorded or published.
type Document struct {
	Node   string
	Name   string
	Data   []byte
	Digest string
}
