package model

import "gopkg.in/yaml.v3"

// Protocol is the transport protocol a rule applies to.
type Protocol string

const (
	ProtocolTCP Protocol = "tcp"
	ProtocolUDP Protocol = "udp"
)

// Tunnel links one or more entrances to one or more forwards under a TCP
// and/or UDP tunnel id.
type Tunnel struct {
	Name        string     `yaml:"-"`
	TCPTunnelID *int       `yaml:"tcp_tunnel_id,omitempty"`
	UDPTunnelID *int       `yaml:"udp_tunnel_id,omitempty"`
	Entrances   []Entrance `yaml:"entrances"`
	Forwards    []Forward  `yaml:"forwards"`
}

// Channel is one declared tunnel id together with its protocol.
type Channel struct {
	ID       int
	Protocol Protocol
}

// Channels lists the declared tunnel ids, TCP first.
func (t Tunnel) Channels() []Channel {
	out := make([]Channel, 0, 2)
	if t.TCPTunnelID != nil {
		out = append(out, Channel{ID: *t.TCPTunnelID, Protocol: ProtocolTCP})
	}
	if t.UDPTunnelID != nil {
		out = append(out, Channel{ID: *t.UDPTunnelID, Protocol: ProtocolUDP})
	}
	return out
}

// Entrance is the ingress point of a tunnel on one node.
type Entrance struct {
	Node           string   `yaml:"node"`
	ListenEndpoint string   `yaml:"listen_endpoint"`
	Explicit       Explicit `yaml:"explicit,omitempty"`
}

// IsExplicit reports whether rules built from this entrance name the forward's node.
func (e Entrance) IsExplicit() bool {
	return e.Explicit.Or(EntranceExplicitDefault)
}

// Forward is the egress target of a tunnel on one node.
type Forward struct {
	Node                string   `yaml:"node"`
	DestinationEndpoint string   `yaml:"destination_endpoint"`
	Explicit            Explicit `yaml:"explicit,omitempty"`
}

// IsExplicit reports whether rules built from this forward name the entrance's node.
func (f Forward) IsExplicit() bool {
	return f.Explicit.Or(ForwardExplicitDefault)
}

// Defaults applied when a descriptor leaves `explicit` unset.
const (
	EntranceExplicitDefault = true
	ForwardExplicitDefault  = false
)

// Explicit is the tri-state `explicit` flag of an entrance or forward.
type Explicit uint8

const (
	ExplicitUnset Explicit = iota
	ExplicitTrue
	ExplicitFalse
)

// ExplicitOf converts a plain bool into a set Explicit value.
func ExplicitOf(b bool) Explicit {
	if b {
		return ExplicitTrue
	}
	return ExplicitFalse
}

// IsSet reports whether the flag was given in the input.
func (e Explicit) IsSet() bool { return e != ExplicitUnset }

// Or resolves the flag, using def when it is unset.
func (e Explicit) Or(def bool) bool {
	switch e {
	case ExplicitTrue:
		return true
	case ExplicitFalse:
		return false
	default:
		return def
	}
}

func (e *Explicit) UnmarshalYAML(value *yaml.Node) error {
	if value.Tag == "!!null" {
		*e = ExplicitUnset
		return nil
	}
	var b bool
	if err := value.Decode(&b); err != nil {
		return err
	}
	*e = ExplicitOf(b)
	return nil
}

func (e Explicit) MarshalYAML() (any, error) {
	if !e.IsSet() {
		return nil, nil
	}
	return e.Or(false), nil
}
