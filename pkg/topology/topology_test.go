package topology

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conf-compose/pkg/model"
)

func TestNewRejectsBadNodes(t *testing.T) {
	_, err := New([]model.Node{{Name: "A"}}, nil)
	assert.ErrorIs(t, err, ErrSchema)

	_, err = New([]model.Node{node("A", 1, "", ""), node("B", 1, "", "")}, nil)
	assert.ErrorIs(t, err, ErrSchema)

	_, err = New([]model.Node{node("A", 1, "", ""), node("A", 2, "", "")}, nil)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestTopologyLookups(t *testing.T) {
	topo := mustTopology(t, twoNodes(), nil)
	assert.Equal(t, 2, topo.Len())

	n, ok := topo.Node("B")
	require.True(t, ok)
	assert.Equal(t, "b.example.com", n.Domain)

	nid, err := topo.NodeID("A")
	require.NoError(t, err)
	assert.Equal(t, 1, nid)

	_, ok = topo.Node("C")
	assert.False(t, ok)

	names := []string{}
	for _, n := range topo.Nodes() {
		names = append(names, n.Name)
	}
	assert.Equal(t, []string{"A", "B"}, names)
}

func TestParseEndpoint(t *testing.T) {
	tests := []struct {
		in      string
		want    model.Endpoint
		wantErr bool
	}{
		{in: "0.0.0.0:9000", want: model.Endpoint{Addr: "0.0.0.0", Port: 9000}},
		{in: " host.example:1 ", want: model.Endpoint{Addr: "host.example", Port: 1}},
		{in: "[::1]:53", want: model.Endpoint{Addr: "::1", Port: 53}},
		{in: "0.0.0.0:0", want: model.Endpoint{Addr: "0.0.0.0", Port: 0}},
		{in: "no-port", wantErr: true},
		{in: ":80", wantErr: true},
		{in: "host:port", wantErr: true},
		{in: "host:70000", wantErr: true},
		{in: "host:-1", wantErr: true},
		{in: "::1:53", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseEndpoint(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrFormat)
				assert.Equal(t, "FormatError", KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "[::1]:53", FormatEndpoint("::1", 53))
}

func TestNormalizeService(t *testing.T) {
	nodes := twoNodes()
	nodes = append(nodes, node("C", 3, "", "10.0.0.3:9100"))
	nodes[0].Service.ConnectPeers = []string{"B", "C"}
	nodes[0].Service.Extra = map[string]any{"mtu": 1400}
	topo := mustTopology(t, nodes, nil)

	a, _ := topo.Node("A")
	svc, err := NormalizeService(topo, a)
	require.NoError(t, err)
	assert.Equal(t, 1, *svc.NodeID)
	assert.Equal(t, &model.Endpoint{Addr: "0.0.0.0", Port: 9000}, svc.Listen)
	assert.Equal(t, []string{"b.example.com:9001", "C:9100"}, svc.ConnectPeers)
	assert.Equal(t, 1400, svc.Extra["mtu"])

	b, _ := topo.Node("B")
	svc, err = NormalizeService(topo, b)
	require.NoError(t, err)
	assert.Nil(t, svc.ConnectPeers)
	assert.NotContains(t, svc.Fields(), "connect_peers")
}

func TestNormalizeServiceErrors(t *testing.T) {
	nodes := twoNodes()
	nodes[0].Service.ConnectPeers = []string{"ghost"}
	topo := mustTopology(t, nodes, nil)
	a, _ := topo.Node("A")
	_, err := NormalizeService(topo, a)
	assert.ErrorIs(t, err, ErrReference)

	nodes = twoNodes()
	nodes[1].Service.ListenEndpoint = ""
	nodes[0].Service.ConnectPeers = []string{"B"}
	topo = mustTopology(t, nodes, nil)
	a, _ = topo.Node("A")
	_, err = NormalizeService(topo, a)
	assert.ErrorIs(t, err, ErrFormat)

	nodes = twoNodes()
	nodes[0].Service.ListenEndpoint = "bogus"
	topo = mustTopology(t, nodes, nil)
	a, _ = topo.Node("A")
	_, err = NormalizeService(topo, a)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestBuildArtifactExample(t *testing.T) {
	topo := mustTopology(t, twoNodes(), []model.Tunnel{{
		Name:        "T1",
		TCPTunnelID: id(100),
		Entrances:   []model.Entrance{{Node: "A", ListenEndpoint: "0.0.0.0:8080"}},
		Forwards:    []model.Forward{{Node: "B", DestinationEndpoint: "127.0.0.1:80"}},
	}})

	a, err := Build(topo, "A")
	require.NoError(t, err)
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"service": {"node_id": 1, "listen_addr": "0.0.0.0", "listen_port": 9000},
		"transport": {},
		"entrance_rules": [{"tunnel_id": 100, "listen_addr": "0.0.0.0", "listen_port": 8080, "protocol": "tcp", "node_id": 2}],
		"forward_rules": []
	}`, string(raw))

	b, err := Build(topo, "B")
	require.NoError(t, err)
	raw, err = json.Marshal(b)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"service": {"node_id": 2, "listen_addr": "0.0.0.0", "listen_port": 9001},
		"transport": {},
		"entrance_rules": [],
		"forward_rules": [{"tunnel_id": 100, "destination_addr": "127.0.0.1", "destination_port": 80, "protocol": "tcp"}]
	}`, string(raw))

	_, err = Build(topo, "missing")
	assert.ErrorIs(t, err, ErrReference)
}

func TestAssembleCopiesTransport(t *testing.T) {
	n := node("A", 1, "", "0.0.0.0:1")
	n.Transport = map[string]any{"mode": "ws"}
	art := Assemble(n, model.NormalizedService{}, Rules{})
	art.Transport["mode"] = "changed"
	assert.Equal(t, "ws", n.Transport["mode"])
	assert.NotNil(t, art.EntranceRules)
	assert.NotNil(t, art.ForwardRules)
}
