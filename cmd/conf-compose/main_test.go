package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conf-compose/pkg/auth"
	"conf-compose/pkg/output"
	"conf-compose/pkg/topology"
)

const exampleNodes = `
A:
  domain: a.example.com
  service:
    node_id: 1
    listen_endpoint: 0.0.0.0:9000
    connect_peers: [B]
  transport:
    mode: tls
B:
  domain: b.example.com
  service:
    node_id: 2
    listen_endpoint: 0.0.0.0:9001
`

const exampleTunnels = `
T1:
  tcp_tunnel_id: 100
  entrances:
    - node: A
      listen_endpoint: 0.0.0.0:8080
  forwards:
    - node: B
      destination_endpoint: 127.0.0.1:80
`

type fixture struct {
	dir     string
	nodes   string
	tunnels string
	out     string
}

func newFixture(t *testing.T, nodes, tunnels string) fixture {
	t.Helper()
	viper.Reset()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		nodes:   filepath.Join(dir, "nodes.yaml"),
		tunnels: filepath.Join(dir, "tunnels.yaml"),
		out:     filepath.Join(dir, "output"),
	}
	require.NoError(t, os.WriteFile(f.nodes, []byte(nodes), 0o600))
	require.NoError(t, os.WriteFile(f.tunnels, []byte(tunnels), 0o600))
	return f
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var v map[string]any
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func TestGenerateExample(t *testing.T) {
	f := newFixture(t, exampleNodes, exampleTunnels)
	_, err := execute(t, f.out, "-n", f.nodes, "-t", f.tunnels)
	require.NoError(t, err)

	a := readJSON(t, filepath.Join(f.out, "A.conf"))
	assert.Equal(t, map[string]any{
		"node_id":       float64(1),
		"listen_addr":   "0.0.0.0",
		"listen_port":   float64(9000),
		"connect_peers": []any{"b.example.com:9001"},
	}, a["service"])
	assert.Equal(t, map[string]any{"mode": "tls"}, a["transport"])
	assert.Equal(t, []any{map[string]any{
		"tunnel_id":   float64(100),
		"listen_addr": "0.0.0.0",
		"listen_port": float64(8080),
		"protocol":    "tcp",
		"node_id":     float64(2),
	}}, a["entrance_rules"])
	assert.Equal(t, []any{}, a["forward_rules"])

	b := readJSON(t, filepath.Join(f.out, "B.conf"))
	assert.NotContains(t, b["service"], "connect_peers")
	assert.Equal(t, map[string]any{}, b["transport"])
	assert.Equal(t, []any{map[string]any{
		"tunnel_id":        float64(100),
		"destination_addr": "127.0.0.1",
		"destination_port": float64(80),
		"protocol":         "tcp",
	}}, b["forward_rules"])

	entries, err := os.ReadDir(f.out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestGenerateValidationFailureWritesNothing(t *testing.T) {
	bad := exampleTunnels + `
T2:
  entrances:
    - node: ghost
      listen_endpoint: 0.0.0.0:1
  forwards:
    - node: B
      destination_endpoint: 127.0.0.1:1
`
	f := newFixture(t, exampleNodes, bad)
	_, err := execute(t, f.out, "-n", f.nodes, "-t", f.tunnels)
	require.Error(t, err)
	assert.ErrorIs(t, err, topology.ErrSchema)
	assert.ErrorIs(t, err, topology.ErrReference)
	_, statErr := os.Stat(f.out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateMissingInput(t *testing.T) {
	f := newFixture(t, exampleNodes, exampleTunnels)
	_, err := execute(t, f.out, "-n", filepath.Join(f.dir, "absent.yaml"), "-t", f.tunnels)
	assert.ErrorIs(t, err, topology.ErrFileAccess)
}

func TestGenerateDryRun(t *testing.T) {
	f := newFixture(t, exampleNodes, exampleTunnels)
	_, err := execute(t, f.out, "-n", f.nodes, "-t", f.tunnels, "--dry-run", "--manifest")
	require.NoError(t, err)
	_, statErr := os.Stat(f.out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGenerateYAMLWithSignedManifest(t *testing.T) {
	f := newFixture(t, exampleNodes, exampleTunnels)
	_, err := execute(t, f.out, "-n", f.nodes, "-t", f.tunnels, "--format", "yaml", "--sign-secret", "k3y")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(f.out, output.ManifestFile))
	require.NoError(t, err)
	m, err := output.ReadManifest(data)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	require.NoError(t, auth.VerifyManifest([]byte("k3y"), m))

	for _, e := range m.Entries {
		body, err := os.ReadFile(filepath.Join(f.out, e.File))
		require.NoError(t, err)
		assert.Equal(t, e.Digest, output.Digest(body))
	}
	body, err := os.ReadFile(filepath.Join(f.out, "A.conf"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "entrance_rules:")
}

func TestGenerateRecordsHistory(t *testing.T) {
	f := newFixture(t, exampleNodes, exampleTunnels)
	db := filepath.Join(f.dir, "ledger.db")
	for j := 0; j < 2; j++ {
		_, err := execute(t, f.out, "-n", f.nodes, "-t", f.tunnels, "--ledger", "sqlite", "--ledger-path", db)
		require.NoError(t, err)
	}

	out, err := execute(t, "history", "--ledger", "sqlite", "--ledger-path", db)
	require.NoError(t, err)
	assert.Contains(t, out, "RUN")
	assert.Equal(t, 3, bytes.Count([]byte(out), []byte("\n")), "header plus two runs")

	out, err = execute(t, "history", "B", "--limit", "1", "--ledger", "sqlite", "--ledger-path", db)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte("\n")))
}

func TestHistoryNeedsLedger(t *testing.T) {
	_, err := execute(t, "history")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	f := newFixture(t, exampleNodes, exampleTunnels)
	_, err := execute(t, "validate", "-n", f.nodes, "-t", f.tunnels)
	assert.NoError(t, err)

	f = newFixture(t, "A:\n  service:\n    listen_endpoint: nowhere\n", exampleTunnels)
	_, err = execute(t, "validate", "-n", f.nodes, "-t", f.tunnels)
	assert.ErrorIs(t, err, topology.ErrFormat)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "conf-compose dev\n", out)
}

func TestUnknownFormat(t *testing.T) {
	f := newFixture(t, exampleNodes, exampleTunnels)
	_, err := execute(t, f.out, "-n", f.nodes, "-t", f.tunnels, "--format", "toml")
	assert.Error(t, err)
}
