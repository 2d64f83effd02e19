package output

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"conf-compose/pkg/auth"
	"conf-compose/pkg/model"
	"conf-compose/pkg/topology"
)

func id(v int) *int { return &v }

func artifacts() []model.Artifact {
	return []model.Artifact{
		{
			Node:      "A",
			Service:   model.NormalizedService{NodeID: id(1), Listen: &model.Endpoint{Addr: "0.0.0.0", Port: 9000}},
			Transport: map[string]any{},
			EntranceRules: []model.EntranceRule{
				{TunnelID: 100, ListenAddr: "0.0.0.0", ListenPort: 8080, Protocol: model.ProtocolTCP, NodeID: id(2)},
			},
			ForwardRules: []model.ForwardRule{},
		},
		{
			Node:          "B",
			Service:       model.NormalizedService{NodeID: id(2), Listen: &model.Endpoint{Addr: "0.0.0.0", Port: 9001}},
			Transport:     map[string]any{"mode": "<ws>"},
			EntranceRules: []model.EntranceRule{},
			ForwardRules: []model.ForwardRule{
				{TunnelID: 100, DestinationAddr: "127.0.0.1", DestinationPort: 80, Protocol: model.ProtocolTCP},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YAML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	_, err = ParseFormat("toml")
	assert.Error(t, err)
}

func TestMarshalJSON(t *testing.T) {
	data, err := Marshal(artifacts()[1], FormatJSON)
	require.NoError(t, err)
	s := string(data)
	assert.Contains(t, s, "\n    \"service\": {")
	assert.Contains(t, s, `"mode": "<ws>"`)
	assert.NotContains(t, s, "null")
	assert.NotContains(t, s, "node_id\": null")
	assert.True(t, strings.HasSuffix(s, "}\n"))
	assert.JSONEq(t, `{
		"service": {"node_id": 2, "listen_addr": "0.0.0.0", "listen_port": 9001},
		"transport": {"mode": "<ws>"},
		"entrance_rules": [],
		"forward_rules": [{"tunnel_id": 100, "destination_addr": "127.0.0.1", "destination_port": 80, "protocol": "tcp"}]
	}`, s)
}

func TestMarshalYAML(t *testing.T) {
	data, err := Marshal(artifacts()[0], FormatYAML)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(data, &back))
	svc := back["service"].(map[string]any)
	assert.Equal(t, 9000, svc["listen_port"])
	assert.NotContains(t, svc, "connect_peers")
	rules := back["entrance_rules"].([]any)
	require.Len(t, rules, 1)
	assert.Equal(t, 2, rules[0].(map[string]any)["node_id"])
	assert.Empty(t, back["forward_rules"])
}

func TestRenderRejectsUnsafeNames(t *testing.T) {
	for _, name := range []string{"", ".", "..", "a/b", `a\b`, "../etc"} {
		_, err := Render([]model.Artifact{{Node: name}}, FormatJSON)
		assert.ErrorIs(t, err, topology.ErrFormat, name)
	}
}

func TestCommitWritesEveryFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	docs, err := Render(artifacts(), FormatJSON)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "A.conf", docs[0].Name)
	assert.Len(t, docs[0].Digest, 64)

	paths, err := Writer{Dir: dir}.Commit(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "A.conf"), filepath.Join(dir, "B.conf")}, paths)

	for _, d := range docs {
		got, err := os.ReadFile(filepath.Join(dir, d.Name))
		require.NoError(t, err)
		assert.Equal(t, d.Data, got)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestCommitLeavesExistingFilesOnFailure(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "A.conf")
	require.NoError(t, os.WriteFile(old, []byte("old"), 0o644))

	docs, err := Render(artifacts(), FormatJSON)
	require.NoError(t, err)
	docs = append(docs, docs[0])

	_, err = Writer{Dir: dir}.Commit(context.Background(), docs)
	require.Error(t, err)

	got, err := os.ReadFile(old)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCommitCancelled(t *testing.T) {
	dir := t.TempDir()
	docs, err := Render(artifacts(), FormatJSON)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Writer{Dir: dir}.Commit(ctx, docs)
	assert.ErrorIs(t, err, context.Canceled)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManifestSigned(t *testing.T) {
	docs, err := Render(artifacts(), FormatJSON)
	require.NoError(t, err)
	secret := []byte("k")
	m, err := NewManifest("run-1", "dev", time.Unix(1700000000, 0), docs, secret)
	require.NoError(t, err)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, docs[1].Digest, m.Digests()["B"])
	assert.NotEmpty(t, m.Signature)

	doc, err := ManifestDocument(m)
	require.NoError(t, err)
	assert.Equal(t, ManifestFile, doc.Name)

	back, err := ReadManifest(doc.Data)
	require.NoError(t, err)
	require.NoError(t, auth.VerifyManifest(secret, back))
	assert.ErrorIs(t, auth.VerifyManifest([]byte("wrong"), back), auth.ErrInvalid)
}

func TestManifestUnsigned(t *testing.T) {
	m, err := NewManifest("", "dev", time.Now(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, m.Signature)
	doc, err := ManifestDocument(m)
	require.NoError(t, err)
	assert.NotContains(t, string(doc.Data), "signature")
}
