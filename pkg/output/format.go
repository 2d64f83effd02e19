// Package output renders node artifacts and writes them to disk as one set.
package output

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"conf-compose/pkg/model"
	"conf-compose/pkg/topology"
)

// Format selects how artifacts are serialized.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FileExt is the extension of every node artifact, whatever the format.
const FileExt = ".conf"

// ParseFormat accepts "json" or "yaml" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want json or yaml)", s)
	}
}

// Marshal serializes one artifact. JSON is indented by four spaces and ends
// with a newline.
func Marshal(a model.Artifact, f Format) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case FormatJSON, "":
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "    ")
		if err := enc.Encode(a); err != nil {
			return nil, err
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(a); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown output format %q", f)
	}
	return buf.Bytes(), nil
}

// FileName is the artifact file name of a node.
func FileName(node string) (string, error) {
	if node == "" || node == "." || node == ".." || filepath.Base(node) != node || strings.ContainsAny(node, `/\`) {
		return "", oops.Code(topology.CodeFormat).With("node", node).
			Wrapf(topology.ErrFormat, "node name %q cannot be used as a file name", node)
	}
	return node + FileExt, nil
}

// Render serializes every artifact in memory. Nothing is written.
func Render(artifacts []model.Artifact, f Format) ([]model.Document, error) {
	docs := make([]model.Document, 0, len(artifacts))
	for _, a := range artifacts {
		name, err := FileName(a.Node)
		if err != nil {
			return nil, err
		}
		data, err := Marshal(a, f)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", a.Node, err)
		}
		docs = append(docs, model.Document{Node: a.Node, Name: name, Data: data, Digest: Digest(data)})
	}
	return docs, nil
}

// Digest is the hex sha256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
