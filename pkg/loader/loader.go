// Package loader reads the node and tunnel topology documents.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"conf-compose/pkg/model"
	"conf-compose/pkg/topology"
)

// Load reads both documents and indexes them.
func Load(nodesPath, tunnelsPath string) (*topology.Topology, error) {
	nodes, err := LoadNodes(nodesPath)
	if err != nil {
		return nil, err
	}
	tunnels, err := LoadTunnels(tunnelsPath)
	if err != nil {
		return nil, err
	}
	return topology.New(nodes, tunnels)
}

// LoadNodes reads a node document: a mapping of node name to settings.
// Nodes are returned in document order.
func LoadNodes(path string) ([]model.Node, error) {
	var nodes []model.Node
	err := eachEntry(path, func(name string, value *yaml.Node) error {
		var n model.Node
		if err := value.Decode(&n); err != nil {
			return err
		}
		n.Name = name
		nodes = append(nodes, n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// LoadTunnels reads a tunnel document: a mapping of tunnel name to tunnel.
// Tunnels are returned in document order.
func LoadTunnels(path string) ([]model.Tunnel, error) {
	var tunnels []model.Tunnel
	err := eachEntry(path, func(name string, value *yaml.Node) error {
		var t model.Tunnel
		if err := value.Decode(&t); err != nil {
			return err
		}
		t.Name = name
		tunnels = append(tunnels, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tunnels, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, oops.Code(topology.CodeFileAccess).With("file", path).
			Wrapf(fmt.Errorf("%w: %w", topology.ErrFileAccess, err), "read %s", path)
	}
	if !utf8.Valid(data) {
		return nil, oops.Code(topology.CodeFileAccess).With("file", path).
			Wrapf(topology.ErrFileAccess, "cannot decode %s, check file encoding", path)
	}
	return data, nil
}

// eachEntry walks the top-level mapping of the YAML file at path in order.
func eachEntry(path string, fn func(name string, value *yaml.Node) error) error {
	data, err := readFile(path)
	if err != nil {
		return err
	}
	parseErr := func(err error, format string, args ...any) error {
		cause := topology.ErrParse
		if err != nil {
			cause = fmt.Errorf("%w: %w", topology.ErrParse, err)
		}
		return oops.Code(topology.CodeParse).With("file", path).Wrapf(cause, format, args...)
	}

	var doc yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return parseErr(err, "invalid YAML in %s", path)
	}
	if len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return nil
	}
	if root.Kind != yaml.MappingNode {
		return parseErr(nil, "%s: top level must be a mapping", path)
	}

	seen := make(map[string]bool, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return parseErr(nil, "%s line %d: key must be a string", path, key.Line)
		}
		name := key.Value
		if seen[name] {
			return parseErr(nil, "%s line %d: %q is defined twice", path, key.Line, name)
		}
		seen[name] = true
		if err := fn(name, value); err != nil {
			return parseErr(err, "%s line %d: %q", path, value.Line, name)
		}
	}
	return nil
}
