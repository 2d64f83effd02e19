// Package consul publishes rendered artifacts to the Consul KV store.
package consul

import (
	"fmt"
	"slices"
	"strings"

	"conf-compose/pkg/model"
)

// MaxTxnOps is the number of operations Consul accepts in one transaction.
const MaxTxnOps = 64

// ManifestKey is the key, below the prefix, that holds the manifest.
const ManifestKey = "_manifest"

// Verb is a KV transaction verb.
type Verb string

const (
	VerbSet    Verb = "set"
	VerbDelete Verb = "delete"
)

// Op is one KV operation of a publish transaction.
type Op struct {
	Verb  Verb
	Key   string
	Value []byte
}

// Key joins prefix and name with a single slash.
func Key(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

// PlanOps returns the operations that make the keys below prefix hold exactly
// docs: one set per node document, a set of ManifestKey when manifest is not
// nil, and a delete for every existing key that is no longer produced.
func PlanOps(prefix string, docs []model.Document, manifest []byte, existing []string) ([]Op, error) {
	if strings.Trim(prefix, "/") == "" {
		return nil, fmt.Errorf("consul prefix must not be empty")
	}
	ops := make([]Op, 0, len(docs)+1)
	keep := make(map[string]bool, len(docs)+1)
	for _, d := range docs {
		if d.Node == "" {
			continue
		}
		k := Key(prefix, d.Node)
		keep[k] = true
		ops = append(ops, Op{Verb: VerbSet, Key: k, Value: d.Data})
	}
	if manifest != nil {
		k := Key(prefix, ManifestKey)
		keep[k] = true
		ops = append(ops, Op{Verb: VerbSet, Key: k, Value: manifest})
	}
	stale := make([]string, 0)
	for _, k := range existing {
		if !keep[k] {
			stale = append(stale, k)
		}
	}
	slices.Sort(stale)
	for _, k := range stale {
		ops = append(ops, Op{Verb: VerbDelete, Key: k})
	}
	if len(ops) > MaxTxnOps {
		return nil, fmt.Errorf("publish needs %d operations, consul allows %d per transaction", len(ops), MaxTxnOps)
	}
	return ops, nil
}
