//go:build consul

package consul

import (
	"context"
	"fmt"
	"strings"

	consulapi "github.com/hashicorp/consul/api"

	"conf-compose/pkg/logger"
	"conf-compose/pkg/model"
	"conf-compose/pkg/output"
)

var log = logger.GetLogger()

// Publisher writes an output set below Prefix in a single KV transaction.
type Publisher struct {
	cli    *consulapi.Client
	Prefix string
}

func NewPublisher(addr, prefix string) (*Publisher, error) {
	cfg := consulapi.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	cli, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("consul client: %w", err)
	}
	return &Publisher{cli: cli, Prefix: prefix}, nil
}

// Publish replaces the keys below the prefix with docs. The manifest document,
// if present, goes to ManifestKey.
func (p *Publisher) Publish(ctx context.Context, docs []model.Document) error {
	var manifest []byte
	nodes := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		if d.Name == output.ManifestFile {
			manifest = d.Data
			continue
		}
		nodes = append(nodes, d)
	}

	q := (&consulapi.QueryOptions{}).WithContext(ctx)
	existing, _, err := p.cli.KV().Keys(strings.TrimSuffix(p.Prefix, "/")+"/", "/", q)
	if err != nil {
		return fmt.Errorf("consul list %s: %w", p.Prefix, err)
	}
	ops, err := PlanOps(p.Prefix, nodes, manifest, existing)
	if err != nil {
		return err
	}

	txn := make(consulapi.TxnOps, 0, len(ops))
	for _, op := range ops {
		kv := &consulapi.KVTxnOp{Key: op.Key, Value: op.Value, Verb: consulapi.KVSet}
		if op.Verb == VerbDelete {
			kv.Verb = consulapi.KVDelete
		}
		txn = append(txn, &consulapi.TxnOp{KV: kv})
	}
	ok, resp, _, err := p.cli.Txn().Txn(txn, q)
	if err != nil {
		return fmt.Errorf("consul txn: %w", err)
	}
	if !ok {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, fmt.Sprintf("op %d: %s", e.OpIndex, e.What))
		}
		return fmt.Errorf("consul txn rolled back: %s", strings.Join(msgs, "; "))
	}
	log.WithField("prefix", p.Prefix).Infof("published %d keys to consul", len(ops))
	return nil
}
