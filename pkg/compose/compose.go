// Package compose turns a topology into one artifact per node.
package compose

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"conf-compose/pkg/logger"
	"conf-compose/pkg/model"
	"conf-compose/pkg/topology"
)

var log = logger.GetLogger()

// Options tunes Compile.
type Options struct {
	// Workers bounds concurrent per-node builds. Zero means GOMAXPROCS.
	Workers int
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Compile builds the artifact of every node, in topology order.
// Either every artifact is returned or none: the first failure cancels the
// remaining builds and is returned.
func Compile(ctx context.Context, topo *topology.Topology, opts Options) ([]model.Artifact, error) {
	nodes := topo.Nodes()
	out := make([]model.Artifact, len(nodes))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, n := range nodes {
		i, n := i, n
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			art, err := CompileNode(topo, n.Name)
			if err != nil {
				return err
			}
			out[i] = art
			log.WithFields(logger.Fields{
				"node":     n.Name,
				"entrance": len(art.EntranceRules),
				"forward":  len(art.ForwardRules),
			}).Debug("compiled node")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// CompileNode builds the artifact of a single node.
func CompileNode(topo *topology.Topology, name string) (model.Artifact, error) {
	art, err := topology.Build(topo, name)
	if err != nil {
		return model.Artifact{}, fmt.Errorf("node %s: %w", name, err)
	}
	return art, nil
}
