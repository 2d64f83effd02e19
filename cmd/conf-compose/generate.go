package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"conf-compose/pkg/compose"
	"conf-compose/pkg/config"
	"conf-compose/pkg/loader"
	"conf-compose/pkg/logger"
	"conf-compose/pkg/model"
	"conf-compose/pkg/output"
	"conf-compose/pkg/store"
	"conf-compose/pkg/topology"
	"conf-compose/pkg/validate"
	"conf-compose/pkg/version"
)

type generateResult struct {
	RunID     string
	Artifacts []model.Artifact
	Documents []model.Document
	Paths     []string
}

// loadValidated loads both documents and runs the validator over them.
func loadValidated(cfg config.Config) (*topology.Topology, error) {
	nodes, err := loader.LoadNodes(cfg.NodesFile)
	if err != nil {
		return nil, err
	}
	tunnels, err := loader.LoadTunnels(cfg.TunnelsFile)
	if err != nil {
		return nil, err
	}
	if err := validate.Validate(nodes, tunnels); err != nil {
		issues := validate.Issues(err)
		for _, is := range issues {
			log.WithFields(logger.Fields{
				"kind": topology.KindOf(is.Kind),
				"path": is.Path,
			}).Error(is.Message)
		}
		return nil, fmt.Errorf("validation failed with %d issue(s): %w", len(issues), err)
	}
	log.WithFields(logger.Fields{
		"nodes":   cfg.NodesFile,
		"tunnels": cfg.TunnelsFile,
	}).Info("YAML validation successful")
	return topology.New(nodes, tunnels)
}

func runGenerate(ctx context.Context, cfg config.Config) (generateResult, error) {
	format, err := output.ParseFormat(cfg.Format)
	if err != nil {
		return generateResult{}, err
	}
	topo, err := loadValidated(cfg)
	if err != nil {
		return generateResult{}, err
	}

	arts, err := compose.Compile(ctx, topo, compose.Options{Workers: cfg.Workers})
	if err != nil {
		return generateResult{}, err
	}
	docs, err := output.Render(arts, format)
	if err != nil {
		return generateResult{}, err
	}

	res := generateResult{RunID: uuid.NewString(), Artifacts: arts}
	now := time.Now().UTC()
	all := docs
	if cfg.Manifest || cfg.SignSecret != "" {
		m, err := output.NewManifest(res.RunID, version.Build, now, docs, []byte(cfg.SignSecret))
		if err != nil {
			return generateResult{}, err
		}
		md, err := output.ManifestDocument(m)
		if err != nil {
			return generateResult{}, err
		}
		all = append(append([]model.Document(nil), docs...), md)
	}
	res.Documents = all

	if cfg.DryRun {
		for _, a := range arts {
			log.WithFields(logger.Fields{
				"node":           a.Node,
				"entrance_rules": len(a.EntranceRules),
				"forward_rules":  len(a.ForwardRules),
			}).Info("dry run, not written")
		}
		return res, nil
	}

	// open sinks before touching the output directory
	ledger, err := openLedger(ctx, cfg)
	if err != nil {
		return generateResult{}, err
	}
	if ledger != nil {
		defer ledger.Close()
	}
	publisher, err := openPublisher(cfg)
	if err != nil {
		return generateResult{}, err
	}

	paths, err := output.Writer{Dir: cfg.OutputDir}.Commit(ctx, all)
	if err != nil {
		return generateResult{}, err
	}
	res.Paths = paths

	if ledger != nil {
		if err := ledger.RecordRun(ctx, newRun(res.RunID, now, cfg, arts, docs)); err != nil {
			return res, fmt.Errorf("record run: %w", err)
		}
		log.WithField("run", res.RunID).Info("run recorded")
	}
	if publisher != nil {
		if err := publisher.Publish(ctx, all); err != nil {
			return res, fmt.Errorf("publish: %w", err)
		}
	}
	return res, nil
}

func newRun(id string, at time.Time, cfg config.Config, arts []model.Artifact, docs []model.Document) model.Run {
	run := model.Run{
		ID:          id,
		Build:       version.Build,
		NodesFile:   cfg.NodesFile,
		TunnelsFile: cfg.TunnelsFile,
		CreatedAt:   at,
		Artifacts:   make([]model.ArtifactRecord, 0, len(arts)),
	}
	for i, a := range arts {
		rec := model.ArtifactRecord{
			RunID:         id,
			Node:          a.Node,
			File:          docs[i].Name,
			Digest:        docs[i].Digest,
			EntranceRules: len(a.EntranceRules),
			ForwardRules:  len(a.ForwardRules),
			CreatedAt:     at,
		}
		if a.Service.NodeID != nil {
			rec.NodeID = *a.Service.NodeID
		}
		run.Artifacts = append(run.Artifacts, rec)
	}
	return run
}

func openPublisher(cfg config.Config) (store.Publisher, error) {
	switch cfg.Publish {
	case "", "none":
		return nil, nil
	case "consul":
		return store.NewConsulPublisher(cfg.ConsulAddr, cfg.ConsulPrefix)
	default:
		return nil, fmt.Errorf("unknown publish target %q (want none or consul)", cfg.Publish)
	}
}
