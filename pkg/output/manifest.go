package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"conf-compose/pkg/auth"
	"conf-compose/pkg/model"
)

// ManifestFile is the name the manifest is written under.
const ManifestFile = "manifest.json"

// NewManifest lists docs with their digests. A non-empty secret signs it.
func NewManifest(runID, build string, createdAt time.Time, docs []model.Document, secret []byte) (model.Manifest, error) {
	m := model.Manifest{
		RunID:     runID,
		Build:     build,
		CreatedAt: createdAt.UTC(),
		Entries:   make([]model.ManifestEntry, 0, len(docs)),
	}
	for _, d := range docs {
		m.Entries = append(m.Entries, model.ManifestEntry{Node: d.Node, File: d.Name, Digest: d.Digest})
	}
	if len(secret) > 0 {
		sig, err := auth.SignManifest(secret, m)
		if err != nil {
			return model.Manifest{}, fmt.Errorf("sign manifest: %w", err)
		}
		m.Signature = sig
	}
	return m, nil
}

// ManifestDocument renders m so it can be written next to the artifacts.
func ManifestDocument(m model.Manifest) (model.Document, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return model.Document{}, fmt.Errorf("render manifest: %w", err)
	}
	return model.Document{Name: ManifestFile, Data: buf.Bytes(), Digest: Digest(buf.Bytes())}, nil
}

// ReadManifest decodes a manifest written by ManifestDocument.
func ReadManifest(data []byte) (model.Manifest, error) {
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return model.Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
