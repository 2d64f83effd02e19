package model

import "time"

// Run captures one successful compile as kept by a ledger.
type Run struct {
	ID          string           `json:"id"`
	Build       string           `json:"build"`
	NodesFile   string           `json:"nodesFile"`
	TunnelsFile string           `json:"tunnelsFile"`
	CreatedAt   time.Time        `json:"createdAt"`
	Artifacts   []ArtifactRecord `json:"artifacts"`
}

// ArtifactRecord is the ledger entry for one node of a run.
type ArtifactRecord struct {
	RunID         string    `json:"runId"`
	Node          string    `json:"node"`
	NodeID        int       `json:"nodeId"`
	File          string    `json:"file"`
	Digest        string    `json:"digest"`
	EntranceRules int       `json:"entranceRules"`
	ForwardRules  int       `json:"forwardRules"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Manifest lists the documents of one output set.
type Manifest struct {
	RunID     string          `json:"runId,omitempty"`
	Build     string          `json:"build"`
	CreatedAt time.Time       `json:"createdAt"`
	Entries   []ManifestEntry `json:"entries"`
	Signature string          `json:"signature,omitempty"` // HS256 JWT over Digests
}

// ManifestEntry is one document of a manifest.
type ManifestEntry struct {
	Node   string `json:"node"`
	File   string `json:"file"`
	Digest string `json:"digest"`
}

// Digests maps node name to document digest.
func (m Manifest) Digests() map[string]string {
	out := make(map[string]string, len(m.Entries))
	for _, e := range m.Entries {
		out[e.Node] = e.Digest
	}
	return out
}
