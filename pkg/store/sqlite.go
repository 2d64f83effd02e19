package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"conf-compose/pkg/model"
)

// DefaultSQLitePath is where the sqlite ledger lives unless told otherwise.
const DefaultSQLitePath = "conf-compose.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs(
	id TEXT PRIMARY KEY,
	build TEXT NOT NULL,
	nodes_file TEXT NOT NULL,
	tunnels_file TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS artifacts(
	run_id TEXT NOT NULL REFERENCES runs(id),
	node TEXT NOT NULL,
	node_id INTEGER NOT NULL,
	file TEXT NOT NULL,
	digest TEXT NOT NULL,
	entrance_rules INTEGER NOT NULL,
	forward_rules INTEGER NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_artifacts_node ON artifacts(node);
CREATE INDEX IF NOT EXISTS idx_artifacts_run ON artifacts(run_id);`

// SQLiteLedger stores runs in a local sqlite file.
type SQLiteLedger struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the ledger database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteLedger, error) {
	if path == "" {
		path = DefaultSQLitePath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite init schema: %w", err)
	}
	return &SQLiteLedger{db: db}, nil
}

func (s *SQLiteLedger) RecordRun(ctx context.Context, run model.Run) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs(id, build, nodes_file, tunnels_file, created_at) VALUES(?,?,?,?,?)`,
		run.ID, run.Build, run.NodesFile, run.TunnelsFile, run.CreatedAt.UnixNano()); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	for _, a := range run.Artifacts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO artifacts(run_id, node, node_id, file, digest, entrance_rules, forward_rules, created_at) VALUES(?,?,?,?,?,?,?,?)`,
			run.ID, a.Node, a.NodeID, a.File, a.Digest, a.EntranceRules, a.ForwardRules, run.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("insert artifact %s: %w", a.Node, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteLedger) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	q := `SELECT id, build, nodes_file, tunnels_file, created_at FROM runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var ts int64
		if err := rows.Scan(&r.ID, &r.Build, &r.NodesFile, &r.TunnelsFile, &ts); err != nil {
			return nil, err
		}
		r.CreatedAt = time.Unix(0, ts).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	// newest first from the query; callers get oldest first
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	for i := range runs {
		arts, err := s.queryArtifacts(ctx,
			`SELECT run_id, node, node_id, file, digest, entrance_rules, forward_rules, created_at FROM artifacts WHERE run_id=? ORDER BY rowid`,
			runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Artifacts = arts
	}
	return runs, nil
}

func (s *SQLiteLedger) ListNodeHistory(ctx context.Context, node string, limit int) ([]model.ArtifactRecord, error) {
	q := `SELECT run_id, node, node_id, file, digest, entrance_rules, forward_rules, created_at FROM artifacts WHERE node=? ORDER BY created_at DESC, rowid DESC`
	args := []any{node}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	out, err := s.queryArtifacts(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLiteLedger) queryArtifacts(ctx context.Context, q string, args ...any) ([]model.ArtifactRecord, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ArtifactRecord
	for rows.Next() {
		var a model.ArtifactRecord
		var ts int64
		if err := rows.Scan(&a.RunID, &a.Node, &a.NodeID, &a.File, &a.Digest, &a.EntranceRules, &a.ForwardRules, &ts); err != nil {
			return nil, err
		}
		a.CreatedAt = time.Unix(0, ts).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteLedger) Close() error { return s.db.Close() }
