package output

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"conf-compose/pkg/logger"
	"conf-compose/pkg/model"
)

var log = logger.GetLogger()

// Writer puts a set of documents into Dir.
type Writer struct {
	Dir string
}

type staged struct {
	tmp   string
	final string
}

// Commit writes docs into w.Dir as one set and returns the final paths.
// Every document is first written and synced to a temp file in Dir; only when
// all of them succeeded are they renamed into place. On failure before that
// point the temp files are removed and existing files are left untouched.
func (w Writer) Commit(ctx context.Context, docs []model.Document) ([]string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir output: %w", err)
	}
	seen := make(map[string]bool, len(docs))
	for _, d := range docs {
		if seen[d.Name] {
			return nil, fmt.Errorf("duplicate output file %s", d.Name)
		}
		seen[d.Name] = true
	}

	files := make([]staged, 0, len(docs))
	cleanup := func() {
		for _, f := range files {
			_ = os.Remove(f.tmp)
		}
	}
	for _, d := range docs {
		if err := ctx.Err(); err != nil {
			cleanup()
			return nil, err
		}
		tmp, err := writeTemp(w.Dir, d)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("write %s: %w", d.Name, err)
		}
		files = append(files, staged{tmp: tmp, final: filepath.Join(w.Dir, d.Name)})
	}

	paths := make([]string, 0, len(files))
	for i, f := range files {
		if err := os.Rename(f.tmp, f.final); err != nil {
			for _, rest := range files[i:] {
				_ = os.Remove(rest.tmp)
			}
			return paths, fmt.Errorf("rename %s: %w", f.final, err)
		}
		paths = append(paths, f.final)
		log.Infof("generated %s", f.final)
	}
	return paths, nil
}

func writeTemp(dir string, d model.Document) (string, error) {
	f, err := os.CreateTemp(dir, "."+d.Name+".tmp-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if _, err := f.Write(d.Data); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		_ = os.Remove(name)
		return "", err
	}
	return name, nil
}
