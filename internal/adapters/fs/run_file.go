// Package fs persists run summaries on the local filesystem.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/bft-labs/basepilot/internal/domain"
	"github.com/bft-labs/basepilot/internal/ports"
)

const runFileName = "last_run.json"

// RunFileRepository implements ports.RunRepository using a JSON file.
type RunFileRepository struct {
	dir string
}

var _ ports.RunRepository = (*RunFileRepository)(nil)

// NewRunFileRepository creates a repository storing its file in dir.
func NewRunFileRepository(dir string) *RunFileRepository {
	return &RunFileRepository{dir: dir}
}

// Load retrieves the last saved run summary from disk.
// Returns an empty summary and nil error if no file exists.
func (r *RunFileRepository) Load(ctx context.Context) (domain.RunSummary, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RunSummary{}, nil
		}
		return domain.RunSummary{}, err
	}

	var summary domain.RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return domain.RunSummary{}, err
	}

	return summary, nil
}

// Save persists the summary atomically (write to temp file, then rename).
func (r *RunFileRepository) Save(ctx context.Context, summary domain.RunSummary) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// Path returns the full path to the run file.
func (r *RunFileRepository) Path() string {
	return filepath.Join(r.dir, runFileName)
}
