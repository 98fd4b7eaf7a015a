package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/user/snapbot/internal/entity"
	"github.com/user/snapbot/internal/repository"
)

// SessionRepoImpl keeps the session state in a single YAML file.
type SessionRepoImpl struct {
	path   string
	logger *zap.Logger
}

var _ repository.SessionStore = (*SessionRepoImpl)(nil)

func NewSessionRepo(path string, logger *zap.Logger) *SessionRepoImpl {
	return &SessionRepoImpl{path: path, logger: logger}
}

// Path returns the state file location.
func (r *SessionRepoImpl) Path() string {
	return r.path
}

// Load reads the state file. A missing, unreadable or corrupt file yields an
// empty state.
func (r *SessionRepoImpl) Load(ctx context.Context) (*entity.SessionState, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return entity.NewSessionState(), nil
	}
	if err != nil {
		r.logger.Warn("could not read state file, starting empty", zap.String("path", r.path), zap.Error(err))
		return entity.NewSessionState(), nil
	}

	state := entity.NewSessionState()
	if err := yaml.Unmarshal(data, state); err != nil {
		r.logger.Warn("corrupt state file, starting empty", zap.String("path", r.path), zap.Error(err))
		return entity.NewSessionState(), nil
	}
	if state.Processed == nil {
		state.Processed = []string{}
	}
	return state, nil
}

// Save replaces the state file. The write goes through a temp file and a
// rename so a crash never leaves a truncated record.
func (r *SessionRepoImpl) Save(ctx context.Context, state *entity.SessionState) error {
	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close state: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

func (r *SessionRepoImpl) Close() error {
	return nil
}
