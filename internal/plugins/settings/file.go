package settings

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileStore reads and writes the generated YAML settings file.
type FileStore struct {
	path string
}

// NewFileStore returns a store for the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (f *FileStore) Path() string {
	return f.path
}

// Load parses the file. A missing file yields os.ErrNotExist.
func (f *FileStore) Load() (*FileConfig, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}
	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.path, err)
	}
	return &cfg, nil
}

// Save writes cfg, replacing the file atomically.
func (f *FileStore) Save(cfg *FileConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding settings file: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.yaml")
	if err != nil {
		return fmt.Errorf("writing settings file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing settings file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing settings file: %w", err)
	}
	return os.Rename(tmp.Name(), f.path)
}

// EnsureExists writes a file with default values if none exists yet.
func (f *FileStore) EnsureExists() (created bool, err error) {
	if _, err := os.Stat(f.path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	return true, f.Save(&FileConfig{
		PageName:        pageName,
		PageDescription: pageDescription,
		AllowedURLs:     defaultAllowedURLs(),
	})
}

// AllowedURLs returns the file's allow-list. A missing file is an empty
// list, not an error.
func (f *FileStore) AllowedURLs(ctx context.Context) ([]string, error) {
	cfg, err := f.Load()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg.AllowedURLs, nil
}
