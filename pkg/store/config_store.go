package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/borgmon/remindkeeper/pkg/models"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const appDirName = "remindkeeper"

// ConfigStore persists the daemon configuration as YAML
type ConfigStore struct {
	fs   afero.Fs
	path string
}

// NewConfigStore creates a store for the file at path on fs
func NewConfigStore(fs afero.Fs, path string) *ConfigStore {
	return &ConfigStore{fs: fs, path: path}
}

// DefaultConfigPath returns <user config dir>/remindkeeper/config.yaml
func DefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, "config.yaml"), nil
}

// DefaultStatePath returns the SQLite state file next to the config file
func DefaultStatePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "state.db")
}

func (cs *ConfigStore) Path() string {
	return cs.path
}

// Load reads the config. On first run the defaults are written and returned.
func (cs *ConfigStore) Load() (*models.Config, error) {
	if cs.path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := afero.ReadFile(cs.fs, cs.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := models.DefaultConfig()
			if err := cs.Save(cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := models.DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", cs.path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg atomically through a temp file in the same directory
func (cs *ConfigStore) Save(cfg *models.Config) error {
	if cs.path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(cs.path)
	if err := cs.fs.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := afero.TempFile(cs.fs, dir, ".remindkeeper-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer cs.fs.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := cs.fs.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return cs.fs.Rename(tmpName, cs.path)
}
