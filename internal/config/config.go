package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Key inside db.json naming the database file the server binds to.
const dbPathKey = "db_file_path"

// Config holds the configuration values for the application.
type Config struct {
	ListenAddr string
	DataDir    string
	// ImgsDir holds uploaded image files, one per token.
	ImgsDir string
	// DBConfigPath is the side file (db.json) holding the active database
	// path. Read once per process; changing it requires a restart.
	DBConfigPath string
	// DefaultDBPath is used when db.json is absent.
	DefaultDBPath string
	// DefaultImagePath is the placeholder served for unknown image tokens.
	DefaultImagePath string
}

// Load builds a Config from environment variables with hardcoded fallbacks.
// A non-empty dataDir overrides STOCKROOM_DATA_DIR.
func Load(dataDir string) *Config {
	addr := os.Getenv("STOCKROOM_ADDR")
	if addr == "" {
		addr = ":8000"
	}

	if dataDir == "" {
		dataDir = os.Getenv("STOCKROOM_DATA_DIR")
	}
	if dataDir == "" {
		dataDir = "./stockroom-data"
	}

	return &Config{
		ListenAddr:       addr,
		DataDir:          dataDir,
		ImgsDir:          filepath.Join(dataDir, "imgs"),
		DBConfigPath:     filepath.Join(dataDir, "db.json"),
		DefaultDBPath:    filepath.Join(dataDir, "stockroom.db"),
		DefaultImagePath: filepath.Join(dataDir, "default.jpg"),
	}
}

// EnsureDirs creates the data and image directories if they do not exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.DataDir, c.ImgsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure dir %s: %w", dir, err)
		}
	}
	return nil
}

// ActiveDBPath returns the database path from db.json. A missing file falls
// back to DefaultDBPath; a malformed one is an error, not a fallback.
func (c *Config) ActiveDBPath() (string, error) {
	v := viper.New()
	v.SetConfigFile(c.DBConfigPath)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return c.DefaultDBPath, nil
		}
		return "", fmt.Errorf("read %s: %w", c.DBConfigPath, err)
	}

	path := v.GetString(dbPathKey)
	if path == "" {
		return c.DefaultDBPath, nil
	}
	return path, nil
}

// SaveDBPath overwrites db.json with the given database path. The target is
// not validated; it takes effect on the next process start.
func (c *Config) SaveDBPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(c.DBConfigPath), 0o755); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(c.DBConfigPath)
	v.SetConfigType("json")
	v.Set(dbPathKey, path)
	return v.WriteConfigAs(c.DBConfigPath)
}

// BootstrapDBConfig writes a db.json pointing at the default database path
// if none exists yet. Called on the first successful admin login.
func (c *Config) BootstrapDBConfig() (bool, error) {
	if _, err := os.Stat(c.DBConfigPath); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	if err := c.SaveDBPath(c.DefaultDBPath); err != nil {
		return false, err
	}
	return true, nil
}
