// Package node holds the verifier service's on-disk configuration: a
// small JSON file naming the datadir and log level a store.DB and event
// sink need, with defaults and validation kept in one place so both
// service binaries agree on them.
package node

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Config is the verifier service's runtime configuration: where its
// bbolt state lives and how noisy its structured logging should be.
type Config struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
}

var allowedLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// DefaultDataDir returns ~/.oraclecore, falling back to a relative path
// if the home directory cannot be resolved.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".oraclecore"
	}
	return filepath.Join(home, ".oraclecore")
}

// DefaultConfig returns the configuration a freshly initialized verifier
// deployment starts from.
func DefaultConfig() Config {
	return Config{
		DataDir:  DefaultDataDir(),
		LogLevel: "info",
	}
}

// ValidateConfig checks the invariants a loaded config file must satisfy
// before oraclecore-node opens a store.DB (oraclecore-admin takes its
// datadir from a flag and does not call it).
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		return errors.New("data_dir is required")
	}
	logLevel := strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if _, ok := allowedLogLevels[logLevel]; !ok {
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return nil
}

// LoadConfigFile reads and validates a Config from a JSON file. The read
// is constrained to a single named file under its parent directory rather
// than an unrestricted os.ReadFile of an attacker-influenced path.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	raw, err := readScopedFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse config")
	}
	if err := ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// readScopedFile reads exactly one named file rooted at its parent
// directory. Names carrying separators or dot-dot segments are rejected
// before any filesystem access.
func readScopedFile(path string) ([]byte, error) {
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	if name == "" || name == "." || name == ".." {
		return nil, errors.Errorf("invalid config file name %q", name)
	}
	return fs.ReadFile(os.DirFS(dir), name)
}
