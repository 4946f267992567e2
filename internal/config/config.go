// Package config loads the TOML configuration file shared by the refal CLI
// and HTTP server (SPEC_FULL §11), the way internal/tqw loads a TunaQuest
// world bundle: a typed manifest struct decoded directly with
// BurntSushi/toml, then converted into the plain Go values the rest of the
// program consumes.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the fully-resolved configuration for a refal invocation.
type Config struct {
	// ModulePath holds the directory list of the config file's modules.path
	// setting. Nothing in refal reads it; source files are always given by
	// file path.
	ModulePath []string

	// DefaultGoal is the goal evaluated when a CLI invocation names a
	// program file but no explicit goal expression.
	DefaultGoal string

	// ServerAddr is the bind address of the HTTP evaluation service.
	ServerAddr string

	// LogLevel holds the config file's log.level setting ("debug", "info",
	// "warn", or "error"). Nothing in refal reads it; log output is not
	// filtered by severity.
	LogLevel string

	// AuthSecretHash is the bcrypt hash of the bearer secret the HTTP
	// service requires (SPEC_FULL §12 server authentication). Empty disables
	// the token-issuing auth endpoint; evaluation still requires a bearer
	// token.
	AuthSecretHash string

	// JWTSigningKey signs the short-lived session tokens issued after a
	// successful secret exchange.
	JWTSigningKey string

	// AuditDBPath is the sqlite file the server's audit log is stored in.
	AuditDBPath string
}

// manifest is the on-disk TOML shape, decoded verbatim before being
// normalized into a Config.
type manifest struct {
	Format string `toml:"format"`

	Modules struct {
		Path        []string `toml:"path"`
		DefaultGoal string   `toml:"default_goal"`
	} `toml:"modules"`

	Server struct {
		Addr           string `toml:"addr"`
		AuthSecretHash string `toml:"auth_secret_hash"`
		JWTSigningKey  string `toml:"jwt_signing_key"`
		AuditDBPath    string `toml:"audit_db_path"`
	} `toml:"server"`

	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Default returns the configuration used when no config file is given.
func Default() Config {
	return Config{
		ModulePath:  []string{"."},
		DefaultGoal: "Main",
		ServerAddr:  ":8080",
		LogLevel:    "info",
		AuditDBPath: "refal-audit.db",
	}
}

// Load reads and decodes the TOML configuration file at path, falling back
// to Default for any field the file leaves unset.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("stat config file: %w", err)
	}

	var m manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
	}
	if m.Format != "" && m.Format != "refal-config-v1" {
		return Config{}, fmt.Errorf("unsupported config format %q", m.Format)
	}

	if len(m.Modules.Path) > 0 {
		cfg.ModulePath = m.Modules.Path
	}
	if m.Modules.DefaultGoal != "" {
		cfg.DefaultGoal = m.Modules.DefaultGoal
	}
	if m.Server.Addr != "" {
		cfg.ServerAddr = m.Server.Addr
	}
	cfg.AuthSecretHash = m.Server.AuthSecretHash
	cfg.JWTSigningKey = m.Server.JWTSigningKey
	if m.Server.AuditDBPath != "" {
		cfg.AuditDBPath = m.Server.AuditDBPath
	}
	if m.Log.Level != "" {
		cfg.LogLevel = m.Log.Level
	}

	return cfg, nil
}
