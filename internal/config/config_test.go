package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Default(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"."}, cfg.ModulePath)
	assert.Equal(t, "Main", cfg.DefaultGoal)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "info", cfg.LogLevel)
}

func Test_Load_emptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, Default(), cfg)
}

func Test_Load_missingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func Test_Load_overridesDefaultsFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refal.toml")
	contents := `format = "refal-config-v1"

[modules]
path = ["./lib", "./app"]
default_goal = "Start"

[server]
addr = ":9090"
auth_secret_hash = "$2a$bogus"
jwt_signing_key = "supersecret"
audit_db_path = "audit.db"

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if !assert.NoError(t, err) {
		return
	}
	assert.Equal(t, []string{"./lib", "./app"}, cfg.ModulePath)
	assert.Equal(t, "Start", cfg.DefaultGoal)
	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "$2a$bogus", cfg.AuthSecretHash)
	assert.Equal(t, "supersecret", cfg.JWTSigningKey)
	assert.Equal(t, "audit.db", cfg.AuditDBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func Test_Load_rejectsUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refal.toml")
	if err := os.WriteFile(path, []byte(`format = "something-else"`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	assert.Error(t, err)
}
