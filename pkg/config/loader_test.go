package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestLoadConfig_EnvOverlayWins(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "db:\n  host: base-host\n  port: 5432\nserver:\n  port: \":8080\"\n")
	writeFile(t, dir, "staging.yaml", "db:\n  host: staging-host\n")

	cfg, err := LoadConfig("staging", dir)
	require.NoError(t, err)

	db := cfg["db"].(map[string]interface{})
	assert.Equal(t, "staging-host", db["host"])
	assert.Equal(t, 5432, db["port"], "keys absent from the overlay keep base values")
}

func TestLoadConfig_MissingOverlayIsFine(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "server:\n  port: \":8080\"\n")

	cfg, err := LoadConfig("nonexistent", dir)
	require.NoError(t, err)
	assert.Contains(t, cfg, "server")
}

func TestLoadConfig_SecretsSubstitution(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "jwt:\n  secret: ${JWT_SECRET}\n")
	writeFile(t, dir, "secrets.env", "JWT_SECRET=hunter2\n")

	cfg, err := LoadConfig("base", dir)
	require.NoError(t, err)

	jwt := cfg["jwt"].(map[string]interface{})
	assert.Equal(t, "hunter2", jwt["secret"])
}

func TestOverrideDBFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "env-host")
	t.Setenv("DB_PORT", "6543")

	cfg := DBConfig{Host: "file-host", Port: 5432, Name: "familytree"}
	OverrideDBFromEnv(&cfg)

	assert.Equal(t, "env-host", cfg.Host)
	assert.Equal(t, 6543, cfg.Port)
	assert.Equal(t, "familytree", cfg.Name, "unset vars leave file values alone")
}
