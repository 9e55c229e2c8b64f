package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dropDatabas3/aac/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Env != "dev" || cfg.Server.Addr != ":8080" {
		t.Errorf("defaults = %q %q", cfg.App.Env, cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "memory" || cfg.Challenges.Kind != "memory" {
		t.Errorf("storage defaults = %q %q", cfg.Storage.Driver, cfg.Challenges.Kind)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Errorf("access ttl = %v", cfg.AccessTTL())
	}
	if cfg.SMTP.Enabled {
		t.Error("smtp enabled without host")
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aac.yaml")
	yml := `
app:
  env: prod
server:
  addr: ":9090"
storage:
  driver: postgres
  dsn: postgres://yaml
jwt:
  issuer: https://idp.example
  access_ttl: 5m
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	// Env wins over YAML.
	t.Setenv("AAC_STORAGE_DSN", "postgres://env")
	t.Setenv("AAC_SMTP_HOST", "smtp.example")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Env != "prod" || cfg.Server.Addr != ":9090" {
		t.Errorf("yaml not applied: %q %q", cfg.App.Env, cfg.Server.Addr)
	}
	if cfg.Storage.DSN != "postgres://env" {
		t.Errorf("dsn = %q, env should win", cfg.Storage.DSN)
	}
	if cfg.JWT.Issuer != "https://idp.example" || cfg.AccessTTL() != 5*time.Minute {
		t.Errorf("jwt = %q %v", cfg.JWT.Issuer, cfg.AccessTTL())
	}
	if !cfg.SMTP.Enabled {
		t.Error("smtp host set but not enabled")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}
