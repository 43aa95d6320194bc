package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadDefaultsAndEnvOverride(t *testing.T) {
	p := writeConfig(t, `
app:
  env: development
jwt:
  secret: file-secret
auth:
  exposeCode: true
db:
  driver: sqlite
  dsn: "file::memory:"
`)
	t.Setenv("APP_JWT_SECRET", "env-secret")

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.JWT.Secret != "env-secret" {
		t.Errorf("jwt secret = %q, want env override", c.JWT.Secret)
	}
	if c.JWT.TTL() != 7*24*time.Hour {
		t.Errorf("jwt ttl = %v, want 7 days", c.JWT.TTL())
	}
	if c.Auth.BcryptCost != 10 || c.Auth.CodeTTLSec != 300 || c.Auth.CodeIntervalSec != 60 {
		t.Errorf("auth defaults = %+v", c.Auth)
	}
	if c.Auth.DefaultRole != "user" {
		t.Errorf("default role = %q", c.Auth.DefaultRole)
	}
	if !c.Auth.ExposeCode {
		t.Errorf("exposeCode should stay on outside production")
	}
}

func TestLoadProductionNeverExposesCode(t *testing.T) {
	p := writeConfig(t, `
app:
  env: production
jwt:
  secret: s
auth:
  exposeCode: true
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Auth.ExposeCode {
		t.Fatal("exposeCode must be forced off in production")
	}
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	p := writeConfig(t, "app:\n  env: development\n")
	_, err := Load(p)
	if err == nil || !strings.Contains(err.Error(), "jwt.secret") {
		t.Fatalf("err = %v, want jwt.secret error", err)
	}
}
