package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/paketbox-core/internal/auth"
)

// TestRun_InvalidConfig verifies run fails with an invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("PAKETBOX_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_ValidationFailure verifies run refuses a config that fails validation
// before touching any hardware.
func TestRun_ValidationFailure(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
site:
  id: test-box
database:
  path: ""
api:
  enabled: false
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("PAKETBOX_CONFIG", configPath)

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("run() error = %v, want a config error", err)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("PAKETBOX_CONFIG", "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}

	t.Setenv("PAKETBOX_CONFIG", "/etc/paketbox/config.yaml")
	if got := getConfigPath(); got != "/etc/paketbox/config.yaml" {
		t.Errorf("getConfigPath() = %q, want env override", got)
	}
}

func TestHashPassword(t *testing.T) {
	var out bytes.Buffer
	if err := hashPassword(strings.NewReader("letmein\n"), &out); err != nil {
		t.Fatalf("hashPassword() error = %v", err)
	}
	hash := strings.TrimSpace(out.String())
	ok, err := auth.VerifyPassword("letmein", hash)
	if err != nil || !ok {
		t.Errorf("VerifyPassword() = %v, %v; want true", ok, err)
	}

	if err := hashPassword(strings.NewReader("\n"), &out); err == nil {
		t.Error("hashPassword() accepted an empty password")
	}
}
