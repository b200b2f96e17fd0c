package mcp

import (
	"os"
	"path/filepath"
	"testing"
)

// setupTestServer creates a server rooted in a temp directory with an
// isolated HOME, so no real config or data directory is touched.
func setupTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	tmpDir := t.TempDir()

	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)

	server, err := NewServer(&Config{
		Name:    "test-server",
		Version: "v0.1.0",
		Root:    tmpDir,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return server, tmpDir
}

func TestNewServer(t *testing.T) {
	server, tmpDir := setupTestServer(t)
	defer server.Close()

	if server.server == nil {
		t.Error("Server.server is nil")
	}
	if server.store == nil {
		t.Error("Server.store is nil")
	}
	if server.conf == nil {
		t.Error("Server.conf is nil")
	}
	if server.root != tmpDir {
		t.Errorf("Server.root = %q, want %q", server.root, tmpDir)
	}
}

func TestNewServer_CreatesDataDir(t *testing.T) {
	server, tmpDir := setupTestServer(t)
	defer server.Close()

	dataDir := filepath.Join(tmpDir, ".oster")
	info, err := os.Stat(dataDir)
	if err != nil {
		t.Fatalf("data directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", dataDir)
	}
}
