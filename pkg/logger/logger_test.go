package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestModuleBeforeInit(t *testing.T) {
	if Module("Test") == nil {
		t.Fatal("Module returned nil before Init")
	}
	FromContext(context.Background(), "Test").Info("discarded")
}

func TestInitWritesLogFile(t *testing.T) {
	t.Cleanup(func() {
		Sync()
		base, sugar, rotator = nil, nil, nil
	})

	path := filepath.Join(t.TempDir(), "logs", "server.log")
	if err := Init(Options{Env: "production", LogFile: path}); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-42")
	FromContext(ctx, "Lookup").Infof("queried %s", "example.com")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(data)
	for _, want := range []string{`"logger":"Lookup"`, `"request_id":"req-42"`, "queried example.com"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}

func TestDeriveEnvironment(t *testing.T) {
	t.Setenv("GIN_MODE", "release")
	if got := DeriveEnvironment(); got != "production" {
		t.Errorf("GIN_MODE=release -> %q", got)
	}

	t.Setenv("GIN_MODE", "")
	t.Setenv("APP_ENV", "staging")
	if got := DeriveEnvironment(); got != "staging" {
		t.Errorf("APP_ENV=staging -> %q", got)
	}
}
