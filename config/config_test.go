package config

import "testing"

func TestLoadRequiresRootDir(t *testing.T) {
	t.Setenv("LAYEREDSTORE_ROOT_DIR", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when LAYEREDSTORE_ROOT_DIR is empty")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("LAYEREDSTORE_ROOT_DIR", "/tmp/layers")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.RootDir != "/tmp/layers" {
		t.Fatalf("expected root dir /tmp/layers, got %q", c.RootDir)
	}
	if c.IndexDSN != "file:index.sqlite" {
		t.Fatalf("expected default DSN, got %q", c.IndexDSN)
	}
	if c.InlineMaxBytes != 0 {
		t.Fatalf("expected default inline threshold 0, got %d", c.InlineMaxBytes)
	}
	if c.LogLevel != "error" {
		t.Fatalf("expected default log level error, got %q", c.LogLevel)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("LAYEREDSTORE_ROOT_DIR", "/tmp/layers")
	t.Setenv("LAYEREDSTORE_INLINE_MAX_BYTES", "4096")
	t.Setenv("LAYEREDSTORE_LOG_LEVEL", "debug")

	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.InlineMaxBytes != 4096 {
		t.Fatalf("expected inline threshold 4096, got %d", c.InlineMaxBytes)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %q", c.LogLevel)
	}
}
