package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	t.Run("with explicit path", func(t *testing.T) {
		dir, err := New("/tmp/test-sides")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if dir.Path() != "/tmp/test-sides" {
			t.Errorf("expected path /tmp/test-sides, got %s", dir.Path())
		}
	})

	t.Run("with empty path uses default", func(t *testing.T) {
		dir, err := New("")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, DefaultDirName)
		if dir.Path() != expected {
			t.Errorf("expected path %s, got %s", expected, dir.Path())
		}
	})
}

func TestDir_Paths(t *testing.T) {
	dir, _ := New("/tmp/test-sides")

	t.Run("ConfigPath", func(t *testing.T) {
		expected := "/tmp/test-sides/config.yaml"
		if dir.ConfigPath() != expected {
			t.Errorf("expected %s, got %s", expected, dir.ConfigPath())
		}
	})

	t.Run("TranscriptsDir", func(t *testing.T) {
		expected := "/tmp/test-sides/transcripts"
		if dir.TranscriptsDir() != expected {
			t.Errorf("expected %s, got %s", expected, dir.TranscriptsDir())
		}
	})

	t.Run("TranscriptPath", func(t *testing.T) {
		tests := []struct {
			source, runID, ext string
			want               string
		}{
			{"scripts/jaws.pdf", "0f8fad5b-d9cb-469f-a165-70867728950e", "yaml", "/tmp/test-sides/transcripts/jaws-0f8fad5b.yaml"},
			{"alien", "abc", "json", "/tmp/test-sides/transcripts/alien-abc.json"},
			{"", "abc", "yaml", "/tmp/test-sides/transcripts/transcript-abc.yaml"},
		}
		for _, tt := range tests {
			if got := dir.TranscriptPath(tt.source, tt.runID, tt.ext); got != tt.want {
				t.Errorf("TranscriptPath(%q) = %s, want %s", tt.source, got, tt.want)
			}
		}
	})
}

func TestDir_EnsureExists(t *testing.T) {
	tmp := t.TempDir()
	dir, _ := New(filepath.Join(tmp, "sides"))

	if dir.Exists() {
		t.Fatal("directory should not exist yet")
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	if !dir.Exists() {
		t.Error("home directory should exist")
	}
	if _, err := os.Stat(dir.TranscriptsDir()); err != nil {
		t.Errorf("transcripts directory missing: %v", err)
	}
	if dir.ConfigExists() {
		t.Error("ConfigExists() = true with no config file")
	}

	if err := os.WriteFile(dir.ConfigPath(), []byte("log:\n  level: info\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !dir.ConfigExists() {
		t.Error("ConfigExists() = false after writing config")
	}
}
