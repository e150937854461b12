package home

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultDirName is the default name for the sides home directory.
	DefaultDirName = ".sides"

	// TranscriptsDirName is the subdirectory for saved transcripts.
	TranscriptsDirName = "transcripts"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the sides home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.sides).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// TranscriptsDir returns the directory saved transcripts are written to.
func (d *Dir) TranscriptsDir() string {
	return filepath.Join(d.path, TranscriptsDirName)
}

// TranscriptPath returns where a transcript of source from run runID is
// saved. The source's extension is replaced with ext.
func (d *Dir) TranscriptPath(source, runID, ext string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "transcript"
	}
	return filepath.Join(d.TranscriptsDir(), fmt.Sprintf("%s-%s.%s", base, shortID(runID), ext))
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create transcripts directory (this also creates the parent)
	if err := os.MkdirAll(d.TranscriptsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create transcripts directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
