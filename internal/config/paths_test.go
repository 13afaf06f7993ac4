package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestPaths(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))

	dataDir, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if !strings.HasSuffix(dataDir, ".finchat") {
		t.Fatalf("unexpected data dir: %s", dataDir)
	}

	for name, fn := range map[string]func() (string, error){
		"config.toml": ConfigPath,
		".env":        EnvPath,
		"state.db":    StateDBPath,
		"finchat.log": LogPath,
	} {
		path, err := fn()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !strings.HasSuffix(path, filepath.Join(".finchat", name)) {
			t.Fatalf("unexpected path for %s: %s", name, path)
		}
	}
}
