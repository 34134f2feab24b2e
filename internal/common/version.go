package common

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Build metadata, set with -ldflags "-X github.com/bobmcallan/coinfolio/internal/common.Version=..."
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the semantic version string
func GetVersion() string { return Version }

// GetBuild returns the build timestamp
func GetBuild() string { return Build }

// GetGitCommit returns the short git commit hash
func GetGitCommit() string { return GitCommit }

// GetFullVersion returns a formatted version string with all build info
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile fills any build metadata still at its default from a
// "key: value" .version file next to the executable.
func LoadVersionFromFile() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	f, err := os.Open(filepath.Join(filepath.Dir(exe), ".version"))
	if err != nil {
		return
	}
	defer f.Close()

	targets := map[string]struct {
		value    *string
		fallback string
	}{
		"version": {&Version, "dev"},
		"build":   {&Build, "unknown"},
		"commit":  {&GitCommit, "unknown"},
	}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		t, known := targets[strings.TrimSpace(key)]
		if known && *t.value == t.fallback {
			*t.value = strings.TrimSpace(val)
		}
	}
}
