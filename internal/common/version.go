package common

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Build identity for the uang server binary, injected via ldflags:
//
//	-X github.com/qoishaidar/uang/internal/common.Version=...
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the semantic version string
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp
func GetBuild() string {
	return Build
}

// GetGitCommit returns the short git commit hash
func GetGitCommit() string {
	return GitCommit
}

// GetFullVersion returns a formatted version string with all build info,
// as surfaced by /api/version and the startup banner.
func GetFullVersion() string {
	return fmt.Sprintf("%s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile reads a key:value .version file next to the binary.
// Packaged builds that skip ldflags ship this file instead; values fill in
// only the identities still at their defaults.
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
		switch strings.TrimSpace(key) {
		case "version":
			if Version == "dev" {
				Version = strings.TrimSpace(val)
			}
		case "build":
			if Build == "unknown" {
				Build = strings.TrimSpace(val)
			}
		case "commit":
			if GitCommit == "unknown" {
				GitCommit = strings.TrimSpace(val)
			}
		}
	}
}
