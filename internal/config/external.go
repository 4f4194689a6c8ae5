package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveProjectPath returns path as-is if absolute, otherwise joins it with
// projectRoot.
func resolveProjectPath(projectRoot, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(projectRoot, path)
}

// BoardsPath resolves boards_dir against the project root.
func (c Config) BoardsPath(projectRoot string) string {
	return resolveProjectPath(projectRoot, c.BoardsDir)
}

// ToolchainPath resolves toolchain_dir against the project root.
func (c Config) ToolchainPath(projectRoot string) string {
	return resolveProjectPath(projectRoot, c.ToolchainDir)
}

// ExternalPath expands a leading ~ in external_dir. A relative value is
// taken relative to the project root.
func (c Config) ExternalPath(projectRoot string) (string, error) {
	dir, err := expandHome(c.ExternalDir)
	if err != nil {
		return "", err
	}
	return resolveProjectPath(projectRoot, dir), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, path[2:]), nil
}
