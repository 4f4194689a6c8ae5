package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmk/internal/platform"
	"pmk/internal/tools"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "pmk.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "example_60", cfg.TemplateBoard)
	assert.Equal(t, ".toolchain", cfg.ToolchainDir)
	assert.Equal(t, "boards", cfg.BoardsDir)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmk.yaml")
	data := []byte(`
template_board: macropad
log_level: debug
tools:
  cmake:
    url: https://mirror.example.com/cmake.tar.gz
minimums:
  cmake: "3.20"
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "macropad", cfg.TemplateBoard)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "boards", cfg.BoardsDir, "default lost")
	assert.Equal(t, "https://mirror.example.com/cmake.tar.gz", cfg.Tools["cmake"].URL)
	assert.Equal(t, "3.20", cfg.Minimums["cmake"])
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmk.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tools: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyOverridesCurrentPlatformOnly(t *testing.T) {
	catalog := tools.DefaultCatalog(t.TempDir())
	original, _ := catalog.Tool("cmake")
	originalWindows := original.URLs[platform.Windows]

	cfg := Default()
	cfg.Tools = map[string]SourceConfig{
		"cmake": {URL: "https://mirror.example.com/cmake.tar.gz", SHA256: "ABCDEF"},
	}
	cfg.SDK = SourceConfig{URL: "https://mirror.example.com/sdk.zip"}

	out := cfg.Apply(catalog, platform.Linux)

	cmake, _ := out.Tool("cmake")
	assert.Equal(t, "https://mirror.example.com/cmake.tar.gz", cmake.URLs[platform.Linux])
	assert.Equal(t, originalWindows, cmake.URLs[platform.Windows])
	assert.Equal(t, "abcdef", cmake.Checksum(platform.Linux), "checksum is lowercased")
	assert.Equal(t, "https://mirror.example.com/sdk.zip", out.SDK.URL)

	unchanged, _ := catalog.Tool("cmake")
	assert.NotEqual(t, "https://mirror.example.com/cmake.tar.gz", unchanged.URLs[platform.Linux], "Apply mutated the input catalog")
	assert.NotEqual(t, out.SDK.URL, catalog.SDK.URL, "Apply mutated the input SDK")
}

func TestExternalPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := Default().ExternalPath("/project")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".pico-sdk"), got)
}

func TestProjectRelativePaths(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	assert.Equal(t, filepath.Join(root, "boards"), cfg.BoardsPath(root))

	abs := filepath.Join(t.TempDir(), "tc")
	cfg.ToolchainDir = abs
	assert.Equal(t, abs, cfg.ToolchainPath(root))
}
