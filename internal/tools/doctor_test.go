package tools

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmk/internal/platform"
)

func fixedVersions(versions map[string]string) VersionFunc {
	return func(_ context.Context, path string) (string, error) {
		v, ok := versions[filepath.Base(path)]
		if !ok {
			return "", errors.New("exit status 1")
		}
		return v, nil
	}
}

func statusByTool(statuses []Status) map[string]Status {
	out := make(map[string]Status, len(statuses))
	for _, s := range statuses {
		out[s.Tool] = s
	}
	return out
}

func TestDoctorAllPresent(t *testing.T) {
	l := testLocator(t, platform.Linux)
	touch(t, filepath.Join(l.ManagedRoot, "arm-gcc", "bin", "arm-none-eabi-gcc"))
	touch(t, filepath.Join(l.ManagedRoot, "cmake", "bin", "cmake"))
	touch(t, filepath.Join(l.ManagedRoot, "ninja"))
	touch(t, filepath.Join(l.ManagedRoot, "pico-sdk", "lib", "tinyusb", "README.md"))
	touch(t, filepath.Join(l.ManagedRoot, "picotool", "bin", "picotool"))

	statuses := Doctor(context.Background(), l, nil, fixedVersions(map[string]string{
		"arm-none-eabi-gcc": "14.2.1",
		"cmake":             "3.31.4",
		"ninja":             "1.12.1",
		"picotool":          "2.1.1",
	}))

	require.Len(t, statuses, 5)
	assert.Equal(t, []string{"arm-none-eabi-gcc", "cmake", "ninja", "pico-sdk", "picotool"},
		[]string{statuses[0].Tool, statuses[1].Tool, statuses[2].Tool, statuses[3].Tool, statuses[4].Tool})
	for _, s := range statuses {
		assert.True(t, s.Found, s.Tool)
		assert.True(t, s.Satisfied, s.Tool)
		assert.Equal(t, SourceManaged, s.Source, s.Tool)
		assert.Empty(t, s.Error, s.Tool)
	}
	byTool := statusByTool(statuses)
	assert.Equal(t, "3.13", byTool["cmake"].Minimum)
	assert.Equal(t, "2.1.1", byTool["pico-sdk"].Version)
	assert.False(t, byTool["picotool"].Required)
	assert.Empty(t, byTool["pico-sdk"].Notes)
}

func TestDoctorMissing(t *testing.T) {
	l := testLocator(t, platform.Linux)

	byTool := statusByTool(Doctor(context.Background(), l, nil, fixedVersions(nil)))

	cmake := byTool["cmake"]
	assert.False(t, cmake.Found)
	assert.True(t, cmake.Required)
	assert.Equal(t, "not found", cmake.Error)
	assert.Contains(t, cmake.Notes, SetupHint)

	sdk := byTool["pico-sdk"]
	assert.False(t, sdk.Found)
	assert.Contains(t, sdk.Notes, SetupHint)

	picotool := byTool["picotool"]
	assert.False(t, picotool.Found)
	assert.Contains(t, picotool.Notes, ManualFlashHint)
}

func TestDoctorBelowMinimum(t *testing.T) {
	l := testLocator(t, platform.Linux)
	touch(t, filepath.Join(l.ManagedRoot, "cmake", "bin", "cmake"))

	overrides := map[string]string{"cmake": "3.30"}
	byTool := statusByTool(Doctor(context.Background(), l, overrides, fixedVersions(map[string]string{"cmake": "3.28.1"})))

	cmake := byTool["cmake"]
	assert.True(t, cmake.Found)
	assert.False(t, cmake.Satisfied)
	assert.Equal(t, "3.30", cmake.Minimum)
	assert.Equal(t, "version 3.28.1 below minimum 3.30", cmake.Error)
	assert.Contains(t, cmake.Notes, "minimum overridden by project config (3.30)")
}

func TestDoctorUnreadableVersion(t *testing.T) {
	l := testLocator(t, platform.Linux)
	touch(t, filepath.Join(l.ManagedRoot, "cmake", "bin", "cmake"))
	touch(t, filepath.Join(l.ManagedRoot, "picotool", "bin", "picotool"))

	byTool := statusByTool(Doctor(context.Background(), l, nil, fixedVersions(nil)))

	assert.False(t, byTool["cmake"].Satisfied, "cmake has a minimum that cannot be verified")
	assert.Equal(t, "cannot verify minimum version", byTool["cmake"].Error)
	assert.True(t, byTool["picotool"].Satisfied, "picotool has no minimum")
}

func TestDoctorSDKMissingDependency(t *testing.T) {
	l := testLocator(t, platform.Linux)
	sdk := t.TempDir()
	l.Getenv = func(key string) string {
		if key == "PICO_SDK_PATH" {
			return sdk
		}
		return ""
	}

	status := statusByTool(Doctor(context.Background(), l, nil, fixedVersions(nil)))["pico-sdk"]
	assert.True(t, status.Satisfied)
	assert.Equal(t, SourceEnv, status.Source)
	assert.Empty(t, status.Version)
	require.Len(t, status.Notes, 1)
	assert.Contains(t, status.Notes[0], "TinyUSB missing")
}

func TestInstallHints(t *testing.T) {
	assert.Equal(t, []string{SetupHint}, InstallHints("cmake", platform.Windows))
	hints := InstallHints("picotool", platform.MacOS)
	assert.Contains(t, hints, "or via Homebrew: brew install picotool")
	assert.Equal(t, ManualFlashHint, hints[len(hints)-1])
}
