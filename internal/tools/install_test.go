package tools

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pmk/internal/platform"
)

// fakeDownloader writes a zip archive for each known URL instead of touching
// the network.
type fakeDownloader struct {
	t        *testing.T
	archives map[string][]archiveEntry
	fail     map[string]error

	mu    sync.Mutex
	calls []string
}

func (f *fakeDownloader) Fetch(_ context.Context, url, dest, _ string, progress ProgressFunc) error {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if err, ok := f.fail[url]; ok {
		return err
	}
	entries, ok := f.archives[url]
	if !ok {
		return &FetchError{URL: url, Err: errors.New("404 Not Found")}
	}
	writeZip(f.t, dest, entries)
	if progress != nil {
		progress(1, 1)
	}
	return nil
}

type fakeDeps struct {
	err   error
	calls int
}

func (f *fakeDeps) Init(_ context.Context, sdkDir string, dep SDKDependency) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	target := filepath.Join(sdkDir, filepath.FromSlash(dep.Path))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(target, "README.md"), []byte("tinyusb"), 0o644)
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) StepStarted(name string)       { r.events = append(r.events, "start "+name) }
func (r *recordingReporter) Progress(string, int64, int64) {}
func (r *recordingReporter) StepFinished(step StepResult) {
	r.events = append(r.events, "finish "+step.Name+" "+string(step.Outcome))
}

func testCatalog(external string, key platform.Key) *Catalog {
	catalog := DefaultCatalog(external)
	for i := range catalog.Tools {
		folder := catalog.Tools[i].Folder
		catalog.Tools[i].URLs = map[platform.Key]string{
			key: "https://downloads.invalid/" + folder + ".zip",
		}
	}
	catalog.SDK.URL = "https://downloads.invalid/pico-sdk.zip"
	return catalog
}

// testArchives mirrors the layouts of the upstream downloads: the ARM
// toolchain and CMake under a versioned wrapper (CMake as an app bundle on
// macOS) and Ninja as a single bare executable.
func testArchives(catalog *Catalog, key platform.Key) map[string][]archiveEntry {
	exe := func(name string) archiveEntry {
		return archiveEntry{name: key.ExecutableName(name), body: "#!/bin/sh\n", mode: 0o755}
	}
	under := func(prefix string, e archiveEntry) archiveEntry {
		e.name = prefix + "/" + e.name
		return e
	}

	cmakeRoot := map[platform.Key]string{
		platform.Linux:   "cmake-3.31.4-linux-x86_64",
		platform.Windows: "cmake-3.31.4-windows-x86_64",
		platform.MacOS:   "cmake-3.31.4-macos-universal/CMake.app/Contents",
	}[key]

	archives := map[string][]archiveEntry{}
	for _, spec := range catalog.Tools {
		url := spec.URLs[key]
		switch spec.Folder {
		case "arm-gcc":
			archives[url] = []archiveEntry{under("arm-gnu-toolchain-14.2.rel1/bin", exe(spec.Executable))}
		case "cmake":
			archives[url] = []archiveEntry{
				under(cmakeRoot+"/bin", exe(spec.Executable)),
				{name: cmakeRoot + "/share/cmake-3.31/Modules/README", body: "modules"},
			}
		default:
			archives[url] = []archiveEntry{exe(spec.Executable)}
		}
	}
	archives[catalog.SDK.URL] = []archiveEntry{
		{name: "pico-sdk-2.1.1", dir: true},
		{name: "pico-sdk-2.1.1/CMakeLists.txt", body: "cmake_minimum_required(VERSION 3.13)\n"},
		{name: "pico-sdk-2.1.1/lib/tinyusb", dir: true},
	}
	return archives
}

type installFixture struct {
	installer  *Installer
	downloader *fakeDownloader
	deps       *fakeDeps
	env        map[string]string
}

func newInstallFixture(t *testing.T) *installFixture {
	t.Helper()
	return newPlatformInstallFixture(t, platform.Linux)
}

func newPlatformInstallFixture(t *testing.T, key platform.Key) *installFixture {
	t.Helper()
	root := t.TempDir()
	external := filepath.Join(root, "external")
	catalog := testCatalog(external, key)

	fx := &installFixture{
		downloader: &fakeDownloader{t: t, archives: testArchives(catalog, key), fail: map[string]error{}},
		deps:       &fakeDeps{},
		env:        map[string]string{},
	}
	locator := &Locator{
		Platform:     key,
		ManagedRoot:  filepath.Join(root, ".toolchain"),
		ExternalRoot: external,
		Catalog:      catalog,
		LookPath:     noLookPath,
		Getenv:       func(key string) string { return fx.env[key] },
	}
	fx.installer = NewInstaller(locator, zerolog.Nop())
	fx.installer.Fetcher = fx.downloader
	fx.installer.Deps = fx.deps
	return fx
}

func TestInstallEmptyTree(t *testing.T) {
	fx := newInstallFixture(t)
	in := fx.installer

	report, err := in.Install(context.Background())
	require.NoError(t, err)

	for _, folder := range []string{"arm-gcc", "cmake", "ninja", "pico-sdk"} {
		assert.True(t, dirNonEmpty(filepath.Join(in.ManagedRoot, folder)), folder)
	}
	assert.NoDirExists(t, in.StagingDir())
	assert.Equal(t, 5, report.Downloads(), "three tools, the SDK and its dependency")
	assert.Empty(t, report.Warnings())
	assert.Equal(t, 1, fx.deps.calls)

	// Wrapper directories are flattened away.
	assert.FileExists(t, filepath.Join(in.ManagedRoot, "cmake", "bin", "cmake"))
	assert.FileExists(t, filepath.Join(in.ManagedRoot, "pico-sdk", "CMakeLists.txt"))
	assert.FileExists(t, filepath.Join(in.ManagedRoot, "pico-sdk", "lib", "tinyusb", "README.md"))

	path, source, ok := in.Locator.LocateWithSource("arm-none-eabi-gcc")
	require.True(t, ok)
	assert.Equal(t, SourceManaged, source)
	assert.Equal(t, filepath.Join(in.ManagedRoot, "arm-gcc", "bin", "arm-none-eabi-gcc"), path)

	manifest, err := LoadManifest(in.ManagedRoot)
	require.NoError(t, err)
	assert.Len(t, manifest.Entries, 4)
	assert.Equal(t, "https://downloads.invalid/cmake.zip", manifest.Entries["cmake"].URL)
}

func TestInstallResultIsLocatable(t *testing.T) {
	for _, key := range platform.Keys() {
		t.Run(string(key), func(t *testing.T) {
			fx := newPlatformInstallFixture(t, key)
			in := fx.installer

			_, err := in.Install(context.Background())
			require.NoError(t, err)

			ninja := filepath.Join(in.ManagedRoot, "ninja", key.ExecutableName("ninja"))
			require.FileExists(t, ninja, "bare executable must survive flattening")

			want := map[string]string{
				"arm-none-eabi-gcc": filepath.Join(in.ManagedRoot, "arm-gcc", "bin", key.ExecutableName("arm-none-eabi-gcc")),
				"cmake":             filepath.Join(in.ManagedRoot, "cmake", "bin", key.ExecutableName("cmake")),
				"ninja":             ninja,
			}
			if key == platform.MacOS {
				want["cmake"] = filepath.Join(in.ManagedRoot, "cmake", "CMake.app", "Contents", "bin", "cmake")
			}
			for name, path := range want {
				got, source, ok := in.Locator.LocateWithSource(name)
				require.True(t, ok, "%s not found after install", name)
				assert.Equal(t, path, got, name)
				assert.Equal(t, SourceManaged, source, name)
			}
		})
	}
}

func TestInstallIsIdempotent(t *testing.T) {
	fx := newInstallFixture(t)

	_, err := fx.installer.Install(context.Background())
	require.NoError(t, err)
	first := len(fx.downloader.calls)

	report, err := fx.installer.Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Downloads())
	assert.Len(t, fx.downloader.calls, first, "second run must not download")
	for _, step := range report.Steps {
		assert.True(t, step.Outcome.Skipped(), step.Name)
	}
	assert.Equal(t, 1, fx.deps.calls)
}

func TestInstallSkipsPopulatedFolder(t *testing.T) {
	fx := newInstallFixture(t)
	in := fx.installer
	touch(t, filepath.Join(in.ManagedRoot, "cmake", "bin", "cmake"))

	report, err := in.Install(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkippedPresent, report.Steps[1].Outcome)
	assert.NotContains(t, fx.downloader.calls, "https://downloads.invalid/cmake.zip")
	assert.Equal(t, 4, report.Downloads())
}

func TestInstallEnvOverrideSkipsSDK(t *testing.T) {
	fx := newInstallFixture(t)
	sdk := t.TempDir()
	fx.env["PICO_SDK_PATH"] = sdk

	report, err := fx.installer.Install(context.Background())
	require.NoError(t, err)

	assert.NotContains(t, fx.downloader.calls, "https://downloads.invalid/pico-sdk.zip")
	assert.NoDirExists(t, fx.installer.Locator.ManagedSDKDir())
	last := report.Steps[len(report.Steps)-1]
	assert.Equal(t, "Pico SDK", last.Name)
	assert.Equal(t, OutcomeSkippedFound, last.Outcome)
	assert.Equal(t, sdk, last.Detail)
	assert.Zero(t, fx.deps.calls, "an SDK outside the managed tree is left alone")
}

func TestInstallMissingURLIsWarning(t *testing.T) {
	fx := newInstallFixture(t)
	in := fx.installer
	in.Catalog.Tools[0].URLs = map[platform.Key]string{}

	report, err := in.Install(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Warnings(), 1)
	assert.Equal(t, "ARM GCC", report.Warnings()[0].Name)
	assert.Equal(t, OutcomeSkippedNoURL, report.Steps[0].Outcome)
	assert.NoDirExists(t, filepath.Join(in.ManagedRoot, "arm-gcc"))
	assert.True(t, dirNonEmpty(filepath.Join(in.ManagedRoot, "cmake")))
	assert.True(t, dirNonEmpty(filepath.Join(in.ManagedRoot, "ninja")))
}

func TestInstallFetchErrorIsFatal(t *testing.T) {
	fx := newInstallFixture(t)
	in := fx.installer
	boom := errors.New("connection reset")
	fx.downloader.fail["https://downloads.invalid/cmake.zip"] = &FetchError{URL: "https://downloads.invalid/cmake.zip", Err: boom}

	report, err := in.Install(context.Background())
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.ErrorIs(t, err, boom)
	require.Len(t, report.Steps, 2)
	assert.Equal(t, OutcomeInstalled, report.Steps[0].Outcome)
	assert.Equal(t, OutcomeFailed, report.Steps[1].Outcome)

	// Completed steps stay, the failed folder is never created and staging is cleaned.
	assert.True(t, dirNonEmpty(filepath.Join(in.ManagedRoot, "arm-gcc")))
	assert.NoDirExists(t, filepath.Join(in.ManagedRoot, "cmake"))
	assert.NoDirExists(t, in.StagingDir())
	assert.NotContains(t, fx.downloader.calls, "https://downloads.invalid/ninja.zip")
}

func TestInstallUnknownArchiveFormat(t *testing.T) {
	fx := newInstallFixture(t)
	in := fx.installer
	url := "https://downloads.invalid/ninja.rar"
	in.Catalog.Tools[2].URLs = map[platform.Key]string{platform.Linux: url}
	fx.downloader.archives[url] = []archiveEntry{{name: "ninja", body: "x"}}

	_, err := in.Install(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.NoDirExists(t, filepath.Join(in.ManagedRoot, "ninja"))
}

func TestInstallFillsEmptyManagedSDKFolder(t *testing.T) {
	fx := newInstallFixture(t)
	in := fx.installer
	require.NoError(t, os.MkdirAll(in.Locator.ManagedSDKDir(), 0o755))

	report, err := in.Install(context.Background())
	require.NoError(t, err)

	assert.Contains(t, fx.downloader.calls, in.Catalog.SDK.URL)
	assert.Equal(t, OutcomeInstalled, report.Steps[3].Outcome)
	assert.FileExists(t, filepath.Join(in.Locator.ManagedSDKDir(), "CMakeLists.txt"))
	assert.Equal(t, 1, fx.deps.calls)
}

func TestInstallDependencyFailureIsWarning(t *testing.T) {
	fx := newInstallFixture(t)
	fx.deps.err = errors.New("network unreachable")

	report, err := fx.installer.Install(context.Background())
	require.NoError(t, err)

	warnings := report.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, "TinyUSB", warnings[0].Name)
	assert.Equal(t, OutcomeWarning, warnings[0].Outcome)
	assert.True(t, dirNonEmpty(fx.installer.Locator.ManagedSDKDir()))
}

func TestInstallRepairsManagedDependency(t *testing.T) {
	fx := newInstallFixture(t)
	fx.deps.err = errors.New("offline")
	_, err := fx.installer.Install(context.Background())
	require.NoError(t, err)

	fx.deps.err = nil
	report, err := fx.installer.Install(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, fx.deps.calls)
	last := report.Steps[len(report.Steps)-1]
	assert.Equal(t, "TinyUSB", last.Name)
	assert.Equal(t, OutcomeInstalled, last.Outcome)
	assert.Len(t, fx.downloader.calls, 4, "repair must not download the SDK again")
}

func TestInstallReporterOrder(t *testing.T) {
	fx := newInstallFixture(t)
	rec := &recordingReporter{}
	fx.installer.Reporter = rec

	_, err := fx.installer.Install(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"start ARM GCC", "finish ARM GCC installed",
		"start CMake", "finish CMake installed",
		"start Ninja", "finish Ninja installed",
		"start Pico SDK", "finish Pico SDK installed",
		"start TinyUSB", "finish TinyUSB installed",
	}, rec.events)
}

func TestInstallCanceledContext(t *testing.T) {
	fx := newInstallFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fx.installer.Fetcher = NewFetcher()

	_, err := fx.installer.Install(ctx)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "canceled") || errors.Is(err, context.Canceled))
}
