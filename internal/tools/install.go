package tools

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"pmk/internal/platform"
)

// Outcome classifies what the installer did for one component.
type Outcome string

const (
	OutcomeInstalled      Outcome = "installed"
	OutcomeSkippedPresent Outcome = "present"
	OutcomeSkippedNoURL   Outcome = "unavailable"
	OutcomeSkippedFound   Outcome = "found"
	OutcomeWarning        Outcome = "warning"
	OutcomeFailed         Outcome = "failed"
)

// Skipped reports whether the step left the tree untouched.
func (o Outcome) Skipped() bool {
	return o == OutcomeSkippedPresent || o == OutcomeSkippedNoURL || o == OutcomeSkippedFound
}

// StepResult describes one installer step.
type StepResult struct {
	Name    string  `json:"name"`
	Folder  string  `json:"folder,omitempty"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
	Err     error   `json:"-"`
}

// Report aggregates the steps of one Install call.
type Report struct {
	Steps []StepResult `json:"steps"`
}

// Downloads counts steps that fetched something.
func (r Report) Downloads() int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == OutcomeInstalled {
			n++
		}
	}
	return n
}

// Warnings returns the steps that completed with a non-fatal problem.
func (r Report) Warnings() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Outcome == OutcomeWarning || s.Outcome == OutcomeSkippedNoURL {
			out = append(out, s)
		}
	}
	return out
}

// Downloader fetches a URL to a local file.
type Downloader interface {
	Fetch(ctx context.Context, url, dest, checksum string, progress ProgressFunc) error
}

// Unpacker extracts an archive into a directory.
type Unpacker interface {
	Extract(archivePath, destDir string) error
}

// Reporter receives installer progress. Implementations must tolerate being
// called from the installing goroutine only.
type Reporter interface {
	StepStarted(name string)
	Progress(name string, done, total int64)
	StepFinished(step StepResult)
}

type nopReporter struct{}

func (nopReporter) StepStarted(string)            {}
func (nopReporter) Progress(string, int64, int64) {}
func (nopReporter) StepFinished(StepResult)       {}

// Installer downloads every missing toolchain component into the managed
// tree. Re-running it only fills gaps.
type Installer struct {
	Catalog     *Catalog
	Locator     *Locator
	Platform    platform.Key
	ManagedRoot string

	Fetcher   Downloader
	Extractor Unpacker
	Deps      DependencyInitializer
	Reporter  Reporter
	Log       zerolog.Logger
}

// NewInstaller wires the default fetcher, extractor and dependency
// initializer around locator.
func NewInstaller(locator *Locator, log zerolog.Logger) *Installer {
	return &Installer{
		Catalog:     locator.Catalog,
		Locator:     locator,
		Platform:    locator.Platform,
		ManagedRoot: locator.ManagedRoot,
		Fetcher:     NewFetcher(),
		Extractor:   Extractor{},
		Deps:        GitDependency{},
		Log:         log,
	}
}

// StagingDir is where archives are downloaded and unpacked before they are
// moved into place.
func (in *Installer) StagingDir() string {
	return filepath.Join(in.ManagedRoot, StagingFolder)
}

// Install brings the managed tree up to date. Tools whose folder is already
// non-empty are skipped, as are tools without a download for this platform.
// The SDK is skipped when it can be located anywhere. The returned error is
// fatal (download or extraction failure); steps completed before it stay in
// place.
func (in *Installer) Install(ctx context.Context) (Report, error) {
	var report Report
	reporter := in.reporter()

	if err := os.MkdirAll(in.ManagedRoot, 0o755); err != nil {
		return report, fmt.Errorf("create toolchain dir: %w", err)
	}
	staging := in.StagingDir()
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return report, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			in.Log.Warn().Err(err).Str("dir", staging).Msg("remove staging dir")
		}
	}()

	for _, spec := range in.Catalog.Tools {
		reporter.StepStarted(spec.Name)
		step, err := in.installTool(ctx, spec)
		report.Steps = append(report.Steps, step)
		reporter.StepFinished(step)
		if err != nil {
			return report, err
		}
	}

	reporter.StepStarted(in.Catalog.SDK.Name)
	step, owned, err := in.installSDK(ctx)
	report.Steps = append(report.Steps, step)
	reporter.StepFinished(step)
	if err != nil {
		return report, err
	}
	// Only the managed copy is ours to repair.
	if owned {
		if dep, ok := in.ensureDependency(ctx, step.Detail); ok {
			report.Steps = append(report.Steps, dep)
			reporter.StepFinished(dep)
		}
	}
	return report, nil
}

func (in *Installer) reporter() Reporter {
	if in.Reporter == nil {
		return nopReporter{}
	}
	return in.Reporter
}

func (in *Installer) installTool(ctx context.Context, spec ToolSpec) (StepResult, error) {
	log := in.Log.With().Str("tool", spec.Name).Logger()
	step := StepResult{Name: spec.Name, Folder: spec.Folder}
	dest := filepath.Join(in.ManagedRoot, spec.Folder)

	if dirNonEmpty(dest) {
		log.Info().Str("dir", dest).Msg("already installed")
		step.Outcome = OutcomeSkippedPresent
		step.Detail = "already installed"
		return step, nil
	}

	url, ok := spec.URL(in.Platform)
	if !ok {
		log.Warn().Str("platform", in.Platform.String()).Msg("no download available")
		step.Outcome = OutcomeSkippedNoURL
		step.Detail = fmt.Sprintf("no download for %s", in.Platform)
		return step, nil
	}

	checksum := spec.Checksum(in.Platform)
	if err := in.acquire(ctx, spec.Name, spec.Folder, url, checksum, dest); err != nil {
		log.Error().Err(err).Str("url", url).Msg("install failed")
		step.Outcome = OutcomeFailed
		step.Err = err
		step.Detail = err.Error()
		return step, err
	}
	if err := recordInstall(in.ManagedRoot, spec.Name, spec.Folder, url, checksum); err != nil {
		log.Warn().Err(err).Msg("record install")
	}

	log.Info().Str("dir", dest).Msg("installed")
	step.Outcome = OutcomeInstalled
	step.Detail = dest
	return step, nil
}

// installSDK returns the SDK step and whether the SDK it settled on lives in
// the managed tree.
func (in *Installer) installSDK(ctx context.Context) (StepResult, bool, error) {
	sdk := in.Catalog.SDK
	log := in.Log.With().Str("tool", sdk.Name).Logger()
	step := StepResult{Name: sdk.Name, Folder: sdk.Folder}
	managed := in.Locator.ManagedSDKDir()

	if existing, source, ok := in.Locator.LocateSDKWithSource(); ok {
		log.Info().Str("dir", existing).Str("source", string(source)).Msg("sdk found")
		step.Outcome = OutcomeSkippedFound
		step.Detail = existing
		return step, source == SourceManaged, nil
	}

	if err := in.acquire(ctx, sdk.Name, sdk.Folder, sdk.URL, sdk.Checksum, managed); err != nil {
		log.Error().Err(err).Str("url", sdk.URL).Msg("install failed")
		step.Outcome = OutcomeFailed
		step.Err = err
		step.Detail = err.Error()
		return step, false, err
	}
	if err := recordInstall(in.ManagedRoot, sdk.Name, sdk.Folder, sdk.URL, sdk.Checksum); err != nil {
		log.Warn().Err(err).Msg("record install")
	}
	log.Info().Str("dir", managed).Str("version", sdk.Version).Msg("installed")
	step.Outcome = OutcomeInstalled
	step.Detail = managed
	return step, true, nil
}

// ensureDependency populates the SDK's nested component when its directory
// is missing or empty. Failure is reported as a warning step and never
// aborts setup. ok is false when nothing needed doing.
func (in *Installer) ensureDependency(ctx context.Context, sdkDir string) (StepResult, bool) {
	dep := in.Catalog.SDK.Dependency
	if dep.Path == "" || in.Deps == nil {
		return StepResult{}, false
	}
	target := filepath.Join(sdkDir, filepath.FromSlash(dep.Path))
	if dirNonEmpty(target) {
		return StepResult{}, false
	}

	reporter := in.reporter()
	reporter.StepStarted(dep.Name)
	log := in.Log.With().Str("tool", dep.Name).Logger()
	step := StepResult{Name: dep.Name, Folder: dep.Path}

	if err := in.Deps.Init(ctx, sdkDir, dep); err != nil {
		log.Warn().Err(err).Str("dir", target).Msg("dependency init failed")
		step.Outcome = OutcomeWarning
		step.Err = err
		step.Detail = err.Error()
		return step, true
	}
	log.Info().Str("dir", target).Msg("dependency initialized")
	step.Outcome = OutcomeInstalled
	step.Detail = target
	return step, true
}

// acquire downloads url and installs its contents at dest. The archive is
// unpacked and flattened in the staging dir and only renamed into dest once
// complete, so an interrupted run never leaves a half-filled dest behind.
func (in *Installer) acquire(ctx context.Context, name, folder, url, checksum, dest string) error {
	archiveName, err := ArchiveName(url)
	if err != nil {
		return err
	}
	staging := in.StagingDir()
	archive := filepath.Join(staging, folder+"-"+archiveName)
	work := filepath.Join(staging, folder+".extract")

	progress := func(done, total int64) {
		in.reporter().Progress(name, done, total)
	}
	in.Log.Info().Str("tool", name).Str("url", url).Msg("downloading")
	if err := in.Fetcher.Fetch(ctx, url, archive, checksum, progress); err != nil {
		return err
	}

	if err := os.RemoveAll(work); err != nil {
		return fmt.Errorf("clear %s: %w", work, err)
	}
	if err := in.Extractor.Extract(archive, work); err != nil {
		return err
	}
	if err := Flatten(work); err != nil {
		return fmt.Errorf("flatten %s: %w", name, err)
	}
	if err := os.Remove(archive); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove archive: %w", err)
	}

	// dest is missing or an empty directory here.
	if err := os.Remove(dest); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replace %s: %w", dest, err)
	}
	if err := os.Rename(work, dest); err != nil {
		return fmt.Errorf("commit %s: %w", dest, err)
	}
	return nil
}
