package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// DependencyInitializer populates a nested SDK component after extraction.
type DependencyInitializer interface {
	Init(ctx context.Context, sdkDir string, dep SDKDependency) error
}

// GitDependency clones the component straight into the SDK tree. The SDK
// arrives as a source archive without git metadata, so a submodule update
// has nothing to work with.
type GitDependency struct {
	Progress io.Writer
}

// Init implements DependencyInitializer.
func (g GitDependency) Init(ctx context.Context, sdkDir string, dep SDKDependency) error {
	if dep.Repository == "" || dep.Path == "" {
		return fmt.Errorf("dependency %s has no repository", dep.Name)
	}
	target := filepath.Join(sdkDir, filepath.FromSlash(dep.Path))

	// An empty placeholder directory is normal in source archives.
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("clear %s: %w", target, err)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare %s: %w", target, err)
	}

	opts := &git.CloneOptions{
		URL:          dep.Repository,
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
		Progress:     g.Progress,
	}
	if dep.Ref != "" {
		opts.ReferenceName = plumbing.NewTagReferenceName(dep.Ref)
	}

	if _, err := git.PlainCloneContext(ctx, target, false, opts); err != nil {
		_ = os.RemoveAll(target)
		return fmt.Errorf("clone %s %s: %w", dep.Name, dep.Ref, err)
	}
	return nil
}
