package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qrafty-ai/opencode-kanban/internal/logger"
	"github.com/qrafty-ai/opencode-kanban/internal/manifest"
	"github.com/qrafty-ai/opencode-kanban/internal/platform"
)

const (
	// MetaDir is the staging directory name of the meta package.
	MetaDir = "main"

	// BinaryFileMode is applied to the staged platform binary.
	BinaryFileMode os.FileMode = 0o755

	dirMode os.FileMode = 0o755

	binDir    = "bin"
	vendorDir = "vendor"
)

var (
	// ErrMissingVendorPayload is returned when a target has no vendor directory.
	ErrMissingVendorPayload = errors.New("missing vendor payload")
	// ErrMissingBinary is returned when a vendor directory lacks the expected binary.
	ErrMissingBinary = errors.New("missing binary")
	// ErrMissingLauncher is returned when the meta package launcher script is absent.
	ErrMissingLauncher = errors.New("missing launcher script")
)

// optionalFiles are copied from the project root into every package when present.
//
//nolint:gochecknoglobals // Fixed list.
var optionalFiles = []string{"README.md", "LICENSE"}

// Stager creates package directories below a staging root.
type Stager struct {
	root        string
	projectRoot string
	binaryName  string
}

// New returns a stager writing below root and reading README/LICENSE from projectRoot.
func New(root, projectRoot, binaryName string) *Stager {
	return &Stager{
		root:        root,
		projectRoot: projectRoot,
		binaryName:  binaryName,
	}
}

// MetaParams describes the meta package to stage.
type MetaParams struct {
	// LauncherPath is the launcher script copied into bin/.
	LauncherPath string
	// Manifest is written as package.json.
	Manifest *manifest.Manifest
}

// PlatformParams describes a platform package to stage.
type PlatformParams struct {
	// Platform selects the vendor target and the staging directory name.
	Platform platform.Spec
	// VendorSource is the root holding one directory per target.
	VendorSource string
	// Manifest is written as package.json.
	Manifest *manifest.Manifest
}

// VendorTargetDir returns the vendor directory of a target.
func VendorTargetDir(vendorSource, target string) string {
	return filepath.Join(vendorSource, target)
}

// BinaryRelPath returns the binary location relative to a target directory.
func BinaryRelPath(binaryName string) string {
	return filepath.Join(binaryName, binaryName)
}

// CheckVendorTarget reports ErrMissingVendorPayload unless the target
// directory exists under vendorSource.
func CheckVendorTarget(vendorSource, target string) error {
	dir := VendorTargetDir(vendorSource, target)

	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w for target %s: %s", ErrMissingVendorPayload, target, dir)
		}

		return fmt.Errorf("stat %s: %w", dir, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w for target %s: %s is not a directory", ErrMissingVendorPayload, target, dir)
	}

	return nil
}

// Meta stages the meta package and returns its directory.
func (s *Stager) Meta(ctx context.Context, params MetaParams) (string, error) {
	dir := filepath.Join(s.root, MetaDir)
	launcherName := filepath.Base(params.LauncherPath)

	if _, err := os.Stat(params.LauncherPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrMissingLauncher, params.LauncherPath)
		}

		return "", fmt.Errorf("stat launcher: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, binDir), dirMode); err != nil {
		return "", fmt.Errorf("create meta staging directory: %w", err)
	}

	if err := copyFile(params.LauncherPath, filepath.Join(dir, binDir, launcherName)); err != nil {
		return "", fmt.Errorf("copy launcher: %w", err)
	}

	if err := s.finish(ctx, dir, params.Manifest); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Staged meta package", "dir", dir)

	return dir, nil
}

// Platform stages the package for one platform and returns its directory.
func (s *Stager) Platform(ctx context.Context, params PlatformParams) (string, error) {
	target := params.Platform.Target

	if err := CheckVendorTarget(params.VendorSource, target); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, params.Platform.Tag)
	stagedTarget := filepath.Join(dir, vendorDir, target)

	if err := os.MkdirAll(filepath.Dir(stagedTarget), dirMode); err != nil {
		return "", fmt.Errorf("create staging directory for %s: %w", params.Platform.Tag, err)
	}

	if err := copyTree(VendorTargetDir(params.VendorSource, target), stagedTarget); err != nil {
		return "", fmt.Errorf("copy vendor payload for target %s: %w", target, err)
	}

	stagedBinary := filepath.Join(stagedTarget, BinaryRelPath(s.binaryName))

	info, err := os.Stat(stagedBinary)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat staged binary: %w", err)
	}

	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w for target %s: %s", ErrMissingBinary, target, stagedBinary)
	}

	if err = os.Chmod(stagedBinary, BinaryFileMode); err != nil {
		return "", fmt.Errorf("mark binary executable: %w", err)
	}

	if err = s.finish(ctx, dir, params.Manifest); err != nil {
		return "", err
	}

	logger.InfoKV(ctx, "Staged platform package", "tag", params.Platform.Tag, "target", target, "dir", dir)

	return dir, nil
}

// finish copies the optional project files and writes the manifest.
func (s *Stager) finish(ctx context.Context, dir string, m *manifest.Manifest) error {
	for _, name := range optionalFiles {
		outcome, err := copyOptional(filepath.Join(s.projectRoot, name), filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}

		logger.DebugKV(ctx, "Optional file", "file", name, "outcome", outcome)
	}

	if err := manifest.Write(filepath.Join(dir, manifest.Filename), m); err != nil {
		return err
	}

	return nil
}
