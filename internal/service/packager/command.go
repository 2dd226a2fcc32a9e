package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/qrafty-ai/opencode-kanban/internal/config"
	"github.com/qrafty-ai/opencode-kanban/internal/logger"
	"github.com/qrafty-ai/opencode-kanban/internal/manifest"
	"github.com/qrafty-ai/opencode-kanban/internal/npm"
	"github.com/qrafty-ai/opencode-kanban/internal/stage"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// Version is the release version, e.g. "1.2.3".
	Version string
	// VendorSource holds one directory per target with the built binaries.
	VendorSource string
	// OutputDir receives the archives. It is created when missing.
	OutputDir string
	// Tool packs staged directories. Defaults to npm as configured.
	Tool npm.Tool
	// TempDir is the parent of the staging root. Defaults to the system temp directory.
	TempDir string
}

// stagingPrefix names the temporary staging root.
const stagingPrefix = "opencode-kanban-npm-stage-"

var (
	// ErrInvalidInput is returned for unusable arguments or a missing vendor root.
	ErrInvalidInput = errors.New("invalid input")

	errUnexpectedContents = errors.New("archive has unexpected contents")
	errOptionsNotSet      = errors.New("options are not set")
)

// packager runs one packaging pass.
// It is unexported: callers should use Run, which handles setup and cleanup.
type packager struct {
	// cfg is the immutable run configuration.
	cfg *config.Config
	// plan lists the archives in build order.
	plan *Plan
	// vendorSource is the absolute vendor root.
	vendorSource string
	// outputDir is the absolute output directory.
	outputDir string
	// template is the parsed npm/package.json.
	template *manifest.Manifest
	// stager writes package directories below the staging root.
	stager *stage.Stager
	// packer turns staged directories into named archives.
	packer *npm.Packer
	// artifacts collects finished archives.
	artifacts []*npm.Artifact
}

// Run builds every platform archive and then the meta archive.
func Run(ctx context.Context, cfg *config.Config, opts *Options) error {
	// Set context with logger name and run id for tracking.
	ctx = logger.WithName(ctx, "npm-packager")
	ctx = logger.WithKV(ctx, "run", uuid.NewString())

	if err := config.Validate(cfg); err != nil {
		return err
	}

	if opts == nil {
		return errOptionsNotSet
	}

	warnConcurrentRuns(ctx)

	pkg, err := newPackager(ctx, cfg, opts)
	if err != nil {
		return err
	}

	stagingRoot, err := os.MkdirTemp(opts.TempDir, stagingPrefix)
	if err != nil {
		return fmt.Errorf("create staging root: %w", err)
	}

	defer func() {
		if removeErr := os.RemoveAll(stagingRoot); removeErr != nil {
			logger.WarnKV(ctx, "Unable to remove staging root", "dir", stagingRoot, "error", removeErr)
		}
	}()

	pkg.stager = stage.New(stagingRoot, cfg.ProjectRoot, cfg.BinaryName)

	if err = pkg.Run(ctx); err != nil {
		return fmt.Errorf("packaging %s failed: %w", pkg.plan.Version, err)
	}

	pkg.logSummary(ctx)

	return nil
}

// newPackager validates the inputs, prepares the output directory and loads the template.
func newPackager(ctx context.Context, cfg *config.Config, opts *Options) (*packager, error) {
	vendorSource, err := filepath.Abs(opts.VendorSource)
	if err != nil || strings.TrimSpace(opts.VendorSource) == "" {
		return nil, fmt.Errorf("%w: vendor source path %q", ErrInvalidInput, opts.VendorSource)
	}

	plan, err := BuildPlan(cfg, opts.Version, vendorSource)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(vendorSource)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: vendor source path does not exist: %s", ErrInvalidInput, vendorSource)
	}

	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("%w: output directory must be provided", ErrInvalidInput)
	}

	outputDir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("%w: output directory %q: %w", ErrInvalidInput, opts.OutputDir, err)
	}

	if err = os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	logger.InfoKV(ctx, "Loading manifest template", "path", cfg.TemplatePath)

	template, err := manifest.LoadTemplate(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}

	tool := opts.Tool
	if tool == nil {
		tool = npm.NewCommandTool(cfg.NPMCommand)
	}

	return &packager{
		cfg:          cfg,
		plan:         plan,
		vendorSource: vendorSource,
		outputDir:    outputDir,
		template:     template,
		packer:       npm.NewPacker(tool),
	}, nil
}

// Run stages and packs the packages in plan order, stopping at the first failure.
func (p *packager) Run(ctx context.Context) error {
	logger.InfoKV(ctx, "Packaging release",
		"version", p.plan.Version,
		"vendor", p.vendorSource,
		"output", p.outputDir,
		"platforms", len(p.plan.Platforms()),
	)

	for _, pkg := range p.plan.Platforms() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.packPlatform(ctx, pkg); err != nil {
			return fmt.Errorf("platform %s: %w", pkg.Tag, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// The vendor tree may live on a shared volume; re-check before declaring dependencies on it.
	for _, pkg := range p.plan.Platforms() {
		if err := stage.CheckVendorTarget(p.vendorSource, pkg.Platform.Target); err != nil {
			return err
		}
	}

	if err := p.packMeta(ctx, p.plan.Meta()); err != nil {
		return fmt.Errorf("meta package: %w", err)
	}

	return nil
}

// packPlatform stages and packs one platform package.
func (p *packager) packPlatform(ctx context.Context, pkg PackagePlan) error {
	ctx = logger.WithKV(ctx, "package", pkg.Artifact)

	m, err := manifest.SynthesizePlatform(p.template, p.cfg.PackageName, p.plan.Version, pkg.Platform)
	if err != nil {
		return err
	}

	dir, err := p.stager.Platform(ctx, stage.PlatformParams{
		Platform:     pkg.Platform,
		VendorSource: p.vendorSource,
		Manifest:     m,
	})
	if err != nil {
		return err
	}

	return p.pack(ctx, dir, pkg.Artifact, "vendor/")
}

// packMeta stages and packs the meta package.
func (p *packager) packMeta(ctx context.Context, pkg PackagePlan) error {
	ctx = logger.WithKV(ctx, "package", pkg.Artifact)

	m, err := manifest.SynthesizeMeta(p.template, p.cfg.PackageName, p.plan.Version, p.cfg.Platforms.Specs())
	if err != nil {
		return err
	}

	dir, err := p.stager.Meta(ctx, stage.MetaParams{
		LauncherPath: p.cfg.LauncherPath,
		Manifest:     m,
	})
	if err != nil {
		return err
	}

	return p.pack(ctx, dir, pkg.Artifact, "bin/")
}

// pack runs the packer and checks the reported file list stays within payloadDir.
// An archive that fails the check is removed so it never keeps its final name.
func (p *packager) pack(ctx context.Context, dir, artifactName, payloadDir string) error {
	artifact, err := p.packer.Pack(ctx, dir, p.outputDir, artifactName)
	if err != nil {
		return err
	}

	if err = checkContents(artifact.Result.Files, payloadDir); err != nil {
		_ = os.Remove(artifact.Path)

		return fmt.Errorf("%s: %w", artifactName, err)
	}

	p.artifacts = append(p.artifacts, artifact)

	return nil
}

// checkContents accepts the manifest, README.md, LICENSE and files below payloadDir.
func checkContents(files []npm.PackedFile, payloadDir string) error {
	for _, file := range files {
		switch {
		case file.Path == manifest.Filename, file.Path == "README.md", file.Path == "LICENSE":
		case strings.HasPrefix(file.Path, payloadDir):
		default:
			return fmt.Errorf("%w: %s", errUnexpectedContents, file.Path)
		}
	}

	return nil
}

// logSummary reports the archives produced by the run.
func (p *packager) logSummary(ctx context.Context) {
	for _, artifact := range p.artifacts {
		logger.InfoKV(ctx, "Artifact ready",
			"path", artifact.Path,
			"size", artifact.Size,
			"sha512", artifact.Checksum,
		)
	}

	logger.InfoKV(ctx, "Packager completed successfully", "artifacts", len(p.artifacts))
}
