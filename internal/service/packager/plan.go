package packager

import (
	"fmt"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/qrafty-ai/opencode-kanban/internal/config"
	"github.com/qrafty-ai/opencode-kanban/internal/manifest"
	"github.com/qrafty-ai/opencode-kanban/internal/platform"
	"github.com/qrafty-ai/opencode-kanban/internal/stage"
)

// Kind distinguishes the meta package from platform packages.
type Kind string

const (
	// KindPlatform is a package carrying one platform's binary.
	KindPlatform Kind = "platform"
	// KindMeta is the package users install.
	KindMeta Kind = "meta"
)

// PackagePlan describes one archive a run produces.
type PackagePlan struct {
	Kind      Kind   `yaml:"kind"`
	Tag       string `yaml:"tag,omitempty"`
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	OS        string `yaml:"os,omitempty"`
	CPU       string `yaml:"cpu,omitempty"`
	VendorDir string `yaml:"vendor_dir,omitempty"`
	Artifact  string `yaml:"artifact"`

	// Platform is set for platform packages.
	Platform platform.Spec `yaml:"-"`
}

// Plan is the ordered list of packages built by a run: platforms first, meta last.
type Plan struct {
	Version  string        `yaml:"version"`
	Packages []PackagePlan `yaml:"packages"`
}

// BuildPlan validates version and lays out the packages for cfg's platforms.
// vendorSource may be empty, in which case vendor directories are omitted.
func BuildPlan(cfg *config.Config, version, vendorSource string) (*Plan, error) {
	version, err := normalizeVersion(version)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Version:  version,
		Packages: make([]PackagePlan, 0, cfg.Platforms.Len()+1),
	}

	for _, spec := range cfg.Platforms.Specs() {
		pkg := PackagePlan{
			Kind:     KindPlatform,
			Tag:      spec.Tag,
			Name:     cfg.PackageName,
			Version:  manifest.PlatformVersion(version, spec.Tag),
			OS:       spec.OS,
			CPU:      spec.CPU,
			Artifact: manifest.PlatformArtifactName(cfg.PackageName, spec.Tag, version),
			Platform: spec,
		}

		if vendorSource != "" {
			pkg.VendorDir = stage.VendorTargetDir(vendorSource, spec.Target)
		}

		plan.Packages = append(plan.Packages, pkg)
	}

	plan.Packages = append(plan.Packages, PackagePlan{
		Kind:     KindMeta,
		Name:     cfg.PackageName,
		Version:  version,
		Artifact: manifest.MetaArtifactName(cfg.PackageName, version),
	})

	return plan, nil
}

// Platforms returns the platform packages in build order.
func (p *Plan) Platforms() []PackagePlan {
	return p.Packages[:len(p.Packages)-1]
}

// Meta returns the meta package.
func (p *Plan) Meta() PackagePlan {
	return p.Packages[len(p.Packages)-1]
}

// Artifacts returns every archive name in build order.
func (p *Plan) Artifacts() []string {
	names := make([]string, len(p.Packages))
	for i, pkg := range p.Packages {
		names[i] = pkg.Artifact
	}

	return names
}

// YAML renders the plan.
func (p *Plan) YAML() ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal plan: %w", err)
	}

	return data, nil
}

// normalizeVersion trims version and rejects values that cannot be embedded
// in a file name.
func normalizeVersion(version string) (string, error) {
	version = strings.TrimSpace(version)
	if version == "" {
		return "", fmt.Errorf("%w: version must be provided", ErrInvalidInput)
	}

	if strings.ContainsAny(version, `/\`) || strings.IndexFunc(version, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: version %q must not contain path separators or spaces", ErrInvalidInput, version)
	}

	return version, nil
}
