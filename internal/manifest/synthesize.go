package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qrafty-ai/opencode-kanban/internal/platform"
)

const (
	// Filename is the manifest name npm expects at the package root.
	Filename = "package.json"

	// DefaultFileMode is used for manifests written into staging directories.
	DefaultFileMode os.FileMode = 0o644

	// defaultLicense is used for platform packages when the template has none.
	defaultLicense = "MIT"
)

var (
	// ErrTemplateUnreadable is returned when the template cannot be read or parsed.
	ErrTemplateUnreadable = errors.New("manifest template unreadable")
	// ErrInvalidTemplate is returned when the template is not a JSON object.
	ErrInvalidTemplate = errors.New("manifest template is not a JSON object")

	errFieldMissing = errors.New("field missing")
)

// LoadTemplate reads and parses the package.json template at path.
func LoadTemplate(path string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateUnreadable, err)
	}

	m, err := Parse(data)
	if err != nil {
		if errors.Is(err, ErrInvalidTemplate) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		return nil, fmt.Errorf("%w: %s: %w", ErrTemplateUnreadable, path, err)
	}

	return m, nil
}

// SynthesizeMeta builds the meta package manifest: a copy of the template
// with identity, version, file list and one optional dependency per platform.
func SynthesizeMeta(template *Manifest, name, version string, specs []platform.Spec) (*Manifest, error) {
	if template == nil {
		return nil, ErrInvalidTemplate
	}

	deps := New()

	for _, spec := range specs {
		if err := deps.Set(OptionalDependencyName(name, spec.Tag), OptionalDependencySpec(name, version, spec.Tag)); err != nil {
			return nil, err
		}
	}

	m := template.Clone()

	if err := setAll(m,
		field{"name", name},
		field{"version", version},
		field{"files", []string{"bin"}},
		field{"optionalDependencies", deps},
	); err != nil {
		return nil, err
	}

	return m, nil
}

// SynthesizePlatform builds a minimal manifest for a single platform package.
// Only description, license, repository and engines are taken from the
// template; repository and engines are kept only when they are objects.
func SynthesizePlatform(template *Manifest, name, version string, spec platform.Spec) (*Manifest, error) {
	if template == nil {
		return nil, ErrInvalidTemplate
	}

	m := New()

	if err := m.Set("name", name); err != nil {
		return nil, err
	}

	if err := m.Set("version", PlatformVersion(version, spec.Tag)); err != nil {
		return nil, err
	}

	copyOrDefault(m, template, "description", "")
	copyOrDefault(m, template, "license", defaultLicense)

	if err := setAll(m,
		field{"os", []string{spec.OS}},
		field{"cpu", []string{spec.CPU}},
		field{"files", []string{"vendor"}},
	); err != nil {
		return nil, err
	}

	for _, key := range []string{"repository", "engines"} {
		if template.IsObject(key) {
			raw, _ := template.Get(key)
			m.setRaw(key, raw)
		}
	}

	return m, nil
}

type field struct {
	key   string
	value any
}

func setAll(m *Manifest, fields ...field) error {
	for _, f := range fields {
		if err := m.Set(f.key, f.value); err != nil {
			return err
		}
	}

	return nil
}

// copyOrDefault copies key from src, or stores fallback when src lacks it.
func copyOrDefault(dst, src *Manifest, key, fallback string) {
	if raw, found := src.Get(key); found {
		dst.setRaw(key, raw)
		return
	}

	// A string always encodes.
	_ = dst.Set(key, fallback)
}
