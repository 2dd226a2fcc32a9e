package platform

import (
	"errors"
	"fmt"
)

// Spec describes one platform package.
type Spec struct {
	// Tag is the npm platform suffix, e.g. "linux-x64".
	Tag string
	// Target is the compiler target triple naming the vendor payload directory.
	Target string
	// OS is the value written to the manifest "os" field.
	OS string
	// CPU is the value written to the manifest "cpu" field.
	CPU string
}

// Registry is an immutable, ordered set of platform specs keyed by tag.
type Registry struct {
	specs []Spec
	byTag map[string]int
}

var (
	// ErrUnknownPlatform is returned by Lookup for a tag that is not registered.
	ErrUnknownPlatform = errors.New("unknown platform")

	errIncompleteSpec  = errors.New("platform spec is incomplete")
	errDuplicateTag    = errors.New("duplicate platform tag")
	errDuplicateTarget = errors.New("duplicate platform target")
)

// New builds a registry from specs, keeping their order.
func New(specs ...Spec) (*Registry, error) {
	r := &Registry{
		specs: make([]Spec, 0, len(specs)),
		byTag: make(map[string]int, len(specs)),
	}

	targets := make(map[string]struct{}, len(specs))

	for _, spec := range specs {
		if spec.Tag == "" || spec.Target == "" || spec.OS == "" || spec.CPU == "" {
			return nil, fmt.Errorf("%+v: %w", spec, errIncompleteSpec)
		}

		if _, found := r.byTag[spec.Tag]; found {
			return nil, fmt.Errorf("%s: %w", spec.Tag, errDuplicateTag)
		}

		if _, found := targets[spec.Target]; found {
			return nil, fmt.Errorf("%s: %w", spec.Target, errDuplicateTarget)
		}

		targets[spec.Target] = struct{}{}
		r.byTag[spec.Tag] = len(r.specs)
		r.specs = append(r.specs, spec)
	}

	return r, nil
}

// Default returns the registry of platforms opencode-kanban is published for.
func Default() *Registry {
	r, err := New(
		Spec{Tag: "linux-x64", Target: "x86_64-unknown-linux-gnu", OS: "linux", CPU: "x64"},
		Spec{Tag: "darwin-arm64", Target: "aarch64-apple-darwin", OS: "darwin", CPU: "arm64"},
	)
	if err != nil {
		panic(err)
	}

	return r
}

// Lookup returns the spec registered for tag.
func (r *Registry) Lookup(tag string) (Spec, error) {
	idx, found := r.byTag[tag]
	if !found {
		return Spec{}, fmt.Errorf("%s: %w", tag, ErrUnknownPlatform)
	}

	return r.specs[idx], nil
}

// Tags returns the registered tags in registration order.
func (r *Registry) Tags() []string {
	tags := make([]string, len(r.specs))
	for i, spec := range r.specs {
		tags[i] = spec.Tag
	}

	return tags
}

// Specs returns a copy of the registered specs in registration order.
func (r *Registry) Specs() []Spec {
	return append([]Spec(nil), r.specs...)
}

// Len returns the number of registered platforms.
func (r *Registry) Len() int {
	return len(r.specs)
}
