// Package packager builds the npm archives for an opencode-kanban release.
//
// Run stages and packs one package per registered platform, then the meta
// package that declares them as optional dependencies. All staging happens
// under a single temporary root that is removed when the run ends, and the
// first failure aborts the run.
package packager
