//go:build mage

// Package main holds the mage targets for building and running npm-packager.
//
//	mage build                                     compile bin/npm-packager
//	mage test                                      run all tests
//	mage lint                                      run golangci-lint
//	mage clean                                     remove bin/
//	mage package <version> <vendor-src> <out-dir>  build the npm archives
package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	"github.com/qrafty-ai/opencode-kanban/internal/version"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "npm-packager"
	binaryDir  = "bin"
	cmdDir     = "./cmd/npm-packager"
)

// Build compiles npm-packager to bin/, stamping the git revision.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}

	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		commit = "none"
	}

	tag, err := sh.Output("git", "describe", "--tags", "--abbrev=0")
	if err != nil {
		tag = version.Version
	}

	ldflags := version.LDFlags(strings.TrimPrefix(tag, "v"), commit, time.Now().UTC().Format(time.RFC3339))

	return sh.RunV(binGo, "build", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "./...")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build output.
func Clean() error {
	if err := sh.Rm(binaryDir); err != nil {
		return err
	}

	return sh.RunV(binGo, "clean")
}

// Package builds the npm archives for release into outDir.
func Package(release, vendorSrc, outDir string) error {
	mg.Deps(Build)

	return sh.RunV(filepath.Join(binaryDir, binaryName),
		"--version", release,
		"--vendor-src", vendorSrc,
		"--out-dir", outDir,
	)
}
