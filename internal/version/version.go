package version

import "fmt"

// Program is the name reported by Full.
const Program = "npm-packager"

var (
	// Version of the packager itself, not of the release it packages.
	Version = "0.0.0-dev"
	// Commit is the short git SHA or "none".
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the program name with version, commit and build time.
func Full() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", Program, Version, Commit, BuildTime)
}

// LDFlags returns the linker flags that stamp the given metadata into this package.
func LDFlags(version, commit, buildTime string) string {
	const pkg = "github.com/qrafty-ai/opencode-kanban/internal/version"

	return fmt.Sprintf("-X %[1]s.Version=%[2]s -X %[1]s.Commit=%[3]s -X %[1]s.BuildTime=%[4]s",
		pkg, version, commit, buildTime)
}
