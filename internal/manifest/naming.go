package manifest

import "strings"

// PackageFilename flattens an npm package name into a filename-safe prefix:
// "@scope/name" becomes "scope-name".
func PackageFilename(name string) string {
	return strings.ReplaceAll(strings.ReplaceAll(name, "@", ""), "/", "-")
}

// PlatformVersion returns the version published for a platform package.
func PlatformVersion(version, tag string) string {
	return version + "-" + tag
}

// OptionalDependencyName is the alias the meta package uses for a platform package.
func OptionalDependencyName(name, tag string) string {
	return name + "-" + tag
}

// OptionalDependencySpec is the npm alias spec resolving to the platform package.
func OptionalDependencySpec(name, version, tag string) string {
	return "npm:" + name + "@" + PlatformVersion(version, tag)
}

// MetaArtifactName is the final archive name for the meta package.
func MetaArtifactName(name, version string) string {
	return PackageFilename(name) + "-npm-" + version + ".tgz"
}

// PlatformArtifactName is the final archive name for a platform package.
func PlatformArtifactName(name, tag, version string) string {
	return PackageFilename(name) + "-npm-" + tag + "-" + version + ".tgz"
}
