// Package version holds the build metadata of the npm-packager binary.
//
// Version, Commit and BuildTime are set through -ldflags by the mage build
// target; local builds report a development version.
package version
