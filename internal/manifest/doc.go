// Package manifest builds the package.json documents for the npm meta package
// and its platform packages.
//
// Manifests are insertion-ordered JSON objects: keys read from the template
// keep their position and nested values are carried through untouched, so the
// published meta package mirrors npm/package.json except for the fields the
// packager owns.
package manifest
