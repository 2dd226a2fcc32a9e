// Package config defines the immutable settings of a packaging run.
//
// The package identity, the platform registry and the project-relative paths
// to the manifest template and launcher script are fixed. The project root, the
// npm command and the log level can be overridden through OPENCODE_KANBAN_NPM_*
// environment variables or an optional npm/npm-packager.yaml file.
package config
