// Package platform holds the fixed table of npm platform packages.
//
// Each Spec maps an npm platform tag (for example "linux-x64") to the compiler
// target triple whose vendor payload it carries, and to the os/cpu values npm
// uses to select the optional dependency on install.
package platform
