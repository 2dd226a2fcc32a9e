// Package stage assembles the per-package directories handed to npm pack.
//
// Every package gets its own directory under a shared staging root. Platform
// directories receive a verbatim copy of one vendor target subtree, the meta
// directory receives the JavaScript launcher. Both get README.md and LICENSE
// when the project has them, and a synthesized package.json.
package stage
