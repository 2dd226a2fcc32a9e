// Package npm drives `npm pack` against staged package directories.
//
// The tool's JSON report is decoded into PackResult at the boundary and
// checked for a usable archive name. The archive npm produced is then promoted
// to its final, deterministic name in the output directory, replacing any
// archive of that name from an earlier run.
package npm
