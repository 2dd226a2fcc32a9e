package npm

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// PackResult is one element of the array printed by `npm pack --json`.
type PackResult struct {
	ID           string       `json:"id,omitempty"`
	Name         string       `json:"name"`
	Version      string       `json:"version"`
	Size         int64        `json:"size,omitempty"`
	UnpackedSize int64        `json:"unpackedSize,omitempty"`
	Shasum       string       `json:"shasum,omitempty"`
	Integrity    string       `json:"integrity,omitempty"`
	Filename     string       `json:"filename"`
	Files        []PackedFile `json:"files,omitempty"`
	EntryCount   int          `json:"entryCount,omitempty"`
}

// PackedFile is an archive entry reported by npm, relative to the package root.
type PackedFile struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Mode int    `json:"mode"`
}

// ParsePackOutput decodes the tool's stdout and validates the first result.
func ParsePackOutput(output []byte) ([]PackResult, error) {
	var results []PackResult
	if err := json.Unmarshal(output, &results); err != nil {
		return nil, fmt.Errorf("%w: decode pack output: %w", ErrPackToolFailure, err)
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: pack output has no results", ErrPackToolFailure)
	}

	if !usableFilename(results[0].Filename) {
		return nil, fmt.Errorf("%w: pack output has no usable filename (got %q)", ErrPackToolFailure, results[0].Filename)
	}

	return results, nil
}

// usableFilename accepts plain file names only, so the archive is looked up
// inside the output directory and nowhere else.
func usableFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}

	return filepath.Base(name) == name && !strings.ContainsAny(name, `/\`)
}
