package stage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/magefile/mage/sh"
)

var errSymlinkLoop = errors.New("symbolic link loop")

// CopyOutcome tells what happened to an optional file.
type CopyOutcome int

const (
	// Skipped means the source was absent.
	Skipped CopyOutcome = iota
	// Copied means the source was present and copied.
	Copied
)

// String implements fmt.Stringer.
func (o CopyOutcome) String() string {
	if o == Copied {
		return "copied"
	}

	return "skipped"
}

// copyOptional copies src to dst when src exists. An absent source is not an
// error; a present source that fails to copy is.
func copyOptional(src, dst string) (CopyOutcome, error) {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Skipped, nil
		}

		return Skipped, fmt.Errorf("stat %s: %w", src, err)
	}

	if err := copyFile(src, dst); err != nil {
		return Skipped, err
	}

	return Copied, nil
}

// copyTree copies the directory src to dst, which must not exist yet.
// Symbolic links are followed, both for src itself and inside the tree;
// a link back into a directory being copied is an error.
func copyTree(src, dst string) error {
	return copyTreeVisited(src, dst, make(map[string]struct{}))
}

func copyTreeVisited(src, dst string, visited map[string]struct{}) error {
	resolved, err := filepath.EvalSymlinks(src)
	if err != nil {
		return err
	}

	if _, found := visited[resolved]; found {
		return fmt.Errorf("%w: %s", errSymlinkLoop, src)
	}

	visited[resolved] = struct{}{}
	defer delete(visited, resolved)

	return filepath.WalkDir(resolved, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(resolved, path)
		if err != nil {
			return err
		}

		target := filepath.Join(dst, rel)

		if entry.Type()&fs.ModeSymlink != 0 {
			info, statErr := os.Stat(path)
			if statErr != nil {
				return statErr
			}

			if info.IsDir() {
				return copyTreeVisited(path, target, visited)
			}

			return copyFile(path, target)
		}

		if entry.IsDir() {
			info, err := entry.Info()
			if err != nil {
				return err
			}

			return os.MkdirAll(target, info.Mode().Perm()|0o700)
		}

		return copyFile(path, target)
	})
}

// copyFile copies src to dst and applies the permission bits of src.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if err = sh.Copy(dst, src); err != nil {
		return err
	}

	return os.Chmod(dst, info.Mode().Perm())
}
