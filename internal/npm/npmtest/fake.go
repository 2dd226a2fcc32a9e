// Package npmtest provides an in-process stand-in for `npm pack` and helpers
// to inspect the archives it writes.
package npmtest

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/qrafty-ai/opencode-kanban/internal/npm"
)

// archivePrefix is the directory npm places package contents under.
const archivePrefix = "package/"

// FakeTool packs a staged directory the way npm does: every file under the
// staging directory goes into a gzipped tarball named after the manifest's
// name and version, and a JSON report is returned.
type FakeTool struct {
	// Output replaces the JSON report when non-nil.
	Output []byte
	// SkipWrite reports the archive without writing it.
	SkipWrite bool

	mu    sync.Mutex
	calls []string
}

var _ npm.Tool = (*FakeTool)(nil)

// Pack implements npm.Tool.
func (f *FakeTool) Pack(_ context.Context, stagingDir, destination string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, stagingDir)
	f.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(stagingDir, "package.json"))
	if err != nil {
		return nil, err
	}

	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err = json.Unmarshal(data, &pkg); err != nil {
		return nil, err
	}

	filename := strings.ReplaceAll(strings.TrimPrefix(pkg.Name, "@"), "/", "-") + "-" + pkg.Version + ".tgz"

	files, err := collect(stagingDir)
	if err != nil {
		return nil, err
	}

	var integrity string

	if !f.SkipWrite {
		archive := filepath.Join(destination, filename)
		if err = writeArchive(stagingDir, archive, files); err != nil {
			return nil, err
		}

		if integrity, err = integrityOf(archive); err != nil {
			return nil, err
		}
	}

	if f.Output != nil {
		return f.Output, nil
	}

	return json.Marshal([]npm.PackResult{{
		ID:         pkg.Name + "@" + pkg.Version,
		Name:       pkg.Name,
		Version:    pkg.Version,
		Filename:   filename,
		Integrity:  integrity,
		Files:      files,
		EntryCount: len(files),
	}})
}

// Calls returns the staging directories packed so far.
func (f *FakeTool) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.calls...)
}

// ReadArchive returns the file entries of a .tgz written by FakeTool or npm,
// keyed by their path relative to the package root.
func ReadArchive(path string) (map[string]fs.FileMode, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = file.Close()
	}()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]fs.FileMode)
	reader := tar.NewReader(gz)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}

		if err != nil {
			return nil, err
		}

		entries[strings.TrimPrefix(header.Name, archivePrefix)] = fs.FileMode(header.Mode).Perm()
	}
}

// ReadArchiveFile returns the contents of one file inside a .tgz, addressed
// relative to the package root.
func ReadArchiveFile(path, name string) ([]byte, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = file.Close()
	}()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, err
	}

	reader := tar.NewReader(gz)

	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: %w", name, fs.ErrNotExist)
		}

		if err != nil {
			return nil, err
		}

		if header.Name == archivePrefix+name {
			return io.ReadAll(reader)
		}
	}
}

// integrityOf returns the npm subresource integrity string of the file at path.
func integrityOf(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	digest := sha512.Sum512(data)

	return "sha512-" + base64.StdEncoding.EncodeToString(digest[:]), nil
}

// collect lists the regular files under root in lexical order.
func collect(root string) ([]npm.PackedFile, error) {
	var files []npm.PackedFile

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return err
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		files = append(files, npm.PackedFile{
			Path: filepath.ToSlash(rel),
			Size: info.Size(),
			Mode: int(info.Mode().Perm()),
		})

		return nil
	})

	return files, err
}

func writeArchive(root, out string, files []npm.PackedFile) (err error) {
	file, err := os.Create(filepath.Clean(out))
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)

	defer func() {
		for _, closer := range []io.Closer{tw, gz, file} {
			if closeErr := closer.Close(); err == nil {
				err = closeErr
			}
		}
	}()

	for _, packed := range files {
		if err = addFile(tw, root, packed); err != nil {
			return fmt.Errorf("add %s: %w", packed.Path, err)
		}
	}

	return nil
}

func addFile(tw *tar.Writer, root string, packed npm.PackedFile) error {
	header := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     archivePrefix + packed.Path,
		Mode:     int64(packed.Mode),
		Size:     packed.Size,
	}

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	src, err := os.Open(filepath.Join(root, filepath.FromSlash(packed.Path)))
	if err != nil {
		return err
	}

	defer func() {
		_ = src.Close()
	}()

	_, err = io.Copy(tw, src)

	return err
}
