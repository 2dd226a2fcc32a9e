package npm_test

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qrafty-ai/opencode-kanban/internal/npm"
	"github.com/qrafty-ai/opencode-kanban/internal/npm/npmtest"
)

// stagePackage writes a minimal staged package directory.
func stagePackage(t *testing.T, version string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "opencode-kanban.js"), []byte("// launcher"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "package.json"),
		[]byte(`{"name": "@qrafty-ai/opencode-kanban", "version": "`+version+`"}`),
		0o644,
	))

	return dir
}

// TestPacker_RenamesAndOverwrites checks the deterministic name and replacement of an earlier archive.
func TestPacker_RenamesAndOverwrites(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	final := filepath.Join(out, "qrafty-ai-opencode-kanban-npm-1.2.3.tgz")
	require.NoError(t, os.WriteFile(final, []byte("stale"), 0o644))

	tool := new(npmtest.FakeTool)
	packer := npm.NewPacker(tool)

	artifact, err := packer.Pack(context.Background(), stagePackage(t, "1.2.3"), out, filepath.Base(final))
	require.NoError(t, err)
	require.Equal(t, final, artifact.Path)
	require.NotEmpty(t, artifact.Checksum)
	require.Equal(t, "sha512-"+artifact.Checksum, artifact.Result.Integrity)
	require.Equal(t, "qrafty-ai-opencode-kanban-1.2.3.tgz", artifact.Result.Filename)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, filepath.Base(final), entries[0].Name())

	files, err := npmtest.ReadArchive(final)
	require.NoError(t, err)
	require.Contains(t, files, "package.json")
	require.Contains(t, files, "bin/opencode-kanban.js")

	info, err := os.Stat(final)
	require.NoError(t, err)
	require.Equal(t, artifact.Size, info.Size())
}

// TestPacker_ArtifactMissing checks a reported but absent archive is an error.
func TestPacker_ArtifactMissing(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	packer := npm.NewPacker(&npmtest.FakeTool{SkipWrite: true})

	_, err := packer.Pack(context.Background(), stagePackage(t, "1.2.3"), out, "final.tgz")
	require.ErrorIs(t, err, npm.ErrArtifactMissing)

	_, err = os.Stat(filepath.Join(out, "final.tgz"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestPacker_BadReport checks that an empty report fails before anything is renamed.
func TestPacker_BadReport(t *testing.T) {
	t.Parallel()

	out := t.TempDir()
	packer := npm.NewPacker(&npmtest.FakeTool{Output: []byte("[]")})

	_, err := packer.Pack(context.Background(), stagePackage(t, "1.2.3"), out, "final.tgz")
	require.ErrorIs(t, err, npm.ErrPackToolFailure)

	_, err = os.Stat(filepath.Join(out, "final.tgz"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestPacker_IntegrityMismatch rejects an archive whose digest differs from the reported integrity.
func TestPacker_IntegrityMismatch(t *testing.T) {
	t.Parallel()

	wrong := sha512.Sum512([]byte("something else"))

	out := t.TempDir()
	packer := npm.NewPacker(&npmtest.FakeTool{Output: []byte(`[{
		"name": "@qrafty-ai/opencode-kanban",
		"version": "1.2.3",
		"filename": "qrafty-ai-opencode-kanban-1.2.3.tgz",
		"integrity": "sha512-` + base64.StdEncoding.EncodeToString(wrong[:]) + `"
	}]`)})

	_, err := packer.Pack(context.Background(), stagePackage(t, "1.2.3"), out, "final.tgz")
	require.ErrorIs(t, err, npm.ErrChecksumMismatch)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Empty(t, entries)
}

// TestPacker_MalformedIntegrity treats an integrity value without a SHA-512 digest as a tool failure.
func TestPacker_MalformedIntegrity(t *testing.T) {
	t.Parallel()

	for _, integrity := range []string{"sha1-AAAA", "sha512-not-base64!"} {
		out := t.TempDir()
		packer := npm.NewPacker(&npmtest.FakeTool{Output: []byte(`[{
			"filename": "qrafty-ai-opencode-kanban-1.2.3.tgz",
			"integrity": "` + integrity + `"
		}]`)})

		_, err := packer.Pack(context.Background(), stagePackage(t, "1.2.3"), out, "final.tgz")
		require.ErrorIs(t, err, npm.ErrPackToolFailure, integrity)

		_, err = os.Stat(filepath.Join(out, "final.tgz"))
		require.ErrorIs(t, err, os.ErrNotExist)
	}
}

// TestCommandTool runs a shell script standing in for npm.
// Not parallel: executing a freshly written script while other tests fork can fail with ETXTBSY.
func TestCommandTool(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}

	bin := t.TempDir()
	script := filepath.Join(bin, "npm")
	require.NoError(t, os.WriteFile(script, []byte(`#!/bin/sh
# args: pack --json --pack-destination <dir>
[ "$1" = "pack" ] || exit 3
[ "$2" = "--json" ] || exit 4
[ -f package.json ] || exit 5
printf 'archive' > "$4/generated.tgz"
printf '[{"filename":"generated.tgz"}]'
`), 0o755))

	out := t.TempDir()

	artifact, err := npm.NewPacker(npm.NewCommandTool(script)).
		Pack(context.Background(), stagePackage(t, "1.2.3"), out, "final.tgz")
	require.NoError(t, err)

	data, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	require.Equal(t, "archive", string(data))

	failing := filepath.Join(bin, "npm-fail")
	require.NoError(t, os.WriteFile(failing, []byte("#!/bin/sh\necho boom >&2\nexit 1\n"), 0o755))

	_, err = npm.NewCommandTool(failing).Pack(context.Background(), stagePackage(t, "1.2.3"), out)
	require.ErrorIs(t, err, npm.ErrPackToolFailure)
	require.ErrorContains(t, err, "boom")
}
