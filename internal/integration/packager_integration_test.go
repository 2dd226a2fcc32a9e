package integration

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/qrafty-ai/opencode-kanban/cmd/npm-packager/cmd"
	"github.com/qrafty-ai/opencode-kanban/internal/npm/npmtest"
)

const template = `{
  "name": "@qrafty-ai/opencode-kanban",
  "version": "0.0.0-dev",
  "description": "Terminal kanban board for opencode sessions",
  "license": "MIT",
  "bin": {
    "opencode-kanban": "bin/opencode-kanban.js"
  }
}
`

func writeFile(t *testing.T, path, contents string, mode os.FileMode) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), mode))
}

// TestPackager_RealNPM runs the CLI end to end against the npm found on PATH.
func TestPackager_RealNPM(t *testing.T) {
	if testing.Short() {
		t.Skip("packs with the real npm")
	}

	if _, err := exec.LookPath("npm"); err != nil {
		t.Skip("npm is not installed")
	}

	project := t.TempDir()
	writeFile(t, filepath.Join(project, "npm", "package.json"), template, 0o644)
	writeFile(t, filepath.Join(project, "npm", "bin", "opencode-kanban.js"), "#!/usr/bin/env node\n", 0o755)
	writeFile(t, filepath.Join(project, "README.md"), "# opencode-kanban\n", 0o644)
	writeFile(t, filepath.Join(project, "LICENSE"), "MIT License\n", 0o644)

	vendor := t.TempDir()
	for _, target := range []string{"x86_64-unknown-linux-gnu", "aarch64-apple-darwin"} {
		writeFile(t, filepath.Join(vendor, target, "opencode-kanban", "opencode-kanban"), "binary", 0o644)
	}

	out := filepath.Join(t.TempDir(), "dist")

	t.Setenv("OPENCODE_KANBAN_NPM_PROJECT_ROOT", project)
	t.Setenv("OPENCODE_KANBAN_NPM_LOG_LEVEL", "warn")

	root := cmd.NewRootCommand()
	root.SetArgs([]string{"--version", "1.2.3", "--vendor-src", vendor, "--out-dir", out})
	root.SetOut(new(bytes.Buffer))

	require.NoError(t, root.Execute())

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	archive, err := npmtest.ReadArchive(filepath.Join(out, "qrafty-ai-opencode-kanban-npm-linux-x64-1.2.3.tgz"))
	require.NoError(t, err)

	binary := "vendor/x86_64-unknown-linux-gnu/opencode-kanban/opencode-kanban"
	require.Contains(t, archive, binary)
	require.NotZero(t, archive[binary]&0o111)

	archive, err = npmtest.ReadArchive(filepath.Join(out, "qrafty-ai-opencode-kanban-npm-1.2.3.tgz"))
	require.NoError(t, err)
	require.Contains(t, archive, "bin/opencode-kanban.js")
	require.Contains(t, archive, "package.json")
}
