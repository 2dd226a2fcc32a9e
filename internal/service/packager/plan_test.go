package packager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/qrafty-ai/opencode-kanban/internal/config"
)

// TestBuildPlan checks package order, versions and artifact names.
func TestBuildPlan(t *testing.T) {
	t.Parallel()

	cfg := config.Default("/src/opencode-kanban")

	plan, err := BuildPlan(cfg, " 1.2.3\n", "/vendor")
	require.NoError(t, err)
	require.Equal(t, "1.2.3", plan.Version)

	require.Equal(t, []string{
		"qrafty-ai-opencode-kanban-npm-linux-x64-1.2.3.tgz",
		"qrafty-ai-opencode-kanban-npm-darwin-arm64-1.2.3.tgz",
		"qrafty-ai-opencode-kanban-npm-1.2.3.tgz",
	}, plan.Artifacts())

	platforms := plan.Platforms()
	require.Len(t, platforms, 2)
	require.Equal(t, "1.2.3-linux-x64", platforms[0].Version)
	require.Equal(t, filepath.Join("/vendor", "x86_64-unknown-linux-gnu"), platforms[0].VendorDir)
	require.Equal(t, KindMeta, plan.Meta().Kind)
	require.Equal(t, "1.2.3", plan.Meta().Version)

	_, err = BuildPlan(cfg, "", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

// TestPlanYAML checks the rendered plan decodes back to the same packages.
func TestPlanYAML(t *testing.T) {
	t.Parallel()

	plan, err := BuildPlan(config.Default("/src/opencode-kanban"), "2.0.0", "")
	require.NoError(t, err)

	data, err := plan.YAML()
	require.NoError(t, err)

	var decoded struct {
		Version  string `yaml:"version"`
		Packages []struct {
			Kind      string `yaml:"kind"`
			Tag       string `yaml:"tag"`
			Artifact  string `yaml:"artifact"`
			VendorDir string `yaml:"vendor_dir"`
		} `yaml:"packages"`
	}
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	require.Equal(t, "2.0.0", decoded.Version)
	require.Len(t, decoded.Packages, 3)
	require.Equal(t, "platform", decoded.Packages[0].Kind)
	require.Equal(t, "linux-x64", decoded.Packages[0].Tag)
	require.Empty(t, decoded.Packages[0].VendorDir)
	require.Equal(t, "meta", decoded.Packages[2].Kind)
	require.Equal(t, "qrafty-ai-opencode-kanban-npm-2.0.0.tgz", decoded.Packages[2].Artifact)
}
