package npm

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Tool packs a staged directory into destination and returns the tool's
// machine-readable report.
type Tool interface {
	Pack(ctx context.Context, stagingDir, destination string) ([]byte, error)
}

// CommandTool runs `<Command> pack --json --pack-destination <destination>`
// from inside the staging directory.
type CommandTool struct {
	// Command is the npm executable name or path.
	Command string
}

// NewCommandTool returns a Tool backed by the given npm executable.
func NewCommandTool(command string) *CommandTool {
	return &CommandTool{Command: command}
}

// Pack implements Tool. It blocks until the command exits.
func (c *CommandTool) Pack(ctx context.Context, stagingDir, destination string) ([]byte, error) {
	destination, err := filepath.Abs(destination)
	if err != nil {
		return nil, fmt.Errorf("resolve pack destination: %w", err)
	}

	//nolint:gosec // The command comes from the packager configuration.
	cmd := exec.CommandContext(ctx, c.Command, "pack", "--json", "--pack-destination", destination)
	cmd.Dir = stagingDir

	var stderr bytes.Buffer

	cmd.Stderr = &stderr

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s pack in %s: %w: %s",
			ErrPackToolFailure, c.Command, stagingDir, err, strings.TrimSpace(stderr.String()))
	}

	return output, nil
}
