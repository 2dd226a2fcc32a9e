package packager

import (
	"context"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-ps"

	"github.com/qrafty-ai/opencode-kanban/internal/logger"
)

// warnConcurrentRuns logs a warning when another instance of this executable
// is running. Two runs sharing a vendor or output directory can race; nothing
// locks them, so the operator is told instead.
func warnConcurrentRuns(ctx context.Context) {
	executable := filepath.Base(os.Args[0])

	pids, err := otherInstances(executable)
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)
		return
	}

	for _, pid := range pids {
		logger.WarnKV(ctx, "Another packaging run is active, concurrent runs must not share vendor or output directories",
			"executable", executable, "pid", pid)
	}
}

// otherInstances returns the pids of processes named executable, excluding this one.
func otherInstances(executable string) ([]int, error) {
	processList, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	thisProcessID := os.Getpid()

	var pids []int

	for _, process := range processList {
		if process.Pid() == thisProcessID || process.Executable() != executable {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}
