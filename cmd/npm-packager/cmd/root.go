package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qrafty-ai/opencode-kanban/internal/config"
	"github.com/qrafty-ai/opencode-kanban/internal/logger"
	"github.com/qrafty-ai/opencode-kanban/internal/service/packager"
	"github.com/qrafty-ai/opencode-kanban/internal/version"
)

const (
	flagVersion   = "version"
	flagVendorSrc = "vendor-src"
	flagOutDir    = "out-dir"
)

// NewRootCommand builds the npm-packager CLI with its subcommands.
func NewRootCommand() *cobra.Command {
	options := new(packager.Options)

	rootCmd := &cobra.Command{
		Use:   "npm-packager",
		Short: "Build the npm meta package and per-platform packages for opencode-kanban",
		Long: "Stage prebuilt opencode-kanban binaries from a vendor tree into one npm package per platform, " +
			"then build the meta package that depends on them, and write every .tgz into the output directory.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			return packager.Run(ctx, cfg, options)
		},
	}

	rootCmd.Flags().StringVar(&options.Version, flagVersion, "", "release version, e.g. 1.2.3")
	rootCmd.Flags().StringVar(&options.VendorSource, flagVendorSrc, "", "directory holding one subdirectory per target triple")
	rootCmd.Flags().StringVar(&options.OutputDir, flagOutDir, "", "directory receiving the .tgz archives")

	for _, name := range []string{flagVersion, flagVendorSrc, flagOutDir} {
		_ = rootCmd.MarkFlagRequired(name)
	}

	rootCmd.AddCommand(newPlanCommand())
	version.AttachCobraVersionCommand(rootCmd)

	return rootCmd
}

// newPlanCommand prints the packages a run would build without touching the filesystem.
func newPlanCommand() *cobra.Command {
	var releaseVersion, vendorSource string

	planCmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the packages and archive names a run would produce",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			plan, err := packager.BuildPlan(cfg, releaseVersion, vendorSource)
			if err != nil {
				return err
			}

			data, err := plan.YAML()
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}

	planCmd.Flags().StringVar(&releaseVersion, flagVersion, "", "release version, e.g. 1.2.3")
	planCmd.Flags().StringVar(&vendorSource, flagVendorSrc, "", "vendor tree to resolve target directories against")
	_ = planCmd.MarkFlagRequired(flagVersion)

	return planCmd
}

// loadConfig resolves the settings and applies the configured log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level, _ := logger.ParseLogLevel(cfg.LogLevel)
	logger.SetLevel(level)

	return cfg, nil
}

// Execute runs the npm-packager CLI and exits with non-zero status on error.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "npm-packager:", err)
		os.Exit(1)
	}
}
