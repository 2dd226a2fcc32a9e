package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/qrafty-ai/opencode-kanban/internal/logger"
	"github.com/qrafty-ai/opencode-kanban/internal/platform"
)

const (
	// PackageName is the npm identity shared by the meta and platform packages.
	PackageName = "@qrafty-ai/opencode-kanban"

	// BinaryName is the executable shipped in every platform package.
	BinaryName = "opencode-kanban"

	// EnvPrefix prefixes environment overrides, e.g. OPENCODE_KANBAN_NPM_NPM_COMMAND.
	EnvPrefix = "OPENCODE_KANBAN_NPM"

	// DefaultNPMCommand is the packaging tool invoked for every staged package.
	DefaultNPMCommand = "npm"

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// npmDir is the project-relative directory holding npm packaging inputs.
	npmDir = "npm"

	// configFileName is the optional settings file inside npmDir, without extension.
	configFileName = "npm-packager"

	keyProjectRoot = "project_root"
	keyNPMCommand  = "npm_command"
	keyLogLevel    = "log_level"
)

// Config holds the settings of one packaging run. It is built once at startup
// and never modified afterwards.
type Config struct {
	// PackageName is the npm package identity.
	PackageName string
	// BinaryName is the executable name inside each vendor payload.
	BinaryName string
	// ProjectRoot is the repository root holding README.md, LICENSE and npm/.
	ProjectRoot string
	// TemplatePath is the package.json template for the meta package.
	TemplatePath string
	// LauncherPath is the JavaScript launcher copied into the meta package.
	LauncherPath string
	// NPMCommand is the executable used to pack staged directories.
	NPMCommand string
	// LogLevel is the minimum level of emitted log entries.
	LogLevel string
	// Platforms is the fixed set of platform packages.
	Platforms *platform.Registry
}

var (
	errConfigIsNotSet      = errors.New("configuration is not set")
	errProjectRootRequired = errors.New("project root must be provided")
	errProjectRootInFile   = errors.New("project_root can only be set through the environment")
	errNPMCommandRequired  = errors.New("npm command must be provided")
	errNoPlatforms         = errors.New("no platforms registered")
	errInvalidLogLevel     = errors.New("invalid log level")
)

// Default returns the configuration for a project rooted at projectRoot.
func Default(projectRoot string) *Config {
	return &Config{
		PackageName:  PackageName,
		BinaryName:   BinaryName,
		ProjectRoot:  projectRoot,
		TemplatePath: filepath.Join(projectRoot, npmDir, "package.json"),
		LauncherPath: filepath.Join(projectRoot, npmDir, "bin", BinaryName+".js"),
		NPMCommand:   DefaultNPMCommand,
		LogLevel:     DefaultLogLevel,
		Platforms:    platform.Default(),
	}
}

// Load resolves the configuration from the environment and the optional
// settings file. The project root defaults to the working directory and is
// read from the environment only.
func Load() (*Config, error) {
	workDir, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault(keyProjectRoot, workDir)
	v.SetDefault(keyNPMCommand, DefaultNPMCommand)
	v.SetDefault(keyLogLevel, DefaultLogLevel)

	projectRoot, err := filepath.Abs(v.GetString(keyProjectRoot))
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(projectRoot, npmDir))

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	// The file is located through the project root, so it cannot move it.
	if v.InConfig(keyProjectRoot) {
		return nil, fmt.Errorf("%s: %w", v.ConfigFileUsed(), errProjectRootInFile)
	}

	cfg := Default(projectRoot)
	cfg.NPMCommand = strings.TrimSpace(v.GetString(keyNPMCommand))
	cfg.LogLevel = strings.TrimSpace(v.GetString(keyLogLevel))

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the provided settings for required fields.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ProjectRoot == "" {
		return errProjectRootRequired
	}

	if cfg.NPMCommand == "" {
		return errNPMCommandRequired
	}

	if cfg.Platforms == nil || cfg.Platforms.Len() == 0 {
		return errNoPlatforms
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%q: %w", cfg.LogLevel, errInvalidLogLevel)
	}

	return nil
}
