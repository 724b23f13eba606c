package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chameleon-db/dsql/internal/admin"
	"github.com/chameleon-db/dsql/internal/config"
	"github.com/chameleon-db/dsql/pkg/builder"
	"github.com/chameleon-db/dsql/pkg/engine"
)

var (
	// Global flags
	verbose bool
	workDir string

	// Colors
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)

	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var rootCmd = &cobra.Command{
	Use:   "dsql",
	Short: "dsql - dynamic SQL statement builder",
	Long: `dsql builds parameterized SQL statements for several dialects from
statement description files and runs them against a database.

Get started:
  dsql init
  dsql render statements/
  dsql exec statements/example.yml --dry-run`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger(os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "project directory (default: current directory)")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if builder.IsValidationError(err) {
			fmt.Fprint(os.Stderr, engine.FormatError(err))
		} else {
			errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// Helper functions for consistent output
func printSuccess(format string, args ...any) {
	successColor.Printf("✓ "+format+"\n", args...)
}

func printWarning(format string, args ...any) {
	warningColor.Printf("⚠ "+format+"\n", args...)
}

func printInfo(format string, args ...any) {
	infoColor.Printf("ℹ "+format+"\n", args...)
}

// newLogger builds the slog logger from LOG_LEVEL and LOG_FORMAT.
// --verbose lowers the level to debug.
func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	switch s := strings.ToUpper(os.Getenv("LOG_LEVEL")); s {
	case "":
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		if n, err := strconv.Atoi(s); err == nil {
			level = slog.Level(n)
		}
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if os.Getenv("LOG_FORMAT") == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// projectDir resolves --dir, defaulting to the working directory.
func projectDir() (string, error) {
	if workDir != "" {
		return filepath.Abs(workDir)
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return dir, nil
}

// loadProject loads the project configuration, falling back to defaults
// when no config file exists.
func loadProject() (*config.Config, *admin.ManagerFactory, error) {
	dir, err := projectDir()
	if err != nil {
		return nil, nil, err
	}
	factory := admin.NewManagerFactory(dir)
	cfg, err := factory.CreateConfigLoader().LoadOrDefault()
	if err != nil {
		return nil, nil, err
	}
	if verbose {
		printInfo("Using %s", factory.CreateConfigLoader().Path())
	}
	return cfg, factory, nil
}
