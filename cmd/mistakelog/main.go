// Package main is the entry point for the mistakelog CLI. The serve command
// runs the web UI; the other commands work on the log file directly.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/mistakelog/internal/config"
	"github.com/JonMunkholm/mistakelog/internal/core"
	"github.com/JonMunkholm/mistakelog/internal/logging"
	"github.com/JonMunkholm/mistakelog/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// app holds what every command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	service *core.Service
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "mistakelog",
		Short: "Log exam practice mistakes to a CSV file",
		Long: `mistakelog extracts question details from text copied out of a practice
exam, classifies the mistake and appends it to a CSV log.

Run "mistakelog serve" for the web page, or use the other commands to work
with the log from a terminal. Settings come from the environment and an
optional .env file; see STORE_PATH for the log location.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			envFile, _ := cmd.Flags().GetString("env-file")
			return a.setup(cmd, envFile)
		},
	}

	root.PersistentFlags().String("env-file", ".env", "dotenv file loaded over the environment, if present")
	root.PersistentFlags().String("store", "", "log file path (overrides STORE_PATH)")

	root.AddCommand(
		newServeCmd(a),
		newExtractCmd(a),
		newLogCmd(a),
		newHistoryCmd(a),
		newDeleteCmd(a),
		newImportCmd(a),
		newExportCmd(a),
	)
	return root
}

// setup loads the env file and configuration, installs the logger and opens
// the store. serve logs to stdout; the other commands keep stdout for their
// output and log to stderr.
func (a *app) setup(cmd *cobra.Command, envFile string) error {
	envErr := loadEnvFile(envFile)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if path, _ := cmd.Flags().GetString("store"); path != "" {
		cfg.Store.Path = path
	}

	if cmd.Name() == "serve" {
		logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	} else {
		logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	}
	if envErr != nil {
		slog.Warn("could not load env file", "file", envFile, "error", envErr)
	}

	a.cfg = cfg
	a.service = core.NewService(
		store.New(cfg.Store.Path, store.WithLogger(slog.Default())),
		serviceConfig(cfg),
	)
	slog.Debug("configuration loaded", "config", cfg.String())
	return nil
}

// loadEnvFile applies envFile over the process environment. A missing file is
// not an error.
func loadEnvFile(envFile string) error {
	if envFile == "" {
		return nil
	}
	// Overload overwrites existing env vars
	if err := godotenv.Overload(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func serviceConfig(cfg *config.Config) core.Config {
	return core.Config{
		HistoryLimit:         cfg.Store.HistoryLimit,
		ExportPrefix:         cfg.Store.ExportPrefix,
		MaxFileSize:          cfg.Import.MaxFileSize,
		MaxFiles:             cfg.Import.MaxFiles,
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		ImportWait:           cfg.Import.MaxWaitTime,
	}
}

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		msg := err.Error()
		if core.IsUserFacing(err) {
			msg = core.FormatUserError(err)
		}
		fmt.Fprintln(root.ErrOrStderr(), "Error:", msg)
		os.Exit(1)
	}
}
