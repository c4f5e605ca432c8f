package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frederic-klein/pkgmeta/internal/assemble"
	"github.com/frederic-klein/pkgmeta/internal/backend"
	"github.com/frederic-klein/pkgmeta/internal/config"
	"github.com/frederic-klein/pkgmeta/internal/meta"
	"github.com/frederic-klein/pkgmeta/internal/sdist"
)

// Version is set at build time.
var Version = "dev"

var (
	projectDir  string
	verbose     bool
	noColor     bool
	format      string
	fingerprint bool
	pkgInfoPath string
	outDir      string
	listFiles   bool
	assumeYes   bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pkgmeta",
		Short: "Assemble Python package metadata and hand it to a packaging backend",
		Long: `pkgmeta reads a project's README, requirements.txt and version module,
discovers its packages, and assembles the package metadata. The record can be
printed, written as PKG-INFO, packed into a source distribution, or passed to
an external packaging tool.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the assembled metadata",
		Args:  cobra.NoArgs,
		RunE:  runShow,
	}
	showCmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml or json)")
	showCmd.Flags().BoolVar(&fingerprint, "fingerprint", false, "Print only the BLAKE3 fingerprint of the record")

	pkgInfoCmd := &cobra.Command{
		Use:   "pkg-info",
		Short: "Write the core metadata file (PKG-INFO)",
		Args:  cobra.NoArgs,
		RunE:  runPKGInfo,
	}
	pkgInfoCmd.Flags().StringVarP(&pkgInfoPath, "output", "o", "", "Output path (default <dir>/<name>.egg-info/PKG-INFO)")

	sdistCmd := &cobra.Command{
		Use:   "sdist",
		Short: "Build a source distribution",
		Args:  cobra.NoArgs,
		RunE:  runSdist,
	}
	sdistCmd.Flags().StringVarP(&outDir, "output", "o", "dist", "Output directory, relative to the project directory")

	inspectCmd := &cobra.Command{
		Use:   "inspect SDIST",
		Short: "Print the metadata stored in a source distribution",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	inspectCmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format (yaml or json)")
	inspectCmd.Flags().BoolVar(&listFiles, "files", false, "List archive contents instead")

	runCmd := &cobra.Command{
		Use:   "run [-- ARGS...]",
		Short: "Pass the metadata to the configured packaging backend",
		Long: `Runs backend.command from the project config with ARGS appended. Sub-commands
such as "build" or "install" are interpreted by the backend, not by pkgmeta.
The record is written to the backend's stdin as JSON.`,
		RunE: runBackend,
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create pkgmeta.yaml and the project skeleton",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
	initCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Accept defaults without prompting")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pkgmeta %s\n", Version)
		},
	}

	rootCmd.AddCommand(showCmd, pkgInfoCmd, sdistCmd, inspectCmd, runCmd, initCmd, versionCmd)
	return rootCmd
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// assembleProject loads the config and assembles the record. Nothing is
// handed to a backend unless this succeeds.
func assembleProject(logger *zap.Logger) (*config.Config, *meta.Record, error) {
	if path := config.Used(projectDir); path != "" {
		logger.Debug("using config file", zap.String("path", path))
	}

	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	rec, err := assemble.NewAssembler(projectDir, cfg, logger).Assemble()
	if err != nil {
		return nil, nil, fmt.Errorf("assembling metadata: %w", err)
	}
	return cfg, rec, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	_, rec, err := assembleProject(logger)
	if err != nil {
		return err
	}

	if fingerprint {
		sum, err := rec.Fingerprint()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sum)
		return nil
	}

	m, err := backend.NewManifest(cmd.OutOrStdout(), format)
	if err != nil {
		return err
	}
	return build(cmd, m, rec)
}

func runPKGInfo(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	_, rec, err := assembleProject(logger)
	if err != nil {
		return err
	}

	path := pkgInfoPath
	if path == "" {
		path = filepath.Join(projectDir, rec.Name+".egg-info", "PKG-INFO")
	}

	if err := build(cmd, backend.NewPKGInfo(path, logger), rec); err != nil {
		return err
	}
	printSuccess(cmd.OutOrStdout(), "Generated %s for %s", path, rec.DistName())
	return nil
}

func runSdist(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	cfg, rec, err := assembleProject(logger)
	if err != nil {
		return err
	}

	extra := []string{cfg.Inputs.Readme, cfg.Inputs.Requirements}
	if used := config.Used(projectDir); used != "" {
		extra = append(extra, filepath.Base(used))
	}

	dest := outDir
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(projectDir, dest)
	}

	b := backend.NewSdist(sdist.Options{
		ProjectDir:  projectDir,
		PackageRoot: cfg.Inputs.PackageRoot,
		ExtraFiles:  extra,
		ModTime:     sdist.ModTimeFromEnv(),
		Logger:      logger,
	}, dest)
	if err := build(cmd, b, rec); err != nil {
		return err
	}

	printSuccess(cmd.OutOrStdout(), "Generated %s with %d packages", b.Path, len(rec.Packages))
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	reader := sdist.NewReader()

	if listFiles {
		names, err := reader.List(args[0])
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	}

	rec, err := reader.ReadMetadata(args[0])
	if err != nil {
		return err
	}

	m, err := backend.NewManifest(cmd.OutOrStdout(), format)
	if err != nil {
		return err
	}
	return build(cmd, m, rec)
}

func runBackend(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	cfg, rec, err := assembleProject(logger)
	if err != nil {
		return err
	}

	b, err := backend.NewExec(backend.ExecOptions{
		Command: cfg.Backend.Command,
		Args:    args,
		Dir:     projectDir,
		Stdout:  cmd.OutOrStdout(),
		Stderr:  cmd.ErrOrStderr(),
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	return build(cmd, b, rec)
}

func build(cmd *cobra.Command, b backend.Backend, rec *meta.Record) error {
	if err := b.Build(cmd.Context(), rec); err != nil {
		return fmt.Errorf("%s backend: %w", b.Name(), err)
	}
	return nil
}

func printSuccess(w io.Writer, msg string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(w, msg+"\n", args...)
}

func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}
