// phpbundle removes unused PHP functions, classes and methods and bundles
// the remaining declarations into a single file.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/phpbundle/internal/bundler"
	"github.com/phobologic/phpbundle/internal/config"
	"github.com/phobologic/phpbundle/internal/discover"
	"github.com/phobologic/phpbundle/internal/store"
	"github.com/phobologic/phpbundle/internal/toon"
	"github.com/phobologic/phpbundle/internal/usage"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath  string
	output      string
	keep        []string
	keepMagic   bool
	strict      bool
	iterate     bool
	report      bool
	dryRun      bool
	verbose     bool
	quiet       bool
	showVersion bool
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "phpbundle [flags] [source-dir]",
		Short: "Bundle PHP sources into one file, dropping unused declarations",
		Long: `phpbundle parses every PHP file under the source directory, records the
names used at call sites (function calls, method calls, static calls and
"new"), removes functions, classes and methods whose names are never used,
and writes the surviving code as a single file.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.showVersion {
				_, _ = fmt.Fprintf(stdout, "phpbundle %s\n", version)
				return nil
			}
			cfg, err := resolveConfig(cmd, args, opts)
			if err != nil {
				return err
			}
			return runBundle(cmd.Context(), cfg, opts, stdout, newLogger(stderr, opts))
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default "+config.DefaultPath+" if present)")
	flags.StringVarP(&opts.output, "output", "o", "", "bundle destination path or URL")
	flags.StringSliceVar(&opts.keep, "keep", nil, "names to treat as used (repeatable)")
	flags.BoolVar(&opts.keepMagic, "keep-magic", false, "treat PHP magic methods as used")
	flags.BoolVar(&opts.strict, "strict", false, "fail when two files declare the same top-level name")
	flags.BoolVar(&opts.iterate, "iterate", false, "prune repeatedly until nothing more is removed")
	flags.BoolVar(&opts.report, "report", false, "print a TOON report of removed declarations")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "print the bundle to stdout instead of writing it")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "log errors only")
	flags.BoolVarP(&opts.showVersion, "version", "V", false, "show version and exit")

	cmd.AddCommand(newInitCmd(stdout, stderr))
	return cmd
}

// resolveConfig loads the config file and applies flags the user set.
func resolveConfig(cmd *cobra.Command, args []string, opts options) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadOrDefault(config.DefaultPath)
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if len(args) > 0 {
		cfg.Source = args[0]
	}
	if flags.Changed("output") {
		cfg.Output = opts.output
	}
	cfg.Keep = append(cfg.Keep, opts.keep...)
	if flags.Changed("keep-magic") {
		cfg.KeepMagic = opts.keepMagic
	}
	if flags.Changed("strict") {
		cfg.Duplicates = config.DuplicatesKeep
		if opts.strict {
			cfg.Duplicates = config.DuplicatesError
		}
	}
	if flags.Changed("iterate") {
		cfg.Iterate = opts.iterate
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runBundle(ctx context.Context, cfg *config.Config, opts options, stdout io.Writer, log *slog.Logger) error {
	root, err := filepath.Abs(cfg.Source)
	if err != nil {
		return fmt.Errorf("resolving source: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("source path: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", root)
	}

	// Never bundle a previous bundle.
	var skip []string
	if store.IsLocal(cfg.Output) {
		skip = append(skip, store.LocalPath(cfg.Output))
	}

	files, err := discover.Files(root, discover.Options{Exclude: cfg.Exclude, Skip: skip})
	if err != nil {
		return fmt.Errorf("discovering files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no PHP files found in %s", root)
	}
	if err := checkSizes(root, files, cfg.MaxFileSize); err != nil {
		return err
	}
	log.Debug("discovered files", "root", root, "count", len(files))

	keep := cfg.Keep
	if cfg.KeepMagic {
		keep = append(keep, usage.MagicMethods...)
	}

	st := store.New()
	res, err := bundler.Run(ctx, root, files, st, bundler.Options{
		Keep:    keep,
		Strict:  cfg.Duplicates == config.DuplicatesError,
		Iterate: cfg.Iterate,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	if opts.report {
		_, _ = fmt.Fprintln(stdout, toon.Encode(res.Report(cfg.Output)))
	}

	if opts.dryRun {
		_, _ = stdout.Write(res.Output)
		return nil
	}

	written, err := st.Write(ctx, cfg.Output, res.Output)
	if err != nil {
		return err
	}
	if !written {
		log.Info("bundle up to date", "output", cfg.Output)
		return nil
	}
	fingerprint, err := store.Fingerprint(res.Output)
	if err != nil {
		return fmt.Errorf("fingerprinting bundle: %w", err)
	}
	log.Info("bundle complete", "output", cfg.Output, "files", len(files), "removed", len(res.Removed),
		"passes", res.Passes, "fingerprint", fingerprint)
	return nil
}

// checkSizes rejects files larger than maxSize bytes. Zero disables the check.
func checkSizes(root string, files []discover.FileEntry, maxSize int) error {
	if maxSize <= 0 {
		return nil
	}
	for _, f := range files {
		fi, err := os.Stat(filepath.Join(root, f.Path))
		if err != nil {
			continue // the read will report it
		}
		if fi.Size() > int64(maxSize) {
			return fmt.Errorf("%s: %d bytes exceeds max_file_size %d", f.Path, fi.Size(), maxSize)
		}
	}
	return nil
}

func newLogger(w io.Writer, opts options) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case opts.quiet:
		level = slog.LevelError
	case opts.verbose:
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
