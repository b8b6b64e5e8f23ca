package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/phpbundle/internal/config"
)

const configHeader = `# phpbundle configuration.
#
# source:        directory scanned recursively for .php files
# output:        bundle destination (path or afs URL)
# keep:          names always treated as used
# keep_magic:    treat __construct, __toString and other magic methods as used
# exclude:       gitignore-style patterns skipped during discovery
# max_file_size: largest accepted source file in bytes (0 disables)
# duplicates:    "keep" passes duplicate top-level names through, "error" fails
# iterate:       prune until nothing more is removed
`

// newInitCmd implements `phpbundle init`, which writes a default config file.
func newInitCmd(stdout, stderr io.Writer) *cobra.Command {
	var dryRun, force bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default " + config.DefaultPath,
		Long: `Write a default phpbundle configuration file. path defaults to ./` + config.DefaultPath + `.
An existing file is left untouched unless --force is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := generateConfig(config.Default())
			if err != nil {
				return err
			}

			if dryRun {
				_, _ = fmt.Fprint(stdout, content)
				return nil
			}

			path := config.DefaultPath
			if len(args) > 0 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("checking %s: %w", path, err)
			}

			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			_, _ = fmt.Fprintf(stderr, "wrote phpbundle config to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the config instead of writing it")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

// generateConfig renders cfg as commented YAML. It is a pure function for easy testing.
func generateConfig(cfg *config.Config) (string, error) {
	data, err := cfg.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return configHeader + "\n" + string(data), nil
}
