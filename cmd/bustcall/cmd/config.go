package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/psantana5/bustcall/internal/config"
	"github.com/psantana5/bustcall/internal/escalation"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration helpers",
		Long:  `Commands for writing an example configuration and inspecting the effective one.`,
	}

	var (
		writePath string
		force     bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Print an example configuration",
		Long: `Print a commented example configuration with every key at its default.
With --write the example is saved to a file instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if writePath == "" {
				fmt.Fprint(a.stdout, config.ExampleConfig)
				return nil
			}
			return writeExampleConfig(writePath, force, a)
		},
	}
	initCmd.Flags().StringVarP(&writePath, "write", "w", "", "write the example to this path")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(cfg.Redacted())
			if err != nil {
				return ioFailure(fmt.Errorf("failed to marshal config: %w", err))
			}
			if used := a.v.ConfigFileUsed(); used != "" {
				fmt.Fprintf(a.stdout, "# loaded from %s\n", used)
			}
			fmt.Fprint(a.stdout, string(out))
			return nil
		},
	}

	configCmd.AddCommand(initCmd, showCmd)
	return configCmd
}

func writeExampleConfig(path string, force bool, a *app) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return &InvocationError{
				ExitCode: escalation.ExitInvalidInput,
				Err:      fmt.Errorf("%s already exists (use --force to overwrite)", path),
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return ioFailure(err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ioFailure(fmt.Errorf("failed to create config directory: %w", err))
	}
	if err := os.WriteFile(path, []byte(config.ExampleConfig), 0o644); err != nil {
		return ioFailure(fmt.Errorf("failed to write config: %w", err))
	}
	fmt.Fprintf(a.stdout, "Wrote example configuration to %s\n", path)
	return nil
}
