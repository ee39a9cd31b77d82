package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/granola-mcp/config"
)

// ConfigCommandDeps holds dependencies for config commands.
type ConfigCommandDeps struct {
	*CommandDeps
	ConfigPath func() (string, error)
	SaveConfig func(*config.CLIConfig) error
}

// DefaultConfigDeps returns default dependencies for production use.
func DefaultConfigDeps(deps *CommandDeps) *ConfigCommandDeps {
	if deps == nil {
		deps = DefaultDeps()
	}
	return &ConfigCommandDeps{
		CommandDeps: deps,
		ConfigPath:  config.ConfigPath,
		SaveConfig:  config.SaveConfig,
	}
}

// NewConfigCommand creates the config command.
func NewConfigCommand(deps *ConfigCommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultConfigDeps(nil)
	}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
		Long: `Configuration is read from $GRANOLA_CONFIG_DIR/config.yaml (default
~/.granola-mcp/config.yaml), then a .env file in the same directory, then
GRANOLA_* environment variables, then command-line flags.`,
	}
	cmd.AddCommand(newConfigShowCommand(deps))
	cmd.AddCommand(newConfigInitCommand(deps))
	return cmd
}

func newConfigShowCommand(deps *ConfigCommandDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := deps.config()
			if err != nil {
				return err
			}
			format, err := deps.format()
			if err != nil {
				return err
			}
			w := c.OutOrStdout()
			switch format {
			case config.OutputFormatJSON:
				return outputJSON(w, cfg)
			default:
				if path, err := deps.ConfigPath(); err == nil {
					fmt.Fprintf(w, "# %s\n", path)
				}
				return outputYAMLStruct(w, cfg)
			}
		},
	}
}

func newConfigInitCommand(deps *ConfigCommandDeps) *cobra.Command {
	var (
		archive string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with default values",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			path, err := deps.ConfigPath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.DefaultConfig()
			if archive != "" {
				cfg.ArchivePath = archive
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := deps.SaveConfig(cfg); err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.OutOrStdout(), "Wrote %s\n", path)
			return err
		},
	}
	cmd.Flags().StringVar(&archive, "archive", "", "Archive file path")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}
