package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otherjamesbrown/granola-mcp/config"
	"github.com/otherjamesbrown/granola-mcp/pkg/buildinfo"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(deps *CommandDeps) *cobra.Command {
	if deps == nil {
		deps = DefaultDeps()
	}
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			info := buildinfo.Get("granola")
			format, err := deps.format()
			if err != nil {
				return err
			}
			if format == config.OutputFormatText {
				_, err := fmt.Fprintf(c.OutOrStdout(), "granola %s (%s, %s, %s)\n",
					info.Version, info.Commit, info.BuildTime, info.GoVersion)
				return err
			}
			return render(c.OutOrStdout(), format, info)
		},
	}
}
