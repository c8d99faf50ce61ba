package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/scate/internal/config"
)

func newConfigCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(newConfigShowCommand(g), newConfigPathCommand(g))
	return cmd
}

func newConfigShowCommand(g *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration after merging the defaults, the file and
the environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			defer e.close()

			var data []byte
			switch format {
			case "yaml":
				data, err = config.Marshal(config.FormatYAML, e.store.Map())
			case "toml":
				data, err = config.Marshal(config.FormatTOML, e.store.Map())
			default:
				return fmt.Errorf("unknown format %q (want yaml or toml)", format)
			}
			if err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "Output format: yaml or toml")
	return cmd
}

func newConfigPathCommand(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), g.resolveConfigPath())
			return err
		},
	}
}
