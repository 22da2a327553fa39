package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/systmms/kustoconn/internal/config"
	"github.com/systmms/kustoconn/pkg/connstring"
)

func NewNormalizeCommand(cfg *config.Config) *cobra.Command {
	var (
		src         sourceOptions
		showSecrets bool
	)

	cmd := &cobra.Command{
		Use:   "normalize [CONNECTION_STRING]",
		Short: "Print a connection string in canonical form",
		Long: `Rewrite a connection string with canonical keyword names in a fixed
order, quoting values where needed. The output parses back to the same
settings. Secrets are masked unless --show-secrets is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd.Context(), cmd, cfg, &src, args)
			if err != nil {
				return err
			}
			var opts []connstring.FormatOption
			if showSecrets {
				opts = append(opts, connstring.IncludeSecrets())
				logger(cfg).Warn("Printing secret values")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), connstring.Format(s, opts...))
			return err
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Include secret values in the output")
	return cmd
}
