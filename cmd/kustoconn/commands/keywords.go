package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/kustoconn/internal/config"
	"github.com/systmms/kustoconn/pkg/connstring"
)

func NewKeywordsCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "keywords",
		Short: "List supported connection string keywords",
		Long: `List every keyword the parser understands with its type, whether it
holds a secret, and the aliases accepted for it. Matching is case-insensitive.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "KEYWORD\tTYPE\tSECRET\tALIASES")
			for _, kw := range connstring.Keywords() {
				secret := ""
				if kw.Secret {
					secret = "yes"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", kw.Name, kw.Type, secret, strings.Join(kw.Aliases, ", "))
			}
			return w.Flush()
		},
	}
}
