package commands

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/systmms/kustoconn/internal/config"
	"github.com/systmms/kustoconn/pkg/connstring"
)

func NewClustersCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "clusters",
		Short: "List clusters defined in the config file",
		Long: `List the named clusters in kustoconn.yaml with their Data Source and
the providers their secrets come from. Secrets are not resolved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Load(); err != nil {
				return err
			}
			def := cfg.Definition
			names := def.ClusterNames()
			if len(names) == 0 {
				logger(cfg).Warn("No clusters defined in %s", cfg.Path)
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tDATA SOURCE\tSECRETS\tDESCRIPTION")
			for _, name := range names {
				cl := def.Clusters[name]
				dataSource := "(invalid)"
				if s, err := connstring.Parse(cl.ConnectionString, def.ParseOptions()...); err == nil {
					dataSource = s.DataSource()
				}

				var secrets []string
				for kw, ref := range cl.Secrets {
					secrets = append(secrets, kw+" <- "+ref.Provider)
				}
				sort.Strings(secrets)
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, dataSource, strings.Join(secrets, "; "), cl.Description)
			}
			return w.Flush()
		},
	}
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
