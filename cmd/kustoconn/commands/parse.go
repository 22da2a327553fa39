package commands

import (
	"fmt"
	"sort"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/systmms/kustoconn/internal/config"
	"github.com/systmms/kustoconn/pkg/connstring"
)

type parsedOutput struct {
	Keywords    map[string]string `json:"keywords"`
	Passthrough map[string]string `json:"passthrough,omitempty"`
}

func NewParseCommand(cfg *config.Config) *cobra.Command {
	var (
		src         sourceOptions
		showSecrets bool
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "parse [CONNECTION_STRING]",
		Short: "Show the keywords a connection string sets",
		Long: `Parse a connection string and list every keyword it sets under its
canonical name. Secret values are masked unless --show-secrets is given.

Examples:
  kustoconn parse "Server=https://help.kusto.windows.net;Database=Samples;Fed=yes"
  kustoconn parse --cluster prod --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd.Context(), cmd, cfg, &src, args)
			if err != nil {
				return err
			}

			out := parsedOutput{Keywords: map[string]string{}, Passthrough: s.Passthrough()}
			for _, name := range s.Keywords() {
				out.Keywords[name] = displayValue(s, name, showSecrets)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "KEYWORD\tVALUE")
			for _, name := range s.Keywords() {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", name, out.Keywords[name])
			}
			keys := make([]string, 0, len(out.Passthrough))
			for k := range out.Passthrough {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				_, _ = fmt.Fprintf(w, "%s\t%s\t(unrecognized)\n", k, out.Passthrough[k])
			}
			return w.Flush()
		},
	}

	addSourceFlags(cmd, &src)
	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print secret values")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

// displayValue returns a keyword's value, masked if it is secret
func displayValue(s connstring.Settings, name string, showSecrets bool) string {
	v, _ := s.Get(name)
	if kw, ok := connstring.LookupKeyword(name); ok && kw.Secret && !showSecrets {
		return connstring.RedactedValue
	}
	return v
}
