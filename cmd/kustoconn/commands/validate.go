package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/kustoconn/internal/auth"
	"github.com/systmms/kustoconn/internal/config"
	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/metrics"
	"github.com/systmms/kustoconn/pkg/connstring"
)

func NewValidateCommand(cfg *config.Config) *cobra.Command {
	var src sourceOptions

	cmd := &cobra.Command{
		Use:   "validate [CONNECTION_STRING]",
		Short: "Check that a connection string is usable",
		Long: `Validate a connection string: a Data Source must be set, at most one
credential may be given, and each credential must carry the client id, user
id and tenant it needs. On success the authentication strategy is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd.Context(), cmd, cfg, &src, args)
			if err != nil {
				return err
			}

			err = connstring.Validate(s)
			metrics.NewRecorder().RecordValidate(err)
			if err != nil {
				return dserrors.ConnectionStringError(err)
			}

			strategy, err := auth.Select(s)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Data Source: %s\n", s.DataSource())
			if db := s.InitialCatalog(); db != "" {
				_, _ = fmt.Fprintf(out, "Database:    %s\n", db)
			}
			_, _ = fmt.Fprintf(out, "Credential:  %s\n", strategy)
			if len(s.Passthrough()) > 0 {
				keys := make([]string, 0, len(s.Passthrough()))
				for k := range s.Passthrough() {
					keys = append(keys, k)
				}
				logger(cfg).Warn("Ignoring unrecognized keywords: %s", strings.Join(sortedStrings(keys), ", "))
			}
			logger(cfg).Info("Connection string is valid")
			return nil
		},
	}

	addSourceFlags(cmd, &src)
	return cmd
}
