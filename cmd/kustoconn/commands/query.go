package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/spf13/cobra"

	"github.com/systmms/kustoconn/internal/config"
	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/kusto"
	"github.com/systmms/kustoconn/internal/metrics"
	"github.com/systmms/kustoconn/internal/result"
)

// queryOptions holds the query command flags
type queryOptions struct {
	src      sourceOptions
	database string
	format   string
	output   string
	timeout  time.Duration

	// clientOptions is set by tests to reach an httptest server.
	clientOptions []kusto.Option
}

func NewQueryCommand(cfg *config.Config, version string) *cobra.Command {
	return newQueryCommand(cfg, version, &queryOptions{})
}

func newQueryCommand(cfg *config.Config, version string, o *queryOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query KQL",
		Short: "Run a query and print the primary results",
		Long: `Run a KQL query against the cluster in the connection string and print
every primary result table. Results go through Arrow, so --format arrow
writes an Arrow IPC stream that other tools can read.

Examples:
  kustoconn query -c "Data Source=https://help.kusto.windows.net;Fed=true" \
    --database Samples "StormEvents | take 5"
  kustoconn query --cluster prod --format json "print now()"
  kustoconn query --cluster prod --format arrow --output out.arrows "T | take 1000"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch o.format {
			case "table", "json", "arrow":
			default:
				return dserrors.UserError{
					Message:    fmt.Sprintf("Unknown output format %q", o.format),
					Suggestion: "Use --format table, json or arrow",
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			if o.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, o.timeout)
				defer cancel()
			}

			s, err := loadSettings(ctx, cmd, cfg, &o.src, nil)
			if err != nil {
				return err
			}

			opts := append([]kusto.Option{
				kusto.WithLogger(logger(cfg)),
				kusto.WithMetrics(metrics.NewRecorder()),
				kusto.WithClientVersion(version),
			}, o.clientOptions...)
			client, err := kusto.New(s, opts...)
			if err != nil {
				return dserrors.ConnectionStringError(err)
			}

			ds, err := client.Query(ctx, o.database, strings.Join(args, " "))
			if err != nil {
				return dserrors.QueryError(client.Endpoint(), err)
			}

			recs, err := result.ConvertPrimaryResults(ds, memory.DefaultAllocator)
			if err != nil {
				return err
			}
			defer func() {
				for _, r := range recs {
					r.Release()
				}
			}()

			var out io.Writer = cmd.OutOrStdout()
			if o.output != "" {
				f, err := os.Create(o.output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			for i, rec := range recs {
				switch o.format {
				case "json":
					err = result.WriteJSON(out, rec)
				case "arrow":
					err = result.WriteIPC(out, rec, memory.DefaultAllocator)
				default:
					if i > 0 {
						_, _ = fmt.Fprintln(out)
					}
					err = result.WriteTable(out, rec)
				}
				if err != nil {
					return err
				}
			}
			logger(cfg).Debug("Printed %d result tables", len(recs))
			return nil
		},
	}

	addSourceFlags(cmd, &o.src)
	cmd.Flags().StringVarP(&o.database, "database", "d", "", "Database (defaults to Initial Catalog)")
	cmd.Flags().StringVarP(&o.format, "format", "f", "table", "Output format: table, json or arrow")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Write results to this file instead of stdout")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Minute, "Query timeout")
	return cmd
}
