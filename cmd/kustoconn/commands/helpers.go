package commands

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/systmms/kustoconn/internal/config"
	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/logging"
	"github.com/systmms/kustoconn/internal/metrics"
	"github.com/systmms/kustoconn/internal/providers"
	"github.com/systmms/kustoconn/pkg/connstring"
)

// sourceOptions selects where a command's connection string comes from
type sourceOptions struct {
	connectionString string
	cluster          string
	strict           bool
}

func addSourceFlags(cmd *cobra.Command, o *sourceOptions) {
	cmd.Flags().StringVarP(&o.connectionString, "connection-string", "c", "", "Connection string (overrides --cluster and $"+config.EnvConnectionString+")")
	cmd.Flags().StringVar(&o.cluster, "cluster", "", "Cluster name from the config file")
	cmd.Flags().BoolVar(&o.strict, "strict", false, "Reject keywords this client does not support")
}

func logger(cfg *config.Config) *logging.Logger {
	if cfg.Logger == nil {
		return logging.Discard()
	}
	return cfg.Logger
}

// parseOptions returns the parse options from the config file, if there is
// one, with --strict applied on top.
func parseOptions(cmd *cobra.Command, cfg *config.Config, o *sourceOptions) ([]connstring.ParseOption, error) {
	var opts []connstring.ParseOption
	if cfg.Definition == nil && cfg.Path != "" {
		if err := cfg.Load(); err != nil {
			var ce dserrors.ConfigError
			if !errors.As(err, &ce) || ce.Field != "path" {
				return nil, err
			}
		}
	}
	if cfg.Definition != nil {
		opts = cfg.Definition.ParseOptions()
	}
	if cmd.Flags().Changed("strict") {
		opts = append(opts, connstring.Strict(o.strict))
	}
	return opts, nil
}

// loadSettings resolves the connection string for a command. Precedence is
// the positional argument or --connection-string, then --cluster, then the
// environment.
func loadSettings(ctx context.Context, cmd *cobra.Command, cfg *config.Config, o *sourceOptions, args []string) (connstring.Settings, error) {
	log := logger(cfg)
	rec := metrics.NewRecorder()

	raw, source := o.connectionString, "--connection-string"
	if len(args) > 0 {
		raw, source = args[0], "argument"
	}

	if raw == "" && o.cluster != "" {
		if cfg.Definition == nil {
			if err := cfg.Load(); err != nil {
				return connstring.Settings{}, err
			}
		}
		s, err := cfg.Resolve(ctx, o.cluster, providers.NewRegistry())
		if err == nil || connstring.KindOf(err) != 0 {
			rec.RecordParse(err)
		}
		if err != nil {
			return connstring.Settings{}, err
		}
		log.Debug("Connection string from cluster %s: %s", o.cluster, s)
		return s, nil
	}

	if raw == "" {
		raw, source = os.Getenv(config.EnvConnectionString), "$"+config.EnvConnectionString
	}
	if strings.TrimSpace(raw) == "" {
		return connstring.Settings{}, dserrors.UserError{
			Message:    "No connection string given",
			Suggestion: "Pass --connection-string, --cluster <name>, or set " + config.EnvConnectionString,
		}
	}

	opts, err := parseOptions(cmd, cfg, o)
	if err != nil {
		return connstring.Settings{}, err
	}
	s, err := connstring.Parse(raw, opts...)
	rec.RecordParse(err)
	if err != nil {
		return connstring.Settings{}, dserrors.ConnectionStringError(err)
	}
	log.Debug("Connection string from %s: %s", source, s)
	return s, nil
}
