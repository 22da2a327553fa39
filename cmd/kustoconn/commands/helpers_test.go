package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/systmms/kustoconn/internal/config"
	"github.com/systmms/kustoconn/internal/logging"
)

// testConfig returns a config pointing at body written to a temp file, or at
// a missing file when body is empty.
func testConfig(t *testing.T, body string) (*config.Config, *bytes.Buffer) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kustoconn.yaml")
	if body != "" {
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	}
	logs := &bytes.Buffer{}
	return &config.Config{Path: path, Logger: logging.NewWithWriter(logs, false, true)}, logs
}

func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}
