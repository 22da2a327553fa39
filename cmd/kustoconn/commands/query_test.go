package commands

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/kustoconn/internal/errors"
	"github.com/systmms/kustoconn/internal/kusto"
	"github.com/systmms/kustoconn/pkg/connstring"
)

const queryResponse = `[
 {"FrameType":"DataSetHeader","IsProgressive":false,"Version":"v2.0"},
 {"FrameType":"DataTable","TableId":1,"TableKind":"PrimaryResult","TableName":"PrimaryResult",
  "Columns":[{"ColumnName":"State","ColumnType":"string"},{"ColumnName":"n","ColumnType":"long"}],
  "Rows":[["TEXAS",12],["KANSAS",7]]},
 {"FrameType":"DataSetCompletion","HasErrors":false,"Cancelled":false}
]`

func queryServer(t *testing.T, status int, payload string) (*httptest.Server, *string) {
	t.Helper()
	var body string
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv, &body
}

func runQuery(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	cfg, _ := testConfig(t, "")
	o := &queryOptions{clientOptions: []kusto.Option{
		kusto.WithClientOptions(policy.ClientOptions{
			Transport: srv.Client(),
			Retry:     policy.RetryOptions{MaxRetries: -1},
		}),
	}}
	return execute(t, newQueryCommand(cfg, "test", o), args...)
}

func TestQueryCommand_Table(t *testing.T) {
	t.Parallel()

	srv, body := queryServer(t, http.StatusOK, queryResponse)
	out, err := runQuery(t, srv, "-c", "Data Source="+srv.URL+";Database=Samples", "StormEvents", "|", "take", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Regexp(t, `^State\s+n$`, lines[0])
	assert.Regexp(t, `^TEXAS\s+12$`, lines[1])
	assert.Regexp(t, `^KANSAS\s+7$`, lines[2])
	assert.Contains(t, *body, `"csl":"StormEvents | take 2"`)
	assert.Contains(t, *body, `"db":"Samples"`)
}

func TestQueryCommand_JSON(t *testing.T) {
	t.Parallel()

	srv, body := queryServer(t, http.StatusOK, queryResponse)
	out, err := runQuery(t, srv, "-c", "Data Source="+srv.URL, "-d", "Other", "-f", "json", "T")
	require.NoError(t, err)

	var got struct {
		Columns []struct{ Name, Type string }
		Rows    [][]interface{}
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Columns, 2)
	assert.Equal(t, "State", got.Columns[0].Name)
	assert.Equal(t, "int64", got.Columns[1].Type)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, "TEXAS", got.Rows[0][0])
	assert.EqualValues(t, 12, got.Rows[0][1])
	assert.Contains(t, *body, `"db":"Other"`)
}

func TestQueryCommand_ArrowFile(t *testing.T) {
	t.Parallel()

	srv, _ := queryServer(t, http.StatusOK, queryResponse)
	path := filepath.Join(t.TempDir(), "out.arrows")
	out, err := runQuery(t, srv, "-c", "Data Source="+srv.URL+";Database=Samples", "-f", "arrow", "-o", path, "T")
	require.NoError(t, err)
	assert.Empty(t, out)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	rdr, err := ipc.NewReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer rdr.Release()

	require.True(t, rdr.Next())
	rec := rdr.RecordBatch()
	assert.EqualValues(t, 2, rec.NumRows())
	assert.Equal(t, "State", rec.Schema().Field(0).Name)
	assert.Equal(t, "KANSAS", rec.Column(0).ValueStr(1))
}

func TestQueryCommand_Errors(t *testing.T) {
	t.Parallel()

	t.Run("unknown format", func(t *testing.T) {
		srv, _ := queryServer(t, http.StatusOK, queryResponse)
		_, err := runQuery(t, srv, "-c", "Data Source="+srv.URL, "-f", "csv", "T")
		var ue dserrors.UserError
		require.ErrorAs(t, err, &ue)
		assert.Contains(t, ue.Message, `"csv"`)
	})

	t.Run("no database", func(t *testing.T) {
		srv, _ := queryServer(t, http.StatusOK, queryResponse)
		_, err := runQuery(t, srv, "-c", "Data Source="+srv.URL, "T")
		assert.ErrorIs(t, err, kusto.ErrNoDatabase)
	})

	t.Run("forbidden", func(t *testing.T) {
		srv, _ := queryServer(t, http.StatusForbidden, `{"error":{"code":"Forbidden","message":"denied"}}`)
		_, err := runQuery(t, srv, "-c", "Data Source="+srv.URL+";Database=Samples", "T")
		var ue dserrors.UserError
		require.ErrorAs(t, err, &ue)
		assert.Contains(t, ue.Message, srv.URL)
		assert.Contains(t, ue.Details, "403")
		assert.NotEmpty(t, ue.Suggestion)
	})

	t.Run("invalid connection string", func(t *testing.T) {
		srv, _ := queryServer(t, http.StatusOK, queryResponse)
		_, err := runQuery(t, srv, "-c", "Database=Samples", "T")
		assert.ErrorIs(t, err, connstring.ErrMissingDataSource)
	})
}
