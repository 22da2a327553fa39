package result

import (
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	json "github.com/goccy/go-json"
)

// cellString renders one cell the way Kusto tools print it. Nulls are empty.
func cellString(col arrow.Array, i int) string {
	if col.IsNull(i) {
		return ""
	}
	switch a := col.(type) {
	case *array.Timestamp:
		return a.Value(i).ToTime(arrow.Nanosecond).UTC().Format(time.RFC3339Nano)
	case *array.Duration:
		return FormatTimespan(time.Duration(a.Value(i)))
	}
	return col.ValueStr(i)
}

// cellValue returns a JSON-encodable value for one cell.
func cellValue(col arrow.Array, i int) interface{} {
	if col.IsNull(i) {
		return nil
	}
	switch a := col.(type) {
	case *array.Timestamp, *array.Duration:
		return cellString(col, i)
	case *array.Float64:
		v := a.Value(i)
		switch {
		case math.IsInf(v, 1):
			return "Infinity"
		case math.IsInf(v, -1):
			return "-Infinity"
		}
		return v
	}
	return col.GetOneForMarshal(i)
}

// WriteTable prints rec as an aligned text table with a header row.
func WriteTable(w io.Writer, rec arrow.RecordBatch) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	names := make([]string, rec.NumCols())
	for i, f := range rec.Schema().Fields() {
		names[i] = f.Name
	}
	if _, err := fmt.Fprintln(tw, strings.Join(names, "\t")); err != nil {
		return err
	}

	cells := make([]string, rec.NumCols())
	for row := 0; row < int(rec.NumRows()); row++ {
		for c := range cells {
			cells[c] = cellString(rec.Column(c), row)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

type jsonTable struct {
	Columns []jsonColumn    `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

type jsonColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// WriteJSON encodes rec as {"columns": [...], "rows": [[...], ...]}, one
// object per line.
func WriteJSON(w io.Writer, rec arrow.RecordBatch) error {
	out := jsonTable{Rows: make([][]interface{}, 0, rec.NumRows())}
	for _, f := range rec.Schema().Fields() {
		out.Columns = append(out.Columns, jsonColumn{Name: f.Name, Type: f.Type.String()})
	}
	for row := 0; row < int(rec.NumRows()); row++ {
		vals := make([]interface{}, rec.NumCols())
		for c := range vals {
			vals[c] = cellValue(rec.Column(c), row)
		}
		out.Rows = append(out.Rows, vals)
	}
	return json.NewEncoder(w).Encode(out)
}

// WriteIPC writes rec as an Arrow IPC stream.
func WriteIPC(w io.Writer, rec arrow.RecordBatch, mem memory.Allocator) error {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	writer := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err := writer.Write(rec); err != nil {
		writer.Close()
		return fmt.Errorf("failed to write IPC record: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close IPC writer: %w", err)
	}
	return nil
}
