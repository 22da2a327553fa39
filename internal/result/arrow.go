package result

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	json "github.com/goccy/go-json"
)

var (
	// ErrRowArity is returned when a row's cell count differs from the
	// column count.
	ErrRowArity = errors.New("row does not match column count")
	// ErrUnsupportedColumnType is returned for column types without an
	// Arrow mapping.
	ErrUnsupportedColumnType = errors.New("unsupported column type")
)

var (
	minTimestamp = time.Unix(0, math.MinInt64)
	maxTimestamp = time.Unix(0, math.MaxInt64)
)

// ArrowType returns the Arrow type a Kusto column converts to.
func ArrowType(t ColumnType) (arrow.DataType, error) {
	switch t {
	case TypeString, TypeGUID, TypeDynamic, TypeDecimal:
		return arrow.BinaryTypes.String, nil
	case TypeBool:
		return arrow.FixedWidthTypes.Boolean, nil
	case TypeInt:
		return arrow.PrimitiveTypes.Int32, nil
	case TypeLong:
		return arrow.PrimitiveTypes.Int64, nil
	case TypeReal:
		return arrow.PrimitiveTypes.Float64, nil
	case TypeDateTime:
		return &arrow.TimestampType{Unit: arrow.Nanosecond}, nil
	case TypeTimespan:
		return arrow.FixedWidthTypes.Duration_ns, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedColumnType, string(t))
}

// Schema builds the Arrow schema for a table. Every field is nullable.
func Schema(t DataTable) (*arrow.Schema, error) {
	fields := make([]arrow.Field, len(t.Columns))
	for i, c := range t.Columns {
		dt, err := ArrowType(c.ColumnType)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", c.ColumnName, err)
		}
		fields[i] = arrow.Field{Name: c.ColumnName, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

// ConvertTable converts a DataTable into an Arrow record batch. The caller
// must Release the result.
//
// NaN reals become null. Datetimes and timespans that do not parse, or that
// fall outside the int64 nanosecond range, become null. Any other cell that
// does not match its column type is an error.
func ConvertTable(t DataTable, mem memory.Allocator) (arrow.RecordBatch, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	schema, err := Schema(t)
	if err != nil {
		return nil, err
	}

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	for r, raw := range t.Rows {
		var cells []json.RawMessage
		if err := json.Unmarshal(raw, &cells); err != nil {
			return nil, fmt.Errorf("table %q row %d: not an array: %w", t.TableName, r, err)
		}
		if len(cells) != len(t.Columns) {
			return nil, fmt.Errorf("table %q row %d: %w: %d cells, %d columns",
				t.TableName, r, ErrRowArity, len(cells), len(t.Columns))
		}
		for c, cell := range cells {
			if err := appendCell(builder.Field(c), t.Columns[c].ColumnType, cell); err != nil {
				return nil, fmt.Errorf("table %q row %d column %q: %w", t.TableName, r, t.Columns[c].ColumnName, err)
			}
		}
	}
	return builder.NewRecordBatch(), nil
}

// ConvertPrimaryResults converts every primary result table of ds. On error
// the batches already built are released.
func ConvertPrimaryResults(ds *DataSet, mem memory.Allocator) ([]arrow.RecordBatch, error) {
	var out []arrow.RecordBatch
	for _, t := range ds.PrimaryResults() {
		rec, err := ConvertTable(t, mem)
		if err != nil {
			for _, r := range out {
				r.Release()
			}
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func isNull(cell json.RawMessage) bool {
	return len(bytes.TrimSpace(cell)) == 0 || bytes.Equal(bytes.TrimSpace(cell), []byte("null"))
}

func appendCell(b array.Builder, t ColumnType, cell json.RawMessage) error {
	if isNull(cell) {
		b.AppendNull()
		return nil
	}

	switch t {
	case TypeString, TypeGUID:
		var s string
		if err := json.Unmarshal(cell, &s); err != nil {
			return err
		}
		b.(*array.StringBuilder).Append(s)

	case TypeDynamic:
		b.(*array.StringBuilder).Append(string(bytes.TrimSpace(cell)))

	case TypeDecimal:
		var s string
		if json.Unmarshal(cell, &s) != nil {
			s = string(bytes.TrimSpace(cell))
		}
		b.(*array.StringBuilder).Append(s)

	case TypeBool:
		var v bool
		if err := json.Unmarshal(cell, &v); err != nil {
			return err
		}
		b.(*array.BooleanBuilder).Append(v)

	case TypeInt:
		var v int32
		if err := json.Unmarshal(cell, &v); err != nil {
			return err
		}
		b.(*array.Int32Builder).Append(v)

	case TypeLong:
		var v int64
		if err := json.Unmarshal(cell, &v); err != nil {
			return err
		}
		b.(*array.Int64Builder).Append(v)

	case TypeReal:
		v, null, err := decodeReal(cell)
		if err != nil {
			return err
		}
		if null {
			b.AppendNull()
			return nil
		}
		b.(*array.Float64Builder).Append(v)

	case TypeDateTime:
		var s string
		if err := json.Unmarshal(cell, &s); err != nil {
			return err
		}
		ts, err := ParseDateTime(s)
		if err != nil || ts.Before(minTimestamp) || ts.After(maxTimestamp) {
			b.AppendNull()
			return nil
		}
		b.(*array.TimestampBuilder).Append(arrow.Timestamp(ts.UnixNano()))

	case TypeTimespan:
		var s string
		if err := json.Unmarshal(cell, &s); err != nil {
			return err
		}
		d, err := ParseTimespan(s)
		if err != nil {
			b.AppendNull()
			return nil
		}
		b.(*array.DurationBuilder).Append(arrow.Duration(d))

	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedColumnType, string(t))
	}
	return nil
}

// decodeReal handles the string spellings Kusto uses for non-finite reals.
func decodeReal(cell json.RawMessage) (v float64, null bool, err error) {
	var s string
	if json.Unmarshal(cell, &s) == nil {
		switch s {
		case "NaN":
			return 0, true, nil
		case "Infinity":
			return math.Inf(1), false, nil
		case "-Infinity":
			return math.Inf(-1), false, nil
		}
		return 0, false, fmt.Errorf("invalid real %q", s)
	}
	if err := json.Unmarshal(cell, &v); err != nil {
		return 0, false, err
	}
	return v, false, nil
}
