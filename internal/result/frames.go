package result

import (
	"errors"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
)

// Frame types of the v2 query protocol.
const (
	FrameDataSetHeader     = "DataSetHeader"
	FrameDataTable         = "DataTable"
	FrameDataSetCompletion = "DataSetCompletion"
	FrameTableHeader       = "TableHeader"
	FrameTableFragment     = "TableFragment"
	FrameTableProgress     = "TableProgress"
	FrameTableCompletion   = "TableCompletion"
)

// ErrQueryFailed is wrapped by the error DecodeFrames returns when the
// service reports errors in the DataSetCompletion frame.
var ErrQueryFailed = errors.New("query failed")

// Column describes one column of a DataTable.
type Column struct {
	ColumnName string     `json:"ColumnName"`
	ColumnType ColumnType `json:"ColumnType"`
}

// DataTable is a complete, non-progressive table frame. Rows hold the raw
// JSON array of each row so dynamic and decimal cells keep their text.
type DataTable struct {
	TableID   int               `json:"TableId"`
	TableName string            `json:"TableName"`
	TableKind TableKind         `json:"TableKind"`
	Columns   []Column          `json:"Columns"`
	Rows      []json.RawMessage `json:"Rows"`
}

// OneAPIError is a service error as reported in v2 frames.
type OneAPIError struct {
	Error struct {
		Code        string `json:"code"`
		Message     string `json:"message"`
		Description string `json:"@message"`
		Permanent   bool   `json:"@permanent"`
	} `json:"error"`
}

// Frame is one element of the v2 response array. Only the fields of its
// FrameType are populated.
type Frame struct {
	FrameType string `json:"FrameType"`

	IsProgressive bool   `json:"IsProgressive"`
	Version       string `json:"Version"`

	DataTable

	HasErrors    bool          `json:"HasErrors"`
	Cancelled    bool          `json:"Cancelled"`
	OneAPIErrors []OneAPIError `json:"OneApiErrors"`
}

// DataSet is a decoded v2 response.
type DataSet struct {
	Version string
	Tables  []DataTable
}

// PrimaryResults returns the tables holding query output.
func (d *DataSet) PrimaryResults() []DataTable {
	var out []DataTable
	for _, t := range d.Tables {
		if t.TableKind == KindPrimaryResult {
			out = append(out, t)
		}
	}
	return out
}

// DecodeFrames reads a v2 query response. Progressive frames are rejected;
// requests are sent with results_progressive_enabled=false.
func DecodeFrames(r io.Reader) (*DataSet, error) {
	var frames []Frame
	if err := json.NewDecoder(r).Decode(&frames); err != nil {
		return nil, fmt.Errorf("decoding v2 frames: %w", err)
	}

	ds := &DataSet{}
	completed := false
	for i, f := range frames {
		switch f.FrameType {
		case FrameDataSetHeader:
			if f.IsProgressive {
				return nil, errors.New("decoding v2 frames: progressive results are not supported")
			}
			ds.Version = f.Version
		case FrameDataTable:
			ds.Tables = append(ds.Tables, f.DataTable)
		case FrameDataSetCompletion:
			completed = true
			if f.HasErrors || f.Cancelled {
				return nil, completionError(f)
			}
		case FrameTableHeader, FrameTableFragment, FrameTableProgress, FrameTableCompletion:
			return nil, fmt.Errorf("decoding v2 frames: unexpected progressive frame %s at %d", f.FrameType, i)
		default:
			return nil, fmt.Errorf("decoding v2 frames: unknown frame type %q at %d", f.FrameType, i)
		}
	}
	if !completed {
		return nil, errors.New("decoding v2 frames: response ended without DataSetCompletion")
	}
	return ds, nil
}

func completionError(f Frame) error {
	var msgs []string
	for _, e := range f.OneAPIErrors {
		msg := e.Error.Description
		if msg == "" {
			msg = e.Error.Message
		}
		if e.Error.Code != "" {
			msg = e.Error.Code + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	if f.Cancelled {
		msgs = append(msgs, "query was cancelled")
	}
	if len(msgs) == 0 {
		return ErrQueryFailed
	}
	return fmt.Errorf("%w: %s", ErrQueryFailed, strings.Join(msgs, "; "))
}
