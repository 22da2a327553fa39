package result

import "strings"

// ColumnType is a normalized Kusto scalar type name.
type ColumnType string

const (
	TypeBool     ColumnType = "bool"
	TypeDateTime ColumnType = "datetime"
	TypeDynamic  ColumnType = "dynamic"
	TypeGUID     ColumnType = "guid"
	TypeInt      ColumnType = "int"
	TypeLong     ColumnType = "long"
	TypeReal     ColumnType = "real"
	TypeString   ColumnType = "string"
	TypeTimespan ColumnType = "timespan"
	TypeDecimal  ColumnType = "decimal"
)

var columnTypeAliases = map[string]ColumnType{
	"bool":     TypeBool,
	"boolean":  TypeBool,
	"datetime": TypeDateTime,
	"date":     TypeDateTime,
	"dynamic":  TypeDynamic,
	"guid":     TypeGUID,
	"uuid":     TypeGUID,
	"uniqueid": TypeGUID,
	"int":      TypeInt,
	"int32":    TypeInt,
	"long":     TypeLong,
	"int64":    TypeLong,
	"real":     TypeReal,
	"double":   TypeReal,
	"string":   TypeString,
	"timespan": TypeTimespan,
	"time":     TypeTimespan,
	"decimal":  TypeDecimal,
}

// NormalizeColumnType maps a type name or alias to its canonical form. The
// second result is false for names Kusto does not define.
func NormalizeColumnType(name string) (ColumnType, bool) {
	t, ok := columnTypeAliases[strings.ToLower(strings.TrimSpace(name))]
	return t, ok
}

// UnmarshalText normalizes aliases while decoding. Unknown names are kept
// as written and rejected at conversion time.
func (t *ColumnType) UnmarshalText(text []byte) error {
	if norm, ok := NormalizeColumnType(string(text)); ok {
		*t = norm
		return nil
	}
	*t = ColumnType(text)
	return nil
}

// TableKind classifies the tables of a v2 response.
type TableKind string

const (
	KindPrimaryResult              TableKind = "PrimaryResult"
	KindQueryCompletionInformation TableKind = "QueryCompletionInformation"
	KindQueryTraceLog              TableKind = "QueryTraceLog"
	KindQueryPerfLog               TableKind = "QueryPerfLog"
	KindTableOfContents            TableKind = "TableOfContents"
	KindQueryProperties            TableKind = "QueryProperties"
	KindQueryPlan                  TableKind = "QueryPlan"
	KindUnknown                    TableKind = "Unknown"
)
