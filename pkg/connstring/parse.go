package connstring

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxLength is the default cap on raw input length in bytes.
	DefaultMaxLength = 64 * 1024
	// DefaultMaxSegments is the default cap on key=value segments.
	DefaultMaxSegments = 128
)

// ParseOptions controls Parse. The zero value is not useful; start from
// DefaultParseOptions or pass ParseOption funcs.
type ParseOptions struct {
	// Strict rejects keys that are not supported keywords. When false they
	// are kept verbatim as passthrough entries.
	Strict bool
	// MaxLength caps the raw input in bytes. Zero or less disables the check.
	MaxLength int
	// MaxSegments caps the number of key=value segments. Zero or less
	// disables the check.
	MaxSegments int
	// BareDataSource treats a leading segment without '=' as the Data Source,
	// so "https://cluster.kusto.windows.net;Fed=true" parses.
	BareDataSource bool
}

// ParseOption mutates ParseOptions.
type ParseOption func(*ParseOptions)

// DefaultParseOptions returns lenient parsing with the default limits.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		MaxLength:   DefaultMaxLength,
		MaxSegments: DefaultMaxSegments,
	}
}

// Strict enables or disables strict key checking.
func Strict(strict bool) ParseOption {
	return func(o *ParseOptions) { o.Strict = strict }
}

// WithLimits overrides the input length and segment caps.
func WithLimits(maxLength, maxSegments int) ParseOption {
	return func(o *ParseOptions) {
		o.MaxLength = maxLength
		o.MaxSegments = maxSegments
	}
}

// AllowBareDataSource enables the leading bare Data Source form.
func AllowBareDataSource() ParseOption {
	return func(o *ParseOptions) { o.BareDataSource = true }
}

// WithOptions replaces all options at once.
func WithOptions(opts ParseOptions) ParseOption {
	return func(o *ParseOptions) { *o = opts }
}

// segment is one key=value pair as scanned from the input.
type segment struct {
	index int
	key   string
	value string
}

// Parse turns a raw connection string into Settings.
//
// Segments are separated by ';' and split on their first '='. Values may be
// wrapped in single or double quotes, with the wrapping quote escaped by
// doubling it. Keys are matched case-insensitively against keywords and their
// aliases; a later occurrence of a key overwrites an earlier one. Parsing is
// all-or-nothing: on error the zero Settings is returned.
func Parse(raw string, opts ...ParseOption) (Settings, error) {
	o := DefaultParseOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if o.MaxLength > 0 && len(raw) > o.MaxLength {
		return Settings{}, &ParseError{
			Kind:   KindInputTooLarge,
			Detail: fmt.Sprintf("%d bytes exceeds the limit of %d", len(raw), o.MaxLength),
		}
	}

	segments, err := scan(raw, o)
	if err != nil {
		return Settings{}, err
	}

	s := Settings{
		values:      make(map[string]string, len(segments)),
		passthrough: make(map[string]passthroughEntry),
	}
	for _, seg := range segments {
		kw, known := registry.find(seg.key)
		if !known || !kw.Supported {
			if o.Strict {
				return Settings{}, unknownKeyError(seg.key, known, seg.index)
			}
			s.setPassthrough(seg.key, seg.value)
			continue
		}
		if err := s.set(kw, seg.value); err != nil {
			if pe, ok := err.(*ParseError); ok {
				pe.Segment = seg.index
				pe.Key = seg.key
			}
			return Settings{}, err
		}
	}
	return s, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level literals.
func MustParse(raw string, opts ...ParseOption) Settings {
	s, err := Parse(raw, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// scan splits raw into segments, honoring quoted values.
func scan(raw string, o ParseOptions) ([]segment, error) {
	var segments []segment
	pos, index := 0, 0

	for pos <= len(raw) {
		index++
		start := pos
		for pos < len(raw) && raw[pos] != ';' && raw[pos] != '=' {
			pos++
		}

		if pos == len(raw) || raw[pos] == ';' {
			text := strings.TrimSpace(raw[start:pos])
			pos++
			if text == "" {
				continue
			}
			if o.BareDataSource && len(segments) == 0 {
				segments = append(segments, segment{index: index, key: DataSource, value: text})
				continue
			}
			return nil, &ParseError{Kind: KindMalformedSegment, Segment: index, Detail: "missing '='"}
		}

		key := strings.TrimSpace(raw[start:pos])
		if key == "" {
			return nil, &ParseError{Kind: KindMalformedSegment, Segment: index, Detail: "empty key"}
		}
		if o.MaxSegments > 0 && len(segments) >= o.MaxSegments {
			return nil, &ParseError{
				Kind:   KindInputTooLarge,
				Detail: fmt.Sprintf("more than %d segments", o.MaxSegments),
			}
		}
		pos++ // '='

		pos = skipSpace(raw, pos)

		var value string
		if pos < len(raw) && (raw[pos] == '"' || raw[pos] == '\'') {
			quote := raw[pos]
			pos++
			var b strings.Builder
			closed := false
			for pos < len(raw) {
				c := raw[pos]
				if c == quote {
					if pos+1 < len(raw) && raw[pos+1] == quote {
						b.WriteByte(quote)
						pos += 2
						continue
					}
					pos++
					closed = true
					break
				}
				b.WriteByte(c)
				pos++
			}
			if !closed {
				return nil, &ParseError{Kind: KindUnterminatedQuote, Segment: index, Key: key}
			}
			pos = skipSpace(raw, pos)
			if pos < len(raw) && raw[pos] != ';' {
				return nil, &ParseError{Kind: KindMalformedSegment, Segment: index, Key: key, Detail: "unexpected text after closing quote"}
			}
			value = b.String()
		} else {
			vstart := pos
			for pos < len(raw) && raw[pos] != ';' {
				pos++
			}
			value = strings.TrimSpace(raw[vstart:pos])
		}

		segments = append(segments, segment{index: index, key: key, value: value})
		pos++ // ';' or past the end
	}
	return segments, nil
}

// skipSpace returns the offset of the first non-space rune at or after pos.
// It agrees with strings.TrimSpace on what counts as space.
func skipSpace(raw string, pos int) int {
	for pos < len(raw) {
		r, size := utf8.DecodeRuneInString(raw[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}
