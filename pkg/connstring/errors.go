package connstring

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies parse and validation failures.
type ErrorKind int

const (
	KindMalformedSegment ErrorKind = iota + 1
	KindUnterminatedQuote
	KindUnknownKey
	KindInvalidBooleanValue
	KindInputTooLarge
	KindMissingDataSource
	KindConflictingCredentials
	KindMissingTenant
	KindMissingClientID
	KindMissingUserID
)

// Sentinel errors, one per kind. Use errors.Is to test a returned error.
var (
	ErrMalformedSegment       = errors.New("malformed segment")
	ErrUnterminatedQuote      = errors.New("unterminated quote")
	ErrUnknownKey             = errors.New("unknown key")
	ErrInvalidBooleanValue    = errors.New("invalid boolean value")
	ErrInputTooLarge          = errors.New("input too large")
	ErrMissingDataSource      = errors.New("missing data source")
	ErrConflictingCredentials = errors.New("conflicting credentials")
	ErrMissingTenant          = errors.New("missing tenant")
	ErrMissingClientID        = errors.New("missing application client id")
	ErrMissingUserID          = errors.New("missing user id")
)

var kindNames = map[ErrorKind]string{
	KindMalformedSegment:       "MalformedSegment",
	KindUnterminatedQuote:      "UnterminatedQuote",
	KindUnknownKey:             "UnknownKey",
	KindInvalidBooleanValue:    "InvalidBooleanValue",
	KindInputTooLarge:          "InputTooLarge",
	KindMissingDataSource:      "MissingDataSource",
	KindConflictingCredentials: "ConflictingCredentials",
	KindMissingTenant:          "MissingTenant",
	KindMissingClientID:        "MissingClientId",
	KindMissingUserID:          "MissingUserId",
}

var kindSentinels = map[ErrorKind]error{
	KindMalformedSegment:       ErrMalformedSegment,
	KindUnterminatedQuote:      ErrUnterminatedQuote,
	KindUnknownKey:             ErrUnknownKey,
	KindInvalidBooleanValue:    ErrInvalidBooleanValue,
	KindInputTooLarge:          ErrInputTooLarge,
	KindMissingDataSource:      ErrMissingDataSource,
	KindConflictingCredentials: ErrConflictingCredentials,
	KindMissingTenant:          ErrMissingTenant,
	KindMissingClientID:        ErrMissingClientID,
	KindMissingUserID:          ErrMissingUserID,
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// KindOf reports the kind of a parse or validation error, or 0.
func KindOf(err error) ErrorKind {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return 0
}

// ParseError is returned by Parse and the Settings mutators.
// It never contains secret values.
type ParseError struct {
	Kind ErrorKind
	// Segment is the 1-based position of the offending segment, 0 if the
	// error is not tied to one segment.
	Segment int
	// Key is the key as written by the caller.
	Key    string
	Detail string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("connstring: ")
	b.WriteString(kindSentinels[e.Kind].Error())
	if e.Segment > 0 {
		fmt.Fprintf(&b, " in segment %d", e.Segment)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, " (key %q)", e.Key)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ParseError) Unwrap() error {
	return kindSentinels[e.Kind]
}

// ValidationError is returned by Validate.
type ValidationError struct {
	Kind ErrorKind
	// Modes lists the credential modes involved, in precedence order.
	Modes  []CredentialMode
	Detail string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("connstring: ")
	b.WriteString(kindSentinels[e.Kind].Error())
	if len(e.Modes) > 0 {
		names := make([]string, len(e.Modes))
		for i, m := range e.Modes {
			names[i] = m.String()
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(names, ", "))
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return kindSentinels[e.Kind]
}
