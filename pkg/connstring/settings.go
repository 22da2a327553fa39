package connstring

import (
	"sort"
	"strings"
)

// Settings is a parsed connection string. It is an immutable value: the
// mutators return a modified copy and never touch the receiver, so one
// Settings can be shared between goroutines without locking.
type Settings struct {
	values      map[string]string
	passthrough map[string]passthroughEntry
}

// passthroughEntry keeps an unrecognized key as written.
type passthroughEntry struct {
	key   string
	value string
}

// CertificateSource identifies where an application certificate comes from.
type CertificateSource int

const (
	CertificateNone CertificateSource = iota
	CertificateBlob
	CertificatePath
	CertificateThumbprint
)

func (c CertificateSource) String() string {
	switch c {
	case CertificateBlob:
		return "blob"
	case CertificatePath:
		return "path"
	case CertificateThumbprint:
		return "thumbprint"
	}
	return "none"
}

func (s Settings) clone() Settings {
	out := Settings{
		values:      make(map[string]string, len(s.values)+1),
		passthrough: make(map[string]passthroughEntry, len(s.passthrough)),
	}
	for k, v := range s.values {
		out.values[k] = v
	}
	for k, v := range s.passthrough {
		out.passthrough[k] = v
	}
	return out
}

// set assigns a canonical keyword in place. Only used on fresh copies.
func (s *Settings) set(kw Keyword, value string) error {
	if kw.Type == TypeBool && value != "" {
		b, ok := parseBool(value)
		if !ok {
			return &ParseError{
				Kind:   KindInvalidBooleanValue,
				Key:    kw.Name,
				Detail: "expected true/false/yes/no/1/0, got " + quoteForMessage(value),
			}
		}
		// false is the type default and is stored as unset
		if !b {
			value = ""
		} else {
			value = "True"
		}
	}
	if value == "" {
		delete(s.values, kw.Name)
		return nil
	}
	s.values[kw.Name] = value
	return nil
}

func (s *Settings) setPassthrough(key, value string) {
	norm := normalizeKeyword(key)
	if value == "" {
		delete(s.passthrough, norm)
		return
	}
	s.passthrough[norm] = passthroughEntry{key: key, value: value}
}

// With returns a copy with key set to value. key may be any alias; an empty
// value unsets the key. Boolean keywords are validated and normalized.
func (s Settings) With(key, value string) (Settings, error) {
	kw, ok := registry.find(key)
	if !ok || !kw.Supported {
		return Settings{}, unknownKeyError(key, ok, 0)
	}
	out := s.clone()
	if err := out.set(kw, value); err != nil {
		return Settings{}, err
	}
	return out, nil
}

// Without returns a copy with the keyword (or passthrough key) removed.
func (s Settings) Without(key string) Settings {
	out := s.clone()
	if kw, ok := registry.find(key); ok && kw.Supported {
		delete(out.values, kw.Name)
		return out
	}
	delete(out.passthrough, normalizeKeyword(key))
	return out
}

// WithPassthrough returns a copy carrying an unrecognized key verbatim.
func (s Settings) WithPassthrough(key, value string) (Settings, error) {
	if strings.TrimSpace(key) == "" || strings.TrimSpace(key) != key || strings.ContainsAny(key, ";=") {
		return Settings{}, &ParseError{Kind: KindMalformedSegment, Key: key, Detail: "passthrough keys must be non-blank, trimmed and free of ';' and '='"}
	}
	if kw, ok := registry.find(key); ok && kw.Supported {
		return s.With(key, value)
	}
	out := s.clone()
	out.setPassthrough(key, value)
	return out, nil
}

// Get returns the value of a keyword given by any of its spellings.
func (s Settings) Get(key string) (string, bool) {
	kw, ok := registry.find(key)
	if ok && kw.Supported {
		v, set := s.values[kw.Name]
		return v, set
	}
	e, set := s.passthrough[normalizeKeyword(key)]
	return e.value, set
}

func (s Settings) get(name string) string {
	return s.values[name]
}

// IsZero reports whether no key is set.
func (s Settings) IsZero() bool {
	return len(s.values) == 0 && len(s.passthrough) == 0
}

// Keywords returns the canonical names of the set keywords in canonical order.
func (s Settings) Keywords() []string {
	var names []string
	for _, kw := range registry.keywords {
		if _, ok := s.values[kw.Name]; ok {
			names = append(names, kw.Name)
		}
	}
	return names
}

// Passthrough returns a copy of the unrecognized keys kept by lenient parsing.
func (s Settings) Passthrough() map[string]string {
	out := make(map[string]string, len(s.passthrough))
	for _, e := range s.passthrough {
		out[e.key] = e.value
	}
	return out
}

func (s Settings) sortedPassthrough() []passthroughEntry {
	keys := make([]string, 0, len(s.passthrough))
	for k := range s.passthrough {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]passthroughEntry, len(keys))
	for i, k := range keys {
		out[i] = s.passthrough[k]
	}
	return out
}

// Equal reports whether both settings hold the same keys and values.
func (s Settings) Equal(other Settings) bool {
	if len(s.values) != len(other.values) || len(s.passthrough) != len(other.passthrough) {
		return false
	}
	for k, v := range s.values {
		if ov, ok := other.values[k]; !ok || ov != v {
			return false
		}
	}
	for k, e := range s.passthrough {
		if oe, ok := other.passthrough[k]; !ok || oe != e {
			return false
		}
	}
	return true
}

func (s Settings) DataSource() string          { return s.get(DataSource) }
func (s Settings) InitialCatalog() string      { return s.get(InitialCatalog) }
func (s Settings) FederatedSecurity() bool     { return s.get(FederatedSecurity) != "" }
func (s Settings) UserID() string              { return s.get(UserID) }
func (s Settings) Password() string            { return s.get(Password) }
func (s Settings) ApplicationClientID() string { return s.get(ApplicationClientID) }
func (s Settings) ApplicationKey() string      { return s.get(ApplicationKey) }
func (s Settings) AuthorityID() string         { return s.get(AuthorityID) }
func (s Settings) ApplicationToken() string    { return s.get(ApplicationToken) }
func (s Settings) UserToken() string           { return s.get(UserToken) }

func (s Settings) ApplicationCertificateThumbprint() string {
	return s.get(ApplicationCertificateThumbprint)
}

func (s Settings) ApplicationCertificateBlob() string { return s.get(ApplicationCertificateBlob) }
func (s Settings) ApplicationCertificatePath() string { return s.get(ApplicationCertificatePath) }

// SendCertificateChain reports whether the x5c header should be sent with
// certificate authentication.
func (s Settings) SendCertificateChain() bool { return s.get(ApplicationCertificateX5C) != "" }

func (s Settings) ApplicationNameForTracing() string { return s.get(ApplicationNameForTracing) }
func (s Settings) UserNameForTracing() string        { return s.get(UserNameForTracing) }
func (s Settings) ClientVersionForTracing() string   { return s.get(ClientVersionForTracing) }

// Certificate returns the certificate source in effect and its value.
// Blob takes precedence over Path, which takes precedence over Thumbprint.
func (s Settings) Certificate() (CertificateSource, string) {
	switch {
	case s.get(ApplicationCertificateBlob) != "":
		return CertificateBlob, s.get(ApplicationCertificateBlob)
	case s.get(ApplicationCertificatePath) != "":
		return CertificatePath, s.get(ApplicationCertificatePath)
	case s.get(ApplicationCertificateThumbprint) != "":
		return CertificateThumbprint, s.get(ApplicationCertificateThumbprint)
	}
	return CertificateNone, ""
}

// String renders the settings with secrets redacted.
func (s Settings) String() string {
	return Format(s)
}

// GoString keeps %#v from printing secret values.
func (s Settings) GoString() string {
	return "connstring.Settings{" + quoteForMessage(Format(s)) + "}"
}

func unknownKeyError(key string, known bool, segment int) *ParseError {
	e := &ParseError{Kind: KindUnknownKey, Key: key, Segment: segment}
	if known {
		e.Detail = "keyword is not supported by this client"
	}
	return e
}

func quoteForMessage(v string) string {
	return "\"" + strings.ReplaceAll(v, "\"", "\\\"") + "\""
}
