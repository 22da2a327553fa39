package connstring

import "strings"

// RedactedValue replaces secret values in redacted output.
const RedactedValue = "****"

type formatOptions struct {
	includeSecrets bool
	force          map[string]bool
}

// FormatOption configures Format.
type FormatOption func(*formatOptions)

// IncludeSecrets emits secret values instead of RedactedValue.
func IncludeSecrets() FormatOption {
	return func(o *formatOptions) { o.includeSecrets = true }
}

// ForceInclude emits the given keywords even when unset, as an empty quoted
// value. Unknown names are ignored.
func ForceInclude(keys ...string) FormatOption {
	return func(o *formatOptions) {
		if o.force == nil {
			o.force = make(map[string]bool, len(keys))
		}
		for _, k := range keys {
			if kw, ok := registry.find(k); ok && kw.Supported {
				o.force[kw.Name] = true
			}
		}
	}
}

// Format serializes settings in canonical form: keywords in registry order
// under their canonical names, then passthrough keys sorted case-insensitively.
// Secrets are redacted unless IncludeSecrets is given.
func Format(s Settings, opts ...FormatOption) string {
	var o formatOptions
	for _, opt := range opts {
		opt(&o)
	}

	var b strings.Builder
	write := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
	}

	for _, kw := range registry.keywords {
		if !kw.Supported {
			continue
		}
		value, set := s.values[kw.Name]
		switch {
		case set && kw.Secret && !o.includeSecrets:
			write(kw.Name, RedactedValue)
		case set:
			write(kw.Name, quoteValue(value))
		case o.force[kw.Name]:
			write(kw.Name, `""`)
		}
	}
	for _, e := range s.sortedPassthrough() {
		write(e.key, quoteValue(e.value))
	}
	return b.String()
}

// quoteValue wraps a value in quotes when it would not survive Parse as-is.
// Double quotes are preferred; single quotes are used when the value holds a
// double quote and no single quote. The wrapping quote is escaped by doubling.
func quoteValue(v string) string {
	if !needsQuoting(v) {
		return v
	}
	quote := `"`
	if strings.Contains(v, `"`) && !strings.Contains(v, `'`) {
		quote = `'`
	}
	return quote + strings.ReplaceAll(v, quote, quote+quote) + quote
}

func needsQuoting(v string) bool {
	if v == "" || strings.ContainsAny(v, ";=") || strings.TrimSpace(v) != v {
		return true
	}
	return v[0] == '"' || v[0] == '\''
}
