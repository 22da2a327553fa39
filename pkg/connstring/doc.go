// Package connstring parses, serializes and validates Azure Data Explorer
// (Kusto) connection strings.
//
// A connection string is a semicolon-delimited list of key=value settings:
//
//	Data Source=https://help.kusto.windows.net;Initial Catalog=Samples;AAD Federated Security=True
//
// # Keywords
//
// Keys are matched case-insensitively, ignoring whitespace, against a fixed
// keyword registry. Every keyword has a canonical name and may have aliases:
// "Server" and "Addr" both mean "Data Source", "Database" means "Initial
// Catalog", "AppKey" means "Application Key". See Keywords for the full table.
//
// Keys that are not supported keywords are rejected in strict mode and kept
// verbatim as passthrough entries otherwise.
//
// # Parsing
//
//	s, err := connstring.Parse(raw, connstring.Strict(true))
//	if err != nil {
//	    var pe *connstring.ParseError
//	    if errors.As(err, &pe) {
//	        fmt.Println(pe.Kind, pe.Segment)
//	    }
//	    return err
//	}
//	fmt.Println(s.DataSource(), s.InitialCatalog())
//
// Values containing ';' or '=' must be quoted with single or double quotes.
// Inside a quoted value the wrapping quote is escaped by doubling it:
//
//	Initial Catalog="my;db"
//	User ID='o''brien'
//
// When the same key appears twice the later value wins. Input length and
// segment count are capped (see ParseOptions) and exceeding either fails with
// ErrInputTooLarge. Parsing is all-or-nothing.
//
// # Serializing
//
// Settings.String and Format produce the canonical form: canonical key names
// in a fixed order, unset keys omitted, values quoted where needed. Secret
// keywords (passwords, application keys, certificates, tokens) are replaced
// with RedactedValue unless IncludeSecrets is passed, so a Settings value is
// always safe to log with %v or %#v.
//
// # Validation
//
// Validate checks for a Data Source, a single credential mode, and the client
// id, user id and tenant each mode needs. Conflicting credential modes are
// reported in CredentialPrecedence order.
//
// # Concurrency
//
// Settings is an immutable value. With, Without and WithPassthrough return
// modified copies. All functions in this package are pure and safe for
// concurrent use.
package connstring
