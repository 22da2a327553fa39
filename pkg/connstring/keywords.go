package connstring

import (
	"fmt"
	"strings"
)

// Canonical keyword names recognized by the parser.
const (
	DataSource                       = "Data Source"
	InitialCatalog                   = "Initial Catalog"
	FederatedSecurity                = "AAD Federated Security"
	UserID                           = "User ID"
	Password                         = "Password"
	ApplicationClientID              = "Application Client Id"
	ApplicationKey                   = "Application Key"
	ApplicationCertificateThumbprint = "Application Certificate Thumbprint"
	ApplicationCertificateBlob       = "Application Certificate Blob"
	ApplicationCertificatePath       = "Application Certificate Path"
	ApplicationCertificateX5C        = "Application Certificate SendX5c"
	AuthorityID                      = "Authority Id"
	ApplicationToken                 = "Application Token"
	UserToken                        = "User Token"
	ApplicationNameForTracing        = "Application Name for Tracing"
	UserNameForTracing               = "User Name for Tracing"
	ClientVersionForTracing          = "Client Version for Tracing"
)

// ValueType is the type a keyword value must conform to.
type ValueType int

const (
	// TypeString accepts any value.
	TypeString ValueType = iota
	// TypeBool accepts true/false/yes/no/1/0 in any case.
	TypeBool
)

// String returns the type name
func (t ValueType) String() string {
	if t == TypeBool {
		return "bool"
	}
	return "string"
}

// Keyword describes one recognized connection string setting.
type Keyword struct {
	Name    string
	Aliases []string
	Type    ValueType
	// Secret keywords are replaced by RedactedValue unless secrets are requested.
	Secret bool
	// Supported is false for keywords that are known to the service grammar
	// but not consumed by this client.
	Supported bool
}

var registry = newKeywordRegistry([]Keyword{
	{Name: DataSource, Aliases: []string{"Addr", "Address", "Network Address", "Server"}, Supported: true},
	{Name: InitialCatalog, Aliases: []string{"Database"}, Supported: true},
	{Name: FederatedSecurity, Aliases: []string{"Federated Security", "Federated", "Fed", "AADFed"}, Type: TypeBool, Supported: true},
	{Name: UserID, Aliases: []string{"AAD User ID", "UID", "User"}, Supported: true},
	{Name: Password, Aliases: []string{"Pwd"}, Secret: true, Supported: true},
	{Name: ApplicationClientID, Aliases: []string{"AppClientId"}, Supported: true},
	{Name: ApplicationKey, Aliases: []string{"AppKey"}, Secret: true, Supported: true},
	{Name: ApplicationCertificateThumbprint, Aliases: []string{"AppCert"}, Secret: true, Supported: true},
	{Name: ApplicationCertificateBlob, Secret: true, Supported: true},
	{Name: ApplicationCertificatePath, Secret: true, Supported: true},
	{Name: ApplicationCertificateX5C, Aliases: []string{"Application Certificate Send Public Certificate", "SendX5c"}, Type: TypeBool, Supported: true},
	{Name: AuthorityID, Aliases: []string{"TenantId", "Tenant", "Authority", "tid"}, Supported: true},
	{Name: ApplicationToken, Aliases: []string{"AppToken"}, Secret: true, Supported: true},
	{Name: UserToken, Aliases: []string{"UsrToken"}, Secret: true, Supported: true},
	{Name: ApplicationNameForTracing, Aliases: []string{"TraceAppName"}, Supported: true},
	{Name: UserNameForTracing, Aliases: []string{"TraceUserName"}, Supported: true},
	{Name: ClientVersionForTracing, Supported: true},

	// Known to the service grammar, not consumed here.
	{Name: "dSTS Federated Security", Aliases: []string{"dSTS Federated", "DstsFed"}, Type: TypeBool},
	{Name: "Streaming", Type: TypeBool},
	{Name: "Uncompressed", Type: TypeBool},
	{Name: "EnforceMfa", Aliases: []string{"MFA"}, Type: TypeBool},
	{Name: "Accept", Type: TypeBool},
	{Name: "Query Consistency"},
	{Name: "Data Source Uri"},
	{Name: "Azure Region", Aliases: []string{"Region"}},
	{Name: "Namespace", Aliases: []string{"NS"}},
})

type keywordRegistry struct {
	keywords []Keyword
	lookup   map[string]int
}

func newKeywordRegistry(words []Keyword) *keywordRegistry {
	r := &keywordRegistry{
		keywords: words,
		lookup:   make(map[string]int, len(words)*3),
	}
	for i, word := range words {
		for _, spelling := range append([]string{word.Name}, word.Aliases...) {
			key := normalizeKeyword(spelling)
			if prev, ok := r.lookup[key]; ok && prev != i {
				panic(fmt.Sprintf("connstring: keyword spelling %q registered for both %q and %q", spelling, words[prev].Name, word.Name))
			}
			r.lookup[key] = i
		}
	}
	return r
}

func (r *keywordRegistry) find(key string) (Keyword, bool) {
	i, ok := r.lookup[normalizeKeyword(key)]
	if !ok {
		return Keyword{}, false
	}
	return r.keywords[i], true
}

// normalizeKeyword lower-cases a keyword and drops all whitespace, so
// "Data Source", "datasource" and "DATA  SOURCE" compare equal.
func normalizeKeyword(keyword string) string {
	return strings.Join(strings.Fields(strings.ToLower(keyword)), "")
}

// LookupKeyword resolves a keyword or any of its aliases, case-insensitively.
func LookupKeyword(key string) (Keyword, bool) {
	kw, ok := registry.find(key)
	if !ok {
		return Keyword{}, false
	}
	kw.Aliases = append([]string(nil), kw.Aliases...)
	return kw, true
}

// Keywords returns the supported keywords in canonical serialization order.
func Keywords() []Keyword {
	out := make([]Keyword, 0, len(registry.keywords))
	for _, kw := range registry.keywords {
		if !kw.Supported {
			continue
		}
		kw.Aliases = append([]string(nil), kw.Aliases...)
		out = append(out, kw)
	}
	return out
}

// parseBool accepts the boolean spellings used in connection strings.
func parseBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1":
		return true, true
	case "false", "no", "0":
		return false, true
	}
	return false, false
}
