package uri

import (
	"net/url"
	"strconv"
	"strings"
)

// redactedKeys are query parameters carrying credentials.
var redactedKeys = []string{"token", "apikey"}

// URI is a small builder for the http(s) and ws(s) endpoints of a CheshireCat server.
type URI struct {
	scheme string
	host   string
	port   int
	path   string
	query  url.Values
}

// New returns a builder with the http scheme.
func New() *URI {
	return &URI{scheme: "http", query: url.Values{}}
}

func (u *URI) WithScheme(scheme string) *URI {
	u.scheme = scheme
	return u
}

func (u *URI) WithHost(host string) *URI {
	u.host = host
	return u
}

// WithPort sets the port. Zero means no explicit port.
func (u *URI) WithPort(port int) *URI {
	u.port = port
	return u
}

func (u *URI) WithPath(path string) *URI {
	u.path = path
	return u
}

// WithQuery merges items into the query, replacing existing keys. Empty values are skipped.
func (u *URI) WithQuery(items map[string]string) *URI {
	for k, v := range items {
		if v == "" {
			continue
		}
		u.query.Set(k, v)
	}
	return u
}

// Clone returns an independent copy of the builder.
func (u *URI) Clone() *URI {
	c := *u
	c.query = url.Values{}
	for k, v := range u.query {
		c.query[k] = append([]string(nil), v...)
	}
	return &c
}

func (u *URI) Scheme() string { return u.scheme }
func (u *URI) Host() string   { return u.host }
func (u *URI) Port() int      { return u.port }

// String renders scheme://host[:port][/path][?query].
func (u *URI) String() string {
	var b strings.Builder
	b.WriteString(u.scheme)
	b.WriteString("://")
	b.WriteString(u.host)
	if u.port > 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(u.port))
	}
	if p := strings.TrimLeft(u.path, "/"); p != "" {
		b.WriteByte('/')
		b.WriteString(p)
	}
	if q := u.query.Encode(); q != "" {
		b.WriteByte('?')
		b.WriteString(q)
	}
	return b.String()
}

// JoinPath joins path segments and collapses repeated slashes.
func JoinPath(parts ...string) string {
	joined := strings.Join(parts, "/")
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

// Redact masks credential query values so the URI can be logged.
func Redact(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "<invalid uri>"
	}
	q := parsed.Query()
	changed := false
	for _, k := range redactedKeys {
		if q.Has(k) {
			q.Set(k, "***")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
