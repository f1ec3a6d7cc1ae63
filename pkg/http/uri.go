package http

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/shapestone/shape-message/internal/fastparser"
)

var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
}

// URI is an immutable RFC 3986 URI reference.
//
// The zero value is the empty reference "". Port 0 means no port.
type URI struct {
	scheme   string
	user     string
	password string
	host     string
	port     int
	path     string
	query    string
	fragment string
}

// ParseURI parses raw into a URI. Absent components are empty; the path is
// stored exactly as written (an empty path stays empty). Only the "http" and
// "https" schemes, or none, are accepted.
func ParseURI(raw string) (URI, error) {
	parsed, err := fastparser.ParseURI(raw)
	if err != nil {
		return URI{}, wrapError("ParseURI", ErrMalformed, err, "cannot parse %q", raw)
	}
	scheme, err := filterScheme("ParseURI", parsed.Scheme)
	if err != nil {
		return URI{}, err
	}
	return URI{
		scheme:   scheme,
		user:     parsed.User,
		password: parsed.Password,
		host:     parsed.Host,
		port:     parsed.Port,
		path:     parsed.Path,
		query:    parsed.Query,
		fragment: parsed.Fragment,
	}, nil
}

// MustParseURI is like ParseURI but panics on error. Intended for tests and
// package-level literals.
func MustParseURI(raw string) URI {
	u, err := ParseURI(raw)
	if err != nil {
		panic(err)
	}
	return u
}

// NewURIFromServer derives the request URI from environment-style server
// variables: HTTPS, HTTP_HOST or SERVER_NAME, SERVER_PORT (default 80),
// PHP_AUTH_USER/PHP_AUTH_PW, REQUEST_URI and QUERY_STRING. It fails with
// ErrMalformed when REQUEST_URI or SERVER_PORT cannot be interpreted.
func NewURIFromServer(server map[string]string) (URI, error) {
	const op = "NewURIFromServer"

	scheme := "https"
	if https := server["HTTPS"]; https == "" || https == "off" {
		scheme = "http"
	}

	host, ok := server["HTTP_HOST"]
	if !ok {
		host = server["SERVER_NAME"]
	}

	port := 80
	if raw, ok := server["SERVER_PORT"]; ok {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n < 0 || n > 65535 {
			return URI{}, newError(op, ErrMalformed, "invalid server port %q", raw)
		}
		port = n
	}

	requestURI, ok := server["REQUEST_URI"]
	if !ok {
		return URI{}, newError(op, ErrMalformed, "request URI is missing")
	}
	parsed, err := fastparser.ParseURI("http://example.com" + requestURI)
	if err != nil || parsed.Path == "" {
		return URI{}, wrapError(op, ErrMalformed, err, "request URI %q is malformed", requestURI)
	}
	path, err := url.PathUnescape(parsed.Path)
	if err != nil {
		return URI{}, wrapError(op, ErrMalformed, err, "request URI %q is malformed", requestURI)
	}

	return URI{
		scheme:   scheme,
		user:     server["PHP_AUTH_USER"],
		password: server["PHP_AUTH_PW"],
		host:     fastparser.TrimPort(host),
		port:     port,
		path:     path,
		query:    server["QUERY_STRING"],
	}, nil
}

// Scheme returns the lower-case scheme, or "".
func (u URI) Scheme() string { return u.scheme }

// Host returns the host without any port.
func (u URI) Host() string { return u.host }

// Path returns the path as stored.
func (u URI) Path() string { return u.path }

// Query returns the query without the leading "?".
func (u URI) Query() string { return u.query }

// Fragment returns the fragment without the leading "#".
func (u URI) Fragment() string { return u.fragment }

// Port returns the port, or 0 when none is set or it is the default port
// of the scheme (80 for http, 443 for https).
func (u URI) Port() int {
	if u.port == 0 || defaultPorts[u.scheme] == u.port {
		return 0
	}
	return u.port
}

// UserInfo returns "user" or "user:password".
func (u URI) UserInfo() string {
	if u.password != "" {
		return u.user + ":" + u.password
	}
	return u.user
}

// Authority returns "[userinfo@]host[:port]", omitting empty parts.
func (u URI) Authority() string {
	var b strings.Builder
	if info := u.UserInfo(); info != "" {
		b.WriteString(info)
		b.WriteByte('@')
	}
	b.WriteString(u.host)
	if port := u.Port(); port != 0 {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(port))
	}
	return b.String()
}

// String recomposes the URI. The path is always rendered with exactly one
// leading slash, so an empty path renders as "/".
func (u URI) String() string {
	var b strings.Builder
	if u.scheme != "" {
		b.WriteString(u.scheme)
		b.WriteByte(':')
	}
	if auth := u.Authority(); auth != "" {
		b.WriteString("//")
		b.WriteString(auth)
	}
	b.WriteByte('/')
	b.WriteString(strings.TrimLeft(u.path, "/"))
	if u.query != "" {
		b.WriteByte('?')
		b.WriteString(u.query)
	}
	if u.fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.fragment)
	}
	return b.String()
}

// WithScheme returns a copy with the given scheme. The scheme is lower-cased
// and a trailing "://" is removed; only "", "http" and "https" are valid.
func (u URI) WithScheme(scheme string) (URI, error) {
	s, err := filterScheme("WithScheme", scheme)
	if err != nil {
		return u, err
	}
	u.scheme = s
	return u, nil
}

// WithUserInfo returns a copy with the given user and password.
func (u URI) WithUserInfo(user, password string) URI {
	u.user = user
	u.password = password
	return u
}

// WithHost returns a copy with the given host. A trailing ":port" is dropped.
func (u URI) WithHost(host string) URI {
	u.host = fastparser.TrimPort(host)
	return u
}

// WithPort returns a copy with the given port. 0 removes the port.
func (u URI) WithPort(port int) (URI, error) {
	if port < 0 || port > 65535 {
		return u, newError("WithPort", ErrInvalidArgument, "port %d out of range 0-65535", port)
	}
	u.port = port
	return u, nil
}

// WithPath returns a copy with the given path. An empty path becomes "/".
func (u URI) WithPath(path string) URI {
	if path == "" {
		path = "/"
	}
	u.path = path
	return u
}

// WithQuery returns a copy with the given query; a leading "?" is removed.
func (u URI) WithQuery(query string) URI {
	u.query = strings.TrimPrefix(query, "?")
	return u
}

// WithFragment returns a copy with the given fragment; a leading "#" is removed.
func (u URI) WithFragment(fragment string) URI {
	u.fragment = strings.TrimPrefix(fragment, "#")
	return u
}

// IsZero reports whether u is the empty reference.
func (u URI) IsZero() bool {
	return u == URI{}
}

var errUnsupportedScheme = errors.New("unsupported scheme")

func filterScheme(op, scheme string) (string, error) {
	s := strings.TrimSuffix(strings.ToLower(scheme), "://")
	if _, ok := defaultPorts[s]; !ok && s != "" {
		return "", wrapError(op, ErrInvalidArgument, errUnsupportedScheme, "scheme %q", scheme)
	}
	return s, nil
}
