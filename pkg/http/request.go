package http

import (
	"strings"

	"github.com/shapestone/shape-message/internal/fastparser"
)

// Request is an immutable outgoing HTTP request.
type Request struct {
	message
	method string
	uri    URI
	target string // explicit request-target; "" derives it from uri
}

// NewRequest builds a request for method and uri. The method is upper-cased
// and must be one of CONNECT, DELETE, GET, HEAD, OPTIONS, PATCH, POST, PUT or
// TRACE. The Host header is taken from the URI.
func NewRequest(method string, uri URI) (*Request, error) {
	m, err := filterMethod("NewRequest", method)
	if err != nil {
		return nil, err
	}
	r := &Request{message: newMessage(), method: m, uri: uri}
	r.message = r.syncHost(uri, false)
	return r, nil
}

// NewRequestFromString is like NewRequest but parses the URI from raw.
func NewRequestFromString(method, raw string) (*Request, error) {
	uri, err := ParseURI(raw)
	if err != nil {
		return nil, err
	}
	return NewRequest(method, uri)
}

// Method returns the upper-case request method.
func (r *Request) Method() string { return r.method }

// URI returns the request URI.
func (r *Request) URI() URI { return r.uri }

// RequestTarget returns the explicit request-target if one was set, otherwise
// the URI path ("/" when empty) followed by "?query" when the query is
// non-empty.
func (r *Request) RequestTarget() string {
	if r.target != "" {
		return r.target
	}
	target := r.uri.Path()
	if target == "" {
		target = "/"
	}
	if q := r.uri.Query(); q != "" {
		target += "?" + q
	}
	return target
}

// WithMethod returns a copy with the given method.
func (r *Request) WithMethod(method string) (*Request, error) {
	m, err := filterMethod("WithMethod", method)
	if err != nil {
		return nil, err
	}
	c := *r
	c.method = m
	return &c, nil
}

// WithURI returns a copy with the given URI. Unless preserveHost is set, the
// Host header is replaced by the URI host, or removed when that is empty.
// With preserveHost, the Host header is only filled in when absent.
func (r *Request) WithURI(uri URI, preserveHost bool) *Request {
	c := *r
	c.uri = uri
	c.message = r.syncHost(uri, preserveHost)
	return &c
}

// WithRequestTarget returns a copy with an explicit request-target, such as
// "*" or an absolute URI. The target may not contain whitespace.
func (r *Request) WithRequestTarget(target string) (*Request, error) {
	if strings.ContainsAny(target, " \t\r\n") {
		return nil, newError("WithRequestTarget", ErrInvalidArgument, "request target %q contains whitespace", target)
	}
	c := *r
	c.target = target
	return &c, nil
}

// WithProtocolVersion returns a copy with the given protocol version.
func (r *Request) WithProtocolVersion(version string) (*Request, error) {
	m, err := r.withProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithHeader returns a copy with the named header replaced.
func (r *Request) WithHeader(name string, values ...string) (*Request, error) {
	m, err := r.withHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithAddedHeader returns a copy with values appended to the named header.
func (r *Request) WithAddedHeader(name string, values ...string) (*Request, error) {
	m, err := r.withAddedHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithoutHeader returns a copy without the named header.
func (r *Request) WithoutHeader(name string) *Request {
	c := *r
	c.message = r.withoutHeader(name)
	return &c
}

// WithBody returns a copy with the given body.
func (r *Request) WithBody(body *Stream) (*Request, error) {
	m, err := r.withBody(body)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// syncHost returns the message with its Host header updated for uri.
func (r *Request) syncHost(uri URI, preserveHost bool) message {
	host := uri.Host()
	if preserveHost {
		if host == "" || r.headers.Has("Host") {
			return r.message
		}
	} else if host == "" {
		return r.withoutHeader("Host")
	}
	name := "Host"
	if e, ok := r.headers.entries[NormalizeHeaderName(name)]; ok {
		name = e.name
	}
	m, err := r.withHeader(name, []string{host})
	if err != nil {
		// hosts that cannot appear in a header value are not mirrored
		return r.withoutHeader("Host")
	}
	return m
}

func filterMethod(op, method string) (string, error) {
	m, ok := fastparser.LookupMethod(method)
	if !ok {
		return "", newError(op, ErrInvalidArgument, "invalid method %q", method)
	}
	return m, nil
}
