package http

import (
	"reflect"
	"sync"

	"github.com/shapestone/shape-message/internal/parser"
)

// ServerRequest is an immutable request as received by a server, with the
// data the server extracted from it: server parameters, cookies, query
// parameters, uploaded files, the parsed body and request attributes.
type ServerRequest struct {
	Request

	serverParams map[string]string
	cookies      map[string]string
	query        *lazyQuery
	uploads      map[string]any
	parsedBody   any
	attributes   map[string]any
}

// lazyQuery holds query parameters, either set explicitly or parsed from a
// URI query on first use. It is shared by copies that did not change it.
type lazyQuery struct {
	once     sync.Once
	raw      string
	explicit bool
	params   map[string]any
}

func newLazyQuery(raw string) *lazyQuery {
	return &lazyQuery{raw: raw}
}

func explicitQuery(params map[string]any) *lazyQuery {
	q := &lazyQuery{params: params, explicit: true}
	q.once.Do(func() {})
	return q
}

func (q *lazyQuery) get() map[string]any {
	q.once.Do(func() {
		params, _ := NodeToInterface(parser.ParseQuery(q.raw)).(map[string]interface{})
		if params == nil {
			params = map[string]any{}
		}
		q.params = params
	})
	return q.params
}

// NewServerRequest builds a server request. Headers are derived from the
// server parameters as by HeadersFromServer; the Host header then follows
// the URI as in NewRequest.
func NewServerRequest(method string, uri URI, serverParams map[string]string) (*ServerRequest, error) {
	req, err := NewRequest(method, uri)
	if err != nil {
		return nil, err
	}
	req.headers = HeadersFromServer(serverParams)
	req.message = req.syncHost(uri, false)

	server := make(map[string]string, len(serverParams))
	for k, v := range serverParams {
		server[k] = v
	}
	return &ServerRequest{
		Request:      *req,
		serverParams: server,
		cookies:      map[string]string{},
		query:        newLazyQuery(uri.Query()),
		uploads:      map[string]any{},
		attributes:   map[string]any{},
	}, nil
}

// ServerParams returns a copy of the server parameters.
func (r *ServerRequest) ServerParams() map[string]string {
	out := make(map[string]string, len(r.serverParams))
	for k, v := range r.serverParams {
		out[k] = v
	}
	return out
}

// CookieParams returns a copy of the cookies.
func (r *ServerRequest) CookieParams() map[string]string {
	out := make(map[string]string, len(r.cookies))
	for k, v := range r.cookies {
		out[k] = v
	}
	return out
}

// WithCookieParams returns a copy with the given cookies.
func (r *ServerRequest) WithCookieParams(cookies map[string]string) *ServerRequest {
	c := *r
	c.cookies = make(map[string]string, len(cookies))
	for k, v := range cookies {
		c.cookies[k] = v
	}
	return &c
}

// QueryParams returns the query parameters. Unless set with WithQueryParams
// they are parsed from the URI query with bracketed form keys
// ("a[b][]=1" yields {"a": {"b": ["1"]}}) on first use. The returned map
// is a shallow copy.
func (r *ServerRequest) QueryParams() map[string]any {
	return copyTree(r.query.get())
}

// WithQueryParams returns a copy with explicit query parameters.
func (r *ServerRequest) WithQueryParams(query map[string]any) *ServerRequest {
	c := *r
	c.query = explicitQuery(copyTree(query))
	return &c
}

// UploadedFiles returns the upload tree.
func (r *ServerRequest) UploadedFiles() map[string]any {
	return copyTree(r.uploads)
}

// WithUploadedFiles returns a copy with the given upload tree. Leaves must be
// *UploadedFile; inner nodes map[string]any or []any.
func (r *ServerRequest) WithUploadedFiles(files map[string]any) (*ServerRequest, error) {
	err := WalkUploadedFiles(files, func([]string, *UploadedFile) error { return nil })
	if err != nil {
		return nil, wrapError("WithUploadedFiles", ErrInvalidArgument, err, "invalid upload tree")
	}
	c := *r
	c.uploads = copyTree(files)
	return &c, nil
}

// ParsedBody returns the parsed body, or nil.
func (r *ServerRequest) ParsedBody() any { return r.parsedBody }

// WithParsedBody returns a copy with the given parsed body, which must be
// nil, a map, a slice, a struct, or a pointer to one of those.
func (r *ServerRequest) WithParsedBody(data any) (*ServerRequest, error) {
	if !validParsedBody(data) {
		return nil, newError("WithParsedBody", ErrInvalidArgument, "parsed body must be a map, slice, struct or nil, got %T", data)
	}
	c := *r
	c.parsedBody = data
	return &c, nil
}

// Attributes returns a copy of the request attributes.
func (r *ServerRequest) Attributes() map[string]any {
	out := make(map[string]any, len(r.attributes))
	for k, v := range r.attributes {
		out[k] = v
	}
	return out
}

// Attribute returns the named attribute, or def when it is not set.
func (r *ServerRequest) Attribute(name string, def any) any {
	if v, ok := r.attributes[name]; ok {
		return v
	}
	return def
}

// WithAttribute returns a copy with the named attribute set.
func (r *ServerRequest) WithAttribute(name string, value any) *ServerRequest {
	c := *r
	c.attributes = make(map[string]any, len(r.attributes)+1)
	for k, v := range r.attributes {
		c.attributes[k] = v
	}
	c.attributes[name] = value
	return &c
}

// WithoutAttribute returns a copy without the named attribute.
func (r *ServerRequest) WithoutAttribute(name string) *ServerRequest {
	if _, ok := r.attributes[name]; !ok {
		return r
	}
	c := *r
	c.attributes = make(map[string]any, len(r.attributes))
	for k, v := range r.attributes {
		if k != name {
			c.attributes[k] = v
		}
	}
	return &c
}

// WithMethod returns a copy with the given method.
func (r *ServerRequest) WithMethod(method string) (*ServerRequest, error) {
	req, err := r.Request.WithMethod(method)
	if err != nil {
		return nil, err
	}
	return r.withRequest(req), nil
}

// WithURI returns a copy with the given URI; see Request.WithURI. Query
// parameters that were not set explicitly follow the new URI.
func (r *ServerRequest) WithURI(uri URI, preserveHost bool) *ServerRequest {
	c := r.withRequest(r.Request.WithURI(uri, preserveHost))
	if !c.query.explicit {
		c.query = newLazyQuery(uri.Query())
	}
	return c
}

// WithRequestTarget returns a copy with an explicit request-target.
func (r *ServerRequest) WithRequestTarget(target string) (*ServerRequest, error) {
	req, err := r.Request.WithRequestTarget(target)
	if err != nil {
		return nil, err
	}
	return r.withRequest(req), nil
}

// WithProtocolVersion returns a copy with the given protocol version.
func (r *ServerRequest) WithProtocolVersion(version string) (*ServerRequest, error) {
	req, err := r.Request.WithProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	return r.withRequest(req), nil
}

// WithHeader returns a copy with the named header replaced.
func (r *ServerRequest) WithHeader(name string, values ...string) (*ServerRequest, error) {
	req, err := r.Request.WithHeader(name, values...)
	if err != nil {
		return nil, err
	}
	return r.withRequest(req), nil
}

// WithAddedHeader returns a copy with values appended to the named header.
func (r *ServerRequest) WithAddedHeader(name string, values ...string) (*ServerRequest, error) {
	req, err := r.Request.WithAddedHeader(name, values...)
	if err != nil {
		return nil, err
	}
	return r.withRequest(req), nil
}

// WithoutHeader returns a copy without the named header.
func (r *ServerRequest) WithoutHeader(name string) *ServerRequest {
	return r.withRequest(r.Request.WithoutHeader(name))
}

// WithBody returns a copy with the given body.
func (r *ServerRequest) WithBody(body *Stream) (*ServerRequest, error) {
	req, err := r.Request.WithBody(body)
	if err != nil {
		return nil, err
	}
	return r.withRequest(req), nil
}

func (r *ServerRequest) withRequest(req *Request) *ServerRequest {
	c := *r
	c.Request = *req
	return &c
}

func validParsedBody(data any) bool {
	if data == nil {
		return true
	}
	t := reflect.TypeOf(data)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Map, reflect.Struct:
		return true
	case reflect.Slice, reflect.Array:
		// byte sequences are raw text, not structured data
		return t.Elem().Kind() != reflect.Uint8
	}
	return false
}

// copyTree returns a shallow copy of a map.
func copyTree(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
