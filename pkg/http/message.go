package http

import "strings"

// message is the state shared by every message type: protocol version,
// headers and body. Its with* helpers return modified copies; the public
// types wrap them so each With* returns its own type.
type message struct {
	protocol string
	headers  Headers
	body     *Stream
}

func newMessage() message {
	return message{
		protocol: DefaultProtocolVersion,
		body:     NewMemoryStream(""),
	}
}

// ProtocolVersion returns the HTTP protocol version, e.g. "1.1".
func (m message) ProtocolVersion() string { return m.protocol }

// Headers returns every header keyed by its display name.
func (m message) Headers() map[string][]string { return m.headers.All() }

// HeaderMap returns the underlying header map.
func (m message) HeaderMap() Headers { return m.headers }

// HasHeader reports whether the named header is present (case-insensitive).
func (m message) HasHeader(name string) bool { return m.headers.Has(name) }

// Header returns the values of the named header, or an empty slice.
func (m message) Header(name string) []string { return m.headers.Get(name) }

// HeaderLine returns the values of the named header joined with ",".
func (m message) HeaderLine(name string) string { return m.headers.Line(name) }

// Body returns the body stream.
func (m message) Body() *Stream { return m.body }

func (m message) withProtocolVersion(version string) (message, error) {
	version = strings.TrimPrefix(version, "HTTP/")
	if version == "" || strings.ContainsAny(version, " \t\r\n") {
		return m, newError("WithProtocolVersion", ErrInvalidArgument, "invalid protocol version %q", version)
	}
	m.protocol = version
	return m, nil
}

func (m message) withHeader(name string, values []string) (message, error) {
	h, err := m.headers.Set(name, values...)
	if err != nil {
		return m, err
	}
	m.headers = h
	return m, nil
}

func (m message) withAddedHeader(name string, values []string) (message, error) {
	h, err := m.headers.Add(name, values...)
	if err != nil {
		return m, err
	}
	m.headers = h
	return m, nil
}

func (m message) withoutHeader(name string) message {
	m.headers = m.headers.Remove(name)
	return m
}

func (m message) withBody(body *Stream) (message, error) {
	if body == nil {
		return m, newError("WithBody", ErrInvalidArgument, "body is nil")
	}
	m.body = body
	return m, nil
}
