package http

import (
	"io"

	"golang.org/x/net/http/httpguts"

	"github.com/shapestone/shape-message/internal/fastparser"
)

// Response is an immutable HTTP response.
//
// The status code must appear in the reason-phrase table. The reason phrase
// is resolved when the response is built and never recomputed.
type Response struct {
	message
	status int
	reason string
}

// NewResponse builds a response with the given status. An empty reason
// selects the canonical phrase for the status.
func NewResponse(status int, reason string) (*Response, error) {
	r, err := resolveStatus("NewResponse", status, reason)
	if err != nil {
		return nil, err
	}
	return &Response{message: newMessage(), status: status, reason: r}, nil
}

// NewResponseWithStatus builds a response with the canonical reason phrase.
func NewResponseWithStatus(status int) (*Response, error) {
	return NewResponse(status, "")
}

// StatusCode returns the status code.
func (r *Response) StatusCode() int { return r.status }

// ReasonPhrase returns the reason phrase fixed at construction.
func (r *Response) ReasonPhrase() string { return r.reason }

// WithStatus returns a copy with the given status and reason phrase. An
// empty reason selects the canonical phrase.
func (r *Response) WithStatus(status int, reason string) (*Response, error) {
	phrase, err := resolveStatus("WithStatus", status, reason)
	if err != nil {
		return nil, err
	}
	c := *r
	c.status = status
	c.reason = phrase
	return &c, nil
}

// Write appends p to the body. A seekable body is positioned at its end
// first. The body is shared with every copy made from this response, as is
// any stream.
func (r *Response) Write(p []byte) (int, error) {
	if r.body.IsSeekable() {
		if _, err := r.body.Seek(0, io.SeekEnd); err != nil {
			return 0, err
		}
	}
	return r.body.Write(p)
}

// WithProtocolVersion returns a copy with the given protocol version.
func (r *Response) WithProtocolVersion(version string) (*Response, error) {
	m, err := r.withProtocolVersion(version)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithHeader returns a copy with the named header replaced.
func (r *Response) WithHeader(name string, values ...string) (*Response, error) {
	m, err := r.withHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithAddedHeader returns a copy with values appended to the named header.
func (r *Response) WithAddedHeader(name string, values ...string) (*Response, error) {
	m, err := r.withAddedHeader(name, values)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

// WithoutHeader returns a copy without the named header.
func (r *Response) WithoutHeader(name string) *Response {
	c := *r
	c.message = r.withoutHeader(name)
	return &c
}

// WithBody returns a copy with the given body.
func (r *Response) WithBody(body *Stream) (*Response, error) {
	m, err := r.withBody(body)
	if err != nil {
		return nil, err
	}
	c := *r
	c.message = m
	return &c, nil
}

func resolveStatus(op string, status int, reason string) (string, error) {
	canonical, ok := fastparser.LookupReason(status)
	if !ok {
		return "", newError(op, ErrInvalidArgument, "unknown status code %d", status)
	}
	if reason == "" {
		return canonical, nil
	}
	if !httpguts.ValidHeaderFieldValue(reason) {
		return "", newError(op, ErrInvalidArgument, "invalid reason phrase %q", reason)
	}
	return reason, nil
}
