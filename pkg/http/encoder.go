package http

import (
	"io"
	"strconv"
	"strings"
)

// appendRequest serializes a Request to HTTP/1.1 wire format.
// It appends "METHOD TARGET HTTP/VERSION\r\n" followed by headers and body.
func appendRequest(buf []byte, req *Request) ([]byte, error) {
	body, err := bodyBytes(req.Body())
	if err != nil {
		return buf, err
	}
	buf = appendRequestLine(buf, req.Method(), req.RequestTarget(), req.ProtocolVersion())
	return appendMessage(buf, req.HeaderMap(), body), nil
}

// appendResponse serializes a Response to HTTP/1.1 wire format.
// It appends "HTTP/VERSION STATUS REASON\r\n" followed by headers and body.
func appendResponse(buf []byte, resp *Response) ([]byte, error) {
	body, err := bodyBytes(resp.Body())
	if err != nil {
		return buf, err
	}
	buf = appendStatusLine(buf, resp.ProtocolVersion(), resp.StatusCode(), resp.ReasonPhrase())
	return appendMessage(buf, resp.HeaderMap(), body), nil
}

// appendMessage appends the header block, the blank line and the body.
func appendMessage(buf []byte, headers Headers, body []byte) []byte {
	buf = appendHeaders(buf, headers)

	// Auto-set Content-Length if body present and header absent
	if len(body) > 0 && !headers.Has("Content-Length") && !isChunked(headers) {
		buf = append(buf, "Content-Length: "...)
		buf = strconv.AppendInt(buf, int64(len(body)), 10)
		buf = appendCRLF(buf)
	}

	buf = appendCRLF(buf) // empty line before body
	return append(buf, body...)
}

// appendHeaders appends all headers in "Key: Value\r\n" format, one line per value.
func appendHeaders(buf []byte, headers Headers) []byte {
	for _, h := range headers.Fields() {
		buf = append(buf, h.Key...)
		buf = append(buf, ':', ' ')
		buf = append(buf, h.Value...)
		buf = appendCRLF(buf)
	}
	return buf
}

func isChunked(headers Headers) bool {
	for _, v := range headers.Get("Transfer-Encoding") {
		if strings.Contains(strings.ToLower(v), "chunked") {
			return true
		}
	}
	return false
}

// bodyBytes reads the body from its start, or from the current position
// when it cannot seek.
func bodyBytes(s *Stream) ([]byte, error) {
	const op = "Marshal"

	if s.IsSeekable() {
		if err := s.Rewind(); err != nil {
			return nil, err
		}
		defer s.Rewind()
	}
	if !s.IsReadable() {
		if size, ok := s.Size(); ok && size == 0 {
			return nil, nil
		}
		return nil, newError(op, ErrNotReadable, "message body is not readable")
	}
	data, err := io.ReadAll(s)
	if err != nil {
		return nil, wrapError(op, ErrNotReadable, err, "read body")
	}
	return data, nil
}
