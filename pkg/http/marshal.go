package http

import (
	"sync"
)

// bufPool pools []byte slices for the encoder fast path.
var bufPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 0, 2048)
		return &b
	},
}

// Marshal returns the HTTP/1.1 wire-format encoding of msg.
//
// msg must be a *Request, *ServerRequest or *Response. The request line uses
// RequestTarget; headers are written in insertion order. The body is read
// from its start when seekable, otherwise from the current position. If the
// body is non-empty and neither Content-Length nor a chunked
// Transfer-Encoding is set, Content-Length is added.
func Marshal(msg Message) ([]byte, error) {
	const op = "Marshal"

	bp := bufPool.Get().(*[]byte)
	buf := (*bp)[:0]
	defer func() {
		*bp = buf[:0]
		bufPool.Put(bp)
	}()

	var err error
	switch m := msg.(type) {
	case *Request:
		buf, err = appendRequest(buf, m)
	case *ServerRequest:
		buf, err = appendRequest(buf, &m.Request)
	case *Response:
		buf, err = appendResponse(buf, m)
	default:
		return nil, newError(op, ErrInvalidArgument, "unsupported message type %T", msg)
	}
	if err != nil {
		return nil, err
	}

	result := make([]byte, len(buf))
	copy(result, buf)
	return result, nil
}
