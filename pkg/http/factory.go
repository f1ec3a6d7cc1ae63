package http

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
)

// Env is the request data a server has already extracted for one request.
// Nil fields are left at their defaults.
type Env struct {
	// Server holds CGI-style server variables: REQUEST_METHOD, REQUEST_URI,
	// QUERY_STRING, HTTPS, SERVER_NAME, SERVER_PORT, HTTP_* headers, ...
	Server map[string]string

	// Query replaces the query parameters parsed from the URI.
	Query map[string]any

	// ParsedBody is the decoded form body.
	ParsedBody any

	Cookies map[string]string

	// Files is a raw upload description; see NormalizeUploadedFiles.
	Files map[string]any

	// Input is the raw request body.
	Input io.Reader
}

// NewServerRequestFromEnv assembles a ServerRequest from env.
//
// SERVER_PROTOCOL, when present ("HTTP/2.0"), sets the protocol version.
//
// When the Content-Type header contains "application/json", Input is
// buffered into an in-memory body and its JSON decoding (an object or an
// array) replaces the parsed body; invalid JSON fails with ErrMalformed.
// Any other non-nil Input becomes a read-only body stream.
func NewServerRequestFromEnv(env Env) (*ServerRequest, error) {
	const op = "NewServerRequestFromEnv"

	uri, err := NewURIFromServer(env.Server)
	if err != nil {
		return nil, err
	}
	req, err := NewServerRequest(env.Server["REQUEST_METHOD"], uri, env.Server)
	if err != nil {
		return nil, err
	}
	if proto := env.Server["SERVER_PROTOCOL"]; proto != "" {
		if req, err = req.WithProtocolVersion(proto); err != nil {
			return nil, err
		}
	}

	if env.Query != nil {
		req = req.WithQueryParams(env.Query)
	}
	if env.ParsedBody != nil {
		if req, err = req.WithParsedBody(env.ParsedBody); err != nil {
			return nil, err
		}
	}
	if env.Cookies != nil {
		req = req.WithCookieParams(env.Cookies)
	}

	switch {
	case env.Input == nil:
	case strings.Contains(req.HeaderLine("Content-Type"), "application/json"):
		if req, err = withJSONBody(op, req, env.Input); err != nil {
			return nil, err
		}
	default:
		body, err := NewStream(env.Input, "r")
		if err != nil {
			return nil, err
		}
		if req, err = req.WithBody(body); err != nil {
			return nil, err
		}
	}

	// Uploads go last: nothing after them can fail and leak their streams.
	if env.Files != nil {
		files, err := NormalizeUploadedFiles(env.Files)
		if err != nil {
			return nil, err
		}
		if req, err = req.WithUploadedFiles(files); err != nil {
			return nil, err
		}
	}
	return req, nil
}

func withJSONBody(op string, req *ServerRequest, input io.Reader) (*ServerRequest, error) {
	raw, err := io.ReadAll(input)
	if err != nil {
		return nil, wrapError(op, ErrNotReadable, err, "cannot read request body")
	}
	req, err = req.WithBody(NewMemoryStream(string(raw)))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return req, nil
	}

	var params any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, wrapError(op, ErrMalformed, err, "invalid JSON body")
	}
	req, err = req.WithParsedBody(params)
	if err != nil {
		return nil, wrapError(op, ErrMalformed, err, "JSON body is not an object or array")
	}
	return req, nil
}
