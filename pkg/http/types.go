// Package http provides immutable HTTP message values: requests, responses,
// server-received requests, URIs, headers, body streams and uploaded files,
// following RFC 7230/7231 and RFC 3986.
//
// Every With* method returns a new value and leaves the receiver untouched,
// so messages can be shared, compared and transformed without aliasing.
// Fallible updates return (value, error); the error is an *Error whose kind
// can be tested with errors.Is.
//
// # Thread Safety
//
// Message, URI and Headers values are safe for concurrent use by multiple
// goroutines once constructed. A *Stream is owned by one holder at a time and
// is not safe for concurrent use; transferring a body between message values
// transfers that ownership. An *UploadedFile may be moved at most once, even
// when MoveTo races.
//
// # Construction
//
// The package provides several construction paths:
//
//   - NewRequest/NewResponse/NewServerRequest - Direct construction
//   - ParseURI/NewURIFromServer - URI parsing and server-variable derivation
//   - NewServerRequestFromEnv - Full server request from extracted request data
//   - NormalizeUploadedFiles - Raw upload descriptions to UploadedFile trees
//   - RequestToNode/ServerRequestToNode - shape-core AST rendering
package http

// DefaultProtocolVersion is the protocol version of newly built messages.
const DefaultProtocolVersion = "1.1"

// Message is the behavior shared by Request, Response and ServerRequest.
// It covers the read side only; With* methods return concrete types.
type Message interface {
	ProtocolVersion() string
	Headers() map[string][]string
	HasHeader(name string) bool
	Header(name string) []string
	HeaderLine(name string) string
	Body() *Stream
}

var (
	_ Message = (*Request)(nil)
	_ Message = (*Response)(nil)
	_ Message = (*ServerRequest)(nil)
)
