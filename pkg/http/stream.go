package http

import (
	"errors"
	"io"
	"os"
	"strings"
)

// Open modes that grant read or write access. A mode may be in both sets,
// either, or neither.
var (
	readableModes = map[string]bool{
		"r": true, "w+": true, "r+": true, "x+": true, "c+": true,
		"rb": true, "w+b": true, "r+b": true, "x+b": true, "c+b": true,
		"rt": true, "w+t": true, "r+t": true, "x+t": true, "c+t": true,
		"a+": true,
	}
	writableModes = map[string]bool{
		"w": true, "w+": true, "rw": true, "r+": true, "x+": true, "c+": true,
		"wb": true, "w+b": true, "r+b": true, "x+b": true, "c+b": true,
		"w+t": true, "r+t": true, "x+t": true, "c+t": true,
		"a": true, "a+": true,
	}
)

// MemoryStreamURI is the "uri" metadata of streams made by NewMemoryStream.
const MemoryStreamURI = "memory://temp"

// Stream is a message body over an owned resource.
//
// Capabilities are fixed at construction: readable and writable come from
// the open mode and require the resource to implement io.Reader and
// io.Writer respectively; seekable requires io.Seeker and a successful probe
// seek. Close and Detach make the stream permanently inert.
//
// Stream implements io.Reader, io.Writer, io.Seeker and io.Closer.
type Stream struct {
	resource any
	reader   io.Reader
	writer   io.Writer
	seeker   io.Seeker
	closer   io.Closer

	mode     string
	uri      string
	readable bool
	writable bool
	seekable bool

	size     int64
	sizeOK   bool
	eof      bool
	detached bool
}

// NewStream wraps resource, which must implement io.Reader or io.Writer.
// mode is the open mode the resource was created with, e.g. "r" or "w+b".
func NewStream(resource any, mode string) (*Stream, error) {
	if resource == nil {
		return nil, newError("NewStream", ErrInvalidArgument, "resource is nil")
	}
	if mode == "" {
		return nil, newError("NewStream", ErrInvalidArgument, "mode is empty")
	}

	s := &Stream{resource: resource, mode: mode}
	s.reader, _ = resource.(io.Reader)
	s.writer, _ = resource.(io.Writer)
	s.closer, _ = resource.(io.Closer)
	if s.reader == nil && s.writer == nil {
		return nil, newError("NewStream", ErrInvalidArgument, "resource %T is neither an io.Reader nor an io.Writer", resource)
	}

	s.readable = s.reader != nil && readableModes[mode]
	s.writable = s.writer != nil && writableModes[mode]
	if seeker, ok := resource.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekCurrent); err == nil {
			s.seeker = seeker
			s.seekable = true
		}
	}
	if named, ok := resource.(interface{ Name() string }); ok {
		s.uri = named.Name()
	}
	return s, nil
}

// OpenStream opens the file at path with an fopen-style mode: "r", "w", "a",
// "x" or "c", optionally followed by "+" and/or "b" or "t".
func OpenStream(path, mode string) (*Stream, error) {
	flag, err := openFlag(mode)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, flag, 0o666)
	if err != nil {
		return nil, wrapError("OpenStream", ErrInvalidArgument, err, "cannot open %q", path)
	}
	s, err := NewStream(f, mode)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// NewMemoryStream returns a readable, writable, seekable in-memory stream
// holding content, positioned at the start.
func NewMemoryStream(content string) *Stream {
	buf := &memoryBuffer{data: []byte(content)}
	s, _ := NewStream(buf, "w+b")
	s.uri = MemoryStreamURI
	return s
}

// openFlag maps an fopen-style mode to os.OpenFile flags.
func openFlag(mode string) (int, error) {
	base := strings.NewReplacer("b", "", "t", "").Replace(mode)
	plus := strings.HasSuffix(base, "+")
	base = strings.TrimSuffix(base, "+")

	rw := os.O_WRONLY
	if plus {
		rw = os.O_RDWR
	}
	switch base {
	case "r":
		if plus {
			return os.O_RDWR, nil
		}
		return os.O_RDONLY, nil
	case "w":
		return rw | os.O_CREATE | os.O_TRUNC, nil
	case "a":
		return rw | os.O_CREATE | os.O_APPEND, nil
	case "x":
		return rw | os.O_CREATE | os.O_EXCL, nil
	case "c":
		return rw | os.O_CREATE, nil
	}
	return 0, newError("OpenStream", ErrInvalidArgument, "invalid open mode %q", mode)
}

// IsReadable reports whether Read may succeed.
func (s *Stream) IsReadable() bool { return s.readable }

// IsWritable reports whether Write may succeed.
func (s *Stream) IsWritable() bool { return s.writable }

// IsSeekable reports whether Seek may succeed.
func (s *Stream) IsSeekable() bool { return s.seekable }

// Read reads into p. io.EOF is returned unwrapped at end of stream.
func (s *Stream) Read(p []byte) (int, error) {
	if !s.readable {
		return 0, newError("Read", ErrNotReadable, "")
	}
	n, err := s.reader.Read(p)
	if errors.Is(err, io.EOF) {
		s.eof = true
		return n, io.EOF
	}
	if err != nil {
		return n, wrapError("Read", ErrNotReadable, err, "read failed")
	}
	return n, nil
}

// Write writes p and invalidates the cached size.
func (s *Stream) Write(p []byte) (int, error) {
	if !s.writable {
		return 0, newError("Write", ErrNotWritable, "")
	}
	s.sizeOK = false
	n, err := s.writer.Write(p)
	if err != nil {
		return n, wrapError("Write", ErrNotWritable, err, "write failed")
	}
	return n, nil
}

// WriteString writes str.
func (s *Stream) WriteString(str string) (int, error) {
	return s.Write([]byte(str))
}

// Seek sets the position for the next Read or Write.
func (s *Stream) Seek(offset int64, whence int) (int64, error) {
	if !s.seekable {
		return 0, newError("Seek", ErrNotSeekable, "")
	}
	pos, err := s.seeker.Seek(offset, whence)
	if err != nil {
		return 0, wrapError("Seek", ErrNotSeekable, err, "seek to %d (whence %d) failed", offset, whence)
	}
	s.eof = false
	return pos, nil
}

// Rewind seeks to the start of the stream.
func (s *Stream) Rewind() error {
	_, err := s.Seek(0, io.SeekStart)
	return err
}

// Tell returns the current position.
func (s *Stream) Tell() (int64, error) {
	if !s.seekable {
		return 0, newError("Tell", ErrNotSeekable, "")
	}
	pos, err := s.seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, wrapError("Tell", ErrNotSeekable, err, "cannot determine position")
	}
	return pos, nil
}

// EOF reports whether a read has reached the end of the stream. A detached
// stream is always at EOF.
func (s *Stream) EOF() bool {
	return s.detached || s.eof
}

// Size returns the size in bytes, if known. The result is cached until the
// next Write.
func (s *Stream) Size() (int64, bool) {
	if s.detached {
		return 0, false
	}
	if s.sizeOK {
		return s.size, true
	}
	switch r := s.resource.(type) {
	case interface{ Stat() (os.FileInfo, error) }:
		fi, err := r.Stat()
		if err != nil {
			return 0, false
		}
		s.size = fi.Size()
	case interface{ Size() int64 }:
		s.size = r.Size()
	case interface{ Len() int }:
		s.size = int64(r.Len())
	default:
		return 0, false
	}
	s.sizeOK = true
	return s.size, true
}

// Contents reads the remainder of the stream.
func (s *Stream) Contents() (string, error) {
	if !s.readable {
		return "", newError("Contents", ErrNotReadable, "")
	}
	var b strings.Builder
	if _, err := io.Copy(&b, s.reader); err != nil {
		return "", wrapError("Contents", ErrNotReadable, err, "read failed")
	}
	s.eof = true
	return b.String(), nil
}

// String rewinds (when seekable) and reads the whole stream. Any failure
// yields "".
func (s *Stream) String() string {
	if !s.readable {
		return ""
	}
	if s.seekable {
		if err := s.Rewind(); err != nil {
			return ""
		}
	}
	content, err := s.Contents()
	if err != nil {
		return ""
	}
	return content
}

// Close closes the underlying resource, if it is an io.Closer, and makes
// the stream inert. Closing twice is a no-op. The resource's own Close
// error is returned as-is.
func (s *Stream) Close() error {
	if s.detached {
		return nil
	}
	closer := s.closer
	s.Detach()
	if closer != nil {
		return closer.Close()
	}
	return nil
}

// Detach releases the underlying resource without closing it and returns
// it. The stream becomes permanently inert; a second Detach returns nil.
func (s *Stream) Detach() any {
	if s.detached {
		return nil
	}
	resource := s.resource
	*s = Stream{mode: s.mode, detached: true}
	return resource
}

// Metadata returns the stream metadata: "mode", "seekable" and "uri".
// A detached stream has no metadata.
func (s *Stream) Metadata() map[string]any {
	if s.detached {
		return map[string]any{}
	}
	return map[string]any{
		"mode":     s.mode,
		"seekable": s.seekable,
		"uri":      s.uri,
	}
}

// MetadataValue returns a single metadata entry.
func (s *Stream) MetadataValue(key string) (any, bool) {
	v, ok := s.Metadata()[key]
	return v, ok
}

// path returns the file path backing the stream, or "".
func (s *Stream) path() string {
	if f, ok := s.resource.(*os.File); ok {
		return f.Name()
	}
	return ""
}

// memoryBuffer is a growable in-memory io.ReadWriteSeeker.
type memoryBuffer struct {
	data []byte
	pos  int64
}

func (m *memoryBuffer) Read(p []byte) (int, error) {
	if m.pos >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[m.pos:])
	m.pos += int64(n)
	return n, nil
}

func (m *memoryBuffer) Write(p []byte) (int, error) {
	end := m.pos + int64(len(p))
	if end > int64(len(m.data)) {
		if end > int64(cap(m.data)) {
			grown := make([]byte, end, 2*end)
			copy(grown, m.data)
			m.data = grown
		} else {
			m.data = m.data[:end]
		}
	}
	copy(m.data[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memoryBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = m.pos + offset
	case io.SeekEnd:
		abs = int64(len(m.data)) + offset
	default:
		return 0, errors.New("memory buffer: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("memory buffer: negative position")
	}
	m.pos = abs
	return abs, nil
}

func (m *memoryBuffer) Size() int64 {
	return int64(len(m.data))
}
