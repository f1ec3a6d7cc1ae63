package http

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"
)

// Upload error codes, as reported for each uploaded file.
const (
	UploadErrOK        = 0 // no error
	UploadErrIniSize   = 1 // exceeds the server's size limit
	UploadErrFormSize  = 2 // exceeds the form's size limit
	UploadErrPartial   = 3 // only partially uploaded
	UploadErrNoFile    = 4 // no file was uploaded
	UploadErrNoTmpDir  = 6 // missing temporary directory
	UploadErrCantWrite = 7 // failed to write to disk
	UploadErrExtension = 8 // stopped by an extension
)

// UploadedFile is a single file received with a request.
//
// A file can be moved once. After a successful MoveTo, Stream and MoveTo
// fail with ErrAlreadyMoved. The client filename and media type are
// client-supplied and untrusted.
type UploadedFile struct {
	mu              sync.Mutex
	stream          *Stream
	size            int64
	hasSize         bool
	errCode         int
	clientFilename  string
	clientMediaType string
	moved           bool
}

// NewUploadedFile wraps stream as an uploaded file. A negative size means
// unknown, in which case the stream size is used when available. errCode
// must be one of the UploadErr* codes.
func NewUploadedFile(stream *Stream, size int64, errCode int, clientFilename, clientMediaType string) (*UploadedFile, error) {
	if stream == nil {
		return nil, newError("NewUploadedFile", ErrInvalidArgument, "stream is nil")
	}
	if errCode < UploadErrOK || errCode > UploadErrExtension {
		return nil, newError("NewUploadedFile", ErrInvalidArgument, "invalid upload error code %d", errCode)
	}
	f := &UploadedFile{
		stream:          stream,
		size:            size,
		hasSize:         size >= 0,
		errCode:         errCode,
		clientFilename:  clientFilename,
		clientMediaType: clientMediaType,
	}
	if !f.hasSize {
		f.size, f.hasSize = stream.Size()
	}
	return f, nil
}

// Stream returns the file's stream.
func (f *UploadedFile) Stream() (*Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.moved {
		return nil, newError("Stream", ErrAlreadyMoved, "uploaded file %q has already been moved", f.clientFilename)
	}
	return f.stream, nil
}

// MoveTo moves the file to target. When target is an existing directory the
// base of the client filename is appended. A file-backed stream is renamed
// (or copied when renaming fails, e.g. across devices); any other stream is
// copied. The stream is closed afterwards.
func (f *UploadedFile) MoveTo(target string) error {
	const op = "MoveTo"

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.moved {
		return newError(op, ErrAlreadyMoved, "uploaded file already moved")
	}
	if target == "" {
		return newError(op, ErrInvalidArgument, "target path is empty")
	}
	if fi, err := os.Stat(target); err == nil && fi.IsDir() {
		name := filepath.Base(f.clientFilename)
		if f.clientFilename == "" || name == "." || name == string(filepath.Separator) {
			return newError(op, ErrInvalidArgument, "target %q is a directory and the client filename is empty", target)
		}
		target = filepath.Join(target, name)
	}
	if err := unix.Access(filepath.Dir(target), unix.W_OK); err != nil {
		return wrapError(op, ErrInvalidArgument, err, "target directory of %q is not writable", target)
	}

	if src := f.stream.path(); src != "" {
		if err := os.Rename(src, target); err != nil {
			if cerr := copyFile(src, target); cerr != nil {
				return wrapError(op, ErrMoveFailed, errors.Join(err, cerr), "cannot move %q to %q", f.clientFilename, target)
			}
			os.Remove(src)
		}
	} else if err := f.copyStream(target); err != nil {
		return wrapError(op, ErrMoveFailed, err, "cannot move %q to %q", f.clientFilename, target)
	}

	f.stream.Close()
	f.moved = true
	return nil
}

func (f *UploadedFile) copyStream(target string) error {
	if !f.stream.IsReadable() {
		return newError("MoveTo", ErrNotReadable, "")
	}
	if f.stream.IsSeekable() {
		if err := f.stream.Rewind(); err != nil {
			return err
		}
	}
	return writeFile(target, f.stream)
}

// Size returns the file size, if known.
func (f *UploadedFile) Size() (int64, bool) { return f.size, f.hasSize }

// Error returns the upload error code.
func (f *UploadedFile) Error() int { return f.errCode }

// ClientFilename returns the filename sent by the client.
func (f *UploadedFile) ClientFilename() string { return f.clientFilename }

// ClientMediaType returns the media type sent by the client.
func (f *UploadedFile) ClientMediaType() string { return f.clientMediaType }

// IsMoved reports whether MoveTo has succeeded.
func (f *UploadedFile) IsMoved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moved
}

// WalkUploadedFiles calls fn for every file in an upload tree, with the keys
// leading to it. Map keys are visited in sorted order, sequence elements in
// index order. Walking stops at the first error returned by fn.
func WalkUploadedFiles(tree map[string]any, fn func(path []string, f *UploadedFile) error) error {
	return walkUploads(nil, tree, fn)
}

func walkUploads(path []string, node any, fn func([]string, *UploadedFile) error) error {
	switch n := node.(type) {
	case *UploadedFile:
		return fn(path, n)
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := walkUploads(appendPath(path, k), n[k], fn); err != nil {
				return err
			}
		}
	case []any:
		for i, v := range n {
			if err := walkUploads(appendPath(path, strconv.Itoa(i)), v, fn); err != nil {
				return err
			}
		}
	default:
		return newError("WalkUploadedFiles", ErrInvalidArgument, "unexpected %T in upload tree", node)
	}
	return nil
}

func appendPath(path []string, key string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, key)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	return writeFile(dst, in)
}

func writeFile(dst string, r io.Reader) error {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
