// Package transport converts between net/http messages and shape-message
// values. It extracts the raw request environment that
// http.NewServerRequestFromEnv consumes and writes Response values back.
package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shapestone/shape-message/internal/parser"
	shapehttp "github.com/shapestone/shape-message/pkg/http"
)

const (
	defaultMaxMemory = 32 << 20
	spoolWorkers     = 4
)

// Options controls how request bodies are read.
type Options struct {
	// TempDir receives uploaded parts. Empty means os.TempDir().
	TempDir string
	// MaxMemory bounds the multipart form kept in memory.
	MaxMemory int64
}

// Request is the environment extracted from one inbound request.
// Close removes the temporary upload files that were not moved.
type Request struct {
	Env shapehttp.Env

	tempFiles []string
	form      *multipart.Form
}

// FromRequest extracts the server variables, cookies, form body, uploads
// and raw body of r.
//
// URL-encoded and multipart bodies become the parsed body using bracket
// notation ("a[b][]"). Each multipart file is copied to a temporary file and
// described in the raw upload layout, with parallel sequences for "name[]"
// fields. Any other body is passed through unread as the input stream.
func FromRequest(r *http.Request, opts Options) (*Request, error) {
	out := &Request{
		Env: shapehttp.Env{
			Server:  ServerVars(r),
			Cookies: cookies(r),
		},
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded":
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("transport: read form body: %w", err)
		}
		out.Env.ParsedBody = formValues(string(raw))
		out.Env.Input = bytes.NewReader(raw)

	case "multipart/form-data":
		maxMemory := opts.MaxMemory
		if maxMemory <= 0 {
			maxMemory = defaultMaxMemory
		}
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("transport: multipart form: %w", err)
		}
		out.form = r.MultipartForm
		out.Env.ParsedBody = formValues(url.Values(r.MultipartForm.Value).Encode())

		files, err := out.uploads(r.MultipartForm.File, opts.TempDir)
		if err != nil {
			out.Close()
			return nil, err
		}
		out.Env.Files = files

	default:
		if r.Body != nil && r.Body != http.NoBody {
			out.Env.Input = r.Body
		}
	}

	return out, nil
}

// Close removes temporary upload files and multipart spill files.
func (r *Request) Close() error {
	var errs []error
	for _, path := range r.tempFiles {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	r.tempFiles = nil
	if r.form != nil {
		if err := r.form.RemoveAll(); err != nil {
			errs = append(errs, err)
		}
		r.form = nil
	}
	return errors.Join(errs...)
}

// ServerVars describes r as CGI-style server variables.
func ServerVars(r *http.Request) map[string]string {
	vars := map[string]string{
		"REQUEST_METHOD":  r.Method,
		"REQUEST_URI":     r.RequestURI,
		"QUERY_STRING":    r.URL.RawQuery,
		"SERVER_PROTOCOL": r.Proto,
		"REQUEST_TIME":    strconv.FormatInt(time.Now().Unix(), 10),
		"HTTPS":           "off",
	}
	if vars["REQUEST_URI"] == "" {
		vars["REQUEST_URI"] = r.URL.RequestURI()
	}

	port := "80"
	if r.TLS != nil {
		vars["HTTPS"] = "on"
		port = "443"
	}
	host := r.Host
	if h, p, err := net.SplitHostPort(r.Host); err == nil {
		host, port = h, p
	}
	vars["SERVER_NAME"] = host
	vars["SERVER_PORT"] = port
	if r.Host != "" {
		vars["HTTP_HOST"] = r.Host
	}

	if addr, p, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		vars["REMOTE_ADDR"] = addr
		vars["REMOTE_PORT"] = p
	} else if r.RemoteAddr != "" {
		vars["REMOTE_ADDR"] = r.RemoteAddr
	}

	for name, values := range r.Header {
		vars[serverKey(name)] = strings.Join(values, ", ")
	}
	if _, ok := vars["CONTENT_LENGTH"]; !ok && r.ContentLength > 0 {
		vars["CONTENT_LENGTH"] = strconv.FormatInt(r.ContentLength, 10)
	}

	if user, pass, ok := r.BasicAuth(); ok {
		vars["PHP_AUTH_USER"] = user
		vars["PHP_AUTH_PW"] = pass
		vars["AUTH_TYPE"] = "Basic"
	}
	return vars
}

// serverKey maps a header name to its server variable: "X-Trace-Id" becomes
// HTTP_X_TRACE_ID. Content-Type and Content-Length carry no HTTP_ prefix.
func serverKey(name string) string {
	key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
	switch key {
	case "CONTENT_TYPE", "CONTENT_LENGTH", "CONTENT_MD5":
		return key
	}
	return "HTTP_" + key
}

// cookies returns the first value of each cookie name.
func cookies(r *http.Request) map[string]string {
	out := make(map[string]string)
	for _, c := range r.Cookies() {
		if _, ok := out[c.Name]; !ok {
			out[c.Name] = c.Value
		}
	}
	return out
}

// formValues decodes a form-encoded string with bracket notation.
func formValues(raw string) map[string]any {
	if m, ok := shapehttp.NodeToInterface(parser.ParseQuery(raw)).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

var uploadAttrs = []string{"name", "type", "tmp_name", "error", "size"}

// uploads copies every file part to a temporary file and returns the raw
// upload tree. Parts are spooled concurrently; the tree is assembled in
// sorted field order so repeated fields keep their submission order.
func (r *Request) uploads(fields map[string][]*multipart.FileHeader, dir string) (map[string]any, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	type part struct {
		field string
		fh    *multipart.FileHeader
		rec   map[string]any
		tmp   string
	}
	var parts []*part
	for _, name := range names {
		for _, fh := range fields[name] {
			parts = append(parts, &part{field: name, fh: fh})
		}
	}

	var g errgroup.Group
	g.SetLimit(spoolWorkers)
	for _, p := range parts {
		g.Go(func() error {
			var err error
			p.rec, p.tmp, err = saveUpload(p.fh, dir)
			return err
		})
	}
	err := g.Wait()
	for _, p := range parts {
		if p.tmp != "" {
			r.tempFiles = append(r.tempFiles, p.tmp)
		}
	}
	if err != nil {
		return nil, err
	}

	tree := make(map[string]any)
	for _, p := range parts {
		addUpload(tree, p.field, p.rec)
	}
	return tree, nil
}

// saveUpload copies one part to disk and returns its raw record and the
// temporary path it created, if any. A part that cannot be written is
// reported with UploadErrCantWrite rather than failing the request.
func saveUpload(fh *multipart.FileHeader, dir string) (map[string]any, string, error) {
	rec := map[string]any{
		"name":     fh.Filename,
		"type":     fh.Header.Get("Content-Type"),
		"tmp_name": "",
		"error":    shapehttp.UploadErrOK,
		"size":     fh.Size,
	}

	src, err := fh.Open()
	if err != nil {
		return nil, "", fmt.Errorf("transport: open part %q: %w", fh.Filename, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, "shape-upload-*")
	if err != nil {
		rec["error"] = shapehttp.UploadErrNoTmpDir
		return rec, "", nil
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		rec["error"] = shapehttp.UploadErrCantWrite
		return rec, dst.Name(), nil
	}
	if err := dst.Close(); err != nil {
		rec["error"] = shapehttp.UploadErrCantWrite
		return rec, dst.Name(), nil
	}
	rec["tmp_name"] = dst.Name()
	return rec, dst.Name(), nil
}

// addUpload places rec under field in tree. Bracketed fields spread each
// attribute over nested containers: "docs[]" yields
// {"docs": {"name": [..], "error": [..], ...}}.
func addUpload(tree map[string]any, field string, rec map[string]any) {
	base, segments := parser.SplitKey(field)
	if len(segments) == 0 {
		tree[base] = rec
		return
	}

	node, ok := tree[base].(map[string]any)
	if !ok {
		node = make(map[string]any, len(uploadAttrs))
		tree[base] = node
	}
	for _, attr := range uploadAttrs {
		node[attr] = insertAt(node[attr], segments, rec[attr])
	}
}

func insertAt(container any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}
	if segments[0] == "" {
		list, _ := container.([]any)
		return append(list, insertAt(nil, segments[1:], value))
	}
	m, ok := container.(map[string]any)
	if !ok {
		m = make(map[string]any)
	}
	m[segments[0]] = insertAt(m[segments[0]], segments[1:], value)
	return m
}
