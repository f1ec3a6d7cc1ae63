package http

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func baseServer() map[string]string {
	return map[string]string{
		"REQUEST_METHOD": "POST",
		"REQUEST_URI":    "/submit?x=1",
		"QUERY_STRING":   "x=1",
		"HTTP_HOST":      "example.com",
		"SERVER_PORT":    "80",
	}
}

func TestNewServerRequestFromEnv(t *testing.T) {
	tmp := writeTemp(t, "file")
	server := baseServer()
	server["CONTENT_TYPE"] = "application/x-www-form-urlencoded"

	req, err := NewServerRequestFromEnv(Env{
		Server:     server,
		ParsedBody: map[string]any{"field": "value"},
		Cookies:    map[string]string{"sid": "1"},
		Files: map[string]any{
			"upload": map[string]any{"name": "f.txt", "type": "text/plain", "tmp_name": tmp, "error": 0, "size": 4},
		},
		Input: strings.NewReader("field=value"),
	})
	if err != nil {
		t.Fatalf("NewServerRequestFromEnv() error = %v", err)
	}

	if req.Method() != "POST" {
		t.Errorf("Method() = %q, want POST", req.Method())
	}
	if got := req.URI().String(); got != "http://example.com/submit?x=1" {
		t.Errorf("URI() = %q", got)
	}
	if got := req.QueryParams(); !reflect.DeepEqual(got, map[string]any{"x": "1"}) {
		t.Errorf("QueryParams() = %v", got)
	}
	if got := req.ParsedBody(); !reflect.DeepEqual(got, map[string]any{"field": "value"}) {
		t.Errorf("ParsedBody() = %v", got)
	}
	if got := req.CookieParams()["sid"]; got != "1" {
		t.Errorf("CookieParams()[sid] = %q", got)
	}
	if _, ok := req.UploadedFiles()["upload"].(*UploadedFile); !ok {
		t.Errorf("UploadedFiles()[upload] = %T", req.UploadedFiles()["upload"])
	}

	body := req.Body()
	if body.IsWritable() {
		t.Error("raw input body is writable")
	}
	if got, _ := body.Contents(); got != "field=value" {
		t.Errorf("Body().Contents() = %q", got)
	}
}

func TestNewServerRequestFromEnv_Protocol(t *testing.T) {
	server := baseServer()
	server["SERVER_PROTOCOL"] = "HTTP/2.0"

	req, err := NewServerRequestFromEnv(Env{Server: server})
	if err != nil {
		t.Fatalf("NewServerRequestFromEnv() error = %v", err)
	}
	if got := req.ProtocolVersion(); got != "2.0" {
		t.Errorf("ProtocolVersion() = %q, want 2.0", got)
	}
}

func TestNewServerRequestFromEnv_ExplicitQuery(t *testing.T) {
	req, err := NewServerRequestFromEnv(Env{
		Server: baseServer(),
		Query:  map[string]any{"x": "override"},
	})
	if err != nil {
		t.Fatalf("NewServerRequestFromEnv() error = %v", err)
	}
	if got := req.QueryParams()["x"]; got != "override" {
		t.Errorf("QueryParams()[x] = %v, want override", got)
	}
}

func TestNewServerRequestFromEnv_JSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  any
	}{
		{"object", `{"name":"Alice","tags":["a","b"]}`, map[string]any{"name": "Alice", "tags": []any{"a", "b"}}},
		{"array", `[1,2]`, []any{float64(1), float64(2)}},
		{"empty", ``, map[string]any{"form": "kept"}},
		{"null", `null`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := baseServer()
			server["CONTENT_TYPE"] = "application/json; charset=utf-8"

			req, err := NewServerRequestFromEnv(Env{
				Server:     server,
				ParsedBody: map[string]any{"form": "kept"},
				Input:      strings.NewReader(tt.input),
			})
			if err != nil {
				t.Fatalf("NewServerRequestFromEnv() error = %v", err)
			}
			if got := req.ParsedBody(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParsedBody() = %#v, want %#v", got, tt.want)
			}
			if !req.Body().IsSeekable() {
				t.Error("JSON body is not buffered")
			}
			if got := req.Body().String(); got != tt.input {
				t.Errorf("Body().String() = %q, want %q", got, tt.input)
			}
		})
	}
}

func TestNewServerRequestFromEnv_Errors(t *testing.T) {
	jsonServer := baseServer()
	jsonServer["CONTENT_TYPE"] = "application/json"

	noURI := baseServer()
	delete(noURI, "REQUEST_URI")

	badMethod := baseServer()
	badMethod["REQUEST_METHOD"] = "BREW"

	tests := []struct {
		name string
		env  Env
		kind error
	}{
		{"invalid json", Env{Server: jsonServer, Input: strings.NewReader(`{"a":`)}, ErrMalformed},
		{"json scalar", Env{Server: jsonServer, Input: strings.NewReader(`"text"`)}, ErrMalformed},
		{"missing request uri", Env{Server: noURI}, ErrMalformed},
		{"bad method", Env{Server: badMethod}, ErrInvalidArgument},
		{"bad parsed body", Env{Server: baseServer(), ParsedBody: "raw"}, ErrInvalidArgument},
		{"bad upload", Env{Server: baseServer(), Files: map[string]any{"f": map[string]any{"error": 0}}}, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServerRequestFromEnv(tt.env)
			if !errors.Is(err, tt.kind) {
				t.Errorf("NewServerRequestFromEnv() error = %v, want %v", err, tt.kind)
			}
		})
	}
}
