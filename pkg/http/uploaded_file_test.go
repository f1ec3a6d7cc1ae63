package http

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.tmp")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewUploadedFile(t *testing.T) {
	f, err := NewUploadedFile(NewMemoryStream("abc"), -1, UploadErrOK, "a.txt", "text/plain")
	if err != nil {
		t.Fatalf("NewUploadedFile() error = %v", err)
	}
	if size, ok := f.Size(); !ok || size != 3 {
		t.Errorf("Size() = %d, %v; want 3 from stream", size, ok)
	}
	if f.Error() != UploadErrOK || f.ClientFilename() != "a.txt" || f.ClientMediaType() != "text/plain" {
		t.Errorf("fields = %d %q %q", f.Error(), f.ClientFilename(), f.ClientMediaType())
	}

	explicit, _ := NewUploadedFile(NewMemoryStream("abc"), 10, UploadErrPartial, "", "")
	if size, _ := explicit.Size(); size != 10 {
		t.Errorf("Size() = %d, want explicit 10", size)
	}

	if _, err := NewUploadedFile(nil, 0, UploadErrOK, "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil stream error = %v, want ErrInvalidArgument", err)
	}
	if _, err := NewUploadedFile(NewMemoryStream(""), 0, 9, "", ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("error code 9 error = %v, want ErrInvalidArgument", err)
	}
}

func TestUploadedFile_MoveOnce(t *testing.T) {
	src := writeTemp(t, "file body")
	stream, err := OpenStream(src, "r")
	if err != nil {
		t.Fatal(err)
	}
	f, _ := NewUploadedFile(stream, -1, UploadErrOK, "report.pdf", "application/pdf")

	target := filepath.Join(t.TempDir(), "moved.pdf")
	if err := f.MoveTo(target); err != nil {
		t.Fatalf("MoveTo() error = %v", err)
	}
	if !f.IsMoved() {
		t.Error("IsMoved() = false after MoveTo")
	}
	if data, _ := os.ReadFile(target); string(data) != "file body" {
		t.Errorf("target content = %q", data)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still exists after move: %v", err)
	}

	if err := f.MoveTo(target + ".again"); !errors.Is(err, ErrAlreadyMoved) {
		t.Errorf("second MoveTo() error = %v, want ErrAlreadyMoved", err)
	}
	if _, err := f.Stream(); !errors.Is(err, ErrAlreadyMoved) {
		t.Errorf("Stream() after move error = %v, want ErrAlreadyMoved", err)
	}
}

func TestUploadedFile_MoveMemoryStream(t *testing.T) {
	f, _ := NewUploadedFile(NewMemoryStream("in memory"), -1, UploadErrOK, "note.txt", "text/plain")

	// reading first must not affect what gets moved
	s, _ := f.Stream()
	s.Contents()

	target := filepath.Join(t.TempDir(), "note.txt")
	if err := f.MoveTo(target); err != nil {
		t.Fatalf("MoveTo() error = %v", err)
	}
	if data, _ := os.ReadFile(target); string(data) != "in memory" {
		t.Errorf("target content = %q, want in memory", data)
	}
}

func TestUploadedFile_MoveIntoDirectory(t *testing.T) {
	f, _ := NewUploadedFile(NewMemoryStream("x"), -1, UploadErrOK, "../../etc/avatar.png", "image/png")
	dir := t.TempDir()

	if err := f.MoveTo(dir); err != nil {
		t.Fatalf("MoveTo(dir) error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "avatar.png")); err != nil {
		t.Errorf("file not placed in directory: %v", err)
	}
}

func TestUploadedFile_MoveErrors(t *testing.T) {
	tests := []struct {
		name   string
		target func(t *testing.T) string
		kind   error
	}{
		{"empty target", func(t *testing.T) string { return "" }, ErrInvalidArgument},
		{"missing directory", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "no", "such", "dir", "f")
		}, ErrInvalidArgument},
		{"target is directory without filename", func(t *testing.T) string { return t.TempDir() }, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := NewUploadedFile(NewMemoryStream("x"), -1, UploadErrOK, "", "")
			err := f.MoveTo(tt.target(t))
			if !errors.Is(err, tt.kind) {
				t.Errorf("MoveTo() error = %v, want %v", err, tt.kind)
			}
			if f.IsMoved() {
				t.Error("IsMoved() = true after failed MoveTo")
			}
		})
	}
}

func TestUploadedFile_MoveFailed(t *testing.T) {
	// a write-only stream cannot be copied out
	s, _ := NewStream(&strings.Builder{}, "w")
	f, _ := NewUploadedFile(s, -1, UploadErrOK, "w.txt", "")

	err := f.MoveTo(filepath.Join(t.TempDir(), "w.txt"))
	if !errors.Is(err, ErrMoveFailed) {
		t.Errorf("MoveTo() error = %v, want ErrMoveFailed", err)
	}
	if f.IsMoved() {
		t.Error("IsMoved() = true after failed MoveTo")
	}
}

func TestUploadedFile_ConcurrentMove(t *testing.T) {
	f, _ := NewUploadedFile(NewMemoryStream("race"), -1, UploadErrOK, "r.txt", "")
	dir := t.TempDir()

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.MoveTo(filepath.Join(dir, "r"+string(rune('a'+i))))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case !errors.Is(err, ErrAlreadyMoved):
			t.Errorf("MoveTo() error = %v, want nil or ErrAlreadyMoved", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("%d moves succeeded, want exactly 1", succeeded)
	}
}

func TestWalkUploadedFiles(t *testing.T) {
	a, _ := NewUploadedFile(NewMemoryStream(""), 0, UploadErrNoFile, "a", "")
	b, _ := NewUploadedFile(NewMemoryStream(""), 0, UploadErrNoFile, "b", "")
	c, _ := NewUploadedFile(NewMemoryStream(""), 0, UploadErrNoFile, "c", "")
	tree := map[string]any{
		"z":    a,
		"docs": []any{b, map[string]any{"inner": c}},
	}

	var paths []string
	err := WalkUploadedFiles(tree, func(path []string, f *UploadedFile) error {
		paths = append(paths, strings.Join(path, ".")+"="+f.ClientFilename())
		return nil
	})
	if err != nil {
		t.Fatalf("WalkUploadedFiles() error = %v", err)
	}
	want := []string{"docs.0=b", "docs.1.inner=c", "z=a"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("paths = %q, want %q", paths, want)
	}

	stop := errors.New("stop")
	if err := WalkUploadedFiles(tree, func([]string, *UploadedFile) error { return stop }); err != stop {
		t.Errorf("WalkUploadedFiles() error = %v, want stop", err)
	}

	bad := map[string]any{"x": "not a file"}
	if err := WalkUploadedFiles(bad, func([]string, *UploadedFile) error { return nil }); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("WalkUploadedFiles(bad) error = %v, want ErrInvalidArgument", err)
	}
}
