package transport

import (
	"fmt"
	"io"
	"net/http"

	shapehttp "github.com/shapestone/shape-message/pkg/http"
)

// WriteResponse writes resp to w: headers in insertion order, the status
// code, then the body from its start. net/http always sends the canonical
// reason phrase, so a custom one is dropped.
func WriteResponse(w http.ResponseWriter, resp *shapehttp.Response) error {
	h := w.Header()
	for _, f := range resp.HeaderMap().Fields() {
		h.Add(f.Key, f.Value)
	}

	body := resp.Body()
	if body.IsSeekable() {
		if err := body.Rewind(); err != nil {
			return fmt.Errorf("transport: rewind body: %w", err)
		}
	}

	w.WriteHeader(resp.StatusCode())
	if !body.IsReadable() {
		return nil
	}
	if _, err := io.Copy(w, body); err != nil {
		return fmt.Errorf("transport: write body: %w", err)
	}
	return nil
}
