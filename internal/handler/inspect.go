package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/shapestone/shape-message/internal/config"
	"github.com/shapestone/shape-message/internal/metrics"
	"github.com/shapestone/shape-message/internal/middleware"
	"github.com/shapestone/shape-message/internal/transport"
	shapehttp "github.com/shapestone/shape-message/pkg/http"
)

// InspectHandler answers every request with the JSON rendering of the
// ServerRequest built from it.
type InspectHandler struct {
	upload  config.UploadConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewInspectHandler creates an InspectHandler.
func NewInspectHandler(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) *InspectHandler {
	return &InspectHandler{
		upload:  cfg.Upload,
		metrics: m,
		logger:  logger.With("component", "inspect"),
	}
}

// Handle builds a ServerRequest from the inbound request, tags it with the
// request ID, moves uploads into the upload directory when configured, and
// writes the rendering back as a Response.
func (h *InspectHandler) Handle(c echo.Context) error {
	raw, err := transport.FromRequest(c.Request(), transport.Options{
		TempDir:   h.upload.TempDir,
		MaxMemory: h.upload.MaxMemory,
	})
	if err != nil {
		if he := bodyLimitError(err); he != nil {
			return he
		}
		h.metrics.MessagesBuilt.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer func() {
		if err := raw.Close(); err != nil {
			h.logger.Warn("remove temporary uploads", "err", err)
		}
	}()

	req, err := shapehttp.NewServerRequestFromEnv(raw.Env)
	if err != nil {
		if he := bodyLimitError(err); he != nil {
			return he
		}
		outcome, status := classify(err)
		h.metrics.MessagesBuilt.WithLabelValues(outcome).Inc()
		if status >= http.StatusInternalServerError {
			return fmt.Errorf("handler: build server request: %w", err)
		}
		return echo.NewHTTPError(status, err.Error())
	}
	h.metrics.MessagesBuilt.WithLabelValues(metrics.OutcomeOK).Inc()
	defer closeUploads(req)

	id := middleware.GetRequestID(c)
	req = req.WithAttribute("request_id", id)

	if h.upload.Keep && len(req.UploadedFiles()) > 0 {
		dir, err := h.storeUploads(req, id)
		if err != nil {
			return fmt.Errorf("handler: store uploads: %w", err)
		}
		req = req.WithAttribute("upload_dir", dir)
	}
	h.countUploads(req)

	resp, err := render(req)
	if err != nil {
		return fmt.Errorf("handler: render: %w", err)
	}
	return transport.WriteResponse(c.Response(), resp)
}

// bodyLimitError returns the HTTP error raised by Echo's body limit while
// the body was being read, if any.
func bodyLimitError(err error) *echo.HTTPError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}
	return nil
}

// classify maps a construction failure to a metrics outcome and status.
func classify(err error) (string, int) {
	switch {
	case errors.Is(err, shapehttp.ErrMalformed):
		return metrics.OutcomeMalformed, http.StatusBadRequest
	case errors.Is(err, shapehttp.ErrInvalidArgument):
		return metrics.OutcomeInvalid, http.StatusBadRequest
	default:
		return metrics.OutcomeError, http.StatusInternalServerError
	}
}

// storeUploads moves every successful upload into a per-request directory.
// Files are named after their position in the upload tree so that equal
// client filenames cannot collide.
func (h *InspectHandler) storeUploads(req *shapehttp.ServerRequest, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}
	dir := filepath.Join(h.upload.Dir, id)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", err
	}

	err := shapehttp.WalkUploadedFiles(req.UploadedFiles(), func(path []string, f *shapehttp.UploadedFile) error {
		if f.Error() != shapehttp.UploadErrOK {
			return nil
		}
		target := filepath.Join(dir, uploadName(path, f.ClientFilename()))
		if err := f.MoveTo(target); err != nil {
			return err
		}
		h.logger.Debug("upload stored", "field", strings.Join(path, "."), "target", target)
		return nil
	})
	return dir, err
}

// uploadName joins the tree path and the base client filename.
func uploadName(path []string, clientFilename string) string {
	name := strings.Join(path, ".")
	if base := filepath.Base(clientFilename); clientFilename != "" && base != "." && base != string(filepath.Separator) {
		name += "_" + base
	}
	return name
}

func (h *InspectHandler) countUploads(req *shapehttp.ServerRequest) {
	_ = shapehttp.WalkUploadedFiles(req.UploadedFiles(), func(_ []string, f *shapehttp.UploadedFile) error {
		moved := f.IsMoved()
		h.metrics.UploadsTotal.WithLabelValues(strconv.Itoa(f.Error()), strconv.FormatBool(moved)).Inc()
		if size, ok := f.Size(); ok && moved {
			h.metrics.UploadBytes.Add(float64(size))
		}
		return nil
	})
}

// closeUploads releases the streams of uploads that were not moved.
func closeUploads(req *shapehttp.ServerRequest) {
	_ = shapehttp.WalkUploadedFiles(req.UploadedFiles(), func(_ []string, f *shapehttp.UploadedFile) error {
		if s, err := f.Stream(); err == nil {
			s.Close()
		}
		return nil
	})
}

func render(req *shapehttp.ServerRequest) (*shapehttp.Response, error) {
	data, err := json.Marshal(shapehttp.NodeToInterface(shapehttp.ServerRequestToNode(req)))
	if err != nil {
		return nil, err
	}

	resp, err := shapehttp.NewResponseWithStatus(http.StatusOK)
	if err != nil {
		return nil, err
	}
	resp, err = resp.WithHeader("Content-Type", "application/json; charset=utf-8")
	if err != nil {
		return nil, err
	}
	if _, err := resp.Write(data); err != nil {
		return nil, err
	}
	return resp, nil
}
