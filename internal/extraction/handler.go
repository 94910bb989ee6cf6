package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/wolfman30/medcompanion-ai/internal/ocr"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

// DefaultMaxUploadBytes bounds image uploads when no limit is configured.
const DefaultMaxUploadBytes int64 = 10 << 20

// ImageExtractor is what the HTTP layer needs from Service.
type ImageExtractor interface {
	ExtractFromImage(ctx context.Context, img ocr.Image) (Extraction, error)
}

// Base64Request is the POST /ocr/base64 body.
type Base64Request struct {
	ImageBase64 string `json:"image_base64"`
}

// Validate implements validation.Validatable.
func (r Base64Request) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ImageBase64, validation.Required),
	)
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler wires HTTP requests to the extraction service.
type Handler struct {
	service  ImageExtractor
	maxBytes int64
	logger   *logging.Logger
}

// NewHandler creates an OCR handler. maxBytes <= 0 uses DefaultMaxUploadBytes.
func NewHandler(service ImageExtractor, maxBytes int64, logger *logging.Logger) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, maxBytes: maxBytes, logger: logger}
}

// Upload handles POST /ocr with a multipart "file" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart form"})
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file: cannot be blank."})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		h.logger.Warn("failed to read upload", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read file"})
		return
	}
	if int64(len(data)) > h.maxBytes {
		h.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file too large"})
		return
	}

	img, err := ocr.NewImage(data)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: imageErrorMessage(err)})
		return
	}
	h.extract(w, r, img)
}

// Base64 handles POST /ocr/base64 with a JSON {"image_base64": "..."} body.
func (h *Handler) Base64(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes*4/3+1<<10)
	var req Base64Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	img, err := ocr.DecodeBase64Image(req.ImageBase64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: imageErrorMessage(err)})
		return
	}
	h.extract(w, r, img)
}

func (h *Handler) extract(w http.ResponseWriter, r *http.Request, img ocr.Image) {
	out, err := h.service.ExtractFromImage(r.Context(), img)
	if err != nil {
		h.logger.Error("extraction request failed", "error", err)
		msg := "failed to process image"
		if ocr.IsRecognitionError(err) {
			msg = "text recognition failed"
		}
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg})
		return
	}
	h.writeJSON(w, http.StatusOK, out)
}

func imageErrorMessage(err error) string {
	switch {
	case errors.Is(err, ocr.ErrEmptyImage):
		return "image is empty"
	case errors.Is(err, ocr.ErrUnsupportedFormat):
		return "unsupported image format; use png, jpeg, gif or webp"
	default:
		return "invalid image data"
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
