// Package prompt implements the one-shot prompt endpoints: plain text plus
// the media variants (image, document, audio) that pair an uploaded file
// with a text instruction.
package prompt

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ferdianrazak/gemini-chat/internal/api"
	"github.com/ferdianrazak/gemini-chat/internal/config"
	"github.com/ferdianrazak/gemini-chat/internal/gemini"
	"github.com/ferdianrazak/gemini-chat/internal/upload"
)

const (
	// maxJSONBody limits plain JSON request bodies (1MB).
	maxJSONBody = 1 << 20
	// maxUploadBody limits multipart request bodies (25MB).
	maxUploadBody = 25 << 20
)

// Generator issues one-shot content generation calls.
type Generator interface {
	GenerateContent(ctx context.Context, model string, req gemini.GenerateRequest) (*gemini.GenerateResponse, error)
}

// FileUploader pushes a staged file into the provider's file store.
type FileUploader interface {
	UploadFile(ctx context.Context, path, mimeType string) (*gemini.FileInfo, error)
}

// Handler serves the prompt endpoints. All dependencies are injected at
// startup; there is no package-level state.
type Handler struct {
	gen     Generator
	files   FileUploader
	models  config.Models
	staging *upload.Staging
}

// NewHandler creates a prompt handler.
func NewHandler(gen Generator, files FileUploader, models config.Models, staging *upload.Staging) *Handler {
	return &Handler{gen: gen, files: files, models: models, staging: staging}
}

// RegisterRoutes registers the prompt routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/generate-text", h.HandleText)
	r.Post("/api/generate-from-image", h.HandleImage)
	r.Post("/api/generate-from-document", h.HandleDocument)
	r.Post("/api/generate-from-audio", h.HandleAudio)
}

// HandleText forwards a single string as a one-shot prompt.
func (h *Handler) HandleText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	var req struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Message(w, http.StatusBadRequest, "Payload shouldn't be empty")
		return
	}

	message, ok := decodeStringField(req.Message)
	if !ok {
		api.Message(w, http.StatusBadRequest, "message at body should be a string")
		return
	}

	resp, err := h.gen.GenerateContent(r.Context(), h.models.Text, gemini.GenerateRequest{
		Contents: []gemini.Content{gemini.UserContent(gemini.Text(message))},
	})
	if err != nil {
		slog.Error("text prompt failed", "error", err)
		api.Message(w, http.StatusInternalServerError, "Server Error")
		return
	}

	api.Reply(w, resp.Text())
}

// HandleImage uploads the staged image to the provider's file store and
// references it by URI, unlike the inline transports below.
func (h *Handler) HandleImage(w http.ResponseWriter, r *http.Request) {
	asset, message, ok := h.stageUpload(w, r, "image")
	if !ok {
		return
	}
	defer h.discard(asset)

	if !strings.HasPrefix(asset.MimeType, "image/") {
		api.Message(w, http.StatusBadRequest, "Uploaded file must be an image")
		return
	}

	info, err := h.files.UploadFile(r.Context(), asset.Path, asset.MimeType)
	if err != nil {
		h.serverError(w, "image upload to provider failed", err)
		return
	}

	resp, err := h.gen.GenerateContent(r.Context(), h.models.Image, gemini.GenerateRequest{
		Contents: []gemini.Content{gemini.UserContent(
			gemini.Text(message),
			gemini.Part{FileData: &gemini.FileData{MimeType: info.MimeType, FileURI: info.URI}},
		)},
	})
	if err != nil {
		h.serverError(w, "image prompt failed", err)
		return
	}

	api.Reply(w, resp.Text())
}

// HandleDocument sends the staged document inline, base64-encoded.
func (h *Handler) HandleDocument(w http.ResponseWriter, r *http.Request) {
	h.handleInline(w, r, "document", h.models.Document)
}

// HandleAudio sends the staged audio inline, base64-encoded.
func (h *Handler) HandleAudio(w http.ResponseWriter, r *http.Request) {
	h.handleInline(w, r, "audio", h.models.Audio)
}

func (h *Handler) handleInline(w http.ResponseWriter, r *http.Request, field, model string) {
	asset, message, ok := h.stageUpload(w, r, field)
	if !ok {
		return
	}
	defer h.discard(asset)

	data, err := os.ReadFile(asset.Path)
	if err != nil {
		h.serverError(w, "failed to read staged "+field, err)
		return
	}

	resp, err := h.gen.GenerateContent(r.Context(), model, gemini.GenerateRequest{
		Contents: []gemini.Content{gemini.UserContent(
			gemini.Text(message),
			gemini.Part{InlineData: &gemini.Blob{
				MimeType: asset.MimeType,
				Data:     base64.StdEncoding.EncodeToString(data),
			}},
		)},
	})
	if err != nil {
		h.serverError(w, field+" prompt failed", err)
		return
	}

	api.Reply(w, resp.Text())
}

// stageUpload parses the multipart body, validates the message field and
// stages the uploaded file. On failure it writes the response itself and
// returns ok=false.
func (h *Handler) stageUpload(w http.ResponseWriter, r *http.Request, field string) (asset *upload.Asset, message string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

	if err := r.ParseMultipartForm(maxUploadBody); err != nil {
		api.Message(w, http.StatusBadRequest, "Payload shouldn't be empty")
		return nil, "", false
	}

	values := r.MultipartForm.Value["message"]
	if len(values) == 0 {
		api.Message(w, http.StatusBadRequest, "message at body should be a string")
		return nil, "", false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		api.Message(w, http.StatusBadRequest, field+" file is required")
		return nil, "", false
	}
	defer file.Close()

	asset, err = h.staging.Save(file, header)
	if err != nil {
		slog.Error("failed to stage upload", "field", field, "error", err)
		api.Error(w, http.StatusInternalServerError, "Server Error")
		return nil, "", false
	}
	return asset, values[0], true
}

// discard removes a staged file; it runs on every exit path after staging.
func (h *Handler) discard(asset *upload.Asset) {
	if err := asset.Remove(); err != nil {
		slog.Warn("failed to remove staged upload", "path", asset.Path, "error", err)
	}
}

func (h *Handler) serverError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	api.Error(w, http.StatusInternalServerError, "Server Error")
}

// decodeStringField accepts only a JSON string; absent, null, or any other
// type is rejected.
func decodeStringField(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
