package chat

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ferdianrazak/gemini-chat/internal/api"
	"github.com/ferdianrazak/gemini-chat/internal/gemini"
)

// maxRequestBodySize is the maximum allowed chat request body size (1MB).
const maxRequestBodySize = 1 << 20

// genericFailureMessage is the user-facing message for every failure that has
// no dedicated one. Diagnostic specifics go to the detail field instead, so
// provider internals never surface in the primary message.
const genericFailureMessage = "Something went wrong, please try again later"

// Envelope is the uniform response shape of the chat endpoint. Data is a
// pointer so failures serialize an explicit null.
type Envelope struct {
	Success      bool    `json:"success"`
	Data         *string `json:"data"`
	Message      string  `json:"message"`
	SessionTitle string  `json:"sessionTitle,omitempty"`
	Detail       any     `json:"detail,omitempty"`
}

type chatRequest struct {
	Conversation json.RawMessage `json:"conversation"`
	IsNewSession bool            `json:"isNewSession"`
}

// Handler serves POST /api/chat.
type Handler struct {
	svc *Service
}

// NewHandler creates a chat handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the chat route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
}

// HandleChat validates the payload, runs the orchestration and maps every
// outcome into the envelope.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, genericFailureMessage, "conversation at body should be array")
		return
	}

	turns, err := decodeConversation(req.Conversation)
	if err != nil {
		h.fail(w, http.StatusBadRequest, genericFailureMessage, "conversation at body should be array")
		return
	}

	reply, title, err := h.svc.Respond(r.Context(), turns, req.IsNewSession)
	if err != nil {
		h.writeError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, Envelope{
		Success:      true,
		Data:         &reply,
		Message:      "success",
		SessionTitle: title,
	})
}

// decodeConversation rejects anything that is not a JSON array of turns.
func decodeConversation(raw json.RawMessage) ([]*Turn, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("conversation missing")
	}
	var turns []*Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

// writeError classifies a failed orchestration into the HTTP outcome.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		h.fail(w, http.StatusBadRequest, genericFailureMessage, verr.Detail)
		return
	}

	var apiErr *gemini.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			h.fail(w, http.StatusTooManyRequests, "rate limit exceeded, try again later", apiErr.Message)
		case apiErr.StatusCode == http.StatusBadRequest && apiErr.SafetyBlocked():
			h.fail(w, http.StatusBadRequest, "content blocked for safety", apiErr.SafetyRatings())
		case apiErr.StatusCode == http.StatusBadRequest:
			h.fail(w, http.StatusBadRequest, genericFailureMessage, apiErr.Message)
		default:
			status := apiErr.StatusCode
			if status == 0 {
				status = http.StatusInternalServerError
			}
			h.fail(w, status, genericFailureMessage, apiErr.Message)
		}
		return
	}

	slog.Error("chat request failed", "error", err)
	h.fail(w, http.StatusInternalServerError, genericFailureMessage, err.Error())
}

func (h *Handler) fail(w http.ResponseWriter, status int, message string, detail any) {
	api.JSON(w, status, Envelope{
		Success: false,
		Data:    nil,
		Message: message,
		Detail:  detail,
	})
}
