package conversation

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/wolfman30/medcompanion-ai/pkg/logging"
)

// ChatRequest is the POST /chatbot body.
type ChatRequest struct {
	UserID      string        `json:"user_id"`
	Message     string        `json:"message"`
	ChatHistory []HistoryPair `json:"chat_history"`
}

// Validate implements validation.Validatable.
func (r ChatRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UserID, validation.Required, validation.Length(1, 128)),
		validation.Field(&r.Message, validation.Required),
	)
}

// ChatResponse is the success body.
type ChatResponse struct {
	BotResponse string `json:"botResponse"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler wires HTTP requests to the reply orchestrator.
type Handler struct {
	producer ReplyProducer
	logger   *logging.Logger
}

// NewHandler creates a chatbot handler.
func NewHandler(producer ReplyProducer, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		producer: producer,
		logger:   logger,
	}
}

// Chat handles POST /chatbot.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chatbot request", "error", err)
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := req.Validate(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	reply, err := h.producer.ProduceReply(r.Context(), req.UserID, req.Message, HistoryFromPairs(req.ChatHistory))
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message: cannot be blank."})
			return
		}
		h.logger.Error("failed to produce reply", "user_id", req.UserID, "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to generate reply"})
		return
	}

	h.writeJSON(w, http.StatusOK, ChatResponse{BotResponse: reply})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
