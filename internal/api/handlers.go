package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/travelbot-core/server/internal/agent/model"
	errx "github.com/travelbot-core/server/internal/core/error"
	logx "github.com/travelbot-core/server/pkg/logger"
)

// HeaderConversationID carries a server-generated conversation ID back to the client.
const HeaderConversationID = "X-Conversation-ID"

const maxBodyBytes = 1 << 20

type Asker interface {
	Ask(ctx context.Context, req model.AskRequest) model.AskResponse
}

type Handler struct {
	asker    Asker
	validate *validator.Validate
	// sessions is optional; nil disables stored conversations.
	sessions model.ConversationRepository
}

func NewHandler(asker Asker, sessions model.ConversationRepository) *Handler {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return &Handler{asker: asker, validate: validate, sessions: sessions}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": h.sessions != nil,
	})
}

// Ask answers with 200 and {"response": ...} even when the assistant failed internally.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req model.AskRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	ctx := r.Context()
	if h.sessions != nil {
		if req.ConversationID == "" {
			req.ConversationID = uuid.NewString()
			w.Header().Set(HeaderConversationID, req.ConversationID)
		} else if len(req.ChatHistory) == 0 {
			req.ChatHistory = h.loadHistory(ctx, req.ConversationID)
		}
	}

	resp := h.asker.Ask(ctx, req)

	if h.sessions != nil {
		turn := model.Turn{User: req.Query, Agent: resp.Response}
		if err := h.sessions.AddTurn(ctx, req.ConversationID, turn); err != nil {
			logx.Warn().Err(err).Str("conversation_id", req.ConversationID).Msg("failed to store turn")
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	if h.sessions == nil {
		writeError(w, http.StatusNotFound, "conversation sessions are disabled")
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.sessions.ClearHistory(r.Context(), id); err != nil {
		writeError(w, errx.StatusOf(err), errx.RedisErrorMessage)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) loadHistory(ctx context.Context, conversationID string) []model.Turn {
	history, err := h.sessions.LoadHistory(ctx, conversationID)
	if err != nil {
		logx.Warn().Err(err).Str("conversation_id", conversationID).Msg("failed to load history, continuing without it")
		return nil
	}
	return history.Turns
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid request"
	}
	fe := fieldErrs[0]
	if fe.Tag() == "required" {
		return fe.Field() + " is required"
	}
	return fe.Field() + " is invalid"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
