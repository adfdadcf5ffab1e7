// Package api exposes the assistant over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/equipoapa2-hub/autopic/assistant"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Assistant is the subset of *assistant.Assistant the handlers need.
type Assistant interface {
	HandleMessage(ctx context.Context, message, sessionID string) (*assistant.TurnResult, error)
	ClearSession(ctx context.Context, sessionID string) error
}

// Handler serves the assistant routes.
type Handler struct {
	assistant Assistant
	logger    *slog.Logger
}

// NewHandler creates a Handler. A nil logger uses slog.Default.
func NewHandler(a Assistant, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{assistant: a, logger: logger}
}

// RegisterRoutes mounts the assistant routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/ai", func(r chi.Router) {
		r.Post("/chat", h.chat)
		r.Post("/clear-context", h.clearContext)
	})
	r.Get("/active", h.active)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
}

type chatResponse struct {
	Success       bool             `json:"success"`
	Response      string           `json:"response"`
	NeedsDatabase bool             `json:"needsDatabase"`
	SQLQuery      *string          `json:"sqlQuery"`
	Results       []map[string]any `json:"results"`
	TurnID        string           `json:"turnId"`
}

type clearRequest struct {
	SessionID string `json:"sessionId"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (h *Handler) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error(), assistant.KindValidation)
		return
	}

	res, err := h.assistant.HandleMessage(r.Context(), req.Message, req.SessionID)
	if err != nil {
		kind := assistant.KindOf(err)
		status := statusFor(kind)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Chat turn failed",
				"request_id", middleware.GetReqID(r.Context()),
				"kind", kind,
				"error", err)
		}
		Error(w, status, publicMessage(err), kind)
		return
	}

	resp := chatResponse{
		Success:       true,
		Response:      res.AnswerText,
		NeedsDatabase: res.UsedDatabase,
		TurnID:        res.ID,
	}
	if res.UsedDatabase {
		query := res.Query
		resp.SQLQuery = &query
		resp.Results = res.Rows
		if resp.Results == nil {
			resp.Results = []map[string]any{}
		}
	}
	JSON(w, http.StatusOK, resp)
}

func (h *Handler) clearContext(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := decode(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, err.Error(), assistant.KindValidation)
		return
	}
	if err := h.assistant.ClearSession(r.Context(), req.SessionID); err != nil {
		kind := assistant.KindOf(err)
		h.logger.Error("Clear context failed", "session", req.SessionID, "error", err)
		Error(w, statusFor(kind), publicMessage(err), kind)
		return
	}
	JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Contexto limpiado correctamente",
	})
}

func (h *Handler) active(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]bool{"active": true})
}

// decode reads a JSON body. An empty body decodes to the zero value.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.New("el cuerpo de la solicitud es demasiado grande")
		}
		return errors.New("cuerpo JSON inválido")
	}
	return nil
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind assistant.Kind) int {
	switch kind {
	case assistant.KindValidation:
		return http.StatusBadRequest
	case assistant.KindSynthesis:
		return http.StatusUnprocessableEntity
	case assistant.KindOracle:
		return http.StatusBadGateway
	case assistant.KindSession:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal detail for server-side failures.
func publicMessage(err error) string {
	switch {
	case errors.Is(err, assistant.ErrEmptyMessage):
		return assistant.ErrEmptyMessage.Error()
	case errors.Is(err, assistant.ErrNotReadOnly):
		return assistant.ErrNotReadOnly.Error()
	case errors.Is(err, assistant.ErrMultipleStatements):
		return assistant.ErrMultipleStatements.Error()
	}
	switch assistant.KindOf(err) {
	case assistant.KindOracle:
		return "el servicio de IA no está disponible"
	case assistant.KindSynthesis:
		return "no se pudo generar una consulta válida"
	case assistant.KindExecution:
		return "error al consultar la base de datos"
	case assistant.KindSession:
		return "el contexto de la sesión no está disponible"
	}
	return "error interno del servidor"
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string, kind assistant.Kind) {
	JSON(w, status, errorResponse{Error: message, Kind: string(kind)})
}
