package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/rl1809/vending-machine/internal/core/domain"
	"github.com/rl1809/vending-machine/internal/core/service"
)

const (
	PrincipalHeader = "X-Principal"
	maxBodyBytes    = 1 << 20
)

// Dispatcher routes raw envelopes to the machine.
type Dispatcher interface {
	Instantiate(ctx context.Context, caller domain.Principal, data []byte) error
	Execute(ctx context.Context, caller domain.Principal, data []byte) (service.Result, error)
	Query(ctx context.Context, data []byte) (any, error)
}

type HTTPHandler struct {
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewHTTPHandler(dispatcher Dispatcher, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{dispatcher: dispatcher, logger: logger}
}

// Register mounts every route on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)
	mux.HandleFunc("/api/init", h.Instantiate)
	mux.HandleFunc("/api/execute", h.Execute)
	mux.HandleFunc("/api/query", h.Query)
}

func (h *HTTPHandler) Instantiate(w http.ResponseWriter, r *http.Request) {
	caller, body, ok := h.readCommand(w, r)
	if !ok {
		return
	}

	if err := h.dispatcher.Instantiate(r.Context(), caller, body); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Execute(w http.ResponseWriter, r *http.Request) {
	caller, body, ok := h.readCommand(w, r)
	if !ok {
		return
	}

	result, err := h.dispatcher.Execute(r.Context(), caller, body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *HTTPHandler) Query(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r)
	if !ok {
		return
	}

	resp, err := h.dispatcher.Query(r.Context(), body)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) readCommand(w http.ResponseWriter, r *http.Request) (domain.Principal, []byte, bool) {
	body, ok := h.readBody(w, r)
	if !ok {
		return "", nil, false
	}
	caller, err := domain.ParsePrincipal(r.Header.Get(PrincipalHeader))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: header %s", err, PrincipalHeader))
		return "", nil, false
	}
	return caller, body, true
}

func (h *HTTPHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: read body: %v", domain.ErrInvalidMessage, err))
		return nil, false
	}
	return body, true
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	rich, _ := mapError(err)
	if rich.Code >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err), zap.String("text_code", rich.TextCode))
	}
	writeJSON(w, rich.Code, errorBody(rich))
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
