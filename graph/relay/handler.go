package relay

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Handler serves the relay contract: it accepts a JSON Request by POST,
// performs it with the wrapped Relay and answers with the JSON Response.
//
// The answer is 200 whenever the relay produced a Response, even when the
// remote call failed; 400 means the request could not be sent at all.
type Handler struct {
	relay  Relay
	token  string
	logger *slog.Logger
}

// NewHandler creates a Handler. Callers must send token as a bearer
// credential. A Handler with an empty token refuses every request.
func NewHandler(r Relay, token string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{relay: r, token: token, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.token == "" || subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte("Bearer "+h.token)) != 1 {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid relay request: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.relay.Do(r.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		h.logger.Warn("relay request failed", "url", req.URL, "method", req.Method, "error", err)
		http.Error(w, err.Error(), status)
		return
	}

	h.logger.Debug("relayed request", "url", req.URL, "method", req.Method, "status", resp.Status)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write relay response", "error", err)
	}
}
