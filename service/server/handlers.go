package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/brojonat/waveportal/service/feed"
	"github.com/brojonat/waveportal/service/wave"
)

const (
	maxRequestBodySize = 1 << 20 // 1MB
	maxMessageLength   = 4096
)

// Feed is the part of the wave feed controller the HTTP surface drives.
type Feed interface {
	State() feed.State
	ConnectWallet(ctx context.Context)
	FetchAllWaves(ctx context.Context)
	SubmitWave(ctx context.Context, message string)
	SetDraft(ctx context.Context, text string)
}

type stateResponse struct {
	Account    string      `json:"account,omitempty"`
	Connected  bool        `json:"connected"`
	Subscribed bool        `json:"subscribed"`
	Draft      string      `json:"draft"`
	Count      int         `json:"count"`
	Waves      []wave.Wave `json:"waves"`
}

func stateToResponse(s feed.State, waves []wave.Wave) stateResponse {
	return stateResponse{
		Account:    s.Account,
		Connected:  s.Connected(),
		Subscribed: s.Subscribed,
		Draft:      s.Draft,
		Count:      len(waves),
		Waves:      waves,
	}
}

// handleListWaves returns a handler that lists the waves held by the feed.
// GET /api/v1/waves?order={canonical|display}&filter={jq expression}
// The filter parameter may be repeated; a wave must match every expression.
func handleListWaves(f Feed, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := f.State()
		waves := state.Waves

		switch order := r.URL.Query().Get("order"); order {
		case "", "canonical":
		case "display":
			waves = wave.Display(waves)
		default:
			writeError(w, fmt.Sprintf("invalid order %q: must be 'canonical' or 'display'", order), http.StatusBadRequest)
			return
		}

		if exprs := r.URL.Query()["filter"]; len(exprs) > 0 {
			filter, err := wave.NewFilter(exprs...)
			if err != nil {
				logger.Debug("invalid filter", "filter", exprs, "error", err)
				writeError(w, err.Error(), http.StatusBadRequest)
				return
			}
			waves = filter.Apply(waves)
		}

		logger.Debug("waves listed", "count", len(waves))
		writeJSON(w, stateToResponse(state, waves), http.StatusOK)
	})
}

// handleSubmitWave returns a handler that submits a wave in the background.
// POST /api/v1/waves {"message": "..."}
// Without a message field the current draft is sent. The wave shows up in
// the list once the contract emits NewWave, not when this returns.
func handleSubmitWave(f Feed, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Limit request body size to prevent memory exhaustion
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Message *string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode submit request", "error", err)
			if strings.Contains(err.Error(), "http: request body too large") {
				writeError(w, "request body too large: maximum size is 1MB", http.StatusBadRequest)
				return
			}
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}

		message := f.State().Draft
		if req.Message != nil {
			message = *req.Message
		}
		if err := validateMessage(message); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		submitInBackground(r.Context(), f, message)
		logger.Info("wave submission started", "length", len(message))

		writeJSON(w, map[string]string{
			"status":  "submitted",
			"message": message,
		}, http.StatusAccepted)
	})
}

// handleRefreshWaves returns a handler that refetches every wave.
// POST /api/v1/waves/refresh
func handleRefreshWaves(f Feed, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.FetchAllWaves(r.Context())
		state := f.State()
		logger.Debug("waves refreshed", "count", len(state.Waves))
		writeJSON(w, stateToResponse(state, state.Waves), http.StatusOK)
	})
}

// handleConnect returns a handler that connects the wallet.
// POST /api/v1/connect
// Answers 412 with the alert text when no wallet provider is configured.
func handleConnect(f Feed, alerts *AlertBox, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.ConnectWallet(r.Context())

		if alert := alerts.Pop(); alert != "" {
			writeError(w, alert, http.StatusPreconditionFailed)
			return
		}

		state := f.State()
		logger.Debug("connect requested", "account", state.Account)
		writeJSON(w, stateToResponse(state, state.Waves), http.StatusOK)
	})
}

// handleSetDraft returns a handler that replaces the draft message.
// PUT /api/v1/draft {"draft": "..."}
func handleSetDraft(f Feed, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Draft string `json:"draft"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("failed to decode draft request", "error", err)
			writeError(w, "invalid request body: must be valid JSON", http.StatusBadRequest)
			return
		}
		if err := validateMessage(req.Draft); err != nil {
			writeError(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.SetDraft(r.Context(), req.Draft)
		state := f.State()
		writeJSON(w, stateToResponse(state, state.Waves), http.StatusOK)
	})
}

// submitInBackground runs the submission detached from the request so it
// keeps going after the response is written.
func submitInBackground(ctx context.Context, f Feed, message string) {
	go f.SubmitWave(context.WithoutCancel(ctx), message)
}

// validateMessage checks a wave message before it is sent to the contract.
func validateMessage(message string) error {
	if !utf8.ValidString(message) {
		return fmt.Errorf("message must be valid UTF-8")
	}
	if len(message) > maxMessageLength {
		return fmt.Errorf("message too long: maximum length is %d bytes", maxMessageLength)
	}
	if strings.ContainsRune(message, 0) {
		return fmt.Errorf("message must not contain null bytes")
	}
	return nil
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
