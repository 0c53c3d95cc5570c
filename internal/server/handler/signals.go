package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/x402labs/signalfeed/internal/domain"
	"github.com/x402labs/signalfeed/internal/gate"
)

// proofHeader carries the payment proof on reveal requests. Clients that
// cannot set custom headers may send it in the JSON body instead.
const proofHeader = "X-402-Payment-Proof"

// optionsHeader advertises the payment challenge on 402 responses.
const optionsHeader = "X-402-Payment-Options"

// SignalService defines the methods that the signal handler requires from
// the service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type SignalService interface {
	List() []domain.Signal
	Vote(ctx context.Context, id string, up bool) error
	Refresh(ctx context.Context) error
	NotifyUnlocked(ctx context.Context, sig domain.Signal)
}

// AccessGate runs the payment decision for a single reveal request.
type AccessGate interface {
	Reveal(ctx context.Context, signalID string, proof domain.PaymentProof) (gate.Result, error)
}

// SignalHandler serves the signal feed HTTP endpoints.
type SignalHandler struct {
	signals SignalService
	gate    AccessGate
	logger  *slog.Logger
}

// NewSignalHandler creates a SignalHandler with the given collaborators.
func NewSignalHandler(signals SignalService, g AccessGate, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		signals: signals,
		gate:    g,
		logger:  logger,
	}
}

// listSignalsResponse wraps the list endpoint output with metadata.
type listSignalsResponse struct {
	Signals []domain.Signal `json:"signals"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListSignals returns the current signal catalog with pagination. Every
// signal in the listing is redacted; premium fields are only available
// through the reveal endpoint.
// GET /api/signals?limit=50&offset=0
func (h *SignalHandler) ListSignals(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	all := h.signals.List()
	total := len(all)

	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	page := make([]domain.Signal, 0, end-start)
	for _, sig := range all[start:end] {
		page = append(page, sig.Redacted())
	}

	writeJSON(w, http.StatusOK, listSignalsResponse{
		Signals: page,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// revealRequest is the optional JSON body of a reveal request.
type revealRequest struct {
	PaymentProof string `json:"payment_proof"`
}

// revealResponse is the success shape of the reveal endpoint. The reasoning
// is duplicated at the top level; frontends read it from there without
// unwrapping the signal.
type revealResponse struct {
	Status    string        `json:"status"`
	Reasoning string        `json:"alpha_reasoning"`
	Signal    domain.Signal `json:"signal"`
}

// challengeResponse is the 402 shape of the reveal endpoint.
type challengeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Payment string `json:"payment"`
}

// RevealSignal runs the payment gate for one signal. Without a valid proof
// the response is a 402 carrying the x402 challenge; with one, the full
// signal content including the alpha reasoning.
// POST /api/signals/{id}/reveal
func (h *SignalHandler) RevealSignal(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing signal id")
		return
	}

	proof := domain.PaymentProof(r.Header.Get(proofHeader))
	if proof.Empty() && r.Body != nil {
		var req revealRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			proof = domain.PaymentProof(req.PaymentProof)
		}
	}

	result, err := h.gate.Reveal(r.Context(), id, proof)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "signal not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: reveal failed",
			slog.String("signal_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to reveal signal")
		return
	}

	if result.State != gate.StateUnlocked {
		w.Header().Set(optionsHeader, result.Challenge)
		writeJSON(w, http.StatusPaymentRequired, challengeResponse{
			Status:  "payment_required",
			Message: "submit a settled payment transaction signature in the " + proofHeader + " header",
			Payment: result.Challenge,
		})
		return
	}

	if result.Verified {
		h.signals.NotifyUnlocked(r.Context(), result.Signal)
	}

	writeJSON(w, http.StatusOK, revealResponse{
		Status:    "success",
		Reasoning: result.Signal.Reasoning,
		Signal:    result.Signal,
	})
}

// voteRequest is the JSON body of a vote request.
type voteRequest struct {
	Direction string `json:"direction"` // "up" or "down"
}

// VoteSignal records a community vote for a signal.
// POST /api/signals/{id}/vote
func (h *SignalHandler) VoteSignal(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing signal id")
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var up bool
	switch req.Direction {
	case "up":
		up = true
	case "down":
		up = false
	default:
		writeError(w, http.StatusBadRequest, `direction must be "up" or "down"`)
		return
	}

	if err := h.signals.Vote(r.Context(), id, up); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "signal not found")
		case errors.Is(err, domain.ErrStoreDisabled):
			writeError(w, http.StatusServiceUnavailable, "voting is unavailable")
		default:
			h.logger.ErrorContext(r.Context(), "handler: vote failed",
				slog.String("signal_id", id),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to record vote")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RefreshSignals triggers an immediate catalog refresh outside the regular
// schedule. Protected by the API-key middleware when one is configured.
// POST /api/admin/refresh
func (h *SignalHandler) RefreshSignals(w http.ResponseWriter, r *http.Request) {
	if err := h.signals.Refresh(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: manual refresh failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"count":  len(h.signals.List()),
	})
}
