package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/splitledger/splitledger/internal/allocator"
	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/money"
	"github.com/splitledger/splitledger/internal/service"
	"github.com/splitledger/splitledger/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError maps domain errors onto HTTP statuses. Anything unmapped is a
// 500 with a generic message so internals never leak to clients.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, storage.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, storage.ErrVersionConflict),
		errors.Is(err, auth.ErrEmailExists):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrMissingToken):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, ledger.ErrBillLocked),
		errors.Is(err, ledger.ErrTooManyParticipants),
		errors.Is(err, ledger.ErrDuplicateParticipant),
		errors.Is(err, ledger.ErrUnknownParticipant),
		errors.Is(err, ledger.ErrUnknownItem),
		errors.Is(err, allocator.ErrNoParticipants),
		errors.Is(err, allocator.ErrInvalidPercentageSum),
		errors.Is(err, allocator.ErrCustomAmountMismatch),
		errors.Is(err, allocator.ErrEmptyShareSet),
		errors.Is(err, allocator.ErrUnknownParticipant),
		errors.Is(err, allocator.ErrInvalidQuantity),
		errors.Is(err, money.ErrCurrencyMismatch),
		errors.Is(err, money.ErrNegativeAmount):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, service.ErrMissingTitle),
		errors.Is(err, service.ErrMissingCurrency),
		errors.Is(err, service.ErrInvalidSplitMethod),
		errors.Is(err, service.ErrDuplicateID),
		errors.Is(err, service.ErrMissingGroupName),
		errors.Is(err, auth.ErrWeakPassword):
		status, message = http.StatusBadRequest, err.Error()
	}

	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	respondJSON(w, status, errorResponse{Error: message})
}
