package handlers

import (
	"errors"
	"net/http"

	"github.com/krungthon/corebank/internal/channel"
	"github.com/krungthon/corebank/internal/ledger"
	"github.com/krungthon/corebank/internal/registry"
	"github.com/krungthon/corebank/internal/services"
)

// statusForError maps a domain rejection to its HTTP status.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrNoInitialDeposit),
		errors.Is(err, channel.ErrInvalidAmount),
		errors.Is(err, channel.ErrLimitExceeded),
		errors.Is(err, channel.ErrTypeMismatch),
		errors.Is(err, ledger.ErrSameAccount):
		return http.StatusUnprocessableEntity
	case errors.Is(err, channel.ErrInvalidCredential),
		errors.Is(err, channel.ErrIdentityMismatch),
		errors.Is(err, channel.ErrNoCardInserted),
		errors.Is(err, services.ErrSessionNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, channel.ErrInsufficientChannelFunds):
		return http.StatusConflict
	case errors.Is(err, registry.ErrDuplicateID),
		errors.Is(err, ledger.ErrCardAlreadyBound):
		return http.StatusConflict
	case errors.Is(err, registry.ErrUnknownUser),
		errors.Is(err, services.ErrReceiptNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrCardMismatch),
		errors.Is(err, ledger.ErrOwnerMismatch),
		errors.Is(err, registry.ErrNilEntry),
		errors.Is(err, ledger.ErrNilAccount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
