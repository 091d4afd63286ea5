// Package channel implements the customer-facing mediation points through
// which account balances are mutated: ATM machines, branch counters and
// merchant EDC terminals. Each channel authenticates the request, applies its
// own limits, and only then forwards the operation to the account. Channels
// resolve cards to accounts through an injected Directory rather than any
// shared global state.
package channel

import (
	"errors"

	"github.com/krungthon/corebank/internal/ledger"
)

// Directory resolves cards to accounts. The bank registry implements it; the
// channels only depend on this lookup.
type Directory interface {
	FindAccountByCardNumber(cardNumber string) (ledger.Account, bool)
}

var (
	// ErrInvalidAmount rejects non-positive amounts at the channel boundary.
	ErrInvalidAmount = errors.New("amount must be greater than zero")

	// ErrLimitExceeded rejects a withdrawal above the ATM per-transaction cap.
	ErrLimitExceeded = errors.New("withdrawal exceeds per-transaction limit")

	// ErrInsufficientChannelFunds means the ATM cash drawer cannot cover the
	// withdrawal, whatever the account balance.
	ErrInsufficientChannelFunds = errors.New("machine has insufficient cash")

	// ErrIdentityMismatch means the claimed account number and citizen ID do
	// not both match the account presented at the counter.
	ErrIdentityMismatch = errors.New("identity verification failed")

	// ErrInvalidCredential covers a failed PIN check and a card that does not
	// resolve to any account.
	ErrInvalidCredential = errors.New("invalid card or PIN")

	// ErrNoCardInserted rejects an EDC payment without a prior successful
	// swipe.
	ErrNoCardInserted = errors.New("no card inserted")

	// ErrTypeMismatch means the wrong concrete variant was presented: a
	// non-savings account at an ATM, or a non-debit card at an EDC terminal.
	ErrTypeMismatch = errors.New("unsupported account or card type for this channel")
)
