package ledger

import "errors"

var (
	// ErrInsufficientFunds is returned when a debit would take the balance
	// below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNoInitialDeposit is returned when a fixed-term account is asked to
	// pay out before any deposit has ever been recorded.
	ErrNoInitialDeposit = errors.New("no initial deposit")

	// ErrCardMismatch is returned when a card bound to one account number is
	// attached to a different account.
	ErrCardMismatch = errors.New("card account number mismatch")

	// ErrCardAlreadyBound is returned when an account that already carries a
	// card is asked to bind another one.
	ErrCardAlreadyBound = errors.New("account already has a card bound")

	// ErrNilAccount is returned when a nil account is passed where a real
	// one is required.
	ErrNilAccount = errors.New("nil account")

	// ErrSameAccount is returned when a transfer names the source account as
	// its own target.
	ErrSameAccount = errors.New("cannot transfer to the same account")

	// ErrOwnerMismatch is returned when an account is added to a user who is
	// not its owner.
	ErrOwnerMismatch = errors.New("account owner mismatch")
)
