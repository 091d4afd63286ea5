package channel

import (
	"sync"

	"github.com/krungthon/corebank/internal/card"
	"github.com/krungthon/corebank/internal/ledger"
	"github.com/shopspring/decimal"
)

// EDC is a merchant point-of-sale terminal bound to the merchant's
// settlement account. Only debit-family cards are accepted, and a payment
// requires a prior successful swipe.
type EDC struct {
	id       string
	dir      Directory
	merchant ledger.Account

	mu      sync.Mutex
	current card.Debit
}

// NewEDC creates a terminal with the given identifier (e.g. "EDC001") whose
// takings settle into merchant.
func NewEDC(dir Directory, terminalID string, merchant ledger.Account) *EDC {
	return &EDC{id: terminalID, dir: dir, merchant: merchant}
}

func (t *EDC) ID() string { return t.id }

func (t *EDC) Merchant() ledger.Account { return t.merchant }

// CurrentCard is the card from the last successful swipe, if any.
func (t *EDC) CurrentCard() card.Debit {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// SwipeCard accepts a debit-family card whose PIN verifies and sets it as the
// current card. Any other card, or a failed PIN, leaves the terminal as it
// was.
func (t *EDC) SwipeCard(c card.Card, pin string) error {
	dc, ok := c.(card.Debit)
	if !ok {
		return ErrTypeMismatch
	}
	if !dc.Verify(pin) {
		return ErrInvalidCredential
	}
	t.mu.Lock()
	t.current = dc
	t.mu.Unlock()
	return nil
}

// Pay charges the customer's account behind the presented card and settles
// the amount into the merchant account. Cashback policy comes from the card
// variant. The customer is debited first; the merchant is only credited once
// that debit has succeeded, so a rejected payment leaves every balance
// untouched.
func (t *EDC) Pay(c card.Card, amount decimal.Decimal) (ledger.Transaction, error) {
	t.mu.Lock()
	swiped := t.current
	t.mu.Unlock()
	if swiped == nil {
		return ledger.Transaction{}, ErrNoCardInserted
	}
	if !amount.IsPositive() {
		return ledger.Transaction{}, ErrInvalidAmount
	}
	dc, ok := c.(card.Debit)
	if !ok {
		return ledger.Transaction{}, ErrTypeMismatch
	}
	acct, ok := t.dir.FindAccountByCardNumber(dc.Number())
	if !ok {
		return ledger.Transaction{}, ErrInvalidCredential
	}

	cashback := dc.Cashback(amount)
	tx, err := acct.Pay(amount, t.id, cashback)
	if err != nil {
		return ledger.Transaction{}, err
	}
	t.merchant.Deposit(t.id, amount)
	return tx, nil
}
