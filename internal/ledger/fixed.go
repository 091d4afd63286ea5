package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Maturity interest bands for fixed-term accounts, applied against elapsed
// whole days since the opening deposit.
var (
	fixedFullTermRate = decimal.RequireFromString("0.025")  // held >= 365 days
	fixedHalfTermRate = decimal.RequireFromString("0.0125") // held >= 180 days
)

// FixedAccount is a fixed-term deposit. Withdrawals are blocked until the
// account has seen at least one deposit, and maturity interest depends on how
// long the opening deposit has been held.
type FixedAccount struct {
	baseAccount
	termMonths int
}

// NewFixedAccount opens an empty fixed-term deposit; the opening deposit is
// made at the counter.
func NewFixedAccount(number string, owner *User, termMonths int) *FixedAccount {
	return &FixedAccount{
		baseAccount: newBaseAccount(number, owner, decimal.Zero),
		termMonths:  termMonths,
	}
}

// TermMonths is the committed term length.
func (a *FixedAccount) TermMonths() int { return a.termMonths }

// Withdraw refuses to pay out of an account that has never been funded, then
// follows the ordinary withdrawal contract.
func (a *FixedAccount) Withdraw(origin string, amount decimal.Decimal) (Transaction, error) {
	if a.historyLen() == 0 {
		return Transaction{}, ErrNoInitialDeposit
	}
	return a.baseAccount.Withdraw(origin, amount)
}

// ApplyMaturityInterest credits interest for the holding period between the
// opening deposit and now: 2.5% of the current balance from 365 days, 1.25%
// from 180 days, nothing before that. An interest transaction is recorded
// even when the computed interest is zero, so the accrual itself is always
// visible in the history. The account takes both instants explicitly rather
// than reading the wall clock.
func (a *FixedAccount) ApplyMaturityInterest(depositedAt, now time.Time) (decimal.Decimal, Transaction) {
	days := int(now.Sub(depositedAt).Hours() / 24)

	rate := decimal.Zero
	switch {
	case days >= 365:
		rate = fixedFullTermRate
	case days >= 180:
		rate = fixedHalfTermRate
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	interest := a.balance.Mul(rate)
	tx := a.credit(KindInterest, SystemOrigin, interest)
	return interest, tx
}
