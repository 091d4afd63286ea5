package ledger

import "github.com/shopspring/decimal"

// savingsInterestRate is the flat periodic rate credited by
// CalculateInterest: 0.5% of the current balance.
var savingsInterestRate = decimal.RequireFromString("0.005")

// SavingsAccount is the everyday deposit product. It is the only account
// variant ATMs will serve, and it supports periodic simple-interest accrual.
type SavingsAccount struct {
	baseAccount
}

func NewSavingsAccount(number string, owner *User, initial decimal.Decimal) *SavingsAccount {
	return &SavingsAccount{baseAccount: newBaseAccount(number, owner, initial)}
}

// CalculateInterest credits 0.5% of the current balance and records an
// interest transaction. Calling it again compounds on the new balance; the
// accrual schedule belongs to the caller.
func (a *SavingsAccount) CalculateInterest() (decimal.Decimal, Transaction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	interest := a.balance.Mul(savingsInterestRate)
	tx := a.credit(KindInterest, SystemOrigin, interest)
	return interest, tx
}
