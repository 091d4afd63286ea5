package ledger

import "github.com/shopspring/decimal"

// CurrentAccount is the merchant settlement product. It carries no interest,
// cashback or withdrawal-limit policy, and no overdraft: the ordinary
// insufficient-funds check still applies.
type CurrentAccount struct {
	baseAccount
}

func NewCurrentAccount(number string, owner *User, initial decimal.Decimal) *CurrentAccount {
	return &CurrentAccount{baseAccount: newBaseAccount(number, owner, initial)}
}
