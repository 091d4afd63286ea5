// Package card models the payment cards the bank issues: the plain ATM card
// and the debit family (debit, shopping debit, travel debit). A card is a
// credential bound to exactly one account number; it never holds a reference
// back into the account itself.
package card

import "github.com/shopspring/decimal"

// Annual fees by card family.
var (
	atmCardAnnualFee   = decimal.NewFromInt(150)
	debitCardAnnualFee = decimal.NewFromInt(300)
)

// Card is the credential presented at a channel. The interface is sealed:
// the implementations are *ATMCard, *DebitCard, *ShoppingDebitCard and
// *TravelDebitCard.
type Card interface {
	Number() string
	AccountNumber() string
	AnnualFee() decimal.Decimal

	// Verify reports whether pin matches the stored PIN. A stored PIN that
	// is not exactly four numeric characters never verifies, whatever the
	// input.
	Verify(pin string) bool

	sealed()
}

// Debit is the capability shared by the debit card family. Only debit cards
// are accepted at merchant terminals, and cashback policy lives on the card
// variant itself.
type Debit interface {
	Card

	// Cashback returns the credit earned on a qualifying payment of amount.
	Cashback(amount decimal.Decimal) decimal.Decimal

	debitFamily()
}

type base struct {
	number        string
	accountNumber string
	pin           string
}

func (b *base) Number() string { return b.number }

func (b *base) AccountNumber() string { return b.accountNumber }

func (b *base) Verify(pin string) bool {
	if !validStoredPIN(b.pin) {
		return false
	}
	return b.pin == pin
}

func (b *base) sealed() {}

func validStoredPIN(pin string) bool {
	if len(pin) != 4 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ATMCard is the plain cash card: ATM access only, no merchant payments.
type ATMCard struct {
	base
}

func NewATMCard(number, accountNumber, pin string) *ATMCard {
	return &ATMCard{base{number: number, accountNumber: accountNumber, pin: pin}}
}

func (c *ATMCard) AnnualFee() decimal.Decimal { return atmCardAnnualFee }

// DebitCard is the base merchant-payment card. It earns no cashback.
type DebitCard struct {
	base
}

func NewDebitCard(number, accountNumber, pin string) *DebitCard {
	return &DebitCard{base{number: number, accountNumber: accountNumber, pin: pin}}
}

func (c *DebitCard) AnnualFee() decimal.Decimal { return debitCardAnnualFee }

func (c *DebitCard) Cashback(amount decimal.Decimal) decimal.Decimal {
	return decimal.Zero
}

func (c *DebitCard) debitFamily() {}
