package card

import "github.com/shopspring/decimal"

// Shopping cashback policy: 0.1% of the payment amount, earned only when the
// amount strictly exceeds the threshold.
var (
	shoppingCashbackThreshold = decimal.NewFromInt(1000)
	shoppingCashbackRate      = decimal.RequireFromString("0.001")
)

// defaultTravelInsuranceLimit is the accident cover carried by a travel debit
// card. Informational only; nothing in the ledger enforces it.
var defaultTravelInsuranceLimit = decimal.NewFromInt(300000)

// ShoppingDebitCard is a debit card that earns cashback on purchases above
// the threshold.
type ShoppingDebitCard struct {
	DebitCard
}

func NewShoppingDebitCard(number, accountNumber, pin string) *ShoppingDebitCard {
	return &ShoppingDebitCard{DebitCard{base{number: number, accountNumber: accountNumber, pin: pin}}}
}

func (c *ShoppingDebitCard) Cashback(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThanOrEqual(shoppingCashbackThreshold) {
		return decimal.Zero
	}
	return amount.Mul(shoppingCashbackRate)
}

// CashbackThreshold is the purchase amount a payment must exceed to earn
// cashback.
func (c *ShoppingDebitCard) CashbackThreshold() decimal.Decimal {
	return shoppingCashbackThreshold
}

// TravelDebitCard is a debit card bundled with travel accident insurance.
type TravelDebitCard struct {
	DebitCard
	insuranceLimit decimal.Decimal
}

func NewTravelDebitCard(number, accountNumber, pin string) *TravelDebitCard {
	return &TravelDebitCard{
		DebitCard:      DebitCard{base{number: number, accountNumber: accountNumber, pin: pin}},
		insuranceLimit: defaultTravelInsuranceLimit,
	}
}

// InsuranceLimit is the bundled accident cover.
func (c *TravelDebitCard) InsuranceLimit() decimal.Decimal { return c.insuranceLimit }
