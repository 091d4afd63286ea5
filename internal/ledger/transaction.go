package ledger

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Kind is the single-letter code recorded for each balance-affecting event.
type Kind string

const (
	KindDeposit     Kind = "D"
	KindWithdrawal  Kind = "W"
	KindTransferOut Kind = "TW"
	KindTransferIn  Kind = "TD"
	KindPayment     Kind = "P"
	KindInterest    Kind = "I"
	KindFee         Kind = "F"
)

// SystemOrigin marks transactions the bank itself initiates (fees, interest)
// rather than a customer-facing channel.
const SystemOrigin = "SYSTEM"

// Transaction is an immutable record of one balance-affecting event on an
// account. Instances are created only by account operations and appended to
// that account's history; they are never mutated or removed.
type Transaction struct {
	kind    Kind
	amount  decimal.Decimal
	delta   decimal.Decimal
	balance decimal.Decimal
	origin  string
	at      time.Time
}

func newTransaction(kind Kind, amount, delta, balance decimal.Decimal, origin string) Transaction {
	return Transaction{
		kind:    kind,
		amount:  amount,
		delta:   delta,
		balance: balance,
		origin:  origin,
		at:      time.Now(),
	}
}

func (t Transaction) Kind() Kind { return t.kind }

// Amount is the positive magnitude of the event; the direction is carried by
// the kind code.
func (t Transaction) Amount() decimal.Decimal { return t.amount }

// Balance is the account balance immediately after the event.
func (t Transaction) Balance() decimal.Decimal { return t.balance }

// Origin identifies the channel instance (or SYSTEM) that caused the event.
func (t Transaction) Origin() string { return t.origin }

func (t Transaction) Time() time.Time { return t.at }

// String renders the canonical KIND-ORIGIN-AMOUNT-BALANCE record. Origins
// without a colon are split into their alphabetic prefix and numeric suffix,
// so machine id "ATM001" renders as "ATM:001"; origins that already carry a
// colon ("COUNTER:001") render unchanged.
func (t Transaction) String() string {
	origin := t.origin
	if !strings.Contains(origin, ":") {
		var alpha, digits strings.Builder
		for _, r := range origin {
			switch {
			case unicode.IsDigit(r):
				digits.WriteRune(r)
			case unicode.IsLetter(r):
				alpha.WriteRune(r)
			}
		}
		origin = alpha.String() + ":" + digits.String()
	}
	return fmt.Sprintf("%s-%s-%s-%s", t.kind, origin, t.amount, t.balance)
}

// Delta is the signed effect of the event on the account balance. For a
// payment this is the gross amount net of cashback; for every other kind it
// is the amount with the sign implied by the kind code. The sum of deltas
// over an account's history reconciles against its balance.
func (t Transaction) Delta() decimal.Decimal { return t.delta }
