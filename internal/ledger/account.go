package ledger

import (
	"sync"

	"github.com/krungthon/corebank/internal/card"
	"github.com/shopspring/decimal"
)

// Account is the balance holder behind every product the bank offers. The
// interface is sealed: the only implementations are *SavingsAccount,
// *FixedAccount and *CurrentAccount, all sharing baseAccount. Balances move
// exclusively through the operations below; each appends an immutable
// Transaction to the account's history, and a failed operation leaves both
// balance and history untouched.
//
// Every operation takes the account's own lock, and TransferTo locks both
// sides in account-number order, so accounts are safe to drive from the HTTP
// channels concurrently.
type Account interface {
	Number() string
	Owner() *User
	Balance() decimal.Decimal
	Transactions() []Transaction
	LastTransaction() (Transaction, bool)
	Card() card.Card

	// BindCard attaches the account's one card. The card's bound account
	// number must match this account.
	BindCard(c card.Card) error

	// Deposit credits amount unconditionally. Amount positivity is the
	// calling channel's responsibility, not the account's.
	Deposit(origin string, amount decimal.Decimal) Transaction

	// Withdraw debits amount, failing with ErrInsufficientFunds when the
	// balance cannot cover it.
	Withdraw(origin string, amount decimal.Decimal) (Transaction, error)

	// TransferTo debits this account and credits target as one unit: either
	// both histories gain a transaction sharing the origin label, or
	// neither does.
	TransferTo(target Account, amount decimal.Decimal, origin string) error

	// Pay debits amount and credits cashback in the same step, recording a
	// single payment transaction at the net balance.
	Pay(amount decimal.Decimal, origin string, cashback decimal.Decimal) (Transaction, error)

	// DeductAnnualFee charges the bound card's annual fee with no funds
	// check, and is a no-op (nil, nil) when no card is bound.
	DeductAnnualFee() (*Transaction, error)

	base() *baseAccount
}

type baseAccount struct {
	number  string
	owner   *User
	card    card.Card
	balance decimal.Decimal
	history []Transaction
	mu      sync.Mutex
}

func newBaseAccount(number string, owner *User, initial decimal.Decimal) baseAccount {
	return baseAccount{
		number:  number,
		owner:   owner,
		balance: initial,
	}
}

func (a *baseAccount) base() *baseAccount { return a }

func (a *baseAccount) Number() string { return a.number }

func (a *baseAccount) Owner() *User { return a.owner }

func (a *baseAccount) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Transactions returns a copy of the history in append order.
func (a *baseAccount) Transactions() []Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Transaction, len(a.history))
	copy(out, a.history)
	return out
}

// LastTransaction returns the most recent history entry, if any.
func (a *baseAccount) LastTransaction() (Transaction, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.history) == 0 {
		return Transaction{}, false
	}
	return a.history[len(a.history)-1], true
}

func (a *baseAccount) Card() card.Card {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.card
}

func (a *baseAccount) BindCard(c card.Card) error {
	if c == nil {
		return ErrCardMismatch
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.card != nil {
		return ErrCardAlreadyBound
	}
	if c.AccountNumber() != a.number {
		return ErrCardMismatch
	}
	a.card = c
	return nil
}

func (a *baseAccount) Deposit(origin string, amount decimal.Decimal) Transaction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.credit(KindDeposit, origin, amount)
}

func (a *baseAccount) Withdraw(origin string, amount decimal.Decimal) (Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.debit(KindWithdrawal, origin, amount)
}

func (a *baseAccount) TransferTo(target Account, amount decimal.Decimal, origin string) error {
	if target == nil || target.base() == nil {
		return ErrNilAccount
	}
	dst := target.base()
	if dst == a {
		return ErrSameAccount
	}

	// Lock both sides in account-number order so concurrent transfers in
	// opposite directions cannot deadlock.
	first, second := a, dst
	if first.number > second.number {
		first, second = second, first
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()

	if a.balance.LessThan(amount) {
		return ErrInsufficientFunds
	}

	a.balance = a.balance.Sub(amount)
	a.history = append(a.history, newTransaction(KindTransferOut, amount, amount.Neg(), a.balance, origin))
	dst.balance = dst.balance.Add(amount)
	dst.history = append(dst.history, newTransaction(KindTransferIn, amount, amount, dst.balance, origin))
	return nil
}

func (a *baseAccount) Pay(amount decimal.Decimal, origin string, cashback decimal.Decimal) (Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.balance.LessThan(amount) {
		return Transaction{}, ErrInsufficientFunds
	}
	net := cashback.Sub(amount)
	a.balance = a.balance.Add(net)
	tx := newTransaction(KindPayment, amount, net, a.balance, origin)
	a.history = append(a.history, tx)
	return tx, nil
}

func (a *baseAccount) DeductAnnualFee() (*Transaction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.card == nil {
		return nil, nil
	}
	fee := a.card.AnnualFee()
	a.balance = a.balance.Sub(fee)
	tx := newTransaction(KindFee, fee, fee.Neg(), a.balance, SystemOrigin)
	a.history = append(a.history, tx)
	return &tx, nil
}

// credit and debit assume the caller holds a.mu.

func (a *baseAccount) credit(kind Kind, origin string, amount decimal.Decimal) Transaction {
	a.balance = a.balance.Add(amount)
	tx := newTransaction(kind, amount, amount, a.balance, origin)
	a.history = append(a.history, tx)
	return tx
}

func (a *baseAccount) debit(kind Kind, origin string, amount decimal.Decimal) (Transaction, error) {
	if a.balance.LessThan(amount) {
		return Transaction{}, ErrInsufficientFunds
	}
	a.balance = a.balance.Sub(amount)
	tx := newTransaction(kind, amount, amount.Neg(), a.balance, origin)
	a.history = append(a.history, tx)
	return tx, nil
}

func (a *baseAccount) historyLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.history)
}
