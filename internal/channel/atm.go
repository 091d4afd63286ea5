package channel

import (
	"sync"

	"github.com/krungthon/corebank/internal/card"
	"github.com/krungthon/corebank/internal/ledger"
	"github.com/shopspring/decimal"
)

// maxWithdrawPerTransaction is the ATM cash cap for a single withdrawal.
var maxWithdrawPerTransaction = decimal.NewFromInt(50000)

// ATM is a cash machine. It owns a cash drawer whose float moves with every
// cash deposit and withdrawal, independently of the account balances it
// serves, and it tracks the currently inserted card. ATMs serve savings
// accounts only.
type ATM struct {
	id  string
	dir Directory

	mu      sync.Mutex
	cash    decimal.Decimal
	current card.Card
}

// NewATM creates a machine with the given identifier (e.g. "ATM001") and
// opening cash float.
func NewATM(dir Directory, machineID string, initialFloat decimal.Decimal) *ATM {
	return &ATM{id: machineID, dir: dir, cash: initialFloat}
}

func (m *ATM) ID() string { return m.id }

// CashBalance is the current drawer float.
func (m *ATM) CashBalance() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cash
}

// CurrentCard is the card inserted by the last successful InsertCard, if any.
func (m *ATM) CurrentCard() card.Card {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// InsertCard verifies the PIN, resolves the card's account through the
// directory and hands the account back when it is a savings account. The
// card replaces whatever was previously inserted.
func (m *ATM) InsertCard(c card.Card, pin string) (*ledger.SavingsAccount, error) {
	if c == nil || !c.Verify(pin) {
		return nil, ErrInvalidCredential
	}
	acct, ok := m.dir.FindAccountByCardNumber(c.Number())
	if !ok {
		return nil, ErrInvalidCredential
	}
	sav, ok := acct.(*ledger.SavingsAccount)
	if !ok {
		return nil, ErrTypeMismatch
	}
	m.mu.Lock()
	m.current = c
	m.mu.Unlock()
	return sav, nil
}

// Deposit adds the cash to the drawer and credits the account, with the
// machine id as origin.
func (m *ATM) Deposit(acct ledger.Account, amount decimal.Decimal) error {
	if acct == nil {
		return ledger.ErrNilAccount
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	m.cash = m.cash.Add(amount)
	m.mu.Unlock()
	acct.Deposit(m.id, amount)
	return nil
}

// Withdraw pays cash out of the drawer after the per-transaction cap and the
// drawer float are checked. The float check, the account debit and the float
// decrement form one critical section, so concurrent withdrawals cannot all
// pass the check and drain the drawer below zero. Accounts never lock
// machines, so holding m.mu across the debit cannot deadlock.
func (m *ATM) Withdraw(acct ledger.Account, amount decimal.Decimal) error {
	if acct == nil {
		return ledger.ErrNilAccount
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.GreaterThan(maxWithdrawPerTransaction) {
		return ErrLimitExceeded
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cash.LessThan(amount) {
		return ErrInsufficientChannelFunds
	}
	if _, err := acct.Withdraw(m.id, amount); err != nil {
		return err
	}
	m.cash = m.cash.Sub(amount)
	return nil
}

// Transfer moves funds between accounts; no cash is involved, so the drawer
// is untouched.
func (m *ATM) Transfer(acct, target ledger.Account, amount decimal.Decimal) error {
	if acct == nil {
		return ledger.ErrNilAccount
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return acct.TransferTo(target, amount, m.id)
}
