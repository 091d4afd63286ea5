package channel

import (
	"github.com/krungthon/corebank/internal/ledger"
	"github.com/shopspring/decimal"
)

// Counter is a branch teller position. Every operation re-verifies the
// customer's claimed account number and citizen ID against the account before
// touching it; a mismatch fails without any side effect.
type Counter struct {
	id     string
	branch string
	dir    Directory
}

// NewCounter creates a teller channel for the given branch number. The
// channel identifier embeds the branch, e.g. "COUNTER:001".
func NewCounter(dir Directory, branchNo string) *Counter {
	return &Counter{id: "COUNTER:" + branchNo, branch: branchNo, dir: dir}
}

func (c *Counter) ID() string { return c.id }

func (c *Counter) Branch() string { return c.branch }

// VerifyIdentity succeeds only when both the account number and the owning
// user's citizen ID match the claims exactly.
func (c *Counter) VerifyIdentity(acct ledger.Account, accountNumber, citizenID string) error {
	if acct == nil {
		return ErrIdentityMismatch
	}
	if acct.Number() != accountNumber || acct.Owner() == nil || acct.Owner().CitizenID() != citizenID {
		return ErrIdentityMismatch
	}
	return nil
}

func (c *Counter) Deposit(acct ledger.Account, amount decimal.Decimal, accountNumber, citizenID string) error {
	if err := c.VerifyIdentity(acct, accountNumber, citizenID); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	acct.Deposit(c.id, amount)
	return nil
}

func (c *Counter) Withdraw(acct ledger.Account, amount decimal.Decimal, accountNumber, citizenID string) error {
	if err := c.VerifyIdentity(acct, accountNumber, citizenID); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	_, err := acct.Withdraw(c.id, amount)
	return err
}

func (c *Counter) Transfer(acct, target ledger.Account, amount decimal.Decimal, accountNumber, citizenID string) error {
	if err := c.VerifyIdentity(acct, accountNumber, citizenID); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	return acct.TransferTo(target, amount, c.id)
}
