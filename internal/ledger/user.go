package ledger

import "sync"

// User is a bank customer identified by citizen ID. A user owns their
// accounts exclusively; the collection keeps account-opening order.
type User struct {
	citizenID string
	name      string
	accounts  []Account
	mu        sync.Mutex
}

func NewUser(citizenID, name string) *User {
	return &User{citizenID: citizenID, name: name}
}

func (u *User) CitizenID() string { return u.citizenID }

func (u *User) Name() string { return u.name }

// Accounts returns the user's accounts in opening order.
func (u *User) Accounts() []Account {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Account, len(u.accounts))
	copy(out, u.accounts)
	return out
}

// AddAccount appends an account to the user's collection. The account must
// name this user as its owner.
func (u *User) AddAccount(a Account) error {
	if a == nil || a.base() == nil {
		return ErrNilAccount
	}
	if a.Owner() != u {
		return ErrOwnerMismatch
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.accounts = append(u.accounts, a)
	return nil
}
