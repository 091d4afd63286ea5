// Package registry holds the bank's in-memory directory of users, accounts
// and channels. It is the lookup collaborator the channels depend on; it
// never mutates balances itself.
package registry

import (
	"errors"
	"sync"

	"github.com/krungthon/corebank/internal/card"
	"github.com/krungthon/corebank/internal/channel"
	"github.com/krungthon/corebank/internal/ledger"
)

var (
	// ErrNilEntry rejects registering a nil user, account or channel.
	ErrNilEntry = errors.New("cannot register nil entry")

	// ErrDuplicateID rejects a second channel or account under an
	// identifier already taken.
	ErrDuplicateID = errors.New("identifier already registered")

	// ErrUnknownUser rejects registering an account whose owner is not in
	// the directory.
	ErrUnknownUser = errors.New("account owner is not a registered user")
)

// Bank is the directory service: the source of truth for which users,
// accounts, ATMs and EDC terminals exist, and for resolving a card number to
// its owning account. It implements channel.Directory.
type Bank struct {
	mu    sync.RWMutex
	users []*ledger.User
	byCID map[string]*ledger.User
	atms  map[string]*channel.ATM
	edcs  map[string]*channel.EDC
}

func New() *Bank {
	return &Bank{
		byCID: make(map[string]*ledger.User),
		atms:  make(map[string]*channel.ATM),
		edcs:  make(map[string]*channel.EDC),
	}
}

func (b *Bank) RegisterUser(u *ledger.User) error {
	if u == nil {
		return ErrNilEntry
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.byCID[u.CitizenID()]; ok {
		return ErrDuplicateID
	}
	b.byCID[u.CitizenID()] = u
	b.users = append(b.users, u)
	return nil
}

// RegisterAccount adds an account under its owner, who must already be
// registered. Passing ownership through the user keeps the "accounts belong
// to their owner" invariant in one place. The duplicate-number check and the
// append run under the registry lock as one critical section, so two
// concurrent registrations of the same number cannot both land.
func (b *Bank) RegisterAccount(a ledger.Account) error {
	if a == nil {
		return ErrNilEntry
	}
	owner := a.Owner()
	if owner == nil {
		return ledger.ErrOwnerMismatch
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	registered, ok := b.byCID[owner.CitizenID()]
	if !ok || registered != owner {
		return ErrUnknownUser
	}
	for _, u := range b.users {
		for _, acct := range u.Accounts() {
			if acct.Number() == a.Number() {
				return ErrDuplicateID
			}
		}
	}
	return owner.AddAccount(a)
}

func (b *Bank) RegisterATM(m *channel.ATM) error {
	if m == nil {
		return ErrNilEntry
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.atms[m.ID()]; ok {
		return ErrDuplicateID
	}
	b.atms[m.ID()] = m
	return nil
}

func (b *Bank) RegisterEDC(t *channel.EDC) error {
	if t == nil {
		return ErrNilEntry
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.edcs[t.ID()]; ok {
		return ErrDuplicateID
	}
	b.edcs[t.ID()] = t
	return nil
}

func (b *Bank) FindUser(citizenID string) (*ledger.User, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.byCID[citizenID]
	return u, ok
}

func (b *Bank) FindATM(id string) (*channel.ATM, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m, ok := b.atms[id]
	return m, ok
}

func (b *Bank) FindEDC(id string) (*channel.EDC, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.edcs[id]
	return t, ok
}

// Users returns the registered users in registration order.
func (b *Bank) Users() []*ledger.User {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*ledger.User, len(b.users))
	copy(out, b.users)
	return out
}

// ATMs returns the registered machine ids.
func (b *Bank) ATMs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.atms))
	for id := range b.atms {
		ids = append(ids, id)
	}
	return ids
}

// EDCs returns the registered terminal ids.
func (b *Bank) EDCs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ids := make([]string, 0, len(b.edcs))
	for id := range b.edcs {
		ids = append(ids, id)
	}
	return ids
}

// FindAccountByCardNumber resolves a card number to the account it is bound
// to. Accounts without a bound card are skipped.
func (b *Bank) FindAccountByCardNumber(cardNumber string) (ledger.Account, bool) {
	b.mu.RLock()
	users := make([]*ledger.User, len(b.users))
	copy(users, b.users)
	b.mu.RUnlock()

	for _, u := range users {
		for _, a := range u.Accounts() {
			if c := a.Card(); c != nil && c.Number() == cardNumber {
				return a, true
			}
		}
	}
	return nil, false
}

// FindAccountByNumber resolves an account number across all users.
func (b *Bank) FindAccountByNumber(number string) (ledger.Account, bool) {
	b.mu.RLock()
	users := make([]*ledger.User, len(b.users))
	copy(users, b.users)
	b.mu.RUnlock()

	for _, u := range users {
		for _, a := range u.Accounts() {
			if a.Number() == number {
				return a, true
			}
		}
	}
	return nil, false
}

// FindCardByNumber resolves a card number to the card itself.
func (b *Bank) FindCardByNumber(cardNumber string) (card.Card, bool) {
	acct, ok := b.FindAccountByCardNumber(cardNumber)
	if !ok {
		return nil, false
	}
	return acct.Card(), true
}
