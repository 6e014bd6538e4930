package registry

import (
	"github.com/gagliardetto/solana-go"

	"soondex/internal/dex"
	"soondex/internal/model"
)

// Tx is a staged view of one pool. Nothing written through it is visible
// to other callers until the enclosing Create or Update commits.
type Tx struct {
	deriver Deriver
	pool    *model.Pool
	custody dex.Custody

	base    map[solana.PublicKey]*model.UserState
	staged  map[solana.PublicKey]*model.UserState
	deleted map[solana.PublicKey]struct{}
	remove  bool
}

func newTx(d Deriver, e *entry) *Tx {
	return &Tx{
		deriver: d,
		pool:    e.pool.Clone(),
		custody: e.custody,
		base:    e.users,
		staged:  make(map[solana.PublicKey]*model.UserState),
		deleted: make(map[solana.PublicKey]struct{}),
	}
}

// Pool returns the staged pool.
func (tx *Tx) Pool() *model.Pool { return tx.pool }

func (tx *Tx) Custody() dex.Custody { return tx.custody }

func (tx *Tx) UserState(owner solana.PublicKey) *model.UserState {
	if _, gone := tx.deleted[owner]; gone {
		return nil
	}
	if us, ok := tx.staged[owner]; ok {
		return us
	}
	us, ok := tx.base[owner]
	if !ok {
		return nil
	}
	cp := us.Clone()
	tx.staged[owner] = cp
	return cp
}

// OpenUserState returns owner's staged state, creating it when absent.
func (tx *Tx) OpenUserState(owner solana.PublicKey) (*model.UserState, error) {
	if us := tx.UserState(owner); us != nil {
		return us, nil
	}
	addr, bump, err := tx.deriver.UserStateAddress(tx.pool.Address, owner)
	if err != nil {
		return nil, err
	}
	us := &model.UserState{
		Address: addr,
		Pool:    tx.pool.Address,
		Owner:   owner,
		Bump:    bump,
	}
	delete(tx.deleted, owner)
	tx.staged[owner] = us
	return us, nil
}

func (tx *Tx) DeleteUserState(owner solana.PublicKey) {
	delete(tx.staged, owner)
	tx.deleted[owner] = struct{}{}
}

// Users returns every staged user state, copying committed ones in first.
func (tx *Tx) Users() []*model.UserState {
	for owner := range tx.base {
		tx.UserState(owner)
	}
	out := make([]*model.UserState, 0, len(tx.staged))
	for _, us := range tx.staged {
		out = append(out, us)
	}
	sortUsers(out)
	return out
}

// RemovePool drops the pool from the registry on commit.
func (tx *Tx) RemovePool() { tx.remove = true }

func (tx *Tx) commit(e *entry) {
	e.pool = tx.pool
	if len(tx.staged) == 0 && len(tx.deleted) == 0 {
		return
	}
	users := make(map[solana.PublicKey]*model.UserState, len(e.users)+len(tx.staged))
	for owner, us := range e.users {
		users[owner] = us
	}
	for owner := range tx.deleted {
		delete(users, owner)
	}
	for owner, us := range tx.staged {
		users[owner] = us
	}
	e.users = users
}
