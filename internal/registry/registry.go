package registry

import (
	"bytes"
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"soondex/internal/dex"
	"soondex/internal/model"
)

type entry struct {
	mu      sync.Mutex
	pool    *model.Pool
	users   map[solana.PublicKey]*model.UserState
	custody dex.Custody
	removed bool
}

// Registry holds every live pool. Operations on one pool are serialized;
// distinct pools do not contend beyond the map lookup.
type Registry struct {
	deriver Deriver

	mu    sync.RWMutex
	pools map[solana.PublicKey]*entry
}

func New(programID solana.PublicKey) *Registry {
	return &Registry{
		deriver: Deriver{ProgramID: programID},
		pools:   make(map[solana.PublicKey]*entry),
	}
}

func (r *Registry) Deriver() Deriver { return r.deriver }

// Create derives the pool of (mintX, mintY), runs fn against the fresh
// record and registers it if fn succeeds.
func (r *Registry) Create(mintX, mintY solana.PublicKey, fn func(*Tx) error) error {
	addr, bump, err := r.deriver.PoolAddress(mintX, mintY)
	if err != nil {
		return err
	}
	custody, err := r.deriver.Custody(addr)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[addr]; ok {
		return dex.ErrPoolAlreadyExists
	}

	e := &entry{
		pool:    &model.Pool{Address: addr, Bump: bump},
		users:   make(map[solana.PublicKey]*model.UserState),
		custody: custody,
	}
	tx := newTx(r.deriver, e)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit(e)
	r.pools[addr] = e
	return nil
}

// Update runs fn on a staged copy of the pair's pool and commits the copy
// only when fn returns nil.
func (r *Registry) Update(mintA, mintB solana.PublicKey, fn func(*Tx) error) error {
	e, err := r.lookup(mintA, mintB)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return dex.ErrPoolNotFound
	}

	tx := newTx(r.deriver, e)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit(e)
	if tx.remove {
		e.removed = true
		r.mu.Lock()
		delete(r.pools, e.pool.Address)
		r.mu.Unlock()
	}
	return nil
}

func (r *Registry) lookup(mintA, mintB solana.PublicKey) (*entry, error) {
	addr, _, err := r.deriver.PoolAddress(mintA, mintB)
	if err != nil {
		return nil, err
	}
	r.mu.RLock()
	e, ok := r.pools[addr]
	r.mu.RUnlock()
	if !ok {
		return nil, dex.ErrPoolNotFound
	}
	return e, nil
}

// Pool returns a copy of the committed pool for the pair.
func (r *Registry) Pool(mintA, mintB solana.PublicKey) (*model.Pool, error) {
	e, err := r.lookup(mintA, mintB)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, dex.ErrPoolNotFound
	}
	return e.pool.Clone(), nil
}

// UserState returns a copy of owner's committed state, or nil when absent.
func (r *Registry) UserState(mintA, mintB, owner solana.PublicKey) (*model.UserState, error) {
	e, err := r.lookup(mintA, mintB)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil, dex.ErrPoolNotFound
	}
	return e.users[owner].Clone(), nil
}

// Snapshot is a consistent copy of one pool and its stakers.
type Snapshot struct {
	Pool  *model.Pool        `json:"pool"`
	Users []*model.UserState `json:"users"`
}

// Snapshots copies every live pool, ordered by address.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.pools))
	for _, e := range r.pools {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed {
			snap := Snapshot{Pool: e.pool.Clone()}
			for _, us := range e.users {
				snap.Users = append(snap.Users, us.Clone())
			}
			sortUsers(snap.Users)
			out = append(out, snap)
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Pool.Address[:], out[j].Pool.Address[:]) < 0
	})
	return out
}

func sortUsers(users []*model.UserState) {
	sort.Slice(users, func(i, j int) bool {
		return bytes.Compare(users[i].Owner[:], users[j].Owner[:]) < 0
	})
}
