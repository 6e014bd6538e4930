package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"soondex/internal/dex"
)

// Ledger executes token movements between accounts.
type Ledger interface {
	Move(ctx context.Context, token, from, to solana.PublicKey, amount uint64) error
}

// Clock supplies the current ledger time in unix seconds.
type Clock interface {
	Now() int64
}

// Authorizer confirms that the transaction signer controls account.
type Authorizer interface {
	Authorize(ctx context.Context, account solana.PublicKey) error
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() int64 { return time.Now().Unix() }

// ManualClock is a settable clock.
type ManualClock struct {
	mu  sync.Mutex
	now int64
}

func NewManualClock(now int64) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now int64) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *ManualClock) Advance(secs int64) {
	c.mu.Lock()
	c.now += secs
	c.mu.Unlock()
}

type signerKey struct{}

// WithSigner attaches the verified transaction signer to ctx.
func WithSigner(ctx context.Context, signer solana.PublicKey) context.Context {
	return context.WithValue(ctx, signerKey{}, signer)
}

// SignerFrom returns the signer attached by WithSigner.
func SignerFrom(ctx context.Context) (solana.PublicKey, bool) {
	signer, ok := ctx.Value(signerKey{}).(solana.PublicKey)
	return signer, ok
}

// SignerAuthorizer accepts an account only when it is the context signer.
type SignerAuthorizer struct{}

func (SignerAuthorizer) Authorize(ctx context.Context, account solana.PublicKey) error {
	signer, ok := SignerFrom(ctx)
	if !ok {
		return fmt.Errorf("%w: no signer in context", dex.ErrUnauthorized)
	}
	if !signer.Equals(account) {
		return fmt.Errorf("%w: signer %s is not %s", dex.ErrUnauthorized, signer, account)
	}
	return nil
}
