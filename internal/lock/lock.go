// Package lock provides a best-effort distributed mutex over Redis.  It
// only reduces duplicate concurrent work; correctness never depends on it.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// ErrBusy is returned when another holder has the key.
var ErrBusy = errors.New("lock busy")

const defaultExpiry = 30 * time.Second

// Locker hands out named mutexes.  A nil *Locker is valid and never
// blocks, which is how the service runs without Redis.
type Locker struct {
	rs     *redsync.Redsync
	prefix string
	expiry time.Duration
}

// New returns nil when client is nil.
func New(client *redis.Client, prefix string) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{rs: redsync.New(goredis.NewPool(client)), prefix: prefix, expiry: defaultExpiry}
}

// TryAcquire takes key with a single attempt.  The returned release func is
// always non-nil and safe to call.
func (l *Locker) TryAcquire(ctx context.Context, key string) (func(), error) {
	if l == nil {
		return func() {}, nil
	}
	m := l.rs.NewMutex(l.prefix+key, redsync.WithExpiry(l.expiry), redsync.WithTries(1))
	if err := m.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.As(err, &taken) || errors.Is(err, redsync.ErrFailed) {
			return func() {}, ErrBusy
		}
		return func() {}, err
	}
	return func() {
		// detached from ctx so a cancelled request still unlocks
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = m.UnlockContext(ctx)
	}, nil
}
