// Package lock provides the cross-process delivery lock. At most one
// non-expired lock exists per (recipient, day); an expired lock may be taken
// over by any worker.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyHeld means another worker holds a valid lock for the key.
	ErrAlreadyHeld = errors.New("lock already held")
	// ErrNotOwner means the release token does not match the current owner.
	ErrNotOwner = errors.New("lock not owned by caller")
)

// Key identifies one delivery attempt: one recipient, one journey day.
type Key struct {
	RecipientID int64
	Day         int
}

func (k Key) String() string {
	return fmt.Sprintf("lock:recipient:%d:day:%d", k.RecipientID, k.Day)
}

type Locker interface {
	// Acquire is non-blocking: it returns an owner token on success and
	// ErrAlreadyHeld when a valid lock exists for the key.
	Acquire(ctx context.Context, key Key, ttl time.Duration) (token string, err error)
	// Release deletes the lock only if token matches the current owner;
	// otherwise it returns ErrNotOwner without side effects.
	Release(ctx context.Context, key Key, token string) error
}
