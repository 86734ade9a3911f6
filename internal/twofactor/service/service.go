// Package service holds the two-factor business logic: credential
// generation, the backup-code ledger, device trust, attempt accounting and
// the lifecycle controller that ties them together.
package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/twofactor/internal/twofactor/domain"
	"github.com/aussiebroadwan/twofactor/pkg/otpx"
)

const defaultStoreTimeout = 5 * time.Second

// boundedCtx applies the store timeout to one store call.
func boundedCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func unavailable(op string, err error) error {
	return domain.E(domain.KindStoreUnavailable, op, err)
}

func nowFunc(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}

// DetectMethod classifies a submitted code: six digits (ignoring spaces)
// is an authenticator code, anything else is treated as a backup code.
func DetectMethod(code string) domain.AttemptMethod {
	compact := strings.Join(strings.Fields(code), "")
	if len(compact) != otpx.Digits {
		return domain.AttemptBackup
	}
	for i := range len(compact) {
		if compact[i] < '0' || compact[i] > '9' {
			return domain.AttemptBackup
		}
	}
	return domain.AttemptAuthenticator
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds
// or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

// Lock blocks until key is free and returns the unlock function.
func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
