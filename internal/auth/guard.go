package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/craftlinkhq/craftlink/internal/store"
	"github.com/craftlinkhq/craftlink/pkg/models"
)

const (
	// MaxLoginAttempts is the number of consecutive failures tolerated before
	// the next failure locks the account.
	MaxLoginAttempts = 5
	// LockDuration is how long a locked account stays locked.
	LockDuration = 30 * time.Minute
)

// Outcome classifies the result of a login evaluation.
type Outcome string

const (
	OutcomeSuccess            Outcome = "SUCCESS"
	OutcomeInvalidCredentials Outcome = "INVALID_CREDENTIALS"
	OutcomeLocked             Outcome = "LOCKED"
)

// LoginResult carries the outcome of EvaluateLogin. Principal and Tokens are
// set only on OutcomeSuccess; the principal's password hash never serializes.
type LoginResult struct {
	Outcome   Outcome
	Principal *models.Principal
	Tokens    *TokenPair
}

// Guard decides, on each authentication attempt, whether to accept, reject,
// or lock the credential, and keeps the attempt counter consistent.
type Guard struct {
	store  store.Store
	issuer *Issuer
	now    func() time.Time
	verify func(plaintext, hash string) bool
}

// NewGuard creates a lockout guard backed by the given store and token issuer.
func NewGuard(s store.Store, issuer *Issuer) *Guard {
	return &Guard{
		store:  s,
		issuer: issuer,
		now:    time.Now,
		verify: VerifyPassword,
	}
}

// EvaluateLogin runs one authentication attempt against the stored principal.
//
// An active lock wins over everything, even a correct credential. An expired
// lock is cleared, counter included, before the credential is evaluated. A
// failed credential increments the attempt counter atomically at the storage
// layer; the failure that pushes the counter past MaxLoginAttempts locks the
// account for LockDuration.
func (g *Guard) EvaluateLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	p, err := g.store.GetPrincipalByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		// Unknown email takes the same path as a wrong password so callers
		// cannot probe which addresses exist.
		return &LoginResult{Outcome: OutcomeInvalidCredentials}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}

	now := g.now().UTC()

	if p.IsLocked {
		if p.LockUntil != nil && p.LockUntil.After(now) {
			return &LoginResult{Outcome: OutcomeLocked}, nil
		}
		if err := g.store.ResetLockout(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("clear expired lock: %w", err)
		}
		p.LoginAttempts = 0
	}

	if !g.verify(password, p.PasswordHash) {
		attempts, err := g.store.IncrementLoginAttempts(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("increment login attempts: %w", err)
		}
		if attempts > MaxLoginAttempts {
			if err := g.store.LockPrincipal(ctx, p.ID, now.Add(LockDuration)); err != nil {
				return nil, fmt.Errorf("lock principal: %w", err)
			}
			return &LoginResult{Outcome: OutcomeLocked}, nil
		}
		return &LoginResult{Outcome: OutcomeInvalidCredentials}, nil
	}

	if p.LoginAttempts != 0 {
		if err := g.store.ResetLockout(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("reset stale attempt counter: %w", err)
		}
	}

	if err := g.store.RecordLogin(ctx, p.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	tokens, err := g.issuer.Issue(p.ID, p.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	return &LoginResult{
		Outcome:   OutcomeSuccess,
		Principal: p,
		Tokens:    tokens,
	}, nil
}
