package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-app/backend/internal/apierr"
	"github.com/inkwell-app/backend/internal/store"
)

const (
	resetKeyPrefix = "pwreset:"
	resetTokenTTL  = 15 * time.Minute
)

// ResetTokens stores password reset tokens in Redis. Tokens are random,
// expire after resetTokenTTL, and are deleted on first use.
type ResetTokens struct {
	rdb *store.Redis
}

func NewResetTokens(rdb *store.Redis) *ResetTokens {
	return &ResetTokens{rdb: rdb}
}

// Issue creates a fresh single-use token mapping to userID.
func (t *ResetTokens) Issue(ctx context.Context, userID string) (string, error) {
	token := uuid.New().String()
	if err := t.rdb.SetOnce(ctx, resetKeyPrefix+token, userID, resetTokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// Consume redeems a token, invalidating it, and returns the user it was
// issued for. Unknown, expired, and already-used tokens fail identically.
func (t *ResetTokens) Consume(ctx context.Context, token string) (string, error) {
	userID, err := t.rdb.TakeOnce(ctx, resetKeyPrefix+token)
	if errors.Is(err, store.ErrNoValue) {
		return "", apierr.Validation("Invalid or expired reset token")
	}
	if err != nil {
		return "", err
	}
	return userID, nil
}
