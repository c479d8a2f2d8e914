package model

import (
	"time"

	"city-plot-engine/internal/domain"
)

// DefaultFreeSquares is the base free-square allowance granted to every
// account, before any tier bonus.
const DefaultFreeSquares = 25

// User is the engine's view of an account. Identity comes from an external
// provider; we only store the opaque id plus the purchase-relevant counters.
// Version is the optimistic-concurrency token bumped on every mutation.
type User struct {
	ID               string
	SubscriptionTier SubscriptionTier
	FreeSquaresLimit int
	FreeSquaresUsed  int
	CreditsCents     int64
	TotalSpentCents  int64
	Version          int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewUser creates a user record with the default allowance. Called lazily on
// first purchase when the external id has never been seen before.
func NewUser(id string, tier SubscriptionTier) (*User, error) {
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &User{
		ID:               id,
		SubscriptionTier: tier,
		FreeSquaresLimit: DefaultFreeSquares,
		FreeSquaresUsed:  0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

func (u *User) Touch() { u.UpdatedAt = time.Now() }
