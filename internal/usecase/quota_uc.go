package usecase

import (
	"context"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/repository"
	"city-plot-engine/internal/domain/pricing"
)

// QuotaLedger tracks lifetime free-square consumption. Remaining is derived
// (limit + tier bonus - used); Consume is a hard invariant check, not a clamp:
// by the time it runs the calculator has already clamped the quantity, so any
// overshoot here is a bug and must abort the purchase.
type QuotaLedger interface {
	Remaining(u *model.User) int
	Consume(ctx context.Context, tx repository.Tx, u *model.User, n int) error
	Restore(ctx context.Context, tx repository.Tx, u *model.User, n int) error
}

var _ QuotaLedger = (*quotaLedger)(nil)

type quotaLedger struct {
	users repository.UserRepository
	cfg   pricing.Config
}

func NewQuotaLedger(users repository.UserRepository, cfg pricing.Config) *quotaLedger {
	return &quotaLedger{users: users, cfg: cfg}
}

func (l *quotaLedger) Remaining(u *model.User) int {
	return pricing.RemainingFreeSquares(l.cfg, u)
}

// Consume increments FreeSquaresUsed by n and persists the user. Fails with
// ErrQuotaExceeded when n would push usage past limit + bonus.
func (l *quotaLedger) Consume(ctx context.Context, tx repository.Tx, u *model.User, n int) error {
	if n < 0 {
		return domain.ErrInvalidArgument
	}
	if n == 0 {
		return nil
	}
	if n > l.Remaining(u) {
		return domain.ErrQuotaExceeded
	}
	u.FreeSquaresUsed += n
	u.Touch()
	return l.users.Save(ctx, tx, u)
}

// Restore gives squares back on refund. Never drops usage below zero.
func (l *quotaLedger) Restore(ctx context.Context, tx repository.Tx, u *model.User, n int) error {
	if n < 0 {
		return domain.ErrInvalidArgument
	}
	if n == 0 {
		return nil
	}
	u.FreeSquaresUsed -= n
	if u.FreeSquaresUsed < 0 {
		u.FreeSquaresUsed = 0
	}
	u.Touch()
	return l.users.Save(ctx, tx, u)
}
