package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/adapter"
	"city-plot-engine/internal/domain/ports/repository"
	"city-plot-engine/internal/domain/pricing"
	"city-plot-engine/internal/infra/metrics"
)

// Intent is the caller-facing view of a freshly created payment intent.
type Intent struct {
	PaymentIntentID string
	TotalCostCents  int64
	ClientSecret    string
}

// RefundResult reports a completed reversal.
type RefundResult struct {
	TransactionID     string
	RefundAmountCents int64
	Status            model.TransactionStatus
}

// PaymentUseCase drives the payment-intent lifecycle: create a pending
// transaction, confirm it to completed/failed, process a synchronous charge,
// or refund a completed one (reversing the owner's quota and spend deltas).
type PaymentUseCase interface {
	CreatePlotIntent(ctx context.Context, userID string, size model.Size, hasCustomModel bool, premiumFeatures []string) (*Intent, error)
	Confirm(ctx context.Context, intentID string, succeeded bool) (*model.Transaction, error)
	ProcessNow(ctx context.Context, userID string, amountCents int64, method adapter.PaymentMethod) (*model.Transaction, error)
	Refund(ctx context.Context, transactionID, reason string) (*RefundResult, error)
	SumCompletedByPeriod(ctx context.Context, period string) (int64, error)
}

var _ PaymentUseCase = (*paymentUC)(nil)

type paymentUC struct {
	txs     repository.TransactionRepository
	users   repository.UserRepository
	plots   repository.PlotRepository
	quota   QuotaLedger
	gateway adapter.PaymentGateway
	tm      repository.TransactionManager
	cfg     pricing.Config
	log     *zerolog.Logger
}

func NewPaymentUseCase(
	txs repository.TransactionRepository,
	users repository.UserRepository,
	plots repository.PlotRepository,
	quota QuotaLedger,
	gateway adapter.PaymentGateway,
	tm repository.TransactionManager,
	cfg pricing.Config,
	logger *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		txs: txs, users: users, plots: plots,
		quota: quota, gateway: gateway, tm: tm,
		cfg: cfg, log: logger,
	}
}

// CreatePlotIntent quotes the plot without spatial multipliers (the position
// is not known yet at intent time) and registers the expected charge as a
// pending transaction. Idempotent per returned intent id.
func (u *paymentUC) CreatePlotIntent(ctx context.Context, userID string, size model.Size, hasCustomModel bool, premiumFeatures []string) (*Intent, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !size.Valid() {
		return nil, domain.ErrInvalidDimension
	}

	tier := model.TierFree
	remaining := model.DefaultFreeSquares + u.cfg.BonusSquares(model.TierFree)
	if usr, err := u.users.FindByID(ctx, repository.NoTX, userID); err == nil {
		tier = usr.SubscriptionTier
		remaining = pricing.RemainingFreeSquares(u.cfg, usr)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	bd, err := pricing.Calculate(u.cfg, pricing.Input{
		Size:                 size,
		Tier:                 tier,
		RemainingFreeSquares: remaining,
		HasCustomModel:       hasCustomModel,
		PremiumFeatures:      premiumFeatures,
	})
	if err != nil {
		return nil, err
	}
	if bd.TotalCostCents <= 0 {
		// Fully covered by the free allowance; nothing to charge.
		return nil, domain.ErrInvalidArgument
	}

	secret, err := u.gateway.CreateIntent(ctx, bd.TotalCostCents, map[string]interface{}{
		"user_id": userID,
		"type":    string(model.TxTypePlotPurchase),
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t := &model.Transaction{
		ID:           ulid.Make().String(),
		UserID:       userID,
		AmountCents:  bd.TotalCostCents,
		Currency:     model.Currency,
		Type:         model.TxTypePlotPurchase,
		Status:       model.TxStatusPending,
		ClientSecret: secret,
		Metadata: map[string]interface{}{
			"width":            size.Width,
			"depth":            size.Depth,
			"has_custom_model": hasCustomModel,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.txs.Save(ctx, repository.NoTX, t); err != nil {
		return nil, err
	}

	metrics.IncPayment("pending")
	return &Intent{PaymentIntentID: t.ID, TotalCostCents: t.AmountCents, ClientSecret: secret}, nil
}

// Confirm transitions pending → completed|failed. Confirming an already
// settled intent with the same outcome is an idempotent no-op.
func (u *paymentUC) Confirm(ctx context.Context, intentID string, succeeded bool) (*model.Transaction, error) {
	t, err := u.txs.FindByID(ctx, repository.NoTX, intentID)
	if err != nil {
		return nil, err
	}

	target := model.TxStatusFailed
	if succeeded {
		target = model.TxStatusCompleted
	}
	if t.Status == target {
		return t, nil
	}
	if t.Status != model.TxStatusPending {
		return nil, domain.ErrPaymentNotCompleted
	}

	now := time.Now()
	var completedAt *time.Time
	if succeeded {
		completedAt = &now
	}
	if err := u.txs.UpdateStatus(ctx, repository.NoTX, t.ID, target, completedAt); err != nil {
		return nil, err
	}
	t.Status = target
	t.UpdatedAt = now
	t.CompletedAt = completedAt

	metrics.IncPayment(string(target))
	if succeeded {
		metrics.AddPaymentRevenue(t.Currency, t.AmountCents)
	}
	return t, nil
}

// ProcessNow runs the synchronous simulated-gateway path: charge immediately
// and record the settled (or failed) transaction in one step.
func (u *paymentUC) ProcessNow(ctx context.Context, userID string, amountCents int64, method adapter.PaymentMethod) (*model.Transaction, error) {
	if userID == "" || amountCents <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	res, err := u.gateway.Charge(ctx, amountCents, method)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	t := &model.Transaction{
		ID:          ulid.Make().String(),
		UserID:      userID,
		AmountCents: amountCents,
		Currency:    model.Currency,
		Type:        model.TxTypePlotPurchase,
		Status:      model.TxStatusCompleted,
		Metadata:    map[string]interface{}{"gateway_ref": res.ReferenceID, "method": method.Kind},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if res.Declined {
		t.Status = model.TxStatusFailed
		t.Metadata["decline_reason"] = res.Reason
	} else {
		t.CompletedAt = &now
	}
	if err := u.txs.Save(ctx, repository.NoTX, t); err != nil {
		return nil, err
	}

	metrics.IncPayment(string(t.Status))
	if t.Status == model.TxStatusCompleted {
		metrics.AddPaymentRevenue(t.Currency, t.AmountCents)
	} else {
		return t, domain.ErrPaymentNotCompleted
	}
	return t, nil
}

// Refund reverses a completed transaction. When the transaction settled a
// plot, the plot flips to refunded and the owner's free-square usage and
// total spend are restored from the pricing snapshot, all in one database
// transaction.
func (u *paymentUC) Refund(ctx context.Context, transactionID, reason string) (*RefundResult, error) {
	if transactionID == "" {
		return nil, domain.ErrInvalidArgument
	}

	var result *RefundResult
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		t, err := u.txs.FindByID(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if !t.Refundable() {
			return domain.ErrNotRefundable
		}

		if pgxTx, ok := tx.(pgx.Tx); ok {
			if _, err := pgxTx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(t.UserID)); err != nil {
				return err
			}
		}

		if t.PlotID != nil {
			plot, err := u.plots.FindByID(ctx, tx, *t.PlotID)
			if err != nil {
				return err
			}
			owner, err := u.users.FindByIDForUpdate(ctx, tx, plot.UserID)
			if err != nil {
				return err
			}
			owner.TotalSpentCents -= plot.Pricing.TotalCostCents
			if owner.TotalSpentCents < 0 {
				owner.TotalSpentCents = 0
			}
			if err := u.quota.Restore(ctx, tx, owner, plot.Pricing.FreeSquares); err != nil {
				return err
			}
			if plot.Pricing.FreeSquares == 0 {
				if err := u.users.Save(ctx, tx, owner); err != nil {
					return err
				}
			}
			if err := u.plots.UpdatePaymentStatus(ctx, tx, plot.ID, model.PlotStatusRefunded); err != nil {
				return err
			}
		}

		if err := u.txs.UpdateStatus(ctx, tx, t.ID, model.TxStatusRefunded, nil); err != nil {
			return err
		}

		if t.AmountCents > 0 {
			ref, _ := t.Metadata["gateway_ref"].(string)
			if _, err := u.gateway.Refund(ctx, ref, t.AmountCents, reason); err != nil {
				return err
			}
		}

		result = &RefundResult{
			TransactionID:     t.ID,
			RefundAmountCents: t.AmountCents,
			Status:            model.TxStatusRefunded,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPayment(string(model.TxStatusRefunded))
	u.log.Info().Str("transaction_id", result.TransactionID).
		Int64("amount", result.RefundAmountCents).Str("reason", reason).
		Msg("transaction refunded")
	return result, nil
}

func (u *paymentUC) SumCompletedByPeriod(ctx context.Context, period string) (int64, error) {
	return u.txs.SumCompletedByPeriod(ctx, repository.NoTX, period)
}
