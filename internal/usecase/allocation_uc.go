package usecase

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/repository"
	"city-plot-engine/internal/domain/pricing"
	"city-plot-engine/internal/infra/metrics"
)

// PurchaseRequest is one plot purchase attempt. RequestID is the client's
// idempotency key; when absent, the payment-intent id serves as one. Building
// and Advertising are opaque customization payloads stored verbatim.
type PurchaseRequest struct {
	UserID          string
	RequestID       string
	PaymentIntentID string
	Position        model.Position
	Size            model.Size
	HasCustomModel  bool
	PremiumFeatures []string
	Building        map[string]interface{}
	Advertising     map[string]interface{}
}

// AllocationUseCase runs the purchase state machine: Validating → Pricing →
// PaymentPending → Committing → Done. Everything from the payment decision to
// the quota update commits in one database transaction; a failure anywhere
// before commit leaves no persisted side effects.
type AllocationUseCase interface {
	Purchase(ctx context.Context, req PurchaseRequest) (*repository.PurchaseReceipt, error)
}

var _ AllocationUseCase = (*allocationUC)(nil)

type allocationUC struct {
	users     repository.UserRepository
	plots     repository.PlotRepository
	txs       repository.TransactionRepository
	quota     QuotaLedger
	estimator EstimatorUseCase
	idem      repository.IdempotencyStore
	tm        repository.TransactionManager
	cfg       pricing.Config
	log       *zerolog.Logger
}

func NewAllocationUseCase(
	users repository.UserRepository,
	plots repository.PlotRepository,
	txs repository.TransactionRepository,
	quota QuotaLedger,
	estimator EstimatorUseCase,
	idem repository.IdempotencyStore,
	tm repository.TransactionManager,
	cfg pricing.Config,
	logger *zerolog.Logger,
) *allocationUC {
	return &allocationUC{
		users: users, plots: plots, txs: txs,
		quota: quota, estimator: estimator, idem: idem,
		tm: tm, cfg: cfg, log: logger,
	}
}

func hashToInt64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64() & ((1 << 63) - 1))
}

func validPosition(p model.Position) bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Z) && !math.IsInf(p.Z, 0)
}

func (a *allocationUC) Purchase(ctx context.Context, req PurchaseRequest) (*repository.PurchaseReceipt, error) {
	// ---- Validating ----
	if req.UserID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !req.Size.Valid() {
		return nil, domain.ErrInvalidDimension
	}
	if !validPosition(req.Position) {
		return nil, domain.ErrInvalidArgument
	}

	key := req.RequestID
	if key == "" {
		key = req.PaymentIntentID
	}
	if key != "" {
		if r, err := a.idem.Get(ctx, key); err == nil && r != nil {
			return r, nil
		}
		// The cache may have evicted; the transactions table is the durable arbiter.
		if t, err := a.txs.FindByIdempotencyKey(ctx, repository.NoTX, key); err == nil {
			if r := receiptFromTransaction(t); r != nil {
				return r, nil
			}
		}
	}

	// Cheap pre-check. The unique position index inside the transaction is the
	// real arbiter; this only fails the obvious case before pricing work.
	if _, err := a.plots.FindByPosition(ctx, repository.NoTX, req.Position); err == nil {
		return nil, domain.ErrPositionOccupied
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// ---- Pricing (estimator reads tolerate staleness) ----
	est, err := a.estimator.Estimate(ctx, req.Position)
	if err != nil {
		return nil, err
	}

	var receipt *repository.PurchaseReceipt
	err = a.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		// Serialize purchases per user; the plot unique index serializes per position.
		if pgxTx, ok := tx.(pgx.Tx); ok {
			if _, err := pgxTx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", hashToInt64(req.UserID)); err != nil {
				return err
			}
		}

		u, err := a.users.FindByIDForUpdate(ctx, tx, req.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			u, err = model.NewUser(req.UserID, model.TierFree)
		}
		if err != nil {
			return err
		}

		bd, err := pricing.Calculate(a.cfg, pricing.Input{
			Size:                 req.Size,
			Tier:                 u.SubscriptionTier,
			RemainingFreeSquares: a.quota.Remaining(u),
			HasCustomModel:       req.HasCustomModel,
			PremiumFeatures:      req.PremiumFeatures,
			LocationMultiplier:   est.LocationMultiplier,
			DemandMultiplier:     est.DemandMultiplier,
		})
		if err != nil {
			return err
		}

		// ---- PaymentPending ----
		status := model.PlotStatusFree
		var consumed *model.Transaction
		if bd.TotalCostCents > 0 {
			switch {
			case u.CreditsCents >= bd.TotalCostCents:
				u.CreditsCents -= bd.TotalCostCents
				status = model.PlotStatusPaidWithCredits
			case req.PaymentIntentID != "":
				t, err := a.txs.FindByID(ctx, tx, req.PaymentIntentID)
				if err != nil {
					return err
				}
				if t.UserID != req.UserID {
					return domain.ErrNotFound
				}
				if t.PlotID != nil {
					return domain.ErrIdempotencyConflict
				}
				if t.Status != model.TxStatusCompleted {
					return domain.ErrPaymentNotCompleted
				}
				if t.AmountCents != bd.TotalCostCents {
					return domain.ErrPaymentMismatch
				}
				consumed = t
				status = model.PlotStatusPaid
			default:
				return &domain.PaymentRequiredError{TotalCostCents: bd.TotalCostCents}
			}
		}

		// ---- Committing ----
		plot, err := model.NewPlot(uuid.NewString(), u.ID, req.Position, req.Size)
		if err != nil {
			return err
		}
		plot.Pricing = model.PricingSnapshot{
			TotalCostCents:      bd.TotalCostCents,
			FreeSquares:         bd.FreeSquaresToUse,
			PaidSquares:         bd.PaidSquares,
			PricePerSquareCents: bd.PricePerSquareCents,
		}
		plot.PaymentStatus = status
		plot.Customizations = mergeCustomizations(req.Building, req.Advertising)

		if err := a.plots.Insert(ctx, tx, plot); err != nil {
			return err
		}

		u.TotalSpentCents += bd.TotalCostCents
		if err := a.quota.Consume(ctx, tx, u, bd.FreeSquaresToUse); err != nil {
			if errors.Is(err, domain.ErrQuotaExceeded) {
				// Should be impossible: the calculator already clamped to the
				// remaining allowance. Abort loudly, commit nothing.
				a.log.Error().Str("user_id", u.ID).Int("squares", bd.FreeSquaresToUse).
					Msg("free-quota invariant violated during commit")
			}
			return err
		}
		if bd.FreeSquaresToUse == 0 {
			// Consume persisted the user only when it consumed something.
			if err := a.users.Save(ctx, tx, u); err != nil {
				return err
			}
		}

		receipt = &repository.PurchaseReceipt{
			PlotID:          plot.ID,
			TotalCostCents:  bd.TotalCostCents,
			PaymentStatus:   string(status),
			FreeSquaresUsed: bd.FreeSquaresToUse,
			PaidSquares:     bd.PaidSquares,
		}

		now := time.Now()
		switch {
		case consumed != nil:
			consumed.PlotID = &plot.ID
			stampReceipt(consumed, receipt)
			if consumed.IdempotencyKey == nil && key != "" {
				consumed.IdempotencyKey = &key
			}
			if err := a.txs.Save(ctx, tx, consumed); err != nil {
				return err
			}
			receipt.TransactionID = consumed.ID
		case bd.TotalCostCents > 0 || key != "":
			// Credits purchases always get their settlement record; free
			// purchases get one only when a replayable key was supplied.
			rec := &model.Transaction{
				ID:          ulid.Make().String(),
				UserID:      u.ID,
				PlotID:      &plot.ID,
				AmountCents: bd.TotalCostCents,
				Currency:    model.Currency,
				Type:        model.TxTypePlotPurchase,
				Status:      model.TxStatusCompleted,
				CreatedAt:   now,
				UpdatedAt:   now,
				CompletedAt: &now,
			}
			if key != "" {
				rec.IdempotencyKey = &key
			}
			stampReceipt(rec, receipt)
			if err := a.txs.Save(ctx, tx, rec); err != nil {
				return err
			}
			receipt.TransactionID = rec.ID
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) && key != "" {
			// Lost a replay race on the idempotency key; surface the winner.
			if t, ferr := a.txs.FindByIdempotencyKey(ctx, repository.NoTX, key); ferr == nil {
				if r := receiptFromTransaction(t); r != nil {
					return r, nil
				}
			}
		}
		return nil, err
	}

	// ---- Done ----
	if key != "" {
		if perr := a.idem.Put(ctx, key, receipt); perr != nil {
			a.log.Warn().Err(perr).Str("key", key).Msg("idempotency cache write failed")
		}
	}
	metrics.IncPlotAllocated(receipt.PaymentStatus)
	metrics.AddPlotRevenue(model.Currency, receipt.TotalCostCents)
	metrics.AddFreeSquaresConsumed(receipt.FreeSquaresUsed)

	a.log.Info().
		Str("user_id", req.UserID).Str("plot_id", receipt.PlotID).
		Int64("total_cost", receipt.TotalCostCents).Str("payment_status", receipt.PaymentStatus).
		Msg("plot allocated")
	return receipt, nil
}

func mergeCustomizations(building, advertising map[string]interface{}) map[string]interface{} {
	if building == nil && advertising == nil {
		return nil
	}
	out := make(map[string]interface{}, 2)
	if building != nil {
		out["building"] = building
	}
	if advertising != nil {
		out["advertising"] = advertising
	}
	return out
}

// stampReceipt mirrors the receipt into transaction metadata so replays can be
// answered from the durable record after the cache entry expires.
func stampReceipt(t *model.Transaction, r *repository.PurchaseReceipt) {
	if t.Metadata == nil {
		t.Metadata = map[string]interface{}{}
	}
	t.Metadata["plot_id"] = r.PlotID
	t.Metadata["payment_status"] = r.PaymentStatus
	t.Metadata["free_squares_used"] = r.FreeSquaresUsed
	t.Metadata["paid_squares"] = r.PaidSquares
}

func receiptFromTransaction(t *model.Transaction) *repository.PurchaseReceipt {
	if t == nil || t.PlotID == nil {
		return nil
	}
	r := &repository.PurchaseReceipt{
		PlotID:         *t.PlotID,
		TotalCostCents: t.AmountCents,
		TransactionID:  t.ID,
	}
	if s, ok := t.Metadata["payment_status"].(string); ok {
		r.PaymentStatus = s
	}
	r.FreeSquaresUsed = metaInt(t.Metadata, "free_squares_used")
	r.PaidSquares = metaInt(t.Metadata, "paid_squares")
	return r
}

// metaInt reads an integer that may have round-tripped through JSON as float64.
func metaInt(m map[string]interface{}, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
