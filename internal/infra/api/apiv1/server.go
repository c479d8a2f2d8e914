// Package apiv1 exposes the pricing and allocation engine as a small JSON
// RPC surface. Requests are decoded, validated, and dispatched to the use
// cases; domain errors map onto HTTP statuses in one place.
package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/model"
	"city-plot-engine/internal/domain/ports/adapter"
	"city-plot-engine/internal/infra/api"
	"city-plot-engine/internal/infra/logging"
	"city-plot-engine/internal/infra/metrics"
	red "city-plot-engine/internal/infra/redis"
	"city-plot-engine/internal/usecase"
)

type Server struct {
	pricingUC usecase.PricingUseCase
	allocUC   usecase.AllocationUseCase
	payUC     usecase.PaymentUseCase
	locker    red.Locker // optional position hold; nil disables it
	lockTTL   time.Duration
	validate  *validator.Validate
	log       *zerolog.Logger
}

func NewServer(
	pricingUC usecase.PricingUseCase,
	allocUC usecase.AllocationUseCase,
	payUC usecase.PaymentUseCase,
	locker red.Locker,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *Server {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	return &Server{
		pricingUC: pricingUC,
		allocUC:   allocUC,
		payUC:     payUC,
		locker:    locker,
		lockTTL:   lockTTL,
		validate:  validator.New(),
		log:       logger,
	}
}

// Routes mounts the v1 surface on a chi router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/plots/quote", s.handleQuote)
	r.Post("/plots/purchase", s.handlePurchase)
	r.Post("/payments/intent", s.handleCreateIntent)
	r.Post("/payments/confirm", s.handleConfirm)
	r.Post("/payments/refund", s.handleRefund)
	r.Get("/payments/revenue", s.handleRevenue)
	return r
}

// ---- request/response shapes ----

type positionDTO struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

type sizeDTO struct {
	Width int `json:"width" validate:"required,gt=0"`
	Depth int `json:"depth" validate:"required,gt=0"`
}

type quoteRequest struct {
	Size            sizeDTO     `json:"size" validate:"required"`
	Position        positionDTO `json:"position"`
	HasCustomModel  bool        `json:"hasCustomModel"`
	PremiumFeatures []string    `json:"premiumFeatures"`
}

type paymentMethodDTO struct {
	Kind          string `json:"kind" validate:"omitempty,oneof=card crypto"`
	CardNumber    string `json:"cardNumber"`
	WalletAddress string `json:"walletAddress"`
}

type purchaseRequest struct {
	RequestID       string                 `json:"requestId"`
	PaymentIntentID string                 `json:"paymentIntentId"`
	Position        positionDTO            `json:"position"`
	Size            sizeDTO                `json:"size" validate:"required"`
	HasCustomModel  bool                   `json:"hasCustomModel"`
	PremiumFeatures []string               `json:"premiumFeatures"`
	Building        map[string]interface{} `json:"building"`
	Advertising     map[string]interface{} `json:"advertising"`
	PaymentMethod   *paymentMethodDTO      `json:"paymentMethod"`
}

type purchaseResponse struct {
	PlotID          string `json:"plotId"`
	TotalCost       int64  `json:"totalCost"`
	PaymentStatus   string `json:"paymentStatus"`
	FreeSquaresUsed int    `json:"freeSquaresUsed"`
	PaidSquares     int    `json:"paidSquares"`
	TransactionID   string `json:"transactionId,omitempty"`
}

type intentRequest struct {
	Size            sizeDTO  `json:"plotSize" validate:"required"`
	HasCustomModel  bool     `json:"hasCustomModel"`
	PremiumFeatures []string `json:"premiumFeatures"`
}

type confirmRequest struct {
	PaymentIntentID string `json:"paymentIntentId" validate:"required"`
	Status          string `json:"status" validate:"required,oneof=completed failed"`
}

type refundRequest struct {
	TransactionID string `json:"transactionId" validate:"required"`
	Reason        string `json:"reason"`
}

// ---- handlers ----

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	bd, err := s.pricingUC.Quote(r.Context(), usecase.QuoteRequest{
		UserID:          api.CallerID(r.Context()),
		Position:        model.Position{X: req.Position.X, Z: req.Position.Z},
		Size:            model.Size{Width: req.Size.Width, Depth: req.Size.Depth},
		HasCustomModel:  req.HasCustomModel,
		PremiumFeatures: req.PremiumFeatures,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bd)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if !s.decode(w, r, &req) {
		return
	}
	ctx := r.Context()
	userID := api.CallerID(ctx)
	pos := model.Position{X: req.Position.X, Z: req.Position.Z}

	// Best-effort position hold: sheds doomed competitors before they do
	// pricing work. Correctness is the plots unique index, not this lock.
	if s.locker != nil {
		token, err := s.locker.TryLock(ctx, red.PositionKey(pos), s.lockTTL)
		if err != nil {
			metrics.IncPositionConflict()
			s.writeError(w, r, domain.ErrPositionOccupied)
			return
		}
		defer func() { _ = s.locker.Unlock(ctx, red.PositionKey(pos), token) }()
	}

	ucReq := usecase.PurchaseRequest{
		UserID:          userID,
		RequestID:       req.RequestID,
		PaymentIntentID: req.PaymentIntentID,
		Position:        pos,
		Size:            model.Size{Width: req.Size.Width, Depth: req.Size.Depth},
		HasCustomModel:  req.HasCustomModel,
		PremiumFeatures: req.PremiumFeatures,
		Building:        req.Building,
		Advertising:     req.Advertising,
	}

	receipt, err := s.allocUC.Purchase(ctx, ucReq)

	// The caller presented a payment method for the synchronous simulated
	// path: charge the quoted amount now and retry with the settled intent.
	var payReq *domain.PaymentRequiredError
	if errors.As(err, &payReq) && req.PaymentMethod != nil {
		t, cerr := s.payUC.ProcessNow(ctx, userID, payReq.TotalCostCents, adapter.PaymentMethod{
			Kind:          req.PaymentMethod.Kind,
			CardNumber:    req.PaymentMethod.CardNumber,
			WalletAddress: req.PaymentMethod.WalletAddress,
		})
		if cerr != nil {
			s.writeError(w, r, cerr)
			return
		}
		ucReq.PaymentIntentID = t.ID
		receipt, err = s.allocUC.Purchase(ctx, ucReq)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, purchaseResponse{
		PlotID:          receipt.PlotID,
		TotalCost:       receipt.TotalCostCents,
		PaymentStatus:   receipt.PaymentStatus,
		FreeSquaresUsed: receipt.FreeSquaresUsed,
		PaidSquares:     receipt.PaidSquares,
		TransactionID:   receipt.TransactionID,
	})
}

func (s *Server) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var req intentRequest
	if !s.decode(w, r, &req) {
		return
	}
	intent, err := s.payUC.CreatePlotIntent(r.Context(), api.CallerID(r.Context()),
		model.Size{Width: req.Size.Width, Depth: req.Size.Depth},
		req.HasCustomModel, req.PremiumFeatures)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"paymentIntentId": intent.PaymentIntentID,
		"totalCost":       intent.TotalCostCents,
		"clientSecret":    intent.ClientSecret,
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !s.decode(w, r, &req) {
		return
	}
	t, err := s.payUC.Confirm(r.Context(), req.PaymentIntentID, req.Status == "completed")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactionId": t.ID,
		"status":        t.Status,
		"amount":        t.AmountCents,
	})
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.payUC.Refund(r.Context(), req.TransactionID, req.Reason)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactionId": res.TransactionID,
		"refundAmount":  res.RefundAmountCents,
		"status":        res.Status,
	})
}

func (s *Server) handleRevenue(w http.ResponseWriter, r *http.Request) {
	period := r.URL.Query().Get("period")
	switch period {
	case "":
		period = "day"
	case "day", "week", "month":
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "period must be day, week or month"))
		return
	}
	total, err := s.payUC.SumCompletedByPeriod(r.Context(), period)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":       period,
		"totalRevenue": total,
		"currency":     model.Currency,
	})
}

// ---- helpers ----

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", "malformed JSON body"))
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("validation_failed", err.Error()))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	l := logging.With(r.Context(), s.log)

	var payReq *domain.PaymentRequiredError
	if errors.As(err, &payReq) {
		writeJSON(w, http.StatusPaymentRequired, map[string]interface{}{
			"error":     "payment_required",
			"totalCost": payReq.TotalCostCents,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidDimension),
		errors.Is(err, domain.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid_request", err.Error()))
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not_found", err.Error()))
	case errors.Is(err, domain.ErrPositionOccupied):
		metrics.IncPositionConflict()
		writeJSON(w, http.StatusConflict, errorBody("position_occupied", err.Error()))
	case errors.Is(err, domain.ErrPaymentRequired),
		errors.Is(err, domain.ErrPaymentNotCompleted),
		errors.Is(err, domain.ErrInsufficientCredits):
		writeJSON(w, http.StatusPaymentRequired, errorBody("payment_required", err.Error()))
	case errors.Is(err, domain.ErrPaymentMismatch),
		errors.Is(err, domain.ErrNotRefundable),
		errors.Is(err, domain.ErrIdempotencyConflict),
		errors.Is(err, domain.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("conflict", err.Error()))
	case errors.Is(err, domain.ErrQuotaExceeded):
		// Internal invariant violation; nothing was committed.
		l.Error().Err(err).Msg("quota invariant violation surfaced to API")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal error"))
	default:
		l.Error().Err(err).Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal error"))
	}
}

func errorBody(code, msg string) map[string]string {
	return map[string]string{"error": code, "message": msg}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
