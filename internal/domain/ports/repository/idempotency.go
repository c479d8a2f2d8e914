package repository

import "context"

// PurchaseReceipt is the serialized outcome of a committed purchase, cached so
// a client retry after a network timeout returns the original result instead
// of double-charging.
type PurchaseReceipt struct {
	PlotID          string `json:"plot_id"`
	TotalCostCents  int64  `json:"total_cost"`
	PaymentStatus   string `json:"payment_status"`
	FreeSquaresUsed int    `json:"free_squares_used"`
	PaidSquares     int    `json:"paid_squares"`
	TransactionID   string `json:"transaction_id,omitempty"`
}

// IdempotencyStore is the fast-path replay cache keyed by the request's
// idempotency key. The transactions table (unique key column) remains the
// durable arbiter; this store only avoids hitting Postgres on hot retries.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*PurchaseReceipt, error)
	Put(ctx context.Context, key string, r *PurchaseReceipt) error
}
