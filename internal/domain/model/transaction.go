package model

import "time"

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"   // intent created, awaiting confirmation
	TxStatusCompleted TransactionStatus = "completed" // confirmed by the gateway
	TxStatusFailed    TransactionStatus = "failed"    // declined or expired
	TxStatusRefunded  TransactionStatus = "refunded"
)

type TransactionType string

const (
	TxTypePlotPurchase        TransactionType = "plot_purchase"
	TxTypeSubscriptionUpgrade TransactionType = "subscription_upgrade"
	TxTypeCreditPurchase      TransactionType = "credit_purchase"
)

// Currency is fixed for the whole engine; all amounts are integer cents.
const Currency = "USD"

// Transaction records a payment intent and its lifecycle. IdempotencyKey is
// unique when set, which is what makes purchase replays detectable after the
// cache-side idempotency record has expired.
type Transaction struct {
	ID             string // intent id (ULID) or gateway reference
	UserID         string
	PlotID         *string // linked after the purchase commits
	AmountCents    int64
	Currency       string
	Type           TransactionType
	Status         TransactionStatus
	IdempotencyKey *string
	ClientSecret   string
	Metadata       map[string]interface{}
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// Refundable reports whether the transaction can still be reversed.
func (t *Transaction) Refundable() bool {
	return t != nil && t.Status == TxStatusCompleted
}
