package adapter

import "context"

// PaymentMethod is what the caller presents on the synchronous "process now"
// path. Real gateways replace the simulated one behind the same port.
type PaymentMethod struct {
	Kind          string // "card" | "crypto"
	CardNumber    string
	WalletAddress string
}

// ChargeResult is the provider-agnostic outcome of a charge or verification.
type ChargeResult struct {
	ReferenceID string // provider reference for the settled charge
	Declined    bool
	Reason      string
}

// PaymentGateway is the hex port for payment providers. The engine ships a
// simulated implementation; its accept/decline heuristics are gateway detail,
// never business rules.
type PaymentGateway interface {
	Name() string

	// CreateIntent registers an expected charge with the provider and returns
	// a client secret the frontend uses to complete it.
	CreateIntent(ctx context.Context, amountCents int64, meta map[string]interface{}) (clientSecret string, err error)

	// Charge processes a synchronous payment with the presented method.
	Charge(ctx context.Context, amountCents int64, method PaymentMethod) (ChargeResult, error)

	// Refund reverses a previously settled charge.
	Refund(ctx context.Context, referenceID string, amountCents int64, reason string) (ChargeResult, error)
}
