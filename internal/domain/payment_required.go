package domain

import "fmt"

// PaymentRequiredError carries the quoted total so the caller can initiate a
// payment intent for the exact amount. errors.Is(err, ErrPaymentRequired)
// matches it.
type PaymentRequiredError struct {
	TotalCostCents int64
}

func (e *PaymentRequiredError) Error() string {
	return fmt.Sprintf("payment required: total cost %d cents", e.TotalCostCents)
}

func (e *PaymentRequiredError) Unwrap() error { return ErrPaymentRequired }
