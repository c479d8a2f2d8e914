// Package payment provides the simulated payment gateway. It stands in for a
// real provider behind the adapter.PaymentGateway port; the accept/decline
// heuristics below exist only so the purchase flow can be exercised end to
// end without a gateway account.
package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"city-plot-engine/internal/domain"
	"city-plot-engine/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*MockGateway)(nil)

type MockGateway struct {
	log *zerolog.Logger
}

func NewMockGateway(logger *zerolog.Logger) *MockGateway {
	return &MockGateway{log: logger}
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) CreateIntent(ctx context.Context, amountCents int64, meta map[string]interface{}) (string, error) {
	if amountCents <= 0 {
		return "", domain.ErrInvalidArgument
	}
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	secret := "cs_mock_" + hex.EncodeToString(buf)
	g.log.Debug().Int64("amount", amountCents).Msg("mock intent created")
	return secret, nil
}

// Charge simulates a synchronous gateway decision. Cards decline when the
// number is shorter than 4 digits or ends in 0000; wallets decline when the
// address is shorter than 10 characters.
func (g *MockGateway) Charge(ctx context.Context, amountCents int64, method adapter.PaymentMethod) (adapter.ChargeResult, error) {
	if amountCents <= 0 {
		return adapter.ChargeResult{}, domain.ErrInvalidArgument
	}
	switch method.Kind {
	case "card":
		num := strings.ReplaceAll(method.CardNumber, " ", "")
		if len(num) < 4 || strings.HasSuffix(num, "0000") {
			return adapter.ChargeResult{Declined: true, Reason: "card_declined"}, nil
		}
	case "crypto":
		if len(method.WalletAddress) < 10 {
			return adapter.ChargeResult{Declined: true, Reason: "invalid_wallet_address"}, nil
		}
	default:
		return adapter.ChargeResult{}, domain.ErrInvalidArgument
	}
	return adapter.ChargeResult{ReferenceID: "ch_" + ulid.Make().String()}, nil
}

func (g *MockGateway) Refund(ctx context.Context, referenceID string, amountCents int64, reason string) (adapter.ChargeResult, error) {
	if amountCents <= 0 {
		return adapter.ChargeResult{}, domain.ErrInvalidArgument
	}
	g.log.Debug().Str("ref", referenceID).Int64("amount", amountCents).Str("reason", reason).Msg("mock refund issued")
	return adapter.ChargeResult{ReferenceID: "re_" + ulid.Make().String()}, nil
}
