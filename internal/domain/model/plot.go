package model

import (
	"math"
	"time"

	"city-plot-engine/internal/domain"
)

type PlotPaymentStatus string

const (
	PlotStatusFree            PlotPaymentStatus = "free"              // fully covered by the free allowance
	PlotStatusPending         PlotPaymentStatus = "pending"           // reserved, awaiting payment (not persisted by the engine today)
	PlotStatusPaid            PlotPaymentStatus = "paid"              // settled via a completed payment intent
	PlotStatusPaidWithCredits PlotPaymentStatus = "paid_with_credits" // settled from the prepaid credit balance
	PlotStatusRefunded        PlotPaymentStatus = "refunded"
)

// Position is a grid coordinate on the city map. Uniqueness across all plots
// is the allocation invariant; the storage layer enforces it with a unique
// index over (x, z).
type Position struct {
	X float64
	Z float64
}

// DistanceFromOrigin is the Euclidean distance to the map center.
func (p Position) DistanceFromOrigin() float64 {
	return math.Sqrt(p.X*p.X + p.Z*p.Z)
}

// DistanceTo returns the Euclidean distance to another position.
func (p Position) DistanceTo(o Position) float64 {
	dx, dz := p.X-o.X, p.Z-o.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// Size is the rectangular footprint of a plot in grid squares.
type Size struct {
	Width int
	Depth int
}

func (s Size) Squares() int { return s.Width * s.Depth }

func (s Size) Valid() bool { return s.Width > 0 && s.Depth > 0 }

// PricingSnapshot is captured at allocation time and never recomputed. Refunds
// reverse exactly the amounts recorded here.
type PricingSnapshot struct {
	TotalCostCents      int64
	FreeSquares         int
	PaidSquares         int
	PricePerSquareCents int64
}

// Plot is a uniquely positioned parcel owned by one user. Pricing fields are
// immutable after creation; only PaymentStatus may transition (to refunded).
type Plot struct {
	ID            string
	UserID        string
	Position      Position
	Size          Size
	Pricing       PricingSnapshot
	PaymentStatus PlotPaymentStatus
	// Customizations is opaque pass-through data (building/advertising
	// payloads); the engine stores it verbatim and never inspects it.
	Customizations map[string]interface{}
	CreatedAt      time.Time
}

// NewPlot validates the basics that are independent of pricing.
func NewPlot(id, userID string, pos Position, size Size) (*Plot, error) {
	if id == "" || userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if !size.Valid() {
		return nil, domain.ErrInvalidDimension
	}
	return &Plot{
		ID:        id,
		UserID:    userID,
		Position:  pos,
		Size:      size,
		CreatedAt: time.Now(),
	}, nil
}
