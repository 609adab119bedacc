package engine

import (
	"fmt"

	"github.com/andresuchdata/ddmrp/internal/domain"
	"github.com/shopspring/decimal"
)

// Decision is the order trigger and urgency for one item.
type Decision struct {
	ShouldOrder bool           `json:"should_order"`
	Urgency     domain.Urgency `json:"urgency"`
	// Escalated is set when supply signals raised the urgency.
	Escalated bool `json:"escalated"`
}

// OrderConstraints are the rounding inputs of an order quantity. Nil or
// non-positive values are treated as absent.
type OrderConstraints struct {
	MOQ           *float64 `json:"moq,omitempty"`
	EOQ           *float64 `json:"eoq,omitempty"`
	LotSizeFactor *float64 `json:"lot_size_factor,omitempty"`
}

// Multiple returns the rounding multiple: EOQ when present, else MOQ.
func (c OrderConstraints) Multiple() (decimal.Decimal, bool) {
	if v, ok := positive(c.EOQ); ok {
		return decimal.NewFromFloat(v), true
	}
	if v, ok := positive(c.MOQ); ok {
		return decimal.NewFromFloat(v), true
	}
	return decimal.Zero, false
}

func positive(v *float64) (float64, bool) {
	if v == nil || *v <= 0 {
		return 0, false
	}
	return *v, true
}

// ValidationError is a rejected order edit. Message is safe to show to users.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return domain.ErrInvalidEdit
}

// DecisionEngine decides whether to replenish, how urgently and how much.
type DecisionEngine struct{}

func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{}
}

// Decide triggers an order below the middle of the yellow zone. Supply
// signals can raise the urgency of an order that is already triggered, by
// one tier, but never trigger one on their own.
func (de *DecisionEngine) Decide(nfp float64, zones domain.BufferZones, signals *domain.SupplySignals) Decision {
	topOfRed := zones.Red
	midpoint := zones.IdealPosition()

	urgencyTiers := StrictUpperTable[domain.Urgency]{
		Steps: []UpperBound[domain.Urgency]{
			{Max: topOfRed * 0.5, Value: domain.UrgencyEmergency},
			{Max: topOfRed, Value: domain.UrgencyExpedite},
		},
		Otherwise: domain.UrgencyNormal,
	}

	d := Decision{
		ShouldOrder: nfp < midpoint,
		Urgency:     urgencyTiers.Lookup(nfp),
	}

	if d.ShouldOrder && signals != nil && signals.Elevated() {
		escalated := d.Urgency.Escalate()
		d.Escalated = escalated != d.Urgency
		d.Urgency = escalated
	}
	return d
}

// OrderQuantity returns the quantity needed to refill the buffer to the top of
// green, rounded up to the EOQ (or MOQ) multiple and scaled by a lot size
// factor above one. Never negative.
func (de *DecisionEngine) OrderQuantity(nfp float64, zones domain.BufferZones, c OrderConstraints) decimal.Decimal {
	raw := decimal.NewFromFloat(zones.Total() - nfp)
	if !raw.IsPositive() {
		return decimal.Zero
	}

	qty := raw
	if multiple, ok := c.Multiple(); ok {
		qty = roundUpTo(raw, multiple)
	}

	if factor, ok := c.lotFactor(); ok {
		qty = qty.Mul(factor).Ceil()
	}

	if qty.IsNegative() {
		return decimal.Zero
	}
	return qty
}

func roundUpTo(v, multiple decimal.Decimal) decimal.Decimal {
	return v.Div(multiple).Ceil().Mul(multiple)
}

// ValidateOrderEdit checks an edited quantity against the item's ordering
// constraints. A violation is returned as *ValidationError and nothing is
// coerced.
func (de *DecisionEngine) ValidateOrderEdit(qty decimal.Decimal, c OrderConstraints) error {
	if !qty.IsPositive() {
		return &ValidationError{Field: "quantity", Message: "quantity must be greater than zero"}
	}

	if moq, ok := positive(c.MOQ); ok {
		min := decimal.NewFromFloat(moq)
		if qty.LessThan(min) {
			return &ValidationError{
				Field:   "quantity",
				Message: fmt.Sprintf("quantity %s is below the minimum order quantity %s", qty, min),
			}
		}
	}

	if multiple, ok := c.Multiple(); ok && !c.fitsMultiple(qty, multiple) {
		msg := fmt.Sprintf("quantity %s must be a multiple of %s", qty, multiple)
		if factor, ok := c.lotFactor(); ok {
			msg += fmt.Sprintf(" or a multiple of %s scaled by the lot size factor %s", multiple, factor)
		}
		return &ValidationError{Field: "quantity", Message: msg}
	}
	return nil
}

func (c OrderConstraints) lotFactor() (decimal.Decimal, bool) {
	if factor, ok := positive(c.LotSizeFactor); ok && factor > 1 {
		return decimal.NewFromFloat(factor), true
	}
	return decimal.Zero, false
}

// fitsMultiple accepts plain multiples and any quantity OrderQuantity can
// produce from one: ceil(n * multiple * lot factor).
func (c OrderConstraints) fitsMultiple(qty, multiple decimal.Decimal) bool {
	if qty.Mod(multiple).IsZero() {
		return true
	}
	factor, ok := c.lotFactor()
	if !ok {
		return false
	}
	lot := multiple.Mul(factor)
	n := qty.Div(lot).Floor()
	for _, k := range []decimal.Decimal{n, n.Add(decimal.NewFromInt(1))} {
		if k.IsPositive() && k.Mul(lot).Ceil().Equal(qty) {
			return true
		}
	}
	return false
}
