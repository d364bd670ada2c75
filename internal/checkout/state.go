package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"

	"pos-terminal/internal/models"
)

// Phase is the explicit state of the transaction processor. Transitions
// are validated so the flow cannot skip validation or double-submit.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseCommitted
	PhaseOfflineFallback
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseValidating:
		return "validating"
	case PhaseSubmitting:
		return "submitting"
	case PhaseCommitted:
		return "committed"
	case PhaseOfflineFallback:
		return "offline_fallback"
	case PhaseRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

var transitions = map[Phase][]Phase{
	PhaseIdle:            {PhaseValidating},
	PhaseValidating:      {PhaseSubmitting, PhaseRejected},
	PhaseSubmitting:      {PhaseCommitted, PhaseOfflineFallback, PhaseRejected},
	PhaseCommitted:       {PhaseIdle},
	PhaseOfflineFallback: {PhaseIdle},
	PhaseRejected:        {PhaseIdle},
}

// CanEnter reports whether next is a legal successor of p.
func (p Phase) CanEnter(next Phase) bool {
	for _, allowed := range transitions[p] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next if the move is legal, or an error leaving the
// caller in the current phase. Pure function of its inputs.
func Transition(from, to Phase) (Phase, error) {
	if !from.CanEnter(to) {
		return from, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	return to, nil
}

// RejectReason categorizes validation failures.
type RejectReason string

const (
	RejectEmptyCart           RejectReason = "empty_cart"
	RejectInsufficientPayment RejectReason = "insufficient_payment"
	RejectInsufficientStock   RejectReason = "insufficient_stock"
)

// Rejection describes why validation refused a checkout. It carries the
// figures the operator needs: required vs received amounts for payment
// failures, the offending product and remaining stock for stock failures.
type Rejection struct {
	Reason    RejectReason    `json:"reason"`
	Message   string          `json:"message"`
	ProductID string          `json:"product_id,omitempty"`
	Required  decimal.Decimal `json:"required"`
	Received  decimal.Decimal `json:"received"`
	Remaining int             `json:"remaining,omitempty"`
}

// Validate runs the submit-time precondition checks in order and
// returns the first failure, or nil. Stock is re-validated here against
// live products, not the add-time snapshots, to catch depletion that
// happened after the items entered the cart.
func Validate(items []models.CartItem, total decimal.Decimal, method string, received decimal.Decimal, live map[string]models.Product) *Rejection {
	if len(items) == 0 {
		return &Rejection{
			Reason:  RejectEmptyCart,
			Message: "cart is empty",
		}
	}

	if method == models.PaymentMethodCash && received.LessThan(total) {
		return &Rejection{
			Reason:   RejectInsufficientPayment,
			Message:  fmt.Sprintf("insufficient payment: required %s, received %s", total.StringFixed(2), received.StringFixed(2)),
			Required: total,
			Received: received,
		}
	}

	for _, item := range items {
		product, ok := live[item.ProductID]
		remaining := 0
		if ok {
			remaining = product.Stock
		}
		if remaining < item.Quantity {
			return &Rejection{
				Reason:    RejectInsufficientStock,
				Message:   fmt.Sprintf("stock unavailable for %s: requested %d, remaining %d", item.Name, item.Quantity, remaining),
				ProductID: item.ProductID,
				Remaining: remaining,
			}
		}
	}

	return nil
}
