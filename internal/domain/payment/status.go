// internal/domain/payment/status.go
package payment

import "fmt"

// Status represents payment status for a sale or purchase. The payment axis
// is independent of stock: settling never moves quantity and vice versa.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// Method represents how a transaction was paid
type Method string

const (
	MethodCash     Method = "cash"
	MethodCard     Method = "card"
	MethodTransfer Method = "transfer"
)

var validTransitions = map[Status][]Status{
	StatusPending: {StatusPartial, StatusPaid},
	StatusPartial: {StatusPaid},
	// paid is terminal
}

// IsValid reports whether m is a known payment method
func (m Method) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodTransfer:
		return true
	}
	return false
}

// IsValid reports whether s is a known payment status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPartial, StatusPaid:
		return true
	}
	return false
}

// IsSettled reports whether the transaction is fully paid
func (s Status) IsSettled() bool {
	return s == StatusPaid
}

// CanTransitionTo checks if moving from s to target is allowed
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ValidateTransition returns an error describing a rejected transition
func ValidateTransition(from, to Status) error {
	if !to.IsValid() {
		return fmt.Errorf("invalid payment status: %s", to)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("invalid payment transition from %s to %s", from, to)
	}
	return nil
}
