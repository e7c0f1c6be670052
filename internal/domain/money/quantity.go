package money

import (
	"errors"
	"fmt"
)

var ErrNegativeQuantity = errors.New("quantity must not be negative")

// Quantity is a non-negative unit count. Subtraction fails instead of
// saturating so ledger arithmetic can never silently lose units.
type Quantity struct {
	value int
}

func NewQuantity(value int) (Quantity, error) {
	if value < 0 {
		return Quantity{}, fmt.Errorf("%w: %d", ErrNegativeQuantity, value)
	}
	return Quantity{value: value}, nil
}

// MustQuantity panics on negative input. Intended for tests.
func MustQuantity(value int) Quantity {
	q, err := NewQuantity(value)
	if err != nil {
		panic(err)
	}
	return q
}

func (q Quantity) Value() int   { return q.value }
func (q Quantity) IsZero() bool { return q.value == 0 }

func (q Quantity) Add(other Quantity) Quantity {
	return Quantity{value: q.value + other.value}
}

func (q Quantity) Subtract(other Quantity) (Quantity, error) {
	if other.value > q.value {
		return Quantity{}, fmt.Errorf("%w: %d - %d", ErrNegativeQuantity, q.value, other.value)
	}
	return Quantity{value: q.value - other.value}, nil
}

func (q Quantity) GreaterOrEqual(other Quantity) bool {
	return q.value >= other.value
}

func (q Quantity) String() string {
	return fmt.Sprintf("%d", q.value)
}
