package domain

import (
	"fmt"
	"math/bits"
	"strconv"
)

// Inventory holds the count of every category. It is a value type: every
// transition returns a new Inventory and leaves the receiver untouched.
type Inventory struct {
	counts [numCategories]uint64
}

// NewInventory stores the given starting counts verbatim. Categories not
// present in counts start at zero.
func NewInventory(counts map[Category]uint64) Inventory {
	var inv Inventory
	for c, n := range counts {
		if c.Valid() {
			inv.counts[c] = n
		}
	}
	return inv
}

func (inv Inventory) Count(c Category) uint64 {
	if !c.Valid() {
		return 0
	}
	return inv.counts[c]
}

// Counts returns the counts keyed by category key.
func (inv Inventory) Counts() map[string]uint64 {
	out := make(map[string]uint64, numCategories)
	for c := Category(0); c < numCategories; c++ {
		out[c.Key()] = inv.counts[c]
	}
	return out
}

// Dispense takes amount items of category c.
func (inv Inventory) Dispense(c Category, amount uint64) (Inventory, uint64, Event, error) {
	if !c.Valid() {
		return inv, 0, Event{}, fmt.Errorf("%w: %d", ErrUnknownCategory, uint8(c))
	}
	available := inv.counts[c]
	if amount > available {
		return inv, available, Event{}, fmt.Errorf("%w: want to take %d %s, machine has %d",
			ErrInsufficientStock, amount, c.Key(), available)
	}

	next := inv
	next.counts[c] = available - amount

	event := NewEvent(EventItemDispensed).
		With("category", c.Key()).
		With("amount", strconv.FormatUint(amount, 10)).
		With("left", strconv.FormatUint(next.counts[c], 10))
	return next, next.counts[c], event, nil
}

// Refill adds amount to every category. If any category would overflow,
// nothing is updated.
func (inv Inventory) Refill(amount uint64) (Inventory, Event, error) {
	next := inv
	for c := Category(0); c < numCategories; c++ {
		sum, carry := bits.Add64(inv.counts[c], amount, 0)
		if carry != 0 {
			return inv, Event{}, fmt.Errorf("%w: adding %d to %s (%d)",
				ErrRefillOverflow, amount, c.Key(), inv.counts[c])
		}
		next.counts[c] = sum
	}

	event := NewEvent(EventInventoryRefilled).With("amount", strconv.FormatUint(amount, 10))
	for c := Category(0); c < numCategories; c++ {
		event = event.With(c.Key(), strconv.FormatUint(next.counts[c], 10))
	}
	return next, event, nil
}
