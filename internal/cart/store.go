package cart

// Store tracks the quantity of each product in one visitor's cart. Quantity
// zero and absence are the same state, and quantities never go negative:
// malformed input is clamped, not rejected, because nothing a visitor clicks
// should take the page down.
//
// A Store belongs to a single page controller, which serializes access to it.
type Store struct {
	quantities map[string]int
}

func NewStore() *Store {
	return &Store{quantities: make(map[string]int)}
}

// SetQuantity clamps qty to zero or more, stores it and returns the value
// actually stored.
func (s *Store) SetQuantity(productID string, qty int) int {
	if qty < 0 {
		qty = 0
	}
	if qty == 0 {
		delete(s.quantities, productID)
		return 0
	}
	s.quantities[productID] = qty
	return qty
}

func (s *Store) Increment(productID string) int {
	return s.SetQuantity(productID, s.QuantityOf(productID)+1)
}

// Decrement never goes below zero; decrementing an absent line is a no-op.
func (s *Store) Decrement(productID string) int {
	return s.SetQuantity(productID, s.QuantityOf(productID)-1)
}

// QuantityOf returns 0 for unknown product ids. Absence is a valid default,
// never an error.
func (s *Store) QuantityOf(productID string) int {
	return s.quantities[productID]
}

// TotalItemCount is the sum of all positive quantities.
func (s *Store) TotalItemCount() int {
	total := 0
	for _, qty := range s.quantities {
		total += qty
	}
	return total
}

// Lines returns a copy of the positive cart lines. Callers can hold on to it
// without seeing later mutations.
func (s *Store) Lines() map[string]int {
	lines := make(map[string]int, len(s.quantities))
	for id, qty := range s.quantities {
		if qty > 0 {
			lines[id] = qty
		}
	}
	return lines
}

// Replace swaps in a hydrated line set, sanitizing as it goes. Used when
// restoring a persisted snapshot.
func (s *Store) Replace(lines map[string]int) {
	s.quantities = make(map[string]int, len(lines))
	for id, qty := range lines {
		s.SetQuantity(id, qty)
	}
}
