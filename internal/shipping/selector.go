package shipping

import "github.com/shopspring/decimal"

// Option is one shipping method the shop offers.
type Option struct {
	Label string
	Fee   decimal.Decimal
}

// Selector enforces radio semantics over a fixed option set: at most one
// option is selected at any time. Options are identified by fee value, the
// same identity the page's checkbox values carry, so two options with equal
// fees collapse into one.
//
// Like the cart store, a Selector is owned by a single page controller.
type Selector struct {
	options  []Option
	selected int // index into options, -1 when none
}

func NewSelector(options ...Option) *Selector {
	return &Selector{options: options, selected: -1}
}

// Select marks the option with the given fee as the only selected one. The
// transition from a previous selection is atomic: there is no observable
// state with two selections. Selecting a fee that matches no known option
// empties the selection and returns false.
func (s *Selector) Select(fee decimal.Decimal) bool {
	s.selected = -1
	for i, opt := range s.options {
		if opt.Fee.Equal(fee) {
			s.selected = i
			return true
		}
	}
	return false
}

func (s *Selector) DeselectAll() {
	s.selected = -1
}

// Current returns the selected fee. The second return is false when nothing
// is selected.
func (s *Selector) Current() (decimal.Decimal, bool) {
	if s.selected < 0 {
		return decimal.Zero, false
	}
	return s.options[s.selected].Fee, true
}

// Eligible reports whether checkout may proceed: a shipping method must be
// selected first.
func (s *Selector) Eligible() bool {
	return s.selected >= 0
}

// Options returns the known option set in registration order.
func (s *Selector) Options() []Option {
	out := make([]Option, len(s.options))
	copy(out, s.options)
	return out
}
