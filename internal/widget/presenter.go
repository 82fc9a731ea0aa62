package widget

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/studio-lm/booooks/internal/cart"
	"github.com/studio-lm/booooks/internal/catalog"
	"github.com/studio-lm/booooks/internal/shipping"
)

// EmptyLabel is what the collapsed widget shows when nothing is in the cart.
const EmptyLabel = "Cart"

// Presenter turns cart, shipping and catalog state into the widget's display
// strings. It is pure: rendering never mutates the stores, and the same state
// always renders the same text.
type Presenter struct {
	catalog catalog.Reader
}

func New(catalog catalog.Reader) *Presenter {
	return &Presenter{catalog: catalog}
}

// Render returns the cart widget label: the neutral empty label when the
// cart holds nothing, otherwise the currency-formatted grand total.
func (p *Presenter) Render(ctx context.Context, store *cart.Store, sel *shipping.Selector) string {
	if store.TotalItemCount() == 0 {
		return EmptyLabel
	}
	return "€" + p.Total(ctx, store, sel).StringFixed(2)
}

// Total is Σ(quantity × unit price) plus the selected shipping fee, 0 when
// none is selected. Cart lines referencing products missing from the catalog
// contribute nothing.
func (p *Presenter) Total(ctx context.Context, store *cart.Store, sel *shipping.Selector) decimal.Decimal {
	total := decimal.Zero
	for id, qty := range store.Lines() {
		product, err := p.catalog.Product(ctx, id)
		if err != nil {
			continue // stale line, excluded
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(qty))))
	}

	if fee, ok := sel.Current(); ok {
		total = total.Add(fee)
	}
	return total
}

// HoverLabel is the text shown while the pointer rests on the collapsed
// widget.
func (p *Presenter) HoverLabel(store *cart.Store) string {
	if n := store.TotalItemCount(); n > 0 {
		return fmt.Sprintf("Buy (%d)", n)
	}
	return "No items"
}
