package checkout

import (
	"context"
	"sort"
	"strconv"

	"github.com/studio-lm/booooks/internal/cart"
	"github.com/studio-lm/booooks/internal/catalog"
	"github.com/studio-lm/booooks/internal/shipping"
)

// Field is one key/value pair of the payment-redirect form.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ExportFields materializes the cart into the field scheme the payment
// redirect expects: item_name_N, amount_N (unit price, two decimals) and
// quantity_N for N = 1..k, plus shipping_cart when a positive fee is
// selected. A selected fee of exactly zero is free shipping and emits
// nothing.
//
// Lines are emitted in product-id order so the export is deterministic for a
// given state. Cart entries whose product no longer exists in the catalog are
// skipped. The field set is rebuilt from scratch on every call; nothing
// accumulates across invocations.
func ExportFields(ctx context.Context, store *cart.Store, sel *shipping.Selector, cat catalog.Reader) []Field {
	lines := store.Lines()
	ids := make([]string, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fields := make([]Field, 0, len(ids)*3+1)
	index := 1
	for _, id := range ids {
		product, err := cat.Product(ctx, id)
		if err != nil {
			continue // product withdrawn since the line was added
		}

		n := strconv.Itoa(index)
		fields = append(fields,
			Field{Name: "item_name_" + n, Value: product.Name},
			Field{Name: "amount_" + n, Value: product.Price.StringFixed(2)},
			Field{Name: "quantity_" + n, Value: strconv.Itoa(lines[id])},
		)
		index++
	}

	if fee, ok := sel.Current(); ok && fee.IsPositive() {
		fields = append(fields, Field{Name: "shipping_cart", Value: fee.StringFixed(2)})
	}

	return fields
}
