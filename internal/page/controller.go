package page

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/studio-lm/booooks/internal/cart"
	"github.com/studio-lm/booooks/internal/catalog"
	"github.com/studio-lm/booooks/internal/checkout"
	"github.com/studio-lm/booooks/internal/events"
	"github.com/studio-lm/booooks/internal/shipping"
	"github.com/studio-lm/booooks/internal/snapshot"
	"github.com/studio-lm/booooks/internal/widget"
)

// ErrShippingRequired is returned when checkout is attempted with no
// shipping method selected. The order button only lights up once one is.
var ErrShippingRequired = errors.New("no shipping method selected")

// Deps is everything a page controller needs besides its session id.
type Deps struct {
	Catalog   catalog.Reader
	Snapshots *snapshot.Service
	Publisher events.Publisher
	Options   []shipping.Option
	Log       *zap.Logger
}

// Controller owns the live cart state for one visitor session. Every
// interaction runs the same serialized sequence the page ran: mutate the
// store, persist the snapshot, re-render — so the returned view is never
// stale relative to what was just persisted.
type Controller struct {
	mu        sync.Mutex
	sessionID string
	cart      *cart.Store
	shipping  *shipping.Selector
	presenter *widget.Presenter
	deps      Deps
	touched   time.Time
}

func NewController(sessionID string, deps Deps) *Controller {
	return &Controller{
		sessionID: sessionID,
		cart:      cart.NewStore(),
		shipping:  shipping.NewSelector(deps.Options...),
		presenter: widget.New(deps.Catalog),
		deps:      deps,
		touched:   time.Now(),
	}
}

// View is what one interaction leaves on screen.
type View struct {
	Summary      string         `json:"summary"`
	HoverLabel   string         `json:"hover_label"`
	Quantities   map[string]int `json:"quantities"`
	ItemCount    int            `json:"item_count"`
	ShippingFee  *string        `json:"shipping_fee,omitempty"`
	OrderEnabled bool           `json:"order_enabled"`
}

// Submission is the assembled cart portion of the payment-redirect form.
type Submission struct {
	Fields []checkout.Field
	Total  decimal.Decimal
}

// Hydrate restores persisted state into the controller. Anything that goes
// wrong — nothing stored, stale snapshot, storage down — leaves the
// controller empty; continuity is advisory, the live cart is authoritative.
func (c *Controller) Hydrate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	state, err := c.deps.Snapshots.Load(ctx, c.sessionID)
	if errors.Is(err, snapshot.ErrNoSnapshot) {
		return
	}
	if err != nil {
		c.deps.Log.Warn("restoring cart failed", zap.String("session", c.sessionID), zap.Error(err))
		return
	}

	c.cart.Replace(state.Lines)
	if state.Shipping != nil {
		c.shipping.Select(decimal.NewFromFloat(*state.Shipping))
	}
}

func (c *Controller) SetQuantity(ctx context.Context, productID string, qty int) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	c.cart.SetQuantity(productID, qty)
	c.persist(ctx)
	return c.view(ctx)
}

func (c *Controller) Increment(ctx context.Context, productID string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	c.cart.Increment(productID)
	c.persist(ctx)
	return c.view(ctx)
}

func (c *Controller) Decrement(ctx context.Context, productID string) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	c.cart.Decrement(productID)
	c.persist(ctx)
	return c.view(ctx)
}

func (c *Controller) SelectShipping(ctx context.Context, fee decimal.Decimal) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	c.shipping.Select(fee)
	c.persist(ctx)
	return c.view(ctx)
}

func (c *Controller) DeselectShipping(ctx context.Context) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	c.shipping.DeselectAll()
	c.persist(ctx)
	return c.view(ctx)
}

// Current re-renders without mutating anything.
func (c *Controller) Current(ctx context.Context) View {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	return c.view(ctx)
}

// ConfirmOrder exports the cart for the payment redirect, clears the
// persisted snapshot and emits the audit event. The in-memory cart is left
// untouched; on the original page the browser navigates away at this point.
func (c *Controller) ConfirmOrder(ctx context.Context) (*Submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()

	if !c.shipping.Eligible() {
		return nil, ErrShippingRequired
	}

	fields := checkout.ExportFields(ctx, c.cart, c.shipping, c.deps.Catalog)
	total := c.presenter.Total(ctx, c.cart, c.shipping)

	if err := c.deps.Snapshots.Clear(ctx, c.sessionID); err != nil {
		c.deps.Log.Warn("clearing cart storage failed", zap.String("session", c.sessionID), zap.Error(err))
	}

	if err := c.deps.Publisher.PublishOrderSubmitted(ctx, c.orderEvent(ctx, total)); err != nil {
		c.deps.Log.Warn("publishing order event failed", zap.String("session", c.sessionID), zap.Error(err))
	}

	return &Submission{Fields: fields, Total: total}, nil
}

func (c *Controller) orderEvent(ctx context.Context, total decimal.Decimal) events.OrderSubmitted {
	lines := c.cart.Lines()
	ids := make([]string, 0, len(lines))
	for id := range lines {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	event := events.OrderSubmitted{
		SessionID:   c.sessionID,
		Items:       make([]events.OrderItem, 0, len(ids)),
		TotalAmount: total.StringFixed(2),
		Currency:    "EUR",
		SubmittedAt: time.Now(),
	}

	for _, id := range ids {
		product, err := c.deps.Catalog.Product(ctx, id)
		if err != nil {
			continue
		}
		event.Items = append(event.Items, events.OrderItem{
			ProductID:   id,
			ProductName: product.Name,
			Quantity:    lines[id],
			UnitPrice:   product.Price.StringFixed(2),
		})
	}

	if fee, ok := c.shipping.Current(); ok && fee.IsPositive() {
		event.ShippingFee = fee.StringFixed(2)
	}

	return event
}

// persist write-through is best-effort: failure is logged and the in-memory
// state stays authoritative for the session.
func (c *Controller) persist(ctx context.Context) {
	var fee *float64
	if f, ok := c.shipping.Current(); ok {
		v, _ := f.Float64()
		fee = &v
	}

	if err := c.deps.Snapshots.Save(ctx, c.sessionID, c.cart.Lines(), fee); err != nil {
		c.deps.Log.Warn("persisting cart failed", zap.String("session", c.sessionID), zap.Error(err))
	}
}

func (c *Controller) view(ctx context.Context) View {
	v := View{
		Summary:      c.presenter.Render(ctx, c.cart, c.shipping),
		HoverLabel:   c.presenter.HoverLabel(c.cart),
		Quantities:   c.cart.Lines(),
		ItemCount:    c.cart.TotalItemCount(),
		OrderEnabled: c.shipping.Eligible(),
	}
	if fee, ok := c.shipping.Current(); ok {
		formatted := fee.StringFixed(2)
		v.ShippingFee = &formatted
	}
	return v
}

// touch must be called with the lock held.
func (c *Controller) touch() {
	c.touched = time.Now()
}

func (c *Controller) idleSince(cutoff time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.touched.Before(cutoff)
}
