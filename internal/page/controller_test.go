package page

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studio-lm/booooks/internal/catalog"
	"github.com/studio-lm/booooks/internal/checkout"
	"github.com/studio-lm/booooks/internal/domain"
	"github.com/studio-lm/booooks/internal/events"
	"github.com/studio-lm/booooks/internal/shipping"
	"github.com/studio-lm/booooks/internal/snapshot"
)

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Put(_ context.Context, key string, payload []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = payload
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	payload, ok := m.data[key]
	if !ok {
		return nil, snapshot.ErrNotFound
	}
	return payload, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func (m *memStore) stored(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload, ok := m.data[key]
	return payload, ok
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.OrderSubmitted
	err    error
}

func (p *capturingPublisher) PublishOrderSubmitted(_ context.Context, event events.OrderSubmitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) published() []events.OrderSubmitted {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events
}

func testDeps(store snapshot.Store, publisher events.Publisher) Deps {
	return Deps{
		Catalog: catalog.NewStatic(
			&domain.Product{ID: "A", Name: "Item A", Price: decimal.RequireFromString("10.00")},
			&domain.Product{ID: "B", Name: "Item B", Price: decimal.RequireFromString("5.00")},
		),
		Snapshots: snapshot.NewService(store, zap.NewNop()),
		Publisher: publisher,
		Options: []shipping.Option{
			{Label: "Standard", Fee: decimal.RequireFromString("3.50")},
			{Label: "Pickup", Fee: decimal.Zero},
		},
		Log: zap.NewNop(),
	}
}

func TestMutationsWriteThrough(t *testing.T) {
	store := newMemStore()
	c := NewController("visitor", testDeps(store, &capturingPublisher{}))
	ctx := context.Background()

	view := c.Increment(ctx, "A")
	assert.Equal(t, 1, view.Quantities["A"])

	payload, ok := store.stored("cart:v1:visitor")
	require.True(t, ok, "each mutation persists before rendering")

	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	assert.Equal(t, map[string]int{"A": 1}, snap.Cart)
	assert.Nil(t, snap.Shipping)
	assert.InDelta(t, time.Now().UnixMilli(), snap.SavedAt, float64(2*time.Second.Milliseconds()))
}

func TestViewReflectsStateAfterEachEvent(t *testing.T) {
	c := NewController("visitor", testDeps(newMemStore(), &capturingPublisher{}))
	ctx := context.Background()

	view := c.Current(ctx)
	assert.Equal(t, "Cart", view.Summary)
	assert.Equal(t, "No items", view.HoverLabel)
	assert.False(t, view.OrderEnabled)

	c.SetQuantity(ctx, "A", 2)
	c.Increment(ctx, "B")
	view = c.SelectShipping(ctx, decimal.RequireFromString("3.50"))

	assert.Equal(t, "€28.50", view.Summary)
	assert.Equal(t, "Buy (3)", view.HoverLabel)
	assert.Equal(t, 3, view.ItemCount)
	require.NotNil(t, view.ShippingFee)
	assert.Equal(t, "3.50", *view.ShippingFee)
	assert.True(t, view.OrderEnabled)

	view = c.DeselectShipping(ctx)
	assert.False(t, view.OrderEnabled)
	assert.Nil(t, view.ShippingFee)
	assert.Equal(t, "€25.00", view.Summary, "fee defaults to zero when none selected")
}

func TestHydrate_RestoresPersistedState(t *testing.T) {
	store := newMemStore()
	deps := testDeps(store, &capturingPublisher{})
	ctx := context.Background()

	first := NewController("visitor", deps)
	first.SetQuantity(ctx, "A", 2)
	first.SelectShipping(ctx, decimal.RequireFromString("3.50"))

	second := NewController("visitor", deps)
	second.Hydrate(ctx)

	view := second.Current(ctx)
	assert.Equal(t, "€23.50", view.Summary)
	assert.Equal(t, map[string]int{"A": 2}, view.Quantities)
	assert.True(t, view.OrderEnabled)
}

func TestHydrate_GarbageShippingSelectsNothing(t *testing.T) {
	store := newMemStore()
	payload := `{"cart":{"A":1},"shipping":"junk","savedAt":` + strconv.FormatInt(time.Now().UnixMilli(), 10) + `}`
	store.data["cart:v1:visitor"] = []byte(payload)

	c := NewController("visitor", testDeps(store, &capturingPublisher{}))
	ctx := context.Background()
	c.Hydrate(ctx)

	view := c.Current(ctx)
	assert.Equal(t, 1, view.ItemCount)
	// A zero-fee option exists, so garbage must not coerce to 0 and pick it.
	assert.Nil(t, view.ShippingFee)
	assert.False(t, view.OrderEnabled)
}

func TestHydrate_StorageFailureLeavesEmptyCart(t *testing.T) {
	store := newMemStore()
	store.err = assert.AnError
	c := NewController("visitor", testDeps(store, &capturingPublisher{}))
	ctx := context.Background()

	c.Hydrate(ctx)

	view := c.Current(ctx)
	assert.Equal(t, 0, view.ItemCount)
	assert.Equal(t, "Cart", view.Summary)
}

func TestConfirmOrder_RequiresShipping(t *testing.T) {
	c := NewController("visitor", testDeps(newMemStore(), &capturingPublisher{}))
	ctx := context.Background()
	c.Increment(ctx, "A")

	_, err := c.ConfirmOrder(ctx)

	assert.ErrorIs(t, err, ErrShippingRequired)
}

func TestConfirmOrder_ExportsClearsAndPublishes(t *testing.T) {
	store := newMemStore()
	publisher := &capturingPublisher{}
	c := NewController("visitor", testDeps(store, publisher))
	ctx := context.Background()

	c.SetQuantity(ctx, "A", 2)
	c.SetQuantity(ctx, "B", 1)
	c.SelectShipping(ctx, decimal.RequireFromString("3.50"))

	submission, err := c.ConfirmOrder(ctx)
	require.NoError(t, err)

	want := []checkout.Field{
		{Name: "item_name_1", Value: "Item A"},
		{Name: "amount_1", Value: "10.00"},
		{Name: "quantity_1", Value: "2"},
		{Name: "item_name_2", Value: "Item B"},
		{Name: "amount_2", Value: "5.00"},
		{Name: "quantity_2", Value: "1"},
		{Name: "shipping_cart", Value: "3.50"},
	}
	assert.Equal(t, want, submission.Fields)
	assert.Equal(t, "28.50", submission.Total.StringFixed(2))

	_, ok := store.stored("cart:v1:visitor")
	assert.False(t, ok, "snapshot cleared after checkout")

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, "visitor", published[0].SessionID)
	assert.Equal(t, "28.50", published[0].TotalAmount)
	assert.Equal(t, "3.50", published[0].ShippingFee)
	require.Len(t, published[0].Items, 2)
	assert.Equal(t, "A", published[0].Items[0].ProductID)

	// The live cart survives; on the page the browser navigates away here.
	assert.Equal(t, 3, c.Current(ctx).ItemCount)
}

func TestConfirmOrder_PublishFailureIsAbsorbed(t *testing.T) {
	publisher := &capturingPublisher{err: assert.AnError}
	c := NewController("visitor", testDeps(newMemStore(), publisher))
	ctx := context.Background()

	c.Increment(ctx, "A")
	c.SelectShipping(ctx, decimal.Zero)

	submission, err := c.ConfirmOrder(ctx)

	require.NoError(t, err, "event delivery is best-effort")
	assert.NotEmpty(t, submission.Fields)
}

func TestConfirmOrder_FreeShippingOmitsEventFee(t *testing.T) {
	publisher := &capturingPublisher{}
	c := NewController("visitor", testDeps(newMemStore(), publisher))
	ctx := context.Background()

	c.Increment(ctx, "B")
	c.SelectShipping(ctx, decimal.Zero)

	_, err := c.ConfirmOrder(ctx)
	require.NoError(t, err)

	published := publisher.published()
	require.Len(t, published, 1)
	assert.Empty(t, published[0].ShippingFee)
}
