package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.uber.org/zap"
)

func setupTestMongo(t *testing.T) (*MongoStore, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongo(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoStore(db)
	require.NoError(t, store.EnsureIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

func TestMongoPutGetDelete(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	store, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "cart:v1:abc", []byte(`{"cart":{"a":1}}`), time.Hour))

	got, err := store.Get(ctx, "cart:v1:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"cart":{"a":1}}`, string(got))

	// Put is an upsert: a second write replaces the payload.
	require.NoError(t, store.Put(ctx, "cart:v1:abc", []byte(`{"cart":{"a":2}}`), time.Hour))
	got, err = store.Get(ctx, "cart:v1:abc")
	require.NoError(t, err)
	assert.Equal(t, `{"cart":{"a":2}}`, string(got))

	require.NoError(t, store.Delete(ctx, "cart:v1:abc"))
	_, err = store.Get(ctx, "cart:v1:abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMongoGet_Missing(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	store, cleanup := setupTestMongo(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "cart:v1:nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceOverMongo_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	store, cleanup := setupTestMongo(t)
	defer cleanup()

	svc := NewService(store, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "visitor", map[string]int{"joinery-book": 2}, nil))

	state, err := svc.Load(ctx, "visitor")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"joinery-book": 2}, state.Lines)
	assert.Nil(t, state.Shipping)
}
