package cartstore

import (
	"context"
	"testing"
	"time"

	d "github.com/fjod/cookcart/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestDB(t *testing.T) (*MongoRepository, func()) {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return repo, cleanup
}

func TestMongo_GetCart_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	state, err := repo.GetCart(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, state)
}

func TestMongo_UpsertAndGet(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	state := &d.CartState{
		UserID:         "user123",
		ActiveVendorID: "sunita",
		Carts: []d.VendorCart{{
			VendorID:   "sunita",
			VendorName: "Sunita's Kitchen",
			Items: []d.LineItem{
				{ItemID: "thali", DisplayName: "Thali", UnitPrice: decimal.RequireFromString("120.00"), Quantity: 2, VendorID: "sunita", VendorName: "Sunita's Kitchen"},
				{ItemID: "lassi", DisplayName: "Lassi", UnitPrice: decimal.RequireFromString("45.50"), Quantity: 1, VendorID: "sunita", VendorName: "Sunita's Kitchen"},
			},
		}},
	}
	require.NoError(t, repo.UpsertCart(ctx, state))

	got, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, "sunita", got.ActiveVendorID)
	require.Len(t, got.Carts, 1)
	require.Len(t, got.Carts[0].Items, 2)
	assert.Equal(t, "thali", got.Carts[0].Items[0].ItemID)
	assert.Equal(t, "sunita", got.Carts[0].Items[0].VendorID)
	assert.True(t, decimal.RequireFromString("45.50").Equal(got.Carts[0].Items[1].UnitPrice))
	assert.WithinDuration(t, time.Now(), got.UpdatedAt, time.Minute)
}

func TestMongo_UpsertReplaces(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	first := &d.CartState{UserID: "user123", ActiveVendorID: "sunita", Carts: []d.VendorCart{{VendorID: "sunita"}}}
	require.NoError(t, repo.UpsertCart(ctx, first))

	second := &d.CartState{UserID: "user123", ActiveVendorID: "kamala", Carts: []d.VendorCart{{
		VendorID: "kamala",
		Items:    []d.LineItem{{ItemID: "dhokla", UnitPrice: decimal.NewFromInt(100), Quantity: 1, VendorID: "kamala"}},
	}}}
	require.NoError(t, repo.UpsertCart(ctx, second))

	got, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, "kamala", got.ActiveVendorID)
	require.Len(t, got.Carts, 1)
	assert.Equal(t, "dhokla", got.Carts[0].Items[0].ItemID)
}

func TestMongo_DeleteCart(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.UpsertCart(ctx, &d.CartState{UserID: "user123"}))
	require.NoError(t, repo.DeleteCart(ctx, "user123"))

	_, err := repo.GetCart(ctx, "user123")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.ErrorIs(t, repo.DeleteCart(ctx, "user123"), ErrCartNotFound)
}
