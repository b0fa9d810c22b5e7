package services_test

import (
	"context"
	"testing"

	"mythmanga/internal/models"
	"mythmanga/internal/repositories"
	"mythmanga/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCartFixture(t *testing.T) (*services.CartService, *repositories.MockProductRepository) {
	t.Helper()
	c, _ := newTestCache(t)
	products := repositories.NewMockProductRepository()
	ctx := context.Background()
	require.NoError(t, products.Upsert(ctx, &models.Product{ID: "fig-1", Name: "Levi Figure", Price: d("2499"), Stock: 3}))
	require.NoError(t, products.Upsert(ctx, &models.Product{ID: "pst-1", Name: "Spirited Away Poster", Price: d("349.50"), Stock: 20}))
	return services.NewCartService(repositories.NewRedisCartStore(c), products), products
}

func TestCartService_AddItem(t *testing.T) {
	service, _ := newCartFixture(t)
	ctx := context.Background()

	cart, err := service.AddItem(ctx, "client-1", services.AddItemRequest{ProductID: "fig-1", Quantity: 1})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "Levi Figure", cart.Items[0].Name)

	cart, err = service.AddItem(ctx, "client-1", services.AddItemRequest{ProductID: "pst-1", Quantity: 2})
	require.NoError(t, err)
	cart, err = service.AddItem(ctx, "client-1", services.AddItemRequest{ProductID: "fig-1", Quantity: 1})
	require.NoError(t, err)

	require.Len(t, cart.Items, 2)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.True(t, cart.Subtotal().Equal(d("5697")))

	stored, err := service.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, cart.Items, stored.Items)
}

func TestCartService_AddItemChecksStock(t *testing.T) {
	service, _ := newCartFixture(t)
	ctx := context.Background()

	_, err := service.AddItem(ctx, "client-1", services.AddItemRequest{ProductID: "fig-1", Quantity: 2})
	require.NoError(t, err)

	_, err = service.AddItem(ctx, "client-1", services.AddItemRequest{ProductID: "fig-1", Quantity: 2})
	assert.ErrorIs(t, err, services.ErrInsufficientStock)

	cart, err := service.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Items[0].Quantity, "rejected add leaves the cart unchanged")
}

func TestCartService_AddUnknownProduct(t *testing.T) {
	service, _ := newCartFixture(t)
	_, err := service.AddItem(context.Background(), "client-1", services.AddItemRequest{ProductID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, repositories.ErrProductNotFound)
}

func TestCartService_Clear(t *testing.T) {
	service, _ := newCartFixture(t)
	ctx := context.Background()

	_, err := service.AddItem(ctx, "client-1", services.AddItemRequest{ProductID: "pst-1", Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, service.Clear(ctx, "client-1"))

	cart, err := service.Get(ctx, "client-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
