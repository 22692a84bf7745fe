package usecase

import (
	"context"
	"net/http"
	"testing"

	"eytstore/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddMergesAndComputesSubtotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := model.CartOwner{SessionKey: "7d0c6c8e-5f5a-4a36-9f53-8f3b1f0d6f11"}
	p := f.seedProduct(t, "Mug", "12.50", 10)
	v := f.seedVariant(t, p.ID, "Big", "MUG-BIG", "2.50", 5)

	_, err := f.carts.AddToCart(ctx, owner, AddCartInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	_, err = f.carts.AddToCart(ctx, owner, AddCartInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	out, err := f.carts.AddToCart(ctx, owner, AddCartInput{ProductID: p.ID, VariantID: &v.ID, Quantity: 1})
	require.NoError(t, err)

	require.Len(t, out.Items, 2)
	assert.Equal(t, int64(3), out.Items[0].Quantity)
	assert.Equal(t, "12.50", out.Items[0].Price)
	assert.Equal(t, "15.00", out.Items[1].Price)
	assert.Equal(t, "Big", out.Items[1].VariantName)
	assert.Equal(t, "52.50", out.Subtotal)

	// カートでは在庫は減らない
	assert.Equal(t, int64(10), f.productStock(t, p.ID))
}

func TestCart_RejectsMoreThanStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := model.CartOwner{UserID: f.seedUser(t, "a@example.com")}
	p := f.seedProduct(t, "Mug", "12.50", 5)

	_, err := f.carts.AddToCart(ctx, owner, AddCartInput{ProductID: p.ID, Quantity: 4})
	require.NoError(t, err)
	_, err = f.carts.AddToCart(ctx, owner, AddCartInput{ProductID: p.ID, Quantity: 2})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "only 5 left in stock", ve.Message)

	_, err = f.carts.AddToCart(ctx, owner, AddCartInput{ProductID: p.ID, Quantity: 0})
	_, ok = AsValidationError(err)
	assert.True(t, ok)
}

func TestCart_UnavailableProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.seedUser(t, "admin@example.com")
	owner := model.CartOwner{UserID: f.seedUser(t, "a@example.com")}
	p := f.seedProduct(t, "Mug", "12.50", 5)

	_, err := f.carts.AddToCart(ctx, owner, AddCartInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, f.products.AdminDeactivateProduct(ctx, adminID, p.ID))

	_, err = f.carts.AddToCart(ctx, owner, AddCartInput{ProductID: p.ID, Quantity: 1})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, msgProductUnavailable, ve.Message)

	// 既に入っている明細は残るが、小計には入らない
	out, err := f.carts.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.False(t, out.Items[0].Available)
	assert.Equal(t, "0.00", out.Subtotal)
}

func TestCart_ItemsAreScopedToOwner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := model.CartOwner{UserID: f.seedUser(t, "alice@example.com")}
	guest := model.CartOwner{SessionKey: "guest-session"}
	p := f.seedProduct(t, "Mug", "12.50", 5)

	out, err := f.carts.AddToCart(ctx, alice, AddCartInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := out.Items[0].ID

	_, err = f.carts.UpdateCartItem(ctx, guest, itemID, UpdateCartItemInput{Quantity: 2})
	assert.Equal(t, http.StatusNotFound, httpStatus(err))
	_, err = f.carts.DeleteCartItem(ctx, guest, itemID)
	assert.Equal(t, http.StatusNotFound, httpStatus(err))

	out, err = f.carts.UpdateCartItem(ctx, alice, itemID, UpdateCartItemInput{Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(5), out.Items[0].Quantity)

	_, err = f.carts.UpdateCartItem(ctx, alice, itemID, UpdateCartItemInput{Quantity: 6})
	_, ok := AsValidationError(err)
	assert.True(t, ok)

	out, err = f.carts.DeleteCartItem(ctx, alice, itemID)
	require.NoError(t, err)
	assert.Empty(t, out.Items)

	_, err = f.carts.GetCart(ctx, model.CartOwner{})
	assert.Equal(t, http.StatusUnauthorized, httpStatus(err))
}
