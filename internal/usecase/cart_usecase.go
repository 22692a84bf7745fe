package usecase

import (
	"context"
	"errors"
	"net/http"

	"eytstore/internal/domain/model"
	"eytstore/internal/domain/pricing"
	repo "eytstore/internal/repository"

	"github.com/shopspring/decimal"
)

// /cart の業務ロジック。ログインユーザーか匿名セッションのカートを扱う
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// 価格は表示時点の現在価格（注文確定時に改めて決まる）
type CartItemResponse struct {
	ID          int64  `json:"id"`
	ProductID   int64  `json:"product_id"`
	VariantID   *int64 `json:"variant_id,omitempty"`
	Name        string `json:"name"`
	VariantName string `json:"variant_name,omitempty"`
	Price       string `json:"price"`
	Quantity    int64  `json:"quantity"`
	Available   bool   `json:"available"`
}

type CartResponse struct {
	Items    []CartItemResponse `json:"items"`
	Subtotal string             `json:"subtotal"`
}

type AddCartInput struct {
	ProductID int64
	VariantID *int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// カート取得（無ければACTIVEを作って空を返す）
func (u *CartUsecase) GetCart(ctx context.Context, owner model.CartOwner) (CartResponse, error) {
	if !owner.Valid() {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	cart, err := u.cartRepo.GetOrCreateActive(ctx, owner)
	if err != nil {
		return CartResponse{}, dbError(err)
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// カートに追加（同一商品・同一バリアントは数量加算）
func (u *CartUsecase) AddToCart(ctx context.Context, owner model.CartOwner, in AddCartInput) (CartResponse, error) {
	if !owner.Valid() {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
	}
	if in.Quantity < model.MinCartQuantity || in.Quantity > model.MaxCartQuantity {
		return CartResponse{}, NewValidationError("quantity must be between %d and %d", model.MinCartQuantity, model.MaxCartQuantity)
	}

	cart, err := u.cartRepo.GetOrCreateActive(ctx, owner)
	if err != nil {
		return CartResponse{}, dbError(err)
	}

	target := model.StockTarget{ProductID: in.ProductID, VariantID: in.VariantID}
	stock, err := u.liveStock(ctx, target)
	if err != nil {
		return CartResponse{}, err
	}

	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, dbError(err)
	}

	var existingQty int64
	for _, it := range items {
		if sameTarget(it.Target(), target) {
			existingQty = it.Quantity
			break
		}
	}

	newQty := existingQty + in.Quantity
	if newQty > model.MaxCartQuantity {
		return CartResponse{}, NewValidationError("quantity must be between %d and %d", model.MinCartQuantity, model.MaxCartQuantity)
	}
	if newQty > stock {
		return CartResponse{}, NewValidationError("only %d left in stock", stock)
	}

	if err := u.cartItemRepo.Upsert(ctx, cart.ID, in.ProductID, in.VariantID, in.Quantity); err != nil {
		return CartResponse{}, dbError(err)
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 数量変更（所有チェック＋在庫チェック）
func (u *CartUsecase) UpdateCartItem(ctx context.Context, owner model.CartOwner, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if !owner.Valid() {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if in.Quantity < model.MinCartQuantity || in.Quantity > model.MaxCartQuantity {
		return CartResponse{}, NewValidationError("quantity must be between %d and %d", model.MinCartQuantity, model.MaxCartQuantity)
	}

	cart, item, err := u.ownedItem(ctx, owner, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}

	stock, err := u.liveStock(ctx, item.Target())
	if err != nil {
		return CartResponse{}, err
	}
	if in.Quantity > stock {
		return CartResponse{}, NewValidationError("only %d left in stock", stock)
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return CartResponse{}, dbError(err)
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, owner model.CartOwner, cartItemID int64) (CartResponse, error) {
	if !owner.Valid() {
		return CartResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if cartItemID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	cart, _, err := u.ownedItem(ctx, owner, cartItemID)
	if err != nil {
		return CartResponse{}, err
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return CartResponse{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		return CartResponse{}, dbError(err)
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// 自分のACTIVEカートの明細か。違えば404
func (u *CartUsecase) ownedItem(ctx context.Context, owner model.CartOwner, cartItemID int64) (model.Cart, model.CartItem, error) {
	cart, err := u.cartRepo.FindActive(ctx, owner)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Cart{}, model.CartItem{}, dbError(err)
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Cart{}, model.CartItem{}, dbError(err)
	}
	if item.CartID != cart.ID {
		return model.Cart{}, model.CartItem{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return cart, item, nil
}

// 公開中の商品（バリアント）の現在在庫。ロックは取らない
func (u *CartUsecase) liveStock(ctx context.Context, target model.StockTarget) (int64, error) {
	p, err := u.productRepo.FindByID(ctx, target.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return 0, NewValidationError(msgProductUnavailable)
	}
	if err != nil {
		return 0, dbError(err)
	}
	if !p.IsActive {
		return 0, NewValidationError(msgProductUnavailable)
	}
	if !target.IsVariant() {
		return p.StockQuantity, nil
	}

	v, err := u.productRepo.FindVariantByID(ctx, *target.VariantID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && (v.ProductID != p.ID || !v.IsActive)) {
		return 0, NewValidationError(msgProductUnavailable)
	}
	if err != nil {
		return 0, dbError(err)
	}
	return v.StockQuantity, nil
}

// cartIDの明細をまとめてCartResponseを作る
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, dbError(err)
	}

	respItems := make([]CartItemResponse, 0, len(items))
	subtotal := decimal.Zero

	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err != nil {
			continue
		}

		line := CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			Available: p.IsActive && p.StockQuantity >= it.Quantity,
		}
		price := p.Price
		if it.VariantID != nil {
			v, err := u.productRepo.FindVariantByID(ctx, *it.VariantID)
			if err != nil {
				continue
			}
			line.VariantName = v.Name
			line.Available = p.IsActive && v.IsActive && v.StockQuantity >= it.Quantity
			price = v.UnitPrice(p)
		}
		line.Price = money(price)
		respItems = append(respItems, line)

		if line.Available {
			subtotal = subtotal.Add(pricing.LineTotal(price, it.Quantity))
		}
	}

	return CartResponse{Items: respItems, Subtotal: money(subtotal)}, nil
}

func sameTarget(a, b model.StockTarget) bool {
	return !a.Less(b) && !b.Less(a)
}
