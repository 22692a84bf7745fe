package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"

	"github.com/shopspring/decimal"
)

type ProductUsecase struct {
	tx          repo.TransactionManager
	productRepo repo.ProductRepository
	clock       Clock
}

// DI
func NewProductUsecase(tx repo.TransactionManager, productRepo repo.ProductRepository, clock Clock) *ProductUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ProductUsecase{tx: tx, productRepo: productRepo, clock: clock}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

type ProductOutput struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         string          `json:"price"`
	StockQuantity int64           `json:"stock_quantity"`
	IsActive      bool            `json:"is_active"`
	Variants      []VariantOutput `json:"variants,omitempty"`
}

type VariantOutput struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	SKU             string `json:"sku"`
	PriceAdjustment string `json:"price_adjustment"`
	Price           string `json:"price"`
	StockQuantity   int64  `json:"stock_quantity"`
}

type ProductListOutput struct {
	Items []ProductOutput `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, dbError(err)
	}

	outs := make([]ProductOutput, 0, len(items))
	for _, p := range items {
		outs = append(outs, toProductOutput(p, nil))
	}
	return ProductListOutput{
		Items: outs,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

// 公開中の商品と、公開中のバリアント
func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (ProductOutput, error) {
	if productID <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ProductOutput{}, dbError(err)
	}
	if !p.IsActive {
		return ProductOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	variants, err := u.productRepo.ListVariants(ctx, productID)
	if err != nil {
		return ProductOutput{}, dbError(err)
	}
	active := make([]model.ProductVariant, 0, len(variants))
	for _, v := range variants {
		if v.IsActive {
			active = append(active, v)
		}
	}
	return toProductOutput(p, active), nil
}

type AdminProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	// 作成時だけ使う。更新では在庫を変えない
	InitialStock int64
	IsActive     bool
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (ProductOutput, error) {
	if adminUserID <= 0 {
		return ProductOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateProductInput(in); err != nil {
		return ProductOutput{}, err
	}
	if in.InitialStock < 0 {
		return ProductOutput{}, NewValidationError("stock must be >= 0")
	}

	now := u.clock.Now()
	p, err := u.productRepo.Create(ctx, model.Product{
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.InitialStock,
		IsActive:      in.IsActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return ProductOutput{}, dbError(err)
	}
	return toProductOutput(p, nil), nil
}

// 名前・説明・価格・公開状態だけ更新する。在庫は在庫調整でしか変えない
func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := validateProductInput(in); err != nil {
		return err
	}

	// 値下げで既存バリアントの価格が0以下にならないこと
	variants, err := u.productRepo.ListVariants(ctx, productID)
	if err != nil {
		return dbError(err)
	}
	for _, v := range variants {
		if !in.Price.Add(v.PriceAdjustment).IsPositive() {
			return NewValidationError("price would make variant %s non-positive", v.SKU)
		}
	}

	err = u.productRepo.Update(ctx, model.Product{
		ID:          productID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		IsActive:    in.IsActive,
		UpdatedAt:   u.clock.Now(),
	})
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return dbError(err)
	}
	return nil
}

// 注文から参照されるので物理削除はしない。非公開にして監査ログを残す
func (u *ProductUsecase) AdminDeactivateProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError(err)
		}

		if err := r.Products().Deactivate(ctx, productID); err != nil {
			return dbError(err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionDeactivateProduct,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   fmt.Sprintf(`{"is_active":%t}`, p.IsActive),
			AfterJSON:    `{"is_active":false}`,
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return dbError(err)
		}
		return nil
	})
}

type AdminVariantInput struct {
	Name            string
	SKU             string
	PriceAdjustment decimal.Decimal
	InitialStock    int64
}

func (u *ProductUsecase) AdminCreateVariant(ctx context.Context, adminUserID int64, productID int64, in AdminVariantInput) (VariantOutput, error) {
	if adminUserID <= 0 {
		return VariantOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return VariantOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return VariantOutput{}, NewValidationError("name required")
	}
	sku := strings.TrimSpace(in.SKU)
	if sku == "" {
		return VariantOutput{}, NewValidationError("sku required")
	}
	if in.InitialStock < 0 {
		return VariantOutput{}, NewValidationError("stock must be >= 0")
	}
	if !isCents(in.PriceAdjustment) {
		return VariantOutput{}, NewValidationError("price_adjustment must have at most 2 decimal places")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return VariantOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return VariantOutput{}, dbError(err)
	}
	// 調整後の価格は正であること
	if !p.Price.Add(in.PriceAdjustment).IsPositive() {
		return VariantOutput{}, NewValidationError("variant price must be > 0")
	}

	now := u.clock.Now()
	v, err := u.productRepo.CreateVariant(ctx, model.ProductVariant{
		ProductID:       productID,
		Name:            name,
		SKU:             sku,
		PriceAdjustment: in.PriceAdjustment,
		StockQuantity:   in.InitialStock,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if errors.Is(err, repo.ErrDuplicate) {
		return VariantOutput{}, NewHTTPError(http.StatusConflict, "sku already exists")
	}
	if err != nil {
		return VariantOutput{}, dbError(err)
	}
	return toVariantOutput(p, v), nil
}

func validateProductInput(in AdminProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return NewValidationError("name required")
	}
	if !in.Price.IsPositive() {
		return NewValidationError("price must be > 0")
	}
	if !isCents(in.Price) {
		return NewValidationError("price must have at most 2 decimal places")
	}
	return nil
}

// 明細の単価はセント単位で保存するので、それより細かい金額は受け付けない
func isCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}

func toProductOutput(p model.Product, variants []model.ProductVariant) ProductOutput {
	out := ProductOutput{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         money(p.Price),
		StockQuantity: p.StockQuantity,
		IsActive:      p.IsActive,
	}
	for _, v := range variants {
		out.Variants = append(out.Variants, toVariantOutput(p, v))
	}
	return out
}

func toVariantOutput(p model.Product, v model.ProductVariant) VariantOutput {
	return VariantOutput{
		ID:              v.ID,
		Name:            v.Name,
		SKU:             v.SKU,
		PriceAdjustment: money(v.PriceAdjustment),
		Price:           money(v.UnitPrice(p)),
		StockQuantity:   v.StockQuantity,
	}
}
