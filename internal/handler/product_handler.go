package handler

import (
	"net/http"

	"eytstore/internal/domain/model"
	"eytstore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// /products の公開API
type ProductHandler struct {
	uc        *usecase.ProductUsecase
	inventory *usecase.InventoryUsecase
}

// DI
func NewProductHandler(uc *usecase.ProductUsecase, inventory *usecase.InventoryUsecase) *ProductHandler {
	return &ProductHandler{uc: uc, inventory: inventory}
}

// 公開商品のルートを登録
func (h *ProductHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/products", h.list)
	e.GET("/products/:id", h.detail)
	e.GET("/products/:id/availability", h.availability)
}

type availabilityResponse struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int64  `json:"quantity"`
	Available bool   `json:"available"`
}

func queryDecimal(c echo.Context, name string) (*decimal.Decimal, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil, false
	}
	return &d, true
}

func (h *ProductHandler) list(c echo.Context) error {
	// page（default 1）
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}

	// limit（default 20）
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	minPrice, ok := queryDecimal(c, "min_price")
	if !ok {
		return badRequest(c, "invalid min_price")
	}
	maxPrice, ok := queryDecimal(c, "max_price")
	if !ok {
		return badRequest(c, "invalid max_price")
	}

	out, err := h.uc.ListPublicProducts(c.Request().Context(), usecase.ListProductsInput{
		Page:     page,
		Limit:    limit,
		Q:        c.QueryParam("q"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Sort:     c.QueryParam("sort"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

func (h *ProductHandler) detail(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	p, err := h.uc.GetProductDetail(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, p)
}

// 表示用の在庫確認。確保はしない
func (h *ProductHandler) availability(c echo.Context) error {
	id, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	variantID, ok := queryInt64Ptr(c, "variant_id")
	if !ok {
		return badRequest(c, "invalid variant_id")
	}
	qty, ok := queryInt(c, "quantity", 1)
	if !ok {
		return badRequest(c, "invalid quantity")
	}

	target := model.StockTarget{ProductID: id, VariantID: variantID}
	available, err := h.inventory.CheckAvailability(c.Request().Context(), target, int64(qty))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, availabilityResponse{
		ProductID: id,
		VariantID: variantID,
		Quantity:  int64(qty),
		Available: available,
	})
}
