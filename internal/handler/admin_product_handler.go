package handler

import (
	"net/http"

	"eytstore/internal/config"
	"eytstore/internal/middleware"
	"eytstore/internal/repository"
	"eytstore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// 商品・在庫・監査ログの管理API
type AdminProductHandler struct {
	uc        *usecase.ProductUsecase
	inventory *usecase.InventoryUsecase
	audit     *usecase.AuditLogUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase, inventory *usecase.InventoryUsecase, audit *usecase.AuditLogUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc, inventory: inventory, audit: audit}
}

type AdminProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int64           `json:"stock"`
	IsActive    bool            `json:"is_active"`
}

type AdminVariantRequest struct {
	Name            string          `json:"name"`
	SKU             string          `json:"sku"`
	PriceAdjustment decimal.Decimal `json:"price_adjustment"`
	Stock           int64           `json:"stock"`
}

type AdminStockRequest struct {
	VariantID *int64 `json:"variant_id"`
	Stock     int64  `json:"stock"`
	Reason    string `json:"reason"`
}

func (h *AdminProductHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.POST("/products", h.create)
	admin.PUT("/products/:id", h.update)
	admin.DELETE("/products/:id", h.deactivate)
	admin.POST("/products/:id/variants", h.createVariant)
	admin.PUT("/products/:id/stock", h.adjustStock)
	admin.GET("/products/:id/stock-movements", h.movements)
	admin.GET("/audit-logs", h.auditLogs)
}

func (h *AdminProductHandler) create(c echo.Context) error {
	var req AdminProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, usecase.AdminProductInput{
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		InitialStock: req.Stock,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// 在庫は変えない（/stockを使う）
func (h *AdminProductHandler) update(c echo.Context) error {
	productID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req AdminProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, productID, usecase.AdminProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

// 注文から参照されるので物理削除はせず非公開にする
func (h *AdminProductHandler) deactivate(c echo.Context) error {
	productID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	if err := h.uc.AdminDeactivateProduct(c.Request().Context(), adminID, productID); err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "deactivated"})
}

func (h *AdminProductHandler) createVariant(c echo.Context) error {
	productID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req AdminVariantRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	out, err := h.uc.AdminCreateVariant(c.Request().Context(), adminID, productID, usecase.AdminVariantInput{
		Name:            req.Name,
		SKU:             req.SKU,
		PriceAdjustment: req.PriceAdjustment,
		InitialStock:    req.Stock,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *AdminProductHandler) adjustStock(c echo.Context) error {
	productID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req AdminStockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	err := h.inventory.AdjustStock(c.Request().Context(), adminID, productID, usecase.AdjustStockInput{
		VariantID: req.VariantID,
		NewStock:  req.Stock,
		Reason:    req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Message: "updated"})
}

func (h *AdminProductHandler) movements(c echo.Context) error {
	productID, ok := paramID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.inventory.ListMovements(c.Request().Context(), productID, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminProductHandler) auditLogs(c echo.Context) error {
	actor, ok := queryInt64Ptr(c, "actor_user_id")
	if !ok {
		return badRequest(c, "invalid actor_user_id")
	}
	resourceID, ok := queryInt64Ptr(c, "resource_id")
	if !ok {
		return badRequest(c, "invalid resource_id")
	}
	from, ok := queryTime(c, "from")
	if !ok {
		return badRequest(c, "invalid from")
	}
	to, ok := queryTime(c, "to")
	if !ok {
		return badRequest(c, "invalid to")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return badRequest(c, "invalid offset")
	}

	out, err := h.audit.List(c.Request().Context(), usecase.AuditLogQuery{
		ActorUserID:  actor,
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   resourceID,
		From:         from,
		To:           to,
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
