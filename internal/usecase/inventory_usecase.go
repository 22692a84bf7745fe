package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"

	"github.com/shopspring/decimal"
)

// 在庫の確保・戻し・調整。在庫の数値はここを通してしか変えない
type InventoryUsecase struct {
	tx       repo.TransactionManager
	products repo.ProductRepository
	clock    Clock
}

func NewInventoryUsecase(tx repo.TransactionManager, products repo.ProductRepository, clock Clock) *InventoryUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &InventoryUsecase{tx: tx, products: products, clock: clock}
}

// ロックを取らずに在庫を見る（画面表示用。結果は保証しない）
func (u *InventoryUsecase) CheckAvailability(ctx context.Context, target model.StockTarget, qty int64) (bool, error) {
	if target.ProductID <= 0 {
		return false, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if qty < 1 {
		return false, NewValidationError("quantity must be >= 1")
	}

	p, err := u.products.FindByID(ctx, target.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return false, dbError(err)
	}
	if !p.IsActive {
		return false, nil
	}

	if !target.IsVariant() {
		return p.StockQuantity >= qty, nil
	}

	v, err := u.products.FindVariantByID(ctx, *target.VariantID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && v.ProductID != p.ID) {
		return false, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return false, dbError(err)
	}
	if !v.IsActive {
		return false, nil
	}
	return v.StockQuantity >= qty, nil
}

// 1件だけ在庫を確保する（自前のTx）
func (u *InventoryUsecase) Reserve(ctx context.Context, target model.StockTarget, qty int64) error {
	if qty < 1 {
		return NewValidationError("quantity must be >= 1")
	}
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		res, err := reserveStock(ctx, r, target, qty)
		if err != nil {
			return err
		}
		res.Movement.CreatedAt = u.clock.Now()
		if err := r.Inventory().CreateMovement(ctx, res.Movement); err != nil {
			return dbError(err)
		}
		return nil
	})
}

type AdjustStockInput struct {
	VariantID *int64
	NewStock  int64
	Reason    string
}

// 管理者による在庫の上書き。ロック→更新→履歴→監査ログを1Txで行う
func (u *InventoryUsecase) AdjustStock(ctx context.Context, adminUserID int64, productID int64, in AdjustStockInput) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if in.NewStock < 0 {
		return NewValidationError("stock must be >= 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return NewValidationError("reason required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.clock.Now()
		target := model.StockTarget{ProductID: productID, VariantID: in.VariantID}

		var prev int64
		resourceType := model.AuditResourceProduct
		resourceID := productID

		if target.IsVariant() {
			v, err := r.Inventory().LockVariant(ctx, *target.VariantID)
			if errors.Is(err, repo.ErrNotFound) || (err == nil && v.ProductID != productID) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			if err != nil {
				return dbError(err)
			}
			prev = v.StockQuantity
			if err := r.Inventory().SetVariantStock(ctx, v.ID, in.NewStock); err != nil {
				return dbError(err)
			}
			resourceType = model.AuditResourceVariant
			resourceID = v.ID
		} else {
			p, err := r.Inventory().LockProduct(ctx, productID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			if err != nil {
				return dbError(err)
			}
			prev = p.StockQuantity
			if err := r.Inventory().SetProductStock(ctx, productID, in.NewStock); err != nil {
				return dbError(err)
			}
		}

		actor := adminUserID
		if err := r.Inventory().CreateMovement(ctx, model.StockMovement{
			ProductID:   productID,
			VariantID:   in.VariantID,
			Type:        model.StockMovementAdjustment,
			Delta:       in.NewStock - prev,
			PrevStock:   prev,
			NewStock:    in.NewStock,
			ActorUserID: &actor,
			Reason:      reason,
			CreatedAt:   now,
		}); err != nil {
			return dbError(err)
		}

		//監査ログを作成（在庫更新）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: resourceType,
			ResourceID:   resourceID,
			BeforeJSON:   fmt.Sprintf(`{"stock_quantity":%d}`, prev),
			AfterJSON:    fmt.Sprintf(`{"stock_quantity":%d}`, in.NewStock),
			CreatedAt:    now,
		}); err != nil {
			return dbError(err)
		}
		return nil
	})
}

func (u *InventoryUsecase) ListMovements(ctx context.Context, productID int64, limit int) ([]model.StockMovement, error) {
	if productID <= 0 {
		return []model.StockMovement{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var out []model.StockMovement
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		list, err := r.Inventory().ListMovements(ctx, productID, limit)
		if err != nil {
			return dbError(err)
		}
		out = list
		return nil
	})
	if err != nil {
		return []model.StockMovement{}, err
	}
	return out, nil
}

// 確保した結果。注文明細のスナップショットに使う
type reservation struct {
	Product  model.Product
	Variant  *model.ProductVariant
	Movement model.StockMovement
}

// 現在の価格（バリアントなら調整額込み）
func (res reservation) unitPrice() decimal.Decimal {
	if res.Variant != nil {
		return res.Variant.UnitPrice(res.Product)
	}
	return res.Product.Price
}

// 行ロック→ロック下で再読込→不足ならエラー→減算。
// Tx内で呼ぶこと。エラー時はTxごとrollbackされる前提。
func reserveStock(ctx context.Context, r repo.TxRepos, target model.StockTarget, qty int64) (reservation, error) {
	if qty < 1 {
		return reservation{}, NewValidationError("quantity must be >= 1")
	}

	if target.IsVariant() {
		v, err := r.Inventory().LockVariant(ctx, *target.VariantID)
		if errors.Is(err, repo.ErrNotFound) || (err == nil && v.ProductID != target.ProductID) {
			return reservation{}, NewValidationError(msgProductUnavailable)
		}
		if err != nil {
			return reservation{}, dbError(err)
		}

		p, err := r.Products().FindByID(ctx, target.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return reservation{}, NewValidationError(msgProductUnavailable)
		}
		if err != nil {
			return reservation{}, dbError(err)
		}
		if !p.IsActive || !v.IsActive || !v.UnitPrice(p).IsPositive() {
			return reservation{}, NewValidationError("%s: %s", msgProductUnavailable, p.Name)
		}

		if v.StockQuantity < qty {
			return reservation{}, newInsufficientStock(target, p.Name+" ("+v.Name+")", qty, v.StockQuantity)
		}

		newStock := v.StockQuantity - qty
		if err := r.Inventory().SetVariantStock(ctx, v.ID, newStock); err != nil {
			return reservation{}, dbError(err)
		}
		vid := v.ID
		v.StockQuantity = newStock
		return reservation{
			Product: p,
			Variant: &v,
			Movement: model.StockMovement{
				ProductID: p.ID,
				VariantID: &vid,
				Type:      model.StockMovementSale,
				Delta:     -qty,
				PrevStock: newStock + qty,
				NewStock:  newStock,
			},
		}, nil
	}

	p, err := r.Inventory().LockProduct(ctx, target.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return reservation{}, NewValidationError(msgProductUnavailable)
	}
	if err != nil {
		return reservation{}, dbError(err)
	}
	if !p.IsActive || !p.Price.IsPositive() {
		return reservation{}, NewValidationError("%s: %s", msgProductUnavailable, p.Name)
	}
	if p.StockQuantity < qty {
		return reservation{}, newInsufficientStock(target, p.Name, qty, p.StockQuantity)
	}

	newStock := p.StockQuantity - qty
	if err := r.Inventory().SetProductStock(ctx, p.ID, newStock); err != nil {
		return reservation{}, dbError(err)
	}
	p.StockQuantity = newStock
	return reservation{
		Product: p,
		Movement: model.StockMovement{
			ProductID: p.ID,
			Type:      model.StockMovementSale,
			Delta:     -qty,
			PrevStock: newStock + qty,
			NewStock:  newStock,
		},
	}, nil
}

// キャンセルされた注文の明細分だけ在庫を戻す。Tx内で呼ぶこと
func restoreStock(ctx context.Context, r repo.TxRepos, orderID int64, items []model.OrderItem, now time.Time) error {
	sorted := make([]model.OrderItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Target().Less(sorted[j].Target())
	})

	for _, it := range sorted {
		var prev int64
		if it.VariantID != nil {
			v, err := r.Inventory().LockVariant(ctx, *it.VariantID)
			if err != nil {
				return dbError(err)
			}
			prev = v.StockQuantity
			if err := r.Inventory().SetVariantStock(ctx, v.ID, prev+it.Quantity); err != nil {
				return dbError(err)
			}
		} else {
			p, err := r.Inventory().LockProduct(ctx, it.ProductID)
			if err != nil {
				return dbError(err)
			}
			prev = p.StockQuantity
			if err := r.Inventory().SetProductStock(ctx, p.ID, prev+it.Quantity); err != nil {
				return dbError(err)
			}
		}

		oid := orderID
		if err := r.Inventory().CreateMovement(ctx, model.StockMovement{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Type:      model.StockMovementRestore,
			Delta:     it.Quantity,
			PrevStock: prev,
			NewStock:  prev + it.Quantity,
			OrderID:   &oid,
			Reason:    "order cancelled",
			CreatedAt: now,
		}); err != nil {
			return dbError(err)
		}
	}
	return nil
}
