package usecase

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"eytstore/internal/domain/model"
	"eytstore/internal/domain/pricing"
	repo "eytstore/internal/repository"
	"eytstore/internal/validator"

	"github.com/shopspring/decimal"
)

const defaultCancelWindow = 24 * time.Hour

// 同じ冪等キーの注文が並行して作られた。Txを捨てて既存注文を返すための合図
var errIdempotentReplay = errors.New("idempotent replay")

// 注文まわりの店舗設定
type OrderSettings struct {
	Numbers      OrderNumberGenerator
	Pricing      pricing.Policy
	CancelWindow time.Duration
}

type OrderUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	settings  OrderSettings
	clock     Clock
	events    OrderEventPublisher
}

func NewOrderUsecase(tx repo.TransactionManager, addresses repo.AddressRepository, settings OrderSettings, clock Clock, events OrderEventPublisher) *OrderUsecase {
	if settings.Numbers.Prefix == "" || settings.Numbers.MaxAttempts <= 0 {
		settings.Numbers = NewOrderNumberGenerator(settings.Numbers.Prefix, settings.Numbers.MaxAttempts)
	}
	if settings.CancelWindow <= 0 {
		settings.CancelWindow = defaultCancelWindow
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &OrderUsecase{tx: tx, addresses: addresses, settings: settings, clock: clock, events: events}
}

type PlaceOrderInput struct {
	// どちらか一方。AddressIDが優先
	AddressID int64
	Shipping  *model.ShippingInfo

	PaymentMethod    string
	PaymentReference string
	IdempotencyKey   string
}

type OrderItemOutput struct {
	ProductID   int64  `json:"product_id"`
	VariantID   *int64 `json:"variant_id,omitempty"`
	Name        string `json:"name"`
	VariantName string `json:"variant_name,omitempty"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
	TotalPrice  string `json:"total_price"`
}

type OrderOutput struct {
	ID               int64              `json:"id"`
	OrderNumber      string             `json:"order_number"`
	UserID           int64              `json:"user_id"`
	Status           string             `json:"status"`
	Shipping         model.ShippingInfo `json:"shipping"`
	PaymentMethod    string             `json:"payment_method"`
	PaymentReference string             `json:"payment_reference,omitempty"`
	Subtotal         string             `json:"subtotal"`
	ShippingCost     string             `json:"shipping_cost"`
	Tax              string             `json:"tax"`
	Total            string             `json:"total"`
	TrackingNumber   string             `json:"tracking_number,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	ShippedAt        *time.Time         `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time         `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time         `json:"cancelled_at,omitempty"`
	Items            []OrderItemOutput  `json:"items"`
}

// カートから注文を作る。在庫確保・採番・明細の保存・カートのクリアを1Txで行い、
// 注文が1件できるか何もできないかのどちらか。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	method := strings.TrimSpace(in.PaymentMethod)
	if method == "" {
		return OrderOutput{}, NewValidationError(msgPaymentMethodNeeded)
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}

	shipping, err := u.resolveShipping(ctx, userID, in)
	if err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if key != "" {
			existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err != nil {
				return dbError(err)
			}
			if found {
				items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
				if err != nil {
					return dbError(err)
				}
				out = toOrderOutput(existing, items)
				return nil
			}
		}

		cart, err := r.Carts().FindActive(ctx, model.CartOwner{UserID: userID})
		if errors.Is(err, repo.ErrNotFound) {
			return NewValidationError(msgEmptyCart)
		}
		if err != nil {
			return dbError(err)
		}
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return dbError(err)
		}
		if len(cartItems) == 0 {
			return NewValidationError(msgEmptyCart)
		}

		if missing := validator.MissingShippingFields(shipping); len(missing) > 0 {
			return NewValidationError("%s: %s", msgMissingShipping, strings.Join(missing, ", "))
		}

		// ロック順を固定（product id → variant id）
		sort.SliceStable(cartItems, func(i, j int) bool {
			return cartItems[i].Target().Less(cartItems[j].Target())
		})

		now := u.clock.Now()
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		movements := make([]model.StockMovement, 0, len(cartItems))
		subtotal := decimal.Zero

		for _, ci := range cartItems {
			res, err := reserveStock(ctx, r, ci.Target(), ci.Quantity)
			if err != nil {
				return err
			}

			unit := res.unitPrice()
			line := pricing.LineTotal(unit, ci.Quantity)
			item := model.OrderItem{
				ProductID:           ci.ProductID,
				VariantID:           ci.VariantID,
				ProductNameSnapshot: res.Product.Name,
				UnitPriceSnapshot:   unit,
				Quantity:            ci.Quantity,
				TotalPrice:          line,
				CreatedAt:           now,
			}
			if res.Variant != nil {
				item.VariantNameSnapshot = res.Variant.Name
			}
			orderItems = append(orderItems, item)
			movements = append(movements, res.Movement)
			subtotal = subtotal.Add(line)
		}

		totals := u.settings.Pricing.Quote(shipping, subtotal)
		order := model.Order{
			UserID:           userID,
			Shipping:         shipping,
			PaymentMethod:    method,
			PaymentReference: strings.TrimSpace(in.PaymentReference),
			Subtotal:         totals.Subtotal,
			ShippingCost:     totals.Shipping,
			Tax:              totals.Tax,
			Total:            totals.Total,
			Status:           model.OrderStatusPending,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if key != "" {
			order.IdempotencyKey = &key
		}

		err = u.settings.Numbers.CreateNumbered(ctx, r.Orders(), &order, now)
		if errors.Is(err, repo.ErrConflict) {
			return errIdempotentReplay
		}
		if errors.Is(err, ErrOrderNumberExhausted) {
			return err
		}
		if err != nil {
			return dbError(err)
		}

		for i := range orderItems {
			orderItems[i].OrderID = order.ID
		}
		if err := r.OrderItems().CreateBulk(ctx, order.ID, orderItems); err != nil {
			return dbError(err)
		}

		for _, m := range movements {
			oid := order.ID
			m.OrderID = &oid
			m.Reason = "order " + order.OrderNumber
			m.CreatedAt = now
			if err := r.Inventory().CreateMovement(ctx, m); err != nil {
				return dbError(err)
			}
		}

		//カートをCHECKED_OUTにして、明細をクリア（再注文防止）
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return dbError(err)
		}
		if err := r.Carts().UpdateStatus(ctx, cart.ID, model.CartStatusCheckedOut); err != nil {
			return dbError(err)
		}

		out = toOrderOutput(order, orderItems)
		return nil
	})

	if errors.Is(err, errIdempotentReplay) {
		return u.findByIdempotencyKey(ctx, userID, key)
	}
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// address_idがあれば保存済み住所を使う（所有チェックつき）
func (u *OrderUsecase) resolveShipping(ctx context.Context, userID int64, in PlaceOrderInput) (model.ShippingInfo, error) {
	if in.AddressID > 0 {
		addr, err := u.addresses.FindByID(ctx, in.AddressID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.ShippingInfo{}, NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return model.ShippingInfo{}, dbError(err)
		}
		//所有チェック（他人の住所なら403）
		if addr.UserID != userID {
			return model.ShippingInfo{}, NewHTTPError(http.StatusForbidden, "forbidden")
		}
		return validator.NormalizeShipping(addr.ToShippingInfo()), nil
	}
	if in.Shipping == nil {
		return model.ShippingInfo{}, nil
	}
	return validator.NormalizeShipping(*in.Shipping), nil
}

func (u *OrderUsecase) findByIdempotencyKey(ctx context.Context, userID int64, key string) (OrderOutput, error) {
	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return dbError(err)
		}
		if !found {
			return NewHTTPError(http.StatusConflict, "idempotency conflict")
		}
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError(err)
		}
		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return dbError(err)
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return dbError(err)
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError(err)
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError(err)
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 利用者によるキャンセル。pending/processingかつ受付期間内だけ。
// ステータス変更と在庫戻しは同じTx。
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var (
		out OrderOutput
		ev  model.OrderStatusEvent
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().LockByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError(err)
		}
		if o.UserID != userID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		now := u.clock.Now()
		if err := checkCancellable(o, now, u.settings.CancelWindow); err != nil {
			return err
		}

		ev, err = applyTransition(ctx, r, o, model.OrderStatusCancelled, "", now)
		if err != nil {
			return err
		}

		updated, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError(err)
		}
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError(err)
		}
		out = toOrderOutput(updated, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	publishStatusEvents(ctx, u.events, ev)
	return out, nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			Name:        it.ProductNameSnapshot,
			VariantName: it.VariantNameSnapshot,
			UnitPrice:   money(it.UnitPriceSnapshot),
			Quantity:    it.Quantity,
			TotalPrice:  money(it.TotalPrice),
		})
	}

	return OrderOutput{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		UserID:           o.UserID,
		Status:           string(o.Status),
		Shipping:         o.Shipping,
		PaymentMethod:    o.PaymentMethod,
		PaymentReference: o.PaymentReference,
		Subtotal:         money(o.Subtotal),
		ShippingCost:     money(o.ShippingCost),
		Tax:              money(o.Tax),
		Total:            money(o.Total),
		TrackingNumber:   o.TrackingNumber,
		CreatedAt:        o.CreatedAt,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
		CancelledAt:      o.CancelledAt,
		Items:            outItems,
	}
}
