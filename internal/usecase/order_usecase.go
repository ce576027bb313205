package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

var errInsufficientPool = errors.New("insufficient variant stock")

type OrderUsecase struct {
	tx       repo.TransactionManager
	orders   repo.OrderRepository
	items    repo.OrderItemRepository
	products repo.ProductRepository
	vouchers repo.VoucherRepository
	returns  repo.ReturnRequestRepository
	recons   repo.StockReconciliationRepository
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
	randInt  func(n int) int
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	products repo.ProductRepository,
	vouchers repo.VoucherRepository,
	returns repo.ReturnRequestRepository,
	recons repo.StockReconciliationRepository,
	notifier Notifier,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:       tx,
		orders:   orders,
		items:    items,
		products: products,
		vouchers: vouchers,
		returns:  returns,
		recons:   recons,
		notifier: notifier,
		log:      log,
		now:      time.Now,
		randInt:  rand.Intn,
	}
}

// generateOrderCode builds a human-quotable code from the last 8 digits of
// the creation time in unix millis plus a 4-digit random suffix. Uniqueness
// is ultimately enforced by the database index on order_code.
func (u *OrderUsecase) generateOrderCode(kind model.OrderKind) string {
	prefix := "ORD-"
	if kind == model.OrderKindExchange {
		prefix = "EXCH-"
	}
	millis := strconv.FormatInt(u.now().UnixMilli(), 10)
	if len(millis) > 8 {
		millis = millis[len(millis)-8:]
	}
	return fmt.Sprintf("%s%s%04d", prefix, millis, u.randInt(10000))
}

type CreateOrderItemInput struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int64  `json:"quantity"`
}

type CreateOrderInput struct {
	Items           []CreateOrderItemInput `json:"items"`
	VoucherCode     string                 `json:"voucher_code,omitempty"`
	PaymentMethod   string                 `json:"payment_method"`
	ShippingAddress model.ShippingAddress  `json:"shipping_address"`
	UserNote        string                 `json:"user_note,omitempty"`
}

type CreateOrderOutput struct {
	Order          model.Order       `json:"order"`
	Items          []model.OrderItem `json:"items"`
	AppliedVoucher *AppliedVoucher   `json:"applied_voucher,omitempty"`
	StockWarnings  []string          `json:"stock_warnings,omitempty"`
}

func validateShippingAddress(a model.ShippingAddress) error {
	if strings.TrimSpace(a.FullName) == "" {
		return NewHTTPError(http.StatusBadRequest, "shipping full_name required")
	}
	if strings.TrimSpace(a.Phone) == "" {
		return NewHTTPError(http.StatusBadRequest, "shipping phone required")
	}
	if strings.TrimSpace(a.AddressLine1) == "" {
		return NewHTTPError(http.StatusBadRequest, "shipping address_line1 required")
	}
	if strings.TrimSpace(a.City) == "" {
		return NewHTTPError(http.StatusBadRequest, "shipping city required")
	}
	if strings.TrimSpace(a.District) == "" {
		return NewHTTPError(http.StatusBadRequest, "shipping district required")
	}
	return nil
}

// Create places an order. The price of every line is frozen from the catalog
// at this moment; the order document is persisted first and stock is reserved
// afterwards, so a reservation failure can never lose a paid-for order. Each
// failed reservation is logged and recorded for reconciliation instead.
func (u *OrderUsecase) Create(ctx context.Context, userID int64, in CreateOrderInput) (CreateOrderOutput, error) {
	if userID <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(in.Items) == 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "order must contain at least one item")
	}
	method := model.PaymentMethod(in.PaymentMethod)
	if !method.Valid() {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}
	if err := validateShippingAddress(in.ShippingAddress); err != nil {
		return CreateOrderOutput{}, err
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid product_id")
		}
		if it.Quantity <= 0 {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be > 0")
		}
		if it.VariantID != nil && *it.VariantID <= 0 {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid variant_id")
		}
	}

	orderItems, subtotal, err := u.resolveLines(ctx, in.Items)
	if err != nil {
		return CreateOrderOutput{}, err
	}

	var (
		applied        *AppliedVoucher
		voucherID      *int64
		discountAmount int64
	)
	if code := strings.TrimSpace(in.VoucherCode); code != "" {
		v, err := u.vouchers.FindByCode(ctx, code)
		if err == repo.ErrNotFound {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, voucherReasonNotFound)
		}
		if err != nil {
			return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		discount, reason := checkVoucher(v, subtotal, u.now())
		if reason != "" {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, reason)
		}
		discountAmount = discount
		voucherID = &v.ID
		applied = &AppliedVoucher{ID: v.ID, Code: v.Code, Name: v.Name, Type: v.Type, Value: v.Value, DiscountAmount: discount}
	}

	total := subtotal - discountAmount
	if total < 0 {
		total = 0
	}

	order := model.Order{
		UserID:          userID,
		OrderCode:       u.generateOrderCode(model.OrderKindNormal),
		TotalAmount:     total,
		DiscountAmount:  discountAmount,
		VoucherID:       voucherID,
		PaymentStatus:   model.PaymentStatusPending,
		ShippingStatus:  model.ShippingStatusPending,
		PaymentMethod:   method,
		OrderKind:       model.OrderKindNormal,
		ShippingAddress: in.ShippingAddress,
		UserNote:        strings.TrimSpace(in.UserNote),
	}

	var orderID int64
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		id, err := r.Orders().Create(ctx, order)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.OrderItems().CreateBulk(ctx, id, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		orderID = id
		return nil
	})
	if err != nil {
		return CreateOrderOutput{}, err
	}

	// The order is durable from here on. Stock reservation and voucher usage
	// are best effort; failures are logged, never bubbled to the client.
	warnings := u.reserveStock(ctx, orderID, orderItems)
	if voucherID != nil {
		if err := u.vouchers.IncrementUsage(ctx, *voucherID); err != nil {
			u.log.Warn("voucher usage increment failed",
				zap.Int64("voucher_id", *voucherID),
				zap.Int64("order_id", orderID),
				zap.Error(err))
		}
	}

	created, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return CreateOrderOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if u.notifier != nil {
		go u.notifier.OrderCreated(context.WithoutCancel(ctx), created)
	}

	return CreateOrderOutput{
		Order:          created,
		Items:          items,
		AppliedVoucher: applied,
		StockWarnings:  warnings,
	}, nil
}

// resolveLines turns requested lines into priced order items against a stock
// snapshot. A line naming a variant is priced and checked on that variant; a
// line without one must be covered by the product's combined variant stock
// and takes the lowest variant price.
func (u *OrderUsecase) resolveLines(ctx context.Context, lines []CreateOrderItemInput) ([]model.OrderItem, int64, error) {
	orderItems := make([]model.OrderItem, 0, len(lines))
	var subtotal int64

	for _, line := range lines {
		p, err := u.products.FindByIDWithVariants(ctx, line.ProductID)
		if err == repo.ErrNotFound {
			return nil, 0, NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return nil, 0, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if !p.IsActive {
			return nil, 0, NewHTTPError(http.StatusBadRequest, "product is not available")
		}
		if len(p.Variants) == 0 {
			return nil, 0, NewHTTPError(http.StatusBadRequest, "product has no purchasable variants")
		}

		item := model.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    line.Quantity,
			ItemStatus:  model.OrderItemStatusNormal,
		}

		if line.VariantID != nil {
			v, ok := p.FindVariant(*line.VariantID)
			if !ok {
				return nil, 0, NewHTTPError(http.StatusBadRequest, "variant does not belong to product")
			}
			if v.Quantity < line.Quantity {
				return nil, 0, NewHTTPError(http.StatusBadRequest, "insufficient stock")
			}
			item.VariantID = line.VariantID
			item.UnitPrice = v.Price
			item.Attributes = v.Attributes
		} else {
			if p.TotalVariantQuantity() < line.Quantity {
				return nil, 0, NewHTTPError(http.StatusBadRequest, "insufficient stock")
			}
			lowest, _ := p.LowestVariantPrice()
			item.UnitPrice = lowest
		}

		orderItems = append(orderItems, item)
		subtotal += item.UnitPrice * item.Quantity
	}
	return orderItems, subtotal, nil
}

// reserveStock walks the ledger for every line of a persisted order. Lines
// without a variant drain the product's variants in listing order. Failures
// become reconciliation rows and warnings, never errors.
func (u *OrderUsecase) reserveStock(ctx context.Context, orderID int64, items []model.OrderItem) []string {
	var warnings []string
	for _, it := range items {
		if it.VariantID != nil {
			if err := u.products.AdjustVariantStock(ctx, it.ProductID, *it.VariantID, it.Quantity, true); err != nil {
				warnings = append(warnings, u.recordReservationFailure(ctx, orderID, it.ProductID, *it.VariantID, it.Quantity, err))
			}
			continue
		}

		p, err := u.products.FindByIDWithVariants(ctx, it.ProductID)
		if err != nil || len(p.Variants) == 0 {
			if err == nil {
				err = errInsufficientPool
			}
			warnings = append(warnings, u.recordReservationFailure(ctx, orderID, it.ProductID, 0, it.Quantity, err))
			continue
		}

		remaining := it.Quantity
		for _, v := range p.Variants {
			if remaining == 0 {
				break
			}
			take := v.Quantity
			if take > remaining {
				take = remaining
			}
			if take <= 0 {
				continue
			}
			if err := u.products.AdjustVariantStock(ctx, it.ProductID, v.ID, take, true); err != nil {
				warnings = append(warnings, u.recordReservationFailure(ctx, orderID, it.ProductID, v.ID, take, err))
				continue
			}
			remaining -= take
		}
		if remaining > 0 {
			warnings = append(warnings, u.recordReservationFailure(ctx, orderID, it.ProductID, p.Variants[0].ID, remaining, errInsufficientPool))
		}
	}
	return warnings
}

func (u *OrderUsecase) recordReservationFailure(ctx context.Context, orderID, productID, variantID, qty int64, cause error) string {
	u.log.Error("stock reservation failed",
		zap.Int64("order_id", orderID),
		zap.Int64("product_id", productID),
		zap.Int64("variant_id", variantID),
		zap.Int64("quantity", qty),
		zap.Error(cause))

	rec := model.StockReconciliation{
		OrderID:     orderID,
		ProductID:   productID,
		VariantID:   variantID,
		Quantity:    qty,
		Reservation: true,
		Reason:      cause.Error(),
	}
	if err := u.recons.Create(ctx, rec); err != nil {
		u.log.Error("stock reconciliation record failed",
			zap.Int64("order_id", orderID),
			zap.Error(err))
	}
	return fmt.Sprintf("stock reservation pending for product %d", productID)
}

// Cancel cancels a cash-on-delivery order that has not started fulfilment.
// Stock restoration runs in the same transaction; unlike reservation at
// create time, a restoration failure here aborts the cancellation.
func (u *OrderUsecase) Cancel(ctx context.Context, userID int64, orderID int64, reason string) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := u.orders.FindByIDForUser(ctx, orderID, userID)
	if err == repo.ErrNotFound {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if order.PaymentMethod != model.PaymentMethodCashOnDelivery {
		return model.Order{}, NewHTTPError(http.StatusConflict, "only cash on delivery orders can be cancelled")
	}
	if order.PaymentStatus != model.PaymentStatusPending || order.ShippingStatus != model.ShippingStatusPending {
		return model.Order{}, NewHTTPError(http.StatusConflict, "order can no longer be cancelled")
	}

	now := u.now()
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().MarkCancelled(ctx, orderID, strings.TrimSpace(reason), now); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		for _, it := range items {
			variantID := int64(0)
			if it.VariantID != nil {
				variantID = *it.VariantID
			} else {
				// Pool lines restore into the first variant. The product
				// total stays exact even if the per-variant split drifts.
				p, err := r.Products().FindByIDWithVariants(ctx, it.ProductID)
				if err != nil || len(p.Variants) == 0 {
					return NewHTTPError(http.StatusInternalServerError, "stock restoration failed")
				}
				variantID = p.Variants[0].ID
			}
			if err := r.Products().AdjustVariantStock(ctx, it.ProductID, variantID, it.Quantity, false); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "stock restoration failed")
			}
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	cancelled, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return cancelled, nil
}

type OrderDetailOutput struct {
	Order model.Order       `json:"order"`
	Items []model.OrderItem `json:"items"`
	// ReturnRequests is filled on detail lookups for orders with return
	// activity; list responses leave it empty.
	ReturnRequests []model.ReturnRequest `json:"return_requests,omitempty"`
}

func (u *OrderUsecase) returnRequestsFor(ctx context.Context, order model.Order) ([]model.ReturnRequest, error) {
	if !order.HasReturnActivity {
		return nil, nil
	}
	return u.returns.ListByOrderID(ctx, order.ID)
}

type OrderListOutput struct {
	Items []OrderDetailOutput `json:"items"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

func (u *OrderUsecase) ListMine(ctx context.Context, userID int64, f repo.OrderListFilter) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, f)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := OrderListOutput{Items: make([]OrderDetailOutput, 0, len(orders)), Total: total, Page: f.Page, Limit: f.Limit}
	for _, o := range orders {
		items, err := u.items.ListByOrderID(ctx, o.ID)
		if err != nil {
			return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out.Items = append(out.Items, OrderDetailOutput{Order: o, Items: items})
	}
	return out, nil
}

func (u *OrderUsecase) GetMine(ctx context.Context, userID int64, orderID int64) (OrderDetailOutput, error) {
	if userID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	o, err := u.orders.FindByIDForUser(ctx, orderID, userID)
	if err == repo.ErrNotFound {
		return OrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	returns, err := u.returnRequestsFor(ctx, o)
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return OrderDetailOutput{Order: o, Items: items, ReturnRequests: returns}, nil
}

func (u *OrderUsecase) AdminList(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 50
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	out := OrderListOutput{Items: make([]OrderDetailOutput, 0, len(orders)), Total: total, Page: f.Page, Limit: f.Limit}
	for _, o := range orders {
		items, err := u.items.ListByOrderID(ctx, o.ID)
		if err != nil {
			return OrderListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out.Items = append(out.Items, OrderDetailOutput{Order: o, Items: items})
	}
	return out, nil
}

func (u *OrderUsecase) AdminGet(ctx context.Context, orderID int64) (OrderDetailOutput, error) {
	if orderID <= 0 {
		return OrderDetailOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return OrderDetailOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items, err := u.items.ListByOrderID(ctx, orderID)
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	returns, err := u.returnRequestsFor(ctx, o)
	if err != nil {
		return OrderDetailOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return OrderDetailOutput{Order: o, Items: items, ReturnRequests: returns}, nil
}

type AdminUpdateShippingInput struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number,omitempty"`
}

// AdminUpdateShippingStatus moves an order along the fulfilment chain.
// Delivering a cash-on-delivery order also settles its payment, since the
// courier collected the cash at the door.
func (u *OrderUsecase) AdminUpdateShippingStatus(ctx context.Context, orderID int64, in AdminUpdateShippingInput) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	next := model.ShippingStatus(in.Status)
	switch next {
	case model.ShippingStatusProcessing, model.ShippingStatusShipped, model.ShippingStatusDelivered:
	case model.ShippingStatusCanceled:
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "use the cancellation flow to cancel an order")
	default:
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	order, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if order.ShippingStatus == next {
		return order, nil
	}
	if !order.ShippingStatus.CanTransition(next) {
		return model.Order{}, NewHTTPError(http.StatusConflict,
			fmt.Sprintf("cannot move shipping status from %s to %s", order.ShippingStatus, next))
	}

	now := u.now()
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Orders().UpdateShippingStatus(ctx, orderID, next, now, strings.TrimSpace(in.TrackingNumber)); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if next == model.ShippingStatusDelivered &&
			order.PaymentMethod == model.PaymentMethodCashOnDelivery &&
			order.PaymentStatus == model.PaymentStatusPending {
			if err := r.Orders().UpdatePaymentStatus(ctx, orderID, model.PaymentStatusCompleted, &now); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	updated, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return updated, nil
}

// newExchangeOrder derives the replacement order spawned when an exchange is
// approved. It ships free of charge to the original address and is fulfilled
// like any cash-on-delivery order with nothing to collect.
func (u *OrderUsecase) newExchangeOrder(original model.Order, items []model.OrderItem) (model.Order, []model.OrderItem) {
	order := model.Order{
		UserID:          original.UserID,
		OrderCode:       u.generateOrderCode(model.OrderKindExchange),
		TotalAmount:     0,
		DiscountAmount:  0,
		PaymentStatus:   model.PaymentStatusPending,
		ShippingStatus:  model.ShippingStatusPending,
		PaymentMethod:   model.PaymentMethodCashOnDelivery,
		OrderKind:       model.OrderKindExchange,
		ShippingAddress: original.ShippingAddress,
	}

	exchangeItems := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		exchangeItems = append(exchangeItems, model.OrderItem{
			ProductID:   it.ProductID,
			VariantID:   it.VariantID,
			ProductName: it.ProductName,
			UnitPrice:   0,
			Quantity:    it.Quantity,
			Attributes:  it.Attributes,
			ItemStatus:  model.OrderItemStatusNormal,
		})
	}
	return order, exchangeItems
}
