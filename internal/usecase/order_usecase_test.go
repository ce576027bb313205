package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"testing"
	"time"

	"app/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireHTTPError(t *testing.T, err error, status int) *HTTPError {
	t.Helper()
	require.Error(t, err)
	he, ok := AsHTTPError(err)
	require.True(t, ok, "expected HTTPError, got %v", err)
	require.Equal(t, status, he.Status, "message: %s", he.Message)
	return he
}

func variantID(v int64) *int64 { return &v }

func TestOrderCreate_ExplicitVariant(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	ctx := context.Background()

	out, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(11), Quantity: 2}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(300000), out.Order.TotalAmount)
	assert.Equal(t, int64(0), out.Order.DiscountAmount)
	assert.Equal(t, model.PaymentStatusPending, out.Order.PaymentStatus)
	assert.Equal(t, model.ShippingStatusPending, out.Order.ShippingStatus)
	assert.Equal(t, model.OrderKindNormal, out.Order.OrderKind)
	assert.Regexp(t, regexp.MustCompile(`^ORD-\d{8}\d{4}$`), out.Order.OrderCode)
	assert.Empty(t, out.StockWarnings)

	require.Len(t, out.Items, 1)
	assert.Equal(t, int64(150000), out.Items[0].UnitPrice)
	assert.Equal(t, "Plush Bear", out.Items[0].ProductName)

	// Reservation hit the chosen variant.
	v := env.products.variant(1, 11)
	assert.Equal(t, int64(8), v.Quantity)
	assert.Equal(t, int64(2), v.SoldCount)
	assert.Equal(t, int64(2), env.products.products[1].TotalSoldCount)
}

func TestOrderCreate_PriceFrozenAtOrderTime(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	ctx := context.Background()

	out, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(11), Quantity: 1}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	require.NoError(t, err)

	// A later catalog price change must not touch the stored line.
	env.products.products[1].Variants[0].Price = 999999

	items, err := env.items.ListByOrderID(ctx, out.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), items[0].UnitPrice)
}

func TestOrderCreate_PoolLineUsesLowestPriceAndSpansVariants(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	ctx := context.Background()

	// 12 units: variant 11 has 10, variant 12 has 3. The pool covers it.
	out, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, Quantity: 12}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	require.NoError(t, err)

	// Lowest variant price applies to the whole line.
	assert.Equal(t, int64(150000*12), out.Order.TotalAmount)
	assert.Empty(t, out.StockWarnings)

	// Greedy drain: first variant emptied, remainder from the second.
	assert.Equal(t, int64(0), env.products.variant(1, 11).Quantity)
	assert.Equal(t, int64(1), env.products.variant(1, 12).Quantity)
	assert.Equal(t, int64(12), env.products.products[1].TotalSoldCount)
}

func TestOrderCreate_InsufficientStock(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	ctx := context.Background()

	_, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(12), Quantity: 4}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	requireHTTPError(t, err, http.StatusBadRequest)

	_, err = env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, Quantity: 14}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	requireHTTPError(t, err, http.StatusBadRequest)
}

func TestOrderCreate_ProductWithoutVariantsRejected(t *testing.T) {
	env := newTestEnv()
	env.products.add(model.Product{ID: 2, Name: "Ghost", IsActive: true})
	ctx := context.Background()

	_, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 2, Quantity: 1}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	he := requireHTTPError(t, err, http.StatusBadRequest)
	assert.Contains(t, he.Message, "variants")
}

func TestOrderCreate_InactiveProductRejected(t *testing.T) {
	env := newTestEnv()
	p := env.twoVariantProduct()
	env.products.products[p.ID].IsActive = false
	ctx := context.Background()

	_, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(11), Quantity: 1}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	requireHTTPError(t, err, http.StatusBadRequest)
}

func TestOrderCreate_WithPercentageVoucher(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	cap := int64(15000)
	v := env.vouchers.add(model.Voucher{
		Code: "SUMMER10", Name: "Summer", Type: model.VoucherTypePercentage,
		Value: 10, MaxDiscountValue: &cap, IsActive: true,
		StartDate: testNow.AddDate(0, -1, 0), EndDate: testNow.AddDate(0, 1, 0),
	})
	ctx := context.Background()

	// Subtotal 300000, 10% would be 30000, capped at 15000.
	out, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(11), Quantity: 2}},
		VoucherCode:     "SUMMER10",
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(15000), out.Order.DiscountAmount)
	assert.Equal(t, int64(285000), out.Order.TotalAmount)
	require.NotNil(t, out.Order.VoucherID)
	assert.Equal(t, v.ID, *out.Order.VoucherID)
	require.NotNil(t, out.AppliedVoucher)
	assert.Equal(t, "SUMMER10", out.AppliedVoucher.Code)
	assert.Equal(t, int64(15000), out.AppliedVoucher.DiscountAmount)

	// Usage is consumed after persistence.
	stored, _ := env.vouchers.FindByID(ctx, v.ID)
	assert.Equal(t, int64(1), stored.UsageCount)
}

func TestOrderCreate_TotalNeverNegative(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	env.vouchers.add(model.Voucher{
		Code: "BIGFIX", Name: "Big", Type: model.VoucherTypeFixedAmount,
		Value: 1000000, IsActive: true,
		StartDate: testNow.AddDate(0, -1, 0), EndDate: testNow.AddDate(0, 1, 0),
	})
	ctx := context.Background()

	out, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(11), Quantity: 1}},
		VoucherCode:     "BIGFIX",
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), out.Order.TotalAmount)
	assert.Equal(t, int64(150000), out.Order.DiscountAmount, "fixed discount is capped at the subtotal")
}

func TestOrderCreate_InvalidVoucherRejectsOrder(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	env.vouchers.add(model.Voucher{
		Code: "EXPIRED", Name: "Old", Type: model.VoucherTypePercentage, Value: 10,
		IsActive: true, StartDate: testNow.AddDate(0, -2, 0), EndDate: testNow.AddDate(0, -1, 0),
	})
	ctx := context.Background()

	_, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(11), Quantity: 1}},
		VoucherCode:     "EXPIRED",
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	he := requireHTTPError(t, err, http.StatusBadRequest)
	assert.Equal(t, voucherReasonExpired, he.Message)
}

func TestOrderCreate_ReservationFailureKeepsOrder(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	env.products.adjustErr[11] = errors.New("connection reset")
	ctx := context.Background()

	out, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(11), Quantity: 2}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	require.NoError(t, err, "the persisted order survives a ledger failure")

	require.Len(t, out.StockWarnings, 1)
	require.Len(t, env.recons.records, 1)
	rec := env.recons.records[0]
	assert.Equal(t, out.Order.ID, rec.OrderID)
	assert.Equal(t, int64(11), rec.VariantID)
	assert.Equal(t, int64(2), rec.Quantity)
	assert.True(t, rec.Reservation)

	_, err = env.orders.FindByID(ctx, out.Order.ID)
	assert.NoError(t, err)
}

func TestOrderCancel_RestoresStock(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	ctx := context.Background()

	out, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(11), Quantity: 3}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), env.products.variant(1, 11).Quantity)

	cancelled, err := env.orderUC.Cancel(ctx, 7, out.Order.ID, "changed my mind")
	require.NoError(t, err)

	assert.Equal(t, model.ShippingStatusCanceled, cancelled.ShippingStatus)
	assert.Equal(t, "changed my mind", cancelled.CancelledReason)
	require.NotNil(t, cancelled.CancelledAt)

	// Create then cancel is symmetric on the ledger.
	v := env.products.variant(1, 11)
	assert.Equal(t, int64(10), v.Quantity)
	assert.Equal(t, int64(0), v.SoldCount)
	assert.Equal(t, int64(0), env.products.products[1].TotalSoldCount)
}

func TestOrderCancel_RejectionMatrix(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	cases := []struct {
		name  string
		order model.Order
	}{
		{"online payment", model.Order{UserID: 7, PaymentMethod: model.PaymentMethodOnlinePayment,
			PaymentStatus: model.PaymentStatusPending, ShippingStatus: model.ShippingStatusPending}},
		{"already paid", model.Order{UserID: 7, PaymentMethod: model.PaymentMethodCashOnDelivery,
			PaymentStatus: model.PaymentStatusCompleted, ShippingStatus: model.ShippingStatusPending}},
		{"already processing", model.Order{UserID: 7, PaymentMethod: model.PaymentMethodCashOnDelivery,
			PaymentStatus: model.PaymentStatusPending, ShippingStatus: model.ShippingStatusProcessing}},
		{"already shipped", model.Order{UserID: 7, PaymentMethod: model.PaymentMethodCashOnDelivery,
			PaymentStatus: model.PaymentStatusPending, ShippingStatus: model.ShippingStatusShipped}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o := tc.order
			o.OrderCode = fmt.Sprintf("ORD-%s", tc.name)
			id, err := env.orders.Create(ctx, o)
			require.NoError(t, err)

			_, err = env.orderUC.Cancel(ctx, 7, id, "")
			requireHTTPError(t, err, http.StatusConflict)
		})
	}
}

func TestOrderCancel_OtherUsersOrderIsHidden(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.orders.Create(ctx, model.Order{UserID: 7, OrderCode: "ORD-X",
		PaymentMethod: model.PaymentMethodCashOnDelivery,
		PaymentStatus: model.PaymentStatusPending, ShippingStatus: model.ShippingStatusPending})
	require.NoError(t, err)

	_, err = env.orderUC.Cancel(ctx, 8, id, "")
	requireHTTPError(t, err, http.StatusNotFound)
}

func TestAdminUpdateShippingStatus_HappyChain(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.orders.Create(ctx, model.Order{UserID: 7, OrderCode: "ORD-CHAIN",
		PaymentMethod: model.PaymentMethodCashOnDelivery,
		PaymentStatus: model.PaymentStatusPending, ShippingStatus: model.ShippingStatusPending})
	require.NoError(t, err)

	o, err := env.orderUC.AdminUpdateShippingStatus(ctx, id, AdminUpdateShippingInput{Status: "PROCESSING"})
	require.NoError(t, err)
	assert.Equal(t, model.ShippingStatusProcessing, o.ShippingStatus)

	o, err = env.orderUC.AdminUpdateShippingStatus(ctx, id, AdminUpdateShippingInput{Status: "SHIPPED", TrackingNumber: "GHN123"})
	require.NoError(t, err)
	assert.Equal(t, model.ShippingStatusShipped, o.ShippingStatus)
	assert.Equal(t, "GHN123", o.TrackingNumber)
	require.NotNil(t, o.ShippedAt)

	o, err = env.orderUC.AdminUpdateShippingStatus(ctx, id, AdminUpdateShippingInput{Status: "DELIVERED"})
	require.NoError(t, err)
	assert.Equal(t, model.ShippingStatusDelivered, o.ShippingStatus)
	require.NotNil(t, o.DeliveredAt)

	// Delivered cash-on-delivery settles payment.
	assert.Equal(t, model.PaymentStatusCompleted, o.PaymentStatus)
	require.NotNil(t, o.PaidAt)
}

func TestAdminUpdateShippingStatus_IllegalJumpRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.orders.Create(ctx, model.Order{UserID: 7, OrderCode: "ORD-JUMP",
		PaymentMethod: model.PaymentMethodCashOnDelivery,
		PaymentStatus: model.PaymentStatusPending, ShippingStatus: model.ShippingStatusPending})
	require.NoError(t, err)

	_, err = env.orderUC.AdminUpdateShippingStatus(ctx, id, AdminUpdateShippingInput{Status: "DELIVERED"})
	requireHTTPError(t, err, http.StatusConflict)

	_, err = env.orderUC.AdminUpdateShippingStatus(ctx, id, AdminUpdateShippingInput{Status: "CANCELED"})
	requireHTTPError(t, err, http.StatusBadRequest)
}

func TestAdminUpdateShippingStatus_SameStatusIsNoOp(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.orders.Create(ctx, model.Order{UserID: 7, OrderCode: "ORD-NOOP",
		PaymentMethod: model.PaymentMethodCashOnDelivery,
		PaymentStatus: model.PaymentStatusPending, ShippingStatus: model.ShippingStatusProcessing})
	require.NoError(t, err)

	o, err := env.orderUC.AdminUpdateShippingStatus(ctx, id, AdminUpdateShippingInput{Status: "PROCESSING"})
	require.NoError(t, err)
	assert.Equal(t, model.ShippingStatusProcessing, o.ShippingStatus)
}

func TestGenerateOrderCode_Prefixes(t *testing.T) {
	env := newTestEnv()

	assert.Regexp(t, `^ORD-\d{8}1234$`, env.orderUC.generateOrderCode(model.OrderKindNormal))
	assert.Regexp(t, `^EXCH-\d{8}1234$`, env.orderUC.generateOrderCode(model.OrderKindExchange))
}

func TestOrderCreate_NotifierFires(t *testing.T) {
	env := newTestEnv()
	env.twoVariantProduct()
	ctx := context.Background()

	_, err := env.orderUC.Create(ctx, 7, CreateOrderInput{
		Items:           []CreateOrderItemInput{{ProductID: 1, VariantID: variantID(11), Quantity: 1}},
		PaymentMethod:   "CASH_ON_DELIVERY",
		ShippingAddress: env.shippingAddress(),
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		env.notifier.mu.Lock()
		defer env.notifier.mu.Unlock()
		return env.notifier.orderCreated == 1
	}, time.Second, 10*time.Millisecond)
}
