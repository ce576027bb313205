package usecase

import (
	"context"
	"sync"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/vnpay"

	"go.uber.org/zap"
)

// Stateful in-memory repositories. The transaction manager hands the same
// instances back, so tests observe every write the usecases make.

type fakeOrderRepo struct {
	orders map[int64]model.Order
	nextID int64
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[int64]model.Order{}, nextID: 1}
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) FindByIDForUser(ctx context.Context, orderID int64, userID int64) (model.Order, error) {
	o, ok := f.orders[orderID]
	if !ok || o.UserID != userID {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (f *fakeOrderRepo) ListByUserID(ctx context.Context, userID int64, _ repo.OrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) ListAdmin(ctx context.Context, _ repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range f.orders {
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (f *fakeOrderRepo) Create(ctx context.Context, order model.Order) (int64, error) {
	order.ID = f.nextID
	f.nextID++
	f.orders[order.ID] = order
	return order.ID, nil
}

func (f *fakeOrderRepo) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus, paidAt *time.Time) error {
	o, ok := f.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.PaymentStatus = status
	if paidAt != nil {
		o.PaidAt = paidAt
	}
	f.orders[orderID] = o
	return nil
}

func (f *fakeOrderRepo) UpdateShippingStatus(ctx context.Context, orderID int64, status model.ShippingStatus, at time.Time, trackingNumber string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.ShippingStatus = status
	switch status {
	case model.ShippingStatusShipped:
		o.ShippedAt = &at
	case model.ShippingStatusDelivered:
		o.DeliveredAt = &at
	}
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	f.orders[orderID] = o
	return nil
}

func (f *fakeOrderRepo) MarkCancelled(ctx context.Context, orderID int64, reason string, at time.Time) error {
	o, ok := f.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.ShippingStatus = model.ShippingStatusCanceled
	o.CancelledAt = &at
	o.CancelledReason = reason
	f.orders[orderID] = o
	return nil
}

func (f *fakeOrderRepo) SetReturnActivity(ctx context.Context, orderID int64) error {
	o, ok := f.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.HasReturnActivity = true
	f.orders[orderID] = o
	return nil
}

type fakeOrderItemRepo struct {
	items  map[int64]model.OrderItem
	nextID int64
}

func newFakeOrderItemRepo() *fakeOrderItemRepo {
	return &fakeOrderItemRepo{items: map[int64]model.OrderItem{}, nextID: 1}
}

func (f *fakeOrderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	for _, it := range items {
		it.ID = f.nextID
		f.nextID++
		it.OrderID = orderID
		f.items[it.ID] = it
	}
	return nil
}

func (f *fakeOrderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var out []model.OrderItem
	for id := int64(1); id < f.nextID; id++ {
		if it, ok := f.items[id]; ok && it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeOrderItemRepo) UpdateItemStatus(ctx context.Context, itemID int64, status model.OrderItemStatus) error {
	it, ok := f.items[itemID]
	if !ok {
		return repo.ErrNotFound
	}
	it.ItemStatus = status
	f.items[itemID] = it
	return nil
}

type fakeProductRepo struct {
	products map[int64]*model.Product
	// adjustErr forces AdjustVariantStock to fail for a variant id.
	adjustErr map[int64]error
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{products: map[int64]*model.Product{}, adjustErr: map[int64]error{}}
}

func (f *fakeProductRepo) add(p model.Product) {
	cp := p
	f.products[p.ID] = &cp
}

func (f *fakeProductRepo) FindByIDWithVariants(ctx context.Context, id int64) (model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return *p, nil
}

func (f *fakeProductRepo) AdjustVariantStock(ctx context.Context, productID int64, variantID int64, qty int64, reservation bool) error {
	if err, ok := f.adjustErr[variantID]; ok {
		return err
	}
	p, ok := f.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	for i := range p.Variants {
		if p.Variants[i].ID != variantID {
			continue
		}
		if reservation {
			p.Variants[i].Quantity -= qty
			p.Variants[i].SoldCount += qty
			p.TotalSoldCount += qty
		} else {
			p.Variants[i].Quantity += qty
			p.Variants[i].SoldCount -= qty
			p.TotalSoldCount -= qty
		}
		return nil
	}
	return repo.ErrNotFound
}

func (f *fakeProductRepo) variant(productID, variantID int64) model.ProductVariant {
	for _, v := range f.products[productID].Variants {
		if v.ID == variantID {
			return v
		}
	}
	return model.ProductVariant{}
}

type fakeVoucherRepo struct {
	vouchers map[int64]model.Voucher
	nextID   int64
}

func newFakeVoucherRepo() *fakeVoucherRepo {
	return &fakeVoucherRepo{vouchers: map[int64]model.Voucher{}, nextID: 1}
}

func (f *fakeVoucherRepo) add(v model.Voucher) model.Voucher {
	if v.ID == 0 {
		v.ID = f.nextID
		f.nextID++
	} else if v.ID >= f.nextID {
		f.nextID = v.ID + 1
	}
	f.vouchers[v.ID] = v
	return v
}

func (f *fakeVoucherRepo) FindByID(ctx context.Context, id int64) (model.Voucher, error) {
	v, ok := f.vouchers[id]
	if !ok {
		return model.Voucher{}, repo.ErrNotFound
	}
	return v, nil
}

func (f *fakeVoucherRepo) FindByCode(ctx context.Context, code string) (model.Voucher, error) {
	for _, v := range f.vouchers {
		if v.Code == code {
			return v, nil
		}
	}
	return model.Voucher{}, repo.ErrNotFound
}

func (f *fakeVoucherRepo) List(ctx context.Context, _ repo.VoucherListFilter) ([]model.Voucher, int64, error) {
	var out []model.Voucher
	for _, v := range f.vouchers {
		out = append(out, v)
	}
	return out, int64(len(out)), nil
}

func (f *fakeVoucherRepo) ListActive(ctx context.Context, now time.Time) ([]model.Voucher, error) {
	var out []model.Voucher
	for _, v := range f.vouchers {
		if v.IsActive && !now.Before(v.StartDate) && now.Before(v.EndDate) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVoucherRepo) Create(ctx context.Context, v model.Voucher) (int64, error) {
	return f.add(v).ID, nil
}

func (f *fakeVoucherRepo) Update(ctx context.Context, v model.Voucher) error {
	if _, ok := f.vouchers[v.ID]; !ok {
		return repo.ErrNotFound
	}
	f.vouchers[v.ID] = v
	return nil
}

func (f *fakeVoucherRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := f.vouchers[id]; !ok {
		return repo.ErrNotFound
	}
	delete(f.vouchers, id)
	return nil
}

func (f *fakeVoucherRepo) IncrementUsage(ctx context.Context, id int64) error {
	v, ok := f.vouchers[id]
	if !ok {
		return repo.ErrNotFound
	}
	v.UsageCount++
	f.vouchers[id] = v
	return nil
}

type fakePaymentRepo struct {
	records map[int64]model.PaymentRecord
	nextID  int64
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{records: map[int64]model.PaymentRecord{}, nextID: 1}
}

func (f *fakePaymentRepo) Create(ctx context.Context, rec model.PaymentRecord) (int64, error) {
	rec.ID = f.nextID
	f.nextID++
	f.records[rec.ID] = rec
	return rec.ID, nil
}

func (f *fakePaymentRepo) FindByOrderID(ctx context.Context, orderID int64) (model.PaymentRecord, error) {
	var latest model.PaymentRecord
	found := false
	for _, rec := range f.records {
		if rec.OrderID == orderID && (!found || rec.ID > latest.ID) {
			latest = rec
			found = true
		}
	}
	if !found {
		return model.PaymentRecord{}, repo.ErrNotFound
	}
	return latest, nil
}

func (f *fakePaymentRepo) Update(ctx context.Context, rec model.PaymentRecord) error {
	if _, ok := f.records[rec.ID]; !ok {
		return repo.ErrNotFound
	}
	f.records[rec.ID] = rec
	return nil
}

type fakeReturnRepo struct {
	requests map[int64]model.ReturnRequest
	nextID   int64
}

func newFakeReturnRepo() *fakeReturnRepo {
	return &fakeReturnRepo{requests: map[int64]model.ReturnRequest{}, nextID: 1}
}

func (f *fakeReturnRepo) Create(ctx context.Context, req model.ReturnRequest) (int64, error) {
	req.ID = f.nextID
	f.nextID++
	for i := range req.Items {
		req.Items[i].ReturnRequestID = req.ID
	}
	f.requests[req.ID] = req
	return req.ID, nil
}

func (f *fakeReturnRepo) FindByID(ctx context.Context, id int64) (model.ReturnRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return model.ReturnRequest{}, repo.ErrNotFound
	}
	return req, nil
}

func (f *fakeReturnRepo) ListByUserID(ctx context.Context, userID int64) ([]model.ReturnRequest, error) {
	var out []model.ReturnRequest
	for _, req := range f.requests {
		if req.UserID == userID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeReturnRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.ReturnRequest, error) {
	var out []model.ReturnRequest
	for _, req := range f.requests {
		if req.OrderID == orderID {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeReturnRepo) ListAdmin(ctx context.Context, _ repo.ReturnRequestListFilter) ([]model.ReturnRequest, int64, error) {
	var out []model.ReturnRequest
	for _, req := range f.requests {
		out = append(out, req)
	}
	return out, int64(len(out)), nil
}

func (f *fakeReturnRepo) Update(ctx context.Context, req model.ReturnRequest) error {
	stored, ok := f.requests[req.ID]
	if !ok {
		return repo.ErrNotFound
	}
	stored.Status = req.Status
	stored.AdminNote = req.AdminNote
	stored.ExchangeOrderID = req.ExchangeOrderID
	f.requests[req.ID] = stored
	return nil
}

type fakeReconRepo struct {
	records []model.StockReconciliation
}

func (f *fakeReconRepo) Create(ctx context.Context, rec model.StockReconciliation) error {
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeReconRepo) ListUnresolved(ctx context.Context, limit int) ([]model.StockReconciliation, error) {
	return f.records, nil
}

type fakeNotifier struct {
	mu             sync.Mutex
	orderCreated   int
	orderPaid      int
	returnsCreated int
}

func (n *fakeNotifier) OrderCreated(ctx context.Context, _ model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orderCreated++
}

func (n *fakeNotifier) OrderPaid(ctx context.Context, _ model.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orderPaid++
}

func (n *fakeNotifier) ReturnRequestCreated(ctx context.Context, _ model.ReturnRequest) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.returnsCreated++
}

func (n *fakeNotifier) paidCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.orderPaid
}

type fakeTxManager struct {
	orders   *fakeOrderRepo
	items    *fakeOrderItemRepo
	products *fakeProductRepo
	vouchers *fakeVoucherRepo
	payments *fakePaymentRepo
	returns  *fakeReturnRepo
	recons   *fakeReconRepo
}

func (f *fakeTxManager) Orders() repo.OrderRepository                             { return f.orders }
func (f *fakeTxManager) OrderItems() repo.OrderItemRepository                     { return f.items }
func (f *fakeTxManager) Products() repo.ProductRepository                         { return f.products }
func (f *fakeTxManager) Vouchers() repo.VoucherRepository                         { return f.vouchers }
func (f *fakeTxManager) Payments() repo.PaymentRecordRepository                   { return f.payments }
func (f *fakeTxManager) ReturnRequests() repo.ReturnRequestRepository             { return f.returns }
func (f *fakeTxManager) StockReconciliations() repo.StockReconciliationRepository { return f.recons }

func (f *fakeTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(f)
}

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	orders   *fakeOrderRepo
	items    *fakeOrderItemRepo
	products *fakeProductRepo
	vouchers *fakeVoucherRepo
	payments *fakePaymentRepo
	returns  *fakeReturnRepo
	recons   *fakeReconRepo
	notifier *fakeNotifier

	orderUC   *OrderUsecase
	paymentUC *PaymentUsecase
	voucherUC *VoucherUsecase
	returnUC  *ReturnRequestUsecase

	gateway *vnpay.Client
	now     time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		orders:   newFakeOrderRepo(),
		items:    newFakeOrderItemRepo(),
		products: newFakeProductRepo(),
		vouchers: newFakeVoucherRepo(),
		payments: newFakePaymentRepo(),
		returns:  newFakeReturnRepo(),
		recons:   &fakeReconRepo{},
		notifier: &fakeNotifier{},
		now:      testNow,
	}

	tx := &fakeTxManager{
		orders:   env.orders,
		items:    env.items,
		products: env.products,
		vouchers: env.vouchers,
		payments: env.payments,
		returns:  env.returns,
		recons:   env.recons,
	}
	log := zap.NewNop()
	clock := func() time.Time { return env.now }

	env.gateway = vnpay.NewClient(vnpay.Config{
		TmnCode:    "TESTTMN1",
		HashSecret: "test-secret",
		URL:        "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://api.example.com/payments/vnpay-return",
	})

	env.orderUC = NewOrderUsecase(tx, env.orders, env.items, env.products, env.vouchers, env.returns, env.recons, env.notifier, log)
	env.orderUC.now = clock
	env.orderUC.randInt = func(n int) int { return 1234 }

	env.paymentUC = NewPaymentUsecase(tx, env.orders, env.payments, env.gateway, "https://shop.example.com", env.notifier, log)
	env.paymentUC.now = clock

	env.voucherUC = NewVoucherUsecase(env.vouchers)
	env.voucherUC.now = clock

	env.returnUC = NewReturnRequestUsecase(tx, env.returns, env.orders, env.items, env.orderUC, env.notifier, log, 72)
	env.returnUC.now = clock

	return env
}

// twoVariantProduct seeds a product with two variants and returns it.
func (env *testEnv) twoVariantProduct() model.Product {
	p := model.Product{
		ID:       1,
		Name:     "Plush Bear",
		IsActive: true,
		Variants: []model.ProductVariant{
			{ID: 11, ProductID: 1, SKU: "BEAR-S", Price: 150000, Quantity: 10},
			{ID: 12, ProductID: 1, SKU: "BEAR-L", Price: 250000, Quantity: 3},
		},
	}
	env.products.add(p)
	return p
}

func (env *testEnv) shippingAddress() model.ShippingAddress {
	return model.ShippingAddress{
		FullName:     "Nguyen Van A",
		Phone:        "0900000001",
		AddressLine1: "12 Hang Gai",
		City:         "Hanoi",
		District:     "Hoan Kiem",
	}
}
