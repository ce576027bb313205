package repository

import (
	"context"

	repo "app/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders          repo.OrderRepository
	orderItems      repo.OrderItemRepository
	products        repo.ProductRepository
	vouchers        repo.VoucherRepository
	payments        repo.PaymentRecordRepository
	returnRequests  repo.ReturnRequestRepository
	reconciliations repo.StockReconciliationRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository                              { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository                      { return r.orderItems }
func (r *txReposGorm) Products() repo.ProductRepository                          { return r.products }
func (r *txReposGorm) Vouchers() repo.VoucherRepository                          { return r.vouchers }
func (r *txReposGorm) Payments() repo.PaymentRecordRepository                    { return r.payments }
func (r *txReposGorm) ReturnRequests() repo.ReturnRequestRepository              { return r.returnRequests }
func (r *txReposGorm) StockReconciliations() repo.StockReconciliationRepository  { return r.reconciliations }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Rebuild every repository on the transactional handle.
		r := &txReposGorm{
			orders:          NewOrderGormRepository(tx),
			orderItems:      NewOrderItemGormRepository(tx),
			products:        NewProductGormRepository(tx),
			vouchers:        NewVoucherGormRepository(tx),
			payments:        NewPaymentGormRepository(tx),
			returnRequests:  NewReturnRequestGormRepository(tx),
			reconciliations: NewStockReconciliationGormRepository(tx),
		}
		return fn(r)
	})
}
