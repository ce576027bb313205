package repository

import "context"

// TxRepos is the set of repositories visible inside one transaction.
type TxRepos interface {
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Products() ProductRepository
	Vouchers() VoucherRepository
	Payments() PaymentRecordRepository
	ReturnRequests() ReturnRequestRepository
	StockReconciliations() StockReconciliationRepository
}

// TransactionManager hides begin/commit/rollback from the usecases.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
