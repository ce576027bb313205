package usecase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/vnpay"

	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type PaymentUsecase struct {
	tx          repo.TransactionManager
	orders      repo.OrderRepository
	payments    repo.PaymentRecordRepository
	gateway     *vnpay.Client
	frontendURL string
	notifier    Notifier
	log         *zap.Logger
	now         func() time.Time
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	payments repo.PaymentRecordRepository,
	gateway *vnpay.Client,
	frontendURL string,
	notifier Notifier,
	log *zap.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:          tx,
		orders:      orders,
		payments:    payments,
		gateway:     gateway,
		frontendURL: frontendURL,
		notifier:    notifier,
		log:         log,
		now:         time.Now,
	}
}

// PaymentSessionOutput is what the client needs to send the shopper to the
// gateway: the checkout URL and the transaction reference tying the callback
// back to the order.
type PaymentSessionOutput struct {
	TransactionID string `json:"transaction_id"`
	PaymentURL    string `json:"payment_url"`
}

// CreateSession opens (or re-opens) a gateway checkout for an unpaid online
// order. One payment record tracks the order across retries; each call
// refreshes its transaction reference.
func (u *PaymentUsecase) CreateSession(ctx context.Context, userID int64, orderID int64, clientIP string) (PaymentSessionOutput, error) {
	if userID <= 0 {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	order, err := u.orders.FindByIDForUser(ctx, orderID, userID)
	if err == repo.ErrNotFound {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if order.PaymentMethod != model.PaymentMethodOnlinePayment {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusBadRequest, "order is not payable online")
	}
	if order.ShippingStatus == model.ShippingStatusCanceled {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusConflict, "order is cancelled")
	}
	if order.PaymentStatus == model.PaymentStatusCompleted {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusConflict, "order is already paid")
	}
	if order.PaymentStatus != model.PaymentStatusPending {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusConflict, "order is not awaiting payment")
	}
	if order.TotalAmount <= 0 {
		return PaymentSessionOutput{}, NewHTTPError(http.StatusBadRequest, "order total must be positive for online payment")
	}

	now := u.now()
	txnRef := vnpay.FormatTxnRef(now, orderID)

	existing, err := u.payments.FindByOrderID(ctx, orderID)
	switch {
	case err == repo.ErrNotFound:
		_, err = u.payments.Create(ctx, model.PaymentRecord{
			UserID:   userID,
			OrderID:  orderID,
			Amount:   order.TotalAmount,
			Currency: "vnd",
			Provider: model.PaymentProviderVNPay,
			Status:   model.PaymentStatusPending,
			Details:  datatypes.JSONMap{"txn_ref": txnRef},
		})
		if err != nil {
			return PaymentSessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	case err != nil:
		return PaymentSessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	default:
		if existing.Status == model.PaymentStatusCompleted {
			return PaymentSessionOutput{}, NewHTTPError(http.StatusConflict, "order is already paid")
		}
		existing.Status = model.PaymentStatusPending
		existing.FailureReason = ""
		if existing.Details == nil {
			existing.Details = datatypes.JSONMap{}
		}
		existing.Details["txn_ref"] = txnRef
		if err := u.payments.Update(ctx, existing); err != nil {
			return PaymentSessionOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
	}

	return PaymentSessionOutput{
		TransactionID: txnRef,
		PaymentURL: u.gateway.BuildPaymentURL(vnpay.PaymentRequest{
			TxnRef:     txnRef,
			Amount:     order.TotalAmount,
			OrderInfo:  fmt.Sprintf("Payment for order %s", order.OrderCode),
			ClientIP:   clientIP,
			CreateTime: now,
		}),
	}, nil
}

func (u *PaymentUsecase) successRedirect(orderID int64) string {
	return fmt.Sprintf("%s/orders/%d", u.frontendURL, orderID)
}

func (u *PaymentUsecase) cancelRedirect(orderID int64) string {
	return fmt.Sprintf("%s/payment/cancel?orderId=%d", u.frontendURL, orderID)
}

// HandleReturn processes the signed gateway callback and returns the frontend
// URL to redirect the shopper to. A callback for an already completed payment
// is a replay and short-circuits to the success page without touching state.
func (u *PaymentUsecase) HandleReturn(ctx context.Context, query url.Values) (string, error) {
	params, err := u.gateway.VerifyReturn(query)
	if err != nil {
		return "", NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	orderID, err := vnpay.ParseTxnRef(params[vnpay.ParamTxnRef])
	if err != nil {
		return "", NewHTTPError(http.StatusBadRequest, "malformed transaction reference")
	}

	record, err := u.payments.FindByOrderID(ctx, orderID)
	if err == repo.ErrNotFound {
		return "", NewHTTPError(http.StatusNotFound, "payment not found")
	}
	if err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "db error")
	}
	if record.Status == model.PaymentStatusCompleted {
		return u.successRedirect(orderID), nil
	}

	order, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return "", NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "db error")
	}

	now := u.now()
	details := record.Details
	if details == nil {
		details = datatypes.JSONMap{}
	}
	for key, value := range params {
		details[key] = value
	}
	record.Details = details

	if params[vnpay.ParamResponseCode] != vnpay.ResponseCodeSuccess {
		if record.Status == model.PaymentStatusFailed {
			return u.cancelRedirect(orderID), nil
		}
		record.Status = model.PaymentStatusFailed
		record.FailureReason = params[vnpay.ParamResponseCode]
		err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			if err := r.Payments().Update(ctx, record); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.Orders().UpdatePaymentStatus(ctx, orderID, model.PaymentStatusFailed, nil); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if order.ShippingStatus.CanTransition(model.ShippingStatusCanceled) {
				if err := r.Orders().MarkCancelled(ctx, orderID, "online payment failed", now); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		return u.cancelRedirect(orderID), nil
	}

	if !record.Status.CanTransition(model.PaymentStatusCompleted) {
		return "", NewHTTPError(http.StatusConflict, "payment is not completable")
	}

	record.Status = model.PaymentStatusCompleted
	record.TransactionID = params[vnpay.ParamTransactionNo]
	record.CompletedAt = &now

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Payments().Update(ctx, record); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if order.PaymentStatus.CanTransition(model.PaymentStatusCompleted) {
			if err := r.Orders().UpdatePaymentStatus(ctx, orderID, model.PaymentStatusCompleted, &now); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	if u.notifier != nil {
		paid := order
		paid.PaymentStatus = model.PaymentStatusCompleted
		paid.PaidAt = &now
		go u.notifier.OrderPaid(context.WithoutCancel(ctx), paid)
	}

	return u.successRedirect(orderID), nil
}
