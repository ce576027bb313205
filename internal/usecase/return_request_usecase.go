package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

type ReturnRequestUsecase struct {
	tx          repo.TransactionManager
	requests    repo.ReturnRequestRepository
	orders      repo.OrderRepository
	items       repo.OrderItemRepository
	orderUC     *OrderUsecase
	notifier    Notifier
	log         *zap.Logger
	windowHours int
	now         func() time.Time
}

func NewReturnRequestUsecase(
	tx repo.TransactionManager,
	requests repo.ReturnRequestRepository,
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	orderUC *OrderUsecase,
	notifier Notifier,
	log *zap.Logger,
	windowHours int,
) *ReturnRequestUsecase {
	if windowHours <= 0 {
		windowHours = 72
	}
	return &ReturnRequestUsecase{
		tx:          tx,
		requests:    requests,
		orders:      orders,
		items:       items,
		orderUC:     orderUC,
		notifier:    notifier,
		log:         log,
		windowHours: windowHours,
		now:         time.Now,
	}
}

type ReturnRequestItemInput struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id,omitempty"`
	Quantity  int64  `json:"quantity"`
}

type CreateReturnRequestInput struct {
	OrderID     int64                    `json:"order_id"`
	Email       string                   `json:"email"`
	Type        string                   `json:"type"`
	Reason      string                   `json:"reason"`
	Description string                   `json:"description"`
	Items       []ReturnRequestItemInput `json:"items"`
	Images      []string                 `json:"images,omitempty"`
	RefundInfo  model.RefundBankInfo     `json:"refund_info,omitempty"`
}

// matchItems resolves every requested line against the order's items. A line
// matches on (product, variant); lines without a variant match product-only
// items. Requested quantity must fit within the purchased quantity and the
// item must not already sit in another return or exchange.
func matchItems(requested []ReturnRequestItemInput, orderItems []model.OrderItem) ([]model.OrderItem, error) {
	matched := make([]model.OrderItem, 0, len(requested))
	for _, req := range requested {
		var found *model.OrderItem
		for i := range orderItems {
			if orderItems[i].MatchesReturnItem(req.ProductID, req.VariantID) {
				found = &orderItems[i]
				break
			}
		}
		if found == nil {
			return nil, NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("product %d is not part of this order", req.ProductID))
		}
		if found.ItemStatus != model.OrderItemStatusNormal {
			return nil, NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("product %d is already in a return or exchange", req.ProductID))
		}
		if req.Quantity > found.Quantity {
			return nil, NewHTTPError(http.StatusBadRequest,
				fmt.Sprintf("requested quantity exceeds purchased quantity for product %d", req.ProductID))
		}

		line := *found
		line.Quantity = req.Quantity
		matched = append(matched, line)
	}
	return matched, nil
}

// Create files a return or exchange request against a delivered order. The
// window is measured from the delivery timestamp and is inclusive: a request
// at exactly the deadline still goes through.
func (u *ReturnRequestUsecase) Create(ctx context.Context, userID int64, in CreateReturnRequestInput) (model.ReturnRequest, error) {
	if userID <= 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.OrderID <= 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	reqType := model.ReturnRequestType(in.Type)
	if !reqType.Valid() {
		return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "invalid type")
	}
	if strings.TrimSpace(in.Email) == "" {
		return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "email required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "reason required")
	}
	if strings.TrimSpace(in.Description) == "" {
		return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "description required")
	}
	if len(in.Items) == 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "at least one item required")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "invalid item")
		}
	}
	if reqType == model.ReturnRequestTypeReturn {
		if strings.TrimSpace(in.RefundInfo.BankName) == "" ||
			strings.TrimSpace(in.RefundInfo.BankAccount) == "" ||
			strings.TrimSpace(in.RefundInfo.BankAccountName) == "" {
			return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "refund bank info required for returns")
		}
	}

	order, err := u.orders.FindByIDForUser(ctx, in.OrderID, userID)
	if err == repo.ErrNotFound {
		return model.ReturnRequest{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if order.ShippingStatus != model.ShippingStatusDelivered || order.DeliveredAt == nil {
		return model.ReturnRequest{}, NewHTTPError(http.StatusConflict, "order has not been delivered")
	}
	window := time.Duration(u.windowHours) * time.Hour
	if u.now().Sub(*order.DeliveredAt) > window {
		return model.ReturnRequest{}, NewHTTPError(http.StatusConflict, "return window has closed")
	}

	orderItems, err := u.items.ListByOrderID(ctx, in.OrderID)
	if err != nil {
		return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	matched, err := matchItems(in.Items, orderItems)
	if err != nil {
		return model.ReturnRequest{}, err
	}

	request := model.ReturnRequest{
		OrderID:     in.OrderID,
		UserID:      userID,
		Email:       strings.TrimSpace(in.Email),
		Type:        reqType,
		Reason:      strings.TrimSpace(in.Reason),
		Description: strings.TrimSpace(in.Description),
		Status:      model.ReturnRequestStatusPending,
		RefundInfo:  in.RefundInfo,
	}
	for _, it := range in.Items {
		request.Items = append(request.Items, model.ReturnRequestItem{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}
	if len(in.Images) > 0 {
		raw, err := json.Marshal(in.Images)
		if err != nil {
			return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "invalid images")
		}
		request.Images = raw
	}

	var requestID int64
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		id, err := r.ReturnRequests().Create(ctx, request)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if err := r.Orders().SetReturnActivity(ctx, in.OrderID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if reqType == model.ReturnRequestTypeExchange {
			for _, it := range matched {
				if err := r.OrderItems().UpdateItemStatus(ctx, it.ID, model.OrderItemStatusExchangeRequested); err != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
			}
		}
		requestID = id
		return nil
	})
	if err != nil {
		return model.ReturnRequest{}, err
	}

	created, err := u.requests.FindByID(ctx, requestID)
	if err != nil {
		return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if u.notifier != nil {
		go u.notifier.ReturnRequestCreated(context.WithoutCancel(ctx), created)
	}
	return created, nil
}

func (u *ReturnRequestUsecase) ListMine(ctx context.Context, userID int64) ([]model.ReturnRequest, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	items, err := u.requests.ListByUserID(ctx, userID)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

type ReturnRequestListOutput struct {
	Items []model.ReturnRequest `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

func (u *ReturnRequestUsecase) AdminList(ctx context.Context, f repo.ReturnRequestListFilter) (ReturnRequestListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}
	items, total, err := u.requests.ListAdmin(ctx, f)
	if err != nil {
		return ReturnRequestListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return ReturnRequestListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *ReturnRequestUsecase) AdminGet(ctx context.Context, id int64) (model.ReturnRequest, error) {
	if id <= 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	req, err := u.requests.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.ReturnRequest{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return req, nil
}

type AdminUpdateReturnStatusInput struct {
	Status    string `json:"status"`
	AdminNote string `json:"admin_note,omitempty"`
}

// AdminUpdateStatus drives the request state machine. Setting the current
// status again is an idempotent no-op. Approval carries the side effects:
// returned items are marked RETURNED, exchanged items are marked EXCHANGED
// and a zero-priced replacement order is spawned and linked back.
func (u *ReturnRequestUsecase) AdminUpdateStatus(ctx context.Context, id int64, in AdminUpdateReturnStatusInput) (model.ReturnRequest, error) {
	if id <= 0 {
		return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "invalid request id")
	}
	next := model.ReturnRequestStatus(in.Status)
	switch next {
	case model.ReturnRequestStatusPending, model.ReturnRequestStatusApproved,
		model.ReturnRequestStatusRejected, model.ReturnRequestStatusCompleted:
	default:
		return model.ReturnRequest{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	request, err := u.requests.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.ReturnRequest{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if request.Status == next {
		return request, nil
	}
	if !request.Status.CanTransition(next) {
		return model.ReturnRequest{}, NewHTTPError(http.StatusConflict,
			fmt.Sprintf("cannot move request from %s to %s", request.Status, next))
	}

	request.Status = next
	if note := strings.TrimSpace(in.AdminNote); note != "" {
		request.AdminNote = note
	}

	if next != model.ReturnRequestStatusApproved {
		if err := u.requests.Update(ctx, request); err != nil {
			return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		updated, err := u.requests.FindByID(ctx, id)
		if err != nil {
			return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return updated, nil
	}

	order, err := u.orders.FindByID(ctx, request.OrderID)
	if err != nil {
		return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	orderItems, err := u.items.ListByOrderID(ctx, request.OrderID)
	if err != nil {
		return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	requested := make([]ReturnRequestItemInput, 0, len(request.Items))
	for _, it := range request.Items {
		requested = append(requested, ReturnRequestItemInput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
		})
	}
	matched := make([]model.OrderItem, 0, len(requested))
	for _, req := range requested {
		for i := range orderItems {
			if orderItems[i].MatchesReturnItem(req.ProductID, req.VariantID) {
				line := orderItems[i]
				line.Quantity = req.Quantity
				matched = append(matched, line)
				break
			}
		}
	}

	itemStatus := model.OrderItemStatusReturned
	if request.Type == model.ReturnRequestTypeExchange {
		itemStatus = model.OrderItemStatusExchanged
	}

	var (
		exchangeOrderID int64
		exchangeItems   []model.OrderItem
	)
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		for _, it := range matched {
			if err := r.OrderItems().UpdateItemStatus(ctx, it.ID, itemStatus); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
		}

		if request.Type == model.ReturnRequestTypeExchange {
			exchangeOrder, items := u.orderUC.newExchangeOrder(order, matched)
			id, err := r.Orders().Create(ctx, exchangeOrder)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			if err := r.OrderItems().CreateBulk(ctx, id, items); err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			exchangeOrderID = id
			exchangeItems = items
			request.ExchangeOrderID = &exchangeOrderID
		}

		if err := r.ReturnRequests().Update(ctx, request); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return model.ReturnRequest{}, err
	}

	if exchangeOrderID != 0 {
		if warnings := u.orderUC.reserveStock(ctx, exchangeOrderID, exchangeItems); len(warnings) > 0 {
			u.log.Warn("exchange order stock reservation incomplete",
				zap.Int64("exchange_order_id", exchangeOrderID),
				zap.Strings("warnings", warnings))
		}
	}

	updated, err := u.requests.FindByID(ctx, id)
	if err != nil {
		return model.ReturnRequest{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return updated, nil
}
