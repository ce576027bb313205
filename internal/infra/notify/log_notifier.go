// Package notify carries order lifecycle events out of the request path.
// The log-backed implementation stands in for the mail sender; swapping in a
// real one only touches main.
package notify

import (
	"context"

	"app/internal/domain/model"

	"go.uber.org/zap"
)

type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) OrderCreated(ctx context.Context, order model.Order) {
	n.log.Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("order_code", order.OrderCode),
		zap.Int64("total_amount", order.TotalAmount),
		zap.String("payment_method", string(order.PaymentMethod)))
}

func (n *LogNotifier) OrderPaid(ctx context.Context, order model.Order) {
	n.log.Info("order paid",
		zap.Int64("order_id", order.ID),
		zap.String("order_code", order.OrderCode),
		zap.Int64("total_amount", order.TotalAmount))
}

func (n *LogNotifier) ReturnRequestCreated(ctx context.Context, req model.ReturnRequest) {
	n.log.Info("return request created",
		zap.Int64("return_request_id", req.ID),
		zap.Int64("order_id", req.OrderID),
		zap.String("type", string(req.Type)))
}
