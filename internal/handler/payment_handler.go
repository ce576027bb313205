package handler

import (
	"net/http"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	payments *usecase.PaymentUsecase
}

func NewPaymentHandler(payments *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// RegisterRoutes wires the gateway-facing endpoints. These carry no auth:
// the gateway redirects the shopper's browser here and the signature on the
// query string is the only credential.
func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/payments")

	g.GET("/vnpay-return", h.vnpayReturn)
	g.GET("/success", h.success)
	g.GET("/cancel", h.cancel)
}

func (h *PaymentHandler) vnpayReturn(c echo.Context) error {
	redirect, err := h.payments.HandleReturn(c.Request().Context(), c.QueryParams())
	if err != nil {
		return writeError(c, err)
	}
	return c.Redirect(http.StatusFound, redirect)
}

func (h *PaymentHandler) success(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "success",
		"order_id": c.QueryParam("orderId"),
	})
}

func (h *PaymentHandler) cancel(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":   "cancelled",
		"order_id": c.QueryParam("orderId"),
	})
}
