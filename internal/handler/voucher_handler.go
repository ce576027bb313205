package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type VoucherHandler struct {
	vouchers *usecase.VoucherUsecase
}

func NewVoucherHandler(vouchers *usecase.VoucherUsecase) *VoucherHandler {
	return &VoucherHandler{vouchers: vouchers}
}

func (h *VoucherHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	e.POST("/vouchers/verify", h.verify)
	e.GET("/vouchers/active", h.listActive)

	admin := e.Group("/admin/vouchers")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("", h.adminList)
	admin.GET("/:id", h.adminDetail)
	admin.POST("", h.adminCreate)
	admin.PUT("/:id", h.adminUpdate)
	admin.DELETE("/:id", h.adminDelete)
}

type voucherVerifyRequest struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal"`
}

func (h *VoucherHandler) verify(c echo.Context) error {
	var req voucherVerifyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.vouchers.Verify(c.Request().Context(), usecase.VerifyVoucherInput{
		Code:     req.Code,
		Subtotal: req.Subtotal,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VoucherHandler) listActive(c echo.Context) error {
	out, err := h.vouchers.ListActive(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VoucherHandler) adminList(c echo.Context) error {
	f := repository.VoucherListFilter{
		Page:   queryInt(c, "page"),
		Limit:  queryInt(c, "limit"),
		Search: c.QueryParam("search"),
		Status: c.QueryParam("status"),
	}
	if v := c.QueryParam("is_active"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid is_active"})
		}
		f.IsActive = &b
	}

	out, err := h.vouchers.AdminList(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VoucherHandler) adminDetail(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.vouchers.AdminGet(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

type voucherAdminRequest struct {
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Type             string    `json:"type"`
	Value            int64     `json:"value"`
	MinOrderValue    int64     `json:"min_order_value"`
	MaxDiscountValue *int64    `json:"max_discount_value,omitempty"`
	UsageLimit       int64     `json:"usage_limit"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	IsActive         bool      `json:"is_active"`
}

func (r voucherAdminRequest) toInput() usecase.AdminVoucherInput {
	return usecase.AdminVoucherInput{
		Code:             r.Code,
		Name:             r.Name,
		Description:      r.Description,
		Type:             r.Type,
		Value:            r.Value,
		MinOrderValue:    r.MinOrderValue,
		MaxDiscountValue: r.MaxDiscountValue,
		UsageLimit:       r.UsageLimit,
		StartDate:        r.StartDate,
		EndDate:          r.EndDate,
		IsActive:         r.IsActive,
	}
}

func (h *VoucherHandler) adminCreate(c echo.Context) error {
	var req voucherAdminRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	id, err := h.vouchers.AdminCreate(c.Request().Context(), req.toInput())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]int64{"id": id})
}

func (h *VoucherHandler) adminUpdate(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req voucherAdminRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.vouchers.AdminUpdate(c.Request().Context(), id, req.toInput()); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *VoucherHandler) adminDelete(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := h.vouchers.AdminDelete(c.Request().Context(), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
