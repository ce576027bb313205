package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

// Voucher rejection reasons surfaced to the client. Checked in a fixed order;
// the first failing rule wins.
const (
	voucherReasonNotFound    = "voucher not found"
	voucherReasonInactive    = "voucher is not active"
	voucherReasonExpired     = "voucher has expired"
	voucherReasonNotStarted  = "voucher is not yet valid"
	voucherReasonUsedUp      = "voucher usage limit reached"
	voucherReasonMinSubtotal = "order does not meet the minimum value"
)

// checkVoucher runs the redemption rule chain and returns the discount, or a
// non-empty reason when any rule fails. Shared by verification and order
// creation so both paths agree.
func checkVoucher(v model.Voucher, subtotal int64, now time.Time) (int64, string) {
	if !v.IsActive {
		return 0, voucherReasonInactive
	}
	if !now.Before(v.EndDate) {
		return 0, voucherReasonExpired
	}
	if now.Before(v.StartDate) {
		return 0, voucherReasonNotStarted
	}
	if v.UsageLimit > 0 && v.UsageCount >= v.UsageLimit {
		return 0, voucherReasonUsedUp
	}
	if subtotal < v.MinOrderValue {
		return 0, voucherReasonMinSubtotal
	}
	return v.DiscountFor(subtotal), ""
}

type VoucherUsecase struct {
	vouchers repo.VoucherRepository
	now      func() time.Time
}

func NewVoucherUsecase(vouchers repo.VoucherRepository) *VoucherUsecase {
	return &VoucherUsecase{vouchers: vouchers, now: time.Now}
}

type VerifyVoucherInput struct {
	Code     string
	Subtotal int64
}

type AppliedVoucher struct {
	ID             int64             `json:"id"`
	Code           string            `json:"code"`
	Name           string            `json:"name"`
	Type           model.VoucherType `json:"type"`
	Value          int64             `json:"value"`
	DiscountAmount int64             `json:"discount_amount"`
}

type VerifyVoucherOutput struct {
	Valid          bool            `json:"valid"`
	Reason         string          `json:"reason,omitempty"`
	DiscountAmount int64           `json:"discount_amount"`
	FinalAmount    int64           `json:"final_amount"`
	Voucher        *AppliedVoucher `json:"voucher,omitempty"`
}

// Verify is the checkout preview: it reports whether the code would apply to
// the given subtotal and what the discounted total would be. It never mutates
// the voucher; only a placed order consumes usage.
func (u *VoucherUsecase) Verify(ctx context.Context, in VerifyVoucherInput) (VerifyVoucherOutput, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return VerifyVoucherOutput{}, NewHTTPError(http.StatusBadRequest, "code required")
	}
	if in.Subtotal < 0 {
		return VerifyVoucherOutput{}, NewHTTPError(http.StatusBadRequest, "subtotal must be >= 0")
	}

	v, err := u.vouchers.FindByCode(ctx, code)
	if err == repo.ErrNotFound {
		return VerifyVoucherOutput{Valid: false, Reason: voucherReasonNotFound, FinalAmount: in.Subtotal}, nil
	}
	if err != nil {
		return VerifyVoucherOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	discount, reason := checkVoucher(v, in.Subtotal, u.now())
	if reason != "" {
		return VerifyVoucherOutput{Valid: false, Reason: reason, FinalAmount: in.Subtotal}, nil
	}

	final := in.Subtotal - discount
	if final < 0 {
		final = 0
	}
	return VerifyVoucherOutput{
		Valid:          true,
		DiscountAmount: discount,
		FinalAmount:    final,
		Voucher: &AppliedVoucher{
			ID:             v.ID,
			Code:           v.Code,
			Name:           v.Name,
			Type:           v.Type,
			Value:          v.Value,
			DiscountAmount: discount,
		},
	}, nil
}

// ListActive returns vouchers currently open for redemption, for the
// storefront banner.
func (u *VoucherUsecase) ListActive(ctx context.Context) ([]model.Voucher, error) {
	items, err := u.vouchers.ListActive(ctx, u.now())
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

type AdminVoucherInput struct {
	Code             string
	Name             string
	Description      string
	Type             string
	Value            int64
	MinOrderValue    int64
	MaxDiscountValue *int64
	UsageLimit       int64
	StartDate        time.Time
	EndDate          time.Time
	IsActive         bool
}

func (u *VoucherUsecase) validateAdminInput(in AdminVoucherInput) error {
	if strings.TrimSpace(in.Code) == "" {
		return NewHTTPError(http.StatusBadRequest, "code required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	switch model.VoucherType(in.Type) {
	case model.VoucherTypePercentage:
		if in.Value <= 0 || in.Value > 100 {
			return NewHTTPError(http.StatusBadRequest, "percentage value must be in 1..100")
		}
	case model.VoucherTypeFixedAmount:
		if in.Value <= 0 {
			return NewHTTPError(http.StatusBadRequest, "value must be > 0")
		}
	default:
		return NewHTTPError(http.StatusBadRequest, "invalid type")
	}
	if in.MinOrderValue < 0 {
		return NewHTTPError(http.StatusBadRequest, "min_order_value must be >= 0")
	}
	if in.MaxDiscountValue != nil && *in.MaxDiscountValue <= 0 {
		return NewHTTPError(http.StatusBadRequest, "max_discount_value must be > 0")
	}
	if in.UsageLimit < 0 {
		return NewHTTPError(http.StatusBadRequest, "usage_limit must be >= 0")
	}
	if !in.EndDate.After(in.StartDate) {
		return NewHTTPError(http.StatusBadRequest, "end_date must be after start_date")
	}
	return nil
}

func (u *VoucherUsecase) AdminCreate(ctx context.Context, in AdminVoucherInput) (int64, error) {
	if err := u.validateAdminInput(in); err != nil {
		return 0, err
	}

	now := u.now()
	v := model.Voucher{
		Code:             strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:             strings.TrimSpace(in.Name),
		Description:      in.Description,
		Type:             model.VoucherType(in.Type),
		Value:            in.Value,
		MinOrderValue:    in.MinOrderValue,
		MaxDiscountValue: in.MaxDiscountValue,
		UsageLimit:       in.UsageLimit,
		StartDate:        in.StartDate,
		EndDate:          in.EndDate,
		IsActive:         in.IsActive,
	}
	v.Status = v.EffectiveStatus(now)

	id, err := u.vouchers.Create(ctx, v)
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return id, nil
}

func (u *VoucherUsecase) AdminUpdate(ctx context.Context, id int64, in AdminVoucherInput) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid voucher id")
	}
	if err := u.validateAdminInput(in); err != nil {
		return err
	}

	existing, err := u.vouchers.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}

	existing.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	existing.Name = strings.TrimSpace(in.Name)
	existing.Description = in.Description
	existing.Type = model.VoucherType(in.Type)
	existing.Value = in.Value
	existing.MinOrderValue = in.MinOrderValue
	existing.MaxDiscountValue = in.MaxDiscountValue
	existing.UsageLimit = in.UsageLimit
	existing.StartDate = in.StartDate
	existing.EndDate = in.EndDate
	existing.IsActive = in.IsActive
	existing.Status = existing.EffectiveStatus(u.now())

	if err := u.vouchers.Update(ctx, existing); err != nil {
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *VoucherUsecase) AdminDelete(ctx context.Context, id int64) error {
	if id <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid voucher id")
	}
	err := u.vouchers.Delete(ctx, id)
	if err == repo.ErrNotFound {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *VoucherUsecase) AdminGet(ctx context.Context, id int64) (model.Voucher, error) {
	if id <= 0 {
		return model.Voucher{}, NewHTTPError(http.StatusBadRequest, "invalid voucher id")
	}
	v, err := u.vouchers.FindByID(ctx, id)
	if err == repo.ErrNotFound {
		return model.Voucher{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Voucher{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return v, nil
}

type VoucherListOutput struct {
	Items []model.Voucher `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *VoucherUsecase) AdminList(ctx context.Context, f repo.VoucherListFilter) (VoucherListOutput, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 10
	}

	items, total, err := u.vouchers.List(ctx, f)
	if err != nil {
		return VoucherListOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return VoucherListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}
