package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func int64p(v int64) *int64 { return &v }

func TestDiscountFor_PercentageWithCap(t *testing.T) {
	v := Voucher{Type: VoucherTypePercentage, Value: 10, MaxDiscountValue: int64p(15000)}

	// 10% of 200000 is 20000, capped at 15000.
	assert.Equal(t, int64(15000), v.DiscountFor(200000))

	// Under the cap the raw percentage applies.
	assert.Equal(t, int64(10000), v.DiscountFor(100000))
}

func TestDiscountFor_PercentageNoCap(t *testing.T) {
	v := Voucher{Type: VoucherTypePercentage, Value: 25}
	assert.Equal(t, int64(50000), v.DiscountFor(200000))
}

func TestDiscountFor_FixedAmountCappedAtSubtotal(t *testing.T) {
	v := Voucher{Type: VoucherTypeFixedAmount, Value: 50000}

	assert.Equal(t, int64(50000), v.DiscountFor(200000))
	assert.Equal(t, int64(30000), v.DiscountFor(30000), "discount never exceeds the subtotal")
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	expired := Voucher{IsActive: true, StartDate: now.AddDate(0, -2, 0), EndDate: now.AddDate(0, -1, 0)}
	assert.Equal(t, VoucherStatusExpired, expired.EffectiveStatus(now))

	// Expiry wins over the active flag being off.
	expiredInactive := expired
	expiredInactive.IsActive = false
	assert.Equal(t, VoucherStatusExpired, expiredInactive.EffectiveStatus(now))

	upcoming := Voucher{IsActive: true, StartDate: now.AddDate(0, 1, 0), EndDate: now.AddDate(0, 2, 0)}
	assert.Equal(t, VoucherStatusInactive, upcoming.EffectiveStatus(now))

	open := Voucher{IsActive: true, StartDate: now.AddDate(0, -1, 0), EndDate: now.AddDate(0, 1, 0)}
	assert.Equal(t, VoucherStatusActive, open.EffectiveStatus(now))

	disabled := open
	disabled.IsActive = false
	assert.Equal(t, VoucherStatusInactive, disabled.EffectiveStatus(now))
}
