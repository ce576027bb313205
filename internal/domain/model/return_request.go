package model

import (
	"time"

	"gorm.io/datatypes"
)

type ReturnRequestType string

const (
	ReturnRequestTypeReturn   ReturnRequestType = "RETURN"
	ReturnRequestTypeExchange ReturnRequestType = "EXCHANGE"
)

func (t ReturnRequestType) Valid() bool {
	return t == ReturnRequestTypeReturn || t == ReturnRequestTypeExchange
}

type ReturnRequestStatus string

const (
	ReturnRequestStatusPending   ReturnRequestStatus = "PENDING"
	ReturnRequestStatusApproved  ReturnRequestStatus = "APPROVED"
	ReturnRequestStatusRejected  ReturnRequestStatus = "REJECTED"
	ReturnRequestStatusCompleted ReturnRequestStatus = "COMPLETED"
)

var returnRequestTransitions = map[ReturnRequestStatus][]ReturnRequestStatus{
	ReturnRequestStatusPending:  {ReturnRequestStatusApproved, ReturnRequestStatusRejected},
	ReturnRequestStatusApproved: {ReturnRequestStatusCompleted},
}

func (s ReturnRequestStatus) CanTransition(to ReturnRequestStatus) bool {
	for _, next := range returnRequestTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// RefundBankInfo is required for RETURN requests so the refund has somewhere
// to go. Exchanges ship a replacement instead.
type RefundBankInfo struct {
	BankName        string `gorm:"type:varchar(128)" json:"bank_name,omitempty"`
	BankAccount     string `gorm:"type:varchar(64)" json:"bank_account,omitempty"`
	BankAccountName string `gorm:"type:varchar(128)" json:"bank_account_name,omitempty"`
}

type ReturnRequestItem struct {
	ID              int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ReturnRequestID int64  `gorm:"not null;index" json:"return_request_id"`
	ProductID       int64  `gorm:"not null" json:"product_id"`
	VariantID       *int64 `json:"variant_id,omitempty"`
	Quantity        int64  `gorm:"not null" json:"quantity"`
}

type ReturnRequest struct {
	ID              int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         int64               `gorm:"not null;index" json:"order_id"`
	UserID          int64               `gorm:"not null;index" json:"user_id"`
	Email           string              `gorm:"type:varchar(255);not null" json:"email"`
	Type            ReturnRequestType   `gorm:"type:varchar(20);not null" json:"type"`
	Reason          string              `gorm:"type:varchar(255);not null" json:"reason"`
	Description     string              `gorm:"type:text;not null" json:"description"`
	Status          ReturnRequestStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	Items           []ReturnRequestItem `gorm:"foreignKey:ReturnRequestID" json:"items"`
	ExchangeOrderID *int64              `json:"exchange_order_id,omitempty"`
	Images          datatypes.JSON      `json:"images,omitempty"`
	RefundInfo      RefundBankInfo      `gorm:"embedded;embeddedPrefix:refund_" json:"refund_info,omitempty"`
	AdminNote       string              `gorm:"type:varchar(500)" json:"admin_note,omitempty"`
	CreatedAt       time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (ReturnRequest) TableName() string     { return "return_requests" }
func (ReturnRequestItem) TableName() string { return "return_request_items" }
