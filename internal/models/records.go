package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts cross the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Merchant is immutable master data referenced by orders and payments.
type Merchant struct {
	ID           int64     `json:"id"`
	MerchantID   string    `json:"merchant_id"`
	MerchantName string    `json:"merchant_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Order is an expected transaction that a payment should match against.
// MerchantID is the internal merchant reference, not the business id.
type Order struct {
	ID              int64           `json:"id"`
	MerchantID      int64           `json:"merchant_id"`
	MerchantOrderID string          `json:"merchant_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description,omitempty"`
	OrderDate       Date            `json:"order_date"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Payment is an actual transaction received from a processor.
// MerchantOrderID references the order it is expected to settle.
type Payment struct {
	ID              int64           `json:"id"`
	MerchantID      int64           `json:"merchant_id"`
	MerchantOrderID string          `json:"merchant_order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description,omitempty"`
	PaymentDate     Date            `json:"payment_date"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
