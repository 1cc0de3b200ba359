package models

// CreateMerchantRequest is the payload for POST /merchants.
type CreateMerchantRequest struct {
	MerchantID   string `json:"merchant_id" binding:"required,min=1,max=50"`
	MerchantName string `json:"merchant_name" binding:"required,min=1,max=100"`
}

// CreateOrderRequest is the payload for POST /orders. MerchantID is the
// merchant business identifier, resolved to an internal reference on create.
type CreateOrderRequest struct {
	MerchantID      string  `json:"merchant_id" binding:"required,min=1,max=50"`
	MerchantOrderID string  `json:"merchant_order_id" binding:"required,min=1,max=100"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	Currency        string  `json:"currency" binding:"required,len=3"`
	Description     string  `json:"description" binding:"omitempty,max=255"`
	OrderDate       string  `json:"order_date" binding:"required,datetime=2006-01-02"`
	Status          string  `json:"status" binding:"omitempty,oneof=pending completed failed reconciled"`
}

// CreatePaymentRequest is the payload for POST /payments.
type CreatePaymentRequest struct {
	MerchantID      string  `json:"merchant_id" binding:"required,min=1,max=50"`
	MerchantOrderID string  `json:"merchant_order_id" binding:"required,min=1,max=100"`
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	Currency        string  `json:"currency" binding:"required,len=3"`
	Description     string  `json:"description" binding:"omitempty,max=255"`
	PaymentDate     string  `json:"payment_date" binding:"required,datetime=2006-01-02"`
	Status          string  `json:"status" binding:"omitempty,oneof=pending completed failed reconciled"`
}
