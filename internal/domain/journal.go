package domain

import "time"

const (
	JournalPending = "pending"
	JournalApplied = "applied"
	JournalFailed  = "failed"
)

// StockMovement is the quantity of one catalog product sold.
type StockMovement struct {
	ProductID ID  `json:"product_id"`
	Qty       int `json:"qty"`
}

// StockJournalEntry records the stock decrement owed by a committed sale.
// It is written together with the sale and applied afterwards.
type StockJournalEntry struct {
	ID         ID              `json:"id"`
	SaleID     ID              `json:"sale_id"`
	Items      []StockMovement `json:"items"`
	Status     string          `json:"status"`      // pending, applied, failed
	RetryCount int             `json:"retry_count"` // failed apply attempts
	ErrorMsg   string          `json:"error_msg,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	AppliedAt  *time.Time      `json:"applied_at,omitempty"`
}
