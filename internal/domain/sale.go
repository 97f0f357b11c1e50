package domain

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "Efectivo"
	PaymentTransfer PaymentMethod = "Transferencia"
	PaymentQR       PaymentMethod = "QR"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentTransfer, PaymentQR:
		return true
	}
	return false
}

// SaleDateLayout renders sale dates as "DD/MM/YYYY, HH:MM:SS".
const SaleDateLayout = "02/01/2006, 15:04:05"

// dayKeyLayout accepts one or two digit day and month.
const dayKeyLayout = "2/1/2006"

// Sale is an immutable record of a completed checkout.
type Sale struct {
	ID       ID               `json:"id"`
	Products []CartLine       `json:"products"`
	Total    decimal.Decimal  `json:"total"`
	Method   PaymentMethod    `json:"method"`
	Date     string           `json:"date"`
	Paid     *decimal.Decimal `json:"paid,omitempty"`
	Change   *decimal.Decimal `json:"change,omitempty"`
}

// DayKey is the date portion of the sale date, before the first comma.
func (s Sale) DayKey() string {
	return DayKeyOf(s.Date)
}

// TimeOfDay is the portion after the first comma.
func (s Sale) TimeOfDay() string {
	if i := strings.Index(s.Date, ","); i >= 0 {
		return strings.TrimSpace(s.Date[i+1:])
	}
	return ""
}

func DayKeyOf(date string) string {
	if i := strings.Index(date, ","); i >= 0 {
		return strings.TrimSpace(date[:i])
	}
	return strings.TrimSpace(date)
}

func FormatSaleDate(t time.Time) string {
	return t.Format(SaleDateLayout)
}

// ParseDayKey parses a day key written by this application, falling back to
// dateparse for keys written under other locales.
func ParseDayKey(key string) (time.Time, bool) {
	if t, err := time.ParseInLocation(dayKeyLayout, key, time.Local); err == nil {
		return t, true
	}
	if t, err := dateparse.ParseLocal(key); err == nil {
		return t, true
	}
	return time.Time{}, false
}
