package events

import (
	EventBus "github.com/asaskevich/EventBus"
	"github.com/sunflowerpos/sunflower/internal/domain"
)

const (
	TopicSaleCompleted   = "sale.completed"
	TopicStockLow        = "stock.low"
	TopicReconcileFailed = "stock.reconcile_failed"
)

// SaleCompleted is published once a sale has been committed.
type SaleCompleted struct {
	Sale         domain.Sale
	StockPending bool
}

// StockLow lists products that fell under the threshold after a sale.
type StockLow struct {
	Products  []domain.Product
	Threshold int
}

// ReconcileFailed is published when a journal entry could not be applied.
type ReconcileFailed struct {
	Entry domain.StockJournalEntry
	Err   string
}

type Bus = EventBus.Bus

// Publisher is the publishing half of Bus.
type Publisher interface {
	Publish(topic string, args ...interface{})
}

func New() Bus {
	return EventBus.New()
}

// Publish is a nil-safe publish.
func Publish(p Publisher, topic string, arg interface{}) {
	if p == nil {
		return
	}
	p.Publish(topic, arg)
}
