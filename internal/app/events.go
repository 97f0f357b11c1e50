package app

import (
	"github.com/sunflowerpos/sunflower/internal/events"
	"github.com/sunflowerpos/sunflower/pkg/metrics"
	"go.uber.org/zap"
)

func (a *Application) subscribe() error {
	handlers := map[string]interface{}{
		events.TopicSaleCompleted:   a.onSaleCompleted,
		events.TopicStockLow:        a.onStockLow,
		events.TopicReconcileFailed: a.onReconcileFailed,
	}
	for topic, fn := range handlers {
		if err := a.bus.SubscribeAsync(topic, fn, false); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) onSaleCompleted(e events.SaleCompleted) {
	metrics.AddSample(metrics.SaleTotal, e.Sale.Total.InexactFloat64())
	metrics.SetGauge(metrics.SaleCount, 1)
	if e.StockPending {
		zap.L().Warn("sale committed with pending stock",
			zap.String("namespace", "events"),
			zap.String("sale_id", string(e.Sale.ID)))
	}
}

func (a *Application) onStockLow(e events.StockLow) {
	metrics.SetGauge(metrics.LowStock, int64(len(e.Products)))
	names := make([]string, 0, len(e.Products))
	for _, p := range e.Products {
		names = append(names, p.Name)
	}
	zap.L().Warn("low stock",
		zap.String("namespace", "events"),
		zap.Int("threshold", e.Threshold),
		zap.Strings("products", names))
}

func (a *Application) onReconcileFailed(e events.ReconcileFailed) {
	metrics.SetGauge(metrics.ReconcileFail, 1)
	zap.L().Error("stock reconciliation failed",
		zap.String("namespace", "events"),
		zap.String("entry_id", string(e.Entry.ID)),
		zap.Int("retry_count", e.Entry.RetryCount),
		zap.String("error", e.Err))
}
