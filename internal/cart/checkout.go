package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/events"
	"github.com/sunflowerpos/sunflower/internal/reconcile"
	"github.com/sunflowerpos/sunflower/internal/report"
	"github.com/sunflowerpos/sunflower/internal/store"
	"github.com/sunflowerpos/sunflower/pkg/common"
	"go.uber.org/zap"
)

// Receipt is the outcome of a committed checkout. StockPending is set when
// the stock decrement could not be applied yet; the reconciliation job
// retries it.
type Receipt struct {
	Sale         domain.Sale     `json:"sale"`
	Change       decimal.Decimal `json:"change"`
	StockPending bool            `json:"stock_pending"`
}

// Checkout turns the cart into a Sale.
//
// The sale, its stock journal entry and the removal of the persisted cart are
// written in one transaction; that is the commit point. The stock decrement
// is applied afterwards from the journal. If it fails the sale still stands
// and the entry stays in the journal for the reconciler.
func (e *Engine) Checkout(ctx context.Context, method domain.PaymentMethod, paid *decimal.Decimal) (*Receipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if !method.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidInput, method)
	}

	now := e.now()
	lines := cloneLines(e.lines)
	totals := domain.ComputeTotals(lines, method, paid)
	sale := domain.Sale{
		ID:       domain.ID(common.SnowflakeID()),
		Products: lines,
		Total:    totals.Total,
		Method:   method,
		Date:     domain.FormatSaleDate(now),
	}
	if method == domain.PaymentCash && paid != nil {
		p, c := *paid, totals.Change
		sale.Paid, sale.Change = &p, &c
	}
	entry := reconcile.NewEntry(sale, now)

	err := e.store.Update(ctx, func(tx store.Tx) error {
		if err := report.AppendSale(tx, sale); err != nil {
			return err
		}
		if len(entry.Items) > 0 {
			if err := reconcile.Append(tx, entry); err != nil {
				return err
			}
		}
		return tx.Delete(domain.KeyCurrentCart)
	})
	if err != nil {
		return nil, fmt.Errorf("checkout: %w", err)
	}
	e.lines = []domain.CartLine{}

	receipt := &Receipt{Sale: sale, Change: totals.Change}
	if len(entry.Items) > 0 {
		// committed: the decrement is not cancelable
		if err := e.stock.Apply(context.WithoutCancel(ctx), entry.ID); err != nil {
			receipt.StockPending = true
			zap.L().Error("sale committed but stock decrement is pending",
				zap.String("namespace", "cart"),
				zap.String("sale_id", sale.ID.String()),
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err))
		}
	}

	zap.L().Info("sale completed",
		zap.String("namespace", "cart"),
		zap.String("sale_id", sale.ID.String()),
		zap.String("method", string(method)),
		zap.String("total", sale.Total.String()),
		zap.Int("lines", len(lines)))
	events.Publish(e.bus, events.TopicSaleCompleted, events.SaleCompleted{Sale: sale, StockPending: receipt.StockPending})
	return receipt, nil
}
