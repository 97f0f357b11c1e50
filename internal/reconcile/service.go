package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/sunflowerpos/sunflower/internal/catalog"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/events"
	"github.com/sunflowerpos/sunflower/internal/store"
	"github.com/sunflowerpos/sunflower/pkg/common"
	"go.uber.org/zap"
)

// MaxRetries failed apply attempts before an entry is left for manual audit.
const MaxRetries = 5

// Service applies the stock decrement owed by committed sales.
type Service struct {
	store     store.Store
	bus       events.Publisher
	threshold int
	now       func() time.Time
}

func NewService(s store.Store, bus events.Publisher, lowStockThreshold int) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = catalog.DefaultLowStockThreshold
	}
	return &Service{store: s, bus: bus, threshold: lowStockThreshold, now: time.Now}
}

// NewEntry builds the pending entry for the catalog lines of sale. Manual
// lines carry no stock and are skipped.
func NewEntry(sale domain.Sale, now time.Time) domain.StockJournalEntry {
	entry := domain.StockJournalEntry{
		ID:        domain.ID(common.SnowflakeID()),
		SaleID:    sale.ID,
		Items:     []domain.StockMovement{},
		Status:    domain.JournalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	index := map[domain.ID]int{}
	for _, line := range sale.Products {
		if line.IsManual() {
			continue
		}
		qty := int(line.Qty.IntPart())
		if i, ok := index[line.ProductID]; ok {
			entry.Items[i].Qty += qty
			continue
		}
		index[line.ProductID] = len(entry.Items)
		entry.Items = append(entry.Items, domain.StockMovement{ProductID: line.ProductID, Qty: qty})
	}
	return entry
}

func LoadJournal(tx store.Tx) ([]domain.StockJournalEntry, error) {
	entries := []domain.StockJournalEntry{}
	if _, err := tx.Get(domain.KeyStockJournal, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func SaveJournal(tx store.Tx, entries []domain.StockJournalEntry) error {
	if entries == nil {
		entries = []domain.StockJournalEntry{}
	}
	return tx.Set(domain.KeyStockJournal, entries)
}

// Append adds entry to the journal inside tx.
func Append(tx store.Tx, entry domain.StockJournalEntry) error {
	entries, err := LoadJournal(tx)
	if err != nil {
		return err
	}
	return SaveJournal(tx, append(entries, entry))
}

func indexOf(entries []domain.StockJournalEntry, id domain.ID) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}

// Apply decrements stock for the entry and marks it applied. Applying an
// applied entry is a no-op. On failure the entry is marked failed and the
// error is returned.
func (s *Service) Apply(ctx context.Context, id domain.ID) error {
	var low []domain.Product
	err := s.store.Update(ctx, func(tx store.Tx) error {
		entries, err := LoadJournal(tx)
		if err != nil {
			return err
		}
		idx := indexOf(entries, id)
		if idx < 0 {
			return fmt.Errorf("journal entry %s: %w", id, domain.ErrNotFound)
		}
		entry := &entries[idx]
		if entry.Status == domain.JournalApplied {
			return nil
		}

		products, err := catalog.Load(tx)
		if err != nil {
			return err
		}
		low = s.decrement(products, entry)
		if err := catalog.Save(tx, products); err != nil {
			return err
		}

		now := s.now()
		entry.Status = domain.JournalApplied
		entry.ErrorMsg = ""
		entry.AppliedAt = &now
		entry.UpdatedAt = now
		return SaveJournal(tx, entries)
	})
	if err != nil {
		s.markFailed(ctx, id, err)
		return err
	}

	zap.L().Debug("stock journal applied", zap.String("namespace", "reconcile"), zap.String("entry_id", id.String()))
	if len(low) > 0 {
		events.Publish(s.bus, events.TopicStockLow, events.StockLow{Products: low, Threshold: s.threshold})
	}
	return nil
}

func (s *Service) decrement(products []domain.Product, entry *domain.StockJournalEntry) []domain.Product {
	var low []domain.Product
	for _, item := range entry.Items {
		found := false
		for i := range products {
			p := &products[i]
			if p.ID != item.ProductID {
				continue
			}
			found = true
			if p.Quantity < item.Qty {
				zap.L().Warn("stock shortfall, clamping at zero",
					zap.String("namespace", "reconcile"),
					zap.String("product_id", p.ID.String()),
					zap.Int("quantity", p.Quantity),
					zap.Int("sold", item.Qty))
			}
			p.Quantity -= item.Qty
			if p.Quantity < 0 {
				p.Quantity = 0
			}
			if p.Quantity < s.threshold {
				low = append(low, *p)
			}
			break
		}
		if !found {
			zap.L().Warn("sold product no longer in catalog",
				zap.String("namespace", "reconcile"),
				zap.String("product_id", item.ProductID.String()),
				zap.String("sale_id", entry.SaleID.String()))
		}
	}
	return low
}

func (s *Service) markFailed(ctx context.Context, id domain.ID, cause error) {
	var failed domain.StockJournalEntry
	err := s.store.Update(context.WithoutCancel(ctx), func(tx store.Tx) error {
		entries, err := LoadJournal(tx)
		if err != nil {
			return err
		}
		idx := indexOf(entries, id)
		if idx < 0 {
			return nil
		}
		entries[idx].Status = domain.JournalFailed
		entries[idx].RetryCount++
		entries[idx].ErrorMsg = cause.Error()
		entries[idx].UpdatedAt = s.now()
		failed = entries[idx]
		return SaveJournal(tx, entries)
	})
	if err != nil {
		zap.L().Error("failed to record stock journal failure",
			zap.String("namespace", "reconcile"), zap.String("entry_id", id.String()), zap.Error(err))
		return
	}
	if failed.ID == "" {
		return
	}
	zap.L().Error("stock journal apply failed",
		zap.String("namespace", "reconcile"),
		zap.String("entry_id", id.String()),
		zap.String("sale_id", failed.SaleID.String()),
		zap.Int("retry_count", failed.RetryCount),
		zap.Error(cause))
	events.Publish(s.bus, events.TopicReconcileFailed, events.ReconcileFailed{Entry: failed, Err: cause.Error()})
}

// Entries lists journal entries, filtered by status when status is not empty.
func (s *Service) Entries(ctx context.Context, status string) ([]domain.StockJournalEntry, error) {
	var entries []domain.StockJournalEntry
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		entries, err = LoadJournal(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if status == "" {
		return entries, nil
	}
	result := make([]domain.StockJournalEntry, 0)
	for _, e := range entries {
		if e.Status == status {
			result = append(result, e)
		}
	}
	return result, nil
}

// SyncPending applies pending entries and retries failed ones under
// MaxRetries. It returns how many entries were applied.
func (s *Service) SyncPending(ctx context.Context) (int, error) {
	entries, err := s.Entries(ctx, "")
	if err != nil {
		return 0, err
	}
	applied := 0
	for _, e := range entries {
		retry := e.Status == domain.JournalFailed && e.RetryCount < MaxRetries
		if e.Status != domain.JournalPending && !retry {
			continue
		}
		if err := s.Apply(ctx, e.ID); err != nil {
			continue
		}
		applied++
	}
	if applied > 0 {
		zap.L().Info("stock journal synced", zap.String("namespace", "reconcile"), zap.Int("applied", applied))
	}
	return applied, nil
}

// PurgeApplied drops applied entries older than retention.
func (s *Service) PurgeApplied(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := s.now().Add(-retention)
	removed := 0
	err := s.store.Update(ctx, func(tx store.Tx) error {
		entries, err := LoadJournal(tx)
		if err != nil {
			return err
		}
		kept := entries[:0]
		for _, e := range entries {
			if e.Status == domain.JournalApplied && e.AppliedAt != nil && e.AppliedAt.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if removed == 0 {
			return nil
		}
		return SaveJournal(tx, kept)
	})
	return removed, err
}
