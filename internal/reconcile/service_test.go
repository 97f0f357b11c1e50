package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunflowerpos/sunflower/internal/catalog"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/events"
	"github.com/sunflowerpos/sunflower/internal/store"
)

// flakyStore fails the next failUpdates calls to Update.
type flakyStore struct {
	store.Store
	mu          sync.Mutex
	failUpdates int
}

func (f *flakyStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	f.mu.Lock()
	if f.failUpdates > 0 {
		f.failUpdates--
		f.mu.Unlock()
		return &store.Error{Op: "commit", Err: errors.New("disk full")}
	}
	f.mu.Unlock()
	return f.Store.Update(ctx, fn)
}

type recordingBus struct {
	mu     sync.Mutex
	topics []string
	args   []interface{}
}

func (b *recordingBus) Publish(topic string, args ...interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.topics = append(b.topics, topic)
	b.args = append(b.args, args...)
}

func setup(t *testing.T, products []domain.Product) (*flakyStore, *recordingBus, *Service) {
	t.Helper()
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return catalog.Save(tx, products)
	}))
	fs := &flakyStore{Store: s}
	bus := &recordingBus{}
	return fs, bus, NewService(fs, bus, 5)
}

func catalogLine(id string, qty int64) domain.CartLine {
	return domain.CartLine{ID: domain.ID(id), ProductID: domain.ID(id), Price: 100, Qty: decimal.NewFromInt(qty), Measure: domain.MeasureUnit}
}

func writeEntry(t *testing.T, s store.Store, entry domain.StockJournalEntry) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return Append(tx, entry)
	}))
}

func quantityOf(t *testing.T, s store.Store, id domain.ID) int {
	t.Helper()
	var products []domain.Product
	_, err := s.Get(context.Background(), domain.KeyProducts, &products)
	require.NoError(t, err)
	for _, p := range products {
		if p.ID == id {
			return p.Quantity
		}
	}
	t.Fatalf("product %s not found", id)
	return 0
}

func TestNewEntrySkipsManualLines(t *testing.T) {
	sale := domain.Sale{ID: "s1", Products: []domain.CartLine{
		catalogLine("p1", 3),
		{ID: "manual-1", Price: 10, Qty: decimal.NewFromInt(2), Measure: domain.MeasureUnit},
	}}
	entry := NewEntry(sale, time.Now())

	assert.Equal(t, domain.JournalPending, entry.Status)
	assert.Equal(t, domain.ID("s1"), entry.SaleID)
	require.Len(t, entry.Items, 1)
	assert.Equal(t, domain.StockMovement{ProductID: "p1", Qty: 3}, entry.Items[0])
}

func TestApplyDecrementsOnce(t *testing.T) {
	s, bus, svc := setup(t, []domain.Product{{ID: "p1", Name: "Yerba", Quantity: 10}})
	entry := NewEntry(domain.Sale{ID: "s1", Products: []domain.CartLine{catalogLine("p1", 3)}}, time.Now())
	writeEntry(t, s, entry)

	ctx := context.Background()
	require.NoError(t, svc.Apply(ctx, entry.ID))
	require.NoError(t, svc.Apply(ctx, entry.ID))

	assert.Equal(t, 7, quantityOf(t, s, "p1"))
	applied, err := svc.Entries(ctx, domain.JournalApplied)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.NotNil(t, applied[0].AppliedAt)
	assert.Empty(t, bus.topics)
}

func TestApplyClampsAndPublishesLowStock(t *testing.T) {
	s, bus, svc := setup(t, []domain.Product{{ID: "p1", Name: "Yerba", Quantity: 2}})
	entry := NewEntry(domain.Sale{ID: "s1", Products: []domain.CartLine{catalogLine("p1", 3)}}, time.Now())
	writeEntry(t, s, entry)

	require.NoError(t, svc.Apply(context.Background(), entry.ID))
	assert.Equal(t, 0, quantityOf(t, s, "p1"))
	require.Equal(t, []string{events.TopicStockLow}, bus.topics)
	low := bus.args[0].(events.StockLow)
	assert.Equal(t, "Yerba", low.Products[0].Name)
}

func TestFailedApplyIsRetried(t *testing.T) {
	s, bus, svc := setup(t, []domain.Product{{ID: "p1", Name: "Yerba", Quantity: 10}})
	entry := NewEntry(domain.Sale{ID: "s1", Products: []domain.CartLine{catalogLine("p1", 4)}}, time.Now())
	writeEntry(t, s, entry)

	ctx := context.Background()
	s.failUpdates = 1
	err := svc.Apply(ctx, entry.ID)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 10, quantityOf(t, s, "p1"))
	assert.Contains(t, bus.topics, events.TopicReconcileFailed)

	failed, err := svc.Entries(ctx, domain.JournalFailed)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].RetryCount)

	applied, err := svc.SyncPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)
	assert.Equal(t, 6, quantityOf(t, s, "p1"))
}

func TestSyncPendingSkipsExhaustedEntries(t *testing.T) {
	s, _, svc := setup(t, []domain.Product{{ID: "p1", Name: "Yerba", Quantity: 10}})
	entry := NewEntry(domain.Sale{ID: "s1", Products: []domain.CartLine{catalogLine("p1", 1)}}, time.Now())
	entry.Status = domain.JournalFailed
	entry.RetryCount = MaxRetries
	writeEntry(t, s, entry)

	applied, err := svc.SyncPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, applied)
	assert.Equal(t, 10, quantityOf(t, s, "p1"))
}

func TestPurgeApplied(t *testing.T) {
	s, _, svc := setup(t, nil)
	old := time.Now().Add(-100 * 24 * time.Hour)
	recent := time.Now()
	writeEntry(t, s, domain.StockJournalEntry{ID: "old", Status: domain.JournalApplied, AppliedAt: &old})
	writeEntry(t, s, domain.StockJournalEntry{ID: "new", Status: domain.JournalApplied, AppliedAt: &recent})
	writeEntry(t, s, domain.StockJournalEntry{ID: "pending", Status: domain.JournalPending})

	removed, err := svc.PurgeApplied(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	all, err := svc.Entries(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
