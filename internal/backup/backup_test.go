package backup

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/store"
)

type memUploader struct {
	names []string
	data  [][]byte
}

func (m *memUploader) Upload(_ context.Context, name string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.names = append(m.names, name)
	m.data = append(m.data, b)
	return nil
}

func setup(t *testing.T, keep int, up Uploader) (*Service, store.Store) {
	t.Helper()
	s, err := store.OpenBolt(filepath.Join(t.TempDir(), "pos.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewService(s, filepath.Join(t.TempDir(), "backup"), keep, up), s
}

func seed(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, domain.KeyProducts, []domain.Product{{ID: "1", Name: "Yerba", Barcode: "779", Quantity: 3, Price: 1500}}))
	require.NoError(t, s.Set(ctx, domain.KeySales, []domain.Sale{{ID: "s1", Total: decimal.NewFromInt(1500), Method: domain.PaymentCash, Date: "18/10/2026, 10:00:00"}}))
}

func TestExportIsIndented(t *testing.T) {
	svc, s := setup(t, 3, nil)
	seed(t, s)

	data, err := svc.Export(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"products\": ["))
	assert.Contains(t, string(data), "\"sales\": [")
}

func TestImportReplacesBoth(t *testing.T) {
	src, s := setup(t, 3, nil)
	seed(t, s)
	data, err := src.Export(context.Background())
	require.NoError(t, err)

	dst, ds := setup(t, 3, nil)
	require.NoError(t, ds.Set(context.Background(), domain.KeyProducts, []domain.Product{{ID: "x", Name: "Viejo"}}))

	snap, err := dst.Import(context.Background(), data)
	require.NoError(t, err)
	assert.Len(t, snap.Products, 1)

	got, err := dst.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, got.Products, 1)
	assert.Equal(t, "Yerba", got.Products[0].Name)
	require.Len(t, got.Sales, 1)
	assert.Equal(t, domain.ID("s1"), got.Sales[0].ID)
}

func TestImportDropsUnappliedJournal(t *testing.T) {
	svc, s := setup(t, 3, nil)
	seed(t, s)
	ctx := context.Background()
	data, err := svc.Export(ctx)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, domain.KeyStockJournal, []domain.StockJournalEntry{
		{ID: "j1", SaleID: "gone", Status: domain.JournalFailed, RetryCount: 2,
			Items: []domain.StockMovement{{ProductID: "1", Qty: 2}}},
		{ID: "j2", SaleID: "gone2", Status: domain.JournalPending},
		{ID: "j3", SaleID: "s1", Status: domain.JournalApplied},
	}))

	_, err = svc.Import(ctx, data)
	require.NoError(t, err)

	var entries []domain.StockJournalEntry
	found, err := s.Get(ctx, domain.KeyStockJournal, &entries)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.ID("j3"), entries[0].ID)
}

func TestImportRequiresBothKeys(t *testing.T) {
	svc, s := setup(t, 3, nil)
	seed(t, s)
	ctx := context.Background()

	_, err := svc.Import(ctx, []byte(`{"products": []}`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = svc.Import(ctx, []byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	got, err := svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, got.Products, 1)
}

func TestRunWritesPrunesAndUploads(t *testing.T) {
	up := &memUploader{}
	svc, s := setup(t, 2, up)
	seed(t, s)

	days := []time.Time{
		time.Date(2020, 10, 15, 3, 0, 0, 0, time.Local),
		time.Date(2020, 10, 16, 3, 0, 0, 0, time.Local),
		time.Date(2020, 10, 17, 3, 0, 0, 0, time.Local),
	}
	for _, d := range days {
		day := d
		svc.now = func() time.Time { return day }
		require.NoError(t, svc.Run(context.Background()))
		file := filepath.Join(svc.dir, "respaldo_"+day.Format("2-1-2006")+".json")
		require.NoError(t, os.Chtimes(file, day, day))
	}
	svc.now = time.Now
	require.NoError(t, svc.prune())

	files, err := svc.Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "respaldo_17-10-2020.json", filepath.Base(files[0]))
	assert.Equal(t, "respaldo_16-10-2020.json", filepath.Base(files[1]))

	require.Len(t, up.names, 3)
	assert.Equal(t, "respaldo_15-10-2020.json", up.names[0])
	assert.True(t, bytes.Contains(up.data[2], []byte("Yerba")))
}
