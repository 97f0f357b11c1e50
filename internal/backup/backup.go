package backup

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sunflowerpos/sunflower/internal/catalog"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/export"
	"github.com/sunflowerpos/sunflower/internal/reconcile"
	"github.com/sunflowerpos/sunflower/internal/report"
	"github.com/sunflowerpos/sunflower/internal/store"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const filePrefix = "respaldo_"

// Snapshot is the portable backup document.
type Snapshot struct {
	Products []domain.Product `json:"products"`
	Sales    []domain.Sale    `json:"sales"`
}

type Service struct {
	store    store.Store
	dir      string
	keep     int
	uploader Uploader
	now      func() time.Time
}

// NewService writes nightly backups to dir, keeping the newest keep files.
// uploader may be nil.
func NewService(s store.Store, dir string, keep int, uploader Uploader) *Service {
	return &Service{store: s, dir: dir, keep: keep, uploader: uploader, now: time.Now}
}

func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{Products: []domain.Product{}, Sales: []domain.Sale{}}
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		if snap.Products, err = catalog.Load(tx); err != nil {
			return err
		}
		snap.Sales, err = report.LoadSales(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Export renders the products and sales as indented JSON.
func (s *Service) Export(ctx context.Context) ([]byte, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(snap, "", "  ")
}

// Import replaces products and sales with the contents of data. Both keys
// must be present; nothing is written otherwise. Journal entries not yet
// applied are dropped in the same transaction: the restored quantities
// already stand for the restored sales.
func (s *Service) Import(ctx context.Context, data []byte) (*Snapshot, error) {
	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: backup is not valid JSON", domain.ErrInvalidInput)
	}
	if _, ok := raw[domain.KeyProducts]; !ok {
		return nil, fmt.Errorf("%w: backup has no products", domain.ErrInvalidInput)
	}
	if _, ok := raw[domain.KeySales]; !ok {
		return nil, fmt.Errorf("%w: backup has no sales", domain.ErrInvalidInput)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if snap.Products == nil {
		snap.Products = []domain.Product{}
	}
	if snap.Sales == nil {
		snap.Sales = []domain.Sale{}
	}

	dropped := 0
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if err := catalog.Save(tx, snap.Products); err != nil {
			return err
		}
		if err := report.SaveSales(tx, snap.Sales); err != nil {
			return err
		}
		entries, err := reconcile.LoadJournal(tx)
		if err != nil {
			return err
		}
		kept := make([]domain.StockJournalEntry, 0, len(entries))
		for _, e := range entries {
			if e.Status == domain.JournalApplied {
				kept = append(kept, e)
			}
		}
		dropped = len(entries) - len(kept)
		return reconcile.SaveJournal(tx, kept)
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("backup restored",
		zap.String("namespace", "backup"),
		zap.Int("products", len(snap.Products)),
		zap.Int("sales", len(snap.Sales)),
		zap.Int("journal_dropped", dropped))
	return &snap, nil
}

// WriteFile stores today's backup in the backup directory and prunes old
// files. It returns the path written.
func (s *Service) WriteFile(ctx context.Context) (string, error) {
	data, err := s.Export(ctx)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}
	file := filepath.Join(s.dir, export.BackupName(s.now()))
	tmp := file + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, file); err != nil {
		return "", err
	}
	if err := s.prune(); err != nil {
		zap.L().Warn("prune backups failed", zap.String("namespace", "backup"), zap.Error(err))
	}
	return file, nil
}

// Files lists stored backups, newest first.
func (s *Service) Files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	type item struct {
		name string
		mod  time.Time
	}
	var items []item
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), filePrefix) || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{name: e.Name(), mod: info.ModTime()})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].mod.Equal(items[j].mod) {
			return items[i].name > items[j].name
		}
		return items[i].mod.After(items[j].mod)
	})
	names := make([]string, 0, len(items))
	for _, it := range items {
		names = append(names, filepath.Join(s.dir, it.name))
	}
	return names, nil
}

func (s *Service) prune() error {
	if s.keep <= 0 {
		return nil
	}
	files, err := s.Files()
	if err != nil {
		return err
	}
	for _, f := range files[min(len(files), s.keep):] {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}

// Run writes the nightly file and ships it off-site when an uploader is set.
func (s *Service) Run(ctx context.Context) error {
	file, err := s.WriteFile(ctx)
	if err != nil {
		return err
	}
	zap.L().Info("backup written", zap.String("namespace", "backup"), zap.String("file", file))
	if s.uploader == nil {
		return nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	if err := s.uploader.Upload(ctx, filepath.Base(file), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}
	return nil
}
