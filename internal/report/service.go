package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/btree"
	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/store"
	"go.uber.org/zap"
)

// Ticket is one sale as shown in a day report.
type Ticket struct {
	ID     domain.ID            `json:"id"`
	Time   string               `json:"time"`
	Method domain.PaymentMethod `json:"method"`
	Total  decimal.Decimal      `json:"total"`
	Lines  []domain.CartLine    `json:"lines"`
}

// DaySummary aggregates the sales of one day-key.
type DaySummary struct {
	Date     string                                   `json:"date"`
	Tickets  []Ticket                                 `json:"tickets"`
	Count    int                                      `json:"count"`
	Total    decimal.Decimal                          `json:"total"`
	Average  float64                                  `json:"average"`
	Largest  float64                                  `json:"largest"`
	ByMethod map[domain.PaymentMethod]decimal.Decimal `json:"by_method"`

	day    time.Time
	parsed bool
	seen   int
}

func LoadSales(tx store.Tx) ([]domain.Sale, error) {
	sales := []domain.Sale{}
	if _, err := tx.Get(domain.KeySales, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

func SaveSales(tx store.Tx, sales []domain.Sale) error {
	if sales == nil {
		sales = []domain.Sale{}
	}
	return tx.Set(domain.KeySales, sales)
}

// AppendSale adds sale to the sales collection inside tx.
func AppendSale(tx store.Tx, sale domain.Sale) error {
	sales, err := LoadSales(tx)
	if err != nil {
		return err
	}
	return SaveSales(tx, append(sales, sale))
}

// newerFirst orders parsed days newest first, then unparsed keys by first
// appearance.
func newerFirst(a, b *DaySummary) bool {
	switch {
	case a.parsed && b.parsed:
		if a.day.Equal(b.day) {
			return a.seen < b.seen
		}
		return a.day.After(b.day)
	case a.parsed != b.parsed:
		return a.parsed
	default:
		return a.seen < b.seen
	}
}

// GroupByDay buckets sales by day-key.
func GroupByDay(sales []domain.Sale) []DaySummary {
	buckets := map[string]*DaySummary{}
	tree := btree.NewG[*DaySummary](8, newerFirst)
	for _, sale := range sales {
		key := sale.DayKey()
		d, ok := buckets[key]
		if !ok {
			d = &DaySummary{Date: key, ByMethod: map[domain.PaymentMethod]decimal.Decimal{}, seen: len(buckets)}
			d.day, d.parsed = domain.ParseDayKey(key)
			buckets[key] = d
			tree.ReplaceOrInsert(d)
		}
		d.Tickets = append(d.Tickets, Ticket{
			ID:     sale.ID,
			Time:   sale.TimeOfDay(),
			Method: sale.Method,
			Total:  sale.Total,
			Lines:  sale.Products,
		})
		d.Count++
		d.Total = d.Total.Add(sale.Total)
		d.ByMethod[sale.Method] = d.ByMethod[sale.Method].Add(sale.Total)
	}

	result := make([]DaySummary, 0, len(buckets))
	tree.Ascend(func(d *DaySummary) bool {
		fillStats(d)
		result = append(result, *d)
		return true
	})
	return result
}

func fillStats(d *DaySummary) {
	data := make(stats.Float64Data, 0, len(d.Tickets))
	for _, t := range d.Tickets {
		data = append(data, t.Total.InexactFloat64())
	}
	if mean, err := stats.Mean(data); err == nil {
		d.Average, _ = stats.Round(mean, 2)
	}
	if largest, err := stats.Max(data); err == nil {
		d.Largest = largest
	}
}

// Service reads and prunes the sales collection.
type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

func (s *Service) Sales(ctx context.Context) (sales []domain.Sale, err error) {
	err = s.store.View(ctx, func(tx store.Tx) error {
		sales, err = LoadSales(tx)
		return err
	})
	return sales, err
}

func (s *Service) Days(ctx context.Context) ([]DaySummary, error) {
	sales, err := s.Sales(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByDay(sales), nil
}

func (s *Service) Day(ctx context.Context, dayKey string) (*DaySummary, error) {
	days, err := s.Days(ctx)
	if err != nil {
		return nil, err
	}
	for i := range days {
		if days[i].Date == dayKey {
			return &days[i], nil
		}
	}
	return nil, fmt.Errorf("day %s: %w", dayKey, domain.ErrNotFound)
}

// DeleteDay removes every sale of dayKey and returns how many were removed.
func (s *Service) DeleteDay(ctx context.Context, dayKey string) (int, error) {
	removed := 0
	err := s.store.Update(ctx, func(tx store.Tx) error {
		sales, err := LoadSales(tx)
		if err != nil {
			return err
		}
		kept := sales[:0]
		for _, sale := range sales {
			if sale.DayKey() == dayKey {
				removed++
				continue
			}
			kept = append(kept, sale)
		}
		if removed == 0 {
			return nil
		}
		return SaveSales(tx, kept)
	})
	if err != nil {
		return 0, err
	}
	zap.L().Info("sales day deleted", zap.String("namespace", "report"),
		zap.String("date", dayKey), zap.Int("removed", removed))
	return removed, nil
}
