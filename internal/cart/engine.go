package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/events"
	"github.com/sunflowerpos/sunflower/internal/store"
	"github.com/sunflowerpos/sunflower/pkg/common"
	"go.uber.org/zap"
)

// Catalog resolves scanned codes to products.
type Catalog interface {
	FindByBarcode(ctx context.Context, code string) (*domain.Product, error)
}

// StockApplier applies the stock journal entry written at checkout.
type StockApplier interface {
	Apply(ctx context.Context, entryID domain.ID) error
}

// Engine holds the sale in progress. Every mutation is persisted under
// current_cart before it becomes visible.
type Engine struct {
	mu      sync.Mutex
	store   store.Store
	catalog Catalog
	stock   StockApplier
	bus     events.Publisher
	now     func() time.Time
	lines   []domain.CartLine
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithPublisher(p events.Publisher) Option {
	return func(e *Engine) { e.bus = p }
}

// NewEngine restores the persisted cart, if any.
func NewEngine(ctx context.Context, s store.Store, catalog Catalog, stock StockApplier, opts ...Option) (*Engine, error) {
	e := &Engine{
		store:   s,
		catalog: catalog,
		stock:   stock,
		now:     time.Now,
		lines:   []domain.CartLine{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := s.Get(ctx, domain.KeyCurrentCart, &e.lines); err != nil {
		return nil, fmt.Errorf("restore cart: %w", err)
	}
	if len(e.lines) > 0 {
		zap.L().Info("cart restored", zap.String("namespace", "cart"), zap.Int("lines", len(e.lines)))
	}
	return e, nil
}

// Lines returns a copy of the current lines.
func (e *Engine) Lines() []domain.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneLines(e.lines)
}

func (e *Engine) Totals(method domain.PaymentMethod, paid *decimal.Decimal) domain.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.ComputeTotals(e.lines, method, paid)
}

func cloneLines(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, len(lines))
	copy(out, lines)
	return out
}

// commit persists next and makes it the current cart. Callers hold mu.
func (e *Engine) commit(ctx context.Context, next []domain.CartLine) error {
	if err := e.store.Set(ctx, domain.KeyCurrentCart, next); err != nil {
		return err
	}
	e.lines = next
	return nil
}

// AddByIdentifier adds one unit of the product whose barcode is code.
func (e *Engine) AddByIdentifier(ctx context.Context, code string) (domain.CartLine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	product, err := e.catalog.FindByBarcode(ctx, strings.TrimSpace(code))
	if err != nil {
		return domain.CartLine{}, err
	}

	inCart := domain.CatalogQty(e.lines, product.ID)
	if product.Quantity <= 0 || inCart.GreaterThanOrEqual(decimal.NewFromInt(int64(product.Quantity))) {
		return domain.CartLine{}, &domain.InsufficientStockError{Available: product.Quantity}
	}

	next := cloneLines(e.lines)
	idx := -1
	for i, l := range next {
		if !l.IsManual() && l.ProductID == product.ID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		next[idx].Qty = next[idx].Qty.Add(decimal.NewFromInt(1))
	} else {
		next = append(next, domain.CartLine{
			ID:        product.ID,
			ProductID: product.ID,
			Name:      product.Name,
			Barcode:   product.Barcode,
			Price:     product.Price,
			Qty:       decimal.NewFromInt(1),
			Measure:   domain.MeasureUnit,
		})
		idx = len(next) - 1
	}
	if err := e.commit(ctx, next); err != nil {
		return domain.CartLine{}, err
	}
	return next[idx], nil
}

// ManualLine is an ad-hoc item with no catalog backing.
type ManualLine struct {
	Name    string
	Price   int64
	Qty     decimal.Decimal
	Measure domain.Measure
}

// AddManualLine puts an ad-hoc line at the front of the cart. No stock is checked.
func (e *Engine) AddManualLine(ctx context.Context, m ManualLine) (domain.CartLine, error) {
	name := strings.TrimSpace(m.Name)
	if m.Measure == "" {
		m.Measure = domain.MeasureUnit
	}
	if name == "" || m.Price <= 0 || !m.Qty.IsPositive() {
		return domain.CartLine{}, fmt.Errorf("%w: name, price and qty are required", domain.ErrInvalidInput)
	}
	if !m.Measure.Valid() {
		return domain.CartLine{}, fmt.Errorf("%w: unknown measure %q", domain.ErrInvalidInput, m.Measure)
	}

	line := domain.CartLine{
		ID:      domain.ID(domain.ManualLinePrefix + common.UUID()),
		Name:    name,
		Price:   m.Price,
		Qty:     m.Qty,
		Measure: m.Measure,
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	next := append([]domain.CartLine{line}, e.lines...)
	if err := e.commit(ctx, next); err != nil {
		return domain.CartLine{}, err
	}
	return line, nil
}

// RemoveLine drops the line with lineID. Unknown ids are ignored.
func (e *Engine) RemoveLine(ctx context.Context, lineID domain.ID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make([]domain.CartLine, 0, len(e.lines))
	for _, l := range e.lines {
		if l.ID != lineID {
			next = append(next, l)
		}
	}
	if len(next) == len(e.lines) {
		return nil
	}
	return e.commit(ctx, next)
}

// Clear empties the cart and its persisted draft.
func (e *Engine) Clear(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.Delete(ctx, domain.KeyCurrentCart); err != nil {
		return err
	}
	e.lines = []domain.CartLine{}
	return nil
}
