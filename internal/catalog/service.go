package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/sunflowerpos/sunflower/internal/domain"
	"github.com/sunflowerpos/sunflower/internal/store"
	"github.com/sunflowerpos/sunflower/pkg/common"
	"go.uber.org/zap"
)

const DefaultLowStockThreshold = 5

// Service owns the product collection and its stock levels.
type Service struct {
	store     store.Store
	threshold int
}

func NewService(s store.Store, lowStockThreshold int) *Service {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	return &Service{store: s, threshold: lowStockThreshold}
}

// Threshold below which a product counts as low stock.
func (s *Service) Threshold() int {
	return s.threshold
}

// Load reads the product collection inside tx. A missing key is an empty catalog.
func Load(tx store.Tx) ([]domain.Product, error) {
	products := []domain.Product{}
	if _, err := tx.Get(domain.KeyProducts, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func Save(tx store.Tx, products []domain.Product) error {
	if products == nil {
		products = []domain.Product{}
	}
	return tx.Set(domain.KeyProducts, products)
}

func (s *Service) List(ctx context.Context) (products []domain.Product, err error) {
	err = s.store.View(ctx, func(tx store.Tx) error {
		products, err = Load(tx)
		return err
	})
	return products, err
}

// Search matches term against the name (case-insensitive) or the barcode.
func (s *Service) Search(ctx context.Context, term string) ([]domain.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return products, nil
	}
	result := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), term) || strings.Contains(p.Barcode, term) {
			result = append(result, p)
		}
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id domain.ID) (*domain.Product, error) {
	return s.find(ctx, func(p domain.Product) bool { return p.ID == id })
}

// FindByBarcode returns the first product with an exact barcode match.
func (s *Service) FindByBarcode(ctx context.Context, code string) (*domain.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrNotFound
	}
	return s.find(ctx, func(p domain.Product) bool { return p.Barcode == code })
}

func (s *Service) find(ctx context.Context, match func(domain.Product) bool) (*domain.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if match(products[i]) {
			return &products[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// CreateRequest fields are all required; nil means the field was left empty.
type CreateRequest struct {
	Name     string
	Barcode  string
	Price    *float64
	Quantity *int
}

// Create registers a product, rejecting barcode or name clashes.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	barcode := strings.TrimSpace(req.Barcode)
	if name == "" || barcode == "" || req.Price == nil || req.Quantity == nil {
		return nil, fmt.Errorf("%w: name, barcode, price and quantity are required", domain.ErrInvalidInput)
	}
	if *req.Price < 0 || *req.Quantity < 0 {
		return nil, fmt.Errorf("%w: price and quantity must not be negative", domain.ErrInvalidInput)
	}

	p := domain.Product{
		ID:       domain.ID(common.SnowflakeID()),
		Name:     name,
		Barcode:  barcode,
		Quantity: *req.Quantity,
		Price:    domain.RoundPrice(*req.Price),
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		products, err := Load(tx)
		if err != nil {
			return err
		}
		for _, existing := range products {
			if existing.SameIdentity(barcode, name) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateProduct, existing.Name)
			}
		}
		return Save(tx, append(products, p))
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("product created", zap.String("namespace", "catalog"),
		zap.String("id", p.ID.String()), zap.String("barcode", p.Barcode))
	return &p, nil
}

// UpdateQuantity sets the stock, clamping negatives to 0. Unknown ids are ignored.
func (s *Service) UpdateQuantity(ctx context.Context, id domain.ID, qty int) error {
	if qty < 0 {
		qty = 0
	}
	return s.mutate(ctx, id, func(p *domain.Product) { p.Quantity = qty })
}

// UpdatePrice sets the rounded price, clamping negatives to 0. Unknown ids are ignored.
func (s *Service) UpdatePrice(ctx context.Context, id domain.ID, price float64) error {
	rounded := domain.RoundPrice(price)
	return s.mutate(ctx, id, func(p *domain.Product) { p.Price = rounded })
}

func (s *Service) mutate(ctx context.Context, id domain.ID, fn func(p *domain.Product)) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		products, err := Load(tx)
		if err != nil {
			return err
		}
		for i := range products {
			if products[i].ID == id {
				fn(&products[i])
				return Save(tx, products)
			}
		}
		return nil
	})
}

// Delete removes a product. Sales referencing it are kept as they are.
func (s *Service) Delete(ctx context.Context, id domain.ID) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		products, err := Load(tx)
		if err != nil {
			return err
		}
		kept := products[:0]
		for _, p := range products {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		return Save(tx, kept)
	})
}

// BulkReplace replaces the whole collection verbatim.
func (s *Service) BulkReplace(ctx context.Context, products []domain.Product) error {
	return s.store.Update(ctx, func(tx store.Tx) error {
		return Save(tx, products)
	})
}

// Import appends rows without duplicate checking. Rows without an id get one.
func (s *Service) Import(ctx context.Context, rows []domain.Product) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		products, err := Load(tx)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if r.ID == "" {
				r.ID = domain.ID(common.SnowflakeID())
			}
			products = append(products, r)
		}
		return Save(tx, products)
	})
	if err != nil {
		return 0, err
	}
	zap.L().Info("products imported", zap.String("namespace", "catalog"), zap.Int("count", len(rows)))
	return len(rows), nil
}

// LowStock lists products with quantity under the threshold.
func (s *Service) LowStock(ctx context.Context) ([]domain.Product, error) {
	products, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return FilterLowStock(products, s.threshold), nil
}

func FilterLowStock(products []domain.Product, threshold int) []domain.Product {
	low := make([]domain.Product, 0)
	for _, p := range products {
		if p.Quantity < threshold {
			low = append(low, p)
		}
	}
	return low
}
