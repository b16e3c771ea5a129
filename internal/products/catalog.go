// Package products keeps the product catalog. The whole catalog is persisted
// under products_data after every change, followed by a snapshot under
// products_backup.
package products

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"quicksale/backend/internal/domain"
	"quicksale/backend/internal/logging"
	"quicksale/backend/internal/store"
)

const snapshotVersion = "1.0"

type Catalog struct {
	mu         sync.Mutex
	kv         store.KV
	logger     logrus.FieldLogger
	now        func() time.Time
	seed       bool
	products   []domain.Product
	loadFailed bool
}

type Option func(*Catalog)

// WithSeed loads DemoCatalog when storage has no catalog yet.
func WithSeed(enabled bool) Option {
	return func(c *Catalog) { c.seed = enabled }
}

func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

func New(kv store.KV, logger logrus.FieldLogger, opts ...Option) *Catalog {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Catalog{
		kv:       kv,
		logger:   logger.WithField("module", "products"),
		now:      time.Now,
		products: []domain.Product{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load reads the catalog. A missing catalog becomes the demo catalog when
// seeding is on, otherwise empty. Corrupt data resets to empty and sets
// LoadFailed. Load never fails.
func (c *Catalog) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var loaded []domain.Product
	found, err := store.GetJSON(ctx, c.kv, domain.KeyProducts, &loaded)
	if err != nil {
		logging.LogError(c.logger, "products", "Load", "read "+domain.KeyProducts, nil, err)
		c.products = []domain.Product{}
		c.loadFailed = true
		return
	}
	c.loadFailed = false

	if !found {
		if !c.seed {
			c.products = []domain.Product{}
			return
		}
		if err := c.commit(ctx, "Load", DemoCatalog()); err != nil {
			c.products = DemoCatalog()
		}
		c.logger.WithField("count", len(c.products)).Info("demo catalog seeded")
		return
	}
	if loaded == nil {
		loaded = []domain.Product{}
	}
	c.products = loaded
	c.logger.WithField("count", len(loaded)).Info("products loaded")
}

func (c *Catalog) LoadFailed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadFailed
}

func (c *Catalog) List() []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Product(nil), c.products...)
}

func (c *Catalog) Get(id int) (domain.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
}

// NextID is 1 for an empty catalog, else the highest id plus one.
func (c *Catalog) NextID() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return nextID(c.products)
}

func nextID(products []domain.Product) int {
	return maxID(products) + 1
}

func maxID(products []domain.Product) int {
	max := 0
	for _, p := range products {
		if p.ID > max {
			max = p.ID
		}
	}
	return max
}

func (c *Catalog) Add(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	in = normalizeInput(in)
	if err := validateInput(in); err != nil {
		return domain.Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	product := domain.Product{
		ID:    nextID(c.products),
		Name:  in.Name,
		SKU:   in.SKU,
		Price: in.Price,
		Stock: in.Stock,
	}
	next := make([]domain.Product, 0, len(c.products)+1)
	next = append(next, c.products...)
	next = append(next, product)

	if err := c.commit(ctx, "Add", next); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// Update applies the non-nil fields of patch. The id never changes.
func (c *Catalog) Update(ctx context.Context, id int, patch domain.ProductPatch) (domain.Product, error) {
	patch = normalizePatch(patch)
	if err := validatePatch(patch); err != nil {
		return domain.Product{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := -1
	for i, p := range c.products {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Product{}, fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}

	updated := c.products[idx]
	if patch.Name != nil {
		updated.Name = *patch.Name
	}
	if patch.SKU != nil {
		updated.SKU = *patch.SKU
	}
	if patch.Price != nil {
		updated.Price = *patch.Price
	}
	if patch.Stock != nil {
		updated.Stock = *patch.Stock
	}

	next := append([]domain.Product(nil), c.products...)
	next[idx] = updated
	if err := c.commit(ctx, "Update", next); err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

func (c *Catalog) Delete(ctx context.Context, id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if p.ID != id {
			next = append(next, p)
		}
	}
	if len(next) == len(c.products) {
		return fmt.Errorf("product %d: %w", id, domain.ErrNotFound)
	}
	return c.commit(ctx, "Delete", next)
}

func (c *Catalog) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commit(ctx, "Clear", []domain.Product{})
}

// commit persists next, swaps it in and writes the backup snapshot. A failed
// snapshot is logged only. Callers hold c.mu.
func (c *Catalog) commit(ctx context.Context, op string, next []domain.Product) error {
	if err := store.SetJSON(ctx, c.kv, domain.KeyProducts, next); err != nil {
		logging.LogError(c.logger, "products", op, "persist "+domain.KeyProducts, len(next), err)
		return fmt.Errorf("persist products: %w", err)
	}
	c.products = next
	c.loadFailed = false

	snapshot := domain.ProductSnapshot{
		Products:  next,
		Timestamp: c.now().UTC().Format(time.RFC3339Nano),
		Version:   snapshotVersion,
	}
	if err := store.SetJSON(ctx, c.kv, domain.KeyProductsBackup, snapshot); err != nil {
		logging.LogError(c.logger, "products", op, "write "+domain.KeyProductsBackup, nil, err)
	}
	return nil
}

// Snapshot returns the last automatic backup, if any.
func (c *Catalog) Snapshot(ctx context.Context) (domain.ProductSnapshot, bool, error) {
	var snap domain.ProductSnapshot
	found, err := store.GetJSON(ctx, c.kv, domain.KeyProductsBackup, &snap)
	return snap, found, err
}
