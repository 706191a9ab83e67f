// Package core implements the repositories and the sale transaction
// processor that sit between the HTTP layer and the entity stores.
package core

import (
	"storecore/internal/infra/persistence/jsonfile"
	"storecore/pkg/domain"
)

// ProductRepository is a thin CRUD facade over the product entity store. It
// owns the create-or-update decision: saving a product without an id, or
// with an id that matches nothing, allocates a fresh id and appends.
type ProductRepository struct {
	store *jsonfile.Store[domain.Product]
}

// NewProductRepository wraps the given product store.
func NewProductRepository(store *jsonfile.Store[domain.Product]) *ProductRepository {
	return &ProductRepository{store: store}
}

// FindAll returns a defensive copy of the whole catalog.
func (r *ProductRepository) FindAll() []domain.Product {
	return r.store.Snapshot()
}

// FindByID scans the current snapshot for id. Absence is reported as a
// boolean, not an error; callers decide whether it is fatal.
func (r *ProductRepository) FindByID(id int64) (domain.Product, bool) {
	for _, p := range r.store.Snapshot() {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}

// Save persists product. A zero id means create; a known id replaces the
// matching entry in place; an unknown non-zero id is treated as a new entity
// and gets a fresh id. Each call mutates a copy of the collection and
// performs exactly one full-collection write.
func (r *ProductRepository) Save(product domain.Product) (domain.Product, error) {
	err := r.store.Update(func(items []domain.Product) []domain.Product {
		if product.ID != 0 {
			for i, existing := range items {
				if existing.ID == product.ID {
					items[i] = product
					return items
				}
			}
		}
		product.ID = r.store.NextID()
		return append(items, product)
	})
	if err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

// DeleteByID removes the matching entry. Removing a non-existent id is a
// silent no-op.
func (r *ProductRepository) DeleteByID(id int64) error {
	return r.store.Update(func(items []domain.Product) []domain.Product {
		kept := items[:0]
		for _, p := range items {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		return kept
	})
}

// SaleRepository is an append-only facade over the sale entity store. Sales
// are never updated or deleted.
type SaleRepository struct {
	store *jsonfile.Store[domain.Sale]
}

// NewSaleRepository wraps the given sale store.
func NewSaleRepository(store *jsonfile.Store[domain.Sale]) *SaleRepository {
	return &SaleRepository{store: store}
}

// FindAll returns a defensive copy of the ledger.
func (r *SaleRepository) FindAll() []domain.Sale {
	return r.store.Snapshot()
}

// FindByID scans the ledger for id.
func (r *SaleRepository) FindByID(id int64) (domain.Sale, bool) {
	for _, s := range r.store.Snapshot() {
		if s.ID == id {
			return s, true
		}
	}
	return domain.Sale{}, false
}

// Append records a sale under a fresh id, ignoring any id on the input.
func (r *SaleRepository) Append(sale domain.Sale) (domain.Sale, error) {
	sale.ID = r.store.NextID()
	err := r.store.Update(func(items []domain.Sale) []domain.Sale {
		return append(items, sale)
	})
	if err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}
