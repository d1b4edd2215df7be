package ledger

import "github.com/google/uuid"

// CatalogCapacity is the fixed maximum number of products per store.
const CatalogCapacity = 20

// NativeAsset is the sentinel asset id that routes settlement through the
// native transfer rail instead of the token rail.
var NativeAsset = uuid.Nil

// Product is one purchasable entry in a store catalog. Products are
// immutable once added; changing the price requires delete and re-add.
type Product struct {
	Name     string    `json:"name"`
	Price    uint64    `json:"price"`
	Asset    uuid.UUID `json:"asset"`
	Decimals uint8     `json:"decimals"`
}

// Catalog is a fixed-capacity, insertion-ordered set of products with unique
// names. The zero value is an empty catalog.
type Catalog struct {
	products []Product
}

// Add appends a product to the catalog. It fails with ErrNameEmpty,
// ErrNameTooLong, ErrDuplicateName or ErrCapacityExceeded; on success the
// product goes to the end, no resorting.
func (c *Catalog) Add(p Product) error {
	if err := ValidateProductName(p.Name); err != nil {
		return err
	}
	for i := range c.products {
		if c.products[i].Name == p.Name {
			return ErrDuplicateName
		}
	}
	if len(c.products) >= CatalogCapacity {
		return ErrCapacityExceeded
	}
	c.products = append(c.products, p)
	return nil
}

// Remove deletes the product with the given name, preserving the relative
// order of the rest. Returns ErrProductNotFound if no product matches.
func (c *Catalog) Remove(name string) error {
	for i := range c.products {
		if c.products[i].Name == name {
			c.products = append(c.products[:i], c.products[i+1:]...)
			return nil
		}
	}
	return ErrProductNotFound
}

// Find returns the product with the given name by exact match.
func (c *Catalog) Find(name string) (Product, bool) {
	for i := range c.products {
		if c.products[i].Name == name {
			return c.products[i], true
		}
	}
	return Product{}, false
}

// Len returns the number of products in the catalog.
func (c *Catalog) Len() int {
	return len(c.products)
}

// Products returns a copy of the catalog entries in insertion order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}
