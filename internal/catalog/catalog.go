package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Catalog is an immutable, ordered set of products.
type Catalog struct {
	products []Product
}

// New validates products and returns a catalog preserving their order.
func New(products []Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]struct{}, len(products))
	out := make([]Product, len(products))
	for i, p := range products {
		if err := validateProduct(p); err != nil {
			return nil, err
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidProduct, p.ID)
		}
		seen[p.ID] = struct{}{}
		out[i] = p
	}

	return &Catalog{products: out}, nil
}

// Default returns the built-in catalog. It panics if the embedded data is
// malformed, which can only happen at build time.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a YAML catalog file from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// Parse builds a catalog from YAML data grouped by category.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}

	var products []Product
	for _, category := range file.Categories {
		for _, p := range category.Products {
			p.Category = category.Name
			products = append(products, p)
		}
	}
	return New(products)
}

// AllProducts returns every product in declaration order.
func (c *Catalog) AllProducts() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

// ProductsByMaterial returns the products whose material matches,
// ignoring case. The result is empty, never nil, when nothing matches.
func (c *Catalog) ProductsByMaterial(material string) []Product {
	out := []Product{}
	for _, p := range c.products {
		if strings.EqualFold(p.Material, material) {
			out = append(out, p)
		}
	}
	return out
}

// BestMatch returns the cheapest product of the material that is at least as
// large as the requested size on every axis. Equal prices keep catalog order.
func (c *Catalog) BestMatch(material string, length, width, thickness float64) (Product, bool) {
	var (
		best  Product
		found bool
	)
	for _, p := range c.ProductsByMaterial(material) {
		if !p.Dimensions.Covers(length, width, thickness) {
			continue
		}
		if !found || p.Price.LessThan(best.Price) {
			best = p
			found = true
		}
	}
	return best, found
}

// Materials lists the distinct material names in first-seen order.
func (c *Catalog) Materials() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range c.products {
		key := strings.ToLower(p.Material)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p.Material)
	}
	return out
}

// Len reports the number of products.
func (c *Catalog) Len() int {
	return len(c.products)
}

func validateProduct(p Product) error {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	case strings.TrimSpace(p.Material) == "":
		return fmt.Errorf("%w: %s has no material", ErrInvalidProduct, p.ID)
	case p.Dimensions.Length <= 0 || p.Dimensions.Width <= 0 || p.Dimensions.Thickness <= 0:
		return fmt.Errorf("%w: %s dimensions must be positive", ErrInvalidProduct, p.ID)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: %s price cannot be negative", ErrInvalidProduct, p.ID)
	case !p.PriceUnit.Valid():
		return fmt.Errorf("%w: %s has unknown price unit %q", ErrInvalidProduct, p.ID, p.PriceUnit)
	}
	return nil
}
