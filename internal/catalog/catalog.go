// Package catalog serves the built-in sample product listings.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Product types used by the catalog.
const (
	TypeDonation = "donasi"
	TypeRental   = "sewa"
)

type Product struct {
	ID          int    `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Price       int    `yaml:"price,omitempty" json:"price,omitempty"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
	Size        string `yaml:"size" json:"size"`
	Color       string `yaml:"color" json:"color"`
	Quantity    int    `yaml:"quantity" json:"quantity"`
	Status      string `yaml:"status" json:"status"`
	ImageURL    string `yaml:"imageUrl" json:"imageUrl"`
}

//go:embed products.yaml
var productsYAML []byte

// Catalog is an immutable list of products.
type Catalog struct {
	products []Product
}

// Load parses the embedded product list.
func Load() (*Catalog, error) {
	return Parse(productsYAML)
}

// Parse decodes a YAML product list.
func Parse(data []byte) (*Catalog, error) {
	var products []Product
	if err := yaml.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("failed to parse product catalog: %w", err)
	}
	return &Catalog{products: products}, nil
}

// Filter returns the products of the given type, or all products when
// productType is empty. The result is never nil.
func (c *Catalog) Filter(productType string) []Product {
	out := make([]Product, 0, len(c.products))
	for _, p := range c.products {
		if productType == "" || p.Type == productType {
			out = append(out, p)
		}
	}
	return out
}
