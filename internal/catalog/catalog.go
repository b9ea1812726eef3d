// Package catalog holds the static product and policy knowledge base the
// responder answers from. A Catalog is immutable after construction and safe
// to share between goroutines.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Canned reply families.
const (
	FamilyGreeting = "greeting"
	FamilyThanks   = "thanks"
	FamilyFarewell = "farewell"
	FamilyGeneral  = "general"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

var ErrInvalidCatalog = errors.New("invalid catalog")

// Product is one sellable item and its FAQ attributes.
type Product struct {
	Key      string `yaml:"key" json:"key"`
	Name     string `yaml:"name" json:"name"`
	Specs    string `yaml:"specs" json:"specs"`
	Warranty string `yaml:"warranty" json:"warranty"`
	Price    string `yaml:"price" json:"price"`
	Stock    string `yaml:"stock" json:"stock"`
}

type document struct {
	DefaultProduct string              `yaml:"default_product"`
	Products       []Product           `yaml:"products"`
	Policies       map[string]string   `yaml:"policies"`
	Replies        map[string][]string `yaml:"replies"`
}

type Catalog struct {
	defaultProduct string
	products       []Product
	byKey          map[string]int
	policies       map[string]string
	replies        map[string][]string
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

// Load reads a YAML catalog from path, or returns Default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog document.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := &Catalog{
		defaultProduct: strings.TrimSpace(doc.DefaultProduct),
		products:       make([]Product, 0, len(doc.Products)),
		byKey:          make(map[string]int, len(doc.Products)),
		policies:       make(map[string]string, len(doc.Policies)),
		replies:        make(map[string][]string, len(doc.Replies)),
	}
	for _, p := range doc.Products {
		p.Key = strings.TrimSpace(p.Key)
		p.Name = strings.TrimSpace(p.Name)
		if p.Key == "" {
			return nil, fmt.Errorf("%w: product without key", ErrInvalidCatalog)
		}
		if p.Name == "" {
			return nil, fmt.Errorf("%w: product %q has no name", ErrInvalidCatalog, p.Key)
		}
		if _, dup := c.byKey[p.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate product %q", ErrInvalidCatalog, p.Key)
		}
		c.byKey[p.Key] = len(c.products)
		c.products = append(c.products, p)
	}
	for k, v := range doc.Policies {
		c.policies[k] = v
	}
	for family, lines := range doc.Replies {
		kept := make([]string, 0, len(lines))
		for _, line := range lines {
			if strings.TrimSpace(line) != "" {
				kept = append(kept, line)
			}
		}
		c.replies[family] = kept
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.products) == 0 {
		return fmt.Errorf("%w: no products", ErrInvalidCatalog)
	}
	if c.defaultProduct == "" {
		c.defaultProduct = c.products[0].Key
	}
	if _, ok := c.byKey[c.defaultProduct]; !ok {
		return fmt.Errorf("%w: default product %q is not in the catalog", ErrInvalidCatalog, c.defaultProduct)
	}
	if len(c.replies[FamilyGeneral]) == 0 {
		return fmt.Errorf("%w: %q replies are required", ErrInvalidCatalog, FamilyGeneral)
	}
	return nil
}

// DefaultProductKey is the product assumed when a question names none.
func (c *Catalog) DefaultProductKey() string {
	return c.defaultProduct
}

// Products returns the products in catalog order.
func (c *Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Product(key string) (Product, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

func (c *Catalog) Policy(key string) (string, bool) {
	v, ok := c.policies[key]
	return v, ok
}

// Replies returns the canned alternatives for a reply family.
func (c *Catalog) Replies(family string) []string {
	lines := c.replies[family]
	if len(lines) == 0 {
		return nil
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
