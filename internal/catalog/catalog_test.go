package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, "smartphone_x", c.DefaultProductKey())

	keys := make([]string, 0)
	for _, p := range c.Products() {
		keys = append(keys, p.Key)
	}
	assert.Equal(t, []string{"smartphone_x", "smartphone_y", "laptop_pro", "wireless_earbuds"}, keys)

	p, ok := c.Product("smartphone_y")
	require.True(t, ok)
	assert.Equal(t, "Smartphone Y", p.Name)
	assert.Equal(t, "6.7-inch AMOLED, 12GB RAM, 256GB storage, 64MP camera", p.Specs)
	assert.Equal(t, "$899", p.Price)

	ret, ok := c.Policy("return")
	require.True(t, ok)
	assert.Equal(t, "30-day return policy with original packaging and receipt. Refunds processed within 5-7 business days.", ret)

	hours, ok := c.Policy("store_hours")
	require.True(t, ok)
	assert.Equal(t, "Online store: 24/7. Physical stores: 9 AM to 9 PM, Monday to Sunday.", hours)

	for _, family := range []string{FamilyGreeting, FamilyThanks, FamilyFarewell, FamilyGeneral} {
		assert.Len(t, c.Replies(family), 3, family)
	}
}

func TestProductsReturnsCopy(t *testing.T) {
	c := Default()
	products := c.Products()
	products[0].Name = "mutated"

	p, ok := c.Product(products[0].Key)
	require.True(t, ok)
	assert.Equal(t, "Smartphone X", p.Name)
}

func TestParseValidation(t *testing.T) {
	cases := map[string]string{
		"no products": `
replies:
  general: [hm]
`,
		"missing name": `
products:
  - key: a
replies:
  general: [hm]
`,
		"duplicate key": `
products:
  - {key: a, name: A}
  - {key: a, name: B}
replies:
  general: [hm]
`,
		"unknown default": `
default_product: zzz
products:
  - {key: a, name: A}
replies:
  general: [hm]
`,
		"no general replies": `
products:
  - {key: a, name: A}
`,
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		assert.ErrorIs(t, err, ErrInvalidCatalog, name)
	}
}

func TestParseDefaultsToFirstProduct(t *testing.T) {
	c, err := Parse([]byte(`
products:
  - {key: tablet, name: Tablet}
  - {key: watch, name: Watch}
replies:
  general: ["", "say again?"]
`))
	require.NoError(t, err)
	assert.Equal(t, "tablet", c.DefaultProductKey())
	assert.Equal(t, []string{"say again?"}, c.Replies(FamilyGeneral))
	assert.Nil(t, c.Replies(FamilyGreeting))
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
products:
  - {key: drone, name: Sky Drone, price: "$300"}
policies:
  return: no returns
replies:
  general: [pardon?]
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	p, ok := c.Product("drone")
	require.True(t, ok)
	assert.Equal(t, "$300", p.Price)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	def, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "smartphone_x", def.DefaultProductKey())
}
