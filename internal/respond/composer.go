// Package respond renders reply text for classified intents from the catalog.
package respond

import (
	"strings"

	"github.com/ent0n29/gadgetdesk/internal/catalog"
	"github.com/ent0n29/gadgetdesk/internal/intent"
	"github.com/ent0n29/gadgetdesk/internal/memory"
)

const (
	NotAvailable       = "Not available"
	UnknownProductName = "Product"
)

// Miss describes a catalog lookup that fell back to a placeholder.
type Miss struct {
	Intent intent.Intent
	Kind   string // "product" or "policy"
	Key    string
}

type handler func(c *Composer, slots memory.Context) string

// Composer maps intents to reply text. It never fails: missing catalog
// entries render placeholders.
type Composer struct {
	catalog  *catalog.Catalog
	picker   Picker
	handlers map[intent.Intent]handler
	onMiss   func(Miss)
}

// NewComposer builds a composer over cat. A nil picker picks randomly.
func NewComposer(cat *catalog.Catalog, picker Picker) *Composer {
	if picker == nil {
		picker = NewRandPicker(0)
	}
	c := &Composer{catalog: cat, picker: picker}
	c.handlers = map[intent.Intent]handler{
		intent.ProductSpecs: attribute(intent.ProductSpecs, func(p catalog.Product) string {
			return p.Name + " specifications: " + p.Specs
		}),
		intent.WarrantyInfo: attribute(intent.WarrantyInfo, func(p catalog.Product) string {
			return p.Name + " warranty: " + p.Warranty
		}),
		intent.ProductPrice: attribute(intent.ProductPrice, func(p catalog.Product) string {
			return p.Name + " price: " + p.Price
		}),
		intent.ProductStock: attribute(intent.ProductStock, func(p catalog.Product) string {
			return "Availability for " + p.Name + ": " + p.Stock
		}),
		intent.OrderTracking:  policy(intent.OrderTracking, "order_tracking"),
		intent.ReturnPolicy:   policy(intent.ReturnPolicy, "return"),
		intent.PaymentMethods: policy(intent.PaymentMethods, "payment_methods"),
		intent.Shipping:       policy(intent.Shipping, "shipping"),
		intent.StoreHours:     policy(intent.StoreHours, "store_hours"),
		intent.ContactInfo:    policy(intent.ContactInfo, "contact"),
		intent.Greeting:       canned(catalog.FamilyGreeting),
		intent.Thanks:         canned(catalog.FamilyThanks),
		intent.Farewell:       canned(catalog.FamilyFarewell),
		intent.General:        canned(catalog.FamilyGeneral),
	}
	return c
}

// SetMissHook registers a callback for placeholder fallbacks.
func (c *Composer) SetMissHook(hook func(Miss)) {
	c.onMiss = hook
}

// Compose renders the reply fragment for one intent. Unknown intents get a
// general reply.
func (c *Composer) Compose(in intent.Intent, slots memory.Context) string {
	h, ok := c.handlers[in]
	if !ok {
		h = c.handlers[intent.General]
	}
	return h(c, slots)
}

// ComposeAll renders every intent in order and joins the fragments with
// newlines.
func (c *Composer) ComposeAll(intents []intent.Intent, slots memory.Context) string {
	parts := make([]string, 0, len(intents))
	for _, in := range intents {
		parts = append(parts, c.Compose(in, slots))
	}
	return strings.Join(parts, "\n")
}

func attribute(in intent.Intent, render func(catalog.Product) string) handler {
	return func(c *Composer, slots memory.Context) string {
		key := slots[memory.SlotProduct]
		if key == "" {
			key = c.catalog.DefaultProductKey()
		}
		p, ok := c.catalog.Product(key)
		if !ok {
			c.miss(Miss{Intent: in, Kind: "product", Key: key})
			p = catalog.Product{
				Key:      key,
				Name:     UnknownProductName,
				Specs:    NotAvailable,
				Warranty: NotAvailable,
				Price:    NotAvailable,
				Stock:    NotAvailable,
			}
		}
		return render(p)
	}
}

func policy(in intent.Intent, key string) handler {
	return func(c *Composer, _ memory.Context) string {
		text, ok := c.catalog.Policy(key)
		if !ok {
			c.miss(Miss{Intent: in, Kind: "policy", Key: key})
			return NotAvailable
		}
		return text
	}
}

func canned(family string) handler {
	return func(c *Composer, _ memory.Context) string {
		lines := c.catalog.Replies(family)
		if len(lines) == 0 {
			lines = c.catalog.Replies(catalog.FamilyGeneral)
		}
		return lines[c.picker.Pick(len(lines))]
	}
}

func (c *Composer) miss(m Miss) {
	if c.onMiss != nil {
		c.onMiss(m)
	}
}
