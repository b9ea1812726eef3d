package intent

import "strings"

// Intent is a categorical label for what a query asks about.
type Intent string

const (
	ProductSpecs   Intent = "product_specs"
	WarrantyInfo   Intent = "warranty_info"
	ProductPrice   Intent = "product_price"
	ProductStock   Intent = "product_stock"
	OrderTracking  Intent = "order_tracking"
	ReturnPolicy   Intent = "return_policy"
	PaymentMethods Intent = "payment_methods"
	Shipping       Intent = "shipping"
	StoreHours     Intent = "store_hours"
	ContactInfo    Intent = "contact_info"
	Greeting       Intent = "greeting"
	Thanks         Intent = "thanks"
	Farewell       Intent = "farewell"
	General        Intent = "general"
)

// IsProductAttribute reports whether answering the intent needs a product.
func (i Intent) IsProductAttribute() bool {
	switch i {
	case ProductSpecs, WarrantyInfo, ProductPrice, ProductStock:
		return true
	default:
		return false
	}
}

// Rule maps a keyword family to an intent. A rule matches when the
// lower-cased query contains any keyword as a substring.
type Rule struct {
	Intent   Intent
	Keywords []string
}

func (r Rule) matches(query string) bool {
	for _, kw := range r.Keywords {
		if kw != "" && strings.Contains(query, kw) {
			return true
		}
	}
	return false
}

// The order is the response order. "time" is shared by shipping and
// store_hours, so a query mentioning it yields both.
var defaultRules = []Rule{
	{ProductSpecs, []string{"spec", "feature", "configuration", "details"}},
	{WarrantyInfo, []string{"warranty"}},
	{ProductPrice, []string{"price", "cost", "how much"}},
	{ProductStock, []string{"stock", "available", "inventory"}},
	{OrderTracking, []string{"track", "order", "delivery", "shipment"}},
	{ReturnPolicy, []string{"return", "refund", "exchange"}},
	{PaymentMethods, []string{"payment", "pay", "card", "method"}},
	{Shipping, []string{"ship", "delivery", "arrive", "time"}},
	{StoreHours, []string{"hours", "open", "close", "time"}},
	{ContactInfo, []string{"contact", "call", "email", "phone"}},
	{Greeting, []string{"hi", "hello", "hey", "greetings"}},
	{Thanks, []string{"thank", "thanks", "appreciate"}},
	{Farewell, []string{"bye", "goodbye", "see you"}},
}

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier over rules in priority order.
func NewClassifier(rules ...Rule) *Classifier {
	cp := make([]Rule, len(rules))
	for i, r := range rules {
		kws := make([]string, len(r.Keywords))
		for j, kw := range r.Keywords {
			kws[j] = strings.ToLower(kw)
		}
		cp[i] = Rule{Intent: r.Intent, Keywords: kws}
	}
	return &Classifier{rules: cp}
}

// Default returns the storefront rule table.
func Default() *Classifier {
	return NewClassifier(defaultRules...)
}

// Rules returns a copy of the rule table in priority order.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	for i, r := range c.rules {
		out[i] = Rule{Intent: r.Intent, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Classify returns every matching intent in priority order without
// duplicates, or [General] when nothing matches. It never returns an empty slice.
func (c *Classifier) Classify(query string) []Intent {
	q := strings.ToLower(query)
	var out []Intent
	seen := make(map[Intent]struct{}, 4)
	for _, r := range c.rules {
		if _, dup := seen[r.Intent]; dup {
			continue
		}
		if r.matches(q) {
			seen[r.Intent] = struct{}{}
			out = append(out, r.Intent)
		}
	}
	if len(out) == 0 {
		return []Intent{General}
	}
	return out
}
