package app

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"party_radar/internal/domain"
	"party_radar/internal/money"
)

/********** alias registries (single source of truth) **********/

// Extraction output (LLM or OCR) is loosely shaped; these are the key
// spellings seen so far, most specific first.
var receiptAliases = map[string][]string{
	"items":         {"items", "line_items", "lineItems", "receipt.items"},
	"merchant":      {"merchant", "merchant_name", "merchantName", "restaurant", "restaurant_name", "store", "receipt.merchant"},
	"currency":      {"currency", "currency_code", "currencyCode"},
	"tax":           {"taxAmount", "tax_amount", "tax", "totals.tax"},
	"tax_rate":      {"taxRate", "tax_rate"},
	"tax_percent":   {"taxPercent", "tax_percent"},
	"gratuity":      {"gratuity", "tip", "tip_amount", "tipAmount", "service_charge", "serviceCharge", "totals.tip"},
	"gratuity_rate": {"gratuityRate", "gratuity_rate", "tipRate", "tip_rate"},
}

var itemAliases = map[string][]string{
	"name":       {"name", "description", "item", "title"},
	"unit_price": {"unitPrice", "unit_price", "pricePerItem", "price_per_item", "price"},
	"quantity":   {"quantity", "qty", "count"},
	"line_total": {"totalLinePrice", "total_line_price", "totalPrice", "total_price", "line_total", "amount"},
	"sub_items":  {"subItems", "sub_items", "modifiers"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) string {
	for _, p := range aliases[key] {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// firstPresent returns the first alias path that exists, with its value.
func firstPresent(m map[string]any, paths []string) (string, any) {
	for _, p := range paths {
		if v := lookupAny(m, p); v != nil {
			return p, v
		}
	}
	return "", nil
}

// moneyFlexible reads an amount from a number or a string like "$1,234.50".
// A present but unparseable value is logged and read as 0.
func moneyFlexible(m map[string]any, paths ...string) money.Cents {
	path, v := firstPresent(m, paths)
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return money.FromFloat(t)
	case int:
		return money.Cents(t * 100)
	case json.Number:
		c, ok := money.Parse(t.String())
		if !ok {
			warnMalformed(path, t.String())
		}
		return c
	case string:
		c, ok := money.Parse(t)
		if !ok && strings.TrimSpace(t) != "" {
			warnMalformed(path, t)
		}
		return c
	default:
		warnMalformed(path, fmt.Sprint(t))
		return 0
	}
}

// quantityFlexible reads a positive integer quantity; anything else is 1.
func quantityFlexible(m map[string]any, paths ...string) int {
	path, v := firstPresent(m, paths)
	switch t := v.(type) {
	case float64:
		if t >= 1 {
			return int(t)
		}
	case int:
		if t >= 1 {
			return t
		}
	case string:
		q, ok := money.ParseQuantity(t)
		if !ok {
			warnMalformed(path, t)
		}
		return q
	}
	return 1
}

// rateFlexible reads a fraction. Values carrying "%" or above 1 are percents.
func rateFlexible(m map[string]any, paths ...string) float64 {
	_, v := firstPresent(m, paths)
	var f float64
	pct := false
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		pct = strings.Contains(t, "%")
		d, ok := money.ParseDecimal(t)
		if !ok {
			return 0
		}
		f, _ = d.Float64()
	default:
		return 0
	}
	if pct || f > 1 {
		f /= 100
	}
	if f < 0 {
		return 0
	}
	return f
}

func warnMalformed(path, raw string) {
	log.Warn().
		Err(domain.ErrMalformedReceiptField).
		Str("field", path).
		Str("value", raw).
		Msg("receipt value unreadable, using default")
}

/********** receipt mapper **********/

// mapReceipt turns an extraction payload into a ReceiptAnalysis. Derived
// fields are left for bill.Normalize.
func mapReceipt(p map[string]any) domain.ReceiptAnalysis {
	a := domain.ReceiptAnalysis{
		Merchant:     firstNonEmptyAlias(p, receiptAliases, "merchant"),
		Currency:     strings.ToUpper(firstNonEmptyAlias(p, receiptAliases, "currency")),
		TaxAmount:    moneyFlexible(p, receiptAliases["tax"]...),
		Gratuity:     moneyFlexible(p, receiptAliases["gratuity"]...),
		TaxRate:      rateFlexible(p, receiptAliases["tax_rate"]...),
		GratuityRate: rateFlexible(p, receiptAliases["gratuity_rate"]...),
	}
	if a.TaxRate == 0 {
		if _, v := firstPresent(p, receiptAliases["tax_percent"]); v != nil {
			a.TaxRate = percentRate(v)
		}
	}

	_, raw := firstPresent(p, receiptAliases["items"])
	list, _ := raw.([]any)
	a.Items = make([]domain.ReceiptItem, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			log.Warn().Int("index", i).Msg("receipt item is not an object, skipped")
			continue
		}
		a.Items = append(a.Items, mapItem(obj))
	}
	return a
}

func percentRate(v any) float64 {
	switch t := v.(type) {
	case float64:
		if t > 0 {
			return t / 100
		}
	case string:
		if d, ok := money.ParseDecimal(t); ok && d.IsPositive() {
			f, _ := d.Float64()
			return f / 100
		}
	}
	return 0
}

func mapItem(m map[string]any) domain.ReceiptItem {
	it := domain.ReceiptItem{
		Name:           firstNonEmptyAlias(m, itemAliases, "name"),
		UnitPrice:      moneyFlexible(m, itemAliases["unit_price"]...),
		Quantity:       quantityFlexible(m, itemAliases["quantity"]...),
		TotalLinePrice: moneyFlexible(m, itemAliases["line_total"]...),
	}
	_, raw := firstPresent(m, itemAliases["sub_items"])
	if subs, ok := raw.([]any); ok {
		for _, s := range subs {
			switch t := s.(type) {
			case string:
				if t != "" {
					it.SubItems = append(it.SubItems, domain.SubItem{Name: t})
				}
			case map[string]any:
				it.SubItems = append(it.SubItems, domain.SubItem{
					Name:      firstNonEmptyAlias(t, itemAliases, "name"),
					UnitPrice: moneyFlexible(t, itemAliases["unit_price"]...),
				})
			}
		}
	}
	return it
}
