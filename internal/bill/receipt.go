// Package bill corrects parsed receipts and splits them between party members.
//
// All functions take and return values; callers never see a half-updated
// receipt. Derived fields (line totals, per-unit tax, receipt totals) are
// recomputed from scratch after every change.
package bill

import (
	"errors"
	"fmt"

	"party_radar/internal/domain"
	"party_radar/internal/money"
)

type Field string

const (
	FieldName           Field = "name"
	FieldUnitPrice      Field = "unitPrice"
	FieldQuantity       Field = "quantity"
	FieldTotalLinePrice Field = "totalLinePrice"
)

var (
	ErrUnknownField   = errors.New("unknown item field")
	ErrItemOutOfRange = errors.New("item index out of range")
)

// ItemTotal prefers the line total and falls back to unit price times quantity.
func ItemTotal(it domain.ReceiptItem) money.Cents {
	if it.TotalLinePrice != 0 {
		return it.TotalLinePrice
	}
	return it.UnitPrice.Mul(quantity(it))
}

func quantity(it domain.ReceiptItem) int {
	if it.Quantity < 1 {
		return 1
	}
	return it.Quantity
}

// CheckValue reports whether value parses for field. Edits never fail on a
// bad number (prices become 0, quantities 1); this only lets callers log it.
func CheckValue(field Field, value string) error {
	var ok bool
	switch field {
	case FieldUnitPrice, FieldTotalLinePrice:
		_, ok = money.Parse(value)
	case FieldQuantity:
		_, ok = money.ParseQuantity(value)
	default:
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: %s=%q", domain.ErrMalformedReceiptField, field, value)
	}
	return nil
}

// EditItem changes one field of one item and recomputes everything derived
// from it. Price and quantity edits cascade to the item's sub-items.
func EditItem(a domain.ReceiptAnalysis, index int, field Field, value string) (domain.ReceiptAnalysis, error) {
	if index < 0 || index >= len(a.Items) {
		return a, fmt.Errorf("%w: %d", ErrItemOutOfRange, index)
	}
	out := Clone(a)
	it := &out.Items[index]

	switch field {
	case FieldName:
		it.Name = value
		return out, nil
	case FieldUnitPrice:
		it.UnitPrice, _ = money.Parse(value)
		it.Quantity = quantity(*it)
		it.TotalLinePrice = it.UnitPrice.Mul(it.Quantity)
	case FieldQuantity:
		it.Quantity, _ = money.ParseQuantity(value)
		it.TotalLinePrice = it.UnitPrice.Mul(it.Quantity)
	case FieldTotalLinePrice:
		it.TotalLinePrice, _ = money.Parse(value)
		it.Quantity = quantity(*it)
		it.UnitPrice = it.TotalLinePrice.Div(it.Quantity)
	default:
		return a, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	it.TaxPrice = it.UnitPrice.MulRate(out.TaxRate)
	for i := range it.SubItems {
		it.SubItems[i].UnitPrice = it.UnitPrice
		it.SubItems[i].TaxPrice = it.TaxPrice
	}
	recomputeTotals(&out)
	return out, nil
}

// SetTaxRate reprices the tax of every item from its current unit price.
func SetTaxRate(a domain.ReceiptAnalysis, rate float64) domain.ReceiptAnalysis {
	out := Clone(a)
	if rate < 0 {
		rate = 0
	}
	out.TaxRate = rate
	applyTax(&out)
	recomputeTotals(&out)
	return out
}

// SetGratuityRate recomputes the gratuity from the subtotal. Item tax is untouched.
func SetGratuityRate(a domain.ReceiptAnalysis, rate float64) domain.ReceiptAnalysis {
	out := Clone(a)
	if rate < 0 {
		rate = 0
	}
	out.GratuityRate = rate
	out.Gratuity = out.Subtotal.MulRate(rate)
	out.TotalAmount = money.Sum(out.Subtotal, out.TaxAmount, out.Gratuity)
	return out
}

// Normalize fills in what an extracted receipt usually lacks: a missing unit
// price or line total is derived from the other, and a missing tax rate is
// derived from the printed tax and subtotal. Totals are then recomputed.
func Normalize(a domain.ReceiptAnalysis) domain.ReceiptAnalysis {
	out := Clone(a)
	var printedSubtotal money.Cents
	for i := range out.Items {
		it := &out.Items[i]
		it.Quantity = quantity(*it)
		if it.UnitPrice == 0 && it.TotalLinePrice != 0 {
			it.UnitPrice = it.TotalLinePrice.Div(it.Quantity)
		} else {
			it.TotalLinePrice = it.UnitPrice.Mul(it.Quantity)
		}
		for j := range it.SubItems {
			if it.SubItems[j].UnitPrice == 0 {
				it.SubItems[j].UnitPrice = it.UnitPrice
			}
		}
		printedSubtotal += it.TotalLinePrice
	}
	if out.TaxRate <= 0 && out.TaxAmount > 0 {
		out.TaxRate = out.TaxAmount.Rate(printedSubtotal)
	}
	if out.GratuityRate < 0 {
		out.GratuityRate = 0
	}
	applyTax(&out)
	recomputeTotals(&out)
	return out
}

// Clone deep-copies a so edits never alias the caller's slices and maps.
func Clone(a domain.ReceiptAnalysis) domain.ReceiptAnalysis {
	out := a
	out.Items = make([]domain.ReceiptItem, len(a.Items))
	for i, it := range a.Items {
		c := it
		if it.SubItems != nil {
			c.SubItems = append([]domain.SubItem(nil), it.SubItems...)
		}
		if it.AssignedTo != nil {
			c.AssignedTo = append([]string(nil), it.AssignedTo...)
		}
		if it.AssignedAmounts != nil {
			c.AssignedAmounts = make(map[string]money.Cents, len(it.AssignedAmounts))
			for k, v := range it.AssignedAmounts {
				c.AssignedAmounts[k] = v
			}
		}
		out.Items[i] = c
	}
	return out
}

func applyTax(a *domain.ReceiptAnalysis) {
	for i := range a.Items {
		it := &a.Items[i]
		it.TaxPrice = it.UnitPrice.MulRate(a.TaxRate)
		for j := range it.SubItems {
			it.SubItems[j].TaxPrice = it.SubItems[j].UnitPrice.MulRate(a.TaxRate)
		}
	}
}

// recomputeTotals derives subtotal, tax, gratuity (only when a rate is set)
// and total from the items.
func recomputeTotals(a *domain.ReceiptAnalysis) {
	var sub, tax money.Cents
	for _, it := range a.Items {
		sub += it.TotalLinePrice
		tax += it.TaxPrice.Mul(quantity(it))
	}
	a.Subtotal = sub
	a.TaxAmount = tax
	if a.GratuityRate > 0 {
		a.Gratuity = sub.MulRate(a.GratuityRate)
	}
	a.TotalAmount = money.Sum(a.Subtotal, a.TaxAmount, a.Gratuity)
}
