package bill

import (
	"sort"

	"party_radar/internal/domain"
	"party_radar/internal/money"
)

// Finalize closes the session and computes what each member owes: their
// equal-split item amounts plus a share of tax and gratuity proportional to
// those amounts. With nothing assigned, or no tax and gratuity, no share is
// added.
func (s *Session) Finalize(a domain.ReceiptAnalysis) (domain.SplitResult, error) {
	if s.PaidBy == "" {
		return domain.SplitResult{}, invalid("no payer selected")
	}
	if len(a.Items) != len(s.Items) {
		return domain.SplitResult{}, invalid("receipt has %d items, session has %d", len(a.Items), len(s.Items))
	}
	if !s.CanComplete() {
		return domain.SplitResult{}, invalid("last item must be current and assigned before finishing")
	}

	out := Clone(a)
	itemAmount := make(map[string]money.Cents, len(s.Members))
	for _, m := range s.Members {
		itemAmount[m] = 0
	}
	for i := range out.Items {
		assigned := append([]string(nil), s.Items[i].AssignedTo...)
		amounts := SplitEqual(ItemTotal(out.Items[i]), assigned)
		out.Items[i].AssignedTo = assigned
		out.Items[i].AssignedAmounts = amounts
		for m, v := range amounts {
			itemAmount[m] += v
		}
	}

	shares := Allocate(out.TaxAmount+out.Gratuity, s.Members, itemAmount)

	res := domain.SplitResult{
		Items:         out.Items,
		IsAssigned:    true,
		MemberAmounts: make(map[string]money.Cents, len(s.Members)),
		PaidBy:        s.PaidBy,
		Breakdown:     make(map[string]domain.MemberShare, len(s.Members)),
	}
	for _, m := range s.Members {
		total := itemAmount[m] + shares[m]
		res.MemberAmounts[m] = total
		res.Breakdown[m] = domain.MemberShare{ItemAmount: itemAmount[m], TaxAndTip: shares[m], Total: total}
	}
	s.Phase = PhaseComplete
	return res, nil
}

// Allocate distributes taxAndTip across members in proportion to their item
// amounts, rounding with largest remainders so the shares sum to taxAndTip.
// Ties on the remainder go to the member listed first.
func Allocate(taxAndTip money.Cents, members []string, itemAmount map[string]money.Cents) map[string]money.Cents {
	shares := make(map[string]money.Cents, len(members))
	var assigned money.Cents
	for _, m := range members {
		shares[m] = 0
		assigned += itemAmount[m]
	}
	if assigned <= 0 || taxAndTip <= 0 {
		return shares
	}

	type part struct {
		member string
		rem    int64
	}
	parts := make([]part, 0, len(members))
	var given money.Cents
	for _, m := range members {
		num := int64(taxAndTip) * int64(itemAmount[m])
		q := num / int64(assigned)
		shares[m] = money.Cents(q)
		given += money.Cents(q)
		parts = append(parts, part{member: m, rem: num % int64(assigned)})
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].rem > parts[j].rem })
	for i := 0; given < taxAndTip && i < len(parts); i++ {
		shares[parts[i].member]++
		given++
	}
	return shares
}
