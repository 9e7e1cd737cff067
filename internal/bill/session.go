package bill

import (
	"fmt"

	"party_radar/internal/domain"
	"party_radar/internal/money"
)

type Phase string

const (
	PhaseAwaitingPayer Phase = "awaiting_payer"
	PhaseAssigning     Phase = "assigning_item"
	PhaseComplete      Phase = "complete"
)

type ItemAssignment struct {
	AssignedTo      []string               `json:"assignedTo"`
	AssignedAmounts map[string]money.Cents `json:"assignedAmounts"`
}

// Session is the in-progress, one-item-at-a-time assignment of a receipt.
// Assignments are keyed by item index and survive navigation.
type Session struct {
	ReceiptID string           `json:"receiptId"`
	Members   []string         `json:"members"`
	PaidBy    string           `json:"paidBy,omitempty"`
	Phase     Phase            `json:"phase"`
	Current   int              `json:"current"`
	Items     []ItemAssignment `json:"items"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidAssignmentState}, args...)...)
}

// NewSession starts in AwaitingPayer. Duplicate and empty member IDs are dropped.
func NewSession(receiptID string, members []string, itemCount int) (*Session, error) {
	seen := make(map[string]bool, len(members))
	roster := make([]string, 0, len(members))
	for _, m := range members {
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		roster = append(roster, m)
	}
	if len(roster) == 0 {
		return nil, invalid("no members to assign")
	}
	if itemCount == 0 {
		return nil, invalid("receipt has no items")
	}
	items := make([]ItemAssignment, itemCount)
	for i := range items {
		items[i] = ItemAssignment{AssignedTo: []string{}, AssignedAmounts: map[string]money.Cents{}}
	}
	return &Session{ReceiptID: receiptID, Members: roster, Phase: PhaseAwaitingPayer, Items: items}, nil
}

func (s *Session) isMember(id string) bool {
	for _, m := range s.Members {
		if m == id {
			return true
		}
	}
	return false
}

// SelectPayer records who paid. The first selection moves the session to
// the first item; later ones only change the payer.
func (s *Session) SelectPayer(memberID string) error {
	if s.Phase == PhaseComplete {
		return invalid("split already finalized")
	}
	if !s.isMember(memberID) {
		return invalid("payer %q is not a party member", memberID)
	}
	s.PaidBy = memberID
	if s.Phase == PhaseAwaitingPayer {
		s.Phase = PhaseAssigning
		s.Current = 0
	}
	return nil
}

// GoTo moves to any item. Moving never clears assignments.
func (s *Session) GoTo(index int) error {
	if s.Phase != PhaseAssigning {
		return invalid("cannot navigate in phase %s", s.Phase)
	}
	if index < 0 || index >= len(s.Items) {
		return fmt.Errorf("%w: %d", ErrItemOutOfRange, index)
	}
	s.Current = index
	return nil
}

func (s *Session) Next() error { return s.GoTo(s.Current + 1) }
func (s *Session) Back() error { return s.GoTo(s.Current - 1) }

// Toggle adds memberID to the item's assignees or removes it if present, then
// re-splits the item total equally across the remaining assignees.
func (s *Session) Toggle(a domain.ReceiptAnalysis, itemIndex int, memberID string) (ItemAssignment, error) {
	if s.Phase != PhaseAssigning {
		return ItemAssignment{}, invalid("cannot assign in phase %s", s.Phase)
	}
	if len(a.Items) != len(s.Items) {
		return ItemAssignment{}, invalid("receipt has %d items, session has %d", len(a.Items), len(s.Items))
	}
	if itemIndex < 0 || itemIndex >= len(s.Items) {
		return ItemAssignment{}, fmt.Errorf("%w: %d", ErrItemOutOfRange, itemIndex)
	}
	if !s.isMember(memberID) {
		return ItemAssignment{}, invalid("member %q is not a party member", memberID)
	}

	ia := &s.Items[itemIndex]
	ia.AssignedTo = toggle(ia.AssignedTo, memberID)
	ia.AssignedAmounts = SplitEqual(ItemTotal(a.Items[itemIndex]), ia.AssignedTo)
	return *ia, nil
}

func toggle(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return append(ids, id)
}

// SplitEqual divides total evenly between assignees. Leftover cents go one
// each to the earliest assignees so the parts always add up to total.
func SplitEqual(total money.Cents, assignees []string) map[string]money.Cents {
	out := make(map[string]money.Cents, len(assignees))
	n := money.Cents(len(assignees))
	if n == 0 {
		return out
	}
	base := total / n
	rem := total - base*n
	step := money.Cents(1)
	if rem < 0 {
		step, rem = -1, -rem
	}
	for i, id := range assignees {
		out[id] = base
		if money.Cents(i) < rem {
			out[id] += step
		}
	}
	return out
}

// CanComplete reports whether Finalize is allowed: the last item is current
// and has at least one assignee.
func (s *Session) CanComplete() bool {
	last := len(s.Items) - 1
	return s.Phase == PhaseAssigning && s.Current == last && len(s.Items[last].AssignedTo) > 0
}
