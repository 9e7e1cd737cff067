package domain

import (
	"time"

	"party_radar/internal/money"
)

type SubItem struct {
	Name      string      `json:"name"`
	UnitPrice money.Cents `json:"unitPrice"`
	TaxPrice  money.Cents `json:"taxPrice"`
}

type ReceiptItem struct {
	Name            string                 `json:"name"`
	UnitPrice       money.Cents            `json:"unitPrice"`
	Quantity        int                    `json:"quantity"`
	TotalLinePrice  money.Cents            `json:"totalLinePrice"`
	TaxPrice        money.Cents            `json:"taxPrice"` // per unit
	SubItems        []SubItem              `json:"subItems,omitempty"`
	AssignedTo      []string               `json:"assignedTo,omitempty"`
	AssignedAmounts map[string]money.Cents `json:"assignedAmounts,omitempty"`
}

type ReceiptAnalysis struct {
	Merchant     string        `json:"merchant,omitempty"`
	Currency     string        `json:"currency,omitempty"`
	Items        []ReceiptItem `json:"items"`
	Subtotal     money.Cents   `json:"subtotal"`
	TaxAmount    money.Cents   `json:"taxAmount"`
	TaxRate      float64       `json:"taxRate"`
	Gratuity     money.Cents   `json:"gratuity"`
	GratuityRate float64       `json:"gratuityRate"`
	TotalAmount  money.Cents   `json:"totalAmount"`
}

// Receipt is the stored record of one analysed receipt and its split.
type Receipt struct {
	ID            string                 `json:"id"`
	PartyID       string                 `json:"partyId"`
	Analysis      ReceiptAnalysis        `json:"analysis"`
	IsAssigned    bool                   `json:"isAssigned"`
	MemberAmounts map[string]money.Cents `json:"memberAmounts,omitempty"`
	PaidBy        string                 `json:"paidBy,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

type MemberShare struct {
	ItemAmount money.Cents `json:"itemAmount"`
	TaxAndTip  money.Cents `json:"taxAndTip"`
	Total      money.Cents `json:"total"`
}

type SplitResult struct {
	Items         []ReceiptItem          `json:"items"`
	IsAssigned    bool                   `json:"isAssigned"`
	MemberAmounts map[string]money.Cents `json:"memberAmounts"`
	PaidBy        string                 `json:"paidBy"`
	Breakdown     map[string]MemberShare `json:"breakdown"`
}

// Resolution is the last restaurant resolution stored for a party.
type Resolution struct {
	PartyID    string    `json:"partyId"`
	Kind       string    `json:"kind"` // nearest|chain
	Payload    []byte    `json:"-"`
	ResolvedAt time.Time `json:"resolvedAt"`
}
