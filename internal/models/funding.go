package models

import (
	"encoding/json"
	"time"

	"measure-tracker/internal/geo"
)

// Grantee is an organization receiving funding
type Grantee struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	GeoJSONURL string          `json:"geojson_url,omitempty"`
	Geometry   json.RawMessage `json:"geometry,omitempty"`
	BBox       *geo.BBox       `json:"bbox,omitempty"`
}

// Project is a funded project with derived category, grantee and totals
type Project struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	URL           string   `json:"url,omitempty"`
	FiscalYear    *int     `json:"fiscal_year,omitempty"`
	GranteeIDs    []string `json:"grantee_ids,omitempty"`
	GranteeName   string   `json:"grantee_name,omitempty"`
	AllocationIDs []string `json:"allocation_ids,omitempty"`
	AwardIDs      []string `json:"award_ids,omitempty"`
	PaymentIDs    []string `json:"payment_ids,omitempty"`

	Category       CategoryRef `json:"category"`
	ParentCategory CategoryRef `json:"parent_category"`
	// Subcategory is the category when it differs from ParentCategory, else empty
	Subcategory Category `json:"subcategory"`

	Latitude           *float64        `json:"latitude,omitempty"`
	Longitude          *float64        `json:"longitude,omitempty"`
	GeoJSONURL         string          `json:"geojson_url,omitempty"`
	Geometry           json.RawMessage `json:"geometry,omitempty"`
	BBox               *geo.BBox       `json:"bbox,omitempty"`
	HasProjectGeometry bool            `json:"has_project_geometry"`

	TotalPaymentAmount    float64 `json:"total_payment_amount"`
	TotalAllocationAmount float64 `json:"total_allocation_amount"`
	TotalAwardAmount      float64 `json:"total_award_amount"`
}

// Allocation is a budgeted amount tied to a category and one or more projects
type Allocation struct {
	ID          string   `json:"id"`
	Amount      float64  `json:"amount"`
	CategoryIDs []string `json:"category_ids,omitempty"`
	ProjectIDs  []string `json:"project_ids,omitempty"`

	Category       CategoryRef `json:"category"`
	ParentCategory CategoryRef `json:"parent_category"`
	GranteeIDs     []string    `json:"grantee_ids,omitempty"`
}

// Transaction holds the fields shared by awards and payments
type Transaction struct {
	ID         string   `json:"id"`
	Amount     float64  `json:"amount"`
	HasAmount  bool     `json:"-"`
	ProjectIDs []string `json:"project_ids,omitempty"`

	Category       CategoryRef `json:"category"`
	ParentCategory CategoryRef `json:"parent_category"`
	GranteeIDs     []string    `json:"grantee_ids,omitempty"`
}

// ProjectID returns the first linked project id
func (t Transaction) ProjectID() (string, bool) {
	if len(t.ProjectIDs) == 0 {
		return "", false
	}
	return t.ProjectIDs[0], true
}

// Award is funding awarded against an allocation
type Award struct {
	Transaction
	AllocationIDs []string `json:"allocation_ids,omitempty"`
	PaymentIDs    []string `json:"payment_ids,omitempty"`
}

// Payment is a disbursement made under an award
type Payment struct {
	Transaction
	Date          *time.Time `json:"date,omitempty"`
	AwardIDs      []string   `json:"award_ids,omitempty"`
	AllocationIDs []string   `json:"allocation_ids,omitempty"`
}

// Item is what the filter engine narrows: an award or a payment
type Item interface {
	Txn() Transaction
}

// Txn implements Item
func (a Award) Txn() Transaction { return a.Transaction }

// Txn implements Item
func (p Payment) Txn() Transaction { return p.Transaction }

// TransactionType selects which items a filter runs over
type TransactionType string

const (
	TransactionNone    TransactionType = ""
	TransactionAward   TransactionType = "award"
	TransactionPayment TransactionType = "payment"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionNone, TransactionAward, TransactionPayment:
		return true
	}
	return false
}
