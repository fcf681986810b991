package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Record is a raw row from the record store
type Record struct {
	ID          string         `json:"id" db:"id"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`
}

// Table names in the record store
const (
	TableAllocations = "Allocations"
	TableAwards      = "Awards"
	TableCategories  = "Categories"
	TableDocuments   = "Documents"
	TableGrantees    = "Grantees"
	TablePayments    = "Payments"
	TableProjects    = "Projects"
	TableRevenue     = "Revenue"
)

// Tables lists every table fetched in a regeneration cycle
var Tables = []string{
	TableAllocations,
	TableAwards,
	TableCategories,
	TableDocuments,
	TableGrantees,
	TablePayments,
	TableProjects,
	TableRevenue,
}

// RawData is one regeneration cycle's worth of raw record sets
type RawData struct {
	Allocations []Record `json:"allocations"`
	Awards      []Record `json:"awards"`
	Categories  []Record `json:"categories"`
	Documents   []Record `json:"documents"`
	Grantees    []Record `json:"grantees"`
	Payments    []Record `json:"payments"`
	Projects    []Record `json:"projects"`
	Revenue     []Record `json:"revenue"`
}

// String returns a string field, empty when absent
func (r Record) String(name string) string {
	switch v := r.Fields[name].(type) {
	case string:
		return v
	case []any:
		// lookup fields come back as single-element lists
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// Float returns a numeric field and whether it was present
func (r Record) Float(name string) (float64, bool) {
	switch v := r.Fields[name].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// IDs returns a linked-record field as a list of ids
func (r Record) IDs(name string) []string {
	switch v := r.Fields[name].(type) {
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				ids = append(ids, s)
			}
		}
		return ids
	case []string:
		return append([]string(nil), v...)
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// AttachmentURL returns the url of the first attachment in a field
func (r Record) AttachmentURL(name string) string {
	list, ok := r.Fields[name].([]any)
	if !ok || len(list) == 0 {
		return ""
	}
	att, ok := list[0].(map[string]any)
	if !ok {
		return ""
	}
	u, _ := att["url"].(string)
	return u
}

// Time parses a date field
func (r Record) Time(name string) *time.Time {
	s := r.String(name)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// DecodeCategory converts a Categories record
func DecodeCategory(r Record) Category {
	c := Category{
		ID:          r.ID,
		Name:        r.String("Name"),
		Description: r.String("Description"),
	}
	if parents := r.IDs("Parent Category"); len(parents) > 0 {
		c.ParentID = parents[0]
	}
	return c
}

// DecodeGrantee converts a Grantees record
func DecodeGrantee(r Record) Grantee {
	return Grantee{
		ID:         r.ID,
		Name:       r.String("Name"),
		GeoJSONURL: r.AttachmentURL("geojson"),
	}
}

// DecodeProject converts a Projects record. Derived fields are left empty.
func DecodeProject(r Record) Project {
	p := Project{
		ID:            r.ID,
		Name:          r.String("Name"),
		URL:           r.String("URL"),
		GranteeIDs:    r.IDs("Grantee"),
		AllocationIDs: r.IDs("Allocations"),
		AwardIDs:      r.IDs("Awards"),
		GeoJSONURL:    r.AttachmentURL("geojson"),
	}
	if fy, ok := r.Float("Fiscal Year"); ok && fy != 0 {
		year := int(fy)
		p.FiscalYear = &year
	}
	lat, latOK := r.Float("Latitude")
	lng, lngOK := r.Float("Longitude")
	if latOK && lngOK && lat != 0 && lng != 0 {
		p.Latitude = &lat
		p.Longitude = &lng
	}
	return p
}

// DecodeAllocation converts an Allocations record
func DecodeAllocation(r Record) Allocation {
	amount, _ := r.Float("Amount")
	return Allocation{
		ID:          r.ID,
		Amount:      amount,
		CategoryIDs: r.IDs("Category"),
		ProjectIDs:  r.IDs("Project"),
	}
}

// DecodeAward converts an Awards record
func DecodeAward(r Record) Award {
	amount, ok := r.Float("Award Amount")
	return Award{
		Transaction: Transaction{
			ID:         r.ID,
			Amount:     amount,
			HasAmount:  ok,
			ProjectIDs: r.IDs("Project"),
		},
		AllocationIDs: r.IDs("Allocation"),
		PaymentIDs:    r.IDs("Payments"),
	}
}

// DecodePayment converts a Payments record
func DecodePayment(r Record) Payment {
	amount, ok := r.Float("Amount")
	return Payment{
		Transaction: Transaction{
			ID:         r.ID,
			Amount:     amount,
			HasAmount:  ok,
			ProjectIDs: r.IDs("Project"),
		},
		Date:          r.Time("Date"),
		AwardIDs:      r.IDs("Award"),
		AllocationIDs: r.IDs("Allocation"),
	}
}
