package models

import "encoding/json"

// UncategorizedName is the display name used when no category can be resolved
const UncategorizedName = "Uncategorized"

// Category is a program category. Root categories have no ParentID.
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ParentID    string `json:"parent_id,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsRoot reports whether the category has no parent
func (c Category) IsRoot() bool {
	return c.ParentID == ""
}

// CategoryRef is either a known category or Uncategorized. The zero value is
// Uncategorized. It holds the category by value, so copies never alias.
type CategoryRef struct {
	known    bool
	category Category
}

// Known wraps a resolved category
func Known(c Category) CategoryRef {
	return CategoryRef{known: true, category: c}
}

// Uncategorized returns the fallback ref
func Uncategorized() CategoryRef {
	return CategoryRef{}
}

// Category returns the wrapped category and whether one is present
func (r CategoryRef) Category() (Category, bool) {
	return r.category, r.known
}

// IsKnown reports whether the ref resolved to a real category
func (r CategoryRef) IsKnown() bool {
	return r.known
}

// ID returns the category id, empty for Uncategorized
func (r CategoryRef) ID() string {
	if !r.known {
		return ""
	}
	return r.category.ID
}

// Name returns the category name or "Uncategorized"
func (r CategoryRef) Name() string {
	if !r.known {
		return UncategorizedName
	}
	return r.category.Name
}

// Equal compares two refs by identity of the underlying category
func (r CategoryRef) Equal(other CategoryRef) bool {
	if r.known != other.known {
		return false
	}
	return !r.known || r.category.ID == other.category.ID
}

type categoryRefJSON struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	ParentID string `json:"parent_id,omitempty"`
}

// MarshalJSON renders Uncategorized as {"name":"Uncategorized"}
func (r CategoryRef) MarshalJSON() ([]byte, error) {
	if !r.known {
		return json.Marshal(categoryRefJSON{Name: UncategorizedName})
	}
	return json.Marshal(categoryRefJSON{
		ID:       r.category.ID,
		Name:     r.category.Name,
		ParentID: r.category.ParentID,
	})
}
