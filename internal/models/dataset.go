package models

import "time"

// Dataset is the enriched, denormalized result of one regeneration cycle.
// It is read-only once published.
type Dataset struct {
	Allocations      []Allocation `json:"allocations"`
	Awards           []Award      `json:"awards"`
	Payments         []Payment    `json:"payments"`
	Projects         []Project    `json:"projects"`
	Categories       []Category   `json:"categories"`
	ParentCategories []Category   `json:"parent_categories"`
	Grantees         []Grantee    `json:"grantees"`
	Documents        []Record     `json:"documents"`
	Revenue          []Record     `json:"revenue"`
	GeneratedAt      time.Time    `json:"generated_at"`

	projectIndex  map[string]int
	granteeIndex  map[string]int
	categoryIndex map[string]int
}

// Index builds the id lookups. Call once before publishing.
func (d *Dataset) Index() {
	d.projectIndex = make(map[string]int, len(d.Projects))
	for i, p := range d.Projects {
		if _, dup := d.projectIndex[p.ID]; !dup {
			d.projectIndex[p.ID] = i
		}
	}
	d.granteeIndex = make(map[string]int, len(d.Grantees))
	for i, g := range d.Grantees {
		if _, dup := d.granteeIndex[g.ID]; !dup {
			d.granteeIndex[g.ID] = i
		}
	}
	d.categoryIndex = make(map[string]int, len(d.Categories))
	for i, c := range d.Categories {
		if _, dup := d.categoryIndex[c.ID]; !dup {
			d.categoryIndex[c.ID] = i
		}
	}
}

// Project returns the project with id
func (d *Dataset) Project(id string) (Project, bool) {
	if d.projectIndex == nil {
		for _, p := range d.Projects {
			if p.ID == id {
				return p, true
			}
		}
		return Project{}, false
	}
	i, ok := d.projectIndex[id]
	if !ok {
		return Project{}, false
	}
	return d.Projects[i], true
}

// Grantee returns the grantee with id
func (d *Dataset) Grantee(id string) (Grantee, bool) {
	if d.granteeIndex == nil {
		for _, g := range d.Grantees {
			if g.ID == id {
				return g, true
			}
		}
		return Grantee{}, false
	}
	i, ok := d.granteeIndex[id]
	if !ok {
		return Grantee{}, false
	}
	return d.Grantees[i], true
}

// Category returns the category with id
func (d *Dataset) Category(id string) (Category, bool) {
	if d.categoryIndex == nil {
		for _, c := range d.Categories {
			if c.ID == id {
				return c, true
			}
		}
		return Category{}, false
	}
	i, ok := d.categoryIndex[id]
	if !ok {
		return Category{}, false
	}
	return d.Categories[i], true
}
