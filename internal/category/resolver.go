// Package category resolves the two-level category hierarchy.
package category

import "measure-tracker/internal/models"

// Resolver looks up categories by id and name
type Resolver struct {
	categories []models.Category
	byID       map[string]models.Category
	byName     map[string]models.Category
}

// NewResolver indexes categories. The first category wins on duplicate ids.
func NewResolver(categories []models.Category) *Resolver {
	r := &Resolver{
		categories: categories,
		byID:       make(map[string]models.Category, len(categories)),
		byName:     make(map[string]models.Category, len(categories)),
	}
	for _, c := range categories {
		if _, dup := r.byID[c.ID]; !dup {
			r.byID[c.ID] = c
		}
		if _, dup := r.byName[c.Name]; !dup {
			r.byName[c.Name] = c
		}
	}
	return r
}

// ByID returns the category with id, or Uncategorized when id is empty or unknown
func (r *Resolver) ByID(id string) models.CategoryRef {
	if id == "" {
		return models.Uncategorized()
	}
	c, ok := r.byID[id]
	if !ok {
		return models.Uncategorized()
	}
	return models.Known(c)
}

// ParentOf returns the parent of ref. Roots, and Uncategorized, are their own parent.
func (r *Resolver) ParentOf(ref models.CategoryRef) models.CategoryRef {
	c, ok := ref.Category()
	if !ok || c.IsRoot() {
		return ref
	}
	return r.ByID(c.ParentID)
}

// Resolve returns the category for id together with its parent
func (r *Resolver) Resolve(id string) (cat, parent models.CategoryRef) {
	cat = r.ByID(id)
	return cat, r.ParentOf(cat)
}

// ByName returns the first category named name
func (r *Resolver) ByName(name string) (models.Category, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// IDsForNames returns the set of ids of every category whose name is in names
func (r *Resolver) IDsForNames(names []string) map[string]struct{} {
	wanted := make(map[string]struct{}, len(names))
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	ids := make(map[string]struct{})
	for _, c := range r.categories {
		if _, ok := wanted[c.Name]; ok {
			ids[c.ID] = struct{}{}
		}
	}
	return ids
}

// Roots returns the categories without a parent, in input order
func (r *Resolver) Roots() []models.Category {
	roots := make([]models.Category, 0)
	for _, c := range r.categories {
		if c.IsRoot() {
			roots = append(roots, c)
		}
	}
	return roots
}

// All returns every category in input order
func (r *Resolver) All() []models.Category {
	return r.categories
}
