package pipeline

import (
	"measure-tracker/internal/category"
	"measure-tracker/internal/models"
)

// lookups indexes the decoded raw entities by id for the attribution pass
type lookups struct {
	allocations map[string]models.Allocation
	awards      map[string]models.Award
	projects    map[string]models.Project
	grantees    map[string]models.Grantee
}

func indexBy[T any](items []T, id func(T) string) map[string]T {
	m := make(map[string]T, len(items))
	for _, item := range items {
		k := id(item)
		if _, dup := m[k]; !dup {
			m[k] = item
		}
	}
	return m
}

func decodeAll[T any](records []models.Record, decode func(models.Record) T) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		out = append(out, decode(r))
	}
	return out
}

// attribute decodes raw records and attaches categories, grantees and derived
// links. Categories are attached by value so no two entities share one.
func (p *Pipeline) attribute(raw models.RawData) *models.Dataset {
	ds := &models.Dataset{
		Categories:  decodeAll(raw.Categories, models.DecodeCategory),
		Grantees:    decodeAll(raw.Grantees, models.DecodeGrantee),
		Projects:    decodeAll(raw.Projects, models.DecodeProject),
		Allocations: decodeAll(raw.Allocations, models.DecodeAllocation),
		Awards:      decodeAll(raw.Awards, models.DecodeAward),
		Payments:    decodeAll(raw.Payments, models.DecodePayment),
		Documents:   append([]models.Record(nil), raw.Documents...),
		Revenue:     append([]models.Record(nil), raw.Revenue...),
	}

	resolver := category.NewResolver(ds.Categories)
	ds.ParentCategories = resolver.Roots()

	lk := lookups{
		allocations: indexBy(ds.Allocations, func(a models.Allocation) string { return a.ID }),
		awards:      indexBy(ds.Awards, func(a models.Award) string { return a.ID }),
		projects:    indexBy(ds.Projects, func(p models.Project) string { return p.ID }),
		grantees:    indexBy(ds.Grantees, func(g models.Grantee) string { return g.ID }),
	}

	for i := range ds.Projects {
		p.attributeProject(&ds.Projects[i], resolver, lk)
	}
	for i := range ds.Allocations {
		attributeAllocation(&ds.Allocations[i], resolver, lk)
	}
	for i := range ds.Awards {
		a := &ds.Awards[i]
		attributeTransaction(&a.Transaction, firstID(a.AllocationIDs), resolver, lk)
	}
	for i := range ds.Payments {
		pay := &ds.Payments[i]
		allocationID := firstID(pay.AllocationIDs)
		if allocationID == "" {
			if award, ok := lk.awards[firstID(pay.AwardIDs)]; ok {
				if len(award.ProjectIDs) > 0 {
					pay.ProjectIDs = append([]string(nil), award.ProjectIDs...)
				}
				allocationID = firstID(award.AllocationIDs)
			}
		}
		attributeTransaction(&pay.Transaction, allocationID, resolver, lk)
	}

	return ds
}

func (p *Pipeline) attributeProject(pr *models.Project, resolver *category.Resolver, lk lookups) {
	pr.Category = models.Uncategorized()
	pr.ParentCategory = models.Uncategorized()

	if len(pr.AllocationIDs) > 0 {
		allocations := make([]models.Allocation, 0, len(pr.AllocationIDs))
		for _, id := range pr.AllocationIDs {
			if a, ok := lk.allocations[id]; ok {
				allocations = append(allocations, a)
			}
		}

		if chosen, ok := p.config.Policy(allocations); ok && len(chosen.CategoryIDs) > 0 {
			pr.Category, pr.ParentCategory = resolver.Resolve(chosen.CategoryIDs[0])
		}

		if len(pr.AwardIDs) > 0 {
			pr.PaymentIDs = projectPayments(pr.AwardIDs, lk.awards)
		}
	}

	cat, catOK := pr.Category.Category()
	if catOK && pr.ParentCategory.IsKnown() && !pr.Category.Equal(pr.ParentCategory) {
		pr.Subcategory = cat
	}

	if g, ok := lk.grantees[firstID(pr.GranteeIDs)]; ok {
		pr.GranteeName = g.Name
	}
}

// projectPayments is the deduplicated union of payments reachable through awards
func projectPayments(awardIDs []string, awards map[string]models.Award) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, awardID := range awardIDs {
		award, ok := awards[awardID]
		if !ok {
			continue
		}
		for _, paymentID := range award.PaymentIDs {
			if _, dup := seen[paymentID]; dup {
				continue
			}
			seen[paymentID] = struct{}{}
			ids = append(ids, paymentID)
		}
	}
	return ids
}

func attributeAllocation(a *models.Allocation, resolver *category.Resolver, lk lookups) {
	a.Category, a.ParentCategory = resolver.Resolve(firstID(a.CategoryIDs))

	if len(a.ProjectIDs) == 0 {
		return
	}
	seen := make(map[string]struct{})
	grantees := make([]string, 0)
	for _, projectID := range a.ProjectIDs {
		pr, ok := lk.projects[projectID]
		if !ok {
			continue
		}
		for _, g := range pr.GranteeIDs {
			if _, dup := seen[g]; dup {
				continue
			}
			seen[g] = struct{}{}
			grantees = append(grantees, g)
		}
	}
	a.GranteeIDs = grantees
}

// attributeTransaction resolves an award or payment's category through its
// allocation and copies the grantee list of its first linked project
func attributeTransaction(t *models.Transaction, allocationID string, resolver *category.Resolver, lk lookups) {
	t.Category = models.Uncategorized()
	t.ParentCategory = models.Uncategorized()

	if allocation, ok := lk.allocations[allocationID]; ok {
		t.Category, t.ParentCategory = resolver.Resolve(firstID(allocation.CategoryIDs))
	}

	if projectID, ok := t.ProjectID(); ok {
		if pr, found := lk.projects[projectID]; found && len(pr.GranteeIDs) > 0 {
			t.GranteeIDs = append([]string(nil), pr.GranteeIDs...)
		}
	}
}

func firstID(ids []string) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
