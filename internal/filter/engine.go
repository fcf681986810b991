// Package filter narrows the published dataset to the awards or payments and
// projects matching a query.
package filter

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"measure-tracker/internal/category"
	"measure-tracker/internal/metrics"
	"measure-tracker/internal/models"
	"measure-tracker/internal/search"
)

// ErrSearchUnavailable is returned when the free-text project search fails
var ErrSearchUnavailable = errors.New("project search unavailable")

// missingGranteeName sorts projects without a grantee after named ones
const missingGranteeName = "zzzzz"

// Result is the outcome of one filter evaluation
type Result struct {
	Items           []models.Item          `json:"items"`
	Projects        []models.Project       `json:"projects"`
	TransactionType models.TransactionType `json:"transactionType,omitempty"`
	Filters         Spec                   `json:"filters"`
}

// Engine evaluates filter specs against a dataset
type Engine struct {
	searcher search.Searcher
}

// NewEngine creates an engine that delegates free-text project queries to searcher
func NewEngine(searcher search.Searcher) *Engine {
	return &Engine{searcher: searcher}
}

// Apply evaluates spec against ds. The dataset is only read.
func (e *Engine) Apply(ctx context.Context, spec Spec, ds *models.Dataset) (*Result, error) {
	res, err := e.apply(ctx, spec, ds)
	label := string(spec.TransactionType)
	if label == "" {
		label = "none"
	}
	if err != nil {
		metrics.FilterRequests.WithLabelValues(label, "error").Inc()
		return nil, err
	}
	metrics.FilterRequests.WithLabelValues(label, "ok").Inc()
	return res, nil
}

func (e *Engine) apply(ctx context.Context, spec Spec, ds *models.Dataset) (*Result, error) {
	res := &Result{
		Items:    []models.Item{},
		Projects: []models.Project{},
		Filters:  spec,
	}

	switch spec.TransactionType {
	case models.TransactionAward:
		res.TransactionType = models.TransactionAward
		for _, a := range ds.Awards {
			res.Items = append(res.Items, a)
		}
	case models.TransactionPayment:
		res.TransactionType = models.TransactionPayment
		for _, p := range ds.Payments {
			res.Items = append(res.Items, p)
		}
	}

	if len(spec.Category) > 0 {
		ids := category.NewResolver(ds.Categories).IDsForNames(spec.Category)
		res.Items = keep(res.Items, func(t models.Transaction) bool {
			if !t.Category.IsKnown() {
				return false
			}
			return has(ids, t.Category.ID()) || has(ids, t.ParentCategory.ID())
		})
	}

	if len(spec.Grantee) > 0 {
		ids := granteeIDs(ds.Grantees, spec.Grantee)
		res.Items = keep(res.Items, func(t models.Transaction) bool {
			for _, g := range t.GranteeIDs {
				if has(ids, g) {
					return true
				}
			}
			return false
		})
	}

	if spec.Project != "" {
		ids, err := e.searchProjects(ctx, spec.Project)
		if err != nil {
			return nil, err
		}
		res.Items = keep(res.Items, func(t models.Transaction) bool {
			id, ok := t.ProjectID()
			return ok && has(ids, id)
		})
	}

	categories := toSet(spec.Category)
	grantees := toSet(spec.Grantee)
	seen := make(map[string]struct{})
	for _, item := range res.Items {
		id, ok := item.Txn().ProjectID()
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		project, found := ds.Project(id)
		if !found {
			continue
		}
		if len(categories) > 0 && !has(categories, project.Category.Name()) && !has(categories, project.ParentCategory.Name()) {
			continue
		}
		if len(grantees) > 0 && !has(grantees, project.GranteeName) {
			continue
		}
		res.Projects = append(res.Projects, project)
	}

	sortProjects(res.Projects)
	return res, nil
}

func (e *Engine) searchProjects(ctx context.Context, query string) (map[string]struct{}, error) {
	if e.searcher == nil {
		return nil, fmt.Errorf("%w: no searcher configured", ErrSearchUnavailable)
	}
	resp, err := e.searcher.Search(ctx, query, search.Options{AttributesToRetrieve: []string{"id"}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	return toSet(resp.IDs()), nil
}

// sortProjects orders by fiscal year descending, undated last, then by grantee name
func sortProjects(projects []models.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		yi, yj := fiscalYearKey(projects[i]), fiscalYearKey(projects[j])
		if yi != yj {
			return yi < yj
		}
		return granteeKey(projects[i]) < granteeKey(projects[j])
	})
}

func fiscalYearKey(p models.Project) int {
	if p.FiscalYear == nil {
		return 0
	}
	return -*p.FiscalYear
}

func granteeKey(p models.Project) string {
	if p.GranteeName == "" {
		return missingGranteeName
	}
	return p.GranteeName
}

func keep(items []models.Item, match func(models.Transaction) bool) []models.Item {
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if match(item.Txn()) {
			out = append(out, item)
		}
	}
	return out
}

func granteeIDs(grantees []models.Grantee, names []string) map[string]struct{} {
	wanted := toSet(names)
	ids := make(map[string]struct{})
	for _, g := range grantees {
		if has(wanted, g.Name) {
			ids[g.ID] = struct{}{}
		}
	}
	return ids
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func has(set map[string]struct{}, v string) bool {
	_, ok := set[v]
	return ok
}
