package pipeline

import (
	"measure-tracker/internal/models"
	"measure-tracker/internal/money"
)

// amountsByProject collects each record's amount under every distinct project
// it links to
type amountsByProject map[string][]float64

func (m amountsByProject) add(projectIDs []string, amount float64) {
	for i, id := range projectIDs {
		if containsBefore(projectIDs, i, id) {
			continue
		}
		m[id] = append(m[id], amount)
	}
}

func containsBefore(ids []string, i int, id string) bool {
	for _, prev := range ids[:i] {
		if prev == id {
			return true
		}
	}
	return false
}

// aggregate sums payments, allocations and awards per project. It runs last so
// payments already carry the project links inherited from their awards.
func aggregate(ds *models.Dataset) {
	payments := amountsByProject{}
	for _, pay := range ds.Payments {
		payments.add(pay.ProjectIDs, pay.Amount)
	}
	allocations := amountsByProject{}
	for _, a := range ds.Allocations {
		allocations.add(a.ProjectIDs, a.Amount)
	}
	awards := amountsByProject{}
	for _, a := range ds.Awards {
		awards.add(a.ProjectIDs, a.Amount)
	}

	for i := range ds.Projects {
		pr := &ds.Projects[i]
		pr.TotalPaymentAmount = money.Sum(payments[pr.ID])
		pr.TotalAllocationAmount = money.Sum(allocations[pr.ID])
		pr.TotalAwardAmount = money.Sum(awards[pr.ID])
	}
}
