package pipeline

import "measure-tracker/internal/models"

// AttributionPolicy chooses which of a project's allocations decides the
// project's category. It reports false when none qualifies.
type AttributionPolicy func(allocations []models.Allocation) (models.Allocation, bool)

// LargestAllocation picks the allocation with the largest amount; the first one
// encountered wins ties.
func LargestAllocation(allocations []models.Allocation) (models.Allocation, bool) {
	if len(allocations) == 0 {
		return models.Allocation{}, false
	}
	best := allocations[0]
	for _, a := range allocations[1:] {
		if a.Amount > best.Amount {
			best = a
		}
	}
	return best, true
}
