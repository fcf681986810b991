package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"measure-tracker/internal/cards"
	"measure-tracker/internal/category"
	"measure-tracker/internal/filter"
	"measure-tracker/internal/geo"
	"measure-tracker/internal/logger"
	"measure-tracker/internal/models"
)

// DatasetStore is the published dataset and the way to rebuild it
type DatasetStore interface {
	Current() *models.Dataset
	Regenerate(ctx context.Context) (*models.Dataset, error)
}

// Handlers contains HTTP handlers and their dependencies
type Handlers struct {
	store       DatasetStore
	engine      *filter.Engine
	cards       *cards.Deck
	log         *logger.Logger
	mapboxToken string
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Deps) *Handlers {
	deck := deps.Cards
	if deck == nil {
		deck = &cards.Deck{}
	}
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	engine := deps.Engine
	if engine == nil {
		engine = filter.NewEngine(nil)
	}
	return &Handlers{
		store:       deps.Store,
		engine:      engine,
		cards:       deck,
		log:         log,
		mapboxToken: deps.MapboxToken,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// dataset returns the published dataset or answers 503
func (h *Handlers) dataset(w http.ResponseWriter) (*models.Dataset, bool) {
	ds := h.store.Current()
	if ds == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "dataset not ready",
			"retry": true,
		})
		return nil, false
	}
	return ds, true
}

// GetData handles GET /api/data
func (h *Handlers) GetData(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

type resultsResponse struct {
	*filter.Result
	Notice filter.Notice `json:"notice,omitempty"`
	Card   *cards.Card   `json:"card,omitempty"`
	Query  string        `json:"query"`
}

// GetResults handles GET /api/results
func (h *Handlers) GetResults(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	spec := filter.ParseQuery(q)
	if !spec.TransactionType.Valid() {
		writeError(w, http.StatusBadRequest, "transactionType must be award or payment")
		return
	}

	ds, ok := h.dataset(w)
	if !ok {
		return
	}

	res, err := h.engine.Apply(r.Context(), spec, ds)
	if err != nil {
		if errors.Is(err, filter.ErrSearchUnavailable) {
			h.log.Warn("project search failed", "query", spec.Project, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error": "project search is unavailable",
				"retry": true,
			})
			return
		}
		h.log.Error("filter failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := resultsResponse{
		Result: res,
		Notice: filter.Advise(res, spec),
		Query:  spec.Query(splitIDs(q.Get("project_ids"))).Encode(),
	}
	if card, found := h.cards.ForFilter(spec, category.NewResolver(ds.Categories)); found {
		resp.Card = &card
	}
	writeJSON(w, http.StatusOK, resp)
}

func splitIDs(v string) []string {
	var ids []string
	for _, id := range strings.Split(v, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetProjects handles GET /api/projects?ids=a,b
func (h *Handlers) GetProjects(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w)
	if !ok {
		return
	}

	projects := make([]models.Project, 0)
	for _, id := range splitIDs(r.URL.Query().Get("ids")) {
		if p, found := ds.Project(id); found {
			projects = append(projects, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects": projects,
		"count":    len(projects),
	})
}

// GetPayments handles GET /api/payments
func (h *Handlers) GetPayments(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w)
	if !ok {
		return
	}

	payments := make([]models.Payment, 0, len(ds.Payments))
	for _, p := range ds.Payments {
		if p.HasAmount {
			payments = append(payments, p)
		}
	}
	// undated payments go last
	sort.SliceStable(payments, func(i, j int) bool {
		a, b := payments[i].Date, payments[j].Date
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})
	writeJSON(w, http.StatusOK, payments)
}

// GetViewport handles GET /api/viewport?ids=a,b
func (h *Handlers) GetViewport(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w)
	if !ok {
		return
	}

	var boxes []geo.BBox
	for _, id := range splitIDs(r.URL.Query().Get("ids")) {
		if p, found := ds.Project(id); found && p.BBox != nil {
			boxes = append(boxes, *p.BBox)
		}
	}
	if len(boxes) == 0 {
		writeError(w, http.StatusNotFound, "no geometry for the requested projects")
		return
	}

	box := geo.Merge(boxes)
	writeJSON(w, http.StatusOK, map[string]any{
		"bbox":     box,
		"viewport": geo.ViewportFor(box),
	})
}

// GetFilterOptions handles GET /api/filters/options
func (h *Handlers) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w)
	if !ok {
		return
	}

	categories := make([]string, 0, len(ds.Categories))
	for _, c := range ds.Categories {
		categories = append(categories, c.Name)
	}
	parents := make([]string, 0, len(ds.ParentCategories))
	for _, c := range ds.ParentCategories {
		parents = append(parents, c.Name)
	}
	grantees := make([]string, 0, len(ds.Grantees))
	for _, g := range ds.Grantees {
		grantees = append(grantees, g.Name)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"categories":        distinctSorted(categories),
		"parent_categories": distinctSorted(parents),
		"grantees":          distinctSorted(grantees),
		"transaction_types": []models.TransactionType{models.TransactionAward, models.TransactionPayment},
	})
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// GetCategoryCard handles GET /api/category-card?category=X
func (h *Handlers) GetCategoryCard(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w)
	if !ok {
		return
	}

	spec := filter.Spec{Category: filter.ParseQuery(r.URL.Query()).Category}
	card, found := h.cards.ForFilter(spec, category.NewResolver(ds.Categories))
	if !found {
		writeError(w, http.StatusNotFound, "no card for this selection")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

// GetCategoryCards handles GET /api/category-cards
func (h *Handlers) GetCategoryCards(w http.ResponseWriter, r *http.Request) {
	ds, ok := h.dataset(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.cards.All(category.NewResolver(ds.Categories)))
}

// GetConfig handles GET /api/config
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mapboxToken": h.mapboxToken})
}

// Regenerate handles POST /api/regenerate
func (h *Handlers) Regenerate(w http.ResponseWriter, r *http.Request) {
	ds, err := h.store.Regenerate(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "published",
		"generated_at": ds.GeneratedAt,
		"projects":     len(ds.Projects),
	})
}

// Health handles GET /healthz
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ds := h.store.Current()
	status := map[string]any{"status": "ok", "dataset_ready": ds != nil}
	if ds != nil {
		status["generated_at"] = ds.GeneratedAt
	}
	writeJSON(w, http.StatusOK, status)
}
