package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"measure-tracker/internal/cards"
	"measure-tracker/internal/filter"
	"measure-tracker/internal/geo"
	"measure-tracker/internal/models"
	"measure-tracker/internal/search"
)

type fakeStore struct {
	ds       *models.Dataset
	next     *models.Dataset
	regenErr error
}

func (f *fakeStore) Current() *models.Dataset { return f.ds }

func (f *fakeStore) Regenerate(ctx context.Context) (*models.Dataset, error) {
	if f.regenErr != nil {
		return nil, f.regenErr
	}
	f.ds = f.next
	return f.ds, nil
}

var (
	roadway  = models.Category{ID: "c-road", Name: "Roadway", Description: "Street repair"}
	pavement = models.Category{ID: "c-pave", Name: "Pavement", ParentID: "c-road"}
	transit  = models.Category{ID: "c-transit", Name: "Transit"}
)

func date(s string) *time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return &t
}

func testDataset() *models.Dataset {
	fy := 2021
	box := geo.BBox{-105.30, 40.00, -105.20, 40.05}
	ds := &models.Dataset{
		Categories:       []models.Category{roadway, pavement, transit},
		ParentCategories: []models.Category{roadway, transit},
		Grantees:         []models.Grantee{{ID: "g1", Name: "Lafayette"}, {ID: "g2", Name: "Boulder"}},
		Projects: []models.Project{
			{
				ID: "p1", Name: "Main Street", FiscalYear: &fy, GranteeIDs: []string{"g1"}, GranteeName: "Lafayette",
				Category: models.Known(pavement), ParentCategory: models.Known(roadway), Subcategory: pavement,
				BBox: &box, HasProjectGeometry: true,
			},
			{
				ID: "p2", Name: "Bus Shelters", GranteeIDs: []string{"g2"}, GranteeName: "Boulder",
				Category: models.Known(transit), ParentCategory: models.Known(transit),
			},
		},
		Awards: []models.Award{
			{Transaction: models.Transaction{
				ID: "aw1", Amount: 100, HasAmount: true, ProjectIDs: []string{"p1"},
				Category: models.Known(pavement), ParentCategory: models.Known(roadway), GranteeIDs: []string{"g1"},
			}},
			{Transaction: models.Transaction{
				ID: "aw2", Amount: 50, HasAmount: true, ProjectIDs: []string{"p2"},
				Category: models.Known(transit), ParentCategory: models.Known(transit), GranteeIDs: []string{"g2"},
			}},
		},
		Payments: []models.Payment{
			{Transaction: models.Transaction{ID: "pay-late", Amount: 10, HasAmount: true}, Date: date("2022-03-01")},
			{Transaction: models.Transaction{ID: "pay-none", Amount: 0}},
			{Transaction: models.Transaction{ID: "pay-undated", Amount: 5, HasAmount: true}},
			{Transaction: models.Transaction{ID: "pay-early", Amount: 7, HasAmount: true}, Date: date("2021-06-15")},
		},
		GeneratedAt: time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
	ds.Index()
	return ds
}

func newServer(t *testing.T, store *fakeStore, searcher search.Searcher) *httptest.Server {
	t.Helper()
	deck, err := cards.Parse([]byte("- key: Roadway\n  image: roadway.svg\n"))
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(Deps{
		Store:       store,
		Engine:      filter.NewEngine(searcher),
		Cards:       deck,
		MapboxToken: "pk.test",
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

type idOnly struct {
	ID string `json:"id"`
}

func ids(items []idOnly) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.ID)
	}
	return out
}

func TestNotReady(t *testing.T) {
	srv := newServer(t, &fakeStore{}, nil)

	var body map[string]any
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.URL+"/api/data", &body))
	assert.Equal(t, true, body["retry"])

	var health map[string]any
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz", &health))
	assert.Equal(t, false, health["dataset_ready"])
}

func TestGetData(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	var body struct {
		Projects []idOnly `json:"projects"`
		Awards   []idOnly `json:"awards"`
	}
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/data", &body))
	assert.Equal(t, []string{"p1", "p2"}, ids(body.Projects))
	assert.Len(t, body.Awards, 2)
}

type resultsBody struct {
	Items           []idOnly `json:"items"`
	Projects        []idOnly `json:"projects"`
	TransactionType string   `json:"transactionType"`
	Notice          string   `json:"notice"`
	Query           string   `json:"query"`
	Card            *struct {
		Key         string `json:"key"`
		Description string `json:"description"`
	} `json:"card"`
}

func TestGetResults(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	var body resultsBody
	status := get(t, srv.URL+"/api/results?transactionType=award&category=Roadway&project_ids=p1", &body)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, []string{"aw1"}, ids(body.Items))
	assert.Equal(t, []string{"p1"}, ids(body.Projects))
	assert.Equal(t, "award", body.TransactionType)
	assert.Equal(t, "limited", body.Notice)
	assert.Contains(t, body.Query, "project_ids=p1")
	require.NotNil(t, body.Card)
	assert.Equal(t, "Roadway", body.Card.Key)
	assert.Equal(t, "Street repair", body.Card.Description)
}

func TestGetResults_BadTransactionType(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	var body map[string]any
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/api/results?transactionType=refund", &body))
	assert.NotEmpty(t, body["error"])
}

func TestGetResults_SearchUnavailable(t *testing.T) {
	failing := search.SearcherFunc(func(ctx context.Context, q string, o search.Options) (search.Response, error) {
		return search.Response{}, errors.New("timeout")
	})
	srv := newServer(t, &fakeStore{ds: testDataset()}, failing)

	var body map[string]any
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.URL+"/api/results?transactionType=award&project=main", &body))
	assert.Equal(t, true, body["retry"])
}

func TestGetProjects(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	var body struct {
		Projects []idOnly `json:"projects"`
		Count    int      `json:"count"`
	}
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/projects?ids=p2,missing,p1", &body))
	assert.Equal(t, []string{"p2", "p1"}, ids(body.Projects))
	assert.Equal(t, 2, body.Count)
}

func TestGetPayments(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	var body []idOnly
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/payments", &body))
	assert.Equal(t, []string{"pay-early", "pay-late", "pay-undated"}, ids(body))
}

func TestGetViewport(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	var body struct {
		BBox     geo.BBox     `json:"bbox"`
		Viewport geo.Viewport `json:"viewport"`
	}
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/viewport?ids=p1,p2", &body))
	assert.Equal(t, geo.BBox{-105.30, 40.00, -105.20, 40.05}, body.BBox)
	assert.Equal(t, 11, body.Viewport.Zoom)
	assert.InDelta(t, 40.025, body.Viewport.Latitude, 1e-9)

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/api/viewport?ids=p2", nil))
}

func TestGetFilterOptions(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	var body map[string][]string
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/filters/options", &body))
	assert.Equal(t, []string{"Pavement", "Roadway", "Transit"}, body["categories"])
	assert.Equal(t, []string{"Roadway", "Transit"}, body["parent_categories"])
	assert.Equal(t, []string{"Boulder", "Lafayette"}, body["grantees"])
}

func TestGetCategoryCard(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	var card cards.Card
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/category-card?category=Pavement", &card))
	assert.Equal(t, "Roadway", card.Key)
	assert.Equal(t, "roadway.svg", card.Image)

	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/api/category-card?category=Transit", nil))
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/api/category-card", nil))
}

func TestGetCategoryCards(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	var deck []cards.Card
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/category-cards", &deck))
	require.Len(t, deck, 1)
	assert.Equal(t, "Roadway", deck[0].Key)
	assert.Equal(t, "roadway.svg", deck[0].Image)

	empty := newServer(t, &fakeStore{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, empty.URL+"/api/category-cards", nil))
}

func TestGetConfig(t *testing.T) {
	srv := newServer(t, &fakeStore{}, nil)

	var body map[string]string
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/api/config", &body))
	assert.Equal(t, "pk.test", body["mapboxToken"])
}

func TestRegenerate(t *testing.T) {
	store := &fakeStore{next: testDataset()}
	srv := newServer(t, store, nil)

	resp, err := http.Post(srv.URL+"/api/regenerate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotNil(t, store.Current())

	store.regenErr = errors.New("fetching records: airtable returned 503")
	resp, err = http.Post(srv.URL+"/api/regenerate", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestMetricsAndCORS(t *testing.T) {
	srv := newServer(t, &fakeStore{ds: testDataset()}, nil)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/results", strings.NewReader(""))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
