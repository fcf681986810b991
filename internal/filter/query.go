package filter

import (
	"net/url"
	"strings"

	"measure-tracker/internal/models"
)

// Spec is a filter request. A dimension is active when it has a value.
type Spec struct {
	TransactionType models.TransactionType `json:"transactionType,omitempty"`
	Grantee         []string               `json:"grantee,omitempty"`
	Category        []string               `json:"category,omitempty"`
	Project         string                 `json:"project,omitempty"`
}

// ActiveCount returns how many filter dimensions are set
func (s Spec) ActiveCount() int {
	n := 0
	if s.TransactionType != models.TransactionNone {
		n++
	}
	if len(s.Grantee) > 0 {
		n++
	}
	if len(s.Category) > 0 {
		n++
	}
	if s.Project != "" {
		n++
	}
	return n
}

// ParseQuery reads a Spec from query parameters. grantee and category may be
// repeated; empty values are ignored.
func ParseQuery(q url.Values) Spec {
	return Spec{
		TransactionType: models.TransactionType(strings.TrimSpace(q.Get("transactionType"))),
		Grantee:         nonEmpty(q["grantee"]),
		Category:        nonEmpty(q["category"]),
		Project:         strings.TrimSpace(q.Get("project")),
	}
}

// Query encodes s, plus the currently open project ids, as a shareable
// query string
func (s Spec) Query(projectIDs []string) url.Values {
	q := url.Values{}
	if s.TransactionType != models.TransactionNone {
		q.Set("transactionType", string(s.TransactionType))
	}
	for _, g := range s.Grantee {
		q.Add("grantee", g)
	}
	if s.Project != "" {
		q.Set("project", s.Project)
	}
	for _, c := range s.Category {
		q.Add("category", c)
	}
	if len(projectIDs) > 0 {
		q.Set("project_ids", strings.Join(projectIDs, ","))
	}
	return q
}

func nonEmpty(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Notice is a hint shown next to a filter result
type Notice string

const (
	NoticeNone     Notice = "none"
	NoticeLimited  Notice = "limited"
	NoticeNumerous Notice = "numerous"
)

// limitedResults is the item count below which results count as limited
const limitedResults = 5

// Advise picks the notice for a result: none when nothing matched, limited
// for a handful of items, numerous when fewer than two filters are set.
// It returns "" when no notice applies.
func Advise(res *Result, spec Spec) Notice {
	if res == nil {
		return ""
	}
	switch {
	case len(res.Items) == 0:
		return NoticeNone
	case len(res.Items) < limitedResults:
		return NoticeLimited
	case spec.ActiveCount() < 2:
		return NoticeNumerous
	}
	return ""
}
