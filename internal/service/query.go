package service

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gobwas/glob"

	"github.com/xiaot623/gogo/dashboard/internal/domain"
)

// noTestContext labels request logs recorded outside any test.
const noTestContext = "(none)"

// requestMatcher evaluates a RequestFilter; every set predicate must hold.
type requestMatcher struct {
	filter   domain.RequestFilter
	service  string
	endpoint string
	keyword  string
	test     glob.Glob
}

func newRequestMatcher(f domain.RequestFilter) (*requestMatcher, error) {
	m := &requestMatcher{
		filter:   f,
		service:  strings.ToLower(strings.TrimSpace(f.Service)),
		endpoint: strings.ToLower(strings.TrimSpace(f.Endpoint)),
		keyword:  strings.ToLower(strings.TrimSpace(f.Keyword)),
	}
	if f.TestPattern != "" {
		g, err := glob.Compile(f.TestPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid test pattern %q: %w", f.TestPattern, domain.ErrInvalidInput)
		}
		m.test = g
	}
	return m, nil
}

func (m *requestMatcher) match(r *domain.RequestLog) bool {
	if m.service != "" && strings.ToLower(r.Service) != m.service {
		return false
	}
	if m.endpoint != "" && !strings.Contains(strings.ToLower(urlPath(r.URL)), m.endpoint) {
		return false
	}
	if m.test != nil && !m.test.Match(r.TestContext) {
		return false
	}
	if m.filter.Status != nil && (r.ResponseStatus == nil || *r.ResponseStatus != *m.filter.Status) {
		return false
	}
	if m.filter.ErrorsOnly && !r.IsError() {
		return false
	}
	if m.keyword != "" && !containsKeyword(r, m.keyword) {
		return false
	}
	return true
}

// urlPath returns the path of raw, or raw itself if it does not parse.
func urlPath(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return raw
	}
	return u.Path
}

func containsKeyword(r *domain.RequestLog, keyword string) bool {
	fields := []string{r.URL, r.Service, r.Method, r.TestContext}
	for _, body := range []map[string]any{r.RequestBody, r.ResponseBody} {
		if body == nil {
			continue
		}
		if data, err := json.Marshal(body); err == nil {
			fields = append(fields, string(data))
		}
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), keyword) {
			return true
		}
	}
	return false
}

func summarize(logs []domain.RequestLog) []domain.TestSummary {
	groups := make(map[string]*domain.TestSummary)
	services := make(map[string]map[string]bool)

	for i := range logs {
		r := &logs[i]
		key := r.TestContext
		if strings.TrimSpace(key) == "" {
			key = noTestContext
		}
		g, ok := groups[key]
		if !ok {
			g = &domain.TestSummary{TestContext: key}
			groups[key] = g
			services[key] = make(map[string]bool)
		}
		g.Requests++
		if r.IsError() {
			g.Errors++
		}
		if r.DurationMs != nil {
			g.TotalDurationMs += *r.DurationMs
		}
		if r.Service != "" && !services[key][r.Service] {
			services[key][r.Service] = true
			g.Services = append(g.Services, r.Service)
		}
	}

	out := make([]domain.TestSummary, 0, len(groups))
	for _, g := range groups {
		g.AvgDurationMs = g.TotalDurationMs / float64(g.Requests)
		if g.Services == nil {
			g.Services = []string{}
		}
		sort.Strings(g.Services)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TestContext < out[j].TestContext })
	return out
}
