package httpapi

import (
	"net/http/httptest"
	"testing"

	"agencycrm/activity"
)

func TestParseListQueryDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/activities", nil)

	q, errs := parseListQuery(r)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if q.Page != 1 || q.Limit != 20 {
		t.Fatalf("expected page 1 limit 20, got %d/%d", q.Page, q.Limit)
	}
	if q.SortBy != "createdAt" || q.SortOrder != "desc" {
		t.Fatalf("expected createdAt desc, got %s %s", q.SortBy, q.SortOrder)
	}
	if q.Status == nil || *q.Status != activity.StatusActive {
		t.Fatalf("expected default status active, got %v", q.Status)
	}
	if q.Type != nil || q.AgentID != nil {
		t.Fatal("expected no filters by default")
	}
}

func TestParseListQueryAllSentinel(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/activities?type=all&status=all&priority=all&agentId=all", nil)

	q, errs := parseListQuery(r)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if q.Type != nil || q.Priority != nil || q.AgentID != nil {
		t.Fatalf("\"all\" must clear filters: %+v", q)
	}
	if q.Status != nil {
		t.Fatalf("status=all must clear the default filter, got %v", *q.Status)
	}
}

func TestParseListQueryAccumulatesErrors(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/activities?page=abc&limit=1000&sortOrder=sideways&type=bogus&startDate=not-a-date", nil)

	_, errs := parseListQuery(r)
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	for _, want := range []string{"page", "limit", "sortOrder", "type", "startDate"} {
		if !fields[want] {
			t.Fatalf("expected an error for %q, got %v", want, errs)
		}
	}
}

func TestParseListQueryFilters(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/activities?type=policy&status=archived&tags=renewal,%20vip,&isRecent=true&search=%20quote%20", nil)

	q, errs := parseListQuery(r)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if q.Type == nil || *q.Type != activity.TypePolicy {
		t.Fatalf("expected type policy, got %v", q.Type)
	}
	if q.Status == nil || *q.Status != activity.StatusArchived {
		t.Fatalf("expected status archived, got %v", q.Status)
	}
	if len(q.Tags) != 2 || q.Tags[0] != "renewal" || q.Tags[1] != "vip" {
		t.Fatalf("expected trimmed tags, got %v", q.Tags)
	}
	if !q.IsRecent {
		t.Fatal("expected isRecent set")
	}
	if q.Search != "quote" {
		t.Fatalf("expected trimmed search, got %q", q.Search)
	}
}

func TestParseStatsQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/activities/stats?period=last7days&groupBy=type&agentId=all", nil)

	q, errs := parseStatsQuery(r)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if q.Period != "last7days" || q.GroupBy != "type" {
		t.Fatalf("unexpected stats query: %+v", q)
	}
	if q.AgentID != nil {
		t.Fatal("agentId=all must clear the filter")
	}
}

func TestParseSearchQuery(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/activities/search/renewal?limit=25&type=policy", nil)

	q, errs := parseSearchQuery(r, "renewal")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if q.Query != "renewal" || q.Limit != 25 {
		t.Fatalf("unexpected search query: %+v", q)
	}
	if q.Type == nil || *q.Type != activity.TypePolicy {
		t.Fatalf("expected type filter, got %v", q.Type)
	}

	r = httptest.NewRequest("GET", "/api/activities/search/renewal", nil)
	q, _ = parseSearchQuery(r, "renewal")
	if q.Limit != 10 {
		t.Fatalf("expected default limit 10, got %d", q.Limit)
	}
}
