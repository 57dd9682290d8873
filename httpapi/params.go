package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"agencycrm/activity"
)

// The wire value "all" on enum-like filters means "no filter". It is
// translated to an absent field here so the sentinel never reaches the
// domain layer.
func filterValue(raw string) (string, bool) {
	v := strings.TrimSpace(raw)
	if v == "" || v == "all" {
		return "", false
	}
	return v, true
}

func parseListQuery(r *http.Request) (activity.ListQuery, []activity.FieldError) {
	q := r.URL.Query()
	var errs []activity.FieldError

	out := activity.ListQuery{
		Page:      1,
		Limit:     20,
		SortBy:    "createdAt",
		SortOrder: "desc",
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, activity.FieldError{Field: "page", Message: "must be an integer >= 1"})
		} else {
			out.Page = n
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			errs = append(errs, activity.FieldError{Field: "limit", Message: "must be an integer 1-100"})
		} else {
			out.Limit = n
		}
	}

	if v, ok := filterValue(q.Get("type")); ok {
		t := activity.Type(v)
		if !activity.ValidType(t) {
			errs = append(errs, activity.FieldError{Field: "type", Message: "unknown activity type"})
		} else {
			out.Type = &t
		}
	}
	if v, ok := filterValue(q.Get("entityType")); ok {
		t := activity.EntityType(v)
		if !activity.ValidEntityType(t) {
			errs = append(errs, activity.FieldError{Field: "entityType", Message: "unknown entity type"})
		} else {
			out.EntityType = &t
		}
	}
	if v, ok := filterValue(q.Get("priority")); ok {
		p := activity.Priority(v)
		if !activity.ValidPriority(p) {
			errs = append(errs, activity.FieldError{Field: "priority", Message: "unknown priority"})
		} else {
			out.Priority = &p
		}
	}

	// status defaults to active; status=all clears the filter entirely.
	if raw := q.Get("status"); raw == "" {
		active := activity.StatusActive
		out.Status = &active
	} else if v, ok := filterValue(raw); ok {
		st := activity.Status(v)
		if !activity.ValidStatus(st) {
			errs = append(errs, activity.FieldError{Field: "status", Message: "unknown status"})
		} else {
			out.Status = &st
		}
	}

	if v, ok := filterValue(q.Get("agentId")); ok {
		out.AgentID = &v
	}
	if v, ok := filterValue(q.Get("clientId")); ok {
		out.ClientID = &v
	}
	if v, ok := filterValue(q.Get("userId")); ok {
		out.UserID = &v
	}
	if v, ok := filterValue(q.Get("entityId")); ok {
		out.EntityID = &v
	}

	if v := q.Get("sortBy"); v != "" {
		switch v {
		case "createdAt", "updatedAt", "action", "type", "priority", "entityName":
			out.SortBy = v
		default:
			errs = append(errs, activity.FieldError{Field: "sortBy", Message: "unsupported sort key"})
		}
	}
	if v := q.Get("sortOrder"); v != "" {
		switch v {
		case "asc", "desc":
			out.SortOrder = v
		default:
			errs = append(errs, activity.FieldError{Field: "sortOrder", Message: "must be asc or desc"})
		}
	}

	if v := q.Get("dateFilter"); v != "" {
		switch v {
		case activity.DateToday, activity.DateYesterday, activity.DateLast7Days,
			activity.DateLast30Days, activity.DateLast90Days, activity.DateAll:
			out.DateFilter = v
		default:
			errs = append(errs, activity.FieldError{Field: "dateFilter", Message: "unknown date filter"})
		}
	}

	out.StartDate = parseTime(q.Get("startDate"), "startDate", &errs)
	out.EndDate = parseTime(q.Get("endDate"), "endDate", &errs)

	if v := q.Get("isRecent"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, activity.FieldError{Field: "isRecent", Message: "must be a boolean"})
		} else {
			out.IsRecent = b
		}
	}

	out.Tags = splitTags(q.Get("tags"))
	out.Search = strings.TrimSpace(q.Get("search"))

	return out, errs
}

func parseStatsQuery(r *http.Request) (activity.StatsQuery, []activity.FieldError) {
	q := r.URL.Query()
	var errs []activity.FieldError

	out := activity.StatsQuery{
		Period:  strings.TrimSpace(q.Get("period")),
		GroupBy: strings.TrimSpace(q.Get("groupBy")),
	}

	if v, ok := filterValue(q.Get("agentId")); ok {
		out.AgentID = &v
	}
	out.StartDate = parseTime(q.Get("startDate"), "startDate", &errs)
	out.EndDate = parseTime(q.Get("endDate"), "endDate", &errs)

	return out, errs
}

func parseSearchQuery(r *http.Request, query string) (activity.SearchQuery, []activity.FieldError) {
	q := r.URL.Query()
	var errs []activity.FieldError

	out := activity.SearchQuery{
		Query: strings.TrimSpace(query),
		Limit: 10,
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			errs = append(errs, activity.FieldError{Field: "limit", Message: "must be an integer 1-100"})
		} else {
			out.Limit = n
		}
	}
	if v, ok := filterValue(q.Get("type")); ok {
		t := activity.Type(v)
		if !activity.ValidType(t) {
			errs = append(errs, activity.FieldError{Field: "type", Message: "unknown activity type"})
		} else {
			out.Type = &t
		}
	}
	if v, ok := filterValue(q.Get("agentId")); ok {
		out.AgentID = &v
	}

	return out, errs
}

func parseTime(raw, field string, errs *[]activity.FieldError) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		*errs = append(*errs, activity.FieldError{Field: field, Message: fmt.Sprintf("must be RFC3339, got %q", raw)})
		return nil
	}
	return &t
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if tag := strings.TrimSpace(p); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
