package activity

import (
	"fmt"
	"strings"
	"time"

	"agencycrm/auth"
)

// Named date windows accepted by list dateFilter and stats period.
const (
	DateToday      = "today"
	DateYesterday  = "yesterday"
	DateLast7Days  = "last7days"
	DateLast30Days = "last30days"
	DateLast90Days = "last90days"
	DateAll        = "all"
	PeriodCustom   = "custom"
)

// ListQuery carries the validated, sentinel-free list parameters. Fields left
// nil apply no filter; the "all" wire value is translated to nil before the
// query reaches this package.
type ListQuery struct {
	Page       int
	Limit      int
	Type       *Type
	EntityType *EntityType
	AgentID    *string
	ClientID   *string
	UserID     *string
	EntityID   *string
	Priority   *Priority
	Status     *Status
	Search     string
	SortBy     string
	SortOrder  string
	DateFilter string
	StartDate  *time.Time
	EndDate    *time.Time
	IsRecent   bool
	Tags       []string
}

// StatsQuery carries the validated stats parameters.
type StatsQuery struct {
	AgentID   *string
	StartDate *time.Time
	EndDate   *time.Time
	Period    string
	GroupBy   string
}

// SearchQuery carries the validated full-text search parameters.
type SearchQuery struct {
	Query   string
	Limit   int
	Type    *Type
	AgentID *string
}

// predicate is a single SQL comparison. expr contains exactly one %s
// placeholder when arg is non-nil.
type predicate struct {
	expr string
	arg  any
}

// clause is one conjunct of a filter: a single predicate, or a disjunction of
// several rendered inside one parenthesised OR group.
type clause struct {
	preds []predicate
}

// filterTree is a conjunction of clauses. The agent visibility rule is kept
// as its own disjunction clause so the nesting
// (filters...) AND (agent_id = A OR user_id = A) survives rendering and can
// never collapse into a flat AND chain.
type filterTree struct {
	clauses []clause
}

func (t *filterTree) where(expr string, arg any) {
	t.clauses = append(t.clauses, clause{preds: []predicate{{expr: expr, arg: arg}}})
}

func (t *filterTree) anyOf(preds ...predicate) {
	t.clauses = append(t.clauses, clause{preds: preds})
}

// render produces the WHERE body and the argument list, numbering positional
// placeholders from startArg.
func (t filterTree) render(startArg int) (string, []any) {
	if len(t.clauses) == 0 {
		return "TRUE", nil
	}

	var (
		parts = make([]string, 0, len(t.clauses))
		args  = make([]any, 0, len(t.clauses))
		n     = startArg
	)
	for _, c := range t.clauses {
		exprs := make([]string, 0, len(c.preds))
		for _, p := range c.preds {
			if p.arg == nil {
				exprs = append(exprs, p.expr)
				continue
			}
			exprs = append(exprs, fmt.Sprintf(p.expr, fmt.Sprintf("$%d", n)))
			args = append(args, p.arg)
			n++
		}
		if len(exprs) == 1 {
			parts = append(parts, exprs[0])
		} else {
			parts = append(parts, "("+strings.Join(exprs, " OR ")+")")
		}
	}
	return strings.Join(parts, " AND "), args
}

// dateWindow bounds created_at. The end is inclusive except for the
// "yesterday" window, which stops right before the start of today.
type dateWindow struct {
	from         time.Time
	to           time.Time
	endExclusive bool
}

// namedWindow resolves one of the named windows relative to now. Returns nil
// for "all" or an unrecognised name.
func namedWindow(name string, now time.Time) *dateWindow {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch name {
	case DateToday:
		return &dateWindow{from: startOfDay, to: now}
	case DateYesterday:
		return &dateWindow{from: startOfDay.AddDate(0, 0, -1), to: startOfDay, endExclusive: true}
	case DateLast7Days:
		return &dateWindow{from: now.AddDate(0, 0, -7), to: now}
	case DateLast30Days:
		return &dateWindow{from: now.AddDate(0, 0, -30), to: now}
	case DateLast90Days:
		return &dateWindow{from: now.AddDate(0, 0, -90), to: now}
	}
	return nil
}

// resolveListWindow applies the list precedence rules: an explicit
// startDate+endDate pair overrides dateFilter, and isRecent overrides
// everything with the last 24 hours.
func resolveListWindow(q ListQuery, now time.Time) *dateWindow {
	var w *dateWindow
	if q.DateFilter != "" && q.DateFilter != DateAll {
		w = namedWindow(q.DateFilter, now)
	}
	if q.StartDate != nil && q.EndDate != nil {
		w = &dateWindow{from: *q.StartDate, to: *q.EndDate}
	}
	if q.IsRecent {
		w = &dateWindow{from: now.Add(-24 * time.Hour), to: now}
	}
	return w
}

// resolveStatsWindow resolves the stats period: "custom" uses the explicit
// range, anything else is a named window (default last30days).
func resolveStatsWindow(q StatsQuery, now time.Time) *dateWindow {
	if q.Period == PeriodCustom {
		if q.StartDate != nil && q.EndDate != nil {
			return &dateWindow{from: *q.StartDate, to: *q.EndDate}
		}
		return nil
	}
	period := q.Period
	if period == "" {
		period = DateLast30Days
	}
	return namedWindow(period, now)
}

func (t *filterTree) applyWindow(w *dateWindow) {
	if w == nil {
		return
	}
	t.where("created_at >= %s", w.from)
	if w.endExclusive {
		t.where("created_at < %s", w.to)
	} else {
		t.where("created_at <= %s", w.to)
	}
}

// applyAgentScope restricts agents to activities they own or that are
// attributed to them. Other roles see everything.
func (t *filterTree) applyAgentScope(actor Actor) {
	if actor.Role != auth.RoleAgent {
		return
	}
	t.anyOf(
		predicate{expr: "agent_id = %s", arg: actor.ID},
		predicate{expr: "user_id = %s", arg: actor.ID},
	)
}

const searchPredicate = "search_vector @@ plainto_tsquery('english', %s)"

// buildListFilter assembles the list filter in the documented order:
// equality filters, the unconditional visibility guard, the date window,
// tags, free text and finally the role scope.
func buildListFilter(q ListQuery, actor Actor, now time.Time) filterTree {
	var t filterTree

	if q.Type != nil {
		t.where("type = %s", *q.Type)
	}
	if q.EntityType != nil {
		t.where("entity_type = %s", *q.EntityType)
	}
	if q.AgentID != nil {
		t.where("agent_id = %s", *q.AgentID)
	}
	if q.ClientID != nil {
		t.where("client_id = %s", *q.ClientID)
	}
	if q.UserID != nil {
		t.where("user_id = %s", *q.UserID)
	}
	if q.EntityID != nil {
		t.where("entity_id = %s", *q.EntityID)
	}
	if q.Priority != nil {
		t.where("priority = %s", *q.Priority)
	}
	if q.Status != nil {
		t.where("status = %s", *q.Status)
	}

	// Hidden records never surface through listing, no matter the caller.
	t.where("is_visible = %s", true)

	t.applyWindow(resolveListWindow(q, now))

	if len(q.Tags) > 0 {
		t.where("tags && %s", q.Tags)
	}
	if q.Search != "" {
		t.where(searchPredicate, q.Search)
	}

	t.applyAgentScope(actor)
	return t
}

// buildStatsFilter assembles the base stats match: active, visible, scoped to
// the actor, optionally narrowed to one agent for non-agent callers. The date
// window is kept separate so the "recent" figure can ignore it.
func buildStatsFilter(q StatsQuery, actor Actor) filterTree {
	var t filterTree
	t.where("status = %s", StatusActive)
	t.where("is_visible = %s", true)
	if actor.Role != auth.RoleAgent && q.AgentID != nil {
		t.where("agent_id = %s", *q.AgentID)
	}
	t.applyAgentScope(actor)
	return t
}

// buildSearchFilter assembles the search match: active, visible, ranked text
// match plus optional equality filters and the role scope.
func buildSearchFilter(q SearchQuery, actor Actor) filterTree {
	var t filterTree
	t.where("status = %s", StatusActive)
	t.where("is_visible = %s", true)
	t.where(searchPredicate, q.Query)
	if q.Type != nil {
		t.where("type = %s", *q.Type)
	}
	if q.AgentID != nil {
		t.where("agent_id = %s", *q.AgentID)
	}
	t.applyAgentScope(actor)
	return t
}

// sortColumn maps the exposed sortBy values onto real columns, falling back
// to created_at for anything unexpected.
func sortColumn(key string) string {
	switch key {
	case "updatedAt":
		return "updated_at"
	case "action":
		return "action"
	case "type":
		return "type"
	case "priority":
		return "priority"
	case "entityName":
		return "entity_name"
	default:
		return "created_at"
	}
}
