package activity

import (
	"strings"
	"testing"
	"time"

	"agencycrm/auth"
)

func TestNamedWindowYesterday(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)

	w := namedWindow(DateYesterday, now)
	if w == nil {
		t.Fatal("expected a window for yesterday")
	}

	wantFrom := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	if !w.from.Equal(wantFrom) || !w.to.Equal(wantTo) {
		t.Fatalf("yesterday window [%v, %v), want [%v, %v)", w.from, w.to, wantFrom, wantTo)
	}
	if !w.endExclusive {
		t.Fatal("yesterday must exclude the start of today")
	}
}

func TestNamedWindowToday(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 4, 5, 0, time.UTC)

	w := namedWindow(DateToday, now)
	if w == nil {
		t.Fatal("expected a window for today")
	}
	if !w.from.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) || !w.to.Equal(now) {
		t.Fatalf("unexpected today window [%v, %v]", w.from, w.to)
	}
	if w.endExclusive {
		t.Fatal("today must include now")
	}
}

func TestNamedWindowUnknown(t *testing.T) {
	if w := namedWindow(DateAll, time.Now()); w != nil {
		t.Fatalf("expected nil window for %q, got %+v", DateAll, w)
	}
	if w := namedWindow("fortnight", time.Now()); w != nil {
		t.Fatalf("expected nil window for unknown name, got %+v", w)
	}
}

func TestResolveListWindowPrecedence(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// Explicit range beats the named filter.
	w := resolveListWindow(ListQuery{
		DateFilter: DateLast7Days,
		StartDate:  &start,
		EndDate:    &end,
	}, now)
	if w == nil || !w.from.Equal(start) || !w.to.Equal(end) {
		t.Fatalf("expected explicit range to win, got %+v", w)
	}

	// isRecent beats everything.
	w = resolveListWindow(ListQuery{
		DateFilter: DateLast7Days,
		StartDate:  &start,
		EndDate:    &end,
		IsRecent:   true,
	}, now)
	if w == nil || !w.from.Equal(now.Add(-24*time.Hour)) || !w.to.Equal(now) {
		t.Fatalf("expected last-24h window, got %+v", w)
	}

	// A lone startDate is not a range; the named filter still applies.
	w = resolveListWindow(ListQuery{
		DateFilter: DateLast7Days,
		StartDate:  &start,
	}, now)
	if w == nil || !w.from.Equal(now.AddDate(0, 0, -7)) {
		t.Fatalf("expected last7days window, got %+v", w)
	}

	// dateFilter=all disables the window.
	if w := resolveListWindow(ListQuery{DateFilter: DateAll}, now); w != nil {
		t.Fatalf("expected no window for dateFilter=all, got %+v", w)
	}
}

func TestResolveStatsWindowDefault(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	w := resolveStatsWindow(StatsQuery{}, now)
	if w == nil || !w.from.Equal(now.AddDate(0, 0, -30)) {
		t.Fatalf("expected default last30days window, got %+v", w)
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	w = resolveStatsWindow(StatsQuery{Period: PeriodCustom, StartDate: &start, EndDate: &end}, now)
	if w == nil || !w.from.Equal(start) || !w.to.Equal(end) {
		t.Fatalf("expected custom window, got %+v", w)
	}
}

func TestFilterTreeRender(t *testing.T) {
	var empty filterTree
	where, args := empty.render(1)
	if where != "TRUE" || len(args) != 0 {
		t.Fatalf("empty tree rendered %q with %d args", where, len(args))
	}

	var tr filterTree
	tr.where("type = %s", "policy")
	tr.where("is_visible = %s", true)
	tr.anyOf(
		predicate{expr: "agent_id = %s", arg: "agent-1"},
		predicate{expr: "user_id = %s", arg: "agent-1"},
	)

	where, args = tr.render(3)
	want := "type = $3 AND is_visible = $4 AND (agent_id = $5 OR user_id = $6)"
	if where != want {
		t.Fatalf("rendered %q, want %q", where, want)
	}
	if len(args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(args))
	}
}

func TestBuildListFilterAgentScope(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	actor := Actor{ID: "agent-1", Role: auth.RoleAgent}

	typ := TypePolicy
	tree := buildListFilter(ListQuery{Type: &typ}, actor, now)
	where, args := tree.render(1)

	if !strings.Contains(where, "(agent_id = $") || !strings.Contains(where, " OR user_id = $") {
		t.Fatalf("agent scope disjunction missing from %q", where)
	}
	if !strings.Contains(where, "is_visible = $") {
		t.Fatalf("visibility guard missing from %q", where)
	}

	// Actor id appears twice: once per branch of the disjunction.
	var hits int
	for _, a := range args {
		if a == "agent-1" {
			hits++
		}
	}
	if hits != 2 {
		t.Fatalf("expected actor id bound twice, got %d in %v", hits, args)
	}

	// Managers get no scope clause.
	tree = buildListFilter(ListQuery{Type: &typ}, Actor{ID: "m", Role: auth.RoleManager}, now)
	where, _ = tree.render(1)
	if strings.Contains(where, "OR user_id") {
		t.Fatalf("manager filter must not carry the agent disjunction: %q", where)
	}
}

func TestBuildStatsFilterAgentParam(t *testing.T) {
	agentID := "agent-7"

	// Non-agent callers may narrow to one agent.
	tree := buildStatsFilter(StatsQuery{AgentID: &agentID}, Actor{ID: "m", Role: auth.RoleManager})
	where, args := tree.render(1)
	if !strings.Contains(where, "agent_id = $") {
		t.Fatalf("expected agent narrowing for manager, got %q", where)
	}
	var found bool
	for _, a := range args {
		if a == agentID {
			found = true
		}
	}
	if !found {
		t.Fatalf("agent id missing from args %v", args)
	}

	// An agent's own scope wins; the requested agentId is ignored.
	tree = buildStatsFilter(StatsQuery{AgentID: &agentID}, Actor{ID: "agent-1", Role: auth.RoleAgent})
	_, args = tree.render(1)
	for _, a := range args {
		if a == agentID {
			t.Fatalf("agent caller must not filter by a foreign agent id: %v", args)
		}
	}
}

func TestSortColumn(t *testing.T) {
	if got := sortColumn("entityName"); got != "entity_name" {
		t.Fatalf("entityName mapped to %q", got)
	}
	if got := sortColumn("updatedAt"); got != "updated_at" {
		t.Fatalf("updatedAt mapped to %q", got)
	}
	if got := sortColumn("drop table"); got != "created_at" {
		t.Fatalf("unknown key must fall back to created_at, got %q", got)
	}
}
