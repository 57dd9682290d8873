package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"agencycrm/auth"
	"agencycrm/test/infra"

	"github.com/google/uuid"
)

// TestRepository_Integration runs the repository against a real PostgreSQL,
// started via testcontainers (or reused via INTEGRATION_PG_DSN).
func TestRepository_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgc, dsn, err := infra.StartPostgres16(ctx)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pgc.Terminate(context.Background()) })

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	t.Cleanup(func() {
		pool.Close()
		_ = teardown(context.Background())
	})

	repo := NewRepository(pool)
	now := time.Now()

	agent := Actor{ID: uuid.NewString(), Role: auth.RoleAgent, FirstName: "Alice", LastName: "Agent"}
	manager := Actor{ID: uuid.NewString(), Role: auth.RoleManager, FirstName: "Mona", LastName: "Manager"}

	owned := seedActivity(ctx, t, repo, func(a *Activity) {
		a.AgentID = agent.ID
		a.Action = "Issued renewal quotation"
		a.Description = "Prepared the annual renewal quotation for the household policy"
		a.Priority = PriorityHigh
	})
	foreign := seedActivity(ctx, t, repo, func(a *Activity) {
		a.Type = TypeClaim
		a.EntityType = EntityClaim
		a.Action = "Opened claim"
		a.Description = "Windshield damage claim opened after the storm"
		a.Tags = []string{"claims", "urgent"}
	})

	t.Run("list scoped to agent", func(t *testing.T) {
		active := StatusActive
		tree := buildListFilter(ListQuery{Status: &active}, agent, now)

		items, total, err := repo.List(ctx, tree, "createdAt", "desc", 20, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 1 || len(items) != 1 || items[0].ID != owned.ID {
			t.Fatalf("agent must only see the owned record, got total=%d items=%v", total, ids(items))
		}

		tree = buildListFilter(ListQuery{Status: &active}, manager, now)
		_, total, err = repo.List(ctx, tree, "createdAt", "desc", 20, 0)
		if err != nil {
			t.Fatalf("list as manager: %v", err)
		}
		if total != 2 {
			t.Fatalf("manager must see both records, got %d", total)
		}
	})

	t.Run("list by tags", func(t *testing.T) {
		active := StatusActive
		tree := buildListFilter(ListQuery{Status: &active, Tags: []string{"urgent", "other"}}, manager, now)

		items, _, err := repo.List(ctx, tree, "createdAt", "desc", 20, 0)
		if err != nil {
			t.Fatalf("list by tags: %v", err)
		}
		if len(items) != 1 || items[0].ID != foreign.ID {
			t.Fatalf("tag any-match must return the tagged record, got %v", ids(items))
		}
	})

	t.Run("search ranks matches", func(t *testing.T) {
		tree := buildSearchFilter(SearchQuery{Query: "renewal quotation"}, manager)

		items, err := repo.Search(ctx, tree, "renewal quotation", 10)
		if err != nil {
			t.Fatalf("search: %v", err)
		}
		if len(items) != 1 || items[0].ID != owned.ID {
			t.Fatalf("expected the quotation record, got %v", ids(items))
		}
	})

	t.Run("stats", func(t *testing.T) {
		base := buildStatsFilter(StatsQuery{}, manager)
		window := resolveStatsWindow(StatsQuery{}, now)

		st, err := repo.Stats(ctx, base, window, "type", now)
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if st.Total != 2 || st.Recent != 2 {
			t.Fatalf("expected total=2 recent=2, got total=%d recent=%d", st.Total, st.Recent)
		}

		var highPriority int
		for _, tc := range st.ByType {
			if tc.Type == TypePolicy {
				highPriority = tc.HighPriority
			}
		}
		if highPriority != 1 {
			t.Fatalf("expected one high-priority policy activity, got %d", highPriority)
		}
		if st.GroupedBy == nil || st.GroupedBy.Field != "type" || len(st.GroupedBy.Data) != 2 {
			t.Fatalf("unexpected grouping: %+v", st.GroupedBy)
		}
	})

	t.Run("update keeps immutable columns", func(t *testing.T) {
		changed := owned
		changed.Description = "Revised renewal quotation after discount approval"
		changed.UpdatedBy = manager.ID

		updated, err := repo.Update(ctx, changed)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.Description != changed.Description {
			t.Fatalf("description not updated: %q", updated.Description)
		}
		if updated.CreatedBy != owned.CreatedBy || !updated.CreatedAt.Equal(owned.CreatedAt) {
			t.Fatalf("created_by/created_at must not change: %+v", updated)
		}
		if !updated.UpdatedAt.After(owned.UpdatedAt) {
			t.Fatalf("updated_at must advance, got %v", updated.UpdatedAt)
		}
		owned = updated
	})

	t.Run("bulk tag lifecycle", func(t *testing.T) {
		eligible, err := repo.CountEligible(ctx, []string{owned.ID, foreign.ID}, &agent.ID)
		if err != nil {
			t.Fatalf("count eligible: %v", err)
		}
		if eligible != 1 {
			t.Fatalf("agent owns one of two records, got %d", eligible)
		}

		if err := repo.ApplyBulk(ctx, []string{owned.ID}, BulkAddTag, "follow-up", agent.ID); err != nil {
			t.Fatalf("add tag: %v", err)
		}
		// Adding the same tag twice must not duplicate it.
		if err := repo.ApplyBulk(ctx, []string{owned.ID}, BulkAddTag, "follow-up", agent.ID); err != nil {
			t.Fatalf("add tag again: %v", err)
		}

		got, err := repo.GetByID(ctx, owned.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if count(got.Tags, "follow-up") != 1 {
			t.Fatalf("expected the tag exactly once, got %v", got.Tags)
		}

		if err := repo.ApplyBulk(ctx, []string{owned.ID}, BulkRemoveTag, "follow-up", agent.ID); err != nil {
			t.Fatalf("remove tag: %v", err)
		}
		got, err = repo.GetByID(ctx, owned.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if count(got.Tags, "follow-up") != 0 {
			t.Fatalf("tag not removed: %v", got.Tags)
		}
	})

	t.Run("soft delete hides from lists", func(t *testing.T) {
		if err := repo.SoftDelete(ctx, foreign.ID, manager.ID); err != nil {
			t.Fatalf("soft delete: %v", err)
		}
		// Idempotent.
		if err := repo.SoftDelete(ctx, foreign.ID, manager.ID); err != nil {
			t.Fatalf("repeat soft delete: %v", err)
		}

		var tree filterTree
		tree.where("is_visible = %s", true)
		_, total, err := repo.List(ctx, tree, "createdAt", "desc", 20, 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 1 {
			t.Fatalf("hidden record still listed, total=%d", total)
		}

		got, err := repo.GetByID(ctx, foreign.ID)
		if err != nil {
			t.Fatalf("hidden record must stay fetchable by id: %v", err)
		}
		if got.Status != StatusHidden || got.IsVisible {
			t.Fatalf("expected hidden invisible record, got status=%q visible=%v", got.Status, got.IsVisible)
		}
	})

	t.Run("malformed id is not found", func(t *testing.T) {
		if _, err := repo.GetByID(ctx, "definitely-not-a-uuid"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
		}
	})
}

func seedActivity(ctx context.Context, t *testing.T, repo *PGRepository, mutate func(*Activity)) Activity {
	t.Helper()

	a := Activity{
		ID:          uuid.NewString(),
		Type:        TypePolicy,
		EntityType:  EntityPolicy,
		EntityID:    uuid.NewString(),
		EntityName:  "Household Policy",
		Action:      "Created policy",
		Description: "Created a policy record",
		AgentID:     uuid.NewString(),
		AgentName:   "Some Agent",
		UserID:      uuid.NewString(),
		UserName:    "Some User",
		Priority:    PriorityMedium,
		Status:      StatusActive,
		IsVisible:   true,
		Tags:        []string{},
		CreatedBy:   uuid.NewString(),
		UpdatedBy:   uuid.NewString(),
	}
	mutate(&a)

	created, err := repo.Create(ctx, a)
	if err != nil {
		t.Fatalf("seed activity: %v", err)
	}
	return created
}

func ids(items []Activity) []string {
	out := make([]string, 0, len(items))
	for _, a := range items {
		out = append(out, a.ID)
	}
	return out
}

func count(tags []string, tag string) int {
	var n int
	for _, t := range tags {
		if t == tag {
			n++
		}
	}
	return n
}
