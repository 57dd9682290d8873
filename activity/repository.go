package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotFound signals the requested activity does not exist.
	ErrNotFound = errors.New("activity: not found")
	// ErrAccessDenied signals the actor may not touch the requested activity.
	ErrAccessDenied = errors.New("activity: access denied")
)

// Repository provides persistence for activities. List executes its count and
// fetch as two independent reads over the same filter; the total may lag
// concurrent writers, which is accepted behavior.
type Repository interface {
	List(ctx context.Context, f filterTree, sortBy, sortOrder string, limit, offset int) ([]Activity, int, error)
	GetByID(ctx context.Context, id string) (Activity, error)
	Create(ctx context.Context, a Activity) (Activity, error)
	Update(ctx context.Context, a Activity) (Activity, error)
	SoftDelete(ctx context.Context, id, actorID string) error
	Stats(ctx context.Context, base filterTree, window *dateWindow, groupBy string, now time.Time) (Stats, error)
	Search(ctx context.Context, f filterTree, query string, limit int) ([]Activity, error)
	CountEligible(ctx context.Context, ids []string, ownerID *string) (int, error)
	ApplyBulk(ctx context.Context, ids []string, action BulkAction, value, actorID string) error
}

// TypeCount is one row of the per-type stats breakdown.
type TypeCount struct {
	Type         Type
	Count        int
	HighPriority int
}

// GroupCount is one bucket of an optional stats grouping.
type GroupCount struct {
	Key   string
	Count int
	Types []string
}

// Grouping is the optional top-10 breakdown requested via groupBy.
type Grouping struct {
	Field string
	Data  []GroupCount
}

// Stats is the aggregation result for the stats endpoint.
type Stats struct {
	Total     int
	Recent    int
	ByType    []TypeCount
	Period    string
	GroupedBy *Grouping
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed activity repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const activityColumns = `id, type, entity_type, entity_id, entity_name, action, description, details,
	agent_id, agent_name, user_id, user_name, client_id, metadata, priority, status,
	is_visible, tags, is_system_generated, created_by, updated_by, created_at, updated_at`

// List runs the filtered count and the filtered page fetch concurrently.
// The two reads share no snapshot, so the total is only eventually consistent
// with the page under concurrent writes.
func (r *PGRepository) List(ctx context.Context, f filterTree, sortBy, sortOrder string, limit, offset int) ([]Activity, int, error) {
	where, args := f.render(1)

	order := strings.ToUpper(sortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	fetchSQL := fmt.Sprintf(`SELECT %s FROM activities WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		activityColumns, where, sortColumn(sortBy), order, limit, offset)
	countSQL := fmt.Sprintf(`SELECT COUNT(*) FROM activities WHERE %s`, where)

	var (
		items []Activity
		total int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, fetchSQL, args...)
		if err != nil {
			return fmt.Errorf("activity: query list: %w", err)
		}
		defer rows.Close()

		out := make([]Activity, 0, limit)
		for rows.Next() {
			a, err := scanActivity(rows)
			if err != nil {
				return fmt.Errorf("activity: scan list row: %w", err)
			}
			out = append(out, a)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("activity: iterate list: %w", err)
		}
		items = out
		return nil
	})
	g.Go(func() error {
		if err := r.pool.QueryRow(gctx, countSQL, args...).Scan(&total); err != nil {
			return fmt.Errorf("activity: count list: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetByID fetches one activity. The visibility flag is deliberately not
// applied here: hidden records stay fetchable by id for authorized actors.
func (r *PGRepository) GetByID(ctx context.Context, id string) (Activity, error) {
	query := fmt.Sprintf(`SELECT %s FROM activities WHERE id::text = $1`, activityColumns)

	a, err := scanActivity(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activity{}, ErrNotFound
		}
		return Activity{}, fmt.Errorf("activity: get by id: %w", err)
	}
	return a, nil
}

// Create inserts a fully defaulted activity.
func (r *PGRepository) Create(ctx context.Context, a Activity) (Activity, error) {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return Activity{}, fmt.Errorf("activity: encode metadata: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO activities (id, type, entity_type, entity_id, entity_name, action, description, details,
			agent_id, agent_name, user_id, user_name, client_id, metadata, priority, status,
			is_visible, tags, is_system_generated, created_by, updated_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
		RETURNING %s`, activityColumns)

	created, err := scanActivity(r.pool.QueryRow(ctx, query,
		a.ID, a.Type, a.EntityType, a.EntityID, a.EntityName, a.Action, a.Description, a.Details,
		a.AgentID, a.AgentName, a.UserID, a.UserName, a.ClientID, meta, a.Priority, a.Status,
		a.IsVisible, a.Tags, a.IsSystemGenerated, a.CreatedBy, a.UpdatedBy))
	if err != nil {
		return Activity{}, fmt.Errorf("activity: create: %w", err)
	}
	return created, nil
}

// Update persists the mutable columns of a. The immutable columns
// (entity_type, entity_id, created_by, created_at) are never part of the
// statement.
func (r *PGRepository) Update(ctx context.Context, a Activity) (Activity, error) {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return Activity{}, fmt.Errorf("activity: encode metadata: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE activities
		SET type = $2, entity_name = $3, action = $4, description = $5, details = $6,
			agent_id = $7, agent_name = $8, user_id = $9, user_name = $10, client_id = $11,
			metadata = $12, priority = $13, status = $14, is_visible = $15, tags = $16,
			is_system_generated = $17, updated_by = $18, updated_at = now()
		WHERE id::text = $1
		RETURNING %s`, activityColumns)

	updated, err := scanActivity(r.pool.QueryRow(ctx, query,
		a.ID, a.Type, a.EntityName, a.Action, a.Description, a.Details,
		a.AgentID, a.AgentName, a.UserID, a.UserName, a.ClientID,
		meta, a.Priority, a.Status, a.IsVisible, a.Tags,
		a.IsSystemGenerated, a.UpdatedBy))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activity{}, ErrNotFound
		}
		return Activity{}, fmt.Errorf("activity: update: %w", err)
	}
	return updated, nil
}

// SoftDelete hides the activity. Repeated calls leave it hidden and do not
// error.
func (r *PGRepository) SoftDelete(ctx context.Context, id, actorID string) error {
	const query = `
		UPDATE activities
		SET status = 'hidden', is_visible = FALSE, updated_by = $2, updated_at = now()
		WHERE id::text = $1
		RETURNING id`

	var deleted string
	if err := r.pool.QueryRow(ctx, query, id, actorID).Scan(&deleted); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("activity: soft delete: %w", err)
	}
	return nil
}

// Stats computes the aggregation bundle: total and per-type counts within the
// window, a last-24h count that ignores the window, and an optional top-10
// grouping.
func (r *PGRepository) Stats(ctx context.Context, base filterTree, window *dateWindow, groupBy string, now time.Time) (Stats, error) {
	matched := base
	matched.applyWindow(window)
	matchedWhere, matchedArgs := matched.render(1)

	var out Stats

	totalSQL := fmt.Sprintf(`SELECT COUNT(*) FROM activities WHERE %s`, matchedWhere)
	if err := r.pool.QueryRow(ctx, totalSQL, matchedArgs...).Scan(&out.Total); err != nil {
		return Stats{}, fmt.Errorf("activity: stats total: %w", err)
	}

	byTypeSQL := fmt.Sprintf(`
		SELECT type, COUNT(*), COUNT(*) FILTER (WHERE priority IN ('high', 'critical'))
		FROM activities
		WHERE %s
		GROUP BY type
		ORDER BY 2 DESC`, matchedWhere)
	rows, err := r.pool.Query(ctx, byTypeSQL, matchedArgs...)
	if err != nil {
		return Stats{}, fmt.Errorf("activity: stats by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tc TypeCount
		if err := rows.Scan(&tc.Type, &tc.Count, &tc.HighPriority); err != nil {
			return Stats{}, fmt.Errorf("activity: scan type count: %w", err)
		}
		out.ByType = append(out.ByType, tc)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("activity: iterate type counts: %w", err)
	}

	recent := base
	recent.applyWindow(&dateWindow{from: now.Add(-24 * time.Hour), to: now})
	recentWhere, recentArgs := recent.render(1)
	recentSQL := fmt.Sprintf(`SELECT COUNT(*) FROM activities WHERE %s`, recentWhere)
	if err := r.pool.QueryRow(ctx, recentSQL, recentArgs...).Scan(&out.Recent); err != nil {
		return Stats{}, fmt.Errorf("activity: stats recent: %w", err)
	}

	if groupBy != "" {
		grouping, err := r.statsGrouping(ctx, matchedWhere, matchedArgs, groupBy)
		if err != nil {
			return Stats{}, err
		}
		out.GroupedBy = grouping
	}

	return out, nil
}

func (r *PGRepository) statsGrouping(ctx context.Context, where string, args []any, groupBy string) (*Grouping, error) {
	expr, ok := groupExpression(groupBy)
	if !ok {
		return nil, fmt.Errorf("activity: unknown groupBy %q", groupBy)
	}

	query := fmt.Sprintf(`
		SELECT %s AS grp, COUNT(*), ARRAY_AGG(DISTINCT type)
		FROM activities
		WHERE %s
		GROUP BY grp
		ORDER BY 2 DESC
		LIMIT 10`, expr, where)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("activity: stats grouping: %w", err)
	}
	defer rows.Close()

	grouping := &Grouping{Field: groupBy}
	for rows.Next() {
		var gc GroupCount
		if err := rows.Scan(&gc.Key, &gc.Count, &gc.Types); err != nil {
			return nil, fmt.Errorf("activity: scan grouping row: %w", err)
		}
		grouping.Data = append(grouping.Data, gc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity: iterate grouping: %w", err)
	}
	return grouping, nil
}

func groupExpression(groupBy string) (string, bool) {
	switch groupBy {
	case "type":
		return "type", true
	case "agent":
		return "agent_id::text", true
	case "client":
		return "COALESCE(client_id::text, '')", true
	case "day":
		return "to_char(date_trunc('day', created_at), 'YYYY-MM-DD')", true
	case "week":
		return "to_char(date_trunc('week', created_at), 'YYYY-MM-DD')", true
	case "month":
		return "to_char(date_trunc('month', created_at), 'YYYY-MM')", true
	}
	return "", false
}

// Search returns up to limit activities ranked by text relevance, breaking
// ties by recency.
func (r *PGRepository) Search(ctx context.Context, f filterTree, query string, limit int) ([]Activity, error) {
	where, args := f.render(2)
	args = append([]any{query}, args...)

	searchSQL := fmt.Sprintf(`
		SELECT %s, ts_rank(search_vector, plainto_tsquery('english', $1)) AS rank
		FROM activities
		WHERE %s
		ORDER BY rank DESC, created_at DESC
		LIMIT %d`, activityColumns, where, limit)

	rows, err := r.pool.Query(ctx, searchSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("activity: search: %w", err)
	}
	defer rows.Close()

	out := make([]Activity, 0, limit)
	for rows.Next() {
		a, err := scanActivityWithRank(rows)
		if err != nil {
			return nil, fmt.Errorf("activity: scan search row: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("activity: iterate search: %w", err)
	}
	return out, nil
}

// CountEligible counts how many of ids resolve to activities the owner may
// touch. A nil ownerID skips the ownership restriction.
func (r *PGRepository) CountEligible(ctx context.Context, ids []string, ownerID *string) (int, error) {
	query := `SELECT COUNT(*) FROM activities WHERE id::text = ANY($1)`
	args := []any{ids}
	if ownerID != nil {
		query += ` AND (agent_id::text = $2 OR user_id::text = $2)`
		args = append(args, *ownerID)
	}

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("activity: count eligible: %w", err)
	}
	return count, nil
}

// ApplyBulk applies one mutation uniformly across the target set. The
// eligibility check has already run before this is called; there is no
// cross-document transaction.
func (r *PGRepository) ApplyBulk(ctx context.Context, ids []string, action BulkAction, value, actorID string) error {
	var (
		set  string
		args = []any{ids}
	)

	switch action {
	case BulkArchive:
		set = `status = 'archived', updated_by = $2, updated_at = now()`
		args = append(args, actorID)
	case BulkHide:
		set = `is_visible = FALSE, updated_by = $2, updated_at = now()`
		args = append(args, actorID)
	case BulkShow:
		set = `is_visible = TRUE, updated_by = $2, updated_at = now()`
		args = append(args, actorID)
	case BulkDelete:
		set = `status = 'hidden', is_visible = FALSE, updated_by = $2, updated_at = now()`
		args = append(args, actorID)
	case BulkAddTag:
		set = `tags = CASE WHEN $2 = ANY(tags) THEN tags ELSE array_append(tags, $2) END, updated_at = now()`
		args = append(args, value)
	case BulkRemoveTag:
		set = `tags = array_remove(tags, $2), updated_at = now()`
		args = append(args, value)
	case BulkChangePriority:
		set = `priority = $2, updated_by = $3, updated_at = now()`
		args = append(args, value, actorID)
	default:
		return fmt.Errorf("activity: unknown bulk action %q", action)
	}

	query := fmt.Sprintf(`UPDATE activities SET %s WHERE id::text = ANY($1)`, set)
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("activity: apply bulk %s: %w", action, err)
	}
	return nil
}

func scanActivity(row pgx.Row) (Activity, error) {
	return scanActivityFields(row, false)
}

func scanActivityWithRank(row pgx.Row) (Activity, error) {
	return scanActivityFields(row, true)
}

func scanActivityFields(row pgx.Row, withRank bool) (Activity, error) {
	var (
		a        Activity
		clientID *string
		meta     []byte
		tags     []string
	)

	dest := []any{
		&a.ID, &a.Type, &a.EntityType, &a.EntityID, &a.EntityName,
		&a.Action, &a.Description, &a.Details,
		&a.AgentID, &a.AgentName, &a.UserID, &a.UserName, &clientID,
		&meta, &a.Priority, &a.Status,
		&a.IsVisible, &tags, &a.IsSystemGenerated,
		&a.CreatedBy, &a.UpdatedBy, &a.CreatedAt, &a.UpdatedAt,
	}
	if withRank {
		var rank float32
		dest = append(dest, &rank)
	}

	if err := row.Scan(dest...); err != nil {
		return Activity{}, err
	}

	a.ClientID = clientID
	a.Tags = tags
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &a.Metadata); err != nil {
			return Activity{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return a, nil
}
