package directory

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides read access to display projections of users and
// clients. Agents are users; they live in the same table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed directory repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UsersByIDs fetches display projections for the given user ids, keyed by id.
// Unknown ids are simply absent from the result.
func (r *Repository) UsersByIDs(ctx context.Context, ids []string) (map[string]Person, error) {
	if len(ids) == 0 {
		return map[string]Person{}, nil
	}

	const query = `
		SELECT id, first_name || ' ' || last_name, email, phone
		FROM users
		WHERE id::text = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("directory: query users: %w", err)
	}
	defer rows.Close()

	return collectPeople(rows)
}

// ClientsByIDs fetches display projections for the given client ids, keyed by
// id.
func (r *Repository) ClientsByIDs(ctx context.Context, ids []string) (map[string]Person, error) {
	if len(ids) == 0 {
		return map[string]Person{}, nil
	}

	const query = `
		SELECT id, name, email, phone
		FROM clients
		WHERE id::text = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("directory: query clients: %w", err)
	}
	defer rows.Close()

	return collectPeople(rows)
}

func collectPeople(rows pgx.Rows) (map[string]Person, error) {
	out := make(map[string]Person)
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Phone); err != nil {
			return nil, fmt.Errorf("directory: scan person: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory: iterate people: %w", err)
	}
	return out, nil
}
