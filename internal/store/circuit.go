package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Lakshya182005/CircuitCrafter/types"
	"github.com/google/uuid"
)

// Sort keys accepted by circuit listings. Unknown values fall back to newest.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortNameAZ = "az"
	SortNameZA = "za"
)

// CircuitFilter narrows and orders a circuit listing.
type CircuitFilter struct {
	// OwnerID scopes the listing to one owner when non-nil.
	OwnerID *uuid.UUID
	// PublicOnly restricts the listing to public circuits.
	PublicOnly bool
	// Search matches the circuit name case-insensitively as a substring.
	Search string
	// Type filters on the circuit category when non-empty.
	Type string
	// Sort is one of the Sort* keys.
	Sort string
	// Offset and Limit implement offset pagination.
	Offset int
	Limit  int
}

// CircuitRepository handles persistence for circuits.
type CircuitRepository struct {
	db *sql.DB
}

func NewCircuitRepository(db *sql.DB) *CircuitRepository {
	return &CircuitRepository{db: db}
}

const circuitColumns = `c.id, c.owner_id, c.name, c.nodes, c.edges, c.is_public, c.type, c.description, c.thumbnail_key, c.created_at, c.updated_at`

// List returns the circuits matching the filter plus the total match count
// before pagination. Public listings carry each owner's username.
func (r *CircuitRepository) List(ctx context.Context, filter CircuitFilter) ([]types.Circuit, int, error) {
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	where, args := buildCircuitWhere(filter)

	countQuery := `SELECT COUNT(1) FROM circuits c` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	columns := circuitColumns
	join := ""
	if filter.PublicOnly {
		columns += `, u.username`
		join = ` JOIN users u ON u.id = c.owner_id`
	}

	listQuery := fmt.Sprintf(
		`SELECT %s FROM circuits c%s%s ORDER BY %s OFFSET $%d LIMIT $%d`,
		columns, join, where, orderClause(filter.Sort), len(args)+1, len(args)+2,
	)
	args = append(args, filter.Offset, filter.Limit)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	circuits := make([]types.Circuit, 0, filter.Limit)
	for rows.Next() {
		var circuit types.Circuit
		dest := []any{
			&circuit.ID,
			&circuit.OwnerID,
			&circuit.Name,
			&circuit.Nodes,
			&circuit.Edges,
			&circuit.IsPublic,
			&circuit.Type,
			&circuit.Description,
			&circuit.ThumbnailKey,
			&circuit.CreatedAt,
			&circuit.UpdatedAt,
		}
		if filter.PublicOnly {
			dest = append(dest, &circuit.Username)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, err
		}
		circuits = append(circuits, circuit)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return circuits, total, nil
}

// Get loads a circuit by id regardless of owner.
func (r *CircuitRepository) Get(ctx context.Context, id uuid.UUID) (types.Circuit, error) {
	const query = `
		SELECT ` + circuitColumns + `
		FROM circuits c
		WHERE c.id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetOwned loads a circuit scoped to (id, owner). A circuit owned by someone
// else is indistinguishable from a nonexistent one.
func (r *CircuitRepository) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (types.Circuit, error) {
	const query = `
		SELECT ` + circuitColumns + `
		FROM circuits c
		WHERE c.id = $1 AND c.owner_id = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id, ownerID))
}

func (r *CircuitRepository) Create(ctx context.Context, circuit types.Circuit) (types.Circuit, error) {
	now := time.Now()
	circuit.CreatedAt = now
	circuit.UpdatedAt = now

	const query = `
		INSERT INTO circuits (owner_id, name, nodes, edges, is_public, type, description, thumbnail_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		circuit.OwnerID,
		circuit.Name,
		rawOrEmptyArray(circuit.Nodes),
		rawOrEmptyArray(circuit.Edges),
		circuit.IsPublic,
		circuit.Type,
		circuit.Description,
		circuit.ThumbnailKey,
		circuit.CreatedAt,
		circuit.UpdatedAt,
	).Scan(&circuit.ID); err != nil {
		return types.Circuit{}, err
	}
	return circuit, nil
}

// Update overwrites the mutable fields of a circuit scoped to its owner.
// The owner id itself is never updated.
func (r *CircuitRepository) Update(ctx context.Context, circuit types.Circuit) (types.Circuit, error) {
	circuit.UpdatedAt = time.Now()

	const query = `
		UPDATE circuits
		SET name = $1,
			nodes = $2,
			edges = $3,
			is_public = $4,
			type = $5,
			description = $6,
			thumbnail_key = $7,
			updated_at = $8
		WHERE id = $9 AND owner_id = $10`
	result, err := r.db.ExecContext(
		ctx,
		query,
		circuit.Name,
		rawOrEmptyArray(circuit.Nodes),
		rawOrEmptyArray(circuit.Edges),
		circuit.IsPublic,
		circuit.Type,
		circuit.Description,
		circuit.ThumbnailKey,
		circuit.UpdatedAt,
		circuit.ID,
		circuit.OwnerID,
	)
	if err != nil {
		return types.Circuit{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Circuit{}, err
	}
	if affected == 0 {
		return types.Circuit{}, ErrNotFound
	}
	return circuit, nil
}

// Delete removes a circuit scoped to (id, owner).
func (r *CircuitRepository) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	const query = `DELETE FROM circuits WHERE id = $1 AND owner_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CircuitRepository) scanOne(row *sql.Row) (types.Circuit, error) {
	var circuit types.Circuit
	err := row.Scan(
		&circuit.ID,
		&circuit.OwnerID,
		&circuit.Name,
		&circuit.Nodes,
		&circuit.Edges,
		&circuit.IsPublic,
		&circuit.Type,
		&circuit.Description,
		&circuit.ThumbnailKey,
		&circuit.CreatedAt,
		&circuit.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Circuit{}, ErrNotFound
		}
		return types.Circuit{}, err
	}
	return circuit, nil
}

func buildCircuitWhere(filter CircuitFilter) (string, []any) {
	clauses := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("c.owner_id = $%d", len(args)))
	}
	if filter.PublicOnly {
		clauses = append(clauses, "c.is_public = true")
	}
	if filter.Search != "" {
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		clauses = append(clauses, fmt.Sprintf("c.name ILIKE $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		clauses = append(clauses, fmt.Sprintf("c.type = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func orderClause(sort string) string {
	switch sort {
	case SortOldest:
		return "c.updated_at ASC"
	case SortNameAZ:
		return "LOWER(c.name) ASC"
	case SortNameZA:
		return "LOWER(c.name) DESC"
	default:
		return "c.updated_at DESC"
	}
}

// escapeLike neutralizes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

// rawOrEmptyArray keeps absent payloads as empty JSON arrays so scans never
// yield NULL.
func rawOrEmptyArray(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("[]")
	}
	return raw
}
