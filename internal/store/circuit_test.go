package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/Lakshya182005/CircuitCrafter/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCircuitRepoMock(t *testing.T) (*CircuitRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewCircuitRepository(db), mock
}

var circuitRowColumns = []string{
	"id", "owner_id", "name", "nodes", "edges", "is_public", "type", "description", "thumbnail_key", "created_at", "updated_at",
}

func circuitRow(id, ownerID uuid.UUID, name string, isPublic bool, extra ...any) *sqlmock.Rows {
	now := time.Now()
	columns := circuitRowColumns
	if len(extra) > 0 {
		columns = append(append([]string{}, columns...), "username")
	}
	values := []driver.Value{
		id.String(), ownerID.String(), name, []byte("[]"), []byte("[]"), isPublic,
		types.CircuitTypeCombinational, "", "", now, now,
	}
	for _, e := range extra {
		values = append(values, e)
	}
	return sqlmock.NewRows(columns).AddRow(values...)
}

func TestCircuitListOwnerSearch(t *testing.T) {
	repo, mock := newCircuitRepoMock(t)
	owner := uuid.New()
	id := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM circuits c WHERE c\.owner_id = \$1 AND c\.name ILIKE \$2`).
		WithArgs(owner, "%half%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT c\.id, .+ FROM circuits c WHERE c\.owner_id = \$1 AND c\.name ILIKE \$2 ORDER BY c\.updated_at DESC OFFSET \$3 LIMIT \$4`).
		WithArgs(owner, "%half%", 0, 10).
		WillReturnRows(circuitRow(id, owner, "half adder", false))

	circuits, total, err := repo.List(context.Background(), CircuitFilter{
		OwnerID: &owner,
		Search:  "half",
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, circuits, 1)
	assert.Equal(t, "half adder", circuits[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitListEscapesLikeInput(t *testing.T) {
	repo, mock := newCircuitRepoMock(t)

	// Metacharacters in the search term match literally.
	mock.ExpectQuery(`SELECT COUNT\(1\) FROM circuits c WHERE c\.name ILIKE \$1`).
		WithArgs(`%50\% duty\_cycle%`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT c\.id, .+ FROM circuits c WHERE c\.name ILIKE \$1 ORDER BY`).
		WithArgs(`%50\% duty\_cycle%`, 0, 10).
		WillReturnRows(sqlmock.NewRows(circuitRowColumns))

	_, total, err := repo.List(context.Background(), CircuitFilter{Search: "50% duty_cycle", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitListPublicJoinsUsername(t *testing.T) {
	repo, mock := newCircuitRepoMock(t)
	owner := uuid.New()
	id := uuid.New()

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM circuits c WHERE c\.is_public = true`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT c\.id, .+, u\.username FROM circuits c JOIN users u ON u\.id = c\.owner_id WHERE c\.is_public = true ORDER BY LOWER\(c\.name\) ASC OFFSET \$1 LIMIT \$2`).
		WithArgs(0, 10).
		WillReturnRows(circuitRow(id, owner, "shared", true, "alice"))

	circuits, _, err := repo.List(context.Background(), CircuitFilter{
		PublicOnly: true,
		Sort:       SortNameAZ,
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, circuits, 1)
	assert.Equal(t, "alice", circuits[0].Username)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitGetOwnedNotFound(t *testing.T) {
	repo, mock := newCircuitRepoMock(t)
	id := uuid.New()
	owner := uuid.New()

	mock.ExpectQuery(`SELECT c\.id, .+\s+FROM circuits c\s+WHERE c\.id = \$1 AND c\.owner_id = \$2`).
		WithArgs(id, owner).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetOwned(context.Background(), id, owner)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitCreate(t *testing.T) {
	repo, mock := newCircuitRepoMock(t)
	owner := uuid.New()
	id := uuid.New()

	mock.ExpectQuery(`INSERT INTO circuits \(owner_id, name, nodes, edges, is_public, type, description, thumbnail_key, created_at, updated_at\)\s+VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7, \$8, \$9, \$10\)\s+RETURNING id`).
		WithArgs(owner, "adder", []byte("[]"), []byte("[]"), false, types.CircuitTypeCombinational, "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id.String()))

	circuit, err := repo.Create(context.Background(), types.Circuit{
		OwnerID: owner,
		Name:    "adder",
		Type:    types.CircuitTypeCombinational,
	})
	require.NoError(t, err)
	assert.Equal(t, id, circuit.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitUpdateScopedToOwner(t *testing.T) {
	repo, mock := newCircuitRepoMock(t)
	id := uuid.New()
	owner := uuid.New()

	mock.ExpectExec(`UPDATE circuits\s+SET name = \$1,`).
		WithArgs("renamed", []byte("[]"), []byte("[]"), false, types.CircuitTypeCombinational, "", "", sqlmock.AnyArg(), id, owner).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := repo.Update(context.Background(), types.Circuit{
		ID:      id,
		OwnerID: owner,
		Name:    "renamed",
		Type:    types.CircuitTypeCombinational,
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCircuitDelete(t *testing.T) {
	repo, mock := newCircuitRepoMock(t)
	id := uuid.New()
	owner := uuid.New()

	mock.ExpectExec(`DELETE FROM circuits WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(id, owner).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), id, owner))

	mock.ExpectExec(`DELETE FROM circuits WHERE id = \$1 AND owner_id = \$2`).
		WithArgs(id, owner).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), id, owner), ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
