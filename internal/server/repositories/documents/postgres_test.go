package documents

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/betclever/internal/common"
	"github.com/dmitrijs2005/betclever/internal/server/models"
	"github.com/dmitrijs2005/betclever/internal/server/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

var docColumns = []string{"id", "user_id", "category", "files", "is_locked", "is_approved", "updated_at"}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)FROM\s+documents\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+array_position`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(docColumns).
			AddRow("d-1", "u-1", "identity", []byte(`[{"key":"u-1/identity/a","name":"pass.pdf","content_type":"application/pdf","size":10}]`), true, false, now).
			AddRow("d-2", "u-1", "bank", []byte(`[]`), false, false, now))

	got, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, workflow.CategoryIdentity, got[0].Category)
	assert.Equal(t, []models.FileRef{{Key: "u-1/identity/a", Name: "pass.pdf", ContentType: "application/pdf", Size: 10}}, got[0].Files)
	assert.True(t, got[0].IsLocked)
	assert.Empty(t, got[1].Files)
}

func TestListByUser_BadJSON(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+documents`).
		WillReturnRows(sqlmock.NewRows(docColumns).AddRow("d-1", "u-1", "card", []byte(`{`), false, false, time.Now()))

	_, err := repo.ListByUser(context.Background(), "u-1")
	assert.Error(t, err)
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE\s+user_id\s*=\s*\$1\s+AND\s+category\s*=\s*\$2$`).
		WithArgs("u-1", workflow.CategoryCard).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "u-1", workflow.CategoryCard)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPut_EncodesFilesAndReadsBackFlags(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+documents\s+\(id,\s*user_id,\s*category,\s*files\)\s+VALUES.*ON\s+CONFLICT\s+\(user_id,\s*category\)\s+DO\s+UPDATE\s+SET\s+files\s*=\s*EXCLUDED\.files.*RETURNING\s+id,\s*is_locked,\s*is_approved,\s*updated_at$`

	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(sqlmock.AnyArg(), "u-1", workflow.CategoryCard, []byte(`[{"key":"k","name":"n.png","content_type":"image/png","size":3}]`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_locked", "is_approved", "updated_at"}).AddRow("existing", false, true, now))

	doc := &models.Document{
		UserID:   "u-1",
		Category: workflow.CategoryCard,
		Files:    []models.FileRef{{Key: "k", Name: "n.png", ContentType: "image/png", Size: 3}},
	}
	require.NoError(t, repo.Put(context.Background(), doc))
	assert.Equal(t, "existing", doc.ID)
	assert.True(t, doc.IsApproved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPut_NilFilesStoredAsEmptyArray(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT\s+INTO\s+documents`).
		WithArgs("d-1", "u-1", workflow.CategoryBank, []byte(`[]`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_locked", "is_approved", "updated_at"}).AddRow("d-1", false, false, time.Now()))

	require.NoError(t, repo.Put(context.Background(), &models.Document{ID: "d-1", UserID: "u-1", Category: workflow.CategoryBank}))
}

func TestLocking(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`(?s)^UPDATE\s+documents\s+SET\s+is_locked\s*=\s*TRUE.*WHERE\s+user_id\s*=\s*\$1$`).
		WithArgs("u-1").WillReturnResult(sqlmock.NewResult(0, 3))
	require.NoError(t, repo.LockAll(context.Background(), "u-1"))

	q := `(?s)^UPDATE\s+documents\s+SET\s+is_locked\s*=\s*\$3.*WHERE\s+user_id\s*=\s*\$1\s+AND\s+category\s*=\s*\$2$`
	mock.ExpectExec(q).WithArgs("u-1", workflow.CategoryCard, false).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetLocked(context.Background(), "u-1", workflow.CategoryCard, false))

	mock.ExpectExec(q).WithArgs("u-1", workflow.CategoryBank, false).WillReturnError(errors.New("down"))
	assert.Error(t, repo.SetLocked(context.Background(), "u-1", workflow.CategoryBank, false))
	require.NoError(t, mock.ExpectationsWereMet())
}
