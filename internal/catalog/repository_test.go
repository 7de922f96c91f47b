package catalog

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func setupCatalogMock(t *testing.T) (Repository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	repo := NewRepository(sqlxDB)

	return repo, mock, func() { sqlxDB.Close() }
}

func packageRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "minutes", "price_cents", "savings_percent", "popular", "active", "created_at"})
}

func TestListActive(t *testing.T) {
	repo, mock, close := setupCatalogMock(t)
	defer close()

	mock.ExpectQuery("SELECT id, name, minutes, price_cents, savings_percent, popular, active, created_at").
		WillReturnRows(packageRows().
			AddRow(1, "Starter", 30, 745, 0, false, true, time.Now()).
			AddRow(2, "Regular", 120, 2680, 10, true, true, time.Now()))

	pkgs, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, pkgs, 2)
	require.Equal(t, 120, pkgs[1].Minutes)
	require.True(t, pkgs[1].Popular)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, close := setupCatalogMock(t)
	defer close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, minutes, price_cents, savings_percent, popular, active, created_at FROM minute_packages WHERE id = $1")).
		WithArgs(99).
		WillReturnRows(packageRows())

	_, err := repo.GetByID(context.Background(), 99)
	require.ErrorIs(t, err, ErrPackageNotFound)
}

func TestDeactivate_AlreadyInactive(t *testing.T) {
	repo, mock, close := setupCatalogMock(t)
	defer close()

	mock.ExpectExec("UPDATE minute_packages").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), 3)
	require.ErrorIs(t, err, ErrPackageNotFound)
}

func TestCreate(t *testing.T) {
	repo, mock, close := setupCatalogMock(t)
	defer close()

	mock.ExpectQuery("INSERT INTO minute_packages").
		WithArgs("Devoted", 300, int64(5995), 20, false).
		WillReturnRows(packageRows().AddRow(3, "Devoted", 300, 5995, 20, false, true, time.Now()))

	p, err := repo.Create(context.Background(), "Devoted", 300, 5995, 20, false)
	require.NoError(t, err)
	require.Equal(t, 300, p.Minutes)
	require.True(t, p.Active)
}
