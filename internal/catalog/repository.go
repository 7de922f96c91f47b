package catalog

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrPackageNotFound = errors.New("package not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const packageColumns = `id, name, minutes, price_cents, savings_percent, popular, active, created_at`

func (r *repository) ListActive(ctx context.Context) ([]Package, error) {
	pkgs := []Package{}
	err := r.db.SelectContext(ctx, &pkgs, `
		SELECT `+packageColumns+`
		FROM minute_packages
		WHERE active
		ORDER BY minutes ASC
	`)
	if err != nil {
		return nil, err
	}

	return pkgs, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Package, error) {
	var p Package
	err := r.db.GetContext(ctx, &p, `SELECT `+packageColumns+` FROM minute_packages WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, err
	}

	return &p, nil
}

func (r *repository) Create(ctx context.Context, name string, minutes int, priceCents int64, savingsPercent int, popular bool) (*Package, error) {
	var p Package
	err := r.db.GetContext(ctx, &p, `
		INSERT INTO minute_packages (name, minutes, price_cents, savings_percent, popular)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+packageColumns,
		name, minutes, priceCents, savingsPercent, popular,
	)
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) Deactivate(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE minute_packages
		SET active = FALSE
		WHERE id = $1 AND active
	`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrPackageNotFound
	}

	return nil
}
