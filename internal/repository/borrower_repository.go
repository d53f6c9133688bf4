package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

type borrowerRepository struct {
	db *sqlx.DB
}

func NewBorrowerRepository(db *sqlx.DB) BorrowerRepository {
	return &borrowerRepository{db: db}
}

func (r *borrowerRepository) GetByID(ctx context.Context, id int64) (*domain.Borrower, error) {
	query := `
		SELECT id, firstname, middlename, lastname, id_no, contact_no, address
		FROM borrowers WHERE id = $1
	`

	var borrower domain.Borrower
	if err := executorFrom(ctx, r.db).GetContext(ctx, &borrower, query, id); err != nil {
		return nil, translateGet(err, customError.WrapBorrowerNotFound(id))
	}

	return &borrower, nil
}

func (r *borrowerRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := executorFrom(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM borrowers`); err != nil {
		return 0, translate(err)
	}

	return count, nil
}
