package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

const paymentColumns = `id, loan_id, payee, amount, penalty_amount, date_created, updated_at`

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		payment.ID,
		payment.LoanID,
		payment.Payee,
		payment.Amount,
		payment.PenaltyAmount,
		payment.DateCreated,
		payment.UpdatedAt,
	)

	return translate(err)
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	var payment domain.Payment
	if err := executorFrom(ctx, r.db).GetContext(ctx, &payment, query, id); err != nil {
		return nil, translateGet(err, customError.WrapPaymentNotFound(id.String()))
	}

	return &payment, nil
}

func (r *paymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET payee = $2, amount = $3, penalty_amount = $4, updated_at = $5
		WHERE id = $1
	`

	res, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		payment.ID,
		payment.Payee,
		payment.Amount,
		payment.PenaltyAmount,
		payment.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}

	return expectOneRow(res, customError.WrapPaymentNotFound(payment.ID.String()))
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := executorFrom(ctx, r.db).ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}

	return expectOneRow(res, customError.WrapPaymentNotFound(id.String()))
}

func (r *paymentRepository) ListByLoan(ctx context.Context, loanID uuid.UUID) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE loan_id = $1 ORDER BY date_created, id`

	var payments []*domain.Payment
	if err := executorFrom(ctx, r.db).SelectContext(ctx, &payments, query, loanID); err != nil {
		return nil, translate(err)
	}

	return payments, nil
}

func (r *paymentRepository) SumByLoan(ctx context.Context, loanID uuid.UUID) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount + penalty_amount), 0) FROM payments WHERE loan_id = $1`

	var total decimal.Decimal
	if err := executorFrom(ctx, r.db).GetContext(ctx, &total, query, loanID); err != nil {
		return decimal.Zero, translate(err)
	}

	return total, nil
}

type loanTotal struct {
	LoanID uuid.UUID       `db:"loan_id"`
	Total  decimal.Decimal `db:"total"`
}

func (r *paymentRepository) TotalsByLoan(ctx context.Context) (map[uuid.UUID]decimal.Decimal, error) {
	query := `SELECT loan_id, SUM(amount + penalty_amount) AS total FROM payments GROUP BY loan_id`

	var rows []loanTotal
	if err := executorFrom(ctx, r.db).SelectContext(ctx, &rows, query); err != nil {
		return nil, translate(err)
	}

	totals := make(map[uuid.UUID]decimal.Decimal, len(rows))
	for _, row := range rows {
		totals[row.LoanID] = row.Total
	}

	return totals, nil
}

func (r *paymentRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE date_created >= $1 AND date_created < $2
		ORDER BY date_created, id
	`

	var payments []*domain.Payment
	if err := executorFrom(ctx, r.db).SelectContext(ctx, &payments, query, from, to); err != nil {
		return nil, translate(err)
	}

	return payments, nil
}
