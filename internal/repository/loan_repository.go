package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

const loanColumns = `id, ref_no, borrower_id, plan_id, amount, purpose, rate, term, status,
		date_created, date_released, first_payment_date, next_payment_date, paid_days, updated_at`

type loanRepository struct {
	db *sqlx.DB
}

func NewLoanRepository(db *sqlx.DB) LoanRepository {
	return &loanRepository{db: db}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		loan.ID,
		loan.RefNo,
		loan.BorrowerID,
		loan.PlanID,
		loan.Amount,
		loan.Purpose,
		loan.Rate,
		loan.Term,
		loan.Status,
		loan.DateCreated,
		loan.DateReleased,
		loan.FirstPaymentDate,
		loan.NextPaymentDate,
		loan.PaidDays,
		loan.UpdatedAt,
	)

	return translate(err)
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`
	return r.get(ctx, query, id.String(), id)
}

func (r *loanRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`
	return r.get(ctx, query, id.String(), id)
}

func (r *loanRepository) GetByRefNo(ctx context.Context, refNo string) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE ref_no = $1`
	return r.get(ctx, query, refNo, refNo)
}

func (r *loanRepository) get(ctx context.Context, query, key string, arg interface{}) (*domain.Loan, error) {
	var loan domain.Loan
	err := executorFrom(ctx, r.db).GetContext(ctx, &loan, query, arg)
	if err != nil {
		return nil, translateGet(err, customError.WrapLoanNotFound(key))
	}

	return &loan, nil
}

func (r *loanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]*domain.Loan, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusCodes(filter.Statuses)))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if filter.BorrowerID != nil {
		args = append(args, *filter.BorrowerID)
		conditions = append(conditions, fmt.Sprintf("borrower_id = $%d", len(args)))
	}
	if filter.PlanID != nil {
		args = append(args, *filter.PlanID)
		conditions = append(conditions, fmt.Sprintf("plan_id = $%d", len(args)))
	}

	query := `SELECT ` + loanColumns + ` FROM loans`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY date_created, id`

	var loans []*domain.Loan
	if err := executorFrom(ctx, r.db).SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, translate(err)
	}

	return loans, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET status = $2, date_released = $3, first_payment_date = $4, next_payment_date = $5,
			paid_days = $6, updated_at = $7
		WHERE id = $1
	`

	res, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		loan.ID,
		loan.Status,
		loan.DateReleased,
		loan.FirstPaymentDate,
		loan.NextPaymentDate,
		loan.PaidDays,
		loan.UpdatedAt,
	)
	if err != nil {
		return translate(err)
	}

	return expectOneRow(res, customError.WrapLoanNotFound(loan.ID.String()))
}

func (r *loanRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := executorFrom(ctx, r.db).ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}

	return expectOneRow(res, customError.WrapLoanNotFound(id.String()))
}

func (r *loanRepository) CountByPlan(ctx context.Context, planID int64, statuses []domain.LoanStatus) (int, error) {
	query := `SELECT COUNT(*) FROM loans WHERE plan_id = $1 AND status = ANY($2)`

	var count int
	err := executorFrom(ctx, r.db).GetContext(ctx, &count, query, planID, pq.Array(statusCodes(statuses)))
	if err != nil {
		return 0, translate(err)
	}

	return count, nil
}

func statusCodes(statuses []domain.LoanStatus) []int64 {
	codes := make([]int64, len(statuses))
	for i, s := range statuses {
		codes[i] = int64(s)
	}
	return codes
}
