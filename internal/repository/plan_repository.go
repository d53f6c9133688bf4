package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/microloan-engine/internal/domain"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

type planRepository struct {
	db *sqlx.DB
}

func NewPlanRepository(db *sqlx.DB) PlanRepository {
	return &planRepository{db: db}
}

func (r *planRepository) GetByID(ctx context.Context, id int64) (*domain.LoanPlan, error) {
	query := `SELECT id, months, interest_percentage, penalty_rate FROM loan_plans WHERE id = $1`

	var plan domain.LoanPlan
	if err := executorFrom(ctx, r.db).GetContext(ctx, &plan, query, id); err != nil {
		return nil, translateGet(err, customError.WrapPlanNotFound(id))
	}

	return &plan, nil
}

func (r *planRepository) Update(ctx context.Context, plan *domain.LoanPlan) error {
	query := `
		UPDATE loan_plans
		SET months = $2, interest_percentage = $3, penalty_rate = $4
		WHERE id = $1
	`

	res, err := executorFrom(ctx, r.db).ExecContext(ctx, query,
		plan.ID,
		plan.Months,
		plan.InterestPercentage,
		plan.PenaltyRate,
	)
	if err != nil {
		return translate(err)
	}

	return expectOneRow(res, customError.WrapPlanNotFound(plan.ID))
}
