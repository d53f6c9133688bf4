package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/microloan-engine/internal/config"
	"github.com/segyhp/microloan-engine/internal/domain"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Database:  config.DatabaseConfig{Driver: config.DriverMemory},
		Scheduler: config.SchedulerConfig{Timezone: "UTC"},
		Business: config.BusinessConfig{
			LockWaitTimeout:      time.Second,
			LockTTL:              5 * time.Second,
			ReconcileConcurrency: 2,
			SummaryCacheTTL:      time.Minute,
		},
	}
}

func TestNew_MemoryStoreIsUsable(t *testing.T) {
	a, err := New(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.AMQP)

	loan, err := a.Service.CreateLoan(context.Background(), domain.CreateLoanRequest{
		BorrowerID: 1, PlanID: 1, Amount: decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	assert.Equal(t, 6, loan.Term)
	assert.Equal(t, domain.LoanStatusPending, loan.Status)
}

func TestNew_WithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := memoryConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: mr.Port()}

	a, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NotNil(t, a.Redis)

	ctx := context.Background()
	loan, err := a.Service.CreateLoan(ctx, domain.CreateLoanRequest{BorrowerID: 1, PlanID: 1, Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	_, err = a.Service.GetScheduleSummary(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists("loan:"+loan.ID.String()+":summary"))
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := memoryConfig()
	cfg.Redis = config.RedisConfig{Enabled: true, Host: mr.Host(), Port: mr.Port()}
	mr.Close()

	_, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}
