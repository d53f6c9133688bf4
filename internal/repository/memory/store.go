// Package memory is an in-process store behind the repository interfaces.
// It backs the "memory" database driver and the service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/segyhp/microloan-engine/internal/domain"
	"github.com/segyhp/microloan-engine/internal/repository"
	customError "github.com/segyhp/microloan-engine/pkg/errors"
)

type Store struct {
	mu        sync.RWMutex
	loans     map[uuid.UUID]*domain.Loan
	payments  map[uuid.UUID]*domain.Payment
	plans     map[int64]*domain.LoanPlan
	borrowers map[int64]*domain.Borrower

	rowMu    sync.Mutex
	rowLocks map[uuid.UUID]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		loans:     make(map[uuid.UUID]*domain.Loan),
		payments:  make(map[uuid.UUID]*domain.Payment),
		plans:     make(map[int64]*domain.LoanPlan),
		borrowers: make(map[int64]*domain.Borrower),
		rowLocks:  make(map[uuid.UUID]*sync.Mutex),
	}
}

func (s *Store) Loans() repository.LoanRepository { return &loanRepository{s: s} }

func (s *Store) Payments() repository.PaymentRepository { return &paymentRepository{s: s} }

func (s *Store) Plans() repository.PlanRepository { return &planRepository{s: s} }

func (s *Store) Borrowers() repository.BorrowerRepository { return &borrowerRepository{s: s} }

// PutPlan inserts or replaces a plan
func (s *Store) PutPlan(plan domain.LoanPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = &plan
}

// PutBorrower inserts or replaces a borrower
func (s *Store) PutBorrower(b domain.Borrower) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.borrowers[b.ID] = &b
}

type txKey struct{}

// txState journals undo steps and held row locks for one transaction
type txState struct {
	mu   sync.Mutex
	undo []func()
	held map[uuid.UUID]*sync.Mutex
}

func txFrom(ctx context.Context) *txState {
	tx, _ := ctx.Value(txKey{}).(*txState)
	return tx
}

// WithinTx runs fn with an undo journal. On error every mutation made through
// ctx is reverted; row locks taken by GetByIDForUpdate are held until return.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx := &txState{held: make(map[uuid.UUID]*sync.Mutex)}
	defer func() {
		for _, m := range tx.held {
			m.Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
		return err
	}

	return nil
}

// journal records an undo step; callers hold s.mu.
func journal(ctx context.Context, undo func()) {
	if tx := txFrom(ctx); tx != nil {
		tx.mu.Lock()
		tx.undo = append(tx.undo, undo)
		tx.mu.Unlock()
	}
}

func (s *Store) lockRow(ctx context.Context, id uuid.UUID) error {
	tx := txFrom(ctx)
	if tx == nil {
		return nil
	}

	tx.mu.Lock()
	_, held := tx.held[id]
	tx.mu.Unlock()
	if held {
		return nil
	}

	s.rowMu.Lock()
	m, ok := s.rowLocks[id]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[id] = m
	}
	s.rowMu.Unlock()

	acquired := make(chan struct{})
	go func() {
		m.Lock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-ctx.Done():
		// the goroutine still takes the lock eventually; hand it straight back
		go func() {
			<-acquired
			m.Unlock()
		}()
		return customError.WrapConcurrencyConflict("loan "+id.String(), ctx.Err())
	}

	tx.mu.Lock()
	tx.held[id] = m
	tx.mu.Unlock()
	return nil
}

func sortLoans(loans []*domain.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		if loans[i].DateCreated.Equal(loans[j].DateCreated) {
			return loans[i].ID.String() < loans[j].ID.String()
		}
		return loans[i].DateCreated.Before(loans[j].DateCreated)
	})
}

func sortPayments(payments []*domain.Payment) {
	sort.Slice(payments, func(i, j int) bool {
		if payments[i].DateCreated.Equal(payments[j].DateCreated) {
			return payments[i].ID.String() < payments[j].ID.String()
		}
		return payments[i].DateCreated.Before(payments[j].DateCreated)
	})
}

func clonePayment(p *domain.Payment) *domain.Payment {
	c := *p
	return &c
}

func errDuplicate(kind, key string) error {
	return fmt.Errorf("duplicate %s %s", kind, key)
}
