package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// stubTxManager runs the unit of work inline; the services under test only
// care that everything happens inside one call.
type stubTxManager struct{}

func (stubTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockAccountRepository is a mock implementation of ledger.AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Account, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *ledger.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) Save(ctx context.Context, account *ledger.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *MockAccountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) error {
	return m.Called(ctx, id, balance).Error(0)
}

// MockCategoryRepository is a mock implementation of ledger.CategoryRepository
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Category), args.Error(1)
}

func (m *MockCategoryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]ledger.Category, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.Category), args.Error(1)
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *ledger.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *MockCategoryRepository) Save(ctx context.Context, category *ledger.Category) error {
	return m.Called(ctx, category).Error(0)
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// MockTransactionRepository is a mock implementation of ledger.TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindByID(ctx context.Context, id uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByAccount(ctx context.Context, accountID uuid.UUID, filter shared.Filter) ([]ledger.Transaction, error) {
	args := m.Called(ctx, accountID, filter)
	return args.Get(0).([]ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindSettlement(ctx context.Context, installmentID uuid.UUID) (*ledger.Transaction, error) {
	args := m.Called(ctx, installmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) Save(ctx context.Context, tx *ledger.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTransactionRepository) SumByKind(ctx context.Context, accountID uuid.UUID, kind ledger.TransactionKind, from, to *time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID, kind, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockTransactionRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTransactionRepository) ArchiveByAccount(ctx context.Context, accountID uuid.UUID) error {
	return m.Called(ctx, accountID).Error(0)
}

func (m *MockTransactionRepository) DeleteByAccount(ctx context.Context, accountID uuid.UUID) error {
	return m.Called(ctx, accountID).Error(0)
}

// MockClosingRepository is a mock implementation of ledger.ClosingRepository
type MockClosingRepository struct {
	mock.Mock
}

func (m *MockClosingRepository) Create(ctx context.Context, closing *ledger.MonthlyClosing) error {
	return m.Called(ctx, closing).Error(0)
}

func (m *MockClosingRepository) FindLatestClosed(ctx context.Context, accountID uuid.UUID) (*ledger.MonthlyClosing, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.MonthlyClosing), args.Error(1)
}

func (m *MockClosingRepository) FindByPeriod(ctx context.Context, accountID uuid.UUID, year, month int) (*ledger.MonthlyClosing, error) {
	args := m.Called(ctx, accountID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.MonthlyClosing), args.Error(1)
}

func (m *MockClosingRepository) FindByAccount(ctx context.Context, accountID uuid.UUID) ([]ledger.MonthlyClosing, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).([]ledger.MonthlyClosing), args.Error(1)
}

func (m *MockClosingRepository) Exists(ctx context.Context, accountID uuid.UUID, year, month int) (bool, error) {
	args := m.Called(ctx, accountID, year, month)
	return args.Bool(0), args.Error(1)
}

// MockInstallmentRepository is a mock implementation of ledger.InstallmentRepository
type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) FindPlanByID(ctx context.Context, id uuid.UUID) (*ledger.InstallmentPlan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.InstallmentPlan), args.Error(1)
}

func (m *MockInstallmentRepository) FindAllPlans(ctx context.Context, filter shared.Filter) ([]ledger.InstallmentPlan, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]ledger.InstallmentPlan), args.Error(1)
}

func (m *MockInstallmentRepository) CreatePlan(ctx context.Context, plan *ledger.InstallmentPlan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockInstallmentRepository) SavePlan(ctx context.Context, plan *ledger.InstallmentPlan) error {
	return m.Called(ctx, plan).Error(0)
}

func (m *MockInstallmentRepository) DeletePlan(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockInstallmentRepository) FindInstallmentByID(ctx context.Context, id uuid.UUID) (*ledger.PlannedInstallment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.PlannedInstallment), args.Error(1)
}

func (m *MockInstallmentRepository) FindByPlan(ctx context.Context, planID uuid.UUID) ([]ledger.PlannedInstallment, error) {
	args := m.Called(ctx, planID)
	return args.Get(0).([]ledger.PlannedInstallment), args.Error(1)
}

func (m *MockInstallmentRepository) CreateInstallments(ctx context.Context, installments []ledger.PlannedInstallment) error {
	return m.Called(ctx, installments).Error(0)
}

func (m *MockInstallmentRepository) SaveInstallment(ctx context.Context, installment *ledger.PlannedInstallment) error {
	return m.Called(ctx, installment).Error(0)
}

func (m *MockInstallmentRepository) DeleteByPlan(ctx context.Context, planID uuid.UUID) error {
	return m.Called(ctx, planID).Error(0)
}

func (m *MockInstallmentRepository) CountByPlan(ctx context.Context, planID uuid.UUID) (int64, error) {
	args := m.Called(ctx, planID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInstallmentRepository) MaxSequence(ctx context.Context, planID uuid.UUID) (int, error) {
	args := m.Called(ctx, planID)
	return args.Int(0), args.Error(1)
}

func (m *MockInstallmentRepository) SumByPlan(ctx context.Context, planID uuid.UUID, paid bool) (decimal.Decimal, error) {
	args := m.Called(ctx, planID, paid)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
