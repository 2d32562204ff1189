package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// AccountModel is the persistence model for the Account aggregate root.
type AccountModel struct {
	TenantAggregateModel
	Name    string             `gorm:"type:varchar(100);not null"`
	Kind    ledger.AccountKind `gorm:"type:varchar(20);not null;index"`
	Balance decimal.Decimal    `gorm:"type:decimal(18,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account entity.
func (m *AccountModel) ToDomain() *ledger.Account {
	a := &ledger.Account{
		Name:    m.Name,
		Kind:    m.Kind,
		Balance: m.Balance,
	}
	m.PopulateTenantAggregateRoot(&a.TenantAggregateRoot)
	return a
}

// FromDomain populates the persistence model from a domain Account entity.
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainTenantAggregateRoot(a.TenantAggregateRoot)
	m.Name = a.Name
	m.Kind = a.Kind
	m.Balance = a.Balance
}

// AccountModelFromDomain creates a new persistence model from a domain Account.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// CategoryModel is the persistence model for the Category aggregate root.
type CategoryModel struct {
	TenantAggregateModel
	Name string              `gorm:"type:varchar(100);not null;uniqueIndex:idx_category_tenant_name,priority:2"`
	Kind ledger.CategoryKind `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// ToDomain converts the persistence model to a domain Category entity.
func (m *CategoryModel) ToDomain() *ledger.Category {
	c := &ledger.Category{
		Name: m.Name,
		Kind: m.Kind,
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain Category entity.
func (m *CategoryModel) FromDomain(c *ledger.Category) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.Name = c.Name
	m.Kind = c.Kind
}

// CategoryModelFromDomain creates a new persistence model from a domain Category.
func CategoryModelFromDomain(c *ledger.Category) *CategoryModel {
	m := &CategoryModel{}
	m.FromDomain(c)
	return m
}

// TransactionModel is the persistence model for the Transaction aggregate root.
type TransactionModel struct {
	TenantAggregateModel
	AccountID     uuid.UUID              `gorm:"type:uuid;not null;index:idx_tx_account_date,priority:1"`
	CategoryID    uuid.UUID              `gorm:"type:uuid;not null;index"`
	Description   string                 `gorm:"type:varchar(200);not null"`
	Amount        decimal.Decimal        `gorm:"type:decimal(18,2);not null"`
	Kind          ledger.TransactionKind `gorm:"type:varchar(10);not null"`
	Date          time.Time              `gorm:"not null;index:idx_tx_account_date,priority:2"`
	InstallmentID *uuid.UUID             `gorm:"type:uuid;uniqueIndex:idx_tx_installment"`
	Paid          bool                   `gorm:"not null;default:false"`
	PaidAt        *time.Time
	Archived      bool `gorm:"not null;default:false;index"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction entity.
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	tx := &ledger.Transaction{
		AccountID:     m.AccountID,
		CategoryID:    m.CategoryID,
		Description:   m.Description,
		Amount:        m.Amount,
		Kind:          m.Kind,
		Date:          m.Date,
		InstallmentID: m.InstallmentID,
		Paid:          m.Paid,
		PaidAt:        m.PaidAt,
		Archived:      m.Archived,
	}
	m.PopulateTenantAggregateRoot(&tx.TenantAggregateRoot)
	return tx
}

// FromDomain populates the persistence model from a domain Transaction entity.
func (m *TransactionModel) FromDomain(tx *ledger.Transaction) {
	m.FromDomainTenantAggregateRoot(tx.TenantAggregateRoot)
	m.AccountID = tx.AccountID
	m.CategoryID = tx.CategoryID
	m.Description = tx.Description
	m.Amount = tx.Amount
	m.Kind = tx.Kind
	m.Date = tx.Date
	m.InstallmentID = tx.InstallmentID
	m.Paid = tx.Paid
	m.PaidAt = tx.PaidAt
	m.Archived = tx.Archived
}

// TransactionModelFromDomain creates a new persistence model from a domain Transaction.
func TransactionModelFromDomain(tx *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{}
	m.FromDomain(tx)
	return m
}

// MonthlyClosingModel is the persistence model for the MonthlyClosing
// aggregate root. The unique index over (account_id, year, month) is the
// authoritative guard against two seals of the same period: concurrent
// check-then-write attempts race harmlessly into a duplicate-key error.
type MonthlyClosingModel struct {
	TenantAggregateModel
	AccountID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_closing_account_period,priority:1"`
	Year           int             `gorm:"not null;uniqueIndex:idx_closing_account_period,priority:2"`
	Month          int             `gorm:"not null;uniqueIndex:idx_closing_account_period,priority:3"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalIncome    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalExpense   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ClosingBalance decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Closed         bool            `gorm:"not null;default:true"`
	Partial        bool            `gorm:"not null;default:false"`
	PeriodStart    time.Time       `gorm:"not null"`
	PeriodEnd      time.Time       `gorm:"not null"`
	ClosedAt       time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (MonthlyClosingModel) TableName() string {
	return "monthly_closings"
}

// ToDomain converts the persistence model to a domain MonthlyClosing entity.
func (m *MonthlyClosingModel) ToDomain() *ledger.MonthlyClosing {
	c := &ledger.MonthlyClosing{
		AccountID:      m.AccountID,
		Year:           m.Year,
		Month:          m.Month,
		OpeningBalance: m.OpeningBalance,
		TotalIncome:    m.TotalIncome,
		TotalExpense:   m.TotalExpense,
		ClosingBalance: m.ClosingBalance,
		Closed:         m.Closed,
		Partial:        m.Partial,
		PeriodStart:    m.PeriodStart,
		PeriodEnd:      m.PeriodEnd,
		ClosedAt:       m.ClosedAt,
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c
}

// FromDomain populates the persistence model from a domain MonthlyClosing entity.
func (m *MonthlyClosingModel) FromDomain(c *ledger.MonthlyClosing) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.AccountID = c.AccountID
	m.Year = c.Year
	m.Month = c.Month
	m.OpeningBalance = c.OpeningBalance
	m.TotalIncome = c.TotalIncome
	m.TotalExpense = c.TotalExpense
	m.ClosingBalance = c.ClosingBalance
	m.Closed = c.Closed
	m.Partial = c.Partial
	m.PeriodStart = c.PeriodStart
	m.PeriodEnd = c.PeriodEnd
	m.ClosedAt = c.ClosedAt
}

// MonthlyClosingModelFromDomain creates a new persistence model from a domain MonthlyClosing.
func MonthlyClosingModelFromDomain(c *ledger.MonthlyClosing) *MonthlyClosingModel {
	m := &MonthlyClosingModel{}
	m.FromDomain(c)
	return m
}

// InstallmentPlanModel is the persistence model for the InstallmentPlan aggregate root.
type InstallmentPlanModel struct {
	TenantAggregateModel
	AccountID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	CategoryID   uuid.UUID             `gorm:"type:uuid;not null"`
	Description  string                `gorm:"type:varchar(200);not null"`
	TotalAmount  decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	Count        int                   `gorm:"not null"`
	FirstDueDate time.Time             `gorm:"not null"`
	DueDayAnchor int                   `gorm:"not null"`
	Recurrence   ledger.RecurrenceType `gorm:"type:varchar(20);not null"`
	CustomDays   int                   `gorm:"not null;default:0"`
	Generated    bool                  `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (InstallmentPlanModel) TableName() string {
	return "installment_plans"
}

// ToDomain converts the persistence model to a domain InstallmentPlan entity.
func (m *InstallmentPlanModel) ToDomain() *ledger.InstallmentPlan {
	p := &ledger.InstallmentPlan{
		AccountID:    m.AccountID,
		CategoryID:   m.CategoryID,
		Description:  m.Description,
		TotalAmount:  m.TotalAmount,
		Count:        m.Count,
		FirstDueDate: m.FirstDueDate,
		DueDayAnchor: m.DueDayAnchor,
		Recurrence:   m.Recurrence,
		CustomDays:   m.CustomDays,
		Generated:    m.Generated,
	}
	m.PopulateTenantAggregateRoot(&p.TenantAggregateRoot)
	return p
}

// FromDomain populates the persistence model from a domain InstallmentPlan entity.
func (m *InstallmentPlanModel) FromDomain(p *ledger.InstallmentPlan) {
	m.FromDomainTenantAggregateRoot(p.TenantAggregateRoot)
	m.AccountID = p.AccountID
	m.CategoryID = p.CategoryID
	m.Description = p.Description
	m.TotalAmount = p.TotalAmount
	m.Count = p.Count
	m.FirstDueDate = p.FirstDueDate
	m.DueDayAnchor = p.DueDayAnchor
	m.Recurrence = p.Recurrence
	m.CustomDays = p.CustomDays
	m.Generated = p.Generated
}

// InstallmentPlanModelFromDomain creates a new persistence model from a domain InstallmentPlan.
func InstallmentPlanModelFromDomain(p *ledger.InstallmentPlan) *InstallmentPlanModel {
	m := &InstallmentPlanModel{}
	m.FromDomain(p)
	return m
}

// PlannedInstallmentModel is the persistence model for the PlannedInstallment
// entity. (plan_id, sequence) is unique so a partial-payment split can never
// produce two installments in the same slot.
type PlannedInstallmentModel struct {
	TenantAggregateModel
	PlanID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_installment_plan_seq,priority:1"`
	Sequence      int             `gorm:"not null;uniqueIndex:idx_installment_plan_seq,priority:2"`
	DueDate       time.Time       `gorm:"not null;index"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Paid          bool            `gorm:"not null;default:false;index"`
	PaidAt        *time.Time
	TransactionID *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PlannedInstallmentModel) TableName() string {
	return "planned_installments"
}

// ToDomain converts the persistence model to a domain PlannedInstallment entity.
func (m *PlannedInstallmentModel) ToDomain() *ledger.PlannedInstallment {
	i := &ledger.PlannedInstallment{
		PlanID:        m.PlanID,
		Sequence:      m.Sequence,
		DueDate:       m.DueDate,
		Amount:        m.Amount,
		Paid:          m.Paid,
		PaidAt:        m.PaidAt,
		TransactionID: m.TransactionID,
	}
	m.PopulateTenantAggregateRoot(&i.TenantAggregateRoot)
	return i
}

// FromDomain populates the persistence model from a domain PlannedInstallment entity.
func (m *PlannedInstallmentModel) FromDomain(i *ledger.PlannedInstallment) {
	m.FromDomainTenantAggregateRoot(i.TenantAggregateRoot)
	m.PlanID = i.PlanID
	m.Sequence = i.Sequence
	m.DueDate = i.DueDate
	m.Amount = i.Amount
	m.Paid = i.Paid
	m.PaidAt = i.PaidAt
	m.TransactionID = i.TransactionID
}

// PlannedInstallmentModelFromDomain creates a new persistence model from a domain PlannedInstallment.
func PlannedInstallmentModelFromDomain(i *ledger.PlannedInstallment) *PlannedInstallmentModel {
	m := &PlannedInstallmentModel{}
	m.FromDomain(i)
	return m
}
