package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
)

// TenancyTenantModel is the persistence model for the Tenant aggregate root.
// The tenants table is the one table without a tenant_id column: it is the
// registry the scoping itself resolves against.
type TenancyTenantModel struct {
	AggregateModel
	Code   string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name   string `gorm:"type:varchar(100);not null"`
	Active bool   `gorm:"not null;default:true;index"`

	Members []TenantMemberModel `gorm:"foreignKey:TenantID;references:ID"`
}

// TableName returns the table name for GORM
func (TenancyTenantModel) TableName() string {
	return "tenants"
}

// ToDomain converts the persistence model to a domain Tenant entity.
func (m *TenancyTenantModel) ToDomain() *tenancy.Tenant {
	memberIDs := make([]uuid.UUID, 0, len(m.Members))
	for _, member := range m.Members {
		memberIDs = append(memberIDs, member.UserID)
	}
	return &tenancy.Tenant{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		Code:      m.Code,
		Name:      m.Name,
		Active:    m.Active,
		MemberIDs: memberIDs,
	}
}

// FromDomain populates the persistence model from a domain Tenant entity.
// Members are rebuilt from the aggregate's member list.
func (m *TenancyTenantModel) FromDomain(t *tenancy.Tenant) {
	m.FromDomainAggregateRoot(t.BaseAggregateRoot)
	m.Code = t.Code
	m.Name = t.Name
	m.Active = t.Active
	m.Members = make([]TenantMemberModel, 0, len(t.MemberIDs))
	for _, userID := range t.MemberIDs {
		m.Members = append(m.Members, TenantMemberModel{
			TenantID: t.ID,
			UserID:   userID,
		})
	}
}

// TenancyTenantModelFromDomain creates a new persistence model from a domain Tenant.
func TenancyTenantModelFromDomain(t *tenancy.Tenant) *TenancyTenantModel {
	m := &TenancyTenantModel{}
	m.FromDomain(t)
	return m
}

// TenantMemberModel grants one user access to one tenant's data.
type TenantMemberModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantMemberModel) TableName() string {
	return "tenant_members"
}
