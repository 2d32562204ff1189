package tenancy

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
)

// Tenant represents an isolated logical owner of financial data. Its id is a
// surrogate assigned at creation time; it is never derived from a personal
// identifier.
type Tenant struct {
	shared.BaseAggregateRoot
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Active    bool        `json:"active"`
	MemberIDs []uuid.UUID `json:"member_ids" gorm:"-"`
}

// NewTenant creates a new active tenant with a generated surrogate id
func NewTenant(code, name string) (*Tenant, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, shared.NewValidationError("tenant code cannot be empty")
	}
	if len(code) > 20 {
		return nil, shared.NewValidationError("tenant code cannot exceed 20 characters")
	}
	if name == "" {
		return nil, shared.NewValidationError("tenant name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("tenant name cannot exceed 100 characters")
	}

	return &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              name,
		Active:            true,
	}, nil
}

// Deactivate marks the tenant inactive. Inactive tenants cannot be bound.
func (t *Tenant) Deactivate() error {
	if !t.Active {
		return shared.ErrInvalidState.WithEntity(t.ID.String())
	}
	t.Active = false
	t.UpdatedAt = time.Now()
	return nil
}

// Activate re-enables an inactive tenant
func (t *Tenant) Activate() error {
	if t.Active {
		return shared.ErrInvalidState.WithEntity(t.ID.String())
	}
	t.Active = true
	t.UpdatedAt = time.Now()
	return nil
}

// AddMember grants a user access to the tenant's data
func (t *Tenant) AddMember(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return shared.NewValidationError("member id cannot be nil")
	}
	if t.HasMember(userID) {
		return shared.ErrAlreadyExists.WithEntity(userID.String())
	}
	t.MemberIDs = append(t.MemberIDs, userID)
	t.UpdatedAt = time.Now()
	return nil
}

// RemoveMember revokes a user's access
func (t *Tenant) RemoveMember(userID uuid.UUID) error {
	for i, id := range t.MemberIDs {
		if id == userID {
			t.MemberIDs = append(t.MemberIDs[:i], t.MemberIDs[i+1:]...)
			t.UpdatedAt = time.Now()
			return nil
		}
	}
	return shared.NewNotFoundError("member not found in tenant", userID.String())
}

// HasMember reports whether the user belongs to the tenant
func (t *Tenant) HasMember(userID uuid.UUID) bool {
	for _, id := range t.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
