package tenant

import (
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// Callback registers GORM hooks that inject the bound tenant's filter into
// every query, update and delete. It is the safety net below TenantDB: even
// a repository that reaches for the raw DB still gets filtered, as long as
// the context carries a binding.
type Callback struct {
	tenantColumn string
	required     bool
}

// NewCallback creates a new tenant callback handler
func NewCallback(tenantColumn string, required bool) *Callback {
	if tenantColumn == "" {
		tenantColumn = "tenant_id"
	}
	return &Callback{
		tenantColumn: tenantColumn,
		required:     required,
	}
}

// Register installs the tenant callbacks on a GORM DB.
func (c *Callback) Register(db *gorm.DB) {
	_ = db.Callback().Create().Before("gorm:create").Register("tenant:before_create", c.stampTenant)
	_ = db.Callback().Query().Before("gorm:query").Register("tenant:before_query", c.addFilter)
	_ = db.Callback().Update().Before("gorm:update").Register("tenant:before_update", c.addFilter)
	_ = db.Callback().Delete().Before("gorm:delete").Register("tenant:before_delete", c.addFilter)
	_ = db.Callback().Row().Before("gorm:row").Register("tenant:before_row", c.addFilter)
}

// stampTenant writes the bound tenant id onto every row being created whose
// tenant column is still zero, batch creates included. A row that already
// carries a different tenant id is rejected, never silently rewritten.
func (c *Callback) stampTenant(db *gorm.DB) {
	if db.Statement.Context == nil || db.Statement.Unscoped || db.Statement.Schema == nil {
		return
	}
	field := db.Statement.Schema.LookUpField(c.tenantColumn)
	if field == nil {
		return
	}

	tenantID, ok := tenancy.TenantFromContext(db.Statement.Context)
	if !ok {
		if c.required {
			_ = db.AddError(ErrTenantRequired)
		}
		return
	}

	switch db.Statement.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < db.Statement.ReflectValue.Len(); i++ {
			c.stampRow(db, field, db.Statement.ReflectValue.Index(i), tenantID)
		}
	case reflect.Struct:
		c.stampRow(db, field, db.Statement.ReflectValue, tenantID)
	}
}

func (c *Callback) stampRow(db *gorm.DB, field *schema.Field, row reflect.Value, tenantID uuid.UUID) {
	row = reflect.Indirect(row)
	value, isZero := field.ValueOf(db.Statement.Context, row)
	if isZero {
		if err := field.Set(db.Statement.Context, row, tenantID); err != nil {
			_ = db.AddError(err)
		}
		return
	}
	if existing, ok := value.(uuid.UUID); ok && existing != tenantID {
		_ = db.AddError(shared.NewConsistencyError(
			"row tenant does not match the bound tenant", existing.String()))
	}
}

func (c *Callback) addFilter(db *gorm.DB) {
	if db.Statement.Context == nil || db.Statement.Unscoped {
		return
	}
	if c.hasTenantCondition(db) {
		return
	}

	tenantID, ok := tenancy.TenantFromContext(db.Statement.Context)
	if !ok {
		if c.required {
			_ = db.AddError(ErrTenantRequired)
		}
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: c.tenantColumn},
				Value:  tenantID,
			},
		},
	})
}

// hasTenantCondition checks whether a tenant filter is already present
func (c *Callback) hasTenantCondition(db *gorm.DB) bool {
	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if c.exprContainsTenant(expr) {
					return true
				}
			}
		}
	}
	sql := db.Statement.SQL.String()
	return sql != "" && strings.Contains(sql, c.tenantColumn)
}

func (c *Callback) exprContainsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == c.tenantColumn
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == c.tenantColumn
		}
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if c.exprContainsTenant(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if c.exprContainsTenant(cond) {
				return true
			}
		}
	}
	return false
}

// EnableAutoTenantFilter registers the tenant callbacks on a GORM DB
func EnableAutoTenantFilter(db *gorm.DB, required bool) {
	NewCallback("tenant_id", required).Register(db)
}
