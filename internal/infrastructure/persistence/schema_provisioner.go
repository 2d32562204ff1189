package persistence

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/livrocaixa/backend/internal/domain/tenancy"
	"github.com/livrocaixa/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// viewCodePattern restricts tenant codes to characters safe inside an SQL
// identifier. Codes are validated at tenant creation, but the provisioner
// re-checks because view DDL cannot be parameterized.
var viewCodePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// provisionConcurrency bounds parallel DDL during bulk provisioning
const provisionConcurrency = 4

// SchemaProvisioner creates the per-tenant reporting views. Views are named
// rpt_<code>_* and each one carries the tenant's id in its WHERE clause, so
// reporting tools can read a tenant's numbers without going through the
// application's scoping. Provisioning is idempotent: every statement is
// CREATE OR REPLACE.
type SchemaProvisioner struct {
	db *gorm.DB
}

// NewSchemaProvisioner creates a new SchemaProvisioner
func NewSchemaProvisioner(db *gorm.DB) *SchemaProvisioner {
	return &SchemaProvisioner{db: db}
}

// Provision creates or refreshes the reporting views of one tenant
func (p *SchemaProvisioner) Provision(ctx context.Context, tenant *tenancy.Tenant) error {
	code, err := viewCode(tenant.Code)
	if err != nil {
		return err
	}

	statements := []string{
		fmt.Sprintf(`CREATE OR REPLACE VIEW rpt_%s_account_balances AS
			SELECT a.id AS account_id, a.name, a.kind, a.balance, a.updated_at
			FROM accounts a
			WHERE a.tenant_id = '%s'`, code, tenant.ID),
		fmt.Sprintf(`CREATE OR REPLACE VIEW rpt_%s_monthly_activity AS
			SELECT t.account_id,
			       EXTRACT(YEAR FROM t.date)::int AS year,
			       EXTRACT(MONTH FROM t.date)::int AS month,
			       COALESCE(SUM(t.amount) FILTER (WHERE t.kind = 'INCOME'), 0) AS total_income,
			       COALESCE(SUM(t.amount) FILTER (WHERE t.kind = 'EXPENSE'), 0) AS total_expense
			FROM transactions t
			WHERE t.tenant_id = '%s' AND t.archived = false
			GROUP BY t.account_id, year, month`, code, tenant.ID),
		fmt.Sprintf(`CREATE OR REPLACE VIEW rpt_%s_closings AS
			SELECT c.account_id, c.year, c.month, c.opening_balance, c.total_income,
			       c.total_expense, c.closing_balance, c.partial, c.closed_at
			FROM monthly_closings c
			WHERE c.tenant_id = '%s'`, code, tenant.ID),
		fmt.Sprintf(`CREATE OR REPLACE VIEW rpt_%s_open_installments AS
			SELECT i.plan_id, p.description, i.sequence, i.due_date, i.amount
			FROM planned_installments i
			JOIN installment_plans p ON p.id = i.plan_id
			WHERE i.tenant_id = '%s' AND i.paid = false`, code, tenant.ID),
	}

	for _, stmt := range statements {
		if err := p.db.WithContext(ctx).Exec(stmt).Error; err != nil {
			return fmt.Errorf("provisioning views for tenant %s: %w", tenant.Code, err)
		}
	}

	logger.L(ctx).Info("provisioned reporting views",
		zap.String("tenant_code", tenant.Code),
		zap.Int("views", len(statements)))
	return nil
}

// ProvisionAll refreshes the reporting views of every given tenant, a few in
// parallel. The first failure cancels the remaining work.
func (p *SchemaProvisioner) ProvisionAll(ctx context.Context, tenants []tenancy.Tenant) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(provisionConcurrency)

	for i := range tenants {
		tenant := tenants[i]
		g.Go(func() error {
			return p.Provision(ctx, &tenant)
		})
	}
	return g.Wait()
}

// viewCode normalizes a tenant code into a view-name fragment
func viewCode(code string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	if !viewCodePattern.MatchString(normalized) {
		return "", shared.NewValidationError(
			fmt.Sprintf("tenant code %q cannot form a view name", code))
	}
	return normalized, nil
}
