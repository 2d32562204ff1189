package tenant

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/livrocaixa/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallback_InjectsTenantFilter(t *testing.T) {
	tenantID := uuid.New()
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	EnableAutoTenantFilter(db, true)

	mock.ExpectQuery(`SELECT \* FROM "scoped_models" WHERE "scoped_models"\."tenant_id" = \$1`).
		WithArgs(tenantID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var results []scopedModel
	require.NoError(t, db.WithContext(boundContext(t, tenantID)).Find(&results).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallback_UnboundContext(t *testing.T) {
	t.Run("required rejects the query", func(t *testing.T) {
		db, _, mockDB := setupMockDB(t)
		defer mockDB.Close()
		EnableAutoTenantFilter(db, true)

		var results []scopedModel
		err := db.WithContext(context.Background()).Find(&results).Error
		assert.ErrorIs(t, err, ErrTenantRequired)
	})

	t.Run("not required passes through unfiltered", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()
		EnableAutoTenantFilter(db, false)

		mock.ExpectQuery(`SELECT \* FROM "scoped_models"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

		var results []scopedModel
		require.NoError(t, db.WithContext(context.Background()).Find(&results).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCallback_DoesNotDuplicateExistingFilter(t *testing.T) {
	tenantID := uuid.New()
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	EnableAutoTenantFilter(db, true)

	// A manual tenant filter wins; the callback must not add a second one.
	mock.ExpectQuery(`SELECT \* FROM "scoped_models" WHERE tenant_id = \$1`).
		WithArgs(tenantID.String()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "name"}))

	var results []scopedModel
	require.NoError(t, db.WithContext(boundContext(t, tenantID)).
		Scopes(Scope(tenantID)).Find(&results).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallback_StampsTenantOnCreate(t *testing.T) {
	tenantID := uuid.New()
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	EnableAutoTenantFilter(db, true)

	row := scopedModel{ID: uuid.New(), Name: "cash"}
	mock.ExpectExec(`INSERT INTO "scoped_models"`).
		WithArgs(row.ID.String(), tenantID.String(), "cash").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, db.WithContext(boundContext(t, tenantID)).Create(&row).Error)
	assert.Equal(t, tenantID, row.TenantID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallback_StampsTenantOnBatchCreate(t *testing.T) {
	tenantID := uuid.New()
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	EnableAutoTenantFilter(db, true)

	rows := []scopedModel{
		{ID: uuid.New(), Name: "wallet"},
		{ID: uuid.New(), Name: "savings"},
	}
	mock.ExpectExec(`INSERT INTO "scoped_models"`).
		WithArgs(
			rows[0].ID.String(), tenantID.String(), "wallet",
			rows[1].ID.String(), tenantID.String(), "savings",
		).
		WillReturnResult(sqlmock.NewResult(1, 2))

	require.NoError(t, db.WithContext(boundContext(t, tenantID)).Create(&rows).Error)
	for _, row := range rows {
		assert.Equal(t, tenantID, row.TenantID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallback_CreateKeepsMatchingTenant(t *testing.T) {
	tenantID := uuid.New()
	db, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	EnableAutoTenantFilter(db, true)

	row := scopedModel{ID: uuid.New(), TenantID: tenantID, Name: "cash"}
	mock.ExpectExec(`INSERT INTO "scoped_models"`).
		WithArgs(row.ID.String(), tenantID.String(), "cash").
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, db.WithContext(boundContext(t, tenantID)).Create(&row).Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCallback_CreateRejectsMismatchedTenant(t *testing.T) {
	db, _, mockDB := setupMockDB(t)
	defer mockDB.Close()
	EnableAutoTenantFilter(db, true)

	row := scopedModel{ID: uuid.New(), TenantID: uuid.New(), Name: "foreign"}
	err := db.WithContext(boundContext(t, uuid.New())).Create(&row).Error
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeConsistencyError))
}

func TestCallback_CreateRequiresBoundTenant(t *testing.T) {
	db, _, mockDB := setupMockDB(t)
	defer mockDB.Close()
	EnableAutoTenantFilter(db, true)

	row := scopedModel{ID: uuid.New(), Name: "orphan"}
	err := db.WithContext(context.Background()).Create(&row).Error
	assert.ErrorIs(t, err, ErrTenantRequired)
}
