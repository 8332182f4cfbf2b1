package tenants

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverPrefersTenantKey(t *testing.T) {
	r := &Resolver{
		Store:   NewMemoryStore(Tenant{ID: 1, ScoringAPIKey: "tenant-key"}),
		Default: Credential{Provider: "gemini", APIKey: "shared-key", Model: "gemini-2.5-flash"},
	}
	cred, err := r.ScoringCredential(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, Credential{Provider: "gemini", APIKey: "tenant-key", Model: "gemini-2.5-flash"}, cred)

	cred, err = r.ScoringCredential(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "shared-key", cred.APIKey)
}

func TestResolverMissingCredential(t *testing.T) {
	r := &Resolver{
		Store:   NewMemoryStore(Tenant{ID: 1}),
		Default: Credential{Provider: "openai"},
	}
	_, err := r.ScoringCredential(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredential))
	assert.Equal(t, "no scoring credential configured for tenant 1", err.Error())
}

func TestResolverPlaceholderNeedsNoKey(t *testing.T) {
	r := &Resolver{Default: Credential{Provider: "placeholder"}}
	cred, err := r.ScoringCredential(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, "placeholder", cred.Provider)
}

func TestPGStoreGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT id, name, scoring_provider").
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "scoring_provider", "scoring_api_key", "scoring_model", "notification_email"}).
			AddRow(int64(4), "Oak House", "openai", "sk-test", nil, "manager@oak.example"))
	mock.ExpectQuery("SELECT id, name, scoring_provider").
		WithArgs(int64(5)).
		WillReturnError(sql.ErrNoRows)

	store := &PGStore{DB: db}
	tenant, err := store.Get(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, "Oak House", tenant.Name)
	assert.Equal(t, "sk-test", tenant.ScoringAPIKey)
	assert.Empty(t, tenant.ScoringModel)

	_, err = store.Get(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
