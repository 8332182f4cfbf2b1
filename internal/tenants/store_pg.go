package tenants

import (
	"context"
	"database/sql"
	"errors"
)

// PGStore implements Store using Postgres.
type PGStore struct {
	DB *sql.DB
}

// Get returns a tenant by ID.
func (s *PGStore) Get(ctx context.Context, id int64) (Tenant, error) {
	const query = `
SELECT id, name, scoring_provider, scoring_api_key, scoring_model, notification_email
FROM tenants
WHERE id = $1`
	var t Tenant
	var provider, apiKey, model, email sql.NullString
	err := s.DB.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &provider, &apiKey, &model, &email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Tenant{}, ErrNotFound
		}
		return Tenant{}, err
	}
	t.ScoringProvider = provider.String
	t.ScoringAPIKey = apiKey.String
	t.ScoringModel = model.String
	t.NotificationEmail = email.String
	return t, nil
}
