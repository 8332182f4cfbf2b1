package notify

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a notification.
func (r *PGRepo) Create(ctx context.Context, n Notification) (int64, error) {
	const query = `
INSERT INTO notifications (tenant_id, user_id, job_id, kind, title, body)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`
	var jobID any
	if n.JobID > 0 {
		jobID = n.JobID
	}
	var id int64
	if err := r.DB.QueryRowContext(ctx, query, n.TenantID, n.UserID, jobID, n.Kind, n.Title, n.Body).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// ListForUser returns a user's notifications newest first.
func (r *PGRepo) ListForUser(ctx context.Context, tenantID int64, userID string, limit int) ([]Notification, error) {
	const query = `
SELECT id, tenant_id, user_id, job_id, kind, title, body, read_at, created_at
FROM notifications
WHERE tenant_id = $1 AND user_id = $2
ORDER BY created_at DESC, id DESC
LIMIT $3`
	rows, err := r.DB.QueryContext(ctx, query, tenantID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		var jobID sql.NullInt64
		var readAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.TenantID, &n.UserID, &jobID, &n.Kind, &n.Title, &n.Body, &readAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.JobID = jobID.Int64
		if readAt.Valid {
			n.ReadAt = &readAt.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
