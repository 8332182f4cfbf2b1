// Package notify tells users when their audits finish: an in-app record plus
// an email. Both are best effort.
package notify

import (
	"context"
	"time"
)

// Notification kinds.
const (
	KindAuditCompleted = "audit_completed"
	KindAuditFailed    = "audit_failed"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID        int64      `json:"id"`
	TenantID  int64      `json:"-"`
	UserID    string     `json:"-"`
	JobID     int64      `json:"jobId"`
	Kind      string     `json:"kind"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Repo persists in-app notifications.
type Repo interface {
	Create(ctx context.Context, n Notification) (int64, error)
	ListForUser(ctx context.Context, tenantID int64, userID string, limit int) ([]Notification, error)
}

// Email is one outgoing message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// EmailSender delivers email.
type EmailSender interface {
	SendEmail(ctx context.Context, e Email) error
}
