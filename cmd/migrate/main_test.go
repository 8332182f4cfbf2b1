package main

import (
	"context"
	"strings"
	"testing"

	"careaudit-backend/internal/shared/config"
)

func TestRunRequiresDatabaseURL(t *testing.T) {
	err := run(context.Background(), config.Config{Env: "dev"}, "status")
	if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
		t.Fatalf("expected missing DATABASE_URL error, got %v", err)
	}
}
