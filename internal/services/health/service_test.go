package health

import (
	"context"
	"errors"
	"testing"
)

func TestStatusWithoutChecksIsOK(t *testing.T) {
	got := NewService().Status(context.Background())
	if !got.OK || got.Checks != nil {
		t.Fatalf("unexpected report %+v", got)
	}
}

func TestStatusReportsFailingCheck(t *testing.T) {
	s := NewService()
	s.Register("database", func(ctx context.Context) error { return nil })
	s.Register("redis", func(ctx context.Context) error { return errors.New("connection refused") })
	s.Register("ignored", nil)

	got := s.Status(context.Background())
	if got.OK {
		t.Fatalf("expected failing report")
	}
	if got.Checks["database"] != "ok" || got.Checks["redis"] != "connection refused" {
		t.Fatalf("unexpected checks %v", got.Checks)
	}
	if _, ok := got.Checks["ignored"]; ok {
		t.Fatalf("nil check must not be registered")
	}
}
