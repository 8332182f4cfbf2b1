package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryRepoClaimsOldestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	newer, _ := repo.Create(ctx, Job{TenantID: 1, Kind: "care_plan", CreatedAt: base.Add(time.Minute)})
	older, _ := repo.Create(ctx, Job{TenantID: 1, Kind: "care_plan", CreatedAt: base})

	first, err := repo.ClaimNextPending(ctx, "Claimed")
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if first.ID != older || first.Status != StatusProcessing || first.Progress != "Claimed" {
		t.Fatalf("expected oldest job %d claimed, got %+v", older, first)
	}
	second, err := repo.ClaimNextPending(ctx, "Claimed")
	if err != nil || second.ID != newer {
		t.Fatalf("expected job %d, got %+v err=%v", newer, second, err)
	}
	if _, err := repo.ClaimNextPending(ctx, "Claimed"); !errors.Is(err, ErrNoPendingJobs) {
		t.Fatalf("expected ErrNoPendingJobs, got %v", err)
	}
}

func TestMemoryRepoConcurrentClaimsAreExclusive(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	for i := 0; i < 20; i++ {
		if _, err := repo.Create(ctx, Job{TenantID: 1}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	var mu sync.Mutex
	seen := map[int64]int{}
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := repo.ClaimNextPending(ctx, "Claimed")
				if errors.Is(err, ErrNoPendingJobs) {
					return
				}
				if err != nil {
					t.Errorf("ClaimNextPending: %v", err)
					return
				}
				mu.Lock()
				seen[job.ID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 20 {
		t.Fatalf("expected 20 distinct claims, got %d", len(seen))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("job %d claimed %d times", id, n)
		}
	}
}

func TestMemoryRepoStateMachine(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	id, _ := repo.Create(ctx, Job{TenantID: 1})

	if err := repo.Complete(ctx, id, Completion{Score: 70}); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> completed must be rejected, got %v", err)
	}
	if err := repo.Fail(ctx, id, "boom"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pending -> failed must be rejected, got %v", err)
	}
	if _, err := repo.ClaimNextPending(ctx, "Claimed"); err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if err := repo.UpdateProgress(ctx, id, "Parsing document"); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if err := repo.Complete(ctx, id, Completion{Score: 70, ReportFileName: "r.docx"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := repo.Fail(ctx, id, "late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("completed -> failed must be rejected, got %v", err)
	}
	if err := repo.UpdateProgress(ctx, id, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("terminal job progress must be rejected, got %v", err)
	}

	job, _ := repo.GetByID(ctx, id)
	if job.Status != StatusCompleted || job.Score == nil || *job.Score != 70 || job.ProcessedAt == nil {
		t.Fatalf("unexpected completed job: %+v", job)
	}
}

func TestMemoryRepoFailStaleAndPurge(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	staleID, _ := repo.Create(ctx, Job{TenantID: 1, SourceTempKey: "sources/x/1_a.pdf"})
	if _, err := repo.ClaimNextPending(ctx, "Claimed"); err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}

	clock = clock.Add(time.Hour)
	failed, err := repo.FailStale(ctx, clock.Add(-30*time.Minute), "worker interrupted")
	if err != nil {
		t.Fatalf("FailStale: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != staleID || *failed[0].ErrorMessage != "worker interrupted" {
		t.Fatalf("unexpected stale result: %+v", failed)
	}

	res, err := repo.PurgeExpired(ctx, clock)
	if err != nil {
		t.Fatalf("PurgeExpired: %v", err)
	}
	if res.Rows != 1 || len(res.TempKeys) != 1 || res.TempKeys[0] != "sources/x/1_a.pdf" {
		t.Fatalf("unexpected purge: %+v", res)
	}
	job, _ := repo.GetByID(ctx, staleID)
	if job.Status != StatusFailed || job.SourceTempKey != "" {
		t.Fatalf("purge must keep status and clear source: %+v", job)
	}

	res, _ = repo.PurgeExpired(ctx, clock)
	if res.Rows != 0 {
		t.Fatalf("second purge should be a no-op, got %+v", res)
	}
}

func TestMemoryRepoListAndDelete(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	a, _ := repo.Create(ctx, Job{TenantID: 1, CreatedAt: base})
	b, _ := repo.Create(ctx, Job{TenantID: 1, CreatedAt: base.Add(time.Minute)})
	_, _ = repo.Create(ctx, Job{TenantID: 2, CreatedAt: base})

	list, err := repo.ListByTenant(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("ListByTenant: %v", err)
	}
	if len(list) != 2 || list[0].ID != b || list[1].ID != a {
		t.Fatalf("expected newest first, got %+v", list)
	}

	if err := repo.Delete(ctx, 1, a); !errors.Is(err, ErrNotTerminal) {
		t.Fatalf("expected ErrNotTerminal, got %v", err)
	}
	if err := repo.Delete(ctx, 2, a); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other tenant, got %v", err)
	}
}
