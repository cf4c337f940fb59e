package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/aftersales-service/internal/domain"
	"github.com/spec-kit/aftersales-service/internal/repository"
	"github.com/spec-kit/aftersales-service/internal/service"
)

type countingCaseRepo struct {
	repository.CaseRepository
	sweeps int
}

func (r *countingCaseRepo) ListOpenForSweep(ctx context.Context) ([]domain.AfterSalesCase, error) {
	r.sweeps++
	return nil, nil
}

type fakeSweepLocker struct {
	heldElsewhere bool
	err           error
	acquires      int
	releases      int
}

func (l *fakeSweepLocker) AcquireSweepLock(ctx context.Context, ttl time.Duration) (bool, error) {
	l.acquires++
	if l.err != nil {
		return false, l.err
	}
	return !l.heldElsewhere, nil
}

func (l *fakeSweepLocker) ReleaseSweepLock(ctx context.Context) error {
	l.releases++
	return nil
}

func TestRunSweepHonorsLeaderLock(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	newEngine := func(repo *countingCaseRepo) *service.EscalationService {
		return service.NewEscalationService(service.EscalationDependencies{
			CaseRepo: repo,
			Logger:   logger,
		})
	}

	t.Run("runs when lock acquired and releases it", func(t *testing.T) {
		repo := &countingCaseRepo{}
		locker := &fakeSweepLocker{}
		runSweep(ctx, newEngine(repo), locker, time.Minute, logger)
		if repo.sweeps != 1 {
			t.Fatalf("sweeps = %d, want 1", repo.sweeps)
		}
		if locker.acquires != 1 || locker.releases != 1 {
			t.Fatalf("acquires = %d releases = %d, want 1 and 1", locker.acquires, locker.releases)
		}
	})

	t.Run("skips when another instance holds the lock", func(t *testing.T) {
		repo := &countingCaseRepo{}
		locker := &fakeSweepLocker{heldElsewhere: true}
		runSweep(ctx, newEngine(repo), locker, time.Minute, logger)
		if repo.sweeps != 0 {
			t.Fatalf("sweeps = %d, want 0", repo.sweeps)
		}
		if locker.releases != 0 {
			t.Fatalf("releases = %d, want 0", locker.releases)
		}
	})

	t.Run("runs unguarded when the lock backend is down", func(t *testing.T) {
		repo := &countingCaseRepo{}
		locker := &fakeSweepLocker{err: errors.New("connection refused")}
		runSweep(ctx, newEngine(repo), locker, time.Minute, logger)
		if repo.sweeps != 1 {
			t.Fatalf("sweeps = %d, want 1", repo.sweeps)
		}
		if locker.releases != 0 {
			t.Fatalf("releases = %d, want 0", locker.releases)
		}
	})

	t.Run("runs without any locker", func(t *testing.T) {
		repo := &countingCaseRepo{}
		runSweep(ctx, newEngine(repo), nil, time.Minute, logger)
		if repo.sweeps != 1 {
			t.Fatalf("sweeps = %d, want 1", repo.sweeps)
		}
	})
}
