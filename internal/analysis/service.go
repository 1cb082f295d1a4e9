// Package analysis orchestrates scoring runs over unscored transactions.
//
// A run drains the backlog through a bounded worker pool. Each transaction is
// scored against a baseline snapshot taken under a per-vendor/per-department
// lock, so two workers can never interleave snapshot and commit for the same
// vendor or department. Baselines therefore reflect exactly the transactions
// committed before each snapshot, and re-running analysis never changes an
// already recorded verdict.
package analysis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spendwatch/spendwatch/internal/anomaly"
	"github.com/spendwatch/spendwatch/internal/baseline"
	"github.com/spendwatch/spendwatch/internal/logging"
	"github.com/spendwatch/spendwatch/internal/metrics"
	"github.com/spendwatch/spendwatch/internal/realtime"
	"github.com/spendwatch/spendwatch/internal/retry"
	"github.com/spendwatch/spendwatch/internal/scoring"
	"github.com/spendwatch/spendwatch/internal/syncutil"
	"github.com/spendwatch/spendwatch/internal/traces"
	"github.com/spendwatch/spendwatch/internal/transaction"
)

const (
	// batchLimit bounds how many unscored transactions one run drains.
	batchLimit = 10000

	commitAttempts  = 3
	commitBaseDelay = 50 * time.Millisecond
)

// Hub is the subset of the realtime hub the service needs.
type Hub interface {
	BroadcastAnomaly(a *realtime.FlaggedAnomaly)
	Broadcast(event *realtime.Event)
}

// Service runs the scoring pipeline: snapshot, score, classify, commit.
type Service struct {
	store      anomaly.Store
	baselines  baseline.Store
	engine     *scoring.Engine
	classifier *scoring.Classifier
	hub        Hub
	logger     *slog.Logger
	workers    int

	// Bound on each storage call; zero disables the bound.
	storageTimeout time.Duration

	locks syncutil.ShardedMutex

	// Guards against overlapping runs; concurrent triggers coalesce into
	// the run already in flight.
	running atomic.Bool
}

// New creates an analysis service. hub may be nil when the realtime feed is
// disabled. storageTimeout bounds each snapshot and commit; zero means no
// bound.
func New(store anomaly.Store, baselines baseline.Store, engine *scoring.Engine,
	classifier *scoring.Classifier, hub Hub, logger *slog.Logger,
	workers int, storageTimeout time.Duration) *Service {

	if workers <= 0 {
		workers = 1
	}
	return &Service{
		store:          store,
		baselines:      baselines,
		engine:         engine,
		classifier:     classifier,
		hub:            hub,
		logger:         logger,
		workers:        workers,
		storageTimeout: storageTimeout,
	}
}

// storageCtx derives a context bounding one storage operation.
func (s *Service) storageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storageTimeout)
}

// RunStats summarizes one analysis run.
type RunStats struct {
	Analyzed int64 `json:"analyzed"`
	Flagged  int64 `json:"flagged"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`
}

// ErrRunInProgress is returned when a run is already draining the backlog.
var ErrRunInProgress = errors.New("analysis run already in progress")

// Run scores every unscored transaction and returns run statistics. Safe to
// call repeatedly: transactions that already have a result are skipped.
func (s *Service) Run(ctx context.Context) (*RunStats, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	ctx, span := traces.StartSpan(ctx, "analysis.run")
	defer span.End()

	start := time.Now()
	metrics.AnalysisRuns.Inc()

	listCtx, cancel := s.storageCtx(ctx)
	pending, err := s.store.ListUnscored(listCtx, batchLimit)
	cancel()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(traces.BatchSize(len(pending)))

	stats := &RunStats{}
	if len(pending) == 0 {
		s.logger.Info("analysis run: nothing to score")
		return stats, nil
	}

	work := make(chan *transaction.Transaction)
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tx := range work {
				s.analyzeOne(ctx, tx, stats)
			}
		}()
	}

	for _, tx := range pending {
		select {
		case <-ctx.Done():
			// Stop feeding; workers drain what they already hold.
			goto done
		case work <- tx:
		}
	}
done:
	close(work)
	wg.Wait()

	elapsed := time.Since(start)
	metrics.AnalysisDuration.Observe(elapsed.Seconds())
	s.logger.Info("analysis run complete",
		"analyzed", stats.Analyzed,
		"flagged", stats.Flagged,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"duration", elapsed,
	)

	if s.hub != nil {
		s.hub.Broadcast(&realtime.Event{
			Type:      realtime.EventAnalysisCompleted,
			Timestamp: time.Now(),
			Data:      stats,
		})
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	return stats, nil
}

// analyzeOne scores and commits a single transaction. The vendor and
// department locks are held across snapshot and commit so the snapshot a
// score is derived from cannot go stale before the commit lands.
func (s *Service) analyzeOne(ctx context.Context, tx *transaction.Transaction, stats *RunStats) {
	ctx, span := traces.StartSpan(ctx, "analysis.transaction",
		traces.TransactionID(tx.ID),
		traces.VendorID(tx.VendorID),
		traces.Department(tx.Department),
	)
	defer span.End()

	unlock := s.locks.LockPair("vendor:"+tx.VendorID, "dept:"+tx.Department)
	defer unlock()

	snapCtx, cancel := s.storageCtx(ctx)
	snap, err := s.baselines.Snapshot(snapCtx, tx.VendorID, tx.Department, tx.Location)
	cancel()
	if err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		logging.L(ctx).Error("baseline snapshot failed", "transaction_id", tx.ID, "error", err)
		return
	}

	score, features := s.engine.Score(tx, snap)
	level, reasons := s.classifier.Classify(score, s.engine.Triggered(features))
	span.SetAttributes(traces.Score(score), traces.RiskLevel(string(level)))

	res := &anomaly.Result{
		TransactionID: tx.ID,
		Score:         score,
		RiskLevel:     level,
		Reasons:       reasons,
		DetectedAt:    time.Now(),
	}
	delta := baseline.Delta{
		VendorID:   tx.VendorID,
		Department: tx.Department,
		Location:   tx.Location,
		Amount:     tx.Amount,
	}

	err = retry.Do(ctx, commitAttempts, commitBaseDelay, func() error {
		// Each attempt gets its own bounded context so one stuck commit
		// cannot stall a worker for the rest of the run.
		commitCtx, cancel := s.storageCtx(ctx)
		defer cancel()

		err := s.store.Commit(commitCtx, res, delta)
		if errors.Is(err, anomaly.ErrAlreadyAnalyzed) {
			return retry.Permanent(err)
		}
		return err
	})
	switch {
	case errors.Is(err, anomaly.ErrAlreadyAnalyzed):
		atomic.AddInt64(&stats.Skipped, 1)
		return
	case err != nil:
		atomic.AddInt64(&stats.Failed, 1)
		metrics.CommitFailures.Inc()
		logging.L(ctx).Error("result commit failed", "transaction_id", tx.ID, "error", err)
		return
	}

	atomic.AddInt64(&stats.Analyzed, 1)
	metrics.TransactionsScored.WithLabelValues(string(level)).Inc()

	if level.Flagged() {
		atomic.AddInt64(&stats.Flagged, 1)
		logging.L(ctx).Info("transaction flagged",
			"transaction_id", tx.ID,
			"vendor_id", tx.VendorID,
			"department", tx.Department,
			"score", score,
			"risk_level", level,
		)
		if s.hub != nil {
			s.hub.BroadcastAnomaly(&realtime.FlaggedAnomaly{
				TransactionID: tx.ID,
				VendorID:      tx.VendorID,
				VendorName:    tx.VendorName,
				Department:    tx.Department,
				Amount:        tx.Amount,
				Location:      tx.Location,
				Score:         score,
				RiskLevel:     level,
				Reasons:       reasons,
			})
		}
	}
}
