package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/article-publishing-api/internal/config"
	"github.com/article-publishing-api/internal/repository"
	"github.com/article-publishing-api/internal/storage"
	"github.com/rs/zerolog"
)

// SweepReport summarizes one sweep
type SweepReport struct {
	TempRemoved   int `json:"temp_removed"`
	RolledForward int `json:"rolled_forward"`
	RolledBack    int `json:"rolled_back"`
}

// sweepService is the concrete implementation of SweepService
type sweepService struct {
	articles repository.ArticleRepository
	store    *storage.Store
	publish  *publishService
	cfg      config.SweepConfig
	now      func() time.Time
	log      zerolog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	running  bool
	stopped  bool
	mu       sync.Mutex
	// sweeping serializes RunOnce between the ticker and manual calls
	sweeping sync.Mutex
}

func newSweepService(repos *repository.Repositories, store *storage.Store, publish *publishService, cfg *config.Config, log zerolog.Logger) *sweepService {
	return &sweepService{
		articles: repos.Article,
		store:    store,
		publish:  publish,
		cfg:      cfg.Sweep,
		now:      time.Now,
		log:      log.With().Str("service", "sweep").Logger(),
	}
}

// Start runs the sweeper until ctx is cancelled or Stop is called.
// It blocks; callers run it in its own goroutine. A Start that arrives
// after Stop returns at once.
func (s *sweepService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running || s.stopped || !s.cfg.Enabled || s.cfg.Interval <= 0 {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	s.log.Info().
		Dur("interval", s.cfg.Interval).
		Dur("temp_ttl", s.cfg.TempTTL).
		Dur("pending_ttl", s.cfg.PendingTTL).
		Msg("Sweeper started")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.sweep()
	for {
		select {
		case <-s.ctx.Done():
			s.log.Info().Msg("Sweeper stopping")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// Stop cancels the sweeper and waits for an in-flight sweep
func (s *sweepService) Stop() {
	s.mu.Lock()
	s.stopped = true
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.log.Info().Msg("Sweeper stopped")
}

func (s *sweepService) sweep() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("Sweep panicked - recovered")
		}
	}()

	report, err := s.RunOnce(s.ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		s.log.Error().Err(err).Msg("Sweep failed")
	}
	if report.TempRemoved+report.RolledForward+report.RolledBack > 0 {
		s.log.Info().
			Int("temp_removed", report.TempRemoved).
			Int("rolled_forward", report.RolledForward).
			Int("rolled_back", report.RolledBack).
			Msg("Sweep completed")
	}
}

// RunOnce expires abandoned temp artifacts and reconciles stale pending
// rows. It keeps going after individual failures and returns them joined.
func (s *sweepService) RunOnce(ctx context.Context) (*SweepReport, error) {
	s.sweeping.Lock()
	defer s.sweeping.Unlock()

	report := &SweepReport{}
	now := s.now()
	var errs []error

	if s.cfg.TempTTL > 0 {
		removed, err := s.store.SweepTemp(now.Add(-s.cfg.TempTTL))
		report.TempRemoved = removed
		sweepRemovedTotal.WithLabelValues("temp_artifact").Add(float64(removed))
		if err != nil {
			errs = append(errs, err)
		}
	}

	if s.cfg.PendingTTL > 0 {
		stale, err := s.articles.ListStalePending(ctx, now.Add(-s.cfg.PendingTTL))
		if err != nil {
			errs = append(errs, err)
		}
		for _, article := range stale {
			if err := ctx.Err(); err != nil {
				errs = append(errs, err)
				break
			}

			forward, err := s.publish.recoverPending(ctx, article)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if forward {
				report.RolledForward++
				sweepRemovedTotal.WithLabelValues("pending_rolled_forward").Inc()
				s.log.Info().Int64("article_id", article.ID).Msg("Pending article rolled forward")
			} else {
				report.RolledBack++
				sweepRemovedTotal.WithLabelValues("pending_rolled_back").Inc()
				s.log.Info().Int64("article_id", article.ID).Msg("Pending article rolled back")
			}
		}
	}

	return report, errors.Join(errs...)
}
