package pool

import (
	"context"
	"sync"
	"time"

	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/delivery"
	"github.com/joshu-sajeev/destinations/internal/worker"
	"github.com/rs/zerolog"
)

const defaultJanitorInterval = 30 * time.Second

// Options configure a WorkerPool. Worker is passed to every worker.
type Options struct {
	Count           int
	LockDuration    time.Duration
	JanitorInterval time.Duration
	Worker          worker.Options
}

type WorkerPool struct {
	workers         []*worker.Worker
	repo            delivery.DeliveryRepoInterface
	lockDuration    time.Duration
	janitorInterval time.Duration
	logger          zerolog.Logger
	wg              sync.WaitGroup
	ctx             context.Context
	cancel          context.CancelFunc
}

// NewWorkerPool builds Count workers polling queues, plus a janitor that
// returns deliveries locked longer than twice LockDuration to the queue.
func NewWorkerPool(repo delivery.DeliveryRepoInterface, registry *actions.Registry, queues []string, opts Options) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	p := &WorkerPool{
		repo:            repo,
		lockDuration:    opts.LockDuration,
		janitorInterval: opts.JanitorInterval,
		logger:          opts.Worker.Logger,
		ctx:             ctx,
		cancel:          cancel,
	}
	if p.janitorInterval <= 0 {
		p.janitorInterval = defaultJanitorInterval
	}

	for i := 1; i <= opts.Count; i++ {
		p.workers = append(p.workers, worker.NewWorker(i, repo, registry, queues, opts.Worker))
	}
	return p
}

func (p *WorkerPool) Start() {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *worker.Worker) {
			defer p.wg.Done()
			w.Run(p.ctx)
		}(w)
	}

	p.wg.Add(1)
	go p.janitor()

	p.logger.Info().Int("workers", len(p.workers)).Dur("lock_duration", p.lockDuration).Msg("worker pool started")
}

func (p *WorkerPool) janitor() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.recoverStuck(p.ctx)
		case <-p.ctx.Done():
			return
		}
	}
}

// recoverStuck releases running deliveries whose lock is older than twice the
// lock duration and returns how many were released.
func (p *WorkerPool) recoverStuck(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-2 * p.lockDuration)

	stuck, err := p.repo.ListStuck(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error().Err(err).Msg("list stuck deliveries")
		}
		return 0
	}

	released := 0
	for _, d := range stuck {
		if err := p.repo.Release(ctx, d.ID); err != nil {
			p.logger.Error().Err(err).Uint("delivery_id", d.ID).Msg("release stuck delivery")
			continue
		}
		p.logger.Warn().Uint("delivery_id", d.ID).Str("destination", d.Destination).Msg("recovered stuck delivery")
		released++
	}
	return released
}

// Stop cancels every worker and the janitor and waits for them to return.
// In-flight deliveries still record their outcome.
func (p *WorkerPool) Stop() {
	p.cancel()
	for _, w := range p.workers {
		w.Stop()
	}
	p.wg.Wait()
	p.logger.Info().Msg("worker pool stopped")
}
