package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/delivery"
	"github.com/joshu-sajeev/destinations/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

const (
	baseBackoff = 1 * time.Second
	maxBackoff  = 5 * time.Minute

	defaultIdleMin = 1 * time.Second
	defaultIdleMax = 60 * time.Second
)

// Options tune a worker. Zero values fall back to defaults.
type Options struct {
	Features map[string]bool
	Logger   zerolog.Logger
	IdleMin  time.Duration
	IdleMax  time.Duration
}

type Worker struct {
	ID       int
	repo     delivery.DeliveryRepoInterface
	registry *actions.Registry
	queues   []string
	features map[string]bool
	logger   zerolog.Logger
	idleMin  time.Duration
	idleMax  time.Duration
	quit     chan struct{}
}

func NewWorker(id int, repo delivery.DeliveryRepoInterface, registry *actions.Registry, queues []string, opts Options) *Worker {
	w := &Worker{
		ID:       id,
		repo:     repo,
		registry: registry,
		queues:   queues,
		features: opts.Features,
		logger:   opts.Logger.With().Int("worker_id", id).Logger(),
		idleMin:  opts.IdleMin,
		idleMax:  opts.IdleMax,
		quit:     make(chan struct{}),
	}
	if w.idleMin <= 0 {
		w.idleMin = defaultIdleMin
	}
	if w.idleMax < w.idleMin {
		w.idleMax = max(defaultIdleMax, w.idleMin)
	}
	return w
}

// Run polls the queues until ctx is done or Stop is called. The poll delay
// doubles while the queues are empty and resets after each delivery.
func (w *Worker) Run(ctx context.Context) {
	currentDelay := w.idleMin

	for {
		d := w.pull(ctx)

		if d != nil {
			w.process(ctx, d)
			currentDelay = w.idleMin
		} else {
			currentDelay = min(currentDelay*2, w.idleMax)
		}

		select {
		case <-time.After(currentDelay):
		case <-w.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) Stop() { close(w.quit) }

func (w *Worker) pull(ctx context.Context) *models.Delivery {
	for _, q := range w.queues {
		d, err := w.repo.AcquireNext(ctx, q, uint(w.ID))
		if err != nil {
			if ctx.Err() == nil {
				w.logger.Error().Err(err).Str("queue", q).Msg("acquire delivery")
			}
			continue
		}
		if d != nil {
			return d
		}
	}
	return nil
}

func (w *Worker) process(ctx context.Context, d *models.Delivery) {
	log := w.logger.With().
		Uint("delivery_id", d.ID).
		Str("message_id", d.MessageID).
		Str("destination", d.Destination).
		Str("action", d.Action).
		Int("attempt", d.Attempts).
		Logger()

	start := time.Now()
	res, err := w.execute(ctx, log, d)

	// Outcomes are recorded even when shutdown cancels ctx mid-run.
	writeCtx := context.WithoutCancel(ctx)

	if err != nil {
		w.fail(writeCtx, log, d, err)
		return
	}

	b, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Msg("marshal result")
		b = nil
	}
	if err := w.repo.MarkCompleted(writeCtx, d.ID, datatypes.JSON(b)); err != nil {
		log.Error().Err(err).Msg("mark delivery completed")
		return
	}
	log.Info().Dur("duration", time.Since(start)).Msg("delivery completed")
}

func (w *Worker) execute(ctx context.Context, log zerolog.Logger, d *models.Delivery) (*actions.Result, error) {
	def, err := w.registry.Lookup(d.Destination, d.Action)
	if err != nil {
		return nil, err
	}

	ec := actions.ExecContext{
		Features: w.features,
		Logger:   log,
		Stats:    actions.LogStats{Logger: log},
	}
	return def.Run(log.WithContext(ctx), ec, json.RawMessage(d.Payload), d.Batch)
}

func (w *Worker) fail(ctx context.Context, log zerolog.Logger, d *models.Delivery, err error) {
	msg := err.Error()

	if common.IsRetryable(err) && d.Attempts < d.MaxRetries {
		next := time.Now().UTC().Add(Backoff(d.Attempts))
		if rerr := w.repo.RetryLater(ctx, d.ID, msg, next); rerr != nil {
			log.Error().Err(rerr).Msg("schedule retry")
			return
		}
		log.Warn().Err(err).Time("next_attempt", next).Msg("delivery failed, retrying")
		return
	}

	if ferr := w.repo.MarkFailed(ctx, d.ID, msg); ferr != nil {
		log.Error().Err(ferr).Msg("mark delivery failed")
		return
	}
	log.Error().Err(err).Msg("delivery failed")
}

// Backoff returns the delay before retrying after the given attempt:
// 1s, 2s, 4s ... capped at five minutes.
func Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 20 {
		return maxBackoff
	}
	return min(baseBackoff<<(attempt-1), maxBackoff)
}
