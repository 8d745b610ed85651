package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/delivery"
	"github.com/joshu-sajeev/destinations/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// acquireAttempts bounds how often AcquireNext retries after losing a race
// for the same row to another worker.
const acquireAttempts = 3

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

var _ delivery.DeliveryRepoInterface = (*DeliveryRepository)(nil)

// Create inserts a new delivery. A second delivery with the same message id
// yields delivery.ErrDuplicateMessage.
func (r *DeliveryRepository) Create(ctx context.Context, d *models.Delivery) error {
	if err := r.db.WithContext(ctx).Create(d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("create delivery: %w", delivery.ErrDuplicateMessage)
		}
		return fmt.Errorf("create delivery: %w", err)
	}
	return nil
}

// Get retrieves a single delivery by its ID.
func (r *DeliveryRepository) Get(ctx context.Context, id uint) (*models.Delivery, error) {
	var d models.Delivery
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("delivery not found: %w", err)
		}
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	return &d, nil
}

// List returns the deliveries of a destination, newest first. An empty
// destination lists every delivery.
func (r *DeliveryRepository) List(ctx context.Context, destination string) ([]models.Delivery, error) {
	q := r.db.WithContext(ctx).Order("id DESC")
	if destination != "" {
		q = q.Where("destination = ?", destination)
	}

	var out []models.Delivery
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	return out, nil
}

// Requeue moves a failed delivery back to the queue with a fresh attempt
// budget. Deliveries in any other state are left alone and gorm.ErrRecordNotFound
// is returned.
func (r *DeliveryRepository) Requeue(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Delivery{}).
		Where("id = ? AND status = ?", id, config.DeliveryStatusFailed).
		Updates(map[string]any{
			"status":       config.DeliveryStatusQueued,
			"attempts":     0,
			"error":        "",
			"available_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("requeue delivery: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("requeue delivery %d: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}

// AcquireNext claims the oldest due delivery of destination for workerID and
// marks it running. The claim is an optimistic update guarded on the queued
// status, so two workers never run the same delivery. It returns nil when
// nothing is due.
func (r *DeliveryRepository) AcquireNext(ctx context.Context, destination string, workerID uint) (*models.Delivery, error) {
	db := r.db.WithContext(ctx)

	for range acquireAttempts {
		now := time.Now().UTC()

		var d models.Delivery
		err := db.
			Where("destination = ? AND status = ? AND available_at <= ?", destination, config.DeliveryStatusQueued, now).
			Order("available_at ASC, id ASC").
			First(&d).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("acquire delivery: %w", err)
		}

		res := db.Model(&models.Delivery{}).
			Where("id = ? AND status = ?", d.ID, config.DeliveryStatusQueued).
			Updates(map[string]any{
				"status":    config.DeliveryStatusRunning,
				"attempts":  gorm.Expr("attempts + ?", 1),
				"locked_by": workerID,
				"locked_at": now,
			})
		if res.Error != nil {
			return nil, fmt.Errorf("lock delivery %d: %w", d.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			return r.Get(ctx, d.ID)
		}
	}
	return nil, nil
}

// MarkCompleted stores the result of a successful run and releases the lock.
func (r *DeliveryRepository) MarkCompleted(ctx context.Context, id uint, result datatypes.JSON) error {
	return r.finish(ctx, id, map[string]any{
		"status": config.DeliveryStatusCompleted,
		"result": result,
		"error":  "",
	})
}

// MarkFailed records a terminal failure.
func (r *DeliveryRepository) MarkFailed(ctx context.Context, id uint, errMsg string) error {
	return r.finish(ctx, id, map[string]any{
		"status": config.DeliveryStatusFailed,
		"error":  errMsg,
	})
}

// RetryLater requeues a failed run to become due at next.
func (r *DeliveryRepository) RetryLater(ctx context.Context, id uint, errMsg string, next time.Time) error {
	return r.finish(ctx, id, map[string]any{
		"status":       config.DeliveryStatusQueued,
		"error":        errMsg,
		"available_at": next.UTC(),
	})
}

// ListStuck returns running deliveries locked before lockedBefore, which
// belong to workers that died or hung.
func (r *DeliveryRepository) ListStuck(ctx context.Context, lockedBefore time.Time) ([]models.Delivery, error) {
	var out []models.Delivery
	if err := r.db.WithContext(ctx).
		Where("status = ? AND locked_at < ?", config.DeliveryStatusRunning, lockedBefore.UTC()).
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list stuck deliveries: %w", err)
	}
	return out, nil
}

// Release puts a running delivery back in the queue. The attempt it was
// running on stays counted.
func (r *DeliveryRepository) Release(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.Delivery{}).
		Where("id = ? AND status = ?", id, config.DeliveryStatusRunning).
		Updates(map[string]any{
			"status":    config.DeliveryStatusQueued,
			"locked_by": nil,
			"locked_at": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("release delivery: %w", res.Error)
	}
	return nil
}

func (r *DeliveryRepository) finish(ctx context.Context, id uint, updates map[string]any) error {
	updates["locked_by"] = nil
	updates["locked_at"] = nil

	if err := r.db.WithContext(ctx).Model(&models.Delivery{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("update delivery %d: %w", id, err)
	}
	return nil
}
