package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/destinations/internal/dto"
	"github.com/joshu-sajeev/destinations/internal/models"
	"gorm.io/datatypes"
)

// ErrDuplicateMessage is returned by Create when a delivery with the same
// message id is already stored.
var ErrDuplicateMessage = errors.New("duplicate message id")

// DeliveryRepoInterface defines the contract for delivery persistence.
type DeliveryRepoInterface interface {
	Create(ctx context.Context, d *models.Delivery) error
	Get(ctx context.Context, id uint) (*models.Delivery, error)
	List(ctx context.Context, destination string) ([]models.Delivery, error)
	Requeue(ctx context.Context, id uint) error
	AcquireNext(ctx context.Context, destination string, workerID uint) (*models.Delivery, error)
	MarkCompleted(ctx context.Context, id uint, result datatypes.JSON) error
	MarkFailed(ctx context.Context, id uint, errMsg string) error
	RetryLater(ctx context.Context, id uint, errMsg string, next time.Time) error
	ListStuck(ctx context.Context, lockedBefore time.Time) ([]models.Delivery, error)
	Release(ctx context.Context, id uint) error
}

// Deduper claims message ids so a message is enqueued at most once.
type Deduper interface {
	Claim(ctx context.Context, messageID string) (bool, error)
	Forget(ctx context.Context, messageID string) error
}

// DeliveryServiceInterface defines the contract for delivery business logic.
type DeliveryServiceInterface interface {
	Enqueue(ctx context.Context, req *dto.DeliveryCreateDTO) (*dto.DeliveryResponseDTO, error)
	Get(ctx context.Context, id uint) (*dto.DeliveryResponseDTO, error)
	List(ctx context.Context, destination string) ([]dto.DeliveryResponseDTO, error)
	Retry(ctx context.Context, id uint) error
	Perform(ctx context.Context, destination, action string, req *dto.PerformDTO) (*dto.PerformResponseDTO, error)
}

// DeliveryHandlerInterface defines the contract for HTTP request handlers.
type DeliveryHandlerInterface interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	List(c *gin.Context)
	Retry(c *gin.Context)
	Perform(c *gin.Context)
	Destinations(c *gin.Context)
}
