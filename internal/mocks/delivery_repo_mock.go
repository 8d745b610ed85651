package mocks

import (
	"context"
	"time"

	"github.com/joshu-sajeev/destinations/internal/models"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
)

type DeliveryRepoMock struct {
	mock.Mock
}

func (m *DeliveryRepoMock) Create(ctx context.Context, d *models.Delivery) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *DeliveryRepoMock) Get(ctx context.Context, id uint) (*models.Delivery, error) {
	args := m.Called(ctx, id)

	d, _ := args.Get(0).(*models.Delivery)
	return d, args.Error(1)
}

func (m *DeliveryRepoMock) List(ctx context.Context, destination string) ([]models.Delivery, error) {
	args := m.Called(ctx, destination)

	items, _ := args.Get(0).([]models.Delivery)
	return items, args.Error(1)
}

func (m *DeliveryRepoMock) Requeue(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DeliveryRepoMock) AcquireNext(ctx context.Context, destination string, workerID uint) (*models.Delivery, error) {
	args := m.Called(ctx, destination, workerID)

	d, _ := args.Get(0).(*models.Delivery)
	return d, args.Error(1)
}

func (m *DeliveryRepoMock) MarkCompleted(ctx context.Context, id uint, result datatypes.JSON) error {
	args := m.Called(ctx, id, result)
	return args.Error(0)
}

func (m *DeliveryRepoMock) MarkFailed(ctx context.Context, id uint, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *DeliveryRepoMock) RetryLater(ctx context.Context, id uint, errMsg string, next time.Time) error {
	args := m.Called(ctx, id, errMsg, next)
	return args.Error(0)
}

func (m *DeliveryRepoMock) ListStuck(ctx context.Context, lockedBefore time.Time) ([]models.Delivery, error) {
	args := m.Called(ctx, lockedBefore)

	items, _ := args.Get(0).([]models.Delivery)
	return items, args.Error(1)
}

func (m *DeliveryRepoMock) Release(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
