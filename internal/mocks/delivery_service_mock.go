package mocks

import (
	"context"

	"github.com/joshu-sajeev/destinations/internal/dto"
	"github.com/stretchr/testify/mock"
)

type DeliveryServiceMock struct {
	mock.Mock
}

func (m *DeliveryServiceMock) Enqueue(ctx context.Context, req *dto.DeliveryCreateDTO) (*dto.DeliveryResponseDTO, error) {
	args := m.Called(ctx, req)

	resp, _ := args.Get(0).(*dto.DeliveryResponseDTO)
	return resp, args.Error(1)
}

func (m *DeliveryServiceMock) Get(ctx context.Context, id uint) (*dto.DeliveryResponseDTO, error) {
	args := m.Called(ctx, id)

	resp, _ := args.Get(0).(*dto.DeliveryResponseDTO)
	return resp, args.Error(1)
}

func (m *DeliveryServiceMock) List(ctx context.Context, destination string) ([]dto.DeliveryResponseDTO, error) {
	args := m.Called(ctx, destination)

	items, _ := args.Get(0).([]dto.DeliveryResponseDTO)
	return items, args.Error(1)
}

func (m *DeliveryServiceMock) Retry(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DeliveryServiceMock) Perform(ctx context.Context, destination, action string, req *dto.PerformDTO) (*dto.PerformResponseDTO, error) {
	args := m.Called(ctx, destination, action, req)

	resp, _ := args.Get(0).(*dto.PerformResponseDTO)
	return resp, args.Error(1)
}
