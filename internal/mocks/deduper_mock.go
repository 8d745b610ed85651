package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type DeduperMock struct {
	mock.Mock
}

func (m *DeduperMock) Claim(ctx context.Context, messageID string) (bool, error) {
	args := m.Called(ctx, messageID)
	return args.Bool(0), args.Error(1)
}

func (m *DeduperMock) Forget(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}
