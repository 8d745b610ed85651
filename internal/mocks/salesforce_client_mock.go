package mocks

import (
	"context"

	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/destinations/salesforce"
	"github.com/stretchr/testify/mock"
)

type SalesforceClientMock struct {
	mock.Mock
}

func (m *SalesforceClientMock) CreateRecord(ctx context.Context, rec salesforce.Record, object string) (*actions.Result, error) {
	args := m.Called(ctx, rec, object)

	res, _ := args.Get(0).(*actions.Result)
	return res, args.Error(1)
}

func (m *SalesforceClientMock) UpdateRecord(ctx context.Context, rec salesforce.Record, object string) (*actions.Result, error) {
	args := m.Called(ctx, rec, object)

	res, _ := args.Get(0).(*actions.Result)
	return res, args.Error(1)
}

func (m *SalesforceClientMock) UpsertRecord(ctx context.Context, rec salesforce.Record, object string) (*actions.Result, error) {
	args := m.Called(ctx, rec, object)

	res, _ := args.Get(0).(*actions.Result)
	return res, args.Error(1)
}

func (m *SalesforceClientMock) DeleteRecord(ctx context.Context, rec salesforce.Record, object string) (*actions.Result, error) {
	args := m.Called(ctx, rec, object)

	res, _ := args.Get(0).(*actions.Result)
	return res, args.Error(1)
}

func (m *SalesforceClientMock) BulkHandler(ctx context.Context, recs []salesforce.Record, object string, opts salesforce.BulkOptions) (*actions.Result, error) {
	args := m.Called(ctx, recs, object, opts)

	res, _ := args.Get(0).(*actions.Result)
	return res, args.Error(1)
}
