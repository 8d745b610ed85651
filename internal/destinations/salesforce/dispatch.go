package salesforce

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/config"
)

// Dispatch routes one record to the client call matching its operation.
// required guards create and upsert. At most one client call is made and
// client errors are returned as is.
func Dispatch(ctx context.Context, client Client, rec Record, object string, required Check) (*actions.Result, error) {
	if rec.Operation == config.OperationCreate {
		if err := run(required); err != nil {
			return nil, err
		}
		return client.CreateRecord(ctx, rec, object)
	}

	if err := ValidateLookup(rec); err != nil {
		return nil, err
	}

	switch rec.Operation {
	case config.OperationUpdate:
		return client.UpdateRecord(ctx, rec, object)
	case config.OperationUpsert:
		if err := run(required); err != nil {
			return nil, err
		}
		return client.UpsertRecord(ctx, rec, object)
	case config.OperationDelete:
		return client.DeleteRecord(ctx, rec, object)
	default:
		return nil, common.NewIntegrationError(
			fmt.Sprintf("unsupported operation %q", rec.Operation),
			common.CodeInvalidInput,
			http.StatusBadRequest,
		)
	}
}

// DispatchBatch hands a batch to the client's bulk handler. Batches share one
// operation, so only the first record is checked against required.
func DispatchBatch(ctx context.Context, client Client, recs []Record, object string, required Check, opts BulkOptions) (*actions.Result, error) {
	if len(recs) == 0 {
		return nil, common.NewIntegrationError("empty batch", common.CodeInvalidInput, http.StatusBadRequest)
	}

	if recs[0].Operation == config.OperationUpsert {
		if err := run(required); err != nil {
			return nil, err
		}
	}

	return client.BulkHandler(ctx, recs, object, opts)
}

func run(c Check) error {
	if c == nil {
		return nil
	}
	return c()
}
