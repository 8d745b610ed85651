package actions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/joshu-sajeev/destinations/common"
)

var validate = validator.New()

// Bind decodes raw into T and runs its validate tags.
func Bind[T any](raw json.RawMessage) (*T, error) {
	var payload T

	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, common.APIError{
			Status:  http.StatusBadRequest,
			Code:    common.CodeInvalidInput,
			Message: "invalid payload format",
		}
	}

	if err := validate.Struct(payload); err != nil {
		return nil, common.APIError{
			Status:  http.StatusBadRequest,
			Code:    common.CodeInvalidInput,
			Message: "payload validation failed",
			Fields:  common.FormatValidationErrors(err),
		}
	}

	return &payload, nil
}

// Validate returns a payload checker for T, suitable for Definition.Validate.
func Validate[T any]() func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		_, err := Bind[T](raw)
		return err
	}
}

// Handle adapts a typed perform function to PerformFunc.
func Handle[T any](fn func(context.Context, ExecContext, *T) (*Result, error)) PerformFunc {
	return func(ctx context.Context, ec ExecContext, raw json.RawMessage) (*Result, error) {
		payload, err := Bind[T](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, ec, payload)
	}
}

// HandleBatch adapts a typed batch function to BatchFunc. A payload that fails
// to bind rejects the whole batch, and the error names its index.
func HandleBatch[T any](fn func(context.Context, ExecContext, []*T) (*Result, error)) BatchFunc {
	return func(ctx context.Context, ec ExecContext, raw []json.RawMessage) (*Result, error) {
		payloads := make([]*T, 0, len(raw))
		for i, r := range raw {
			p, err := Bind[T](r)
			if err != nil {
				var apiErr common.APIError
				if !errors.As(err, &apiErr) {
					return nil, fmt.Errorf("batch[%d]: %w", i, err)
				}
				apiErr.Message = fmt.Sprintf("batch[%d]: %s", i, apiErr.Message)
				return nil, apiErr
			}
			payloads = append(payloads, p)
		}
		return fn(ctx, ec, payloads)
	}
}
