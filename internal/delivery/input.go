package delivery

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/dto"
	"github.com/joshu-sajeev/destinations/internal/fields"
)

// ResolveInput turns an ActionInput into the raw payload the action runs with.
// It returns a JSON array and batch=true for batch input. Every payload is
// validated against the action before it is returned.
func ResolveInput(def *actions.Definition, in dto.ActionInput) (json.RawMessage, bool, error) {
	provided := 0
	for _, set := range []bool{present(in.Payload), len(in.Batch) > 0, present(in.Event)} {
		if set {
			provided++
		}
	}
	if provided != 1 {
		return nil, false, common.NewIntegrationError(
			"exactly one of payload, batch or event is required",
			common.CodeInvalidInput,
			http.StatusBadRequest,
		)
	}
	if len(in.Mapping) > 0 && !present(in.Event) {
		return nil, false, common.NewIntegrationError("mapping requires event", common.CodeInvalidInput, http.StatusBadRequest)
	}

	switch {
	case present(in.Payload):
		if err := validatePayload(def, in.Payload); err != nil {
			return nil, false, err
		}
		return in.Payload, false, nil

	case len(in.Batch) > 0:
		if !def.SupportsBatch() {
			return nil, false, common.NewIntegrationError(
				fmt.Sprintf("action %s does not support batching", def.Name),
				common.CodeInvalidInput,
				http.StatusBadRequest,
			)
		}
		for i, p := range in.Batch {
			if err := validatePayload(def, p); err != nil {
				return nil, false, indexed(i, err)
			}
		}
		raw, err := json.Marshal(in.Batch)
		if err != nil {
			return nil, false, fmt.Errorf("marshal batch: %w", err)
		}
		return raw, true, nil

	default:
		raw, err := MapEvent(def, in.Event, in.Mapping)
		if err != nil {
			return nil, false, err
		}
		return raw, false, nil
	}
}

// MapEvent resolves event through the action's field schema, applying mapping
// overrides, and validates the result.
func MapEvent(def *actions.Definition, event json.RawMessage, mapping map[string]any) (json.RawMessage, error) {
	var ev map[string]any
	if err := json.Unmarshal(event, &ev); err != nil {
		return nil, common.NewIntegrationError("event must be a JSON object", common.CodeInvalidInput, http.StatusBadRequest)
	}

	overrides, err := fields.ParseMapping(mapping)
	if err != nil {
		return nil, common.NewIntegrationError(err.Error(), common.CodeInvalidInput, http.StatusBadRequest)
	}

	payload := def.Fields.Resolve(ev, overrides)
	if err := def.Fields.Validate(payload); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal mapped payload: %w", err)
	}
	if err := validatePayload(def, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func validatePayload(def *actions.Definition, raw json.RawMessage) error {
	if !json.Valid(raw) {
		return common.NewIntegrationError("payload must be valid JSON", common.CodeInvalidInput, http.StatusBadRequest)
	}
	if def.Validate == nil {
		return nil
	}
	return def.Validate(raw)
}

func indexed(i int, err error) error {
	var apiErr common.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("batch[%d]: %w", i, err)
	}
	apiErr.Message = fmt.Sprintf("batch[%d]: %s", i, apiErr.Message)
	return apiErr
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
