package dto

import (
	"encoding/json"
	"time"
)

// ActionInput carries the data an action is invoked with. Exactly one of
// Payload, Batch or Event is expected; Event is mapped through the action's
// field schema, with Mapping overriding individual field defaults.
type ActionInput struct {
	Payload json.RawMessage   `json:"payload,omitempty"`
	Batch   []json.RawMessage `json:"batch,omitempty"`
	Event   json.RawMessage   `json:"event,omitempty"`
	Mapping map[string]any    `json:"mapping,omitempty"`
}

type DeliveryCreateDTO struct {
	ActionInput
	MessageID   string     `json:"message_id,omitempty" validate:"omitempty,max=64"`
	Destination string     `json:"destination" validate:"required"`
	Action      string     `json:"action" validate:"required"`
	MaxRetries  int        `json:"max_retries" validate:"gte=0,lte=20"`
	AvailableAt *time.Time `json:"available_at,omitempty"`
}

type PerformDTO struct {
	ActionInput
	Features map[string]bool `json:"features,omitempty"`
}

type DeliveryResponseDTO struct {
	ID          uint            `json:"id,omitempty"`
	MessageID   string          `json:"message_id"`
	Destination string          `json:"destination,omitempty"`
	Action      string          `json:"action,omitempty"`
	Batch       bool            `json:"batch,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      string          `json:"status,omitempty"`
	Attempts    int             `json:"attempts"`
	MaxRetries  int             `json:"max_retries"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	Duplicate   bool            `json:"duplicate,omitempty"`
	AvailableAt time.Time       `json:"available_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// PerformResponseDTO is the outcome of a synchronous action invocation.
type PerformResponseDTO struct {
	Destination string          `json:"destination"`
	Action      string          `json:"action"`
	Payload     json.RawMessage `json:"payload"`
	StatusCode  int             `json:"status_code,omitempty"`
	Body        string          `json:"body,omitempty"`
}
