package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/config"
	"github.com/joshu-sajeev/destinations/internal/dto"
	"github.com/joshu-sajeev/destinations/internal/models"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DeliveryService struct {
	repo     DeliveryRepoInterface
	registry *actions.Registry
	dedupe   Deduper
	features map[string]bool
}

// NewDeliveryService builds the service. dedupe may be nil, in which case
// duplicates are only caught by the message id unique index.
func NewDeliveryService(repo DeliveryRepoInterface, registry *actions.Registry, dedupe Deduper, features map[string]bool) *DeliveryService {
	return &DeliveryService{
		repo:     repo,
		registry: registry,
		dedupe:   dedupe,
		features: features,
	}
}

var _ DeliveryServiceInterface = (*DeliveryService)(nil)

// Enqueue validates the input against the target action and stores a queued
// delivery. A message id seen before is acknowledged with Duplicate set and
// nothing is stored.
func (s *DeliveryService) Enqueue(ctx context.Context, req *dto.DeliveryCreateDTO) (*dto.DeliveryResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request canceled or timed out")
	}

	def, err := s.registry.Lookup(req.Destination, req.Action)
	if err != nil {
		return nil, err
	}

	raw, batch, err := ResolveInput(def, req.ActionInput)
	if err != nil {
		return nil, err
	}

	messageID := req.MessageID
	if messageID == "" {
		messageID = uuid.NewString()
	}

	claimed := false
	if s.dedupe != nil {
		first, err := s.dedupe.Claim(ctx, messageID)
		switch {
		case err != nil:
			zerolog.Ctx(ctx).Warn().Err(err).Str("message_id", messageID).Msg("dedupe unavailable, relying on unique index")
		case !first:
			return duplicate(req, messageID), nil
		default:
			claimed = true
		}
	}

	maxRetries := req.MaxRetries
	if maxRetries == 0 {
		maxRetries = config.DefaultMaxRetries
	}

	availableAt := time.Now().UTC()
	if req.AvailableAt != nil {
		availableAt = req.AvailableAt.UTC()
	}

	d := models.Delivery{
		MessageID:   messageID,
		Destination: req.Destination,
		Action:      req.Action,
		Payload:     datatypes.JSON(raw),
		Batch:       batch,
		Status:      config.DeliveryStatusQueued,
		MaxRetries:  maxRetries,
		AvailableAt: availableAt,
	}

	if err := s.repo.Create(ctx, &d); err != nil {
		if errors.Is(err, ErrDuplicateMessage) {
			return duplicate(req, messageID), nil
		}
		if claimed {
			if ferr := s.dedupe.Forget(context.WithoutCancel(ctx), messageID); ferr != nil {
				zerolog.Ctx(ctx).Warn().Err(ferr).Str("message_id", messageID).Msg("failed to forget dedupe claim")
			}
		}
		switch {
		case errors.Is(err, context.Canceled):
			return nil, common.Errf(http.StatusRequestTimeout, "request was canceled")
		case errors.Is(err, context.DeadlineExceeded):
			return nil, common.Errf(http.StatusRequestTimeout, "request timeout")
		default:
			return nil, common.Errf(http.StatusInternalServerError, "failed to add delivery to database")
		}
	}

	return toResponse(&d), nil
}

// Get retrieves a delivery by its ID.
func (s *DeliveryService) Get(ctx context.Context, id uint) (*dto.DeliveryResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, repoError(err, "failed to get delivery")
	}
	return toResponse(d), nil
}

// List returns the deliveries of a destination, or all of them when
// destination is empty.
func (s *DeliveryService) List(ctx context.Context, destination string) ([]dto.DeliveryResponseDTO, error) {
	if err := ctx.Err(); err != nil {
		return nil, common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	items, err := s.repo.List(ctx, destination)
	if err != nil {
		return nil, repoError(err, "failed to list deliveries")
	}

	out := make([]dto.DeliveryResponseDTO, len(items))
	for i := range items {
		out[i] = *toResponse(&items[i])
	}
	return out, nil
}

// Retry puts a failed delivery back in the queue with a fresh attempt budget.
func (s *DeliveryService) Retry(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return common.Errf(http.StatusRequestTimeout, "request timed out")
	}

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return repoError(err, "failed to get delivery")
	}
	if d.Status != config.DeliveryStatusFailed {
		return common.NewAPIError(http.StatusConflict, "only failed deliveries can be retried", map[string]any{
			"status": d.Status,
		})
	}

	if err := s.repo.Requeue(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return common.Errf(http.StatusConflict, "delivery is no longer failed")
		}
		return repoError(err, "failed to requeue delivery")
	}
	return nil
}

// Perform runs an action synchronously and returns the payload it ran with
// alongside the upstream result.
func (s *DeliveryService) Perform(ctx context.Context, destination, action string, req *dto.PerformDTO) (*dto.PerformResponseDTO, error) {
	def, err := s.registry.Lookup(destination, action)
	if err != nil {
		return nil, err
	}

	raw, batch, err := ResolveInput(def, req.ActionInput)
	if err != nil {
		return nil, err
	}

	features := maps.Clone(s.features)
	if features == nil {
		features = map[string]bool{}
	}
	maps.Copy(features, req.Features)

	log := zerolog.Ctx(ctx).With().Str("destination", destination).Str("action", action).Logger()
	ec := actions.ExecContext{
		Features: features,
		Logger:   log,
		Stats:    actions.LogStats{Logger: log},
	}

	res, err := def.Run(ctx, ec, raw, batch)
	if err != nil {
		var apiErr common.APIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, common.NewIntegrationError(err.Error(), common.CodeUpstream, http.StatusBadGateway)
	}

	out := &dto.PerformResponseDTO{
		Destination: destination,
		Action:      action,
		Payload:     raw,
	}
	if res != nil {
		out.StatusCode = res.StatusCode
		out.Body = res.Body
	}
	return out, nil
}

func repoError(err error, msg string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return common.Errf(http.StatusRequestTimeout, "request timed out")
	case errors.Is(err, gorm.ErrRecordNotFound), strings.Contains(err.Error(), "delivery not found"):
		return common.Errf(http.StatusNotFound, "delivery not found")
	default:
		return common.Errf(http.StatusInternalServerError, "%s", msg)
	}
}

func duplicate(req *dto.DeliveryCreateDTO, messageID string) *dto.DeliveryResponseDTO {
	return &dto.DeliveryResponseDTO{
		MessageID:   messageID,
		Destination: req.Destination,
		Action:      req.Action,
		Duplicate:   true,
	}
}

func toResponse(d *models.Delivery) *dto.DeliveryResponseDTO {
	return &dto.DeliveryResponseDTO{
		ID:          d.ID,
		MessageID:   d.MessageID,
		Destination: d.Destination,
		Action:      d.Action,
		Batch:       d.Batch,
		Payload:     json.RawMessage(d.Payload),
		Status:      d.Status,
		Attempts:    d.Attempts,
		MaxRetries:  d.MaxRetries,
		Result:      json.RawMessage(d.Result),
		Error:       d.Error,
		AvailableAt: d.AvailableAt,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
