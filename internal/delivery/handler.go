package delivery

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/joshu-sajeev/destinations/common"
	"github.com/joshu-sajeev/destinations/internal/actions"
	"github.com/joshu-sajeev/destinations/internal/dto"
	"github.com/joshu-sajeev/destinations/middleware"
)

type DeliveryHandler struct {
	service  DeliveryServiceInterface
	registry *actions.Registry
}

func NewDeliveryHandler(s DeliveryServiceInterface, registry *actions.Registry) *DeliveryHandler {
	return &DeliveryHandler{service: s, registry: registry}
}

var _ DeliveryHandlerInterface = (*DeliveryHandler)(nil)

// Register mounts the delivery routes on r.
func (h *DeliveryHandler) Register(r gin.IRouter) {
	r.POST("/deliveries", h.Create)
	r.GET("/deliveries", h.List)
	r.GET("/deliveries/:id", h.Get)
	r.POST("/deliveries/:id/retry", h.Retry)
	r.POST("/actions/:destination/:action", h.Perform)
	r.GET("/destinations", h.Destinations)
}

// Create handles HTTP requests for enqueueing a delivery. It returns 201 with
// the stored delivery, or 200 when the message id was already seen.
func (h *DeliveryHandler) Create(c *gin.Context) {
	var req dto.DeliveryCreateDTO

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.Enqueue(c.Request.Context(), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	if resp.Duplicate {
		c.JSON(http.StatusOK, resp)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Get handles HTTP requests to fetch a delivery by its ID.
func (h *DeliveryHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	resp, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// List handles HTTP requests to list deliveries, optionally filtered by the
// destination query parameter.
func (h *DeliveryHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context(), c.Query("destination"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// Retry handles HTTP requests to requeue a failed delivery.
func (h *DeliveryHandler) Retry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Retry(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusAccepted)
}

// Perform handles HTTP requests that run an action synchronously.
func (h *DeliveryHandler) Perform(c *gin.Context) {
	var req dto.PerformDTO

	if !middleware.Bind(c, &req) {
		c.Abort()
		return
	}

	resp, err := h.service.Perform(c.Request.Context(), c.Param("destination"), c.Param("action"), &req)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Destinations lists every registered destination with its actions and
// field schemas.
func (h *DeliveryHandler) Destinations(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Destinations())
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id < 1 {
		c.Error(common.Errf(http.StatusBadRequest, "invalid ID"))
		return 0, false
	}
	return uint(id), true
}
