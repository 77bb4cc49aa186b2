package orders

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes read access to a user's orders. Placement goes through the
// settlement boundary, which pays for the order atomically.
type Handler struct {
	repo Repository
}

// NewHandler constructs an orders handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// ListByUser returns the user's orders, newest first.
func (h *Handler) ListByUser(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return fiber.NewError(http.StatusBadRequest, "user_id is required")
	}

	list, err := h.repo.ListByUser(c.UserContext(), userID)
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}

	out := make([]Response, 0, len(list))
	for _, o := range list {
		out = append(out, toResponse(o))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Get returns a single order.
func (h *Handler) Get(c *fiber.Ctx) error {
	o, err := h.repo.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(o))
}

// ProgressRequest carries a fulfilment update for an order.
type ProgressRequest struct {
	Status     string `json:"status"`
	StartCount int64  `json:"start_count"`
	Remains    int64  `json:"remains"`
}

// UpdateProgress transitions an order's fulfilment state and counters and
// returns the updated order.
func (h *Handler) UpdateProgress(c *fiber.Ctx) error {
	var req ProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if !ValidStatus(req.Status) {
		return fiber.NewError(http.StatusBadRequest, "unknown order status")
	}
	if req.StartCount < 0 || req.Remains < 0 {
		return fiber.NewError(http.StatusBadRequest, "start_count and remains must not be negative")
	}

	id := c.Params("id")
	if err := h.repo.UpdateProgress(c.UserContext(), id, req.Status, req.StartCount, req.Remains); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}

	o, err := h.repo.Get(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(o))
}

// Response is the API representation of an order.
type Response struct {
	ID         string    `json:"id"`
	Service    string    `json:"service"`
	Quantity   int64     `json:"quantity"`
	Price      string    `json:"price"`
	Status     string    `json:"status"`
	StartCount int64     `json:"start_count"`
	Remains    int64     `json:"remains"`
	TargetURL  string    `json:"target_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toResponse(o Order) Response {
	return Response{
		ID:         o.ID,
		Service:    o.Service,
		Quantity:   o.Quantity,
		Price:      o.Price.StringFixed(2),
		Status:     o.Status,
		StartCount: o.StartCount,
		Remains:    o.Remains,
		TargetURL:  o.TargetURL,
		CreatedAt:  o.CreatedAt,
	}
}
