package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/boostgram/boostgram/internal/orders"
	"github.com/boostgram/boostgram/internal/settlement"
)

// RegisterOrderRoutes wires order placement, reads and fulfilment updates.
func RegisterOrderRoutes(r fiber.Router, settle *settlement.Handler, h *orders.Handler) {
	r.Post("/orders", settle.PlaceOrder)
	r.Get("/orders", h.ListByUser)
	r.Get("/orders/:id", h.Get)
	r.Patch("/orders/:id/progress", h.UpdateProgress)
}
