package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/boostgram/boostgram/internal/catalog"
)

// RegisterCatalogRoutes wires the read-only services catalog.
func RegisterCatalogRoutes(r fiber.Router, h *catalog.Handler) {
	r.Get("/services", h.List)
}
