package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/boostgram/boostgram/internal/identity"
)

// RegisterIdentityRoutes wires signup and login endpoints.
func RegisterIdentityRoutes(r fiber.Router, h *identity.Handler, loginLimit fiber.Handler) {
	r.Post("/auth/signup", h.Signup)
	r.Post("/auth/login", loginLimit, h.Login)
}
