package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/boostgram/boostgram/internal/settlement"
)

// RegisterWalletRoutes wires wallet reads and the top-up endpoint.
func RegisterWalletRoutes(r fiber.Router, h *settlement.Handler, topUpLimit fiber.Handler) {
	r.Get("/wallets/:userId", h.Wallet)
	r.Get("/wallets/:userId/transactions", h.Transactions)
	r.Post("/wallets/:userId/topup", topUpLimit, h.TopUp)
}
