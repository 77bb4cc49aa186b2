package settlement

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/boostgram/boostgram/internal/catalog"
	"github.com/boostgram/boostgram/internal/gateway"
	"github.com/boostgram/boostgram/internal/ledger"
)

// Handler exposes the settlement boundary over HTTP: top-ups, order placement
// and the read-only wallet views.
type Handler struct {
	engine   *Engine
	gateway  gateway.Gateway
	catalog  catalog.Repository
	minTopUp decimal.Decimal
	logger   *slog.Logger
}

// NewHandler constructs a settlement handler.
func NewHandler(engine *Engine, gw gateway.Gateway, cat catalog.Repository, minTopUp decimal.Decimal, logger *slog.Logger) *Handler {
	return &Handler{engine: engine, gateway: gw, catalog: cat, minTopUp: minTopUp, logger: logger}
}

// TopUp authorizes a payment with the processor and credits the wallet.
// Replays of an already settled payment reference return the prior result.
func (h *Handler) TopUp(c *fiber.Ctx) error {
	userID := c.Params("userId")
	var req TopUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid amount")
	}
	if !amount.IsPositive() {
		return fiber.NewError(http.StatusBadRequest, ledger.ErrInvalidAmount.Error())
	}
	if amount.LessThan(h.minTopUp) {
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("minimum top-up amount is %s", h.minTopUp.StringFixed(2)))
	}

	method := req.PaymentMethod
	if method == "" {
		method = "PhonePe"
	}
	description := fmt.Sprintf("Wallet top-up via %s", method)

	ref := req.PaymentRef
	if ref == "" {
		confirmation, err := h.gateway.Authorize(c.UserContext(), gateway.Charge{UserID: userID, Amount: amount, Method: method})
		if err != nil {
			return fiber.NewError(http.StatusBadGateway, err.Error())
		}
		if !confirmation.Approved() {
			if _, err := h.engine.RecordDeclinedTopUp(c.UserContext(), userID, amount, method, confirmation.Reference, description); err != nil {
				h.logger.Warn("record declined top-up", slog.String("user_id", userID), slog.Any("error", err))
			}
			return fiber.NewError(http.StatusPaymentRequired, "payment declined")
		}
		ref = confirmation.Reference
	}

	result, err := h.engine.CreditFunds(c.UserContext(), CreditInput{
		UserID:      userID,
		Amount:      amount,
		Description: description,
		ExternalRef: ref,
		Method:      method,
	})
	if err != nil {
		return settlementError(err)
	}

	status := http.StatusCreated
	if result.Replayed {
		status = http.StatusOK
	}
	return c.Status(status).JSON(TopUpResponse{
		Wallet:      toWalletResponse(result.Wallet),
		Transaction: toEntryResponse(result.Entry),
	})
}

// PlaceOrder prices the requested service and settles the order debit.
func (h *Handler) PlaceOrder(c *fiber.Ctx) error {
	var req PlaceOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == "" || req.ServiceID == "" {
		return fiber.NewError(http.StatusBadRequest, "user_id and service_id are required")
	}

	svc, err := h.catalog.Get(c.UserContext(), req.ServiceID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}

	price, err := svc.Quote(req.Quantity)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	result, err := h.engine.DebitForOrder(c.UserContext(), OrderDraft{
		UserID:    req.UserID,
		Service:   svc.Name,
		Quantity:  req.Quantity,
		TargetURL: req.TargetURL,
		Price:     price,
	})
	if err != nil {
		return settlementError(err)
	}

	return c.Status(http.StatusCreated).JSON(PlaceOrderResponse{
		Order:       toOrderResponse(result.Order),
		Wallet:      toWalletResponse(result.Wallet),
		Transaction: toEntryResponse(result.Entry),
	})
}

// Wallet returns the committed wallet snapshot.
func (h *Handler) Wallet(c *fiber.Ctx) error {
	wallet, err := h.engine.Wallet(c.UserContext(), c.Params("userId"))
	if err != nil {
		return settlementError(err)
	}
	return c.Status(http.StatusOK).JSON(toWalletResponse(wallet))
}

// Transactions returns the wallet's committed ledger entries, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	filter := ledger.EntryFilter{
		Kind:   c.Query("kind"),
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit"),
	}
	entries, err := h.engine.Entries(c.UserContext(), c.Params("userId"), filter)
	if err != nil {
		return settlementError(err)
	}

	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func settlementError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return fiber.NewError(http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ledger.ErrConflict), errors.Is(err, ledger.ErrDuplicateReference):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrWalletNotFound), errors.Is(err, ledger.ErrEntryNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrUnavailable):
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
