package catalog

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes read-only catalog endpoints.
type Handler struct {
	repo Repository
}

// NewHandler constructs a catalog handler.
func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns the orderable services.
func (h *Handler) List(c *fiber.Ctx) error {
	services, err := h.repo.ListActive(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}

	out := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		out = append(out, toResponse(svc))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// ServiceResponse is the catalog item representation returned by the API.
type ServiceResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	MinQuantity int64  `json:"min_quantity"`
	MaxQuantity int64  `json:"max_quantity"`
}

func toResponse(svc Service) ServiceResponse {
	return ServiceResponse{
		ID:          svc.ID,
		Name:        svc.Name,
		Category:    svc.Category,
		Description: svc.Description,
		Price:       svc.Price.String(),
		MinQuantity: svc.MinQuantity,
		MaxQuantity: svc.MaxQuantity,
	}
}
