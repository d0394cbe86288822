package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/edhub/edhub/internal/domain/resource"
)

// Handler exposes admission over HTTP. Reads for initial data load live in
// the existing CRUD API; only the hub-owned mutation is served here.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/patients", h.HandleAdmit)
}

// HandleAdmit handles POST /patients.
func (h *Handler) HandleAdmit(c echo.Context) error {
	var req AdmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	p, err := h.svc.Admit(c.Request().Context(), req)
	if err != nil {
		return c.JSON(resource.HTTPStatus(err), map[string]string{
			"error": resource.Code(err), "message": err.Error(),
		})
	}
	return c.JSON(http.StatusCreated, p)
}
