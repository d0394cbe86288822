package notification

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/edhub/edhub/internal/domain/resource"
	"github.com/edhub/edhub/internal/platform/auth"
	"github.com/edhub/edhub/pkg/pagination"
)

// Handler exposes a recipient's own notifications over HTTP. Delivery happens
// on the socket; these routes cover the read-state changes and the catch-up
// list a client fetches on reconnect.
type Handler struct {
	disp *Dispatcher
}

func NewHandler(disp *Dispatcher) *Handler {
	return &Handler{disp: disp}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/notifications", h.HandleListUnread)
	g.POST("/notifications/:id/read", h.HandleMarkRead)
	g.POST("/notifications/:id/dismiss", h.HandleMarkDismiss)
}

// HandleListUnread handles GET /notifications.
func (h *Handler) HandleListUnread(c echo.Context) error {
	id := auth.IdentityFrom(c)
	if id == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	page := pagination.FromContext(c)
	items, total, err := h.disp.ListUnread(c.Request().Context(), id.UserID, page.Limit, page.Offset)
	if err != nil {
		return c.JSON(resource.HTTPStatus(err), map[string]string{"error": resource.Code(err)})
	}
	if items == nil {
		items = []*Notification{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, page.Limit, page.Offset))
}

// HandleMarkRead handles POST /notifications/:id/read.
func (h *Handler) HandleMarkRead(c echo.Context) error {
	return h.mark(c, h.disp.MarkRead)
}

// HandleMarkDismiss handles POST /notifications/:id/dismiss.
func (h *Handler) HandleMarkDismiss(c echo.Context) error {
	return h.mark(c, h.disp.MarkDismissed)
}

func (h *Handler) mark(c echo.Context, op func(ctx context.Context, id, userID uuid.UUID) error) error {
	identity := auth.IdentityFrom(c)
	if identity == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	if err := op(c.Request().Context(), id, identity.UserID); err != nil {
		return c.JSON(resource.HTTPStatus(err), map[string]string{"error": resource.Code(err)})
	}
	return c.NoContent(http.StatusNoContent)
}
