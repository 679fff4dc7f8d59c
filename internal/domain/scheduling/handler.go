package scheduling

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	parties := api.Group("", auth.RequireRole(auth.RolePatient, auth.RoleLabStaff))
	parties.GET("/slots", h.ListSlots)
	parties.GET("/appointments", h.List)
	parties.POST("/appointments/:id/confirm", h.Confirm)
	parties.POST("/appointments/:id/counter", h.Counter)
	parties.POST("/appointments/:id/reject", h.Reject)

	staff := api.Group("", auth.RequireRole(auth.RoleLabStaff))
	staff.POST("/test-requests/:id/appointments", h.Propose)
	staff.POST("/appointments/:id/cancel", h.Cancel)
}

type slotRequest struct {
	SlotID string `json:"slot_id"`
}

func bindSlot(c echo.Context) (uuid.UUID, error) {
	var req slotRequest
	if err := c.Bind(&req); err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	id, err := uuid.Parse(req.SlotID)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "slot_id must be a valid id")
	}
	return id, nil
}

func (h *Handler) ListSlots(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	var staffID uuid.UUID
	if raw := c.QueryParam("lab_staff_id"); raw != "" {
		if staffID, err = uuid.Parse(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "lab_staff_id must be a valid id")
		}
	}
	items, err := h.svc.ListAvailableSlots(c.Request().Context(), actor, staffID, c.QueryParam("date"))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) List(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListForActor(c.Request().Context(), actor)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) Propose(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	trID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid test request id")
	}
	slotID, err := bindSlot(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Propose(c.Request().Context(), actor, trID, slotID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, a)
}

type transitionFunc func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error)

func (h *Handler) transition(c echo.Context, fn transitionFunc) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}
	a, err := fn(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Confirm(c echo.Context) error { return h.transition(c, h.svc.Confirm) }
func (h *Handler) Reject(c echo.Context) error  { return h.transition(c, h.svc.Reject) }
func (h *Handler) Cancel(c echo.Context) error  { return h.transition(c, h.svc.Cancel) }

func (h *Handler) Counter(c echo.Context) error {
	slotID, err := bindSlot(c)
	if err != nil {
		return err
	}
	return h.transition(c, func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*Appointment, error) {
		return h.svc.CounterPropose(ctx, actor, id, slotID)
	})
}
