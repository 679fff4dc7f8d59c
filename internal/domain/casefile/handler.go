package casefile

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/symptoms/:id", h.GetSymptom)

	doctors := api.Group("", auth.RequireRole(auth.RoleDoctor))
	doctors.GET("/dashboard", h.Dashboard)

	staff := api.Group("", auth.RequireRole(auth.RoleLabStaff))
	staff.GET("/test-requests", h.Worklist)
}

func (h *Handler) GetSymptom(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid symptom id")
	}
	d, err := h.svc.GetSymptomDetail(c.Request().Context(), actor, id)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) Dashboard(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	q := DashboardQuery{Status: c.QueryParam("status"), Search: c.QueryParam("search")}
	resp, err := h.svc.ListDoctorDashboard(c.Request().Context(), actor, q, pagination.FromContext(c))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Worklist(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	q := WorklistQuery{
		Status:    c.QueryParam("status"),
		StartDate: c.QueryParam("start_date"),
		EndDate:   c.QueryParam("end_date"),
	}
	items, err := h.svc.ListLabWorklist(c.Request().Context(), actor, q)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}
