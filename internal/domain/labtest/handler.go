package labtest

import (
	"mime/multipart"
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
	api.POST("/symptoms/:id/lab-assignments", h.AssignLab, auth.RequireRole(auth.RoleDoctor))
	api.POST("/lab-results/:token", h.UploadResult, auth.RequireRole(auth.RoleLabStaff))
}

type assignLabRequest struct {
	LabID      string `json:"lab_id"`
	TestTypeID string `json:"test_type_id"`
}

func (h *Handler) AssignLab(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid symptom id")
	}
	var req assignLabRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	labID, err := uuid.Parse(req.LabID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "lab_id must be a valid id")
	}
	testTypeID, err := uuid.Parse(req.TestTypeID)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "test_type_id must be a valid id")
	}
	tr, err := h.svc.AssignLab(c.Request().Context(), actor, id, labID, testTypeID)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, tr)
}

// UploadResult accepts multipart "files" plus an optional "summary" field.
func (h *Handler) UploadResult(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form data")
	}

	headers := form.File["files"]
	files := make([]UploadFile, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
		}
		opened = append(opened, f)
		files = append(files, UploadFile{Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Content: f})
	}

	var summary *string
	if vals, ok := form.Value["summary"]; ok && len(vals) > 0 {
		summary = &vals[0]
	}

	res, err := h.svc.UploadResult(c.Request().Context(), actor, c.Param("token"), files, summary)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, res)
}
