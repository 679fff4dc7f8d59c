package symptom

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicflow/clinicflow/internal/platform/apperr"
	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/blobstore"
)

type Handler struct {
	svc   *Service
	blobs *blobstore.Writer
}

func NewHandler(svc *Service, blobs *blobstore.Writer) *Handler {
	return &Handler{svc: svc, blobs: blobs}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patients := api.Group("", auth.RequireRole(auth.RolePatient))
	patients.POST("/images", h.UploadImages)
	patients.POST("/symptoms", h.Submit)
	patients.GET("/symptoms/history", h.History)
}

func (h *Handler) Submit(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	var req SubmitRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	sym, err := h.svc.Submit(c.Request().Context(), actor, req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusCreated, sym)
}

func (h *Handler) History(c echo.Context) error {
	actor, err := auth.MustActor(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListHistory(c.Request().Context(), actor, HistoryQuery{
		Status:    c.QueryParam("status"),
		StartDate: c.QueryParam("start_date"),
		EndDate:   c.QueryParam("end_date"),
	})
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return c.JSON(http.StatusOK, items)
}

// UploadImages stores the multipart "images" files and returns their
// locations for use in a later submission.
func (h *Handler) UploadImages(c echo.Context) error {
	form, err := c.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "expected multipart form data")
	}
	files := form.File["images"]
	if len(files) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "At least one image is required.")
	}

	ctx := c.Request().Context()
	locations := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.blobs.Discard(ctx, locations)
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable upload")
		}
		loc, err := h.blobs.Save(ctx, "images", fh.Filename, fh.Header.Get("Content-Type"), f)
		f.Close()
		if err != nil {
			h.blobs.Discard(ctx, locations)
			if errors.Is(err, blobstore.ErrMissingFileName) {
				return echo.NewHTTPError(http.StatusBadRequest, "file name is required")
			}
			zerolog.Ctx(ctx).Error().Err(err).Str("file", fh.Filename).Msg("store symptom image")
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to store image")
		}
		locations = append(locations, loc)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{"images": locations})
}
