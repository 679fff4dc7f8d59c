package casefile

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

func newContext(e *echo.Echo, target string, actor auth.Actor) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithActor(req.Context(), actor))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_GetSymptom(t *testing.T) {
	w := newWorld(t)
	sym := w.submit(t, false)
	h := NewHandler(w.svc)
	e := echo.New()

	c, rec := newContext(e, "/", w.patient)
	c.SetParamNames("id")
	c.SetParamValues(sym.ID.String())
	if err := h.GetSymptom(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["access"] != "owner" {
		t.Errorf("expected owner access, got %v", body["access"])
	}
	if _, ok := body["patient"]; !ok {
		t.Error("expected patient block for the owner")
	}
}

func TestHandler_GetSymptom_Forbidden(t *testing.T) {
	w := newWorld(t)
	sym := w.submit(t, false)
	h := NewHandler(w.svc)
	e := echo.New()

	c, _ := newContext(e, "/", w.stranger)
	c.SetParamNames("id")
	c.SetParamValues(sym.ID.String())
	err := h.GetSymptom(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestHandler_GetSymptom_BadID(t *testing.T) {
	w := newWorld(t)
	h := NewHandler(w.svc)
	e := echo.New()

	c, _ := newContext(e, "/", w.gp)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	err := h.GetSymptom(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_Dashboard(t *testing.T) {
	w := newWorld(t)
	w.repo.rows = dashboardRows(w.gp.ID)
	h := NewHandler(w.svc)
	e := echo.New()

	c, rec := newContext(e, "/?status=pending&page=1&page_size=1", w.gp)
	if err := h.Dashboard(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data    []DashboardEntry `json:"data"`
		Total   int              `json:"total"`
		HasMore bool             `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 2 || len(body.Data) != 1 || !body.HasMore {
		t.Errorf("unexpected page: total=%d len=%d more=%v", body.Total, len(body.Data), body.HasMore)
	}
}

func TestHandler_Worklist_BadDate(t *testing.T) {
	w := newWorld(t)
	h := NewHandler(w.svc)
	e := echo.New()

	c, _ := newContext(e, "/?start_date=yesterday", w.staff)
	err := h.Worklist(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
