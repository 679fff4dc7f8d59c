package symptom

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
	"github.com/clinicflow/clinicflow/internal/platform/blobstore"
)

func newRequest(method, body string, actor auth.Actor) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req.WithContext(auth.WithActor(req.Context(), actor))
}

func TestHandler_Submit(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, blobstore.NewWriter(blobstore.NewMemoryStore(), time.Second))
	e := echo.New()

	body := `{"description":"rash on arm","images":"a.png,b.png","consent_treatment":true,"consent_referral":true}`
	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodPost, body, f.patient), rec)
	if err := h.Submit(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got Symptom
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Status != StatusPending || len(got.Images) != 2 {
		t.Errorf("unexpected symptom: %+v", got)
	}
}

func TestHandler_Submit_MissingConsent(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)
	e := echo.New()

	body := `{"description":"rash","consent_treatment":true}`
	c := e.NewContext(newRequest(http.MethodPost, body, f.patient), httptest.NewRecorder())
	err := h.Submit(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
	if httpErr.Message != "Referral consent is required." {
		t.Errorf("unexpected message: %v", httpErr.Message)
	}
}

func TestHandler_History_BadDate(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, nil)
	e := echo.New()

	req := newRequest(http.MethodGet, "", f.patient)
	req.URL.RawQuery = "start_date=01-02-2024"
	c := e.NewContext(req, httptest.NewRecorder())
	err := h.History(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}

func TestHandler_UploadImages(t *testing.T) {
	f := newFixture(t)
	store := blobstore.NewMemoryStore()
	h := NewHandler(f.svc, blobstore.NewWriter(store, time.Second))
	e := echo.New()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, name := range []string{"left.png", "right.png"} {
		fw, err := mw.CreateFormFile("images", name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte("png-bytes"))
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	req = req.WithContext(auth.WithActor(req.Context(), f.patient))
	rec := httptest.NewRecorder()
	if err := h.UploadImages(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var got struct {
		Images []string `json:"images"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Images) != 2 || store.Len() != 2 {
		t.Errorf("expected 2 stored images, got %v (store %d)", got.Images, store.Len())
	}
}
