package pagination

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(query string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		query  string
		limit  int
		offset int
	}{
		{"", DefaultLimit, 0},
		{"limit=5&offset=10", 5, 10},
		{"limit=500", MaxLimit, 0},
		{"limit=-3&offset=-1", DefaultLimit, 0},
		{"page=3&page_size=10", 10, 20},
		{"page=0", DefaultLimit, 0},
		{"page=2&offset=1", DefaultLimit, 1},
		{"page=100000000000000000&limit=100", 100, MaxOffset},
		{"page=9223372036854775807", DefaultLimit, MaxOffset},
		{"offset=9223372036854775807", DefaultLimit, MaxOffset},
	}
	for _, tt := range tests {
		p := paramsFor(tt.query)
		if p.Limit != tt.limit || p.Offset != tt.offset {
			t.Errorf("%q: got limit=%d offset=%d, want limit=%d offset=%d",
				tt.query, p.Limit, p.Offset, tt.limit, tt.offset)
		}
	}
}

func TestWindow(t *testing.T) {
	tests := []struct {
		p          Params
		n          int
		start, end int
	}{
		{Params{Limit: 10, Offset: 0}, 25, 0, 10},
		{Params{Limit: 10, Offset: 20}, 25, 20, 25},
		{Params{Limit: 10, Offset: 30}, 25, 25, 25},
		{Params{Limit: 10, Offset: -5}, 25, 0, 10},
		{Params{Limit: -1, Offset: 3}, 25, 3, 3},
		{Params{Limit: 10, Offset: MaxOffset}, 25, 25, 25},
	}
	for _, tt := range tests {
		start, end := tt.p.Window(tt.n)
		if start != tt.start || end != tt.end {
			t.Errorf("Window(%d) with %+v = [%d,%d), want [%d,%d)", tt.n, tt.p, start, end, tt.start, tt.end)
		}
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse([]int{1, 2}, 5, Params{Limit: 2, Offset: 2})
	if !r.HasMore {
		t.Error("expected has_more when more rows remain")
	}
	r = NewResponse([]int{5}, 5, Params{Limit: 2, Offset: 4})
	if r.HasMore {
		t.Error("expected no more rows on the last page")
	}
	r = NewResponse([]int{}, 5, Params{Limit: MaxLimit, Offset: math.MaxInt})
	if r.HasMore {
		t.Error("expected no more rows past the end")
	}
}
