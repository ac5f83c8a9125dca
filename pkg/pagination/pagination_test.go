package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(t *testing.T, query string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		page     int
		pageSize int
	}{
		{"defaults", "", 1, DefaultPageSize},
		{"explicit", "page=2&pageSize=25", 2, 25},
		{"limit alias", "page=3&limit=50", 3, 50},
		{"negative page", "page=-1&pageSize=5", 1, 5},
		{"zero size", "page=1&pageSize=0", 1, DefaultPageSize},
		{"garbage", "page=abc&pageSize=xyz", 1, DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := FromContext(ctxWithQuery(t, tt.query))
			if p.Page != tt.page || p.PageSize != tt.pageSize {
				t.Fatalf("got %+v, want page=%d size=%d", p, tt.page, tt.pageSize)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	p := Params{Page: 3, PageSize: 10}
	if p.Offset() != 20 {
		t.Fatalf("offset = %d, want 20", p.Offset())
	}
}

func TestTotalPagesCeilingDivision(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{25, 10, 3},
		{30, 10, 3},
		{0, 10, 0},
		{1, 10, 1},
		{10, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.size); got != tt.want {
			t.Errorf("TotalPages(%d,%d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestNewResponseEnvelope(t *testing.T) {
	items := []string{"a", "b"}
	resp := NewResponse(items, 25, Params{Page: 2, PageSize: 10})
	if resp.Page != 2 || resp.PageSize != 10 || resp.Total != 25 || resp.TotalPages != 3 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}
