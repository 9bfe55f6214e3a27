package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func corsServer(origins ...string) *echo.Echo {
	e := echo.New()
	e.Use(CORS(origins))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	return e
}

func TestCORSOrigins(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{name: "listed", origins: []string{"https://dash.example/"}, origin: "https://dash.example", want: "https://dash.example"},
		{name: "unlisted", origins: []string{"https://dash.example"}, origin: "https://evil.example", want: ""},
		{name: "wildcard", origins: []string{"*"}, origin: "https://any.example", want: "*"},
		{name: "no origin", origins: []string{"*"}, origin: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tt.origin != "" {
				req.Header.Set(echo.HeaderOrigin, tt.origin)
			}
			rec := httptest.NewRecorder()
			corsServer(tt.origins...).ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d", rec.Code)
			}
			if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != tt.want {
				t.Fatalf("allow origin = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set(echo.HeaderOrigin, "https://dash.example")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodPost)
	rec := httptest.NewRecorder()
	corsServer("https://dash.example").ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowHeaders); got == "" {
		t.Fatal("allow headers missing")
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowMethods); got != "GET, POST, OPTIONS" {
		t.Fatalf("allow methods = %q", got)
	}
}
