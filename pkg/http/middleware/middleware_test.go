package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	applogger "MacroPulse/pkg/logger"
)

func newTestLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "debug", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func TestRecoverConvertsPanicTo500(t *testing.T) {
	e := echo.New()
	e.Use(Recover(newTestLogger(t)))
	e.GET("/boom", func(echo.Context) error { panic("kaput") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestRecoverWithoutLogger(t *testing.T) {
	e := echo.New()
	e.Use(Recover(nil))
	e.GET("/boom", func(echo.Context) error { panic("kaput") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestLoggingPassesThrough(t *testing.T) {
	for _, l := range []*applogger.Logger{newTestLogger(t), nil} {
		e := echo.New()
		e.Use(RequestLogging(l))
		e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "ok", rec.Body.String())
	}
}
