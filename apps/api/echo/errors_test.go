package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/ccnmtl/videoanalytics/core"
	logsvc "github.com/ccnmtl/videoanalytics/services/logger"
)

func Test_appHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCode     int
		wantShutdown bool
	}{
		{name: "not found", err: errHttpNotFound, wantCode: http.StatusNotFound},
		{name: "server error", err: errors.New("boom"), wantCode: http.StatusInternalServerError},
		{
			name:         "database closed",
			err:          errors.Wrap(core.NewShutdownError("database connection closed"), "finding user"),
			wantCode:     http.StatusInternalServerError,
			wantShutdown: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var shutdown bool
			handler := newAppHTTPErrorHandler(logsvc.NewNopLogger(), core.NewTranslator(), func() { shutdown = true })

			rec := httptest.NewRecorder()
			handler(tt.err, echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantShutdown, shutdown)
		})
	}
}
