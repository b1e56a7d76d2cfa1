package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/aisolutions-cms/internal/handler"
)

type fakePinger struct {
	connected bool
	pingErr   error
}

func (p fakePinger) IsConnected() bool              { return p.connected }
func (p fakePinger) Ping(ctx context.Context) error { return p.pingErr }

func TestHealthHandler_HandleHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         fakePinger
		wantStatus int
		wantBody   string
	}{
		{"healthy", fakePinger{connected: true}, http.StatusOK, `"database":"connected"`},
		{"never connected", fakePinger{}, http.StatusServiceUnavailable, `"status":"degraded"`},
		{"ping fails", fakePinger{connected: true, pingErr: errors.New("disk I/O error")}, http.StatusServiceUnavailable, `"database":"disconnected"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewHealthHandler(tt.db)

			rr := httptest.NewRecorder()
			h.HandleHealth(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
			assert.Contains(t, rr.Body.String(), `"uptime"`)
		})
	}
}
