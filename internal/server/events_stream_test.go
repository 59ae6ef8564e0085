package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/qvarlab/qvar/internal/events"
)

func TestEventsStreamConnect(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewEventsStreamHandler(events.NewBus(logger), logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // disconnect immediately after the greeting
	req := httptest.NewRequest("GET", "/api/events/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"type":"connected"`)
}

func TestEventsStreamRejectsNonGet(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	handler := NewEventsStreamHandler(events.NewBus(logger), logger)

	req := httptest.NewRequest("POST", "/api/events/stream", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
