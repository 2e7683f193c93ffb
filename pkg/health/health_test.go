package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyHandlerReportsWorstStatus(t *testing.T) {
	c := NewChecker()
	c.Register("processed-db", func(ctx context.Context) error { return nil })
	c.Register("kafka", func(ctx context.Context) error { return errors.New("no brokers") })

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var report Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, StatusUp, report.Components["processed-db"].Status)
	assert.Equal(t, "no brokers", report.Components["kafka"].Message)
}

func TestReadyHandlerAllUp(t *testing.T) {
	c := NewChecker()
	c.Register("raw-db", func(ctx context.Context) error { return nil })

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
