package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ATHWatch/internal/collector"
	"ATHWatch/internal/metrics"
	"ATHWatch/internal/model"
	"ATHWatch/internal/recorder"
)

type fakeSource struct {
	asOf civil.Date
	err  error
}

func (f *fakeSource) GetMetrics(_ context.Context, asOf civil.Date) (*model.MetricsResult, error) {
	f.asOf = asOf
	if f.err != nil {
		return nil, f.err
	}
	return &model.MetricsResult{
		AsOf: civil.Date{Year: 2026, Month: 9, Day: 15},
		USD: model.CurrencyMetrics{
			Currency:    "USD",
			AdjustedATH: decimal.RequireFromString("6341.74"),
			PercentToGo: decimal.RequireFromString("111.39"),
			FromMonth:   model.Month{Year: 2021, Month: 11},
		},
	}, nil
}

func get(t *testing.T, s *Server, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr, body
}

func TestHealth(t *testing.T) {
	rr, body := get(t, New(&fakeSource{}, recorder.NewNoopRecorder()), "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, true, body["success"])
}

func TestMetrics(t *testing.T) {
	src := &fakeSource{}
	s := New(src, recorder.NewNoopRecorder())

	rr, body := get(t, s, "/api/v1/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, civil.Date{}, src.asOf)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "2026-09-15", data["as_of"])
	usd := data["usd"].(map[string]interface{})
	assert.Equal(t, "6341.74", usd["adjusted_ath"])
	assert.Equal(t, "2021-11", usd["from_month"])

	rr, _ = get(t, s, "/api/v1/metrics?as_of=2024-08-15")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, civil.Date{Year: 2024, Month: 8, Day: 15}, src.asOf)
}

func TestMetricsErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"bad date", "/api/v1/metrics?as_of=15-08-2024", nil, http.StatusBadRequest},
		{"as_of before ATH", "/api/v1/metrics?as_of=2019-06-01", fmt.Errorf("ETH-USD: %w", metrics.ErrAsOfBeforeATH), http.StatusBadRequest},
		{"no data", "/api/v1/metrics", fmt.Errorf("usd: %w", collector.ErrNoData), http.StatusNotFound},
		{"upstream", "/api/v1/metrics", fmt.Errorf("%w: spot", metrics.ErrDataUnavailable), http.StatusBadGateway},
		{"timeout", "/api/v1/metrics", context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := get(t, New(&fakeSource{err: tt.err}, recorder.NewNoopRecorder()), tt.target)
			assert.Equal(t, tt.want, rr.Code)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHistory(t *testing.T) {
	s := New(&fakeSource{}, recorder.NewNoopRecorder())

	rr, body := get(t, s, "/api/v1/history?limit=3")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, body["data"])

	rr, _ = get(t, s, "/api/v1/history?limit=zero")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
