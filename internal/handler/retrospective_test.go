package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vitalwatch/internal/retrospective"
)

type stubRunner struct {
	lastOpts retrospective.Options
	summary  *retrospective.Summary
	err      error
	calls    int
}

func (s *stubRunner) Run(_ context.Context, opts retrospective.Options) (*retrospective.Summary, error) {
	s.calls++
	s.lastOpts = opts
	return s.summary, s.err
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/retrospective", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleRun_Success(t *testing.T) {
	runner := &stubRunner{summary: &retrospective.Summary{
		Success:              true,
		RecordsProcessed:     12,
		NewAnomaliesDetected: 2,
		CriticalAnomalies:    1,
		WarningAnomalies:     1,
		PatientsSummary: map[string]retrospective.PatientSummary{
			"p1": {Name: "Alex Morgan", RecordsProcessed: 12, NewAnomalies: 2, CriticalAnomalies: 1, WarningAnomalies: 1},
		},
		Errors: []string{},
	}}
	h := NewRetrospectiveHandler(runner, zap.NewNop())

	rec := postJSON(t, h.Router(), `{
		"patientId": "p1",
		"startDate": "2026-03-01T00:00:00Z",
		"endDate": "2026-03-02T00:00:00Z"
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got retrospective.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.True(t, got.Success)
	assert.Equal(t, 12, got.RecordsProcessed)
	assert.Equal(t, 2, got.NewAnomaliesDetected)
	assert.Contains(t, got.PatientsSummary, "p1")

	assert.Equal(t, "p1", runner.lastOpts.PatientID)
	require.NotNil(t, runner.lastOpts.Start)
	require.NotNil(t, runner.lastOpts.End)
	assert.True(t, runner.lastOpts.UpdateDatabase, "updateDatabase defaults to true")
}

func TestHandleRun_BareDatesAccepted(t *testing.T) {
	runner := &stubRunner{summary: &retrospective.Summary{Success: true}}
	h := NewRetrospectiveHandler(runner, zap.NewNop())

	rec := postJSON(t, h.Router(), `{"startDate": "2026-03-01", "endDate": "2026-03-02"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, runner.calls)
}

func TestHandleRun_EmptyBodyUsesDefaults(t *testing.T) {
	runner := &stubRunner{summary: &retrospective.Summary{Success: true}}
	h := NewRetrospectiveHandler(runner, zap.NewNop())

	rec := postJSON(t, h.Router(), ``)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, runner.lastOpts.PatientID)
	assert.Nil(t, runner.lastOpts.Start)
	assert.True(t, runner.lastOpts.UpdateDatabase)
}

func TestHandleRun_UpdateDatabaseFalse(t *testing.T) {
	runner := &stubRunner{summary: &retrospective.Summary{Success: true}}
	h := NewRetrospectiveHandler(runner, zap.NewNop())

	rec := postJSON(t, h.Router(), `{"updateDatabase": false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, runner.lastOpts.UpdateDatabase)
}

func TestHandleRun_MalformedDateRejected(t *testing.T) {
	runner := &stubRunner{summary: &retrospective.Summary{Success: true}}
	h := NewRetrospectiveHandler(runner, zap.NewNop())

	rec := postJSON(t, h.Router(), `{"startDate": "not-a-date"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, runner.calls, "runner must not be invoked")

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "startDate")
}

func TestHandleRun_InvertedRangeRejected(t *testing.T) {
	runner := &stubRunner{summary: &retrospective.Summary{Success: true}}
	h := NewRetrospectiveHandler(runner, zap.NewNop())

	rec := postJSON(t, h.Router(), `{"startDate": "2026-03-02", "endDate": "2026-03-01"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, runner.calls)
}

func TestHealthz(t *testing.T) {
	h := NewRetrospectiveHandler(&stubRunner{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
