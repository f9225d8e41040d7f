package httpd

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woodlandhills/snowcam/model"
	"github.com/woodlandhills/snowcam/service/config"
)

type fakeOrchestrator struct {
	sequencePath string
	reloadErr    error
	fieldErrs    []config.FieldError
	lastUpdates  map[string]interface{}
}

func (f *fakeOrchestrator) LatestSequencePath() string { return f.sequencePath }

func (f *fakeOrchestrator) Status() model.StatusReport {
	return model.StatusReport{IsRunning: true, LatestSequence: f.sequencePath}
}

func (f *fakeOrchestrator) UpdateConfig(updates map[string]interface{}) (config.Dynamic, []config.FieldError) {
	f.lastUpdates = updates
	return config.Dynamic{}, f.fieldErrs
}

func (f *fakeOrchestrator) ResetConfig() config.Dynamic { return config.Dynamic{} }

func (f *fakeOrchestrator) Reload() error { return f.reloadErr }

func (f *fakeOrchestrator) AnalyticsSummary() map[string]interface{} {
	return map[string]interface{}{"enabled": true}
}

func (f *fakeOrchestrator) AnalyticsHistory(hours int) []model.AnalysisResult {
	return make([]model.AnalysisResult, hours)
}

func (f *fakeOrchestrator) CurrentConfig() config.Dynamic { return config.Dynamic{} }

func newTestServer(orch Orchestrator) *Server {
	return NewServer(config.NewEnvVars(), orch)
}

func TestHealth(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{})
	rec := httptest.NewRecorder()

	s.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %s, want application/json", ct)
	}
}

func TestStatus(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{sequencePath: "/data/sequences/sequence_20260115_073000.gif"})
	rec := httptest.NewRecorder()

	s.status(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var report model.StatusReport
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if !report.IsRunning {
		t.Error("IsRunning = false, want true")
	}
	if report.LatestSequence == "" {
		t.Error("LatestSequence missing from report")
	}
}

func TestLatestSequenceNotFound(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{sequencePath: ""})
	rec := httptest.NewRecorder()

	s.latestSequence(rec, httptest.NewRequest(http.MethodGet, "/sequence/latest", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestLatestSequenceServesGif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sequence_20260115_073000.gif")
	if err := os.WriteFile(path, []byte("GIF89a"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	s := newTestServer(&fakeOrchestrator{sequencePath: path})
	rec := httptest.NewRecorder()

	s.latestSequence(rec, httptest.NewRequest(http.MethodGet, "/sequence/latest", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/gif" {
		t.Errorf("Content-Type = %s, want image/gif", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "GIF89a") {
		t.Error("body does not look like a GIF")
	}
}

func TestUpdateConfigValidationFailure(t *testing.T) {
	fake := &fakeOrchestrator{
		fieldErrs: []config.FieldError{{Field: "snow_detection_threshold", Message: "out of range"}},
	}
	s := newTestServer(fake)
	rec := httptest.NewRecorder()

	req := httptest.NewRequest(http.MethodPost, "/config/analytics",
		strings.NewReader(`{"snow_detection_threshold": 7}`))
	s.updateConfig(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var body struct {
		Fields []config.FieldError `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if len(body.Fields) != 1 || body.Fields[0].Field != "snow_detection_threshold" {
		t.Errorf("unexpected field errors: %v", body.Fields)
	}
}

func TestUpdateConfigBadJSON(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{})
	rec := httptest.NewRecorder()

	req := httptest.NewRequest(http.MethodPost, "/config/analytics", strings.NewReader("{not json"))
	s.updateConfig(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyticsHistoryHoursValidation(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{})

	for _, hours := range []string{"0", "-3", "200", "abc"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/analytics/history?hours="+hours, nil)
		s.analyticsHistory(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("hours=%s: status = %d, want 400", hours, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	s.analyticsHistory(rec, httptest.NewRequest(http.MethodGet, "/analytics/history?hours=12", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("hours=12: status = %d, want 200", rec.Code)
	}
}

func TestReloadFailure(t *testing.T) {
	s := newTestServer(&fakeOrchestrator{reloadErr: errors.New("config file corrupt")})
	rec := httptest.NewRecorder()

	s.reload(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
