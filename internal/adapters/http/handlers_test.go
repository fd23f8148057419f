package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/weightwatch/core/internal/adapters/repository"
	"github.com/weightwatch/core/internal/application/services"
	"github.com/weightwatch/core/internal/domain/entities"
	"github.com/weightwatch/core/internal/infrastructure/logger"
	"github.com/weightwatch/core/internal/ports"
)

type testValidator struct {
	v *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	return e
}

func newTestMeasurementService(t *testing.T) *services.MeasurementService {
	t.Helper()
	repo, err := repository.NewFileMeasurementRepository(filepath.Join(t.TempDir(), "weights.dat"), logger.NewNop())
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return services.NewMeasurementService(repo, logger.NewNop())
}

// fakeChartService satisfies ports.ChartService without invoking gnuplot.
type fakeChartService struct {
	out     string
	err     error
	renders int
}

func (f *fakeChartService) RenderChart(ctx context.Context) (string, error) {
	f.renders++
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func (f *fakeChartService) RenderChartWindow(ctx context.Context, req ports.RenderRequest) (string, error) {
	f.renders++
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func (f *fakeChartService) OutputPath() string { return f.out }

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func TestCreateMeasurement(t *testing.T) {
	e := newTestEcho()
	h := NewMeasurementHandler(newTestMeasurementService(t), logger.NewNop())

	body := `{"date":"2024-06-01","weight":185.4}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/measurements", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.CreateMeasurement(e.NewContext(req, rec)); err != nil {
		t.Fatalf("CreateMeasurement returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}

	var resp MeasurementResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Date != "2024-06-01" || resp.Weight != 185.4 {
		t.Errorf("response = %+v, want 2024-06-01 185.4", resp)
	}
}

func TestCreateMeasurementInvalid(t *testing.T) {
	e := newTestEcho()
	h := NewMeasurementHandler(newTestMeasurementService(t), logger.NewNop())

	tests := []struct {
		name string
		body string
	}{
		{"bad date", `{"date":"06/01/2024","weight":185.4}`},
		{"missing weight", `{"date":"2024-06-01"}`},
		{"negative weight", `{"date":"2024-06-01","weight":-2}`},
		{"not json", `weight=185.4`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/measurements", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()

			err := h.CreateMeasurement(e.NewContext(req, rec))
			if err == nil {
				t.Fatal("CreateMeasurement accepted invalid input")
			}
			if code := httpStatus(t, err); code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", code, http.StatusBadRequest)
			}
		})
	}
}

func TestListMeasurementsPreservesOrder(t *testing.T) {
	e := newTestEcho()
	svc := newTestMeasurementService(t)
	h := NewMeasurementHandler(svc, logger.NewNop())

	ctx := context.Background()
	for _, req := range []ports.AddMeasurementRequest{
		{Date: "2024-06-01", Weight: 185.4},
		{Date: "2024-06-02", Weight: 184.9},
	} {
		if _, err := svc.AddMeasurement(ctx, req); err != nil {
			t.Fatalf("AddMeasurement returned error: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/measurements", nil)
	rec := httptest.NewRecorder()
	if err := h.ListMeasurements(e.NewContext(req, rec)); err != nil {
		t.Fatalf("ListMeasurements returned error: %v", err)
	}

	var resp MeasurementListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 2 {
		t.Fatalf("response = %+v, want 2 measurements", resp)
	}
	if resp.Data[0].Date != "2024-06-01" || resp.Data[1].Date != "2024-06-02" {
		t.Errorf("order not preserved: %+v", resp.Data)
	}
}

func TestRecentMeasurementsBadLimit(t *testing.T) {
	e := newTestEcho()
	h := NewMeasurementHandler(newTestMeasurementService(t), logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/measurements/recent?limit=zero", nil)
	rec := httptest.NewRecorder()

	err := h.RecentMeasurements(e.NewContext(req, rec))
	if err == nil {
		t.Fatal("RecentMeasurements accepted bad limit")
	}
	if code := httpStatus(t, err); code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestSubmitWeightRedirects(t *testing.T) {
	e := newTestEcho()
	svc := newTestMeasurementService(t)
	charts := &fakeChartService{out: filepath.Join(t.TempDir(), "chart.png")}
	h, err := NewPageHandler(svc, charts, logger.NewNop())
	if err != nil {
		t.Fatalf("NewPageHandler returned error: %v", err)
	}

	form := url.Values{"weight": {"185.4"}, "date": {"2024-06-01"}}
	req := httptest.NewRequest(http.MethodPost, "/weight", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()

	if err := h.SubmitWeight(e.NewContext(req, rec)); err != nil {
		t.Fatalf("SubmitWeight returned error: %v", err)
	}
	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/" {
		t.Errorf("Location = %q, want /", loc)
	}

	all, err := svc.ListMeasurements(context.Background())
	if err != nil || len(all) != 1 {
		t.Fatalf("stored measurements = %d, %v; want 1, nil", len(all), err)
	}
}

func TestSubmitWeightInvalid(t *testing.T) {
	e := newTestEcho()
	charts := &fakeChartService{out: filepath.Join(t.TempDir(), "chart.png")}
	h, err := NewPageHandler(newTestMeasurementService(t), charts, logger.NewNop())
	if err != nil {
		t.Fatalf("NewPageHandler returned error: %v", err)
	}

	tests := []url.Values{
		{"weight": {"heavy"}},
		{"weight": {""}},
		{"weight": {"185.4"}, "date": {"yesterday"}},
	}

	for _, form := range tests {
		req := httptest.NewRequest(http.MethodPost, "/weight", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		rec := httptest.NewRecorder()

		submitErr := h.SubmitWeight(e.NewContext(req, rec))
		if submitErr == nil {
			t.Errorf("SubmitWeight accepted %v", form)
			continue
		}
		if code := httpStatus(t, submitErr); code != http.StatusBadRequest {
			t.Errorf("status for %v = %d, want %d", form, code, http.StatusBadRequest)
		}
	}
}

func TestIndexPageEmptyStore(t *testing.T) {
	e := newTestEcho()
	charts := &fakeChartService{out: filepath.Join(t.TempDir(), "chart.png")}
	h, err := NewPageHandler(newTestMeasurementService(t), charts, logger.NewNop())
	if err != nil {
		t.Fatalf("NewPageHandler returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := h.Index(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Index returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if charts.renders != 0 {
		t.Errorf("empty store triggered %d renders, want 0", charts.renders)
	}
	if !strings.Contains(rec.Body.String(), "No chart yet") {
		t.Error("empty-store page missing placeholder text")
	}
}

func TestIndexPageSurvivesRenderFailure(t *testing.T) {
	e := newTestEcho()
	svc := newTestMeasurementService(t)
	if _, err := svc.AddMeasurement(context.Background(), ports.AddMeasurementRequest{Date: "2024-06-01", Weight: 185.4}); err != nil {
		t.Fatalf("AddMeasurement returned error: %v", err)
	}

	charts := &fakeChartService{
		out: filepath.Join(t.TempDir(), "chart.png"),
		err: entities.ErrPlotToolMissing,
	}
	h, err := NewPageHandler(svc, charts, logger.NewNop())
	if err != nil {
		t.Fatalf("NewPageHandler returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := h.Index(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Index returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (page must load despite render failure)", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "gnuplot is not installed") {
		t.Error("page does not surface the missing-tool condition")
	}
	if !strings.Contains(body, "2024-06-01") {
		t.Error("page is missing the recent-entries table")
	}
}

func TestIndexPageShowsPriorImage(t *testing.T) {
	e := newTestEcho()
	svc := newTestMeasurementService(t)
	if _, err := svc.AddMeasurement(context.Background(), ports.AddMeasurementRequest{Date: "2024-06-01", Weight: 185.4}); err != nil {
		t.Fatalf("AddMeasurement returned error: %v", err)
	}

	// A previously rendered image exists even though this render fails.
	out := filepath.Join(t.TempDir(), "chart.png")
	if err := os.WriteFile(out, []byte("png"), 0o644); err != nil {
		t.Fatalf("failed to seed chart image: %v", err)
	}
	charts := &fakeChartService{out: out, err: entities.ErrPlotExecution}

	h, err := NewPageHandler(svc, charts, logger.NewNop())
	if err != nil {
		t.Fatalf("NewPageHandler returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	if err := h.Index(e.NewContext(req, rec)); err != nil {
		t.Fatalf("Index returned error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "/chart.png") {
		t.Error("page does not embed the prior chart image")
	}
}

func TestChartImageMissing(t *testing.T) {
	e := newTestEcho()
	charts := &fakeChartService{out: filepath.Join(t.TempDir(), "chart.png")}
	h, err := NewPageHandler(newTestMeasurementService(t), charts, logger.NewNop())
	if err != nil {
		t.Fatalf("NewPageHandler returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/chart.png", nil)
	rec := httptest.NewRecorder()

	imgErr := h.ChartImage(e.NewContext(req, rec))
	if imgErr == nil {
		t.Fatal("ChartImage served a missing file")
	}
	if code := httpStatus(t, imgErr); code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestRenderChartEndpoint(t *testing.T) {
	e := newTestEcho()
	charts := &fakeChartService{out: "/tmp/weightwatch.png"}
	h := NewChartHandler(charts, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chart/render", nil)
	rec := httptest.NewRecorder()
	if err := h.RenderChart(e.NewContext(req, rec)); err != nil {
		t.Fatalf("RenderChart returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp ChartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Output != "/tmp/weightwatch.png" {
		t.Errorf("output = %q, want /tmp/weightwatch.png", resp.Output)
	}
}

func TestRenderChartEndpointToolMissing(t *testing.T) {
	e := newTestEcho()
	charts := &fakeChartService{out: "/tmp/weightwatch.png", err: entities.ErrPlotToolMissing}
	h := NewChartHandler(charts, logger.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chart/render", nil)
	rec := httptest.NewRecorder()

	err := h.RenderChart(e.NewContext(req, rec))
	if err == nil {
		t.Fatal("RenderChart ignored the missing tool")
	}
	if code := httpStatus(t, err); code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", code, http.StatusBadGateway)
	}
}

func TestRenderChartEndpointExplicitBounds(t *testing.T) {
	e := newTestEcho()
	charts := &fakeChartService{out: "/tmp/weightwatch.png"}
	h := NewChartHandler(charts, logger.NewNop())

	body := `{"date_start":"2024-06-01","date_end":"2024-06-30","weight_start":180,"weight_end":250}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chart/render", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	if err := h.RenderChart(e.NewContext(req, rec)); err != nil {
		t.Fatalf("RenderChart returned error: %v", err)
	}
	if charts.renders != 1 {
		t.Errorf("renders = %d, want 1", charts.renders)
	}
}
