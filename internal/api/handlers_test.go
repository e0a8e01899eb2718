package api

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthscore-analysis-server/internal/domain"
	"github.com/healthscore-analysis-server/internal/extract"
	"github.com/healthscore-analysis-server/internal/service"
)

type stubConfigManager struct {
	cfg *domain.Config
}

func (s *stubConfigManager) GetConfig() *domain.Config             { return s.cfg }
func (s *stubConfigManager) GetServerConfig() *domain.ServerConfig { return &s.cfg.Server }
func (s *stubConfigManager) GetUploadConfig() *domain.UploadConfig { return &s.cfg.Upload }
func (s *stubConfigManager) Validate() error                       { return nil }

func testConfig() *domain.Config {
	return &domain.Config{
		Server: domain.ServerConfig{Host: "127.0.0.1", Port: 8080},
		Upload: domain.UploadConfig{
			MaxFileSize:       1024 * 1024,
			AllowedExtensions: []string{"csv", "xlsx", "pdf"},
			CacheSize:         16,
			CacheTTL:          time.Minute,
		},
		RateLimit: domain.RateLimitConfig{Enabled: false},
		Metrics:   domain.MetricsConfig{Enabled: true, Path: "/metrics"},
		Logging:   domain.LoggingConfig{Level: "error", Format: "json"},
	}
}

func newTestServer(t *testing.T, cfg *domain.Config) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	analyzer, err := service.NewAnalyzerService(logger, service.DefaultRuleLibrary())
	require.NoError(t, err)

	extractors := extract.NewRegistry(logger, analyzer.ReferenceTable(), &cfg.Upload, "")
	return NewServer(&stubConfigManager{cfg: cfg}, logger, analyzer, extractors)
}

func multipartBody(t *testing.T, field string, files map[string]string, form map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range form {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func postAnalyze(t *testing.T, srv *Server, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestAnalyzeEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())

	body, contentType := multipartBody(t, "files", map[string]string{
		"lab-1.csv": "Biomarker,Value\nGlucose,128\nTotal Cholesterol,220\n",
		"lab-2.csv": "Biomarker,Value\nGlucose,132\n",
	}, map[string]string{"sex": "male"})

	rec := postAnalyze(t, srv, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	assert.Equal(t, 2, result.SourceFileCount)
	assert.False(t, result.AllOptimal)
	require.Len(t, result.Biomarkers, 2)
	assert.Equal(t, 130.0, result.Biomarkers[0].Value)
	assert.Equal(t, domain.ABOVE_ACCEPTABLE, result.Biomarkers[0].Status)

	names := make([]string, 0)
	for _, d := range result.Detections {
		names = append(names, d.ConditionName)
	}
	assert.Contains(t, names, "Type 2 Diabetes")
}

func TestAnalyzeEndpointSingleFileField(t *testing.T) {
	srv := newTestServer(t, testConfig())

	body, contentType := multipartBody(t, "file", map[string]string{
		"lab.csv": "Biomarker,Value\nGlucose,95\n",
	}, nil)

	rec := postAnalyze(t, srv, body, contentType)
	require.Equal(t, http.StatusOK, rec.Code)

	var result domain.AnalysisResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.True(t, result.AllOptimal)
	assert.Equal(t, 1, result.SourceFileCount)
}

func TestAnalyzeEndpointNoFiles(t *testing.T) {
	srv := newTestServer(t, testConfig())

	body, contentType := multipartBody(t, "files", nil, map[string]string{"sex": "male"})
	rec := postAnalyze(t, srv, body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrNoFiles, apiErr.Code)
	assert.NotEmpty(t, apiErr.RequestID)
}

func TestAnalyzeEndpointUnsupportedType(t *testing.T) {
	srv := newTestServer(t, testConfig())

	body, contentType := multipartBody(t, "files", map[string]string{"run.exe": "MZ"}, nil)
	rec := postAnalyze(t, srv, body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrUnsupportedType, apiErr.Code)
}

func TestAnalyzeEndpointInvalidSex(t *testing.T) {
	srv := newTestServer(t, testConfig())

	body, contentType := multipartBody(t, "files", map[string]string{
		"lab.csv": "Biomarker,Value\nGlucose,95\n",
	}, map[string]string{"sex": "other"})
	rec := postAnalyze(t, srv, body, contentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrInvalidInput, apiErr.Code)
}

func TestAnalyzeEndpointFileTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 64
	srv := newTestServer(t, cfg)

	big := make([]byte, 256)
	for i := range big {
		big[i] = 'a'
	}
	body, contentType := multipartBody(t, "files", map[string]string{"lab.csv": string(big)}, nil)
	rec := postAnalyze(t, srv, body, contentType)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrFileTooLarge, apiErr.Code)
}

func TestAnalyzeEndpointUnparseableExtraction(t *testing.T) {
	srv := newTestServer(t, testConfig())

	body, contentType := multipartBody(t, "files", map[string]string{"report.xlsx": "not a workbook"}, nil)
	rec := postAnalyze(t, srv, body, contentType)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrExtraction, apiErr.Code)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, testConfig())

	// Labelled vectors only appear after a first observation.
	warm := httptest.NewRecorder()
	srv.Router().ServeHTTP(warm, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, warm.Code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthscore_http_requests_total")
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = domain.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}
	srv := newTestServer(t, cfg)

	first := httptest.NewRecorder()
	srv.Router().ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	srv.Router().ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrRateLimit, apiErr.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	srv := newTestServer(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	assert.Equal(t, "fixed-id", rec.Header().Get("X-Request-ID"))
}
