package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/results"
	"github.com/noah-isme/sma-results-api/internal/service"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/storage"
)

type resultServiceMock struct {
	scope      models.ResultScope
	rankPolicy string
	entries    []results.ScoreEntry
	outcome    *service.SaveOutcome
	report     *models.ClassReport
	card       *models.StudentReport
	records    []models.ScoreRecord
	deleted    int64
	hit        bool
	err        error
}

func (m *resultServiceMock) ClassResults(_ context.Context, scope models.ResultScope) ([]models.ScoreRecord, error) {
	m.scope = scope
	return m.records, m.err
}

func (m *resultServiceMock) SaveResult(_ context.Context, entry results.ScoreEntry) (*service.SaveOutcome, error) {
	m.entries = []results.ScoreEntry{entry}
	return m.outcome, m.err
}

func (m *resultServiceMock) SaveBatch(_ context.Context, entries []results.ScoreEntry) (*service.SaveOutcome, error) {
	m.entries = entries
	return m.outcome, m.err
}

func (m *resultServiceMock) DeleteResult(_ context.Context, id string) (*models.ScoreRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.ScoreRecord{ID: id}, nil
}

func (m *resultServiceMock) DeleteStudentResults(_ context.Context, _ string, _ models.Term, _ string) (int64, error) {
	return m.deleted, m.err
}

func (m *resultServiceMock) ClassReport(_ context.Context, scope models.ResultScope, rankPolicy string) (*models.ClassReport, bool, error) {
	m.scope = scope
	m.rankPolicy = rankPolicy
	return m.report, m.hit, m.err
}

func (m *resultServiceMock) StudentReport(_ context.Context, scope models.ResultScope, _ string, rankPolicy string) (*models.StudentReport, bool, error) {
	m.scope = scope
	m.rankPolicy = rankPolicy
	return m.card, m.hit, m.err
}

func (m *resultServiceMock) StudentHistory(_ context.Context, _ string, _ models.Term, _ string) ([]models.ScoreRecord, error) {
	return m.records, m.err
}

type exporterMock struct {
	format    service.ExportFormat
	published *service.PublishedExport
	path      string
	err       error
}

func (e *exporterMock) Render(_ *models.ClassReport, format service.ExportFormat) (*service.ExportFile, error) {
	e.format = format
	if e.err != nil {
		return nil, e.err
	}
	return &service.ExportFile{Filename: "broadsheet." + string(format), ContentType: "text/csv; charset=utf-8", Content: []byte("Position\n1st\n")}, nil
}

func (e *exporterMock) Publish(_ *models.ClassReport, format service.ExportFormat) (*service.PublishedExport, error) {
	e.format = format
	return e.published, e.err
}

func (e *exporterMock) OpenPublished(token string) (*os.File, *storage.DownloadClaims, error) {
	if token != "good" {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "download link is invalid or expired")
	}
	file, err := os.Open(e.path)
	if err != nil {
		return nil, nil, err
	}
	return file, &storage.DownloadClaims{Path: "export-1/broadsheet.csv", ContentType: "text/csv; charset=utf-8"}, nil
}

func newResultRouter(svc *resultServiceMock, exp *exporterMock, tokens *tokenValidatorStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	opts := RouteOptions{APIPrefix: "/api/v1", Results: NewResultHandler(svc, exp)}
	if tokens != nil {
		opts.Tokens = tokens
	}
	RegisterRoutes(r, opts)
	return r
}

type tokenValidatorStub struct{}

func (tokenValidatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "teacher":
		return &models.JWTClaims{UserID: "T1", Role: models.RoleTeacher}, nil
	case "student":
		return &models.JWTClaims{UserID: "S1", Role: models.RoleStudent}, nil
	}
	return nil, appErrors.ErrUnauthorized
}

func do(r http.Handler, method, target string, body interface{}, token string) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestResultHandlerClassReport(t *testing.T) {
	svc := &resultServiceMock{
		report: &models.ClassReport{RankPolicy: "dense", Summaries: []models.StudentResultSummary{{StudentID: "S1", Position: 1}}},
		hit:    true,
	}
	r := newResultRouter(svc, &exporterMock{}, nil)

	w := do(r, http.MethodGet, "/api/v1/results/report?class=JSS1A&term=1st+Term&academic_year=2024/2025&rank_policy=dense", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ResultScope{ClassName: "JSS1A", Term: models.TermFirst, AcademicYear: "2024/2025"}, svc.scope)
	assert.Equal(t, "dense", svc.rankPolicy)

	env := decode(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	var report models.ClassReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 1, report.Summaries[0].Position)
}

func TestResultHandlerSaveBatchAppliesScope(t *testing.T) {
	svc := &resultServiceMock{outcome: &service.SaveOutcome{Inserted: 2}}
	r := newResultRouter(svc, &exporterMock{}, nil)

	body := map[string]interface{}{
		"class_name":    "JSS1A",
		"term":          "1st Term",
		"academic_year": "2024/2025",
		"entries": []map[string]interface{}{
			{"student_id": "S1", "subject_id": "math", "ca_score": 25, "exam_score": "60"},
			{"student_id": "S2", "subject_id": "math", "class_name": "JSS1B", "ca_score": nil, "exam_score": 50},
		},
	}
	w := do(r, http.MethodPost, "/api/v1/results/bulk", body, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, svc.entries, 2)
	assert.Equal(t, "JSS1A", svc.entries[0].ClassName)
	assert.Equal(t, models.TermFirst, svc.entries[0].Term)
	assert.Equal(t, results.RawScore("60"), svc.entries[0].ExamScore)
	assert.Equal(t, "JSS1B", svc.entries[1].ClassName)
	assert.True(t, svc.entries[1].CAScore.Empty())
}

func TestResultHandlerValidationErrorCarriesViolations(t *testing.T) {
	violations := []results.Violation{{Row: 2, StudentID: "S2", Field: "ca_score", Value: "35", Reason: "must be between 0 and 30"}}
	svc := &resultServiceMock{err: appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "score validation failed"), violations)}
	r := newResultRouter(svc, &exporterMock{}, nil)

	w := do(r, http.MethodPost, "/api/v1/results/bulk", map[string]interface{}{"entries": []interface{}{}}, "")
	require.Equal(t, appErrors.ErrValidation.Status, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
	assert.Contains(t, w.Body.String(), `"ca_score"`)
}

func TestResultHandlerSaveStatus(t *testing.T) {
	svc := &resultServiceMock{outcome: &service.SaveOutcome{Inserted: 1}}
	r := newResultRouter(svc, &exporterMock{}, nil)

	w := do(r, http.MethodPost, "/api/v1/results", map[string]interface{}{"student_id": "S1", "ca_score": 10}, "")
	assert.Equal(t, http.StatusCreated, w.Code)

	svc.outcome = &service.SaveOutcome{Updated: 1}
	w = do(r, http.MethodPost, "/api/v1/results", map[string]interface{}{"student_id": "S1", "ca_score": 12}, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPost, "/api/v1/results", "not an object", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResultHandlerDeletes(t *testing.T) {
	svc := &resultServiceMock{deleted: 3}
	r := newResultRouter(svc, &exporterMock{}, nil)

	w := do(r, http.MethodDelete, "/api/v1/results/r-1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"r-1"`)

	w = do(r, http.MethodDelete, "/api/v1/students/S1/results?term=1st+Term&academic_year=2024/2025", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted":3`)

	svc.err = appErrors.Clone(appErrors.ErrNotFound, "result not found")
	w = do(r, http.MethodDelete, "/api/v1/results/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResultHandlerExport(t *testing.T) {
	svc := &resultServiceMock{report: &models.ClassReport{}}
	exp := &exporterMock{}
	r := newResultRouter(svc, exp, nil)

	w := do(r, http.MethodGet, "/api/v1/results/export?class=JSS1A&term=1st+Term&academic_year=2024/2025", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportCSV, exp.format)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "broadsheet.csv")
	assert.Equal(t, "Position\n1st\n", w.Body.String())

	w = do(r, http.MethodGet, "/api/v1/results/export?class=JSS1A&term=1st+Term&academic_year=2024/2025&format=xlsx", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResultHandlerPublishAndDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broadsheet.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n"), 0o600))

	svc := &resultServiceMock{report: &models.ClassReport{}}
	exp := &exporterMock{
		path:      path,
		published: &service.PublishedExport{ID: "export-1", Format: service.ExportPDF, URL: "/api/v1/results/exports/good"},
	}
	r := newResultRouter(svc, exp, nil)

	w := do(r, http.MethodPost, "/api/v1/results/exports?class=JSS1A&term=1st+Term&academic_year=2024/2025&format=pdf", nil, "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, service.ExportPDF, exp.format)
	assert.Contains(t, w.Body.String(), "/api/v1/results/exports/good")

	w = do(r, http.MethodGet, "/api/v1/results/exports/good", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a,b\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), `filename="broadsheet.csv"`)

	w = do(r, http.MethodGet, "/api/v1/results/exports/bad", nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestResultRoutesRequireRolesWhenAuthEnabled(t *testing.T) {
	svc := &resultServiceMock{
		outcome: &service.SaveOutcome{Updated: 1},
		card:    &models.StudentReport{Summary: models.StudentResultSummary{StudentID: "S1"}},
	}
	r := newResultRouter(svc, &exporterMock{}, &tokenValidatorStub{})

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/api/v1/results", map[string]interface{}{}, "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, "/api/v1/results", map[string]interface{}{}, "student").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/v1/results", map[string]interface{}{}, "teacher").Code)

	query := "?class=JSS1A&term=1st+Term&academic_year=2024/2025"
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/v1/results/students/S1/report"+query, nil, "student").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/results/students/S2/report"+query, nil, "student").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/results/report"+query, nil, "student").Code)
}
