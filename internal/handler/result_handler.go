package handler

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-results-api/internal/dto"
	"github.com/noah-isme/sma-results-api/internal/middleware"
	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/results"
	"github.com/noah-isme/sma-results-api/internal/service"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/response"
	"github.com/noah-isme/sma-results-api/pkg/storage"
)

type resultService interface {
	ClassResults(ctx context.Context, scope models.ResultScope) ([]models.ScoreRecord, error)
	SaveResult(ctx context.Context, entry results.ScoreEntry) (*service.SaveOutcome, error)
	SaveBatch(ctx context.Context, entries []results.ScoreEntry) (*service.SaveOutcome, error)
	DeleteResult(ctx context.Context, id string) (*models.ScoreRecord, error)
	DeleteStudentResults(ctx context.Context, studentID string, term models.Term, academicYear string) (int64, error)
	ClassReport(ctx context.Context, scope models.ResultScope, rankPolicy string) (*models.ClassReport, bool, error)
	StudentReport(ctx context.Context, scope models.ResultScope, studentID string, rankPolicy string) (*models.StudentReport, bool, error)
	StudentHistory(ctx context.Context, studentID string, term models.Term, academicYear string) ([]models.ScoreRecord, error)
}

type reportExporter interface {
	Render(report *models.ClassReport, format service.ExportFormat) (*service.ExportFile, error)
	Publish(report *models.ClassReport, format service.ExportFormat) (*service.PublishedExport, error)
	OpenPublished(token string) (*os.File, *storage.DownloadClaims, error)
}

// ResultHandler exposes score entry, report and export endpoints.
type ResultHandler struct {
	results resultService
	exports reportExporter
}

// NewResultHandler constructs a result handler.
func NewResultHandler(results resultService, exports reportExporter) *ResultHandler {
	return &ResultHandler{results: results, exports: exports}
}

// List godoc
// @Summary List class score records
// @Tags Results
// @Produce json
// @Param class query string true "Class name"
// @Param term query string true "Term" Enums(1st Term, 2nd Term, 3rd Term)
// @Param academic_year query string true "Academic year, e.g. 2024/2025"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /results [get]
func (h *ResultHandler) List(c *gin.Context) {
	var scope models.ResultScope
	if err := c.ShouldBindQuery(&scope); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	records, err := h.results.ClassResults(c.Request.Context(), scope)
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := middleware.ResponseMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["count"] = len(records)
	response.JSON(c, http.StatusOK, records, meta)
}

// Save godoc
// @Summary Create or update one score record
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body results.ScoreEntry true "Score entry"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /results [post]
func (h *ResultHandler) Save(c *gin.Context) {
	var entry results.ScoreEntry
	if err := c.ShouldBindJSON(&entry); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	outcome, err := h.results.SaveResult(c.Request.Context(), entry)
	if err != nil {
		response.Error(c, err)
		return
	}
	status := http.StatusOK
	if outcome.Inserted > 0 {
		status = http.StatusCreated
	}
	response.JSON(c, status, outcome, middleware.ResponseMeta(c))
}

// SaveBatch godoc
// @Summary Create or update a batch of score records
// @Description The whole batch is rejected when any row fails validation.
// @Tags Results
// @Accept json
// @Produce json
// @Param payload body dto.BulkScoreRequest true "Score sheet"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /results/bulk [post]
func (h *ResultHandler) SaveBatch(c *gin.Context) {
	var req dto.BulkScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payload"))
		return
	}
	outcome, err := h.results.SaveBatch(c.Request.Context(), req.ScoreEntries())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, middleware.ResponseMeta(c))
}

// Delete godoc
// @Summary Delete a score record
// @Tags Results
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results/{id} [delete]
func (h *ResultHandler) Delete(c *gin.Context) {
	record, err := h.results.DeleteResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// DeleteStudent godoc
// @Summary Delete every record of a student in a term
// @Tags Results
// @Param studentId path string true "Student ID"
// @Param term query string true "Term"
// @Param academic_year query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/results [delete]
func (h *ResultHandler) DeleteStudent(c *gin.Context) {
	var query dto.StudentScopeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	studentID := c.Param("studentId")
	removed, err := h.results.DeleteStudentResults(c.Request.Context(), studentID, query.Term, query.AcademicYear)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeleteStudentResultsResponse{
		StudentID:    studentID,
		Term:         query.Term,
		AcademicYear: query.AcademicYear,
		Deleted:      removed,
	})
}

// StudentHistory godoc
// @Summary A student's records in a term across classes
// @Tags Results
// @Param studentId path string true "Student ID"
// @Param term query string true "Term"
// @Param academic_year query string true "Academic year"
// @Success 200 {object} response.Envelope
// @Router /results/students/{studentId} [get]
func (h *ResultHandler) StudentHistory(c *gin.Context) {
	var query dto.StudentScopeQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	records, err := h.results.StudentHistory(c.Request.Context(), c.Param("studentId"), query.Term, query.AcademicYear)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records)
}

// ClassReport godoc
// @Summary Ranked class report with statistics
// @Tags Reports
// @Produce json
// @Param class query string true "Class name"
// @Param term query string true "Term"
// @Param academic_year query string true "Academic year"
// @Param rank_policy query string false "Ranking policy" Enums(sequential, competition, dense)
// @Success 200 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /results/report [get]
func (h *ResultHandler) ClassReport(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	report, hit, err := h.results.ClassReport(c.Request.Context(), query.ResultScope, query.RankPolicy)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, report, middleware.ResponseMeta(c))
}

// StudentReport godoc
// @Summary One student's report card within a class
// @Tags Reports
// @Produce json
// @Param studentId path string true "Student ID"
// @Param class query string true "Class name"
// @Param term query string true "Term"
// @Param academic_year query string true "Academic year"
// @Param rank_policy query string false "Ranking policy"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /results/students/{studentId}/report [get]
func (h *ResultHandler) StudentReport(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	card, hit, err := h.results.StudentReport(c.Request.Context(), query.ResultScope, c.Param("studentId"), query.RankPolicy)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, card, middleware.ResponseMeta(c))
}

// Export godoc
// @Summary Download the class broadsheet
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Produce text/html
// @Param class query string true "Class name"
// @Param term query string true "Term"
// @Param academic_year query string true "Academic year"
// @Param rank_policy query string false "Ranking policy"
// @Param format query string false "Export format" Enums(csv, pdf, html)
// @Success 200 {file} file
// @Router /results/export [get]
func (h *ResultHandler) Export(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, _, err := h.results.ClassReport(c.Request.Context(), query.ResultScope, query.RankPolicy)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.exports.Render(report, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Content)
}

// Publish godoc
// @Summary Archive the class broadsheet behind a signed download link
// @Tags Reports
// @Produce json
// @Param class query string true "Class name"
// @Param term query string true "Term"
// @Param academic_year query string true "Academic year"
// @Param rank_policy query string false "Ranking policy"
// @Param format query string false "Export format" Enums(csv, pdf, html)
// @Success 201 {object} response.Envelope
// @Router /results/exports [post]
func (h *ResultHandler) Publish(c *gin.Context) {
	query, ok := bindReportQuery(c)
	if !ok {
		return
	}
	format, err := service.ParseExportFormat(query.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	report, _, err := h.results.ClassReport(c.Request.Context(), query.ResultScope, query.RankPolicy)
	if err != nil {
		response.Error(c, err)
		return
	}
	published, err := h.exports.Publish(report, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, published)
}

// Download godoc
// @Summary Fetch a published broadsheet
// @Tags Reports
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /results/exports/{token} [get]
func (h *ResultHandler) Download(c *gin.Context) {
	file, claims, err := h.exports.OpenPublished(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "read export"))
		return
	}
	name := claims.Path
	if idx := strings.LastIndex(name, "/"); idx >= 0 {
		name = name[idx+1:]
	}
	response.Attachment(c, name, claims.ContentType, payload)
}

func bindReportQuery(c *gin.Context) (dto.ReportQuery, bool) {
	var query dto.ReportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return query, false
	}
	return query, true
}
