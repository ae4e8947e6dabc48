package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/results"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
)

const reportCachePrefix = "results:report"

type resultRepository interface {
	ListByScope(ctx context.Context, scope models.ResultScope) ([]models.ScoreRecord, error)
	ListByStudent(ctx context.Context, studentID string, term models.Term, academicYear string) ([]models.ScoreRecord, error)
	Upsert(ctx context.Context, record *models.ScoreRecord) (string, error)
	BulkUpsert(ctx context.Context, records []models.ScoreRecord) (*models.BulkUpsertResult, error)
	Delete(ctx context.Context, id string) (*models.ScoreRecord, error)
	DeleteForStudent(ctx context.Context, studentID string, term models.Term, academicYear string) (int64, error)
}

// ResultServiceConfig tunes report computation.
type ResultServiceConfig struct {
	RankPolicy results.RankPolicy
	CacheTTL   time.Duration
}

// SaveOutcome describes an accepted save.
type SaveOutcome struct {
	Records  []models.ScoreRecord `json:"records"`
	Warnings []results.Warning    `json:"warnings"`
	Inserted int                  `json:"inserted"`
	Updated  int                  `json:"updated"`
	Skipped  int                  `json:"skipped"`
}

// ResultService validates and persists score entries and assembles class reports.
type ResultService struct {
	repo      resultRepository
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    ResultServiceConfig
}

// NewResultService constructs a result service.
func NewResultService(repo resultRepository, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg ResultServiceConfig) *ResultService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RankPolicy == "" {
		cfg.RankPolicy = results.DefaultRankPolicy
	}
	return &ResultService{
		repo:      repo,
		cache:     cache,
		metrics:   metrics,
		validator: results.NewValidator(),
		logger:    logger,
		config:    cfg,
	}
}

// RankPolicy returns the policy used when a request does not name one.
func (s *ResultService) RankPolicy() results.RankPolicy {
	return s.config.RankPolicy
}

// ClassResults returns the raw records of a scope.
func (s *ResultService) ClassResults(ctx context.Context, scope models.ResultScope) ([]models.ScoreRecord, error) {
	scope, err := s.validateScope(scope)
	if err != nil {
		return nil, err
	}
	return s.listScope(ctx, scope)
}

// SaveResult validates and upserts one entry.
func (s *ResultService) SaveResult(ctx context.Context, entry results.ScoreEntry) (*SaveOutcome, error) {
	record, warnings, err := results.NormalizeEntry(entry)
	if err != nil {
		return nil, s.rejected(err)
	}

	start := time.Now()
	previousClass, err := s.repo.Upsert(ctx, &record)
	s.metrics.ObserveDBQuery("upsert_result", time.Since(start))
	if err != nil {
		return nil, s.repositoryError("save result", err)
	}

	outcome := &SaveOutcome{Records: []models.ScoreRecord{record}, Warnings: nonNilWarnings(warnings)}
	if record.CreatedAt.Equal(record.UpdatedAt) {
		outcome.Inserted = 1
	} else {
		outcome.Updated = 1
	}
	s.metrics.RecordSaved(outcome.Inserted, outcome.Updated)
	s.invalidateClasses(ctx, record.ClassName, previousClass)
	return outcome, nil
}

// SaveBatch validates every entry before writing anything; a single bad row
// rejects the whole batch.
func (s *ResultService) SaveBatch(ctx context.Context, entries []results.ScoreEntry) (*SaveOutcome, error) {
	batch, err := results.NormalizeBatch(entries)
	if err != nil {
		return nil, s.rejected(err)
	}

	start := time.Now()
	saved, err := s.repo.BulkUpsert(ctx, batch.Records)
	s.metrics.ObserveDBQuery("bulk_upsert_results", time.Since(start))
	if err != nil {
		return nil, s.repositoryError("save result batch", err)
	}

	s.metrics.RecordSaved(saved.Inserted, saved.Updated)
	classes := make([]string, 0, len(saved.Records)+len(saved.MovedFrom))
	for _, record := range saved.Records {
		classes = append(classes, record.ClassName)
	}
	s.invalidateClasses(ctx, append(classes, saved.MovedFrom...)...)

	s.logger.Info("score batch saved",
		zap.Int("inserted", saved.Inserted),
		zap.Int("updated", saved.Updated),
		zap.Int("skipped", batch.Skipped),
		zap.Int("warnings", len(batch.Warnings)))

	return &SaveOutcome{
		Records:  saved.Records,
		Warnings: nonNilWarnings(batch.Warnings),
		Inserted: saved.Inserted,
		Updated:  saved.Updated,
		Skipped:  batch.Skipped,
	}, nil
}

// DeleteResult removes one record by id.
func (s *ResultService) DeleteResult(ctx context.Context, id string) (*models.ScoreRecord, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "result id is required")
	}
	start := time.Now()
	record, err := s.repo.Delete(ctx, id)
	s.metrics.ObserveDBQuery("delete_result", time.Since(start))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "result not found")
		}
		return nil, s.repositoryError("delete result", err)
	}
	s.invalidateClasses(ctx, record.ClassName)
	return record, nil
}

// DeleteStudentResults removes every record of a student in a term and year.
func (s *ResultService) DeleteStudentResults(ctx context.Context, studentID string, term models.Term, academicYear string) (int64, error) {
	studentID, academicYear = strings.TrimSpace(studentID), strings.TrimSpace(academicYear)
	if studentID == "" {
		return 0, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	if !term.Valid() || !results.ValidAcademicYear(academicYear) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "a valid term and academic_year are required")
	}
	start := time.Now()
	removed, err := s.repo.DeleteForStudent(ctx, studentID, term, academicYear)
	s.metrics.ObserveDBQuery("delete_student_results", time.Since(start))
	if err != nil {
		return 0, s.repositoryError("delete student results", err)
	}
	if removed > 0 {
		s.cache.Invalidate(ctx, reportCachePrefix+":*")
	}
	return removed, nil
}

// ClassReport loads a scope and runs the results pipeline over it. The bool
// reports whether the report came from the cache.
func (s *ResultService) ClassReport(ctx context.Context, scope models.ResultScope, rankPolicy string) (*models.ClassReport, bool, error) {
	scope, err := s.validateScope(scope)
	if err != nil {
		return nil, false, err
	}
	policy := s.config.RankPolicy
	if strings.TrimSpace(rankPolicy) != "" {
		parsed, err := results.ParseRankPolicy(rankPolicy)
		if err != nil {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		policy = parsed
	}

	key := reportCacheKey(scope, policy)
	var cached models.ClassReport
	if s.cache.Get(ctx, key, &cached) {
		return &cached, true, nil
	}

	records, err := s.listScope(ctx, scope)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	outcome, err := results.NewPipeline(policy).Run(records)
	s.metrics.ObservePipeline(time.Since(start))
	if err != nil {
		var cerr *results.ComputationError
		if errors.As(err, &cerr) {
			s.logger.Error("stored score failed result computation",
				zap.String("class", scope.ClassName),
				zap.String("term", string(scope.Term)),
				zap.String("academic_year", scope.AcademicYear),
				zap.String("record_id", cerr.RecordID),
				zap.String("field", cerr.Field),
				zap.Error(err))
			return nil, false, appErrors.Wrap(err, appErrors.ErrComputation.Code, appErrors.ErrComputation.Status, appErrors.ErrComputation.Message)
		}
		return nil, false, fmt.Errorf("run results pipeline: %w", err)
	}

	report := &models.ClassReport{
		Scope:      scope,
		RankPolicy: string(policy),
		Summaries:  outcome.Summaries,
		Statistics: outcome.Statistics,
		Records:    records,
	}
	s.cache.Set(ctx, key, report, s.config.CacheTTL)
	return report, false, nil
}

// StudentReport returns one student's report card within the class scope.
func (s *ResultService) StudentReport(ctx context.Context, scope models.ResultScope, studentID string, rankPolicy string) (*models.StudentReport, bool, error) {
	report, hit, err := s.ClassReport(ctx, scope, rankPolicy)
	if err != nil {
		return nil, false, err
	}
	studentID = strings.TrimSpace(studentID)
	for _, summary := range report.Summaries {
		if summary.StudentID != studentID {
			continue
		}
		records := make([]models.ScoreRecord, 0, summary.SubjectCount)
		for _, record := range report.Records {
			if record.StudentID == studentID {
				records = append(records, record)
			}
		}
		return &models.StudentReport{
			Scope:      report.Scope,
			Summary:    summary,
			Records:    records,
			ClassSize:  len(report.Summaries),
			RankPolicy: report.RankPolicy,
		}, hit, nil
	}
	return nil, false, appErrors.Clone(appErrors.ErrNotFound, "no results for student in this class scope")
}

// StudentHistory returns a student's records for a term across classes.
func (s *ResultService) StudentHistory(ctx context.Context, studentID string, term models.Term, academicYear string) ([]models.ScoreRecord, error) {
	studentID, academicYear = strings.TrimSpace(studentID), strings.TrimSpace(academicYear)
	if !term.Valid() || !results.ValidAcademicYear(academicYear) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a valid term and academic_year are required")
	}
	start := time.Now()
	records, err := s.repo.ListByStudent(ctx, studentID, term, academicYear)
	s.metrics.ObserveDBQuery("list_student_results", time.Since(start))
	if err != nil {
		return nil, s.repositoryError("list student results", err)
	}
	return records, nil
}

func (s *ResultService) listScope(ctx context.Context, scope models.ResultScope) ([]models.ScoreRecord, error) {
	start := time.Now()
	records, err := s.repo.ListByScope(ctx, scope)
	s.metrics.ObserveDBQuery("list_class_results", time.Since(start))
	if err != nil {
		return nil, s.repositoryError("list class results", err)
	}
	if records == nil {
		records = []models.ScoreRecord{}
	}
	return records, nil
}

// validateScope trims the scope and checks it.
func (s *ResultService) validateScope(scope models.ResultScope) (models.ResultScope, error) {
	scope = scope.Trimmed()
	if err := s.validator.Struct(scope); err != nil {
		return scope, appErrors.Clone(appErrors.ErrValidation, "class, a valid term and academic_year (YYYY/YYYY) are required")
	}
	return scope, nil
}

// rejected maps a normalizer failure to its application error.
func (s *ResultService) rejected(err error) error {
	var verr *results.ValidationError
	switch {
	case errors.As(err, &verr):
		s.metrics.RecordRejectedBatch("validation")
		s.logger.Info("score batch rejected", zap.Int("violations", len(verr.Violations)))
		return appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "score validation failed"), verr.Violations)
	case errors.Is(err, results.ErrEmptyBatch):
		s.metrics.RecordRejectedBatch("empty")
		return appErrors.ErrEmptyBatch
	default:
		return appErrors.FromError(err)
	}
}

func (s *ResultService) repositoryError(op string, err error) error {
	s.logger.Warn("result store call failed", zap.String("operation", op), zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrRepository.Code, appErrors.ErrRepository.Status, fmt.Sprintf("%s: %v", op, err))
}

func (s *ResultService) invalidateClasses(ctx context.Context, classNames ...string) {
	seen := make(map[string]struct{}, len(classNames))
	for _, name := range classNames {
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		s.cache.Invalidate(ctx, reportCachePrefix+":"+EscapeGlob(CacheKey(name))+":*")
	}
}

func reportCacheKey(scope models.ResultScope, policy results.RankPolicy) string {
	return reportCachePrefix + ":" + CacheKey(scope.ClassName, string(scope.Term), scope.AcademicYear, string(policy))
}

func nonNilWarnings(warnings []results.Warning) []results.Warning {
	if warnings == nil {
		return []results.Warning{}
	}
	return warnings
}
