package service

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-results-api/internal/models"
	appErrors "github.com/noah-isme/sma-results-api/pkg/errors"
	"github.com/noah-isme/sma-results-api/pkg/export"
	"github.com/noah-isme/sma-results-api/pkg/storage"
)

// ExportFormat names a rendering of a class report.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportPDF  ExportFormat = "pdf"
	ExportHTML ExportFormat = "html"
)

// ParseExportFormat resolves a format name; an empty name means CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ExportCSV:
		return ExportCSV, nil
	case ExportPDF:
		return ExportPDF, nil
	case ExportHTML:
		return ExportHTML, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", raw))
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Open(name string) (*os.File, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix  string
	SchoolName string
	ArchiveTTL time.Duration
}

// ExportFile is a rendered report ready to send.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// PublishedExport points at an archived report.
type PublishedExport struct {
	ID        string       `json:"id"`
	Format    ExportFormat `json:"format"`
	Filename  string       `json:"filename"`
	URL       string       `json:"url"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// ExportService renders class reports. It only formats what the results
// pipeline produced and never recomputes grades or positions.
type ExportService struct {
	renderers map[ExportFormat]renderer
	storage   fileStorage
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       ExportConfig
}

// NewExportService constructs an ExportService. storage and signer may be nil
// when publishing is not configured.
func NewExportService(store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ArchiveTTL <= 0 {
		cfg.ArchiveTTL = 24 * time.Hour
	}
	return &ExportService{
		renderers: map[ExportFormat]renderer{
			ExportCSV:  export.NewCSVExporter(),
			ExportPDF:  export.NewPDFExporter(),
			ExportHTML: export.NewHTMLExporter(),
		},
		storage: store,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Render produces the broadsheet of a class report in the given format.
func (s *ExportService) Render(report *models.ClassReport, format ExportFormat) (*ExportFile, error) {
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	content, err := r.Render(s.BuildDataset(report))
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}
	return &ExportFile{
		Filename:    exportFilename(report.Scope, format),
		ContentType: r.ContentType(),
		Content:     content,
	}, nil
}

// Publish renders a report, stores it and returns a signed download link.
func (s *ExportService) Publish(report *models.ClassReport, format ExportFormat) (*PublishedExport, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "report publishing is not configured")
	}
	file, err := s.Render(report, format)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	relPath, err := s.storage.Save(id+"/"+file.Filename, file.Content)
	if err != nil {
		return nil, fmt.Errorf("store export: %w", err)
	}
	token, expiresAt, err := s.signer.Generate(id, relPath, file.ContentType)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, fmt.Errorf("sign export: %w", err)
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Info("report published",
		zap.String("export_id", id),
		zap.String("class", report.Scope.ClassName),
		zap.String("format", string(format)))
	return &PublishedExport{
		ID:        id,
		Format:    format,
		Filename:  file.Filename,
		URL:       fmt.Sprintf("%s/results/exports/%s", prefix, token),
		ExpiresAt: expiresAt,
	}, nil
}

// OpenPublished verifies a download token and opens the stored file.
func (s *ExportService) OpenPublished(token string) (*os.File, *storage.DownloadClaims, error) {
	if s.storage == nil || s.signer == nil {
		return nil, nil, appErrors.ErrNotFound
	}
	claims, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "download link is invalid or expired")
	}
	file, err := s.storage.Open(claims.Path)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export no longer available")
	}
	return file, claims, nil
}

// Cleanup removes archived exports older than the archive TTL.
func (s *ExportService) Cleanup() ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	removed, err := s.storage.CleanupOlderThan(s.cfg.ArchiveTTL)
	if err != nil {
		return nil, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

// Broadsheet column headers.
const (
	colPosition  = "Position"
	colAdmission = "Admission No"
	colStudent   = "Student"
	colSubjects  = "Subjects"
	colCA        = "CA Avg"
	colExam      = "Exam Avg"
	colTotal     = "Total"
	colAverage   = "Average"
	colGrade     = "Grade"
	colRemark    = "Remark"
)

// BuildDataset lays a class report out as a broadsheet with class statistics
// as notes.
func (s *ExportService) BuildDataset(report *models.ClassReport) export.Dataset {
	rows := make([]map[string]string, 0, len(report.Summaries))
	for _, summary := range report.Summaries {
		rows = append(rows, map[string]string{
			colPosition:  ordinal(summary.Position),
			colAdmission: summary.AdmissionNumber,
			colStudent:   summary.StudentName,
			colSubjects:  strconv.Itoa(summary.SubjectCount),
			colCA:        formatScore(summary.CAAverage),
			colExam:      formatScore(summary.ExamAverage),
			colTotal:     formatScore(summary.TotalScoreSum),
			colAverage:   formatScore(summary.TotalAverage),
			colGrade:     string(summary.OverallGrade),
			colRemark:    summary.OverallRemark,
		})
	}

	title := "Class Broadsheet"
	if s.cfg.SchoolName != "" {
		title = s.cfg.SchoolName + " - " + title
	}
	return export.Dataset{
		Title:    title,
		Subtitle: fmt.Sprintf("%s, %s %s (%s ranking)", report.Scope.ClassName, report.Scope.Term, report.Scope.AcademicYear, report.RankPolicy),
		Headers:  []string{colPosition, colAdmission, colStudent, colSubjects, colCA, colExam, colTotal, colAverage, colGrade, colRemark},
		Rows:     rows,
		Notes:    statisticsNotes(report.Statistics),
	}
}

func statisticsNotes(stats models.ClassStatistics) []string {
	notes := []string{
		fmt.Sprintf("Students: %d", stats.TotalStudents),
		fmt.Sprintf("Class average: %s", formatScore(stats.ClassAverage)),
		fmt.Sprintf("Pass rate: %s%%", formatScore(stats.PassRate)),
	}

	grades := make([]string, 0, len(stats.GradeDistribution))
	for _, g := range models.Grades() {
		grades = append(grades, fmt.Sprintf("%s=%d", g, stats.GradeDistribution[g]))
	}
	notes = append(notes, "Grade distribution: "+strings.Join(grades, " "))

	if len(stats.SubjectAverages) > 0 {
		subjects := make([]models.SubjectAverage, len(stats.SubjectAverages))
		copy(subjects, stats.SubjectAverages)
		sort.SliceStable(subjects, func(i, j int) bool { return subjects[i].Average > subjects[j].Average })
		parts := make([]string, 0, len(subjects))
		for _, sub := range subjects {
			parts = append(parts, fmt.Sprintf("%s %s", sub.SubjectName, formatScore(sub.Average)))
		}
		notes = append(notes, "Subject averages: "+strings.Join(parts, ", "))
	}
	if stats.TopStudent != nil {
		notes = append(notes, fmt.Sprintf("Top student: %s (%s)", stats.TopStudent.StudentName, formatScore(stats.TopStudent.TotalAverage)))
	}
	if stats.TopSubject != nil {
		notes = append(notes, fmt.Sprintf("Top subject: %s (%s)", stats.TopSubject.SubjectName, formatScore(stats.TopSubject.Average)))
	}
	return notes
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func ordinal(n int) string {
	if n <= 0 {
		return ""
	}
	suffix := "th"
	switch n % 100 {
	case 11, 12, 13:
	default:
		switch n % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return strconv.Itoa(n) + suffix
}

var filenameReplacer = strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")

const maxFilenameRunes = 100

func exportFilename(scope models.ResultScope, format ExportFormat) string {
	name := strings.ToLower(fmt.Sprintf("broadsheet_%s_%s_%s", scope.ClassName, scope.Term, scope.AcademicYear))
	name = filenameReplacer.Replace(name)
	if runes := []rune(name); len(runes) > maxFilenameRunes {
		name = string(runes[:maxFilenameRunes])
	}
	return name + "." + string(format)
}
