package dto

import (
	"strings"

	"github.com/noah-isme/sma-results-api/internal/models"
	"github.com/noah-isme/sma-results-api/internal/results"
)

// BulkScoreRequest captures POST /results/bulk. Scope fields fill any entry
// that leaves them blank, so a score sheet can be submitted without repeating them.
type BulkScoreRequest struct {
	ClassName    string               `json:"class_name"`
	Term         models.Term          `json:"term"`
	AcademicYear string               `json:"academic_year"`
	TeacherName  string               `json:"teacher_name"`
	Entries      []results.ScoreEntry `json:"entries"`
}

// ScoreEntries returns the entries with request level scope applied.
func (r BulkScoreRequest) ScoreEntries() []results.ScoreEntry {
	out := make([]results.ScoreEntry, len(r.Entries))
	for i, entry := range r.Entries {
		if strings.TrimSpace(entry.ClassName) == "" {
			entry.ClassName = r.ClassName
		}
		if strings.TrimSpace(string(entry.Term)) == "" {
			entry.Term = r.Term
		}
		if strings.TrimSpace(entry.AcademicYear) == "" {
			entry.AcademicYear = r.AcademicYear
		}
		if strings.TrimSpace(entry.TeacherName) == "" {
			entry.TeacherName = r.TeacherName
		}
		out[i] = entry
	}
	return out
}

// ReportQuery captures the scope and ranking options of report endpoints.
type ReportQuery struct {
	models.ResultScope
	RankPolicy string `form:"rank_policy"`
	Format     string `form:"format"`
}

// StudentScopeQuery selects a student's records in one term.
type StudentScopeQuery struct {
	Term         models.Term `form:"term"`
	AcademicYear string      `form:"academic_year"`
}

// DeleteStudentResultsResponse reports how many records were removed.
type DeleteStudentResultsResponse struct {
	StudentID    string      `json:"student_id"`
	Term         models.Term `json:"term"`
	AcademicYear string      `json:"academic_year"`
	Deleted      int64       `json:"deleted"`
}
