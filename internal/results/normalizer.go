package results

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// Score domains.
const (
	MaxCAScore    = 30.0
	MaxExamScore  = 70.0
	MaxTotalScore = 100.0
)

// ErrEmptyBatch is returned when a save carries no row with an entered score.
var ErrEmptyBatch = errors.New("no entered scores in batch")

var entryValidator = NewValidator()

// RawScore is a score as typed by a teacher. It decodes from a JSON number,
// a string or null; an empty value means "not entered".
type RawScore string

// Score formats a numeric score as a RawScore.
func Score(v float64) RawScore {
	return RawScore(strconv.FormatFloat(v, 'f', -1, 64))
}

// UnmarshalJSON accepts numbers, strings and null.
func (r *RawScore) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*r = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = RawScore(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("score must be a number or string: %w", err)
	}
	*r = RawScore(n.String())
	return nil
}

// Empty reports whether no score was entered.
func (r RawScore) Empty() bool {
	return strings.TrimSpace(string(r)) == ""
}

// Parse returns the numeric value. Empty scores parse as 0.
func (r RawScore) Parse() (float64, error) {
	if r.Empty() {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(r)), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a number", string(r))
	}
	return v, nil
}

// ScoreEntry is one (student, subject) row submitted from the score sheet.
type ScoreEntry struct {
	StudentID       string      `json:"student_id" validate:"required"`
	SubjectID       string      `json:"subject_id" validate:"required"`
	AdmissionNumber string      `json:"admission_number"`
	StudentName     string      `json:"student_name"`
	ClassName       string      `json:"class_name" validate:"required"`
	SubjectCode     string      `json:"subject_code"`
	SubjectName     string      `json:"subject_name"`
	Term            models.Term `json:"term" validate:"required,term"`
	AcademicYear    string      `json:"academic_year" validate:"required,academic_year"`
	CAScore         RawScore    `json:"ca_score"`
	ExamScore       RawScore    `json:"exam_score"`
	TeacherName     string      `json:"teacher_name"`
}

// trimmed returns the entry with surrounding whitespace removed from its
// identifying and descriptive fields.
func (e ScoreEntry) trimmed() ScoreEntry {
	e.StudentID = strings.TrimSpace(e.StudentID)
	e.SubjectID = strings.TrimSpace(e.SubjectID)
	e.AdmissionNumber = strings.TrimSpace(e.AdmissionNumber)
	e.StudentName = strings.TrimSpace(e.StudentName)
	e.ClassName = strings.TrimSpace(e.ClassName)
	e.SubjectCode = strings.TrimSpace(e.SubjectCode)
	e.SubjectName = strings.TrimSpace(e.SubjectName)
	e.Term = models.Term(strings.TrimSpace(string(e.Term)))
	e.AcademicYear = strings.TrimSpace(e.AcademicYear)
	e.TeacherName = strings.TrimSpace(e.TeacherName)
	return e
}

// Violation describes one rejected field of one submitted row.
type Violation struct {
	Row         int    `json:"row"`
	StudentID   string `json:"student_id,omitempty"`
	StudentName string `json:"student_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	Field       string `json:"field"`
	Value       string `json:"value,omitempty"`
	Reason      string `json:"reason"`
}

func (v Violation) String() string {
	label := v.SubjectName
	if label == "" {
		label = v.StudentID
	}
	if v.StudentName != "" {
		label = v.StudentName + ", " + label
	}
	return fmt.Sprintf("row %d (%s): %s %s", v.Row, label, v.Field, v.Reason)
}

// ValidationError rejects a whole batch and lists every violation found in it.
type ValidationError struct {
	Violations []Violation `json:"violations"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return fmt.Sprintf("%d invalid score field(s): %s", len(e.Violations), strings.Join(parts, "; "))
}

// WarningLowScore flags a saved total between 0 and the pass mark.
const WarningLowScore = "low_score"

// Warning is a non-blocking observation about an accepted row.
type Warning struct {
	Row         int     `json:"row"`
	StudentID   string  `json:"student_id"`
	StudentName string  `json:"student_name,omitempty"`
	SubjectName string  `json:"subject_name,omitempty"`
	Kind        string  `json:"kind"`
	Total       float64 `json:"total"`
	Message     string  `json:"message"`
}

// Batch is the accepted output of NormalizeBatch.
type Batch struct {
	Records  []models.ScoreRecord
	Warnings []Warning
	// Skipped counts rows dropped because neither score was entered.
	Skipped int
}

// NormalizeBatch validates a batch of entries and turns the rows that carry at
// least one score into records with derived total, grade and remarks. Text
// fields are trimmed before validation and scores are rounded to 2 decimal
// places, so a stored total is always the sum of its stored parts. Rows are
// numbered from 1 in violations and warnings. Any violation rejects the whole
// batch with a *ValidationError; a batch with nothing entered returns ErrEmptyBatch.
// When the same (student, subject, term, year) appears twice the later row wins.
func NormalizeBatch(entries []ScoreEntry) (*Batch, error) {
	batch := &Batch{}
	var violations []Violation
	positions := make(map[models.ResultKey]int)
	rows := make(map[models.ResultKey]int)

	for i, entry := range entries {
		row := i + 1
		entry = entry.trimmed()
		if entry.CAScore.Empty() && entry.ExamScore.Empty() {
			batch.Skipped++
			continue
		}

		rowViolations := structViolations(row, entry)
		ca, caViolation := checkScore(row, entry, "ca_score", entry.CAScore, MaxCAScore)
		exam, examViolation := checkScore(row, entry, "exam_score", entry.ExamScore, MaxExamScore)
		if caViolation != nil {
			rowViolations = append(rowViolations, *caViolation)
		}
		if examViolation != nil {
			rowViolations = append(rowViolations, *examViolation)
		}

		ca, exam = roundScore(ca), roundScore(exam)
		total := roundScore(ca + exam)
		if caViolation == nil && examViolation == nil && (total < 0 || total > MaxTotalScore) {
			rowViolations = append(rowViolations, newViolation(row, entry, "total_score", Score(total),
				fmt.Sprintf("must be between 0 and %v", MaxTotalScore)))
		}
		if len(rowViolations) > 0 {
			violations = append(violations, rowViolations...)
			continue
		}

		record := buildRecord(entry, ca, exam, total)
		key := record.Key()
		if idx, seen := positions[key]; seen {
			batch.Records[idx] = record
		} else {
			positions[key] = len(batch.Records)
			batch.Records = append(batch.Records, record)
		}
		rows[key] = row
	}

	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}
	if len(batch.Records) == 0 {
		return nil, ErrEmptyBatch
	}
	for _, record := range batch.Records {
		total := *record.TotalScore
		if total > 0 && !Passed(total) {
			batch.Warnings = append(batch.Warnings, Warning{
				Row:         rows[record.Key()],
				StudentID:   record.StudentID,
				StudentName: record.StudentName,
				SubjectName: record.SubjectName,
				Kind:        WarningLowScore,
				Total:       total,
				Message:     fmt.Sprintf("total %v is below the pass mark of %v", total, PassMark),
			})
		}
	}
	return batch, nil
}

// NormalizeEntry validates a single entry. See NormalizeBatch.
func NormalizeEntry(entry ScoreEntry) (models.ScoreRecord, []Warning, error) {
	batch, err := NormalizeBatch([]ScoreEntry{entry})
	if err != nil {
		return models.ScoreRecord{}, nil, err
	}
	return batch.Records[0], batch.Warnings, nil
}

func checkScore(row int, entry ScoreEntry, field string, raw RawScore, limit float64) (float64, *Violation) {
	v, err := raw.Parse()
	if err != nil {
		violation := newViolation(row, entry, field, raw, "is not a number")
		return 0, &violation
	}
	if v < 0 {
		violation := newViolation(row, entry, field, raw, "is below the minimum of 0")
		return 0, &violation
	}
	if v > limit {
		violation := newViolation(row, entry, field, raw, fmt.Sprintf("exceeds the maximum of %v", limit))
		return 0, &violation
	}
	return v, nil
}

func structViolations(row int, entry ScoreEntry) []Violation {
	err := entryValidator.Struct(entry)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []Violation{newViolation(row, entry, "entry", "", err.Error())}
	}
	out := make([]Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reason := "is required"
		if fe.Tag() != "required" {
			reason = fmt.Sprintf("is not a valid %s", strings.ReplaceAll(fe.Tag(), "_", " "))
		}
		out = append(out, newViolation(row, entry, fe.Field(), RawScore(fmt.Sprint(fe.Value())), reason))
	}
	return out
}

func newViolation(row int, entry ScoreEntry, field string, value RawScore, reason string) Violation {
	return Violation{
		Row:         row,
		StudentID:   entry.StudentID,
		StudentName: entry.StudentName,
		SubjectName: entry.SubjectName,
		Field:       field,
		Value:       string(value),
		Reason:      reason,
	}
}

func buildRecord(entry ScoreEntry, ca, exam, total float64) models.ScoreRecord {
	grade, remark := Classify(total)
	record := models.ScoreRecord{
		StudentID:       entry.StudentID,
		SubjectID:       entry.SubjectID,
		AdmissionNumber: entry.AdmissionNumber,
		StudentName:     entry.StudentName,
		ClassName:       entry.ClassName,
		SubjectCode:     entry.SubjectCode,
		SubjectName:     entry.SubjectName,
		Term:            entry.Term,
		AcademicYear:    entry.AcademicYear,
		TotalScore:      floatPtr(total),
		Grade:           grade,
		Remarks:         remark,
		TeacherName:     entry.TeacherName,
	}
	if !entry.CAScore.Empty() {
		record.CAScore = floatPtr(ca)
	}
	if !entry.ExamScore.Empty() {
		record.ExamScore = floatPtr(exam)
	}
	return record
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}

func floatPtr(v float64) *float64 {
	return &v
}
