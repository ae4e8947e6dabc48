package models

import (
	"strings"
	"time"
)

// Term names one of the three academic periods in a session.
type Term string

const (
	TermFirst  Term = "1st Term"
	TermSecond Term = "2nd Term"
	TermThird  Term = "3rd Term"
)

// Terms lists the valid terms in calendar order.
func Terms() []Term {
	return []Term{TermFirst, TermSecond, TermThird}
}

// Valid reports whether t is one of the three known terms.
func (t Term) Valid() bool {
	switch t {
	case TermFirst, TermSecond, TermThird:
		return true
	}
	return false
}

// Grade is a letter band derived from a total score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
	GradeF Grade = "F"
)

// Grades lists every grade letter from best to worst.
func Grades() []Grade {
	return []Grade{GradeA, GradeB, GradeC, GradeD, GradeE, GradeF}
}

// ScoreRecord is one subject result for one student within a term and academic year.
// Score fields are nil when the teacher has not entered them yet.
type ScoreRecord struct {
	ID              string    `db:"id" json:"id"`
	StudentID       string    `db:"student_id" json:"student_id"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	AdmissionNumber string    `db:"admission_number" json:"admission_number"`
	StudentName     string    `db:"student_name" json:"student_name"`
	ClassName       string    `db:"class_name" json:"class_name"`
	SubjectCode     string    `db:"subject_code" json:"subject_code"`
	SubjectName     string    `db:"subject_name" json:"subject_name"`
	Term            Term      `db:"term" json:"term"`
	AcademicYear    string    `db:"academic_year" json:"academic_year"`
	CAScore         *float64  `db:"ca_score" json:"ca_score"`
	ExamScore       *float64  `db:"exam_score" json:"exam_score"`
	TotalScore      *float64  `db:"total_score" json:"total_score"`
	Grade           Grade     `db:"grade" json:"grade"`
	Remarks         string    `db:"remarks" json:"remarks"`
	TeacherName     string    `db:"teacher_name" json:"teacher_name"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Key returns the natural upsert key of the record.
func (r ScoreRecord) Key() ResultKey {
	return ResultKey{StudentID: r.StudentID, SubjectID: r.SubjectID, Term: r.Term, AcademicYear: r.AcademicYear}
}

// ResultKey identifies at most one ScoreRecord.
type ResultKey struct {
	StudentID    string
	SubjectID    string
	Term         Term
	AcademicYear string
}

// ResultScope selects the records of one class in one term of one academic year.
type ResultScope struct {
	ClassName    string `form:"class" json:"class_name" validate:"required"`
	Term         Term   `form:"term" json:"term" validate:"required,term"`
	AcademicYear string `form:"academic_year" json:"academic_year" validate:"required,academic_year"`
}

// Trimmed returns the scope with surrounding whitespace removed, matching how
// records are stored.
func (s ResultScope) Trimmed() ResultScope {
	return ResultScope{
		ClassName:    strings.TrimSpace(s.ClassName),
		Term:         Term(strings.TrimSpace(string(s.Term))),
		AcademicYear: strings.TrimSpace(s.AcademicYear),
	}
}

// BulkUpsertResult reports how a batch write was split between inserts and updates.
type BulkUpsertResult struct {
	Records  []ScoreRecord `json:"records"`
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	// MovedFrom lists the classes updated records were stored under before
	// the write, when that differs from their new class.
	MovedFrom []string `json:"-"`
}

// StudentResultSummary is the per-student rollup of a scope. It is recomputed on every load.
type StudentResultSummary struct {
	StudentID       string  `json:"student_id"`
	AdmissionNumber string  `json:"admission_number"`
	StudentName     string  `json:"student_name"`
	SubjectCount    int     `json:"subject_count"`
	CAAverage       float64 `json:"ca_average"`
	ExamAverage     float64 `json:"exam_average"`
	TotalAverage    float64 `json:"total_average"`
	TotalScoreSum   float64 `json:"total_score_sum"`
	OverallGrade    Grade   `json:"overall_grade"`
	OverallRemark   string  `json:"overall_remark"`
	Position        int     `json:"position"`
}

// SubjectAverage is the record-level mean total for one subject.
type SubjectAverage struct {
	SubjectName string  `json:"subject_name"`
	Average     float64 `json:"average"`
	RecordCount int     `json:"record_count"`
}

// ClassStatistics summarises a whole class scope.
type ClassStatistics struct {
	TotalStudents     int                   `json:"total_students"`
	ClassAverage      float64               `json:"class_average"`
	PassRate          float64               `json:"pass_rate"`
	GradeDistribution map[Grade]int         `json:"grade_distribution"`
	SubjectAverages   []SubjectAverage      `json:"subject_averages"`
	TopStudent        *StudentResultSummary `json:"top_student,omitempty"`
	TopSubject        *SubjectAverage       `json:"top_subject,omitempty"`
}

// SubjectWiseAverage returns the subject averages keyed by subject name.
func (s ClassStatistics) SubjectWiseAverage() map[string]float64 {
	out := make(map[string]float64, len(s.SubjectAverages))
	for _, avg := range s.SubjectAverages {
		out[avg.SubjectName] = avg.Average
	}
	return out
}

// ClassReport bundles everything report consumers render for a scope.
type ClassReport struct {
	Scope      ResultScope            `json:"scope"`
	RankPolicy string                 `json:"rank_policy"`
	Summaries  []StudentResultSummary `json:"summaries"`
	Statistics ClassStatistics        `json:"statistics"`
	Records    []ScoreRecord          `json:"records"`
}

// StudentReport is a single student's report card within a class scope.
type StudentReport struct {
	Scope      ResultScope          `json:"scope"`
	Summary    StudentResultSummary `json:"summary"`
	Records    []ScoreRecord        `json:"records"`
	ClassSize  int                  `json:"class_size"`
	RankPolicy string               `json:"rank_policy"`
}
