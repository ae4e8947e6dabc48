package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-results-api/internal/models"
)

const scoreRecordColumns = `id, student_id, subject_id, admission_number, student_name, class_name, subject_code, subject_name,
        term, academic_year, ca_score, exam_score, total_score, grade, remarks, teacher_name, created_at, updated_at`

const insertScoreRecordQuery = `INSERT INTO score_records (id, student_id, subject_id, admission_number, student_name, class_name,
        subject_code, subject_name, term, academic_year, ca_score, exam_score, total_score, grade, remarks, teacher_name, created_at, updated_at)
        VALUES (:id, :student_id, :subject_id, :admission_number, :student_name, :class_name, :subject_code, :subject_name,
        :term, :academic_year, :ca_score, :exam_score, :total_score, :grade, :remarks, :teacher_name, :created_at, :updated_at)`

const updateScoreRecordQuery = `UPDATE score_records SET admission_number = :admission_number, student_name = :student_name,
        class_name = :class_name, subject_code = :subject_code, subject_name = :subject_name, ca_score = :ca_score,
        exam_score = :exam_score, total_score = :total_score, grade = :grade, remarks = :remarks,
        teacher_name = :teacher_name, updated_at = :updated_at
        WHERE id = :id`

// ResultRepository persists score records in postgres.
type ResultRepository struct {
	db *sqlx.DB
}

// NewResultRepository creates a result repository.
func NewResultRepository(db *sqlx.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// ListByScope returns every record of a class in a term and academic year.
// The slice is empty, never nil, when the scope has no records.
func (r *ResultRepository) ListByScope(ctx context.Context, scope models.ResultScope) ([]models.ScoreRecord, error) {
	query := `SELECT ` + scoreRecordColumns + `
        FROM score_records
        WHERE class_name = $1 AND term = $2 AND academic_year = $3
        ORDER BY student_name ASC, student_id ASC, subject_name ASC`
	records := make([]models.ScoreRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, scope.ClassName, scope.Term, scope.AcademicYear); err != nil {
		return nil, fmt.Errorf("list score records: %w", err)
	}
	return records, nil
}

// ListByStudent returns one student's records for a term and academic year.
func (r *ResultRepository) ListByStudent(ctx context.Context, studentID string, term models.Term, academicYear string) ([]models.ScoreRecord, error) {
	query := `SELECT ` + scoreRecordColumns + `
        FROM score_records
        WHERE student_id = $1 AND term = $2 AND academic_year = $3
        ORDER BY subject_name ASC`
	records := make([]models.ScoreRecord, 0)
	if err := r.db.SelectContext(ctx, &records, query, studentID, term, academicYear); err != nil {
		return nil, fmt.Errorf("list student score records: %w", err)
	}
	return records, nil
}

// Upsert inserts the record, or updates the scores of the row already holding
// its (student, subject, term, academic year) key. ID and timestamps are
// refreshed from the stored row. The returned class name is the one the row
// held before an update, or "" on insert.
func (r *ResultRepository) Upsert(ctx context.Context, record *models.ScoreRecord) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `WITH prior AS (
            SELECT class_name FROM score_records
            WHERE student_id = $2 AND subject_id = $3 AND term = $9 AND academic_year = $10
        )
        INSERT INTO score_records (id, student_id, subject_id, admission_number, student_name, class_name,
        subject_code, subject_name, term, academic_year, ca_score, exam_score, total_score, grade, remarks, teacher_name, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
        ON CONFLICT (student_id, subject_id, term, academic_year)
        DO UPDATE SET admission_number = EXCLUDED.admission_number, student_name = EXCLUDED.student_name,
        class_name = EXCLUDED.class_name, subject_code = EXCLUDED.subject_code, subject_name = EXCLUDED.subject_name,
        ca_score = EXCLUDED.ca_score, exam_score = EXCLUDED.exam_score, total_score = EXCLUDED.total_score,
        grade = EXCLUDED.grade, remarks = EXCLUDED.remarks, teacher_name = EXCLUDED.teacher_name, updated_at = EXCLUDED.updated_at
        RETURNING id, created_at, updated_at, COALESCE((SELECT class_name FROM prior), '')`
	row := r.db.QueryRowxContext(ctx, query,
		record.ID, record.StudentID, record.SubjectID, record.AdmissionNumber, record.StudentName, record.ClassName,
		record.SubjectCode, record.SubjectName, record.Term, record.AcademicYear, record.CAScore, record.ExamScore,
		record.TotalScore, record.Grade, record.Remarks, record.TeacherName, record.CreatedAt, record.UpdatedAt)
	var previousClass string
	if err := row.Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt, &previousClass); err != nil {
		return "", fmt.Errorf("upsert score record: %w", err)
	}
	return previousClass, nil
}

type existingRecord struct {
	ID           string      `db:"id"`
	StudentID    string      `db:"student_id"`
	SubjectID    string      `db:"subject_id"`
	Term         models.Term `db:"term"`
	AcademicYear string      `db:"academic_year"`
	ClassName    string      `db:"class_name"`
	CreatedAt    time.Time   `db:"created_at"`
}

// BulkUpsert saves records in one transaction. Keys that already exist are
// updated in place and the rest inserted; any failure rolls back the batch.
func (r *ResultRepository) BulkUpsert(ctx context.Context, records []models.ScoreRecord) (*models.BulkUpsertResult, error) {
	result := &models.BulkUpsertResult{Records: make([]models.ScoreRecord, 0, len(records))}
	if len(records) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin bulk upsert: %w", err)
	}

	existing, err := lockExisting(ctx, tx, records)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, err
	}

	now := time.Now().UTC()
	for _, record := range records {
		record.UpdatedAt = now
		if current, ok := existing[record.Key()]; ok {
			record.ID = current.ID
			record.CreatedAt = current.CreatedAt
			if current.ClassName != "" && current.ClassName != record.ClassName {
				result.MovedFrom = append(result.MovedFrom, current.ClassName)
			}
			if _, err := tx.NamedExecContext(ctx, updateScoreRecordQuery, record); err != nil {
				tx.Rollback() //nolint:errcheck
				return nil, fmt.Errorf("update score record %s: %w", record.ID, err)
			}
			result.Updated++
		} else {
			if record.ID == "" {
				record.ID = uuid.NewString()
			}
			record.CreatedAt = now
			if _, err := tx.NamedExecContext(ctx, insertScoreRecordQuery, record); err != nil {
				tx.Rollback() //nolint:errcheck
				return nil, fmt.Errorf("insert score record: %w", err)
			}
			existing[record.Key()] = existingRecord{ID: record.ID, ClassName: record.ClassName, CreatedAt: record.CreatedAt}
			result.Inserted++
		}
		result.Records = append(result.Records, record)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit bulk upsert: %w", err)
	}
	return result, nil
}

func lockExisting(ctx context.Context, tx *sqlx.Tx, records []models.ScoreRecord) (map[models.ResultKey]existingRecord, error) {
	tuples := make([]string, len(records))
	args := make([]interface{}, 0, len(records)*4)
	for i, record := range records {
		n := len(args)
		tuples[i] = fmt.Sprintf("($%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4)
		args = append(args, record.StudentID, record.SubjectID, record.Term, record.AcademicYear)
	}
	query := fmt.Sprintf(`SELECT id, student_id, subject_id, term, academic_year, class_name, created_at
        FROM score_records
        WHERE (student_id, subject_id, term, academic_year) IN (%s)
        FOR UPDATE`, strings.Join(tuples, ", "))

	var rows []existingRecord
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("lookup existing score records: %w", err)
	}
	out := make(map[models.ResultKey]existingRecord, len(rows))
	for _, row := range rows {
		out[models.ResultKey{StudentID: row.StudentID, SubjectID: row.SubjectID, Term: row.Term, AcademicYear: row.AcademicYear}] = row
	}
	return out, nil
}

// Delete removes a record by id and returns it. It returns sql.ErrNoRows
// (wrapped) when no record has the id.
func (r *ResultRepository) Delete(ctx context.Context, id string) (*models.ScoreRecord, error) {
	query := `DELETE FROM score_records WHERE id = $1 RETURNING ` + scoreRecordColumns
	var record models.ScoreRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, fmt.Errorf("delete score record %s: %w", id, err)
	}
	return &record, nil
}

// DeleteForStudent removes all of a student's records in a term and academic
// year and reports how many rows went.
func (r *ResultRepository) DeleteForStudent(ctx context.Context, studentID string, term models.Term, academicYear string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM score_records WHERE student_id = $1 AND term = $2 AND academic_year = $3`,
		studentID, term, academicYear)
	if err != nil {
		return 0, fmt.Errorf("delete student score records: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete student score records: %w", err)
	}
	return affected, nil
}
