package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

var resultColumns = []string{"id", "student_id", "subject_id", "admission_number", "student_name", "class_name", "subject_code",
	"subject_name", "term", "academic_year", "ca_score", "exam_score", "total_score", "grade", "remarks", "teacher_name",
	"created_at", "updated_at"}

func newResultRepoMock(t *testing.T) (*ResultRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewResultRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func sampleScoreRecord(studentID, subjectID string) models.ScoreRecord {
	ca, exam, total := 25.0, 60.0, 85.0
	return models.ScoreRecord{
		StudentID:    studentID,
		SubjectID:    subjectID,
		StudentName:  "Ada Obi",
		ClassName:    "JSS1A",
		SubjectName:  "Mathematics",
		Term:         models.TermFirst,
		AcademicYear: "2024/2025",
		CAScore:      &ca,
		ExamScore:    &exam,
		TotalScore:   &total,
		Grade:        models.GradeA,
		Remarks:      "Excellent",
	}
}

func TestResultRepositoryListByScope(t *testing.T) {
	repo, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows(resultColumns).
		AddRow("r-1", "stu-1", "sub-1", "ADM1", "Ada Obi", "JSS1A", "MTH", "Mathematics", "1st Term", "2024/2025",
			"25.00", "60.00", "85.00", "A", "Excellent", "Mr. Bello", now, now).
		AddRow("r-2", "stu-1", "sub-2", "ADM1", "Ada Obi", "JSS1A", "ENG", "English", "1st Term", "2024/2025",
			nil, "40.00", "40.00", "E", "Poor", "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM score_records")).
		WithArgs("JSS1A", models.TermFirst, "2024/2025").
		WillReturnRows(rows)

	records, err := repo.ListByScope(context.Background(), models.ResultScope{ClassName: "JSS1A", Term: models.TermFirst, AcademicYear: "2024/2025"})
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[0].CAScore)
	assert.Equal(t, 25.0, *records[0].CAScore)
	assert.Nil(t, records[1].CAScore)
	assert.Equal(t, models.GradeE, records[1].Grade)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryListByScopeEmpty(t *testing.T) {
	repo, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM score_records")).
		WillReturnRows(sqlmock.NewRows(resultColumns))

	records, err := repo.ListByScope(context.Background(), models.ResultScope{ClassName: "JSS2B", Term: models.TermThird, AcademicYear: "2024/2025"})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestResultRepositoryUpsert(t *testing.T) {
	repo, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	created := time.Date(2024, 9, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (student_id, subject_id, term, academic_year)")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "coalesce"}).
			AddRow("existing-id", created, time.Now(), "JSS1B"))

	record := sampleScoreRecord("stu-1", "sub-1")
	previousClass, err := repo.Upsert(context.Background(), &record)
	require.NoError(t, err)
	assert.Equal(t, "existing-id", record.ID)
	assert.Equal(t, created, record.CreatedAt)
	assert.Equal(t, "JSS1B", previousClass)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryUpsertInsertHasNoPreviousClass(t *testing.T) {
	repo, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("WITH prior AS")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at", "coalesce"}).AddRow("new-id", now, now, ""))

	record := sampleScoreRecord("stu-1", "sub-1")
	previousClass, err := repo.Upsert(context.Background(), &record)
	require.NoError(t, err)
	assert.Empty(t, previousClass)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryBulkUpsertPartitions(t *testing.T) {
	repo, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	created := time.Date(2024, 9, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE (student_id, subject_id, term, academic_year) IN")).
		WithArgs("stu-1", "sub-1", models.TermFirst, "2024/2025", "stu-2", "sub-1", models.TermFirst, "2024/2025").
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "subject_id", "term", "academic_year", "class_name", "created_at"}).
			AddRow("r-1", "stu-1", "sub-1", "1st Term", "2024/2025", "JSS1B", created))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE score_records SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO score_records")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	saved, err := repo.BulkUpsert(context.Background(), []models.ScoreRecord{
		sampleScoreRecord("stu-1", "sub-1"),
		sampleScoreRecord("stu-2", "sub-1"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, saved.Updated)
	assert.Equal(t, 1, saved.Inserted)
	require.Len(t, saved.Records, 2)
	assert.Equal(t, "r-1", saved.Records[0].ID)
	assert.Equal(t, created, saved.Records[0].CreatedAt)
	assert.NotEmpty(t, saved.Records[1].ID)
	assert.Equal(t, []string{"JSS1B"}, saved.MovedFrom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryBulkUpsertRollsBack(t *testing.T) {
	repo, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "student_id", "subject_id", "term", "academic_year", "class_name", "created_at"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO score_records")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO score_records")).WillReturnError(errors.New("constraint violated"))
	mock.ExpectRollback()

	_, err := repo.BulkUpsert(context.Background(), []models.ScoreRecord{
		sampleScoreRecord("stu-1", "sub-1"),
		sampleScoreRecord("stu-2", "sub-1"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violated")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryBulkUpsertEmpty(t *testing.T) {
	repo, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	saved, err := repo.BulkUpsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, saved.Records)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryDelete(t *testing.T) {
	repo, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM score_records WHERE id = $1 RETURNING")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(resultColumns).AddRow("r-1", "stu-1", "sub-1", "ADM1", "Ada Obi", "JSS1A", "MTH",
			"Mathematics", "1st Term", "2024/2025", "25", "60", "85", "A", "Excellent", "", now, now))
	record, err := repo.Delete(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "stu-1", record.StudentID)

	mock.ExpectQuery(regexp.QuoteMeta("DELETE FROM score_records WHERE id = $1 RETURNING")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(resultColumns))
	_, err = repo.Delete(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepositoryDeleteForStudent(t *testing.T) {
	repo, mock, cleanup := newResultRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM score_records WHERE student_id = $1")).
		WithArgs("stu-1", models.TermSecond, "2024/2025").
		WillReturnResult(sqlmock.NewResult(0, 4))

	removed, err := repo.DeleteForStudent(context.Background(), "stu-1", models.TermSecond, "2024/2025")
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)
	require.NoError(t, mock.ExpectationsWereMet())
}
