package results

import (
	"fmt"
	"math"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// ComputationError reports a stored score that should never have passed
// validation. It signals corrupted data rather than bad input.
type ComputationError struct {
	RecordID    string
	StudentID   string
	SubjectName string
	Field       string
	Value       float64
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("unusable %s %v for student %s subject %q (record %s)",
		e.Field, e.Value, e.StudentID, e.SubjectName, e.RecordID)
}

type studentAccumulator struct {
	summary    models.StudentResultSummary
	caSum      float64
	caCount    int
	examSum    float64
	examCount  int
	totalSum   float64
	totalCount int
}

// Aggregate groups records by student and computes one summary per distinct
// StudentID, in the order students first appear. Absent scores are left out of
// their average instead of counting as zero. Positions are left at zero.
func Aggregate(records []models.ScoreRecord) ([]models.StudentResultSummary, error) {
	order := make([]string, 0)
	groups := make(map[string]*studentAccumulator)

	for _, record := range records {
		if err := checkRecord(record); err != nil {
			return nil, err
		}

		acc, ok := groups[record.StudentID]
		if !ok {
			acc = &studentAccumulator{summary: models.StudentResultSummary{
				StudentID:       record.StudentID,
				AdmissionNumber: record.AdmissionNumber,
				StudentName:     record.StudentName,
			}}
			groups[record.StudentID] = acc
			order = append(order, record.StudentID)
		}

		acc.summary.SubjectCount++
		if record.CAScore != nil {
			acc.caSum += *record.CAScore
			acc.caCount++
		}
		if record.ExamScore != nil {
			acc.examSum += *record.ExamScore
			acc.examCount++
		}
		if record.TotalScore != nil {
			acc.totalSum += *record.TotalScore
			acc.totalCount++
		}
		if total, ok := effectiveTotal(record); ok {
			acc.summary.TotalScoreSum += total
		}
	}

	summaries := make([]models.StudentResultSummary, 0, len(order))
	for _, id := range order {
		acc := groups[id]
		s := acc.summary
		s.CAAverage = mean(acc.caSum, acc.caCount)
		s.ExamAverage = mean(acc.examSum, acc.examCount)
		if acc.totalCount > 0 {
			s.TotalAverage = mean(acc.totalSum, acc.totalCount)
		} else {
			s.TotalAverage = mean(s.TotalScoreSum, s.SubjectCount)
		}
		if s.TotalAverage != 0 {
			s.OverallGrade, s.OverallRemark = Classify(s.TotalAverage)
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func checkRecord(record models.ScoreRecord) error {
	fields := []struct {
		name  string
		value *float64
		limit float64
	}{
		{"ca_score", record.CAScore, MaxCAScore},
		{"exam_score", record.ExamScore, MaxExamScore},
		{"total_score", record.TotalScore, MaxTotalScore},
	}
	for _, f := range fields {
		if f.value == nil {
			continue
		}
		v := *f.value
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > f.limit {
			return &ComputationError{
				RecordID:    record.ID,
				StudentID:   record.StudentID,
				SubjectName: record.SubjectName,
				Field:       f.name,
				Value:       v,
			}
		}
	}
	return nil
}

// effectiveTotal is the stored total, or the sum of whichever component
// scores are present when the total itself is missing.
func effectiveTotal(record models.ScoreRecord) (float64, bool) {
	if record.TotalScore != nil {
		return *record.TotalScore, true
	}
	if record.CAScore == nil && record.ExamScore == nil {
		return 0, false
	}
	var total float64
	if record.CAScore != nil {
		total += *record.CAScore
	}
	if record.ExamScore != nil {
		total += *record.ExamScore
	}
	return total, true
}

func mean(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}
