package results

import "github.com/noah-isme/sma-results-api/internal/models"

// ComputeStatistics derives class-wide figures. Class average and pass rate
// are taken over the student summaries; subject averages are taken over the
// individual records, so the two use different denominators.
func ComputeStatistics(summaries []models.StudentResultSummary, records []models.ScoreRecord) models.ClassStatistics {
	stats := models.ClassStatistics{
		TotalStudents:     len(summaries),
		GradeDistribution: make(map[models.Grade]int, len(models.Grades())),
		SubjectAverages:   make([]models.SubjectAverage, 0),
	}
	for _, g := range models.Grades() {
		stats.GradeDistribution[g] = 0
	}

	var sum float64
	passed := 0
	for _, s := range summaries {
		sum += s.TotalAverage
		if Passed(s.TotalAverage) {
			passed++
		}
		if _, known := stats.GradeDistribution[s.OverallGrade]; known {
			stats.GradeDistribution[s.OverallGrade]++
		}
	}
	if len(summaries) > 0 {
		stats.ClassAverage = sum / float64(len(summaries))
		stats.PassRate = float64(passed) / float64(len(summaries)) * 100
	}

	stats.SubjectAverages = subjectAverages(records)
	for i := range stats.SubjectAverages {
		if stats.TopSubject == nil || stats.SubjectAverages[i].Average > stats.TopSubject.Average {
			top := stats.SubjectAverages[i]
			stats.TopSubject = &top
		}
	}
	for _, s := range summaries {
		if s.Position == 1 {
			top := s
			stats.TopStudent = &top
			break
		}
	}
	return stats
}

func subjectAverages(records []models.ScoreRecord) []models.SubjectAverage {
	type bucket struct {
		sum   float64
		count int
	}
	order := make([]string, 0)
	buckets := make(map[string]*bucket)
	for _, record := range records {
		name := record.SubjectName
		if name == "" {
			name = record.SubjectCode
		}
		total, ok := effectiveTotal(record)
		if name == "" || !ok {
			continue
		}
		b, seen := buckets[name]
		if !seen {
			b = &bucket{}
			buckets[name] = b
			order = append(order, name)
		}
		b.sum += total
		b.count++
	}

	out := make([]models.SubjectAverage, 0, len(order))
	for _, name := range order {
		b := buckets[name]
		out = append(out, models.SubjectAverage{
			SubjectName: name,
			Average:     mean(b.sum, b.count),
			RecordCount: b.count,
		})
	}
	return out
}
