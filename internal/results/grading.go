// Package results turns raw subject score rows into graded, ranked and
// aggregated class results. Every function in the package is pure: it reads
// its arguments, returns fresh values and keeps no state between calls.
package results

import "github.com/noah-isme/sma-results-api/internal/models"

// PassMark is the lowest total (or total average) that counts as a pass.
const PassMark = 40.0

// Band maps the lower bound of a total score range to its grade and remark.
type Band struct {
	Min    float64      `json:"min"`
	Grade  models.Grade `json:"grade"`
	Remark string       `json:"remark"`
}

// bands is ordered from the highest lower bound to the lowest.
var bands = []Band{
	{Min: 80, Grade: models.GradeA, Remark: "Excellent"},
	{Min: 70, Grade: models.GradeB, Remark: "Very Good"},
	{Min: 60, Grade: models.GradeC, Remark: "Good"},
	{Min: 50, Grade: models.GradeD, Remark: "Pass"},
	{Min: 40, Grade: models.GradeE, Remark: "Poor"},
	{Min: 0, Grade: models.GradeF, Remark: "Fail"},
}

// Bands returns a copy of the grade table, best band first.
func Bands() []Band {
	out := make([]Band, len(bands))
	copy(out, bands)
	return out
}

// GradeFor maps a total score to its grade letter. Totals below zero land in F
// and totals above 100 land in A.
func GradeFor(total float64) models.Grade {
	for _, band := range bands {
		if total >= band.Min {
			return band.Grade
		}
	}
	return models.GradeF
}

// RemarkFor returns the canonical remark for a grade, or "" for an unknown grade.
func RemarkFor(grade models.Grade) string {
	for _, band := range bands {
		if band.Grade == grade {
			return band.Remark
		}
	}
	return ""
}

// Classify returns both the grade and the remark for a total score.
func Classify(total float64) (models.Grade, string) {
	grade := GradeFor(total)
	return grade, RemarkFor(grade)
}

// Passed reports whether a total or average reaches the pass mark.
func Passed(score float64) bool {
	return score >= PassMark
}
