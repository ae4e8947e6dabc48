package results

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func TestGradeForBoundaries(t *testing.T) {
	cases := []struct {
		total float64
		grade models.Grade
	}{
		{-5, models.GradeF},
		{0, models.GradeF},
		{39, models.GradeF},
		{39.99, models.GradeF},
		{40, models.GradeE},
		{49, models.GradeE},
		{50, models.GradeD},
		{59, models.GradeD},
		{60, models.GradeC},
		{69, models.GradeC},
		{70, models.GradeB},
		{79, models.GradeB},
		{80, models.GradeA},
		{100, models.GradeA},
		{130, models.GradeA},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.grade, GradeFor(tc.total), "total %v", tc.total)
	}
}

func TestGradeMatchesEveryValidScorePair(t *testing.T) {
	for ca := 0; ca <= 30; ca++ {
		for exam := 0; exam <= 70; exam++ {
			total := float64(ca + exam)
			var want models.Grade
			switch {
			case total >= 80:
				want = models.GradeA
			case total >= 70:
				want = models.GradeB
			case total >= 60:
				want = models.GradeC
			case total >= 50:
				want = models.GradeD
			case total >= 40:
				want = models.GradeE
			default:
				want = models.GradeF
			}
			if got := GradeFor(total); got != want {
				t.Fatalf("ca=%d exam=%d: got %s want %s", ca, exam, got, want)
			}
		}
	}
}

func TestRemarkTable(t *testing.T) {
	assert.Equal(t, "Excellent", RemarkFor(models.GradeA))
	assert.Equal(t, "Very Good", RemarkFor(models.GradeB))
	assert.Equal(t, "Good", RemarkFor(models.GradeC))
	assert.Equal(t, "Pass", RemarkFor(models.GradeD))
	assert.Equal(t, "Poor", RemarkFor(models.GradeE))
	assert.Equal(t, "Fail", RemarkFor(models.GradeF))
	assert.Equal(t, "", RemarkFor(""))

	grade, remark := Classify(58.33)
	assert.Equal(t, models.GradeD, grade)
	assert.Equal(t, "Pass", remark)
}

func TestBandsReturnsCopy(t *testing.T) {
	table := Bands()
	table[0].Remark = "changed"
	assert.Equal(t, "Excellent", RemarkFor(models.GradeA))
	assert.Len(t, table, len(models.Grades()))
}

func TestPassed(t *testing.T) {
	assert.True(t, Passed(40))
	assert.False(t, Passed(39.999))
}
