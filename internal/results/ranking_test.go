package results

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-results-api/internal/models"
)

func summaries(averages ...float64) []models.StudentResultSummary {
	out := make([]models.StudentResultSummary, len(averages))
	for i, avg := range averages {
		out[i] = models.StudentResultSummary{StudentID: string(rune('A' + i)), TotalAverage: avg}
	}
	return out
}

func positions(ranked []models.StudentResultSummary) []int {
	out := make([]int, len(ranked))
	for i, s := range ranked {
		out[i] = s.Position
	}
	return out
}

func ids(ranked []models.StudentResultSummary) string {
	out := ""
	for _, s := range ranked {
		out += s.StudentID
	}
	return out
}

func TestRankDistinctAveragesIsPermutation(t *testing.T) {
	input := summaries(55, 91.5, 40, 72, 12)
	ranked := Rank(input, RankSequential)

	require.Len(t, ranked, len(input))
	assert.Equal(t, "B", ranked[0].StudentID)
	assert.Equal(t, 1, ranked[0].Position)

	got := positions(ranked)
	sort.Ints(got)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, got)

	for _, policy := range RankPolicies() {
		assert.Equal(t, []int{1, 2, 3, 4, 5}, positions(Rank(input, policy)), string(policy))
	}
}

func TestRankTiePolicies(t *testing.T) {
	input := summaries(90, 75, 75, 60)

	sequential := Rank(input, RankSequential)
	assert.Equal(t, []int{1, 2, 3, 4}, positions(sequential))
	assert.Equal(t, "ABCD", ids(sequential))

	assert.Equal(t, []int{1, 2, 2, 4}, positions(Rank(input, RankCompetition)))
	assert.Equal(t, []int{1, 2, 2, 3}, positions(Rank(input, RankDense)))
}

func TestRankKeepsInputUntouched(t *testing.T) {
	input := summaries(10, 20)
	_ = Rank(input, RankSequential)
	assert.Equal(t, "A", input[0].StudentID)
	assert.Zero(t, input[0].Position)
}

func TestRankEmpty(t *testing.T) {
	assert.Empty(t, Rank(nil, RankDense))
}

func TestParseRankPolicy(t *testing.T) {
	p, err := ParseRankPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RankSequential, p)

	p, err = ParseRankPolicy(" Competition ")
	require.NoError(t, err)
	assert.Equal(t, RankCompetition, p)

	_, err = ParseRankPolicy("olympic")
	assert.ErrorIs(t, err, ErrInvalidRankPolicy)
}
