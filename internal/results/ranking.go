package results

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/sma-results-api/internal/models"
)

// RankPolicy decides how tied total averages share positions.
type RankPolicy string

const (
	// RankSequential numbers every student 1..N; ties keep their input order.
	RankSequential RankPolicy = "sequential"
	// RankCompetition gives ties the same position and skips the next ones (1,2,2,4).
	RankCompetition RankPolicy = "competition"
	// RankDense gives ties the same position without gaps (1,2,2,3).
	RankDense RankPolicy = "dense"

	DefaultRankPolicy = RankSequential
)

// ErrInvalidRankPolicy is returned by ParseRankPolicy for unknown names.
var ErrInvalidRankPolicy = errors.New("invalid rank policy")

// tieTolerance absorbs float noise when comparing averages.
const tieTolerance = 1e-9

// RankPolicies lists the supported policies.
func RankPolicies() []RankPolicy {
	return []RankPolicy{RankSequential, RankCompetition, RankDense}
}

// ParseRankPolicy resolves a policy name; an empty name yields the default.
func ParseRankPolicy(raw string) (RankPolicy, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" {
		return DefaultRankPolicy, nil
	}
	for _, p := range RankPolicies() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrInvalidRankPolicy, raw)
}

// Rank returns a copy of summaries sorted by total average, best first, with
// positions assigned under policy. The input slice is left untouched.
func Rank(summaries []models.StudentResultSummary, policy RankPolicy) []models.StudentResultSummary {
	ranked := make([]models.StudentResultSummary, len(summaries))
	copy(ranked, summaries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalAverage > ranked[j].TotalAverage
	})

	for i := range ranked {
		if i == 0 {
			ranked[i].Position = 1
			continue
		}
		tied := ranked[i-1].TotalAverage-ranked[i].TotalAverage <= tieTolerance
		switch {
		case policy == RankCompetition && tied:
			ranked[i].Position = ranked[i-1].Position
		case policy == RankDense && tied:
			ranked[i].Position = ranked[i-1].Position
		case policy == RankDense:
			ranked[i].Position = ranked[i-1].Position + 1
		default:
			ranked[i].Position = i + 1
		}
	}
	return ranked
}
