package results

import "github.com/noah-isme/sma-results-api/internal/models"

// Pipeline chains aggregation, ranking and class statistics for one scope.
type Pipeline struct {
	Policy RankPolicy
}

// Outcome is everything a pipeline run derives from a record set.
type Outcome struct {
	Summaries  []models.StudentResultSummary
	Statistics models.ClassStatistics
}

// NewPipeline builds a pipeline ranking under policy.
func NewPipeline(policy RankPolicy) Pipeline {
	return Pipeline{Policy: policy}
}

// Run computes ranked summaries and statistics from records. It does not
// modify records and keeps nothing between calls.
func (p Pipeline) Run(records []models.ScoreRecord) (*Outcome, error) {
	summaries, err := Aggregate(records)
	if err != nil {
		return nil, err
	}
	policy := p.Policy
	if policy == "" {
		policy = DefaultRankPolicy
	}
	ranked := Rank(summaries, policy)
	return &Outcome{
		Summaries:  ranked,
		Statistics: ComputeStatistics(ranked, records),
	}, nil
}
