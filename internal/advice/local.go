package advice

import (
	"context"
	"strings"

	"github.com/smartfill/smartfill/internal/classifier"
	"github.com/smartfill/smartfill/internal/domain"
)

// ProfileLoader reads the user's profile.
type ProfileLoader interface {
	Load(ctx context.Context) (*domain.Profile, error)
}

// Local answers with the rule-based heuristics instead of the endpoint.
type Local struct {
	advisor  *classifier.LocalAdvisor
	profiles ProfileLoader
}

// NewLocal creates a heuristic advisor reading the portfolio from profiles
func NewLocal(profiles ProfileLoader) *Local {
	return &Local{
		advisor:  classifier.NewLocalAdvisor(),
		profiles: profiles,
	}
}

// Analyze grades the page text against the stored profile.
func (l *Local) Analyze(ctx context.Context, text string) (domain.AnalysisResult, *domain.Profile, error) {
	p, err := l.profiles.Load(ctx)
	if err != nil {
		return domain.AnalysisResult{}, nil, err
	}
	return l.advisor.Analyze(text, p), p, nil
}

// Explain lists the rules behind result.
func (l *Local) Explain(result domain.AnalysisResult, p *domain.Profile) []string {
	return l.advisor.Explain(result, p)
}

// Advise grades req.Snippet. The question is ignored; the answer is the
// recommendation followed by its explanation.
func (l *Local) Advise(ctx context.Context, req Request) (*Response, error) {
	result, p, err := l.Analyze(ctx, strings.ToLower(req.Snippet))
	if err != nil {
		return nil, err
	}

	answer := result.Recommendation.Message + "\n\n" + strings.Join(l.Explain(result, p), "\n")
	resp := &Response{
		Answer:   answer,
		Summary:  result.Recommendation.Message,
		Decision: decision(result.Recommendation.Tag),
	}
	if rate := result.Details.ExtractedRatePct; rate != nil {
		resp.Extracted = &Extracted{InterestRatePct: rate}
	}
	return resp, nil
}

func decision(tag domain.RecommendationTag) string {
	switch tag {
	case domain.TagGood:
		return "switch"
	case domain.TagWarn:
		return "skip"
	}
	return ""
}
