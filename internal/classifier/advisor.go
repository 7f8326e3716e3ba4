package classifier

import (
	"fmt"

	"github.com/smartfill/smartfill/internal/domain"
)

// SwitchThreshold is the rate difference, in percentage points, beyond which
// the local advisor recommends switching or skipping.
const SwitchThreshold = 0.25

// Local recommendation messages
const (
	MsgFDNoRate    = "FD page detected, but couldn't find a clear interest rate."
	MsgCreditCard  = "Credit Card page detected. Compare reward rates to your spend profile for a decision."
	MsgGeneralPage = "Browsing… No specific finance context detected yet."
)

// LocalAdvisor grades pages with fixed rules against the user's portfolio.
type LocalAdvisor struct{}

// NewLocalAdvisor creates a rule-based advisor.
func NewLocalAdvisor() *LocalAdvisor {
	return &LocalAdvisor{}
}

// Analyze classifies text and grades it against p.
func (a *LocalAdvisor) Analyze(text string, p *domain.Profile) domain.AnalysisResult {
	ctxTag := Classify(text)
	result := domain.AnalysisResult{Context: ctxTag}

	switch ctxTag {
	case domain.ContextFD:
		rate, ok := ExtractFDRate(text)
		if !ok {
			result.Recommendation = domain.Recommendation{Tag: domain.TagInfo, Message: MsgFDNoRate}
			return result
		}
		result.Details.ExtractedRatePct = &rate
		result.Recommendation = gradeFD(rate, p.ExistingFDRate())
	case domain.ContextCreditCard:
		result.Recommendation = domain.Recommendation{Tag: domain.TagInfo, Message: MsgCreditCard}
	default:
		result.Recommendation = domain.Recommendation{Tag: domain.TagInfo, Message: MsgGeneralPage}
	}
	return result
}

func gradeFD(rate, existing float64) domain.Recommendation {
	delta := rate - existing
	r, e := FormatRate(rate), FormatRate(existing)

	switch {
	case delta >= SwitchThreshold:
		return domain.Recommendation{
			Tag:     domain.TagGood,
			Message: fmt.Sprintf("Better FD rate detected: %s%% vs your %s%% → Consider switching.", r, e),
		}
	case delta <= -SwitchThreshold:
		return domain.Recommendation{
			Tag:     domain.TagWarn,
			Message: fmt.Sprintf("Worse FD rate: %s%% vs your %s%% → Likely skip.", r, e),
		}
	default:
		return domain.Recommendation{
			Tag:     domain.TagInfo,
			Message: fmt.Sprintf("Similar FD rate: %s%% vs your %s%% → Neutral.", r, e),
		}
	}
}

// Explain lists the facts and rules behind a local analysis.
func (a *LocalAdvisor) Explain(result domain.AnalysisResult, p *domain.Profile) []string {
	lines := []string{fmt.Sprintf("Context: %s", result.Context)}

	switch result.Context {
	case domain.ContextFD:
		extracted := "N/A"
		if result.Details.ExtractedRatePct != nil {
			extracted = FormatRate(*result.Details.ExtractedRatePct)
		}
		lines = append(lines,
			fmt.Sprintf("Extracted rate: %s%%", extracted),
			fmt.Sprintf("Your existing FD: %s%%", FormatRate(p.ExistingFDRate())),
			"Rule: if new_rate >= existing + 0.25% ⇒ suggest switching; if <= existing - 0.25% ⇒ suggest skipping.",
		)
	case domain.ContextCreditCard:
		lines = append(lines, "Rule placeholder: compute effective reward rate vs your spend mix, fees, and milestones.")
	}
	return lines
}
