package domain

// Common types used across the advisor and autofill components

// ContextTag is the financial-product context of a page
type ContextTag string

const (
	ContextFD         ContextTag = "fd"
	ContextCreditCard ContextTag = "credit_card"
	ContextGeneral    ContextTag = "general"
)

func (c ContextTag) IsValid() bool {
	switch c {
	case ContextFD, ContextCreditCard, ContextGeneral:
		return true
	}
	return false
}

// Label returns the human-readable pill text for the context
func (c ContextTag) Label() string {
	switch c {
	case ContextFD:
		return "Fixed Deposit"
	case ContextCreditCard:
		return "Credit Card"
	default:
		return "General"
	}
}

// RecommendationTag grades a recommendation
type RecommendationTag string

const (
	TagGood RecommendationTag = "good"
	TagWarn RecommendationTag = "warn"
	TagInfo RecommendationTag = "info"
)

// Recommendation is the short advisory outcome shown to the user
type Recommendation struct {
	Tag     RecommendationTag `json:"tag"`
	Message string            `json:"msg"`
}

// AnalysisDetails carries figures extracted while analysing a page
type AnalysisDetails struct {
	ExtractedRatePct *float64 `json:"extractedRatePct,omitempty"`
}

// AnalysisResult describes the last advisory outcome. It lives in memory only
// and is overwritten by every new query.
type AnalysisResult struct {
	Context        ContextTag      `json:"context"`
	Recommendation Recommendation  `json:"recommendation"`
	Details        AnalysisDetails `json:"details"`
}

// EventKind is the DOM event that triggered an observation
type EventKind string

const (
	EventChange EventKind = "change"
	EventBlur   EventKind = "blur"
	EventInput  EventKind = "input"
)

func (k EventKind) IsValid() bool {
	switch k {
	case EventChange, EventBlur, EventInput:
		return true
	}
	return false
}
