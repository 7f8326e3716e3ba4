// Package panel holds the advisory panel state: the profile cache, the last
// analysis, the current answer and the in-flight advice query.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/advice"
	"github.com/smartfill/smartfill/internal/classifier"
	"github.com/smartfill/smartfill/internal/domain"
	"github.com/smartfill/smartfill/internal/observability"
)

// Auto-generated questions
const (
	QuestionFD         = "Should I switch to this FD?"
	QuestionCreditCard = "Is this credit card better than my current cards?"
)

// User-visible status texts
const (
	AnswerThinking    = "Thinking…"
	AnswerUnreachable = "Backend not reachable. Start AI backend on :8787"
	AnswerNoAdvice    = "Couldn't get advice. Try reloading the page."
	AnswerNone        = "No advice yet."

	SummaryScanning = "Scanning this page…"
	SummaryFD       = "FD analysis complete"
	SummaryCard     = "Credit card analysis complete"
	SummaryGeneral  = "Ready for questions"
	SubGeneral      = "Ask a question or keep browsing."
	SubProfile      = "Using your profile for advice."
)

// recommendationLimit bounds the recommendation derived from an answer with
// no summary and no sentence break.
const recommendationLimit = 160

// ErrSuperseded is returned by Ask when a newer query replaced this one
// before its answer arrived.
var ErrSuperseded = errors.New("query superseded")

// Mode selects where answers come from.
type Mode string

const (
	ModeRemote Mode = "remote"
	ModeLocal  Mode = "local"
)

// Profiles reads the stored profile and demo profile document.
type Profiles interface {
	Load(ctx context.Context) (*domain.Profile, error)
	DemoProfile(ctx context.Context) (json.RawMessage, error)
}

// Summary is the headline block of the panel.
type Summary struct {
	Context domain.ContextTag        `json:"context"`
	Pill    string                   `json:"pill"`
	Tag     domain.RecommendationTag `json:"tag,omitempty"`
	Main    string                   `json:"main"`
	Sub     string                   `json:"sub"`
}

// Snapshot is a copy of the panel state.
type Snapshot struct {
	Open     bool                   `json:"open"`
	Summary  Summary                `json:"summary"`
	Answer   string                 `json:"answer"`
	View     *AnswerView            `json:"view,omitempty"`
	Analysis *domain.AnalysisResult `json:"analysis,omitempty"`
}

// Panel is the explicitly owned panel state. All methods are safe for
// concurrent use.
type Panel struct {
	mode         Mode
	advisor      advice.Advisor
	local        *advice.Local
	profiles     Profiles
	snippetLimit int
	metrics      *observability.Metrics
	logger       *zap.Logger

	mu         sync.Mutex
	open       bool
	summary    Summary
	answer     *AnswerView
	last       *domain.AnalysisResult
	lastURL    string
	generation uint64
	cancel     context.CancelFunc
}

// Config for a panel
type Config struct {
	Mode         Mode
	SnippetLimit int
}

// New creates a panel. advisor answers questions in remote mode; local mode
// always uses the heuristics over profiles.
func New(cfg Config, advisor advice.Advisor, profiles Profiles, metrics *observability.Metrics, logger *zap.Logger) *Panel {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SnippetLimit <= 0 {
		cfg.SnippetLimit = advice.DefaultSnippetLimit
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeRemote
	}

	local := advice.NewLocal(profiles)
	if cfg.Mode == ModeLocal || advisor == nil {
		cfg.Mode = ModeLocal
		advisor = local
	}

	return &Panel{
		mode:         cfg.Mode,
		advisor:      advisor,
		local:        local,
		profiles:     profiles,
		snippetLimit: cfg.SnippetLimit,
		metrics:      metrics,
		logger:       logger,
		summary: Summary{
			Context: domain.ContextGeneral,
			Pill:    domain.ContextGeneral.Label(),
			Main:    SummaryScanning,
		},
	}
}

// Mode returns the panel mode
func (p *Panel) Mode() Mode { return p.mode }

// Toggle opens or collapses the panel.
func (p *Panel) Toggle() {
	p.mu.Lock()
	p.open = !p.open
	p.mu.Unlock()
}

// ToggleAnswer expands or collapses the current answer.
func (p *Panel) ToggleAnswer() {
	p.mu.Lock()
	if p.answer != nil {
		p.answer.Toggle()
	}
	p.mu.Unlock()
}

// Analyze classifies the page. In remote mode FD and credit-card pages get
// an automatic question; in local mode the heuristics grade the page.
func (p *Panel) Analyze(ctx context.Context, url, text string) (Snapshot, error) {
	ctxTag := classifier.Classify(text)
	p.metrics.RecordClassification(string(ctxTag))

	if p.mode == ModeLocal {
		return p.analyzeLocal(ctx, text)
	}

	p.mu.Lock()
	p.lastURL = url
	p.summary.Context = ctxTag
	p.summary.Pill = ctxTag.Label()
	p.mu.Unlock()

	switch ctxTag {
	case domain.ContextFD:
		return p.ask(ctx, url, QuestionFD, text, ctxTag)
	case domain.ContextCreditCard:
		return p.ask(ctx, url, QuestionCreditCard, text, ctxTag)
	}

	p.mu.Lock()
	p.summary = remoteSummary(domain.AnalysisResult{Context: ctxTag})
	p.mu.Unlock()
	return p.Snapshot(), nil
}

func (p *Panel) analyzeLocal(ctx context.Context, text string) (Snapshot, error) {
	start := time.Now()
	result, _, err := p.local.Analyze(ctx, text)
	if err != nil {
		p.metrics.RecordAdvice(string(ModeLocal), "error", time.Since(start))
		return p.Snapshot(), fmt.Errorf("loading profile: %w", err)
	}
	p.metrics.RecordAdvice(string(ModeLocal), "ok", time.Since(start))

	p.mu.Lock()
	p.last = &result
	p.summary = localSummary(result)
	p.mu.Unlock()
	return p.Snapshot(), nil
}

// Ask submits a free-form question. An empty question is ignored. A newer
// Ask cancels this one; its answer is then discarded and ErrSuperseded
// returned.
func (p *Panel) Ask(ctx context.Context, url, question, text string) (Snapshot, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return p.Snapshot(), nil
	}
	return p.ask(ctx, url, question, text, classifier.Classify(text))
}

func (p *Panel) ask(ctx context.Context, url, question, text string, ctxTag domain.ContextTag) (Snapshot, error) {
	queryCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.generation++
	gen := p.generation
	p.cancel = cancel
	previous := p.answer
	p.answer = PlainAnswer(AnswerThinking)
	p.mu.Unlock()

	req := advice.Request{
		URL:      url,
		Question: question,
		Snippet:  advice.Truncate(text, p.snippetLimit),
		Context:  ctxTag,
	}
	if doc, err := p.profiles.DemoProfile(queryCtx); err == nil {
		req.Profile = doc
	} else {
		p.logger.Debug("asking without demo profile", zap.Error(err))
	}

	start := time.Now()
	resp, err := p.advisor.Advise(queryCtx, req)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.generation {
		p.metrics.RecordAdvice(string(p.mode), "superseded", time.Since(start))
		return p.snapshotLocked(), ErrSuperseded
	}
	p.cancel = nil

	switch {
	case err == nil:
		p.metrics.RecordAdvice(string(p.mode), "ok", time.Since(start))
	case errors.Is(err, advice.ErrNoAdvice):
		p.metrics.RecordAdvice(string(p.mode), "no_advice", time.Since(start))
		p.answer = PlainAnswer(AnswerNoAdvice)
		return p.snapshotLocked(), nil
	case ctx.Err() != nil:
		p.metrics.RecordAdvice(string(p.mode), "canceled", time.Since(start))
		p.answer = previous
		return p.snapshotLocked(), ctx.Err()
	default:
		p.metrics.RecordAdvice(string(p.mode), "unreachable", time.Since(start))
		p.logger.Warn("advice request failed", zap.String("url", url), zap.Error(err))
		p.answer = PlainAnswer(AnswerUnreachable)
		return p.snapshotLocked(), nil
	}

	p.answer = NewAnswerView(resp.Answer, resp.Decision, resp.Summary)
	result := domain.AnalysisResult{
		Context: ctxTag,
		Recommendation: domain.Recommendation{
			Tag:     domain.TagInfo,
			Message: recommendation(resp),
		},
		Details: domain.AnalysisDetails{ExtractedRatePct: resp.InterestRate()},
	}
	p.last = &result
	p.lastURL = url
	if p.mode == ModeLocal {
		p.summary = localSummary(result)
	} else {
		p.summary = remoteSummary(result)
	}
	return p.snapshotLocked(), nil
}

// Why explains the current state: the answer text in remote mode, the rules
// behind the last analysis in local mode.
func (p *Panel) Why(ctx context.Context) (string, error) {
	p.mu.Lock()
	last := p.last
	answer := p.answer
	p.mu.Unlock()

	if p.mode == ModeLocal {
		if last == nil {
			return "", nil
		}
		prof, err := p.profiles.Load(ctx)
		if err != nil {
			return "", fmt.Errorf("loading profile: %w", err)
		}
		return strings.Join(p.local.Explain(*last, prof), "\n"), nil
	}

	if answer == nil || answer.Full == "" {
		return AnswerNone, nil
	}
	return answer.Text(), nil
}

// Snapshot returns a copy of the current state.
func (p *Panel) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Panel) snapshotLocked() Snapshot {
	s := Snapshot{
		Open:    p.open,
		Summary: p.summary,
	}
	if p.answer != nil {
		view := *p.answer
		s.View = &view
		s.Answer = view.Visible()
	}
	if p.last != nil {
		last := *p.last
		s.Analysis = &last
	}
	return s
}

// recommendation picks the server summary, else the first sentence, else the
// leading characters of the answer.
func recommendation(resp *advice.Response) string {
	if resp.Summary != "" {
		return resp.Summary
	}
	if first := firstSentence(resp.Answer); first != "" {
		return first
	}
	return truncate(resp.Answer, recommendationLimit)
}

func remoteSummary(result domain.AnalysisResult) Summary {
	s := Summary{
		Context: result.Context,
		Pill:    result.Context.Label(),
	}
	switch result.Context {
	case domain.ContextFD:
		s.Main = SummaryFD
	case domain.ContextCreditCard:
		s.Main = SummaryCard
	default:
		s.Main = SummaryGeneral
	}

	switch {
	case result.Context == domain.ContextGeneral:
		s.Sub = SubGeneral
	case result.Details.ExtractedRatePct != nil:
		s.Sub = detectedRate(*result.Details.ExtractedRatePct)
	default:
		s.Sub = SubProfile
	}
	return s
}

func localSummary(result domain.AnalysisResult) Summary {
	s := Summary{
		Context: result.Context,
		Pill:    result.Context.Label(),
		Tag:     result.Recommendation.Tag,
		Main:    result.Recommendation.Message,
	}
	if rate := result.Details.ExtractedRatePct; rate != nil {
		s.Sub = detectedRate(*rate)
	}
	return s
}

func detectedRate(rate float64) string {
	return "Detected FD rate: " + classifier.FormatRate(rate) + "%"
}
