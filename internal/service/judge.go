package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"tripcore/internal/config"
	"tripcore/internal/utils"
)

var (
	// ErrJudgeUnavailable is returned when no judge credential is configured
	ErrJudgeUnavailable = errors.New("judge is not configured (missing API key)")

	// ErrMalformedVerdict is returned when neither JSON nor field extraction recovers a verdict
	ErrMalformedVerdict = errors.New("malformed judge response")
)

// Judge submits an itinerary summary to an external reasoning service and
// returns its raw text answer.
type Judge interface {
	Judge(ctx context.Context, summary string) (string, error)
}

// RawVerdict is the judge's answer before gate rules are applied
type RawVerdict struct {
	Verdict   string
	Score     float64
	HasScore  bool
	Reason    string
	Recovered bool // fields were pulled out of text that did not parse as JSON
}

// VerdictJudge returns a structured verdict for an itinerary summary
type VerdictJudge interface {
	Verdict(ctx context.Context, summary string) (*RawVerdict, error)
}

const judgeSystemPrompt = `You are a strict travel itinerary reviewer. Respond with a single JSON object only, no markdown.`

const judgePromptTpl = `Review the itinerary below before it is shown to a traveler.
Check:
1. Cost completeness: every day has a daily cost and the per-person cost is plausible.
2. Route coherence: places on the same day are in a sensible order and reachable.
3. Realism: the places exist, fit the destination, and the visit times are realistic.

Return exactly:
{"verdict": "적합" | "부적합" | "이상", "score": 0-100, "reason": "one short sentence"}
Use "적합" when the itinerary is ready, "부적합" when it needs changes, "이상" when the data looks broken.

Itinerary:
%s`

// LLMJudge asks an OpenAI-compatible chat model for a verdict
type LLMJudge struct {
	chatModel model.BaseChatModel
	limiter   *rate.Limiter
}

// NewLLMJudge creates a judge backed by the configured chat model
func NewLLMJudge(ctx context.Context, cfg config.JudgeConfig) (*LLMJudge, error) {
	if !cfg.Enabled {
		return nil, ErrJudgeUnavailable
	}

	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.APIBase,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("judge model init: %w", err)
	}

	return NewLLMJudgeWithModel(chatModel, newJudgeLimiter(cfg.RPM)), nil
}

// NewLLMJudgeWithModel creates a judge around an existing chat model
func NewLLMJudgeWithModel(chatModel model.BaseChatModel, limiter *rate.Limiter) *LLMJudge {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &LLMJudge{chatModel: chatModel, limiter: limiter}
}

func newJudgeLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
}

// Judge implements Judge. Single attempt; retries belong to the caller.
func (j *LLMJudge) Judge(ctx context.Context, summary string) (string, error) {
	if err := j.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("judge rate limit: %w", err)
	}

	messages := []*schema.Message{
		{Role: schema.System, Content: judgeSystemPrompt},
		{Role: schema.User, Content: fmt.Sprintf(judgePromptTpl, summary)},
	}

	resp, err := j.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("judge generate: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("judge generate: empty response")
	}
	return resp.Content, nil
}

// RecoveringJudge decorates a Judge with best-effort verdict parsing:
// JSON first, then field extraction for truncated answers.
type RecoveringJudge struct {
	judge Judge
}

// NewRecoveringJudge wraps a raw judge
func NewRecoveringJudge(judge Judge) *RecoveringJudge {
	return &RecoveringJudge{judge: judge}
}

// Verdict implements VerdictJudge
func (r *RecoveringJudge) Verdict(ctx context.Context, summary string) (*RawVerdict, error) {
	text, err := r.judge.Judge(ctx, summary)
	if err != nil {
		return nil, err
	}
	return ParseVerdict(text)
}

// verdictDoc accepts score as a number or a numeric string
type verdictDoc struct {
	Verdict string      `json:"verdict"`
	Score   interface{} `json:"score"`
	Reason  string      `json:"reason"`
}

// ParseVerdict recovers a verdict from judge output
func ParseVerdict(text string) (*RawVerdict, error) {
	var doc verdictDoc
	if err := utils.ParseAIJSON(text, &doc); err == nil {
		v := &RawVerdict{
			Verdict: strings.TrimSpace(doc.Verdict),
			Reason:  doc.Reason,
		}
		if nonFinite(doc.Score) {
			return nil, fmt.Errorf("%w: non-finite score %v", ErrMalformedVerdict, doc.Score)
		}
		v.Score, v.HasScore = scoreValue(doc.Score)
		if v.Verdict != "" || v.HasScore {
			return v, nil
		}
	}

	verdict, hasVerdict := utils.ExtractStringField(text, "verdict")
	score, hasScore := utils.ExtractNumberField(text, "score")
	if !hasVerdict && !hasScore {
		return nil, ErrMalformedVerdict
	}

	reason, _ := utils.ExtractStringField(text, "reason")
	return &RawVerdict{
		Verdict:   strings.TrimSpace(verdict),
		Score:     score,
		HasScore:  hasScore,
		Reason:    reason,
		Recovered: true,
	}, nil
}

func scoreValue(v interface{}) (float64, bool) {
	switch s := v.(type) {
	case float64:
		return s, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || !isFinite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// nonFinite reports a score that parses to NaN or an infinity
func nonFinite(v interface{}) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return err == nil && !isFinite(f)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
