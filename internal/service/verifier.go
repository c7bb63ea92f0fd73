package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"tripcore/internal/logger"
	"tripcore/internal/metrics"
	"tripcore/internal/model"
)

// Verification gate limits
const (
	PassThreshold       = 90.0
	DistrustBelow       = 50.0
	DistrustFloor       = 90.0
	maxSummaryDays      = 7
	maxSummaryPlaces    = 8
	maxSummaryRunes     = 4000
	skippedReason       = "skipped"
	malformedReasonText = "judge response could not be parsed"
)

// ErrNilItinerary is returned when there is nothing to verify
var ErrNilItinerary = errors.New("itinerary is required")

// VerificationGate decides whether an itinerary is good enough to show.
// With no judge configured every itinerary passes as skipped.
type VerificationGate struct {
	judge   VerdictJudge
	timeout time.Duration
}

// NewVerificationGate creates a gate; judge may be nil
func NewVerificationGate(judge VerdictJudge, timeout time.Duration) *VerificationGate {
	return &VerificationGate{judge: judge, timeout: timeout}
}

// Enabled reports whether a judge is configured
func (g *VerificationGate) Enabled() bool {
	return g.judge != nil
}

// VerifyItinerary judges an itinerary. Judge failures never surface as errors;
// they produce a failed result with verdict 이상.
func (g *VerificationGate) VerifyItinerary(ctx context.Context, itinerary *model.Itinerary) (*model.VerifyResult, error) {
	if itinerary == nil {
		return nil, ErrNilItinerary
	}

	requestID := uuid.NewString()
	log := logger.L().WithFields(logrus.Fields{
		"request_id":  requestID,
		"destination": itinerary.Destination,
	})
	log.WithField("state", model.GateDraft).Debug("verification started")

	if !g.Enabled() {
		result := &model.VerifyResult{
			Passed:    true,
			Score:     100,
			Verdict:   model.VerdictFit,
			Reason:    skippedReason,
			State:     model.GateSkipped,
			RequestID: requestID,
		}
		g.finish(log, result)
		return result, nil
	}

	summary := BuildItinerarySummary(itinerary)
	log.WithFields(logrus.Fields{
		"state":         model.GateSummarized,
		"summary_runes": len([]rune(summary)),
	}).Debug("itinerary summarized")

	callCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := g.callJudge(callCtx, summary)
	metrics.JudgeDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log.WithError(err).Warn("judge call failed, rejecting itinerary")
		result := failClosed(requestID, err)
		g.finish(log, result)
		return result, nil
	}

	log.WithFields(logrus.Fields{
		"state":     model.GateJudged,
		"verdict":   raw.Verdict,
		"score":     raw.Score,
		"recovered": raw.Recovered,
	}).Debug("judge answered")

	result := ApplyGateRules(raw)
	result.RequestID = requestID
	g.finish(log, result)
	return result, nil
}

// callJudge converts a panicking judge into an error
func (g *VerificationGate) callJudge(ctx context.Context, summary string) (raw *RawVerdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, fmt.Errorf("judge panic: %v", r)
		}
	}()
	return g.judge.Verdict(ctx, summary)
}

func (g *VerificationGate) finish(log *logrus.Entry, result *model.VerifyResult) {
	metrics.Verifications.WithLabelValues(result.State).Inc()
	log.WithFields(logrus.Fields{
		"state":   result.State,
		"passed":  result.Passed,
		"score":   result.Score,
		"verdict": result.Verdict,
	}).Info("verification finished")
}

func failClosed(requestID string, err error) *model.VerifyResult {
	reason := "judge error: " + err.Error()
	if errors.Is(err, ErrMalformedVerdict) {
		reason = malformedReasonText
	}
	return &model.VerifyResult{
		Passed:    false,
		Score:     0,
		Verdict:   model.VerdictAnomalous,
		Reason:    reason,
		State:     model.GateRejected,
		RequestID: requestID,
	}
}

// ApplyGateRules turns a raw judge answer into a result:
// the verdict is normalized, a missing score defaults from the verdict,
// the score is clamped to [0, 100], a low score paired with 적합 is
// raised to 90, and the itinerary passes only at 90 or above.
// A NaN or infinite score is rejected with score 0.
func ApplyGateRules(raw *RawVerdict) *model.VerifyResult {
	if raw.HasScore && !isFinite(raw.Score) {
		return &model.VerifyResult{
			Passed:  false,
			Score:   0,
			Verdict: model.VerdictAnomalous,
			Reason:  malformedReasonText,
			State:   model.GateRejected,
		}
	}

	verdict := NormalizeVerdict(raw.Verdict)

	score := raw.Score
	if !raw.HasScore {
		score = 0
		if verdict == model.VerdictFit {
			score = DistrustFloor
		}
	}
	score = clamp(score, 0, 100)

	if score < DistrustBelow && verdict == model.VerdictFit {
		score = DistrustFloor
	}

	passed := score >= PassThreshold
	state := model.GateRejected
	if passed {
		state = model.GateAccepted
	}

	return &model.VerifyResult{
		Passed:  passed,
		Score:   score,
		Verdict: verdict,
		Reason:  strings.TrimSpace(raw.Reason),
		State:   state,
	}
}

// NormalizeVerdict maps judge output onto the three verdict labels.
// Anything unrecognised is treated as 이상.
func NormalizeVerdict(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case model.VerdictFit, "fit", "pass", "suitable":
		return model.VerdictFit
	case model.VerdictUnfit, "unfit", "fail", "unsuitable":
		return model.VerdictUnfit
	default:
		return model.VerdictAnomalous
	}
}

// BuildItinerarySummary renders a bounded, deterministic text summary
func BuildItinerarySummary(itinerary *model.Itinerary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Destination: %s\n", itinerary.Destination)
	fmt.Fprintf(&sb, "Days: %d\n", len(itinerary.Days))
	fmt.Fprintf(&sb, "Per-person cost: €%.2f\n", itinerary.PerPersonCost)

	for i, day := range itinerary.Days {
		if i >= maxSummaryDays {
			fmt.Fprintf(&sb, "... (%d more days)\n", len(itinerary.Days)-maxSummaryDays)
			break
		}

		dayNum := day.Day
		if dayNum <= 0 {
			dayNum = i + 1
		}
		fmt.Fprintf(&sb, "\nDay %d (daily cost €%.2f)\n", dayNum, day.DailyCost)

		for j, place := range day.Places {
			if j >= maxSummaryPlaces {
				fmt.Fprintf(&sb, "  ... (%d more places)\n", len(day.Places)-maxSummaryPlaces)
				break
			}
			sb.WriteString("  - ")
			if place.StartTime != "" {
				sb.WriteString(place.StartTime)
				sb.WriteString(" ")
			}
			sb.WriteString(place.Name)
			if place.Category != "" {
				fmt.Fprintf(&sb, " (%s)", place.Category)
			}
			sb.WriteString("\n")
		}
	}

	return truncateRunes(sb.String(), maxSummaryRunes)
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
