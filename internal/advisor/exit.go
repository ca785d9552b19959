package advisor

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"recruit-agent/internal/ai"
	"recruit-agent/internal/logger"
	"recruit-agent/internal/prompts"
)

// DefaultExitThreshold is the minimum confidence at which the agent acts on
// an exit signal.
const DefaultExitThreshold = 0.7

const defaultFarewell = "Thank you for your time. Have a great day!"

// ExitDecision is the outcome of exit analysis for one turn. It is always
// usable: analysis failures surface as low confidence continue decisions.
type ExitDecision struct {
	ShouldExit bool
	Confidence float64
	Reason     string
	Farewell   string
}

// ExitAdvisor detects when the candidate wants the conversation to end.
type ExitAdvisor struct {
	generator ai.Generator
	logger    *zap.Logger
	maxLogLen int
}

func NewExitAdvisor(generator ai.Generator, maxLogLength int, log *zap.Logger) *ExitAdvisor {
	if maxLogLength <= 0 {
		maxLogLength = 200
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &ExitAdvisor{
		generator: generator,
		logger:    log,
		maxLogLen: maxLogLength,
	}
}

// Decide analyzes the latest message in context. It never returns an error:
// a failed model call means a low confidence continue.
func (a *ExitAdvisor) Decide(ctx context.Context, message string, history []Message) ExitDecision {
	prompt := prompts.Exit(message, FormatHistory(history, historyWindow))

	raw, err := a.generator.GenerateContent(ctx, prompt, message)
	if err != nil {
		a.logger.Warn("exit analysis failed", zap.Error(err))
		return ExitDecision{Confidence: 0.2, Reason: "analysis unavailable"}
	}

	a.logger.Debug("exit analysis response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)

	var payload struct {
		ShouldExit bool    `mapstructure:"should_exit"`
		Confidence float64 `mapstructure:"confidence"`
		Reason     string  `mapstructure:"reason"`
		Farewell   string  `mapstructure:"farewell_message"`
	}

	if err := ai.DecodeLoose(raw, &payload); err != nil {
		a.logger.Debug("exit analysis not parseable, checking text", zap.Error(err))
		return textualExitDecision(raw)
	}

	decision := ExitDecision{
		ShouldExit: payload.ShouldExit,
		Confidence: clamp01(payload.Confidence),
		Reason:     strings.TrimSpace(payload.Reason),
		Farewell:   strings.TrimSpace(payload.Farewell),
	}

	if decision.ShouldExit && decision.Farewell == "" {
		decision.Farewell = defaultFarewell
	}

	return decision
}

// textualExitDecision salvages a verdict from a response that failed JSON
// parsing.
func textualExitDecision(raw string) ExitDecision {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, `"should_exit": true`) || strings.Contains(lower, "should end") {
		return ExitDecision{
			ShouldExit: true,
			Confidence: 0.6,
			Reason:     "textual exit signal",
			Farewell:   defaultFarewell,
		}
	}

	return ExitDecision{Confidence: 0.4, Reason: "analysis not parseable"}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
