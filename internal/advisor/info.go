package advisor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"recruit-agent/internal/ai"
	"recruit-agent/internal/prompts"
	"recruit-agent/internal/retrieval"
)

const (
	confidenceWithContext    = 0.8
	confidenceWithoutContext = 0.3
)

const apologeticAnswer = "I'm sorry, I couldn't look that up right now. I can pass your question along to the recruiting team if you'd like."

// InfoResponse is one answered candidate question.
type InfoResponse struct {
	Answer       string
	Confidence   float64
	Sources      []string
	QuestionType string
	HasContext   bool
}

// InfoAdvisor answers candidate questions about the company and the position
// from indexed reference material.
type InfoAdvisor struct {
	generator ai.Generator
	searcher  retrieval.Searcher
	logger    *zap.Logger
	topK      int
}

func NewInfoAdvisor(generator ai.Generator, searcher retrieval.Searcher, topK int, log *zap.Logger) *InfoAdvisor {
	if topK <= 0 {
		topK = 3
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &InfoAdvisor{
		generator: generator,
		searcher:  searcher,
		logger:    log,
		topK:      topK,
	}
}

// Answer never returns an error. Retrieval or generation failures come back
// as an apologetic answer with zero confidence so the caller can degrade.
func (a *InfoAdvisor) Answer(ctx context.Context, question string) InfoResponse {
	questionType := classifyQuestion(question)

	passages, err := a.searcher.Search(ctx, question, a.topK)
	if err != nil {
		a.logger.Warn("document search failed", zap.Error(err))
		return errorResponse()
	}

	if len(passages) == 0 {
		raw, err := a.generator.GenerateContent(ctx, prompts.InfoWithoutContext(question), question)
		if err != nil {
			a.logger.Warn("no-context answer failed", zap.Error(err))
			return errorResponse()
		}

		return InfoResponse{
			Answer:       strings.TrimSpace(raw),
			Confidence:   confidenceWithoutContext,
			QuestionType: questionType,
		}
	}

	var (
		contextParts []string
		sources      []string
		seen         = make(map[string]bool)
	)
	for _, passage := range passages {
		contextParts = append(contextParts, passage.Text)
		if !seen[passage.Source] && passage.Source != "" {
			seen[passage.Source] = true
			sources = append(sources, passage.Source)
		}
	}

	raw, err := a.generator.GenerateContent(ctx,
		prompts.InfoWithContext(question, strings.Join(contextParts, "\n\n")),
		question,
	)
	if err != nil {
		a.logger.Warn("context answer failed", zap.Error(err))
		return errorResponse()
	}

	a.logger.Debug("question answered",
		zap.String("question_type", questionType),
		zap.Int("passages", len(passages)),
		zap.Strings("sources", sources),
	)

	return InfoResponse{
		Answer:       strings.TrimSpace(raw),
		Confidence:   confidenceWithContext,
		Sources:      sources,
		QuestionType: questionType,
		HasContext:   true,
	}
}

func errorResponse() InfoResponse {
	return InfoResponse{
		Answer:       apologeticAnswer,
		QuestionType: "error",
	}
}

var questionTypes = []struct {
	name     string
	keywords []string
}{
	{"compensation", []string{"salary", "pay", "compensation", "benefit", "bonus", "equity"}},
	{"technical", []string{"language", "framework", "technolog", "stack", "tool", "skill"}},
	{"responsibilities", []string{"responsibilit", "duties", "day to day", "role involve", "tasks"}},
	{"qualifications", []string{"qualification", "degree", "requirement", "years of"}},
	{"culture", []string{"culture", "team", "environment", "remote", "office"}},
	{"growth", []string{"growth", "career", "promotion", "learning", "development"}},
}

func classifyQuestion(question string) string {
	lower := strings.ToLower(question)
	for _, qt := range questionTypes {
		for _, keyword := range qt.keywords {
			if strings.Contains(lower, keyword) {
				return qt.name
			}
		}
	}
	return "general"
}
