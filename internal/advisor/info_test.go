package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"recruit-agent/internal/retrieval"
)

func TestInfoAdvisorWithContext(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "The backend is written in Go."}
	searcher := &fakeSearcher{passages: []retrieval.Passage{
		{Text: "Our stack is Go and PostgreSQL.", Source: "company.md", Score: 1.2},
		{Text: "The backend team owns the pipeline.", Source: "company.md", Score: 0.8},
	}}

	a := NewInfoAdvisor(gen, searcher, 3, zap.NewNop())
	resp := a.Answer(context.Background(), "what is your tech stack?")

	if resp.Confidence != 0.8 {
		t.Fatalf("expected confidence 0.8, got %v", resp.Confidence)
	}
	if !resp.HasContext {
		t.Fatal("expected context flag")
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "company.md" {
		t.Fatalf("expected deduplicated sources, got %v", resp.Sources)
	}
	if resp.QuestionType != "technical" {
		t.Fatalf("expected technical question, got %q", resp.QuestionType)
	}
	if resp.Answer != "The backend is written in Go." {
		t.Fatalf("unexpected answer: %q", resp.Answer)
	}

	if !strings.Contains(gen.lastSystem, "Our stack is Go and PostgreSQL.") {
		t.Fatal("expected retrieved passage in prompt")
	}
}

func TestInfoAdvisorWithoutContext(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "I don't have that detail at hand."}
	a := NewInfoAdvisor(gen, &fakeSearcher{}, 3, zap.NewNop())

	resp := a.Answer(context.Background(), "do you sponsor visas?")

	if resp.Confidence != 0.3 {
		t.Fatalf("expected confidence 0.3, got %v", resp.Confidence)
	}
	if resp.HasContext {
		t.Fatal("expected no context flag")
	}
	if len(resp.Sources) != 0 {
		t.Fatalf("expected no sources, got %v", resp.Sources)
	}
}

func TestInfoAdvisorSearchFailure(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "unused"}
	a := NewInfoAdvisor(gen, &fakeSearcher{err: errors.New("index closed")}, 3, zap.NewNop())

	resp := a.Answer(context.Background(), "what about benefits?")

	if resp.Confidence != 0 {
		t.Fatalf("expected zero confidence, got %v", resp.Confidence)
	}
	if resp.QuestionType != "error" {
		t.Fatalf("expected error question type, got %q", resp.QuestionType)
	}
	if resp.Answer == "" {
		t.Fatal("expected an apologetic answer")
	}
	if gen.calls != 0 {
		t.Fatal("generator must not be called after search failure")
	}
}

func TestInfoAdvisorGenerationFailure(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: errors.New("api down")}
	searcher := &fakeSearcher{passages: []retrieval.Passage{{Text: "text", Source: "a.md"}}}
	a := NewInfoAdvisor(gen, searcher, 3, zap.NewNop())

	resp := a.Answer(context.Background(), "what is the salary?")

	if resp.Confidence != 0 || resp.QuestionType != "error" {
		t.Fatalf("expected error response, got %+v", resp)
	}
}

func TestClassifyQuestion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		question string
		expect   string
	}{
		{"what's the salary range?", "compensation"},
		{"which frameworks do you use?", "technical"},
		{"what would my duties be?", "responsibilities"},
		{"is there a degree requirement?", "qualifications"},
		{"do you work remote?", "culture"},
		{"what are the career growth options?", "growth"},
		{"tell me more about the position", "general"},
	}

	for _, tt := range tests {
		if got := classifyQuestion(tt.question); got != tt.expect {
			t.Fatalf("classifyQuestion(%q) = %q, expected %q", tt.question, got, tt.expect)
		}
	}
}
