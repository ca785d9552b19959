package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"recruit-agent/internal/advisor"
	"recruit-agent/internal/calendar"
	"recruit-agent/internal/conversation"
)

const emptyExtraction = `{"name":"unknown","experience":"unknown","current_status":"unknown","interest_level":"unknown","availability_mentioned":false}`

// scriptedGenerator answers the routing prompt and the extraction prompt with
// fixed responses, telling them apart by the prompt text.
type scriptedGenerator struct {
	decision string
	extract  string
	err      error
}

func (g *scriptedGenerator) GenerateContent(_ context.Context, system, _ string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if strings.Contains(system, "extract structured candidate information") {
		if g.extract == "" {
			return emptyExtraction, nil
		}
		return g.extract, nil
	}
	return g.decision, nil
}

type stubExit struct {
	decision advisor.ExitDecision
}

func (s stubExit) Decide(context.Context, string, []advisor.Message) advisor.ExitDecision {
	return s.decision
}

type stubScheduler struct {
	result  advisor.SchedulingResult
	booking advisor.BookingResult
	next    []calendar.Slot
	booked  []calendar.AppointmentRequest
}

func (s *stubScheduler) Decide(context.Context, conversation.Profile, []advisor.Message, string) advisor.SchedulingResult {
	return s.result
}

func (s *stubScheduler) Book(_ context.Context, req calendar.AppointmentRequest) advisor.BookingResult {
	s.booked = append(s.booked, req)
	return s.booking
}

func (s *stubScheduler) NextAvailable(context.Context, int) []calendar.Slot {
	return s.next
}

type stubInfo struct {
	resp advisor.InfoResponse
}

func (s stubInfo) Answer(context.Context, string) advisor.InfoResponse {
	return s.resp
}

func newTestAgent(gen *scriptedGenerator, exit stubExit, sched *stubScheduler, info stubInfo) *Agent {
	return New(Config{}, Deps{
		Generator:  gen,
		Exit:       exit,
		Scheduling: sched,
		Info:       info,
	})
}

func testSlot(id int64, day, hour int) calendar.Slot {
	start := time.Date(2026, time.March, day, hour, 0, 0, 0, time.UTC)
	return calendar.Slot{
		ID:        id,
		Recruiter: "Sarah Mitchell",
		Start:     start,
		End:       start.Add(calendar.DefaultDuration),
		Available: true,
	}
}

func engagedExtraction() string {
	return `{"name":"Alex","experience":"6 years of Go","current_status":"employed","interest_level":"high","availability_mentioned":true}`
}

func TestStartGreetsOnce(t *testing.T) {
	a := newTestAgent(&scriptedGenerator{}, stubExit{}, &stubScheduler{}, stubInfo{})

	first := a.Start("c1")
	if first.Response == "" || first.Decision != DecisionContinue {
		t.Fatalf("unexpected start result: %+v", first)
	}
	if first.ConversationID != "c1" {
		t.Fatalf("expected conversation id c1, got %q", first.ConversationID)
	}

	a.Start("c1")
	conv := a.conversations.Get("c1")
	if len(conv.Turns) != 1 {
		t.Fatalf("expected a single greeting turn, got %d", len(conv.Turns))
	}
}

func TestProcessContinue(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"CONTINUE","reasoning":"still learning about the candidate","response":"Nice to meet you! What kind of work do you do?"}`,
	}
	a := newTestAgent(gen, stubExit{}, &stubScheduler{}, stubInfo{})

	result := a.Process(context.Background(), "c1", "hi there")

	if result.Decision != DecisionContinue {
		t.Fatalf("expected CONTINUE, got %s", result.Decision)
	}
	if result.Response != "Nice to meet you! What kind of work do you do?" {
		t.Fatalf("unexpected response %q", result.Response)
	}
	if result.Ended {
		t.Fatal("conversation should not be ended")
	}

	conv := a.conversations.Get("c1")
	if len(conv.Turns) != 2 {
		t.Fatalf("expected user and assistant turns, got %d", len(conv.Turns))
	}
	if conv.LastDecision() != string(DecisionContinue) {
		t.Fatalf("unexpected recorded decision %q", conv.LastDecision())
	}
}

func TestProcessExitsOnConfidentSignal(t *testing.T) {
	exit := stubExit{decision: advisor.ExitDecision{
		ShouldExit: true,
		Confidence: 0.9,
		Reason:     "candidate declined the position",
		Farewell:   "Best of luck with your search!",
	}}
	a := newTestAgent(&scriptedGenerator{}, exit, &stubScheduler{}, stubInfo{})

	result := a.Process(context.Background(), "c1", "not interested, bye")

	if result.Decision != DecisionEnd || !result.Ended {
		t.Fatalf("expected ended END result, got %+v", result)
	}
	if result.Response != "Best of luck with your search!" {
		t.Fatalf("unexpected farewell %q", result.Response)
	}
	if conv := a.conversations.Get("c1"); !conv.Ended {
		t.Fatal("conversation state should be ended")
	}
}

func TestProcessIgnoresWeakExitSignal(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"CONTINUE","reasoning":"ambiguous","response":"No problem, whenever you are ready."}`,
	}
	exit := stubExit{decision: advisor.ExitDecision{ShouldExit: true, Confidence: 0.5}}
	a := newTestAgent(gen, exit, &stubScheduler{}, stubInfo{})

	result := a.Process(context.Background(), "c1", "hold on a second")

	if result.Decision != DecisionContinue || result.Ended {
		t.Fatalf("weak exit signal should not end the conversation: %+v", result)
	}
}

func TestProcessEndFromRouting(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"END","reasoning":"natural close","response":"Take care!"}`,
	}
	a := newTestAgent(gen, stubExit{}, &stubScheduler{}, stubInfo{})

	result := a.Process(context.Background(), "c1", "that's all for now")

	if result.Decision != DecisionEnd || !result.Ended {
		t.Fatalf("expected ended END result, got %+v", result)
	}
	if conv := a.conversations.Get("c1"); !conv.Ended {
		t.Fatal("conversation state should be ended")
	}
}

func TestGeneratorFailureRecovers(t *testing.T) {
	gen := &scriptedGenerator{err: errors.New("backend unavailable")}
	a := newTestAgent(gen, stubExit{}, &stubScheduler{}, stubInfo{})

	result := a.Process(context.Background(), "c1", "hello")

	if result.Decision != DecisionContinue || result.Ended {
		t.Fatalf("failure should degrade to CONTINUE: %+v", result)
	}
	if !strings.Contains(result.Response, "technical difficulties") {
		t.Fatalf("unexpected recovery response %q", result.Response)
	}

	conv := a.conversations.Get("c1")
	if len(conv.Turns) != 2 {
		t.Fatalf("history should be preserved through the failure, got %d turns", len(conv.Turns))
	}
}

func TestUnparseableDecisionRecovers(t *testing.T) {
	gen := &scriptedGenerator{decision: "I cannot decide right now."}
	a := newTestAgent(gen, stubExit{}, &stubScheduler{}, stubInfo{})

	result := a.Process(context.Background(), "c1", "hello")

	if result.Decision != DecisionContinue {
		t.Fatalf("expected CONTINUE recovery, got %s", result.Decision)
	}
	if !strings.Contains(result.Response, "technical difficulties") {
		t.Fatalf("unexpected recovery response %q", result.Response)
	}
}

func TestPromotesReadyCandidateToSchedule(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"CONTINUE","reasoning":"keep chatting","response":"Tell me more!"}`,
		extract:  engagedExtraction(),
	}
	sched := &stubScheduler{result: advisor.SchedulingResult{
		Decision: advisor.DecisionSchedule,
		Response: "Here are some times that work:",
		Slots:    []calendar.Slot{testSlot(1, 9, 14)},
		Matched:  true,
	}}
	a := newTestAgent(gen, stubExit{}, sched, stubInfo{})

	result := a.Process(context.Background(), "c1", "I'm free monday afternoon")

	if result.Decision != DecisionSchedule {
		t.Fatalf("ready candidate should be promoted to SCHEDULE, got %s", result.Decision)
	}
	if result.Response != "Here are some times that work:" {
		t.Fatalf("unexpected response %q", result.Response)
	}

	conv := a.conversations.Get("c1")
	if len(conv.OfferedSlots) != 1 || conv.OfferedSlots[0].ID != 1 {
		t.Fatalf("offered slots should be remembered, got %+v", conv.OfferedSlots)
	}
}

func TestInfoRouting(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"INFO","reasoning":"question about compensation","response":""}`,
	}
	info := stubInfo{resp: advisor.InfoResponse{
		Answer:       "The range for this role is competitive with the market.",
		Confidence:   0.8,
		QuestionType: "compensation",
		HasContext:   true,
	}}
	a := newTestAgent(gen, stubExit{}, &stubScheduler{}, info)

	result := a.Process(context.Background(), "c1", "what does the role pay?")

	if result.Decision != DecisionInfo {
		t.Fatalf("expected INFO, got %s", result.Decision)
	}
	if result.Response != info.resp.Answer {
		t.Fatalf("unexpected answer %q", result.Response)
	}
}

func TestInfoErrorDegradesToContinue(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"INFO","reasoning":"question","response":""}`,
	}
	info := stubInfo{resp: advisor.InfoResponse{QuestionType: "error"}}
	a := newTestAgent(gen, stubExit{}, &stubScheduler{}, info)

	result := a.Process(context.Background(), "c1", "what does the role pay?")

	if result.Decision != DecisionContinue {
		t.Fatalf("expected CONTINUE degradation, got %s", result.Decision)
	}
	if !strings.Contains(result.Response, "couldn't look that up") {
		t.Fatalf("unexpected response %q", result.Response)
	}
}

func TestNotSchedulePromptsForMissingName(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"SCHEDULE","reasoning":"mentions times","response":""}`,
	}
	sched := &stubScheduler{result: advisor.SchedulingResult{
		Decision:  advisor.DecisionNotSchedule,
		Reasoning: "candidate is not ready",
	}}
	a := newTestAgent(gen, stubExit{}, sched, stubInfo{})

	result := a.Process(context.Background(), "c1", "maybe monday?")

	if result.Decision != DecisionContinue {
		t.Fatalf("expected CONTINUE, got %s", result.Decision)
	}
	if !strings.Contains(result.Response, "your name") {
		t.Fatalf("expected a profile question, got %q", result.Response)
	}
}

func TestFlexibilityEscalation(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"SCHEDULE","reasoning":"wants to schedule","response":""}`,
		extract:  engagedExtraction(),
	}
	sched := &stubScheduler{
		result: advisor.SchedulingResult{Decision: advisor.DecisionSchedule, Matched: false},
		next:   []calendar.Slot{testSlot(1, 5, 9), testSlot(2, 5, 10)},
	}
	a := newTestAgent(gen, stubExit{}, sched, stubInfo{})
	ctx := context.Background()

	first := a.Process(ctx, "c1", "only sundays at midnight work for me")
	if first.Decision != DecisionSchedule || !strings.Contains(first.Response, "business days") {
		t.Fatalf("first attempt should ask for flexibility: %+v", first)
	}

	second := a.Process(ctx, "c1", "no, really, only sundays")
	if second.Decision != DecisionSchedule || !strings.Contains(second.Response, "next times we have open") {
		t.Fatalf("second attempt should list open slots: %+v", second)
	}

	third := a.Process(ctx, "c1", "none of those work either")
	if third.Decision != DecisionEnd || !third.Ended {
		t.Fatalf("third attempt should end gracefully: %+v", third)
	}
	if !strings.Contains(third.Response, "recruiting team") {
		t.Fatalf("expected handoff message, got %q", third.Response)
	}

	conv := a.conversations.Get("c1")
	if !conv.Profile.SchedulingFailed {
		t.Fatal("profile should be flagged for human follow up")
	}
	if conv.FlexibilityAttempts != 3 {
		t.Fatalf("expected 3 flexibility attempts, got %d", conv.FlexibilityAttempts)
	}
}

func TestFlexibilityEndsWhenCalendarEmpty(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"SCHEDULE","reasoning":"wants to schedule","response":""}`,
		extract:  engagedExtraction(),
	}
	sched := &stubScheduler{
		result: advisor.SchedulingResult{Decision: advisor.DecisionSchedule, Matched: false},
	}
	a := newTestAgent(gen, stubExit{}, sched, stubInfo{})

	conv := a.conversations.GetOrCreate("c1")
	conv.FlexibilityAttempts = 1

	result := a.Process(context.Background(), "c1", "only sundays work")

	if result.Decision != DecisionEnd || !result.Ended {
		t.Fatalf("empty calendar should end the conversation: %+v", result)
	}
	if !conv.Profile.SchedulingFailed {
		t.Fatal("profile should be flagged for human follow up")
	}
}

func TestConfirmSlotBooksOfferedSlot(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"SCHEDULE","reasoning":"accepting a slot","response":""}`,
		extract:  engagedExtraction(),
	}
	sched := &stubScheduler{
		result: advisor.SchedulingResult{
			Decision: advisor.DecisionConfirmSlot,
			Response: "Great choice!",
		},
		booking: advisor.BookingResult{
			Success:       true,
			AppointmentID: 12,
			Message:       "You're booked for Monday, March 9 at 02:00 PM with Sarah Mitchell.",
		},
	}
	a := newTestAgent(gen, stubExit{}, sched, stubInfo{})

	conv := a.conversations.GetOrCreate("c1")
	conv.Profile = conversation.Profile{Name: "Alex", InterestLevel: "high"}
	conv.OfferedSlots = []calendar.Slot{testSlot(7, 9, 14), testSlot(8, 9, 15)}

	result := a.Process(context.Background(), "c1", "the first one works for me")

	if result.Decision != DecisionSchedule {
		t.Fatalf("expected SCHEDULE, got %s", result.Decision)
	}
	if !strings.Contains(result.Response, "You're booked") {
		t.Fatalf("expected booking confirmation, got %q", result.Response)
	}
	if len(sched.booked) != 1 {
		t.Fatalf("expected one booking, got %d", len(sched.booked))
	}
	req := sched.booked[0]
	if req.SlotID != 7 || req.CandidateName != "Alex" || req.ConversationID != "c1" {
		t.Fatalf("unexpected booking request %+v", req)
	}
	if conv.OfferedSlots != nil {
		t.Fatal("offered slots should be cleared after booking")
	}
}

func TestConfirmSlotPicksSecondOffer(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"SCHEDULE","reasoning":"accepting a slot","response":""}`,
		extract:  engagedExtraction(),
	}
	sched := &stubScheduler{
		result:  advisor.SchedulingResult{Decision: advisor.DecisionConfirmSlot},
		booking: advisor.BookingResult{Success: true, Message: "Booked!"},
	}
	a := newTestAgent(gen, stubExit{}, sched, stubInfo{})

	conv := a.conversations.GetOrCreate("c1")
	conv.Profile = conversation.Profile{Name: "Alex"}
	conv.OfferedSlots = []calendar.Slot{testSlot(7, 9, 14), testSlot(8, 9, 15)}

	a.Process(context.Background(), "c1", "let's go with the second option")

	if len(sched.booked) != 1 || sched.booked[0].SlotID != 8 {
		t.Fatalf("expected the second slot to be booked, got %+v", sched.booked)
	}
}

func TestConfirmSlotWithoutOfferPassesThrough(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"SCHEDULE","reasoning":"accepting","response":""}`,
	}
	sched := &stubScheduler{
		result: advisor.SchedulingResult{
			Decision: advisor.DecisionConfirmSlot,
			Response: "Which of the times I mentioned works best?",
		},
	}
	a := newTestAgent(gen, stubExit{}, sched, stubInfo{})

	result := a.Process(context.Background(), "c1", "yes, that works")

	if result.Response != "Which of the times I mentioned works best?" {
		t.Fatalf("unexpected response %q", result.Response)
	}
	if len(sched.booked) != 0 {
		t.Fatal("nothing should be booked without an offered slot")
	}
}

func TestConcurrentConversations(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"CONTINUE","reasoning":"chatting","response":"Tell me more."}`,
	}
	a := newTestAgent(gen, stubExit{}, &stubScheduler{}, stubInfo{})
	ctx := context.Background()

	const conversations = 8
	const turns = 5

	var wg sync.WaitGroup
	for i := 0; i < conversations; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			for j := 0; j < turns; j++ {
				a.Process(ctx, id, "hello again")
			}
		}(fmt.Sprintf("c%d", i))
	}

	// Stats readers race the turns across all conversations.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 25; i++ {
			a.Stats()
		}
	}()

	wg.Wait()

	stats := a.Stats()
	if stats.Conversations != conversations {
		t.Fatalf("expected %d conversations, got %d", conversations, stats.Conversations)
	}
	if got := stats.Decisions[string(DecisionContinue)]; got != conversations*turns {
		t.Fatalf("expected %d CONTINUE decisions, got %d", conversations*turns, got)
	}
}

func TestStatsAndExport(t *testing.T) {
	gen := &scriptedGenerator{
		decision: `{"decision":"CONTINUE","reasoning":"chatting","response":"Tell me more."}`,
	}
	a := newTestAgent(gen, stubExit{}, &stubScheduler{}, stubInfo{})
	ctx := context.Background()

	a.Process(ctx, "c1", "hello")
	a.Process(ctx, "c1", "I like Go")
	a.Process(ctx, "c2", "hi")

	stats := a.Stats()
	if stats.Conversations != 2 {
		t.Fatalf("expected 2 conversations, got %d", stats.Conversations)
	}
	if stats.Decisions[string(DecisionContinue)] != 3 {
		t.Fatalf("expected 3 CONTINUE decisions, got %d", stats.Decisions[string(DecisionContinue)])
	}

	exported, err := a.Export("c1")
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if !strings.Contains(string(exported), `"id": "c1"`) {
		t.Fatalf("export missing conversation id: %s", exported)
	}

	if _, err := a.Export("missing"); err == nil {
		t.Fatal("expected an error for an unknown conversation")
	}
}
