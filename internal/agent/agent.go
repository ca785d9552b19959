// Package agent drives a recruitment conversation turn by turn: it keeps the
// candidate profile current, watches for exit signals, classifies each
// message and routes it to the right specialist.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"recruit-agent/internal/advisor"
	"recruit-agent/internal/ai"
	"recruit-agent/internal/calendar"
	"recruit-agent/internal/conversation"
	"recruit-agent/internal/logger"
	"recruit-agent/internal/prompts"
)

// Decision is the routing verdict for one turn.
type Decision string

const (
	DecisionContinue Decision = "CONTINUE"
	DecisionSchedule Decision = "SCHEDULE"
	DecisionInfo     Decision = "INFO"
	DecisionEnd      Decision = "END"
)

const (
	defaultMaxFlexibilityAttempts = 3
	historyWindow                 = 10

	technicalDifficulties = "I'm sorry, I'm having some technical difficulties right now. Could you say that again in a moment?"
	fallbackFarewell      = "Thank you for your time. Have a great day!"

	flexibilityAsk = "I wasn't able to find a time matching that preference. Our interviews run on business days between 9:00 AM and 6:00 PM. Would a time in that window work for you?"
	handoffMessage = "I'm sorry we couldn't find a time that works. I'll pass your details to our recruiting team and they'll reach out directly to arrange something. Thank you for your patience!"
)

// ExitDecider detects when the candidate wants the conversation to end.
type ExitDecider interface {
	Decide(ctx context.Context, message string, history []advisor.Message) advisor.ExitDecision
}

// SchedulingDecider offers and books interview slots.
type SchedulingDecider interface {
	Decide(ctx context.Context, profile conversation.Profile, history []advisor.Message, message string) advisor.SchedulingResult
	Book(ctx context.Context, req calendar.AppointmentRequest) advisor.BookingResult
	NextAvailable(ctx context.Context, count int) []calendar.Slot
}

// InfoAnswerer answers candidate questions about the company and position.
type InfoAnswerer interface {
	Answer(ctx context.Context, question string) advisor.InfoResponse
}

// Config tunes the agent.
type Config struct {
	// ExitThreshold is the minimum exit confidence that ends a conversation.
	ExitThreshold float64
	// MaxFlexibilityAttempts bounds the negotiation when no slot matches the
	// candidate's preference before the agent hands off gracefully.
	MaxFlexibilityAttempts int
}

// Deps are the agent's collaborators.
type Deps struct {
	Generator     ai.Generator
	Exit          ExitDecider
	Scheduling    SchedulingDecider
	Info          InfoAnswerer
	Conversations *conversation.Store
	Logger        *zap.Logger
}

// Agent orchestrates one recruitment conversation per id.
type Agent struct {
	generator     ai.Generator
	exit          ExitDecider
	scheduling    SchedulingDecider
	info          InfoAnswerer
	conversations *conversation.Store
	logger        *zap.Logger

	exitThreshold   float64
	maxFlexAttempts int
}

// Result is the outcome of one processed turn.
type Result struct {
	ConversationID string
	Decision       Decision
	Response       string
	Reasoning      string
	Ended          bool
}

func New(cfg Config, deps Deps) *Agent {
	if cfg.ExitThreshold <= 0 {
		cfg.ExitThreshold = advisor.DefaultExitThreshold
	}
	if cfg.MaxFlexibilityAttempts <= 0 {
		cfg.MaxFlexibilityAttempts = defaultMaxFlexibilityAttempts
	}
	if deps.Conversations == nil {
		deps.Conversations = conversation.NewStore()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	return &Agent{
		generator:       deps.Generator,
		exit:            deps.Exit,
		scheduling:      deps.Scheduling,
		info:            deps.Info,
		conversations:   deps.Conversations,
		logger:          deps.Logger,
		exitThreshold:   cfg.ExitThreshold,
		maxFlexAttempts: cfg.MaxFlexibilityAttempts,
	}
}

// Start opens a conversation and returns the greeting. An empty id allocates
// a fresh conversation.
func (a *Agent) Start(id string) Result {
	conv := a.conversations.GetOrCreate(id)
	conv.Lock()
	defer conv.Unlock()

	if len(conv.Turns) == 0 {
		conv.AddTurn(conversation.RoleAssistant, prompts.Greeting)
	}

	return Result{
		ConversationID: conv.ID,
		Decision:       DecisionContinue,
		Response:       prompts.Greeting,
	}
}

// Process handles one candidate message and returns the reply. It never
// fails the conversation: unexpected errors come back as an apologetic
// CONTINUE with the history preserved.
func (a *Agent) Process(ctx context.Context, conversationID, message string) Result {
	conv := a.conversations.GetOrCreate(conversationID)

	// One turn at a time per conversation. Other conversations proceed on
	// their own states.
	conv.Lock()
	defer conv.Unlock()

	log := a.logger.With(zap.String(logger.FieldConversation, conv.ID))

	conv.AddTurn(conversation.RoleUser, message)

	a.updateProfile(ctx, conv, log)

	history := toMessages(conv.Turns)

	// Exit wins over everything else.
	exit := a.exit.Decide(ctx, message, history)
	if exit.ShouldExit && exit.Confidence >= a.exitThreshold {
		farewell := exit.Farewell
		if farewell == "" {
			farewell = fallbackFarewell
		}

		conv.AddTurn(conversation.RoleAssistant, farewell)
		conv.Ended = true
		conv.AddDecision(string(DecisionEnd), exit.Reason, farewell)

		log.Info("conversation ended",
			zap.String("reason", exit.Reason),
			zap.Float64("exit_confidence", exit.Confidence),
		)

		return Result{
			ConversationID: conv.ID,
			Decision:       DecisionEnd,
			Response:       farewell,
			Reasoning:      exit.Reason,
			Ended:          true,
		}
	}

	result, err := a.route(ctx, conv, history, message, log)
	if err != nil {
		log.Error("turn failed", zap.Error(err))
		result = Result{
			Decision:  DecisionContinue,
			Response:  technicalDifficulties,
			Reasoning: "recovered from turn failure",
		}
	}
	result.ConversationID = conv.ID

	conv.AddTurn(conversation.RoleAssistant, result.Response)
	conv.AddDecision(string(result.Decision), result.Reasoning, result.Response)
	if result.Ended {
		conv.Ended = true
	}

	log.Info("turn handled",
		zap.String("decision", string(result.Decision)),
		zap.String("candidate", conv.Profile.Name),
		zap.String("interest", conv.Profile.InterestLevel),
	)

	return result
}

// route classifies the message and dispatches it. A classification failure is
// fatal for the turn and recovered by the caller.
func (a *Agent) route(ctx context.Context, conv *conversation.State, history []advisor.Message, message string, log *zap.Logger) (Result, error) {
	profileJSON, _ := json.Marshal(conv.Profile)
	prompt := prompts.Decision(message, advisor.FormatHistory(history, historyWindow), string(profileJSON))

	raw, err := a.generator.GenerateContent(ctx, prompt, message)
	if err != nil {
		return Result{}, fmt.Errorf("classify turn: %w", err)
	}

	var payload struct {
		Decision  string `mapstructure:"decision"`
		Reasoning string `mapstructure:"reasoning"`
		Response  string `mapstructure:"response"`
	}
	if err := ai.DecodeLoose(raw, &payload); err != nil {
		return Result{}, fmt.Errorf("parse routing decision: %w", err)
	}

	decision, ok := parseDecision(payload.Decision)
	if !ok {
		return Result{}, fmt.Errorf("unexpected routing decision %q", payload.Decision)
	}

	// A candidate who has shared everything needed is ready, even when the
	// model hesitates. SCHEDULE itself is never demoted here.
	if decision == DecisionContinue && readyToSchedule(conv.Profile) {
		log.Debug("promoting decision",
			zap.String("from", string(DecisionContinue)),
			zap.String("to", string(DecisionSchedule)),
		)
		decision = DecisionSchedule
	}

	switch decision {
	case DecisionInfo:
		return a.answerQuestion(ctx, message, payload.Reasoning, log), nil
	case DecisionSchedule:
		return a.schedule(ctx, conv, history, message, log), nil
	case DecisionEnd:
		return Result{
			Decision:  DecisionEnd,
			Response:  payload.Response,
			Reasoning: payload.Reasoning,
			Ended:     true,
		}, nil
	default:
		return Result{
			Decision:  DecisionContinue,
			Response:  payload.Response,
			Reasoning: payload.Reasoning,
		}, nil
	}
}

func (a *Agent) answerQuestion(ctx context.Context, message, reasoning string, log *zap.Logger) Result {
	resp := a.info.Answer(ctx, message)
	if resp.QuestionType == "error" {
		log.Warn("question answering degraded to continue")
		return Result{
			Decision:  DecisionContinue,
			Response:  "I couldn't look that up just now. Could you tell me a bit more about what you'd like to know?",
			Reasoning: "info lookup failed",
		}
	}

	log.Debug("question answered",
		zap.String("question_type", resp.QuestionType),
		zap.Float64("answer_confidence", resp.Confidence),
	)

	return Result{
		Decision:  DecisionInfo,
		Response:  resp.Answer,
		Reasoning: reasoning,
	}
}

func (a *Agent) schedule(ctx context.Context, conv *conversation.State, history []advisor.Message, message string, log *zap.Logger) Result {
	sched := a.scheduling.Decide(ctx, conv.Profile, history, message)

	switch sched.Decision {
	case advisor.DecisionConfirmSlot:
		return a.confirmSlot(ctx, conv, message, sched, log)

	case advisor.DecisionSchedule:
		if sched.Matched && len(sched.Slots) > 0 {
			conv.FlexibilityAttempts = 0
			conv.OfferedSlots = sched.Slots
			return Result{
				Decision:  DecisionSchedule,
				Response:  sched.Response,
				Reasoning: sched.Reasoning,
			}
		}
		return a.negotiateFlexibility(ctx, conv, log)

	default: // NOT_SCHEDULE
		response := sched.Response
		if response == "" {
			response = profileGapQuestion(conv.Profile)
		}
		return Result{
			Decision:  DecisionContinue,
			Response:  response,
			Reasoning: sched.Reasoning,
		}
	}
}

// confirmSlot books the accepted slot when one was offered, otherwise the
// advisor's reply passes through.
func (a *Agent) confirmSlot(ctx context.Context, conv *conversation.State, message string, sched advisor.SchedulingResult, log *zap.Logger) Result {
	if len(conv.OfferedSlots) == 0 || conv.Profile.Name == "" {
		return Result{
			Decision:  DecisionSchedule,
			Response:  sched.Response,
			Reasoning: sched.Reasoning,
		}
	}

	slot := pickOffered(message, conv.OfferedSlots)
	booking := a.scheduling.Book(ctx, calendar.AppointmentRequest{
		SlotID:         slot.ID,
		CandidateName:  conv.Profile.Name,
		InterviewType:  "screening",
		ConversationID: conv.ID,
	})

	if booking.Success {
		log.Info("interview booked",
			zap.Int64("appointment_id", booking.AppointmentID),
			zap.Int64("slot_id", slot.ID),
		)
		conv.OfferedSlots = nil
	}

	return Result{
		Decision:  DecisionSchedule,
		Response:  booking.Message,
		Reasoning: sched.Reasoning,
	}
}

// negotiateFlexibility handles a SCHEDULE decision with no matching slots.
// First it asks for flexibility, then it lists the earliest open slots, and
// finally it ends gracefully and flags the conversation for human follow up.
func (a *Agent) negotiateFlexibility(ctx context.Context, conv *conversation.State, log *zap.Logger) Result {
	conv.FlexibilityAttempts++

	log.Info("no matching slots",
		zap.Int("flexibility_attempt", conv.FlexibilityAttempts),
		zap.Int("max_attempts", a.maxFlexAttempts),
	)

	if conv.FlexibilityAttempts >= a.maxFlexAttempts {
		conv.Profile.SchedulingFailed = true
		return Result{
			Decision:  DecisionEnd,
			Response:  handoffMessage,
			Reasoning: "no workable time after repeated attempts",
			Ended:     true,
		}
	}

	if conv.FlexibilityAttempts > 1 {
		next := a.scheduling.NextAvailable(ctx, 3)
		if len(next) > 0 {
			conv.OfferedSlots = next
			return Result{
				Decision:  DecisionSchedule,
				Response:  "Here are the next times we have open:\n" + advisor.FormatSlots(next) + "\n\nWould any of these work?",
				Reasoning: "offering earliest open slots",
			}
		}

		conv.Profile.SchedulingFailed = true
		return Result{
			Decision:  DecisionEnd,
			Response:  handoffMessage,
			Reasoning: "calendar has no open slots",
			Ended:     true,
		}
	}

	return Result{
		Decision:  DecisionSchedule,
		Response:  flexibilityAsk,
		Reasoning: "no slots match the stated preference",
	}
}

// updateProfile re-derives the candidate profile from the history and merges
// it monotonically. Extraction failures are logged and skipped; the previous
// profile stays in effect.
func (a *Agent) updateProfile(ctx context.Context, conv *conversation.State, log *zap.Logger) {
	prompt := prompts.Extract(advisor.FormatHistory(toMessages(conv.Turns), historyWindow))

	raw, err := a.generator.GenerateContent(ctx, prompt, "Extract the candidate information.")
	if err != nil {
		log.Debug("profile extraction failed", zap.Error(err))
		return
	}

	var extracted struct {
		Name                  string `mapstructure:"name"`
		Experience            string `mapstructure:"experience"`
		CurrentStatus         string `mapstructure:"current_status"`
		InterestLevel         string `mapstructure:"interest_level"`
		AvailabilityMentioned bool   `mapstructure:"availability_mentioned"`
	}
	if err := ai.DecodeLoose(raw, &extracted); err != nil {
		log.Debug("profile extraction not parseable", zap.Error(err))
		return
	}

	conv.Profile = conv.Profile.Merge(conversation.Profile{
		Name:                  extracted.Name,
		Experience:            extracted.Experience,
		CurrentStatus:         extracted.CurrentStatus,
		InterestLevel:         extracted.InterestLevel,
		AvailabilityMentioned: extracted.AvailabilityMentioned,
	})
}

func readyToSchedule(p conversation.Profile) bool {
	interested := p.InterestLevel == "high" || p.InterestLevel == "medium"
	return p.Name != "" && p.HasExperience() && p.AvailabilityMentioned && interested
}

func profileGapQuestion(p conversation.Profile) string {
	switch {
	case p.Name == "":
		return "Before we go further, may I have your name?"
	case !p.HasExperience():
		return "Could you tell me a bit about your professional background?"
	default:
		return "What times generally work for you, and how interested are you in moving forward?"
	}
}

func pickOffered(message string, offered []calendar.Slot) calendar.Slot {
	lower := strings.ToLower(message)
	switch {
	case len(offered) > 1 && strings.Contains(lower, "second"):
		return offered[1]
	case len(offered) > 2 && strings.Contains(lower, "third"):
		return offered[2]
	case len(offered) > 1 && strings.Contains(lower, "last"):
		return offered[len(offered)-1]
	default:
		return offered[0]
	}
}

func parseDecision(raw string) (Decision, bool) {
	switch Decision(strings.ToUpper(strings.TrimSpace(raw))) {
	case DecisionContinue:
		return DecisionContinue, true
	case DecisionSchedule:
		return DecisionSchedule, true
	case DecisionInfo:
		return DecisionInfo, true
	case DecisionEnd:
		return DecisionEnd, true
	default:
		return "", false
	}
}

func toMessages(turns []conversation.Turn) []advisor.Message {
	messages := make([]advisor.Message, 0, len(turns))
	for _, turn := range turns {
		messages = append(messages, advisor.Message{Role: turn.Role, Content: turn.Content})
	}
	return messages
}
