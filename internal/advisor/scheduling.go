package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"recruit-agent/internal/ai"
	"recruit-agent/internal/calendar"
	"recruit-agent/internal/conversation"
	"recruit-agent/internal/logger"
	"recruit-agent/internal/prompts"
	"recruit-agent/internal/timeparse"
)

// Decision is the scheduling verdict for one turn.
type Decision string

const (
	DecisionSchedule    Decision = "SCHEDULE"
	DecisionConfirmSlot Decision = "CONFIRM_SLOT"
	DecisionNotSchedule Decision = "NOT_SCHEDULE"
)

// DefaultSlotWindowDays is how far ahead slots are offered.
const DefaultSlotWindowDays = 14

// SchedulingResult is always usable: model failures fall back to a rule based
// verdict.
type SchedulingResult struct {
	Decision  Decision
	Reasoning string
	Response  string

	// Slots are the concrete openings offered on a SCHEDULE decision.
	Slots []calendar.Slot
	// Matched reports whether the offered slots satisfy a stated time
	// preference. False means the candidate named a time and nothing close
	// was available, which is the caller's cue to negotiate flexibility.
	Matched bool
	// Intent is the parsed scheduling signal from the message.
	Intent timeparse.Intent
}

// BookingResult is the outcome of an attempted booking. A taken slot is a
// normal outcome, not an error.
type BookingResult struct {
	Success       bool
	AppointmentID int64
	Message       string
}

// SchedulingConfig tunes the scheduling advisor.
type SchedulingConfig struct {
	WindowDays   int
	OfferLimit   int
	MaxLogLength int
}

// SchedulingAdvisor decides when to offer interview slots and books them.
type SchedulingAdvisor struct {
	generator  ai.Generator
	store      calendar.Store
	logger     *zap.Logger
	windowDays int
	offerLimit int
	maxLogLen  int

	now func() time.Time
}

func NewSchedulingAdvisor(generator ai.Generator, store calendar.Store, cfg SchedulingConfig, log *zap.Logger) *SchedulingAdvisor {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultSlotWindowDays
	}
	if cfg.OfferLimit <= 0 {
		cfg.OfferLimit = defaultOfferLimit
	}
	if cfg.MaxLogLength <= 0 {
		cfg.MaxLogLength = 200
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &SchedulingAdvisor{
		generator:  generator,
		store:      store,
		logger:     log,
		windowDays: cfg.WindowDays,
		offerLimit: cfg.OfferLimit,
		maxLogLen:  cfg.MaxLogLength,
		now:        time.Now,
	}
}

// Decide analyzes the latest message and either offers slots, confirms one,
// or declines to schedule yet.
func (a *SchedulingAdvisor) Decide(ctx context.Context, profile conversation.Profile, history []Message, message string) SchedulingResult {
	ref := a.now()
	intent := timeparse.ParseSchedulingIntent(message, ref)

	slots, err := a.store.ListSlots(ctx, calendar.ListSlotsParams{
		From:          ref,
		To:            ref.AddDate(0, 0, a.windowDays),
		AvailableOnly: true,
	})
	if err != nil {
		a.logger.Warn("listing slots failed", zap.Error(err))
		slots = nil
	}

	offered, matched := MatchSlots(intent.Candidates, slots, a.offerLimit)

	profileJSON, _ := json.Marshal(profile)
	prompt := prompts.Scheduling(
		message,
		FormatHistory(history, historyWindow),
		string(profileJSON),
		FormatSlots(offered),
		ref,
	)

	raw, err := a.generator.GenerateContent(ctx, prompt, message)
	if err != nil {
		a.logger.Warn("scheduling analysis failed, using rules", zap.Error(err))
		return a.fallback(profile, message, intent)
	}

	a.logger.Debug("scheduling analysis response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)

	var payload struct {
		Decision  string `mapstructure:"decision"`
		Reasoning string `mapstructure:"reasoning"`
		Response  string `mapstructure:"response_message"`
	}

	if err := ai.DecodeLoose(raw, &payload); err != nil {
		a.logger.Debug("scheduling analysis not parseable, checking text", zap.Error(err))
		payload.Decision = textualSchedulingDecision(raw)
		if payload.Decision == "" {
			return a.fallback(profile, message, intent)
		}
	}

	decision, ok := parseDecision(payload.Decision)
	if !ok {
		// An unknown verdict is a parse failure, not an implicit refusal.
		a.logger.Debug("unrecognized scheduling decision, checking text",
			zap.String("decision", payload.Decision),
		)
		salvaged := textualSchedulingDecision(payload.Decision)
		if salvaged == "" {
			return a.fallback(profile, message, intent)
		}
		decision, _ = parseDecision(salvaged)
	}

	result := SchedulingResult{
		Decision:  decision,
		Reasoning: strings.TrimSpace(payload.Reasoning),
		Response:  strings.TrimSpace(payload.Response),
		Intent:    intent,
	}

	a.validate(&result, profile, message, intent)

	if result.Decision == DecisionSchedule {
		result.Slots = offered
		result.Matched = matched
		if matched && len(offered) > 0 {
			result.Response = offerMessage(offered)
		}
	}

	return result
}

// validate applies the rule based overrides that keep the model verdict
// consistent with what the candidate actually said.
func (a *SchedulingAdvisor) validate(result *SchedulingResult, profile conversation.Profile, message string, intent timeparse.Intent) {
	if rejectionSignal(message) {
		if result.Decision != DecisionNotSchedule {
			a.logger.Debug("overriding scheduling decision",
				zap.String("from", string(result.Decision)),
				zap.String("to", string(DecisionNotSchedule)),
				zap.String("why", "rejection signal in message"),
			)
		}
		result.Decision = DecisionNotSchedule
		result.Reasoning = "candidate is declining"
		return
	}

	ready := profile.Name != "" && profile.InterestLevel == "high"

	if result.Decision == DecisionNotSchedule && ready && intent.Detected && intent.Confidence > 0.7 {
		a.logger.Debug("overriding scheduling decision",
			zap.String("from", string(DecisionNotSchedule)),
			zap.String("to", string(DecisionSchedule)),
			zap.Float64("intent_confidence", intent.Confidence),
		)
		result.Decision = DecisionSchedule
		result.Reasoning = "clear scheduling intent from an engaged candidate"
		return
	}

	if result.Decision == DecisionSchedule && profile.Name == "" && profile.InterestLevel != "high" {
		a.logger.Debug("overriding scheduling decision",
			zap.String("from", string(DecisionSchedule)),
			zap.String("to", string(DecisionNotSchedule)),
			zap.String("why", "candidate not identified and not engaged"),
		)
		result.Decision = DecisionNotSchedule
		result.Reasoning = "need a name and some engagement before booking"
		result.Response = "Before we book a time, could you share your name and whether the position sounds interesting to you?"
	}
}

// fallback is the rule based verdict used when the model is unavailable.
func (a *SchedulingAdvisor) fallback(profile conversation.Profile, message string, intent timeparse.Intent) SchedulingResult {
	lower := strings.ToLower(message)
	keyword := false
	for _, k := range []string{"schedule", "interview", "appointment", "book", "when can", "available"} {
		if strings.Contains(lower, k) {
			keyword = true
			break
		}
	}

	if keyword && profile.Name != "" && profile.InterestLevel == "high" {
		return SchedulingResult{
			Decision:  DecisionSchedule,
			Reasoning: "rule based: scheduling request from an engaged candidate",
			Response:  "Great! Let me check our available interview slots for you.",
			Intent:    intent,
		}
	}

	return SchedulingResult{
		Decision:  DecisionNotSchedule,
		Reasoning: "rule based: not ready to schedule",
		Response:  "Would you like to schedule an interview? Let me know what times generally work for you.",
		Intent:    intent,
	}
}

// Book attempts to reserve the slot. A concurrently taken slot comes back as
// a failed result with a message the agent can send as is.
func (a *SchedulingAdvisor) Book(ctx context.Context, req calendar.AppointmentRequest) BookingResult {
	appt, err := a.store.CreateAppointment(ctx, req)
	if errors.Is(err, calendar.ErrSlotUnavailable) {
		return BookingResult{
			Message: "I'm sorry, that time was just taken. Would one of the other slots work for you?",
		}
	}
	if err != nil {
		a.logger.Error("booking failed", zap.Error(err), zap.Int64("slot_id", req.SlotID))
		return BookingResult{
			Message: "I'm sorry, something went wrong while booking. Could we try another time?",
		}
	}

	return BookingResult{
		Success:       true,
		AppointmentID: appt.ID,
		Message: fmt.Sprintf("You're all set! Your interview is booked for %s at %s with %s. Looking forward to it!",
			appt.Start.Format("Monday, January 2"),
			appt.Start.Format("03:04 PM"),
			appt.Recruiter,
		),
	}
}

// NextAvailable returns the earliest open slots, used when a candidate's
// stated preference cannot be met.
func (a *SchedulingAdvisor) NextAvailable(ctx context.Context, count int) []calendar.Slot {
	ref := a.now()
	slots, err := a.store.ListSlots(ctx, calendar.ListSlotsParams{
		From:          ref,
		To:            ref.AddDate(0, 0, a.windowDays),
		AvailableOnly: true,
	})
	if err != nil {
		a.logger.Warn("listing slots failed", zap.Error(err))
		return nil
	}

	return chronological(slots, count)
}

func offerMessage(slots []calendar.Slot) string {
	return "Great news! I have these interview times available:\n" +
		FormatSlots(slots) +
		"\n\nWould any of these work for you?"
}

func parseDecision(raw string) (Decision, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(DecisionSchedule):
		return DecisionSchedule, true
	case string(DecisionConfirmSlot):
		return DecisionConfirmSlot, true
	case string(DecisionNotSchedule):
		return DecisionNotSchedule, true
	default:
		return "", false
	}
}

// textualSchedulingDecision salvages a verdict from a response that failed
// JSON parsing. Order matters: NOT_SCHEDULE and CONFIRM_SLOT both contain
// substrings of SCHEDULE.
func textualSchedulingDecision(raw string) string {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, string(DecisionNotSchedule)):
		return string(DecisionNotSchedule)
	case strings.Contains(upper, string(DecisionConfirmSlot)):
		return string(DecisionConfirmSlot)
	case strings.Contains(upper, string(DecisionSchedule)):
		return string(DecisionSchedule)
	default:
		return ""
	}
}

var rejectionSignals = []string{
	"not interested",
	"no longer interested",
	"found another",
	"accepted another",
	"accepted an offer",
	"pass on this",
	"not a good fit",
	"withdraw",
}

func rejectionSignal(message string) bool {
	lower := strings.ToLower(message)
	for _, signal := range rejectionSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}
