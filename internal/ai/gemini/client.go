package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultMaxRetries = 3

	// maxQuotaDelay bounds how long a quota backoff can be before the
	// request is abandoned instead of retried.
	maxQuotaDelay = 30 * time.Second
)

// Overridable in tests.
var sleep = time.Sleep

var retryAfterRe = regexp.MustCompile(`retry after (\d+(?:\.\d+)?) seconds`)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	client *genai.Client
}

func (c *genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return c.client.Chats.Create(ctx, model, config, history)
}

// Generator wraps the Google GenAI client behind a simple system plus message
// completion call with bounded retries on transient API errors.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	logger     *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:      &genaiChats{client: client},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger,
	}, nil
}

// GenerateContent sends the message to Gemini under the provided system
// instruction and returns the joined textual response.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	var config *genai.GenerateContentConfig
	if system = strings.TrimSpace(system); system != "" {
		config = &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{
				Parts: []*genai.Part{{Text: system}},
			},
		}
	}

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		chat, err := g.chats.Create(ctx, g.model, config, nil)
		if err != nil {
			return "", fmt.Errorf("create chat session: %w", err)
		}

		resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
		if err == nil {
			return extractText(resp)
		}

		lastErr = err

		delay, retryable := retryDelay(err, attempt)
		if !retryable || attempt == g.maxRetries {
			break
		}

		g.logger.Debug("retrying gemini request",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		sleep(delay)
	}

	return "", fmt.Errorf("generate content: %w", lastErr)
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", errors.New("gemini api returned empty response")
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// retryDelay reports whether the error is worth retrying and how long to wait
// before the next attempt. Server errors back off linearly. Quota errors are
// retried only when the API suggests a short delay.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	if apiErr.Code == http.StatusTooManyRequests {
		delay, ok := quotaDelay(apiErr.Message)
		if !ok || delay > maxQuotaDelay {
			return 0, false
		}
		return delay, true
	}

	if apiErr.Code >= http.StatusInternalServerError {
		return time.Duration(attempt) * time.Second, true
	}

	return 0, false
}

func quotaDelay(message string) (time.Duration, bool) {
	match := retryAfterRe.FindStringSubmatch(strings.ToLower(message))
	if match == nil {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}
