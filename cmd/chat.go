package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"recruit-agent/internal/advisor"
	"recruit-agent/internal/agent"
	"recruit-agent/internal/ai/gemini"
	"recruit-agent/internal/calendar"
	"recruit-agent/internal/logger"
	"recruit-agent/internal/retrieval"
	"recruit-agent/internal/secrets"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	commandQuit   = "/quit"
	commandStats  = "/stats"
	commandExport = "/export"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with a candidate interactively",
	Run: func(cmd *cobra.Command, _ []string) {
		chat(cmd)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringP("conversation", "c", "", "conversation id to resume. Default is a fresh conversation.")
}

// chat runs the screening conversation loop on the terminal.
func chat(cmd *cobra.Command) {
	ctx := context.Background()

	zlog, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zlog.Fatal("getting a config", zap.Error(err))
	}
	config = config.withDefaults()

	pretty, _ := json.MarshalIndent(config, "", "  ")
	zlog.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	recruitAgent, cleanup := buildAgent(ctx, config, zlog)
	defer cleanup()

	conversationID, _ := cmd.Flags().GetString("conversation")

	opening := recruitAgent.Start(conversationID)
	conversationID = opening.ConversationID

	zlog.Info("starting the chat", zap.String(logger.FieldConversation, conversationID))
	fmt.Printf("assistant> %s\n", opening.Response)

	input := promptui.Prompt{Label: "you"}

	for {
		line, err := input.Run()
		if err != nil {
			// Ctrl-C and Ctrl-D land here.
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if handled := handleCommand(recruitAgent, conversationID, line); handled {
			if line == commandQuit {
				break
			}
			continue
		}

		result := recruitAgent.Process(ctx, conversationID, line)
		fmt.Printf("assistant> %s\n", result.Response)

		if result.Ended {
			break
		}
	}

	zlog.Info("chat finished", zap.String(logger.FieldConversation, conversationID))
}

func handleCommand(a *agent.Agent, conversationID, line string) bool {
	switch line {
	case commandQuit:
		return true
	case commandStats:
		stats, _ := json.MarshalIndent(a.Stats(), "", "  ")
		fmt.Println(string(stats))
		return true
	case commandExport:
		exported, err := a.Export(conversationID)
		if err != nil {
			fmt.Println(err)
			return true
		}
		fmt.Println(string(exported))
		return true
	default:
		return false
	}
}

// buildAgent wires the generator, calendar, retrieval index and advisors
// together. The returned cleanup closes everything that holds resources.
func buildAgent(ctx context.Context, config *Config, log *zap.Logger) (*agent.Agent, func()) {
	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: config.AI.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		log.Fatal(
			"loading the gemini api key",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY, or point ai.gemini.api-key-file at a key file"),
		)
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, config.AI.Gemini.Model, config.AI.Gemini.MaxRetries, log)
	if err != nil {
		log.Fatal("creating the gemini client", zap.Error(err))
	}

	log.Info("ai client ready", logger.CommonFields(config.AI.Provider, generator.Model())...)

	store, err := calendar.Open(config.Calendar.Path, log)
	if err != nil {
		log.Fatal("opening the calendar", zap.Error(err))
	}

	if err := store.Seed(ctx, time.Now(), config.Calendar.SeedDays); err != nil {
		log.Fatal("seeding the calendar", zap.Error(err))
	}

	index, err := retrieval.Open(config.Retrieval.IndexPath, log)
	if err != nil {
		log.Fatal("opening the retrieval index", zap.Error(err))
	}

	if config.Retrieval.DocsDir != "" {
		count, err := index.DocCount()
		if err != nil {
			log.Fatal("checking the retrieval index", zap.Error(err))
		}
		if count == 0 {
			indexed, err := index.IndexDir(ctx, config.Retrieval.DocsDir)
			if err != nil {
				log.Fatal("indexing the knowledge base", zap.Error(err))
			}
			log.Info("indexed the knowledge base", zap.Int("passages", indexed))
		}
	}

	maxLogLength := config.AI.Gemini.MaxLogLength

	recruitAgent := agent.New(
		agent.Config{
			ExitThreshold:          config.Agent.ExitThreshold,
			MaxFlexibilityAttempts: config.Agent.MaxFlexibilityAttempts,
		},
		agent.Deps{
			Generator: generator,
			Exit:      advisor.NewExitAdvisor(generator, maxLogLength, log),
			Scheduling: advisor.NewSchedulingAdvisor(generator, store, advisor.SchedulingConfig{
				MaxLogLength: maxLogLength,
			}, log),
			Info:   advisor.NewInfoAdvisor(generator, index, config.Retrieval.TopK, log),
			Logger: log,
		},
	)

	cleanup := func() {
		if err := index.Close(); err != nil {
			log.Warn("closing the retrieval index", zap.Error(err))
		}
		if err := store.Close(); err != nil {
			log.Warn("closing the calendar", zap.Error(err))
		}
	}

	return recruitAgent, cleanup
}
