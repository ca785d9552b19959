package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "recruit-agent"
)

type Config struct {
	AI        *AIConfig        `mapstructure:"ai"`
	Calendar  *CalendarConfig  `mapstructure:"calendar"`
	Retrieval *RetrievalConfig `mapstructure:"retrieval"`
	Agent     *AgentConfig     `mapstructure:"agent"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries"`
	MaxLogLength int    `mapstructure:"max-log-length"`
}

type CalendarConfig struct {
	Path     string `mapstructure:"path"`
	SeedDays int    `mapstructure:"seed-days"`
}

type RetrievalConfig struct {
	IndexPath string `mapstructure:"index-path"`
	DocsDir   string `mapstructure:"docs-dir"`
	TopK      int    `mapstructure:"top-k"`
}

type AgentConfig struct {
	ExitThreshold          float64 `mapstructure:"exit-threshold"`
	MaxFlexibilityAttempts int     `mapstructure:"max-flexibility-attempts"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "recruit-agent is a conversational screening assistant that chats with candidates and schedules interviews",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	if err := viper.BindEnv("ai.gemini.api-key-file", "GEMINI_API_KEY_FILE"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY_FILE environment variable: %v", err)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is recruit-agent.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// Every command has workable defaults, so a missing config file is fine.
	// A config file that exists but does not parse is not.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}

	return config, nil
}

// withDefaults fills in everything the config file left out.
func (c *Config) withDefaults() *Config {
	if c.AI == nil {
		c.AI = &AIConfig{}
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "gemini"
	}
	if c.AI.Gemini == nil {
		c.AI.Gemini = &GeminiConfig{}
	}
	if c.Calendar == nil {
		c.Calendar = &CalendarConfig{}
	}
	if c.Calendar.Path == "" {
		c.Calendar.Path = app + ".db"
	}
	if c.Calendar.SeedDays <= 0 {
		c.Calendar.SeedDays = 14
	}
	if c.Retrieval == nil {
		c.Retrieval = &RetrievalConfig{}
	}
	if c.Retrieval.IndexPath == "" {
		c.Retrieval.IndexPath = app + ".bleve"
	}
	if c.Agent == nil {
		c.Agent = &AgentConfig{}
	}

	return c
}
