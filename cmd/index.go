package cmd

import (
	"context"
	"log"

	"recruit-agent/internal/logger"
	"recruit-agent/internal/retrieval"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var indexCmd = &cobra.Command{
	Use:   "index [docs dir]",
	Short: "Index the company knowledge base for question answering",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		index(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func index(_ *cobra.Command, args []string) {
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

	docsDir := config.Retrieval.DocsDir
	if len(args) > 0 {
		docsDir = args[0]
	}
	if docsDir == "" {
		zlog.Fatal("a docs directory is required, either as an argument or under retrieval.docs-dir")
	}

	idx, err := retrieval.Open(config.Retrieval.IndexPath, zlog)
	if err != nil {
		zlog.Fatal("opening the retrieval index", zap.Error(err))
	}
	defer idx.Close()

	indexed, err := idx.IndexDir(ctx, docsDir)
	if err != nil {
		zlog.Fatal("indexing the knowledge base", zap.Error(err))
	}

	zlog.Info("knowledge base indexed",
		zap.String("docs_dir", docsDir),
		zap.String("index_path", config.Retrieval.IndexPath),
		zap.Int("passages", indexed),
	)
}
