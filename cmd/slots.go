package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"recruit-agent/internal/calendar"
	"recruit-agent/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "Seed and list the interview calendar",
	Run: func(cmd *cobra.Command, _ []string) {
		slots(cmd)
	},
}

func init() {
	rootCmd.AddCommand(slotsCmd)

	slotsCmd.Flags().IntP("days", "n", 0, "list slots for the next N days. Default is the seed window.")
	slotsCmd.Flags().BoolP("all", "a", false, "include slots that are already booked")
}

func slots(cmd *cobra.Command) {
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

	store, err := calendar.Open(config.Calendar.Path, zlog)
	if err != nil {
		zlog.Fatal("opening the calendar", zap.Error(err))
	}
	defer store.Close()

	now := time.Now()

	if err := store.Seed(ctx, now, config.Calendar.SeedDays); err != nil {
		zlog.Fatal("seeding the calendar", zap.Error(err))
	}

	days, _ := cmd.Flags().GetInt("days")
	if days <= 0 {
		days = config.Calendar.SeedDays
	}
	all, _ := cmd.Flags().GetBool("all")

	listed, err := store.ListSlots(ctx, calendar.ListSlotsParams{
		From:          now,
		To:            now.AddDate(0, 0, days),
		AvailableOnly: !all,
	})
	if err != nil {
		zlog.Fatal("listing slots", zap.Error(err))
	}

	zlog.Info("calendar slots", zap.Int("count", len(listed)), zap.Int("days", days))

	for _, slot := range listed {
		state := "open"
		if !slot.Available {
			state = "booked"
		}
		fmt.Printf("%6d  %s  %-6s  %s\n",
			slot.ID,
			slot.Start.Format("Mon Jan _2 03:04 PM"),
			state,
			slot.Recruiter,
		)
	}
}
