package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/mlowery/ritual/internal/engine"
	"github.com/spf13/cobra"
)

var statsUser string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the streak summary for a user",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().StringVar(&statsUser, "user", "", "user id (required)")
	statsCmd.MarkFlagRequired("user")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	today := time.Now().UTC()
	sum, err := engine.Summary(db, statsUser, today)
	if err != nil {
		return fmt.Errorf("summary: %w", err)
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	bold.Printf("Streaks for %s (%s)\n", statsUser, today.Format("2006-01-02"))
	fmt.Printf("  active habits:    %d\n", sum.ActiveHabits)
	green.Printf("  with a streak:    %d\n", sum.WithStreak)
	fmt.Printf("  average streak:   %.1f days\n", sum.AvgStreak)
	fmt.Printf("  completed events: %d\n", sum.CompletedEvents)
	yellow.Printf("  streak breaks:    %d\n", sum.StreakBreaks)

	habits, err := db.ListActiveHabits(statsUser)
	if err != nil {
		return err
	}
	if len(habits) > 0 {
		fmt.Println()
		for _, h := range habits {
			info, err := engine.Streak(db, h.ID, today)
			if err != nil {
				return err
			}
			mark := "·"
			if info.Type == engine.StreakCurrent {
				mark = green.Sprint("✓")
			}
			fmt.Printf("  %s %-24s current %3d  longest %3d  (%s)\n",
				mark, h.Name, info.Current, info.Longest, info.Type)
		}
	}
	return nil
}
