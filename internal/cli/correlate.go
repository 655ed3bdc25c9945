package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/mlowery/ritual/internal/engine"
	"github.com/spf13/cobra"
)

var (
	correlateUser     string
	correlateDaysBack int
	correlateSave     bool
)

var correlateCmd = &cobra.Command{
	Use:   "correlate",
	Short: "Run a full correlation calculation for a user",
	RunE:  runCorrelate,
}

func init() {
	correlateCmd.Flags().StringVar(&correlateUser, "user", "", "user id (required)")
	correlateCmd.Flags().IntVar(&correlateDaysBack, "days", 0, "trailing window in days (default 60)")
	correlateCmd.Flags().BoolVar(&correlateSave, "save", false, "write results into the correlation cache")
	correlateCmd.MarkFlagRequired("user")
}

func runCorrelate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	now := time.Now().UTC()
	results, err := engine.Calculate(db, correlateUser, engine.CalcOpts{
		DaysBack: correlateDaysBack,
		Now:      now,
	})
	if err != nil {
		return fmt.Errorf("calculate: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No correlations found — not enough overlapping habit data yet.")
		return nil
	}

	bold := color.New(color.Bold)
	bold.Printf("Correlations for %s\n", correlateUser)
	for _, r := range results {
		fmt.Printf("  %+.2f  (confidence %.2f, %d days)  %s\n",
			r.Correlation, r.Confidence, r.SampleSize, r.Description)
	}

	if correlateSave {
		if err := engine.SaveInsights(db, correlateUser, results, now); err != nil {
			return fmt.Errorf("save insights: %w", err)
		}
		fmt.Println("Saved to correlation cache.")
	}
	return nil
}
