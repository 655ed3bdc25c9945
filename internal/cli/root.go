package cli

import (
	"fmt"

	"github.com/mlowery/ritual/internal/config"
	"github.com/mlowery/ritual/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ritual",
	Short: "Habit tracking with behavioral analytics",
	Long:  "Ritual tracks habits and discovers the patterns between them: streaks, cross-habit correlations, and context for a chat assistant. Single Go binary.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(correlateCmd)
}

// loadConfig resolves the config file (default ~/.ritual/config.yaml).
func loadConfig() (config.Config, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return config.Default(), err
	}
	return config.Load(path)
}

// openDB opens the configured database, falling back to the default path.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	return store.Open(dbPath)
}
