package cmd

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/palate/internal/config"
	"github.com/abhisek/palate/internal/progression"
	"github.com/abhisek/palate/internal/questions"
	"github.com/abhisek/palate/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "palate",
	Short: "Tasting-habit learning companion",
	Long:  "Palate — progression engine for tasting habits: quizzes, spaced review, streaks, and badges.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: ./config.yaml, ~/.config/palate/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides PALATE_DB env var)")
	rootCmd.PersistentFlags().String("user", "", "User ID to act as (overrides config)")

	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(tastingCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		cfg.User = u
	}
	return cfg, nil
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then the config/PALATE_DB value, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Database.Path != "" {
		return cfg.Database.Path, store.EnsureDir(cfg.Database.Path)
	}
	return store.DefaultDBPath()
}

// openService wires the full engine over the SQLite store. The caller
// must Close the returned store.
func openService(cmd *cobra.Command) (*progression.Service, *store.SQLiteStore, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, nil, err
	}

	pcfg := progression.DefaultConfig()
	if cfg.Goals.TastingTarget > 0 {
		pcfg.Goals.TastingTarget = cfg.Goals.TastingTarget
	}
	if cfg.Goals.QuizTarget > 0 {
		pcfg.Goals.QuizTarget = cfg.Goals.QuizTarget
	}

	svc := progression.New(
		st,
		questions.NewStoreBank(st),
		pcfg,
		slog.Default(),
		time.Now,
		rand.New(rand.NewSource(time.Now().UnixNano())),
	)
	return svc, st, cfg, nil
}
