package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show progression statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, cfg, err := openService(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ov, err := svc.Overview(cmd.Context(), cfg.User)
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		bold.Printf("Palate stats for %s\n\n", ov.UserID)

		fmt.Printf("Level %d, %d XP (%d to next level), %d lifetime XP\n",
			ov.XP.Level, ov.XP.CurrentXP, ov.XP.XPToNextLevel, ov.XP.LifetimeXP)
		fmt.Printf("Streak: %d day(s) current, %d longest\n", ov.Streak.Current, ov.Streak.Longest)
		fmt.Printf("Tastings recorded: %d\n", ov.Tasting)

		if len(ov.Badges) > 0 {
			bold.Println("\nBadges")
			for _, b := range ov.Badges {
				color.Yellow("  %s (earned %s)", b.BadgeID, b.EarnedAt.Format("2006-01-02"))
			}
		}

		if len(ov.Levels) > 0 {
			bold.Println("\nQuiz levels")
			for _, lvl := range ov.Levels {
				if !lvl.Unlocked {
					fmt.Printf("  Level %2d  locked\n", lvl.Level)
					continue
				}
				fmt.Printf("  Level %2d  best %3d%%  accuracy %3.0f%%  hearts %d  mastered %d  struggling %d  due %d\n",
					lvl.Level, lvl.BestScore, lvl.Accuracy*100, lvl.Hearts, lvl.Mastered, lvl.Struggling, lvl.DueReviews)
			}
		}
		return nil
	},
}
