package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/palate/internal/badges"
	"github.com/abhisek/palate/internal/questions"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load badge catalog and question bank files into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, st, cfg, err := openService(cmd)
		if err != nil {
			return err
		}
		defer st.Close()
		ctx := cmd.Context()

		badgePath, _ := cmd.Flags().GetString("badges")
		if badgePath == "" {
			badgePath = cfg.Content.BadgeCatalog
		}
		bankPath, _ := cmd.Flags().GetString("questions")
		if bankPath == "" {
			bankPath = cfg.Content.QuestionBank
		}
		if badgePath == "" && bankPath == "" {
			return fmt.Errorf("nothing to seed: set --badges and/or --questions, or content paths in the config file")
		}

		if badgePath != "" {
			catalog, err := badges.LoadCatalog(badgePath)
			if err != nil {
				return err
			}
			for _, b := range catalog {
				if err := st.PutBadge(ctx, b); err != nil {
					return fmt.Errorf("store badge %s: %w", b.ID, err)
				}
			}
			fmt.Printf("Seeded %d badge(s) from %s\n", len(catalog), badgePath)
		}

		if bankPath != "" {
			raw, err := questions.LoadQuestions(bankPath)
			if err != nil {
				return err
			}
			if err := st.PutQuestions(ctx, raw); err != nil {
				return fmt.Errorf("store questions: %w", err)
			}
			fmt.Printf("Seeded %d question(s) from %s\n", len(raw), bankPath)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().String("badges", "", "Path to badge catalog JSON")
	seedCmd.Flags().String("questions", "", "Path to question bank JSON")
}
