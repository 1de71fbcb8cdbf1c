package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abhisek/palate/internal/progression"
	"github.com/abhisek/palate/internal/session"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Play a quiz session",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetInt("level")

		svc, st, cfg, err := openService(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		hearts, err := svc.Hearts(ctx, cfg.User, level)
		if err != nil {
			return err
		}
		fmt.Printf("Level %d, %d heart(s) available.\n\n", level, hearts)

		sess, err := svc.StartSession(ctx, cfg.User, level)
		if err != nil {
			if errors.Is(err, session.ErrLevelLocked) {
				return fmt.Errorf("level %d is locked; score %d%% or better on level %d first", level, session.UnlockScore, level-1)
			}
			return err
		}

		reader := bufio.NewReader(os.Stdin)
		for i, q := range sess.Questions {
			fmt.Printf("%d/%d  %s\n", i+1, len(sess.Questions), q.Text)
			for j, opt := range q.Options {
				fmt.Printf("  %d) %s\n", j+1, opt)
			}

			started := time.Now()
			choice, err := readChoice(reader, len(q.Options))
			if err != nil {
				// Walked away mid-session. Hearts and review
				// schedule changes stay as they are.
				if abandonErr := svc.AbandonSession(ctx, sess.ID); abandonErr != nil {
					return abandonErr
				}
				fmt.Println("\nSession abandoned.")
				return nil
			}

			outcome, err := svc.SubmitAnswer(ctx, sess.ID, q.ID, choice, int(time.Since(started).Milliseconds()))
			if err != nil {
				return err
			}
			if outcome.Result.Correct {
				color.Green("Correct!")
			} else {
				color.Red("Wrong. The answer was: %s", q.Options[q.CorrectOption])
			}
			fmt.Println()

			if outcome.Result.Done {
				printSummary(outcome)
				return nil
			}
		}
		return nil
	},
}

func init() {
	quizCmd.Flags().Int("level", 1, "Level to play")
}

func readChoice(reader *bufio.Reader, options int) (int, error) {
	for {
		fmt.Print("Your answer: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > options {
			fmt.Printf("Enter a number between 1 and %d.\n", options)
			continue
		}
		return n - 1, nil
	}
}

func printSummary(outcome *progression.AnswerOutcome) {
	s := outcome.Result.Summary
	if outcome.Result.OutOfHearts {
		color.Red("Out of hearts! Session over.")
	}
	fmt.Printf("Score: %d%% (%d/%d correct), %d XP earned\n", s.Score, s.Correct, s.TotalQuestions, s.XPAwarded)
	for _, lvl := range s.LevelsGained {
		color.Cyan("Level up! You reached level %d.", lvl)
	}
	if s.UnlockedLevel > 0 {
		color.Cyan("Quiz level %d unlocked.", s.UnlockedLevel)
	}
	for _, b := range outcome.BadgesAwarded {
		color.Yellow("Badge earned: %s", b.BadgeID)
	}
	if outcome.Streak != nil && outcome.Streak.Current > 1 {
		fmt.Printf("Daily streak: %d day(s)\n", outcome.Streak.Current)
	}
}
