package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var tastingCmd = &cobra.Command{
	Use:   "tasting [item-id]",
	Short: "Record a completed tasting",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, cfg, err := openService(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		var relatedID string
		if len(args) > 0 {
			relatedID = args[0]
		}

		awarded, err := svc.RecordTasting(cmd.Context(), cfg.User, relatedID)
		if err != nil {
			return err
		}

		fmt.Println("Tasting recorded.")
		for _, b := range awarded {
			color.Yellow("Badge earned: %s", b.BadgeID)
		}
		return nil
	},
}
