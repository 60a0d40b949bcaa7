package cmd

import (
	"fmt"
	"log"

	"trainslot-backend/services/training"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(submitCmd)
}

type submitBody struct {
	identityBody
	WeekLink string   `json:"link"`
	Ids      []string `json:"ids"`
}

var submitCmd = &cobra.Command{
	Use:   "submit <week-link> [slot-id]...",
	Short: "Replaces your selection for a week with the given slot ids.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var week training.Week
		err := post(cmd, "/submit/", submitBody{
			identityBody: identity(),
			WeekLink:     args[0],
			Ids:          args[1:],
		}, &week)
		if err != nil {
			log.Fatal(err)
		}

		fmt.Println("Selection submitted.")
		if week.EditLink != "" {
			fmt.Printf("Edit link on record: %s\n", week.EditLink)
		}
		for _, slot := range week.Timeslots {
			if slot.Selected {
				fmt.Printf("  selected: %s (%s)\n", slot.Id, slot.Datetime)
			}
		}
	},
}
