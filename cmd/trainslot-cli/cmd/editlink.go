package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(setEditLinkCmd)
	rootCmd.AddCommand(editLinkCmd)
}

type setEditLinkBody struct {
	identityBody
	WeekLink string `json:"link"`
	EditLink string `json:"editLink"`
}

var setEditLinkCmd = &cobra.Command{
	Use:   "set-edit-link <week-link> <edit-link>",
	Short: "Registers an edit link you received outside this service.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		err := post(cmd, "/set-edit-link/", setEditLinkBody{
			identityBody: identity(),
			WeekLink:     args[0],
			EditLink:     args[1],
		}, nil)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("Edit link registered.")
	},
}

var editLinkCmd = &cobra.Command{
	Use:   "edit-link <week-link>",
	Short: "Prints the edit link on record for a week.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var out struct {
			EditLink string `json:"editLink"`
		}
		err := get(cmd, "/edit-link/", map[string]string{"link": args[0]}, &out)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(out.EditLink)
	},
}
