package cmd

import (
	"fmt"
	"log"
	"os"

	"trainslot-backend/services/training"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Prints every open week with its timeslots and your current selection.",
	Run: func(cmd *cobra.Command, args []string) {
		var weeks []training.Week
		err := post(cmd, "/scrape/", identity(), &weeks)
		if err != nil {
			log.Fatal(err)
		}

		if len(weeks) == 0 {
			fmt.Println("No weeks are currently open for sign-up.")
			return
		}

		for _, week := range weeks {
			fmt.Printf("Week %d: %s\n", week.WeekNumber, week.Link)
			if week.EditLink != "" {
				fmt.Printf("Edit link: %s\n", week.EditLink)
			}

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"Id", "Datetime", "Available", "Selected"})
			for _, slot := range week.Timeslots {
				t.AppendRow(table.Row{slot.Id, slot.Datetime, slot.Available, slot.Selected})
			}
			t.SetStyle(table.StyleRounded)
			t.Render()
		}
	},
}
