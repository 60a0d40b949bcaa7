package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Reports whether the service and the sign-up site are reachable.",
	Run: func(cmd *cobra.Command, args []string) {
		var out struct {
			Service  string `json:"service"`
			Upstream string `json:"upstream"`
		}
		err := get(cmd, "/status/", nil, &out)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("service:  %s\n", out.Service)
		fmt.Printf("upstream: %s\n", out.Upstream)
	},
}
