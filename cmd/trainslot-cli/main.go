package main

import (
	"fmt"
	"os"

	"trainslot-backend/cmd/trainslot-cli/cmd"
)

func main() {
	baseUrl, ok := os.LookupEnv("TRAINSLOT_BASE_URL")
	if !ok {
		fmt.Println("You should specify the base url of the training service in the environment variable TRAINSLOT_BASE_URL.")
		os.Exit(1)
	}
	cmd.BaseUrl = baseUrl

	cmd.Execute()
}
