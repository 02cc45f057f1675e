// Command datahunter watches x.com and chatgpt.com tabs in a headless Chrome
// and submits what it collects to the data hub.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "datahunter",
	Short:         "Collect tweets and conversations for the data hub",
	Long:          "datahunter drives a headless Chrome, extracts tweets, ChatGPT conversations and reply contexts from the watched tabs, and submits them to the data hub.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
